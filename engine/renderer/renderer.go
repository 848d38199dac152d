package renderer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/scene"
	"github.com/spaghettifunk/lumen/engine/renderer/shaders"
	"github.com/spaghettifunk/lumen/engine/renderer/state"
	"github.com/spaghettifunk/lumen/engine/renderer/textures"
	"github.com/spaghettifunk/lumen/engine/resources"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type Config struct {
	Name                 string
	Width, Height        uint32
	Environments         []string
	DefaultEnvironment   string
	EnvironmentQueueSize int
	Workers              int
	JobQueueSize         int
	Camera               systems.OrbitCameraConfig
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.JobQueueSize <= 0 {
		c.JobQueueSize = 16
	}
	if c.EnvironmentQueueSize <= 0 {
		c.EnvironmentQueueSize = 8
	}
	if c.Camera == (systems.OrbitCameraConfig{}) {
		c.Camera = systems.DefaultOrbitCameraConfig()
	}
	return c
}

type eventRegistration struct {
	code core.EventCode
	id   uuid.UUID
}

/**
 * @brief Renderer hosts the managers and the scene renderer, and switches
 * between scenes and environments. Everything except the asset callbacks
 * runs on the render thread.
 */
type Renderer struct {
	config  Config
	backend RendererBackend
	assets  *assets.AssetManager

	ctx           *gpu.Context
	state         *state.RendererState
	shaders       *shaders.Manager
	mainViewport  *components.Viewport
	systems       *systems.SystemManager
	sceneRenderer *scene.Renderer

	scenes     []Scene
	current    int
	properties PropertyValues
	currentEnv string

	changes  chan string
	assetSub uuid.UUID
	events   []eventRegistration
	closed   bool
}

func New(backend RendererBackend, am *assets.AssetManager, config Config) (*Renderer, error) {
	config = config.withDefaults()
	if err := backend.Initialize(config.Name, config.Width, config.Height); err != nil {
		return nil, err
	}

	ctx := gpu.NewContext(backend.Device())
	r := &Renderer{
		config:       config,
		backend:      backend,
		assets:       am,
		ctx:          ctx,
		state:        state.New(ctx),
		shaders:      shaders.NewManager(ctx, am),
		mainViewport: &components.Viewport{W: int(config.Width), H: int(config.Height)},
		current:      -1,
		changes:      make(chan string, 64),
	}

	sm, err := systems.NewSystemManager(ctx, am, systems.SystemManagerConfig{
		Workers:              config.Workers,
		QueueSize:            config.JobQueueSize,
		Environments:         config.Environments,
		EnvironmentQueueSize: config.EnvironmentQueueSize,
		Camera:               config.Camera,
		Viewport:             *r.mainViewport,
	})
	if err != nil {
		r.Shutdown()
		return nil, err
	}
	r.systems = sm
	sm.Camera().OnInteract = func() {
		if s := r.CurrentScene(); s != nil {
			s.UserInteract()
		}
	}

	if err := r.shaders.Preload(context.Background(), scene.Programs...); err != nil {
		r.Shutdown()
		return nil, err
	}
	sr, err := scene.New(ctx, r.state, r.shaders, r.mainViewport)
	if err != nil {
		r.Shutdown()
		return nil, err
	}
	r.sceneRenderer = sr

	// Start preloading environment maps
	for _, name := range config.Environments {
		if err := sm.Environments().Preload(name); err != nil {
			core.LogWarn("environment %s not preloaded: %s", name, err)
		}
	}
	if config.DefaultEnvironment != "" {
		if err := r.SelectEnvironment(config.DefaultEnvironment); err != nil {
			core.LogError("default environment: %s", err)
		}
	}

	r.assetSub = am.Subscribe(func(path string, _ resources.ResourceType) {
		select {
		case r.changes <- path:
		default:
			core.LogWarn("asset change backlog full, dropped %s", path)
		}
	})
	r.registerEvent(core.EVENT_CODE_KEY_PRESSED, r.onKey)

	return r, nil
}

func (r *Renderer) registerEvent(code core.EventCode, fn core.FnOnEvent) {
	if id := core.EventRegister(code, fn); id != uuid.Nil {
		r.events = append(r.events, eventRegistration{code: code, id: id})
	}
}

func (r *Renderer) sceneContext() *SceneContext {
	return &SceneContext{
		GPU:           r.ctx,
		State:         r.state,
		Shaders:       r.shaders,
		Assets:        r.assets,
		SceneRenderer: r.sceneRenderer,
		Camera:        r.systems.Camera().Camera(),
		MainViewport:  r.mainViewport,
	}
}

func (r *Renderer) SceneRenderer() *scene.Renderer {
	return r.sceneRenderer
}

func (r *Renderer) Camera() *systems.OrbitCamera {
	return r.systems.Camera()
}

func (r *Renderer) MainViewport() components.Viewport {
	return *r.mainViewport
}

// AddScene prepares a scene and makes it selectable.
func (r *Renderer) AddScene(s Scene) error {
	if err := s.Init(r.sceneContext()); err != nil {
		return fmt.Errorf("initializing scene %q: %w", s.Description().Name, err)
	}
	// Objects created during Init bind behind the state cache.
	r.state.Invalidate()
	r.scenes = append(r.scenes, s)
	return nil
}

func (r *Renderer) Scenes() []Scene {
	return r.scenes
}

func (r *Renderer) CurrentScene() Scene {
	if r.current < 0 || r.current >= len(r.scenes) {
		return nil
	}
	return r.scenes[r.current]
}

// SelectScene switches the current scene.
func (r *Renderer) SelectScene(index int) error {
	if index < 0 || index >= len(r.scenes) {
		return fmt.Errorf("scene %d: %w", index, core.ErrUnknownScene)
	}
	r.sceneRenderer.Reset()
	if cur := r.CurrentScene(); cur != nil {
		cur.Destroy()
	}
	r.current = index
	s := r.scenes[index]
	if err := s.Create(); err != nil {
		r.current = -1
		return fmt.Errorf("creating scene %q: %w", s.Description().Name, err)
	}
	r.properties = s.DefaultProperties().Clone()
	s.ApplyProperties(r.properties)
	r.state.Invalidate()
	core.LogInfo("scene %q selected", s.Description().Name)
	return nil
}

func (r *Renderer) SelectSceneByName(name string) error {
	for i, s := range r.scenes {
		if strings.EqualFold(s.Description().Name, name) {
			return r.SelectScene(i)
		}
	}
	return fmt.Errorf("scene %q: %w", name, core.ErrUnknownScene)
}

// Properties are the values last applied to the current scene.
func (r *Renderer) Properties() PropertyValues {
	return r.properties.Clone()
}

func (r *Renderer) SetProperties(values PropertyValues) error {
	s := r.CurrentScene()
	if s == nil {
		return errors.New("no scene selected")
	}
	values = values.Clone()
	if err := values.Validate(s.PropertyDefinitions()); err != nil {
		return err
	}
	r.properties = values
	s.ApplyProperties(values)
	return nil
}

// ReloadScene rebuilds the current scene from scratch, picking up edited
// shaders and materials.
func (r *Renderer) ReloadScene() error {
	s := r.CurrentScene()
	if s == nil {
		return nil
	}
	props := r.properties
	r.sceneRenderer.Reset()
	s.Destroy()
	s.Dispose()
	if err := s.Init(r.sceneContext()); err != nil {
		r.current = -1
		return fmt.Errorf("reloading scene %q: %w", s.Description().Name, err)
	}
	if err := s.Create(); err != nil {
		r.current = -1
		return fmt.Errorf("reloading scene %q: %w", s.Description().Name, err)
	}
	r.properties = props
	s.ApplyProperties(props)
	r.state.Invalidate()
	core.LogInfo("scene %q reloaded", s.Description().Name)
	return nil
}

func (r *Renderer) Environments() []string {
	return r.systems.Environments().Names()
}

func (r *Renderer) CurrentEnvironment() string {
	return r.currentEnv
}

/**
 * @brief Switches the environment. The cube is applied once it is loaded,
 * unless another environment was selected in the meantime.
 */
func (r *Renderer) SelectEnvironment(name string) error {
	prev := r.currentEnv
	r.currentEnv = name
	err := r.systems.Environments().Get(name, func(cube *textures.TextureCube, err error) {
		if err != nil || r.currentEnv != name {
			return
		}
		if err := r.sceneRenderer.SetEnvironmentMap(cube); err != nil {
			core.LogError("applying environment %s: %s", name, err)
			return
		}
		core.LogInfo("environment %q selected", name)
	})
	if err != nil {
		r.currentEnv = prev
	}
	return err
}

// CycleEnvironment selects the environment after the current one.
func (r *Renderer) CycleEnvironment() error {
	names := r.Environments()
	if len(names) == 0 {
		return nil
	}
	next := (slices.Index(names, r.currentEnv) + 1) % len(names)
	return r.SelectEnvironment(names[next])
}

// Tick runs finished job callbacks, reacts to asset changes and advances
// the current scene. dt is in seconds.
func (r *Renderer) Tick(dt float64) {
	r.systems.Update()
	r.drainAssetChanges()
	if s := r.CurrentScene(); s != nil {
		s.Tick(dt)
	}
}

func (r *Renderer) drainAssetChanges() {
	for {
		select {
		case path := <-r.changes:
			if strings.HasPrefix(path, shaders.SourceRoot+"/") {
				if r.shaders.Invalidate(path) > 0 {
					core.LogInfo("press R to reload the scene with %s", path)
				}
			}
			core.EventFire(core.EventContext{
				Type: core.EVENT_CODE_ASSET_CHANGED,
				Data: &core.AssetEvent{Path: path},
			})
		default:
			return
		}
	}
}

// Draw renders and presents one frame. Rendering failures are logged and
// the frame is still presented.
func (r *Renderer) Draw(dt float64) error {
	if err := r.backend.BeginFrame(dt); err != nil {
		return err
	}
	if err := r.sceneRenderer.Draw(); err != nil {
		core.LogError("frame: %s", err)
	}
	return r.backend.EndFrame(dt)
}

func (r *Renderer) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	if err := r.sceneRenderer.Resize(int(width), int(height)); err != nil {
		return err
	}
	r.systems.Camera().SetViewport(*r.mainViewport)
	return r.backend.Resized(width, height)
}

func (r *Renderer) onKey(ctx core.EventContext) bool {
	ke, ok := ctx.Data.(*core.KeyEvent)
	if !ok {
		return false
	}
	var err error
	switch ke.KeyCode {
	case core.KEY_1:
		err = r.SelectScene(0)
	case core.KEY_2:
		err = r.SelectScene(1)
	case core.KEY_E:
		err = r.CycleEnvironment()
	case core.KEY_R:
		err = r.ReloadScene()
	default:
		return false
	}
	if err != nil {
		core.LogError(err.Error())
	}
	return true
}

// Shutdown releases every GPU object and stops the background systems.
func (r *Renderer) Shutdown() error {
	if r.closed {
		return nil
	}
	r.closed = true
	for _, e := range r.events {
		core.EventUnregister(e.code, e.id)
	}
	r.events = nil
	if r.assetSub != uuid.Nil {
		r.assets.Unsubscribe(r.assetSub)
		r.assetSub = uuid.Nil
	}

	if s := r.CurrentScene(); s != nil {
		s.Destroy()
	}
	for _, s := range r.scenes {
		s.Dispose()
	}
	r.scenes, r.current = nil, -1

	if r.sceneRenderer != nil {
		r.sceneRenderer.Dispose()
	}
	var err error
	if r.systems != nil {
		err = r.systems.Shutdown()
	}
	r.shaders.Dispose()
	r.ctx.Resources.DisposeAll()
	return errors.Join(err, r.backend.Shutdown())
}
