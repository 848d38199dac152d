package renderer

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu/gputest"
	"github.com/spaghettifunk/lumen/engine/renderer/scene"
	"github.com/spaghettifunk/lumen/engine/renderer/shaders"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type fakeBackend struct {
	rec          *gputest.Recorder
	initialized  bool
	shutdown     bool
	begins, ends int
	resized      [2]uint32
}

func (b *fakeBackend) Initialize(string, uint32, uint32) error {
	b.rec = gputest.NewRecorder()
	b.initialized = true
	return nil
}

func (b *fakeBackend) Shutdown() error {
	b.shutdown = true
	return nil
}

func (b *fakeBackend) Resized(w, h uint32) error {
	b.resized = [2]uint32{w, h}
	return nil
}

func (b *fakeBackend) BeginFrame(float64) error {
	b.begins++
	return nil
}

func (b *fakeBackend) EndFrame(float64) error {
	b.ends++
	return nil
}

func (b *fakeBackend) Device() gpu.Device {
	return b.rec
}

// fakeScene adds one view on Create and counts lifecycle calls.
type fakeScene struct {
	name  string
	ctx   *SceneContext
	calls []string

	view     *scene.View
	ticks    float64
	interact int
	applied  PropertyValues
}

var testCategory = Category{Name: "Test"}

func (s *fakeScene) Description() SceneDescription {
	return SceneDescription{Name: s.name}
}

func (s *fakeScene) Init(ctx *SceneContext) error {
	s.ctx = ctx
	s.calls = append(s.calls, "init")
	return nil
}

func (s *fakeScene) Create() error {
	s.calls = append(s.calls, "create")
	v, err := s.ctx.SceneRenderer.AddView(s.ctx.Camera, s.ctx.MainViewport, nil, scene.ViewProps{HDR: true})
	s.view = v
	return err
}

func (s *fakeScene) Destroy() {
	s.calls = append(s.calls, "destroy")
	s.view = nil
}

func (s *fakeScene) Dispose() {
	s.calls = append(s.calls, "dispose")
}

func (s *fakeScene) Tick(dt float64) {
	s.ticks += dt
}

func (s *fakeScene) UserInteract() {
	s.interact++
}

func (s *fakeScene) PropertyDefinitions() []Property {
	return []Property{NumberProperty("exposure", "Exposure", testCategory, 0.5, 5, 0.1, "")}
}

func (s *fakeScene) DefaultProperties() PropertyValues {
	return PropertyValues{"exposure": float32(2)}
}

func (s *fakeScene) ApplyProperties(values PropertyValues) {
	s.applied = values.Clone()
}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func writeEnvironment(t *testing.T, root, name string) {
	t.Helper()
	for face := gpu.CubeFace(0); face < gpu.CubeFaceCount; face++ {
		full := filepath.Join(root, filepath.FromSlash(systems.FacePath(name, face, ".png")))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		img.Set(0, 0, color.RGBA{R: 255, G: 128, A: 255})
		f, err := os.Create(full)
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
}

func newAssets(t *testing.T, environments ...string) *assets.AssetManager {
	t.Helper()
	root := t.TempDir()
	for _, p := range scene.Programs {
		writeFile(t, root, "shaders/"+shaders.VertexFile(p.Vertex), "void main() {}\n")
		writeFile(t, root, "shaders/"+shaders.FragmentFile(p.Fragment), "void main() {}\n")
	}
	for _, name := range environments {
		writeEnvironment(t, root, name)
	}
	am, err := assets.NewAssetManager(root)
	require.NoError(t, err)
	require.NoError(t, am.Initialize(false))
	t.Cleanup(am.Shutdown)
	return am
}

func newRenderer(t *testing.T, config Config, environments ...string) (*Renderer, *fakeBackend) {
	t.Helper()
	require.True(t, core.EventSystemInitialize())
	t.Cleanup(func() { core.EventSystemShutdown() })

	if config.Width == 0 {
		config.Width, config.Height = 64, 32
	}
	backend := &fakeBackend{}
	r, err := New(backend, newAssets(t, environments...), config)
	require.NoError(t, err)
	t.Cleanup(func() { r.Shutdown() })
	return r, backend
}

func waitForEnvironment(r *Renderer) bool {
	for i := 0; i < 400; i++ {
		r.Tick(0)
		if r.SceneRenderer().EnvironmentMap() != nil {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestRendererSelectsScenes(t *testing.T) {
	r, backend := newRenderer(t, Config{})
	assert.True(t, backend.initialized)

	a, b := &fakeScene{name: "Spheres"}, &fakeScene{name: "Crystal"}
	require.NoError(t, r.AddScene(a))
	require.NoError(t, r.AddScene(b))
	assert.Nil(t, r.CurrentScene())

	require.NoError(t, r.SelectScene(0))
	assert.Equal(t, []string{"init", "create"}, a.calls)
	assert.Equal(t, float32(2), a.applied.Number("exposure"))
	require.Len(t, r.SceneRenderer().Views(), 1)

	require.NoError(t, r.SelectSceneByName("crystal"))
	assert.Equal(t, []string{"init", "create", "destroy"}, a.calls)
	assert.Same(t, b, r.CurrentScene())
	require.Len(t, r.SceneRenderer().Views(), 1)
	assert.Same(t, b.view, r.SceneRenderer().Views()[0])

	assert.ErrorIs(t, r.SelectScene(2), core.ErrUnknownScene)
	assert.ErrorIs(t, r.SelectSceneByName("nope"), core.ErrUnknownScene)
	assert.Same(t, b, r.CurrentScene())
}

func TestRendererSetPropertiesClamps(t *testing.T) {
	r, _ := newRenderer(t, Config{})
	s := &fakeScene{name: "Spheres"}
	require.NoError(t, r.AddScene(s))
	require.Error(t, r.SetProperties(PropertyValues{"exposure": float32(1)}))

	require.NoError(t, r.SelectScene(0))
	require.NoError(t, r.SetProperties(PropertyValues{"exposure": float32(9)}))
	assert.Equal(t, float32(5), s.applied.Number("exposure"))
	assert.Equal(t, float32(5), r.Properties().Number("exposure"))
}

func TestRendererReloadKeepsProperties(t *testing.T) {
	r, _ := newRenderer(t, Config{})
	s := &fakeScene{name: "Spheres"}
	require.NoError(t, r.AddScene(s))
	require.NoError(t, r.SelectScene(0))
	require.NoError(t, r.SetProperties(PropertyValues{"exposure": float32(3)}))

	require.NoError(t, r.ReloadScene())
	assert.Equal(t, []string{"init", "create", "destroy", "dispose", "init", "create"}, s.calls)
	assert.Equal(t, float32(3), s.applied.Number("exposure"))
	assert.Len(t, r.SceneRenderer().Views(), 1)
}

func TestRendererTickAndDraw(t *testing.T) {
	r, backend := newRenderer(t, Config{})
	s := &fakeScene{name: "Spheres"}
	require.NoError(t, r.AddScene(s))
	require.NoError(t, r.SelectScene(0))

	r.Tick(0.25)
	r.Tick(0.25)
	assert.InDelta(t, 0.5, s.ticks, 1e-9)

	backend.rec.Reset()
	require.NoError(t, r.Draw(0.016))
	assert.Equal(t, 1, backend.begins)
	assert.Equal(t, 1, backend.ends)
	assert.NotZero(t, backend.rec.Count("DrawElements"))
}

func TestRendererResize(t *testing.T) {
	r, backend := newRenderer(t, Config{})
	require.NoError(t, r.Resize(0, 10))
	assert.Equal(t, [2]uint32{}, backend.resized)

	require.NoError(t, r.Resize(200, 100))
	assert.Equal(t, [2]uint32{200, 100}, backend.resized)
	assert.Equal(t, 200, r.MainViewport().W)
	assert.Equal(t, 100, r.MainViewport().H)
}

func TestRendererCameraInteraction(t *testing.T) {
	r, _ := newRenderer(t, Config{})
	s := &fakeScene{name: "Crystal"}
	require.NoError(t, r.AddScene(s))
	require.NoError(t, r.SelectScene(0))

	r.Camera().SetDragging(true)
	r.Camera().OnMouseMove(10, 0)
	assert.Equal(t, 1, s.interact)
}

func TestRendererLoadsDefaultEnvironment(t *testing.T) {
	r, backend := newRenderer(t, Config{
		Environments:       []string{"Room", "Field"},
		DefaultEnvironment: "Room",
	}, "Room", "Field")
	assert.Equal(t, "Room", r.CurrentEnvironment())
	assert.Equal(t, []string{"Room", "Field"}, r.Environments())

	require.True(t, waitForEnvironment(r))
	cube := r.SceneRenderer().EnvironmentMap()
	assert.Equal(t, 2, cube.FaceWidth())
	assert.NotNil(t, r.SceneRenderer().ReflectionMap())

	require.NoError(t, r.CycleEnvironment())
	assert.Equal(t, "Field", r.CurrentEnvironment())
	for i := 0; i < 400 && r.SceneRenderer().EnvironmentMap() == cube; i++ {
		r.Tick(0)
		time.Sleep(5 * time.Millisecond)
	}
	assert.NotSame(t, cube, r.SceneRenderer().EnvironmentMap())

	assert.ErrorIs(t, r.SelectEnvironment("Nowhere"), core.ErrUnknownEnvironment)
	assert.Equal(t, "Field", r.CurrentEnvironment())

	require.NoError(t, r.Shutdown())
	assert.True(t, backend.shutdown)
}

func TestRendererKeyBindings(t *testing.T) {
	r, _ := newRenderer(t, Config{})
	a, b := &fakeScene{name: "Spheres"}, &fakeScene{name: "Crystal"}
	require.NoError(t, r.AddScene(a))
	require.NoError(t, r.AddScene(b))

	press := func(key core.KeyCode) bool {
		return core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_KEY_PRESSED,
			Data: &core.KeyEvent{KeyCode: key},
		})
	}
	assert.True(t, press(core.KEY_2))
	assert.Same(t, b, r.CurrentScene())
	assert.True(t, press(core.KEY_1))
	assert.Same(t, a, r.CurrentScene())
	assert.True(t, press(core.KEY_R))
	assert.Equal(t, "dispose", a.calls[3])
	assert.False(t, press(core.KEY_Z))
}

func TestRendererForwardsAssetChanges(t *testing.T) {
	r, _ := newRenderer(t, Config{})
	var seen []string
	core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, func(ctx core.EventContext) bool {
		seen = append(seen, ctx.Data.(*core.AssetEvent).Path)
		return false
	})

	r.changes <- "shaders/" + shaders.FragmentFile("envmap")
	r.changes <- "materials/pbr.toml"
	r.Tick(0)
	assert.Equal(t, []string{"shaders/f-envmap.glsl", "materials/pbr.toml"}, seen)
}

func TestRendererShutdownDisposesEverything(t *testing.T) {
	r, backend := newRenderer(t, Config{})
	s := &fakeScene{name: "Spheres"}
	require.NoError(t, r.AddScene(s))
	require.NoError(t, r.SelectScene(0))

	require.NoError(t, r.Shutdown())
	assert.Equal(t, []string{"init", "create", "destroy", "dispose"}, s.calls)
	assert.Zero(t, r.ctx.Resources.Live())
	assert.True(t, backend.shutdown)
	assert.NotZero(t, backend.rec.Count("DeleteProgram"))
}

func TestPropertyValuesValidate(t *testing.T) {
	defs := []Property{
		NumberProperty("exposure", "Exposure", testCategory, 0.5, 5, 0.1, ""),
		BooleanProperty("fxaa", "FXAA", testCategory, ""),
		ColourProperty("colour", "Colour", testCategory, true, true, ""),
	}
	values := PropertyValues{"exposure": float32(0.1), "fxaa": true, "colour": mgl32.Vec4{1, 0, 0, 1}}
	require.NoError(t, values.Validate(defs))
	assert.Equal(t, float32(0.5), values.Number("exposure"))
	assert.True(t, values.Bool("fxaa"))
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, values.Colour("colour"))

	assert.Error(t, PropertyValues{"exposure": "high"}.Validate(defs))
}
