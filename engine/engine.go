package engine

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/opengl"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	width        uint32
	height       uint32
	clock        *core.Clock
	metrics      *core.Metrics
	lastTime     float64
	stop         atomic.Bool
}

func New(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultApplicationConfig()
	}
	config := g.ApplicationConfig
	core.SetLogLevel(config.LogLevel)

	am, err := assets.NewAssetManager(config.Assets.Root)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		platform:     platform.New(),
		assetManager: am,
		isRunning:    true,
		isSuspended:  false,
		width:        config.Window.Width,
		height:       config.Window.Height,
	}, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// Stop asks the main loop to return after the current frame. Safe to call
// from any goroutine.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

func (e *Engine) Initialize() error {
	config := e.gameInstance.ApplicationConfig
	e.currentStage = EngineStageBooting

	// initialize input
	if err := core.InputInitialize(); err != nil {
		return err
	}

	// initialize events
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	// register some events
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	if err := e.platform.Startup(config.Window.Name,
		config.Window.X,
		config.Window.Y,
		config.Window.Width,
		config.Window.Height,
		config.Window.VSync); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(config.Assets.Watch); err != nil {
		return err
	}
	e.gameInstance.Assets = e.assetManager

	if e.gameInstance.FnBoot != nil {
		if err := e.gameInstance.FnBoot(); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageBootComplete
	e.currentStage = EngineStageInitializing

	// the framebuffer can differ from the window size on high density displays
	e.width, e.height = e.platform.FramebufferSize()
	r, err := renderer.New(opengl.New(e.platform), e.assetManager, renderer.Config{
		Name:                 config.Window.Name,
		Width:                e.width,
		Height:               e.height,
		Environments:         config.Renderer.Environments,
		DefaultEnvironment:   config.Renderer.DefaultEnvironment,
		EnvironmentQueueSize: config.Renderer.EnvironmentQueueSize,
		Workers:              config.Jobs.Workers,
		JobQueueSize:         config.Jobs.QueueSize,
		Camera:               config.Camera,
	})
	if err != nil {
		return err
	}
	e.renderer = r
	e.gameInstance.Renderer = r

	for _, s := range e.gameInstance.Scenes {
		if err := r.AddScene(s); err != nil {
			return err
		}
	}
	if len(e.gameInstance.Scenes) > 0 {
		if config.DefaultScene != "" {
			err = r.SelectSceneByName(config.DefaultScene)
		} else {
			err = r.SelectScene(0)
		}
		if err != nil {
			return err
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}

	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()

	e.lastTime = e.clock.Elapsed()

	var targetFrameSeconds float64
	if fps := e.gameInstance.ApplicationConfig.Renderer.TargetFPS; fps > 0 {
		targetFrameSeconds = 1.0 / fps
	}
	var lastReport float64

	for e.isRunning && !e.stop.Load() {
		if !e.platform.PumpMessages() {
			e.isRunning = false
		}

		if !e.isSuspended {
			e.clock.Update()

			var currentTime float64 = e.clock.Elapsed()
			var delta float64 = (currentTime - e.lastTime)
			var frameStartTime float64 = platform.GetAbsoluteTime()

			e.renderer.Tick(delta)

			if e.gameInstance.FnUpdate != nil {
				if err := e.gameInstance.FnUpdate(delta); err != nil {
					core.LogFatal("Game update failed, shutting down: %s", err)
					e.isRunning = false
					break
				}
			}

			if err := e.renderer.Draw(delta); err != nil {
				core.LogFatal("Frame presentation failed, shutting down: %s", err)
				e.isRunning = false
				break
			}

			if e.gameInstance.FnRender != nil {
				if err := e.gameInstance.FnRender(delta); err != nil {
					core.LogFatal("Game render failed, shutting down: %s", err)
					e.isRunning = false
					break
				}
			}

			var frameEndTime float64 = platform.GetAbsoluteTime()
			var frameElapsedTime float64 = frameEndTime - frameStartTime
			e.metrics.Update(frameElapsedTime)

			if remainingSeconds := targetFrameSeconds - frameElapsedTime; targetFrameSeconds > 0 && remainingSeconds > 0 {
				if remainingMS := remainingSeconds * 1000; remainingMS > 1 {
					e.platform.Sleep(remainingMS - 1)
				}
			}

			if currentTime-lastReport >= 5 {
				core.LogDebug("%.1f fps, %.2f ms per frame", e.metrics.FPS(), e.metrics.FrameTime()*1000)
				lastReport = currentTime
			}

			core.InputUpdate(delta)

			e.lastTime = currentTime
		}
	}

	return nil
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.renderer != nil {
		errs = append(errs, e.renderer.Shutdown())
	}
	e.assetManager.Shutdown()
	errs = append(errs, core.EventSystemShutdown(), core.InputShutdown(), e.platform.Shutdown())
	return errors.Join(errs...)
}

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_APPLICATION_QUIT,
		})
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	width := uint32(se.WindowWidth)
	height := uint32(se.WindowHeight)
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.renderer != nil {
		if err := e.renderer.Resize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	return true
}
