package testbed

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32

	keyHandler uuid.UUID
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
			Scenes: []renderer.Scene{
				NewPBRSpheresScene(),
				NewCrystalScene(),
			},
		},
	}

	tg.FnBoot = tg.Boot
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Boot() error {
	core.LogInfo("booting testbed with %d assets under %s", g.Assets.Len(), g.Assets.Root())
	return nil
}

func (g *TestGame) Initialize() error {
	state := g.State.(*gameState)
	state.keyHandler = core.EventRegister(core.EVENT_CODE_KEY_PRESSED, g.gameOnKey)
	core.LogInfo("keys: 1/2 switch scene, E cycles environment, R reloads the scene, +/- change exposure, F1 prints this help")
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	return nil
}

func (g *TestGame) Render(deltaTime float64) error {
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	if state.keyHandler != uuid.Nil {
		core.EventUnregister(core.EVENT_CODE_KEY_PRESSED, state.keyHandler)
		state.keyHandler = uuid.Nil
	}
	return nil
}

// stepExposure moves the exposure of the current scene by steps increments.
func (g *TestGame) stepExposure(steps float32) {
	if g.Renderer == nil || g.Renderer.CurrentScene() == nil {
		return
	}
	values := g.Renderer.Properties()
	exposure := values.Number(exposureProperty.Key) + steps*exposureProperty.Step
	values[exposureProperty.Key] = math.Clamp(exposure, exposureProperty.Min, exposureProperty.Max)
	if err := g.Renderer.SetProperties(values); err != nil {
		core.LogError(err.Error())
		return
	}
	core.LogInfo("exposure %.1f", values.Number(exposureProperty.Key))
}

func (g *TestGame) gameOnKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		return false
	}
	switch ke.KeyCode {
	case core.KEY_PLUS:
		g.stepExposure(1)
	case core.KEY_MINUS:
		g.stepExposure(-1)
	case core.KEY_F1:
		if g.Renderer != nil {
			if s := g.Renderer.CurrentScene(); s != nil {
				d := s.Description()
				core.LogInfo("%s: %s", d.Name, d.Description)
			}
			core.LogInfo("environment %q of %v", g.Renderer.CurrentEnvironment(), g.Renderer.Environments())
		}
	default:
		return false
	}
	return true
}
