package engine

import (
	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/renderer"
)

/**
 * @brief Game is what the engine drives. The engine fills in Assets and
 * Renderer before FnBoot and FnInitialize run.
 */
type Game struct {
	ApplicationConfig *ApplicationConfig
	Assets            *assets.AssetManager
	Renderer          *renderer.Renderer
	State             interface{}

	// Scenes are registered with the renderer in order; keys 1 and 2 select
	// the first two.
	Scenes []renderer.Scene

	FnBoot       Boot
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Boot func() error
type Initialize func() error
type Update func(deltaTime float64) error
type Render func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
