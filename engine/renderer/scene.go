package renderer

import (
	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/scene"
	"github.com/spaghettifunk/lumen/engine/renderer/shaders"
	"github.com/spaghettifunk/lumen/engine/renderer/state"
)

// SceneContext is what a scene may use to build and register content.
type SceneContext struct {
	GPU           *gpu.Context
	State         *state.RendererState
	Shaders       *shaders.Manager
	Assets        *assets.AssetManager
	SceneRenderer *scene.Renderer
	Camera        *components.Camera
	MainViewport  *components.Viewport
}

type SceneDescription struct {
	Name        string
	Description string
}

/**
 * @brief Scene is a piece of demo content. Init prepares resources once,
 * Create registers views and objects with the scene renderer and Destroy
 * drops what Create made. The scene renderer is already reset when Destroy
 * runs, so registered views and objects need no removal. Dispose releases
 * what Init prepared.
 */
type Scene interface {
	Description() SceneDescription
	Init(ctx *SceneContext) error
	Create() error
	Destroy()
	Dispose()

	/** @brief dt is in seconds. */
	Tick(dt float64)
	/** @brief Called when the user moves the camera. */
	UserInteract()

	PropertyDefinitions() []Property
	DefaultProperties() PropertyValues
	ApplyProperties(values PropertyValues)
}
