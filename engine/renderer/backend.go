package renderer

import "github.com/spaghettifunk/lumen/engine/renderer/gpu"

/**
 * @brief The surface a frame is presented to. The backend owns the graphics
 * context and hands out the device every GPU object is created on.
 */
type RendererBackend interface {
	Initialize(appName string, appWidth, appHeight uint32) error
	Shutdown() error
	Resized(width, height uint32) error
	BeginFrame(deltaTime float64) error
	EndFrame(deltaTime float64) error
	/** @brief Valid after Initialize. */
	Device() gpu.Device
}

type RendererType uint8

const (
	OpenGL RendererType = iota
)
