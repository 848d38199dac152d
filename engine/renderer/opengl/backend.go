package opengl

import (
	"errors"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

// Backend presents frames rendered through Device to the platform window.
type Backend struct {
	platform *platform.Platform
	device   *Device
}

func New(p *platform.Platform) *Backend {
	return &Backend{platform: p}
}

// Initialize loads GL for the context the platform made current.
func (b *Backend) Initialize(appName string, appWidth, appHeight uint32) error {
	if b.platform == nil || b.platform.Window == nil {
		return errors.New("opengl backend needs an open window")
	}
	d, err := NewDevice()
	if err != nil {
		return err
	}
	b.device = d
	core.LogInfo("%s: OpenGL backend ready at %dx%d", appName, appWidth, appHeight)
	return nil
}

func (b *Backend) Shutdown() error {
	b.device = nil
	return nil
}

func (b *Backend) Resized(width, height uint32) error {
	core.LogDebug("OpenGL backend resized to %dx%d", width, height)
	return nil
}

func (b *Backend) BeginFrame(deltaTime float64) error {
	return nil
}

func (b *Backend) EndFrame(deltaTime float64) error {
	b.platform.SwapBuffers()
	return nil
}

func (b *Backend) Device() gpu.Device {
	return b.device
}
