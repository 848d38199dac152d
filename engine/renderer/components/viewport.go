package components

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

/** @brief A rectangle of the current render target, in pixels. */
type Viewport struct {
	X, Y, W, H int
}

func NewViewport(x, y, w, h int) Viewport {
	return Viewport{X: x, Y: y, W: w, H: h}
}

// Aspect is width over height; 1 for an empty viewport.
func (v Viewport) Aspect() float32 {
	if v.H == 0 {
		return 1
	}
	return float32(v.W) / float32(v.H)
}

func (v Viewport) Use(d gpu.Device) {
	d.Viewport(v.X, v.Y, v.W, v.H)
}

/**
 * @brief Clears the viewport area of the bound render target. A nil colour
 * leaves colour attachments untouched and a nil depth leaves depth alone.
 */
func (v Viewport) Clear(d gpu.Device, color *mgl32.Vec4, depth *float32) {
	var mask gpu.ClearMask
	if color != nil {
		d.ClearColor(color[0], color[1], color[2], color[3])
		mask |= gpu.ClearColorBit
	}
	if depth != nil {
		d.ClearDepth(*depth)
		mask |= gpu.ClearDepthBit
	}
	if mask == 0 {
		return
	}
	v.Use(d)
	d.Clear(mask)
}
