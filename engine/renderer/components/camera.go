package components

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/math"
)

type ProjectionType uint8

const (
	Orthographic ProjectionType = iota
	Perspective
)

/**
 * @brief The lens of a camera. Scale is used by orthographic projections
 * and VerticalFov, in radians, by perspective ones.
 */
type CameraView struct {
	Projection  ProjectionType
	Scale       float32
	VerticalFov float32
	NearZ       float32
	FarZ        float32
}

/**
 * @brief Represents a camera in the world. It has a transform and a lens but
 * holds no GPU state.
 */
type Camera struct {
	/** @brief World placement of the camera. Forward is +Z. */
	Transform *math.Transform

	view     CameraView
	viewport Viewport
	/** @brief Internal flag used to determine when the projection needs to be rebuilt. */
	isDirty    bool
	projection mgl32.Mat4
}

func NewCamera(view CameraView, viewport Viewport) *Camera {
	c := &Camera{Transform: math.NewTransform(), view: view, viewport: viewport}
	c.rebuildProjection()
	return c
}

func (c *Camera) View() CameraView {
	return c.view
}

func (c *Camera) SetView(view CameraView) {
	c.view = view
	c.isDirty = true
}

func (c *Camera) Viewport() Viewport {
	return c.viewport
}

func (c *Camera) SetViewport(viewport Viewport) {
	c.viewport = viewport
	c.isDirty = true
}

func (c *Camera) rebuildProjection() {
	if c.view.Projection == Orthographic {
		hw := float32(c.viewport.W) * 0.5 * c.view.Scale
		hh := float32(c.viewport.H) * 0.5 * c.view.Scale
		c.projection = mgl32.Ortho(-hw, hw, -hh, hh, c.view.NearZ, c.view.FarZ)
	} else {
		base := mgl32.Perspective(c.view.VerticalFov, c.viewport.Aspect(), c.view.NearZ, c.view.FarZ)
		// the camera looks down +Z
		c.projection = base.Mul4(mgl32.Scale3D(1, 1, -1))
	}
	c.isDirty = false
}

// Projection maps view space to clip space.
func (c *Camera) Projection() mgl32.Mat4 {
	if c.isDirty {
		c.rebuildProjection()
	}
	return c.projection
}

// ProjectionView maps world space to clip space.
func (c *Camera) ProjectionView() mgl32.Mat4 {
	return c.Projection().Mul4(c.Transform.WorldToLocal())
}
