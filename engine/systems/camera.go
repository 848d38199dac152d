package systems

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
)

/** @brief The orbit camera configuration. Angles are in degrees. */
type OrbitCameraConfig struct {
	SensitivityX  float32 `toml:"sensitivity_x"`
	SensitivityY  float32 `toml:"sensitivity_y"`
	BaseFov       float32 `toml:"base_fov"`
	ZoomStep      float32 `toml:"zoom_step"`
	MinZoom       float32 `toml:"min_zoom"`
	MaxZoom       float32 `toml:"max_zoom"`
	OrbitDistance float32 `toml:"orbit_distance"`
	Near          float32 `toml:"near"`
	Far           float32 `toml:"far"`
}

func DefaultOrbitCameraConfig() OrbitCameraConfig {
	return OrbitCameraConfig{
		SensitivityX:  0.5,
		SensitivityY:  0.5,
		BaseFov:       75,
		ZoomStep:      5,
		MinZoom:       -12,
		MaxZoom:       3,
		OrbitDistance: 4,
		Near:          1.0 / 16.0,
		Far:           16,
	}
}

const maxPitch = 89

/**
 * @brief OrbitCamera turns drag and wheel input into a perspective camera
 * that circles the origin at a fixed distance. Zoom narrows or widens the
 * field of view in whole steps.
 */
type OrbitCamera struct {
	config OrbitCameraConfig
	camera *components.Camera

	yaw, pitch float32
	zoom       float32
	dragging   bool

	// OnInteract runs after every drag that moved the camera.
	OnInteract func()
}

func NewOrbitCamera(config OrbitCameraConfig, viewport components.Viewport) *OrbitCamera {
	oc := &OrbitCamera{config: config}
	oc.camera = components.NewCamera(components.CameraView{
		Projection:  components.Perspective,
		Scale:       1,
		VerticalFov: mgl32.DegToRad(config.BaseFov),
		NearZ:       config.Near,
		FarZ:        config.Far,
	}, viewport)
	oc.updateTransform()
	return oc
}

func (oc *OrbitCamera) Camera() *components.Camera {
	return oc.camera
}

func (oc *OrbitCamera) Yaw() float32 {
	return oc.yaw
}

func (oc *OrbitCamera) Pitch() float32 {
	return oc.pitch
}

func (oc *OrbitCamera) Zoom() float32 {
	return oc.zoom
}

func (oc *OrbitCamera) Dragging() bool {
	return oc.dragging
}

func (oc *OrbitCamera) SetDragging(dragging bool) {
	oc.dragging = dragging
}

// OnMouseMove orbits by the cursor delta while dragging.
func (oc *OrbitCamera) OnMouseMove(dx, dy float32) {
	if !oc.dragging || (dx == 0 && dy == 0) {
		return
	}
	oc.yaw += dx * oc.config.SensitivityX
	oc.pitch = math.Clamp(oc.pitch+dy*oc.config.SensitivityY, -maxPitch, maxPitch)
	oc.updateTransform()
	if oc.OnInteract != nil {
		oc.OnInteract()
	}
}

// OnMouseWheel moves the zoom one step per event, whatever the magnitude.
func (oc *OrbitCamera) OnMouseWheel(delta float32) {
	step := float32(0)
	switch {
	case delta > 0:
		step = 1
	case delta < 0:
		step = -1
	}
	oc.zoom = math.Clamp(oc.zoom+step, oc.config.MinZoom, oc.config.MaxZoom)
	view := oc.camera.View()
	view.VerticalFov = mgl32.DegToRad(oc.config.BaseFov + oc.zoom*oc.config.ZoomStep)
	oc.camera.SetView(view)
}

// SetViewport follows the window size.
func (oc *OrbitCamera) SetViewport(viewport components.Viewport) {
	oc.camera.SetViewport(viewport)
}

func (oc *OrbitCamera) updateTransform() {
	t := oc.camera.Transform
	t.Rotation = mgl32.QuatRotate(mgl32.DegToRad(oc.yaw), mgl32.Vec3{0, 1, 0}).
		Mul(mgl32.QuatRotate(mgl32.DegToRad(oc.pitch), mgl32.Vec3{1, 0, 0}))
	// Look at origin
	t.Position = t.Forward().Mul(-oc.config.OrbitDistance)
}

// registerInput wires the camera to the core input events.
func (oc *OrbitCamera) registerInput() func() {
	pressed := core.EventRegister(core.EVENT_CODE_BUTTON_PRESSED, func(ctx core.EventContext) bool {
		if e, ok := ctx.Data.(*core.MouseEvent); ok && e.Button == core.BUTTON_LEFT {
			oc.SetDragging(true)
		}
		return false
	})
	released := core.EventRegister(core.EVENT_CODE_BUTTON_RELEASED, func(ctx core.EventContext) bool {
		if e, ok := ctx.Data.(*core.MouseEvent); ok && e.Button == core.BUTTON_LEFT {
			oc.SetDragging(false)
		}
		return false
	})
	moved := core.EventRegister(core.EVENT_CODE_MOUSE_MOVED, func(ctx core.EventContext) bool {
		if e, ok := ctx.Data.(*core.MouseEvent); ok {
			oc.OnMouseMove(float32(e.DeltaX), float32(e.DeltaY))
		}
		return false
	})
	wheel := core.EventRegister(core.EVENT_CODE_MOUSE_WHEEL, func(ctx core.EventContext) bool {
		if e, ok := ctx.Data.(*core.MouseEvent); ok {
			oc.OnMouseWheel(float32(e.Scroll))
		}
		return false
	})
	return func() {
		core.EventUnregister(core.EVENT_CODE_BUTTON_PRESSED, pressed)
		core.EventUnregister(core.EVENT_CODE_BUTTON_RELEASED, released)
		core.EventUnregister(core.EVENT_CODE_MOUSE_MOVED, moved)
		core.EventUnregister(core.EVENT_CODE_MOUSE_WHEEL, wheel)
	}
}
