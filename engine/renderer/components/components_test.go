package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu/gputest"
)

func TestViewportClear(t *testing.T) {
	rec := gputest.NewRecorder()
	vp := NewViewport(0, 0, 640, 480)

	vp.Clear(rec, nil, nil)
	assert.Empty(t, rec.Calls)

	depth := float32(1)
	vp.Clear(rec, &mgl32.Vec4{0, 0, 0, 1}, &depth)
	require.Len(t, rec.Calls, 4)
	assert.Equal(t, "ClearColor", rec.Calls[0].Name)
	assert.Equal(t, "ClearDepth", rec.Calls[1].Name)
	assert.Equal(t, []any{0, 0, 640, 480}, rec.Calls[2].Args)
	assert.Equal(t, []any{gpu.ClearColorBit | gpu.ClearDepthBit}, rec.Calls[3].Args)
}

func TestPerspectiveLooksDownPositiveZ(t *testing.T) {
	cam := NewCamera(CameraView{Projection: Perspective, VerticalFov: mgl32.DegToRad(75), NearZ: 1.0 / 16, FarZ: 16},
		NewViewport(0, 0, 800, 600))

	clip := cam.ProjectionView().Mul4x1(mgl32.Vec4{0, 0, 4, 1})
	ndcZ := clip.Z() / clip.W()
	assert.Greater(t, clip.W(), float32(0))
	assert.True(t, ndcZ > -1 && ndcZ < 1)

	behind := cam.ProjectionView().Mul4x1(mgl32.Vec4{0, 0, -4, 1})
	assert.Less(t, behind.W(), float32(0))
}

func TestProjectionRebuildsAfterViewportChange(t *testing.T) {
	cam := NewCamera(CameraView{Projection: Orthographic, Scale: 1, NearZ: -1, FarZ: 1}, NewViewport(0, 0, 2, 2))
	assert.InDelta(t, 1, cam.Projection().At(0, 0), 1e-6)

	cam.SetViewport(NewViewport(0, 0, 4, 2))
	assert.InDelta(t, 0.5, cam.Projection().At(0, 0), 1e-6)
}

func TestProjectionViewUsesTransform(t *testing.T) {
	cam := NewCamera(CameraView{Projection: Orthographic, Scale: 1, NearZ: -10, FarZ: 10}, NewViewport(0, 0, 2, 2))
	cam.Transform.Position = mgl32.Vec3{1, 0, 0}

	clip := cam.ProjectionView().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 0, clip.X(), 1e-6)
}
