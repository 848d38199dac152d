package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestTransformRoundTrip(t *testing.T) {
	tr := TransformFromPositionRotationScale(
		mgl32.Vec3{1, -2, 3},
		mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{0, 1, 0}),
		mgl32.Vec3{2, 2, 2},
	)
	m := tr.LocalToWorld()
	identity := m.Mul4(tr.WorldToLocal())
	assert.True(t, identity.ApproxEqualThreshold(mgl32.Ident4(), 1e-5))

	var back Transform
	back.SetFromMatrix(m)
	assert.True(t, back.Position.ApproxEqualThreshold(tr.Position, 1e-5))
	assert.True(t, back.Scale.ApproxEqualThreshold(tr.Scale, 1e-5))
	assert.True(t, back.LocalToWorld().ApproxEqualThreshold(m, 1e-4))
}

func TestTransformAxes(t *testing.T) {
	tr := NewTransform()
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, tr.Forward())
	tr.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	assert.True(t, tr.Forward().ApproxEqualThreshold(mgl32.Vec3{1, 0, 0}, 1e-6))
	assert.True(t, tr.Up().ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, 1e-6))
}

func TestNormalFromMat4UniformScale(t *testing.T) {
	m := mgl32.Scale3D(2, 2, 2)
	n := NormalFromMat4(m)
	assert.True(t, n.ApproxEqualThreshold(mgl32.Ident3().Mul(0.5), 1e-6))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 3, Clamp(7, -1, 3))
	assert.Equal(t, float32(-12), Clamp(float32(-20), -12, 3))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}
