package math

import "github.com/go-gl/mathgl/mgl32"

var (
	rightVec   = mgl32.Vec3{1, 0, 0}
	upVec      = mgl32.Vec3{0, 1, 0}
	forwardVec = mgl32.Vec3{0, 0, 1}
)

// Transform is a flat placement: a translation, a rotation and a scale.
// There is no parent chain.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() *Transform {
	return &Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func TransformFromPositionRotationScale(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) *Transform {
	return &Transform{Position: position, Rotation: rotation, Scale: scale}
}

// LocalToWorld builds translation * rotation * scale.
func (t *Transform) LocalToWorld() mgl32.Mat4 {
	translation := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return translation.Mul4(t.Rotation.Normalize().Mat4()).Mul4(scale)
}

func (t *Transform) WorldToLocal() mgl32.Mat4 {
	return t.LocalToWorld().Inv()
}

// SetFromMatrix decomposes an affine matrix without shear.
func (t *Transform) SetFromMatrix(m mgl32.Mat4) {
	t.Position = m.Col(3).Vec3()
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	t.Scale = mgl32.Vec3{sx, sy, sz}

	var rot mgl32.Mat4
	for i, s := range []float32{sx, sy, sz} {
		col := m.Col(i).Vec3()
		if s != 0 {
			col = col.Mul(1 / s)
		}
		rot.SetCol(i, col.Vec4(0))
	}
	rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
	t.Rotation = mgl32.Mat4ToQuat(rot).Normalize()
}

func (t *Transform) SetFrom(other *Transform) {
	t.Position = other.Position
	t.Rotation = other.Rotation
	t.Scale = other.Scale
}

func (t *Transform) Right() mgl32.Vec3 {
	return t.Rotation.Rotate(rightVec)
}

func (t *Transform) Up() mgl32.Vec3 {
	return t.Rotation.Rotate(upVec)
}

// Forward points down +Z.
func (t *Transform) Forward() mgl32.Vec3 {
	return t.Rotation.Rotate(forwardVec)
}
