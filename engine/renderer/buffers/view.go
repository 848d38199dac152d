package buffers

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

// View reads and writes the fields of one element. Element may be changed
// at any time to point the view at another element.
type View struct {
	ubo     *UniformBuffer
	Element uint32
}

func (v *View) Buffer() *UniformBuffer {
	return v.ubo
}

// Bind binds the viewed element to a uniform block bind point.
func (v *View) Bind(bindPoint uint32) {
	v.ubo.BindElement(v.Element, bindPoint)
}

// Has reports whether the struct declares name.
func (v *View) Has(name string) bool {
	_, ok := v.ubo.layout.Field(name)
	return ok
}

func (v *View) field(name string, typ gpu.ComponentType, count int) *FieldLayout {
	f, err := v.lookup(name, typ, count)
	if err != nil {
		panic(err)
	}
	return f
}

func (v *View) lookup(name string, typ gpu.ComponentType, count int) (*FieldLayout, error) {
	f, ok := v.ubo.layout.Field(name)
	if !ok {
		return nil, fmt.Errorf("field %q: %w", name, core.ErrUnknownField)
	}
	if f.Type != typ || (count > 0 && f.Count != count) {
		return nil, fmt.Errorf("field %q is %s[%d], accessed as %s[%d]: %w", name, f.Type, f.Count, typ, count, core.ErrFieldType)
	}
	return f, nil
}

func (v *View) setFloats(f *FieldLayout, values []float32) {
	for i, x := range values {
		v.ubo.putFloat(v.Element, f, i, x)
	}
	v.ubo.markDirty(v.Element)
}

func (v *View) setInts(f *FieldLayout, values []int32) {
	for i, x := range values {
		v.ubo.putInt(v.Element, f, i, x)
	}
	v.ubo.markDirty(v.Element)
}

func (v *View) floats(f *FieldLayout, out []float32) {
	for i := range out {
		out[i] = v.ubo.floatAt(v.Element, f, i)
	}
}

func (v *View) SetFloat(name string, x float32) {
	v.setFloats(v.field(name, gpu.Float32, 1), []float32{x})
}

func (v *View) SetInt(name string, x int32) {
	v.setInts(v.field(name, gpu.Int32, 1), []int32{x})
}

func (v *View) SetVec2(name string, x mgl32.Vec2) {
	v.setFloats(v.field(name, gpu.Float32, 2), x[:])
}

func (v *View) SetVec3(name string, x mgl32.Vec3) {
	v.setFloats(v.field(name, gpu.Float32, 3), x[:])
}

func (v *View) SetVec4(name string, x mgl32.Vec4) {
	v.setFloats(v.field(name, gpu.Float32, 4), x[:])
}

func (v *View) SetMat3(name string, m mgl32.Mat3) {
	v.setFloats(v.field(name, gpu.Float32, 9), m[:])
}

func (v *View) SetMat4(name string, m mgl32.Mat4) {
	v.setFloats(v.field(name, gpu.Float32, 16), m[:])
}

// SetFloats writes all components of a float field of any width.
func (v *View) SetFloats(name string, values ...float32) {
	f := v.field(name, gpu.Float32, len(values))
	v.setFloats(f, values)
}

// SetInts writes all components of an integer field of any width.
func (v *View) SetInts(name string, values ...int32) {
	f := v.field(name, gpu.Int32, len(values))
	v.setInts(f, values)
}

func (v *View) Float(name string) float32 {
	return v.ubo.floatAt(v.Element, v.field(name, gpu.Float32, 1), 0)
}

func (v *View) Int(name string) int32 {
	return v.ubo.intAt(v.Element, v.field(name, gpu.Int32, 1), 0)
}

func (v *View) Vec2(name string) (out mgl32.Vec2) {
	v.floats(v.field(name, gpu.Float32, 2), out[:])
	return out
}

func (v *View) Vec3(name string) (out mgl32.Vec3) {
	v.floats(v.field(name, gpu.Float32, 3), out[:])
	return out
}

func (v *View) Vec4(name string) (out mgl32.Vec4) {
	v.floats(v.field(name, gpu.Float32, 4), out[:])
	return out
}

func (v *View) Mat3(name string) (out mgl32.Mat3) {
	v.floats(v.field(name, gpu.Float32, 9), out[:])
	return out
}

func (v *View) Mat4(name string) (out mgl32.Mat4) {
	v.floats(v.field(name, gpu.Float32, 16), out[:])
	return out
}

// Floats reads all components of a float field.
func (v *View) Floats(name string) []float32 {
	f := v.field(name, gpu.Float32, 0)
	out := make([]float32, f.Count)
	v.floats(f, out)
	return out
}

// Ints reads all components of an integer field.
func (v *View) Ints(name string) []int32 {
	f := v.field(name, gpu.Int32, 0)
	out := make([]int32, f.Count)
	for i := range out {
		out[i] = v.ubo.intAt(v.Element, f, i)
	}
	return out
}

/**
 * @brief Set writes a loosely typed value, such as one decoded from a
 * material file or supplied as an instance override. Numbers convert to the
 * field's component type; vectors and matrices may be mgl32 values or slices.
 * @return ErrUnknownField or ErrFieldType when the value does not fit.
 */
func (v *View) Set(name string, value any) error {
	f, ok := v.ubo.layout.Field(name)
	if !ok {
		return fmt.Errorf("field %q: %w", name, core.ErrUnknownField)
	}
	values, err := toFloats(value)
	if err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	if len(values) != f.Count {
		return fmt.Errorf("field %q has %d components, value has %d: %w", name, f.Count, len(values), core.ErrFieldType)
	}
	if f.Type == gpu.Int32 {
		ints := make([]int32, len(values))
		for i, x := range values {
			ints[i] = int32(x)
		}
		v.setInts(f, ints)
		return nil
	}
	fl := make([]float32, len(values))
	for i, x := range values {
		fl[i] = float32(x)
	}
	v.setFloats(f, fl)
	return nil
}

func toFloats(value any) ([]float64, error) {
	switch x := value.(type) {
	case float32:
		return []float64{float64(x)}, nil
	case float64:
		return []float64{x}, nil
	case int:
		return []float64{float64(x)}, nil
	case int32:
		return []float64{float64(x)}, nil
	case int64:
		return []float64{float64(x)}, nil
	case bool:
		if x {
			return []float64{1}, nil
		}
		return []float64{0}, nil
	case mgl32.Vec2:
		return widen(x[:]), nil
	case mgl32.Vec3:
		return widen(x[:]), nil
	case mgl32.Vec4:
		return widen(x[:]), nil
	case mgl32.Mat3:
		return widen(x[:]), nil
	case mgl32.Mat4:
		return widen(x[:]), nil
	case []float32:
		return widen(x), nil
	case []float64:
		return x, nil
	case []int32:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out, nil
	case []any:
		out := make([]float64, 0, len(x))
		for _, e := range x {
			n, err := toFloats(e)
			if err != nil {
				return nil, err
			}
			out = append(out, n...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T: %w", value, core.ErrFieldType)
	}
}

func widen(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, f := range x {
		out[i] = float64(f)
	}
	return out
}
