package buffers

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

// Field declares one member of a packed struct. Count is 1, 2, 3 or 4 for
// scalars and vectors, 9 for mat3 and 16 for mat4.
type Field struct {
	Name          string
	Type          gpu.ComponentType
	Count         int
	DefaultFloats []float32
	DefaultInts   []int32
}

// Float declares a float field with an optional default.
func Float(name string, count int, def ...float32) Field {
	return Field{Name: name, Type: gpu.Float32, Count: count, DefaultFloats: def}
}

// Int declares a 32 bit integer field with an optional default.
func Int(name string, count int, def ...int32) Field {
	return Field{Name: name, Type: gpu.Int32, Count: count, DefaultInts: def}
}

func (f Field) hasDefault() bool {
	return len(f.DefaultFloats) > 0 || len(f.DefaultInts) > 0
}

// FieldLayout is a field placed inside the element.
type FieldLayout struct {
	Field
	Offset     int
	Size       int
	RowSize    int
	RowPadding int
}

// ComponentOffset is the byte offset of component i relative to the start of
// the element. Rows are padded to four components.
func (f *FieldLayout) ComponentOffset(i int) int {
	row, col := i/f.RowSize, i%f.RowSize
	return f.Offset + (row*(f.RowSize+f.RowPadding)+col)*4
}

// Layout is the std140 placement of a struct.
type Layout struct {
	Fields []FieldLayout
	// Stride is the element size rounded up to the uniform buffer offset
	// alignment.
	Stride int
	byName map[string]int
}

func alignUp(v, alignment int) int {
	if alignment <= 1 {
		return v
	}
	return (v + alignment - 1) / alignment * alignment
}

func rowSize(count int) int {
	switch count {
	case 9:
		return 3
	case 16:
		return 4
	default:
		return count
	}
}

func baseAlignment(paddedCount int) int {
	switch {
	case paddedCount == 3:
		return 4
	case paddedCount <= 4:
		return paddedCount
	default:
		return 4
	}
}

/**
 * @brief Computes the byte placement of fields. Vectors align to their
 * component count (vec3 to 4), matrices to 4, and each matrix row occupies a
 * full 16 byte row.
 * @param fields The ordered fields of the struct.
 * @param minAlignment The uniform buffer offset alignment of the device.
 * @return The layout, or ErrInvalidField for an unsupported field.
 */
func ComputeLayout(fields []Field, minAlignment int) (*Layout, error) {
	l := &Layout{byName: make(map[string]int, len(fields))}
	offset := 0
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field without a name: %w", core.ErrInvalidField)
		}
		if _, dup := l.byName[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q: %w", f.Name, core.ErrInvalidField)
		}
		if f.Type != gpu.Float32 && f.Type != gpu.Int32 {
			return nil, fmt.Errorf("field %q has component type %s: %w", f.Name, f.Type, core.ErrInvalidField)
		}
		switch f.Count {
		case 1, 2, 3, 4, 9, 16:
		default:
			return nil, fmt.Errorf("field %q has %d components: %w", f.Name, f.Count, core.ErrInvalidField)
		}
		if n := len(f.DefaultFloats) + len(f.DefaultInts); n != 0 && n != f.Count {
			return nil, fmt.Errorf("field %q default has %d components, want %d: %w", f.Name, n, f.Count, core.ErrInvalidField)
		}
		if (f.Type == gpu.Float32 && len(f.DefaultInts) > 0) || (f.Type == gpu.Int32 && len(f.DefaultFloats) > 0) {
			return nil, fmt.Errorf("field %q default has the wrong type: %w", f.Name, core.ErrInvalidField)
		}

		rs := rowSize(f.Count)
		rows := (f.Count + rs - 1) / rs
		size := f.Count * 4
		if rows > 1 {
			size = rows * 4 * 4
		}
		offset = alignUp(offset, baseAlignment(rows*rs)*4)
		l.byName[f.Name] = len(l.Fields)
		l.Fields = append(l.Fields, FieldLayout{
			Field:      f,
			Offset:     offset,
			Size:       size,
			RowSize:    rs,
			RowPadding: alignUp(rs, 4) - rs,
		})
		offset += size
	}
	if len(l.Fields) > 0 {
		l.Stride = alignUp(offset, minAlignment)
	}
	return l, nil
}

// Field looks a field up by name.
func (l *Layout) Field(name string) (*FieldLayout, bool) {
	i, ok := l.byName[name]
	if !ok {
		return nil, false
	}
	return &l.Fields[i], true
}
