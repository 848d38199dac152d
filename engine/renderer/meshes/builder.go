package meshes

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

const tangentEpsilon = 1e-8

type builderList struct {
	attribute  VertexAttribute
	channel    int
	components int
	data       []float32
}

type builderSection struct {
	primitive PrimitiveType
	count     int
	elements  []uint32
}

// Builder assembles a mesh vertex by vertex. Attribute and section indices
// are the values returned by AddVertexAttribute and AddSection.
type Builder struct {
	vertexCount int
	lists       []builderList
	sections    []builderSection
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) AddVertexAttribute(attribute VertexAttribute, channel, components int) int {
	b.lists = append(b.lists, builderList{attribute: attribute, channel: channel, components: components})
	return len(b.lists) - 1
}

func (b *Builder) AddSection(primitive PrimitiveType) int {
	b.sections = append(b.sections, builderSection{primitive: primitive})
	return len(b.sections) - 1
}

func (b *Builder) AppendVertex() int {
	b.vertexCount++
	return b.vertexCount - 1
}

func (b *Builder) VertexCount() int {
	return b.vertexCount
}

// SetVertexAttribute writes up to the attribute's component count of
// values.
func (b *Builder) SetVertexAttribute(vertex, attribute int, values ...float32) {
	l := &b.lists[attribute]
	base := vertex * l.components
	if need := base + l.components; len(l.data) < need {
		l.data = append(l.data, make([]float32, need-len(l.data))...)
	}
	copy(l.data[base:base+l.components], values)
}

// VertexAttribute reads the components of one attribute of one vertex.
// Unwritten components read as zero.
func (b *Builder) VertexAttribute(vertex, attribute int) []float32 {
	l := &b.lists[attribute]
	out := make([]float32, l.components)
	base := vertex * l.components
	if base < len(l.data) {
		copy(out, l.data[base:min(base+l.components, len(l.data))])
	}
	return out
}

func (b *Builder) vec3(vertex, attribute int) mgl32.Vec3 {
	var v mgl32.Vec3
	copy(v[:], b.VertexAttribute(vertex, attribute))
	return v
}

func (b *Builder) vec2(vertex, attribute int) mgl32.Vec2 {
	var v mgl32.Vec2
	copy(v[:], b.VertexAttribute(vertex, attribute))
	return v
}

func (b *Builder) AppendPrimitive(section int, indices ...int) error {
	s := &b.sections[section]
	if s.primitive != Triangles {
		return fmt.Errorf("unsupported primitive type %d", s.primitive)
	}
	if len(indices) != 3 {
		return fmt.Errorf("triangle needs 3 indices, got %d", len(indices))
	}
	for _, i := range indices {
		s.elements = append(s.elements, uint32(i))
	}
	s.count++
	return nil
}

/**
 * @brief Adds TangentU and TangentV attributes computed from the texture
 * coordinate gradients of each triangle. Each corner of a triangle writes
 * its own vertex, so shared vertices take the value of the last triangle
 * that touches them.
 */
func (b *Builder) GenerateTangents(position, normal, texCoord int) {
	tu := b.AddVertexAttribute(TangentU, 0, 3)
	tv := b.AddVertexAttribute(TangentV, 0, 3)
	for _, s := range b.sections {
		if s.primitive != Triangles {
			continue
		}
		for t := 0; t < s.count; t++ {
			idx := [3]int{int(s.elements[t*3]), int(s.elements[t*3+1]), int(s.elements[t*3+2])}
			var p [3]mgl32.Vec3
			var n [3]mgl32.Vec3
			var uv [3]mgl32.Vec2
			for c, i := range idx {
				p[c] = b.vec3(i, position)
				n[c] = b.vec3(i, normal)
				uv[c] = b.vec2(i, texCoord)
			}
			for c := 0; c < 3; c++ {
				a, b1, b2 := c, (c+1)%3, (c+2)%3
				u, v := tangentFrame(p[a], p[b1], p[b2], n[a], uv[a], uv[b1], uv[b2])
				b.SetVertexAttribute(idx[c], tu, u[:]...)
				b.SetVertexAttribute(idx[c], tv, v[:]...)
			}
		}
	}
}

func tangentFrame(v0, v1, v2, n mgl32.Vec3, uv0, uv1, uv2 mgl32.Vec2) (mgl32.Vec3, mgl32.Vec3) {
	e1, e2 := v1.Sub(v0), v2.Sub(v0)
	d1, d2 := uv1.Sub(uv0), uv2.Sub(uv0)
	det := d1.X()*d2.Y() - d1.Y()*d2.X()
	if det > -tangentEpsilon && det < tangentEpsilon {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}
	f := 1 / det
	tangent := e1.Mul(d2.Y()).Sub(e2.Mul(d1.Y())).Mul(f)
	bitangent := e2.Mul(d1.X()).Sub(e1.Mul(d2.X())).Mul(f)

	u := tangent.Sub(n.Mul(n.Dot(tangent)))
	if l := u.Len(); l > tangentEpsilon {
		u = u.Mul(1 / l)
	} else {
		u = mgl32.Vec3{}
	}
	v := n.Cross(u)
	if l := v.Len(); l > tangentEpsilon {
		v = v.Mul(1 / l)
	} else {
		v = mgl32.Vec3{}
	}
	if v.Dot(bitangent) < 0 {
		v = v.Mul(-1)
	}
	return u, v
}

// Build concatenates the sections into one index list and creates the mesh.
func (b *Builder) Build(ctx *gpu.Context) *Mesh {
	lists := make([]VertexList, len(b.lists))
	for i, l := range b.lists {
		data := l.data
		if need := b.vertexCount * l.components; len(data) < need {
			data = append(data, make([]float32, need-len(data))...)
		}
		lists[i] = VertexList{Attribute: l.attribute, Channel: l.channel, Components: l.components, Data: data}
	}
	var elements []uint32
	sections := make([]Section, len(b.sections))
	for i, s := range b.sections {
		sections[i] = Section{Primitive: s.primitive, PrimitiveCount: s.count, ElementOffset: len(elements)}
		elements = append(elements, s.elements...)
	}
	return NewMesh(ctx, lists, sections, elements)
}
