// Package meshes holds vertex and index data and uploads it for drawing.
package meshes

import (
	"fmt"
	"strconv"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/buffers"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
)

type VertexAttribute uint8

const (
	Position VertexAttribute = iota
	Normal
	TangentU
	TangentV
	TexCoord
)

var attributeNames = [...]string{"aPosition", "aNormal", "aTangentU", "aTangentV", "aTexCoord"}

// Name is the shader input the attribute is bound to.
func (a VertexAttribute) Name() string {
	if int(a) < len(attributeNames) {
		return attributeNames[a]
	}
	return "aUnknown"
}

// VertexList is one attribute stream. Channel distinguishes several
// streams of the same attribute, such as a second set of texture
// coordinates.
type VertexList struct {
	Attribute  VertexAttribute
	Channel    int
	Components int
	Data       []float32
}

type PrimitiveType uint8

const (
	Triangles PrimitiveType = iota
)

// Section is a separately drawable run of primitives in the index list.
type Section struct {
	Primitive      PrimitiveType
	PrimitiveCount int
	// ElementOffset is counted in indices, not bytes.
	ElementOffset int
}

// ElementCount is the number of indices the section draws.
func (s Section) ElementCount() int {
	return s.PrimitiveCount * 3
}

type RenderData struct {
	VertexBuffers []*buffers.ArrayBuffer
	ElementBuffer *buffers.ArrayBuffer
}

// AttribLocator resolves shader attribute names to locations.
type AttribLocator interface {
	AttribLocation(name string) int32
}

/**
 * @brief Mesh holds the vertex lists, the index list and the sections of a
 * model. GPU buffers are created once, by CreateRenderData, and owned by the
 * mesh.
 */
type Mesh struct {
	resource.Base

	ctx         *gpu.Context
	vertexLists []VertexList
	sections    []Section
	elements    []uint32
	vertexCount int
	renderData  *RenderData
}

func NewMesh(ctx *gpu.Context, vertexLists []VertexList, sections []Section, elements []uint32) *Mesh {
	m := &Mesh{ctx: ctx, vertexLists: vertexLists, sections: sections, elements: elements}
	for _, l := range vertexLists {
		if l.Components > 0 {
			m.vertexCount = max(m.vertexCount, len(l.Data)/l.Components)
		}
	}
	m.Init(ctx.Resources, "Mesh", nil)
	return m
}

func (m *Mesh) VertexLists() []VertexList {
	return m.vertexLists
}

func (m *Mesh) Sections() []Section {
	return m.sections
}

func (m *Mesh) Elements() []uint32 {
	return m.elements
}

func (m *Mesh) VertexCount() int {
	return m.vertexCount
}

// Section returns the section at index.
func (m *Mesh) Section(index int) (Section, error) {
	if index < 0 || index >= len(m.sections) {
		return Section{}, fmt.Errorf("section %d of %d: %w", index, len(m.sections), core.ErrSectionOutOfRange)
	}
	return m.sections[index], nil
}

// IndexType is 16 bit unless the mesh has more vertices than it can
// address.
func (m *Mesh) IndexType() gpu.ComponentType {
	if m.vertexCount > 0xffff {
		return gpu.Uint32
	}
	return gpu.Uint16
}

// RenderData is nil until CreateRenderData has run.
func (m *Mesh) RenderData() *RenderData {
	return m.renderData
}

// CreateRenderData uploads the vertex and index data. Later calls do
// nothing.
func (m *Mesh) CreateRenderData() {
	if m.renderData != nil {
		return
	}
	rd := &RenderData{}
	for _, l := range m.vertexLists {
		buf := buffers.NewArrayBuffer(m.ctx, l.Data, buffers.ArrayBufferOptions{Usage: gpu.StaticDraw, Target: gpu.ArrayBuffer})
		rd.VertexBuffers = append(rd.VertexBuffers, resource.Owned(&m.Base, buf))
	}
	opts := buffers.ArrayBufferOptions{Usage: gpu.StaticDraw, Target: gpu.ElementArrayBuffer}
	if m.IndexType() == gpu.Uint32 {
		rd.ElementBuffer = buffers.NewArrayBuffer(m.ctx, m.elements, opts)
	} else {
		short := make([]uint16, len(m.elements))
		for i, e := range m.elements {
			short[i] = uint16(e)
		}
		rd.ElementBuffer = buffers.NewArrayBuffer(m.ctx, short, opts)
	}
	m.Own(rd.ElementBuffer)
	m.renderData = rd
}

/**
 * @brief Matches the vertex lists against the inputs of a program. An
 * attribute is looked up as <name><channel> and, for channel 0, also as
 * <name>. Lists the program does not consume are left out.
 * @return ErrRenderDataMissing if CreateRenderData has not run.
 */
func (m *Mesh) VertexArrayLayout(program AttribLocator) (buffers.VertexArrayLayout, error) {
	if m.renderData == nil {
		return buffers.VertexArrayLayout{}, core.ErrRenderDataMissing
	}
	var bindings []buffers.VertexArrayBinding
	for i, l := range m.vertexLists {
		name := l.Attribute.Name()
		loc := program.AttribLocation(name + strconv.Itoa(l.Channel))
		if loc < 0 && l.Channel == 0 {
			loc = program.AttribLocation(name)
		}
		if loc < 0 {
			continue
		}
		bindings = append(bindings, buffers.VertexArrayBinding{
			Location:   uint32(loc),
			Buffer:     m.renderData.VertexBuffers[i],
			Components: l.Components,
		})
	}
	return buffers.VertexArrayLayout{Bindings: bindings, ElementBuffer: m.renderData.ElementBuffer}, nil
}
