package buffers

import (
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
)

// VertexArrayBinding feeds one shader attribute from a buffer.
type VertexArrayBinding struct {
	Location   uint32
	Buffer     *ArrayBuffer
	Components int
}

// VertexArrayLayout is the full set of attribute streams and the index list
// a vertex array is built from. It is specific to one program, since
// attribute locations are resolved against it.
type VertexArrayLayout struct {
	Bindings      []VertexArrayBinding
	ElementBuffer *ArrayBuffer
}

type VertexArray struct {
	resource.Base

	handle gpu.Handle
	layout VertexArrayLayout
}

// NewVertexArray records layout into a new vertex array object. It leaves the
// new vertex array bound.
func NewVertexArray(ctx *gpu.Context, layout VertexArrayLayout) *VertexArray {
	va := &VertexArray{handle: ctx.CreateVertexArray(), layout: layout}
	va.Init(ctx.Resources, "VertexArray", func() {
		ctx.DeleteVertexArray(va.handle)
	})

	ctx.BindVertexArray(va.handle)
	for _, b := range layout.Bindings {
		ctx.VertexAttribPointer(b.Buffer.Handle(), b.Location, b.Components, b.Buffer.ElementType())
	}
	if layout.ElementBuffer != nil {
		ctx.BindElementBuffer(layout.ElementBuffer.Handle())
	}
	return va
}

func (va *VertexArray) Handle() gpu.Handle {
	return va.handle
}

func (va *VertexArray) Layout() VertexArrayLayout {
	return va.layout
}

// IndexType is the component type of the element buffer.
func (va *VertexArray) IndexType() gpu.ComponentType {
	if va.layout.ElementBuffer == nil {
		return gpu.Uint16
	}
	return va.layout.ElementBuffer.ElementType()
}
