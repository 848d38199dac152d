package buffers

import (
	"encoding/binary"
	"math"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
)

const initialCapacity = 16

/**
 * @brief UniformBuffer is a GPU uniform buffer holding an array of fixed
 * stride elements laid out by a struct of fields. It hands out element
 * indices from a free list and uploads only what changed on Flush.
 */
type UniformBuffer struct {
	resource.Base

	ctx    *gpu.Context
	handle gpu.Handle
	layout *Layout

	data     []byte
	count    int
	capacity int
	free     []uint32
	live     []bool

	dirty                 bool
	dirtyFirst, dirtyLast int
	uploadedBytes         int
}

/**
 * @brief Creates a uniform buffer for the given struct. A struct without
 * fields is legal; its elements take no space and are never uploaded.
 */
func NewUniformBuffer(ctx *gpu.Context, fields ...Field) (*UniformBuffer, error) {
	layout, err := ComputeLayout(fields, ctx.UniformBufferOffsetAlignment())
	if err != nil {
		return nil, err
	}
	u := &UniformBuffer{
		ctx:           ctx,
		handle:        ctx.CreateBuffer(),
		layout:        layout,
		uploadedBytes: -1,
	}
	u.Init(ctx.Resources, "UniformBuffer", func() {
		ctx.DeleteBuffer(u.handle)
	})
	return u, nil
}

func (u *UniformBuffer) Layout() *Layout {
	return u.layout
}

// Stride is the distance in bytes between consecutive elements.
func (u *UniformBuffer) Stride() int {
	return u.layout.Stride
}

func (u *UniformBuffer) Capacity() int {
	return u.capacity
}

func (u *UniformBuffer) Handle() gpu.Handle {
	return u.handle
}

func (u *UniformBuffer) grow() {
	newCapacity := initialCapacity
	if u.capacity > 0 {
		newCapacity = u.capacity * 2
	}
	data := make([]byte, newCapacity*u.layout.Stride)
	copy(data, u.data)
	live := make([]bool, newCapacity)
	copy(live, u.live)
	u.data, u.live, u.capacity = data, live, newCapacity
}

// Allocate returns a free element index. Freed indices are reused newest
// first. The element starts zeroed with field defaults applied.
func (u *UniformBuffer) Allocate() uint32 {
	var index uint32
	if n := len(u.free); n > 0 {
		index = u.free[n-1]
		u.free = u.free[:n-1]
	} else {
		if u.count == u.capacity {
			u.grow()
		}
		index = uint32(u.count)
		u.count++
	}
	u.live[index] = true
	u.reset(index)
	return index
}

func (u *UniformBuffer) reset(index uint32) {
	stride := u.layout.Stride
	start := int(index) * stride
	clear(u.data[start : start+stride])
	for i := range u.layout.Fields {
		f := &u.layout.Fields[i]
		for c, v := range f.DefaultFloats {
			u.putFloat(index, f, c, v)
		}
		for c, v := range f.DefaultInts {
			u.putInt(index, f, c, v)
		}
	}
	u.markDirty(index)
}

// Free returns index to the allocator. Freeing an index that is not live is
// ignored.
func (u *UniformBuffer) Free(index uint32) {
	if int(index) >= u.count || !u.live[index] {
		core.LogWarn("uniform buffer: ignoring free of element %d which is not allocated", index)
		return
	}
	u.live[index] = false
	u.free = append(u.free, index)
}

// FreeAll releases every element at once. Storage is kept.
func (u *UniformBuffer) FreeAll() {
	u.free = u.free[:0]
	u.count = 0
	clear(u.live)
	u.dirty = false
}

// Live reports whether index is currently allocated.
func (u *UniformBuffer) Live(index uint32) bool {
	return int(index) < u.count && u.live[index]
}

func (u *UniformBuffer) markDirty(index uint32) {
	i := int(index)
	if !u.dirty {
		u.dirty = true
		u.dirtyFirst, u.dirtyLast = i, i
		return
	}
	u.dirtyFirst = min(u.dirtyFirst, i)
	u.dirtyLast = max(u.dirtyLast, i)
}

// Dirty reports whether there are writes not yet uploaded.
func (u *UniformBuffer) Dirty() bool {
	return u.dirty
}

/**
 * @brief Uploads pending writes. When the GPU store already has the current
 * capacity only the dirty element range is sent, otherwise the whole store
 * is reallocated. Does nothing when no element changed.
 */
func (u *UniformBuffer) Flush() {
	if !u.dirty || len(u.data) == 0 {
		u.dirty = false
		return
	}
	if u.uploadedBytes == len(u.data) {
		stride := u.layout.Stride
		first, last := u.dirtyFirst*stride, (u.dirtyLast+1)*stride
		u.ctx.BufferSubData(gpu.UniformBuffer, u.handle, first, u.data[first:last])
	} else {
		u.ctx.BufferData(gpu.UniformBuffer, u.handle, u.data, gpu.DynamicDraw)
		u.uploadedBytes = len(u.data)
	}
	u.dirty = false
}

// BindElement flushes and binds the byte range of one element to a uniform
// block bind point.
func (u *UniformBuffer) BindElement(index uint32, bindPoint uint32) {
	u.Flush()
	if u.layout.Stride == 0 {
		return
	}
	u.ctx.BindBufferRange(gpu.UniformBuffer, bindPoint, u.handle, int(index)*u.layout.Stride, u.layout.Stride)
}

// View returns an accessor bound to index.
func (u *UniformBuffer) View(index uint32) *View {
	return &View{ubo: u, Element: index}
}

func (u *UniformBuffer) byteOffset(index uint32, f *FieldLayout, component int) int {
	return int(index)*u.layout.Stride + f.ComponentOffset(component)
}

func (u *UniformBuffer) putFloat(index uint32, f *FieldLayout, component int, v float32) {
	binary.NativeEndian.PutUint32(u.data[u.byteOffset(index, f, component):], math.Float32bits(v))
}

func (u *UniformBuffer) putInt(index uint32, f *FieldLayout, component int, v int32) {
	binary.NativeEndian.PutUint32(u.data[u.byteOffset(index, f, component):], uint32(v))
}

func (u *UniformBuffer) floatAt(index uint32, f *FieldLayout, component int) float32 {
	return math.Float32frombits(binary.NativeEndian.Uint32(u.data[u.byteOffset(index, f, component):]))
}

func (u *UniformBuffer) intAt(index uint32, f *FieldLayout, component int) int32 {
	return int32(binary.NativeEndian.Uint32(u.data[u.byteOffset(index, f, component):]))
}
