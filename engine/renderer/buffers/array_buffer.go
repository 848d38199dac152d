// Package buffers holds the GPU buffer objects: typed vertex and index
// buffers, vertex arrays, and packed uniform buffers.
package buffers

import (
	"fmt"
	"unsafe"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
)

// Element is the set of Go types an ArrayBuffer can be built from.
type Element interface {
	int8 | int16 | int32 | uint8 | uint16 | uint32 | float32
}

func componentTypeOf[T Element]() gpu.ComponentType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return gpu.Int8
	case int16:
		return gpu.Int16
	case int32:
		return gpu.Int32
	case uint8:
		return gpu.Uint8
	case uint16:
		return gpu.Uint16
	case uint32:
		return gpu.Uint32
	default:
		return gpu.Float32
	}
}

func asBytes[T Element](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*int(unsafe.Sizeof(zero)))
}

type ArrayBufferOptions struct {
	Usage  gpu.BufferUsage
	Target gpu.BufferTarget
}

/**
 * @brief ArrayBuffer is a GPU buffer holding a flat list of one component type,
 * used for vertex attribute streams and index lists.
 */
type ArrayBuffer struct {
	resource.Base

	ctx         *gpu.Context
	handle      gpu.Handle
	elementType gpu.ComponentType
	target      gpu.BufferTarget
	usage       gpu.BufferUsage
	length      int
}

// NewEmptyArrayBuffer creates a buffer of the given element type with no data.
func NewEmptyArrayBuffer(ctx *gpu.Context, elementType gpu.ComponentType, opts ArrayBufferOptions) *ArrayBuffer {
	b := &ArrayBuffer{
		ctx:         ctx,
		handle:      ctx.CreateBuffer(),
		elementType: elementType,
		target:      opts.Target,
		usage:       opts.Usage,
	}
	b.Init(ctx.Resources, "ArrayBuffer", func() {
		ctx.DeleteBuffer(b.handle)
	})
	return b
}

// NewArrayBuffer creates a buffer whose element type is taken from data and
// uploads data to it.
func NewArrayBuffer[T Element](ctx *gpu.Context, data []T, opts ArrayBufferOptions) *ArrayBuffer {
	b := NewEmptyArrayBuffer(ctx, componentTypeOf[T](), opts)
	b.upload(asBytes(data), len(data))
	return b
}

// Upload replaces the contents of b. The element type of data must match the
// one b was created with.
func Upload[T Element](b *ArrayBuffer, data []T) error {
	if t := componentTypeOf[T](); t != b.elementType {
		return fmt.Errorf("array buffer holds %s, got %s: %w", b.elementType, t, core.ErrFieldType)
	}
	b.upload(asBytes(data), len(data))
	return nil
}

func (b *ArrayBuffer) upload(data []byte, length int) {
	b.ctx.BufferData(b.target, b.handle, data, b.usage)
	b.length = length
}

func (b *ArrayBuffer) Handle() gpu.Handle {
	return b.handle
}

func (b *ArrayBuffer) ElementType() gpu.ComponentType {
	return b.elementType
}

func (b *ArrayBuffer) ElementStride() int {
	return b.elementType.Size()
}

func (b *ArrayBuffer) Target() gpu.BufferTarget {
	return b.target
}

// Len is the number of elements last uploaded.
func (b *ArrayBuffer) Len() int {
	return b.length
}
