// Package textures wraps 2D textures, cubemaps and the framebuffers that
// render into them.
package textures

import (
	"math/bits"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
)

// Texture is any texture object that can be bound to a unit.
type Texture interface {
	resource.Resource
	Handle() gpu.Handle
	Target() gpu.TextureTarget
}

// HighestMipLevel is the index of the last mip level of a texture whose
// smaller dimension is lowestDimension.
func HighestMipLevel(lowestDimension int) int {
	if lowestDimension <= 0 {
		return 0
	}
	return bits.Len(uint(lowestDimension)) - 1
}

// Options are shared by every texture constructor. A zero Format selects
// RGBA8.
type Options struct {
	Wrap    gpu.WrapMode
	Filter  gpu.Filter
	Format  gpu.PixelFormat
	Mipmaps bool
}

func (o Options) format() gpu.PixelFormat {
	if o.Format == (gpu.PixelFormat{}) {
		return gpu.FormatRGBA8
	}
	return o.Format
}

type texture struct {
	resource.Base

	ctx    *gpu.Context
	handle gpu.Handle
	target gpu.TextureTarget
}

func (t *texture) init(ctx *gpu.Context, target gpu.TextureTarget, name string) {
	t.ctx = ctx
	t.handle = ctx.CreateTexture()
	t.target = target
	t.Init(ctx.Resources, name, func() {
		ctx.DeleteTexture(t.handle)
	})
	// Construction binds behind the renderer state cache; unit 0 is used
	// the same way by every texture constructor.
	ctx.ActiveTexture(0)
	ctx.BindTexture(target, t.handle)
}

func (t *texture) Handle() gpu.Handle {
	return t.handle
}

func (t *texture) Target() gpu.TextureTarget {
	return t.target
}
