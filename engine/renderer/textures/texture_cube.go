package textures

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

/**
 * @brief TextureCube is a cubemap. Faces are in GL order: +X, -X, +Y, -Y,
 * +Z, -Z.
 */
type TextureCube struct {
	texture

	faceWidth, faceHeight int
	highestMipLevel       int
}

func newTextureCube(ctx *gpu.Context, width, height int, opts Options) *TextureCube {
	t := &TextureCube{faceWidth: width, faceHeight: height}
	t.init(ctx, gpu.TextureCubeMap, "TextureCube")
	return t
}

/**
 * @brief Allocates an empty cubemap. With mipmaps, every level down to the
 * highest mip level is allocated so each can be rendered to.
 */
func NewTextureCube(ctx *gpu.Context, faceWidth, faceHeight int, opts Options) *TextureCube {
	t := newTextureCube(ctx, faceWidth, faceHeight, opts)
	format := opts.format()
	for face := gpu.CubeFace(0); face < gpu.CubeFaceCount; face++ {
		ctx.TexImage2D(gpu.TextureCubeMap, face, 0, format, faceWidth, faceHeight, nil)
	}
	if opts.Mipmaps {
		t.highestMipLevel = HighestMipLevel(min(faceWidth, faceHeight))
		for level := 1; level <= t.highestMipLevel; level++ {
			for face := gpu.CubeFace(0); face < gpu.CubeFaceCount; face++ {
				ctx.TexImage2D(gpu.TextureCubeMap, face, level, format, faceWidth>>level, faceHeight>>level, nil)
			}
		}
	}
	ctx.TexParameters(gpu.TextureCubeMap, gpu.Sampling{Wrap: opts.Wrap, Filter: opts.Filter, Mipmaps: opts.Mipmaps})
	return t
}

// NewTextureCubeFromData uploads six faces of tightly packed texels and
// optionally generates the mip chain from them.
func NewTextureCubeFromData(ctx *gpu.Context, faceWidth, faceHeight int, faces [gpu.CubeFaceCount][]byte, opts Options) (*TextureCube, error) {
	format := opts.format()
	want := faceWidth * faceHeight * componentsOf(format.Layout) * format.Type.Size()
	for i, f := range faces {
		if len(f) != want {
			return nil, fmt.Errorf("cube face %d has %d bytes, want %d", i, len(f), want)
		}
	}
	t := newTextureCube(ctx, faceWidth, faceHeight, opts)
	for face := gpu.CubeFace(0); face < gpu.CubeFaceCount; face++ {
		ctx.TexImage2D(gpu.TextureCubeMap, face, 0, format, faceWidth, faceHeight, faces[face])
	}
	if opts.Mipmaps {
		ctx.GenerateMipmap(gpu.TextureCubeMap)
		t.highestMipLevel = HighestMipLevel(min(faceWidth, faceHeight))
	}
	ctx.TexParameters(gpu.TextureCubeMap, gpu.Sampling{Wrap: opts.Wrap, Filter: opts.Filter, Mipmaps: opts.Mipmaps})
	return t, nil
}

func componentsOf(l gpu.PixelLayout) int {
	switch l {
	case gpu.LayoutRGBA:
		return 4
	case gpu.LayoutRGB:
		return 3
	case gpu.LayoutRG:
		return 2
	default:
		return 1
	}
}

func (t *TextureCube) FaceWidth() int {
	return t.faceWidth
}

func (t *TextureCube) FaceHeight() int {
	return t.faceHeight
}

// HighestMipLevel is zero for cubemaps without mipmaps.
func (t *TextureCube) HighestMipLevel() int {
	return t.highestMipLevel
}
