package textures

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

type Texture2D struct {
	texture

	width, height int
}

func newTexture2D(ctx *gpu.Context, width, height int, data []byte, opts Options) *Texture2D {
	t := &Texture2D{width: width, height: height}
	t.init(ctx, gpu.Texture2D, "Texture2D")
	ctx.TexImage2D(gpu.Texture2D, 0, 0, opts.format(), width, height, data)
	sampling := gpu.Sampling{Wrap: opts.Wrap, Filter: opts.Filter, Mipmaps: opts.Mipmaps && data != nil}
	if sampling.Mipmaps {
		ctx.GenerateMipmap(gpu.Texture2D)
	}
	ctx.TexParameters(gpu.Texture2D, sampling)
	return t
}

// NewTexture2D allocates storage without data, for use as an attachment.
func NewTexture2D(ctx *gpu.Context, width, height int, opts Options) *Texture2D {
	return newTexture2D(ctx, width, height, nil, opts)
}

// NewTexture2DFromData uploads tightly packed texels in opts.Format.
func NewTexture2DFromData(ctx *gpu.Context, width, height int, data []byte, opts Options) *Texture2D {
	return newTexture2D(ctx, width, height, data, opts)
}

/**
 * @brief Uploads a decoded image as 8 bit straight alpha RGBA. Images in other color models
 * are converted first. The first row of the image is the first row of the
 * texture.
 */
func NewTexture2DFromImage(ctx *gpu.Context, img image.Image, opts Options) *Texture2D {
	nrgba := ToNRGBA(img)
	b := nrgba.Bounds()
	opts.Format = gpu.FormatRGBA8
	return newTexture2D(ctx, b.Dx(), b.Dy(), nrgba.Pix, opts)
}

// ToNRGBA returns img as a tightly packed *image.NRGBA anchored at the
// origin. Texels keep straight alpha, as the upload expects.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == 4*b.Dx() && b.Min == (image.Point{}) {
		return nrgba
	}
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	return nrgba
}

func (t *Texture2D) Width() int {
	return t.width
}

func (t *Texture2D) Height() int {
	return t.height
}
