package textures

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu/gputest"
)

func TestHighestMipLevel(t *testing.T) {
	assert.Equal(t, 0, HighestMipLevel(1))
	assert.Equal(t, 5, HighestMipLevel(32))
	assert.Equal(t, 6, HighestMipLevel(100))
	assert.Equal(t, 7, HighestMipLevel(128))
	assert.Equal(t, 9, HighestMipLevel(512))
}

func TestTextureCubeAllocatesEveryMipLevel(t *testing.T) {
	rec := gputest.NewRecorder()
	ctx := gpu.NewContext(rec)
	cube := NewTextureCube(ctx, 128, 128, Options{Format: gpu.FormatRGBA16F, Filter: gpu.FilterBilinear, Mipmaps: true})

	assert.Equal(t, 7, cube.HighestMipLevel())
	uploads := rec.Named("TexImage2D")
	require.Len(t, uploads, 8*6)
	last := uploads[len(uploads)-1]
	assert.Equal(t, []any{gpu.TextureCubeMap, gpu.CubeNegativeZ, 7, gpu.RGBA16F, 1, 1, false}, last.Args)
}

func TestTextureCubeWithoutMipmaps(t *testing.T) {
	rec := gputest.NewRecorder()
	cube := NewTextureCube(gpu.NewContext(rec), 32, 32, Options{})
	assert.Equal(t, 0, cube.HighestMipLevel())
	assert.Equal(t, 6, rec.Count("TexImage2D"))
}

func TestTextureCubeFromDataValidatesFaceSize(t *testing.T) {
	rec := gputest.NewRecorder()
	ctx := gpu.NewContext(rec)
	var faces [gpu.CubeFaceCount][]byte
	for i := range faces {
		faces[i] = make([]byte, 4*4*4)
	}
	cube, err := NewTextureCubeFromData(ctx, 4, 4, faces, Options{Mipmaps: true})
	require.NoError(t, err)
	assert.Equal(t, 2, cube.HighestMipLevel())
	assert.Equal(t, 1, rec.Count("GenerateMipmap"))

	faces[3] = faces[3][:10]
	_, err = NewTextureCubeFromData(ctx, 4, 4, faces, Options{})
	assert.Error(t, err)
}

func TestTexture2DFromImageConverts(t *testing.T) {
	gray := image.NewGray(image.Rect(2, 3, 4, 4))
	gray.SetGray(2, 3, color.Gray{Y: 200})

	nrgba := ToNRGBA(gray)
	assert.Equal(t, image.Rect(0, 0, 2, 1), nrgba.Bounds())
	assert.Equal(t, []uint8{200, 200, 200, 255}, nrgba.Pix[:4])

	rec := gputest.NewRecorder()
	tex := NewTexture2DFromImage(gpu.NewContext(rec), gray, Options{Mipmaps: true, Filter: gpu.FilterBilinear})
	assert.Equal(t, 2, tex.Width())
	assert.Equal(t, 1, tex.Height())
	assert.Equal(t, 1, rec.Count("GenerateMipmap"))
}

func TestTranslucentTexelsKeepColour(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 64})
	assert.Same(t, src, ToNRGBA(src))

	// a premultiplied source comes back with straight alpha
	pre := image.NewRGBA(image.Rect(0, 0, 1, 1))
	pre.SetRGBA(0, 0, color.RGBA{R: 100, G: 50, B: 0, A: 128})
	assert.Equal(t, []uint8{199, 99, 0, 128}, ToNRGBA(pre).Pix)

	wide := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	wide.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 64})
	assert.Equal(t, []uint8{200, 100, 50, 64}, ToNRGBA(wide.SubImage(image.Rect(1, 0, 2, 1))).Pix)
}

func TestAttachmentTextureSkipsMipmaps(t *testing.T) {
	rec := gputest.NewRecorder()
	NewTexture2D(gpu.NewContext(rec), 64, 64, Options{Mipmaps: true})
	assert.Zero(t, rec.Count("GenerateMipmap"))
}

func TestRenderTarget(t *testing.T) {
	rec := gputest.NewRecorder()
	ctx := gpu.NewContext(rec)
	colorTex := NewTexture2D(ctx, 8, 8, Options{})
	depth := NewTexture2D(ctx, 8, 8, Options{Format: gpu.FormatDepth24})

	rt, err := NewRenderTarget(ctx, ColorAttachment(0, colorTex), DepthAttachment(depth))
	require.NoError(t, err)
	assert.Len(t, rec.Named("FramebufferTexture2D"), 2)
	assert.Equal(t, []any{1}, rec.Named("DrawBuffers")[0].Args)

	rt.Dispose()
	assert.Equal(t, 1, rec.Count("DeleteFramebuffer"))
	assert.False(t, colorTex.Disposed())
}

func TestRenderTargetIncomplete(t *testing.T) {
	rec := gputest.NewRecorder()
	rec.FramebufferError = core.ErrIncompleteFramebuffer
	ctx := gpu.NewContext(rec)
	cube := NewTextureCube(ctx, 16, 16, Options{})

	_, err := NewRenderTarget(ctx, CubeFaceAttachment(cube, gpu.CubePositiveY, 0))
	assert.ErrorIs(t, err, core.ErrIncompleteFramebuffer)
	assert.Equal(t, 1, rec.Count("DeleteFramebuffer"))
}
