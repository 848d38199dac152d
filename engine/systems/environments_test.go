package systems

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu/gputest"
	"github.com/spaghettifunk/lumen/engine/renderer/textures"
)

type fakeImages struct {
	mu     sync.Mutex
	images map[string]image.Image
	gates  map[string]chan struct{}
	order  []string
}

func newFakeImages() *fakeImages {
	return &fakeImages{images: map[string]image.Image{}, gates: map[string]chan struct{}{}}
}

func (f *fakeImages) addEnvironment(name string, size int) {
	for face := gpu.CubeFace(0); face < gpu.CubeFaceCount; face++ {
		img := image.NewRGBA(image.Rect(0, 0, size, size))
		img.Set(0, 0, color.RGBA{R: 255, A: 255})
		f.images[FacePath(name, face, ".png")] = img
	}
}

func (f *fakeImages) gate(name string) chan struct{} {
	ch := make(chan struct{})
	f.gates[name] = ch
	return ch
}

func (f *fakeImages) Image(path string) (image.Image, error) {
	name := strings.Split(path, "/")[1]
	f.mu.Lock()
	f.order = append(f.order, name)
	gate := f.gates[name]
	img, ok := f.images[path]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, core.ErrAssetNotFound)
	}
	return img, nil
}

func (f *fakeImages) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

func newEnvFixture(t *testing.T, images *fakeImages, queueSize int, names ...string) (*gputest.Recorder, *JobSystem, *EnvManager) {
	t.Helper()
	rec := gputest.NewRecorder()
	ctx := gpu.NewContext(rec)
	js, err := NewJobSystem(2, 8)
	require.NoError(t, err)
	t.Cleanup(func() { js.Shutdown() })
	return rec, js, NewEnvManager(ctx, images, js, names, queueSize)
}

func TestEnvManagerLoadsAndUploads(t *testing.T) {
	images := newFakeImages()
	images.addEnvironment("Room", 4)
	rec, js, em := newEnvFixture(t, images, 2, "Room")

	var cube *textures.TextureCube
	require.NoError(t, em.Get("Room", func(c *textures.TextureCube, err error) {
		require.NoError(t, err)
		cube = c
	}))
	assert.Equal(t, EnvPending, em.State("Room"))

	drainUntil(t, js, func() bool { return cube != nil })
	assert.Equal(t, EnvReady, em.State("Room"))
	assert.Equal(t, 4, cube.FaceWidth())

	uploads := rec.Named("TexImage2D")
	require.Len(t, uploads, 6)
	for face, c := range uploads {
		assert.Equal(t, gpu.CubeFace(face), c.Args[1])
		assert.Equal(t, gpu.RGBA16F, c.Args[3])
		assert.Equal(t, true, c.Args[6])
	}

	// ready environments answer at once
	var again *textures.TextureCube
	require.NoError(t, em.Get("Room", func(c *textures.TextureCube, err error) { again = c }))
	assert.Same(t, cube, again)
	got, ok := em.Cube("Room")
	require.True(t, ok)
	assert.Same(t, cube, got)

	em.Dispose()
	assert.True(t, cube.Disposed())
	require.ErrorIs(t, em.Get("Room", nil), ErrEnvManagerDisposed)
}

func TestEnvManagerRejectsUnknownNames(t *testing.T) {
	_, _, em := newEnvFixture(t, newFakeImages(), 2, "Room")

	require.ErrorIs(t, em.Get("Attic", nil), core.ErrUnknownEnvironment)
	assert.Equal(t, []string{"Room"}, em.Names())
}

func TestEnvManagerFetchesOneAtATime(t *testing.T) {
	images := newFakeImages()
	images.addEnvironment("A", 2)
	images.addEnvironment("B", 2)
	gate := images.gate("A")
	_, js, em := newEnvFixture(t, images, 1, "A", "B", "C")

	require.NoError(t, em.Preload("A"))
	require.NoError(t, em.Preload("B"))
	require.ErrorIs(t, em.Preload("C"), core.ErrQueueFull)

	close(gate)
	drainUntil(t, js, func() bool { return em.State("B") == EnvReady })
	assert.Equal(t, EnvReady, em.State("A"))

	order := images.requested()
	lastA := 0
	firstB := len(order)
	for i, name := range order {
		if name == "A" {
			lastA = i
		}
		if name == "B" && i < firstB {
			firstB = i
		}
	}
	assert.Less(t, lastA, firstB)

	// a rejected request can be retried once the queue drains
	require.NoError(t, em.Preload("C"))
}

func TestEnvManagerReportsFailures(t *testing.T) {
	images := newFakeImages()
	_, js, em := newEnvFixture(t, images, 2, "Missing")

	var failure error
	require.NoError(t, em.Get("Missing", func(c *textures.TextureCube, err error) {
		assert.Nil(t, c)
		failure = err
	}))
	drainUntil(t, js, func() bool { return failure != nil })
	assert.ErrorIs(t, failure, core.ErrAssetNotFound)
	assert.Equal(t, EnvFailed, em.State("Missing"))

	var second error
	require.NoError(t, em.Get("Missing", func(c *textures.TextureCube, err error) { second = err }))
	assert.ErrorIs(t, second, core.ErrAssetNotFound)
}

func TestEnvManagerRejectsMismatchedFaces(t *testing.T) {
	images := newFakeImages()
	images.addEnvironment("Odd", 4)
	images.images[FacePath("Odd", gpu.CubeNegativeZ, ".png")] = image.NewRGBA(image.Rect(0, 0, 2, 2))
	_, js, em := newEnvFixture(t, images, 2, "Odd")

	require.NoError(t, em.Preload("Odd"))
	drainUntil(t, js, func() bool { return em.State("Odd") != EnvPending })
	assert.Equal(t, EnvFailed, em.State("Odd"))
}

func texel(data []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
}

func TestFloatTexels(t *testing.T) {
	ldr := image.NewRGBA(image.Rect(0, 0, 2, 1))
	ldr.Set(0, 0, color.RGBA{R: 255, G: 0, B: 188, A: 255})
	out := FloatTexels(ldr)
	require.Len(t, out, 2*4*4)
	assert.InDelta(t, 1.0, texel(out, 0), 1e-6)
	assert.InDelta(t, 0.0, texel(out, 1), 1e-6)
	assert.InDelta(t, 0.5029, texel(out, 2), 1e-3)
	assert.InDelta(t, 1.0, texel(out, 3), 1e-6)

	hdr := image.NewRGBA64(image.Rect(0, 0, 1, 1))
	hdr.SetRGBA64(0, 0, color.RGBA64{R: 0x8000, G: 0xffff, B: 0, A: 0xffff})
	out = FloatTexels(hdr)
	assert.InDelta(t, 0.5, texel(out, 0), 1e-4)
	assert.InDelta(t, 1.0, texel(out, 1), 1e-6)
}

func TestFloatTexelsKeepTranslucentColour(t *testing.T) {
	img := image.NewNRGBA64(image.Rect(0, 0, 1, 1))
	img.SetNRGBA64(0, 0, color.NRGBA64{R: 0xffff, G: 0x8000, B: 0, A: 0x4000})
	out := FloatTexels(img)
	assert.InDelta(t, 1.0, texel(out, 0), 1e-6)
	assert.InDelta(t, 0.5, texel(out, 1), 1e-3)
	assert.InDelta(t, 0.0, texel(out, 2), 1e-6)
	assert.InDelta(t, 0.25, texel(out, 3), 1e-4)

	ldr := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	ldr.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 64})
	out = FloatTexels(ldr)
	assert.InDelta(t, 1.0, texel(out, 0), 1e-3)
	assert.InDelta(t, 0.251, texel(out, 3), 1e-3)
}
