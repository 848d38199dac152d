package systems

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"slices"
	"time"

	"github.com/chewxy/math32"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/lumen/engine/containers"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
	"github.com/spaghettifunk/lumen/engine/renderer/textures"
)

// EnvironmentRoot is the asset directory environment faces are read from.
const EnvironmentRoot = "environments"

// FaceSuffixes are the file name suffixes of the six faces, in cube face
// order.
var FaceSuffixes = [gpu.CubeFaceCount]string{"PosX", "NegX", "PosY", "NegY", "PosZ", "NegZ"}

// FaceExtensions are tried in order for every face.
var FaceExtensions = []string{".tiff", ".tif", ".png"}

var ErrEnvManagerDisposed = errors.New("environment manager disposed")

// ImageSource returns decoded image assets.
type ImageSource interface {
	Image(path string) (image.Image, error)
}

type EnvState int

const (
	EnvPending EnvState = iota
	EnvReady
	EnvFailed
)

func (s EnvState) String() string {
	switch s {
	case EnvReady:
		return "ready"
	case EnvFailed:
		return "failed"
	default:
		return "pending"
	}
}

// EnvCallback receives the cube once it is uploaded, or the fetch error.
type EnvCallback func(cube *textures.TextureCube, err error)

type envEntry struct {
	name    string
	state   EnvState
	cube    *textures.TextureCube
	err     error
	waiters []EnvCallback
}

// envFaces is the result of a fetch job.
type envFaces struct {
	width, height int
	faces         [gpu.CubeFaceCount][]byte
}

/**
 * @brief EnvManager fetches environment cubemaps by name. Face images are
 * decoded on the job system, one environment at a time, while further
 * requests wait in a bounded queue. The upload happens in the job's
 * completion callback on the render thread. The manager owns every cube it
 * creates.
 */
type EnvManager struct {
	resource.Base

	ctx    *gpu.Context
	images ImageSource
	jobs   *JobSystem
	names  []string

	entries  map[string]*envEntry
	queue    *containers.RingQueue[string]
	fetching string
}

func NewEnvManager(ctx *gpu.Context, images ImageSource, jobs *JobSystem, names []string, queueSize int) *EnvManager {
	if queueSize < 1 {
		queueSize = 1
	}
	em := &EnvManager{
		ctx:     ctx,
		images:  images,
		jobs:    jobs,
		names:   slices.Clone(names),
		entries: map[string]*envEntry{},
		queue:   containers.NewRingQueue[string](queueSize),
	}
	em.Init(ctx.Resources, "EnvManager", nil)
	return em
}

// Names lists the configured environments.
func (em *EnvManager) Names() []string {
	return em.names
}

// State reports where a requested environment is. Unrequested names are
// pending.
func (em *EnvManager) State(name string) EnvState {
	if e, ok := em.entries[name]; ok {
		return e.state
	}
	return EnvPending
}

// Cube returns the uploaded cube of a ready environment.
func (em *EnvManager) Cube(name string) (*textures.TextureCube, bool) {
	e, ok := em.entries[name]
	if !ok || e.state != EnvReady {
		return nil, false
	}
	return e.cube, true
}

// Preload starts fetching without waiting for the result.
func (em *EnvManager) Preload(name string) error {
	return em.Get(name, nil)
}

/**
 * @brief Requests an environment. fn runs on the render thread once the
 * cube is available, immediately when it already is. Must be called from
 * the render thread.
 */
func (em *EnvManager) Get(name string, fn EnvCallback) error {
	if !slices.Contains(em.names, name) {
		return fmt.Errorf("%q: %w", name, core.ErrUnknownEnvironment)
	}
	if em.Disposed() {
		return ErrEnvManagerDisposed
	}

	e, ok := em.entries[name]
	if !ok {
		e = &envEntry{name: name}
		if em.fetching != "" {
			// Queue new fetch
			if err := em.queue.Enqueue(name); err != nil {
				return fmt.Errorf("environment %q: %w", name, err)
			}
		} else if err := em.startFetch(name); err != nil {
			return err
		}
		em.entries[name] = e
	}

	switch e.state {
	case EnvReady:
		if fn != nil {
			fn(e.cube, nil)
		}
	case EnvFailed:
		if fn != nil {
			fn(nil, e.err)
		}
	default:
		if fn != nil {
			e.waiters = append(e.waiters, fn)
		}
	}
	return nil
}

func (em *EnvManager) startFetch(name string) error {
	em.fetching = name
	start := time.Now()
	_, err := em.jobs.Submit(JobTask{
		Name: "env:" + name,
		Run: func(ctx context.Context) (interface{}, error) {
			return em.fetch(ctx, name)
		},
		OnComplete: func(result interface{}) {
			faces := result.(*envFaces)
			em.finish(name, faces, nil)
			core.LogInfo("environment %s loaded in %s", name, time.Since(start).Round(time.Millisecond))
		},
		OnFailure: func(err error) {
			em.finish(name, nil, err)
		},
	})
	if err != nil {
		em.fetching = ""
		return err
	}
	return nil
}

func (em *EnvManager) finish(name string, faces *envFaces, err error) {
	em.fetching = ""
	e := em.entries[name]
	if e == nil {
		return
	}

	if err == nil && !em.Disposed() {
		e.cube, err = textures.NewTextureCubeFromData(em.ctx, faces.width, faces.height, faces.faces, textures.Options{
			Wrap:   gpu.WrapClamp,
			Filter: gpu.FilterBilinear,
			Format: gpu.FormatRGBA16FFromFloat,
		})
		if err == nil {
			em.Own(e.cube)
		}
	} else if err == nil {
		err = ErrEnvManagerDisposed
	}

	if err != nil {
		e.state, e.err = EnvFailed, err
		core.LogError("environment %s failed: %s", name, err)
	} else {
		e.state = EnvReady
	}

	waiters := e.waiters
	e.waiters = nil
	for _, fn := range waiters {
		fn(e.cube, e.err)
	}

	if next, qerr := em.queue.Dequeue(); qerr == nil {
		if err := em.startFetch(next); err != nil {
			em.finish(next, nil, err)
		}
	}
}

// FacePath is the first existing candidate file of one face.
func FacePath(name string, face gpu.CubeFace, ext string) string {
	return fmt.Sprintf("%s/%s/%s_%s%s", EnvironmentRoot, name, name, FaceSuffixes[face], ext)
}

// fetch decodes the six faces concurrently into float32 RGBA texels.
func (em *EnvManager) fetch(ctx context.Context, name string) (*envFaces, error) {
	var decoded [gpu.CubeFaceCount]image.Image
	g, ctx := errgroup.WithContext(ctx)
	for face := gpu.CubeFace(0); face < gpu.CubeFaceCount; face++ {
		g.Go(func() error {
			img, err := em.loadFace(ctx, name, face)
			decoded[face] = img
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &envFaces{
		width:  decoded[0].Bounds().Dx(),
		height: decoded[0].Bounds().Dy(),
	}
	for face, img := range decoded {
		b := img.Bounds()
		if b.Dx() != out.width || b.Dy() != out.height {
			return nil, fmt.Errorf("environment %s: face %s is %dx%d, want %dx%d",
				name, FaceSuffixes[face], b.Dx(), b.Dy(), out.width, out.height)
		}
		out.faces[face] = FloatTexels(img)
	}
	return out, nil
}

func (em *EnvManager) loadFace(ctx context.Context, name string, face gpu.CubeFace) (image.Image, error) {
	var lastErr error
	for _, ext := range FaceExtensions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := em.images.Image(FacePath(name, face, ext))
		if err == nil {
			return img, nil
		}
		lastErr = err
		if !errors.Is(err, core.ErrAssetNotFound) {
			break
		}
	}
	return nil, lastErr
}

// srgbToLinear decodes an 8 bit sRGB channel.
func srgbToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math32.Pow((c+0.055)/1.055, 2.4)
}

/**
 * @brief Converts an image into tightly packed little endian float32 RGBA
 * texels. Sixteen bit images are taken as linear. Eight bit images are
 * taken as sRGB encoded and linearised; alpha is always linear.
 */
func FloatTexels(img image.Image) []byte {
	b := img.Bounds()
	linear := false
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		linear = true
	}

	// straight alpha: translucent texels keep their colour
	nrgba := image.NewNRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)

	out := make([]byte, 0, b.Dx()*b.Dy()*4*4)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := nrgba.NRGBA64At(x, y)
			ch := [4]float32{
				float32(c.R) / 0xffff,
				float32(c.G) / 0xffff,
				float32(c.B) / 0xffff,
				float32(c.A) / 0xffff,
			}
			if !linear {
				for i := 0; i < 3; i++ {
					ch[i] = srgbToLinear(ch[i])
				}
			}
			for _, v := range ch {
				out = binary.LittleEndian.AppendUint32(out, math32.Float32bits(v))
			}
		}
	}
	return out
}
