package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/buffers"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu/gputest"
	"github.com/spaghettifunk/lumen/engine/renderer/materials"
	"github.com/spaghettifunk/lumen/engine/renderer/meshes"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
	"github.com/spaghettifunk/lumen/engine/renderer/shaders"
	"github.com/spaghettifunk/lumen/engine/renderer/state"
	"github.com/spaghettifunk/lumen/engine/renderer/textures"
)

// stubSources serves the same trivial shader for every file.
type stubSources struct{}

func (stubSources) Text(string) (string, error) {
	return "void main() {}\n", nil
}

type fixture struct {
	rec      *gputest.Recorder
	ctx      *gpu.Context
	state    *state.RendererState
	shaders  *shaders.Manager
	viewport *components.Viewport
	camera   *components.Camera
	renderer *Renderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := gputest.NewRecorder()
	ctx := gpu.NewContext(rec)
	st := state.New(ctx)
	sm := shaders.NewManager(ctx, stubSources{})
	vp := components.NewViewport(0, 0, 64, 32)
	cam := components.NewCamera(components.CameraView{
		Projection: components.Perspective, VerticalFov: mgl32.DegToRad(75), NearZ: 1.0 / 16, FarZ: 16,
	}, vp)

	r, err := New(ctx, st, sm, &vp)
	require.NoError(t, err)
	return &fixture{rec: rec, ctx: ctx, state: st, shaders: sm, viewport: &vp, camera: cam, renderer: r}
}

func (f *fixture) material(t *testing.T, fragment string, fields []buffers.Field, slots []materials.TextureSlot) *materials.Material {
	t.Helper()
	p, err := f.shaders.Program("screenquad", fragment)
	require.NoError(t, err)
	m, err := materials.New(f.ctx, f.state, p, fields, slots)
	require.NoError(t, err)
	m.Own(p)
	return m
}

func (f *fixture) postProcess(t *testing.T, fragment string) *materials.Instance {
	t.Helper()
	inst, err := f.material(t, fragment, nil, PostProcessSlots).CreateInstance(nil)
	require.NoError(t, err)
	return inst
}

func (f *fixture) cube() *meshes.Mesh {
	m := meshes.NewCube(f.ctx)
	m.CreateRenderData()
	return m
}

// pass is one draw call and the framebuffer it landed in.
type pass struct {
	framebuffer gpu.Handle
	colorInput  gpu.Handle
}

// passes replays the recorded stream, tracking the bound framebuffer and
// the texture on unit 3, where post processes read their color input.
func passes(rec *gputest.Recorder) []pass {
	var out []pass
	var fb, input gpu.Handle
	unit := 0
	for _, c := range rec.Calls {
		switch c.Name {
		case "BindFramebuffer":
			fb = c.Args[0].(gpu.Handle)
		case "ActiveTexture":
			unit = c.Args[0].(int)
		case "BindTexture":
			if unit == 3 {
				input = c.Args[1].(gpu.Handle)
			}
		case "DrawElements":
			out = append(out, pass{framebuffer: fb, colorInput: input})
		}
	}
	return out
}

func TestPostProcessChainPingPongs(t *testing.T) {
	f := newFixture(t)
	r := f.renderer
	hdr1, hdr2 := f.postProcess(t, "bloom"), f.postProcess(t, "grade")
	ldr1 := f.postProcess(t, "fxaa")

	_, err := r.AddView(f.camera, f.viewport, nil, ViewProps{
		HDR:              true,
		HDRPostProcesses: []*materials.Instance{hdr1, hdr2},
		LDRPostProcesses: []*materials.Instance{ldr1},
	})
	require.NoError(t, err)

	f.rec.Reset()
	require.NoError(t, r.Draw())

	// main pass into HDR A
	binds := f.rec.Named("BindFramebuffer")
	require.NotEmpty(t, binds)
	assert.Equal(t, r.hdr[0].rt.Handle(), binds[0].Args[0])

	a, b, ldr := r.hdr[0], r.hdr[1], r.ldr[0]
	assert.Equal(t, []pass{
		{framebuffer: b.rt.Handle(), colorInput: a.color.Handle()},
		{framebuffer: a.rt.Handle(), colorInput: b.color.Handle()},
		{framebuffer: ldr.rt.Handle(), colorInput: a.color.Handle()},
		{framebuffer: gpu.NoHandle, colorInput: ldr.color.Handle()},
	}, passes(f.rec))

	assert.Same(t, a.color, hdr1.Texture(InputColorSlot))
	for _, pp := range []*materials.Instance{hdr1, hdr2, ldr1} {
		assert.Same(t, a.depth, pp.Texture(InputDepthSlot))
	}
}

func TestLDRChainReadsMainPassDepth(t *testing.T) {
	f := newFixture(t)
	r := f.renderer
	first, second := f.postProcess(t, "fxaa"), f.postProcess(t, "vignette")
	_, err := r.AddView(f.camera, f.viewport, nil, ViewProps{
		LDRPostProcesses: []*materials.Instance{first, second},
	})
	require.NoError(t, err)
	require.NoError(t, r.Draw())

	assert.Same(t, r.ldr[0].color, first.Texture(InputColorSlot))
	assert.Same(t, r.ldr[1].color, second.Texture(InputColorSlot))
	assert.Same(t, r.ldr[0].depth, first.Texture(InputDepthSlot))
	assert.Same(t, r.ldr[0].depth, second.Texture(InputDepthSlot))
}

func TestViewWithoutPostProcessDrawsToTarget(t *testing.T) {
	f := newFixture(t)
	r := f.renderer
	m := f.material(t, "pbr", []buffers.Field{buffers.Float("materialRoughness", 1)}, nil)
	inst, err := m.CreateInstance(nil)
	require.NoError(t, err)
	_, err = r.AddObject(f.cube(), 0, inst, ObjectProps{})
	require.NoError(t, err)

	_, err = r.AddView(f.camera, f.viewport, nil, ViewProps{})
	require.NoError(t, err)

	f.rec.Reset()
	require.NoError(t, r.Draw())
	got := passes(f.rec)
	require.Len(t, got, 1)
	assert.Equal(t, gpu.NoHandle, got[0].framebuffer)

	// one flush for every view block before any draw
	uploads := f.rec.Named("BufferData", "BufferSubData")
	require.NotEmpty(t, uploads)
	assert.Equal(t, r.viewBlocks.Handle(), uploads[0].Args[1])
}

func TestDrawFlagsSelectObjects(t *testing.T) {
	f := newFixture(t)
	r := f.renderer
	m := f.material(t, "pbr", nil, nil)
	mesh := f.cube()
	for _, flags := range []uint32{0b01, 0b10, 0b10} {
		inst, err := m.CreateInstance(nil)
		require.NoError(t, err)
		_, err = r.AddObject(mesh, 0, inst, ObjectProps{DrawFlags: flags})
		require.NoError(t, err)
	}
	_, err := r.AddView(f.camera, f.viewport, nil, ViewProps{DrawFlags: 0b10})
	require.NoError(t, err)

	f.rec.Reset()
	require.NoError(t, r.Draw())
	assert.Equal(t, 2, f.rec.Count("DrawElements"))
}

func TestRemoveObjectFixesMovedItem(t *testing.T) {
	f := newFixture(t)
	r := f.renderer
	m := f.material(t, "pbr", []buffers.Field{buffers.Float("materialMetallic", 1)}, nil)
	mesh := f.cube()

	var objects []*Object
	for i := 0; i < 3; i++ {
		inst, err := m.CreateInstance(map[string]any{"materialMetallic": float32(i)})
		require.NoError(t, err)
		o, err := r.AddObject(mesh, 0, inst, ObjectProps{})
		require.NoError(t, err)
		objects = append(objects, o)
	}
	b := objects[0].batch

	element := objects[0].sectionBlock.Element
	r.RemoveObject(objects[0])
	assert.False(t, r.sectionBlocks.Live(element))
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 0, objects[2].itemIndex)
	assert.Equal(t, objects[2].sectionBlock.Element, b.Item(0).Uniforms[1].Element)

	r.RemoveObject(objects[2])
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 0, objects[1].itemIndex)
	assert.Equal(t, []*Object{objects[1]}, r.Objects())

	// removing twice is ignored
	r.RemoveObject(objects[2])
	assert.Equal(t, 1, b.Len())
}

func TestUpdateObjectTransform(t *testing.T) {
	f := newFixture(t)
	r := f.renderer
	inst, err := f.material(t, "pbr", nil, nil).CreateInstance(nil)
	require.NoError(t, err)
	o, err := r.AddObject(f.cube(), 0, inst, ObjectProps{})
	require.NoError(t, err)

	tr := math.NewTransform()
	tr.Position = mgl32.Vec3{1, 2, 3}
	tr.Scale = mgl32.Vec3{2, 2, 2}
	r.UpdateObjectTransform(o, tr)

	model := o.sectionBlock.Mat4("modelMatrix")
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, model.Col(3).Vec3())
	assert.True(t, o.sectionBlock.Mat4("invModelMatrix").Mul4(model).ApproxEqual(mgl32.Ident4()))
	assert.True(t, o.sectionBlock.Mat3("normalMatrix").ApproxEqual(mgl32.Ident3().Mul(0.5)))
}

func TestAddObjectRejectsUnknownSection(t *testing.T) {
	f := newFixture(t)
	inst, err := f.material(t, "pbr", nil, nil).CreateInstance(nil)
	require.NoError(t, err)
	_, err = f.renderer.AddObject(f.cube(), 4, inst, ObjectProps{})
	assert.Error(t, err)
}

func TestReflectionChainCoversEveryMipAndFace(t *testing.T) {
	f := newFixture(t)
	r := f.renderer
	env := textures.NewTextureCube(f.ctx, 128, 128, textures.Options{Format: gpu.FormatRGBA16F})

	f.rec.Reset()
	require.NoError(t, r.SetEnvironmentMap(env))
	require.NotNil(t, r.ReflectionMap())
	assert.Equal(t, 7, r.ReflectionMap().HighestMipLevel())

	levels := map[int]int{}
	irradianceFaces := 0
	for _, c := range f.rec.Named("FramebufferTexture2D") {
		switch c.Args[4] {
		case r.ReflectionMap().Handle():
			levels[c.Args[5].(int)]++
		case r.IrradianceMap().Handle():
			irradianceFaces++
		}
	}
	assert.Len(t, levels, 8)
	for level, faces := range levels {
		assert.Equal(t, 6, faces, "level %d", level)
	}
	assert.Equal(t, 6, irradianceFaces)
	assert.Equal(t, 6+8*6, f.rec.Count("DrawElements"))

	// the one-shot programs are gone
	assert.Equal(t, 2, f.rec.Count("DeleteProgram"))

	// same cube again is a no-op
	f.rec.Reset()
	require.NoError(t, r.SetEnvironmentMap(env))
	assert.Empty(t, f.rec.Calls)

	r.UpdateEnvMapProperties(0.5)
	assert.Equal(t, float32(3.5), r.envParams.View(0).Float("envMapMipLevel"))
}

func TestEnvironmentBackground(t *testing.T) {
	f := newFixture(t)
	r := f.renderer
	require.NoError(t, r.SetEnvironmentMap(textures.NewTextureCube(f.ctx, 4, 4, textures.Options{})))

	_, err := r.AddView(f.camera, f.viewport, nil, ViewProps{DrawEnvMap: true})
	require.NoError(t, err)
	f.rec.Reset()
	require.NoError(t, r.Draw())
	assert.Equal(t, 1, f.rec.Count("DrawElements"))

	require.NoError(t, r.SetEnvironmentMap(nil))
	assert.Nil(t, r.EnvironmentMap())
	f.rec.Reset()
	require.NoError(t, r.Draw())
	assert.Zero(t, f.rec.Count("DrawElements"))
}

func TestRemoveViewReleasesResources(t *testing.T) {
	f := newFixture(t)
	r := f.renderer
	v, err := r.AddView(f.camera, f.viewport, nil, ViewProps{HDR: true})
	require.NoError(t, err)
	require.NotNil(t, v.ToneMapperParams)
	assert.Equal(t, float32(2.2), v.ToneMapperParams.Float("gamma"))

	element := v.viewBlock.Element
	f.rec.Reset()
	r.RemoveView(v)
	assert.Empty(t, r.Views())
	assert.False(t, r.viewBlocks.Live(element))
	assert.Equal(t, 1, f.rec.Count("DeleteVertexArray"))
	assert.True(t, v.toneMapper.Disposed())
}

func TestResetKeepsBatches(t *testing.T) {
	f := newFixture(t)
	r := f.renderer
	m := f.material(t, "pbr", nil, nil)
	mesh := f.cube()
	inst, err := m.CreateInstance(nil)
	require.NoError(t, err)
	o, err := r.AddObject(mesh, 0, inst, ObjectProps{})
	require.NoError(t, err)
	_, err = r.AddView(f.camera, f.viewport, nil, ViewProps{})
	require.NoError(t, err)
	b := o.batch

	r.Reset()
	assert.Empty(t, r.Views())
	assert.Empty(t, r.Objects())
	assert.Zero(t, b.Len())
	assert.False(t, b.Disposed())

	o2, err := r.AddObject(mesh, 0, inst, ObjectProps{})
	require.NoError(t, err)
	assert.Same(t, b, o2.batch)
	assert.Equal(t, uint32(0), o2.sectionBlock.Element)
}

func TestSceneSwitchKeepsResourcesFlat(t *testing.T) {
	f := newFixture(t)
	r := f.renderer
	mesh := f.cube()

	// one scene lifetime: content owned by a single record, drawn once,
	// then reset and torn down
	cycle := func() {
		var content resource.Base
		content.Init(f.ctx.Resources, "content", nil)
		m := resource.Owned(&content, f.material(t, "pbr", nil, nil))
		inst, err := m.CreateInstance(nil)
		require.NoError(t, err)
		_, err = r.AddObject(mesh, 0, inst, ObjectProps{})
		require.NoError(t, err)
		pp := f.postProcess(t, "fxaa")
		content.Own(pp.Material())
		_, err = r.AddView(f.camera, f.viewport, nil, ViewProps{
			HDR:              true,
			LDRPostProcesses: []*materials.Instance{pp},
		})
		require.NoError(t, err)
		require.NoError(t, r.Draw())

		r.Reset()
		content.Dispose()
	}

	cycle()
	live := f.ctx.Resources.Live()
	f.rec.Reset()
	for i := 0; i < 10; i++ {
		cycle()
	}
	require.NoError(t, r.Draw())

	assert.Equal(t, live, f.ctx.Resources.Live())
	assert.Equal(t, f.rec.Count("CreateVertexArray"), f.rec.Count("DeleteVertexArray"))
	assert.Equal(t, f.rec.Count("LinkProgram"), f.rec.Count("DeleteProgram"))
	assert.Empty(t, r.batches)
	assert.Empty(t, r.objectBatches)
	assert.Len(t, r.setupDone, 1)
}

func TestDisposedMaterialBatchIsNotDrawn(t *testing.T) {
	f := newFixture(t)
	r := f.renderer
	m := f.material(t, "pbr", nil, nil)
	inst, err := m.CreateInstance(nil)
	require.NoError(t, err)
	o, err := r.AddObject(f.cube(), 0, inst, ObjectProps{})
	require.NoError(t, err)
	_, err = r.AddView(f.camera, f.viewport, nil, ViewProps{})
	require.NoError(t, err)

	m.Dispose()
	assert.True(t, o.batch.Disposed())

	f.rec.Reset()
	require.NoError(t, r.Draw())
	assert.Zero(t, f.rec.Count("DrawElements"))
	assert.NotContains(t, r.objectBatches, o.batch)
	assert.NotContains(t, r.setupDone, m)

	assert.NotPanics(t, func() { r.RemoveObject(o) })
	assert.Empty(t, r.Objects())
}

func TestResizeRecreatesTargets(t *testing.T) {
	f := newFixture(t)
	r := f.renderer
	old := r.hdr[0].rt
	require.NoError(t, r.Resize(128, 64))
	assert.True(t, old.Disposed())
	assert.False(t, r.hdr[0].rt.Disposed())
	assert.Equal(t, 128, r.hdr[0].color.Width())
	assert.Equal(t, 128, f.viewport.W)
}

func TestDisposeReleasesEverything(t *testing.T) {
	f := newFixture(t)
	f.rec.Reset()
	f.renderer.Dispose()
	// the four ping-pong targets; the lookup table target went at startup
	assert.Equal(t, 4, f.rec.Count("DeleteFramebuffer"))
	assert.True(t, f.renderer.BRDFLut().Disposed())
}
