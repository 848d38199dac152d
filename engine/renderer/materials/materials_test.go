package materials

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/batch"
	"github.com/spaghettifunk/lumen/engine/renderer/buffers"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu/gputest"
	"github.com/spaghettifunk/lumen/engine/renderer/meshes"
	"github.com/spaghettifunk/lumen/engine/renderer/shaders"
	"github.com/spaghettifunk/lumen/engine/renderer/state"
	"github.com/spaghettifunk/lumen/engine/renderer/textures"
)

var pbrFields = []buffers.Field{
	buffers.Float("materialBaseColor", 3, 1, 1, 1),
	buffers.Float("materialRoughness", 1, 0.5),
	buffers.Float("materialMetallic", 1),
}

func newProgram(t *testing.T, ctx *gpu.Context) *shaders.Program {
	t.Helper()
	vs, err := shaders.NewShader(ctx, gpu.VertexStage, []string{"v-test.glsl"}, "void main() {}")
	require.NoError(t, err)
	fs, err := shaders.NewShader(ctx, gpu.FragmentStage, []string{"f-test.glsl"}, "void main() {}")
	require.NoError(t, err)
	p, err := shaders.NewProgram(ctx, vs, fs)
	require.NoError(t, err)
	return p
}

func uniformUnits(rec *gputest.Recorder) map[string]int32 {
	out := map[string]int32{}
	for _, c := range rec.Named("Uniform1i") {
		out[rec.UniformName(c.Args[0].(int32))] = c.Args[1].(int32)
	}
	return out
}

func TestMaterialAssignsTextureUnits(t *testing.T) {
	rec := gputest.NewRecorder()
	rec.MissingUniforms["irradianceMapTexture"] = true
	rec.MissingUniforms["unusedTexture"] = true
	ctx := gpu.NewContext(rec)
	st := state.New(ctx)

	m, err := New(ctx, st, newProgram(t, ctx), nil, []TextureSlot{
		{Name: "albedo", Uniform: "albedoTexture"},
		{Name: "unused", Uniform: "unusedTexture"},
		{Name: "normal", Uniform: "normalTexture"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]int32{
		"envMapTexture":     ReflectionMapUnit,
		"iblBrdfLutTexture": BRDFLutUnit,
		"albedoTexture":     3,
		"normalTexture":     4,
	}, uniformUnits(rec))

	unit, ok := m.TextureUnit("normal")
	assert.True(t, ok)
	assert.Equal(t, 4, unit)
	_, ok = m.TextureUnit("unused")
	assert.False(t, ok)
	assert.Nil(t, m.Params())
	assert.Same(t, m.Program(), st.Program())
}

func TestCreateInstanceAppliesOverrides(t *testing.T) {
	ctx := gpu.NewContext(gputest.NewRecorder())
	m, err := New(ctx, state.New(ctx), newProgram(t, ctx), pbrFields, nil)
	require.NoError(t, err)

	a, err := m.CreateInstance(map[string]any{"materialRoughness": 0.25, "materialBaseColor": mgl32.Vec3{1, 0.5, 0}})
	require.NoError(t, err)
	b, err := m.CreateInstance(nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.Params().Element, b.Params().Element)
	assert.Equal(t, float32(0.25), a.Params().Float("materialRoughness"))
	assert.Equal(t, mgl32.Vec3{1, 0.5, 0}, a.Params().Vec3("materialBaseColor"))
	assert.Equal(t, float32(0.5), b.Params().Float("materialRoughness"))
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, b.Params().Vec3("materialBaseColor"))

	_, err = m.CreateInstance(map[string]any{"materialSheen": 1})
	assert.ErrorIs(t, err, core.ErrUnknownField)
}

func TestInstanceDisposeFreesElement(t *testing.T) {
	ctx := gpu.NewContext(gputest.NewRecorder())
	m, err := New(ctx, state.New(ctx), newProgram(t, ctx), pbrFields, nil)
	require.NoError(t, err)

	a, err := m.CreateInstance(nil)
	require.NoError(t, err)
	element := a.Params().Element
	a.Dispose()
	a.Dispose()
	assert.False(t, m.Params().Live(element))

	b, err := m.CreateInstance(nil)
	require.NoError(t, err)
	assert.Equal(t, element, b.Params().Element)
}

func TestMaterialDisposeReleasesInstances(t *testing.T) {
	ctx := gpu.NewContext(gputest.NewRecorder())
	m, err := New(ctx, state.New(ctx), newProgram(t, ctx), pbrFields, nil)
	require.NoError(t, err)
	inst, err := m.CreateInstance(nil)
	require.NoError(t, err)

	m.Dispose()
	assert.True(t, inst.Disposed())
	assert.True(t, m.Params().Disposed())
}

func TestDrawBatchItemBindingOrder(t *testing.T) {
	ctx := gpu.NewContext(gputest.NewRecorder())
	m, err := New(ctx, state.New(ctx), newProgram(t, ctx), pbrFields, []TextureSlot{{Name: "albedo", Uniform: "albedoTexture"}})
	require.NoError(t, err)
	inst, err := m.CreateInstance(nil)
	require.NoError(t, err)

	section, err := buffers.NewUniformBuffer(ctx, buffers.Float("matrixM", 16))
	require.NoError(t, err)
	extra := []batch.UniformBinding{{Buffer: section, Element: section.Allocate(), BindPoint: 1}}

	item := inst.CreateDrawBatchItem(meshes.Section{PrimitiveCount: 1}, 2, extra, 0)
	require.Len(t, item.Uniforms, 2)
	assert.Same(t, m.Params(), item.Uniforms[0].Buffer)
	assert.Equal(t, uint32(2), item.Uniforms[0].BindPoint)
	assert.Equal(t, extra[0], item.Uniforms[1])

	require.Len(t, item.Textures, 1)
	assert.Nil(t, item.Textures[0].Texture)
	tex := textures.NewTexture2D(ctx, 1, 1, textures.Options{})
	require.NoError(t, inst.SetTexture("albedo", tex))
	assert.Same(t, tex, item.Textures[0].Texture)
	assert.Equal(t, 3, item.Textures[0].Unit)

	assert.ErrorIs(t, inst.SetTexture("roughness", tex), core.ErrUnknownTextureSlot)
}

func TestInstanceWithoutParamsPassesExtraThrough(t *testing.T) {
	ctx := gpu.NewContext(gputest.NewRecorder())
	m, err := New(ctx, state.New(ctx), newProgram(t, ctx), nil, nil)
	require.NoError(t, err)
	inst, err := m.CreateInstance(nil)
	require.NoError(t, err)
	assert.Nil(t, inst.Params())

	item := inst.CreateDrawBatchItem(meshes.Section{}, 2, nil, 0)
	assert.Empty(t, item.Uniforms)
}
