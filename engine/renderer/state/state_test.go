package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/buffers"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu/gputest"
	"github.com/spaghettifunk/lumen/engine/renderer/shaders"
	"github.com/spaghettifunk/lumen/engine/renderer/textures"
)

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

func TestSetProgramSkipsRepeats(t *testing.T) {
	rec := gputest.NewRecorder()
	ctx := gpu.NewContext(rec)
	p := newProgram(t, ctx)
	s := New(ctx)

	rec.Reset()
	require.NoError(t, s.SetProgram(p))
	require.NoError(t, s.SetProgram(p))
	assert.Equal(t, 1, rec.Count("UseProgram"))
	assert.Same(t, p, s.Program())

	require.NoError(t, s.SetProgram(nil))
	calls := rec.Named("UseProgram")
	require.Len(t, calls, 2)
	assert.Equal(t, []any{gpu.NoHandle}, calls[1].Args)
}

func TestSetDisposedProgramFails(t *testing.T) {
	ctx := gpu.NewContext(gputest.NewRecorder())
	p := newProgram(t, ctx)
	p.Dispose()
	assert.ErrorIs(t, New(ctx).SetProgram(p), core.ErrDisposedProgram)
}

func TestSetDisposedVertexArrayFails(t *testing.T) {
	ctx := gpu.NewContext(gputest.NewRecorder())
	va := buffers.NewVertexArray(ctx, buffers.VertexArrayLayout{})
	va.Dispose()
	assert.ErrorIs(t, New(ctx).SetVertexArray(va), core.ErrDisposedVertexArray)
}

func TestInvalidateReissues(t *testing.T) {
	rec := gputest.NewRecorder()
	ctx := gpu.NewContext(rec)
	p := newProgram(t, ctx)
	s := New(ctx)

	require.NoError(t, s.SetProgram(p))
	s.SetDepthStencil(DepthLessWrite)
	rec.Reset()

	s.Invalidate()
	require.NoError(t, s.SetProgram(p))
	s.SetDepthStencil(DepthLessWrite)
	assert.Equal(t, 1, rec.Count("UseProgram"))
	assert.Equal(t, 1, rec.Count("DepthFunc"))
}

func TestDepthStencil(t *testing.T) {
	rec := gputest.NewRecorder()
	s := New(gpu.NewContext(rec))

	s.SetDepthStencil(DepthLessWrite)
	s.SetDepthStencil(DepthLessWrite)
	require.Len(t, rec.Calls, 3)
	assert.Equal(t, gputest.Call{Name: "Enable", Args: []any{gpu.DepthTest}}, rec.Calls[0])
	assert.Equal(t, gputest.Call{Name: "DepthFunc", Args: []any{gpu.DepthLess}}, rec.Calls[1])
	assert.Equal(t, gputest.Call{Name: "DepthMask", Args: []any{true}}, rec.Calls[2])

	rec.Reset()
	s.SetDepthStencil(nil)
	assert.Equal(t, []any{gpu.DepthTest}, rec.Named("Disable")[0].Args)
	assert.Equal(t, []any{false}, rec.Named("DepthMask")[0].Args)

	// equal contents, different identity: issued again
	rec.Reset()
	s.SetDepthStencil(DepthLessWrite)
	s.SetDepthStencil(&DepthStencilState{DepthFunc: gpu.DepthLess, DepthWrite: true})
	assert.Equal(t, 2, rec.Count("DepthFunc"))
}

func TestCullFace(t *testing.T) {
	rec := gputest.NewRecorder()
	s := New(gpu.NewContext(rec))

	s.SetCullFace(CullBack)
	s.SetCullFace(CullBack)
	assert.Equal(t, 1, rec.Count("Enable"))
	assert.Equal(t, []any{gpu.CullBack}, rec.Named("CullFace")[0].Args)

	s.SetCullFace(nil)
	assert.Equal(t, []any{gpu.CullFace}, rec.Named("Disable")[0].Args)
}

func TestRenderTargetNilSelectsWindow(t *testing.T) {
	rec := gputest.NewRecorder()
	s := New(gpu.NewContext(rec))
	s.SetRenderTarget(nil)
	s.SetRenderTarget(nil)
	calls := rec.Named("BindFramebuffer")
	require.Len(t, calls, 1)
	assert.Equal(t, []any{gpu.NoHandle}, calls[0].Args)
}

func TestTextureUnits(t *testing.T) {
	rec := gputest.NewRecorder()
	ctx := gpu.NewContext(rec)
	tex := textures.NewTexture2D(ctx, 4, 4, textures.Options{})
	cube := textures.NewTextureCube(ctx, 4, 4, textures.Options{})
	s := New(ctx)
	rec.Reset()

	require.NoError(t, s.SetTexture(3, tex))
	require.NoError(t, s.SetTexture(3, tex))
	assert.Equal(t, 1, rec.Count("BindTexture"))
	assert.Equal(t, []any{3}, rec.Named("ActiveTexture")[0].Args)

	require.NoError(t, s.SetTexture(5, cube))
	rec.Reset()

	// unbinding an empty unit issues nothing
	require.NoError(t, s.SetTexture(7, nil))
	assert.Empty(t, rec.Calls)

	s.UnbindAllTextures()
	binds := rec.Named("BindTexture")
	require.Len(t, binds, 2)
	assert.Equal(t, []any{gpu.Texture2D, gpu.NoHandle}, binds[0].Args)
	assert.Equal(t, []any{gpu.TextureCubeMap, gpu.NoHandle}, binds[1].Args)
	assert.Nil(t, s.Texture(3))
	assert.Nil(t, s.Texture(5))
}

func TestTypedNilTextureUnbinds(t *testing.T) {
	rec := gputest.NewRecorder()
	ctx := gpu.NewContext(rec)
	tex := textures.NewTexture2D(ctx, 4, 4, textures.Options{})
	s := New(ctx)
	require.NoError(t, s.SetTexture(0, tex))

	var none *textures.Texture2D
	require.NoError(t, s.SetTexture(0, none))
	assert.Nil(t, s.Texture(0))
}

func TestTextureUnitRange(t *testing.T) {
	s := New(gpu.NewContext(gputest.NewRecorder()))
	assert.NoError(t, s.SetTexture(MaxTextureUnits-1, nil))
	assert.ErrorIs(t, s.SetTexture(MaxTextureUnits, nil), core.ErrTextureUnitOutOfRange)
	assert.ErrorIs(t, s.SetTexture(-1, nil), core.ErrTextureUnitOutOfRange)
}
