package shaders

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu/gputest"
)

type memSources struct {
	mu    sync.Mutex
	files map[string]string
	reads map[string]int
}

func newMemSources(files map[string]string) *memSources {
	return &memSources{files: files, reads: map[string]int{}}
}

func (s *memSources) Text(p string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[p]++
	text, ok := s.files[p]
	if !ok {
		return "", fmt.Errorf("%s: %w", p, core.ErrAssetNotFound)
	}
	return text, nil
}

func TestPreprocessExpandsIncludesWithLineDirectives(t *testing.T) {
	files := map[string]string{
		"common.glsl": "float a;\n#include \"inner.glsl\"\nfloat b;",
		"inner.glsl":  "float c;",
	}
	sources := []string{"v-main.glsl"}
	out, err := preprocess("void main() {}\n#include \"common.glsl\"\nint x;", 0, &sources,
		func(p string) (string, error) { return files[p], nil }, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"v-main.glsl", "common.glsl", "inner.glsl"}, sources)
	want := strings.Join([]string{
		"#line 1 0",
		"void main() {}",
		"#line 1 1",
		"float a;",
		"#line 1 2",
		"float c;",
		"#line 3 1",
		"float b;",
		"#line 3 0",
		"int x;",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestPreprocessRejectsDeepIncludes(t *testing.T) {
	sources := []string{"f-loop.glsl"}
	_, err := preprocess("#include \"loop.glsl\"", 0, &sources,
		func(string) (string, error) { return "#include \"loop.glsl\"", nil }, 0)
	assert.ErrorIs(t, err, core.ErrIncludeDepth)
}

func TestRewriteLog(t *testing.T) {
	sources := []string{"f-pbr.glsl", "lighting.glsl"}
	log := strings.Join([]string{
		"ERROR: 1:12: 'foo' : undeclared identifier",
		"0:7(3): error: syntax error",
		"1(4) : error C0000: bad token",
		"unrelated line",
		"ERROR: 9:1: out of range source",
	}, "\n")
	want := strings.Join([]string{
		"ERROR: lighting.glsl:12: 'foo' : undeclared identifier",
		"f-pbr.glsl:7(3): error: syntax error",
		"lighting.glsl(4) : error C0000: bad token",
		"unrelated line",
		"ERROR: 9:1: out of range source",
	}, "\n")
	assert.Equal(t, want, RewriteLog(log, sources))
}

func TestManagerCachesStagesAndLinksFreshPrograms(t *testing.T) {
	src := newMemSources(map[string]string{
		"shaders/v-quad.glsl": "void main() {}",
		"shaders/f-blit.glsl": "#include \"util.glsl\"\nvoid main() {}",
		"shaders/util.glsl":   "float util;",
	})
	rec := gputest.NewRecorder()
	m := NewManager(gpu.NewContext(rec), src)

	p1, err := m.Program("quad", "blit")
	require.NoError(t, err)
	p2, err := m.Program("quad", "blit")
	require.NoError(t, err)

	assert.NotEqual(t, p1.Handle(), p2.Handle())
	assert.Same(t, p1.Vertex(), p2.Vertex())
	assert.Equal(t, 2, rec.Count("CompileShader"))
	assert.Equal(t, 2, rec.Count("LinkProgram"))
	assert.Equal(t, []string{"f-blit.glsl", "util.glsl"}, p1.Fragment().Sources())
}

func TestManagerCompileErrorIsSourceMapped(t *testing.T) {
	src := newMemSources(map[string]string{
		"shaders/v-bad.glsl":  "#include \"broken.glsl\"\nvoid main() {}",
		"shaders/broken.glsl": "BROKEN",
	})
	rec := gputest.NewRecorder()
	rec.CompileFailures["BROKEN"] = "ERROR: 1:1: syntax error"
	m := NewManager(gpu.NewContext(rec), src)

	_, err := m.VertexShader("bad")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "v-bad.glsl", ce.Name)
	assert.Equal(t, "ERROR: broken.glsl:1: syntax error", ce.Log)
}

func TestManagerLinkError(t *testing.T) {
	src := newMemSources(map[string]string{
		"shaders/v-a.glsl": "void main() {}",
		"shaders/f-b.glsl": "void main() {}",
	})
	rec := gputest.NewRecorder()
	rec.LinkFailure = "varying mismatch"
	m := NewManager(gpu.NewContext(rec), src)

	_, err := m.Program("a", "b")
	var le *LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "varying mismatch", le.Log)
}

func TestManagerPreloadFetchesOnce(t *testing.T) {
	src := newMemSources(map[string]string{
		"shaders/v-scene.glsl": "#include \"common.glsl\"\nvoid main() {}",
		"shaders/f-pbr.glsl":   "#include \"common.glsl\"\nvoid main() {}",
		"shaders/f-flat.glsl":  "void main() {}",
		"shaders/common.glsl":  "float common;",
	})
	rec := gputest.NewRecorder()
	m := NewManager(gpu.NewContext(rec), src)

	err := m.Preload(context.Background(),
		ProgramName{Vertex: "scene", Fragment: "pbr"},
		ProgramName{Vertex: "scene", Fragment: "flat"},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Count("CompileShader"))

	_, err = m.Program("scene", "flat")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Count("CompileShader"))
	assert.Equal(t, 1, src.reads["shaders/v-scene.glsl"])
}

func TestManagerPreloadMissingSource(t *testing.T) {
	m := NewManager(gpu.NewContext(gputest.NewRecorder()), newMemSources(map[string]string{}))
	err := m.Preload(context.Background(), ProgramName{Vertex: "nope", Fragment: "nope"})
	assert.ErrorIs(t, err, core.ErrAssetNotFound)
}

func TestManagerInvalidateRecompilesDependents(t *testing.T) {
	src := newMemSources(map[string]string{
		"shaders/v-scene.glsl": "#include \"common.glsl\"\nvoid main() {}",
		"shaders/f-pbr.glsl":   "void main() {}",
		"shaders/common.glsl":  "float common;",
	})
	rec := gputest.NewRecorder()
	m := NewManager(gpu.NewContext(rec), src)
	_, err := m.Program("scene", "pbr")
	require.NoError(t, err)
	vs, _ := m.VertexShader("scene")

	assert.Equal(t, 1, m.Invalidate("shaders/common.glsl"))
	assert.True(t, vs.Disposed())

	_, err = m.Program("scene", "pbr")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Count("CompileShader"))
	assert.Equal(t, 2, src.reads["shaders/common.glsl"])
}

func TestProgramCachesLocationsAndSkipsMissingBlocks(t *testing.T) {
	src := newMemSources(map[string]string{
		"shaders/v-a.glsl": "void main() {}",
		"shaders/f-a.glsl": "void main() {}",
	})
	rec := gputest.NewRecorder()
	rec.MissingBlocks["MaterialProperties"] = true
	m := NewManager(gpu.NewContext(rec), src)
	p, err := m.Program("a", "a")
	require.NoError(t, err)

	assert.Equal(t, int32(0), p.AttribLocation("aPosition"))
	assert.Equal(t, int32(-1), p.AttribLocation("aColour"))
	loc := p.UniformLocation("uTexture")
	assert.Equal(t, loc, p.UniformLocation("uTexture"))

	p.BindUniformBlock("ViewBlock", 0)
	p.BindUniformBlock("MaterialProperties", 2)
	calls := rec.Named("UniformBlockBinding")
	require.Len(t, calls, 1)
	assert.Equal(t, uint32(0), calls[0].Args[2])
}
