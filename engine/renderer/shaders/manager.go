package shaders

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

// Header is prepended to every stage.
const Header = "#version 410 core"

// SourceRoot is the asset directory shader files are read from.
const SourceRoot = "shaders"

// SourceProvider returns the text of an asset.
type SourceProvider interface {
	Text(path string) (string, error)
}

// ProgramName names a vertex and fragment stage pair, without the v-/f-
// prefixes and the .glsl extension.
type ProgramName struct {
	Vertex, Fragment string
}

func VertexFile(name string) string {
	return "v-" + name + ".glsl"
}

func FragmentFile(name string) string {
	return "f-" + name + ".glsl"
}

/**
 * @brief Manager compiles stages from shader files and caches them by name.
 * Source text may be fetched from any goroutine; compiling and linking must
 * happen on the render thread.
 */
type Manager struct {
	ctx      *gpu.Context
	provider SourceProvider

	mu      sync.Mutex
	sources map[string]string

	vertex   map[string]*Shader
	fragment map[string]*Shader
}

func NewManager(ctx *gpu.Context, provider SourceProvider) *Manager {
	return &Manager{
		ctx:      ctx,
		provider: provider,
		sources:  map[string]string{},
		vertex:   map[string]*Shader{},
		fragment: map[string]*Shader{},
	}
}

func (m *Manager) source(file string) (string, error) {
	m.mu.Lock()
	text, ok := m.sources[file]
	m.mu.Unlock()
	if ok {
		return text, nil
	}
	text, err := m.provider.Text(path.Join(SourceRoot, file))
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.sources[file] = text
	m.mu.Unlock()
	return text, nil
}

// fetch loads file and everything it includes into the source cache.
func (m *Manager) fetch(file string, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("%s: %w", file, core.ErrIncludeDepth)
	}
	text, err := m.source(file)
	if err != nil {
		return err
	}
	for _, inc := range includes(text) {
		if err := m.fetch(inc, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) stage(stage gpu.ShaderStage, name string) (*Shader, error) {
	cache, file := m.vertex, VertexFile(name)
	if stage == gpu.FragmentStage {
		cache, file = m.fragment, FragmentFile(name)
	}
	if s, ok := cache[name]; ok && !s.Disposed() {
		return s, nil
	}
	text, err := m.source(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load shader %s: %w", file, err)
	}
	sources := []string{file}
	expanded, err := preprocess(text, 0, &sources, m.source, 0)
	if err != nil {
		return nil, err
	}
	s, err := NewShader(m.ctx, stage, sources, Header+"\n"+expanded)
	if err != nil {
		return nil, err
	}
	core.LogDebug("compiled %s shader %s (%d sources)", stage, file, len(sources))
	cache[name] = s
	return s, nil
}

func (m *Manager) VertexShader(name string) (*Shader, error) {
	return m.stage(gpu.VertexStage, name)
}

func (m *Manager) FragmentShader(name string) (*Shader, error) {
	return m.stage(gpu.FragmentStage, name)
}

// Program links a new program from cached or freshly compiled stages. The
// caller owns the returned program.
func (m *Manager) Program(vertex, fragment string) (*Program, error) {
	vs, err := m.VertexShader(vertex)
	if err != nil {
		return nil, err
	}
	fs, err := m.FragmentShader(fragment)
	if err != nil {
		return nil, err
	}
	return NewProgram(m.ctx, vs, fs)
}

/**
 * @brief Fetches the sources of the given programs concurrently and then
 * compiles every stage on the calling goroutine.
 */
func (m *Manager) Preload(ctx context.Context, programs ...ProgramName) error {
	start := time.Now()
	files := map[string]struct{}{}
	for _, p := range programs {
		files[VertexFile(p.Vertex)] = struct{}{}
		files[FragmentFile(p.Fragment)] = struct{}{}
	}
	g, gctx := errgroup.WithContext(ctx)
	for file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return m.fetch(file, 0)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, p := range programs {
		if _, err := m.VertexShader(p.Vertex); err != nil {
			return err
		}
		if _, err := m.FragmentShader(p.Fragment); err != nil {
			return err
		}
	}
	core.LogInfo("preloaded %d shader programs in %s", len(programs), time.Since(start))
	return nil
}

/**
 * @brief Forgets a changed file, given relative to the asset root or to the
 * shader directory. Cached stages built from it are disposed
 * so the next request compiles them again. Programs already linked keep
 * working until their owners replace them.
 * @return The number of stages dropped.
 */
func (m *Manager) Invalidate(file string) int {
	file = strings.TrimPrefix(file, SourceRoot+"/")
	m.mu.Lock()
	delete(m.sources, file)
	m.mu.Unlock()

	dropped := 0
	for _, cache := range []map[string]*Shader{m.vertex, m.fragment} {
		for name, s := range cache {
			if s.Uses(file) {
				s.Dispose()
				delete(cache, name)
				dropped++
			}
		}
	}
	if dropped > 0 {
		core.LogInfo("shader %s changed, dropped %d compiled stages", file, dropped)
	}
	return dropped
}

// Dispose releases every cached stage.
func (m *Manager) Dispose() {
	for _, cache := range []map[string]*Shader{m.vertex, m.fragment} {
		for name, s := range cache {
			s.Dispose()
			delete(cache, name)
		}
	}
}
