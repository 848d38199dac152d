// Package scene orchestrates the per-frame pipeline: camera blocks, object
// batches, image based lighting and the HDR and LDR post-process chains.
package scene

import (
	"fmt"
	"slices"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/batch"
	"github.com/spaghettifunk/lumen/engine/renderer/buffers"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/materials"
	"github.com/spaghettifunk/lumen/engine/renderer/meshes"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
	"github.com/spaghettifunk/lumen/engine/renderer/shaders"
	"github.com/spaghettifunk/lumen/engine/renderer/state"
	"github.com/spaghettifunk/lumen/engine/renderer/textures"
)

// Uniform block bind points shared by every program drawn by the renderer.
const (
	ViewBlockBindPoint      uint32 = 0
	SectionBlockBindPoint   uint32 = 1
	MaterialParamsBindPoint uint32 = 2
)

// Texture slots every post-process material declares.
const (
	InputColorSlot = "ppInputColor"
	InputDepthSlot = "ppInputDepth"
)

var PostProcessSlots = []materials.TextureSlot{
	{Name: InputColorSlot, Uniform: "sceneColorTexture"},
	{Name: InputDepthSlot, Uniform: "sceneDepthTexture"},
}

var (
	viewBlockFields = []buffers.Field{
		buffers.Float("projectionViewMatrix", 16),
		buffers.Float("invProjectionViewMatrix", 16),
		buffers.Float("viewMatrix", 16),
		buffers.Float("invViewMatrix", 16),
		buffers.Float("projectionMatrix", 16),
		buffers.Float("invProjectionMatrix", 16),
		buffers.Float("cameraPosWs", 3),
	}
	sectionBlockFields = []buffers.Field{
		buffers.Float("modelMatrix", 16),
		buffers.Float("invModelMatrix", 16),
		buffers.Float("normalMatrix", 9),
	}
	envMapFields = []buffers.Field{
		buffers.Float("envMapMipLevel", 1),
	}
	ToneMapperFields = []buffers.Field{
		buffers.Float("exposure", 1, 1),
		buffers.Float("gamma", 1, 2.2),
	}
)

// Programs lists every program the renderer links itself, for preloading.
var Programs = []shaders.ProgramName{
	{Vertex: "screenquad", Fragment: "envmap"},
	{Vertex: "screenquad", Fragment: "irradiance"},
	{Vertex: "screenquad", Fragment: "reflection"},
	{Vertex: "screenquad", Fragment: "tonemapper"},
	{Vertex: "screenquad", Fragment: "brdf-lut"},
}

// postTarget is one intermediate color and depth pair. The render target
// owns both textures.
type postTarget struct {
	rt    *textures.RenderTarget
	color *textures.Texture2D
	depth *textures.Texture2D
}

type batchKey struct {
	material *materials.Material
	mesh     *meshes.Mesh
}

type environment struct {
	source     *textures.TextureCube
	irradiance *textures.TextureCube
	reflection *textures.TextureCube
}

/**
 * @brief Renderer owns the uniform blocks, batches and intermediate targets
 * of the scene pipeline. Scenes register views and objects with it and the
 * frame loop calls Draw once per frame.
 */
type Renderer struct {
	resource.Base

	ctx          *gpu.Context
	state        *state.RendererState
	shaders      *shaders.Manager
	mainViewport *components.Viewport

	envProgram *shaders.Program
	screenQuad *meshes.Mesh
	brdfLut    *textures.Texture2D

	viewBlocks    *buffers.UniformBuffer
	sectionBlocks *buffers.UniformBuffer
	envParams     *buffers.UniformBuffer

	toneMapper      *materials.Material
	toneMapperBatch *batch.DrawBatch

	env *environment

	hdr [2]postTarget
	ldr [2]postTarget

	batches       map[batchKey]*batch.DrawBatch
	objectBatches []*batch.DrawBatch
	batchOwners   map[*batch.DrawBatch][]*Object
	setupDone     map[*materials.Material]bool

	views   []*View
	objects []*Object
}

func New(ctx *gpu.Context, st *state.RendererState, sm *shaders.Manager, mainViewport *components.Viewport) (*Renderer, error) {
	r := &Renderer{
		ctx:          ctx,
		state:        st,
		shaders:      sm,
		mainViewport: mainViewport,
		batches:      map[batchKey]*batch.DrawBatch{},
		batchOwners:  map[*batch.DrawBatch][]*Object{},
		setupDone:    map[*materials.Material]bool{},
	}
	r.Init(ctx.Resources, "SceneRenderer", r.release)
	if err := r.init(); err != nil {
		r.Dispose()
		return nil, fmt.Errorf("failed to create scene renderer: %w", err)
	}
	core.LogInfo("scene renderer ready at %dx%d", mainViewport.W, mainViewport.H)
	return r, nil
}

func (r *Renderer) init() error {
	var err error
	if r.envProgram, err = r.program("screenquad", "envmap"); err != nil {
		return err
	}
	r.envProgram.BindUniformBlock("ViewBlock", ViewBlockBindPoint)
	r.envProgram.BindUniformBlock("Properties", MaterialParamsBindPoint)

	r.screenQuad = resource.Owned(&r.Base, meshes.NewScreenQuad(r.ctx))
	r.screenQuad.CreateRenderData()

	if r.brdfLut, err = r.generateBRDFLut(); err != nil {
		return err
	}

	if r.viewBlocks, err = r.uniformBuffer(viewBlockFields); err != nil {
		return err
	}
	if r.sectionBlocks, err = r.uniformBuffer(sectionBlockFields); err != nil {
		return err
	}
	if r.envParams, err = r.uniformBuffer(envMapFields); err != nil {
		return err
	}
	r.envParams.View(r.envParams.Allocate()).SetFloat("envMapMipLevel", 0)

	toneMapperProgram, err := r.program("screenquad", "tonemapper")
	if err != nil {
		return err
	}
	toneMapper, err := materials.New(r.ctx, r.state, toneMapperProgram, ToneMapperFields, PostProcessSlots)
	if err != nil {
		return err
	}
	r.toneMapper = resource.Owned(&r.Base, toneMapper)
	r.setupMaterialBlocks(r.toneMapper)

	if err := r.createPostTargets(); err != nil {
		return err
	}

	toneMapperBatch, err := batch.New(r.ctx, r.state, toneMapperProgram, r.screenQuad)
	if err != nil {
		return err
	}
	r.toneMapperBatch = resource.Owned(&r.Base, toneMapperBatch)
	r.state.Invalidate()
	return nil
}

// release disposes the batches built for scene materials, which those
// materials own.
func (r *Renderer) release() {
	for _, b := range r.batches {
		b.Dispose()
	}
	clear(r.batches)
	clear(r.batchOwners)
	clear(r.setupDone)
	r.objectBatches = nil
}

// program links a program the renderer keeps for its lifetime.
func (r *Renderer) program(vertex, fragment string) (*shaders.Program, error) {
	p, err := r.shaders.Program(vertex, fragment)
	if err != nil {
		return nil, err
	}
	return resource.Owned(&r.Base, p), nil
}

func (r *Renderer) uniformBuffer(fields []buffers.Field) (*buffers.UniformBuffer, error) {
	ubo, err := buffers.NewUniformBuffer(r.ctx, fields...)
	if err != nil {
		return nil, err
	}
	return resource.Owned(&r.Base, ubo), nil
}

func (r *Renderer) newPostTarget(format gpu.PixelFormat) (postTarget, error) {
	opts := textures.Options{Wrap: gpu.WrapClamp, Filter: gpu.FilterNearest, Format: format}
	color := textures.NewTexture2D(r.ctx, r.mainViewport.W, r.mainViewport.H, opts)
	opts.Format = gpu.FormatDepth24
	depth := textures.NewTexture2D(r.ctx, r.mainViewport.W, r.mainViewport.H, opts)

	rt, err := textures.NewRenderTarget(r.ctx, textures.ColorAttachment(0, color), textures.DepthAttachment(depth))
	if err != nil {
		color.Dispose()
		depth.Dispose()
		return postTarget{}, err
	}
	rt.Own(color)
	rt.Own(depth)
	r.Own(rt)
	return postTarget{rt: rt, color: color, depth: depth}, nil
}

func (r *Renderer) createPostTargets() error {
	for i := range r.hdr {
		t, err := r.newPostTarget(gpu.FormatRGBA16F)
		if err != nil {
			return fmt.Errorf("hdr target: %w", err)
		}
		r.hdr[i] = t
	}
	for i := range r.ldr {
		t, err := r.newPostTarget(gpu.FormatRGBA8)
		if err != nil {
			return fmt.Errorf("ldr target: %w", err)
		}
		r.ldr[i] = t
	}
	return nil
}

// Resize recreates the intermediate targets at the new size of the main
// viewport.
func (r *Renderer) Resize(width, height int) error {
	*r.mainViewport = components.NewViewport(0, 0, width, height)
	for _, t := range append(r.hdr[:], r.ldr[:]...) {
		if t.rt != nil {
			t.rt.Dispose()
		}
	}
	r.hdr, r.ldr = [2]postTarget{}, [2]postTarget{}
	err := r.createPostTargets()
	r.state.Invalidate()
	if err != nil {
		return err
	}
	core.LogDebug("scene renderer resized to %dx%d", width, height)
	return nil
}

// setupMaterialBlocks points the standard blocks of a material's program at
// the renderer's bind points. Programs without a block ignore it.
func (r *Renderer) setupMaterialBlocks(m *materials.Material) {
	if r.setupDone[m] {
		return
	}
	p := m.Program()
	p.BindUniformBlock("ViewBlock", ViewBlockBindPoint)
	p.BindUniformBlock("SectionBlock", SectionBlockBindPoint)
	p.BindUniformBlock("MaterialProperties", MaterialParamsBindPoint)
	r.setupDone[m] = true
}

/**
 * @brief Returns the batch for a material and mesh, creating it on first use.
 * Object batches are drawn by the main pass; others are only used for one-off
 * draws. The material owns the batch, so disposing it releases the vertex
 * array, and pruneBatches later forgets the entry.
 */
func (r *Renderer) drawBatch(m *materials.Material, mesh *meshes.Mesh, objects bool) (*batch.DrawBatch, error) {
	r.setupMaterialBlocks(m)
	key := batchKey{material: m, mesh: mesh}
	if b, ok := r.batches[key]; ok {
		return b, nil
	}
	b, err := batch.New(r.ctx, r.state, m.Program(), mesh)
	if err != nil {
		return nil, err
	}
	m.Own(b)
	r.batches[key] = b
	if objects {
		r.objectBatches = append(r.objectBatches, b)
	}
	return b, nil
}

// pruneBatches forgets batches whose material or mesh has been disposed, and
// the block setup of disposed materials.
func (r *Renderer) pruneBatches() {
	for key, b := range r.batches {
		if key.material.Disposed() || key.mesh.Disposed() {
			b.Dispose()
			delete(r.batches, key)
			delete(r.batchOwners, b)
		}
	}
	r.objectBatches = slices.DeleteFunc(r.objectBatches, (*batch.DrawBatch).Disposed)
	for m := range r.setupDone {
		if m.Disposed() {
			delete(r.setupDone, m)
		}
	}
}

// BRDFLut is the lookup table shared by every PBR material.
func (r *Renderer) BRDFLut() *textures.Texture2D {
	return r.brdfLut
}

// ToneMapper is the material HDR views resolve through.
func (r *Renderer) ToneMapper() *materials.Material {
	return r.toneMapper
}

func (r *Renderer) Views() []*View {
	return r.views
}

func (r *Renderer) Objects() []*Object {
	return r.objects
}
