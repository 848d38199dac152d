package scene

import (
	"slices"

	"github.com/google/uuid"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/batch"
	"github.com/spaghettifunk/lumen/engine/renderer/buffers"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/materials"
	"github.com/spaghettifunk/lumen/engine/renderer/meshes"
	"github.com/spaghettifunk/lumen/engine/renderer/state"
	"github.com/spaghettifunk/lumen/engine/renderer/textures"
)

// ViewProps configures the pipeline of one view. A zero DrawFlags draws
// every object.
type ViewProps struct {
	DepthStencilOverride *state.DepthStencilState
	CullFaceOverride     *state.CullFaceState
	HDR                  bool
	DrawEnvMap           bool
	DrawFlags            uint32
	HDRPostProcesses     []*materials.Instance
	LDRPostProcesses     []*materials.Instance
}

/**
 * @brief A camera rendering into a target through a pipeline. A nil Target
 * is the window. Viewport is shared, so resizing the main viewport resizes
 * every view that uses it.
 */
type View struct {
	ID       uuid.UUID
	Camera   *components.Camera
	Viewport *components.Viewport
	Target   *textures.RenderTarget
	Props    ViewProps

	// ToneMapperParams holds exposure and gamma of HDR views; nil otherwise.
	ToneMapperParams *buffers.View

	viewBlock  *buffers.View
	toneMapper *materials.Instance
	envBatch   *batch.DrawBatch
}

type ObjectProps struct {
	DrawFlags uint32
}

// Object is one mesh section drawn with a material instance.
type Object struct {
	ID       uuid.UUID
	Mesh     *meshes.Mesh
	Section  int
	Material *materials.Instance
	Props    ObjectProps

	batch        *batch.DrawBatch
	itemIndex    int
	sectionBlock *buffers.View
}

// AddView registers a view. Views are drawn in registration order.
func (r *Renderer) AddView(camera *components.Camera, viewport *components.Viewport, target *textures.RenderTarget, props ViewProps) (*View, error) {
	v := &View{
		ID:        uuid.New(),
		Camera:    camera,
		Viewport:  viewport,
		Target:    target,
		Props:     props,
		viewBlock: r.viewBlocks.View(r.viewBlocks.Allocate()),
	}
	envBatch, err := batch.New(r.ctx, r.state, r.envProgram, r.screenQuad)
	if err != nil {
		r.viewBlocks.Free(v.viewBlock.Element)
		return nil, err
	}
	v.envBatch = envBatch
	r.Own(envBatch)

	if props.HDR {
		tm, err := r.toneMapper.CreateInstance(nil)
		if err != nil {
			r.releaseView(v)
			return nil, err
		}
		v.toneMapper = tm
		v.ToneMapperParams = tm.Params()
	}
	r.updateEnvMapDraw(v)
	for _, pp := range props.HDRPostProcesses {
		r.setupMaterialBlocks(pp.Material())
	}
	for _, pp := range props.LDRPostProcesses {
		r.setupMaterialBlocks(pp.Material())
	}
	r.views = append(r.views, v)
	core.LogDebug("scene view %s added (hdr=%t, %d hdr and %d ldr post processes)",
		v.ID, props.HDR, len(props.HDRPostProcesses), len(props.LDRPostProcesses))
	return v, nil
}

func (r *Renderer) releaseView(v *View) {
	r.viewBlocks.Free(v.viewBlock.Element)
	if v.envBatch != nil {
		v.envBatch.Dispose()
	}
	if v.toneMapper != nil {
		v.toneMapper.Dispose()
	}
}

// RemoveView stops drawing v and releases its uniform element, background
// batch and tone mapper.
func (r *Renderer) RemoveView(v *View) {
	i := slices.Index(r.views, v)
	if i < 0 {
		return
	}
	r.views = slices.Delete(r.views, i, i+1)
	r.releaseView(v)
}

/**
 * @brief Registers a mesh section drawn with inst. The object is added to the
 * batch for its material and mesh; the mesh must have render data.
 */
func (r *Renderer) AddObject(mesh *meshes.Mesh, section int, inst *materials.Instance, props ObjectProps) (*Object, error) {
	sec, err := mesh.Section(section)
	if err != nil {
		return nil, err
	}
	b, err := r.drawBatch(inst.Material(), mesh, true)
	if err != nil {
		return nil, err
	}
	element := r.sectionBlocks.Allocate()
	o := &Object{
		ID:           uuid.New(),
		Mesh:         mesh,
		Section:      section,
		Material:     inst,
		Props:        props,
		batch:        b,
		sectionBlock: r.sectionBlocks.View(element),
	}
	extra := []batch.UniformBinding{{Buffer: r.sectionBlocks, Element: element, BindPoint: SectionBlockBindPoint}}
	o.itemIndex = b.AddItem(inst.CreateDrawBatchItem(sec, MaterialParamsBindPoint, extra, props.DrawFlags))
	r.batchOwners[b] = append(r.batchOwners[b], o)
	r.objects = append(r.objects, o)
	return o, nil
}

// UpdateObjectTransform writes the model, inverse model and normal matrices
// of o.
func (r *Renderer) UpdateObjectTransform(o *Object, t *math.Transform) {
	model := t.LocalToWorld()
	o.sectionBlock.SetMat4("modelMatrix", model)
	o.sectionBlock.SetMat4("invModelMatrix", model.Inv())
	o.sectionBlock.SetMat3("normalMatrix", math.NormalFromMat4(model))
}

/**
 * @brief Unregisters o and frees its transform element. Its item is also
 * swap-removed from its batch, so the object stops being drawn; the object
 * whose item moved into the hole has its index updated.
 */
func (r *Renderer) RemoveObject(o *Object) {
	i := slices.Index(r.objects, o)
	if i < 0 {
		return
	}
	r.objects = slices.Delete(r.objects, i, i+1)
	r.sectionBlocks.Free(o.sectionBlock.Element)

	index := o.itemIndex
	o.itemIndex = -1

	// no owners once the batch was pruned with its material
	owners := r.batchOwners[o.batch]
	if len(owners) == 0 {
		return
	}
	if moved := o.batch.RemoveItem(index); moved >= 0 {
		owners[index] = owners[moved]
		owners[index].itemIndex = index
	}
	owners[len(owners)-1] = nil
	r.batchOwners[o.batch] = owners[:len(owners)-1]
}

// Reset forgets every view and object and empties the object batches.
// Batches of live materials are kept for the next scene.
func (r *Renderer) Reset() {
	for _, v := range r.views {
		if v.envBatch != nil {
			v.envBatch.Dispose()
		}
		if v.toneMapper != nil {
			v.toneMapper.Dispose()
		}
	}
	r.views = nil
	r.objects = nil
	r.sectionBlocks.FreeAll()
	r.viewBlocks.FreeAll()
	for _, b := range r.objectBatches {
		b.Clear()
	}
	clear(r.batchOwners)
	r.pruneBatches()
}
