// Package batch records draw items that share one program and one mesh, and
// replays them under a flag mask.
package batch

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/buffers"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/meshes"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
	"github.com/spaghettifunk/lumen/engine/renderer/shaders"
	"github.com/spaghettifunk/lumen/engine/renderer/state"
	"github.com/spaghettifunk/lumen/engine/renderer/textures"
)

// AllDrawFlags matches every mask. Items created with zero flags get it.
const AllDrawFlags uint32 = 0xffffffff

// UniformBinding binds one element of a uniform buffer to a bind point.
type UniformBinding struct {
	Buffer    *buffers.UniformBuffer
	Element   uint32
	BindPoint uint32
}

// TextureBinding puts a texture on a unit.
type TextureBinding struct {
	Unit    int
	Texture textures.Texture
}

// Item is one draw of a mesh section with its uniform and texture bindings.
// Textures shares its backing array with whoever built the item, so later
// changes to its elements are seen on the next draw.
type Item struct {
	Section   meshes.Section
	Uniforms  []UniformBinding
	Textures  []TextureBinding
	DrawFlags uint32
}

/**
 * @brief DrawBatch owns a vertex array built for its program and mesh, and a
 * list of items drawn with them. The mesh must have render data.
 */
type DrawBatch struct {
	resource.Base

	ctx         *gpu.Context
	state       *state.RendererState
	program     *shaders.Program
	mesh        *meshes.Mesh
	vertexArray *buffers.VertexArray
	items       []Item
}

func New(ctx *gpu.Context, st *state.RendererState, program *shaders.Program, mesh *meshes.Mesh) (*DrawBatch, error) {
	layout, err := mesh.VertexArrayLayout(program)
	if err != nil {
		return nil, err
	}
	b := &DrawBatch{ctx: ctx, state: st, program: program, mesh: mesh}
	b.Init(ctx.Resources, "DrawBatch", nil)
	b.vertexArray = resource.Owned(&b.Base, buffers.NewVertexArray(ctx, layout))
	// construction left the new vertex array bound
	st.ForgetVertexArray()
	return b, nil
}

func (b *DrawBatch) Program() *shaders.Program {
	return b.program
}

func (b *DrawBatch) Mesh() *meshes.Mesh {
	return b.mesh
}

func (b *DrawBatch) Len() int {
	return len(b.items)
}

func (b *DrawBatch) Item(i int) Item {
	return b.items[i]
}

// AddItem appends an item and returns its index.
func (b *DrawBatch) AddItem(item Item) int {
	if item.DrawFlags == 0 {
		item.DrawFlags = AllDrawFlags
	}
	b.items = append(b.items, item)
	return len(b.items) - 1
}

// RemoveItem swaps the last item into index and shrinks the list. It
// returns the old index of the moved item, or -1 when nothing moved.
func (b *DrawBatch) RemoveItem(index int) int {
	last := len(b.items) - 1
	if index < 0 || index > last {
		return -1
	}
	moved := -1
	if index != last {
		b.items[index] = b.items[last]
		moved = last
	}
	b.items[last] = Item{}
	b.items = b.items[:last]
	return moved
}

func (b *DrawBatch) Clear() {
	clear(b.items)
	b.items = b.items[:0]
}

func (b *DrawBatch) bind() error {
	if b.mesh.RenderData() == nil {
		return core.ErrRenderDataMissing
	}
	if err := b.state.SetProgram(b.program); err != nil {
		return err
	}
	return b.state.SetVertexArray(b.vertexArray)
}

// Draw issues every item whose flags share a bit with mask.
func (b *DrawBatch) Draw(mask uint32) error {
	if err := b.bind(); err != nil {
		return err
	}
	for i := range b.items {
		if b.items[i].DrawFlags&mask == 0 {
			continue
		}
		if err := b.drawItem(&b.items[i]); err != nil {
			return err
		}
	}
	return nil
}

// DrawOne draws a single section without recording an item.
func (b *DrawBatch) DrawOne(section meshes.Section, uniforms []UniformBinding, texs []TextureBinding) error {
	if err := b.bind(); err != nil {
		return err
	}
	return b.drawItem(&Item{Section: section, Uniforms: uniforms, Textures: texs})
}

func (b *DrawBatch) drawItem(item *Item) error {
	for _, u := range item.Uniforms {
		u.Buffer.BindElement(u.Element, u.BindPoint)
	}
	for _, t := range item.Textures {
		if err := b.state.SetTexture(t.Unit, t.Texture); err != nil {
			return err
		}
	}
	indexType := b.vertexArray.IndexType()
	b.ctx.DrawElements(gpu.Triangles, item.Section.ElementCount(), indexType,
		item.Section.ElementOffset*indexType.Size())
	return nil
}
