package materials

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/batch"
	"github.com/spaghettifunk/lumen/engine/renderer/buffers"
	"github.com/spaghettifunk/lumen/engine/renderer/meshes"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
	"github.com/spaghettifunk/lumen/engine/renderer/textures"
)

// Instance is one set of parameter values and bound textures for a
// Material. Draw items built from it share its texture list, so
// SetTexture is seen by items created earlier.
//
// Disposing an instance frees its parameter element. Items that still refer
// to it must be removed from their batches first.
type Instance struct {
	resource.Base

	material *Material
	params   *buffers.View
	textures []batch.TextureBinding
	slots    map[string]int
}

func (i *Instance) release() {
	if i.params != nil {
		i.params.Buffer().Free(i.params.Element)
	}
}

func (i *Instance) Material() *Material {
	return i.material
}

// Params is nil when the material declares no parameters.
func (i *Instance) Params() *buffers.View {
	return i.params
}

// SetTexture binds tex to a declared slot; nil unbinds it.
func (i *Instance) SetTexture(slot string, tex textures.Texture) error {
	idx, ok := i.slots[slot]
	if !ok {
		return fmt.Errorf("slot %q: %w", slot, core.ErrUnknownTextureSlot)
	}
	i.textures[idx].Texture = tex
	return nil
}

func (i *Instance) Texture(slot string) textures.Texture {
	idx, ok := i.slots[slot]
	if !ok {
		return nil
	}
	return i.textures[idx].Texture
}

func (i *Instance) uniforms(bindPoint uint32, extra []batch.UniformBinding) []batch.UniformBinding {
	if i.params == nil {
		return extra
	}
	out := make([]batch.UniformBinding, 0, len(extra)+1)
	out = append(out, batch.UniformBinding{Buffer: i.params.Buffer(), Element: i.params.Element, BindPoint: bindPoint})
	return append(out, extra...)
}

/**
 * @brief Builds a draw item for one section. The instance's own parameter
 * binding comes first, followed by extra.
 */
func (i *Instance) CreateDrawBatchItem(section meshes.Section, bindPoint uint32, extra []batch.UniformBinding, flags uint32) batch.Item {
	return batch.Item{
		Section:   section,
		Uniforms:  i.uniforms(bindPoint, extra),
		Textures:  i.textures,
		DrawFlags: flags,
	}
}

// DrawOne draws a section through b right away.
func (i *Instance) DrawOne(b *batch.DrawBatch, section meshes.Section, bindPoint uint32, extra []batch.UniformBinding) error {
	return b.DrawOne(section, i.uniforms(bindPoint, extra), i.textures)
}
