// Package materials binds shader programs to shared parameter buffers and
// per-instance texture slots.
package materials

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/batch"
	"github.com/spaghettifunk/lumen/engine/renderer/buffers"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
	"github.com/spaghettifunk/lumen/engine/renderer/shaders"
	"github.com/spaghettifunk/lumen/engine/renderer/state"
)

// Texture units reserved for image based lighting inputs. Declared slots
// are numbered after them.
const (
	ReflectionMapUnit = 0
	IrradianceMapUnit = 1
	BRDFLutUnit       = 2

	firstSlotUnit = 3
)

var implicitUniforms = []struct {
	unit int
	name string
}{
	{ReflectionMapUnit, "envMapTexture"},
	{IrradianceMapUnit, "irradianceMapTexture"},
	{BRDFLutUnit, "iblBrdfLutTexture"},
}

// TextureSlot names a logical texture input and the sampler uniform that
// reads it.
type TextureSlot struct {
	Name    string
	Uniform string
}

type slotUnit struct {
	name string
	unit int
}

/**
 * @brief Material is a binding template: a program, an optional parameter
 * buffer shared by all instances, and texture units for each declared slot
 * the program actually samples.
 */
type Material struct {
	resource.Base

	ctx     *gpu.Context
	program *shaders.Program
	params  *buffers.UniformBuffer
	slots   []slotUnit
}

// New builds a material. Slots whose uniform is absent from the program get
// no unit and cannot be set on instances.
func New(ctx *gpu.Context, st *state.RendererState, program *shaders.Program, fields []buffers.Field, slots []TextureSlot) (*Material, error) {
	m := &Material{ctx: ctx, program: program}
	m.Init(ctx.Resources, "Material", nil)

	if len(fields) > 0 {
		params, err := buffers.NewUniformBuffer(ctx, fields...)
		if err != nil {
			m.Dispose()
			return nil, fmt.Errorf("material params: %w", err)
		}
		m.params = resource.Owned(&m.Base, params)
	}

	if err := st.SetProgram(program); err != nil {
		m.Dispose()
		return nil, err
	}
	for _, u := range implicitUniforms {
		if loc := program.UniformLocation(u.name); loc >= 0 {
			ctx.Uniform1i(loc, int32(u.unit))
		}
	}
	unit := firstSlotUnit
	for _, s := range slots {
		loc := program.UniformLocation(s.Uniform)
		if loc < 0 {
			continue
		}
		ctx.Uniform1i(loc, int32(unit))
		m.slots = append(m.slots, slotUnit{name: s.Name, unit: unit})
		unit++
	}
	return m, nil
}

func (m *Material) Program() *shaders.Program {
	return m.program
}

// Params is nil when the material declares no parameters.
func (m *Material) Params() *buffers.UniformBuffer {
	return m.params
}

// TextureUnit returns the unit assigned to slot.
func (m *Material) TextureUnit(slot string) (int, bool) {
	for _, s := range m.slots {
		if s.name == slot {
			return s.unit, true
		}
	}
	return 0, false
}

/**
 * @brief Creates an instance owned by this material. It gets its own element
 * in the parameter buffer, initialised to the field defaults and then to
 * values, and every texture slot starts unbound.
 */
func (m *Material) CreateInstance(values map[string]any) (*Instance, error) {
	inst := &Instance{material: m, slots: make(map[string]int, len(m.slots))}
	for i, s := range m.slots {
		inst.textures = append(inst.textures, batch.TextureBinding{Unit: s.unit})
		inst.slots[s.name] = i
	}
	if m.params != nil {
		inst.params = m.params.View(m.params.Allocate())
	}
	inst.Init(m.ctx.Resources, "MaterialInstance", inst.release)
	m.Own(inst)

	for name, v := range values {
		if v == nil {
			continue
		}
		if inst.params == nil || !inst.params.Has(name) {
			inst.Dispose()
			return nil, fmt.Errorf("material param %q: %w", name, core.ErrUnknownField)
		}
		if err := inst.params.Set(name, v); err != nil {
			inst.Dispose()
			return nil, fmt.Errorf("material param %q: %w", name, err)
		}
	}
	return inst, nil
}
