// Package state caches GPU pipeline state so redundant changes are skipped.
package state

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/buffers"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/shaders"
	"github.com/spaghettifunk/lumen/engine/renderer/textures"
)

const MaxTextureUnits = 32

// DepthStencilState is compared by pointer; share one value per
// configuration.
type DepthStencilState struct {
	DepthFunc  gpu.DepthFunc
	DepthWrite bool
}

// CullFaceState is compared by pointer; share one value per configuration.
type CullFaceState struct {
	Mode gpu.CullMode
}

var (
	DepthLessWrite = &DepthStencilState{DepthFunc: gpu.DepthLess, DepthWrite: true}
	CullBack       = &CullFaceState{Mode: gpu.CullBack}
	CullFront      = &CullFaceState{Mode: gpu.CullFront}
)

type textureSlot struct {
	texture textures.Texture
	known   bool
}

/**
 * @brief RendererState remembers what was last set for each piece of
 * pipeline state and only forwards a change to the device when the new value
 * is a different object. Changes made directly on the device are invisible
 * to it; call Invalidate afterwards.
 */
type RendererState struct {
	ctx *gpu.Context

	program      *shaders.Program
	vertexArray  *buffers.VertexArray
	depthStencil *DepthStencilState
	cullFace     *CullFaceState
	renderTarget *textures.RenderTarget
	textures     [MaxTextureUnits]textureSlot

	programKnown, vertexArrayKnown, depthKnown, cullKnown, targetKnown bool
}

func New(ctx *gpu.Context) *RendererState {
	return &RendererState{ctx: ctx}
}

// Invalidate forgets the cached device state so every next change is
// issued.
func (s *RendererState) Invalidate() {
	s.programKnown = false
	s.vertexArrayKnown = false
	s.depthKnown = false
	s.cullKnown = false
	s.targetKnown = false
	for i := range s.textures {
		s.textures[i].known = false
	}
}

func (s *RendererState) Program() *shaders.Program {
	return s.program
}

// SetProgram makes p current. Binding a disposed program is an error.
func (s *RendererState) SetProgram(p *shaders.Program) error {
	if s.programKnown && p == s.program {
		return nil
	}
	if p != nil && p.Disposed() {
		return core.ErrDisposedProgram
	}
	handle := gpu.NoHandle
	if p != nil {
		handle = p.Handle()
	}
	s.ctx.UseProgram(handle)
	s.program, s.programKnown = p, true
	return nil
}

func (s *RendererState) VertexArray() *buffers.VertexArray {
	return s.vertexArray
}

// SetVertexArray binds va. Binding a disposed vertex array is an error.
func (s *RendererState) SetVertexArray(va *buffers.VertexArray) error {
	if s.vertexArrayKnown && va == s.vertexArray {
		return nil
	}
	if va != nil && va.Disposed() {
		return core.ErrDisposedVertexArray
	}
	handle := gpu.NoHandle
	if va != nil {
		handle = va.Handle()
	}
	s.ctx.BindVertexArray(handle)
	s.vertexArray, s.vertexArrayKnown = va, true
	return nil
}

// ForgetVertexArray records that the device's vertex array binding was
// changed behind the cache.
func (s *RendererState) ForgetVertexArray() {
	s.vertexArrayKnown = false
}

func (s *RendererState) DepthStencil() *DepthStencilState {
	return s.depthStencil
}

// SetDepthStencil applies d; nil disables depth testing and writing.
func (s *RendererState) SetDepthStencil(d *DepthStencilState) {
	if s.depthKnown && d == s.depthStencil {
		return
	}
	if d == nil {
		s.ctx.Disable(gpu.DepthTest)
		s.ctx.DepthMask(false)
	} else {
		s.ctx.Enable(gpu.DepthTest)
		s.ctx.DepthFunc(d.DepthFunc)
		s.ctx.DepthMask(d.DepthWrite)
	}
	s.depthStencil, s.depthKnown = d, true
}

func (s *RendererState) CullFace() *CullFaceState {
	return s.cullFace
}

// SetCullFace applies c; nil disables culling.
func (s *RendererState) SetCullFace(c *CullFaceState) {
	if s.cullKnown && c == s.cullFace {
		return
	}
	if c == nil {
		s.ctx.Disable(gpu.CullFace)
	} else {
		s.ctx.Enable(gpu.CullFace)
		s.ctx.CullFace(c.Mode)
	}
	s.cullFace, s.cullKnown = c, true
}

func (s *RendererState) RenderTarget() *textures.RenderTarget {
	return s.renderTarget
}

// SetRenderTarget binds rt for drawing; nil selects the window.
func (s *RendererState) SetRenderTarget(rt *textures.RenderTarget) {
	if s.targetKnown && rt == s.renderTarget {
		return
	}
	handle := gpu.NoHandle
	if rt != nil {
		handle = rt.Handle()
	}
	s.ctx.BindFramebuffer(handle)
	s.renderTarget, s.targetKnown = rt, true
}

func isNil(t textures.Texture) bool {
	if t == nil {
		return true
	}
	switch v := t.(type) {
	case *textures.Texture2D:
		return v == nil
	case *textures.TextureCube:
		return v == nil
	}
	return false
}

// Texture returns what the cache believes is bound to unit.
func (s *RendererState) Texture(unit int) textures.Texture {
	if unit < 0 || unit >= MaxTextureUnits {
		return nil
	}
	return s.textures[unit].texture
}

/**
 * @brief Binds tex to a texture unit, or unbinds the unit when tex is nil.
 * @return ErrTextureUnitOutOfRange for units outside 0..31.
 */
func (s *RendererState) SetTexture(unit int, tex textures.Texture) error {
	if unit < 0 || unit >= MaxTextureUnits {
		return fmt.Errorf("unit %d: %w", unit, core.ErrTextureUnitOutOfRange)
	}
	if isNil(tex) {
		tex = nil
	}
	slot := &s.textures[unit]
	if slot.known && slot.texture == tex {
		return nil
	}
	if tex != nil {
		s.ctx.ActiveTexture(unit)
		s.ctx.BindTexture(tex.Target(), tex.Handle())
	} else if slot.texture != nil {
		s.ctx.ActiveTexture(unit)
		s.ctx.BindTexture(slot.texture.Target(), gpu.NoHandle)
	}
	slot.texture, slot.known = tex, true
	return nil
}

// UnbindAllTextures clears every unit the cache believes is bound.
// Bindings made directly on the device are not touched.
func (s *RendererState) UnbindAllTextures() {
	for unit := range s.textures {
		if s.textures[unit].texture != nil {
			_ = s.SetTexture(unit, nil)
		}
	}
}
