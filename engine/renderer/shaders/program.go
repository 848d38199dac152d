package shaders

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/resource"
)

type LinkError struct {
	Vertex, Fragment string
	Log              string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("failed to link program %s + %s:\n%s", e.Vertex, e.Fragment, e.Log)
}

/**
 * @brief Program is a linked vertex and fragment stage pair. Attribute and
 * uniform locations are looked up once and cached.
 */
type Program struct {
	resource.Base

	ctx      *gpu.Context
	handle   gpu.Handle
	vertex   *Shader
	fragment *Shader

	attribs  map[string]int32
	uniforms map[string]int32
}

func NewProgram(ctx *gpu.Context, vertex, fragment *Shader) (*Program, error) {
	handle, infoLog, ok := ctx.LinkProgram(vertex.Handle(), fragment.Handle())
	if !ok {
		return nil, &LinkError{Vertex: vertex.sources[0], Fragment: fragment.sources[0], Log: infoLog}
	}
	p := &Program{
		ctx:      ctx,
		handle:   handle,
		vertex:   vertex,
		fragment: fragment,
		attribs:  map[string]int32{},
		uniforms: map[string]int32{},
	}
	p.Init(ctx.Resources, fmt.Sprintf("Program:%s+%s", vertex.sources[0], fragment.sources[0]), func() {
		ctx.DeleteProgram(p.handle)
	})
	return p, nil
}

func (p *Program) Handle() gpu.Handle {
	return p.handle
}

func (p *Program) Vertex() *Shader {
	return p.vertex
}

func (p *Program) Fragment() *Shader {
	return p.fragment
}

// AttribLocation returns -1 for attributes the program does not use.
func (p *Program) AttribLocation(name string) int32 {
	loc, ok := p.attribs[name]
	if !ok {
		loc = p.ctx.AttribLocation(p.handle, name)
		p.attribs[name] = loc
	}
	return loc
}

// UniformLocation returns -1 for uniforms the program does not use.
func (p *Program) UniformLocation(name string) int32 {
	loc, ok := p.uniforms[name]
	if !ok {
		loc = p.ctx.UniformLocation(p.handle, name)
		p.uniforms[name] = loc
	}
	return loc
}

// BindUniformBlock assigns a bind point to a uniform block. Blocks the
// program does not declare are skipped.
func (p *Program) BindUniformBlock(block string, binding uint32) {
	index := p.ctx.UniformBlockIndex(p.handle, block)
	if index == gpu.InvalidIndex {
		return
	}
	p.ctx.UniformBlockBinding(p.handle, index, binding)
}
