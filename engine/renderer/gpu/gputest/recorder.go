// Package gputest provides an in-memory gpu.Device that records every
// command, for asserting on command streams in tests.
package gputest

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

type Call struct {
	Name string
	Args []any
}

func (c Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = fmt.Sprint(a)
	}
	return c.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Recorder implements gpu.Device. Attribute locations follow the standard
// mesh attribute names unless AttribLocations is set; every uniform and block
// resolves unless listed in MissingUniforms or MissingBlocks.
type Recorder struct {
	Calls []Call

	Alignment        int
	AttribLocations  map[string]int32
	MissingUniforms  map[string]bool
	MissingBlocks    map[string]bool
	CompileFailures  map[string]string
	LinkFailure      string
	FramebufferError error

	next     gpu.Handle
	uniforms map[string]int32
	blocks   map[string]uint32
	buffers  map[gpu.Handle][]byte
}

var defaultAttribs = map[string]int32{
	"aPosition": 0,
	"aNormal":   1,
	"aTangentU": 2,
	"aTangentV": 3,
	"aTexCoord": 4,
}

func NewRecorder() *Recorder {
	return &Recorder{
		Alignment:       256,
		MissingUniforms: map[string]bool{},
		MissingBlocks:   map[string]bool{},
		CompileFailures: map[string]string{},
		uniforms:        map[string]int32{},
		blocks:          map[string]uint32{},
		buffers:         map[gpu.Handle][]byte{},
	}
}

// Reset forgets recorded calls but keeps objects and settings.
func (r *Recorder) Reset() {
	r.Calls = nil
}

// Named returns the recorded calls with one of the given names, in order.
func (r *Recorder) Named(names ...string) []Call {
	var out []Call
	for _, c := range r.Calls {
		for _, n := range names {
			if c.Name == n {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func (r *Recorder) Count(name string) int {
	return len(r.Named(name))
}

// BufferContents returns the bytes most recently uploaded to buf.
func (r *Recorder) BufferContents(buf gpu.Handle) []byte {
	return r.buffers[buf]
}

func (r *Recorder) record(name string, args ...any) {
	r.Calls = append(r.Calls, Call{Name: name, Args: args})
}

func (r *Recorder) handle() gpu.Handle {
	r.next++
	return r.next
}

func (r *Recorder) UniformBufferOffsetAlignment() int {
	return r.Alignment
}

func (r *Recorder) CreateBuffer() gpu.Handle {
	h := r.handle()
	r.record("CreateBuffer", h)
	return h
}

func (r *Recorder) DeleteBuffer(buf gpu.Handle) {
	delete(r.buffers, buf)
	r.record("DeleteBuffer", buf)
}

func (r *Recorder) BufferData(target gpu.BufferTarget, buf gpu.Handle, data []byte, usage gpu.BufferUsage) {
	r.buffers[buf] = append([]byte(nil), data...)
	r.record("BufferData", target, buf, len(data), usage)
}

func (r *Recorder) BufferSubData(target gpu.BufferTarget, buf gpu.Handle, offset int, data []byte) {
	if dst, ok := r.buffers[buf]; ok && offset+len(data) <= len(dst) {
		copy(dst[offset:], data)
	}
	r.record("BufferSubData", target, buf, offset, len(data))
}

func (r *Recorder) BindBufferRange(target gpu.BufferTarget, index uint32, buf gpu.Handle, offset, size int) {
	r.record("BindBufferRange", target, index, buf, offset, size)
}

func (r *Recorder) CreateVertexArray() gpu.Handle {
	h := r.handle()
	r.record("CreateVertexArray", h)
	return h
}

func (r *Recorder) DeleteVertexArray(vao gpu.Handle) {
	r.record("DeleteVertexArray", vao)
}

func (r *Recorder) BindVertexArray(vao gpu.Handle) {
	r.record("BindVertexArray", vao)
}

func (r *Recorder) VertexAttribPointer(buf gpu.Handle, location uint32, components int, typ gpu.ComponentType) {
	r.record("VertexAttribPointer", buf, location, components, typ)
}

func (r *Recorder) BindElementBuffer(buf gpu.Handle) {
	r.record("BindElementBuffer", buf)
}

func (r *Recorder) CompileShader(stage gpu.ShaderStage, source string) (gpu.Handle, string, bool) {
	for marker, log := range r.CompileFailures {
		if strings.Contains(source, marker) {
			r.record("CompileShader", stage, gpu.NoHandle)
			return gpu.NoHandle, log, false
		}
	}
	h := r.handle()
	r.record("CompileShader", stage, h)
	return h, "", true
}

func (r *Recorder) DeleteShader(shader gpu.Handle) {
	r.record("DeleteShader", shader)
}

func (r *Recorder) LinkProgram(vertex, fragment gpu.Handle) (gpu.Handle, string, bool) {
	if r.LinkFailure != "" {
		r.record("LinkProgram", vertex, fragment, gpu.NoHandle)
		return gpu.NoHandle, r.LinkFailure, false
	}
	h := r.handle()
	r.record("LinkProgram", vertex, fragment, h)
	return h, "", true
}

func (r *Recorder) DeleteProgram(program gpu.Handle) {
	r.record("DeleteProgram", program)
}

func (r *Recorder) UseProgram(program gpu.Handle) {
	r.record("UseProgram", program)
}

func (r *Recorder) AttribLocation(program gpu.Handle, name string) int32 {
	table := defaultAttribs
	if r.AttribLocations != nil {
		table = r.AttribLocations
	}
	if loc, ok := table[name]; ok {
		return loc
	}
	return -1
}

func (r *Recorder) UniformLocation(program gpu.Handle, name string) int32 {
	if r.MissingUniforms[name] {
		return -1
	}
	loc, ok := r.uniforms[name]
	if !ok {
		loc = int32(len(r.uniforms))
		r.uniforms[name] = loc
	}
	return loc
}

// UniformName reverses UniformLocation.
func (r *Recorder) UniformName(location int32) string {
	for name, loc := range r.uniforms {
		if loc == location {
			return name
		}
	}
	return ""
}

func (r *Recorder) Uniform1i(location int32, value int32) {
	r.record("Uniform1i", location, value)
}

func (r *Recorder) UniformBlockIndex(program gpu.Handle, name string) uint32 {
	if r.MissingBlocks[name] {
		return gpu.InvalidIndex
	}
	idx, ok := r.blocks[name]
	if !ok {
		idx = uint32(len(r.blocks))
		r.blocks[name] = idx
	}
	return idx
}

func (r *Recorder) UniformBlockBinding(program gpu.Handle, blockIndex, binding uint32) {
	r.record("UniformBlockBinding", program, blockIndex, binding)
}

func (r *Recorder) CreateTexture() gpu.Handle {
	h := r.handle()
	r.record("CreateTexture", h)
	return h
}

func (r *Recorder) DeleteTexture(tex gpu.Handle) {
	r.record("DeleteTexture", tex)
}

func (r *Recorder) ActiveTexture(unit int) {
	r.record("ActiveTexture", unit)
}

func (r *Recorder) BindTexture(target gpu.TextureTarget, tex gpu.Handle) {
	r.record("BindTexture", target, tex)
}

func (r *Recorder) TexImage2D(target gpu.TextureTarget, face gpu.CubeFace, level int, format gpu.PixelFormat, width, height int, data []byte) {
	r.record("TexImage2D", target, face, level, format.Internal, width, height, data != nil)
}

func (r *Recorder) TexParameters(target gpu.TextureTarget, sampling gpu.Sampling) {
	r.record("TexParameters", target, sampling)
}

func (r *Recorder) GenerateMipmap(target gpu.TextureTarget) {
	r.record("GenerateMipmap", target)
}

func (r *Recorder) CreateFramebuffer() gpu.Handle {
	h := r.handle()
	r.record("CreateFramebuffer", h)
	return h
}

func (r *Recorder) DeleteFramebuffer(fb gpu.Handle) {
	r.record("DeleteFramebuffer", fb)
}

func (r *Recorder) BindFramebuffer(fb gpu.Handle) {
	r.record("BindFramebuffer", fb)
}

func (r *Recorder) FramebufferTexture2D(kind gpu.AttachmentKind, index int, target gpu.TextureTarget, face gpu.CubeFace, tex gpu.Handle, level int) {
	r.record("FramebufferTexture2D", kind, index, target, face, tex, level)
}

func (r *Recorder) DrawBuffers(count int) {
	r.record("DrawBuffers", count)
}

func (r *Recorder) CheckFramebufferStatus() error {
	return r.FramebufferError
}

func (r *Recorder) Enable(c gpu.Capability) {
	r.record("Enable", c)
}

func (r *Recorder) Disable(c gpu.Capability) {
	r.record("Disable", c)
}

func (r *Recorder) DepthFunc(f gpu.DepthFunc) {
	r.record("DepthFunc", f)
}

func (r *Recorder) DepthMask(write bool) {
	r.record("DepthMask", write)
}

func (r *Recorder) CullFace(mode gpu.CullMode) {
	r.record("CullFace", mode)
}

func (r *Recorder) Viewport(x, y, width, height int) {
	r.record("Viewport", x, y, width, height)
}

func (r *Recorder) ClearColor(red, green, blue, alpha float32) {
	r.record("ClearColor", red, green, blue, alpha)
}

func (r *Recorder) ClearDepth(depth float32) {
	r.record("ClearDepth", depth)
}

func (r *Recorder) Clear(mask gpu.ClearMask) {
	r.record("Clear", mask)
}

func (r *Recorder) DrawElements(mode gpu.PrimitiveMode, count int, typ gpu.ComponentType, offset int) {
	r.record("DrawElements", mode, count, typ, offset)
}

var _ gpu.Device = (*Recorder)(nil)
