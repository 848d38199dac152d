// Package opengl implements gpu.Device on an OpenGL 4.1 core context.
package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

/**
 * @brief Device issues gpu commands to the current GL context. It must only be
 * used from the thread that owns the context.
 */
type Device struct {
	uboAlignment int
}

/**
 * @brief Loads the GL function pointers for the current context and queries the
 * limits the renderer depends on.
 */
func NewDevice() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	var align int32
	gl.GetIntegerv(gl.UNIFORM_BUFFER_OFFSET_ALIGNMENT, &align)
	if align <= 0 {
		align = 256
	}
	core.LogInfo("OpenGL %s (%s), uniform buffer alignment %d", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)), align)
	return &Device{uboAlignment: int(align)}, nil
}

func (d *Device) UniformBufferOffsetAlignment() int {
	return d.uboAlignment
}

func (d *Device) CreateBuffer() gpu.Handle {
	var b uint32
	gl.GenBuffers(1, &b)
	return gpu.Handle(b)
}

func (d *Device) DeleteBuffer(buf gpu.Handle) {
	b := uint32(buf)
	gl.DeleteBuffers(1, &b)
}

func (d *Device) BufferData(target gpu.BufferTarget, buf gpu.Handle, data []byte, usage gpu.BufferUsage) {
	t := bufferTarget(target)
	gl.BindBuffer(t, uint32(buf))
	if len(data) == 0 {
		gl.BufferData(t, 0, nil, bufferUsage(usage))
		return
	}
	gl.BufferData(t, len(data), gl.Ptr(data), bufferUsage(usage))
}

func (d *Device) BufferSubData(target gpu.BufferTarget, buf gpu.Handle, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	t := bufferTarget(target)
	gl.BindBuffer(t, uint32(buf))
	gl.BufferSubData(t, offset, len(data), gl.Ptr(data))
}

func (d *Device) BindBufferRange(target gpu.BufferTarget, index uint32, buf gpu.Handle, offset, size int) {
	gl.BindBufferRange(bufferTarget(target), index, uint32(buf), offset, size)
}

func (d *Device) CreateVertexArray() gpu.Handle {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	return gpu.Handle(vao)
}

func (d *Device) DeleteVertexArray(vao gpu.Handle) {
	v := uint32(vao)
	gl.DeleteVertexArrays(1, &v)
}

func (d *Device) BindVertexArray(vao gpu.Handle) {
	gl.BindVertexArray(uint32(vao))
}

func (d *Device) VertexAttribPointer(buf gpu.Handle, location uint32, components int, typ gpu.ComponentType) {
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(buf))
	gl.EnableVertexAttribArray(location)
	gl.VertexAttribPointerWithOffset(location, int32(components), componentType(typ), false, 0, 0)
}

func (d *Device) BindElementBuffer(buf gpu.Handle) {
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(buf))
}

func (d *Device) CompileShader(stage gpu.ShaderStage, source string) (gpu.Handle, string, bool) {
	shader := gl.CreateShader(shaderStage(stage))
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	var logLen int32
	gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
	infoLog := ""
	if logLen > 1 {
		infoLog = strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(infoLog))
		infoLog = strings.TrimRight(infoLog, "\x00")
	}
	if status == gl.FALSE {
		gl.DeleteShader(shader)
		return gpu.NoHandle, infoLog, false
	}
	return gpu.Handle(shader), infoLog, true
}

func (d *Device) DeleteShader(shader gpu.Handle) {
	gl.DeleteShader(uint32(shader))
}

func (d *Device) LinkProgram(vertex, fragment gpu.Handle) (gpu.Handle, string, bool) {
	program := gl.CreateProgram()
	gl.AttachShader(program, uint32(vertex))
	gl.AttachShader(program, uint32(fragment))
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	var logLen int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
	infoLog := ""
	if logLen > 1 {
		infoLog = strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(infoLog))
		infoLog = strings.TrimRight(infoLog, "\x00")
	}
	gl.DetachShader(program, uint32(vertex))
	gl.DetachShader(program, uint32(fragment))
	if status == gl.FALSE {
		gl.DeleteProgram(program)
		return gpu.NoHandle, infoLog, false
	}
	return gpu.Handle(program), infoLog, true
}

func (d *Device) DeleteProgram(program gpu.Handle) {
	gl.DeleteProgram(uint32(program))
}

func (d *Device) UseProgram(program gpu.Handle) {
	gl.UseProgram(uint32(program))
}

func (d *Device) AttribLocation(program gpu.Handle, name string) int32 {
	return gl.GetAttribLocation(uint32(program), gl.Str(name+"\x00"))
}

func (d *Device) UniformLocation(program gpu.Handle, name string) int32 {
	return gl.GetUniformLocation(uint32(program), gl.Str(name+"\x00"))
}

func (d *Device) Uniform1i(location int32, value int32) {
	gl.Uniform1i(location, value)
}

func (d *Device) UniformBlockIndex(program gpu.Handle, name string) uint32 {
	return gl.GetUniformBlockIndex(uint32(program), gl.Str(name+"\x00"))
}

func (d *Device) UniformBlockBinding(program gpu.Handle, blockIndex, binding uint32) {
	gl.UniformBlockBinding(uint32(program), blockIndex, binding)
}

func (d *Device) CreateTexture() gpu.Handle {
	var t uint32
	gl.GenTextures(1, &t)
	return gpu.Handle(t)
}

func (d *Device) DeleteTexture(tex gpu.Handle) {
	t := uint32(tex)
	gl.DeleteTextures(1, &t)
}

func (d *Device) ActiveTexture(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
}

func (d *Device) BindTexture(target gpu.TextureTarget, tex gpu.Handle) {
	gl.BindTexture(textureTarget(target), uint32(tex))
}

func (d *Device) TexImage2D(target gpu.TextureTarget, face gpu.CubeFace, level int, format gpu.PixelFormat, width, height int, data []byte) {
	t := uint32(gl.TEXTURE_2D)
	if target == gpu.TextureCubeMap {
		t = gl.TEXTURE_CUBE_MAP_POSITIVE_X + uint32(face)
	}
	var ptr = gl.Ptr(nil)
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(t, int32(level), int32(internalFormat(format.Internal)), int32(width), int32(height), 0, pixelLayout(format.Layout), componentType(format.Type), ptr)
}

func (d *Device) TexParameters(target gpu.TextureTarget, sampling gpu.Sampling) {
	t := textureTarget(target)
	wrap := int32(gl.REPEAT)
	if sampling.Wrap == gpu.WrapClamp {
		wrap = gl.CLAMP_TO_EDGE
	}
	gl.TexParameteri(t, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(t, gl.TEXTURE_WRAP_T, wrap)
	if target == gpu.TextureCubeMap {
		gl.TexParameteri(t, gl.TEXTURE_WRAP_R, wrap)
	}

	minFilter, magFilter := int32(gl.NEAREST), int32(gl.NEAREST)
	if sampling.Filter == gpu.FilterBilinear {
		minFilter, magFilter = gl.LINEAR, gl.LINEAR
		if sampling.Mipmaps {
			minFilter = gl.LINEAR_MIPMAP_LINEAR
		}
	} else if sampling.Mipmaps {
		minFilter = gl.NEAREST_MIPMAP_NEAREST
	}
	gl.TexParameteri(t, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(t, gl.TEXTURE_MAG_FILTER, magFilter)
}

func (d *Device) GenerateMipmap(target gpu.TextureTarget) {
	gl.GenerateMipmap(textureTarget(target))
}

func (d *Device) CreateFramebuffer() gpu.Handle {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	return gpu.Handle(fb)
}

func (d *Device) DeleteFramebuffer(fb gpu.Handle) {
	f := uint32(fb)
	gl.DeleteFramebuffers(1, &f)
}

func (d *Device) BindFramebuffer(fb gpu.Handle) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
}

func (d *Device) FramebufferTexture2D(kind gpu.AttachmentKind, index int, target gpu.TextureTarget, face gpu.CubeFace, tex gpu.Handle, level int) {
	t := uint32(gl.TEXTURE_2D)
	if target == gpu.TextureCubeMap {
		t = gl.TEXTURE_CUBE_MAP_POSITIVE_X + uint32(face)
	}
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachmentPoint(kind, index), t, uint32(tex), int32(level))
}

func (d *Device) DrawBuffers(count int) {
	if count == 0 {
		gl.DrawBuffer(gl.NONE)
		return
	}
	bufs := make([]uint32, count)
	for i := range bufs {
		bufs[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
	}
	gl.DrawBuffers(int32(count), &bufs[0])
}

func (d *Device) CheckFramebufferStatus() error {
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: status 0x%x", core.ErrIncompleteFramebuffer, status)
	}
	return nil
}

func (d *Device) Enable(c gpu.Capability) {
	gl.Enable(capability(c))
}

func (d *Device) Disable(c gpu.Capability) {
	gl.Disable(capability(c))
}

func (d *Device) DepthFunc(f gpu.DepthFunc) {
	gl.DepthFunc(gl.NEVER + uint32(f))
}

func (d *Device) DepthMask(write bool) {
	gl.DepthMask(write)
}

func (d *Device) CullFace(mode gpu.CullMode) {
	switch mode {
	case gpu.CullFront:
		gl.CullFace(gl.FRONT)
	case gpu.CullBack:
		gl.CullFace(gl.BACK)
	default:
		gl.CullFace(gl.FRONT_AND_BACK)
	}
}

func (d *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *Device) ClearColor(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
}

func (d *Device) ClearDepth(depth float32) {
	gl.ClearDepth(float64(depth))
}

func (d *Device) Clear(mask gpu.ClearMask) {
	var bits uint32
	if mask&gpu.ClearColorBit != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&gpu.ClearDepthBit != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	if mask&gpu.ClearStencilBit != 0 {
		bits |= gl.STENCIL_BUFFER_BIT
	}
	gl.Clear(bits)
}

func (d *Device) DrawElements(mode gpu.PrimitiveMode, count int, typ gpu.ComponentType, offset int) {
	gl.DrawElementsWithOffset(gl.TRIANGLES, int32(count), componentType(typ), uintptr(offset))
}

var _ gpu.Device = (*Device)(nil)
