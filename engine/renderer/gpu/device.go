// Package gpu defines the command surface the renderer is written against.
// It mirrors the GL model: objects are named by handles and uniform blocks
// are fed from buffer ranges bound to numbered bind points.
package gpu

import "github.com/spaghettifunk/lumen/engine/renderer/resource"

type Device interface {
	// UniformBufferOffsetAlignment is the minimum alignment of a bound
	// uniform buffer range, in bytes.
	UniformBufferOffsetAlignment() int

	CreateBuffer() Handle
	DeleteBuffer(buf Handle)
	BufferData(target BufferTarget, buf Handle, data []byte, usage BufferUsage)
	BufferSubData(target BufferTarget, buf Handle, offset int, data []byte)
	BindBufferRange(target BufferTarget, index uint32, buf Handle, offset, size int)

	CreateVertexArray() Handle
	DeleteVertexArray(vao Handle)
	BindVertexArray(vao Handle)
	// VertexAttribPointer binds buf as the array buffer and points the
	// attribute at location to it, tightly packed.
	VertexAttribPointer(buf Handle, location uint32, components int, typ ComponentType)
	BindElementBuffer(buf Handle)

	CompileShader(stage ShaderStage, source string) (shader Handle, infoLog string, ok bool)
	DeleteShader(shader Handle)
	LinkProgram(vertex, fragment Handle) (program Handle, infoLog string, ok bool)
	DeleteProgram(program Handle)
	UseProgram(program Handle)
	AttribLocation(program Handle, name string) int32
	UniformLocation(program Handle, name string) int32
	// Uniform1i sets an integer uniform on the program in use.
	Uniform1i(location int32, value int32)
	UniformBlockIndex(program Handle, name string) uint32
	UniformBlockBinding(program Handle, blockIndex, binding uint32)

	CreateTexture() Handle
	DeleteTexture(tex Handle)
	ActiveTexture(unit int)
	BindTexture(target TextureTarget, tex Handle)
	// TexImage2D uploads one level. face is ignored for 2D textures and data
	// may be nil to only allocate storage.
	TexImage2D(target TextureTarget, face CubeFace, level int, format PixelFormat, width, height int, data []byte)
	TexParameters(target TextureTarget, sampling Sampling)
	GenerateMipmap(target TextureTarget)

	CreateFramebuffer() Handle
	DeleteFramebuffer(fb Handle)
	// BindFramebuffer binds fb for drawing; NoHandle selects the default
	// framebuffer.
	BindFramebuffer(fb Handle)
	FramebufferTexture2D(kind AttachmentKind, index int, target TextureTarget, face CubeFace, tex Handle, level int)
	DrawBuffers(count int)
	CheckFramebufferStatus() error

	Enable(c Capability)
	Disable(c Capability)
	DepthFunc(f DepthFunc)
	DepthMask(write bool)
	CullFace(mode CullMode)
	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	ClearDepth(depth float32)
	Clear(mask ClearMask)
	// DrawElements draws count indices starting at the given byte offset of
	// the bound element buffer.
	DrawElements(mode PrimitiveMode, count int, typ ComponentType, offset int)
}

// Context carries the device and the resource arena every GPU object is
// registered in.
type Context struct {
	Device
	Resources *resource.Graph
}

func NewContext(d Device) *Context {
	return &Context{Device: d, Resources: resource.NewGraph()}
}
