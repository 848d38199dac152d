package opengl

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

func bufferTarget(t gpu.BufferTarget) uint32 {
	switch t {
	case gpu.ElementArrayBuffer:
		return gl.ELEMENT_ARRAY_BUFFER
	case gpu.UniformBuffer:
		return gl.UNIFORM_BUFFER
	default:
		return gl.ARRAY_BUFFER
	}
}

func bufferUsage(u gpu.BufferUsage) uint32 {
	if u == gpu.DynamicDraw {
		return gl.DYNAMIC_DRAW
	}
	return gl.STATIC_DRAW
}

func componentType(c gpu.ComponentType) uint32 {
	switch c {
	case gpu.Int8:
		return gl.BYTE
	case gpu.Int16:
		return gl.SHORT
	case gpu.Int32:
		return gl.INT
	case gpu.Uint8:
		return gl.UNSIGNED_BYTE
	case gpu.Uint16:
		return gl.UNSIGNED_SHORT
	case gpu.Uint32:
		return gl.UNSIGNED_INT
	case gpu.HalfFloat:
		return gl.HALF_FLOAT
	default:
		return gl.FLOAT
	}
}

func shaderStage(s gpu.ShaderStage) uint32 {
	if s == gpu.VertexStage {
		return gl.VERTEX_SHADER
	}
	return gl.FRAGMENT_SHADER
}

func textureTarget(t gpu.TextureTarget) uint32 {
	if t == gpu.TextureCubeMap {
		return gl.TEXTURE_CUBE_MAP
	}
	return gl.TEXTURE_2D
}

func internalFormat(f gpu.InternalFormat) uint32 {
	switch f {
	case gpu.RGBA16F:
		return gl.RGBA16F
	case gpu.RGBA32F:
		return gl.RGBA32F
	case gpu.RG16F:
		return gl.RG16F
	case gpu.DepthComponent24:
		return gl.DEPTH_COMPONENT24
	case gpu.Depth24Stencil8:
		return gl.DEPTH24_STENCIL8
	default:
		return gl.RGBA8
	}
}

func pixelLayout(l gpu.PixelLayout) uint32 {
	switch l {
	case gpu.LayoutRGB:
		return gl.RGB
	case gpu.LayoutRG:
		return gl.RG
	case gpu.LayoutRed:
		return gl.RED
	case gpu.LayoutDepthComponent:
		return gl.DEPTH_COMPONENT
	case gpu.LayoutDepthStencil:
		return gl.DEPTH_STENCIL
	default:
		return gl.RGBA
	}
}

func attachmentPoint(kind gpu.AttachmentKind, index int) uint32 {
	switch kind {
	case gpu.DepthAttachment:
		return gl.DEPTH_ATTACHMENT
	case gpu.StencilAttachment:
		return gl.STENCIL_ATTACHMENT
	case gpu.DepthStencilAttachment:
		return gl.DEPTH_STENCIL_ATTACHMENT
	default:
		return gl.COLOR_ATTACHMENT0 + uint32(index)
	}
}

func capability(c gpu.Capability) uint32 {
	if c == gpu.CullFace {
		return gl.CULL_FACE
	}
	return gl.DEPTH_TEST
}
