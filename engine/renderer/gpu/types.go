package gpu

import "fmt"

// Handle names a GPU object. Zero means "none".
type Handle uint32

const NoHandle Handle = 0

// InvalidIndex is returned by UniformBlockIndex for unknown blocks.
const InvalidIndex uint32 = 0xffffffff

type BufferTarget uint8

const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
	UniformBuffer
)

type BufferUsage uint8

const (
	StaticDraw BufferUsage = iota
	DynamicDraw
)

// ComponentType is the element type of buffer and texel data.
type ComponentType uint8

const (
	Int8 ComponentType = iota
	Int16
	Int32
	Uint8
	Uint16
	Uint32
	HalfFloat
	Float32
)

// Size returns the size of one component in bytes.
func (c ComponentType) Size() int {
	switch c {
	case Int8, Uint8:
		return 1
	case Int16, Uint16, HalfFloat:
		return 2
	case Int32, Uint32, Float32:
		return 4
	default:
		return 0
	}
}

func (c ComponentType) String() string {
	switch c {
	case Int8:
		return "i8"
	case Int16:
		return "i16"
	case Int32:
		return "i32"
	case Uint8:
		return "u8"
	case Uint16:
		return "u16"
	case Uint32:
		return "u32"
	case HalfFloat:
		return "f16"
	case Float32:
		return "f32"
	default:
		return fmt.Sprintf("ComponentType(%d)", uint8(c))
	}
}

type ShaderStage uint8

const (
	VertexStage ShaderStage = iota
	FragmentStage
)

func (s ShaderStage) String() string {
	if s == VertexStage {
		return "vertex"
	}
	return "fragment"
}

type TextureTarget uint8

const (
	Texture2D TextureTarget = iota
	TextureCubeMap
)

// CubeFace follows the GL face order.
type CubeFace uint8

const (
	CubePositiveX CubeFace = iota
	CubeNegativeX
	CubePositiveY
	CubeNegativeY
	CubePositiveZ
	CubeNegativeZ
)

const CubeFaceCount = 6

type InternalFormat uint8

const (
	RGBA8 InternalFormat = iota
	RGBA16F
	RGBA32F
	RG16F
	DepthComponent24
	Depth24Stencil8
)

type PixelLayout uint8

const (
	LayoutRGBA PixelLayout = iota
	LayoutRGB
	LayoutRG
	LayoutRed
	LayoutDepthComponent
	LayoutDepthStencil
)

// PixelFormat is the internal format, the wire layout and the component type
// of texel data.
type PixelFormat struct {
	Internal InternalFormat
	Layout   PixelLayout
	Type     ComponentType
}

var (
	FormatRGBA8   = PixelFormat{Internal: RGBA8, Layout: LayoutRGBA, Type: Uint8}
	FormatRGBA16F = PixelFormat{Internal: RGBA16F, Layout: LayoutRGBA, Type: HalfFloat}
	FormatRG16F   = PixelFormat{Internal: RG16F, Layout: LayoutRG, Type: HalfFloat}
	FormatDepth24 = PixelFormat{Internal: DepthComponent24, Layout: LayoutDepthComponent, Type: Uint32}
	// FormatRGBA16FFromFloat stores half floats uploaded from float32 data.
	FormatRGBA16FFromFloat = PixelFormat{Internal: RGBA16F, Layout: LayoutRGBA, Type: Float32}
)

type WrapMode uint8

const (
	WrapRepeat WrapMode = iota
	WrapClamp
)

type Filter uint8

const (
	FilterNearest Filter = iota
	FilterBilinear
)

// Sampling is the sampler state stored on a texture object.
type Sampling struct {
	Wrap    WrapMode
	Filter  Filter
	Mipmaps bool
}

type AttachmentKind uint8

const (
	ColorAttachment AttachmentKind = iota
	DepthAttachment
	StencilAttachment
	DepthStencilAttachment
)

type Capability uint8

const (
	DepthTest Capability = iota
	CullFace
)

type DepthFunc uint8

const (
	DepthNever DepthFunc = iota
	DepthLess
	DepthEqual
	DepthLessOrEqual
	DepthGreater
	DepthNotEqual
	DepthGreaterOrEqual
	DepthAlways
)

type CullMode uint8

const (
	CullFront CullMode = iota
	CullBack
	CullFrontAndBack
)

type ClearMask uint8

const (
	ClearColorBit ClearMask = 1 << iota
	ClearDepthBit
	ClearStencilBit
)

type PrimitiveMode uint8

const (
	Triangles PrimitiveMode = iota
)
