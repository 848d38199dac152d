package resources

import (
	"fmt"
	"image"
	"strings"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/buffers"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/materials"
	"github.com/spaghettifunk/lumen/engine/renderer/meshes"
)

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Unknown files are indexed but never loaded. */
	ResourceTypeNone ResourceType = iota
	/** @brief Text resource type (shader sources and includes). */
	ResourceTypeText
	/** @brief Binary resource type. */
	ResourceTypeBinary
	/** @brief Image resource type (png, jpeg, tiff, bmp). */
	ResourceTypeImage
	/** @brief Material definition resource type (toml). */
	ResourceTypeMaterial
	/** @brief Mesh resource type (Wavefront obj source). */
	ResourceTypeMesh
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeText:
		return "text"
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeMaterial:
		return "material"
	case ResourceTypeMesh:
		return "mesh"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The resource type the loader produced. */
	Type ResourceType
	/** @brief The path of the resource relative to the asset root. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the source file in bytes. */
	DataSize uint64
	/**
	 * @brief The resource data: string for text, []byte for binary,
	 * image.Image for images, *MaterialConfig for materials and
	 * *meshes.Builder for meshes.
	 */
	Data interface{}
}

func (r *Resource) Text() (string, bool) {
	s, ok := r.Data.(string)
	return s, ok
}

func (r *Resource) Bytes() ([]byte, bool) {
	b, ok := r.Data.([]byte)
	return b, ok
}

func (r *Resource) Image() (image.Image, bool) {
	img, ok := r.Data.(image.Image)
	return img, ok
}

func (r *Resource) Material() (*MaterialConfig, bool) {
	m, ok := r.Data.(*MaterialConfig)
	return m, ok
}

func (r *Resource) Mesh() (*meshes.Builder, bool) {
	b, ok := r.Data.(*meshes.Builder)
	return b, ok
}

/** @brief Parameters used when loading a mesh. */
type MeshResourceParams struct {
	/** @brief Multiplies every position. Zero means 1. */
	Scale float32
}

/** @brief One parameter of a material definition. */
type MaterialFieldConfig struct {
	Name string `toml:"name"`
	/** @brief "float" or "int". */
	Type string `toml:"type"`
	/** @brief 1-4 for scalars and vectors, 9 for mat3, 16 for mat4. */
	Count   int       `toml:"count"`
	Default []float64 `toml:"default"`
}

/** @brief One texture slot of a material definition. */
type MaterialTextureConfig struct {
	Name    string `toml:"name"`
	Uniform string `toml:"uniform"`
}

/**
 * @brief Material configuration loaded from a toml file under
 * assets/materials. It names the program pair, the parameter block and
 * the texture slots a material instance exposes.
 */
type MaterialConfig struct {
	Name     string                  `toml:"name"`
	Vertex   string                  `toml:"vertex"`
	Fragment string                  `toml:"fragment"`
	Fields   []MaterialFieldConfig   `toml:"fields"`
	Textures []MaterialTextureConfig `toml:"textures"`
}

// Validate checks the definition before it reaches the GPU.
func (c *MaterialConfig) Validate() error {
	if c.Vertex == "" || c.Fragment == "" {
		return fmt.Errorf("material %q: vertex and fragment are required: %w", c.Name, core.ErrInvalidField)
	}
	_, err := c.BufferFields()
	return err
}

// BufferFields converts the parameter declarations into packed buffer fields.
func (c *MaterialConfig) BufferFields() ([]buffers.Field, error) {
	fields := make([]buffers.Field, 0, len(c.Fields))
	for _, f := range c.Fields {
		count := f.Count
		if count == 0 {
			count = 1
		}
		switch count {
		case 1, 2, 3, 4, 9, 16:
		default:
			return nil, fmt.Errorf("material %q field %q: count %d: %w", c.Name, f.Name, count, core.ErrInvalidField)
		}
		if f.Name == "" {
			return nil, fmt.Errorf("material %q: unnamed field: %w", c.Name, core.ErrInvalidField)
		}
		if len(f.Default) != 0 && len(f.Default) != count {
			return nil, fmt.Errorf("material %q field %q: %d defaults for %d components: %w",
				c.Name, f.Name, len(f.Default), count, core.ErrInvalidField)
		}
		switch strings.ToLower(f.Type) {
		case "", "float":
			def := make([]float32, len(f.Default))
			for i, v := range f.Default {
				def[i] = float32(v)
			}
			fields = append(fields, buffers.Float(f.Name, count, def...))
		case "int":
			if count > 4 {
				return nil, fmt.Errorf("material %q field %q: int matrices: %w", c.Name, f.Name, core.ErrFieldType)
			}
			def := make([]int32, len(f.Default))
			for i, v := range f.Default {
				def[i] = int32(v)
			}
			fields = append(fields, buffers.Field{Name: f.Name, Type: gpu.Int32, Count: count, DefaultInts: def})
		default:
			return nil, fmt.Errorf("material %q field %q: type %q: %w", c.Name, f.Name, f.Type, core.ErrFieldType)
		}
	}
	return fields, nil
}

// TextureSlots lists the slots in declaration order.
func (c *MaterialConfig) TextureSlots() []materials.TextureSlot {
	slots := make([]materials.TextureSlot, len(c.Textures))
	for i, t := range c.Textures {
		slots[i] = materials.TextureSlot{Name: t.Name, Uniform: t.Uniform}
	}
	return slots
}
