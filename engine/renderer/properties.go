package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/math"
)

type PropertyType uint8

const (
	PropertyBoolean PropertyType = iota
	PropertyNumber
	PropertyColour
)

// Category groups properties for display.
type Category struct {
	Name        string
	Description string
}

/**
 * @brief Describes one user adjustable scene setting. Min, Max and Step
 * apply to numbers; Linear and Alpha to colours.
 */
type Property struct {
	Key         string
	Type        PropertyType
	Name        string
	Category    Category
	Description string

	Min, Max, Step float32

	Linear bool
	Alpha  bool
}

func NumberProperty(key, name string, category Category, min, max, step float32, description string) Property {
	return Property{Key: key, Type: PropertyNumber, Name: name, Category: category, Min: min, Max: max, Step: step, Description: description}
}

func BooleanProperty(key, name string, category Category, description string) Property {
	return Property{Key: key, Type: PropertyBoolean, Name: name, Category: category, Description: description}
}

func ColourProperty(key, name string, category Category, linear, alpha bool, description string) Property {
	return Property{Key: key, Type: PropertyColour, Name: name, Category: category, Linear: linear, Alpha: alpha, Description: description}
}

// PropertyValues holds concrete values keyed by Property.Key: bool for
// booleans, float32 for numbers and mgl32.Vec4 for colours.
type PropertyValues map[string]any

func (p PropertyValues) Number(key string) float32 {
	v, _ := p[key].(float32)
	return v
}

func (p PropertyValues) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

func (p PropertyValues) Colour(key string) mgl32.Vec4 {
	v, _ := p[key].(mgl32.Vec4)
	return v
}

// Clone returns a copy that can be edited independently.
func (p PropertyValues) Clone() PropertyValues {
	out := make(PropertyValues, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Validate checks every value against its definition. Numbers outside
// [Min, Max] are clamped in place.
func (p PropertyValues) Validate(defs []Property) error {
	for _, d := range defs {
		v, ok := p[d.Key]
		if !ok {
			return fmt.Errorf("property %q has no value", d.Key)
		}
		switch d.Type {
		case PropertyBoolean:
			if _, ok := v.(bool); !ok {
				return fmt.Errorf("property %q: want bool, got %T", d.Key, v)
			}
		case PropertyNumber:
			n, ok := v.(float32)
			if !ok {
				return fmt.Errorf("property %q: want float32, got %T", d.Key, v)
			}
			if d.Max > d.Min {
				p[d.Key] = math.Clamp(n, d.Min, d.Max)
			}
		case PropertyColour:
			if _, ok := v.(mgl32.Vec4); !ok {
				return fmt.Errorf("property %q: want mgl32.Vec4, got %T", d.Key, v)
			}
		}
	}
	return nil
}
