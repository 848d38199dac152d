package meshes

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

type objSectionKey struct {
	object, group string
}

type objParser struct {
	b          *Builder
	scale      float32
	positions  []mgl32.Vec3
	normals    []mgl32.Vec3
	texCoords  []mgl32.Vec2
	sections   map[objSectionKey]int
	current    objSectionKey
	section    int
	smooth     bool
	posAttr    int
	normalAttr int
	uvAttr     int
}

/**
 * @brief Parses Wavefront OBJ text into a builder. Every object and group
 * pair becomes a section, polygons are fan triangulated, texture V is flipped
 * and positions are multiplied by scale. Faces with smoothing off, or
 * without normals, get a flat face normal. Tangents are generated.
 */
func ParseOBJ(text string, scale float32) (*Builder, error) {
	b := NewBuilder()
	p := &objParser{
		b:        b,
		scale:    scale,
		sections: map[objSectionKey]int{},
		section:  -1,
		smooth:   true,
	}
	p.posAttr = b.AddVertexAttribute(Position, 0, 3)
	p.normalAttr = b.AddVertexAttribute(Normal, 0, 3)
	p.uvAttr = b.AddVertexAttribute(TexCoord, 0, 2)

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for lineNo := 1; sc.Scan(); lineNo++ {
		if err := p.line(strings.Fields(sc.Text())); err != nil {
			return nil, fmt.Errorf("obj line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	b.GenerateTangents(p.posAttr, p.normalAttr, p.uvAttr)
	return b, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

func (p *objParser) line(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "v":
		f, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		p.positions = append(p.positions, mgl32.Vec3{f[0], f[1], f[2]}.Mul(p.scale))
	case "vn":
		f, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		p.normals = append(p.normals, mgl32.Vec3{f[0], f[1], f[2]})
	case "vt":
		f, err := parseFloats(fields[1:], 2)
		if err != nil {
			return err
		}
		p.texCoords = append(p.texCoords, mgl32.Vec2{f[0], 1 - f[1]})
	case "o":
		p.current = objSectionKey{object: strings.Join(fields[1:], " ")}
		p.section = -1
	case "g":
		p.current.group = strings.Join(fields[1:], " ")
		p.section = -1
	case "s":
		p.smooth = len(fields) > 1 && fields[1] != "off" && fields[1] != "0"
	case "f":
		return p.face(fields[1:])
	}
	return nil
}

// index resolves a 1 based, possibly negative, OBJ reference.
func index(ref string, count int) (int, bool, error) {
	if ref == "" {
		return 0, false, nil
	}
	i, err := strconv.Atoi(ref)
	if err != nil {
		return 0, false, err
	}
	if i < 0 {
		i = count + i
	} else {
		i--
	}
	if i < 0 || i >= count {
		return 0, false, fmt.Errorf("reference %s out of range", ref)
	}
	return i, true, nil
}

func (p *objParser) face(refs []string) error {
	if len(refs) < 3 {
		return fmt.Errorf("face with %d vertices", len(refs))
	}
	if p.section < 0 {
		s, ok := p.sections[p.current]
		if !ok {
			s = p.b.AddSection(Triangles)
			p.sections[p.current] = s
		}
		p.section = s
	}

	vertices := make([]int, len(refs))
	flat := !p.smooth
	for i, ref := range refs {
		parts := strings.Split(ref, "/")
		pi, _, err := index(parts[0], len(p.positions))
		if err != nil {
			return err
		}
		v := p.b.AppendVertex()
		vertices[i] = v
		pos := p.positions[pi]
		p.b.SetVertexAttribute(v, p.posAttr, pos[:]...)
		if len(parts) > 1 {
			ti, ok, err := index(parts[1], len(p.texCoords))
			if err != nil {
				return err
			}
			if ok {
				uv := p.texCoords[ti]
				p.b.SetVertexAttribute(v, p.uvAttr, uv[:]...)
			}
		}
		hasNormal := false
		if len(parts) > 2 {
			ni, ok, err := index(parts[2], len(p.normals))
			if err != nil {
				return err
			}
			if ok {
				n := p.normals[ni]
				p.b.SetVertexAttribute(v, p.normalAttr, n[:]...)
				hasNormal = true
			}
		}
		flat = flat || !hasNormal
	}

	if flat {
		origin := p.b.vec3(vertices[0], p.posAttr)
		var sum mgl32.Vec3
		for i := 2; i < len(vertices); i++ {
			du := p.b.vec3(vertices[i-1], p.posAttr).Sub(origin)
			dv := p.b.vec3(vertices[i], p.posAttr).Sub(origin)
			sum = sum.Add(du.Cross(dv))
		}
		if sum.Len() > 0 {
			sum = sum.Normalize()
		}
		for _, v := range vertices {
			p.b.SetVertexAttribute(v, p.normalAttr, sum[:]...)
		}
	}

	for i := 2; i < len(vertices); i++ {
		if err := p.b.AppendPrimitive(p.section, vertices[i], vertices[i-1], vertices[0]); err != nil {
			return err
		}
	}
	return nil
}
