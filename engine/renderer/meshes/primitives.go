package meshes

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

// quad builds the two triangle quad shared by the plane and screen quad.
func quad(ctx *gpu.Context, positions [4][]float32, uvs [4][2]float32) *Mesh {
	b := NewBuilder()
	pos := b.AddVertexAttribute(Position, 0, len(positions[0]))
	uv := b.AddVertexAttribute(TexCoord, 0, 2)
	var v [4]int
	for i := range v {
		v[i] = b.AppendVertex()
		b.SetVertexAttribute(v[i], pos, positions[i]...)
		b.SetVertexAttribute(v[i], uv, uvs[i][:]...)
	}
	s := b.AddSection(Triangles)
	_ = b.AppendPrimitive(s, v[0], v[1], v[2])
	_ = b.AppendPrimitive(s, v[2], v[3], v[0])
	return b.Build(ctx)
}

// NewPlane builds a unit quad in the XY plane centred on the origin.
func NewPlane(ctx *gpu.Context) *Mesh {
	return quad(ctx,
		[4][]float32{{-0.5, -0.5, 0}, {-0.5, 0.5, 0}, {0.5, 0.5, 0}, {0.5, -0.5, 0}},
		[4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
	)
}

// NewScreenQuad builds a quad covering clip space, with 2D positions.
func NewScreenQuad(ctx *gpu.Context) *Mesh {
	return quad(ctx,
		[4][]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}},
		[4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
	)
}

const DefaultSphereSubdivisions = 16

/**
 * @brief Builds a unit UV sphere with normals and tangents.
 * @param subdivisions Number of latitude bands; longitude uses twice as many.
 */
func NewSphere(ctx *gpu.Context, subdivisions int) *Mesh {
	if subdivisions <= 0 {
		subdivisions = DefaultSphereSubdivisions
	}
	b := NewBuilder()
	pos := b.AddVertexAttribute(Position, 0, 3)
	uv := b.AddVertexAttribute(TexCoord, 0, 2)
	normal := b.AddVertexAttribute(Normal, 0, 3)

	lonSteps := subdivisions * 2
	rows := make([][]int, subdivisions+1)
	for lat := 0; lat <= subdivisions; lat++ {
		theta := float32(lat) * math32.Pi / float32(subdivisions)
		sinTheta, cosTheta := math32.Sincos(theta)
		rows[lat] = make([]int, lonSteps+1)
		for lon := 0; lon <= lonSteps; lon++ {
			phi := float32(lon) * 2 * math32.Pi / float32(lonSteps)
			sinPhi, cosPhi := math32.Sincos(phi)
			x, y, z := sinTheta*cosPhi, cosTheta, sinTheta*sinPhi

			v := b.AppendVertex()
			b.SetVertexAttribute(v, pos, x, y, z)
			b.SetVertexAttribute(v, uv, float32(lon)/float32(lonSteps), float32(lat)/float32(subdivisions))
			b.SetVertexAttribute(v, normal, x, y, z)
			rows[lat][lon] = v
		}
	}

	s := b.AddSection(Triangles)
	for lat := 0; lat < subdivisions; lat++ {
		for lon := 0; lon < lonSteps; lon++ {
			v0, v1 := rows[lat][lon], rows[lat+1][lon]
			v2, v3 := rows[lat+1][lon+1], rows[lat][lon+1]
			_ = b.AppendPrimitive(s, v0, v1, v2)
			_ = b.AppendPrimitive(s, v0, v2, v3)
		}
	}
	b.GenerateTangents(pos, normal, uv)
	return b.Build(ctx)
}

var cubeFaceUVs = [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

var cubeFaces = [6][3]mgl32.Vec3{
	{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
	{{0, 0, -1}, {-1, 0, 0}, {0, 1, 0}},
	{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
	{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
	{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},
	{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
}

// NewCube builds a cube of half size 0.5 where every face has its own four
// vertices and tangent frame.
func NewCube(ctx *gpu.Context) *Mesh {
	b := NewBuilder()
	pos := b.AddVertexAttribute(Position, 0, 3)
	uv := b.AddVertexAttribute(TexCoord, 0, 2)
	normal := b.AddVertexAttribute(Normal, 0, 3)
	tu := b.AddVertexAttribute(TangentU, 0, 3)
	tv := b.AddVertexAttribute(TangentV, 0, 3)
	s := b.AddSection(Triangles)

	for _, face := range cubeFaces {
		n, u, v := face[0], face[1], face[2]
		var idx [4]int
		for i, c := range cubeFaceUVs {
			p := n.Add(u.Mul(c.X()*2 - 1)).Add(v.Mul(c.Y()*2 - 1)).Mul(0.5)
			idx[i] = b.AppendVertex()
			b.SetVertexAttribute(idx[i], pos, p[:]...)
			b.SetVertexAttribute(idx[i], uv, c[:]...)
			b.SetVertexAttribute(idx[i], normal, n[:]...)
			b.SetVertexAttribute(idx[i], tu, u[:]...)
			b.SetVertexAttribute(idx[i], tv, v[:]...)
		}
		_ = b.AppendPrimitive(s, idx[2], idx[1], idx[0])
		_ = b.AppendPrimitive(s, idx[3], idx[2], idx[0])
	}
	return b.Build(ctx)
}
