// Package meshing assembles kernel triangles into a renderable mesh with an
// opaque and a transparent submesh over one vertex buffer.
package meshing

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxgrass/internal/compute"
)

// Submesh slots.
const (
	Opaque = iota
	Transparent
	NumSubMeshes
)

// Bounds is an axis-aligned box stored as center and half extents.
type Bounds struct {
	Center  mgl32.Vec3
	Extents mgl32.Vec3
}

func BoundsFromMinMax(lo, hi mgl32.Vec3) Bounds {
	return Bounds{
		Center:  lo.Add(hi).Mul(0.5),
		Extents: hi.Sub(lo).Mul(0.5),
	}
}

func (b Bounds) Min() mgl32.Vec3 { return b.Center.Sub(b.Extents) }
func (b Bounds) Max() mgl32.Vec3 { return b.Center.Add(b.Extents) }

func (b Bounds) Contains(p mgl32.Vec3) bool {
	lo, hi := b.Min(), b.Max()
	for i := range 3 {
		if p[i] < lo[i] || p[i] > hi[i] {
			return false
		}
	}
	return true
}

// SubMesh is a range of the index buffer.
type SubMesh struct {
	Start int
	Count int
}

type Mesh struct {
	Vertices  []mgl32.Vec3
	Normals   []mgl32.Vec3
	UV0       []mgl32.Vec2
	UV3       []mgl32.Vec2
	Indices   []uint32
	SubMeshes [NumSubMeshes]SubMesh
	Bounds    Bounds
}

// Assemble lays out three fresh vertices per triangle, opaque triangles
// first. Winding is kept as emitted.
func Assemble(opaque, transparent []compute.ChunkTriangle) *Mesh {
	n := 3 * (len(opaque) + len(transparent))
	m := &Mesh{
		Vertices: make([]mgl32.Vec3, 0, n),
		Normals:  make([]mgl32.Vec3, 0, n),
		UV0:      make([]mgl32.Vec2, 0, n),
		UV3:      make([]mgl32.Vec2, 0, n),
		Indices:  make([]uint32, 0, n),
	}

	for sub, tris := range [NumSubMeshes][]compute.ChunkTriangle{opaque, transparent} {
		m.SubMeshes[sub] = SubMesh{Start: len(m.Indices), Count: 3 * len(tris)}
		for _, t := range tris {
			for _, v := range t.Verts {
				m.Indices = append(m.Indices, uint32(len(m.Vertices)))
				m.Vertices = append(m.Vertices, v.Position)
				m.UV0 = append(m.UV0, v.UV)
				m.UV3 = append(m.UV3, t.UV4)
				m.Normals = append(m.Normals, t.Normal)
			}
		}
	}

	m.RecalculateBounds()
	return m
}

// RecalculateBounds fits Bounds to the vertices. An empty mesh has zero bounds.
func (m *Mesh) RecalculateBounds() {
	if len(m.Vertices) == 0 {
		m.Bounds = Bounds{}
		return
	}
	lo, hi := m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for i := range 3 {
			lo[i] = min(lo[i], v[i])
			hi[i] = max(hi[i], v[i])
		}
	}
	m.Bounds = BoundsFromMinMax(lo, hi)
}

func (m *Mesh) TriangleCount(sub int) int {
	if m == nil || sub < 0 || sub >= NumSubMeshes {
		return 0
	}
	return m.SubMeshes[sub].Count / 3
}

// TotalTriangles sums both submeshes.
func (m *Mesh) TotalTriangles() int {
	return m.TriangleCount(Opaque) + m.TriangleCount(Transparent)
}

// DrawArgs are the indexed indirect draw arguments of a submesh:
// index count, one instance, start index, base vertex 0.
func (m *Mesh) DrawArgs(sub int) compute.DrawArgs {
	if m == nil || sub < 0 || sub >= NumSubMeshes {
		return compute.DrawArgs{}
	}
	s := m.SubMeshes[sub]
	return compute.DrawArgs{int32(s.Count), 1, int32(s.Start), 0}
}
