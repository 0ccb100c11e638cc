package software

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"voxgrass/internal/compute"
	"voxgrass/internal/index"
)

type meshKernel struct {
	p           compute.MeshParams
	size        [3]int
	origin      mgl32.Vec3
	transparent map[int32]struct{}
	custom      map[int32]struct{}
	opaqueOut   *appendBuffer
	transOut    *appendBuffer
}

func newMeshKernel(p compute.MeshParams, opaque, transparent *appendBuffer) (*meshKernel, error) {
	size := [3]int{int(p.ChunkSize[0]), int(p.ChunkSize[1]), int(p.ChunkSize[2])}
	vol := index.Volume(size[0], size[1], size[2])
	if len(p.VoxelMap) != vol {
		return nil, fmt.Errorf("mesh chunk: voxel map has %d entries, want %d", len(p.VoxelMap), vol)
	}
	for n, nb := range p.Neighbors {
		if len(nb) != vol {
			return nil, fmt.Errorf("mesh chunk: %s neighbor has %d entries, want %d", compute.Neighbor(n), len(nb), vol)
		}
	}

	k := &meshKernel{
		p:           p,
		size:        size,
		origin:      mgl32.Vec3{float32(p.ChunkPos[0]), float32(p.ChunkPos[1]), float32(p.ChunkPos[2])},
		transparent: make(map[int32]struct{}, len(p.TransparentIDs)),
		custom:      make(map[int32]struct{}, len(p.CustomMeshIDs)),
		opaqueOut:   opaque,
		transOut:    transparent,
	}
	for _, id := range p.TransparentIDs {
		k.transparent[id] = struct{}{}
	}
	for _, id := range p.CustomMeshIDs {
		k.custom[id] = struct{}{}
	}
	return k, nil
}

func (k *meshKernel) isTransparent(id int32) bool {
	_, ok := k.transparent[id]
	return ok
}

func (k *meshKernel) isCustom(id int32) bool {
	_, ok := k.custom[id]
	return ok
}

// voxelAt resolves a probe one step outside the chunk into the matching
// neighbor map. Above and below the world is air.
func (k *meshKernel) voxelAt(x, y, z int) int32 {
	sx, sy, sz := k.size[0], k.size[1], k.size[2]
	if y < 0 || y >= sy {
		return 0
	}

	src := k.p.VoxelMap
	switch {
	case x < 0:
		src, x = k.p.Neighbors[compute.NeighborLeft], x+sx
	case x >= sx:
		src, x = k.p.Neighbors[compute.NeighborRight], x-sx
	case z < 0:
		src, z = k.p.Neighbors[compute.NeighborFront], z+sz
	case z >= sz:
		src, z = k.p.Neighbors[compute.NeighborBack], z-sz
	}
	return src[index.ToFlat(x, y, z, sx, sy)]
}

func (k *meshKernel) faceVisible(self, other int32) bool {
	switch {
	case other == 0:
		return true
	case k.isCustom(other):
		return true
	case k.isTransparent(other) && other != self:
		return true
	}
	return false
}

func (k *meshKernel) textureIndex(id int32, face int) float32 {
	i := int(id-1)*6 + face
	if i < 0 || i >= len(k.p.TextureIndexes) {
		return 0
	}
	return float32(k.p.TextureIndexes[i])
}

func (k *meshKernel) runGroup(g [3]int) {
	for lz := 0; lz < meshGroupSize[2]; lz++ {
		for ly := 0; ly < meshGroupSize[1]; ly++ {
			for lx := 0; lx < meshGroupSize[0]; lx++ {
				x := g[0]*meshGroupSize[0] + lx
				y := g[1]*meshGroupSize[1] + ly
				z := g[2]*meshGroupSize[2] + lz
				if index.InBounds(x, y, z, k.size[0], k.size[1], k.size[2]) {
					k.voxel(x, y, z)
				}
			}
		}
	}
}

func (k *meshKernel) voxel(x, y, z int) {
	id := k.p.VoxelMap[index.ToFlat(x, y, z, k.size[0], k.size[1])]
	if id == 0 || k.isCustom(id) {
		return
	}

	out := k.opaqueOut
	if k.isTransparent(id) {
		out = k.transOut
	}

	base := k.origin.Add(mgl32.Vec3{float32(x), float32(y), float32(z)})
	var rec [compute.ChunkTriangleStride]byte

	for face := range compute.VoxelFaces {
		c := compute.FaceChecks[face]
		if !k.faceVisible(id, k.voxelAt(x+c[0], y+c[1], z+c[2])) {
			continue
		}

		uv4 := mgl32.Vec2{k.textureIndex(id, face), 0}
		for _, tri := range compute.QuadTriangles {
			t := compute.ChunkTriangle{Normal: compute.FaceNormals[face], UV4: uv4}
			for v, q := range tri {
				t.Verts[v] = compute.Vertex{
					Position: base.Add(compute.VoxelVerts[compute.VoxelFaces[face][q]]),
					UV:       compute.QuadUVs[q],
				}
			}
			out.appendRecord(t.AppendBinary(rec[:0]))
		}
	}
}
