package compute

// Neighbor selects one of the four horizontal neighbor voxel maps.
type Neighbor int

const (
	NeighborFront Neighbor = iota // -Z
	NeighborBack                  // +Z
	NeighborLeft                  // -X
	NeighborRight                 // +X
	NumNeighbors
)

// Offset is the chunk-coordinate delta (x, z) of the neighbor.
func (n Neighbor) Offset() (dx, dz int) {
	switch n {
	case NeighborFront:
		return 0, -1
	case NeighborBack:
		return 0, 1
	case NeighborLeft:
		return -1, 0
	case NeighborRight:
		return 1, 0
	}
	return 0, 0
}

func (n Neighbor) String() string {
	switch n {
	case NeighborFront:
		return "front"
	case NeighborBack:
		return "back"
	case NeighborLeft:
		return "left"
	case NeighborRight:
		return "right"
	}
	return "unknown"
}

// BiomeParams is the marshaled form of a biome, block names resolved to IDs.
type BiomeParams struct {
	GroundBlock              int32
	GroundHeight             int32
	SecondaryGroundBlock     int32
	SecondaryGroundThreshold float32
	SecondaryGroundScale     float32
	SecondaryGroundOffset    [2]int32
	UndergroundBlock         int32
	RockTypes                [3]int32
	RockThreshold            float32
	RockScale                float32
	RockOffset               [2]int32
	FoliageBlock             int32
	FoliageThreshold         float32
	FoliageScale             float32
}

// MapParams drive the world-generation kernel.
type MapParams struct {
	// Size of the whole map in voxels (x, y, z).
	Size [3]int
	// Offset is the seed-derived noise offset.
	Offset [2]float32
	Biome  BiomeParams
}

// Volume is the number of voxel IDs the kernel writes.
func (p MapParams) Volume() int {
	return p.Size[0] * p.Size[1] * p.Size[2]
}

// MeshParams drive the chunk-meshing kernel. Voxel maps are copied into
// scratch buffers for the duration of the call.
type MeshParams struct {
	ChunkPos  [3]int32
	ChunkSize [3]int32
	VoxelMap  []int32
	// Neighbors are indexed by Neighbor and must have the same length as
	// VoxelMap. Missing chunks are passed as all-air maps.
	Neighbors      [NumNeighbors][]int32
	TransparentIDs []int32
	CustomMeshIDs  []int32
	TextureIndexes []int32
}

// GrassParams drive the grass-triangle kernel.
type GrassParams struct {
	Positions       [][3]int32
	PerTile         int
	Width           float32
	Height          float32
	CurveMultiplier float32
	ChunkPos        [3]float32
}

// TriangleCount is the triangle budget: one triangle per blade.
func (p GrassParams) TriangleCount() int {
	return len(p.Positions) * p.PerTile
}
