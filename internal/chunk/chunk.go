// Package chunk holds one fixed-size column of voxels together with its
// assembled mesh and its grass layer.
package chunk

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"voxgrass/internal/compute"
	"voxgrass/internal/config"
	"voxgrass/internal/index"
	"voxgrass/internal/lod"
	"voxgrass/internal/meshing"
	"voxgrass/internal/registry"
	"voxgrass/internal/render"
)

var (
	ErrVoxelCount  = errors.New("voxel count does not match chunk volume")
	ErrOutOfBounds = errors.New("voxel position outside chunk")
	ErrReleased    = errors.New("chunk released")
)

// Voxel count slots.
const (
	CountOpaque = iota
	CountTransparent
)

// Coord is a chunk's position on the horizontal chunk grid.
type Coord struct {
	X, Z int
}

func (c Coord) String() string { return fmt.Sprintf("(%d, %d)", c.X, c.Z) }

// Add offsets c by a neighbor delta.
func (c Coord) Add(dx, dz int) Coord { return Coord{c.X + dx, c.Z + dz} }

// Position is a voxel position local to a chunk.
type Position struct {
	X, Y, Z int
}

type Options struct {
	Coord Coord
	// Size is the chunk extent in voxels.
	Size     [3]int
	Registry *registry.Registry
	Device   compute.Device
	Scene    render.Scene
	Grass    *config.GrassSettings
	LOD      lod.Settings
	Logger   logrus.FieldLogger
}

type Chunk struct {
	coord    Coord
	size     [3]int
	origin   [3]int
	bounds   meshing.Bounds
	reg      *registry.Registry
	device   compute.Device
	grassCfg *config.GrassSettings
	lodCfg   lod.Settings
	log      logrus.FieldLogger

	voxels []int32
	counts [2]int

	grass      []Position
	grassIndex map[Position]int
	grassDirty bool
	grassRev   uint64
	grassBuf   compute.AppendBuffer
	grassTris  int
	args       compute.ArgsBuffer
	lodMult    int

	obj       render.Object
	mesh      *meshing.Mesh
	voxelTris int
	released  bool
}

// New creates an all-air chunk with its render object and indirect args
// buffer.
func New(opts Options) (*Chunk, error) {
	for i, s := range opts.Size {
		if s < 1 {
			return nil, fmt.Errorf("new chunk %s: size[%d] = %d", opts.Coord, i, s)
		}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Grass == nil {
		opts.Grass = config.NewGrassSettings(config.Default().Grass)
	}
	if opts.LOD == (lod.Settings{}) {
		opts.LOD = lod.DefaultSettings()
	}
	if err := opts.LOD.Validate(); err != nil {
		return nil, fmt.Errorf("new chunk %s: %w", opts.Coord, err)
	}

	args, err := opts.Device.NewArgsBuffer()
	if err != nil {
		return nil, fmt.Errorf("new chunk %s: %w", opts.Coord, err)
	}

	size := opts.Size
	origin := [3]int{opts.Coord.X * size[0], 0, opts.Coord.Z * size[2]}
	lo := mgl32.Vec3{float32(origin[0]), float32(origin[1]), float32(origin[2])}
	hi := lo.Add(mgl32.Vec3{float32(size[0]), float32(size[1]), float32(size[2])})

	c := &Chunk{
		coord:      opts.Coord,
		size:       size,
		origin:     origin,
		bounds:     meshing.BoundsFromMinMax(lo, hi),
		reg:        opts.Registry,
		device:     opts.Device,
		grassCfg:   opts.Grass,
		lodCfg:     opts.LOD,
		log:        log.WithField("chunk", opts.Coord.String()),
		voxels:     make([]int32, index.Volume(size[0], size[1], size[2])),
		grassIndex: make(map[Position]int),
		args:       args,
		lodMult:    1,
	}
	c.obj = opts.Scene.NewObject("Chunk: " + opts.Coord.String())
	return c, nil
}

func (c *Chunk) Coord() Coord { return c.coord }

// Origin is the world-space voxel position of local (0, 0, 0).
func (c *Chunk) Origin() [3]int { return c.origin }

func (c *Chunk) Size() [3]int { return c.size }

// Bounds covers the chunk volume in world space.
func (c *Chunk) Bounds() meshing.Bounds { return c.bounds }

// Volume is the voxel count of the chunk.
func (c *Chunk) Volume() int { return len(c.voxels) }

// VoxelCounts returns the opaque and transparent non-air voxel counts.
func (c *Chunk) VoxelCounts() [2]int { return c.counts }

func (c *Chunk) Empty() bool { return c.counts[CountOpaque] == 0 && c.counts[CountTransparent] == 0 }

// VoxelMap returns a copy of the voxel IDs.
func (c *Chunk) VoxelMap() []int32 { return append([]int32(nil), c.voxels...) }

// NeighborView is the read-only copy handed to a neighbor's meshing call.
func (c *Chunk) NeighborView() []int32 { return c.VoxelMap() }

func (c *Chunk) Mesh() *meshing.Mesh { return c.mesh }

func (c *Chunk) Object() render.Object { return c.obj }

func (c *Chunk) LODMultiplier() int { return c.lodMult }

// VoxelTriangleCount is the opaque triangle count of the assembled mesh.
// Transparent triangles are drawn but not counted.
func (c *Chunk) VoxelTriangleCount() int { return c.voxelTris }

// GrassTriangleCount is the number of grass triangles generated, before LOD.
func (c *Chunk) GrassTriangleCount() int { return c.grassTris }

// VisibleGrassTriangles is the instance count of the grass draw.
func (c *Chunk) VisibleGrassTriangles() int {
	if c.grassBuf == nil {
		return 0
	}
	return c.grassTris / c.lodMult
}

func (c *Chunk) Released() bool { return c.released }

// Populate replaces the voxel map. The slice is copied.
func (c *Chunk) Populate(voxels []int32) error {
	if len(voxels) != len(c.voxels) {
		return fmt.Errorf("populate chunk %s: got %d voxels, want %d: %w", c.coord, len(voxels), len(c.voxels), ErrVoxelCount)
	}
	copy(c.voxels, voxels)
	c.recount()
	return nil
}

func (c *Chunk) recount() {
	c.counts = [2]int{}
	for _, id := range c.voxels {
		c.countVoxel(id, 1)
	}
}

func (c *Chunk) countVoxel(id int32, delta int) {
	switch {
	case id == registry.Air:
	case c.reg.IsTransparent(id):
		c.counts[CountTransparent] += delta
	default:
		c.counts[CountOpaque] += delta
	}
}

func (c *Chunk) inBounds(x, y, z int) bool {
	return index.InBounds(x, y, z, c.size[0], c.size[1], c.size[2])
}

// Voxel returns the ID at a local position.
func (c *Chunk) Voxel(x, y, z int) (int32, error) {
	if !c.inBounds(x, y, z) {
		return 0, fmt.Errorf("voxel (%d, %d, %d) in chunk %s: %w", x, y, z, c.coord, ErrOutOfBounds)
	}
	return c.voxels[index.ToFlat(x, y, z, c.size[0], c.size[1])], nil
}

// SetVoxel writes one voxel and keeps the counts current. The grass set and
// mesh are left for the caller to rebuild.
func (c *Chunk) SetVoxel(x, y, z int, id int32) error {
	if !c.inBounds(x, y, z) {
		return fmt.Errorf("voxel (%d, %d, %d) in chunk %s: %w", x, y, z, c.coord, ErrOutOfBounds)
	}
	i := index.ToFlat(x, y, z, c.size[0], c.size[1])
	c.countVoxel(c.voxels[i], -1)
	c.voxels[i] = id
	c.countVoxel(id, 1)
	return nil
}

// MeshParams marshals a meshing dispatch for this chunk. neighbors must be
// indexed by compute.Neighbor.
func (c *Chunk) MeshParams(neighbors [compute.NumNeighbors][]int32) compute.MeshParams {
	return compute.MeshParams{
		ChunkPos:       [3]int32{int32(c.origin[0]), int32(c.origin[1]), int32(c.origin[2])},
		ChunkSize:      [3]int32{int32(c.size[0]), int32(c.size[1]), int32(c.size[2])},
		VoxelMap:       c.VoxelMap(),
		Neighbors:      neighbors,
		TransparentIDs: c.reg.TransparentIDs(),
		CustomMeshIDs:  c.reg.CustomMeshIDs(),
		TextureIndexes: c.reg.TextureIndexes(),
	}
}

// AssembleMesh builds the two-submesh mesh and hands it to the render object.
func (c *Chunk) AssembleMesh(opaque, transparent []compute.ChunkTriangle) {
	c.mesh = meshing.Assemble(opaque, transparent)
	c.voxelTris = c.mesh.TriangleCount(meshing.Opaque)
	if c.obj != nil {
		c.obj.SetMesh(c.mesh)
	}
}

// RecomputeLOD updates the grass divisor for a camera height.
func (c *Chunk) RecomputeLOD(cameraHeight float64) int {
	c.lodMult = lod.Multiplier(cameraHeight, c.lodCfg)
	return c.lodMult
}

// Release frees the grass buffers and destroys the render object. It is
// safe to call more than once.
func (c *Chunk) Release() {
	if c.released {
		return
	}
	c.released = true
	c.releaseGrassBuffer()
	if c.args != nil {
		c.args.Release()
		c.args = nil
	}
	if c.obj != nil {
		c.obj.Destroy()
		c.obj = nil
	}
	c.mesh = nil
	c.voxelTris = 0
}

func (c *Chunk) checkLive(op string) error {
	if c.released {
		return fmt.Errorf("%s chunk %s: %w", op, c.coord, ErrReleased)
	}
	return nil
}
