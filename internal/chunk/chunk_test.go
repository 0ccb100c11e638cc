package chunk

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxgrass/internal/compute"
	"voxgrass/internal/compute/software"
	"voxgrass/internal/config"
	"voxgrass/internal/index"
	"voxgrass/internal/lod"
	"voxgrass/internal/meshing"
	"voxgrass/internal/registry"
	"voxgrass/internal/render"
)

var size = [3]int{4, 4, 4}

type fixture struct {
	reg     *registry.Registry
	dev     *grassCounter
	sw      *software.Device
	scene   *render.Headless
	grass   *config.GrassSettings
	stone   int32
	foliage int32
}

// grassCounter counts grass dispatches. Buffers still come from the embedded
// software device, so its ownership checks pass.
type grassCounter struct {
	compute.Device
	grassCalls int
}

func (g *grassCounter) GenerateGrass(ctx context.Context, p compute.GrassParams, out compute.AppendBuffer) error {
	g.grassCalls++
	return g.Device.GenerateGrass(ctx, p, out)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sw := software.New(software.Options{Workers: 2})
	t.Cleanup(func() { _ = sw.Close() })

	reg := registry.Default()
	stone, err := reg.IDByName(registry.Stone)
	require.NoError(t, err)
	foliage, err := reg.IDByName(registry.GrassFoliage)
	require.NoError(t, err)

	return &fixture{
		reg:     reg,
		dev:     &grassCounter{Device: sw},
		sw:      sw,
		scene:   render.NewHeadless(),
		grass:   config.NewGrassSettings(config.GrassConfig{PerTile: 10, Height: 0.2, Width: 0.025, CurveMultiplier: 0.2}),
		stone:   stone,
		foliage: foliage,
	}
}

func (f *fixture) newChunk(t *testing.T, coord Coord) *Chunk {
	t.Helper()
	c, err := New(Options{
		Coord:    coord,
		Size:     size,
		Registry: f.reg,
		Device:   f.dev,
		Scene:    f.scene,
		Grass:    f.grass,
		LOD:      lod.DefaultSettings(),
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) meadow() []int32 {
	v := make([]int32, index.Volume(size[0], size[1], size[2]))
	for x := 0; x < size[0]; x++ {
		for z := 0; z < size[2]; z++ {
			v[index.ToFlat(x, 0, z, size[0], size[1])] = f.stone
		}
	}
	v[index.ToFlat(1, 1, 1, size[0], size[1])] = f.foliage
	v[index.ToFlat(2, 1, 3, size[0], size[1])] = f.foliage
	return v
}

func TestNewChunk(t *testing.T) {
	f := newFixture(t)
	c := f.newChunk(t, Coord{1, 2})

	assert.Equal(t, [3]int{4, 0, 8}, c.Origin())
	assert.Equal(t, mgl32.Vec3{4, 0, 8}, c.Bounds().Min())
	assert.Equal(t, mgl32.Vec3{8, 4, 12}, c.Bounds().Max())
	assert.Equal(t, 64, c.Volume())
	assert.True(t, c.Empty())
	assert.Equal(t, 1, c.LODMultiplier())

	_, ok := f.scene.Object("Chunk: (1, 2)")
	assert.True(t, ok)

	_, err := New(Options{Coord: Coord{}, Size: [3]int{4, 0, 4}, Registry: f.reg, Device: f.dev, Scene: f.scene})
	assert.Error(t, err)
}

func TestPopulateCounts(t *testing.T) {
	f := newFixture(t)
	c := f.newChunk(t, Coord{})

	err := c.Populate(make([]int32, 10))
	assert.ErrorIs(t, err, ErrVoxelCount)

	v := f.meadow()
	require.NoError(t, c.Populate(v))
	assert.Equal(t, [2]int{16, 2}, c.VoxelCounts())
	assert.False(t, c.Empty())

	v[0] = 0
	assert.Equal(t, [2]int{16, 2}, c.VoxelCounts(), "populate copies its input")

	nonAir := 0
	for _, id := range c.VoxelMap() {
		if id != 0 {
			nonAir++
		}
	}
	counts := c.VoxelCounts()
	assert.Equal(t, nonAir, counts[CountOpaque]+counts[CountTransparent])
}

func TestSetVoxel(t *testing.T) {
	f := newFixture(t)
	c := f.newChunk(t, Coord{})
	require.NoError(t, c.Populate(f.meadow()))

	require.NoError(t, c.SetVoxel(0, 0, 0, 0))
	require.NoError(t, c.SetVoxel(3, 3, 3, f.foliage))
	assert.Equal(t, [2]int{15, 3}, c.VoxelCounts())

	id, err := c.Voxel(3, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, f.foliage, id)

	assert.ErrorIs(t, c.SetVoxel(4, 0, 0, 1), ErrOutOfBounds)
	_, err = c.Voxel(0, -1, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestNeighborViewIsCopy(t *testing.T) {
	f := newFixture(t)
	c := f.newChunk(t, Coord{})
	require.NoError(t, c.Populate(f.meadow()))

	view := c.NeighborView()
	view[0] = 0
	id, _ := c.Voxel(0, 0, 0)
	assert.Equal(t, f.stone, id)
}

func TestRebuildGrassSetIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.newChunk(t, Coord{})
	require.NoError(t, c.Populate(f.meadow()))

	c.RebuildGrassSet()
	first := c.GrassSet()
	assert.Equal(t, []Position{{1, 1, 1}, {2, 1, 3}}, first)

	c.RebuildGrassSet()
	assert.Equal(t, first, c.GrassSet())

	require.NoError(t, c.SetVoxel(1, 1, 1, 0))
	require.NoError(t, c.SetVoxel(0, 1, 0, f.foliage))
	c.RebuildGrassSet()
	assert.Equal(t, []Position{{2, 1, 3}, {0, 1, 0}}, c.GrassSet())
}

func TestUpdateGrassGeometry(t *testing.T) {
	f := newFixture(t)
	c := f.newChunk(t, Coord{})
	require.NoError(t, c.Populate(f.meadow()))
	c.RebuildGrassSet()
	ctx := context.Background()

	require.NoError(t, c.UpdateGrassGeometry(ctx))
	assert.Equal(t, 1, f.dev.grassCalls)
	assert.Equal(t, 20, c.GrassTriangleCount())
	assert.Equal(t, compute.DrawArgs{3, 20, 0, 0}, c.GrassArgs())

	blades, err := c.GrassTriangles()
	require.NoError(t, err)
	assert.Len(t, blades, 20)

	// LOD only rewrites the args.
	assert.Equal(t, 15, c.RecomputeLOD(115))
	require.NoError(t, c.UpdateGrassGeometry(ctx))
	assert.Equal(t, 1, f.dev.grassCalls)
	assert.Equal(t, compute.DrawArgs{3, 1, 0, 0}, c.GrassArgs())
	assert.Equal(t, 1, c.VisibleGrassTriangles())

	assert.Equal(t, 64, c.RecomputeLOD(1000))
	require.NoError(t, c.UpdateGrassGeometry(ctx))
	assert.Equal(t, compute.DrawArgs{3, 0, 0, 0}, c.GrassArgs())

	// Tunables changed: regenerate.
	f.grass.Set(config.GrassConfig{PerTile: 3, Height: 0.3, Width: 0.05})
	c.RecomputeLOD(0)
	require.NoError(t, c.UpdateGrassGeometry(ctx))
	assert.Equal(t, 2, f.dev.grassCalls)
	assert.Equal(t, compute.DrawArgs{3, 6, 0, 0}, c.GrassArgs())

	c.InvalidateGrass()
	require.NoError(t, c.UpdateGrassGeometry(ctx))
	assert.Equal(t, 3, f.dev.grassCalls)
}

func TestDrawGrass(t *testing.T) {
	f := newFixture(t)
	c := f.newChunk(t, Coord{})

	require.NoError(t, c.UpdateGrassGeometry(context.Background()))
	c.DrawGrass(f.scene)
	assert.Empty(t, f.scene.EndFrame(), "no grass, no draw")
	assert.Zero(t, f.dev.grassCalls)

	require.NoError(t, c.Populate(f.meadow()))
	c.RebuildGrassSet()
	c.RecomputeLOD(115)
	require.NoError(t, c.UpdateGrassGeometry(context.Background()))
	c.DrawGrass(f.scene)

	draws := f.scene.EndFrame()
	require.Len(t, draws, 1)
	assert.Equal(t, 15, draws[0].LOD)
	assert.Equal(t, compute.DrawArgs{3, 1, 0, 0}, draws[0].Args)
	assert.Equal(t, c.Bounds(), draws[0].Bounds)

	// Removing all foliage drops the buffer.
	require.NoError(t, c.SetVoxel(1, 1, 1, 0))
	require.NoError(t, c.SetVoxel(2, 1, 3, 0))
	c.RebuildGrassSet()
	require.NoError(t, c.UpdateGrassGeometry(context.Background()))
	c.DrawGrass(f.scene)
	assert.Empty(t, f.scene.EndFrame())
	assert.Zero(t, c.GrassTriangleCount())
}

func TestAssembleMesh(t *testing.T) {
	f := newFixture(t)
	c := f.newChunk(t, Coord{})

	tri := compute.ChunkTriangle{Normal: mgl32.Vec3{0, 1, 0}}
	c.AssembleMesh([]compute.ChunkTriangle{tri, tri}, []compute.ChunkTriangle{tri})
	assert.Equal(t, 2, c.VoxelTriangleCount())
	assert.Equal(t, 3, c.Mesh().TotalTriangles())

	c.AssembleMesh(nil, []compute.ChunkTriangle{tri, tri, tri})
	assert.Zero(t, c.VoxelTriangleCount())
	assert.Equal(t, 3, c.Mesh().TriangleCount(meshing.Transparent))
	assert.Same(t, c.Mesh(), c.Object().Mesh())
}

func TestRelease(t *testing.T) {
	f := newFixture(t)
	c := f.newChunk(t, Coord{})
	require.NoError(t, c.Populate(f.meadow()))
	c.RebuildGrassSet()
	require.NoError(t, c.UpdateGrassGeometry(context.Background()))
	assert.Equal(t, 2, f.sw.LiveBuffers())

	c.Release()
	c.Release()
	assert.True(t, c.Released())
	assert.Zero(t, f.sw.LiveBuffers())
	assert.Equal(t, 1, f.scene.DestroyedCount())
	assert.ErrorIs(t, c.UpdateGrassGeometry(context.Background()), ErrReleased)

	c.DrawGrass(f.scene)
	assert.Empty(t, f.scene.EndFrame())
}
