package world

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxgrass/internal/chunk"
	"voxgrass/internal/compute"
	"voxgrass/internal/compute/software"
	"voxgrass/internal/config"
	"voxgrass/internal/index"
	"voxgrass/internal/mapgen"
	"voxgrass/internal/meshing"
	"voxgrass/internal/registry"
	"voxgrass/internal/render"
	"voxgrass/internal/telemetry"
)

var chunkSize = [3]int{16, 4, 16}

// sourceFunc fills the whole map from a per-voxel function of world
// coordinates.
type sourceFunc func(x, y, z int) int32

func (f sourceFunc) Generate(_ context.Context, _ string, mapSize [2]int, _ mapgen.Biome) ([]int32, error) {
	w, h, d := mapSize[0]*chunkSize[0], chunkSize[1], mapSize[1]*chunkSize[2]
	out := make([]int32, index.Volume(w, h, d))
	for i := range out {
		x, y, z := index.To3D(i, w, h)
		out[i] = f(x, y, z)
	}
	return out, nil
}

// meshCounter counts mesh dispatches on top of the software device. A set
// fail error replaces the dispatch; swapOutputs sends opaque faces to the
// transparent buffer, which overflows it for solid chunks.
type meshCounter struct {
	compute.Device
	meshCalls   int
	fail        error
	swapOutputs bool
}

func (m *meshCounter) MeshChunk(ctx context.Context, p compute.MeshParams, opaque, transparent compute.AppendBuffer) error {
	m.meshCalls++
	if m.fail != nil {
		return m.fail
	}
	if m.swapOutputs {
		opaque, transparent = transparent, opaque
	}
	return m.Device.MeshChunk(ctx, p, opaque, transparent)
}

type harness struct {
	world   *World
	sw      *software.Device
	dev     *meshCounter
	scene   *render.Headless
	metrics *telemetry.Collector
	stone   int32
	foliage int32
}

func newHarness(t *testing.T, source func(stone, foliage int32) sourceFunc) *harness {
	t.Helper()
	sw := software.New(software.Options{Workers: 2})
	t.Cleanup(func() { _ = sw.Close() })

	reg := registry.Default()
	stone, err := reg.IDByName(registry.Stone)
	require.NoError(t, err)
	foliage, err := reg.IDByName(registry.GrassFoliage)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.World.ChunkSize = chunkSize
	cfg.Grass.PerTile = 10

	h := &harness{
		sw:      sw,
		dev:     &meshCounter{Device: sw},
		scene:   render.NewHeadless(),
		metrics: telemetry.New(),
		stone:   stone,
		foliage: foliage,
	}
	h.world, err = New(Options{
		Config:   cfg,
		Registry: reg,
		Device:   h.dev,
		Scene:    h.scene,
		Source:   source(stone, foliage),
		Metrics:  h.metrics,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.world.Close() })
	return h
}

// stoneRow is two solid chunks followed by an empty one along +x.
func stoneRow(stone, _ int32) sourceFunc {
	return func(x, _, _ int) int32 {
		if x < 2*chunkSize[0] {
			return stone
		}
		return registry.Air
	}
}

// meadow is one stone layer with foliage above every fourth column.
func meadow(stone, foliage int32) sourceFunc {
	return func(x, y, z int) int32 {
		switch {
		case y == 0:
			return stone
		case y == 1 && x%4 == 0 && z%4 == 0:
			return foliage
		}
		return registry.Air
	}
}

func normalCounts(m *chunk.Chunk) map[mgl32.Vec3]int {
	counts := map[mgl32.Vec3]int{}
	mesh := m.Mesh()
	for i := 0; i < len(mesh.Normals); i += 3 {
		counts[mesh.Normals[i]]++
	}
	return counts
}

func mustChunk(t *testing.T, w *World, x, z int) *chunk.Chunk {
	t.Helper()
	c, ok := w.Chunk(chunk.Coord{X: x, Z: z})
	require.True(t, ok, "chunk (%d, %d)", x, z)
	return c
}

func TestGenerateCullsAgainstNeighbors(t *testing.T) {
	h := newHarness(t, stoneRow)
	ctx := context.Background()
	require.NoError(t, h.world.GenerateWorld(ctx, "row", [2]int{3, 1}, mapgen.Biome{}))

	require.Len(t, h.world.Chunks(), 3)
	mid := mustChunk(t, h.world, 1, 0)
	require.NotNil(t, mid.Mesh())

	counts := normalCounts(mid)
	assert.Equal(t, 0, counts[mgl32.Vec3{-1, 0, 0}])
	assert.Equal(t, 128, counts[mgl32.Vec3{1, 0, 0}])
	assert.Equal(t, 512, counts[mgl32.Vec3{0, 1, 0}])
	assert.Equal(t, 512, counts[mgl32.Vec3{0, -1, 0}])
	assert.Equal(t, 128, counts[mgl32.Vec3{0, 0, 1}])
	assert.Equal(t, 128, counts[mgl32.Vec3{0, 0, -1}])
	assert.Equal(t, 1408, mid.VoxelTriangleCount())
	assert.Equal(t, 0, mid.Mesh().TriangleCount(meshing.Transparent))
}

func TestGenerateSkipsEmptyChunks(t *testing.T) {
	h := newHarness(t, stoneRow)
	require.NoError(t, h.world.GenerateWorld(context.Background(), "row", [2]int{3, 1}, mapgen.Biome{}))

	assert.Equal(t, 2, h.dev.meshCalls)
	empty := mustChunk(t, h.world, 2, 0)
	assert.True(t, empty.Empty())
	assert.Nil(t, empty.Mesh())
	assert.Zero(t, empty.VoxelTriangleCount())
}

func TestTrianglesBoundedByVoxelCount(t *testing.T) {
	h := newHarness(t, meadow)
	require.NoError(t, h.world.GenerateWorld(context.Background(), "meadow", [2]int{2, 2}, mapgen.Biome{}))

	for _, c := range h.world.Chunks() {
		counts := c.VoxelCounts()
		mesh := c.Mesh()
		require.NotNil(t, mesh, c.Coord().String())
		assert.LessOrEqual(t, mesh.TriangleCount(meshing.Opaque), 12*counts[chunk.CountOpaque])
		assert.LessOrEqual(t, mesh.TriangleCount(meshing.Transparent), 12*counts[chunk.CountTransparent])
		// Foliage is custom-meshed and contributes no voxel faces.
		assert.Zero(t, mesh.TriangleCount(meshing.Transparent))
	}
	// Only the args and grass buffers outlive a mesh dispatch.
	assert.Equal(t, 2*len(h.world.Chunks()), h.sw.LiveBuffers())
}

func TestMeshFailureReleasesScratchBuffers(t *testing.T) {
	h := newHarness(t, stoneRow)
	ctx := context.Background()
	require.NoError(t, h.world.GenerateWorld(ctx, "row", [2]int{3, 1}, mapgen.Biome{}))
	baseline := h.sw.LiveBuffers()
	require.Equal(t, 3, baseline)

	h.dev.fail = errors.New("mesh failed")
	assert.ErrorIs(t, h.world.ForceRegenerate(ctx), h.dev.fail)
	assert.Equal(t, baseline, h.sw.LiveBuffers())

	h.dev.fail = nil
	h.dev.swapOutputs = true
	assert.ErrorIs(t, h.world.ForceRegenerate(ctx), compute.ErrCapacityExceeded)
	assert.Equal(t, baseline, h.sw.LiveBuffers())

	// Edits remesh through the same path.
	assert.ErrorIs(t, h.world.SetVoxel(ctx, 0, 3, 0, registry.Air), compute.ErrCapacityExceeded)
	assert.Equal(t, baseline, h.sw.LiveBuffers())

	require.NoError(t, h.world.Close())
	assert.Zero(t, h.sw.LiveBuffers())
}

func TestTickAggregatesGrass(t *testing.T) {
	h := newHarness(t, meadow)
	ctx := context.Background()
	require.NoError(t, h.world.GenerateWorld(ctx, "meadow", [2]int{2, 1}, mapgen.Biome{}))

	// 16 foliage voxels per 16x16 chunk, 10 blades each.
	require.NoError(t, h.world.Tick(ctx, 0))
	stats := h.world.Stats()
	assert.Equal(t, 2, stats.Chunks)
	assert.Equal(t, 320, stats.GrassTriangles)
	assert.Equal(t, 320, stats.VisibleGrassTriangles)
	assert.Len(t, h.scene.EndFrame(), 2)

	require.NoError(t, h.world.Tick(ctx, 1000))
	stats = h.world.Stats()
	assert.Equal(t, 320, stats.GrassTriangles)
	assert.Equal(t, 2*(160/64), stats.VisibleGrassTriangles)

	rec := httptest.NewRecorder()
	h.metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "voxgrass_chunks 2")
	assert.Contains(t, body, "voxgrass_grass_triangles 320")
	assert.Contains(t, body, "voxgrass_world_generations_total 1")
}

func TestSetVoxelRemeshesNeighbors(t *testing.T) {
	h := newHarness(t, stoneRow)
	ctx := context.Background()
	require.NoError(t, h.world.GenerateWorld(ctx, "row", [2]int{3, 1}, mapgen.Biome{}))

	mid := mustChunk(t, h.world, 1, 0)
	last := mustChunk(t, h.world, 2, 0)

	require.NoError(t, h.world.SetVoxel(ctx, 32, 0, 0, h.stone))
	assert.Equal(t, 10, last.VoxelTriangleCount())
	assert.Equal(t, 1406, mid.VoxelTriangleCount())

	id, err := h.world.VoxelAt(32, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, h.stone, id)

	require.NoError(t, h.world.SetVoxel(ctx, 32, 0, 0, registry.Air))
	assert.True(t, last.Empty())
	assert.Zero(t, last.VoxelTriangleCount())
	assert.Equal(t, 1408, mid.VoxelTriangleCount())
}

func TestSetVoxelRejectsBadInput(t *testing.T) {
	h := newHarness(t, stoneRow)
	ctx := context.Background()

	assert.True(t, errors.Is(h.world.SetVoxel(ctx, 0, 0, 0, h.stone), ErrNoWorld))

	require.NoError(t, h.world.GenerateWorld(ctx, "row", [2]int{3, 1}, mapgen.Biome{}))
	assert.True(t, errors.Is(h.world.SetVoxel(ctx, 48, 0, 0, h.stone), ErrOutOfBounds))
	assert.True(t, errors.Is(h.world.SetVoxel(ctx, 0, 4, 0, h.stone), ErrOutOfBounds))
	assert.True(t, errors.Is(h.world.SetVoxel(ctx, -1, 0, 0, h.stone), ErrOutOfBounds))
	assert.True(t, errors.Is(h.world.SetVoxel(ctx, 0, 0, 0, 99), registry.ErrNotFound))
}

func TestRegenerateReleasesResources(t *testing.T) {
	h := newHarness(t, meadow)
	ctx := context.Background()
	require.NoError(t, h.world.GenerateWorld(ctx, "meadow", [2]int{2, 1}, mapgen.Biome{}))
	first := h.world.Revision()
	old := h.world.Chunks()

	require.NoError(t, h.world.ForceRegenerate(ctx))
	assert.NotEqual(t, first, h.world.Revision())
	assert.Equal(t, 2, h.scene.DestroyedCount())
	for _, c := range old {
		assert.True(t, c.Released())
	}
	assert.Len(t, h.scene.Objects(), 2)
	// One args buffer and one grass buffer per chunk.
	assert.Equal(t, 4, h.sw.LiveBuffers())

	require.NoError(t, h.world.Close())
	assert.Zero(t, h.sw.LiveBuffers())
	assert.Empty(t, h.world.Revision())
	assert.True(t, errors.Is(h.world.ForceRegenerate(ctx), ErrNoWorld))
}

func TestGenerateHonorsCancellation(t *testing.T) {
	h := newHarness(t, stoneRow)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.world.GenerateWorld(ctx, "row", [2]int{3, 1}, mapgen.Biome{})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, h.dev.meshCalls)
}

func TestUpdateGrassBuffersFollowsSettings(t *testing.T) {
	h := newHarness(t, meadow)
	ctx := context.Background()
	require.NoError(t, h.world.GenerateWorld(ctx, "meadow", [2]int{1, 1}, mapgen.Biome{}))

	g, _ := h.world.GrassSettings().Get()
	g.PerTile = 3
	h.world.GrassSettings().Set(g)
	require.NoError(t, h.world.UpdateGrassBuffers(ctx))

	c := mustChunk(t, h.world, 0, 0)
	assert.Equal(t, 48, c.GrassTriangleCount())
	assert.Equal(t, [3]int{16, 4, 16}, h.world.Extent())
}

func TestExportVoxelsRoundTrips(t *testing.T) {
	h := newHarness(t, meadow)
	ctx := context.Background()
	_, err := h.world.ExportVoxels()
	assert.True(t, errors.Is(err, ErrNoWorld))

	require.NoError(t, h.world.GenerateWorld(ctx, "meadow", [2]int{2, 1}, mapgen.Biome{}))
	require.NoError(t, h.world.SetVoxel(ctx, 17, 3, 5, h.stone))

	voxels, err := h.world.ExportVoxels()
	require.NoError(t, err)
	want, err := meadow(h.stone, h.foliage).Generate(ctx, "", [2]int{2, 1}, mapgen.Biome{})
	require.NoError(t, err)
	want[index.ToFlat(17, 3, 5, 32, 4)] = h.stone
	assert.Equal(t, want, voxels)
	assert.Equal(t, [2]int{2, 1}, h.world.MapSize())
	assert.Equal(t, "meadow", h.world.Seed())
}
