// Package world orchestrates generation, meshing and the per-frame grass
// update of a fixed rectangle of chunks.
package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"voxgrass/internal/chunk"
	"voxgrass/internal/compute"
	"voxgrass/internal/config"
	"voxgrass/internal/index"
	"voxgrass/internal/lod"
	"voxgrass/internal/mapgen"
	"voxgrass/internal/profiling"
	"voxgrass/internal/registry"
	"voxgrass/internal/render"
	"voxgrass/internal/telemetry"
)

var (
	ErrNoWorld     = errors.New("no world generated")
	ErrNoChunk     = errors.New("no such chunk")
	ErrOutOfBounds = chunk.ErrOutOfBounds
)

// MapSource produces the voxel IDs for a whole map, laid out over the full
// map extent (width mapSize.x*chunk.x, depth mapSize.y*chunk.z).
type MapSource interface {
	Generate(ctx context.Context, seed string, mapSize [2]int, biome mapgen.Biome) ([]int32, error)
}

type Options struct {
	Config   config.Config
	Registry *registry.Registry
	Device   compute.Device
	Scene    render.Scene
	// Source defaults to a mapgen.Gateway over Device.
	Source MapSource
	// Grass defaults to settings seeded from Config.Grass.
	Grass    *config.GrassSettings
	Logger   logrus.FieldLogger
	Metrics  *telemetry.Collector
	Profiler *profiling.Profiler
}

// Stats aggregates the last Tick.
type Stats struct {
	Chunks                int
	VoxelTriangles        int
	GrassTriangles        int
	VisibleGrassTriangles int
}

type World struct {
	mu sync.Mutex

	chunkSize [3]int
	reg       *registry.Registry
	device    compute.Device
	scene     render.Scene
	source    MapSource
	grass     *config.GrassSettings
	lod       lod.Settings
	log       logrus.FieldLogger
	metrics   *telemetry.Collector
	prof      *profiling.Profiler

	store     *store
	air       []int32
	generated bool
	seed      string
	mapSize   [2]int
	biome     mapgen.Biome
	revision  uuid.UUID
	stats     Stats
}

func New(opts Options) (*World, error) {
	if opts.Registry == nil || opts.Device == nil || opts.Scene == nil {
		return nil, fmt.Errorf("new world: registry, device and scene are required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("new world: %w", err)
	}
	settings := lod.FromConfig(opts.Config.LOD)
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("new world: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	size := opts.Config.World.ChunkSize
	w := &World{
		chunkSize: size,
		reg:       opts.Registry,
		device:    opts.Device,
		scene:     opts.Scene,
		source:    opts.Source,
		grass:     opts.Grass,
		lod:       settings,
		log:       log,
		metrics:   opts.Metrics,
		prof:      opts.Profiler,
		store:     newStore(),
		air:       make([]int32, index.Volume(size[0], size[1], size[2])),
	}
	if w.source == nil {
		w.source = mapgen.NewGateway(opts.Device, size, log)
	}
	if w.grass == nil {
		w.grass = config.NewGrassSettings(opts.Config.Grass)
	}
	if w.prof == nil {
		w.prof = profiling.Default()
	}
	return w, nil
}

// GenerateWorld replaces the current world. Cancellation is honored between
// chunks only; a dispatch in flight always completes.
func (w *World) GenerateWorld(ctx context.Context, seed string, mapSize [2]int, biome mapgen.Biome) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generate(ctx, seed, mapSize, biome)
}

func (w *World) generate(ctx context.Context, seed string, mapSize [2]int, biome mapgen.Biome) error {
	defer w.prof.Track("world.GenerateWorld")()
	start := time.Now()

	if released := w.store.releaseAll(); released > 0 {
		w.log.WithField("chunks", released).Debug("released previous world")
	}
	w.revision = uuid.New()
	w.seed, w.mapSize, w.biome = seed, mapSize, biome
	w.generated = true
	log := w.log.WithField("revision", w.revision.String())

	voxels, err := w.source.Generate(ctx, seed, mapSize, biome)
	if err != nil {
		return fmt.Errorf("generate world: %w", err)
	}
	cx, cy, cz := w.chunkSize[0], w.chunkSize[1], w.chunkSize[2]
	vol := len(w.air)
	if want := mapSize[0] * mapSize[1] * vol; len(voxels) != want {
		return fmt.Errorf("generate world: map source returned %d voxels, want %d", len(voxels), want)
	}

	regionW := mapSize[0] * cx
	for i := 0; i < mapSize[0]; i++ {
		for j := 0; j < mapSize[1]; j++ {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("generate world: %w", err)
			}

			c, err := chunk.New(chunk.Options{
				Coord:    chunk.Coord{X: i, Z: j},
				Size:     w.chunkSize,
				Registry: w.reg,
				Device:   w.device,
				Scene:    w.scene,
				Grass:    w.grass,
				LOD:      w.lod,
				Logger:   log,
			})
			if err != nil {
				return fmt.Errorf("generate world: %w", err)
			}
			w.store.add(c)

			local := make([]int32, vol)
			for k := range local {
				lx, ly, lz := index.To3D(k, cx, cy)
				local[k] = voxels[index.ToFlat(i*cx+lx, ly, j*cz+lz, regionW, cy)]
			}
			if err := c.Populate(local); err != nil {
				return fmt.Errorf("generate world: %w", err)
			}
			c.RebuildGrassSet()
			if err := w.updateGrass(ctx, c); err != nil {
				return err
			}
		}
	}

	// Every voxel map is final before the first neighbor lookup.
	for _, c := range w.store.all() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("generate world: %w", err)
		}
		if err := w.meshChunk(ctx, c); err != nil {
			return err
		}
	}

	w.metrics.GenerationDone()
	log.WithFields(logrus.Fields{
		"seed":    seed,
		"biome":   biome.Name,
		"chunks":  w.store.len(),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("world generated")
	return nil
}

func (w *World) updateGrass(ctx context.Context, c *chunk.Chunk) error {
	defer w.prof.Track("chunk.UpdateGrassGeometry")()
	start := time.Now()
	if err := c.UpdateGrassGeometry(ctx); err != nil {
		return fmt.Errorf("grass for chunk %s: %w", c.Coord(), err)
	}
	w.metrics.ObserveDispatch("grass", time.Since(start))
	return nil
}

// MeshChunk rebuilds the mesh of one chunk from its current voxels and its
// neighbors' boundary voxels.
func (w *World) MeshChunk(ctx context.Context, coord chunk.Coord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.generated {
		return ErrNoWorld
	}
	c := w.store.get(coord)
	if c == nil {
		return fmt.Errorf("mesh chunk %s: %w", coord, ErrNoChunk)
	}
	return w.meshChunk(ctx, c)
}

// meshChunk dispatches the meshing kernel. A chunk without any non-air voxel
// is skipped and keeps its current mesh.
func (w *World) meshChunk(ctx context.Context, c *chunk.Chunk) error {
	if c.Empty() {
		return nil
	}
	defer w.prof.Track("world.MeshChunk")()
	start := time.Now()

	var views [compute.NumNeighbors][]int32
	for n, nb := range w.store.neighbors(c.Coord()) {
		if nb == nil {
			views[n] = w.air
			continue
		}
		views[n] = nb.NeighborView()
	}

	counts := c.VoxelCounts()
	opaqueBuf, err := w.device.NewAppendBuffer(counts[chunk.CountOpaque]*compute.MaxTrianglesPerVoxel, compute.ChunkTriangleStride)
	if err != nil {
		return fmt.Errorf("mesh chunk %s: %w", c.Coord(), err)
	}
	defer opaqueBuf.Release()
	transBuf, err := w.device.NewAppendBuffer(counts[chunk.CountTransparent]*compute.MaxTrianglesPerVoxel, compute.ChunkTriangleStride)
	if err != nil {
		return fmt.Errorf("mesh chunk %s: %w", c.Coord(), err)
	}
	defer transBuf.Release()

	if err := w.device.MeshChunk(ctx, c.MeshParams(views), opaqueBuf, transBuf); err != nil {
		return fmt.Errorf("mesh chunk %s: %w", c.Coord(), err)
	}

	opaque, err := readTriangles(opaqueBuf)
	if err != nil {
		return fmt.Errorf("mesh chunk %s: opaque: %w", c.Coord(), err)
	}
	transparent, err := readTriangles(transBuf)
	if err != nil {
		return fmt.Errorf("mesh chunk %s: transparent: %w", c.Coord(), err)
	}

	c.AssembleMesh(opaque, transparent)
	w.metrics.ObserveDispatch("mesh", time.Since(start))
	return nil
}

func readTriangles(buf compute.AppendBuffer) ([]compute.ChunkTriangle, error) {
	n, err := buf.Count()
	if err != nil {
		return nil, err
	}
	return compute.ReadChunkTriangles(buf, n)
}

// ForceRegenerate releases every chunk and regenerates with the last seed,
// map size and biome.
func (w *World) ForceRegenerate(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.generated {
		return ErrNoWorld
	}
	return w.generate(ctx, w.seed, w.mapSize, w.biome)
}

// Tick runs one frame: LOD, grass args and grass draws for every chunk.
func (w *World) Tick(ctx context.Context, cameraHeight float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer w.prof.Track("world.Tick")()
	start := time.Now()

	stats := Stats{Chunks: w.store.len()}
	for _, c := range w.store.all() {
		c.RecomputeLOD(cameraHeight)
		if err := w.updateGrass(ctx, c); err != nil {
			return err
		}
		c.DrawGrass(w.scene)

		stats.VoxelTriangles += c.VoxelTriangleCount()
		stats.GrassTriangles += c.GrassTriangleCount()
		stats.VisibleGrassTriangles += c.VisibleGrassTriangles()
	}

	w.stats = stats
	w.metrics.SetFrame(stats.Chunks, stats.VoxelTriangles, stats.GrassTriangles, stats.VisibleGrassTriangles)
	w.metrics.ObserveTick(time.Since(start))
	return nil
}

// Stats returns the aggregates of the last Tick.
func (w *World) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// UpdateGrassBuffers regenerates the grass geometry of every chunk, for use
// after the grass tunables change.
func (w *World) UpdateGrassBuffers(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.store.all() {
		c.InvalidateGrass()
		if err := w.updateGrass(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// GrassSettings are the runtime grass tunables shared by every chunk.
func (w *World) GrassSettings() *config.GrassSettings { return w.grass }

func (w *World) Chunk(coord chunk.Coord) (*chunk.Chunk, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.store.get(coord)
	return c, c != nil
}

// Chunks lists chunks in generation order.
func (w *World) Chunks() []*chunk.Chunk {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.all()
}

// Revision identifies the current generation; empty before the first.
func (w *World) Revision() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.generated {
		return ""
	}
	return w.revision.String()
}

// Extent is the world size in voxels.
func (w *World) Extent() [3]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return [3]int{w.mapSize[0] * w.chunkSize[0], w.chunkSize[1], w.mapSize[1] * w.chunkSize[2]}
}

// Seed and MapSize are the parameters of the current generation.
func (w *World) Seed() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seed
}

func (w *World) MapSize() [2]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mapSize
}

// ExportVoxels reassembles the chunk voxel maps, edits included, into the
// whole-map layout a MapSource returns.
func (w *World) ExportVoxels() ([]int32, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.generated {
		return nil, ErrNoWorld
	}
	cx, cy, cz := w.chunkSize[0], w.chunkSize[1], w.chunkSize[2]
	regionW := w.mapSize[0] * cx
	out := make([]int32, w.mapSize[0]*w.mapSize[1]*len(w.air))
	for _, c := range w.store.all() {
		coord := c.Coord()
		for k, id := range c.VoxelMap() {
			lx, ly, lz := index.To3D(k, cx, cy)
			out[index.ToFlat(coord.X*cx+lx, ly, coord.Z*cz+lz, regionW, cy)] = id
		}
	}
	return out, nil
}

// Close releases every chunk. The device is left to its owner.
func (w *World) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.store.releaseAll()
	w.generated = false
	w.stats = Stats{}
	return nil
}
