// Package software is a CPU implementation of compute.Device. Work groups of
// each dispatch run on a goroutine pool and append through atomic counters,
// so output order within a buffer is unspecified, exactly as on a GPU.
package software

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/aquilax/go-perlin"
	"github.com/sirupsen/logrus"

	"voxgrass/internal/compute"
)

// Name is the backend identifier used in configuration.
const Name = "software"

// Work group sizes per kernel.
var (
	mapGroupSize   = [3]int{8, 4, 8}
	meshGroupSize  = [3]int{8, 4, 8}
	grassGroupSize = [3]int{128, 1, 1}
)

// Perlin parameters for the world-generation noise.
const (
	noiseAlpha = 2.0
	noiseBeta  = 2.0
	noiseOct   = 3
	noiseSeed  = 1337
)

type Options struct {
	// Workers defaults to GOMAXPROCS.
	Workers int
	Logger  logrus.FieldLogger
}

// Device runs the engine kernels on the CPU.
type Device struct {
	pool  *workerPool
	noise *perlin.Perlin
	log   logrus.FieldLogger

	live atomic.Int64

	mu     sync.Mutex
	closed bool
}

var _ compute.Device = (*Device)(nil)

func New(opts Options) *Device {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Device{
		pool:  newWorkerPool(workers, workers*4),
		noise: perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOct, noiseSeed),
		log:   log.WithField("backend", Name),
	}
}

func (d *Device) Name() string { return Name }

// LiveBuffers reports buffers allocated and not yet released.
func (d *Device) LiveBuffers() int { return int(d.live.Load()) }

func (d *Device) NewAppendBuffer(capacity, stride int) (compute.AppendBuffer, error) {
	if stride <= 0 {
		return nil, fmt.Errorf("new append buffer: invalid stride %d", stride)
	}
	capacity = compute.ClampCapacity(capacity)
	d.live.Add(1)
	return &appendBuffer{
		owner:    d,
		data:     make([]byte, capacity*stride),
		stride:   stride,
		capacity: capacity,
	}, nil
}

func (d *Device) NewArgsBuffer() (compute.ArgsBuffer, error) {
	d.live.Add(1)
	return &argsBuffer{owner: d}, nil
}

func (d *Device) own(buf compute.AppendBuffer) (*appendBuffer, error) {
	b, ok := buf.(*appendBuffer)
	if !ok || b.owner != d {
		return nil, compute.ErrForeignBuffer
	}
	b.mu.Lock()
	released := b.released
	b.mu.Unlock()
	if released {
		return nil, compute.ErrReleased
	}
	return b, nil
}

func (d *Device) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("software device closed")
	}
	return nil
}

func (d *Device) GenerateMap(ctx context.Context, p compute.MapParams) ([]int32, error) {
	if err := d.checkOpen(ctx); err != nil {
		return nil, err
	}
	if p.Volume() <= 0 {
		return []int32{}, nil
	}

	out := make([]int32, p.Volume())
	k := &mapKernel{p: p, noise: d.noise, out: out}
	d.pool.dispatch(groupsFor(p.Size, mapGroupSize), k.runGroup)
	return out, nil
}

func (d *Device) MeshChunk(ctx context.Context, p compute.MeshParams, opaque, transparent compute.AppendBuffer) error {
	if err := d.checkOpen(ctx); err != nil {
		return err
	}
	ob, err := d.own(opaque)
	if err != nil {
		return fmt.Errorf("mesh chunk: opaque buffer: %w", err)
	}
	tb, err := d.own(transparent)
	if err != nil {
		return fmt.Errorf("mesh chunk: transparent buffer: %w", err)
	}
	k, err := newMeshKernel(p, ob, tb)
	if err != nil {
		return err
	}

	size := [3]int{int(p.ChunkSize[0]), int(p.ChunkSize[1]), int(p.ChunkSize[2])}
	d.pool.dispatch(groupsFor(size, meshGroupSize), k.runGroup)
	return nil
}

func (d *Device) GenerateGrass(ctx context.Context, p compute.GrassParams, out compute.AppendBuffer) error {
	if err := d.checkOpen(ctx); err != nil {
		return err
	}
	b, err := d.own(out)
	if err != nil {
		return fmt.Errorf("generate grass: %w", err)
	}
	total := p.TriangleCount()
	if total == 0 {
		return nil
	}

	k := &grassKernel{p: p, out: b, total: total}
	d.pool.dispatch(groupsFor([3]int{total, 1, 1}, grassGroupSize), k.runGroup)
	return nil
}

// Close stops the worker pool. Buffers stay readable.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.pool.shutdown()
	if n := d.live.Load(); n > 0 {
		d.log.WithField("buffers", n).Warn("device closed with live buffers")
	}
	return nil
}
