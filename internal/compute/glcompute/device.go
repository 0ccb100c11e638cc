// Package glcompute runs the engine kernels as OpenGL 4.3 compute shaders.
//
// The device owns a hidden GLFW window for its context. Every method must be
// called from the OS thread that called New; the CLI locks its main
// goroutine for this.
package glcompute

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/sirupsen/logrus"

	"voxgrass/internal/compute"
)

// Name is the backend identifier used in configuration.
const Name = "opengl"

type Device struct {
	ctx   *glContext
	log   logrus.FieldLogger
	live  int
	mapP  *program
	meshP *program
	grass *program
}

var _ compute.Device = (*Device)(nil)

// New creates the GL context and compiles the three kernels.
func New(log logrus.FieldLogger) (*Device, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	glctx, err := newContext()
	if err != nil {
		return nil, err
	}

	d := &Device{ctx: glctx, log: log.WithField("backend", Name)}
	progs := []struct {
		dst  **program
		name string
		src  string
	}{
		{&d.mapP, "world generation", mapShaderSource()},
		{&d.meshP, "chunk meshing", meshShaderSource()},
		{&d.grass, "grass", grassShaderSource()},
	}
	for _, p := range progs {
		prog, err := newProgram(p.src)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("%s kernel: %w", p.name, err)
		}
		*p.dst = prog
	}

	d.log.WithField("gl_version", glctx.version()).Info("compute device ready")
	return d, nil
}

func (d *Device) Name() string { return Name }

func (d *Device) NewAppendBuffer(capacity, stride int) (compute.AppendBuffer, error) {
	if stride <= 0 {
		return nil, fmt.Errorf("new append buffer: invalid stride %d", stride)
	}
	capacity = compute.ClampCapacity(capacity)

	var zero uint32
	b := &appendBuffer{
		owner:    d,
		ssbo:     newBuffer(gl.SHADER_STORAGE_BUFFER, capacity*stride, nil, gl.DYNAMIC_COPY),
		counter:  newBuffer(gl.ATOMIC_COUNTER_BUFFER, 4, gl.Ptr(&zero), gl.DYNAMIC_COPY),
		stride:   stride,
		capacity: capacity,
	}
	if err := glError("allocate append buffer"); err != nil {
		deleteBuffer(&b.ssbo)
		deleteBuffer(&b.counter)
		return nil, err
	}
	d.live++
	return b, nil
}

func (d *Device) NewArgsBuffer() (compute.ArgsBuffer, error) {
	var args compute.DrawArgs
	b := &argsBuffer{owner: d, id: newBuffer(gl.DRAW_INDIRECT_BUFFER, len(args)*4, gl.Ptr(&args[0]), gl.DYNAMIC_DRAW)}
	if err := glError("allocate args buffer"); err != nil {
		return nil, err
	}
	d.live++
	return b, nil
}

func (d *Device) own(buf compute.AppendBuffer) (*appendBuffer, error) {
	b, ok := buf.(*appendBuffer)
	if !ok || b.owner != d {
		return nil, compute.ErrForeignBuffer
	}
	if b.ssbo == 0 {
		return nil, compute.ErrReleased
	}
	return b, nil
}

func groupsFor(size, local [3]int) (uint32, uint32, uint32) {
	g := func(i int) uint32 { return uint32((size[i] + local[i] - 1) / local[i]) }
	return g(0), g(1), g(2)
}

func (d *Device) dispatch(label string, size, local [3]int) error {
	start := time.Now()
	x, y, z := groupsFor(size, local)
	gl.DispatchCompute(x, y, z)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.ATOMIC_COUNTER_BARRIER_BIT | gl.BUFFER_UPDATE_BARRIER_BIT)
	if err := glError(label); err != nil {
		return err
	}
	d.log.WithFields(logrus.Fields{"kernel": label, "groups": [3]uint32{x, y, z}, "elapsed": time.Since(start)}).Debug("dispatch")
	return nil
}

func (d *Device) GenerateMap(ctx context.Context, p compute.MapParams) ([]int32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Volume() <= 0 {
		return []int32{}, nil
	}

	out := make([]int32, p.Volume())
	ssbo := newBuffer(gl.SHADER_STORAGE_BUFFER, len(out)*4, nil, gl.DYNAMIC_COPY)
	defer deleteBuffer(&ssbo)

	b := p.Biome
	d.mapP.use()
	d.mapP.setIVec3("mapSize", [3]int32{int32(p.Size[0]), int32(p.Size[1]), int32(p.Size[2])})
	d.mapP.setVec2("offset", p.Offset)
	d.mapP.setInt("groundBlock", b.GroundBlock)
	d.mapP.setInt("groundHeight", b.GroundHeight)
	d.mapP.setInt("secondaryBlock", b.SecondaryGroundBlock)
	d.mapP.setFloat("secondaryThreshold", b.SecondaryGroundThreshold)
	d.mapP.setFloat("secondaryScale", b.SecondaryGroundScale)
	d.mapP.setIVec2("secondaryOffset", b.SecondaryGroundOffset)
	d.mapP.setInt("undergroundBlock", b.UndergroundBlock)
	d.mapP.setIVec3("rockTypes", b.RockTypes)
	d.mapP.setFloat("rockThreshold", b.RockThreshold)
	d.mapP.setFloat("rockScale", b.RockScale)
	d.mapP.setIVec2("rockOffset", b.RockOffset)
	d.mapP.setInt("foliageBlock", b.FoliageBlock)
	d.mapP.setFloat("foliageThreshold", b.FoliageThreshold)
	d.mapP.setFloat("foliageScale", b.FoliageScale)

	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, mapVoxelsBinding, ssbo)
	if err := d.dispatch("world generation", p.Size, mapGroupSize); err != nil {
		return nil, err
	}

	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, len(out)*4, gl.Ptr(out))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	if err := glError("read voxel map"); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Device) MeshChunk(ctx context.Context, p compute.MeshParams, opaque, transparent compute.AppendBuffer) error {
	if err := ctx.Err(); err != nil {
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

	vol := int(p.ChunkSize[0] * p.ChunkSize[1] * p.ChunkSize[2])
	if len(p.VoxelMap) != vol {
		return fmt.Errorf("mesh chunk: voxel map has %d entries, want %d", len(p.VoxelMap), vol)
	}
	neighbors := make([]int32, 0, vol*int(compute.NumNeighbors))
	for n, nb := range p.Neighbors {
		if len(nb) != vol {
			return fmt.Errorf("mesh chunk: %s neighbor has %d entries, want %d", compute.Neighbor(n), len(nb), vol)
		}
		neighbors = append(neighbors, nb...)
	}
	lookup := make([]int32, 0, len(p.TransparentIDs)+len(p.CustomMeshIDs)+len(p.TextureIndexes))
	lookup = append(lookup, p.TransparentIDs...)
	lookup = append(lookup, p.CustomMeshIDs...)
	lookup = append(lookup, p.TextureIndexes...)

	voxBuf := newInt32Buffer(p.VoxelMap)
	defer deleteBuffer(&voxBuf)
	nbBuf := newInt32Buffer(neighbors)
	defer deleteBuffer(&nbBuf)
	lookupBuf := newInt32Buffer(lookup)
	defer deleteBuffer(&lookupBuf)

	d.meshP.use()
	d.meshP.setIVec3("chunkSize", p.ChunkSize)
	d.meshP.setIVec3("chunkPos", p.ChunkPos)
	d.meshP.setInt("transparentIDCount", int32(len(p.TransparentIDs)))
	d.meshP.setInt("customIDCount", int32(len(p.CustomMeshIDs)))
	d.meshP.setInt("textureCount", int32(len(p.TextureIndexes)))
	d.meshP.setUint("opaqueCapacity", uint32(ob.capacity))
	d.meshP.setUint("transparentCapacity", uint32(tb.capacity))

	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, meshVoxelsBinding, voxBuf)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, meshNeighborsBinding, nbBuf)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, meshLookupBinding, lookupBuf)
	ob.bind(meshOpaqueBinding, meshOpaqueCounter)
	tb.bind(meshTransparentBinding, meshTransparentCounter)

	size := [3]int{int(p.ChunkSize[0]), int(p.ChunkSize[1]), int(p.ChunkSize[2])}
	return d.dispatch("chunk meshing", size, meshGroupSize)
}

func (d *Device) GenerateGrass(ctx context.Context, p compute.GrassParams, out compute.AppendBuffer) error {
	if err := ctx.Err(); err != nil {
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

	flat := make([]int32, 0, len(p.Positions)*3)
	for _, pos := range p.Positions {
		flat = append(flat, pos[:]...)
	}
	posBuf := newInt32Buffer(flat)
	defer deleteBuffer(&posBuf)

	d.grass.use()
	d.grass.setInt("positionCount", int32(len(p.Positions)))
	d.grass.setUint("total", uint32(total))
	d.grass.setUint("capacity", uint32(b.capacity))
	d.grass.setFloat("width", p.Width)
	d.grass.setFloat("height", p.Height)
	d.grass.setFloat("curve", p.CurveMultiplier)
	d.grass.setVec3("chunkPos", p.ChunkPos)

	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, grassPositionsBinding, posBuf)
	b.bind(grassOutBinding, grassCounter)
	return d.dispatch("grass", [3]int{total, 1, 1}, grassGroupSize)
}

// Close deletes the kernels and tears down the context.
func (d *Device) Close() error {
	if d.ctx == nil {
		return nil
	}
	for _, p := range []*program{d.mapP, d.meshP, d.grass} {
		if p != nil {
			p.delete()
		}
	}
	if d.live > 0 {
		d.log.WithField("buffers", d.live).Warn("device closed with live buffers")
	}
	d.ctx.close()
	d.ctx = nil
	return nil
}
