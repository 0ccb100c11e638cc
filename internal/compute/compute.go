// Package compute defines the contract between the voxel engine and a
// compute-dispatch backend: buffer handles, kernel parameters and the binary
// triangle records kernels append.
//
// Every Device call is a blocking dispatch followed by an explicit readback.
// Output whose size is unknown ahead of time goes through an AppendBuffer in
// two phases: reserve a capacity, dispatch, read the counter, then read
// exactly that many records.
package compute

import (
	"context"
	"errors"
)

var (
	// ErrReadOverrun is returned when a readback asks for more records than
	// the kernel reported as written.
	ErrReadOverrun = errors.New("readback exceeds written record count")
	// ErrCapacityExceeded is returned when a kernel appended past the
	// reserved capacity.
	ErrCapacityExceeded = errors.New("append buffer capacity exceeded")
	// ErrForeignBuffer is returned when a buffer is passed to a device that
	// did not allocate it.
	ErrForeignBuffer = errors.New("buffer belongs to another device")
	ErrReleased      = errors.New("buffer already released")
)

// AppendBuffer is an output buffer with an atomic write counter.
type AppendBuffer interface {
	// Capacity is the number of records reserved. It is never zero.
	Capacity() int
	// Stride is the record size in bytes.
	Stride() int
	// ResetCounter sets the write counter to zero.
	ResetCounter()
	// Count blocks until the counter is read back.
	Count() (int, error)
	// Read returns the first n records, n <= the last Count.
	Read(n int) ([]byte, error)
	Release()
}

// DrawArgs is the 4 x int32 indirect draw argument block:
// vertex/index count, instance count, start vertex/index, start instance.
type DrawArgs [4]int32

// ProceduralArgs are the arguments of a procedural triangle draw: three
// vertices per instance, one instance per visible triangle.
func ProceduralArgs(visibleTriangles int) DrawArgs {
	return DrawArgs{3, int32(visibleTriangles), 0, 0}
}

// ArgsBuffer holds indirect draw arguments on the device.
type ArgsBuffer interface {
	Set(args DrawArgs) error
	Args() DrawArgs
	Release()
}

// Device runs the three engine kernels.
type Device interface {
	Name() string
	// NewAppendBuffer reserves capacity records of stride bytes. A capacity
	// below one is raised to one.
	NewAppendBuffer(capacity, stride int) (AppendBuffer, error)
	NewArgsBuffer() (ArgsBuffer, error)

	// GenerateMap runs the world-generation kernel once for the whole map
	// and returns the voxel IDs.
	GenerateMap(ctx context.Context, p MapParams) ([]int32, error)
	// MeshChunk runs the face-culling kernel, appending ChunkTriangle records.
	MeshChunk(ctx context.Context, p MeshParams, opaque, transparent AppendBuffer) error
	// GenerateGrass appends GrassTriangle records for every grass position.
	GenerateGrass(ctx context.Context, p GrassParams, out AppendBuffer) error

	Close() error
}

// ClampCapacity applies the never-zero rule for counter-backed buffers.
func ClampCapacity(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
