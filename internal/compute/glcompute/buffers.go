package glcompute

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"

	"voxgrass/internal/compute"
)

func newBuffer(target uint32, size int, data unsafe.Pointer, usage uint32) uint32 {
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(target, id)
	gl.BufferData(target, size, data, usage)
	gl.BindBuffer(target, 0)
	return id
}

// newInt32Buffer uploads vals as a storage buffer. Empty input still yields
// a one-element buffer.
func newInt32Buffer(vals []int32) uint32 {
	if len(vals) == 0 {
		vals = []int32{0}
	}
	return newBuffer(gl.SHADER_STORAGE_BUFFER, len(vals)*4, gl.Ptr(vals), gl.STATIC_DRAW)
}

func deleteBuffer(id *uint32) {
	if *id != 0 {
		gl.DeleteBuffers(1, id)
		*id = 0
	}
}

// appendBuffer is a storage buffer paired with an atomic counter buffer.
type appendBuffer struct {
	owner    *Device
	ssbo     uint32
	counter  uint32
	stride   int
	capacity int

	lastCount int
}

func (b *appendBuffer) Capacity() int { return b.capacity }

func (b *appendBuffer) Stride() int { return b.stride }

func (b *appendBuffer) ResetCounter() {
	if b.counter == 0 {
		return
	}
	var zero uint32
	gl.BindBuffer(gl.ATOMIC_COUNTER_BUFFER, b.counter)
	gl.BufferSubData(gl.ATOMIC_COUNTER_BUFFER, 0, 4, gl.Ptr(&zero))
	gl.BindBuffer(gl.ATOMIC_COUNTER_BUFFER, 0)
	b.lastCount = 0
}

func (b *appendBuffer) Count() (int, error) {
	if b.counter == 0 {
		return 0, compute.ErrReleased
	}

	var c uint32
	gl.MemoryBarrier(gl.ATOMIC_COUNTER_BARRIER_BIT | gl.BUFFER_UPDATE_BARRIER_BIT)
	gl.BindBuffer(gl.ATOMIC_COUNTER_BUFFER, b.counter)
	gl.GetBufferSubData(gl.ATOMIC_COUNTER_BUFFER, 0, 4, gl.Ptr(&c))
	gl.BindBuffer(gl.ATOMIC_COUNTER_BUFFER, 0)
	if err := glError("read counter"); err != nil {
		return 0, err
	}

	if int(c) > b.capacity {
		b.lastCount = b.capacity
		return int(c), fmt.Errorf("%w: %d records written, capacity %d", compute.ErrCapacityExceeded, c, b.capacity)
	}
	b.lastCount = int(c)
	return int(c), nil
}

func (b *appendBuffer) Read(n int) ([]byte, error) {
	if b.ssbo == 0 {
		return nil, compute.ErrReleased
	}
	if n < 0 || n > b.lastCount {
		return nil, fmt.Errorf("%w: requested %d, counted %d", compute.ErrReadOverrun, n, b.lastCount)
	}
	if n == 0 {
		return []byte{}, nil
	}

	out := make([]byte, n*b.stride)
	gl.MemoryBarrier(gl.BUFFER_UPDATE_BARRIER_BIT)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.ssbo)
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, len(out), gl.Ptr(out))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	if err := glError("read records"); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *appendBuffer) Release() {
	if b.ssbo == 0 {
		return
	}
	deleteBuffer(&b.ssbo)
	deleteBuffer(&b.counter)
	b.owner.live--
}

func (b *appendBuffer) bind(dataBinding, counterBinding uint32) {
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, dataBinding, b.ssbo)
	gl.BindBufferBase(gl.ATOMIC_COUNTER_BUFFER, counterBinding, b.counter)
}

// argsBuffer is a 16-byte indirect draw buffer.
type argsBuffer struct {
	owner *Device
	id    uint32
}

func (b *argsBuffer) Set(args compute.DrawArgs) error {
	if b.id == 0 {
		return compute.ErrReleased
	}
	gl.BindBuffer(gl.DRAW_INDIRECT_BUFFER, b.id)
	gl.BufferSubData(gl.DRAW_INDIRECT_BUFFER, 0, len(args)*4, gl.Ptr(&args[0]))
	gl.BindBuffer(gl.DRAW_INDIRECT_BUFFER, 0)
	return glError("set draw args")
}

func (b *argsBuffer) Args() compute.DrawArgs {
	var args compute.DrawArgs
	if b.id == 0 {
		return args
	}
	gl.BindBuffer(gl.DRAW_INDIRECT_BUFFER, b.id)
	gl.GetBufferSubData(gl.DRAW_INDIRECT_BUFFER, 0, len(args)*4, gl.Ptr(&args[0]))
	gl.BindBuffer(gl.DRAW_INDIRECT_BUFFER, 0)
	return args
}

// ID is the GL buffer name, for glDrawArraysIndirect.
func (b *argsBuffer) ID() uint32 { return b.id }

func (b *argsBuffer) Release() {
	if b.id == 0 {
		return
	}
	deleteBuffer(&b.id)
	b.owner.live--
}
