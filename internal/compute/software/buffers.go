package software

import (
	"fmt"
	"sync"
	"sync/atomic"

	"voxgrass/internal/compute"
)

// appendBuffer is a host-memory append buffer with an atomic counter.
type appendBuffer struct {
	owner    *Device
	data     []byte
	stride   int
	capacity int

	counter   atomic.Int64
	mu        sync.Mutex
	lastCount int
	released  bool
}

func (b *appendBuffer) Capacity() int { return b.capacity }

func (b *appendBuffer) Stride() int { return b.stride }

func (b *appendBuffer) ResetCounter() {
	b.counter.Store(0)
	b.mu.Lock()
	b.lastCount = 0
	b.mu.Unlock()
}

// appendRecord is the kernel-side atomic append. Writes past capacity are
// dropped but still counted so Count can report the overflow.
func (b *appendBuffer) appendRecord(rec []byte) {
	i := b.counter.Add(1) - 1
	if i < int64(b.capacity) {
		off := int(i) * b.stride
		copy(b.data[off:off+b.stride], rec)
	}
}

// writeRecord stores rec in slot i and counts it, for kernels that know
// each record's position up front.
func (b *appendBuffer) writeRecord(i int, rec []byte) {
	b.counter.Add(1)
	if i < b.capacity {
		off := i * b.stride
		copy(b.data[off:off+b.stride], rec)
	}
}

func (b *appendBuffer) Count() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return 0, compute.ErrReleased
	}

	c := int(b.counter.Load())
	if c > b.capacity {
		b.lastCount = b.capacity
		return c, fmt.Errorf("%w: %d records written, capacity %d", compute.ErrCapacityExceeded, c, b.capacity)
	}
	b.lastCount = c
	return c, nil
}

func (b *appendBuffer) Read(n int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil, compute.ErrReleased
	}
	if n < 0 || n > b.lastCount {
		return nil, fmt.Errorf("%w: requested %d, counted %d", compute.ErrReadOverrun, n, b.lastCount)
	}

	out := make([]byte, n*b.stride)
	copy(out, b.data[:n*b.stride])
	return out, nil
}

func (b *appendBuffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	b.data = nil
	b.owner.live.Add(-1)
}

type argsBuffer struct {
	owner    *Device
	mu       sync.Mutex
	args     compute.DrawArgs
	released bool
}

func (b *argsBuffer) Set(args compute.DrawArgs) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return compute.ErrReleased
	}
	b.args = args
	return nil
}

func (b *argsBuffer) Args() compute.DrawArgs {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.args
}

func (b *argsBuffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	b.owner.live.Add(-1)
}
