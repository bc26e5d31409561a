package compute

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Element is the set of sample types a device buffer can hold: 8-bit image
// samples and 64-bit counters.
type Element interface {
	~uint8 | ~int64
}

// Buffer is a device-resident array. It is written by exactly one pipeline
// stage and read-only to the next; kernels access it through Data while host
// code moves whole arrays with Write and Read.
type Buffer[T Element] struct {
	dev   *Device
	data  []T
	bytes int64
}

// NewBuffer allocates a device buffer of n elements, charged against the
// device allocation budget.
func NewBuffer[T Element](d *Device, n int) (*Buffer[T], error) {
	if d.closed.Load() {
		return nil, ErrDeviceClosed
	}
	if n <= 0 {
		return nil, fmt.Errorf("buffer length must be positive, got %d", n)
	}

	var zero T
	bytes := int64(n) * int64(unsafe.Sizeof(zero))
	if used := d.allocated.Add(bytes); used > d.maxAlloc {
		d.allocated.Add(-bytes)
		return nil, fmt.Errorf("allocating %d bytes with %d of %d in use: %w",
			bytes, used-bytes, d.maxAlloc, ErrOutOfMemory)
	}

	return &Buffer[T]{dev: d, data: make([]T, n), bytes: bytes}, nil
}

// Len returns the number of elements in the buffer.
func (b *Buffer[T]) Len() int { return len(b.data) }

// Write copies src from the host into the buffer. Lengths must match.
func (b *Buffer[T]) Write(src []T) error {
	if len(src) != len(b.data) {
		return fmt.Errorf("host write of %d elements into buffer of %d", len(src), len(b.data))
	}
	copy(b.data, src)
	return nil
}

// Read copies the buffer back to the host. Lengths must match.
func (b *Buffer[T]) Read(dst []T) error {
	if len(dst) != len(b.data) {
		return fmt.Errorf("host read of %d elements from buffer of %d", len(dst), len(b.data))
	}
	copy(dst, b.data)
	return nil
}

// Fill sets every element to v.
func (b *Buffer[T]) Fill(v T) {
	for i := range b.data {
		b.data[i] = v
	}
}

// Data exposes the device-side array to kernels. The caller owns the ordering
// discipline: concurrent writers must go through AtomicAdd.
func (b *Buffer[T]) Data() []T { return b.data }

// Release returns the buffer's bytes to the device budget. The buffer must
// not be used afterwards.
func (b *Buffer[T]) Release() {
	if b.data == nil {
		return
	}
	b.dev.allocated.Add(-b.bytes)
	b.data = nil
}

// AtomicAdd performs an indivisible read-modify-write increment of buf[i].
// Increments from concurrent work-items serialise in an unspecified order,
// which is safe for commutative accumulation.
func AtomicAdd(buf *Buffer[int64], i int, delta int64) {
	atomic.AddInt64(&buf.data[i], delta)
}
