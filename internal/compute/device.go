// Package compute emulates a data-parallel accelerator on the Go runtime:
// a persistent pool of workers executes kernels over N independent work-items,
// either one item at a time or organised into fixed-size work-groups with
// group-local scratch memory. Dispatches block until every work-item has
// finished, so a returned dispatch doubles as the barrier between pipeline
// stages.
package compute

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

const (
	// DefaultGroupSize is the work-group size used when the configuration
	// leaves it unset.
	DefaultGroupSize = 64

	// DefaultMaxAlloc caps total buffer memory per device at 1 GiB unless the
	// configuration overrides it.
	DefaultMaxAlloc = 1 << 30
)

var (
	// ErrDeviceClosed is returned by dispatches and allocations on a device
	// that has been shut down.
	ErrDeviceClosed = errors.New("compute device is closed")

	// ErrOutOfMemory is wrapped by buffer allocations that would exceed the
	// device allocation budget.
	ErrOutOfMemory = errors.New("device allocation budget exceeded")
)

// Config selects the device shape. Zero values fall back to defaults.
type Config struct {
	Workers   int   // worker goroutines; 0 means GOMAXPROCS
	GroupSize int   // work-items per group; 0 means DefaultGroupSize
	MaxAlloc  int64 // buffer budget in bytes; 0 means DefaultMaxAlloc
}

// Device is a persistent data-parallel executor. Workers are spawned once at
// creation and reused across every dispatch until Close.
type Device struct {
	workers   int
	groupSize int
	maxAlloc  int64

	allocated atomic.Int64
	workC     chan workItem
	closeOnce sync.Once
	closed    atomic.Bool

	locals sync.Pool
}

type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// NewDevice validates the configuration and spawns the worker pool.
func NewDevice(cfg Config) (*Device, error) {
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("worker count must be non-negative, got %d", cfg.Workers)
	}
	if cfg.GroupSize < 0 {
		return nil, fmt.Errorf("group size must be non-negative, got %d", cfg.GroupSize)
	}
	if cfg.MaxAlloc < 0 {
		return nil, fmt.Errorf("allocation budget must be non-negative, got %d", cfg.MaxAlloc)
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	groupSize := cfg.GroupSize
	if groupSize == 0 {
		groupSize = DefaultGroupSize
	}
	maxAlloc := cfg.MaxAlloc
	if maxAlloc == 0 {
		maxAlloc = DefaultMaxAlloc
	}

	d := &Device{
		workers:   workers,
		groupSize: groupSize,
		maxAlloc:  maxAlloc,
		workC:     make(chan workItem, workers*2),
	}

	for range workers {
		go d.worker()
	}

	return d, nil
}

func (d *Device) worker() {
	for item := range d.workC {
		item.fn()
		item.barrier.Done()
	}
}

// Workers returns the number of worker goroutines backing the device.
func (d *Device) Workers() int { return d.workers }

// GroupSize returns the work-group size used by DispatchGroups.
func (d *Device) GroupSize() int { return d.groupSize }

// Describe reports the device shape, in the spirit of an accelerator
// platform/device listing.
func (d *Device) Describe() string {
	return fmt.Sprintf("goroutine pool device: %d workers, group size %d, %d MiB buffer budget (%s, %s)",
		d.workers, d.groupSize, d.maxAlloc>>20, runtime.GOOS, runtime.GOARCH)
}

// Close shuts the pool down. Pending work completes; further dispatches and
// allocations fail with ErrDeviceClosed. Safe to call more than once.
func (d *Device) Close() {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.workC)
	})
}

// Dispatch runs kernel once for every global id in [0, n), spread across the
// worker pool in contiguous chunks. It blocks until all n work-items have
// completed; the return is therefore a full barrier, and no work-item of a
// later dispatch can observe this one half-done.
func (d *Device) Dispatch(n int, kernel func(gid int)) error {
	if n <= 0 {
		return nil
	}
	if d.closed.Load() {
		return ErrDeviceClosed
	}

	workers := min(d.workers, n)
	if workers == 1 {
		for gid := range n {
			kernel(gid)
		}
		return nil
	}

	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := range workers {
		start := w * chunk
		end := min(start+chunk, n)
		if start >= n {
			wg.Done()
			continue
		}
		d.workC <- workItem{
			fn: func() {
				for gid := start; gid < end; gid++ {
					kernel(gid)
				}
			},
			barrier: &wg,
		}
	}
	wg.Wait()

	return nil
}

// Group is one work-group of a grouped dispatch. Work-items of the group are
// the local ids [0, Size()); the last group of a dispatch is clamped so that
// no local id maps outside the global range.
type Group struct {
	dev    *Device
	index  int
	offset int
	size   int
	local  []int64
}

// Index returns the group id within the dispatch.
func (g *Group) Index() int { return g.index }

// Offset returns the global id of the group's first work-item.
func (g *Group) Offset() int { return g.offset }

// Size returns the number of valid work-items in the group.
func (g *Group) Size() int { return g.size }

// Local returns a zeroed group-local scratch array of n counters. The array
// lives only for the duration of the group's kernel invocation and is recycled
// afterwards, like workgroup fast memory.
func (g *Group) Local(n int) []int64 {
	if cached, ok := g.dev.locals.Get().(*[]int64); ok && cap(*cached) >= n {
		g.local = (*cached)[:n]
		for i := range g.local {
			g.local[i] = 0
		}
	} else {
		g.local = make([]int64, n)
	}
	return g.local
}

// DispatchGroups partitions [0, n) into groups of the device group size and
// runs kernel once per group, with groups distributed across workers by atomic
// work stealing. Like Dispatch it blocks until every group has completed.
// Groups have no ordering guarantee relative to each other.
func (d *Device) DispatchGroups(n int, kernel func(g *Group)) error {
	if n <= 0 {
		return nil
	}
	if d.closed.Load() {
		return ErrDeviceClosed
	}

	numGroups := (n + d.groupSize - 1) / d.groupSize
	workers := min(d.workers, numGroups)

	runGroup := func(index int) {
		offset := index * d.groupSize
		g := &Group{
			dev:    d,
			index:  index,
			offset: offset,
			size:   min(d.groupSize, n-offset),
		}
		kernel(g)
		if g.local != nil {
			scratch := g.local
			g.local = nil
			d.locals.Put(&scratch)
		}
	}

	if workers == 1 {
		for index := range numGroups {
			runGroup(index)
		}
		return nil
	}

	var nextGroup atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		d.workC <- workItem{
			fn: func() {
				for {
					index := int(nextGroup.Add(1)) - 1
					if index >= numGroups {
						return
					}
					runGroup(index)
				}
			},
			barrier: &wg,
		}
	}
	wg.Wait()

	return nil
}
