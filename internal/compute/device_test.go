package compute

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
)

func newTestDevice(t *testing.T, cfg Config) *Device {
	t.Helper()
	d, err := NewDevice(cfg)
	if err != nil {
		t.Fatalf("NewDevice(%+v): %v", cfg, err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestNewDeviceDefaults(t *testing.T) {
	d := newTestDevice(t, Config{})

	if d.Workers() != runtime.GOMAXPROCS(0) {
		t.Errorf("Workers() = %d, want %d", d.Workers(), runtime.GOMAXPROCS(0))
	}
	if d.GroupSize() != DefaultGroupSize {
		t.Errorf("GroupSize() = %d, want %d", d.GroupSize(), DefaultGroupSize)
	}
}

func TestNewDeviceRejectsNegativeConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative workers", Config{Workers: -1}},
		{"negative group size", Config{GroupSize: -8}},
		{"negative budget", Config{MaxAlloc: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDevice(tt.cfg); err == nil {
				t.Errorf("NewDevice(%+v) succeeded, want error", tt.cfg)
			}
		})
	}
}

func TestDispatchCoversEveryItemOnce(t *testing.T) {
	d := newTestDevice(t, Config{Workers: 4})

	n := 1000
	hits := make([]int32, n)
	err := d.Dispatch(n, func(gid int) {
		atomic.AddInt32(&hits[gid], 1)
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	for gid, h := range hits {
		if h != 1 {
			t.Errorf("work-item %d ran %d times, want 1", gid, h)
		}
	}
}

func TestDispatchSmallerThanWorkers(t *testing.T) {
	d := newTestDevice(t, Config{Workers: 8})

	var count atomic.Int32
	if err := d.Dispatch(3, func(gid int) { count.Add(1) }); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if count.Load() != 3 {
		t.Errorf("count = %d, want 3", count.Load())
	}
}

func TestDispatchZeroItems(t *testing.T) {
	d := newTestDevice(t, Config{Workers: 4})

	called := false
	if err := d.Dispatch(0, func(gid int) { called = true }); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if called {
		t.Error("Dispatch with n=0 invoked the kernel")
	}
}

func TestDispatchGroupsPartition(t *testing.T) {
	// 250 items in groups of 64: three full groups plus a clamped tail of 58.
	d := newTestDevice(t, Config{Workers: 4, GroupSize: 64})

	n := 250
	hits := make([]int32, n)
	var groups atomic.Int32
	err := d.DispatchGroups(n, func(g *Group) {
		groups.Add(1)
		for lid := 0; lid < g.Size(); lid++ {
			atomic.AddInt32(&hits[g.Offset()+lid], 1)
		}
	})
	if err != nil {
		t.Fatalf("DispatchGroups: %v", err)
	}

	if want := int32(4); groups.Load() != want {
		t.Errorf("group count = %d, want %d", groups.Load(), want)
	}
	for gid, h := range hits {
		if h != 1 {
			t.Errorf("work-item %d ran %d times, want 1", gid, h)
		}
	}
}

func TestDispatchGroupsClampsTail(t *testing.T) {
	d := newTestDevice(t, Config{Workers: 2, GroupSize: 16})

	err := d.DispatchGroups(40, func(g *Group) {
		if g.Offset()+g.Size() > 40 {
			t.Errorf("group %d spans [%d, %d), beyond the global range", g.Index(), g.Offset(), g.Offset()+g.Size())
		}
		switch g.Index() {
		case 0, 1:
			if g.Size() != 16 {
				t.Errorf("group %d size = %d, want 16", g.Index(), g.Size())
			}
		case 2:
			if g.Size() != 8 {
				t.Errorf("tail group size = %d, want 8", g.Size())
			}
		default:
			t.Errorf("unexpected group index %d", g.Index())
		}
	})
	if err != nil {
		t.Fatalf("DispatchGroups: %v", err)
	}
}

func TestGroupLocalScratchIsZeroed(t *testing.T) {
	d := newTestDevice(t, Config{Workers: 4, GroupSize: 8})

	// Dirty the scratch pool on a first dispatch, then check a second dispatch
	// still observes zeroed local memory.
	for round := 0; round < 2; round++ {
		err := d.DispatchGroups(64, func(g *Group) {
			local := g.Local(16)
			for i, v := range local {
				if v != 0 {
					t.Errorf("local[%d] = %d on entry, want 0", i, v)
				}
			}
			for i := range local {
				local[i] = int64(g.Index() + 1)
			}
		})
		if err != nil {
			t.Fatalf("DispatchGroups round %d: %v", round, err)
		}
	}
}

func TestDispatchAfterClose(t *testing.T) {
	d, err := NewDevice(Config{Workers: 2})
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	d.Close()
	d.Close() // must not panic

	if err := d.Dispatch(10, func(gid int) {}); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("Dispatch on closed device: err = %v, want ErrDeviceClosed", err)
	}
	if err := d.DispatchGroups(10, func(g *Group) {}); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("DispatchGroups on closed device: err = %v, want ErrDeviceClosed", err)
	}
}

func BenchmarkDispatch(b *testing.B) {
	d, err := NewDevice(Config{})
	if err != nil {
		b.Fatalf("NewDevice: %v", err)
	}
	defer d.Close()

	n := 1 << 16
	for b.Loop() {
		_ = d.Dispatch(n, func(gid int) {
			_ = gid * gid
		})
	}
}
