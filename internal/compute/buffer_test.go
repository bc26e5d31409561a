package compute

import (
	"errors"
	"testing"
)

func TestBufferWriteRead(t *testing.T) {
	d := newTestDevice(t, Config{Workers: 2})

	buf, err := NewBuffer[uint8](d, 4)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	defer buf.Release()

	if err := buf.Write([]uint8{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got := make([]uint8, 4)
	if err := buf.Read(got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, want := range []uint8{1, 2, 3, 4} {
		if got[i] != want {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want)
		}
	}
}

func TestBufferLengthMismatch(t *testing.T) {
	d := newTestDevice(t, Config{Workers: 2})

	buf, err := NewBuffer[int64](d, 4)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	defer buf.Release()

	if err := buf.Write(make([]int64, 3)); err == nil {
		t.Error("Write with short slice succeeded, want error")
	}
	if err := buf.Read(make([]int64, 5)); err == nil {
		t.Error("Read with long slice succeeded, want error")
	}
}

func TestBufferRejectsNonPositiveLength(t *testing.T) {
	d := newTestDevice(t, Config{Workers: 2})

	if _, err := NewBuffer[uint8](d, 0); err == nil {
		t.Error("NewBuffer(0) succeeded, want error")
	}
	if _, err := NewBuffer[uint8](d, -1); err == nil {
		t.Error("NewBuffer(-1) succeeded, want error")
	}
}

func TestBufferAllocationBudget(t *testing.T) {
	// Budget fits one 64-element int64 buffer but not two.
	d := newTestDevice(t, Config{Workers: 2, MaxAlloc: 768})

	first, err := NewBuffer[int64](d, 64)
	if err != nil {
		t.Fatalf("first allocation: %v", err)
	}

	if _, err := NewBuffer[int64](d, 64); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("second allocation: err = %v, want ErrOutOfMemory", err)
	}

	// Releasing returns the budget.
	first.Release()
	second, err := NewBuffer[int64](d, 64)
	if err != nil {
		t.Fatalf("allocation after release: %v", err)
	}
	second.Release()
}

func TestBufferOnClosedDevice(t *testing.T) {
	d, err := NewDevice(Config{Workers: 2})
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	d.Close()

	if _, err := NewBuffer[uint8](d, 8); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("NewBuffer on closed device: err = %v, want ErrDeviceClosed", err)
	}
}

func TestAtomicAddConcurrent(t *testing.T) {
	d := newTestDevice(t, Config{Workers: 8})

	counters, err := NewBuffer[int64](d, 4)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	defer counters.Release()
	counters.Fill(0)

	n := 10000
	if err := d.Dispatch(n, func(gid int) {
		AtomicAdd(counters, gid%4, 1)
	}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	got := make([]int64, 4)
	if err := counters.Read(got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, c := range got {
		if c != int64(n/4) {
			t.Errorf("counters[%d] = %d, want %d", i, c, n/4)
		}
	}
}
