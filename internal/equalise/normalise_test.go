package equalise

import (
	"testing"
)

func TestNormaliseWorkedExample(t *testing.T) {
	// Four pixels spread evenly over four bins: inclusive cumulative
	// [1,2,3,4] scales to [64,128,191,255] with round-half-up.
	dev := newEqualiseDevice(t, 64)
	cum := uploadCounts(t, dev, []int64{1, 2, 3, 4})

	norm, err := normalise(dev, cum, 4)
	if err != nil {
		t.Fatalf("normalise: %v", err)
	}
	defer norm.Release()

	got := make([]uint8, 4)
	if err := norm.Read(got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []uint8{64, 128, 191, 255}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("norm[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestNormaliseMonotonicAndBounded(t *testing.T) {
	counts := randomCounts(256, 11)
	var running int64
	cumulative := make([]int64, len(counts))
	for i, c := range counts {
		running += c
		cumulative[i] = running
	}

	dev := newEqualiseDevice(t, 64)
	cum := uploadCounts(t, dev, cumulative)

	norm, err := normalise(dev, cum, running)
	if err != nil {
		t.Fatalf("normalise: %v", err)
	}
	defer norm.Release()

	got := make([]uint8, len(counts))
	if err := norm.Read(got); err != nil {
		t.Fatalf("Read: %v", err)
	}

	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Errorf("norm[%d] = %d < norm[%d] = %d, not monotonic", i, got[i], i-1, got[i-1])
		}
	}
	if got[len(got)-1] != 255 {
		t.Errorf("norm[last] = %d, want 255 when cum reaches the pixel count", got[len(got)-1])
	}
}

func TestNormaliseDegenerateSolidImage(t *testing.T) {
	// All pixels in bin 3 of 8: a step function. Bins below the step are 0,
	// bins at or above it 255.
	const total = 500
	cumulative := []int64{0, 0, 0, total, total, total, total, total}

	dev := newEqualiseDevice(t, 64)
	cum := uploadCounts(t, dev, cumulative)

	norm, err := normalise(dev, cum, total)
	if err != nil {
		t.Fatalf("normalise: %v", err)
	}
	defer norm.Release()

	got := make([]uint8, len(cumulative))
	if err := norm.Read(got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, v := range got {
		want := uint8(255)
		if i < 3 {
			want = 0
		}
		if v != want {
			t.Errorf("norm[%d] = %d, want %d", i, v, want)
		}
	}
}

func TestNormaliseRejectsNonPositiveTotal(t *testing.T) {
	dev := newEqualiseDevice(t, 64)
	cum := uploadCounts(t, dev, []int64{0, 0})

	if _, err := normalise(dev, cum, 0); err == nil {
		t.Error("normalise with zero total succeeded, want error")
	}
}
