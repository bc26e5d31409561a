package equalise

import (
	"fmt"

	"histogram-equaliser/internal/compute"
)

// Scanner turns bin counts into a running-total array. Inclusive reports
// whether cum[i] includes bin i itself; the two strategies differ in that
// shift and callers must consult it before normalising.
type Scanner interface {
	Name() string
	Inclusive() bool
	Scan(dev *compute.Device, counts *compute.Buffer[int64]) (*compute.Buffer[int64], error)
}

// NewScanner returns the scanner for a validated strategy.
func NewScanner(strategy ScanStrategy) (Scanner, error) {
	switch strategy {
	case ScanHillisSteele:
		return hillisSteeleScanner{}, nil
	case ScanBlelloch:
		return blellochScanner{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown scan strategy %q", ErrInvalidConfig, strategy)
	}
}

// hillisSteeleScanner runs the inclusive step-efficient scan: ceil(log2 B)
// double-buffered steps, each a full dispatch so that no work-item reads a
// value the current step has already overwritten. O(B log B) total adds.
type hillisSteeleScanner struct{}

func (hillisSteeleScanner) Name() string    { return string(ScanHillisSteele) }
func (hillisSteeleScanner) Inclusive() bool { return true }

func (hillisSteeleScanner) Scan(dev *compute.Device, counts *compute.Buffer[int64]) (*compute.Buffer[int64], error) {
	b := counts.Len()

	front, err := compute.NewBuffer[int64](dev, b)
	if err != nil {
		return nil, fmt.Errorf("allocating scan buffer: %w", err)
	}
	back, err := compute.NewBuffer[int64](dev, b)
	if err != nil {
		front.Release()
		return nil, fmt.Errorf("allocating scan buffer: %w", err)
	}

	in := counts.Data()
	first := front.Data()
	if err := dev.Dispatch(b, func(i int) {
		first[i] = in[i]
	}); err != nil {
		front.Release()
		back.Release()
		return nil, err
	}

	// Each iteration reads the previous step's buffer and writes the other;
	// the blocking dispatch is the step barrier.
	for d := 1; d < b; d <<= 1 {
		src := front.Data()
		dst := back.Data()
		if err := dev.Dispatch(b, func(i int) {
			if i >= d {
				dst[i] = src[i] + src[i-d]
			} else {
				dst[i] = src[i]
			}
		}); err != nil {
			front.Release()
			back.Release()
			return nil, err
		}
		front, back = back, front
	}

	back.Release()
	return front, nil
}

// blellochScanner runs the exclusive work-efficient scan: an up-sweep builds a
// reduction tree in place, then a down-sweep distributes partial sums back,
// O(B) total adds across 2*ceil(log2 B) barrier-separated steps. The result
// excludes bin i itself, so cum[0] is always zero.
type blellochScanner struct{}

func (blellochScanner) Name() string    { return string(ScanBlelloch) }
func (blellochScanner) Inclusive() bool { return false }

func (blellochScanner) Scan(dev *compute.Device, counts *compute.Buffer[int64]) (*compute.Buffer[int64], error) {
	b := counts.Len()
	if b&(b-1) != 0 {
		return nil, fmt.Errorf("%w: work-efficient scan needs a power-of-two bin count, got %d", ErrInvalidConfig, b)
	}

	cum, err := compute.NewBuffer[int64](dev, b)
	if err != nil {
		return nil, fmt.Errorf("allocating scan buffer: %w", err)
	}

	in := counts.Data()
	tree := cum.Data()
	if err := dev.Dispatch(b, func(i int) {
		tree[i] = in[i]
	}); err != nil {
		cum.Release()
		return nil, err
	}

	// Up-sweep: pair sums at doubling stride.
	for d := 1; d < b; d <<= 1 {
		stride := d << 1
		if err := dev.Dispatch(b/stride, func(k int) {
			i := stride*(k+1) - 1
			tree[i] += tree[i-d]
		}); err != nil {
			cum.Release()
			return nil, err
		}
	}

	// Clear the root, then down-sweep: each node passes its value left and
	// the combined sum right.
	tree[b-1] = 0
	for d := b >> 1; d >= 1; d >>= 1 {
		stride := d << 1
		if err := dev.Dispatch(b/stride, func(k int) {
			i := stride*(k+1) - 1
			left := tree[i-d]
			tree[i-d] = tree[i]
			tree[i] += left
		}); err != nil {
			cum.Release()
			return nil, err
		}
	}

	return cum, nil
}
