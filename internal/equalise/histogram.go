package equalise

import (
	"fmt"

	"histogram-equaliser/internal/compute"
)

// HistogramBuilder counts intensity samples per bin. Both implementations
// produce identical counts for the same input; they differ only in how much
// traffic they put on the shared global counters.
type HistogramBuilder interface {
	Name() string
	Build(dev *compute.Device, intensity *compute.Buffer[uint8], bins BinMap) (*compute.Buffer[int64], error)
}

// NewHistogramBuilder returns the builder for a validated strategy.
func NewHistogramBuilder(strategy HistogramStrategy) (HistogramBuilder, error) {
	switch strategy {
	case HistogramSerialAtomic:
		return serialAtomicBuilder{}, nil
	case HistogramLocalReduce:
		return localReduceBuilder{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown histogram strategy %q", ErrInvalidConfig, strategy)
	}
}

// serialAtomicBuilder issues one atomic increment against the global counter
// array per pixel. Increments targeting the same bin serialise, so heavily
// populated bins become a contention point.
type serialAtomicBuilder struct{}

func (serialAtomicBuilder) Name() string { return string(HistogramSerialAtomic) }

func (serialAtomicBuilder) Build(dev *compute.Device, intensity *compute.Buffer[uint8], bins BinMap) (*compute.Buffer[int64], error) {
	counts, err := compute.NewBuffer[int64](dev, bins.Bins())
	if err != nil {
		return nil, fmt.Errorf("allocating histogram buffer: %w", err)
	}
	counts.Fill(0)

	samples := intensity.Data()
	if err := dev.Dispatch(intensity.Len(), func(p int) {
		compute.AtomicAdd(counts, bins.Index(samples[p]), 1)
	}); err != nil {
		counts.Release()
		return nil, err
	}
	return counts, nil
}

// localReduceBuilder accumulates each work-group's pixels into group-local
// counters first, then has the group merge its B local counts into the global
// array. Global atomic traffic drops from one add per pixel to B adds per
// group. The dispatcher clamps the final group to the valid pixel range, so
// boundary work-items never count phantom pixels.
type localReduceBuilder struct{}

func (localReduceBuilder) Name() string { return string(HistogramLocalReduce) }

func (localReduceBuilder) Build(dev *compute.Device, intensity *compute.Buffer[uint8], bins BinMap) (*compute.Buffer[int64], error) {
	counts, err := compute.NewBuffer[int64](dev, bins.Bins())
	if err != nil {
		return nil, fmt.Errorf("allocating histogram buffer: %w", err)
	}
	counts.Fill(0)

	samples := intensity.Data()
	b := bins.Bins()
	if err := dev.DispatchGroups(intensity.Len(), func(g *compute.Group) {
		local := g.Local(b)
		for lid := 0; lid < g.Size(); lid++ {
			local[bins.Index(samples[g.Offset()+lid])]++
		}
		// All local increments of this group precede the merge.
		for bin, count := range local {
			compute.AtomicAdd(counts, bin, count)
		}
	}); err != nil {
		counts.Release()
		return nil, err
	}
	return counts, nil
}
