package equalise

import (
	"fmt"

	"histogram-equaliser/internal/compute"
)

// normalise rescales an inclusive cumulative histogram to [0, 255] using
// round-half-up, computed in integer arithmetic as (cum*510 + N) / (2N).
// Monotonicity of the input carries through the scaling, and the top bin maps
// to 255 whenever the cumulative total reaches the pixel count.
func normalise(dev *compute.Device, cum *compute.Buffer[int64], total int64) (*compute.Buffer[uint8], error) {
	if total <= 0 {
		return nil, fmt.Errorf("pixel count must be positive, got %d", total)
	}

	norm, err := compute.NewBuffer[uint8](dev, cum.Len())
	if err != nil {
		return nil, fmt.Errorf("allocating normalised histogram: %w", err)
	}

	in := cum.Data()
	out := norm.Data()
	if err := dev.Dispatch(cum.Len(), func(i int) {
		v := (in[i]*510 + total) / (2 * total)
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		out[i] = uint8(v)
	}); err != nil {
		norm.Release()
		return nil, err
	}
	return norm, nil
}
