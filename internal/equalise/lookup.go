package equalise

import (
	"fmt"

	"histogram-equaliser/internal/compute"
)

// lookup substitutes every intensity sample with its normalised cumulative
// value: out[p] = norm[bin(in[p])]. Fully parallel, one work-item per pixel.
func lookup(dev *compute.Device, intensity *compute.Buffer[uint8], norm *compute.Buffer[uint8], bins BinMap) (*compute.Buffer[uint8], error) {
	out, err := compute.NewBuffer[uint8](dev, intensity.Len())
	if err != nil {
		return nil, fmt.Errorf("allocating output buffer: %w", err)
	}

	in := intensity.Data()
	table := norm.Data()
	dst := out.Data()
	if err := dev.Dispatch(intensity.Len(), func(p int) {
		dst[p] = table[bins.Index(in[p])]
	}); err != nil {
		out.Release()
		return nil, err
	}
	return out, nil
}
