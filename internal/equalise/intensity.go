package equalise

import (
	"fmt"

	"histogram-equaliser/internal/compute"
)

// BT.601 luma weights in 8-bit fixed point: 0.299 R + 0.587 G + 0.114 B.
const (
	lumaRed   = 77
	lumaGreen = 150
	lumaBlue  = 29
)

// reduceIntensity converts the uploaded image samples to one intensity sample
// per pixel. Three-channel images are reduced to luminance; single-channel
// images pass through unchanged. Every output sample depends only on its own
// pixel, so the kernel runs with no ordering constraints.
func reduceIntensity(dev *compute.Device, src *compute.Buffer[uint8], pixels, channels int) (*compute.Buffer[uint8], error) {
	out, err := compute.NewBuffer[uint8](dev, pixels)
	if err != nil {
		return nil, fmt.Errorf("allocating intensity buffer: %w", err)
	}

	in := src.Data()
	dst := out.Data()

	var kernel func(p int)
	switch channels {
	case 3:
		kernel = func(p int) {
			base := p * 3
			r := int(in[base])
			g := int(in[base+1])
			b := int(in[base+2])
			dst[p] = uint8((lumaRed*r + lumaGreen*g + lumaBlue*b) >> 8)
		}
	case 1:
		kernel = func(p int) {
			dst[p] = in[p]
		}
	default:
		out.Release()
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}

	if err := dev.Dispatch(pixels, kernel); err != nil {
		out.Release()
		return nil, err
	}
	return out, nil
}
