package pipeline

import (
	"fmt"
	"image"
)

// ImageData carries one decoded image through the pipeline: the stdlib image
// for display, plus the flat sample buffer the compute device consumes.
// Three-channel samples are interleaved RGB; single-channel samples are raw
// intensities.
type ImageData struct {
	Image    image.Image
	Pix      []uint8
	Width    int
	Height   int
	Channels int
	Format   string
}

// NewGrayData wraps a single-channel sample buffer as ImageData, building the
// image.Gray view the saver and display consume.
func NewGrayData(pix []uint8, width, height int, format string) (*ImageData, error) {
	if len(pix) != width*height {
		return nil, fmt.Errorf("gray buffer has %d samples for %dx%d image", len(pix), width, height)
	}

	gray := image.NewGray(image.Rect(0, 0, width, height))
	copy(gray.Pix, pix)

	return &ImageData{
		Image:    gray,
		Pix:      pix,
		Width:    width,
		Height:   height,
		Channels: 1,
		Format:   format,
	}, nil
}
