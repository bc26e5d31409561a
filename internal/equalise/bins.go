package equalise

import "fmt"

// levels is the number of representable 8-bit intensity values.
const levels = 256

// BinMap maps raw 8-bit intensities onto histogram bins. The bin count must
// divide 256 so that every bin covers the same number of intensity levels.
type BinMap struct {
	bins  int
	width int
}

// NewBinMap validates the bin count and derives the mapping. A count that does
// not divide 256, or lies outside [1, 256], is a configuration error.
func NewBinMap(bins int) (BinMap, error) {
	if bins < 1 || bins > levels {
		return BinMap{}, fmt.Errorf("%w: bin count %d outside [1, %d]", ErrInvalidConfig, bins, levels)
	}
	if levels%bins != 0 {
		return BinMap{}, fmt.Errorf("%w: bin count %d does not divide %d", ErrInvalidConfig, bins, levels)
	}
	return BinMap{bins: bins, width: levels / bins}, nil
}

// Bins returns the number of bins B.
func (m BinMap) Bins() int { return m.bins }

// Width returns the number of intensity levels per bin, 256/B.
func (m BinMap) Width() int { return m.width }

// Index returns the bin of an intensity sample.
func (m BinMap) Index(v uint8) int { return int(v) / m.width }

// Thresholds returns the lower bound t_i = i*(256/B) of every bin.
func (m BinMap) Thresholds() []uint8 {
	t := make([]uint8, m.bins)
	for i := range t {
		t[i] = uint8(i * m.width)
	}
	return t
}
