// Package equalise implements single-image histogram equalisation as a five
// stage device pipeline: intensity reduction, histogram building, cumulative
// scan, normalisation and lookup. The histogram and scan stages each offer two
// interchangeable strategies selected by the run configuration.
package equalise

import (
	"errors"
	"fmt"
)

// HistogramStrategy selects how the histogram stage accumulates bin counts.
type HistogramStrategy string

const (
	// HistogramSerialAtomic increments the shared global counters directly,
	// one atomic add per pixel.
	HistogramSerialAtomic HistogramStrategy = "atomic"

	// HistogramLocalReduce accumulates per-group counters in group-local
	// memory and merges each group into the global counters with B atomic
	// adds.
	HistogramLocalReduce HistogramStrategy = "local"
)

// ScanStrategy selects the cumulative scan algorithm.
type ScanStrategy string

const (
	// ScanHillisSteele is the inclusive step-efficient scan.
	ScanHillisSteele ScanStrategy = "hillis-steele"

	// ScanBlelloch is the exclusive work-efficient scan.
	ScanBlelloch ScanStrategy = "blelloch"
)

// ErrInvalidConfig marks configuration errors, which are always rejected
// before any device work starts.
var ErrInvalidConfig = errors.New("invalid equalisation configuration")

// Config is the fixed configuration of one equalisation run.
type Config struct {
	Bins      int
	Histogram HistogramStrategy
	Scan      ScanStrategy
}

// DefaultConfig uses one bin per intensity level, direct atomic counting and
// the inclusive scan.
func DefaultConfig() Config {
	return Config{
		Bins:      256,
		Histogram: HistogramSerialAtomic,
		Scan:      ScanHillisSteele,
	}
}

// Validate rejects configurations the pipeline cannot run.
func (c Config) Validate() error {
	if _, err := NewBinMap(c.Bins); err != nil {
		return err
	}
	switch c.Histogram {
	case HistogramSerialAtomic, HistogramLocalReduce:
	default:
		return fmt.Errorf("%w: unknown histogram strategy %q", ErrInvalidConfig, c.Histogram)
	}
	switch c.Scan {
	case ScanHillisSteele, ScanBlelloch:
	default:
		return fmt.Errorf("%w: unknown scan strategy %q", ErrInvalidConfig, c.Scan)
	}
	return nil
}
