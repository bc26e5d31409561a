package equalise

import (
	"fmt"
	"time"

	"histogram-equaliser/internal/compute"
	"histogram-equaliser/internal/logger"
)

// Equaliser runs the histogram equalisation pipeline on a device. Stages
// execute strictly one after another: every stage call blocks until its output
// buffer is fully materialised, so no stage reads a buffer the previous stage
// is still writing.
type Equaliser struct {
	device  *compute.Device
	bins    BinMap
	builder HistogramBuilder
	scanner Scanner
	log     logger.Logger
}

// New validates the configuration and assembles the pipeline. Configuration
// errors are reported here, before any device work.
func New(device *compute.Device, cfg Config, log logger.Logger) (*Equaliser, error) {
	if log == nil {
		log = logger.Nop{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bins, err := NewBinMap(cfg.Bins)
	if err != nil {
		return nil, err
	}
	builder, err := NewHistogramBuilder(cfg.Histogram)
	if err != nil {
		return nil, err
	}
	scanner, err := NewScanner(cfg.Scan)
	if err != nil {
		return nil, err
	}

	return &Equaliser{
		device:  device,
		bins:    bins,
		builder: builder,
		scanner: scanner,
		log:     log,
	}, nil
}

// Bins returns the configured bin count.
func (e *Equaliser) Bins() int { return e.bins.Bins() }

// Run equalises one image and returns the single-channel output samples, one
// per pixel. Any stage failure aborts the whole run; no partial output is
// returned.
func (e *Equaliser) Run(pix []uint8, width, height, channels int) ([]uint8, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("unsupported channel count %d, want 1 or 3", channels)
	}
	pixels := width * height
	if len(pix) != pixels*channels {
		return nil, fmt.Errorf("sample buffer has %d bytes, want %d", len(pix), pixels*channels)
	}

	start := time.Now()

	src, err := compute.NewBuffer[uint8](e.device, len(pix))
	if err != nil {
		return nil, fmt.Errorf("upload stage: %w", err)
	}
	defer src.Release()
	if err := src.Write(pix); err != nil {
		return nil, fmt.Errorf("upload stage: %w", err)
	}

	intensity, err := e.runIntensity(src, pixels, channels)
	if err != nil {
		return nil, err
	}
	defer intensity.Release()

	counts, err := e.runHistogram(intensity)
	if err != nil {
		return nil, err
	}
	defer counts.Release()

	cum, err := e.runScan(counts)
	if err != nil {
		return nil, err
	}
	defer cum.Release()

	norm, err := e.runNormalise(cum, int64(pixels))
	if err != nil {
		return nil, err
	}
	defer norm.Release()

	out, err := e.runLookup(intensity, norm)
	if err != nil {
		return nil, err
	}
	defer out.Release()

	result := make([]uint8, pixels)
	if err := out.Read(result); err != nil {
		return nil, fmt.Errorf("read-back stage: %w", err)
	}

	e.log.Info("Equaliser", "image equalised", map[string]interface{}{
		"width":       width,
		"height":      height,
		"channels":    channels,
		"bins":        e.bins.Bins(),
		"histogram":   e.builder.Name(),
		"scan":        e.scanner.Name(),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return result, nil
}

func (e *Equaliser) runIntensity(src *compute.Buffer[uint8], pixels, channels int) (*compute.Buffer[uint8], error) {
	start := time.Now()
	intensity, err := reduceIntensity(e.device, src, pixels, channels)
	if err != nil {
		return nil, fmt.Errorf("intensity stage: %w", err)
	}
	e.logStage("intensity", start, map[string]interface{}{"channels": channels})
	return intensity, nil
}

func (e *Equaliser) runHistogram(intensity *compute.Buffer[uint8]) (*compute.Buffer[int64], error) {
	start := time.Now()
	counts, err := e.builder.Build(e.device, intensity, e.bins)
	if err != nil {
		return nil, fmt.Errorf("histogram stage (%s): %w", e.builder.Name(), err)
	}
	e.logStage("histogram", start, map[string]interface{}{"strategy": e.builder.Name()})
	return counts, nil
}

func (e *Equaliser) runScan(counts *compute.Buffer[int64]) (*compute.Buffer[int64], error) {
	start := time.Now()
	cum, err := e.scanner.Scan(e.device, counts)
	if err != nil {
		return nil, fmt.Errorf("scan stage (%s): %w", e.scanner.Name(), err)
	}

	// The normaliser expects inclusive totals. An exclusive scan is shifted by
	// one elementwise add, so both strategies yield the same output image.
	if !e.scanner.Inclusive() {
		in := counts.Data()
		tree := cum.Data()
		if err := e.device.Dispatch(cum.Len(), func(i int) {
			tree[i] += in[i]
		}); err != nil {
			cum.Release()
			return nil, fmt.Errorf("scan stage (%s): %w", e.scanner.Name(), err)
		}
	}

	e.logStage("scan", start, map[string]interface{}{"strategy": e.scanner.Name(), "inclusive": e.scanner.Inclusive()})
	return cum, nil
}

func (e *Equaliser) runNormalise(cum *compute.Buffer[int64], total int64) (*compute.Buffer[uint8], error) {
	start := time.Now()
	norm, err := normalise(e.device, cum, total)
	if err != nil {
		return nil, fmt.Errorf("normalise stage: %w", err)
	}
	e.logStage("normalise", start, nil)
	return norm, nil
}

func (e *Equaliser) runLookup(intensity, norm *compute.Buffer[uint8]) (*compute.Buffer[uint8], error) {
	start := time.Now()
	out, err := lookup(e.device, intensity, norm, e.bins)
	if err != nil {
		return nil, fmt.Errorf("lookup stage: %w", err)
	}
	e.logStage("lookup", start, nil)
	return out, nil
}

func (e *Equaliser) logStage(stage string, start time.Time, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["stage"] = stage
	fields["duration_us"] = time.Since(start).Microseconds()
	e.log.Debug("Equaliser", "stage complete", fields)
}
