// Command histogram-equaliser equalises the intensity histogram of a single
// image on a goroutine-pool compute device and writes or displays the result.
//
// Usage:
//
//	histogram-equaliser -f input.png [-o output.png] [-show]
//	    [-b bins] [-histogram atomic|local] [-scan hillis-steele|blelloch]
//	    [-workers n] [-group-size n]
//	histogram-equaliser -l     list the compute device and exit
package main

import (
	"flag"
	"fmt"
	"os"

	"histogram-equaliser/internal/compute"
	"histogram-equaliser/internal/display"
	"histogram-equaliser/internal/equalise"
	"histogram-equaliser/internal/logger"
	"histogram-equaliser/internal/pipeline"
)

func main() {
	inputPath := flag.String("f", "test.png", "input image file")
	outputPath := flag.String("o", "", "output image file (empty: do not save)")
	bins := flag.Int("b", 256, "histogram bin count, must divide 256")
	histogramStrategy := flag.String("histogram", string(equalise.HistogramSerialAtomic),
		"histogram strategy: atomic or local")
	scanStrategy := flag.String("scan", string(equalise.ScanHillisSteele),
		"cumulative scan strategy: hillis-steele or blelloch")
	workers := flag.Int("workers", 0, "device worker count (0: all CPUs)")
	groupSize := flag.Int("group-size", compute.DefaultGroupSize, "device work-group size")
	listDevice := flag.Bool("l", false, "list the compute device and exit")
	show := flag.Bool("show", false, "display input and output side by side")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	log := logger.NewConsoleLogger(logger.ParseLevel(*logLevel))

	if err := run(runOptions{
		inputPath:  *inputPath,
		outputPath: *outputPath,
		listDevice: *listDevice,
		show:       *show,
		deviceCfg: compute.Config{
			Workers:   *workers,
			GroupSize: *groupSize,
		},
		equaliseCfg: equalise.Config{
			Bins:      *bins,
			Histogram: equalise.HistogramStrategy(*histogramStrategy),
			Scan:      equalise.ScanStrategy(*scanStrategy),
		},
	}, log); err != nil {
		log.Error("Main", err, nil)
		os.Exit(1)
	}
}

type runOptions struct {
	inputPath   string
	outputPath  string
	listDevice  bool
	show        bool
	deviceCfg   compute.Config
	equaliseCfg equalise.Config
}

func run(opts runOptions, log logger.Logger) error {
	device, err := compute.NewDevice(opts.deviceCfg)
	if err != nil {
		return fmt.Errorf("device configuration: %w", err)
	}
	defer device.Close()

	if opts.listDevice {
		fmt.Println(device.Describe())
		return nil
	}

	coordinator, err := pipeline.NewCoordinator(device, opts.equaliseCfg, log)
	if err != nil {
		return err
	}

	log.Info("Main", "running on "+device.Describe(), map[string]interface{}{
		"bins":      opts.equaliseCfg.Bins,
		"histogram": string(opts.equaliseCfg.Histogram),
		"scan":      string(opts.equaliseCfg.Scan),
	})

	original, err := coordinator.Load(opts.inputPath)
	if err != nil {
		return err
	}

	processed, err := coordinator.Process()
	if err != nil {
		return err
	}

	if opts.outputPath != "" {
		if err := coordinator.Save(opts.outputPath); err != nil {
			return err
		}
	}

	if opts.show {
		display.Show(original.Image, processed.Image)
	}

	return nil
}
