package pipeline

import (
	"fmt"
	"sync"

	"histogram-equaliser/internal/compute"
	"histogram-equaliser/internal/equalise"
	"histogram-equaliser/internal/logger"
)

// Coordinator runs the load → equalise → save pipeline and holds the original
// and processed images for the display sink.
type Coordinator struct {
	mu        sync.RWMutex
	log       logger.Logger
	equaliser *equalise.Equaliser
	loader    *Loader
	saver     *Saver

	original  *ImageData
	processed *ImageData
}

// NewCoordinator assembles the pipeline for one run configuration.
// Configuration errors surface here, before any image or device work.
func NewCoordinator(device *compute.Device, cfg equalise.Config, log logger.Logger) (*Coordinator, error) {
	if log == nil {
		log = logger.Nop{}
	}

	eq, err := equalise.New(device, cfg, log)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		log:       log,
		equaliser: eq,
		loader:    NewLoader(log),
		saver:     NewSaver(log),
	}, nil
}

// Load decodes the input image and makes it the pipeline's original.
func (c *Coordinator) Load(path string) (*ImageData, error) {
	imageData, err := c.loader.LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.original = imageData
	c.processed = nil
	c.mu.Unlock()

	return imageData, nil
}

// Process equalises the loaded image. Any stage failure aborts the run and
// leaves no processed image behind.
func (c *Coordinator) Process() (*ImageData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.original == nil {
		return nil, fmt.Errorf("no image loaded")
	}

	out, err := c.equaliser.Run(c.original.Pix, c.original.Width, c.original.Height, c.original.Channels)
	if err != nil {
		return nil, fmt.Errorf("equalisation failed: %w", err)
	}

	processed, err := NewGrayData(out, c.original.Width, c.original.Height, c.original.Format)
	if err != nil {
		return nil, err
	}

	c.processed = processed
	return processed, nil
}

// Save writes the processed image to path.
func (c *Coordinator) Save(path string) error {
	c.mu.RLock()
	processed := c.processed
	c.mu.RUnlock()

	if processed == nil {
		return fmt.Errorf("no processed image to save")
	}
	return c.saver.SaveToFile(path, processed)
}

func (c *Coordinator) Original() *ImageData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.original
}

func (c *Coordinator) Processed() *ImageData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.processed
}
