package pipeline

import (
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"histogram-equaliser/internal/logger"
)

// Saver writes the equalised image out. Format follows the destination
// extension, defaulting to PNG.
type Saver struct {
	log logger.Logger
}

func NewSaver(log logger.Logger) *Saver {
	if log == nil {
		log = logger.Nop{}
	}
	return &Saver{log: log}
}

func (s *Saver) SaveToFile(path string, imageData *ImageData) error {
	if imageData == nil {
		return fmt.Errorf("no image data to save")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	format := formatForExtension(strings.ToLower(filepath.Ext(path)))
	if err := s.SaveToWriter(file, imageData, format); err != nil {
		return err
	}

	s.log.Info("ImageSaver", "image saved", map[string]interface{}{
		"path":   path,
		"format": format,
	})
	return nil
}

func (s *Saver) SaveToWriter(writer io.Writer, imageData *ImageData, format string) error {
	if imageData == nil || imageData.Image == nil {
		return fmt.Errorf("no image data to save")
	}

	switch format {
	case "jpeg":
		return jpeg.Encode(writer, imageData.Image, &jpeg.Options{Quality: 95})
	case "png":
		return png.Encode(writer, imageData.Image)
	default:
		s.log.Warning("ImageSaver", "format not supported, using PNG", map[string]interface{}{
			"requested_format": format,
		})
		return png.Encode(writer, imageData.Image)
	}
}

func formatForExtension(extension string) string {
	switch extension {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png", "":
		return "png"
	default:
		return extension[1:]
	}
}
