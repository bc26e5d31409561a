package pipeline

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"histogram-equaliser/internal/logger"

	"gocv.io/x/gocv"
)

// Loader decodes input images. Decoding goes through OpenCV for the flat
// sample buffer and through the standard library for the image.Image the
// display consumes; failure of either is an input error reported before any
// device work starts.
type Loader struct {
	log logger.Logger
}

func NewLoader(log logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop{}
	}
	return &Loader{log: log}
}

func (l *Loader) LoadFromFile(path string) (*ImageData, error) {
	l.log.Debug("ImageLoader", "loading image", map[string]interface{}{
		"path": path,
	})

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	return l.LoadFromBytes(data, strings.ToLower(filepath.Ext(path)))
}

func (l *Loader) LoadFromBytes(data []byte, extension string) (*ImageData, error) {
	img, stdlibFormat, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image with standard library: %w", err)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image with OpenCV: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("OpenCV decoded an empty image")
	}

	pix, channels, err := matToSamples(mat)
	if err != nil {
		return nil, err
	}

	imageData := &ImageData{
		Image:    img,
		Pix:      pix,
		Width:    mat.Cols(),
		Height:   mat.Rows(),
		Channels: channels,
		Format:   determineFormat(extension, stdlibFormat),
	}

	l.log.Info("ImageLoader", "image loaded", map[string]interface{}{
		"width":    imageData.Width,
		"height":   imageData.Height,
		"channels": imageData.Channels,
		"format":   imageData.Format,
	})

	return imageData, nil
}

// matToSamples flattens a decoded Mat into the interleaved sample order the
// pipeline expects: single-channel intensities stay as is, colour images are
// reordered from OpenCV's BGR to RGB, and an alpha channel is discarded.
func matToSamples(mat gocv.Mat) ([]uint8, int, error) {
	switch mat.Channels() {
	case 1:
		return mat.ToBytes(), 1, nil
	case 3:
		rgb := gocv.NewMat()
		defer rgb.Close()
		gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB)
		return rgb.ToBytes(), 3, nil
	case 4:
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(mat, &bgr, gocv.ColorBGRAToBGR)
		rgb := gocv.NewMat()
		defer rgb.Close()
		gocv.CvtColor(bgr, &rgb, gocv.ColorBGRToRGB)
		return rgb.ToBytes(), 3, nil
	default:
		return nil, 0, fmt.Errorf("unsupported channel count %d", mat.Channels())
	}
}

func determineFormat(extension, stdlibFormat string) string {
	switch extension {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".ppm":
		return "ppm"
	case ".bmp":
		return "bmp"
	default:
		if stdlibFormat != "" {
			return stdlibFormat
		}
		return "unknown"
	}
}
