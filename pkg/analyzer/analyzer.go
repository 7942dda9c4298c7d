// Package analyzer inspects product and design images before they are placed.
// Placement math needs the natural pixel size of the product image, which is
// read from the image header without decoding pixels.
package analyzer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/webp"
)

// ImageAnalyzer probes image sizes and checks them against configured limits
type ImageAnalyzer struct {
	config Config
}

// Config holds configuration for the image analyzer
type Config struct {
	SupportedFormats []string
	MinImageSize     int
}

// DefaultConfig returns the formats accepted for product and design images
func DefaultConfig() Config {
	return Config{
		SupportedFormats: []string{"jpg", "jpeg", "png", "webp", "gif"},
		MinImageSize:     16,
	}
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{config: DefaultConfig()}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	return &ImageAnalyzer{config: config}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Format      string  `json:"format,omitempty"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspectRatio"`
	Area        int     `json:"area"`
}

// ProbeSize reads the natural size of an encoded image from its header
func (a *ImageAnalyzer) ProbeSize(r io.Reader) (ImageInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to read image: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// Extended WebP variants the x/image decoder rejects
		w, h, _, werr := webp.GetInfo(data)
		if werr != nil {
			return ImageInfo{}, fmt.Errorf("failed to decode image header: %w", err)
		}
		cfg, format = image.Config{Width: w, Height: h}, "webp"
	}

	if !a.isFormatSupported(format) {
		return ImageInfo{}, fmt.Errorf("unsupported image format: %s", format)
	}

	info := newInfo(cfg.Width, cfg.Height)
	info.Format = format
	return info, nil
}

// ProbeFile reads the natural size of an image file
func (a *ImageAnalyzer) ProbeFile(path string) (ImageInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	info, err := a.ProbeSize(file)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

// GetImageInfo returns basic information about a decoded image
func (a *ImageAnalyzer) GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	return newInfo(bounds.Dx(), bounds.Dy())
}

// ValidateImage checks if an image meets minimum requirements
func (a *ImageAnalyzer) ValidateImage(img image.Image) error {
	return a.ValidateInfo(a.GetImageInfo(img))
}

// ValidateInfo checks probed dimensions against the minimum size
func (a *ImageAnalyzer) ValidateInfo(info ImageInfo) error {
	if info.Width < a.config.MinImageSize || info.Height < a.config.MinImageSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)",
			info.Width, info.Height, a.config.MinImageSize)
	}
	return nil
}

func newInfo(width, height int) ImageInfo {
	info := ImageInfo{Width: width, Height: height, Area: width * height}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}
