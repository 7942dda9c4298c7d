// Package compositor renders product mockups with a design overlaid, using
// the same contain-fit and projection math a storefront applies on screen.
package compositor

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/design-overlay/pkg/projector"
	"github.com/menta2k/design-overlay/pkg/types"
)

// Processor loads, renders and saves mockup images
type Processor struct {
	httpClient *http.Client
}

// NewProcessor creates a new mockup processor
func NewProcessor() *Processor {
	return &Processor{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// RenderOptions controls how a mockup is rendered
type RenderOptions struct {
	ContainerWidth  int
	ContainerHeight int
	// Background fills the letterbox area; nil leaves it transparent
	Background    color.Color
	Delimitations []types.Delimitation
	DebugOverlay  bool
}

// RenderResult is a rendered mockup with the geometry used to produce it
type RenderResult struct {
	Image     *image.NRGBA
	Metrics   projector.DisplayMetrics
	Transform projector.ScreenTransform
}

// LoadImageFromURL downloads and decodes an image
func (p *Processor) LoadImageFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "design-overlay/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return p.DecodeBytes(data)
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	img, err := p.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(ctx context.Context, source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(ctx, source)
	}
	return p.LoadImage(source)
}

// DecodeBytes decodes an image, falling back to the native WebP decoder
func (p *Processor) DecodeBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// EncodeForModel converts an image to base64 for sending to a vision model.
// The long side is capped at maxDim when maxDim is positive.
func (p *Processor) EncodeForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		if b.Dx() > maxDim || b.Dy() > maxDim {
			if b.Dx() >= b.Dy() {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Lossless: lossless, Quality: float32(quality)})
	case "png":
		return imaging.Save(img, path)
	case "jpg", "jpeg", "":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// Render draws the product contain-fit into the container and overlays the
// design where ProjectDesignToScreen places it.
func (p *Processor) Render(product, design image.Image, pos types.DesignPosition, opts RenderOptions) (*RenderResult, error) {
	if product == nil {
		return nil, fmt.Errorf("product image is nil")
	}
	if design == nil {
		return nil, fmt.Errorf("design image is nil")
	}
	if opts.ContainerWidth <= 0 || opts.ContainerHeight <= 0 {
		return nil, fmt.Errorf("invalid container size %dx%d", opts.ContainerWidth, opts.ContainerHeight)
	}

	cw, ch := float64(opts.ContainerWidth), float64(opts.ContainerHeight)
	pb := product.Bounds()
	metrics := projector.ComputeDisplayMetrics(float64(pb.Dx()), float64(pb.Dy()), cw, ch)

	bg := opts.Background
	if bg == nil {
		bg = color.Transparent
	}
	canvas := imaging.New(opts.ContainerWidth, opts.ContainerHeight, bg)

	if metrics.Measured() {
		fitted := imaging.Resize(product,
			atLeastOne(metrics.DisplayWidth), atLeastOne(metrics.DisplayHeight), imaging.Lanczos)
		at := image.Pt(int(math.Round(metrics.OffsetX)), int(math.Round(metrics.OffsetY)))
		canvas = imaging.Overlay(canvas, fitted, at, 1.0)
	}

	st := projector.ProjectDesignToScreen(pos, metrics).Centered(cw, ch)
	overlayDesign(canvas, design, st)

	if opts.DebugOverlay {
		p.DrawDelimitations(canvas, opts.Delimitations, metrics)
		c := st.Center()
		drawCrosshair(canvas, int(math.Round(c.X)), int(math.Round(c.Y)), crossSize(canvas), red)
	}

	return &RenderResult{Image: canvas, Metrics: metrics, Transform: st}, nil
}

// DrawDelimitations outlines each print-safe zone on a rendered mockup
func (p *Processor) DrawDelimitations(img *image.NRGBA, ds []types.Delimitation, m projector.DisplayMetrics) {
	stroke := int(math.Max(1, 0.004*float64(min(img.Bounds().Dx(), img.Bounds().Dy()))))
	for _, d := range ds {
		r := projector.ProjectDelimitation(d, m)
		if r.Width <= 0 || r.Height <= 0 {
			continue
		}
		x0, y0 := int(math.Round(r.X)), int(math.Round(r.Y))
		x1, y1 := int(math.Round(r.X+r.Width)), int(math.Round(r.Y+r.Height))
		drawRect(img, x0, y0, x1, y1, gold, stroke)
	}
	if m.Measured() {
		ax := int(math.Round(m.OffsetX + m.DisplayWidth/2))
		ay := int(math.Round(m.OffsetY + m.DisplayHeight/2))
		drawCrosshair(img, ax, ay, 6, blue)
	}
}

// overlayDesign fits the design into its footprint, scales it inside the
// footprint and draws the footprint rotated about its centre.
func overlayDesign(canvas *image.NRGBA, design image.Image, st projector.ScreenTransform) {
	db := design.Bounds()
	if db.Dx() == 0 || db.Dy() == 0 || st.Width <= 0 || st.Height <= 0 || st.Scale <= 0 {
		return
	}

	lw, lh := atLeastOne(st.Width), atLeastOne(st.Height)
	fit := math.Min(st.Width/float64(db.Dx()), st.Height/float64(db.Dy())) * st.Scale
	graphic := imaging.Resize(design,
		atLeastOne(float64(db.Dx())*fit), atLeastOne(float64(db.Dy())*fit), imaging.Lanczos)

	// The footprint clips the scaled graphic
	layer := imaging.PasteCenter(imaging.New(lw, lh, color.Transparent), graphic)

	placed := st
	placed.Width, placed.Height = float64(lw), float64(lh)
	draw.BiLinear.Transform(canvas, placed.Matrix(), layer, layer.Bounds(), draw.Over, nil)
}

var (
	gold = color.NRGBA{255, 204, 0, 255}
	red  = color.NRGBA{255, 0, 0, 255}
	blue = color.NRGBA{0, 170, 255, 255}
)

func crossSize(img *image.NRGBA) int {
	return int(math.Max(4, 0.01*float64(min(img.Bounds().Dx(), img.Bounds().Dy()))))
}

func atLeastOne(v float64) int {
	n := int(math.Ceil(v))
	if n < 1 {
		return 1
	}
	return n
}

func drawRect(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA, stroke int) {
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawCrosshair(img *image.NRGBA, x, y, size int, c color.NRGBA) {
	drawHLine(img, y, x-size, x+size, c)
	drawVLine(img, x, y-size, y+size, c)
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0, x1 = max(x0, b.Min.X), min(x1, b.Max.X)
	for x := x0; x < x1; x++ {
		img.SetNRGBA(x, y, c)
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0, y1 = max(y0, b.Min.Y), min(y1, b.Max.Y)
	for y := y0; y < y1; y++ {
		img.SetNRGBA(x, y, c)
	}
}
