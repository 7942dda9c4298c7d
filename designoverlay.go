// Package designoverlay places print designs on product images the way a
// storefront displays them.
//
// Catalog and vendor APIs deliver print-safe zones (delimitations) and design
// placements in a mix of unit systems. This package normalizes them, computes
// where the product image lands inside a display container under
// object-fit: contain, and projects the design onto that box so the overlay
// stays glued to the product at any container size.
//
// Basic usage:
//
//	package main
//
//	import (
//		"fmt"
//
//		designoverlay "github.com/menta2k/design-overlay"
//		"github.com/menta2k/design-overlay/pkg/types"
//	)
//
//	func main() {
//		overlay := designoverlay.New()
//
//		// Product photo is 2000x3000, shown in an 800x800 card
//		placement := overlay.Place([]types.RawDesignPosition{{Scale: 0.6}}, 2000, 3000, 800, 800)
//
//		fmt.Println(placement.CSS)
//	}
//
// The package consists of these components:
//
//  1. Normalize (pkg/normalize): canonical delimitations and design positions
//  2. Projector (pkg/projector): contain-fit metrics and the screen transform
//  3. Compositor (pkg/compositor): server side mockup rendering
//  4. Analyzer (pkg/analyzer): natural size probing and validation
//  5. Detection (pkg/detection): vision model print zone detection
package designoverlay

import (
	"context"
	"fmt"
	"image/color"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/menta2k/design-overlay/internal/logger"
	"github.com/menta2k/design-overlay/internal/utils"
	"github.com/menta2k/design-overlay/pkg/analyzer"
	"github.com/menta2k/design-overlay/pkg/compositor"
	"github.com/menta2k/design-overlay/pkg/normalize"
	"github.com/menta2k/design-overlay/pkg/projector"
	"github.com/menta2k/design-overlay/pkg/types"
)

// Version of the design overlay library
const Version = "1.0.0"

// Options configures rendering
type Options struct {
	ContainerWidth  int
	ContainerHeight int
	// Background fills the letterbox area; nil leaves it transparent
	Background color.Color
	// Format is used when the output path has no extension
	Format   string
	Quality  int
	Lossless bool
	Debug    bool
	Defaults normalize.Defaults
}

// DefaultOptions returns the options used by New
func DefaultOptions() Options {
	return Options{
		ContainerWidth:  800,
		ContainerHeight: 800,
		Format:          "png",
		Quality:         90,
		Defaults:        normalize.VendorDefaults,
	}
}

// Overlay ties normalization, projection and compositing together
type Overlay struct {
	analyzer  *analyzer.ImageAnalyzer
	processor *compositor.Processor
	opts      Options
	log       *zap.SugaredLogger
}

// New creates an Overlay with default options and no logging
func New() *Overlay {
	return NewWithConfig(DefaultOptions(), nil)
}

// NewWithConfig creates an Overlay with custom options. A nil logger discards output.
func NewWithConfig(opts Options, log *zap.SugaredLogger) *Overlay {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Defaults == (normalize.Defaults{}) {
		opts.Defaults = normalize.VendorDefaults
	}
	return &Overlay{
		analyzer:  analyzer.New(),
		processor: compositor.NewProcessor(),
		opts:      opts,
		log:       log,
	}
}

// Placement is where a design is drawn for one product in one container
type Placement struct {
	Position   types.DesignPosition      `json:"position"`
	Metrics    projector.DisplayMetrics  `json:"metrics"`
	Transform  projector.ScreenTransform `json:"transform"`
	Corners    [4]projector.Point        `json:"corners"`
	CSS        string                    `json:"css"`
	GraphicCSS string                    `json:"graphicCss"`
}

// RenderRequest describes one mockup to render
type RenderRequest struct {
	// Product and Design are file paths or http(s) URLs
	Product       string
	Design        string
	Position      types.RawDesignPosition
	Delimitations []types.RawDelimitation
	Output        string
}

// Position normalizes the active position from a list using the configured defaults
func (o *Overlay) Position(raw []types.RawDesignPosition) types.DesignPosition {
	return normalize.ActivePositionWithDefaults(raw, o.opts.Defaults)
}

// Delimitations normalizes delimitations against the product's natural size
func (o *Overlay) Delimitations(raw []types.RawDelimitation, naturalWidth, naturalHeight float64) []types.Delimitation {
	return normalize.Delimitations(raw, naturalWidth, naturalHeight)
}

// Place computes the on-screen placement of the active design position for a
// product of the given natural size shown in the given container.
func (o *Overlay) Place(raw []types.RawDesignPosition, naturalWidth, naturalHeight, containerWidth, containerHeight float64) Placement {
	pos := o.Position(raw)
	m := projector.ComputeDisplayMetrics(naturalWidth, naturalHeight, containerWidth, containerHeight)
	st := projector.ProjectDesignToScreen(pos, m).Centered(containerWidth, containerHeight)
	if st.Fallback {
		o.log.Debugw("placement falls back to default footprint",
			"natural", fmt.Sprintf("%gx%g", naturalWidth, naturalHeight),
			"container", fmt.Sprintf("%gx%g", containerWidth, containerHeight))
	}
	return Placement{
		Position:   pos,
		Metrics:    m,
		Transform:  st,
		Corners:    st.Corners(),
		CSS:        st.CSS(),
		GraphicCSS: st.GraphicCSS(),
	}
}

// RenderFiles renders a mockup of design on product and writes it to outPath
func (o *Overlay) RenderFiles(ctx context.Context, productPath, designPath string, raw types.RawDesignPosition, outPath string) (*Placement, error) {
	return o.Render(ctx, RenderRequest{
		Product:  productPath,
		Design:   designPath,
		Position: raw,
		Output:   outPath,
	})
}

// Render loads the images of a request, composites them and saves the result
func (o *Overlay) Render(ctx context.Context, req RenderRequest) (*Placement, error) {
	if req.Output == "" {
		return nil, fmt.Errorf("output path is required")
	}

	product, err := o.processor.LoadImageSmart(ctx, req.Product)
	if err != nil {
		return nil, fmt.Errorf("failed to load product image: %w", err)
	}
	if err := o.analyzer.ValidateImage(product); err != nil {
		return nil, fmt.Errorf("product image validation failed: %w", err)
	}

	design, err := o.processor.LoadImageSmart(ctx, req.Design)
	if err != nil {
		return nil, fmt.Errorf("failed to load design image: %w", err)
	}

	info := o.analyzer.GetImageInfo(product)
	nw, nh := float64(info.Width), float64(info.Height)
	pos := normalize.DesignPositionWithDefaults(req.Position, o.opts.Defaults)

	result, err := o.processor.Render(product, design, pos, compositor.RenderOptions{
		ContainerWidth:  o.opts.ContainerWidth,
		ContainerHeight: o.opts.ContainerHeight,
		Background:      o.opts.Background,
		Delimitations:   normalize.Delimitations(req.Delimitations, nw, nh),
		DebugOverlay:    o.opts.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}

	format := utils.GetFileExtension(req.Output)
	if format == "" {
		format = o.opts.Format
	}
	if err := utils.EnsureDir(filepath.Dir(req.Output)); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := o.processor.SaveImage(result.Image, req.Output, format, o.opts.Quality, o.opts.Lossless); err != nil {
		return nil, fmt.Errorf("failed to save mockup: %w", err)
	}

	o.log.Infow("rendered mockup",
		"product", req.Product,
		"design", req.Design,
		"output", req.Output,
		"natural", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"fallback", result.Transform.Fallback)

	st := result.Transform
	return &Placement{
		Position:   pos,
		Metrics:    result.Metrics,
		Transform:  st,
		Corners:    st.Corners(),
		CSS:        st.CSS(),
		GraphicCSS: st.GraphicCSS(),
	}, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
