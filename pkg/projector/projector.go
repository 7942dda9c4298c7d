// Package projector maps a design position defined in a product image's
// natural pixel space onto the box that image actually occupies on screen
// under object-fit: contain.
//
// Every function is a pure function of its arguments. Degenerate layouts
// (zero or non-finite sizes) resolve to a neutral fallback instead of NaN.
package projector

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/math/f64"

	"github.com/menta2k/design-overlay/pkg/types"
)

// FallbackSize is the footprint used before the image has been measured
const FallbackSize = 200.0

// DisplayMetrics maps an image's natural size to its contain-fit box inside a container
type DisplayMetrics struct {
	OriginalWidth  float64 `json:"originalWidth"`
	OriginalHeight float64 `json:"originalHeight"`
	DisplayWidth   float64 `json:"displayWidth"`
	DisplayHeight  float64 `json:"displayHeight"`
	OffsetX        float64 `json:"offsetX"`
	OffsetY        float64 `json:"offsetY"`
}

// Measured reports whether the metrics describe a laid out image
func (m DisplayMetrics) Measured() bool {
	return positive(m.DisplayWidth) && positive(m.DisplayHeight) &&
		positive(m.OriginalWidth) && positive(m.OriginalHeight) &&
		isFinite(m.OffsetX) && isFinite(m.OffsetY)
}

// ScreenTransform is the on-screen placement of a design overlay. All lengths
// are container pixels.
type ScreenTransform struct {
	// AnchorX, AnchorY is the centre of the displayed image box
	AnchorX float64 `json:"anchorX"`
	AnchorY float64 `json:"anchorY"`
	// TranslateX, TranslateY offsets the design centre from the anchor
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
	// Width, Height is the design footprint
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
	// Scale applies to the graphic inside the footprint, not to the footprint
	Scale    float64 `json:"scale"`
	Fallback bool    `json:"fallback"`
}

// Rect is an axis aligned rectangle in container pixels
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a position in container pixels
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ComputeDisplayMetrics reproduces the object-fit: contain geometry of an
// image with the given natural size inside a container.
func ComputeDisplayMetrics(naturalWidth, naturalHeight, containerWidth, containerHeight float64) DisplayMetrics {
	m := DisplayMetrics{
		OriginalWidth:  sanitize(naturalWidth),
		OriginalHeight: sanitize(naturalHeight),
	}
	if !positive(naturalWidth) || !positive(naturalHeight) ||
		!positive(containerWidth) || !positive(containerHeight) {
		return m
	}

	containerRatio := containerWidth / containerHeight
	imageRatio := naturalWidth / naturalHeight

	if imageRatio > containerRatio {
		// Image is relatively wider, letterbox top and bottom
		m.DisplayWidth = containerWidth
		m.DisplayHeight = containerWidth / imageRatio
		m.OffsetY = (containerHeight - m.DisplayHeight) / 2
	} else {
		// Image is relatively taller or equal, pillarbox left and right
		m.DisplayHeight = containerHeight
		m.DisplayWidth = containerHeight * imageRatio
		m.OffsetX = (containerWidth - m.DisplayWidth) / 2
	}

	return m
}

// ProjectDesignToScreen computes where the design overlay is drawn for the
// given metrics. The position and metrics must describe the same image.
func ProjectDesignToScreen(pos types.DesignPosition, m DisplayMetrics) ScreenTransform {
	if !m.Measured() {
		return fallbackTransform()
	}

	sx := m.DisplayWidth / m.OriginalWidth
	sy := m.DisplayHeight / m.OriginalHeight

	t := ScreenTransform{
		AnchorX:    m.OffsetX + m.DisplayWidth/2,
		AnchorY:    m.OffsetY + m.DisplayHeight/2,
		TranslateX: sanitize(pos.X) * sx,
		TranslateY: sanitize(pos.Y) * sy,
		Width:      sanitize(pos.DesignWidth) * sx,
		Height:     sanitize(pos.DesignHeight) * sy,
		Rotation:   sanitize(pos.Rotation),
		Scale:      sanitize(pos.Scale),
	}
	if !t.finite() {
		return fallbackTransform()
	}
	return t
}

// ProjectDelimitation maps a percentage delimitation onto the displayed image box
func ProjectDelimitation(d types.Delimitation, m DisplayMetrics) Rect {
	if !m.Measured() {
		return Rect{}
	}
	return Rect{
		X:      m.OffsetX + sanitize(d.X)/100*m.DisplayWidth,
		Y:      m.OffsetY + sanitize(d.Y)/100*m.DisplayHeight,
		Width:  sanitize(d.Width) / 100 * m.DisplayWidth,
		Height: sanitize(d.Height) / 100 * m.DisplayHeight,
	}
}

// Center returns the footprint centre in container pixels
func (t ScreenTransform) Center() Point {
	return Point{X: t.AnchorX + t.TranslateX, Y: t.AnchorY + t.TranslateY}
}

// Centered anchors a fallback transform at the middle of a container. Measured
// transforms are returned unchanged.
func (t ScreenTransform) Centered(containerWidth, containerHeight float64) ScreenTransform {
	if !t.Fallback {
		return t
	}
	t.AnchorX = sanitize(containerWidth) / 2
	t.AnchorY = sanitize(containerHeight) / 2
	return t
}

// Matrix maps footprint-local pixels, origin at the footprint's top-left
// corner, to container pixels. Rotation is clockwise in screen space.
func (t ScreenTransform) Matrix() f64.Aff3 {
	rad := t.Rotation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	c := t.Center()
	hw, hh := t.Width/2, t.Height/2
	return f64.Aff3{
		cos, -sin, c.X - cos*hw + sin*hh,
		sin, cos, c.Y - sin*hw - cos*hh,
	}
}

// Corners returns the rotated footprint corners clockwise from top-left
func (t ScreenTransform) Corners() [4]Point {
	m := t.Matrix()
	apply := func(x, y float64) Point {
		return Point{X: m[0]*x + m[1]*y + m[2], Y: m[3]*x + m[4]*y + m[5]}
	}
	return [4]Point{
		apply(0, 0),
		apply(t.Width, 0),
		apply(t.Width, t.Height),
		apply(0, t.Height),
	}
}

// CSS renders the transform as declarations for an absolutely positioned
// overlay element inside the container.
func (t ScreenTransform) CSS() string {
	var b strings.Builder
	if t.Fallback {
		b.WriteString("left: 50%; top: 50%; ")
	} else {
		fmt.Fprintf(&b, "left: %spx; top: %spx; ", num(t.AnchorX), num(t.AnchorY))
	}
	fmt.Fprintf(&b, "width: %spx; height: %spx; ", num(t.Width), num(t.Height))
	fmt.Fprintf(&b, "transform: translate(-50%%, -50%%) translate(%spx, %spx) rotate(%sdeg);",
		num(t.TranslateX), num(t.TranslateY), num(t.Rotation))
	return b.String()
}

// GraphicCSS renders the scale applied to the design graphic inside the footprint
func (t ScreenTransform) GraphicCSS() string {
	return fmt.Sprintf("width: 100%%; height: 100%%; object-fit: contain; transform: scale(%s);", num(t.Scale))
}

func (t ScreenTransform) finite() bool {
	for _, v := range []float64{t.AnchorX, t.AnchorY, t.TranslateX, t.TranslateY, t.Width, t.Height, t.Rotation, t.Scale} {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

func fallbackTransform() ScreenTransform {
	return ScreenTransform{
		Width:    FallbackSize,
		Height:   FallbackSize,
		Scale:    1,
		Fallback: true,
	}
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// sanitize replaces NaN and ±Inf with 0
func sanitize(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}
