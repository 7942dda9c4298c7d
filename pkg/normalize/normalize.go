// Package normalize converts delimitation and design position records of
// mixed unit systems into canonical form.
//
// Delimitations become percentages of the image they belong to. Design
// positions stay pixel offsets from the image centre but every field is
// defaulted and clamped. Nothing in this package returns an error: malformed
// input resolves to documented fallback values.
package normalize

import (
	"math"

	"github.com/menta2k/design-overlay/pkg/types"
)

const (
	// MaxOrigin is the largest x or y a delimitation may start at, in percent.
	MaxOrigin = 95.0
	// MinExtent is the smallest width or height a delimitation may have, in percent.
	MinExtent = 5.0
	// PixelThreshold is the value above which an untagged coordinate is read as pixels.
	PixelThreshold = 100.0

	DefaultScale    = 0.8
	DefaultMinScale = 0.1
	DefaultMaxScale = 2.0

	// VendorDesignSize is the natural size assumed for vendor-uploaded designs.
	VendorDesignSize = 1200.0
	// CuratedDesignSize is the natural size assumed for admin-curated designs
	// placed against a delimitation.
	CuratedDesignSize = 200.0
)

// Defaults holds the context-specific fallbacks used by DesignPositionWithDefaults
type Defaults struct {
	Scale        float64
	DesignWidth  float64
	DesignHeight float64
}

var (
	// VendorDefaults apply to positions created by vendors placing their own uploads
	VendorDefaults = Defaults{Scale: DefaultScale, DesignWidth: VendorDesignSize, DesignHeight: VendorDesignSize}
	// CuratedDefaults apply to designs positioned from a delimitation in the admin console
	CuratedDefaults = Defaults{Scale: DefaultScale, DesignWidth: CuratedDesignSize, DesignHeight: CuratedDesignSize}
)

// Delimitations normalizes every record against the natural size of the image
// they apply to. Order and cardinality are preserved.
func Delimitations(ds []types.RawDelimitation, imageWidth, imageHeight float64) []types.Delimitation {
	out := make([]types.Delimitation, 0, len(ds))
	for _, d := range ds {
		out = append(out, Delimitation(d, imageWidth, imageHeight))
	}
	return out
}

// Delimitation normalizes a single record to clamped percentages.
//
// An explicit CoordinateType wins. Untagged records are read as pixels when
// any field exceeds 100.
func Delimitation(d types.RawDelimitation, imageWidth, imageHeight float64) types.Delimitation {
	x, y := finite(d.X), finite(d.Y)
	w, h := finite(d.Width), finite(d.Height)

	if isPixel(d.CoordinateType, x, y, w, h) {
		x = toPercent(x, imageWidth)
		y = toPercent(y, imageHeight)
		w = toPercent(w, imageWidth)
		h = toPercent(h, imageHeight)
	}

	x = clamp(x, 0, MaxOrigin)
	y = clamp(y, 0, MaxOrigin)
	w = math.Max(MinExtent, math.Min(w, 100-x))
	h = math.Max(MinExtent, math.Min(h, 100-y))

	return types.Delimitation{
		Name:           d.Name,
		X:              x,
		Y:              y,
		Width:          w,
		Height:         h,
		CoordinateType: types.CoordinatePercentage,
	}
}

// DesignPosition normalizes a vendor design position
func DesignPosition(p types.RawDesignPosition) types.DesignPosition {
	return DesignPositionWithDefaults(p, VendorDefaults)
}

// DesignPositionWithDefaults normalizes a design position using the given
// fallbacks for unset fields. X and Y are trusted as-is when finite; positions
// are never recentred.
func DesignPositionWithDefaults(p types.RawDesignPosition, def Defaults) types.DesignPosition {
	scale := orDefault(p.Scale, def.Scale)
	return types.DesignPosition{
		DesignID:     p.DesignID,
		X:            finite(p.X),
		Y:            finite(p.Y),
		Scale:        clamp(scale, DefaultMinScale, DefaultMaxScale),
		Rotation:     finite(p.Rotation),
		DesignWidth:  orDefault(p.DesignWidth, def.DesignWidth),
		DesignHeight: orDefault(p.DesignHeight, def.DesignHeight),
		Constraints: types.Constraints{
			MinScale: DefaultMinScale,
			MaxScale: DefaultMaxScale,
		},
	}
}

// ActivePosition returns the first position normalized, which is the placement
// rendered for a product. An empty list yields the all-defaults position.
func ActivePosition(ps []types.RawDesignPosition) types.DesignPosition {
	return ActivePositionWithDefaults(ps, VendorDefaults)
}

// ActivePositionWithDefaults is ActivePosition with custom fallbacks
func ActivePositionWithDefaults(ps []types.RawDesignPosition, def Defaults) types.DesignPosition {
	if len(ps) == 0 {
		return DesignPositionWithDefaults(types.RawDesignPosition{}, def)
	}
	return DesignPositionWithDefaults(ps[0], def)
}

func isPixel(ct types.CoordinateType, vals ...float64) bool {
	switch ct {
	case types.CoordinatePixel:
		return true
	case types.CoordinatePercentage:
		return false
	}
	for _, v := range vals {
		if v > PixelThreshold {
			return true
		}
	}
	return false
}

func toPercent(v, dim float64) float64 {
	if dim <= 0 || math.IsNaN(dim) || math.IsInf(dim, 0) {
		return 0
	}
	return v / dim * 100
}

// finite replaces NaN and ±Inf with 0
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// orDefault treats 0 and non-finite values as unset
func orDefault(v, def float64) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
