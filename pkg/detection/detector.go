package detection

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/menta2k/design-overlay/pkg/client"
	"github.com/menta2k/design-overlay/pkg/normalize"
	"github.com/menta2k/design-overlay/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt is the default prompt for print zone detection
const DefaultPrompt = `You are a print area locator for apparel and merchandise mockups.

Return JSON only:
{
  "zone": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}
  },
  "description": "short neutral sentence (≤ 20 words)",
  "tags": ["tag1", "tag2", "tag3"]
}

HARD RULES
- All coordinates are normalized to [0,1] of the full image (NOT pixels). x,y is the top-left corner.
- The box is the largest flat area of the product a design can be printed on (chest of a t-shirt, front of a mug, face of a tote bag).
- Exclude seams, collars, sleeves, handles, folds and the background.
- label names the product side, e.g. "front", "back", "left sleeve".
- Tags: lowercase product kind and colour, concise, no duplicates.
- If no product is visible, return:
  {
    "zone":{"label":"none","confidence":0.0,"box":{"x":0.25,"y":0.25,"w":0.50,"h":0.50}},
    "description":"no printable product",
    "tags":["none"]
  }
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// NoZone labels a result where no printable area was found
const NoZone = "none"

// Detector locates printable areas on product images using vision models
type Detector struct {
	client client.VisionClient
}

// NewDetector creates a new detector with a vision client
func NewDetector(client client.VisionClient) *Detector {
	return &Detector{client: client}
}

// DetectPrintZone locates the printable area of a product image
func (d *Detector) DetectPrintZone(ctx context.Context, model, imageB64 string) (*types.PrintZoneResult, error) {
	result, err := d.DetectPrintZoneWithPrompt(ctx, model, imageB64, DefaultPrompt)
	if err != nil {
		return nil, err
	}
	return validateAndAdjustResult(result), nil
}

// DetectPrintZoneWithPrompt locates the printable area with a custom prompt
func (d *Detector) DetectPrintZoneWithPrompt(ctx context.Context, model, imageB64, prompt string) (*types.PrintZoneResult, error) {
	result, err := d.client.LocatePrintZone(ctx, model, prompt, imageB64)
	if err != nil {
		return nil, fmt.Errorf("print zone detection failed: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("print zone detection failed: empty result")
	}

	result.Zone.Box = normalizeBox(result.Zone.Box)
	result.Zone.Confidence = clamp(result.Zone.Confidence, 0, 1)
	result.Tags = normalizeTags(result.Tags)

	return result, nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *Detector) TestVision(ctx context.Context, model, imageB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, model, SimpleTestPrompt, imageB64)
}

// ToDelimitation converts a detected zone into a canonical percentage delimitation
func ToDelimitation(result *types.PrintZoneResult) types.Delimitation {
	box := normalizeBox(result.Zone.Box)
	raw := types.RawDelimitation{
		Name:           result.Zone.Label,
		X:              box.X * 100,
		Y:              box.Y * 100,
		Width:          box.W * 100,
		Height:         box.H * 100,
		CoordinateType: types.CoordinatePercentage,
	}
	// Percentages ignore the image size
	return normalize.Delimitation(raw, 100, 100)
}

// Found reports whether the result names a real print zone: not "none", not a
// parser fallback and not an empty box.
func Found(result *types.PrintZoneResult) bool {
	return result != nil &&
		!strings.EqualFold(result.Zone.Label, NoZone) &&
		!isFallback(result) &&
		result.Zone.Box.W > 0 && result.Zone.Box.H > 0
}

var fallbackIndicators = []string{"unclear", "parse", "error", "fallback", "non-json"}

// isFallback reports whether the label or description marks a parser fallback
func isFallback(result *types.PrintZoneResult) bool {
	label := strings.ToLower(result.Zone.Label)
	description := strings.ToLower(result.Description)
	for _, indicator := range fallbackIndicators {
		if strings.Contains(label, indicator) || strings.Contains(description, indicator) {
			return true
		}
	}
	return false
}

// validateAndAdjustResult marks parser fallbacks as "none"
func validateAndAdjustResult(result *types.PrintZoneResult) *types.PrintZoneResult {
	if strings.EqualFold(result.Zone.Label, NoZone) {
		result.Zone.Label = NoZone
		return result
	}

	if !Found(result) {
		result.Zone.Label = NoZone
		result.Zone.Confidence = 0
	}
	return result
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeBox keeps the box inside the unit square
func normalizeBox(b types.Box) types.Box {
	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.W, 0, 1-x),
		H: clamp(b.H, 0, 1-y),
	}
}

// normalizeTags ensures tags are cleaned and limited to 5 entries
func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 5)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == 5 {
			break
		}
	}
	return out
}
