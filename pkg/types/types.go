package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// CoordinateType tags the unit system a delimitation was expressed in
type CoordinateType string

const (
	CoordinatePercentage CoordinateType = "PERCENTAGE"
	CoordinatePixel      CoordinateType = "PIXEL"
)

// ParseCoordinateType maps the spellings seen on the wire to a CoordinateType.
// Unknown values return "" so the caller falls back to unit inference.
func ParseCoordinateType(s string) CoordinateType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "percentage", "percent", "pct", "%":
		return CoordinatePercentage
	case "pixel", "pixels", "px":
		return CoordinatePixel
	default:
		return ""
	}
}

// RawDelimitation is a print-safe zone as received from the catalog API.
// Values may be percentages or absolute pixels; CoordinateType may be empty.
type RawDelimitation struct {
	Name           string
	X              float64
	Y              float64
	Width          float64
	Height         float64
	CoordinateType CoordinateType
}

// Delimitation is a print-safe zone in canonical percentage units
type Delimitation struct {
	Name           string         `json:"name,omitempty"`
	X              float64        `json:"x"`
	Y              float64        `json:"y"`
	Width          float64        `json:"width"`
	Height         float64        `json:"height"`
	CoordinateType CoordinateType `json:"coordinateType"`
}

// Raw converts a normalized delimitation back to its wire form
func (d Delimitation) Raw() RawDelimitation {
	return RawDelimitation{
		Name:           d.Name,
		X:              d.X,
		Y:              d.Y,
		Width:          d.Width,
		Height:         d.Height,
		CoordinateType: d.CoordinateType,
	}
}

// RawDesignPosition is a design placement as received from the vendor API.
// Zero means "unset" for every numeric field.
type RawDesignPosition struct {
	DesignID     string
	X            float64
	Y            float64
	Scale        float64
	Rotation     float64
	DesignWidth  float64
	DesignHeight float64
}

// Constraints bounds the scale a design may be rendered at
type Constraints struct {
	MinScale float64 `json:"minScale"`
	MaxScale float64 `json:"maxScale"`
}

// DesignPosition places a design relative to the centre of a product image,
// in that image's natural pixel space.
type DesignPosition struct {
	DesignID     string      `json:"designId,omitempty"`
	X            float64     `json:"x"`
	Y            float64     `json:"y"`
	Scale        float64     `json:"scale"`
	Rotation     float64     `json:"rotation"`
	DesignWidth  float64     `json:"designWidth"`
	DesignHeight float64     `json:"designHeight"`
	Constraints  Constraints `json:"constraints"`
}

// PrintZone is the printable area a vision model located on a mockup
type PrintZone struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// PrintZoneResult contains the complete print zone answer from the vision model
type PrintZoneResult struct {
	Zone        PrintZone `json:"zone"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
}

// Number is a lenient JSON number. Numbers, numeric strings, booleans and null
// decode to their value; anything else, including out of range literals,
// decodes to 0 without an error.
type Number float64

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(data []byte) error {
	v, err := decodeLenient(data)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(ToFloat(v))
	return nil
}

// Float64 returns the number as a float64
func (n Number) Float64() float64 {
	return float64(n)
}

// ToFloat coerces v to a finite float64. Anything that cannot be coerced,
// including NaN and ±Inf, becomes 0.
func ToFloat(v any) float64 {
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// DelimitationFromMap reads a delimitation from a loosely typed record.
// Both the camelCase and snake_case API shapes are accepted.
func DelimitationFromMap(m map[string]any) RawDelimitation {
	return RawDelimitation{
		Name:           cast.ToString(pick(m, "name", "label")),
		X:              ToFloat(pick(m, "x", "left")),
		Y:              ToFloat(pick(m, "y", "top")),
		Width:          ToFloat(pick(m, "width", "w")),
		Height:         ToFloat(pick(m, "height", "h")),
		CoordinateType: ParseCoordinateType(cast.ToString(pick(m, "coordinateType", "coordinate_type", "unit"))),
	}
}

// DesignPositionFromMap reads a design position from a loosely typed record.
// The placement may be flat or nested under a "position" key.
func DesignPositionFromMap(m map[string]any) RawDesignPosition {
	src := m
	if nested, ok := m["position"].(map[string]any); ok {
		src = nested
	}
	id := pick(m, "designId", "design_id")
	if id == nil {
		id = pick(src, "designId", "design_id")
	}
	return RawDesignPosition{
		DesignID:     cast.ToString(id),
		X:            ToFloat(pick(src, "x")),
		Y:            ToFloat(pick(src, "y")),
		Scale:        ToFloat(pick(src, "scale")),
		Rotation:     ToFloat(pick(src, "rotation", "angle")),
		DesignWidth:  ToFloat(pick(src, "designWidth", "design_width", "width")),
		DesignHeight: ToFloat(pick(src, "designHeight", "design_height", "height")),
	}
}

// UnmarshalJSON decodes either wire shape. Malformed numeric fields become 0.
func (d *RawDelimitation) UnmarshalJSON(data []byte) error {
	m, err := decodeObject(data)
	if err != nil {
		return err
	}
	*d = DelimitationFromMap(m)
	return nil
}

// UnmarshalJSON decodes either wire shape. Malformed numeric fields become 0.
func (p *RawDesignPosition) UnmarshalJSON(data []byte) error {
	m, err := decodeObject(data)
	if err != nil {
		return err
	}
	*p = DesignPositionFromMap(m)
	return nil
}

// decodeLenient keeps numbers as json.Number so literals outside the float64
// range reach ToFloat instead of failing the whole document.
func decodeLenient(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeObject(data []byte) (map[string]any, error) {
	v, err := decodeLenient(data)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", bytes.TrimSpace(data))
	}
	return m, nil
}

func pick(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
