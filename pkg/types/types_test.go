package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinateType(t *testing.T) {
	tests := []struct {
		in   string
		want CoordinateType
	}{
		{"PERCENTAGE", CoordinatePercentage},
		{" percent ", CoordinatePercentage},
		{"%", CoordinatePercentage},
		{"PIXEL", CoordinatePixel},
		{"px", CoordinatePixel},
		{"", ""},
		{"inches", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCoordinateType(tt.in), "input %q", tt.in)
	}
}

func TestToFloat(t *testing.T) {
	assert.Equal(t, 12.5, ToFloat(12.5))
	assert.Equal(t, 7.0, ToFloat(7))
	assert.Equal(t, 40.0, ToFloat("40"))
	assert.Equal(t, 0.0, ToFloat("forty"))
	assert.Equal(t, 0.0, ToFloat(nil))
	assert.Equal(t, 0.0, ToFloat(math.NaN()))
	assert.Equal(t, 0.0, ToFloat(math.Inf(-1)))
}

func TestDelimitationFromMap(t *testing.T) {
	d := DelimitationFromMap(map[string]any{
		"label":           "chest",
		"left":            "10",
		"top":             20.0,
		"w":               30,
		"h":               40.5,
		"coordinate_type": "pixel",
	})
	assert.Equal(t, RawDelimitation{
		Name:           "chest",
		X:              10,
		Y:              20,
		Width:          30,
		Height:         40.5,
		CoordinateType: CoordinatePixel,
	}, d)

	// canonical keys win over aliases
	d = DelimitationFromMap(map[string]any{"x": 5, "left": 99})
	assert.Equal(t, 5.0, d.X)
	assert.Equal(t, CoordinateType(""), d.CoordinateType)
}

func TestDesignPositionFromMapNested(t *testing.T) {
	p := DesignPositionFromMap(map[string]any{
		"design_id": "d-42",
		"position": map[string]any{
			"x":     -120,
			"y":     "35",
			"scale": 0.6,
			"angle": 15,
			"width": 900,
		},
	})
	assert.Equal(t, RawDesignPosition{
		DesignID:    "d-42",
		X:           -120,
		Y:           35,
		Scale:       0.6,
		Rotation:    15,
		DesignWidth: 900,
	}, p)
}

func TestUnmarshalJSON(t *testing.T) {
	var ds []RawDelimitation
	require.NoError(t, json.Unmarshal([]byte(`[
		{"name":"front","x":25,"y":"30","width":50,"height":40,"coordinateType":"PERCENTAGE"},
		{"x":"bad","y":null,"width":600,"height":800}
	]`), &ds))
	require.Len(t, ds, 2)
	assert.Equal(t, CoordinatePercentage, ds[0].CoordinateType)
	assert.Equal(t, 30.0, ds[0].Y)
	assert.Equal(t, 0.0, ds[1].X)
	assert.Equal(t, 0.0, ds[1].Y)
	assert.Equal(t, 600.0, ds[1].Width)

	var p RawDesignPosition
	require.NoError(t, json.Unmarshal([]byte(`{"designId":"abc","x":10,"scale":0,"designHeight":300}`), &p))
	assert.Equal(t, RawDesignPosition{DesignID: "abc", X: 10, DesignHeight: 300}, p)

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &p))
}

func TestDelimitationRaw(t *testing.T) {
	d := Delimitation{Name: "back", X: 1, Y: 2, Width: 3, Height: 4, CoordinateType: CoordinatePercentage}
	assert.Equal(t, RawDelimitation{Name: "back", X: 1, Y: 2, Width: 3, Height: 4, CoordinateType: CoordinatePercentage}, d.Raw())
}

func TestUnmarshalOutOfRangeNumbers(t *testing.T) {
	var d RawDelimitation
	require.NoError(t, json.Unmarshal([]byte(`{"x":1e400,"y":10,"width":50,"height":40}`), &d))
	assert.Equal(t, 0.0, d.X)
	assert.Equal(t, 10.0, d.Y)
	assert.Equal(t, 50.0, d.Width)
	assert.Equal(t, 40.0, d.Height)

	var p RawDesignPosition
	require.NoError(t, json.Unmarshal([]byte(`{"designId":7,"position":{"x":-1e999,"y":25,"scale":0.5}}`), &p))
	assert.Equal(t, RawDesignPosition{DesignID: "7", Y: 25, Scale: 0.5}, p)

	var ds []RawDelimitation
	require.NoError(t, json.Unmarshal([]byte(`[{"x":1e400,"width":30},{"x":12,"y":8}]`), &ds))
	require.Len(t, ds, 2)
	assert.Equal(t, 30.0, ds[0].Width)
	assert.Equal(t, 12.0, ds[1].X)
}

func TestNumber(t *testing.T) {
	var v struct {
		A, B, C, D, E, F Number
	}
	require.NoError(t, json.Unmarshal([]byte(`{"A":0.75,"B":"12","C":true,"D":null,"E":"abc","F":1e400}`), &v))
	assert.Equal(t, 0.75, v.A.Float64())
	assert.Equal(t, 12.0, v.B.Float64())
	assert.Equal(t, 1.0, v.C.Float64())
	assert.Equal(t, 0.0, v.D.Float64())
	assert.Equal(t, 0.0, v.E.Float64())
	assert.Equal(t, 0.0, v.F.Float64())

	var n Number
	require.NoError(t, json.Unmarshal([]byte(`{"nested":1}`), &n))
	assert.Equal(t, Number(0), n)
}
