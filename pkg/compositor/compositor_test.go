package compositor

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/design-overlay/pkg/normalize"
	"github.com/menta2k/design-overlay/pkg/types"
)

var (
	garmentGray = color.NRGBA{128, 128, 128, 255}
	designRed   = color.NRGBA{255, 0, 0, 255}
)

// createSolidImage creates an opaque single color image
func createSolidImage(width, height int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestRenderPlacesDesignAtProjectedCenter(t *testing.T) {
	p := NewProcessor()
	product := createSolidImage(200, 300, garmentGray)
	design := createSolidImage(100, 100, designRed)
	pos := normalize.DesignPosition(types.RawDesignPosition{Scale: 1, DesignWidth: 100, DesignHeight: 100})

	res, err := p.Render(product, design, pos, RenderOptions{ContainerWidth: 400, ContainerHeight: 400})
	require.NoError(t, err)
	require.NotNil(t, res.Image)

	assert.Equal(t, image.Rect(0, 0, 400, 400), res.Image.Bounds())
	assert.InDelta(t, 400.0, res.Metrics.DisplayHeight, 1e-9)
	assert.InDelta(t, 800.0/3, res.Metrics.DisplayWidth, 1e-9)
	assert.InDelta(t, 400.0/3, res.Transform.Width, 1e-9)
	assert.False(t, res.Transform.Fallback)

	// design centre
	assert.Equal(t, designRed, res.Image.NRGBAAt(200, 200))
	// product outside the footprint
	assert.Equal(t, garmentGray, res.Image.NRGBAAt(100, 50))
	// pillarbox stays transparent
	assert.Equal(t, uint8(0), res.Image.NRGBAAt(10, 10).A)
}

func TestRenderTranslatesDesign(t *testing.T) {
	p := NewProcessor()
	product := createSolidImage(200, 300, garmentGray)
	design := createSolidImage(100, 100, designRed)
	pos := normalize.DesignPosition(types.RawDesignPosition{X: 50, Scale: 1, DesignWidth: 100, DesignHeight: 100})

	res, err := p.Render(product, design, pos, RenderOptions{ContainerWidth: 400, ContainerHeight: 400})
	require.NoError(t, err)

	c := res.Transform.Center()
	assert.InDelta(t, 200+50*4.0/3, c.X, 1e-9)
	assert.Equal(t, designRed, res.Image.NRGBAAt(int(c.X), int(c.Y)))
	assert.Equal(t, garmentGray, res.Image.NRGBAAt(150, 200))
}

func TestRenderScaleShrinksGraphicInsideFootprint(t *testing.T) {
	p := NewProcessor()
	product := createSolidImage(400, 400, garmentGray)
	design := createSolidImage(200, 200, designRed)
	pos := normalize.DesignPosition(types.RawDesignPosition{Scale: 0.5, DesignWidth: 200, DesignHeight: 200})

	res, err := p.Render(product, design, pos, RenderOptions{ContainerWidth: 400, ContainerHeight: 400})
	require.NoError(t, err)

	// footprint spans 100..300, the graphic only 150..250
	assert.Equal(t, designRed, res.Image.NRGBAAt(200, 200))
	assert.Equal(t, garmentGray, res.Image.NRGBAAt(120, 200))
}

func TestRenderBackground(t *testing.T) {
	p := NewProcessor()
	white := color.NRGBA{255, 255, 255, 255}
	res, err := p.Render(createSolidImage(400, 100, garmentGray), createSolidImage(10, 10, designRed),
		normalize.DesignPosition(types.RawDesignPosition{DesignWidth: 10, DesignHeight: 10}),
		RenderOptions{ContainerWidth: 200, ContainerHeight: 200, Background: white})
	require.NoError(t, err)
	assert.Equal(t, white, res.Image.NRGBAAt(5, 5))
}

func TestRenderDebugOverlay(t *testing.T) {
	p := NewProcessor()
	product := createSolidImage(200, 300, garmentGray)
	design := createSolidImage(100, 100, designRed)
	pos := normalize.DesignPosition(types.RawDesignPosition{Scale: 1, DesignWidth: 100, DesignHeight: 100})
	zones := normalize.Delimitations([]types.RawDelimitation{{X: 10, Y: 10, Width: 50, Height: 50}}, 200, 300)

	res, err := p.Render(product, design, pos, RenderOptions{
		ContainerWidth:  400,
		ContainerHeight: 400,
		Delimitations:   zones,
		DebugOverlay:    true,
	})
	require.NoError(t, err)

	// left edge of the zone: 66.67 + 10% of 266.67
	assert.Equal(t, gold, res.Image.NRGBAAt(93, 60))
}

func TestRenderErrors(t *testing.T) {
	p := NewProcessor()
	img := createSolidImage(10, 10, garmentGray)
	pos := normalize.DesignPosition(types.RawDesignPosition{})

	_, err := p.Render(nil, img, pos, RenderOptions{ContainerWidth: 10, ContainerHeight: 10})
	assert.Error(t, err)

	_, err = p.Render(img, nil, pos, RenderOptions{ContainerWidth: 10, ContainerHeight: 10})
	assert.Error(t, err)

	_, err = p.Render(img, img, pos, RenderOptions{})
	assert.Error(t, err)
}

func TestSaveAndLoadImage(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	img := createSolidImage(64, 48, garmentGray)

	path := filepath.Join(dir, "mockup.png")
	require.NoError(t, p.SaveImage(img, path, "png", 90, false))

	loaded, err := p.LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 64, loaded.Bounds().Dx())
	assert.Equal(t, 48, loaded.Bounds().Dy())

	assert.Error(t, p.SaveImage(img, filepath.Join(dir, "mockup.bmp"), "bmp", 90, false))

	_, err = p.LoadImage(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestDecodeBytesRejectsGarbage(t *testing.T) {
	_, err := NewProcessor().DecodeBytes([]byte("not an image"))
	assert.Error(t, err)
}

func TestEncodeForModel(t *testing.T) {
	p := NewProcessor()
	img := createSolidImage(900, 300, garmentGray)

	b64, err := p.EncodeForModel(img, "png", 300, 85)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 100, cfg.Height)
}

func TestLoadImageFromURLRejectsScheme(t *testing.T) {
	_, err := NewProcessor().LoadImageFromURL(t.Context(), "ftp://example.com/shirt.png")
	assert.Error(t, err)
}

func BenchmarkRender(b *testing.B) {
	p := NewProcessor()
	product := createSolidImage(1000, 1500, garmentGray)
	design := createSolidImage(600, 600, designRed)
	pos := normalize.DesignPosition(types.RawDesignPosition{Scale: 0.6, Rotation: 10})
	opts := RenderOptions{ContainerWidth: 400, ContainerHeight: 400}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Render(product, design, pos, opts)
	}
}
