package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 800, cfg.Render.ContainerWidth)
	assert.Equal(t, "vendor", cfg.Render.Defaults)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
render:
  container_width: 640
  background: "#ffffff"
  format: WEBP
vision:
  model: llava:13b
log:
  env: production
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Render.ContainerWidth)
	assert.Equal(t, 800, cfg.Render.ContainerHeight)
	assert.Equal(t, "webp", cfg.Render.Format)
	assert.Equal(t, "llava:13b", cfg.Vision.Model)
	assert.Equal(t, "production", cfg.Log.Env)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DESIGN_OVERLAY_RENDER_QUALITY", "70")
	t.Setenv("DESIGN_OVERLAY_VISION_URL", "http://gpu-box:11434")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 70, cfg.Render.Quality)
	assert.Equal(t, "http://gpu-box:11434", cfg.Vision.URL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"render": {"quality": 0}}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"render": `), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestSaveToFile(t *testing.T) {
	cfg := Default()
	cfg.Render.Debug = true
	cfg.Output.Suffix = "_preview"

	path := filepath.Join(t.TempDir(), "nested", "config.json")
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Render.Debug)
	assert.Equal(t, "_preview", loaded.Output.Suffix)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero container", func(c *Config) { c.Render.ContainerWidth = 0 }},
		{"quality too high", func(c *Config) { c.Render.Quality = 101 }},
		{"unknown format", func(c *Config) { c.Render.Format = "bmp" }},
		{"unknown defaults", func(c *Config) { c.Render.Defaults = "random" }},
		{"bad background", func(c *Config) { c.Render.Background = "#12" }},
		{"unknown backend", func(c *Config) { c.Vision.Backend = "openai" }},
		{"negative send size", func(c *Config) { c.Vision.SendMaxDim = -1 }},
		{"send quality", func(c *Config) { c.Vision.SendQuality = 0 }},
		{"log env", func(c *Config) { c.Log.Env = "staging" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestBackgroundColor(t *testing.T) {
	cfg := Default()

	c, err := cfg.BackgroundColor()
	require.NoError(t, err)
	assert.Nil(t, c)

	cfg.Render.Background = "#FF8000"
	c, err = cfg.BackgroundColor()
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 128, B: 0, A: 255}, c)

	cfg.Render.Background = "#00000080"
	c, err = cfg.BackgroundColor()
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{A: 128}, c)

	cfg.Render.Background = "#zzzzzz"
	_, err = cfg.BackgroundColor()
	assert.Error(t, err)
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "config.yaml", filepath.Base(GetConfigPath()))
}
