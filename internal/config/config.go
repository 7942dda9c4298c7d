package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DESIGN_OVERLAY_RENDER_QUALITY
const EnvPrefix = "DESIGN_OVERLAY"

// Config holds the application configuration
type Config struct {
	Render RenderConfig
	Vision VisionConfig
	Output OutputConfig
	Log    LogConfig
}

// RenderConfig holds configuration for mockup rendering
type RenderConfig struct {
	ContainerWidth  int
	ContainerHeight int
	Background      string // "transparent", #rrggbb or #rrggbbaa
	Format          string // png, jpg, webp
	Quality         int
	Lossless        bool
	Debug           bool
	Defaults        string // vendor or curated design size defaults
}

// VisionConfig holds configuration for print zone detection
type VisionConfig struct {
	Backend     string // ollama or llamacpp
	URL         string
	Model       string
	SendMaxDim  int
	SendQuality int
	SendFormat  string
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Dir    string
	Prefix string
	Suffix string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Env   string // production or development
	Level string // debug, info, warn, error
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			ContainerWidth:  800,
			ContainerHeight: 800,
			Background:      "transparent",
			Format:          "png",
			Quality:         90,
			Lossless:        false,
			Debug:           false,
			Defaults:        "vendor",
		},
		Vision: VisionConfig{
			Backend:     "ollama",
			URL:         "http://localhost:11434",
			Model:       "qwen2.5vl:7b",
			SendMaxDim:  1024,
			SendQuality: 85,
			SendFormat:  "jpeg",
		},
		Output: OutputConfig{
			Dir:    "./output",
			Prefix: "",
			Suffix: "_mockup",
		},
		Log: LogConfig{
			Env:   "development",
			Level: "info",
		},
	}
}

// settings flattens the configuration into viper keys
func (c *Config) settings() map[string]any {
	return map[string]any{
		"render.container_width":  c.Render.ContainerWidth,
		"render.container_height": c.Render.ContainerHeight,
		"render.background":       c.Render.Background,
		"render.format":           c.Render.Format,
		"render.quality":          c.Render.Quality,
		"render.lossless":         c.Render.Lossless,
		"render.debug":            c.Render.Debug,
		"render.defaults":         c.Render.Defaults,
		"vision.backend":          c.Vision.Backend,
		"vision.url":              c.Vision.URL,
		"vision.model":            c.Vision.Model,
		"vision.send_max_dim":     c.Vision.SendMaxDim,
		"vision.send_quality":     c.Vision.SendQuality,
		"vision.send_format":      c.Vision.SendFormat,
		"output.dir":              c.Output.Dir,
		"output.prefix":           c.Output.Prefix,
		"output.suffix":           c.Output.Suffix,
		"log.env":                 c.Log.Env,
		"log.level":               c.Log.Level,
	}
}

// Load reads configuration from path, falling back to defaults for anything
// unset. An empty path searches the default config directory and the working
// directory. A missing file is not an error. Environment variables override
// both, e.g. DESIGN_OVERLAY_VISION_MODEL.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range Default().settings() {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Dir(GetConfigPath()))
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Render: RenderConfig{
			ContainerWidth:  v.GetInt("render.container_width"),
			ContainerHeight: v.GetInt("render.container_height"),
			Background:      v.GetString("render.background"),
			Format:          strings.ToLower(v.GetString("render.format")),
			Quality:         v.GetInt("render.quality"),
			Lossless:        v.GetBool("render.lossless"),
			Debug:           v.GetBool("render.debug"),
			Defaults:        strings.ToLower(v.GetString("render.defaults")),
		},
		Vision: VisionConfig{
			Backend:     strings.ToLower(v.GetString("vision.backend")),
			URL:         v.GetString("vision.url"),
			Model:       v.GetString("vision.model"),
			SendMaxDim:  v.GetInt("vision.send_max_dim"),
			SendQuality: v.GetInt("vision.send_quality"),
			SendFormat:  strings.ToLower(v.GetString("vision.send_format")),
		},
		Output: OutputConfig{
			Dir:    v.GetString("output.dir"),
			Prefix: v.GetString("output.prefix"),
			Suffix: v.GetString("output.suffix"),
		},
		Log: LogConfig{
			Env:   v.GetString("log.env"),
			Level: v.GetString("log.level"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file. The format follows the file
// extension (json, yaml, toml).
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	for key, value := range c.settings() {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(filename); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Render.ContainerWidth < 1 || c.Render.ContainerHeight < 1 {
		return fmt.Errorf("render.container_width and render.container_height must be positive")
	}

	if c.Render.Quality < 1 || c.Render.Quality > 100 {
		return fmt.Errorf("render.quality must be between 1 and 100")
	}

	switch c.Render.Format {
	case "png", "jpg", "jpeg", "webp":
	default:
		return fmt.Errorf("render.format must be png, jpg or webp, got %q", c.Render.Format)
	}

	switch c.Render.Defaults {
	case "vendor", "curated":
	default:
		return fmt.Errorf("render.defaults must be vendor or curated, got %q", c.Render.Defaults)
	}

	if _, err := c.BackgroundColor(); err != nil {
		return err
	}

	switch c.Vision.Backend {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("vision.backend must be ollama or llamacpp, got %q", c.Vision.Backend)
	}

	if c.Vision.SendMaxDim < 0 {
		return fmt.Errorf("vision.send_max_dim cannot be negative")
	}

	if c.Vision.SendQuality < 1 || c.Vision.SendQuality > 100 {
		return fmt.Errorf("vision.send_quality must be between 1 and 100")
	}

	switch c.Log.Env {
	case "production", "development":
	default:
		return fmt.Errorf("log.env must be production or development, got %q", c.Log.Env)
	}

	return nil
}

// BackgroundColor parses render.background. Transparent yields nil.
func (c *Config) BackgroundColor() (color.Color, error) {
	s := strings.ToLower(strings.TrimSpace(c.Render.Background))
	if s == "" || s == "transparent" || s == "none" {
		return nil, nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return nil, fmt.Errorf("render.background %q is not #rrggbb or #rrggbbaa", c.Render.Background)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("render.background %q: %w", c.Render.Background, err)
	}
	return color.NRGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "design-overlay", "config.yaml")
}
