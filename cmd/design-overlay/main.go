package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	designoverlay "github.com/menta2k/design-overlay"
	"github.com/menta2k/design-overlay/internal/config"
	"github.com/menta2k/design-overlay/internal/logger"
	"github.com/menta2k/design-overlay/pkg/normalize"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
	log *zap.SugaredLogger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "design-overlay",
		Short: "Place print designs on product images",
		Long: "Normalizes catalog delimitations and vendor design placements, projects the design " +
			"onto a product displayed with object-fit: contain and renders mockups.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			log = logger.New(cfg.Log.Env, cfg.Log.Level)
			log.Debugw("configuration loaded", "path", configPath)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.GetConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newNormalizeCmd(),
		newProjectCmd(),
		newRenderCmd(),
		newDetectCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return nil
			},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "design-overlay version %s\n", designoverlay.Version)
			},
		},
	)
	return rootCmd
}

// overlayOptions maps the loaded configuration onto the library options
func overlayOptions(c *config.Config) (designoverlay.Options, error) {
	bg, err := c.BackgroundColor()
	if err != nil {
		return designoverlay.Options{}, err
	}
	defaults := normalize.VendorDefaults
	if c.Render.Defaults == "curated" {
		defaults = normalize.CuratedDefaults
	}
	return designoverlay.Options{
		ContainerWidth:  c.Render.ContainerWidth,
		ContainerHeight: c.Render.ContainerHeight,
		Background:      bg,
		Format:          c.Render.Format,
		Quality:         c.Render.Quality,
		Lossless:        c.Render.Lossless,
		Debug:           c.Render.Debug,
		Defaults:        defaults,
	}, nil
}

// readJSONArg returns inline JSON, the contents of @file, or stdin for "-"
func readJSONArg(cmd *cobra.Command, arg string) ([]byte, error) {
	switch {
	case arg == "":
		return nil, nil
	case arg == "-":
		return io.ReadAll(cmd.InOrStdin())
	case strings.HasPrefix(arg, "@"):
		return os.ReadFile(arg[1:])
	default:
		return []byte(arg), nil
	}
}

// parseSize parses WIDTHxHEIGHT
func parseSize(s string) (float64, float64, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q is not WIDTHxHEIGHT", s)
	}
	width, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	height, err := strconv.ParseFloat(h, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	return width, height, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
