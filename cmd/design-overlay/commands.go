package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	designoverlay "github.com/menta2k/design-overlay"
	"github.com/menta2k/design-overlay/internal/utils"
	"github.com/menta2k/design-overlay/pkg/analyzer"
	"github.com/menta2k/design-overlay/pkg/client"
	"github.com/menta2k/design-overlay/pkg/compositor"
	"github.com/menta2k/design-overlay/pkg/detection"
	"github.com/menta2k/design-overlay/pkg/llamacpp"
	"github.com/menta2k/design-overlay/pkg/normalize"
	"github.com/menta2k/design-overlay/pkg/ollama"
	"github.com/menta2k/design-overlay/pkg/projector"
	"github.com/menta2k/design-overlay/pkg/types"
)

type normalizeInput struct {
	NaturalWidth  float64                   `json:"naturalWidth"`
	NaturalHeight float64                   `json:"naturalHeight"`
	Delimitations []types.RawDelimitation   `json:"delimitations"`
	Positions     []types.RawDesignPosition `json:"positions"`
}

type normalizeOutput struct {
	Delimitations []types.Delimitation   `json:"delimitations"`
	Positions     []types.DesignPosition `json:"positions"`
	Active        types.DesignPosition   `json:"active"`
}

func newNormalizeCmd() *cobra.Command {
	var input, natural string
	var curated bool

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize delimitations and design positions to canonical form",
		Example: `  design-overlay normalize --input @product.json
  cat product.json | design-overlay normalize --input - --natural 2000x3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readJSONArg(cmd, input)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			var in normalizeInput
			if err := json.Unmarshal(data, &in); err != nil {
				return fmt.Errorf("failed to parse input: %w", err)
			}
			if natural != "" {
				if in.NaturalWidth, in.NaturalHeight, err = parseSize(natural); err != nil {
					return err
				}
			}

			defaults := normalize.VendorDefaults
			if curated {
				defaults = normalize.CuratedDefaults
			}

			out := normalizeOutput{
				Delimitations: normalize.Delimitations(in.Delimitations, in.NaturalWidth, in.NaturalHeight),
				Positions:     make([]types.DesignPosition, 0, len(in.Positions)),
			}
			for _, p := range in.Positions {
				out.Positions = append(out.Positions, normalize.DesignPositionWithDefaults(p, defaults))
			}
			out.Active = normalize.ActivePositionWithDefaults(in.Positions, defaults)

			log.Debugw("normalized records", "delimitations", len(out.Delimitations), "positions", len(out.Positions))
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON payload, @file or - for stdin")
	cmd.Flags().StringVar(&natural, "natural", "", "natural product image size WIDTHxHEIGHT (overrides the payload)")
	cmd.Flags().BoolVar(&curated, "curated", false, "use curated design defaults instead of vendor defaults")
	return cmd
}

type projectOutput struct {
	designoverlay.Placement
	Zones []projectedZone `json:"zones,omitempty"`
}

type projectedZone struct {
	types.Delimitation
	Screen projector.Rect `json:"screen"`
}

func newProjectCmd() *cobra.Command {
	var natural, product, container, position, zones string
	var cssOnly bool

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Compute where a design is drawn over a contain-fit product image",
		Example: `  design-overlay project --natural 2000x3000 --container 800x800 --position '{"scale":0.6}'
  design-overlay project --product tee.jpg --position @position.json --css`,
		RunE: func(cmd *cobra.Command, args []string) error {
			nw, nh, err := naturalSize(natural, product)
			if err != nil {
				return err
			}
			cw, ch := float64(cfg.Render.ContainerWidth), float64(cfg.Render.ContainerHeight)
			if container != "" {
				if cw, ch, err = parseSize(container); err != nil {
					return err
				}
			}

			positions, err := readPositions(cmd, position)
			if err != nil {
				return err
			}
			opts, err := overlayOptions(cfg)
			if err != nil {
				return err
			}
			placement := designoverlay.NewWithConfig(opts, log).Place(positions, nw, nh, cw, ch)

			if cssOnly {
				fmt.Fprintf(cmd.OutOrStdout(), "/* overlay */ %s\n/* graphic */ %s\n", placement.CSS, placement.GraphicCSS)
				return nil
			}

			out := projectOutput{Placement: placement}
			rawZones, err := readDelimitations(cmd, zones)
			if err != nil {
				return err
			}
			for _, d := range normalize.Delimitations(rawZones, nw, nh) {
				out.Zones = append(out.Zones, projectedZone{Delimitation: d, Screen: projector.ProjectDelimitation(d, placement.Metrics)})
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&natural, "natural", "", "natural product image size WIDTHxHEIGHT")
	cmd.Flags().StringVar(&product, "product", "", "product image file to read the natural size from")
	cmd.Flags().StringVar(&container, "container", "", "display container size WIDTHxHEIGHT (default from config)")
	cmd.Flags().StringVarP(&position, "position", "p", "", "design position JSON object or array, or @file")
	cmd.Flags().StringVarP(&zones, "delimitations", "d", "", "delimitations JSON array or @file")
	cmd.Flags().BoolVar(&cssOnly, "css", false, "print CSS declarations only")
	cmd.MarkFlagsMutuallyExclusive("natural", "product")
	cmd.MarkFlagsOneRequired("natural", "product")
	return cmd
}

// naturalSize takes the size from --natural or probes the header of --product
func naturalSize(natural, product string) (float64, float64, error) {
	if natural != "" {
		return parseSize(natural)
	}
	if err := checkImageSource("product", product); err != nil {
		return 0, 0, err
	}
	info, err := analyzer.New().ProbeFile(product)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read product size: %w", err)
	}
	log.Debugw("probed product", "path", product, "format", info.Format, "width", info.Width, "height", info.Height)
	return float64(info.Width), float64(info.Height), nil
}

func newRenderCmd() *cobra.Command {
	var product, design, position, zones, out, container, format, background string
	var debug bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a mockup of a design placed on a product image",
		Example: `  design-overlay render --product tee.jpg --design logo.png --position '{"x":40,"y":-120,"scale":0.6}'
  design-overlay render --product https://cdn.example.com/tee.webp --design logo.png --debug -d @zones.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			green := color.New(color.FgGreen)
			cyan := color.New(color.FgCyan)

			if container != "" {
				cw, ch, err := parseSize(container)
				if err != nil {
					return err
				}
				cfg.Render.ContainerWidth, cfg.Render.ContainerHeight = int(cw), int(ch)
			}
			if format != "" {
				cfg.Render.Format = strings.ToLower(format)
			}
			if background != "" {
				cfg.Render.Background = background
			}
			if cmd.Flags().Changed("debug") {
				cfg.Render.Debug = debug
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := checkImageSource("product", product); err != nil {
				return err
			}
			if err := checkImageSource("design", design); err != nil {
				return err
			}

			positions, err := readPositions(cmd, position)
			if err != nil {
				return err
			}
			rawZones, err := readDelimitations(cmd, zones)
			if err != nil {
				return err
			}
			var raw types.RawDesignPosition
			if len(positions) > 0 {
				raw = positions[0]
			}

			if out == "" {
				out = utils.GenerateOutputFilename(product, cfg.Output.Dir, cfg.Output.Prefix, cfg.Output.Suffix, cfg.Render.Format)
			}

			opts, err := overlayOptions(cfg)
			if err != nil {
				return err
			}
			cyan.Fprintf(cmd.ErrOrStderr(), "Rendering %s on %s\n", design, product)
			placement, err := designoverlay.NewWithConfig(opts, log).Render(cmd.Context(), designoverlay.RenderRequest{
				Product:       product,
				Design:        design,
				Position:      raw,
				Delimitations: rawZones,
				Output:        out,
			})
			if err != nil {
				return err
			}

			size := ""
			if info, err := os.Stat(out); err == nil {
				size = " (" + utils.FormatFileSize(info.Size()) + ")"
			}
			green.Fprintf(cmd.ErrOrStderr(), "Wrote %s%s\n", out, size)
			if placement.Transform.Fallback {
				color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), "Product could not be measured, design drawn at the fallback position")
			}
			return printJSON(cmd.OutOrStdout(), placement)
		},
	}

	cmd.Flags().StringVar(&product, "product", "", "product image path or URL")
	cmd.Flags().StringVar(&design, "design", "", "design image path or URL")
	cmd.Flags().StringVarP(&position, "position", "p", "", "design position JSON object or array, or @file")
	cmd.Flags().StringVarP(&zones, "delimitations", "d", "", "delimitations JSON array or @file, drawn with --debug")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default derived from the product name)")
	cmd.Flags().StringVar(&container, "container", "", "container size WIDTHxHEIGHT (default from config)")
	cmd.Flags().StringVar(&format, "format", "", "output format when --out has no extension: png, jpg, webp")
	cmd.Flags().StringVar(&background, "background", "", "letterbox colour: transparent, #rrggbb or #rrggbbaa")
	cmd.Flags().BoolVar(&debug, "debug", false, "outline delimitations and the anchor on the mockup")
	cmd.MarkFlagRequired("product")
	cmd.MarkFlagRequired("design")
	return cmd
}

type detectOutput struct {
	Found        bool                   `json:"found"`
	Image        analyzer.ImageInfo     `json:"image"`
	Result       *types.PrintZoneResult `json:"result"`
	Delimitation *types.Delimitation    `json:"delimitation,omitempty"`
}

func newDetectCmd() *cobra.Command {
	var in, model, url, backend string
	var testVision bool

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Locate the printable area of a product image with a vision model",
		Example: `  design-overlay detect --in tee.jpg --model qwen2.5vl:7b
  design-overlay detect --in tee.jpg --test-vision`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if model == "" {
				model = cfg.Vision.Model
			}
			if backend == "" {
				backend = cfg.Vision.Backend
			}
			if url == "" {
				url = cfg.Vision.URL
			}

			if err := checkImageSource("in", in); err != nil {
				return err
			}

			processor := compositor.NewProcessor()
			img, err := processor.LoadImageSmart(cmd.Context(), in)
			if err != nil {
				return err
			}
			imgB64, err := processor.EncodeForModel(img, cfg.Vision.SendFormat, cfg.Vision.SendMaxDim, cfg.Vision.SendQuality)
			if err != nil {
				return fmt.Errorf("failed to prepare image for model: %w", err)
			}

			visionClient, err := newVisionClient(backend, url)
			if err != nil {
				return err
			}
			detector := detection.NewDetector(visionClient)

			if testVision {
				answer, err := detector.TestVision(cmd.Context(), model, imgB64)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(answer))
				return nil
			}

			log.Infow("detecting print zone", "image", in, "backend", backend, "model", model, "url", url)
			result, err := detector.DetectPrintZone(cmd.Context(), model, imgB64)
			if err != nil {
				return err
			}

			out := detectOutput{
				Found:  detection.Found(result),
				Image:  analyzer.New().GetImageInfo(img),
				Result: result,
			}
			if out.Found {
				d := detection.ToDelimitation(result)
				out.Delimitation = &d
				log.Infow("print zone found", "label", result.Zone.Label, "confidence", result.Zone.Confidence)
			} else {
				color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), "No printable area found")
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "product image path or URL")
	cmd.Flags().StringVar(&model, "model", "", "vision model (default from config)")
	cmd.Flags().StringVar(&backend, "backend", "", "vision backend: ollama or llamacpp (default from config)")
	cmd.Flags().StringVar(&url, "url", "", "vision server URL (default from config)")
	cmd.Flags().BoolVar(&testVision, "test-vision", false, "only ask the model to describe the image")
	cmd.MarkFlagRequired("in")
	return cmd
}

func newVisionClient(backend, url string) (client.VisionClient, error) {
	switch backend {
	case "ollama":
		c, err := ollama.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case "llamacpp":
		c, err := llamacpp.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", backend)
	}
}

// checkImageSource rejects local paths that are missing or not images.
// URLs are checked when downloaded.
func checkImageSource(flag, src string) error {
	if utils.IsURL(src) {
		return nil
	}
	if !utils.FileExists(src) {
		return fmt.Errorf("--%s: file not found: %s", flag, src)
	}
	if !utils.IsImageFile(src) {
		return fmt.Errorf("--%s: unsupported image type: %s", flag, src)
	}
	return nil
}

// readPositions accepts a single position object or an array of positions
func readPositions(cmd *cobra.Command, arg string) ([]types.RawDesignPosition, error) {
	data, err := readJSONArg(cmd, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to read position: %w", err)
	}
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var ps []types.RawDesignPosition
		if err := json.Unmarshal(data, &ps); err != nil {
			return nil, fmt.Errorf("failed to parse positions: %w", err)
		}
		return ps, nil
	}
	var p types.RawDesignPosition
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse position: %w", err)
	}
	return []types.RawDesignPosition{p}, nil
}

func readDelimitations(cmd *cobra.Command, arg string) ([]types.RawDelimitation, error) {
	data, err := readJSONArg(cmd, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to read delimitations: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var ds []types.RawDelimitation
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse delimitations: %w", err)
	}
	return ds, nil
}
