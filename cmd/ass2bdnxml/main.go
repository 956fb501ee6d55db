// Package main provides the CLI entry point for ass2bdnxml.
package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/cubicibo/ass2bdnxml/pkg/adapters/filesink"
	"github.com/cubicibo/ass2bdnxml/pkg/adapters/ggtypesetter"
	"github.com/cubicibo/ass2bdnxml/pkg/adapters/logger"
	"github.com/cubicibo/ass2bdnxml/pkg/adapters/mcquantizer"
	"github.com/cubicibo/ass2bdnxml/pkg/adapters/nullsink"
	"github.com/cubicibo/ass2bdnxml/pkg/adapters/osfilesystem"
	"github.com/cubicibo/ass2bdnxml/pkg/adapters/pngcodec"
	"github.com/cubicibo/ass2bdnxml/pkg/ass2bdn"
	"github.com/cubicibo/ass2bdnxml/pkg/config"
	"github.com/cubicibo/ass2bdnxml/pkg/orchestrator"
	"github.com/cubicibo/ass2bdnxml/pkg/ports"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/composite"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/encode"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/quantize"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/sample"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/split"
	"github.com/cubicibo/ass2bdnxml/pkg/timecode"
)

var version = "dev"

const defaultDebugDir = "debug"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "ass2bdnxml",
		Usage:     l10n.T("Convert subtitle scripts to BDN XML and PNG bitmaps"),
		UsageText: "ass2bdnxml [options] <script>",
		Version:   version,
		Flags:     convertFlags(),
		Action:    convert,
		Commands: []*cli.Command{
			{
				Name:   "formats",
				Usage:  l10n.T("List supported frame rates and video formats"),
				Action: listFormats,
			},
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, l10n.F("ass2bdnxml (Go) version %s", version))
					return nil
				},
			},
		},
	}
}

func convertFlags() []cli.Flag {
	track := l10n.T("Track")
	format := l10n.T("Format")
	style := l10n.T("Style")
	timing := l10n.T("Timing")
	bitmaps := l10n.T("Bitmaps")
	palette := l10n.T("Palette")
	sampling := l10n.T("Sampling")
	output := l10n.T("Output")
	logging := l10n.T("Logging")

	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file")},
		&cli.StringFlag{Name: "preset", Aliases: []string{"p"}, Value: string(ass2bdn.PresetBluray), Usage: l10n.T("Preset (bluray, dvd)")},

		&cli.StringFlag{Name: "trackname", Aliases: []string{"t"}, Category: track, Usage: l10n.T("Track name")},
		&cli.StringFlag{Name: "language", Category: track, Usage: l10n.T("Language code (ISO 639 or BCP 47)")},

		&cli.StringFlag{Name: "video-format", Category: format, Usage: l10n.T("Video format (1080p, 1080i, 720p, 576i, 480p, 480i)")},
		&cli.StringFlag{Name: "fps", Aliases: []string{"f"}, Category: format, Usage: l10n.T("Frame rate (23.976, 24, 25, 29.97, 50, 59.94)")},
		&cli.IntFlag{Name: "width", Category: format, Usage: l10n.T("Render width (default: video width)")},
		&cli.IntFlag{Name: "height", Category: format, Usage: l10n.T("Render height (default: video height)")},
		&cli.IntFlag{Name: "storage-width", Category: format, Usage: l10n.T("Script storage width")},
		&cli.IntFlag{Name: "storage-height", Category: format, Usage: l10n.T("Script storage height")},
		&cli.Float64Flag{Name: "par", Category: format, Usage: l10n.T("Pixel aspect ratio")},

		&cli.StringFlag{Name: "fontdir", Category: style, Usage: l10n.T("Font directory")},
		&cli.BoolFlag{Name: "hinting", Category: style, Usage: l10n.T("Enable font hinting")},
		&cli.Float64Flag{Name: "font-size", Category: style, Usage: l10n.T("Default font size at storage height")},
		&cli.Float64Flag{Name: "outline-width", Category: style, Usage: l10n.T("Default outline width")},
		&cli.StringFlag{Name: "fill-color", Category: style, Usage: l10n.T("Default fill color (hex, e.g., #ffffff)")},
		&cli.StringFlag{Name: "outline-color", Category: style, Usage: l10n.T("Default outline color (hex, e.g., #000000)")},

		&cli.StringFlag{Name: "offset", Aliases: []string{"o"}, Category: timing, Usage: l10n.T("Timecode offset (HH:MM:SS:FF)")},
		&cli.BoolFlag{Name: "negative", Aliases: []string{"z"}, Category: timing, Usage: l10n.T("Subtract the offset instead of adding it")},
		&cli.StringFlag{Name: "content-in", Category: timing, Usage: l10n.T("Content in timecode policy (auto, first-event, offset)")},

		&cli.BoolFlag{Name: "legacy-alpha", Category: bitmaps, Usage: l10n.T("Use the nonlinear DVD alpha")},
		&cli.Float64Flag{Name: "dim", Category: bitmaps, Usage: l10n.T("Dimming factor for visible pixels (0-1)")},
		&cli.BoolFlag{Name: "fullscreen", Category: bitmaps, Usage: l10n.T("Output full frame bitmaps")},
		&cli.IntFlag{Name: "min-size", Category: bitmaps, Usage: l10n.T("Minimum bitmap side in pixels")},
		&cli.StringFlag{Name: "split", Aliases: []string{"s"}, Category: bitmaps, Usage: l10n.T("Split mode (0 off, 1 horizontal, 2 auto, 3 both)")},
		&cli.BoolFlag{Name: "allow-intersect", Category: bitmaps, Usage: l10n.T("Allow split bitmaps to overlap")},
		&cli.IntFlag{Name: "split-margin-h", Category: bitmaps, Usage: l10n.T("Margin around horizontal cuts")},
		&cli.IntFlag{Name: "split-margin-v", Category: bitmaps, Usage: l10n.T("Margin around vertical cuts")},
		&cli.Float64Flag{Name: "split-threshold", Category: bitmaps, Usage: l10n.T("Minimum region area before splitting, as a fraction of the frame")},

		&cli.IntFlag{Name: "colors", Aliases: []string{"q"}, Category: palette, Usage: l10n.T("Palette size (0 = RGBA output, 1-256)")},
		&cli.IntFlag{Name: "quality", Category: palette, Usage: l10n.T("Quantizer quality (0-100)")},
		&cli.IntFlag{Name: "speed", Category: palette, Usage: l10n.T("Quantizer speed (1-10)")},
		&cli.Float64Flag{Name: "dither", Category: palette, Usage: l10n.T("Dithering level (0 disables)")},
		&cli.BoolFlag{Name: "rle-safe", Category: palette, Usage: l10n.T("Reserve palette entry 0 for run-length coding")},
		&cli.BoolFlag{Name: "independent-palettes", Category: palette, Usage: l10n.T("Quantize split bitmaps separately")},

		&cli.BoolFlag{Name: "keep-dupes", Aliases: []string{"d"}, Category: sampling, Usage: l10n.T("Keep consecutive identical events")},
		&cli.IntFlag{Name: "downsample", Category: sampling, Usage: l10n.T("Sample every Nth frame (0 = every frame)")},
		&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Category: sampling, Usage: l10n.T("Parallel bitmap workers (0 = number of CPUs)")},

		&cli.StringFlag{Name: "output", Category: output, Usage: l10n.T("Output directory")},
		&cli.StringFlag{Name: "summary", Category: output, Usage: l10n.T("Markdown summary file path")},
		&cli.BoolFlag{Name: "debug", Category: output, Usage: l10n.T("Enable debug output")},
		&cli.StringFlag{Name: "debug-dir", Category: output, Usage: l10n.T("Directory for debug output (relative to the output directory)")},

		&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info", Category: logging, Usage: l10n.T("Log level (debug, info, warn, error)")},
		&cli.BoolFlag{Name: "quiet", Category: logging, Usage: l10n.T("Suppress all log output")},
	}
}

func convert(c *cli.Context) error {
	if c.NArg() != 1 {
		cli.ShowAppHelp(c)
		return errors.New(l10n.T("exactly one subtitle script is required"))
	}
	script := c.Args().First()

	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}

	var log ports.Logger
	if c.Bool("quiet") {
		log = logger.NewNoop()
	} else {
		log = logger.NewConsole(ports.ParseLogLevel(c.String("log-level")))
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn(l10n.T("Interrupted, shutting down..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	fs := osfilesystem.New()
	codec := pngcodec.New(fs)

	var sink ports.DebugSink
	if dir := cfg.DebugPath(); dir != "" {
		if err := fs.MkdirAll(dir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(dir, fs, codec)
	} else {
		sink = nullsink.New()
	}

	compositeStage := composite.NewStage(cfg.CompositeOptions(), log)
	sampleStage := sample.NewStage(compositeStage, log)
	encodeStage := encode.NewStage(codec, quantize.New(mcquantizer.New(), log), sink, log, cfg.EncodeOptions())

	orch := orchestrator.New(
		ggtypesetter.NewOpener(fs),
		sampleStage,
		encodeStage,
		fs,
		sink,
		log,
	)

	_, err = orch.Run(ctx, cfg.ToOrchestratorConfig(script, version))
	return err
}

// buildConfig resolves preset, configuration file and flags, in that order.
func buildConfig(c *cli.Context) (ass2bdn.Config, error) {
	var file config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return ass2bdn.Config{}, err
		}
		file = loaded
	}
	if c.IsSet("preset") || file.Preset == "" {
		file.Preset = c.String("preset")
	}

	builder, err := file.Builder()
	if err != nil {
		return ass2bdn.Config{}, err
	}
	if err := applyFlags(c, builder); err != nil {
		return ass2bdn.Config{}, err
	}
	return builder.Build()
}

// applyFlags copies every flag set on the command line onto b.
func applyFlags(c *cli.Context, b *ass2bdn.ConfigBuilder) error {
	cur := b.Peek()

	if c.IsSet("trackname") || c.IsSet("language") {
		b.WithTrack(stringFlag(c, "trackname", cur.TrackName), stringFlag(c, "language", cur.Language))
	}
	if c.IsSet("video-format") {
		b.WithVideoFormat(c.String("video-format"))
	}
	if c.IsSet("fps") {
		b.WithFrameRate(c.String("fps"))
	}
	if c.IsSet("width") || c.IsSet("height") {
		b.WithRenderSize(intFlag(c, "width", cur.RenderWidth), intFlag(c, "height", cur.RenderHeight))
	}
	if c.IsSet("storage-width") || c.IsSet("storage-height") {
		b.WithStorageSize(intFlag(c, "storage-width", cur.StorageWidth), intFlag(c, "storage-height", cur.StorageHeight))
	}
	if c.IsSet("par") {
		b.WithPixelAspect(c.Float64("par"))
	}
	if c.IsSet("fontdir") {
		b.WithFontDir(c.String("fontdir"))
	}
	if c.IsSet("hinting") {
		b.WithHinting(c.Bool("hinting"))
	}
	if err := applyStyle(c, b, cur); err != nil {
		return err
	}

	if c.IsSet("offset") || c.IsSet("negative") {
		b.WithOffset(stringFlag(c, "offset", cur.Offset), boolFlag(c, "negative", cur.NegativeOffset))
	}
	if c.IsSet("content-in") {
		b.WithContentIn(c.String("content-in"))
	}

	if c.IsSet("legacy-alpha") {
		b.WithLegacyAlpha(c.Bool("legacy-alpha"))
	}
	if c.IsSet("dim") {
		b.WithDim(c.Float64("dim"))
	}
	if c.IsSet("fullscreen") {
		b.WithFullBitmaps(c.Bool("fullscreen"))
	}
	if c.IsSet("min-size") {
		b.WithMinSize(c.Int("min-size"))
	}
	if c.IsSet("split") || c.IsSet("allow-intersect") {
		mode := cur.SplitMode
		if c.IsSet("split") {
			m, err := split.ParseMode(c.String("split"))
			if err != nil {
				return fmt.Errorf("%w: %w", ass2bdn.ErrInvalidConfig, err)
			}
			mode = m
		}
		b.WithSplit(mode, boolFlag(c, "allow-intersect", cur.AllowIntersect))
	}
	if c.IsSet("split-margin-h") || c.IsSet("split-margin-v") {
		b.WithSplitMargins(intFlag(c, "split-margin-h", cur.SplitMargins[0]), intFlag(c, "split-margin-v", cur.SplitMargins[1]))
	}
	if c.IsSet("split-threshold") {
		b.WithSplitThreshold(c.Float64("split-threshold"))
	}

	if c.IsSet("colors") {
		b.WithColors(c.Int("colors"))
	}
	if c.IsSet("quality") || c.IsSet("speed") || c.IsSet("dither") {
		b.WithQuantizer(intFlag(c, "quality", cur.Quality), intFlag(c, "speed", cur.Speed), floatFlag(c, "dither", cur.Dither))
	}
	if c.IsSet("rle-safe") {
		b.WithRLESafe(c.Bool("rle-safe"))
	}
	if c.IsSet("independent-palettes") {
		b.WithIndependentPalettes(c.Bool("independent-palettes"))
	}

	if c.IsSet("keep-dupes") {
		b.WithKeepDuplicates(c.Bool("keep-dupes"))
	}
	if c.IsSet("downsample") {
		b.WithDownsample(c.Int("downsample"))
	}
	if c.IsSet("workers") {
		n := c.Int("workers")
		if n == 0 {
			n = runtime.NumCPU()
		}
		b.WithWorkers(n)
	}

	if c.IsSet("output") {
		b.WithOutputDir(c.String("output"))
	}
	if c.IsSet("summary") {
		b.WithSummaryPath(c.String("summary"))
	}
	if c.IsSet("debug-dir") {
		b.WithDebugDir(c.String("debug-dir"))
	} else if c.Bool("debug") && cur.DebugDir == "" {
		b.WithDebugDir(defaultDebugDir)
	}
	return nil
}

func applyStyle(c *cli.Context, b *ass2bdn.ConfigBuilder, cur ass2bdn.Config) error {
	if !c.IsSet("font-size") && !c.IsSet("outline-width") && !c.IsSet("fill-color") && !c.IsSet("outline-color") {
		return nil
	}
	fill, border := cur.FillColor, cur.OutlineColor
	var err error
	if c.IsSet("fill-color") {
		if fill, err = parseColorFlag(c, "fill-color"); err != nil {
			return err
		}
	}
	if c.IsSet("outline-color") {
		if border, err = parseColorFlag(c, "outline-color"); err != nil {
			return err
		}
	}
	b.WithStyle(floatFlag(c, "font-size", cur.FontSize), floatFlag(c, "outline-width", cur.OutlineWidth), fill, border)
	return nil
}

func parseColorFlag(c *cli.Context, name string) (color.NRGBA, error) {
	col, err := config.ParseColor(c.String(name))
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: --%s: %w", ass2bdn.ErrInvalidConfig, name, err)
	}
	return col, nil
}

func stringFlag(c *cli.Context, name, fallback string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	return fallback
}

func intFlag(c *cli.Context, name string, fallback int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	return fallback
}

func floatFlag(c *cli.Context, name string, fallback float64) float64 {
	if c.IsSet(name) {
		return c.Float64(name)
	}
	return fallback
}

func boolFlag(c *cli.Context, name string, fallback bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return fallback
}

func listFormats(c *cli.Context) error {
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, l10n.T("Frame rates")+":")
	for _, r := range timecode.FrameRates {
		fmt.Fprintf(w, "  %s\t%d/%d\t%s %d\n", r.Name, r.Num, r.Den, l10n.T("timecode base"), r.Rate)
	}
	fmt.Fprintln(w, l10n.T("Video formats")+":")
	for _, v := range timecode.VideoFormats {
		fmt.Fprintf(w, "  %s\t%dx%d\n", v.Name, v.Width, v.Height)
	}
	return w.Flush()
}
