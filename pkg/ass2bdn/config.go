// Package ass2bdn provides a high-level API for converting subtitle scripts
// to BDN XML and PNG bitmaps.
package ass2bdn

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"github.com/cubicibo/ass2bdnxml/pkg/description"
	"github.com/cubicibo/ass2bdnxml/pkg/orchestrator"
	"github.com/cubicibo/ass2bdnxml/pkg/ports"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/composite"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/encode"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/quantize"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/split"
	"github.com/cubicibo/ass2bdnxml/pkg/timecode"
)

// ErrInvalidConfig is returned by Build for any option outside its range.
var ErrInvalidConfig = errors.New("invalid configuration")

// MaxDimension bounds render and storage sizes.
const MaxDimension = 4096

// Preset represents a target disc format.
type Preset string

const (
	PresetBluray Preset = "bluray"
	PresetDVD    Preset = "dvd"
)

// ParsePreset parses a preset name. The empty string is bluray.
func ParsePreset(s string) (Preset, error) {
	switch p := Preset(strings.ToLower(s)); p {
	case "":
		return PresetBluray, nil
	case PresetBluray, PresetDVD:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, s)
	}
}

// Config represents the configuration for one conversion.
type Config struct {
	// Track
	TrackName string
	Language  string // Any BCP 47 or ISO 639 code, normalised to ISO 639-2/T

	// Format
	VideoFormat   string
	FrameRate     string
	RenderWidth   int // 0 = video width
	RenderHeight  int // 0 = video height
	StorageWidth  int // 0 = script default, or render width when StorageHeight is set
	StorageHeight int
	PixelAspect   float64 // 0 = derived by the engine
	FontDir       string
	Hinting       bool

	// Default style
	FontSize     float64 // 0 = engine default
	OutlineWidth float64
	FillColor    color.NRGBA // Zero = engine default
	OutlineColor color.NRGBA

	// Timing
	Offset         string // HH:MM:SS:FF, a leading '-' negates it
	NegativeOffset bool

	// Compositing
	LegacyAlpha bool // Nonlinear DVD alpha
	Dim         float64
	FullBitmaps bool
	MinSize     int

	// Splitting
	SplitMode      split.Mode
	AllowIntersect bool
	SplitMargins   [2]int  // Horizontal cut, vertical cut
	SplitThreshold float64 // Fraction of the frame area, 0 = always try

	// Palette
	Colors              int // 0 = RGBA output
	Quality             int
	Speed               int
	Dither              float64
	RLESafe             bool
	IndependentPalettes bool

	// Sampling
	KeepDuplicates bool
	Downsample     int

	// Output
	ContentIn   string
	OutputDir   string
	SummaryPath string
	DebugDir    string
	Workers     int

	// Resolved by Build.
	Rate         timecode.FrameRate
	Video        timecode.VideoFormat
	OffsetFrames int64
}

// ConfigBuilder provides a fluent interface for building Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder creates a new ConfigBuilder with Blu-ray preset defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: blurayDefaults(),
	}
}

// NewDVDConfigBuilder creates a new ConfigBuilder with DVD preset defaults.
func NewDVDConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: dvdDefaults(),
	}
}

// NewPresetConfigBuilder creates a ConfigBuilder for the given preset.
func NewPresetConfigBuilder(p Preset) *ConfigBuilder {
	if p == PresetDVD {
		return NewDVDConfigBuilder()
	}
	return NewConfigBuilder()
}

// blurayDefaults returns the Blu-ray preset configuration.
func blurayDefaults() Config {
	return Config{
		TrackName: "Undefined",
		Language:  "und",

		VideoFormat: "1080p",
		FrameRate:   "23.976",

		MinSize: composite.DefaultMinSize,

		SplitMode:    split.ModeOff,
		SplitMargins: [2]int{0, 0},

		Colors:  0,
		Quality: 100,
		Speed:   4,
		Dither:  1.0,

		ContentIn: string(description.ContentInAuto),
		OutputDir: ".",
		Workers:   1,
	}
}

// dvdDefaults returns the DVD preset configuration.
func dvdDefaults() Config {
	cfg := blurayDefaults()
	cfg.VideoFormat = "480i"
	cfg.FrameRate = "29.97"
	cfg.LegacyAlpha = true
	cfg.Colors = 16
	cfg.RLESafe = true
	return cfg
}

// Peek returns the configuration as set so far, unvalidated.
func (b *ConfigBuilder) Peek() Config {
	return b.config
}

// Build returns the final Config. Every range check happens here, before
// any frame is processed.
func (b *ConfigBuilder) Build() (Config, error) {
	cfg := b.config

	rate, err := timecode.LookupFrameRate(cfg.FrameRate)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	video, err := timecode.LookupVideoFormat(cfg.VideoFormat)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.Rate, cfg.Video = rate, video

	if err := cfg.resolveGeometry(); err != nil {
		return cfg, err
	}

	offset, err := timecode.ParseOffset(cfg.Offset, rate)
	if err != nil {
		return cfg, fmt.Errorf("%w: offset: %w", ErrInvalidConfig, err)
	}
	if cfg.NegativeOffset && offset > 0 {
		offset = -offset
	}
	cfg.OffsetFrames = offset

	lang, err := normalizeLanguage(cfg.Language)
	if err != nil {
		return cfg, err
	}
	cfg.Language = lang

	if err := cfg.validateRanges(); err != nil {
		return cfg, err
	}

	// With RLE safety one entry is reserved for the guard pixel.
	if cfg.RLESafe && cfg.Colors == 255 {
		cfg.Colors = 254
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

func (c *Config) resolveGeometry() error {
	if c.RenderWidth == 0 {
		c.RenderWidth = c.Video.Width
	}
	if c.RenderHeight == 0 {
		c.RenderHeight = c.Video.Height
	}
	for _, d := range []struct {
		name string
		v    int
	}{
		{"render width", c.RenderWidth},
		{"render height", c.RenderHeight},
	} {
		if d.v <= 0 || d.v > MaxDimension {
			return fmt.Errorf("%w: %s %d outside 1..%d", ErrInvalidConfig, d.name, d.v, MaxDimension)
		}
	}
	if c.RenderWidth > c.Video.Width || c.RenderHeight > c.Video.Height {
		return fmt.Errorf("%w: render size %dx%d larger than %s", ErrInvalidConfig, c.RenderWidth, c.RenderHeight, c.Video.Name)
	}

	if c.StorageWidth < 0 || c.StorageHeight < 0 || c.StorageWidth > MaxDimension || c.StorageHeight > MaxDimension {
		return fmt.Errorf("%w: storage size %dx%d outside 1..%d", ErrInvalidConfig, c.StorageWidth, c.StorageHeight, MaxDimension)
	}
	if c.StorageWidth > 0 || c.StorageHeight > 0 {
		if c.StorageWidth == 0 {
			c.StorageWidth = c.RenderWidth
		}
		if c.StorageHeight == 0 {
			c.StorageHeight = c.RenderHeight
		}
	}
	if c.PixelAspect < 0 {
		return fmt.Errorf("%w: pixel aspect ratio %g", ErrInvalidConfig, c.PixelAspect)
	}
	if c.FontSize < 0 || c.OutlineWidth < 0 {
		return fmt.Errorf("%w: font size %g, outline %g", ErrInvalidConfig, c.FontSize, c.OutlineWidth)
	}
	return nil
}

func (c *Config) validateRanges() error {
	switch {
	case c.Colors < 0 || c.Colors > 256:
		return fmt.Errorf("%w: colors %d outside 0..256", ErrInvalidConfig, c.Colors)
	case c.Quality < 0 || c.Quality > 100:
		return fmt.Errorf("%w: quality %d outside 0..100", ErrInvalidConfig, c.Quality)
	case c.Speed < 1 || c.Speed > 10:
		return fmt.Errorf("%w: speed %d outside 1..10", ErrInvalidConfig, c.Speed)
	case c.Dither < 0 || c.Dither > 1:
		return fmt.Errorf("%w: dither %g outside 0..1", ErrInvalidConfig, c.Dither)
	case c.Dim < 0 || c.Dim > 1:
		return fmt.Errorf("%w: dim %g outside 0..1", ErrInvalidConfig, c.Dim)
	case c.MinSize < 0:
		return fmt.Errorf("%w: minimum size %d", ErrInvalidConfig, c.MinSize)
	case c.SplitMode < split.ModeOff || c.SplitMode > split.ModeBoth:
		return fmt.Errorf("%w: split mode %d", ErrInvalidConfig, c.SplitMode)
	case c.SplitMargins[0] < 0 || c.SplitMargins[1] < 0:
		return fmt.Errorf("%w: split margins %v", ErrInvalidConfig, c.SplitMargins)
	case c.SplitThreshold < 0 || c.SplitThreshold > 1:
		return fmt.Errorf("%w: split threshold %g outside 0..1", ErrInvalidConfig, c.SplitThreshold)
	case c.Downsample < 0:
		return fmt.Errorf("%w: downsample %d", ErrInvalidConfig, c.Downsample)
	case c.FullBitmaps && c.SplitMode != split.ModeOff:
		return fmt.Errorf("%w: full bitmaps cannot be split", ErrInvalidConfig)
	}
	if _, err := description.ParseContentInPolicy(c.ContentIn); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// normalizeLanguage maps any recognised language code to its ISO 639-2/T
// three-letter form. Tags without an explicit language stay "und".
func normalizeLanguage(s string) (string, error) {
	if s == "" {
		return "und", nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: language %q: %w", ErrInvalidConfig, s, err)
	}
	base, conf := tag.Base()
	if conf != language.Exact {
		return "und", nil
	}
	return base.ISO3(), nil
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig(scriptPath, version string) orchestrator.Config {
	contentIn, _ := description.ParseContentInPolicy(c.ContentIn)
	return orchestrator.Config{
		ScriptPath: scriptPath,
		Engine:     c.EngineOptions(),

		OutputDir:   c.OutputDir,
		XMLName:     orchestrator.DefaultXMLName,
		SummaryPath: c.SummaryPath,

		TrackName: c.TrackName,
		Language:  c.Language,
		Video:     c.Video,
		ContentIn: contentIn,

		Rate:     c.Rate,
		Sampling: timecode.SamplePTSIn,
		Offset:   c.OffsetFrames,

		KeepDuplicates: c.KeepDuplicates,
		Downsample:     c.Downsample,

		Workers: c.Workers,
		Version: version,
	}
}

// EngineOptions returns the rendering engine settings.
func (c Config) EngineOptions() ports.EngineOptions {
	return ports.EngineOptions{
		FrameWidth:    c.RenderWidth,
		FrameHeight:   c.RenderHeight,
		StorageWidth:  c.StorageWidth,
		StorageHeight: c.StorageHeight,
		PixelAspect:   c.PixelAspect,
		FontDir:       c.FontDir,
		Hinting:       c.Hinting,
		FontSize:      c.FontSize,
		OutlineWidth:  c.OutlineWidth,
		FillColor:     c.FillColor,
		OutlineColor:  c.OutlineColor,
	}
}

// CompositeOptions returns the compositor settings.
func (c Config) CompositeOptions() composite.Options {
	return composite.Options{
		LegacyAlpha: c.LegacyAlpha,
		Dim:         c.Dim,
		FullBitmaps: c.FullBitmaps,
		MinSize:     c.MinSize,
	}
}

// EncodeOptions returns the split, palette and output settings.
func (c Config) EncodeOptions() encode.Options {
	opts := encode.Options{
		OutputDir: c.OutputDir,
		Split: split.Options{
			Mode:           c.SplitMode,
			AllowIntersect: c.AllowIntersect,
			Margins:        c.SplitMargins,
			MinSize:        c.MinSize,
		},
		Policy:              split.AreaThreshold{Ratio: c.SplitThreshold},
		IndependentPalettes: c.IndependentPalettes,
	}
	if c.Colors > 0 {
		opts.Quantize = &quantize.Options{
			MaxColors: c.Colors,
			Quality:   c.Quality,
			Speed:     c.Speed,
			Dither:    c.Dither,
			RLESafe:   c.RLESafe,
		}
	}
	return opts
}

// DebugPath returns the debug directory, resolved against the output
// directory when relative.
func (c Config) DebugPath() string {
	if c.DebugDir == "" || filepath.IsAbs(c.DebugDir) {
		return c.DebugDir
	}
	return filepath.Join(c.OutputDir, c.DebugDir)
}

// WithTrack sets the track name and language.
func (b *ConfigBuilder) WithTrack(name, lang string) *ConfigBuilder {
	b.config.TrackName = name
	b.config.Language = lang
	return b
}

// WithVideoFormat sets the target video format name (1080p, 720p, 480i...).
func (b *ConfigBuilder) WithVideoFormat(name string) *ConfigBuilder {
	b.config.VideoFormat = name
	return b
}

// WithFrameRate sets the frame rate name (23.976, 25, 29.97...).
func (b *ConfigBuilder) WithFrameRate(name string) *ConfigBuilder {
	b.config.FrameRate = name
	return b
}

// WithRenderSize sets the render surface size. 0 keeps the video size.
func (b *ConfigBuilder) WithRenderSize(width, height int) *ConfigBuilder {
	b.config.RenderWidth = width
	b.config.RenderHeight = height
	return b
}

// WithStorageSize sets the script coordinate space size.
func (b *ConfigBuilder) WithStorageSize(width, height int) *ConfigBuilder {
	b.config.StorageWidth = width
	b.config.StorageHeight = height
	return b
}

// WithPixelAspect sets the pixel aspect ratio.
func (b *ConfigBuilder) WithPixelAspect(par float64) *ConfigBuilder {
	b.config.PixelAspect = par
	return b
}

// WithFontDir sets the directory searched for fonts.
func (b *ConfigBuilder) WithFontDir(dir string) *ConfigBuilder {
	b.config.FontDir = dir
	return b
}

// WithHinting enables font hinting.
func (b *ConfigBuilder) WithHinting(enabled bool) *ConfigBuilder {
	b.config.Hinting = enabled
	return b
}

// WithStyle sets the default font size, outline width and colors.
func (b *ConfigBuilder) WithStyle(size, outline float64, fill, border color.NRGBA) *ConfigBuilder {
	b.config.FontSize = size
	b.config.OutlineWidth = outline
	b.config.FillColor = fill
	b.config.OutlineColor = border
	return b
}

// WithOffset sets the timing offset as HH:MM:SS:FF.
func (b *ConfigBuilder) WithOffset(tc string, negative bool) *ConfigBuilder {
	b.config.Offset = tc
	b.config.NegativeOffset = negative
	return b
}

// WithLegacyAlpha enables the nonlinear DVD alpha.
func (b *ConfigBuilder) WithLegacyAlpha(enabled bool) *ConfigBuilder {
	b.config.LegacyAlpha = enabled
	return b
}

// WithDim sets the RGB dimming factor (0..1, 0 disables).
func (b *ConfigBuilder) WithDim(factor float64) *ConfigBuilder {
	b.config.Dim = factor
	return b
}

// WithFullBitmaps makes every bitmap cover the whole render area.
func (b *ConfigBuilder) WithFullBitmaps(enabled bool) *ConfigBuilder {
	b.config.FullBitmaps = enabled
	return b
}

// WithMinSize sets the minimum bitmap side.
func (b *ConfigBuilder) WithMinSize(size int) *ConfigBuilder {
	b.config.MinSize = size
	return b
}

// WithSplit sets the split mode and whether cuts may cross content.
func (b *ConfigBuilder) WithSplit(mode split.Mode, allowIntersect bool) *ConfigBuilder {
	b.config.SplitMode = mode
	b.config.AllowIntersect = allowIntersect
	return b
}

// WithSplitMargins sets the minimum gap between the two crops for
// horizontal and vertical cuts.
func (b *ConfigBuilder) WithSplitMargins(horizontal, vertical int) *ConfigBuilder {
	b.config.SplitMargins = [2]int{horizontal, vertical}
	return b
}

// WithSplitThreshold only splits regions covering more than ratio of the frame.
func (b *ConfigBuilder) WithSplitThreshold(ratio float64) *ConfigBuilder {
	b.config.SplitThreshold = ratio
	return b
}

// WithColors sets the palette size. 0 writes RGBA bitmaps.
func (b *ConfigBuilder) WithColors(n int) *ConfigBuilder {
	b.config.Colors = n
	return b
}

// WithQuantizer sets the quantizer quality (0-100), speed (1-10) and
// dithering level (0-1).
func (b *ConfigBuilder) WithQuantizer(quality, speed int, dither float64) *ConfigBuilder {
	b.config.Quality = quality
	b.config.Speed = speed
	b.config.Dither = dither
	return b
}

// WithRLESafe reserves palette entry zero for the RLE guard pixel.
func (b *ConfigBuilder) WithRLESafe(enabled bool) *ConfigBuilder {
	b.config.RLESafe = enabled
	return b
}

// WithIndependentPalettes quantizes each crop of a split event on its own.
func (b *ConfigBuilder) WithIndependentPalettes(enabled bool) *ConfigBuilder {
	b.config.IndependentPalettes = enabled
	return b
}

// WithKeepDuplicates starts a new event even for identical content.
func (b *ConfigBuilder) WithKeepDuplicates(enabled bool) *ConfigBuilder {
	b.config.KeepDuplicates = enabled
	return b
}

// WithDownsample skips n frames after each sample.
func (b *ConfigBuilder) WithDownsample(n int) *ConfigBuilder {
	b.config.Downsample = n
	return b
}

// WithContentIn sets the ContentInTC policy (auto, first-event, offset).
func (b *ConfigBuilder) WithContentIn(policy string) *ConfigBuilder {
	b.config.ContentIn = policy
	return b
}

// WithOutputDir sets the directory receiving bdn.xml and the bitmaps.
func (b *ConfigBuilder) WithOutputDir(dir string) *ConfigBuilder {
	b.config.OutputDir = dir
	return b
}

// WithSummaryPath writes a Markdown summary to path.
func (b *ConfigBuilder) WithSummaryPath(path string) *ConfigBuilder {
	b.config.SummaryPath = path
	return b
}

// WithDebugDir saves event crops and the event list into dir.
func (b *ConfigBuilder) WithDebugDir(dir string) *ConfigBuilder {
	b.config.DebugDir = dir
	return b
}

// WithWorkers sets the number of concurrent event encoders.
func (b *ConfigBuilder) WithWorkers(n int) *ConfigBuilder {
	b.config.Workers = n
	return b
}
