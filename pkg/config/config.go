// Package config provides configuration file loading.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cubicibo/ass2bdnxml/pkg/ass2bdn"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/split"
)

// Config represents a YAML configuration file. Unset keys leave the preset
// values untouched.
type Config struct {
	Preset string `yaml:"preset"`

	// Track
	TrackName *string `yaml:"track_name"`
	Language  *string `yaml:"language"`

	// Format
	VideoFormat   *string  `yaml:"video_format"`
	FrameRate     *string  `yaml:"fps"`
	RenderWidth   *int     `yaml:"render_width"`
	RenderHeight  *int     `yaml:"render_height"`
	StorageWidth  *int     `yaml:"storage_width"`
	StorageHeight *int     `yaml:"storage_height"`
	PixelAspect   *float64 `yaml:"pixel_aspect"`
	FontDir       *string  `yaml:"font_dir"`
	Hinting       *bool    `yaml:"hinting"`
	Style         Style    `yaml:"style"`

	// Timing
	Offset         *string `yaml:"offset"`
	NegativeOffset *bool   `yaml:"negative_offset"`

	// Compositing
	LegacyAlpha *bool    `yaml:"legacy_alpha"`
	Dim         *float64 `yaml:"dim"`
	FullBitmaps *bool    `yaml:"full_bitmaps"`
	MinSize     *int     `yaml:"min_size"`

	// Splitting
	Split SplitConfig `yaml:"split"`

	// Palette
	Palette PaletteConfig `yaml:"palette"`

	// Sampling
	KeepDuplicates *bool `yaml:"keep_duplicates"`
	Downsample     *int  `yaml:"downsample"`

	// Output
	ContentIn *string `yaml:"content_in"`
	OutputDir *string `yaml:"output_dir"`
	Summary   *string `yaml:"summary"`
	DebugDir  *string `yaml:"debug_dir"`
	Workers   *int    `yaml:"workers"`
}

// Style represents the default cue style.
type Style struct {
	FontSize     *float64 `yaml:"font_size"`
	OutlineWidth *float64 `yaml:"outline_width"`
	FillColor    string   `yaml:"fill_color"`
	OutlineColor string   `yaml:"outline_color"`
}

// SplitConfig represents the region splitter settings.
type SplitConfig struct {
	Mode           *string  `yaml:"mode"`
	AllowIntersect *bool    `yaml:"allow_intersect"`
	MarginH        *int     `yaml:"margin_h"`
	MarginV        *int     `yaml:"margin_v"`
	Threshold      *float64 `yaml:"threshold"`
}

// PaletteConfig represents the quantizer settings.
type PaletteConfig struct {
	Colors      *int     `yaml:"colors"`
	Quality     *int     `yaml:"quality"`
	Speed       *int     `yaml:"speed"`
	Dither      *float64 `yaml:"dither"`
	RLESafe     *bool    `yaml:"rle_safe"`
	Independent *bool    `yaml:"independent"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration data. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Builder returns a ConfigBuilder for the file's preset with every set key
// applied.
func (c Config) Builder() (*ass2bdn.ConfigBuilder, error) {
	preset, err := ass2bdn.ParsePreset(c.Preset)
	if err != nil {
		return nil, err
	}
	b := ass2bdn.NewPresetConfigBuilder(preset)
	if err := c.ApplyTo(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ApplyTo copies every set key onto b. The preset key is ignored.
func (c Config) ApplyTo(b *ass2bdn.ConfigBuilder) error {
	cur := b.Peek()

	if c.TrackName != nil || c.Language != nil {
		b.WithTrack(deref(c.TrackName, cur.TrackName), deref(c.Language, cur.Language))
	}
	if c.VideoFormat != nil {
		b.WithVideoFormat(*c.VideoFormat)
	}
	if c.FrameRate != nil {
		b.WithFrameRate(*c.FrameRate)
	}
	if c.RenderWidth != nil || c.RenderHeight != nil {
		b.WithRenderSize(deref(c.RenderWidth, cur.RenderWidth), deref(c.RenderHeight, cur.RenderHeight))
	}
	if c.StorageWidth != nil || c.StorageHeight != nil {
		b.WithStorageSize(deref(c.StorageWidth, cur.StorageWidth), deref(c.StorageHeight, cur.StorageHeight))
	}
	if c.PixelAspect != nil {
		b.WithPixelAspect(*c.PixelAspect)
	}
	if c.FontDir != nil {
		b.WithFontDir(*c.FontDir)
	}
	if c.Hinting != nil {
		b.WithHinting(*c.Hinting)
	}
	if err := c.Style.applyTo(b, cur); err != nil {
		return err
	}

	if c.Offset != nil || c.NegativeOffset != nil {
		b.WithOffset(deref(c.Offset, cur.Offset), deref(c.NegativeOffset, cur.NegativeOffset))
	}

	if c.LegacyAlpha != nil {
		b.WithLegacyAlpha(*c.LegacyAlpha)
	}
	if c.Dim != nil {
		b.WithDim(*c.Dim)
	}
	if c.FullBitmaps != nil {
		b.WithFullBitmaps(*c.FullBitmaps)
	}
	if c.MinSize != nil {
		b.WithMinSize(*c.MinSize)
	}

	if err := c.Split.applyTo(b, cur); err != nil {
		return err
	}
	c.Palette.applyTo(b, cur)

	if c.KeepDuplicates != nil {
		b.WithKeepDuplicates(*c.KeepDuplicates)
	}
	if c.Downsample != nil {
		b.WithDownsample(*c.Downsample)
	}
	if c.ContentIn != nil {
		b.WithContentIn(*c.ContentIn)
	}
	if c.OutputDir != nil {
		b.WithOutputDir(*c.OutputDir)
	}
	if c.Summary != nil {
		b.WithSummaryPath(*c.Summary)
	}
	if c.DebugDir != nil {
		b.WithDebugDir(*c.DebugDir)
	}
	if c.Workers != nil {
		b.WithWorkers(*c.Workers)
	}
	return nil
}

func (s Style) applyTo(b *ass2bdn.ConfigBuilder, cur ass2bdn.Config) error {
	if s.FontSize == nil && s.OutlineWidth == nil && s.FillColor == "" && s.OutlineColor == "" {
		return nil
	}
	fill, border := cur.FillColor, cur.OutlineColor
	var err error
	if s.FillColor != "" {
		if fill, err = ParseColor(s.FillColor); err != nil {
			return fmt.Errorf("style.fill_color: %w", err)
		}
	}
	if s.OutlineColor != "" {
		if border, err = ParseColor(s.OutlineColor); err != nil {
			return fmt.Errorf("style.outline_color: %w", err)
		}
	}
	b.WithStyle(deref(s.FontSize, cur.FontSize), deref(s.OutlineWidth, cur.OutlineWidth), fill, border)
	return nil
}

func (s SplitConfig) applyTo(b *ass2bdn.ConfigBuilder, cur ass2bdn.Config) error {
	if s.Mode != nil || s.AllowIntersect != nil {
		mode := cur.SplitMode
		if s.Mode != nil {
			m, err := split.ParseMode(*s.Mode)
			if err != nil {
				return fmt.Errorf("split.mode: %w", err)
			}
			mode = m
		}
		b.WithSplit(mode, deref(s.AllowIntersect, cur.AllowIntersect))
	}
	if s.MarginH != nil || s.MarginV != nil {
		b.WithSplitMargins(deref(s.MarginH, cur.SplitMargins[0]), deref(s.MarginV, cur.SplitMargins[1]))
	}
	if s.Threshold != nil {
		b.WithSplitThreshold(*s.Threshold)
	}
	return nil
}

func (p PaletteConfig) applyTo(b *ass2bdn.ConfigBuilder, cur ass2bdn.Config) {
	if p.Colors != nil {
		b.WithColors(*p.Colors)
	}
	if p.Quality != nil || p.Speed != nil || p.Dither != nil {
		b.WithQuantizer(deref(p.Quality, cur.Quality), deref(p.Speed, cur.Speed), deref(p.Dither, cur.Dither))
	}
	if p.RLESafe != nil {
		b.WithRLESafe(*p.RLESafe)
	}
	if p.Independent != nil {
		b.WithIndependentPalettes(*p.Independent)
	}
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

// ParseColor parses #RRGGBB or #RRGGBBAA into a straight-alpha color.
func ParseColor(hex string) (color.NRGBA, error) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 && len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", hex)
	}
	if len(s) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
