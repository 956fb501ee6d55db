package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/cubicibo/ass2bdnxml/pkg/ass2bdn"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/split"
)

// parse runs the app with the conversion replaced by config resolution.
func parse(t *testing.T, args ...string) (ass2bdn.Config, error) {
	t.Helper()
	var cfg ass2bdn.Config
	app := newApp()
	app.Action = func(c *cli.Context) error {
		var err error
		cfg, err = buildConfig(c)
		return err
	}
	err := app.Run(append([]string{"ass2bdnxml"}, args...))
	return cfg, err
}

func TestBuildConfig_Defaults(t *testing.T) {
	cfg, err := parse(t, "movie.ass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Video.Name != "1080p" || cfg.Rate.Name != "23.976" {
		t.Errorf("format = %s @ %s", cfg.Video.Name, cfg.Rate.Name)
	}
	if cfg.DebugDir != "" {
		t.Errorf("debug dir = %q without --debug", cfg.DebugDir)
	}
}

func TestBuildConfig_Flags(t *testing.T) {
	cfg, err := parse(t,
		"--preset", "dvd",
		"--video-format", "576i", "--fps", "25",
		"-t", "Signs", "--language", "fr",
		"--offset", "00:00:10:00", "-z",
		"--split", "2", "--split-margin-v", "6",
		"-q", "64", "--dither", "0",
		"--workers", "0",
		"--debug",
		"--output", "out",
		"movie.ass",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Video.Name != "576i" || cfg.Rate.Name != "25" {
		t.Errorf("format = %s @ %s", cfg.Video.Name, cfg.Rate.Name)
	}
	if cfg.TrackName != "Signs" || cfg.Language != "fra" {
		t.Errorf("track = %q %q", cfg.TrackName, cfg.Language)
	}
	if cfg.OffsetFrames != -250 {
		t.Errorf("offset = %d, want -250", cfg.OffsetFrames)
	}
	if cfg.SplitMode != split.ModeAuto || cfg.SplitMargins != [2]int{0, 6} {
		t.Errorf("split = %v %v", cfg.SplitMode, cfg.SplitMargins)
	}
	if cfg.Colors != 64 || cfg.Dither != 0 || cfg.Quality != 100 {
		t.Errorf("palette = %d colors, dither %v, quality %d", cfg.Colors, cfg.Dither, cfg.Quality)
	}
	// The DVD preset stays in effect where no flag overrides it.
	if !cfg.LegacyAlpha || !cfg.RLESafe {
		t.Error("DVD preset values were lost")
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("workers = %d, want %d", cfg.Workers, runtime.NumCPU())
	}
	if got := cfg.DebugPath(); got != filepath.Join("out", defaultDebugDir) {
		t.Errorf("debug path = %q", got)
	}
}

func TestBuildConfig_FileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ass2bdnxml.yaml")
	data := "preset: dvd\nfps: \"29.97\"\ntrack_name: Songs\npalette:\n  colors: 32\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := parse(t, "--config", path, "--colors", "8", "movie.ass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TrackName != "Songs" || cfg.Rate.Name != "29.97" {
		t.Errorf("file values not applied: %q %s", cfg.TrackName, cfg.Rate.Name)
	}
	if cfg.Colors != 8 {
		t.Errorf("flag should override file, colors = %d", cfg.Colors)
	}
	if !cfg.LegacyAlpha {
		t.Error("file preset not applied")
	}

	cfg, err = parse(t, "--config", path, "--preset", "bluray", "movie.ass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LegacyAlpha {
		t.Error("explicit --preset should replace the file preset")
	}
}

func TestBuildConfig_Invalid(t *testing.T) {
	tests := [][]string{
		{"--fps", "30", "movie.ass"},
		{"--split", "sideways", "movie.ass"},
		{"--fill-color", "white", "movie.ass"},
		{"--fullscreen", "--split", "1", "movie.ass"},
		{"--offset", "00:00:00:30", "movie.ass"},
		{"--preset", "hddvd", "movie.ass"},
	}
	for _, args := range tests {
		if _, err := parse(t, args...); !errors.Is(err, ass2bdn.ErrInvalidConfig) {
			t.Errorf("%v: expected ErrInvalidConfig, got %v", args, err)
		}
	}
}

func TestConvert_RequiresScript(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	if err := app.Run([]string{"ass2bdnxml"}); err == nil {
		t.Error("expected error without a script")
	}
}

func TestFormatsCommand(t *testing.T) {
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	if err := app.Run([]string{"ass2bdnxml", "formats"}); err != nil {
		t.Fatalf("formats failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"23.976", "24000/1001", "59.94", "1080p", "720x480"} {
		if !strings.Contains(out, want) {
			t.Errorf("formats output missing %q:\n%s", want, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	if err := app.Run([]string{"ass2bdnxml", "version"}); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(buf.String(), version) {
		t.Errorf("version output %q", buf.String())
	}
}
