package ggtypesetter

import (
	"errors"
	"image/color"
	"testing"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/cubicibo/ass2bdnxml/pkg/mocks"
	"github.com/cubicibo/ass2bdnxml/pkg/ports"
)

const srtScript = `1
00:00:01,000 --> 00:00:02,500
Hello

2
00:00:02,000 --> 00:00:03,000
World
`

const ssaScript = `[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default,Arial,40,&H0000FFFF,&H000000FF,&H00FF0000,&H00000000,0,0,0,0,100,100,0,0,1,3,0,2,10,10,10,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
Dialogue: 0,0:00:00.50,0:00:01.50,Default,,0,0,0,,Yellow text
`

func openScript(t *testing.T, name, script string, opts ports.EngineOptions) *Typesetter {
	t.Helper()
	fs := mocks.NewFileSystem()
	if err := fs.WriteFile(name, []byte(script)); err != nil {
		t.Fatal(err)
	}
	r, err := NewOpener(fs).Open(name, opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ts, ok := r.(*Typesetter)
	if !ok {
		t.Fatalf("Open returned %T", r)
	}
	t.Cleanup(func() { ts.Close() })
	return ts
}

func testOptions() ports.EngineOptions {
	return ports.EngineOptions{FrameWidth: 640, FrameHeight: 360, PixelAspect: 1, Hinting: true}
}

func TestTypesetter_RenderAt(t *testing.T) {
	ts := openScript(t, "movie.srt", srtScript, testOptions())

	glyphs, changed, err := ts.RenderAt(0)
	if err != nil {
		t.Fatal(err)
	}
	if glyphs != nil || changed {
		t.Errorf("RenderAt(0) = %d glyphs, changed=%v", len(glyphs), changed)
	}

	glyphs, changed, _ = ts.RenderAt(1000)
	if !changed {
		t.Error("first cue should report a change")
	}
	// Outline then fill.
	if len(glyphs) != 2 {
		t.Fatalf("expected 2 glyphs, got %d", len(glyphs))
	}
	if glyphs[0].Color != (color.NRGBA{A: 255}) {
		t.Errorf("outline color = %v", glyphs[0].Color)
	}
	if glyphs[1].Color != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("fill color = %v", glyphs[1].Color)
	}

	fill := glyphs[1]
	if center := fill.X + fill.Width/2; center < 318 || center > 322 {
		t.Errorf("cue not centred, center x = %d", center)
	}
	if fill.Y+fill.Height > 360 {
		t.Errorf("cue below the frame: y=%d h=%d", fill.Y, fill.Height)
	}
	if len(fill.Coverage) != fill.Stride*fill.Height {
		t.Errorf("coverage size %d for %dx%d", len(fill.Coverage), fill.Stride, fill.Height)
	}
	visible := false
	for _, c := range fill.Coverage {
		if c > 0 {
			visible = true
			break
		}
	}
	if !visible {
		t.Error("fill coverage is empty")
	}

	if _, changed, _ = ts.RenderAt(1500); changed {
		t.Error("same cue set should not report a change")
	}

	// Two cues overlap: the second stacks above the first.
	glyphs, changed, _ = ts.RenderAt(2000)
	if !changed || len(glyphs) != 4 {
		t.Fatalf("overlap: changed=%v glyphs=%d", changed, len(glyphs))
	}
	if glyphs[3].Y >= glyphs[1].Y {
		t.Errorf("second cue at y=%d not above first at y=%d", glyphs[3].Y, glyphs[1].Y)
	}

	glyphs, changed, _ = ts.RenderAt(3000)
	if glyphs != nil || !changed {
		t.Errorf("after last cue: %d glyphs, changed=%v", len(glyphs), changed)
	}
}

func TestTypesetter_NextChange(t *testing.T) {
	ts := openScript(t, "movie.srt", srtScript, testOptions())

	tests := []struct {
		ms   int64
		want int64
		ok   bool
	}{
		{-1, 1000, true},
		{0, 1000, true},
		{1000, 2000, true},
		{2000, 2500, true},
		{2500, 3000, true},
		{3000, 0, false},
	}
	for _, tt := range tests {
		got, ok := ts.NextChange(tt.ms)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NextChange(%d) = %d, %v; want %d, %v", tt.ms, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTypesetter_SSAStyle(t *testing.T) {
	opts := testOptions()
	opts.StorageWidth, opts.StorageHeight = 1920, 1080
	ts := openScript(t, "movie.ass", ssaScript, opts)

	glyphs, _, err := ts.RenderAt(1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(glyphs) != 2 {
		t.Fatalf("expected 2 glyphs, got %d", len(glyphs))
	}
	if want := (color.NRGBA{B: 255, A: 255}); glyphs[0].Color != want {
		t.Errorf("outline color = %v, want %v", glyphs[0].Color, want)
	}
	if want := (color.NRGBA{R: 255, G: 255, A: 255}); glyphs[1].Color != want {
		t.Errorf("fill color = %v, want %v", glyphs[1].Color, want)
	}
	// 40pt at 1080 scaled to 360 lines.
	if h := glyphs[1].Height; h < 10 || h > 30 {
		t.Errorf("scaled cue height = %d", h)
	}
}

func TestTypesetter_PixelAspect(t *testing.T) {
	square := openScript(t, "movie.srt", srtScript, testOptions())
	opts := testOptions()
	opts.PixelAspect = 2
	wide := openScript(t, "movie.srt", srtScript, opts)

	a, _, _ := square.RenderAt(1000)
	b, _, _ := wide.RenderAt(1000)
	if len(a) == 0 || len(b) == 0 {
		t.Fatal("expected glyphs")
	}
	if got, want := b[1].Width, (a[1].Width+1)/2; got < want-1 || got > want+1 {
		t.Errorf("width with PAR 2 = %d, want about %d", got, want)
	}
	if b[1].Height != a[1].Height {
		t.Errorf("height changed with PAR: %d != %d", b[1].Height, a[1].Height)
	}
}

func TestTypesetter_DefaultStyleOptions(t *testing.T) {
	opts := testOptions()
	opts.OutlineWidth = 0
	opts.FillColor = color.NRGBA{R: 10, G: 20, B: 30, A: 255}
	opts.OutlineColor = color.NRGBA{R: 200, A: 128}
	ts := openScript(t, "movie.srt", srtScript, opts)

	glyphs, _, _ := ts.RenderAt(1000)
	if len(glyphs) != 2 {
		t.Fatalf("expected 2 glyphs, got %d", len(glyphs))
	}
	if glyphs[0].Color != opts.OutlineColor || glyphs[1].Color != opts.FillColor {
		t.Errorf("colors = %v, %v", glyphs[0].Color, glyphs[1].Color)
	}
}

func TestOpener_Errors(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFile("movie.sub", []byte("x"))
	fs.WriteFile("movie.srt", []byte(srtScript))
	fs.WriteFile("fonts/readme.txt", []byte("no fonts"))
	o := NewOpener(fs)

	if _, err := o.Open("missing.srt", testOptions()); err == nil {
		t.Error("expected error for a missing script")
	}
	if _, err := o.Open("movie.sub", testOptions()); !errors.Is(err, ErrUnsupportedScript) {
		t.Errorf("expected ErrUnsupportedScript, got %v", err)
	}
	if _, err := o.Open("movie.srt", ports.EngineOptions{}); err == nil {
		t.Error("expected error for an empty render size")
	}
	opts := testOptions()
	opts.FontDir = "fonts"
	if _, err := o.Open("movie.srt", opts); !errors.Is(err, ErrNoFont) {
		t.Errorf("expected ErrNoFont, got %v", err)
	}
}

func TestLoadFont_FromDirectory(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFile("fonts/broken.ttf", []byte("not a font"))
	fs.WriteFile("fonts/mono.TTF", gomono.TTF)

	f, err := loadFont(fs, "fonts")
	if err != nil {
		t.Fatalf("loadFont failed: %v", err)
	}
	want, _ := truetype.Parse(gomono.TTF)
	if f.Name(truetype.NameIDFontFullName) != want.Name(truetype.NameIDFontFullName) {
		t.Errorf("loaded %q", f.Name(truetype.NameIDFontFullName))
	}
}
