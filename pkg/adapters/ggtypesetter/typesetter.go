// Package ggtypesetter provides a subtitle rendering engine built on the gg
// library. Scripts are parsed with go-astisub and every cue is typeset as a
// centred block of lines with an optional outline.
package ggtypesetter

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/asticode/go-astisub"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/cubicibo/ass2bdnxml/pkg/ports"
)

// ErrUnsupportedScript is returned for script files of an unknown type.
var ErrUnsupportedScript = errors.New("unsupported script format")

// ErrNoFont is returned when the font directory holds no usable font.
var ErrNoFont = errors.New("no usable font")

const lineSpacing = 1.15

// Opener implements ports.EngineOpener.
type Opener struct {
	fs ports.FileSystem
}

// NewOpener creates an Opener reading scripts and fonts through fs.
func NewOpener(fs ports.FileSystem) *Opener {
	return &Opener{fs: fs}
}

// Open parses the script at path and prepares a typesetter for it.
func (o *Opener) Open(path string, opts ports.EngineOptions) (ports.SubtitleRenderer, error) {
	if opts.FrameWidth <= 0 || opts.FrameHeight <= 0 {
		return nil, fmt.Errorf("invalid render size %dx%d", opts.FrameWidth, opts.FrameHeight)
	}
	data, err := o.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	subs, err := parseScript(path, data)
	if err != nil {
		return nil, err
	}
	ttf, err := loadFont(o.fs, opts.FontDir)
	if err != nil {
		return nil, err
	}
	return newTypesetter(subs, ttf, opts), nil
}

var _ ports.EngineOpener = (*Opener)(nil)

func parseScript(path string, data []byte) (*astisub.Subtitles, error) {
	r := bytes.NewReader(data)
	var (
		subs *astisub.Subtitles
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ass", ".ssa":
		subs, err = astisub.ReadFromSSA(r)
	case ".srt":
		subs, err = astisub.ReadFromSRT(r)
	case ".vtt":
		subs, err = astisub.ReadFromWebVTT(r)
	case ".ttml", ".dfxp":
		subs, err = astisub.ReadFromTTML(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScript, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	return subs, nil
}

// loadFont returns the first parsable .ttf or .otf in dir, or Go Regular
// when dir is empty.
func loadFont(fs ports.FileSystem, dir string) (*truetype.Font, error) {
	if dir == "" {
		return truetype.Parse(goregular.TTF)
	}
	names, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read font directory: %w", err)
	}
	for _, name := range names {
		switch strings.ToLower(filepath.Ext(name)) {
		case ".ttf", ".otf":
		default:
			continue
		}
		data, err := fs.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if f, err := truetype.Parse(data); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w in %s", ErrNoFont, dir)
}

type style struct {
	size    float64
	outline float64
	fill    color.NRGBA
	border  color.NRGBA
}

type cue struct {
	start int64
	end   int64
	lines []string
	style style
}

// layer holds the rasterised coverage of one cue.
type layer struct {
	width, height int
	fill          []byte
	outline       []byte
}

// Typesetter implements ports.SubtitleRenderer.
type Typesetter struct {
	opts   ports.EngineOptions
	font   *truetype.Font
	scale  float64
	cues   []cue
	bounds []int64

	faces  map[float64]font.Face
	layers map[int]*layer
	last   []int
}

func newTypesetter(subs *astisub.Subtitles, ttf *truetype.Font, opts ports.EngineOptions) *Typesetter {
	storageH := opts.StorageHeight
	if storageH <= 0 {
		storageH = opts.FrameHeight
	}
	t := &Typesetter{
		opts:   opts,
		font:   ttf,
		scale:  float64(opts.FrameHeight) / float64(storageH),
		faces:  make(map[float64]font.Face),
		layers: make(map[int]*layer),
	}

	def := defaultStyle(opts, storageH)
	for _, it := range subs.Items {
		c := cue{
			start: it.StartAt.Milliseconds(),
			end:   it.EndAt.Milliseconds(),
			style: resolveStyle(it, def),
		}
		if c.end <= c.start {
			continue
		}
		for _, l := range it.Lines {
			if s := strings.TrimSpace(l.String()); s != "" {
				c.lines = append(c.lines, s)
			}
		}
		if len(c.lines) == 0 {
			continue
		}
		t.cues = append(t.cues, c)
	}
	sort.SliceStable(t.cues, func(i, j int) bool { return t.cues[i].start < t.cues[j].start })

	for _, c := range t.cues {
		t.bounds = append(t.bounds, c.start, c.end)
	}
	slices.Sort(t.bounds)
	t.bounds = slices.Compact(t.bounds)
	return t
}

func defaultStyle(opts ports.EngineOptions, storageH int) style {
	s := style{
		size:    float64(storageH) / 18,
		outline: float64(storageH) / 540,
		fill:    color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		border:  color.NRGBA{A: 255},
	}
	if opts.FontSize > 0 {
		s.size = opts.FontSize
	}
	if opts.OutlineWidth > 0 {
		s.outline = opts.OutlineWidth
	}
	if opts.FillColor != (color.NRGBA{}) {
		s.fill = opts.FillColor
	}
	if opts.OutlineColor != (color.NRGBA{}) {
		s.border = opts.OutlineColor
	}
	return s
}

// resolveStyle applies the named style, then the inline overrides.
func resolveStyle(it *astisub.Item, def style) style {
	s := def
	var attrs []*astisub.StyleAttributes
	if it.Style != nil {
		attrs = append(attrs, it.Style.InlineStyle)
	}
	attrs = append(attrs, it.InlineStyle)
	for _, a := range attrs {
		if a == nil {
			continue
		}
		if a.SSAFontSize != nil && *a.SSAFontSize > 0 {
			s.size = *a.SSAFontSize
		}
		if a.SSAOutline != nil && *a.SSAOutline >= 0 {
			s.outline = *a.SSAOutline
		}
		if a.SSAPrimaryColour != nil {
			s.fill = ssaColor(a.SSAPrimaryColour)
		}
		if a.SSAOutlineColour != nil {
			s.border = ssaColor(a.SSAOutlineColour)
		}
	}
	return s
}

// ssaColor converts an SSA colour, whose alpha is a transparency.
func ssaColor(c *astisub.Color) color.NRGBA {
	return color.NRGBA{R: c.Red, G: c.Green, B: c.Blue, A: 255 - c.Alpha}
}

// RenderAt returns the glyphs of every cue active at ms. Cues are stacked
// upwards from the bottom margin in script order, each horizontally centred.
func (t *Typesetter) RenderAt(ms int64) ([]ports.Glyph, bool, error) {
	var active []int
	for i, c := range t.cues {
		if c.start > ms {
			break
		}
		if ms < c.end {
			active = append(active, i)
		}
	}
	changed := !slices.Equal(active, t.last)
	t.last = active
	if len(active) == 0 {
		return nil, changed, nil
	}

	var glyphs []ports.Glyph
	y := t.opts.FrameHeight - t.opts.FrameHeight/20
	for _, i := range active {
		l := t.layer(i)
		if l == nil {
			continue
		}
		y -= l.height
		x := (t.opts.FrameWidth - l.width) / 2
		st := t.cues[i].style
		if l.outline != nil {
			glyphs = append(glyphs, l.glyph(x, y, l.outline, st.border))
		}
		glyphs = append(glyphs, l.glyph(x, y, l.fill, st.fill))
	}
	return glyphs, changed, nil
}

// NextChange returns the first cue boundary strictly after ms.
func (t *Typesetter) NextChange(ms int64) (int64, bool) {
	i := sort.Search(len(t.bounds), func(i int) bool { return t.bounds[i] > ms })
	if i == len(t.bounds) {
		return 0, false
	}
	return t.bounds[i], true
}

// Close releases the cached font faces.
func (t *Typesetter) Close() error {
	var errs []error
	for size, face := range t.faces {
		if err := face.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(t.faces, size)
	}
	clear(t.layers)
	return errors.Join(errs...)
}

var _ ports.SubtitleRenderer = (*Typesetter)(nil)

func (l *layer) glyph(x, y int, coverage []byte, c color.NRGBA) ports.Glyph {
	return ports.Glyph{
		X: x, Y: y,
		Width: l.width, Height: l.height, Stride: l.width,
		Coverage: coverage,
		Color:    c,
	}
}

func (t *Typesetter) face(size float64) font.Face {
	if f, ok := t.faces[size]; ok {
		return f
	}
	hinting := font.HintingNone
	if t.opts.Hinting {
		hinting = font.HintingFull
	}
	f := truetype.NewFace(t.font, &truetype.Options{Size: size, DPI: 72, Hinting: hinting})
	t.faces[size] = f
	return f
}

func (t *Typesetter) layer(i int) *layer {
	if l, ok := t.layers[i]; ok {
		return l
	}
	l := t.rasterize(t.cues[i])
	t.layers[i] = l
	return l
}

// rasterize draws the cue lines in white and keeps the alpha channel as
// coverage. The outline is a disc-shaped dilation of the text.
func (t *Typesetter) rasterize(c cue) *layer {
	size := c.style.size * t.scale
	border := c.style.outline * t.scale
	face := t.face(size)

	probe := gg.NewContext(1, 1)
	probe.SetFontFace(face)
	lineH := probe.FontHeight() * lineSpacing
	textW := 0.0
	for _, line := range c.lines {
		w, _ := probe.MeasureString(line)
		textW = max(textW, w)
	}
	if textW <= 0 {
		return nil
	}

	pad := int(math.Ceil(border)) + 1
	w := int(math.Ceil(textW)) + 2*pad
	h := int(math.Ceil(lineH*float64(len(c.lines)))) + 2*pad

	drawText := func(dc *gg.Context, dx, dy float64) {
		for k, line := range c.lines {
			cy := float64(pad) + lineH*(float64(k)+0.5)
			dc.DrawStringAnchored(line, float64(w)/2+dx, cy+dy, 0.5, 0.5)
		}
	}

	l := &layer{width: w, height: h}
	l.fill = mask(w, h, face, func(dc *gg.Context) { drawText(dc, 0, 0) })
	if border > 0 {
		n := int(math.Ceil(border))
		l.outline = mask(w, h, face, func(dc *gg.Context) {
			for dy := -n; dy <= n; dy++ {
				for dx := -n; dx <= n; dx++ {
					if float64(dx*dx+dy*dy) > border*border {
						continue
					}
					drawText(dc, float64(dx), float64(dy))
				}
			}
		})
	}

	if par := t.opts.PixelAspect; par > 0 && par != 1 {
		nw := max(int(math.Round(float64(w)/par)), 1)
		l.fill = stretch(l.fill, w, h, nw)
		if l.outline != nil {
			l.outline = stretch(l.outline, w, h, nw)
		}
		l.width = nw
	}
	return l
}

func mask(w, h int, face font.Face, paint func(dc *gg.Context)) []byte {
	dc := gg.NewContext(w, h)
	dc.SetFontFace(face)
	dc.SetRGB(1, 1, 1)
	paint(dc)

	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return make([]byte, w*h)
	}
	cov := make([]byte, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			cov[y*w+x] = row[x*4+3]
		}
	}
	return cov
}

// stretch resamples a coverage mask to a new width.
func stretch(cov []byte, w, h, nw int) []byte {
	src := &image.Alpha{Pix: cov, Stride: w, Rect: image.Rect(0, 0, w, h)}
	dst := image.NewAlpha(image.Rect(0, 0, nw, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst.Pix
}

