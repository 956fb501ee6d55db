// Package encode implements the per-event finalize stage: split the active
// region, quantize it and write the bitmaps.
package encode

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/ideamans/go-l10n"

	"github.com/cubicibo/ass2bdnxml/pkg/frame"
	"github.com/cubicibo/ass2bdnxml/pkg/pipeline"
	"github.com/cubicibo/ass2bdnxml/pkg/ports"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/quantize"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/split"
)

// Options configures how events are written.
type Options struct {
	OutputDir string
	Split     split.Options
	Policy    split.Policy
	// Quantize selects paletted output. Nil writes true-color bitmaps.
	Quantize *quantize.Options
	// IndependentPalettes quantizes each crop of a split event on its own.
	IndependentPalettes bool
}

// Stage writes the bitmaps of one event.
type Stage struct {
	codec     ports.ImageCodec
	quantizer *quantize.Adapter
	sink      ports.DebugSink
	logger    ports.Logger
	opts      Options
}

// NewStage creates a new encode stage. quantizer may be nil when
// opts.Quantize is nil.
func NewStage(codec ports.ImageCodec, quantizer *quantize.Adapter, sink ports.DebugSink, logger ports.Logger, opts Options) *Stage {
	if opts.Policy == nil {
		opts.Policy = split.Always{}
	}
	return &Stage{
		codec:     codec,
		quantizer: quantizer,
		sink:      sink,
		logger:    logger.WithComponent("encode"),
		opts:      opts,
	}
}

// FileName returns the image name of crop part of event index. part < 0
// names an undivided event.
func FileName(index, part int) string {
	if part < 0 {
		return fmt.Sprintf("%08d.png", index)
	}
	return fmt.Sprintf("%08d_%d.png", index, part)
}

// Execute splits, quantizes and writes one event. Image write failures are
// reported in the result; quantization failures abort.
func (s *Stage) Execute(ctx context.Context, input pipeline.EncodeInput) (pipeline.EncodeResult, error) {
	result := pipeline.EncodeResult{Index: input.Index, Crops: [2]frame.BoundingBox{frame.NoBox, frame.NoBox}}

	select {
	case <-ctx.Done():
		return result, ctx.Err()
	default:
	}

	f := input.Frame
	box := f.Box
	if !box.IsSet() {
		return result, fmt.Errorf("event %d has no active region", input.Index)
	}

	boxes := []frame.BoundingBox{box}
	names := []string{FileName(input.Index, -1)}
	if s.opts.Split.Mode != split.ModeOff && s.opts.Policy.NeedsSplit(f, box) {
		if r, ok := split.Find(f, box, s.opts.Split); ok {
			boxes = []frame.BoundingBox{r.A, r.B}
			names = []string{FileName(input.Index, 0), FileName(input.Index, 1)}
			result.Crops = [2]frame.BoundingBox{r.A, r.B}
			result.Split = true
			s.logger.Debug("Event %d split %s at %d: %d -> %d pixels", input.Index, axis(r.Vertical), r.Cut, box.Area(), r.Area)
		}
	}

	if s.sink.Enabled() {
		if err := s.sink.SaveEventFrame(input.Index, f.SubImage(box)); err != nil {
			s.logger.Warn(l10n.F("Failed to save debug frame %d: %s", input.Index, err))
		}
	}

	images, err := s.prepare(f, box, boxes, &result)
	if err != nil {
		return result, fmt.Errorf("event %d: %w", input.Index, err)
	}

	for i, img := range images {
		result.Files = append(result.Files, names[i])
		result.Sizes = append(result.Sizes, [2]int{boxes[i].Width(), boxes[i].Height()})
		if result.WriteErr != nil {
			continue
		}
		if err := s.write(filepath.Join(s.opts.OutputDir, names[i]), img); err != nil {
			s.logger.Warn(l10n.F("Failed to write %s: %s", names[i], err))
			result.WriteErr = err
		}
	}
	return result, nil
}

// prepare produces one image per box, quantized when configured.
func (s *Stage) prepare(f *frame.Frame, box frame.BoundingBox, boxes []frame.BoundingBox, result *pipeline.EncodeResult) ([]image.Image, error) {
	images := make([]image.Image, len(boxes))
	q := s.opts.Quantize
	if q == nil {
		for i, b := range boxes {
			images[i] = f.SubImage(b)
		}
		return images, nil
	}
	if s.quantizer == nil {
		return nil, fmt.Errorf("quantization requested without a quantizer")
	}

	if len(boxes) > 1 && s.opts.IndependentPalettes {
		for i, b := range boxes {
			res, err := s.quantizer.Quantize(f.SubImage(b), *q)
			if err != nil {
				return nil, err
			}
			images[i] = res.Image
			result.Colors = max(result.Colors, len(res.Image.Palette))
			result.Retried = result.Retried || res.Retried
		}
		return images, nil
	}

	guards := make([]image.Point, len(boxes))
	for i, b := range boxes {
		guards[i] = image.Pt(b.X1, b.Y1)
	}
	res, err := s.quantizer.Quantize(f.SubImage(box), *q, guards...)
	if err != nil {
		return nil, err
	}
	for i, b := range boxes {
		images[i] = res.Image.SubImage(b.Rect())
	}
	result.Colors = len(res.Image.Palette)
	result.Retried = res.Retried
	return images, nil
}

func (s *Stage) write(path string, img image.Image) error {
	switch m := img.(type) {
	case *image.Paletted:
		return s.codec.WritePaletted(path, m)
	case *image.NRGBA:
		return s.codec.WriteRGBA(path, m)
	default:
		return fmt.Errorf("unsupported image type %T", img)
	}
}

func axis(vertical bool) string {
	if vertical {
		return "vertically"
	}
	return "horizontally"
}
