// Package timecode models broadcast frame rates and converts between 1-based
// frame indices, SMPTE non-drop timecodes and millisecond timestamps.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrUnknownFrameRate is returned when a frame rate name is not supported.
	ErrUnknownFrameRate = errors.New("unknown frame rate")
	// ErrUnknownVideoFormat is returned when a video format name is not supported.
	ErrUnknownVideoFormat = errors.New("unknown video format")
	// ErrInvalidFrameRate is returned for a frame rate with a zero numerator or denominator.
	ErrInvalidFrameRate = errors.New("invalid frame rate")
)

// FrameRate describes an exact rational frame rate.
// Rate is the nominal integer rate used for timecode arithmetic.
type FrameRate struct {
	Name string
	Rate int
	Num  int64
	Den  int64
}

// FrameRates lists the frame rates accepted by BDN authoring tools.
var FrameRates = []FrameRate{
	{Name: "23.976", Rate: 24, Num: 24000, Den: 1001},
	{Name: "24", Rate: 24, Num: 24, Den: 1},
	{Name: "25", Rate: 25, Num: 25, Den: 1},
	{Name: "29.97", Rate: 30, Num: 30000, Den: 1001},
	{Name: "50", Rate: 50, Num: 50, Den: 1},
	{Name: "59.94", Rate: 60, Num: 60000, Den: 1001},
}

// LookupFrameRate finds a frame rate by name, case-insensitively.
func LookupFrameRate(name string) (FrameRate, error) {
	for _, r := range FrameRates {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return FrameRate{}, fmt.Errorf("%w: %q", ErrUnknownFrameRate, name)
}

// Validate checks the rational representation and the nominal rate.
func (r FrameRate) Validate() error {
	if r.Num <= 0 || r.Den <= 0 {
		return fmt.Errorf("%w: %d/%d", ErrInvalidFrameRate, r.Num, r.Den)
	}
	if nominal := int(math.Round(float64(r.Num) / float64(r.Den))); nominal != r.Rate {
		return fmt.Errorf("%w: nominal rate %d does not match %d/%d", ErrInvalidFrameRate, r.Rate, r.Num, r.Den)
	}
	return nil
}

// FrameDurationMs returns the exact duration of one frame in milliseconds.
func (r FrameRate) FrameDurationMs() float64 {
	return 1000 * float64(r.Den) / float64(r.Num)
}

// MaxFrame is the largest 1-based frame index representable before the
// hour field of a timecode overflows 99.
func (r FrameRate) MaxFrame() int64 {
	return int64(r.Rate) * 3600 * 100
}

// Sampling selects the phase at which a frame is sampled.
type Sampling int

const (
	// SamplePTSIn samples at the frame start, rounding in floating point.
	SamplePTSIn Sampling = iota
	// SamplePTSInInt samples at the frame start, rounding in integer arithmetic.
	SamplePTSInInt
	// SamplePTSMid samples half a frame after the frame start.
	SamplePTSMid
	// SamplePTSMidInt samples half a frame after the start, integer rounding.
	SamplePTSMidInt
)

// FrameToMs converts a 1-based frame index to a millisecond timestamp.
func (r FrameRate) FrameToMs(frame int64, s Sampling) int64 {
	switch s {
	case SamplePTSInInt:
		return divRoundClosest(1000*(frame-1)*r.Den, r.Num)
	case SamplePTSMid:
		return int64(math.Round(float64((1000*frame-500)*r.Den) / float64(r.Num)))
	case SamplePTSMidInt:
		return divRoundClosest((1000*frame-500)*r.Den, r.Num)
	default:
		return int64(math.Round(float64(1000*(frame-1)*r.Den) / float64(r.Num)))
	}
}

// MsToFrames converts a millisecond duration to a whole number of frames,
// truncating.
func (r FrameRate) MsToFrames(ms int64) int64 {
	if ms <= 0 {
		return 0
	}
	return ms * r.Num / (r.Den * 1000)
}

func divRoundClosest(n, d int64) int64 {
	return (n + d/2) / d
}

// VideoFormat is a named target video raster.
type VideoFormat struct {
	Name   string
	Width  int
	Height int
}

// VideoFormats lists the supported video formats.
var VideoFormats = []VideoFormat{
	{Name: "1080p", Width: 1920, Height: 1080},
	{Name: "1080i", Width: 1920, Height: 1080},
	{Name: "720p", Width: 1280, Height: 720},
	{Name: "576i", Width: 720, Height: 576},
	{Name: "480p", Width: 720, Height: 480},
	{Name: "480i", Width: 720, Height: 480},
}

// LookupVideoFormat finds a video format by name, case-insensitively.
func LookupVideoFormat(name string) (VideoFormat, error) {
	for _, v := range VideoFormats {
		if strings.EqualFold(v.Name, name) {
			return v, nil
		}
	}
	return VideoFormat{}, fmt.Errorf("%w: %q", ErrUnknownVideoFormat, name)
}
