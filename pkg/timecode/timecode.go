package timecode

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTimecodeOverflow is returned when a timecode exceeds 99 hours.
	ErrTimecodeOverflow = errors.New("timestamp overflow (more than 99 hours)")
	// ErrTimecodeUnderflow is returned for frame indices before the first frame.
	ErrTimecodeUnderflow = errors.New("timestamp before first frame")
	// ErrInvalidTimecode is returned when a timecode string is malformed.
	ErrInvalidTimecode = errors.New("invalid non-drop timecode")
	// ErrFrameAboveRate is returned when the frame field is not below the nominal rate.
	ErrFrameAboveRate = errors.New("frame in timecode is above frame rate")
)

// Format renders a 1-based frame index as HH:MM:SS:FF.
func Format(frame int64, r FrameRate) (string, error) {
	if frame < 1 {
		return "", fmt.Errorf("%w: frame %d", ErrTimecodeUnderflow, frame)
	}
	frame--
	rate := int64(r.Rate)
	ff := frame % rate
	ts := frame / rate
	ss := ts % 60
	ts /= 60
	mm := ts % 60
	hh := ts / 60
	if hh > 99 {
		return "", ErrTimecodeOverflow
	}
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hh, mm, ss, ff), nil
}

// Parse converts HH:MM:SS:FF back to a 1-based frame index.
func Parse(tc string, r FrameRate) (int64, error) {
	n, err := ParseDuration(tc, r)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// ParseDuration converts HH:MM:SS:FF to a frame count, as used for offsets.
func ParseDuration(tc string, r FrameRate) (int64, error) {
	fields := strings.Split(tc, ":")
	if len(tc) != 11 || len(fields) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, tc)
	}
	var vals [4]int64
	for i, f := range fields {
		if len(f) != 2 || f[0] < '0' || f[0] > '9' || f[1] < '0' || f[1] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, tc)
		}
		vals[i] = int64(f[0]-'0')*10 + int64(f[1]-'0')
	}
	if vals[1] >= 60 || vals[2] >= 60 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, tc)
	}
	if vals[3] >= int64(r.Rate) {
		return 0, fmt.Errorf("%w: %d >= %d", ErrFrameAboveRate, vals[3], r.Rate)
	}
	rate := int64(r.Rate)
	return vals[3] + rate*vals[2] + 60*rate*vals[1] + 3600*rate*vals[0], nil
}

// ParseOffset parses a signed timing offset. A leading '-' negates it.
func ParseOffset(s string, r FrameRate) (int64, error) {
	if s == "" {
		return 0, nil
	}
	neg := strings.HasPrefix(s, "-")
	n, err := ParseDuration(strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+"), r)
	if err != nil {
		return 0, err
	}
	if neg {
		n = -n
	}
	return n, nil
}
