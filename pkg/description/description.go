// Package description builds the BDN report that lists every event with its
// timecodes and bitmaps, and formats it as BDN XML or a Markdown summary.
package description

import (
	"fmt"
	"strings"
	"time"
)

// Description is the ordered report of one run.
type Description struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string

	TrackName   string
	Language    string
	VideoFormat string
	FrameRate   string

	FirstInTC    string
	LastOutTC    string
	ContentInTC  string
	ContentOutTC string

	Events []EventRecord

	// Stats is only rendered by the Markdown summary.
	Stats Stats
}

// EventRecord is one event in output order.
type EventRecord struct {
	InTC     string
	OutTC    string
	Forced   bool
	Graphics []Graphic
	// WriteFailed is set when some of the bitmaps could not be written.
	WriteFailed bool
}

// Graphic references one bitmap file and its position on the video frame.
type Graphic struct {
	File   string
	Width  int
	Height int
	X      int
	Y      int
}

// Stats carries the run counters reported in the summary.
type Stats struct {
	Samples        int
	Jumps          int
	Spurious       int
	Merged         int
	Frames         int64
	Files          int
	WriteFailures  int
	PaletteRetries int
	Pixels         int64
	Elapsed        time.Duration
}

// ContentInPolicy selects how ContentInTC is derived.
type ContentInPolicy string

const (
	// ContentInAuto uses 1+offset when the offset is positive, else the
	// first event's in timecode.
	ContentInAuto ContentInPolicy = "auto"
	// ContentInFirstEvent always uses the first event's in timecode.
	ContentInFirstEvent ContentInPolicy = "first-event"
	// ContentInOffset always uses 1+offset.
	ContentInOffset ContentInPolicy = "offset"
)

// ParseContentInPolicy parses a policy name. The empty string is auto.
func ParseContentInPolicy(s string) (ContentInPolicy, error) {
	switch p := ContentInPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ContentInAuto, nil
	case ContentInAuto, ContentInFirstEvent, ContentInOffset:
		return p, nil
	default:
		return "", fmt.Errorf("unknown content-in policy %q", s)
	}
}

// NewDescription creates an empty Description stamped with the current time.
func NewDescription() *Description {
	return &Description{
		GeneratedAt: time.Now(),
	}
}
