package nullsink

import (
	"image"
	"testing"
)

func TestSink_DiscardsEverything(t *testing.T) {
	s := New()
	if s.Enabled() {
		t.Error("expected Enabled to return false")
	}
	if err := s.SaveEventFrame(0, image.NewNRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Errorf("SaveEventFrame: %v", err)
	}
	if err := s.SaveEventsJSON([]byte("[]")); err != nil {
		t.Errorf("SaveEventsJSON: %v", err)
	}
}
