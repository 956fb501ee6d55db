package description

import (
	"bytes"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// MarkdownFormatter renders a human-readable run summary.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate headings and labels.
func WithTranslator(t func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = t
	}
}

// WithVersion adds the program version to the footer.
func WithVersion(v string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = v
	}
}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(d *Description) ([]byte, error) {
	t := f.translate
	var b bytes.Buffer

	fmt.Fprintf(&b, "# %s\n\n", t("Subtitle Summary"))

	fmt.Fprintf(&b, "## %s\n\n", t("Track"))
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Track Name"), d.TrackName)
	fmt.Fprintf(&b, "| %s | %s |\n", t("Language"), d.Language)
	fmt.Fprintf(&b, "| %s | %s @ %s |\n", t("Format"), d.VideoFormat, d.FrameRate)
	fmt.Fprintf(&b, "| %s | %s - %s |\n", t("Content"), d.ContentInTC, d.ContentOutTC)
	fmt.Fprintf(&b, "| %s | %s |\n\n", t("Events"), humanize.Comma(int64(len(d.Events))))

	s := d.Stats
	fmt.Fprintf(&b, "## %s\n\n", t("Sampling"))
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Samples"), humanize.Comma(int64(s.Samples)))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Idle Jumps"), humanize.Comma(int64(s.Jumps)))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Merged Samples"), humanize.Comma(int64(s.Merged)))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Empty Changes"), humanize.Comma(int64(s.Spurious)))
	fmt.Fprintf(&b, "| %s | %s |\n\n", t("Frames Covered"), humanize.Comma(s.Frames))

	fmt.Fprintf(&b, "## %s\n\n", t("Output"))
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Bitmaps"), humanize.Comma(int64(s.Files)))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Bitmap Area"), humanize.Comma(s.Pixels))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Uncompressed Size"), formatBytes(s.Pixels*4))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Palette Retries"), humanize.Comma(int64(s.PaletteRetries)))
	fmt.Fprintf(&b, "| %s | %s |\n", t("Write Failures"), humanize.Comma(int64(s.WriteFailures)))
	if s.Elapsed > 0 {
		fmt.Fprintf(&b, "| %s | %s |\n", t("Elapsed"), s.Elapsed.Round(time.Millisecond))
	}
	b.WriteString("\n")

	if s.WriteFailures > 0 {
		fmt.Fprintf(&b, "## %s\n\n", t("Missing Bitmaps"))
		for _, ev := range d.Events {
			if !ev.WriteFailed {
				continue
			}
			for _, g := range ev.Graphics {
				fmt.Fprintf(&b, "- %s (%s - %s)\n", g.File, ev.InTC, ev.OutTC)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	footer := t("Generated at") + " " + d.GeneratedAt.Format(time.RFC3339)
	if d.RunID != "" {
		footer += " (" + d.RunID + ")"
	}
	if f.version != "" {
		footer += " by ass2bdnxml " + f.version
	}
	b.WriteString(footer + "\n")
	return b.Bytes(), nil
}

// formatBytes uses IEC units (KiB, MiB).
func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
