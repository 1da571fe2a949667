// Package format renders check reports for the terminal.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nicholas-fedor/lookout/pkg/image"
	"github.com/nicholas-fedor/lookout/pkg/session"
)

// Options control text rendering.
type Options struct {
	Icons bool // Prefix group headings with an icon.
}

// group is one verdict section of the text output.
type group struct {
	status image.Status
	icon   string
	images []image.Image
}

// rejectedHeading labels references that never became images.
const rejectedHeading = "rejected"

var title = cases.Title(language.English)

// Heading returns the display label for a verdict, e.g. "Update Available".
func Heading(status image.Status) string {
	return title.String(strings.ReplaceAll(string(status), "_", " "))
}

// Text writes the report grouped by verdict followed by a summary line.
// Failed images carry their error and unknown ones the remote digest.
//
// Parameters:
//   - w: Destination writer.
//   - report: Report to render.
//   - opts: Rendering options.
//
// Returns:
//   - error: Non-nil if writing fails.
func Text(w io.Writer, report *session.Report, opts Options) error {
	groups := []group{
		{status: image.StatusUpdateAvailable, icon: "↑", images: report.Updates()},
		{status: image.StatusUpToDate, icon: "✓", images: report.UpToDate()},
		{status: image.StatusUnknown, icon: "?", images: report.Unknown()},
		{status: image.StatusFailed, icon: "✗", images: report.Failed()},
	}

	var builder strings.Builder

	for _, g := range groups {
		if len(g.images) == 0 {
			continue
		}

		writeHeading(&builder, Heading(g.status), g.icon, opts)

		for _, img := range g.images {
			builder.WriteString("  ")
			builder.WriteString(img.Reference)

			switch g.status {
			case image.StatusFailed:
				if err := img.Err(); err != nil {
					builder.WriteString(": ")
					builder.WriteString(err.Error())
				}
			case image.StatusUnknown:
				builder.WriteString(": ")
				builder.WriteString(img.LatestDigest())
			}

			builder.WriteByte('\n')
		}
	}

	if rejected := report.Rejected(); len(rejected) > 0 {
		writeHeading(&builder, title.String(rejectedHeading), "!", opts)

		for _, refErr := range rejected {
			fmt.Fprintf(&builder, "  %s: %s\n", refErr.Reference, refErr.Err)
		}
	}

	fmt.Fprintf(&builder, "Checked %d images in %s\n", report.Summary().Checked, Duration(report.Duration()))

	if _, err := io.WriteString(w, builder.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// JSON writes the report as indented JSON.
func JSON(w io.Writer, report *session.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	return nil
}

// Duration rounds a run duration for display.
func Duration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

func writeHeading(builder *strings.Builder, heading, icon string, opts Options) {
	if opts.Icons {
		builder.WriteString(icon)
		builder.WriteByte(' ')
	}

	builder.WriteString(heading)
	builder.WriteString(":\n")
}
