package session

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/nicholas-fedor/lookout/pkg/image"
)

// Report is the immutable outcome of one update check.
type Report struct {
	images    []image.Image
	rejected  []*image.ReferenceError
	startedAt time.Time
	duration  time.Duration
}

// NewReport creates a report from annotated images and rejected references.
//
// Parameters:
//   - images: Annotated images in output order.
//   - rejected: References that failed to parse.
//   - startedAt: When the run began.
//   - duration: How long the run took.
//
// Returns:
//   - *Report: Report owning copies of both slices.
func NewReport(
	images []image.Image,
	rejected []*image.ReferenceError,
	startedAt time.Time,
	duration time.Duration,
) *Report {
	return &Report{
		images:    slices.Clone(images),
		rejected:  slices.Clone(rejected),
		startedAt: startedAt,
		duration:  duration,
	}
}

// All returns every checked image in output order.
func (r *Report) All() []image.Image {
	if r == nil {
		return nil
	}

	return slices.Clone(r.images)
}

// Updates returns images with a newer remote digest.
func (r *Report) Updates() []image.Image {
	return r.withStatus(image.StatusUpdateAvailable)
}

// UpToDate returns images whose remote digest matches.
func (r *Report) UpToDate() []image.Image {
	return r.withStatus(image.StatusUpToDate)
}

// Unknown returns images without a local digest to compare against.
func (r *Report) Unknown() []image.Image {
	return r.withStatus(image.StatusUnknown)
}

// Failed returns images whose remote digest could not be resolved.
func (r *Report) Failed() []image.Image {
	return r.withStatus(image.StatusFailed)
}

// Rejected returns references that never became images.
func (r *Report) Rejected() []*image.ReferenceError {
	if r == nil {
		return nil
	}

	return slices.Clone(r.rejected)
}

// StartedAt returns when the run began.
func (r *Report) StartedAt() time.Time {
	return r.startedAt
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	return r.duration
}

// HasUpdates reports whether at least one image has an update.
func (r *Report) HasUpdates() bool {
	return len(r.Updates()) > 0
}

func (r *Report) withStatus(status image.Status) []image.Image {
	if r == nil {
		return nil
	}

	out := make([]image.Image, 0)

	for _, img := range r.images {
		if img.Status() == status {
			out = append(out, img)
		}
	}

	return out
}

// Summary counts images per verdict.
type Summary struct {
	Checked         int `json:"checked"`
	UpToDate        int `json:"up_to_date"`
	UpdateAvailable int `json:"update_available"`
	Unknown         int `json:"unknown"`
	Failed          int `json:"failed"`
	Rejected        int `json:"rejected"`
}

// Summary tallies the report.
func (r *Report) Summary() Summary {
	if r == nil {
		return Summary{}
	}

	summary := Summary{Checked: len(r.images), Rejected: len(r.rejected)}

	for _, img := range r.images {
		switch img.Status() {
		case image.StatusUpToDate:
			summary.UpToDate++
		case image.StatusUpdateAvailable:
			summary.UpdateAvailable++
		case image.StatusUnknown:
			summary.Unknown++
		case image.StatusFailed:
			summary.Failed++
		case image.StatusUnresolved:
		}
	}

	return summary
}

// MarshalJSON renders the report as served by the API and printed by --raw.
func (r *Report) MarshalJSON() ([]byte, error) {
	images := r.All()
	if images == nil {
		images = []image.Image{}
	}

	rejected := r.Rejected()
	if rejected == nil {
		rejected = []*image.ReferenceError{}
	}

	return json.Marshal(struct {
		Images    []image.Image           `json:"images"`
		Rejected  []*image.ReferenceError `json:"rejected"`
		Summary   Summary                 `json:"metrics"`
		CheckedAt time.Time               `json:"checked_at"`
		Duration  string                  `json:"duration"`
	}{
		Images:    images,
		Rejected:  rejected,
		Summary:   r.Summary(),
		CheckedAt: r.startedAt,
		Duration:  r.duration.String(),
	})
}
