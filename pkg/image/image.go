// Package image models the container images Lookout tracks.
//
// An Image is constructed from a reference string and always carries a
// non-empty registry host; malformed references fail construction instead.
// Images are values: resolving the latest digest returns an annotated copy and
// leaves the original untouched.
package image

import (
	"errors"
	"fmt"
	"strings"

	"github.com/distribution/reference"

	"github.com/nicholas-fedor/lookout/pkg/registry/helpers"
)

// DefaultTag is tracked when a reference names no tag.
const DefaultTag = "latest"

// ErrReferenceParse tags every reference that cannot be turned into an Image.
var ErrReferenceParse = errors.New("invalid image reference")

// Errors for references that parse but cannot be tracked.
var (
	errEmptyReference = errors.New("reference is empty")
	errDigestOnly     = errors.New("reference is pinned by digest without a tag")
)

// ReferenceError reports a reference rejected at construction.
type ReferenceError struct {
	Reference string
	Err       error
}

// Error implements the error interface.
func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%q: %v", e.Reference, e.Err)
}

// Unwrap exposes the underlying cause, which always wraps ErrReferenceParse.
func (e *ReferenceError) Unwrap() error {
	return e.Err
}

// Result is the outcome of resolving an image's latest digest.
type Result struct {
	Digest string
	Err    error
}

// Image is a single tracked image reference.
type Image struct {
	// Reference is the string the image was created from.
	Reference string
	// Registry is the registry host; Docker Hub is "index.docker.io".
	Registry string
	// Repository is the path used for API calls and token scopes, e.g. "library/alpine".
	Repository string
	// Tag is the tracked tag.
	Tag string
	// CurrentDigest is the locally known manifest digest, empty when unknown.
	CurrentDigest string

	name   string
	latest *Result
}

// New parses a reference into an Image.
//
// Short Docker Hub names are normalized ("alpine" becomes
// index.docker.io/library/alpine:latest). A digest given alongside a tag is
// taken as the current digest; a digest without a tag is rejected because there
// is no tag to compare against.
//
// Parameters:
//   - ref: Image reference string.
//
// Returns:
//   - Image: Parsed image without a resolved latest digest.
//   - error: *ReferenceError wrapping ErrReferenceParse on failure.
func New(ref string) (Image, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return Image{}, rejected(ref, errEmptyReference)
	}

	named, err := reference.ParseNormalizedNamed(trimmed)
	if err != nil {
		return Image{}, rejected(ref, err)
	}

	tag := ""
	if tagged, ok := named.(reference.Tagged); ok {
		tag = tagged.Tag()
	}

	current := ""
	if digested, ok := named.(reference.Digested); ok {
		if tag == "" {
			return Image{}, rejected(ref, errDigestOnly)
		}

		current = digested.Digest().String()
	}

	if tag == "" {
		tag = DefaultTag
	}

	registry := helpers.CanonicalRegistry(reference.Domain(named))
	if registry == "" {
		return Image{}, rejected(ref, fmt.Errorf("no registry in %q", trimmed))
	}

	return Image{
		Reference:     trimmed,
		Registry:      registry,
		Repository:    reference.Path(named),
		Tag:           tag,
		CurrentDigest: current,
		name:          named.Name(),
	}, nil
}

// MustNew is New for references known to be valid; it panics otherwise.
func MustNew(ref string) Image {
	img, err := New(ref)
	if err != nil {
		panic(err)
	}

	return img
}

func rejected(ref string, cause error) error {
	return &ReferenceError{Reference: ref, Err: fmt.Errorf("%w: %w", ErrReferenceParse, cause)}
}

// Name returns the normalized repository name, e.g. "docker.io/library/alpine".
func (i Image) Name() string {
	return i.name
}

// Canonical returns the normalized name:tag used to detect duplicate references.
func (i Image) Canonical() string {
	return i.name + ":" + i.Tag
}

// WithCurrentDigest returns a copy carrying digest as the locally known digest.
func (i Image) WithCurrentDigest(digest string) Image {
	i.CurrentDigest = digest

	return i
}

// Resolved returns a copy whose latest digest is set to digest.
func (i Image) Resolved(digest string) Image {
	i.latest = &Result{Digest: digest}

	return i
}

// Failed returns a copy whose latest digest resolution failed with err.
func (i Image) Failed(err error) Image {
	i.latest = &Result{Err: err}

	return i
}

// Latest returns the resolution result, nil while unresolved.
func (i Image) Latest() *Result {
	if i.latest == nil {
		return nil
	}

	res := *i.latest

	return &res
}

// LatestDigest returns the resolved remote digest, empty if unresolved or failed.
func (i Image) LatestDigest() string {
	if i.latest == nil || i.latest.Err != nil {
		return ""
	}

	return i.latest.Digest
}

// Err returns the resolution error, nil if unresolved or successful.
func (i Image) Err() error {
	if i.latest == nil {
		return nil
	}

	return i.latest.Err
}

// Status derives the update verdict from the current and latest digests.
func (i Image) Status() Status {
	switch {
	case i.latest == nil:
		return StatusUnresolved
	case i.latest.Err != nil:
		return StatusFailed
	case i.CurrentDigest == "":
		return StatusUnknown
	case helpers.DigestsEqual(i.CurrentDigest, i.latest.Digest):
		return StatusUpToDate
	default:
		return StatusUpdateAvailable
	}
}
