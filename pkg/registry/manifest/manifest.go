// Package manifest builds the registry URLs and headers used to look up an
// image's manifest digest.
package manifest

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/lookout/pkg/image"
)

// Docker distribution manifest media types, not covered by image-spec.
const (
	MediaTypeDockerManifestList = "application/vnd.docker.distribution.manifest.list.v2+json"
	MediaTypeDockerManifest     = "application/vnd.docker.distribution.manifest.v2+json"
)

// errIncompleteImage indicates an Image lacks the fields needed for a manifest URL.
var errIncompleteImage = errors.New("image has no registry, repository or tag")

// AcceptedMediaTypes lists manifest types in preference order. Multi-platform
// indexes come first so the digest matches what a pull of the tag resolves to.
var AcceptedMediaTypes = []string{
	ocispec.MediaTypeImageIndex,
	MediaTypeDockerManifestList,
	ocispec.MediaTypeImageManifest,
	MediaTypeDockerManifest,
}

// AcceptHeader returns the Accept header value for manifest requests.
func AcceptHeader() string {
	return strings.Join(AcceptedMediaTypes, ", ")
}

// BuildManifestURL constructs the manifest URL for an image's tracked tag.
//
// Parameters:
//   - img: Image with registry, repository and tag.
//   - scheme: The scheme to use for the URL (e.g., "https" or "http").
//
// Returns:
//   - string: Manifest URL (e.g., "https://index.docker.io/v2/library/alpine/manifests/latest").
//   - error: Non-nil if the image is missing a component.
func BuildManifestURL(img image.Image, scheme string) (string, error) {
	if img.Registry == "" || img.Repository == "" || img.Tag == "" {
		return "", fmt.Errorf("%w: %q", errIncompleteImage, img.Reference)
	}

	manifestURL := url.URL{
		Scheme: scheme,
		Host:   img.Registry,
		Path:   fmt.Sprintf("/v2/%s/manifests/%s", img.Repository, img.Tag),
	}
	urlStr := manifestURL.String()

	logrus.WithFields(logrus.Fields{
		"image": img.Reference,
		"url":   urlStr,
	}).Trace("Built manifest URL")

	return urlStr, nil
}
