// Package digest resolves the registry's current manifest digest for an image's
// tag and annotates the image with the result.
//
// Lookups use a HEAD request when the registry supports it and fall back to GET
// otherwise, so no manifest body is downloaded unless the registry leaves no
// other choice.
package digest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	godigest "github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/lookout/pkg/image"
	"github.com/nicholas-fedor/lookout/pkg/registry/client"
	"github.com/nicholas-fedor/lookout/pkg/registry/helpers"
	"github.com/nicholas-fedor/lookout/pkg/registry/manifest"
	"github.com/nicholas-fedor/lookout/pkg/types"
)

// ContentDigestHeader is the HTTP header key used to retrieve the digest from a registry's response.
const ContentDigestHeader = "Docker-Content-Digest"

// maxManifestSize bounds a manifest body read when hashing it locally.
const maxManifestSize = 4 << 20

// ErrDigestFetch is wrapped by every failure written to an image's latest digest.
var ErrDigestFetch = errors.New("failed to fetch remote digest")

// Errors for digest retrieval operations.
var (
	errFailedBuildManifestURL = errors.New("failed to build manifest URL")
	errFailedCreateRequest    = errors.New("failed to create request")
	errUnexpectedStatus       = errors.New("unexpected registry status")
	errMissingDigest          = errors.New("registry response carried no digest")
	errManifestTooLarge       = errors.New("manifest exceeds size limit")
)

// errFallbackToGet signals a HEAD response that must be retried as GET.
var errFallbackToGet = errors.New("registry requires GET for digest lookup")

// Check resolves img's remote digest and returns an annotated copy.
//
// Failures never escape: they are recorded on the returned image wrapped in
// ErrDigestFetch, leaving sibling checks unaffected.
//
// Parameters:
//   - ctx: Context bounding the lookup.
//   - img: Image to resolve; it is not modified.
//   - authHeader: Authorization header value, empty for anonymous registries.
//   - cfg: Run configuration, consulted for the URL scheme.
//   - doer: Shared registry client.
//
// Returns:
//   - image.Image: Copy of img with its latest digest or failure set.
func Check(ctx context.Context, img image.Image, authHeader string, cfg *types.Config, doer client.Doer) image.Image {
	fields := logrus.Fields{"image": img.Reference, "registry": img.Registry}

	remote, err := FetchDigest(ctx, img, authHeader, cfg, doer)
	if err != nil {
		logrus.WithFields(fields).WithError(err).Debug("Digest lookup failed")

		return img.Failed(fmt.Errorf("%w: %w", ErrDigestFetch, err))
	}

	resolved := img.Resolved(remote)

	logrus.WithFields(fields).WithFields(logrus.Fields{
		"current": img.CurrentDigest,
		"remote":  remote,
		"status":  resolved.Status(),
	}).Debug("Resolved remote digest")

	return resolved
}

// FetchDigest returns the canonical digest the registry serves for img's tag.
//
// Parameters:
//   - ctx: Context bounding the lookup.
//   - img: Image to resolve.
//   - authHeader: Authorization header value, may be empty.
//   - cfg: Run configuration.
//   - doer: Shared registry client.
//
// Returns:
//   - string: Digest in "algorithm:hex" form.
//   - error: Non-nil when no valid digest could be obtained.
func FetchDigest(
	ctx context.Context,
	img image.Image,
	authHeader string,
	cfg *types.Config,
	doer client.Doer,
) (string, error) {
	manifestURL, err := manifest.BuildManifestURL(img, cfg.Scheme(img.Registry))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFailedBuildManifestURL, err)
	}

	remote, err := fetchDigest(ctx, manifestURL, authHeader, http.MethodHead, doer)
	if errors.Is(err, errFallbackToGet) {
		logrus.WithField("url", manifestURL).WithError(err).Debug("Falling back to GET for digest")

		remote, err = fetchDigest(ctx, manifestURL, authHeader, http.MethodGet, doer)
	}

	return remote, err
}

// fetchDigest performs one manifest request with the given method.
func fetchDigest(ctx context.Context, manifestURL, authHeader, method string, doer client.Doer) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, manifestURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFailedCreateRequest, err)
	}

	req.Header.Set("Accept", manifest.AcceptHeader())

	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	res, err := doer.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, req.URL.Redacted(), err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusMethodNotAllowed && method == http.MethodHead:
		return "", errFallbackToGet
	case res.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: %s %s returned %s", errUnexpectedStatus, method, req.URL.Redacted(), res.Status)
	}

	if header := res.Header.Get(ContentDigestHeader); header != "" {
		return helpers.ParseDigest(header)
	}

	if method == http.MethodHead {
		return "", fmt.Errorf("%w: %w", errFallbackToGet, errMissingDigest)
	}

	return digestBody(res.Body)
}

// digestBody hashes a manifest body when the registry omits the digest header.
func digestBody(body io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxManifestSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read manifest: %w", err)
	}

	if len(data) > maxManifestSize {
		return "", errManifestTooLarge
	}

	if len(data) == 0 {
		return "", errMissingDigest
	}

	return godigest.FromBytes(data).String(), nil
}
