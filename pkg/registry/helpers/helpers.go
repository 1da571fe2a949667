// Package helpers provides small registry utilities shared by the auth, digest
// and image packages: registry host resolution and digest normalisation.
package helpers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
)

// Domains for Docker Hub, the default registry.
const (
	DefaultRegistryDomain       = "docker.io"
	DefaultRegistryHost         = "index.docker.io"
	LegacyDefaultRegistryDomain = "index.docker.io"
	LegacyDockerHubAddress      = "https://index.docker.io/v1/"
)

// errInvalidDigest indicates a registry returned a digest go-digest cannot parse.
var errInvalidDigest = errors.New("invalid content digest")

// GetRegistryAddress extracts the registry host from an image reference.
//
// Docker Hub's default domain is mapped to its API host so callers always talk
// to index.docker.io.
//
// Parameters:
//   - imageRef: Image reference string (e.g., "ghcr.io/owner/app:1.2").
//
// Returns:
//   - string: Registry host.
//   - error: Non-nil if the reference cannot be parsed.
func GetRegistryAddress(imageRef string) (string, error) {
	normalizedRef, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return "", fmt.Errorf("failed to parse image reference: %w", err)
	}

	return CanonicalRegistry(reference.Domain(normalizedRef)), nil
}

// CanonicalRegistry maps any spelling of Docker Hub to its API host and leaves
// other hosts untouched.
func CanonicalRegistry(host string) string {
	switch strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://"), "/") {
	case DefaultRegistryDomain, LegacyDefaultRegistryDomain, "index.docker.io/v1", "registry-1.docker.io":
		return DefaultRegistryHost
	}

	return host
}

// IsDockerHub reports whether host names Docker Hub.
func IsDockerHub(host string) bool {
	return CanonicalRegistry(host) == DefaultRegistryHost
}

// NormalizeDigest standardizes a digest string for comparison.
//
// Surrounding whitespace is dropped, the value is lower-cased and a sha256
// algorithm prefix is removed, so "SHA256:ABC" and "abc" compare equal. Digests
// of other algorithms keep their prefix.
//
// Parameters:
//   - value: Raw digest string.
//
// Returns:
//   - string: Normalized digest.
func NormalizeDigest(value string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))

	if parsed, err := digest.Parse(trimmed); err == nil && parsed.Algorithm() == digest.SHA256 {
		return parsed.Encoded()
	}

	return strings.TrimPrefix(trimmed, digest.SHA256.String()+":")
}

// DigestsEqual compares two digests after normalisation. Empty digests never match.
func DigestsEqual(a, b string) bool {
	left, right := NormalizeDigest(a), NormalizeDigest(b)

	return left != "" && left == right
}

// ParseDigest validates a registry-supplied digest and returns its canonical form.
//
// A well-formed digest whose encoded part has an unexpected length is kept as
// given, lower-cased, since the verdict only compares digests for equality.
//
// Parameters:
//   - value: Digest as received, e.g. from Docker-Content-Digest.
//
// Returns:
//   - string: Canonical "algorithm:hex" form.
//   - error: Non-nil if the value is not a digest at all.
func ParseDigest(value string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))

	parsed, err := digest.Parse(trimmed)
	if errors.Is(err, digest.ErrDigestInvalidLength) {
		return trimmed, nil
	}

	if err != nil {
		return "", fmt.Errorf("%w %q: %w", errInvalidDigest, value, err)
	}

	return parsed.String(), nil
}
