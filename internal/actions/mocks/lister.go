// Package mocks provides test doubles for the actions package.
package mocks

import (
	"context"
	"slices"
	"sync"

	"github.com/nicholas-fedor/lookout/pkg/image"
)

// MockLister is an ImageLister returning a fixed image list.
type MockLister struct {
	Images []image.Image

	mu    sync.Mutex
	calls [][]string
}

// NewMockLister creates a lister returning images.
func NewMockLister(images ...image.Image) *MockLister {
	return &MockLister{Images: images}
}

// Local builds a runtime image with a known current digest.
func Local(ref, digest string) image.Image {
	return image.MustNew(ref).WithCurrentDigest(digest)
}

// ListImages returns the configured images and records the requested references.
func (m *MockLister) ListImages(_ context.Context, references []string) []image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, slices.Clone(references))

	return slices.Clone(m.Images)
}

// Calls returns the references passed to each ListImages call.
func (m *MockLister) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.calls)
}
