package container

import (
	"github.com/distribution/reference"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/lookout/pkg/image"
)

// untagged is what the daemon reports for dangling images.
const untagged = "<none>:<none>"

// fromRepoTags builds one image per usable repo tag.
//
// Parameters:
//   - repoTags: Tags as reported by the daemon, e.g. "nginx:1.27".
//   - repoDigests: Digests as reported by the daemon, e.g. "nginx@sha256:...".
//
// Returns:
//   - []image.Image: Parsed images with matching current digests.
func fromRepoTags(repoTags, repoDigests []string) []image.Image {
	images := make([]image.Image, 0, len(repoTags))

	for _, tag := range repoTags {
		if tag == untagged || tag == "" {
			continue
		}

		img, err := image.New(tag)
		if err != nil {
			logrus.WithError(err).WithField("tag", tag).Debug("Skipping unparsable repo tag")

			continue
		}

		images = append(images, img.WithCurrentDigest(matchRepoDigest(img, repoDigests)))
	}

	return images
}

// matchRepoDigest returns the digest of the repo digest naming img's repository.
// Locally built images have none and yield an empty digest.
func matchRepoDigest(img image.Image, repoDigests []string) string {
	for _, repoDigest := range repoDigests {
		named, err := reference.ParseNormalizedNamed(repoDigest)
		if err != nil {
			continue
		}

		canonical, ok := named.(reference.Canonical)
		if !ok {
			continue
		}

		if canonical.Name() == img.Name() {
			return canonical.Digest().String()
		}
	}

	return ""
}
