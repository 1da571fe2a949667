package image_test

import (
	"encoding/json"
	"errors"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/lookout/pkg/image"
)

const pinned = "sha256:d68e1e532088964195ad3a0a71526bc2f11a78de0def85629beb75e2265f0547"

var _ = ginkgo.Describe("Image", func() {
	ginkgo.Describe("New", func() {
		ginkgo.It("should normalize short Docker Hub references", func() {
			img, err := image.New("alpine")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(img.Registry).To(gomega.Equal("index.docker.io"))
			gomega.Expect(img.Repository).To(gomega.Equal("library/alpine"))
			gomega.Expect(img.Tag).To(gomega.Equal(image.DefaultTag))
			gomega.Expect(img.Canonical()).To(gomega.Equal("docker.io/library/alpine:latest"))
			gomega.Expect(img.Status()).To(gomega.Equal(image.StatusUnresolved))
		})

		ginkgo.It("should keep explicit registries, ports and tags", func() {
			img, err := image.New("localhost:5000/team/app:1.2")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(img.Registry).To(gomega.Equal("localhost:5000"))
			gomega.Expect(img.Repository).To(gomega.Equal("team/app"))
			gomega.Expect(img.Tag).To(gomega.Equal("1.2"))
			gomega.Expect(img.Reference).To(gomega.Equal("localhost:5000/team/app:1.2"))
		})

		ginkgo.It("should take a digest next to a tag as the current digest", func() {
			img, err := image.New("ghcr.io/owner/app:v1@" + pinned)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(img.Tag).To(gomega.Equal("v1"))
			gomega.Expect(img.CurrentDigest).To(gomega.Equal(pinned))
		})

		ginkgo.DescribeTable("should reject references it cannot track",
			func(ref string) {
				_, err := image.New(ref)
				gomega.Expect(err).To(gomega.MatchError(image.ErrReferenceParse))

				var refErr *image.ReferenceError
				gomega.Expect(errors.As(err, &refErr)).To(gomega.BeTrue())
				gomega.Expect(refErr.Reference).To(gomega.Equal(ref))
			},
			ginkgo.Entry("empty", ""),
			ginkgo.Entry("whitespace", "   "),
			ginkgo.Entry("upper case repository", "Alpine"),
			ginkgo.Entry("invalid characters", "alpine:!!"),
			ginkgo.Entry("digest only", "alpine@"+pinned),
		)
	})

	ginkgo.Describe("Status", func() {
		base := image.MustNew("a.example/x:latest")

		ginkgo.It("should report up to date when digests match", func() {
			img := base.WithCurrentDigest("sha256:aaa").Resolved("sha256:aaa")
			gomega.Expect(img.Status()).To(gomega.Equal(image.StatusUpToDate))
		})

		ginkgo.It("should report an update when digests differ", func() {
			img := base.WithCurrentDigest("sha256:aaa").Resolved("sha256:bbb")
			gomega.Expect(img.Status()).To(gomega.Equal(image.StatusUpdateAvailable))
		})

		ginkgo.It("should report unknown without a current digest", func() {
			img := base.Resolved("sha256:ccc")
			gomega.Expect(img.Status()).To(gomega.Equal(image.StatusUnknown))
			gomega.Expect(img.LatestDigest()).To(gomega.Equal("sha256:ccc"))
		})

		ginkgo.It("should report failures and hide the digest", func() {
			img := base.WithCurrentDigest("sha256:aaa").Failed(errors.New("boom"))
			gomega.Expect(img.Status()).To(gomega.Equal(image.StatusFailed))
			gomega.Expect(img.Err()).To(gomega.MatchError("boom"))
			gomega.Expect(img.LatestDigest()).To(gomega.BeEmpty())
		})

		ginkgo.It("should leave the original value untouched", func() {
			_ = base.Resolved("sha256:bbb")
			gomega.Expect(base.Latest()).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("MarshalJSON", func() {
		ginkgo.It("should include the derived status and error", func() {
			img := image.MustNew("a.example/x").Failed(errors.New("unreachable"))

			raw, err := json.Marshal(img)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(raw).To(gomega.MatchJSON(`{
				"reference": "a.example/x",
				"registry": "a.example",
				"repository": "x",
				"tag": "latest",
				"status": "failed",
				"error": "unreachable"
			}`))
		})
	})
})
