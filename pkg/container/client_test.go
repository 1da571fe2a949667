package container_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	dockerImageType "github.com/docker/docker/api/types/image"
	dockerClient "github.com/docker/docker/client"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/lookout/pkg/container"
)

var (
	nginxDigest = "sha256:" + strings.Repeat("a", 64)
	appDigest   = "sha256:" + strings.Repeat("b", 64)
)

// fakeAPI serves canned daemon responses.
type fakeAPI struct {
	summaries []dockerImageType.Summary
	listErr   error
	inspected map[string]dockerImageType.InspectResponse
	inspectErr map[string]error
}

func (f *fakeAPI) ImageList(context.Context, dockerImageType.ListOptions) ([]dockerImageType.Summary, error) {
	return f.summaries, f.listErr
}

func (f *fakeAPI) ImageInspect(
	_ context.Context,
	ref string,
	_ ...dockerClient.ImageInspectOption,
) (dockerImageType.InspectResponse, error) {
	if err, ok := f.inspectErr[ref]; ok {
		return dockerImageType.InspectResponse{}, err
	}

	if res, ok := f.inspected[ref]; ok {
		return res, nil
	}

	return dockerImageType.InspectResponse{}, fmt.Errorf("no such image %s: %w", ref, cerrdefs.ErrNotFound)
}

var _ = ginkgo.Describe("Client", func() {
	var api *fakeAPI

	ginkgo.BeforeEach(func() {
		api = &fakeAPI{
			summaries: []dockerImageType.Summary{
				{
					ID:          "sha256:1",
					RepoTags:    []string{"nginx:1.27", "nginx:latest"},
					RepoDigests: []string{"nginx@" + nginxDigest},
				},
				{ID: "sha256:2", RepoTags: []string{"<none>:<none>"}},
				{ID: "sha256:3", RepoTags: []string{"localhost:5000/local/build:dev"}},
			},
			inspected: map[string]dockerImageType.InspectResponse{
				"ghcr.io/owner/app:1": {RepoDigests: []string{
					"ghcr.io/other/app@" + nginxDigest,
					"ghcr.io/owner/app@" + appDigest,
				}},
			},
			inspectErr: map[string]error{},
		}
	})

	ginkgo.Describe("ListImages without references", func() {
		ginkgo.It("should return one image per repo tag with matching digests", func() {
			images := container.NewClientWithAPI(api).ListImages(context.Background(), nil)

			gomega.Expect(images).To(gomega.HaveLen(3))
			gomega.Expect(images[0].Reference).To(gomega.Equal("nginx:1.27"))
			gomega.Expect(images[0].CurrentDigest).To(gomega.Equal(nginxDigest))
			gomega.Expect(images[1].Tag).To(gomega.Equal("latest"))
			gomega.Expect(images[1].CurrentDigest).To(gomega.Equal(nginxDigest))
			gomega.Expect(images[2].Registry).To(gomega.Equal("localhost:5000"))
			gomega.Expect(images[2].CurrentDigest).To(gomega.BeEmpty())
		})

		ginkgo.It("should fail open when the daemon is unreachable", func() {
			api.listErr = errors.New("Cannot connect to the Docker daemon")

			gomega.Expect(container.NewClientWithAPI(api).ListImages(context.Background(), nil)).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("ListImages with references", func() {
		ginkgo.It("should inspect each reference and skip missing ones", func() {
			api.inspectErr["broken:1"] = errors.New("daemon hiccup")

			images := container.NewClientWithAPI(api).ListImages(context.Background(),
				[]string{"ghcr.io/owner/app:1", "missing:1", "broken:1", "Not Valid"})

			gomega.Expect(images).To(gomega.HaveLen(1))
			gomega.Expect(images[0].Reference).To(gomega.Equal("ghcr.io/owner/app:1"))
			gomega.Expect(images[0].CurrentDigest).To(gomega.Equal(appDigest))
		})
	})

	ginkgo.It("should close without an underlying connection", func() {
		gomega.Expect(container.NewClientWithAPI(api).Close()).To(gomega.Succeed())
	})
})
