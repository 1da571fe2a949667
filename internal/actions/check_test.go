package actions_test

import (
	"context"
	"net/http"
	"strings"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/lookout/internal/actions"
	"github.com/nicholas-fedor/lookout/internal/actions/mocks"
	"github.com/nicholas-fedor/lookout/pkg/image"
	"github.com/nicholas-fedor/lookout/pkg/registry/auth"
	"github.com/nicholas-fedor/lookout/pkg/registry/client"
	"github.com/nicholas-fedor/lookout/pkg/registry/digest"
	"github.com/nicholas-fedor/lookout/pkg/session"
	"github.com/nicholas-fedor/lookout/pkg/types"
)

var (
	digest1 = "sha256:" + strings.Repeat("1", 64)
	digest2 = "sha256:" + strings.Repeat("2", 64)
	digest3 = "sha256:" + strings.Repeat("3", 64)
)

func statuses(report *session.Report) map[string]image.Status {
	out := map[string]image.Status{}
	for _, img := range report.All() {
		out[img.Reference] = img.Status()
	}

	return out
}

func references(images []image.Image) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		out = append(out, img.Reference)
	}

	return out
}

var _ = ginkgo.Describe("CheckForUpdates", func() {
	var (
		regA, regB *fakeRegistry
		cfg        *types.Config
		doer       *client.Client
		ctx        context.Context
	)

	ginkgo.BeforeEach(func() {
		regA = newFakeRegistry("a.example", true)
		regB = newFakeRegistry("b.example", false)
		cfg = types.DefaultConfig()
		cfg.InsecureRegistries = []string{"a.example", "b.example"}
		cfg.DockerConfig = ginkgo.GinkgoT().TempDir()
		doer = newRoutingClient(regA, regB)
		ctx = context.Background()
	})

	ginkgo.AfterEach(func() {
		regA.close()
		regB.close()
	})

	run := func(lister actions.ImageLister, refs ...string) *session.Report {
		report, err := actions.CheckForUpdates(ctx, lister, actions.CheckParams{
			References: refs,
			Config:     cfg,
			Client:     doer,
		})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		return report
	}

	ginkgo.When("nothing is requested", func() {
		ginkgo.It("should return an empty report without touching any registry", func() {
			report := run(mocks.NewMockLister())
			gomega.Expect(report.All()).To(gomega.BeEmpty())
			gomega.Expect(report.Rejected()).To(gomega.BeEmpty())
			gomega.Expect(regA.server.ReceivedRequests()).To(gomega.BeEmpty())
		})

		ginkgo.It("should accept a nil lister", func() {
			gomega.Expect(run(nil).All()).To(gomega.BeEmpty())
		})
	})

	ginkgo.When("two images share an authenticated registry", func() {
		ginkgo.BeforeEach(func() {
			regA.setDigest("x:latest", digest1)
			regA.setDigest("y:latest", digest3)
		})

		ginkgo.It("should report x current and y outdated with a single token request", func() {
			report := run(mocks.NewMockLister(
				mocks.Local("a.example/x:latest", digest1),
				mocks.Local("a.example/y:latest", digest2),
			))

			gomega.Expect(statuses(report)).To(gomega.Equal(map[string]image.Status{
				"a.example/x:latest": image.StatusUpToDate,
				"a.example/y:latest": image.StatusUpdateAvailable,
			}))
			gomega.Expect(regA.tokenCalls.Load()).To(gomega.Equal(int32(1)))
			gomega.Expect(regA.scopes()).To(gomega.Equal([][]string{
				{"repository:x:pull", "repository:y:pull"},
			}))
		})

		ginkgo.It("should give identical verdicts on a second run", func() {
			lister := mocks.NewMockLister(
				mocks.Local("a.example/x:latest", digest1),
				mocks.Local("a.example/y:latest", digest2),
			)

			first := statuses(run(lister))
			second := statuses(run(lister))
			gomega.Expect(second).To(gomega.Equal(first))
			gomega.Expect(regA.tokenCalls.Load()).To(gomega.Equal(int32(2)), "tokens are not cached across runs")
		})
	})

	ginkgo.When("many images share a registry under a concurrency cap", func() {
		ginkgo.It("should still request one token and keep input order", func() {
			cfg.Concurrency = 2

			var local []image.Image
			for _, name := range []string{"e", "d", "c", "b", "a"} {
				regA.setDigest(name+":latest", digest1)
				local = append(local, mocks.Local("a.example/"+name, digest1))
			}

			report := run(mocks.NewMockLister(local...))
			gomega.Expect(references(report.All())).To(gomega.Equal(references(local)))
			gomega.Expect(report.UpToDate()).To(gomega.HaveLen(5))
			gomega.Expect(regA.tokenCalls.Load()).To(gomega.Equal(int32(1)))
		})
	})

	ginkgo.When("a registry's auth probe fails", func() {
		ginkgo.BeforeEach(func() {
			regA.probeStatus = http.StatusForbidden
			regB.setDigest("z:latest", digest1)
		})

		ginkgo.It("should fail every image of that registry and no other", func() {
			report := run(mocks.NewMockLister(
				mocks.Local("a.example/x", digest1),
				mocks.Local("b.example/z", digest1),
				mocks.Local("a.example/y", digest2),
			))

			all := report.All()
			gomega.Expect(all).To(gomega.HaveLen(3))
			gomega.Expect(all[0].Err()).To(gomega.MatchError(auth.ErrAuthProbe))
			gomega.Expect(all[0].Err()).To(gomega.MatchError(digest.ErrDigestFetch))
			gomega.Expect(all[2].Err()).To(gomega.MatchError(auth.ErrAuthProbe))
			gomega.Expect(all[1].Status()).To(gomega.Equal(image.StatusUpToDate))
			gomega.Expect(regA.manifests.Load()).To(gomega.BeZero())
			gomega.Expect(regA.tokenCalls.Load()).To(gomega.BeZero())
		})
	})

	ginkgo.When("the token request fails", func() {
		ginkgo.It("should fail the registry's images without token-less lookups", func() {
			regA.tokenStatus = http.StatusUnauthorized
			regA.setDigest("x:latest", digest1)

			report := run(mocks.NewMockLister(mocks.Local("a.example/x", digest1)))
			gomega.Expect(report.Failed()).To(gomega.HaveLen(1))
			gomega.Expect(report.Failed()[0].Err()).To(gomega.MatchError(auth.ErrTokenAcquisition))
			gomega.Expect(regA.manifests.Load()).To(gomega.BeZero())
		})
	})

	ginkgo.When("manifest lookups fail transiently", func() {
		ginkgo.It("should recover within the retry bound and fail beyond it", func() {
			regB.setDigest("ok:latest", digest1)
			regB.setDigest("flaky:latest", digest1)
			regB.setDigest("down:latest", digest1)
			regB.failManifest("flaky:latest", 2)
			regB.failManifest("down:latest", 4)

			report := run(mocks.NewMockLister(
				mocks.Local("b.example/ok", digest1),
				mocks.Local("b.example/flaky", digest1),
				mocks.Local("b.example/down", digest1),
			))

			all := report.All()
			gomega.Expect(all[0].Status()).To(gomega.Equal(image.StatusUpToDate))
			gomega.Expect(all[1].Status()).To(gomega.Equal(image.StatusUpToDate))
			gomega.Expect(all[2].Status()).To(gomega.Equal(image.StatusFailed))
			gomega.Expect(all[2].Err()).To(gomega.MatchError(client.ErrTransient))
		})

		ginkgo.It("should isolate a single missing tag", func() {
			regB.setDigest("ok:latest", digest1)

			report := run(mocks.NewMockLister(
				mocks.Local("b.example/ok", digest1),
				mocks.Local("b.example/gone", digest1),
			))
			gomega.Expect(report.UpToDate()).To(gomega.HaveLen(1))
			gomega.Expect(report.Failed()).To(gomega.HaveLen(1))
			gomega.Expect(report.Failed()[0].Reference).To(gomega.Equal("b.example/gone"))
		})
	})

	ginkgo.When("extra references are requested", func() {
		ginkgo.BeforeEach(func() {
			regB.setDigest("x:latest", digest1)
			regB.setDigest("new:latest", digest2)
		})

		ginkgo.It("should add distinct extras after runtime images and reject invalid ones", func() {
			lister := mocks.NewMockLister(mocks.Local("b.example/x:latest", digest1))

			report := run(lister, "b.example/x", "b.example/new", "Not Valid", "b.example/new:latest")

			gomega.Expect(references(report.All())).To(gomega.Equal([]string{"b.example/x:latest", "b.example/new"}))
			gomega.Expect(report.All()[1].Status()).To(gomega.Equal(image.StatusUnknown))
			gomega.Expect(report.Rejected()).To(gomega.HaveLen(1))
			gomega.Expect(report.Rejected()[0].Reference).To(gomega.Equal("Not Valid"))
			gomega.Expect(report.Rejected()[0]).To(gomega.MatchError(image.ErrReferenceParse))
			gomega.Expect(lister.Calls()).To(gomega.HaveLen(1))
		})
	})

	ginkgo.When("the caller's context ends", func() {
		ginkgo.It("should not expose a partial report", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			report, err := actions.CheckForUpdates(cancelled, mocks.NewMockLister(mocks.Local("b.example/x", digest1)),
				actions.CheckParams{Config: cfg, Client: doer})
			gomega.Expect(err).To(gomega.MatchError(context.Canceled))
			gomega.Expect(report).To(gomega.BeNil())
		})
	})
})
