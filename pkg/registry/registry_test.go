package registry_test

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/nicholas-fedor/lookout/pkg/registry"
	"github.com/nicholas-fedor/lookout/pkg/registry/auth"
	"github.com/nicholas-fedor/lookout/pkg/registry/client"
	"github.com/nicholas-fedor/lookout/pkg/types"
)

var _ = ginkgo.Describe("Authenticate", func() {
	var (
		server *ghttp.Server
		host   string
		cfg    *types.Config
		doer   *client.Client
	)

	ginkgo.BeforeEach(func() {
		server = ghttp.NewServer()
		host = strings.TrimPrefix(server.URL(), "http://")
		cfg = types.DefaultConfig()
		cfg.InsecureRegistries = []string{host}
		cfg.DockerConfig = ginkgo.GinkgoT().TempDir()
		doer = client.New(client.Options{MaxRetries: 0, InitialInterval: time.Millisecond})
	})

	ginkgo.AfterEach(func() {
		server.Close()
	})

	ginkgo.It("should return an empty header for anonymous registries", func() {
		server.AppendHandlers(ghttp.RespondWith(http.StatusOK, ""))

		header, err := registry.Authenticate(context.Background(), host, []string{"x"}, cfg, doer)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(header).To(gomega.BeEmpty())
	})

	ginkgo.It("should fetch a token with configured credentials", func() {
		cfg.Authentication[host] = types.RegistryCredentials{Username: "u", Password: "p"}

		server.AppendHandlers(
			ghttp.RespondWith(http.StatusUnauthorized, "", http.Header{
				auth.ChallengeHeader: {`Bearer realm="` + server.URL() + `/token",service="svc"`},
			}),
			ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/token"),
				ghttp.VerifyBasicAuth("u", "p"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, types.TokenResponse{Token: "tok"}),
			),
		)

		header, err := registry.Authenticate(context.Background(), host, []string{"x", "y"}, cfg, doer)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(header).To(gomega.Equal("Bearer tok"))
	})

	ginkgo.It("should surface probe failures", func() {
		server.AppendHandlers(ghttp.RespondWith(http.StatusForbidden, ""))

		_, err := registry.Authenticate(context.Background(), host, []string{"x"}, cfg, doer)
		gomega.Expect(err).To(gomega.MatchError(auth.ErrAuthProbe))
	})
})
