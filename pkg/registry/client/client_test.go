package client_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/nicholas-fedor/lookout/pkg/registry/client"
	"github.com/nicholas-fedor/lookout/pkg/types"
)

// retryRecorder collects retry events from concurrent callbacks.
type retryRecorder struct {
	mu     sync.Mutex
	events []client.RetryEvent
}

func (r *retryRecorder) record(event client.RetryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *retryRecorder) delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]time.Duration, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Delay)
	}

	return out
}

var _ = ginkgo.Describe("Client", func() {
	var (
		server   *ghttp.Server
		recorder *retryRecorder
		c        *client.Client
	)

	ginkgo.BeforeEach(func() {
		server = ghttp.NewServer()
		recorder = &retryRecorder{}
		c = client.New(client.Options{
			MaxRetries:      3,
			InitialInterval: time.Millisecond,
			MaxInterval:     20 * time.Millisecond,
			Multiplier:      2,
			UserAgent:       "lookout/test",
			OnRetry:         recorder.record,
		})
	})

	ginkgo.AfterEach(func() {
		server.Close()
	})

	get := func(path string) (*http.Response, error) {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL()+path, nil)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		return c.Do(req)
	}

	ginkgo.It("should succeed when the third attempt succeeds", func() {
		server.AppendHandlers(
			ghttp.RespondWith(http.StatusServiceUnavailable, ""),
			ghttp.RespondWith(http.StatusBadGateway, ""),
			ghttp.CombineHandlers(
				ghttp.VerifyHeaderKV("User-Agent", "lookout/test"),
				ghttp.RespondWith(http.StatusOK, "ok"),
			),
		)

		res, err := get("/v2/")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		defer res.Body.Close()

		gomega.Expect(res.StatusCode).To(gomega.Equal(http.StatusOK))
		gomega.Expect(server.ReceivedRequests()).To(gomega.HaveLen(3))
		gomega.Expect(recorder.delays()).To(gomega.HaveLen(2))
	})

	ginkgo.It("should give up after four consecutive failures", func() {
		server.RouteToHandler(http.MethodGet, "/v2/", ghttp.RespondWith(http.StatusServiceUnavailable, ""))

		res, err := get("/v2/")
		gomega.Expect(res).To(gomega.BeNil())
		gomega.Expect(err).To(gomega.MatchError(client.ErrTransient))
		gomega.Expect(server.ReceivedRequests()).To(gomega.HaveLen(4))
		gomega.Expect(c.Attempts()).To(gomega.Equal(4))
	})

	ginkgo.It("should never shorten the delay between attempts", func() {
		server.RouteToHandler(http.MethodGet, "/v2/", ghttp.RespondWith(http.StatusTooManyRequests, ""))

		_, err := get("/v2/")
		gomega.Expect(err).To(gomega.HaveOccurred())

		delays := recorder.delays()
		gomega.Expect(delays).To(gomega.HaveLen(3))

		for i := 1; i < len(delays); i++ {
			gomega.Expect(delays[i]).To(gomega.BeNumerically(">=", delays[i-1]))
		}
	})

	ginkgo.DescribeTable("should return non-transient statuses on the first attempt",
		func(status int) {
			server.AppendHandlers(ghttp.RespondWith(status, ""))

			res, err := get("/v2/")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			defer res.Body.Close()

			gomega.Expect(res.StatusCode).To(gomega.Equal(status))
			gomega.Expect(server.ReceivedRequests()).To(gomega.HaveLen(1))
			gomega.Expect(recorder.delays()).To(gomega.BeEmpty())
		},
		ginkgo.Entry("unauthorized", http.StatusUnauthorized),
		ginkgo.Entry("not found", http.StatusNotFound),
		ginkgo.Entry("method not allowed", http.StatusMethodNotAllowed),
	)

	ginkgo.It("should retry connection errors", func() {
		addr := server.URL()
		server.Close()

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, addr+"/v2/", nil)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		_, err = c.Do(req)
		gomega.Expect(err).To(gomega.MatchError(client.ErrTransient))
		gomega.Expect(recorder.delays()).To(gomega.HaveLen(3))
	})

	ginkgo.It("should replay request bodies on retry", func() {
		verifyBody := func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(string(body)).To(gomega.Equal("payload"))
		}

		server.AppendHandlers(
			ghttp.CombineHandlers(verifyBody, ghttp.RespondWith(http.StatusInternalServerError, "")),
			ghttp.CombineHandlers(verifyBody, ghttp.RespondWith(http.StatusOK, "")),
		)

		req, err := http.NewRequestWithContext(
			context.Background(), http.MethodPost, server.URL()+"/token", bytes.NewBufferString("payload"),
		)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		res, err := c.Do(req)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		res.Body.Close()
		gomega.Expect(server.ReceivedRequests()).To(gomega.HaveLen(2))
	})

	ginkgo.It("should not retry once the caller's context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL()+"/v2/", nil)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		_, err = c.Do(req)
		gomega.Expect(err).To(gomega.MatchError(context.Canceled))
		gomega.Expect(err).NotTo(gomega.MatchError(client.ErrTransient))
		gomega.Expect(server.ReceivedRequests()).To(gomega.BeEmpty())
	})

	ginkgo.Describe("OptionsFromConfig", func() {
		ginkgo.It("should carry the retry tuning over", func() {
			opts := client.OptionsFromConfig(types.RetryConfig{
				MaxRetries:      5,
				InitialInterval: time.Second,
				MaxInterval:     time.Minute,
				Multiplier:      3,
			})
			gomega.Expect(opts.MaxRetries).To(gomega.Equal(5))
			gomega.Expect(opts.InitialInterval).To(gomega.Equal(time.Second))
			gomega.Expect(opts.MaxInterval).To(gomega.Equal(time.Minute))
			gomega.Expect(opts.Multiplier).To(gomega.Equal(3.0))
			gomega.Expect(client.New(opts).Attempts()).To(gomega.Equal(6))
		})
	})
})
