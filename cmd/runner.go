package cmd

import (
	"context"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/lookout/internal/actions"
	"github.com/nicholas-fedor/lookout/internal/meta"
	"github.com/nicholas-fedor/lookout/pkg/metrics"
	"github.com/nicholas-fedor/lookout/pkg/notifications"
	"github.com/nicholas-fedor/lookout/pkg/registry/client"
	"github.com/nicholas-fedor/lookout/pkg/session"
	"github.com/nicholas-fedor/lookout/pkg/types"
)

// checker runs update checks with everything a run shares.
type checker struct {
	lister     actions.ImageLister
	client     client.Doer
	config     *types.Config
	references []string
	notifier   *notifications.Notifier
	metrics    *metrics.Metrics
}

// newRegistryClient builds the retrying client shared by every registry request.
//
// Parameters:
//   - cfg: Run configuration supplying the retry policy.
//   - m: Metrics counting retries, may be nil; the client logs each retry itself.
//
// Returns:
//   - *client.Client: Configured client.
func newRegistryClient(cfg *types.Config, m *metrics.Metrics) *client.Client {
	opts := client.OptionsFromConfig(cfg.Retry)
	opts.UserAgent = meta.UserAgent
	opts.OnRetry = func(client.RetryEvent) {
		if m != nil {
			m.RegisterRetry()
		}
	}

	return client.New(opts)
}

// run performs one check, records its metrics and notifies about updates.
//
// Parameters:
//   - ctx: Parent context; the configured timeout is applied on top.
//   - extra: References requested for this run only.
//
// Returns:
//   - *session.Report: Finished report.
//   - error: Non-nil if the run was interrupted.
func (c *checker) run(ctx context.Context, extra []string) (*session.Report, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	references := append(slices.Clone(c.references), extra...)

	report, err := actions.CheckForUpdates(ctx, c.lister, actions.CheckParams{
		References: references,
		Config:     c.config,
		Client:     c.client,
	})
	if err != nil {
		if c.metrics != nil {
			c.metrics.RegisterCheck(nil)
		}

		return nil, err
	}

	if c.metrics != nil {
		c.metrics.RegisterCheck(metrics.NewMetric(report))
	}

	if c.notifier.Notify(report) {
		logrus.WithField("updates", report.Summary().UpdateAvailable).Debug("Sent update notification")
	}

	return report, nil
}
