package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nicholas-fedor/lookout/pkg/session"
)

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// Metric holds data points from one update check.
type Metric struct {
	Checked         int // Number of images checked.
	UpToDate        int // Number of images whose remote digest matches.
	UpdateAvailable int // Number of images with a newer remote digest.
	Unknown         int // Number of images without a local digest.
	Failed          int // Number of images whose lookup failed.
}

// Metrics handles processing and exposing check metrics.
type Metrics struct {
	channel      chan *Metric       // Channel for queuing metrics.
	checked      prometheus.Gauge   // Gauge for checked images.
	upToDate     prometheus.Gauge   // Gauge for up to date images.
	updates      prometheus.Gauge   // Gauge for images with updates.
	unknown      prometheus.Gauge   // Gauge for images without a verdict.
	failed       prometheus.Gauge   // Gauge for failed lookups.
	total        prometheus.Counter // Counter for total checks.
	retries      prometheus.Counter // Counter for retried registry requests.
	dropped      prometheus.Counter // Counter for dropped metrics.
	stopCh       chan struct{}      // Channel for shutdown signaling.
	shutdownOnce sync.Once          // Ensures shutdown is called only once.
	//nolint:containedctx
	ctx    context.Context    // Context for cancellation.
	cancel context.CancelFunc // Cancel function for the context.
}

// NewWithRegistry creates a new Metrics handler with a custom Prometheus registry.
//
// Parameters:
//   - registry: Prometheus registerer to use for metric registration.
//
// Returns:
//   - (*Metrics, error): Metrics handler with Prometheus metrics and goroutine, or an error if registration fails.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	// channelBufferSize sets the metrics channel capacity.
	const channelBufferSize = 10

	ctx, cancel := context.WithCancel(context.Background())

	metrics := &Metrics{
		checked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lookout_images_checked",
			Help: "Number of images checked during the last update check",
		}),
		upToDate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lookout_images_up_to_date",
			Help: "Number of images whose registry digest matched during the last update check",
		}),
		updates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lookout_images_update_available",
			Help: "Number of images with a newer registry digest during the last update check",
		}),
		unknown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lookout_images_unknown",
			Help: "Number of images without a local digest during the last update check",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lookout_images_failed",
			Help: "Number of images whose registry lookup failed during the last update check",
		}),
		total: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lookout_checks_total",
			Help: "Number of update checks since lookout started",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lookout_registry_retries_total",
			Help: "Number of registry requests retried after a transient failure",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lookout_metrics_dropped_total",
			Help: "Number of metrics dropped due to full channel",
		}),
		channel: make(chan *Metric, channelBufferSize),
		stopCh:  make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	collectors := []prometheus.Collector{
		metrics.checked,
		metrics.upToDate,
		metrics.updates,
		metrics.unknown,
		metrics.failed,
		metrics.total,
		metrics.retries,
		metrics.dropped,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			cancel()

			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	go metrics.HandleUpdate()

	return metrics, nil
}

// NewMetric creates a Metric from a check report.
//
// Parameters:
//   - report: Update check report.
//
// Returns:
//   - *Metric: New metric instance; zero-valued for a nil report.
func NewMetric(report *session.Report) *Metric {
	summary := report.Summary()

	return &Metric{
		Checked:         summary.Checked,
		UpToDate:        summary.UpToDate,
		UpdateAvailable: summary.UpdateAvailable,
		Unknown:         summary.Unknown,
		Failed:          summary.Failed,
	}
}

// QueueIsEmpty checks if the metrics channel is empty.
//
// Returns:
//   - bool: True if empty, false otherwise.
func (m *Metrics) QueueIsEmpty() bool {
	return len(m.channel) == 0
}

// Register attempts to enqueue a metric for processing.
// If the channel is full, the metric is dropped and the dropped counter is incremented.
//
// Parameters:
//   - metric: Metric to register.
func (m *Metrics) Register(metric *Metric) {
	select {
	case m.channel <- metric:
	default:
		m.dropped.Inc()
	}
}

// Default initializes or returns the singleton Metrics handler. It panics on
// registration failure against the default registry.
//
// Returns:
//   - *Metrics: Metrics handler with Prometheus metrics and goroutine.
func Default() *Metrics {
	metricsOnce.Do(func() {
		var err error

		metrics, err = NewWithRegistry(prometheus.DefaultRegisterer)
		if err != nil {
			panic(err)
		}
	})

	return metrics
}

// RegisterCheck enqueues a check metric.
//
// Parameters:
//   - metric: Metric to register.
func (m *Metrics) RegisterCheck(metric *Metric) {
	m.Register(metric)
}

// RegisterRetry counts one retried registry request.
func (m *Metrics) RegisterRetry() {
	m.retries.Inc()
}

// Shutdown gracefully stops the metrics processing goroutine.
// This method is idempotent and can be called multiple times safely.
func (m *Metrics) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.stopCh)
		m.cancel()
	})
}

// HandleUpdate processes metrics from the channel.
func (m *Metrics) HandleUpdate() {
	for {
		select {
		case change, ok := <-m.channel:
			if !ok {
				return
			}

			if change == nil {
				// A check that could not run resets the gauges.
				change = &Metric{}
			}

			m.checked.Set(float64(change.Checked))
			m.upToDate.Set(float64(change.UpToDate))
			m.updates.Set(float64(change.UpdateAvailable))
			m.unknown.Set(float64(change.Unknown))
			m.failed.Set(float64(change.Failed))
			m.total.Inc()
		case <-m.stopCh:
			return
		case <-m.ctx.Done():
			return
		}
	}
}
