// Package metrics tracks and exposes Lookout update check metrics.
// It integrates with Prometheus to report the verdict counts of the last check.
//
// Key components:
//   - Metrics: Handles metric queuing and updates.
//   - NewMetric: Creates metrics from check reports.
//
// Usage example:
//
//	m := metrics.Default()
//	m.RegisterCheck(metrics.NewMetric(report))
//	if !m.QueueIsEmpty() {
//	    logrus.Debug("Metrics queued")
//	}
//
// The package uses Prometheus for metrics exposure and reads session.Report values.
package metrics
