// Package logging writes Lookout's startup summary in serve mode.
package logging

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/lookout/internal/util"
	"github.com/nicholas-fedor/lookout/pkg/notifications"
)

// StartupInfo describes the state logged once when serve mode starts.
type StartupInfo struct {
	Version       string    // Lookout build version.
	NextRun       time.Time // First scheduled refresh, zero without a schedule.
	APIAddr       string    // Listen address of the HTTP API.
	TokenRequired bool      // Whether /v1 endpoints require a bearer token.
	Notifiers     []string  // Names of configured notification services.
	References    []string  // Extra references checked alongside runtime images.
}

// WriteStartupMessage logs startup information unless suppressed.
//
// Parameters:
//   - noStartupMessage: Skips all output when true.
//   - info: State to report.
func WriteStartupMessage(noStartupMessage bool, info StartupInfo) {
	if noStartupMessage {
		return
	}

	startupLog := notifications.LocalLog

	startupLog.Info("Lookout ", info.Version)

	LogNotifierInfo(startupLog, info.Notifiers)

	if len(info.References) > 0 {
		startupLog.WithField("references", info.References).Info("Checking extra references alongside local images")
	}

	LogScheduleInfo(startupLog, info.NextRun)

	apiLog := startupLog.WithField("addr", info.APIAddr)
	if info.TokenRequired {
		apiLog.Info("The HTTP API is enabled with bearer token authentication")
	} else {
		apiLog.Warn("The HTTP API is enabled without authentication")
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		startupLog.Warn(
			"Trace level enabled: log will include sensitive information as credentials and tokens",
		)
	}
}

// LogNotifierInfo logs the configured notification services.
func LogNotifierInfo(log *logrus.Entry, notifierNames []string) {
	if len(notifierNames) > 0 {
		log.Info("Using notifications: " + strings.Join(notifierNames, ", "))
	} else {
		log.Info("Using no notifications")
	}
}

// LogScheduleInfo logs when the next scheduled refresh happens.
//
// Parameters:
//   - log: The logrus.Entry used to write the schedule information.
//   - sched: The time.Time of the first scheduled run, or zero if no schedule is set.
func LogScheduleInfo(log *logrus.Entry, sched time.Time) {
	if sched.IsZero() {
		log.Info("Periodic checks are not enabled, refresh via the HTTP API")

		return
	}

	until := util.FormatDuration(time.Until(sched))
	log.Info("Scheduling next run: " + sched.Format("2006-01-02 15:04:05 -0700 MST"))
	log.Info("Note that the next check will be performed in " + until)
}
