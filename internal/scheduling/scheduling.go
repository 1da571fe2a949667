// Package scheduling runs update checks periodically according to a cron
// specification and shuts down gracefully on interrupt or context cancellation.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/lookout/pkg/api/check"
	"github.com/nicholas-fedor/lookout/pkg/session"
)

// checkWaitTimeout bounds how long shutdown waits for a running check.
const checkWaitTimeout = 60 * time.Second

// Refresher runs one full update check.
type Refresher interface {
	Refresh(ctx context.Context) (*session.Report, error)
}

// WaitForRunningCheck waits for any currently running check to complete before proceeding with shutdown.
//
// Parameters:
//   - ctx: Context allowing early shutdown.
//   - lock: Channel holding the single check token; empty while a check runs.
func WaitForRunningCheck(ctx context.Context, lock chan bool) {
	logrus.Debug("Checking lock status before shutdown")

	if len(lock) != 0 {
		logrus.Debug("No check running, lock available")

		return
	}

	select {
	case token := <-lock:
		lock <- token

		logrus.Debug("Lock acquired, check finished")
	case <-time.After(checkWaitTimeout):
		logrus.Warn("Timeout waiting for running check to finish, proceeding with shutdown")
	case <-ctx.Done():
		logrus.Warn("Context cancelled while waiting for running check")
	}
}

// RunChecksOnSchedule refreshes the report according to scheduleSpec until ctx
// ends or the process receives SIGINT or SIGTERM.
//
// Parameters:
//   - ctx: Context controlling the scheduler's lifecycle.
//   - refresher: Runs one full check; typically the API's check handler.
//   - lock: Lock channel shared with the refresher.
//   - scheduleSpec: Cron specification; empty disables periodic checks.
//   - checkOnStart: Whether to run a check before the scheduler starts.
//   - writeStartupMessage: Called once with the first scheduled run, zero if none.
//
// Returns:
//   - error: Non-nil if scheduleSpec is invalid.
func RunChecksOnSchedule(
	ctx context.Context,
	refresher Refresher,
	lock chan bool,
	scheduleSpec string,
	checkOnStart bool,
	writeStartupMessage func(nextRun time.Time),
) error {
	scheduler := cron.New()

	runCheck := func() {
		report, err := refresher.Refresh(ctx)

		switch {
		case errors.Is(err, check.ErrBusy):
			logrus.Debug("Skipped scheduled check, another check already running")
		case err != nil:
			logrus.WithError(err).Warn("Scheduled check failed")
		default:
			logrus.WithField("checked", report.Summary().Checked).Debug("Scheduled check completed")
		}

		if nextRuns := scheduler.Entries(); len(nextRuns) > 0 {
			logrus.Debug("Scheduled next run: " + nextRuns[0].Next.String())
		}
	}

	if scheduleSpec != "" {
		if err := scheduler.AddFunc(scheduleSpec, runCheck); err != nil {
			return fmt.Errorf("failed to schedule checks: %w", err)
		}
	}

	var nextRun time.Time
	if entries := scheduler.Entries(); len(entries) > 0 {
		nextRun = entries[0].Schedule.Next(time.Now())
	}

	if writeStartupMessage != nil {
		writeStartupMessage(nextRun)
	}

	if checkOnStart {
		runCheck()
	}

	scheduler.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	defer signal.Stop(interrupt)

	select {
	case <-ctx.Done():
		logrus.Debug("Context canceled, stopping scheduler")
	case <-interrupt:
		logrus.Debug("Received interrupt signal, stopping scheduler")
	}

	scheduler.Stop()
	logrus.Debug("Waiting for running check to be finished")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), checkWaitTimeout)
	defer cancel()

	if lock != nil {
		WaitForRunningCheck(shutdownCtx, lock)
	}

	logrus.Debug("Scheduler stopped")

	return nil
}
