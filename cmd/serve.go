package cmd

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/lookout/internal/api"
	"github.com/nicholas-fedor/lookout/internal/flags"
	"github.com/nicholas-fedor/lookout/internal/logging"
	"github.com/nicholas-fedor/lookout/internal/meta"
	"github.com/nicholas-fedor/lookout/internal/scheduling"
	"github.com/nicholas-fedor/lookout/pkg/api/check"
	metricsAPI "github.com/nicholas-fedor/lookout/pkg/api/metrics"
	"github.com/nicholas-fedor/lookout/pkg/container"
	"github.com/nicholas-fedor/lookout/pkg/metrics"
)

// newServeCommand creates the command serving reports over HTTP.
func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [IMAGE...]",
		Short: "Serve update reports over HTTP",
		Long:  "\nServe runs an update check on start, caches the report and exposes it together with on-demand refreshes and Prometheus metrics.",
		Args:  cobra.ArbitraryArgs,
		RunE:  runServe,
	}

	flags.RegisterServeFlags(cmd)

	return cmd
}

// runServe executes the serve subcommand until interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	runConfig, err := buildRunConfig(cmd, args)
	if err != nil {
		return err
	}

	lister, err := container.NewClient(runConfig.Host)
	if err != nil {
		return err
	}

	defer func() {
		if err := lister.Close(); err != nil {
			logrus.WithError(err).Debug("Failed to close Docker client")
		}
	}()

	notifier, err := newNotifier(runConfig)
	if err != nil {
		return err
	}

	m := metrics.Default()
	defer m.Shutdown()

	c := &checker{
		lister:     lister,
		client:     newRegistryClient(runConfig.Config, m),
		config:     runConfig.Config,
		references: runConfig.References,
		notifier:   notifier,
		metrics:    m,
	}

	port, _ := cmd.Flags().GetInt("port")
	schedule, _ := cmd.Flags().GetString("schedule")
	token, _ := cmd.Flags().GetString("api-token")

	lock := make(chan bool, 1)
	lock <- true

	handler := check.New(c.run, lock)

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	httpAPI, err := api.SetupAndStartAPI(ctx, api.Options{
		Port:    port,
		Token:   token,
		Check:   handler,
		Metrics: metricsAPI.New(),
	})
	if err != nil {
		return err
	}

	writeStartupMessage := func(nextRun time.Time) {
		logging.WriteStartupMessage(runConfig.NoStartupMessage, logging.StartupInfo{
			Version:       meta.Version,
			NextRun:       nextRun,
			APIAddr:       httpAPI.Addr,
			TokenRequired: token != "",
			Notifiers:     notifier.GetNames(),
			References:    runConfig.References,
		})
	}

	return scheduling.RunChecksOnSchedule(ctx, handler, lock, schedule, true, writeStartupMessage)
}

// commandContext returns the command's context or a background context.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
