package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/lookout/internal/flags"
	"github.com/nicholas-fedor/lookout/pkg/container"
	"github.com/nicholas-fedor/lookout/pkg/format"
	"github.com/nicholas-fedor/lookout/pkg/metrics"
	"github.com/nicholas-fedor/lookout/pkg/notifications"
	"github.com/nicholas-fedor/lookout/pkg/session"
	"github.com/nicholas-fedor/lookout/pkg/types"
)

// newCheckCommand creates the command running a single update check.
func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [IMAGE...]",
		Short: "Check local images and the given references for updates",
		Long:  "\nCheck compares every local image, plus any references given as arguments, with its registry and prints the result.",
		Args:  cobra.ArbitraryArgs,
		RunE:  runCheck,
	}

	flags.RegisterCheckFlags(cmd)

	return cmd
}

// runCheck executes the check subcommand.
func runCheck(cmd *cobra.Command, args []string) error {
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

	report, err := c.run(commandContext(cmd), nil)
	if err != nil {
		return err
	}

	return printReport(cmd.OutOrStdout(), cmd, report)
}

// printReport renders the report as selected by --raw and --icons.
func printReport(w io.Writer, cmd *cobra.Command, report *session.Report) error {
	raw, _ := cmd.Flags().GetBool("raw")
	icons, _ := cmd.Flags().GetBool("icons")

	if raw {
		return format.JSON(w, report)
	}

	return format.Text(w, report, format.Options{Icons: icons})
}

// newNotifier creates the notifier configured by the notification flags, nil without URLs.
func newNotifier(runConfig types.RunConfig) (*notifications.Notifier, error) {
	flagsSet := runConfig.Command.Flags()

	hostname, _ := flagsSet.GetString("notifications-hostname")
	tag, _ := flagsSet.GetString("notification-title-tag")
	tpl, _ := flagsSet.GetString("notification-template")

	notifier, err := notifications.NewNotifier(
		runConfig.NotificationURLs,
		notifications.GetTemplateData(hostname, tag),
		tpl,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifications: %w", err)
	}

	return notifier, nil
}
