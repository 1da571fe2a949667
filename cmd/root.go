package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/lookout/internal/flags"
	"github.com/nicholas-fedor/lookout/internal/meta"
	"github.com/nicholas-fedor/lookout/pkg/types"
)

// rootCmd represents the root command for the Lookout CLI, serving as the entry point for all subcommands.
var rootCmd = NewRootCommand()

// NewRootCommand creates the root command with its subcommands and flags registered.
//
// Returns:
//   - *cobra.Command: A pointer to the fully configured root command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "lookout",
		Short:             "Checks container images for newer registry digests",
		Long:              "\nLookout compares the digests of local container images with their registries and reports which ones have updates available.",
		Version:           meta.Version,
		PersistentPreRunE: preRun,
		SilenceUsage:      true,
	}

	flags.SetDefaults()
	flags.RegisterDockerFlags(root)
	flags.RegisterSystemFlags(root)
	flags.RegisterNotificationFlags(root)

	root.AddCommand(newCheckCommand(), newServeCommand())

	return root
}

// Execute runs the root command and manages any errors encountered during its execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Failed to execute command")
	}
}

// preRun configures logging and resolves file-based secrets before any subcommand runs.
//
// Parameters:
//   - cmd: The executing command, providing access to parsed flags.
//   - _: Positional arguments, handled by the subcommand.
//
// Returns:
//   - error: Non-nil for invalid logging flags or unreadable secret files.
func preRun(cmd *cobra.Command, _ []string) error {
	flagsSet := cmd.Flags()
	flags.ProcessFlagAliases(flagsSet)

	if err := flags.SetupLogging(flagsSet); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if err := flags.GetSecretsFromFiles(flagsSet); err != nil {
		return err
	}

	logrus.WithField("version", meta.Version).Debug("Lookout starting")

	return nil
}

// buildRunConfig collects the parsed configuration for a subcommand.
//
// Parameters:
//   - cmd: The executing command.
//   - references: Positional image references.
//
// Returns:
//   - types.RunConfig: Collected configuration.
//   - error: Non-nil if the configuration cannot be loaded.
func buildRunConfig(cmd *cobra.Command, references []string) (types.RunConfig, error) {
	flagsSet := cmd.Flags()

	cfg, err := flags.LoadConfig(flagsSet)
	if err != nil {
		return types.RunConfig{}, err
	}

	host, _ := flagsSet.GetString("host")
	urls, _ := flagsSet.GetStringArray("notification-url")
	noStartupMessage, _ := flagsSet.GetBool("no-startup-message")

	return types.RunConfig{
		Command:          cmd,
		References:       references,
		Config:           cfg,
		Host:             host,
		NotificationURLs: urls,
		NoStartupMessage: noStartupMessage,
	}, nil
}
