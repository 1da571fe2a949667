// Package flags manages command-line flags, environment variables and the config file for Lookout.
// It configures the Docker connection, logging, the registry client and notifications via Cobra and Viper.
//
// Key components:
//   - RegisterDockerFlags: Adds the Docker daemon host flag.
//   - RegisterSystemFlags: Adds logging and registry client flags.
//   - RegisterNotificationFlags: Adds notification settings.
//   - SetupLogging: Configures logrus based on flags.
//   - LoadConfig: Merges the config file, environment and flags into a types.Config.
//
// Usage example:
//
//	cmd := &cobra.Command{}
//	flags.SetDefaults()
//	flags.RegisterSystemFlags(cmd)
//	if err := flags.SetupLogging(cmd.PersistentFlags()); err != nil {
//	    logrus.WithError(err).Fatal("Logging setup failed")
//	}
//	cfg, err := flags.LoadConfig(cmd.PersistentFlags())
package flags
