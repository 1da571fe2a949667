// Package flags manages command-line flags, environment variables and the config file for Lookout.
package flags

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nicholas-fedor/lookout/pkg/types"
)

// configKeyDelimiter separates nested config keys so registry hosts containing dots survive as map keys.
const configKeyDelimiter = "::"

// defaultAPIPort is the listen port of the HTTP API in serve mode.
const defaultAPIPort = 8000

// errInvalidLogFormat indicates an invalid log format was specified.
var errInvalidLogFormat = errors.New("invalid log format specified")

// errInvalidLogLevel indicates an invalid log level was specified.
var errInvalidLogLevel = errors.New("invalid log level specified")

// errOpenFileFailed indicates a failure to open a file for reading secrets.
var errOpenFileFailed = errors.New("failed to open secret file")

// errCloseFileFailed indicates a failure to close a file after reading secrets.
var errCloseFileFailed = errors.New("failed to close secret file")

// errReplaceSliceFailed indicates a failure to replace a slice value in a flag.
var errReplaceSliceFailed = errors.New("failed to replace slice value in flag")

// errReadFileFailed indicates a failure to read a file’s contents.
var errReadFileFailed = errors.New("failed to read secret file")

// errSetFlagFailed indicates a failure to read or set a flag value.
var errSetFlagFailed = errors.New("failed to set flag value")

// errReadConfigFailed indicates the config file could not be read or decoded.
var errReadConfigFailed = errors.New("failed to read config file")

// errInvalidConfig indicates a config value outside its allowed range.
var errInvalidConfig = errors.New("invalid configuration")

// secretFlags lists flags whose values may be given as file paths.
var secretFlags = []string{
	"notification-url",
	"api-token",
}

// RegisterDockerFlags adds flags used for directly modifying the Docker client to the root command.
func RegisterDockerFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringP("host", "H", envString("DOCKER_HOST"), "daemon socket to connect to")
}

// RegisterSystemFlags adds logging and registry client flags to the root command.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringP(
		"config",
		"c",
		envString("LOOKOUT_CONFIG"),
		"Path to a YAML, JSON or TOML config file")

	flags.Duration(
		"timeout",
		envDuration("LOOKOUT_TIMEOUT"),
		"Deadline for a whole update check; 0 disables it")

	flags.Int(
		"concurrency",
		envInt("LOOKOUT_CONCURRENCY"),
		"Maximum concurrent digest checks; 0 is unbounded")

	flags.Int(
		"max-retries",
		envInt("LOOKOUT_MAX_RETRIES"),
		"Retries for transient registry failures")

	flags.StringSlice(
		"insecure-registry",
		envStringSlice("LOOKOUT_INSECURE_REGISTRIES"),
		"Registry hosts reached over plain HTTP")

	flags.String(
		"docker-config",
		envString("LOOKOUT_DOCKER_CONFIG"),
		"Directory of a docker config.json used as a credential fallback")

	flags.Bool(
		"no-startup-message",
		envBool("LOOKOUT_NO_STARTUP_MESSAGE"),
		"Prevents lookout from logging a startup message")

	flags.String(
		"log-format",
		envString("LOOKOUT_LOG_FORMAT"),
		"Sets what logging format to use for console output. Possible values: Auto, LogFmt, Pretty, JSON")

	flags.BoolP(
		"debug",
		"d",
		envBool("LOOKOUT_DEBUG"),
		"Enable debug mode with verbose logging")

	flags.Bool(
		"trace",
		envBool("LOOKOUT_TRACE"),
		"Enable trace mode with very verbose logging - caution, exposes credentials")

	flags.String(
		"log-level",
		envString("LOOKOUT_LOG_LEVEL"),
		"The maximum log level that will be written to STDERR. Possible values: panic, fatal, error, warn, info, debug or trace")

	flags.Bool(
		"no-color",
		envBool("NO_COLOR"),
		"Disable ANSI color escape codes in log output")
}

// RegisterNotificationFlags adds notification flags to the root command.
func RegisterNotificationFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringArray(
		"notification-url",
		envStringSlice("LOOKOUT_NOTIFICATION_URL"),
		"The shoutrrr URL to send notifications to")

	flags.String(
		"notification-template",
		envString("LOOKOUT_NOTIFICATION_TEMPLATE"),
		"The shoutrrr text/template for the messages")

	flags.String(
		"notifications-hostname",
		envString("LOOKOUT_NOTIFICATIONS_HOSTNAME"),
		"Custom hostname for notification titles")

	flags.String(
		"notification-title-tag",
		envString("LOOKOUT_NOTIFICATION_TITLE_TAG"),
		"Title prefix tag for notifications")
}

// RegisterCheckFlags adds output flags to the check command.
func RegisterCheckFlags(checkCmd *cobra.Command) {
	flags := checkCmd.Flags()

	flags.BoolP("raw", "r", envBool("LOOKOUT_RAW"), "Print the report as JSON")
	flags.BoolP("icons", "i", envBool("LOOKOUT_ICONS"), "Prefix report groups with icons")
}

// RegisterServeFlags adds HTTP API flags to the serve command.
func RegisterServeFlags(serveCmd *cobra.Command) {
	flags := serveCmd.Flags()

	flags.IntP(
		"port",
		"p",
		envInt("LOOKOUT_PORT"),
		"Port the HTTP API listens on")

	flags.StringP(
		"schedule",
		"s",
		envString("LOOKOUT_SCHEDULE"),
		"The cron expression which defines when to refresh the cached report")

	flags.String(
		"api-token",
		envString("LOOKOUT_API_TOKEN"),
		"Bearer token guarding the /v1 endpoints; empty leaves them open")
}

// envString retrieves a string value from an environment variable via Viper.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envStringSlice retrieves a string slice from an environment variable via Viper.
func envStringSlice(key string) []string {
	viper.MustBindEnv(key)

	return viper.GetStringSlice(key)
}

// envInt retrieves an integer value from an environment variable via Viper.
func envInt(key string) int {
	viper.MustBindEnv(key)

	return viper.GetInt(key)
}

// envBool retrieves a boolean value from an environment variable via Viper.
func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

// envDuration retrieves a duration value from an environment variable via Viper.
func envDuration(key string) time.Duration {
	viper.MustBindEnv(key)

	return viper.GetDuration(key)
}

// SetDefaults configures default values for environment variables.
func SetDefaults() {
	viper.AutomaticEnv()
	viper.SetDefault("DOCKER_HOST", "unix:///var/run/docker.sock")
	viper.SetDefault("LOOKOUT_TIMEOUT", types.DefaultTimeout)
	viper.SetDefault("LOOKOUT_MAX_RETRIES", types.DefaultMaxRetries)
	viper.SetDefault("LOOKOUT_PORT", defaultAPIPort)
	viper.SetDefault("LOOKOUT_LOG_LEVEL", "info")
	viper.SetDefault("LOOKOUT_LOG_FORMAT", "auto")
}

// GetSecretsFromFiles replaces flag values with file contents if they reference files.
//
// Parameters:
//   - flags: Flag set holding any of the secret flags; absent flags are skipped.
//
// Returns:
//   - error: Non-nil if a referenced file cannot be read.
func GetSecretsFromFiles(flags *pflag.FlagSet) error {
	for _, secret := range secretFlags {
		if flags.Lookup(secret) == nil {
			continue
		}

		if err := getSecretFromFile(flags, secret); err != nil {
			return fmt.Errorf("failed to get secret from flag %v: %w", secret, err)
		}
	}

	return nil
}

// getSecretFromFile updates a flag’s value with file contents if it references a file.
// It handles both string and slice flags, returning an error if file operations fail.
func getSecretFromFile(flags *pflag.FlagSet, secret string) error {
	flag := flags.Lookup(secret)
	if sliceValue, ok := flag.Value.(pflag.SliceValue); ok {
		oldValues := sliceValue.GetSlice()
		values := make([]string, 0, len(oldValues))

		for _, value := range oldValues {
			if value == "" || !isFilePath(value) {
				values = append(values, value)

				continue
			}

			lines, err := readLines(value)
			if err != nil {
				return err
			}

			values = append(values, lines...)
		}

		if err := sliceValue.Replace(values); err != nil {
			return fmt.Errorf("%w: %w", errReplaceSliceFailed, err)
		}

		return nil
	}

	value := flag.Value.String()
	if value != "" && isFilePath(value) {
		content, err := os.ReadFile(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errReadFileFailed, err)
		}

		if err := flags.Set(secret, strings.TrimSpace(string(content))); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

// readLines returns the non-empty lines of a file.
func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errOpenFileFailed, err)
	}

	var lines []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", errCloseFileFailed, err)
	}

	return lines, nil
}

// isFilePath determines if a string likely represents a file path.
// It checks for file existence, avoiding false positives from URLs or invalid Windows paths.
func isFilePath(path string) bool {
	firstColon := strings.IndexRune(path, ':')
	if firstColon != 1 && firstColon != -1 {
		// If ':' exists but isn’t the second character, it’s likely not a file path (e.g., URLs).
		return false
	}

	_, err := os.Stat(path)

	return !errors.Is(err, os.ErrNotExist)
}

// ProcessFlagAliases raises the log level when --debug or --trace is set.
func ProcessFlagAliases(flags *pflag.FlagSet) {
	if flagIsEnabled(flags, "debug") {
		if err := flags.Set("log-level", "debug"); err != nil {
			logrus.Errorf("Failed to set log-level flag: %v", err)
		}
	}

	if flagIsEnabled(flags, "trace") {
		if err := flags.Set("log-level", "trace"); err != nil {
			logrus.Errorf("Failed to set log-level flag: %v", err)
		}
	}
}

// SetupLogging configures the global logger based on log-related flags.
// It sets the log format and level, returning an error for invalid configurations.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if err := configureLogFormat(logFormat, noColor); err != nil {
		return err
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)

	return nil
}

// configureLogFormat sets the logrus formatter based on the specified format and color preference.
// It returns an error if the format is invalid.
func configureLogFormat(logFormat string, noColor bool) error {
	switch strings.ToLower(logFormat) {
	case "auto", "":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:             noColor,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			FullTimestamp: false,
		})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	return nil
}

// LoadConfig builds the run configuration from defaults, the optional config
// file and any flags that were set explicitly or through the environment.
//
// Parameters:
//   - flags: Root persistent flag set.
//
// Returns:
//   - *types.Config: Validated configuration.
//   - error: Non-nil if the file cannot be read or a value is out of range.
func LoadConfig(flags *pflag.FlagSet) (*types.Config, error) {
	cfg := types.DefaultConfig()

	path, err := flags.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if path != "" {
		if err := readConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyFlagOverrides(flags, cfg); err != nil {
		return nil, err
	}

	cfg.DockerConfig = expandHome(cfg.DockerConfig)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"file":        path,
		"registries":  len(cfg.Authentication),
		"insecure":    cfg.InsecureRegistries,
		"concurrency": cfg.Concurrency,
		"timeout":     cfg.Timeout,
		"max_retries": cfg.Retry.MaxRetries,
	}).Debug("Loaded configuration")

	return cfg, nil
}

// readConfigFile decodes the config file at path over cfg.
func readConfigFile(path string, cfg *types.Config) error {
	file := viper.NewWithOptions(viper.KeyDelimiter(configKeyDelimiter))
	file.SetConfigFile(path)

	if err := file.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %s: %w", errReadConfigFailed, path, err)
	}

	if err := file.Unmarshal(cfg); err != nil {
		return fmt.Errorf("%w: %s: %w", errReadConfigFailed, path, err)
	}

	if cfg.Authentication == nil {
		cfg.Authentication = map[string]types.RegistryCredentials{}
	}

	return nil
}

// applyFlagOverrides copies flag values that were set on the command line or
// through their environment variable.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *types.Config) error {
	var err error

	if isSet(flags, "timeout", "LOOKOUT_TIMEOUT") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	if isSet(flags, "concurrency", "LOOKOUT_CONCURRENCY") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	if isSet(flags, "max-retries", "LOOKOUT_MAX_RETRIES") {
		if cfg.Retry.MaxRetries, err = flags.GetInt("max-retries"); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	if isSet(flags, "insecure-registry", "LOOKOUT_INSECURE_REGISTRIES") {
		insecure, err := flags.GetStringSlice("insecure-registry")
		if err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}

		cfg.InsecureRegistries = appendMissing(cfg.InsecureRegistries, insecure...)
	}

	if isSet(flags, "docker-config", "LOOKOUT_DOCKER_CONFIG") {
		if cfg.DockerConfig, err = flags.GetString("docker-config"); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

func validateConfig(cfg *types.Config) error {
	switch {
	case cfg.Concurrency < 0:
		return fmt.Errorf("%w: concurrency must not be negative, got %d", errInvalidConfig, cfg.Concurrency)
	case cfg.Retry.MaxRetries < 0:
		return fmt.Errorf("%w: max_retries must not be negative, got %d", errInvalidConfig, cfg.Retry.MaxRetries)
	case cfg.Timeout < 0:
		return fmt.Errorf("%w: timeout must not be negative, got %s", errInvalidConfig, cfg.Timeout)
	}

	return nil
}

// isSet reports whether a flag was given explicitly or its environment variable exists.
func isSet(flags *pflag.FlagSet, name, env string) bool {
	if flags.Lookup(name) == nil {
		return false
	}

	if flags.Changed(name) {
		return true
	}

	_, found := os.LookupEnv(env)

	return found
}

func appendMissing(values []string, extra ...string) []string {
	for _, value := range extra {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		if !slices.Contains(values, value) {
			values = append(values, value)
		}
	}

	return values
}

func expandHome(path string) string {
	rest, found := strings.CutPrefix(path, "~/")
	if !found {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, rest)
}

// flagIsEnabled checks if a boolean flag is set to true.
// It exits with a fatal error if the flag is not defined.
func flagIsEnabled(flags *pflag.FlagSet, name string) bool {
	value, err := flags.GetBool(name)
	if err != nil {
		logrus.Fatalf("The flag %q is not defined", name)
	}

	return value
}
