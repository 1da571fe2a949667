package types

import (
	"slices"
	"time"

	"github.com/spf13/cobra"
)

// Defaults applied when neither flags nor the config file set a value.
const (
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
	DefaultMultiplier      = 2.0
	DefaultTimeout         = 2 * time.Minute
)

// URL schemes used to reach a registry.
const (
	SchemeHTTPS = "https"
	SchemeHTTP  = "http"
)

// RetryConfig tunes the exponential backoff of the shared registry client.
type RetryConfig struct {
	// MaxRetries bounds how many times a transient failure is retried; attempts = MaxRetries + 1.
	MaxRetries int `mapstructure:"max_retries"`
	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	// MaxInterval caps a single backoff delay.
	MaxInterval time.Duration `mapstructure:"max_interval"`
	// Multiplier grows the delay between consecutive retries.
	Multiplier float64 `mapstructure:"multiplier"`
}

// Config is the validated configuration consumed by one update check.
//
// It is loaded by the flags package from the optional config file, the
// environment and command-line flags, and is read-only once a run starts.
type Config struct {
	// Authentication maps registry hosts to credentials.
	Authentication map[string]RegistryCredentials `mapstructure:"authentication"`
	// InsecureRegistries lists hosts reached over plain HTTP.
	InsecureRegistries []string `mapstructure:"insecure_registries"`
	// Concurrency caps concurrent digest checks; 0 means unbounded.
	Concurrency int `mapstructure:"concurrency"`
	// Timeout is the deadline applied to a whole run; 0 disables it.
	Timeout time.Duration `mapstructure:"timeout"`
	// Retry tunes the registry client's backoff.
	Retry RetryConfig `mapstructure:"retry"`
	// DockerConfig is the directory holding a docker config.json used as a credential fallback.
	DockerConfig string `mapstructure:"docker_config"`
}

// DefaultConfig returns a Config populated with the built-in defaults.
//
// Returns:
//   - *Config: Fresh configuration with an empty credentials map.
func DefaultConfig() *Config {
	return &Config{
		Authentication: map[string]RegistryCredentials{},
		Timeout:        DefaultTimeout,
		Retry: RetryConfig{
			MaxRetries:      DefaultMaxRetries,
			InitialInterval: DefaultInitialInterval,
			MaxInterval:     DefaultMaxInterval,
			Multiplier:      DefaultMultiplier,
		},
	}
}

// IsInsecure reports whether registry is configured for plain HTTP.
func (c *Config) IsInsecure(registry string) bool {
	if c == nil {
		return false
	}

	return slices.Contains(c.InsecureRegistries, registry)
}

// Scheme returns the URL scheme used for registry.
//
// Parameters:
//   - registry: Registry host, e.g. "localhost:5000".
//
// Returns:
//   - string: "http" for insecure registries, "https" otherwise.
func (c *Config) Scheme(registry string) string {
	if c.IsInsecure(registry) {
		return SchemeHTTP
	}

	return SchemeHTTPS
}

// RunConfig carries parsed command-line state into a subcommand.
type RunConfig struct {
	// Command is the executing cobra command, giving access to parsed flags.
	Command *cobra.Command
	// References are the extra image references given as positional arguments.
	References []string
	// Config is the loaded run configuration.
	Config *Config
	// Host is the Docker daemon address, empty for the environment default.
	Host string
	// NotificationURLs are shoutrrr URLs notified when updates are found.
	NotificationURLs []string
	// NoStartupMessage suppresses the startup summary in serve mode.
	NoStartupMessage bool
}
