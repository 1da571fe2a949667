package registry

import (
	"fmt"

	dockerCliConfig "github.com/docker/cli/cli/config"
	dockerConfigConfigfile "github.com/docker/cli/cli/config/configfile"
	dockerConfigCredentials "github.com/docker/cli/cli/config/credentials"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/lookout/pkg/registry/helpers"
	"github.com/nicholas-fedor/lookout/pkg/types"
)

// CredentialsFor looks up credentials for a registry.
//
// The configured authentication map is consulted first, then the docker
// config.json in cfg.DockerConfig (or the docker CLI default directory),
// including any native credential helper it names. Docker Hub aliases all
// resolve to the same entry.
//
// Parameters:
//   - registry: Registry host.
//   - cfg: Run configuration, may be nil.
//
// Returns:
//   - *types.RegistryCredentials: Credentials, or nil for anonymous access.
func CredentialsFor(registry string, cfg *types.Config) *types.RegistryCredentials {
	fields := logrus.Fields{"registry": registry}

	if creds := configuredCredentials(registry, cfg); creds != nil {
		logrus.WithFields(fields).WithField("username", creds.Username).Debug("Using configured credentials")

		return creds
	}

	dir := dockerCliConfig.Dir()
	if cfg != nil && cfg.DockerConfig != "" {
		dir = cfg.DockerConfig
	}

	creds, err := DockerConfigCredentials(dir, registry)
	if err != nil {
		logrus.WithError(err).WithFields(fields).WithField("config_dir", dir).Debug("Docker config credentials unavailable")

		return nil
	}

	if creds == nil {
		logrus.WithFields(fields).Debug("No credentials found, using anonymous access")

		return nil
	}

	logrus.WithFields(fields).WithField("username", creds.Username).Debug("Loaded credentials from docker config")

	return creds
}

// configuredCredentials returns the authentication map entry for registry.
func configuredCredentials(registry string, cfg *types.Config) *types.RegistryCredentials {
	if cfg == nil {
		return nil
	}

	if creds, ok := cfg.Authentication[registry]; ok && !creds.IsEmpty() {
		return &creds
	}

	want := helpers.CanonicalRegistry(registry)
	for host, creds := range cfg.Authentication {
		if helpers.CanonicalRegistry(host) == want && !creds.IsEmpty() {
			return &creds
		}
	}

	return nil
}

// DockerConfigCredentials reads credentials for registry from a docker config directory.
//
// Parameters:
//   - dir: Directory containing config.json.
//   - registry: Registry host.
//
// Returns:
//   - *types.RegistryCredentials: Credentials, nil when none are stored.
//   - error: Non-nil if the config or credential helper fails.
func DockerConfigCredentials(dir, registry string) (*types.RegistryCredentials, error) {
	configFile, err := dockerCliConfig.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load docker config: %w", err)
	}

	server := registry
	if helpers.IsDockerHub(registry) {
		server = helpers.LegacyDockerHubAddress
	}

	authConfig, err := CredentialsStore(configFile).Get(server)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials for %s: %w", server, err)
	}

	if authConfig.Username == "" && authConfig.Password == "" {
		return nil, nil //nolint:nilnil // Absent credentials mean anonymous access.
	}

	return &types.RegistryCredentials{
		Username: authConfig.Username,
		Password: authConfig.Password,
	}, nil
}

// CredentialsStore returns a new credentials store based on the settings provided in the configuration file.
// It determines whether to use a native or file-based store depending on the config.
func CredentialsStore(configFile *dockerConfigConfigfile.ConfigFile) dockerConfigCredentials.Store {
	if configFile.CredentialsStore != "" {
		return dockerConfigCredentials.NewNativeStore(configFile, configFile.CredentialsStore)
	}

	return dockerConfigCredentials.NewFileStore(configFile)
}
