// Package types defines the configuration and wire structs shared across Lookout.
//
// Key components:
//   - Config: Validated run configuration (credentials, insecure registries, retry tuning).
//   - RetryConfig: Backoff knobs for the shared registry client.
//   - RegistryCredentials: Username and secret for one registry.
//   - TokenResponse: JSON body returned by a registry token endpoint.
//   - RunConfig: Parsed command-line state handed to the subcommands.
//
// Usage example:
//
//	cfg := types.DefaultConfig()
//	cfg.Authentication["ghcr.io"] = types.RegistryCredentials{Username: "me", Password: "token"}
//	scheme := cfg.Scheme("ghcr.io") // "https"
package types
