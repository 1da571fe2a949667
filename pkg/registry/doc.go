// Package registry talks to container registries on behalf of an update check.
//
// Key components:
//   - auth: Probes registries for challenges and acquires scoped tokens.
//   - client: Shared HTTP client with bounded retry and exponential backoff.
//   - digest: Resolves a tag's current manifest digest.
//   - helpers: Registry host and digest normalisation.
//   - manifest: Manifest URLs and accepted media types.
//   - registry: Per-registry authentication and credential lookup.
//
// Usage example:
//
//	doer := client.New(client.OptionsFromConfig(cfg.Retry))
//	header, err := registry.Authenticate(ctx, "ghcr.io", []string{"owner/app"}, cfg, doer)
//	if err != nil {
//	    logrus.WithError(err).Warn("Registry authentication failed")
//	}
//	img = digest.Check(ctx, img, header, cfg, doer)
//
// Credentials come from the configuration or a docker config.json, and all
// operations log through logrus.
package registry
