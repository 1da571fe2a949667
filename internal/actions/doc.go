// Package actions runs Lookout's update check.
//
// CheckForUpdates collects images from the runtime and the caller, groups them
// by registry, authenticates once per registry and then resolves every image's
// remote digest concurrently.
//
// Usage example:
//
//	report, err := actions.CheckForUpdates(ctx, lister, actions.CheckParams{
//	    References: []string{"ghcr.io/owner/app:1.2"},
//	    Config:     cfg,
//	    Client:     client.New(client.OptionsFromConfig(cfg.Retry)),
//	})
//	if err != nil {
//	    logrus.WithError(err).Error("Update check did not finish")
//	}
//	for _, img := range report.Updates() {
//	    fmt.Println(img.Reference)
//	}
//
// The package depends on the registry packages for network access and logs
// through logrus.
package actions
