// Package container lists the images known to the local Docker daemon.
//
// The Client turns repo tags and repo digests reported by the daemon into
// image.Image values carrying their current digest. It fails open: when the
// daemon cannot be reached it logs a warning and reports no images, so an
// update check still covers explicitly requested references.
//
// Usage example:
//
//	cli, err := container.NewClient("")
//	if err != nil {
//	    logrus.WithError(err).Fatal("Failed to initialize Docker client")
//	}
//	defer cli.Close()
//	images := cli.ListImages(ctx, nil)
package container
