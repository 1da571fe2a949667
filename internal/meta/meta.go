// Package meta holds build metadata injected by the linker.
package meta

// Version is set with -ldflags "-X github.com/nicholas-fedor/lookout/internal/meta.Version=...".
var Version = "v0.0.0-unknown"

// UserAgent identifies lookout to registries.
var UserAgent = "lookout/" + Version

