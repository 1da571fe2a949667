package registry

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/lookout/pkg/registry/auth"
	"github.com/nicholas-fedor/lookout/pkg/registry/client"
	"github.com/nicholas-fedor/lookout/pkg/types"
)

// Authenticate resolves the Authorization header for one registry.
//
// It probes the registry once and, when challenged, acquires a single token
// scoped to every repository given.
//
// Parameters:
//   - ctx: Context bounding the probe and token request.
//   - registry: Registry host.
//   - repositories: Repository paths checked on this registry in the current run.
//   - cfg: Run configuration.
//   - doer: Shared registry client.
//
// Returns:
//   - string: Header value; empty for anonymous registries.
//   - error: Wraps auth.ErrAuthProbe or auth.ErrTokenAcquisition.
func Authenticate(
	ctx context.Context,
	registry string,
	repositories []string,
	cfg *types.Config,
	doer client.Doer,
) (string, error) {
	fields := logrus.Fields{"registry": registry, "repositories": len(repositories)}

	challenge, err := auth.CheckAuth(ctx, registry, cfg, doer)
	if err != nil {
		return "", err
	}

	if challenge == nil {
		logrus.WithFields(fields).Debug("No token needed")

		return "", nil
	}

	header, err := auth.GetToken(ctx, challenge, repositories, CredentialsFor(registry, cfg), doer)
	if err != nil {
		return "", err
	}

	logrus.WithFields(fields).WithField("scheme", challenge.Scheme).Debug("Acquired registry authorization")

	return header, nil
}
