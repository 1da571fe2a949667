// Package api wires the report, refresh and metrics endpoints into the HTTP server used by serve.
package api

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/sirupsen/logrus"

	pkgApi "github.com/nicholas-fedor/lookout/pkg/api"
	"github.com/nicholas-fedor/lookout/pkg/api/check"
	metricsAPI "github.com/nicholas-fedor/lookout/pkg/api/metrics"
)

// GetAPIAddr formats the API address string based on host and port.
func GetAPIAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Options selects the address and endpoints served by SetupAndStartAPI.
type Options struct {
	Host    string              // Host to bind, empty for every interface.
	Port    int                 // Port to bind.
	Token   string              // Bearer token guarding /v1 endpoints, empty for none.
	Check   *check.Handler      // Report and refresh endpoints, required.
	Metrics *metricsAPI.Handler // Metrics endpoint, nil to omit it.
}

// SetupAndStartAPI registers the configured endpoints and launches the HTTP
// API in the background until ctx ends.
//
// Parameters:
//   - ctx: The context controlling the API's lifecycle, enabling graceful shutdown on cancellation.
//   - opts: Address, token and handlers to serve.
//   - server: Optional server replacing the real http.Server.
//
// Returns:
//   - *pkgApi.API: The started API, exposing its address and root handler.
//   - error: An error if the API fails to start.
func SetupAndStartAPI(ctx context.Context, opts Options, server ...pkgApi.HTTPServer) (*pkgApi.API, error) {
	address := GetAPIAddr(opts.Host, opts.Port)

	httpAPI := pkgApi.New(opts.Token, address, server...)

	if opts.Check != nil {
		httpAPI.RegisterFunc(opts.Check.JSONPath, opts.Check.HandleJSON)
		httpAPI.RegisterFunc(opts.Check.RefreshPath, opts.Check.HandleRefresh)
	}

	if opts.Metrics != nil {
		httpAPI.RegisterHandler(opts.Metrics.Path, opts.Metrics.Handle)
	}

	logrus.WithFields(logrus.Fields{
		"addr":    address,
		"metrics": opts.Metrics != nil,
	}).Debug("Registered API endpoints")

	if err := httpAPI.Start(ctx, false); err != nil {
		return nil, fmt.Errorf("failed to start HTTP API: %w", err)
	}

	return httpAPI, nil
}
