// Package api serves Lookout's HTTP API.
//
// Endpoints under /v1 are guarded by an optional bearer token; /health is
// always public.
//
// Key components:
//   - API: Mux, token middleware and server lifecycle.
//   - check: Cached report (/v1/json) and on-demand refresh (/v1/refresh).
//   - metrics: Prometheus exposition (/v1/metrics).
//
// Usage example:
//
//	server := api.New(token, ":8000")
//	handler := check.New(runCheck, nil)
//	server.RegisterFunc(handler.JSONPath, handler.HandleJSON)
//	server.RegisterFunc(handler.RefreshPath, handler.HandleRefresh)
//	if err := server.Start(ctx, true); err != nil {
//	    logrus.WithError(err).Error("API server failed")
//	}
package api
