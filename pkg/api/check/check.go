package check

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/lookout/internal/util"
	"github.com/nicholas-fedor/lookout/pkg/session"
)

// retryAfterSeconds is advertised to clients refused while a check runs.
const retryAfterSeconds = 30

// ErrBusy is returned by Refresh when another check holds the lock.
var ErrBusy = errors.New("another update check is already running")

// RunFunc performs one update check with optional extra references.
type RunFunc func(ctx context.Context, references []string) (*session.Report, error)

// Handler serves the /v1/json and /v1/refresh endpoints.
type Handler struct {
	fn          RunFunc
	JSONPath    string
	RefreshPath string
	lock        chan bool
	last        atomic.Pointer[session.Report]
}

// New creates a new Handler instance.
//
// Parameters:
//   - fn: Function running one update check.
//   - lock: Optional lock channel shared with other callers; if nil, a new one is created.
//
// Returns:
//   - *Handler: Handler without a cached report.
func New(fn RunFunc, lock chan bool) *Handler {
	if lock == nil {
		lock = make(chan bool, 1)
		lock <- true
	}

	return &Handler{
		fn:          fn,
		JSONPath:    "/v1/json",
		RefreshPath: "/v1/refresh",
		lock:        lock,
	}
}

// Last returns the most recent full report, nil before the first check completes.
func (h *Handler) Last() *session.Report {
	return h.last.Load()
}

// Refresh runs a full check unless one is already running and caches its report.
//
// Parameters:
//   - ctx: Context bounding the check.
//
// Returns:
//   - *session.Report: Fresh report.
//   - error: ErrBusy if a check is running, or the check's own error.
func (h *Handler) Refresh(ctx context.Context) (*session.Report, error) {
	select {
	case token := <-h.lock:
		defer func() { h.lock <- token }()
	default:
		return nil, ErrBusy
	}

	return h.run(ctx, nil)
}

// refreshImages waits for the lock and checks the given references. The
// result covers only a subset of images, so it is returned but not cached.
func (h *Handler) refreshImages(ctx context.Context, references []string) (*session.Report, error) {
	select {
	case token := <-h.lock:
		defer func() { h.lock <- token }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return h.fn(ctx, references)
}

func (h *Handler) run(ctx context.Context, references []string) (*session.Report, error) {
	report, err := h.fn(ctx, references)
	if err != nil {
		return nil, err
	}

	h.last.Store(report)

	return report, nil
}

// HandleJSON writes the cached report.
func (h *Handler) HandleJSON(w http.ResponseWriter, r *http.Request) {
	logrus.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Debug("Received report request")

	report := h.Last()
	if report == nil {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		writeJSON(w, http.StatusServiceUnavailable, errorBody("no update check has completed yet"))

		return
	}

	writeJSON(w, http.StatusOK, report)
}

// HandleRefresh runs a check and writes its report.
//
// Requests may name extra images with repeated or comma-separated "image"
// query parameters.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	logrus.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Info("Received refresh request")

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))

		return
	}

	_, _ = io.Copy(io.Discard, r.Body)

	images := util.SplitList(r.URL.Query()["image"])

	var (
		report *session.Report
		err    error
	)

	if len(images) > 0 {
		report, err = h.refreshImages(r.Context(), images)
	} else {
		report, err = h.Refresh(r.Context())
	}

	switch {
	case errors.Is(err, ErrBusy):
		logrus.Debug("Skipped refresh, another check already in progress")
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		writeJSON(w, http.StatusTooManyRequests, errorBody(err.Error()))
	case err != nil:
		logrus.WithError(err).Warn("Refresh failed")
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func errorBody(message string) map[string]any {
	return map[string]any{
		"error":       message,
		"api_version": "v1",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	var buf bytes.Buffer

	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		logrus.WithError(err).Error("Failed to encode JSON response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(buf.Bytes()); err != nil {
		logrus.WithError(err).Error("Failed to write response")
	}
}
