// Package client provides the retrying HTTP client shared by every registry call
// in a run.
//
// Transient failures (connection errors, timeouts, 5xx and 429 responses) are
// retried with exponential backoff up to a fixed bound. Anything else,
// including 401 and 404, is returned to the caller on the first attempt.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/lookout/pkg/types"
)

// ErrTransient wraps a failure that was retried until the retry bound ran out.
var ErrTransient = errors.New("transient registry failure")

// Errors raised while preparing an attempt.
var (
	errBodyNotRewindable = errors.New("request body cannot be replayed for retry")
	errRetriesExhausted  = errors.New("retries exhausted")
)

// defaultRequestTimeout bounds a single attempt.
const defaultRequestTimeout = 30 * time.Second

// drainLimit caps how much of a discarded body is read to allow connection reuse.
const drainLimit = 64 << 10

// Doer executes HTTP requests. *Client and *http.Client both satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryEvent describes one scheduled retry.
type RetryEvent struct {
	// Attempt is the 1-based number of the attempt that failed.
	Attempt int
	// Delay is the backoff before the next attempt.
	Delay time.Duration
	// Err is the failure that triggered the retry.
	Err error
	// URL is the redacted request URL.
	URL string
}

// Options tune a Client.
type Options struct {
	// MaxRetries bounds retries after the first attempt.
	MaxRetries int
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
	// MaxInterval caps any backoff delay.
	MaxInterval time.Duration
	// Multiplier grows the delay between retries.
	Multiplier float64
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// UserAgent is set on requests that do not carry one.
	UserAgent string
	// Transport overrides the HTTP transport; nil uses http.DefaultTransport.
	Transport http.RoundTripper
	// OnRetry is called before every backoff sleep.
	OnRetry func(RetryEvent)
}

// Client is a Doer with bounded retry. It is safe for concurrent use.
type Client struct {
	http *http.Client
	opts Options
}

// OptionsFromConfig maps the retry section of a run configuration onto Options.
//
// Parameters:
//   - retry: Retry tuning from the configuration.
//
// Returns:
//   - Options: Client options with zero values replaced by defaults.
func OptionsFromConfig(retry types.RetryConfig) Options {
	return Options{
		MaxRetries:      retry.MaxRetries,
		InitialInterval: retry.InitialInterval,
		MaxInterval:     retry.MaxInterval,
		Multiplier:      retry.Multiplier,
	}
}

// New creates a Client.
//
// Zero intervals, a multiplier below 1 and a zero timeout fall back to the
// package defaults; a negative MaxRetries is treated as zero.
//
// Parameters:
//   - opts: Client options.
//
// Returns:
//   - *Client: Ready client.
func New(opts Options) *Client {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	if opts.InitialInterval <= 0 {
		opts.InitialInterval = types.DefaultInitialInterval
	}

	if opts.MaxInterval <= 0 {
		opts.MaxInterval = types.DefaultMaxInterval
	}

	if opts.MaxInterval < opts.InitialInterval {
		opts.MaxInterval = opts.InitialInterval
	}

	if opts.Multiplier < 1 {
		opts.Multiplier = types.DefaultMultiplier
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultRequestTimeout
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
	}
}

// Do executes req, retrying transient failures.
//
// A response is returned for every non-transient status, so callers inspect
// the status code themselves. When retries run out the returned error wraps
// ErrTransient and the last failure.
//
// Parameters:
//   - req: Request to execute; a body must be replayable through GetBody.
//
// Returns:
//   - *http.Response: Response of the final attempt.
//   - error: Non-nil on a permanent transport error or exhausted retries.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	target := req.URL.Redacted()
	attempt := 0

	var resp *http.Response

	operation := func() error {
		attempt++

		attemptReq, err := c.prepare(req)
		if err != nil {
			return backoff.Permanent(err)
		}

		res, err := c.http.Do(attemptReq)
		if err != nil {
			if ctx.Err() != nil || !isRetryableError(err) {
				return backoff.Permanent(err)
			}

			return fmt.Errorf("%w: %w", ErrTransient, err)
		}

		if isRetryableStatus(res.StatusCode) {
			drainAndClose(res.Body)

			return fmt.Errorf("%w: %s %s returned %s", ErrTransient, req.Method, target, res.Status)
		}

		resp = res

		return nil
	}

	notify := func(err error, delay time.Duration) {
		logrus.WithFields(logrus.Fields{
			"url":          target,
			"attempt":      attempt,
			"max_attempts": c.Attempts(),
			"delay":        delay,
		}).WithError(err).Debug("Retrying registry request")

		if c.opts.OnRetry != nil {
			c.opts.OnRetry(RetryEvent{Attempt: attempt, Delay: delay, Err: err, URL: target})
		}
	}

	if err := backoff.RetryNotify(operation, c.newBackOff(ctx), notify); err != nil {
		if errors.Is(err, ErrTransient) {
			return nil, fmt.Errorf("%w after %d attempts: %w", errRetriesExhausted, attempt, err)
		}

		return nil, err
	}

	return resp, nil
}

// Attempts returns the maximum number of attempts per request.
func (c *Client) Attempts() int {
	return c.opts.MaxRetries + 1
}

// newBackOff builds a deterministic schedule: jitter is disabled so delays
// never decrease, and only the retry count ends it.
func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.opts.InitialInterval
	exp.MaxInterval = c.opts.MaxInterval
	exp.Multiplier = c.opts.Multiplier
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.opts.MaxRetries)), ctx)
}

// prepare clones req for one attempt with a fresh body.
func (c *Client) prepare(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())

	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, errBodyNotRewindable
		}

		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errBodyNotRewindable, err)
		}

		clone.Body = body
	}

	if c.opts.UserAgent != "" && clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", c.opts.UserAgent)
	}

	return clone, nil
}

// isRetryableStatus reports whether a registry status is worth retrying.
func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// isRetryableError classifies transport errors.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, net.ErrClosed) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(body, drainLimit))
	_ = body.Close()
}
