// Package auth resolves how a registry wants to be authenticated and obtains
// the Authorization header digest requests must carry.
//
// A run probes each registry once with CheckAuth and, if a challenge comes
// back, acquires one token covering every repository it needs on that
// registry with GetToken.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/docker/distribution/registry/client/auth/challenge"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/lookout/pkg/registry/client"
	"github.com/nicholas-fedor/lookout/pkg/types"
)

// ChallengeHeader is the HTTP Header containing challenge instructions.
const ChallengeHeader = "WWW-Authenticate"

// Scheme is an authentication scheme named by a registry challenge.
type Scheme string

// Supported challenge schemes, lower-cased as the challenge parser returns them.
const (
	SchemeBearer Scheme = "bearer"
	SchemeBasic  Scheme = "basic"
)

// maxTokenBody caps how much of a token response is decoded.
const maxTokenBody = 1 << 20

// Exported failure kinds.
var (
	// ErrAuthProbe marks a registry whose auth probe could not be completed.
	ErrAuthProbe = errors.New("registry auth probe failed")
	// ErrTokenAcquisition marks a failed token request.
	ErrTokenAcquisition = errors.New("failed to acquire registry token")
)

// Static errors for registry authentication failures.
var (
	errNoCredentials          = errors.New("no credentials available")
	errUnsupportedChallenge   = errors.New("unsupported challenge type from registry")
	errInvalidChallengeHeader = errors.New("challenge header did not include all values needed to construct an auth url")
	errUnexpectedStatus       = errors.New("unexpected status")
	errEmptyToken             = errors.New("token response carried no token")
)

// Challenge is a parsed WWW-Authenticate challenge.
type Challenge struct {
	Scheme  Scheme
	Realm   string
	Service string
}

// GetChallengeURL builds the API version-check URL used as the auth probe.
//
// Parameters:
//   - registry: Registry host.
//   - scheme: "https" or "http".
//
// Returns:
//   - url.URL: Probe URL, e.g. https://ghcr.io/v2/.
func GetChallengeURL(registry, scheme string) url.URL {
	return url.URL{
		Scheme: scheme,
		Host:   registry,
		Path:   "/v2/",
	}
}

// GetChallengeRequest creates the unauthenticated probe request.
//
// Parameters:
//   - ctx: Request context.
//   - target: Probe URL.
//
// Returns:
//   - *http.Request: GET request asking for JSON.
//   - error: Non-nil if the request cannot be built.
func GetChallengeRequest(ctx context.Context, target url.URL) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	return req, nil
}

// CheckAuth probes a registry to learn whether it requires authentication.
//
// Parameters:
//   - ctx: Context bounding the probe.
//   - registry: Registry host.
//   - cfg: Run configuration, consulted for the URL scheme.
//   - doer: Shared registry client.
//
// Returns:
//   - *Challenge: nil when the registry answers without authentication.
//   - error: Wraps ErrAuthProbe on transport failures, unexpected statuses or
//     unusable challenges.
func CheckAuth(ctx context.Context, registry string, cfg *types.Config, doer client.Doer) (*Challenge, error) {
	fields := logrus.Fields{"registry": registry}

	req, err := GetChallengeRequest(ctx, GetChallengeURL(registry, cfg.Scheme(registry)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAuthProbe, registry, err)
	}

	logrus.WithFields(fields).WithField("url", req.URL.String()).Debug("Probing registry authentication")

	res, err := doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAuthProbe, registry, err)
	}
	defer drain(res)

	switch res.StatusCode {
	case http.StatusOK:
		logrus.WithFields(fields).Debug("Registry allows anonymous access")

		return nil, nil //nolint:nilnil // No challenge means no token is needed.
	case http.StatusUnauthorized:
		parsed, err := parseChallenges(res)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrAuthProbe, registry, err)
		}

		logrus.WithFields(fields).WithFields(logrus.Fields{
			"scheme":  parsed.Scheme,
			"realm":   parsed.Realm,
			"service": parsed.Service,
		}).Debug("Registry requires authentication")

		return parsed, nil
	default:
		return nil, fmt.Errorf("%w: %s: %w %s", ErrAuthProbe, registry, errUnexpectedStatus, res.Status)
	}
}

// parseChallenges picks the challenge to answer from a 401 response, preferring bearer.
func parseChallenges(res *http.Response) (*Challenge, error) {
	challenges := challenge.ResponseChallenges(res)
	if len(challenges) == 0 {
		return nil, fmt.Errorf("%w: missing %s header", errInvalidChallengeHeader, ChallengeHeader)
	}

	var basic *Challenge

	for _, c := range challenges {
		switch Scheme(strings.ToLower(c.Scheme)) {
		case SchemeBearer:
			realm := c.Parameters["realm"]
			if realm == "" {
				return nil, errInvalidChallengeHeader
			}

			if _, err := url.Parse(realm); err != nil {
				return nil, fmt.Errorf("%w: %w", errInvalidChallengeHeader, err)
			}

			return &Challenge{Scheme: SchemeBearer, Realm: realm, Service: c.Parameters["service"]}, nil
		case SchemeBasic:
			if basic == nil {
				basic = &Challenge{Scheme: SchemeBasic, Realm: c.Parameters["realm"]}
			}
		}
	}

	if basic != nil {
		return basic, nil
	}

	return nil, fmt.Errorf("%w: %s", errUnsupportedChallenge, challenges[0].Scheme)
}

// GetScopes returns one pull scope per distinct repository, sorted.
//
// Parameters:
//   - repositories: Repository paths, possibly with duplicates.
//
// Returns:
//   - []string: Scopes such as "repository:library/alpine:pull".
func GetScopes(repositories []string) []string {
	distinct := slices.Clone(repositories)
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)

	scopes := make([]string, 0, len(distinct))
	for _, repo := range distinct {
		if repo == "" {
			continue
		}

		scopes = append(scopes, fmt.Sprintf("repository:%s:pull", repo))
	}

	return scopes
}

// GetAuthURL builds the token request URL for a bearer challenge.
//
// Parameters:
//   - ch: Bearer challenge.
//   - repositories: Repositories the token must cover.
//
// Returns:
//   - *url.URL: Realm URL with service and scope parameters.
//   - error: Non-nil if the realm is missing or unparsable.
func GetAuthURL(ch *Challenge, repositories []string) (*url.URL, error) {
	if ch == nil || ch.Realm == "" {
		return nil, errInvalidChallengeHeader
	}

	authURL, err := url.Parse(ch.Realm)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidChallengeHeader, err)
	}

	query := authURL.Query()
	if ch.Service != "" {
		query.Set("service", ch.Service)
	}

	for _, scope := range GetScopes(repositories) {
		query.Add("scope", scope)
	}

	authURL.RawQuery = query.Encode()

	return authURL, nil
}

// GetToken obtains the Authorization header value for a challenged registry.
//
// Bearer challenges result in exactly one request to the realm, carrying a
// scope for every repository and basic auth when credentials exist. Basic
// challenges are answered locally from the credentials.
//
// Parameters:
//   - ctx: Context bounding the token request.
//   - ch: Challenge returned by CheckAuth.
//   - repositories: Repository paths needing pull access.
//   - credentials: Optional registry credentials.
//   - doer: Shared registry client.
//
// Returns:
//   - string: Header value, "Bearer <token>" or "Basic <encoded>".
//   - error: Wraps ErrTokenAcquisition on failure.
func GetToken(
	ctx context.Context,
	ch *Challenge,
	repositories []string,
	credentials *types.RegistryCredentials,
	doer client.Doer,
) (string, error) {
	if ch == nil {
		return "", fmt.Errorf("%w: %w", ErrTokenAcquisition, errInvalidChallengeHeader)
	}

	switch ch.Scheme {
	case SchemeBasic:
		if credentials.IsEmpty() {
			return "", fmt.Errorf("%w: %w", ErrTokenAcquisition, errNoCredentials)
		}

		return "Basic " + encodeBasic(credentials), nil
	case SchemeBearer:
		return getBearerToken(ctx, ch, repositories, credentials, doer)
	default:
		return "", fmt.Errorf("%w: %w: %s", ErrTokenAcquisition, errUnsupportedChallenge, ch.Scheme)
	}
}

func getBearerToken(
	ctx context.Context,
	ch *Challenge,
	repositories []string,
	credentials *types.RegistryCredentials,
	doer client.Doer,
) (string, error) {
	authURL, err := GetAuthURL(ch, repositories)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenAcquisition, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenAcquisition, err)
	}

	fields := logrus.Fields{"realm": ch.Realm, "service": ch.Service, "scopes": len(repositories)}

	if !credentials.IsEmpty() {
		req.SetBasicAuth(credentials.Username, credentials.Password)
		logrus.WithFields(fields).Debug("Requesting token with credentials")
	} else {
		logrus.WithFields(fields).Debug("Requesting anonymous token")
	}

	res, err := doer.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenAcquisition, err)
	}
	defer drain(res)

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %w %s", ErrTokenAcquisition, errUnexpectedStatus, res.Status)
	}

	var token types.TokenResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxTokenBody)).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: failed to decode token response: %w", ErrTokenAcquisition, err)
	}

	if token.Value() == "" {
		return "", fmt.Errorf("%w: %w", ErrTokenAcquisition, errEmptyToken)
	}

	return "Bearer " + token.Value(), nil
}

func encodeBasic(credentials *types.RegistryCredentials) string {
	return base64.StdEncoding.EncodeToString([]byte(credentials.Username + ":" + credentials.Password))
}

func drain(res *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxTokenBody))
	_ = res.Body.Close()
}
