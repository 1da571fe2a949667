package types

// TokenResponse is the body returned by a registry token endpoint.
//
// Registries following the distribution API send "token"; OAuth2-style
// endpoints send "access_token". Either is accepted.
type TokenResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Value returns the first non-empty token field.
func (t TokenResponse) Value() string {
	if t.Token != "" {
		return t.Token
	}

	return t.AccessToken
}
