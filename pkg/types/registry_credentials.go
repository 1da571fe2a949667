package types

// RegistryCredentials holds basic auth credentials.
type RegistryCredentials struct {
	Username string `json:"username" mapstructure:"username"` // Registry username.
	Password string `json:"password" mapstructure:"password"` // Registry token or password.
}

// IsEmpty reports whether no usable credentials are present.
func (c *RegistryCredentials) IsEmpty() bool {
	return c == nil || (c.Username == "" && c.Password == "")
}
