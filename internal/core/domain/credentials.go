package domain

import "strings"

// Credential is a username and secret pair handed back to git.
//
// The secret may be a password, a personal access token or an OAuth access
// token; it is opaque at this layer.
type Credential struct {
	// Username is the account name sent with the secret.
	Username string `json:"username"`
	// Password is the secret value.
	Password string `json:"password"`
}

// NewCredential creates a credential value.
func NewCredential(username, password string) Credential {
	return Credential{Username: username, Password: password}
}

// NTLMCredential returns the empty credential that tells git to fall back to
// integrated (NTLM/Negotiate) authentication. It is never persisted.
func NTLMCredential() Credential {
	return Credential{}
}

// IsEmpty returns true when neither username nor secret is set.
func (c Credential) IsEmpty() bool {
	return c.Username == "" && c.Password == ""
}

// HasSecret returns true if the credential carries a non-blank secret.
func (c Credential) HasSecret() bool {
	return strings.TrimSpace(c.Password) != ""
}

// Validate checks the credential is fit to be persisted.
func (c Credential) Validate() error {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return ErrInvalidInput
	}
	return nil
}

// String hides the secret.
func (c Credential) String() string {
	return "Credential{" + c.Username + ", ****}"
}
