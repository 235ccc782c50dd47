package domain

import (
	"net/url"
	"strings"
)

// SecretKind is the namespace a secret is filed under. Distinct kinds never
// share keys.
type SecretKind string

// Built-in secret kinds.
const (
	// SecretCredential is the default namespace for git credentials.
	SecretCredential SecretKind = "git"
	// SecretToken is the namespace for raw provider tokens.
	SecretToken SecretKind = "token"
)

// String returns the namespace text.
func (k SecretKind) String() string {
	if k == "" {
		return string(SecretCredential)
	}
	return string(k)
}

// KeyFor maps a target, an optional username and a secret kind to a stable
// storage key of the form "<kind>:<scheme>://[user@]host[:port][/path]".
//
// Userinfo embedded in the target always wins over username. A blank or
// whitespace-only username means no username.
func KeyFor(target TargetURI, username string, kind SecretKind) string {
	if target.IsZero() {
		return ""
	}

	user := target.Username()
	if user == "" {
		user = strings.TrimSpace(username)
	}

	var b strings.Builder
	b.WriteString(kind.String())
	b.WriteString(":")
	b.WriteString(target.Scheme())
	b.WriteString("://")
	if user != "" {
		b.WriteString(url.PathEscape(user))
		b.WriteString("@")
	}
	b.WriteString(target.Host())
	b.WriteString(strings.TrimSuffix(target.Path(), "/"))
	return b.String()
}

// RefreshKey returns the refresh-token sibling key for the same identity.
// It is always the access key with RefreshTokenSuffix appended.
func RefreshKey(target TargetURI, username string, kind SecretKind) string {
	key := KeyFor(target, username, kind)
	if key == "" {
		return ""
	}
	return key + RefreshTokenSuffix
}
