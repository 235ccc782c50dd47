package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// RefreshTokenSuffix is appended to a target's path to address the
// refresh-token sibling of an access-token entry.
const RefreshTokenSuffix = "/refresh_token"

// TargetURI identifies the remote endpoint a credential belongs to.
//
// A TargetURI is immutable: every derivation returns a new value. Two
// TargetURIs that differ only in userinfo are distinct storage scopes.
type TargetURI struct {
	u *url.URL
}

// ParseTargetURI parses a raw URL into a TargetURI.
// Only absolute URLs with a scheme and host are accepted.
func ParseTargetURI(raw string) (TargetURI, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TargetURI{}, fmt.Errorf("%w: empty target url", ErrInvalidInput)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return TargetURI{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return TargetURI{}, fmt.Errorf("%w: target url %q must be absolute", ErrInvalidInput, raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.RawPath = ""

	return TargetURI{u: u}, nil
}

// NewTargetURI builds a TargetURI from the fields git passes on the
// credential protocol. The path may be empty.
func NewTargetURI(protocol, host, path string) (TargetURI, error) {
	if protocol == "" || host == "" {
		return TargetURI{}, fmt.Errorf("%w: protocol and host are required", ErrInvalidInput)
	}

	raw := protocol + "://" + host
	if path != "" {
		raw += "/" + strings.TrimPrefix(path, "/")
	}
	return ParseTargetURI(raw)
}

// MustParseTargetURI is like ParseTargetURI but panics on error.
// Intended for tests and constants.
func MustParseTargetURI(raw string) TargetURI {
	t, err := ParseTargetURI(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// IsZero reports whether the target was never set.
func (t TargetURI) IsZero() bool {
	return t.u == nil
}

// Scheme returns the lowercase URL scheme.
func (t TargetURI) Scheme() string {
	if t.u == nil {
		return ""
	}
	return t.u.Scheme
}

// Host returns host[:port].
func (t TargetURI) Host() string {
	if t.u == nil {
		return ""
	}
	return t.u.Host
}

// Hostname returns the host without any port.
func (t TargetURI) Hostname() string {
	if t.u == nil {
		return ""
	}
	return t.u.Hostname()
}

// Path returns the URL path, possibly empty.
func (t TargetURI) Path() string {
	if t.u == nil {
		return ""
	}
	return t.u.Path
}

// HasUserInfo reports whether the URL carries an embedded username.
func (t TargetURI) HasUserInfo() bool {
	return t.u != nil && t.u.User != nil && t.u.User.Username() != ""
}

// Username returns the embedded username, or "".
func (t TargetURI) Username() string {
	if !t.HasUserInfo() {
		return ""
	}
	return t.u.User.Username()
}

// BaseURL returns scheme://host with no userinfo or path.
func (t TargetURI) BaseURL() string {
	if t.u == nil {
		return ""
	}
	return t.u.Scheme + "://" + t.u.Host
}

// String returns the URL without password or query.
func (t TargetURI) String() string {
	if t.u == nil {
		return ""
	}
	c := t.clone()
	if c.User != nil {
		c.User = url.User(c.User.Username())
	}
	return c.String()
}

// URL returns a copy of the underlying URL.
func (t TargetURI) URL() *url.URL {
	if t.u == nil {
		return nil
	}
	return t.clone()
}

// WithUser returns the per-user variant of the target.
// The target is returned unchanged when it already has userinfo or when
// username is blank.
func (t TargetURI) WithUser(username string) TargetURI {
	if t.u == nil || t.HasUserInfo() || strings.TrimSpace(username) == "" {
		return t
	}
	c := t.clone()
	c.User = url.User(username)
	return TargetURI{u: c}
}

// HostOnly returns the target with userinfo stripped.
func (t TargetURI) HostOnly() TargetURI {
	if t.u == nil || t.u.User == nil {
		return t
	}
	c := t.clone()
	c.User = nil
	return TargetURI{u: c}
}

// WithoutPath returns the target with its path removed.
func (t TargetURI) WithoutPath() TargetURI {
	if t.u == nil || t.u.Path == "" {
		return t
	}
	c := t.clone()
	c.Path = ""
	return TargetURI{u: c}
}

// RefreshTokenURI returns the refresh-token sibling of the target.
func (t TargetURI) RefreshTokenURI() TargetURI {
	if t.u == nil {
		return t
	}
	c := t.clone()
	c.Path = strings.TrimSuffix(c.Path, "/") + RefreshTokenSuffix
	return TargetURI{u: c}
}

// Equal reports whether both targets address the same endpoint and user.
func (t TargetURI) Equal(other TargetURI) bool {
	return t.String() == other.String()
}

func (t TargetURI) clone() *url.URL {
	c := *t.u
	if t.u.User != nil {
		user := *t.u.User
		c.User = &user
	}
	return &c
}
