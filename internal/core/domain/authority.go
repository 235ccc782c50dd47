package domain

import (
	"fmt"
	"strings"
)

// AuthorityType selects which provider handles a target.
type AuthorityType string

// Supported authorities.
const (
	AuthorityAuto             AuthorityType = "auto"
	AuthorityBasic            AuthorityType = "basic"
	AuthorityNTLM             AuthorityType = "ntlm"
	AuthorityAzureDirectory   AuthorityType = "azure-directory"
	AuthorityMicrosoftAccount AuthorityType = "microsoft-account"
	AuthorityGitHub           AuthorityType = "github"
	AuthorityBitbucket        AuthorityType = "bitbucket"
)

// ParseAuthorityType accepts the canonical names plus the aliases git users
// have historically configured (e.g. "aad", "msa", "integrated").
func ParseAuthorityType(s string) (AuthorityType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return AuthorityAuto, nil
	case "basic":
		return AuthorityBasic, nil
	case "ntlm", "integrated", "windows", "kerberos":
		return AuthorityNTLM, nil
	case "azure-directory", "azuredirectory", "aad", "azure":
		return AuthorityAzureDirectory, nil
	case "microsoft-account", "microsoftaccount", "msa", "live":
		return AuthorityMicrosoftAccount, nil
	case "github":
		return AuthorityGitHub, nil
	case "bitbucket":
		return AuthorityBitbucket, nil
	default:
		return "", fmt.Errorf("%w: authority %q", ErrUnsupportedType, s)
	}
}

// IsVSTS returns true for the Azure DevOps authorities.
func (a AuthorityType) IsVSTS() bool {
	return a == AuthorityAzureDirectory || a == AuthorityMicrosoftAccount
}

// String returns the canonical name.
func (a AuthorityType) String() string {
	return string(a)
}

// Interactivity controls whether the user may be prompted.
type Interactivity string

// Interactivity modes.
const (
	// InteractivityAuto prompts only when no usable cached credential exists.
	InteractivityAuto Interactivity = "auto"
	// InteractivityAlways skips the cache and always prompts.
	InteractivityAlways Interactivity = "always"
	// InteractivityNever never prompts.
	InteractivityNever Interactivity = "never"
)

// ParseInteractivity parses an interactivity mode. "true"/"false" are
// accepted as aliases for auto/never.
func ParseInteractivity(s string) (Interactivity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "true":
		return InteractivityAuto, nil
	case "always", "force":
		return InteractivityAlways, nil
	case "never", "false":
		return InteractivityNever, nil
	default:
		return "", fmt.Errorf("%w: interactivity %q", ErrUnsupportedType, s)
	}
}

// AllowsCache returns true when cached credentials may be used.
func (i Interactivity) AllowsCache() bool {
	return i != InteractivityAlways
}

// AllowsPrompt returns true when the user may be prompted.
func (i Interactivity) AllowsPrompt() bool {
	return i != InteractivityNever
}
