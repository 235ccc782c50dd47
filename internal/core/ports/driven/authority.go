package driven

import (
	"context"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

// ProviderAuthority is implemented by every hosting provider.
//
// Expected outcomes (bad password, second factor required) are returned as
// AuthenticationResult values. Errors are reserved for transport failures and
// malformed provider responses.
type ProviderAuthority interface {
	// Title is shown in prompts, e.g. "GitHub".
	Title() string

	// Scope is the default token scope requested at sign-in.
	Scope() domain.TokenScope

	// AcquireToken exchanges a username and password, plus an optional
	// second-factor code, for a token.
	AcquireToken(ctx context.Context, target domain.TargetURI, cred domain.Credential,
		code string, scope domain.TokenScope) (domain.AuthenticationResult, error)

	// RefreshToken redeems a stored refresh token for a new access token.
	RefreshToken(ctx context.Context, target domain.TargetURI, refreshToken string) (domain.AuthenticationResult, error)

	// ValidateCredentials checks that cred is still accepted by the server.
	ValidateCredentials(ctx context.Context, target domain.TargetURI, cred domain.Credential) (bool, error)
}

// OAuthAuthority is implemented by authorities with a browser sign-in flow.
type OAuthAuthority interface {
	ProviderAuthority

	// PrefersOAuth returns true when interactive logon always goes through
	// the browser rather than a username/password prompt.
	PrefersOAuth() bool

	// AcquireTokenOAuth runs the browser flow.
	AcquireTokenOAuth(ctx context.Context, target domain.TargetURI, username string,
		scope domain.TokenScope) (domain.AuthenticationResult, error)
}

// AuthorityFactory builds the authority that serves a resolved operation.
type AuthorityFactory interface {
	// Create returns domain.ErrUnsupportedType for authorities that have no
	// token flow (auto, ntlm).
	Create(op *domain.Operation) (ProviderAuthority, error)
}

// TenantDetector discovers the Azure DevOps tenant behind a target.
type TenantDetector interface {
	// DetectTenant returns isVSTS false when target is not Azure DevOps.
	// An empty tenant on a VSTS target means Microsoft Account.
	DetectTenant(ctx context.Context, target domain.TargetURI) (tenant string, isVSTS bool)
}

// NTLMProber checks whether a server offers integrated authentication.
type NTLMProber interface {
	// SupportsNTLM returns true when an unauthenticated request is answered
	// with a challenge offering only NTLM or Negotiate.
	SupportsNTLM(ctx context.Context, target domain.TargetURI) bool
}
