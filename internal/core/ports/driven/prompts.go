package driven

import (
	"context"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

// CredentialPrompter asks the user for a username and password.
type CredentialPrompter interface {
	// PromptCredentials returns nil when the user cancels.
	PromptCredentials(ctx context.Context, title string, target domain.TargetURI,
		username string) (*domain.Credential, error)
}

// TwoFactorPrompter asks the user to complete a second factor.
type TwoFactorPrompter interface {
	// PromptAuthenticationCode returns the code, or "" when cancelled.
	PromptAuthenticationCode(ctx context.Context, title string, target domain.TargetURI,
		kind domain.ResultType, username string) (string, error)

	// PromptOAuth asks whether to continue in the browser.
	PromptOAuth(ctx context.Context, title string, target domain.TargetURI,
		kind domain.ResultType, username string) (bool, error)
}

// Prompter combines both prompt kinds.
type Prompter interface {
	CredentialPrompter
	TwoFactorPrompter
}
