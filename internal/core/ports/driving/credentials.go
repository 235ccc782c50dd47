package driving

import (
	"context"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

// CredentialService answers git's credential helper requests.
type CredentialService interface {
	// Get returns the credential git should use for target.
	// Returns nil when no credential could be found or acquired.
	Get(ctx context.Context, target domain.TargetURI, username string) (*domain.Credential, error)

	// Store records a credential git reports as accepted.
	Store(ctx context.Context, target domain.TargetURI, cred domain.Credential) error

	// Erase removes a credential git reports as rejected.
	// It does nothing when the preserve setting is on.
	Erase(ctx context.Context, target domain.TargetURI, username string) error

	// Delete removes the credentials for target regardless of preserve.
	Delete(ctx context.Context, target domain.TargetURI, username string) error

	// List returns the storage keys held for a namespace.
	List(ctx context.Context, kind domain.SecretKind) ([]string, error)
}
