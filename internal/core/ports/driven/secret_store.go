package driven

import (
	"context"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

// SecretStore is a flat key/value backend for secrets. Keys are produced by
// domain.KeyFor and domain.RefreshKey; the store does not interpret them.
//
// Implementations must be safe for concurrent use. Concurrent writes to the
// same key are last-write-wins.
type SecretStore interface {
	// GetSecret returns the secret stored under key, or nil if absent.
	GetSecret(ctx context.Context, key string) (*domain.Credential, error)

	// SetSecret stores cred under key.
	SetSecret(ctx context.Context, key string, cred domain.Credential) error

	// DeleteSecret removes key. Returns true if it existed.
	DeleteSecret(ctx context.Context, key string) (bool, error)

	// ListKeys returns the stored keys starting with prefix, sorted.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}
