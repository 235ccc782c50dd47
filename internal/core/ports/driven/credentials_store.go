package driven

import (
	"context"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

// CredentialStore persists git credentials addressed by target.
//
// Each distinct TargetURI (including its userinfo) is a distinct slot. A
// zero target or an empty credential is rejected with domain.ErrInvalidInput.
type CredentialStore interface {
	// ReadCredentials returns the credential stored for target.
	// Returns nil and no error when nothing is stored.
	ReadCredentials(ctx context.Context, target domain.TargetURI) (*domain.Credential, error)

	// WriteCredentials stores cred for target, replacing any previous value.
	WriteCredentials(ctx context.Context, target domain.TargetURI, cred domain.Credential) error

	// DeleteCredentials removes the credential for target.
	// Returns true if something was removed.
	DeleteCredentials(ctx context.Context, target domain.TargetURI) (bool, error)
}

// CredentialStoreProvider opens the credential store for a namespace.
type CredentialStoreProvider interface {
	ForNamespace(kind domain.SecretKind) CredentialStore

	// Keys lists the storage keys held in a namespace.
	Keys(ctx context.Context, kind domain.SecretKind) ([]string, error)
}
