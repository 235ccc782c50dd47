// Package storage maps git targets onto secret store keys.
package storage

import (
	"context"
	"fmt"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
)

// Ensure CredentialStore and Provider implement the interfaces.
var (
	_ driven.CredentialStore         = (*CredentialStore)(nil)
	_ driven.CredentialStoreProvider = (*Provider)(nil)
)

// CredentialStore addresses a SecretStore by target using domain.KeyFor.
type CredentialStore struct {
	secrets driven.SecretStore
	kind    domain.SecretKind
}

// NewCredentialStore creates a credential store filing secrets under kind.
func NewCredentialStore(secrets driven.SecretStore, kind domain.SecretKind) *CredentialStore {
	return &CredentialStore{secrets: secrets, kind: kind}
}

// Namespace returns the secret kind this store files under.
func (s *CredentialStore) Namespace() domain.SecretKind {
	return s.kind
}

// ReadCredentials returns the credential stored for target, or nil.
func (s *CredentialStore) ReadCredentials(ctx context.Context, target domain.TargetURI) (*domain.Credential, error) {
	key, err := s.key(target)
	if err != nil {
		return nil, err
	}
	cred, err := s.secrets.GetSecret(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return cred, nil
}

// WriteCredentials stores cred for target.
func (s *CredentialStore) WriteCredentials(ctx context.Context, target domain.TargetURI, cred domain.Credential) error {
	key, err := s.key(target)
	if err != nil {
		return err
	}
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("%w: credential for %s needs a username and secret", err, target)
	}
	if err := s.secrets.SetSecret(ctx, key, cred); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// DeleteCredentials removes the credential for target.
func (s *CredentialStore) DeleteCredentials(ctx context.Context, target domain.TargetURI) (bool, error) {
	key, err := s.key(target)
	if err != nil {
		return false, err
	}
	deleted, err := s.secrets.DeleteSecret(ctx, key)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return deleted, nil
}

func (s *CredentialStore) key(target domain.TargetURI) (string, error) {
	if target.IsZero() {
		return "", fmt.Errorf("%w: empty target", domain.ErrInvalidInput)
	}
	return domain.KeyFor(target, "", s.kind), nil
}

// Provider hands out credential stores per namespace over one backend.
type Provider struct {
	secrets driven.SecretStore
}

// NewProvider creates a provider over secrets.
func NewProvider(secrets driven.SecretStore) *Provider {
	return &Provider{secrets: secrets}
}

// ForNamespace returns the credential store for kind.
func (p *Provider) ForNamespace(kind domain.SecretKind) driven.CredentialStore {
	return NewCredentialStore(p.secrets, kind)
}

// Keys lists the storage keys held in a namespace.
func (p *Provider) Keys(ctx context.Context, kind domain.SecretKind) ([]string, error) {
	return p.secrets.ListKeys(ctx, kind.String()+":")
}

// Secrets returns the underlying backend.
func (p *Provider) Secrets() driven.SecretStore {
	return p.secrets
}
