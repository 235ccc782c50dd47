package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driving"
	"github.com/custodia-labs/git-credential-broker/internal/logger"
)

// Ensure CredentialService implements the interface.
var _ driving.CredentialService = (*CredentialService)(nil)

// CredentialService answers git's get, store and erase requests.
type CredentialService struct {
	settings   driving.SettingsService
	dispatcher *Dispatcher
	factory    driven.AuthorityFactory
	stores     driven.CredentialStoreProvider
	prompter   driven.Prompter
}

// NewCredentialService creates a new credential service.
// The prompter may be nil for non-interactive use.
func NewCredentialService(
	settings driving.SettingsService,
	dispatcher *Dispatcher,
	factory driven.AuthorityFactory,
	stores driven.CredentialStoreProvider,
	prompter driven.Prompter,
) *CredentialService {
	return &CredentialService{
		settings:   settings,
		dispatcher: dispatcher,
		factory:    factory,
		stores:     stores,
		prompter:   prompter,
	}
}

// Get returns the credential for target, or nil when none is available.
func (s *CredentialService) Get(ctx context.Context, target domain.TargetURI, username string) (*domain.Credential, error) {
	op, err := s.operation(target, username)
	if err != nil {
		return nil, err
	}

	authority := s.dispatcher.Resolve(ctx, op)
	logger.Info("Get %s via %s", op.Target, authority)

	if authority == domain.AuthorityNTLM {
		cred := domain.NTLMCredential()
		return &cred, nil
	}

	provider, err := s.factory.Create(op)
	if err != nil {
		return nil, fmt.Errorf("create %s authority: %w", authority, err)
	}

	orchestrator := NewOrchestrator(provider, s.stores.ForNamespace(op.Namespace), s.prompter)
	return orchestrator.GetCredentials(ctx, op)
}

// Store records a credential git reports as accepted.
// Empty credentials (integrated authentication) are not stored.
func (s *CredentialService) Store(ctx context.Context, target domain.TargetURI, cred domain.Credential) error {
	if cred.IsEmpty() {
		return nil
	}
	op, err := s.operation(target, cred.Username)
	if err != nil {
		return err
	}
	logger.Info("Store %s for %s", op.Target, cred.Username)
	return NewStoreOrchestrator(s.stores.ForNamespace(op.Namespace)).SetCredentials(ctx, op, cred)
}

// Erase removes a rejected credential unless preserve is set.
func (s *CredentialService) Erase(ctx context.Context, target domain.TargetURI, username string) error {
	op, err := s.operation(target, username)
	if err != nil {
		return err
	}
	if op.Preserve {
		logger.Info("Preserve is set, keeping credentials for %s", op.Target)
		return nil
	}
	return s.delete(ctx, op)
}

// Delete removes the credentials for target regardless of preserve.
func (s *CredentialService) Delete(ctx context.Context, target domain.TargetURI, username string) error {
	op, err := s.operation(target, username)
	if err != nil {
		return err
	}
	return s.delete(ctx, op)
}

// List returns the storage keys held for a namespace.
func (s *CredentialService) List(ctx context.Context, kind domain.SecretKind) ([]string, error) {
	return s.stores.Keys(ctx, kind)
}

func (s *CredentialService) delete(ctx context.Context, op *domain.Operation) error {
	deleted, err := NewStoreOrchestrator(s.stores.ForNamespace(op.Namespace)).DeleteCredentials(ctx, op)
	logger.Info("Erase %s: deleted=%t", op.Target, deleted)
	return err
}

func (s *CredentialService) operation(target domain.TargetURI, username string) (*domain.Operation, error) {
	if target.IsZero() {
		return nil, fmt.Errorf("%w: no target", domain.ErrInvalidInput)
	}
	if s.settings == nil {
		return nil, domain.ErrNotImplemented
	}
	settings, err := s.settings.Resolve(target)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedType) {
			return nil, fmt.Errorf("invalid configuration for %s: %w", target, err)
		}
		return nil, err
	}
	return domain.NewOperation(target, username, settings), nil
}
