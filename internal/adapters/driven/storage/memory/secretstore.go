package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
)

// Ensure SecretStore implements the interface.
var _ driven.SecretStore = (*SecretStore)(nil)

// SecretStore is an in-memory implementation of driven.SecretStore.
// Secrets live for the life of the process.
type SecretStore struct {
	mu      sync.RWMutex
	secrets map[string]domain.Credential
}

// NewSecretStore creates a new in-memory secret store.
func NewSecretStore() *SecretStore {
	return &SecretStore{
		secrets: make(map[string]domain.Credential),
	}
}

// GetSecret retrieves the secret stored under key.
func (s *SecretStore) GetSecret(_ context.Context, key string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.secrets[key]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

// SetSecret stores or replaces the secret under key.
func (s *SecretStore) SetSecret(_ context.Context, key string, cred domain.Credential) error {
	if key == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[key] = cred
	return nil
}

// DeleteSecret removes key.
func (s *SecretStore) DeleteSecret(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.secrets[key]
	delete(s.secrets, key)
	return ok, nil
}

// ListKeys returns the keys starting with prefix, sorted.
func (s *SecretStore) ListKeys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.secrets))
	for k := range s.secrets {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored secrets.
func (s *SecretStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.secrets)
}
