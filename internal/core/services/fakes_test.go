package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/storage"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
)

// countingStore records every call made to the wrapped credential store.
type countingStore struct {
	driven.CredentialStore
	mu       sync.Mutex
	reads    []string
	writes   []string
	deletes  []string
	failDel  map[string]error
	failRead map[string]error
}

func newCountingStore() (*countingStore, *memory.SecretStore) {
	secrets := memory.NewSecretStore()
	return &countingStore{
		CredentialStore: storage.NewCredentialStore(secrets, domain.SecretCredential),
		failDel:         make(map[string]error),
		failRead:        make(map[string]error),
	}, secrets
}

func (s *countingStore) ReadCredentials(ctx context.Context, t domain.TargetURI) (*domain.Credential, error) {
	s.mu.Lock()
	s.reads = append(s.reads, t.String())
	err := s.failRead[t.String()]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.CredentialStore.ReadCredentials(ctx, t)
}

func (s *countingStore) WriteCredentials(ctx context.Context, t domain.TargetURI, c domain.Credential) error {
	s.mu.Lock()
	s.writes = append(s.writes, t.String())
	s.mu.Unlock()
	return s.CredentialStore.WriteCredentials(ctx, t, c)
}

func (s *countingStore) DeleteCredentials(ctx context.Context, t domain.TargetURI) (bool, error) {
	s.mu.Lock()
	s.deletes = append(s.deletes, t.String())
	err := s.failDel[t.String()]
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	return s.CredentialStore.DeleteCredentials(ctx, t)
}

// seed writes directly to the wrapped store without recording the call.
func (s *countingStore) seed(raw string, cred domain.Credential) {
	if err := s.CredentialStore.WriteCredentials(context.Background(), domain.MustParseTargetURI(raw), cred); err != nil {
		panic(err)
	}
}

// stored reads directly from the wrapped store without recording the call.
func (s *countingStore) stored(raw string) *domain.Credential {
	cred, err := s.CredentialStore.ReadCredentials(context.Background(), domain.MustParseTargetURI(raw))
	if err != nil {
		panic(err)
	}
	return cred
}

// fakeAuthority is a scriptable ProviderAuthority. Each call counts as one
// network round trip.
type fakeAuthority struct {
	mu       sync.Mutex
	calls    []string
	targets  []string
	acquire  func(cred domain.Credential, code string) (domain.AuthenticationResult, error)
	refresh  func(token string) (domain.AuthenticationResult, error)
	validate func(cred domain.Credential) (bool, error)
}

func (a *fakeAuthority) record(name string, target domain.TargetURI) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, name)
	a.targets = append(a.targets, target.String())
}

func (a *fakeAuthority) Title() string            { return "Fake" }
func (a *fakeAuthority) Scope() domain.TokenScope { return domain.NewTokenScope("repo") }

func (a *fakeAuthority) AcquireToken(_ context.Context, target domain.TargetURI, cred domain.Credential,
	code string, _ domain.TokenScope) (domain.AuthenticationResult, error) {
	a.record("acquire:"+code, target)
	if a.acquire == nil {
		return domain.Failure(), nil
	}
	return a.acquire(cred, code)
}

func (a *fakeAuthority) RefreshToken(_ context.Context, target domain.TargetURI, token string) (domain.AuthenticationResult, error) {
	a.record("refresh", target)
	if a.refresh == nil {
		return domain.Failure(), nil
	}
	return a.refresh(token)
}

func (a *fakeAuthority) ValidateCredentials(_ context.Context, target domain.TargetURI, cred domain.Credential) (bool, error) {
	a.record("validate", target)
	if a.validate == nil {
		return true, nil
	}
	return a.validate(cred)
}

func (a *fakeAuthority) networkCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

// fakeOAuthAuthority adds a browser flow to fakeAuthority.
type fakeOAuthAuthority struct {
	*fakeAuthority
	prefers bool
	oauth   func(username string) (domain.AuthenticationResult, error)
}

func (a *fakeOAuthAuthority) PrefersOAuth() bool { return a.prefers }

func (a *fakeOAuthAuthority) AcquireTokenOAuth(_ context.Context, target domain.TargetURI, username string,
	_ domain.TokenScope) (domain.AuthenticationResult, error) {
	a.record("oauth", target)
	if a.oauth == nil {
		return domain.Failure(), nil
	}
	return a.oauth(username)
}

// fakePrompter answers prompts from fixed values.
type fakePrompter struct {
	cred         *domain.Credential
	code         string
	allowOAuth   bool
	credPrompts  int
	codePrompts  int
	oauthPrompts int
	lastKind     domain.ResultType
}

func (p *fakePrompter) PromptCredentials(_ context.Context, _ string, _ domain.TargetURI,
	_ string) (*domain.Credential, error) {
	p.credPrompts++
	return p.cred, nil
}

func (p *fakePrompter) PromptAuthenticationCode(_ context.Context, _ string, _ domain.TargetURI,
	kind domain.ResultType, _ string) (string, error) {
	p.codePrompts++
	p.lastKind = kind
	return p.code, nil
}

func (p *fakePrompter) PromptOAuth(_ context.Context, _ string, _ domain.TargetURI,
	kind domain.ResultType, _ string) (bool, error) {
	p.oauthPrompts++
	p.lastKind = kind
	return p.allowOAuth, nil
}

func credPtr(user, pass string) *domain.Credential {
	c := domain.NewCredential(user, pass)
	return &c
}
