package cli

import (
	"context"
	"errors"
	"sort"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

type call struct {
	Method   string
	Target   string
	Username string
	Password string
}

type fakeCredentialService struct {
	cred  *domain.Credential
	err   error
	keys  map[domain.SecretKind][]string
	calls []call
}

func (f *fakeCredentialService) Get(_ context.Context, target domain.TargetURI, username string) (*domain.Credential, error) {
	f.calls = append(f.calls, call{Method: "get", Target: target.String(), Username: username})
	return f.cred, f.err
}

func (f *fakeCredentialService) Store(_ context.Context, target domain.TargetURI, cred domain.Credential) error {
	f.calls = append(f.calls, call{Method: "store", Target: target.String(), Username: cred.Username, Password: cred.Password})
	return f.err
}

func (f *fakeCredentialService) Erase(_ context.Context, target domain.TargetURI, username string) error {
	f.calls = append(f.calls, call{Method: "erase", Target: target.String(), Username: username})
	return f.err
}

func (f *fakeCredentialService) Delete(_ context.Context, target domain.TargetURI, username string) error {
	f.calls = append(f.calls, call{Method: "delete", Target: target.String(), Username: username})
	return f.err
}

func (f *fakeCredentialService) List(_ context.Context, kind domain.SecretKind) ([]string, error) {
	f.calls = append(f.calls, call{Method: "list", Target: kind.String()})
	if f.err != nil {
		return nil, f.err
	}
	return f.keys[kind], nil
}

type fakeSettingsService struct {
	settings domain.Settings
	resolved map[string]domain.Settings
	values   map[string]any
	path     string
}

func newFakeSettingsService() *fakeSettingsService {
	return &fakeSettingsService{
		settings: domain.DefaultSettings(),
		resolved: map[string]domain.Settings{},
		values:   map[string]any{},
		path:     "/home/user/.git-credential-broker/config.toml",
	}
}

func (f *fakeSettingsService) Global() (domain.Settings, error) {
	return f.settings, nil
}

func (f *fakeSettingsService) Resolve(target domain.TargetURI) (domain.Settings, error) {
	if s, ok := f.resolved[target.String()]; ok {
		return s, nil
	}
	return f.settings, nil
}

func (f *fakeSettingsService) Set(key, value string) error {
	if key == "unknown" {
		return errors.New("unknown key")
	}
	f.values[key] = value
	return nil
}

func (f *fakeSettingsService) Values() map[string]any {
	return f.values
}

func (f *fakeSettingsService) ConfigPath() string {
	return f.path
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
