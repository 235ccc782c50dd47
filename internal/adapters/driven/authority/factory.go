// Package authority builds the provider authority that serves a resolved
// operation.
package authority

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/authority/basic"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/authority/bitbucket"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/authority/github"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/authority/vsts"
	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.AuthorityFactory = (*Factory)(nil)

// Factory creates authorities from settings and shared adapters.
type Factory struct {
	network  driven.Network
	listener driven.CallbackListener
	browser  driven.Browser
	settings domain.Settings
}

// NewFactory creates an authority factory.
func NewFactory(
	network driven.Network,
	listener driven.CallbackListener,
	browser driven.Browser,
	settings domain.Settings,
) *Factory {
	return &Factory{
		network:  network,
		listener: listener,
		browser:  browser,
		settings: settings,
	}
}

// Create returns the authority for op.Authority.
func (f *Factory) Create(op *domain.Operation) (driven.ProviderAuthority, error) {
	if op == nil {
		return nil, domain.ErrInvalidInput
	}

	switch op.Authority {
	case domain.AuthorityBasic:
		return basic.New(f.network), nil
	case domain.AuthorityGitHub:
		return github.New(f.network), nil
	case domain.AuthorityBitbucket:
		cfg, err := f.bitbucketConfig()
		if err != nil {
			return nil, err
		}
		return bitbucket.New(f.network, f.listener, f.browser, cfg), nil
	case domain.AuthorityAzureDirectory:
		return vsts.New(f.network, f.listener, f.browser, op.Tenant, f.vstsConfig()), nil
	case domain.AuthorityMicrosoftAccount:
		return vsts.New(f.network, f.listener, f.browser, "", f.vstsConfig()), nil
	default:
		return nil, fmt.Errorf("%w: no token flow for authority %q", domain.ErrUnsupportedType, op.Authority)
	}
}

func (f *Factory) bitbucketConfig() (bitbucket.Config, error) {
	s := f.settings.Bitbucket
	cfg := bitbucket.Config{
		ConsumerKey:     s.ConsumerKey,
		ConsumerSecret:  s.ConsumerSecret,
		CallbackURL:     f.settings.OAuth.CallbackURL,
		CallbackTimeout: f.settings.OAuth.CallbackTimeout,
	}
	if s.PrivateKeyFile != "" {
		key, err := bitbucket.LoadPrivateKey(s.PrivateKeyFile)
		if err != nil {
			return bitbucket.Config{}, fmt.Errorf("bitbucket private key: %w", err)
		}
		cfg.PrivateKey = key
	}
	return cfg, nil
}

func (f *Factory) vstsConfig() vsts.Config {
	s := f.settings.VSTS
	return vsts.Config{
		ClientID:        s.ClientID,
		AuthorityHost:   s.AuthorityHost,
		TokenScope:      domain.NewTokenScope(strings.Fields(s.TokenScope)...),
		CallbackURL:     f.settings.OAuth.CallbackURL,
		CallbackTimeout: f.settings.OAuth.CallbackTimeout,
	}
}
