// Package basic implements the generic authority: Basic credentials checked
// against the remote, and detection of NTLM/Negotiate servers.
package basic

import (
	"context"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
	"github.com/custodia-labs/git-credential-broker/internal/logger"
)

// Ensure Authority implements the interfaces.
var (
	_ driven.ProviderAuthority = (*Authority)(nil)
	_ driven.NTLMProber        = (*Authority)(nil)
)

// Authority validates Basic credentials by probing the target. It is stateless.
type Authority struct {
	network driven.Network
	log     logrus.FieldLogger
}

// New creates a Basic authority.
func New(network driven.Network) *Authority {
	return &Authority{network: network, log: logger.For("basic")}
}

// Title returns the prompt title.
func (a *Authority) Title() string {
	return "Git"
}

// Scope returns the empty scope; Basic credentials carry none.
func (a *Authority) Scope() domain.TokenScope {
	return domain.NewTokenScope()
}

// AcquireToken returns the password as a personal token unless the remote
// explicitly rejects it. An unreachable or inconclusive probe still succeeds;
// git reports a bad credential back through erase.
func (a *Authority) AcquireToken(ctx context.Context, target domain.TargetURI, cred domain.Credential,
	_ string, _ domain.TokenScope) (domain.AuthenticationResult, error) {
	if cred.Validate() != nil {
		return domain.Failure(), nil
	}

	ok, err := a.ValidateCredentials(ctx, target, cred)
	if err != nil {
		a.log.WithField("host", target.Host()).Debugf("probe failed, accepting credential: %v", err)
	} else if !ok {
		return domain.Failure(), nil
	}
	return domain.Success(domain.NewToken(cred.Password, domain.TokenPersonal), nil, cred.Username), nil
}

// RefreshToken always fails; Basic has no refresh grant.
func (a *Authority) RefreshToken(context.Context, domain.TargetURI, string) (domain.AuthenticationResult, error) {
	return domain.Failure(), nil
}

// ValidateCredentials probes the host with Basic authentication. Only a 401
// rejects the credential; any other status says nothing about it and counts
// as valid.
func (a *Authority) ValidateCredentials(ctx context.Context, target domain.TargetURI,
	cred domain.Credential) (bool, error) {
	if target.IsZero() {
		return false, domain.ErrInvalidInput
	}

	resp, err := a.probe(ctx, target, &cred)
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return true, nil
	}
	if OffersOnlyIntegrated(resp.Header) {
		a.log.WithField("host", target.Host()).Debug("server offers only integrated authentication")
	}
	return false, nil
}

// SupportsNTLM sends an unauthenticated probe and inspects the challenge.
func (a *Authority) SupportsNTLM(ctx context.Context, target domain.TargetURI) bool {
	if target.IsZero() {
		return false
	}
	resp, err := a.probe(ctx, target, nil)
	if err != nil {
		a.log.WithField("host", target.Host()).Debugf("ntlm probe failed: %v", err)
		return false
	}
	return resp.StatusCode == http.StatusUnauthorized && OffersOnlyIntegrated(resp.Header)
}

// probe sends HEAD and falls back to GET when the server refuses HEAD.
func (a *Authority) probe(ctx context.Context, target domain.TargetURI, cred *domain.Credential) (*driven.Response, error) {
	req := driven.Request{
		Method:     http.MethodHead,
		URL:        target.HostOnly().String(),
		BasicAuth:  cred,
		NoRedirect: true,
	}
	resp, err := a.network.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		req.Method = http.MethodGet
		return a.network.Send(ctx, req)
	}
	return resp, nil
}

// OffersOnlyIntegrated returns true when every WWW-Authenticate challenge is
// NTLM or Negotiate.
func OffersOnlyIntegrated(header http.Header) bool {
	schemes := lo.FilterMap(header.Values("WWW-Authenticate"), func(v string, _ int) (string, bool) {
		fields := strings.Fields(v)
		if len(fields) == 0 {
			return "", false
		}
		return strings.ToLower(strings.TrimSuffix(fields[0], ",")), true
	})
	if len(schemes) == 0 {
		return false
	}
	return lo.EveryBy(schemes, func(s string) bool {
		return s == "ntlm" || s == "negotiate"
	})
}
