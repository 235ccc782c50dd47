// Package bitbucket implements the Bitbucket authority for Cloud
// (bitbucket.org) and Server (self-hosted) targets.
//
// Cloud signs in with OAuth 2.0 and keeps a refresh token next to the access
// token. Server signs in with OAuth 1.0a and exchanges the result for a
// long-lived personal access token.
package bitbucket

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
	"github.com/custodia-labs/git-credential-broker/internal/logger"
)

// Ensure Authority implements the interface.
var _ driven.OAuthAuthority = (*Authority)(nil)

// Cloud endpoints.
const (
	CloudHost         = "bitbucket.org"
	CloudAPIBase      = "https://api.bitbucket.org/2.0/"
	CloudAuthorizeURL = "https://bitbucket.org/site/oauth2/authorize"
	CloudTokenURL     = "https://bitbucket.org/site/oauth2/access_token"
)

// Scopes requested at sign-in.
const (
	ScopeAccount         = "account"
	ScopeRepository      = "repository"
	ScopeRepositoryWrite = "repository:write"
	ScopeProject         = "project"
	ScopeProjectWrite    = "project:write"
)

// DefaultScope is requested when a token is minted at sign-in.
var DefaultScope = domain.NewTokenScope(ScopeAccount, ScopeRepositoryWrite)

const usernameHeader = "X-AUSERNAME"

// Config holds the OAuth consumer and endpoint overrides.
type Config struct {
	// ConsumerKey is the Server consumer key and the Cloud client id.
	ConsumerKey string
	// ConsumerSecret is the HMAC-SHA1 secret and the Cloud client secret.
	ConsumerSecret string
	// PrivateKey switches Server signing to RSA-SHA1.
	PrivateKey *rsa.PrivateKey
	// CallbackURL is the loopback redirect address.
	CallbackURL string
	// CallbackTimeout bounds the browser sign-in.
	CallbackTimeout time.Duration

	// CloudAPIBase, CloudAuthorizeURL and CloudTokenURL default to the
	// bitbucket.org endpoints.
	CloudAPIBase      string
	CloudAuthorizeURL string
	CloudTokenURL     string
}

func (c Config) withDefaults() Config {
	if c.CallbackURL == "" {
		c.CallbackURL = domain.DefaultCallbackURL
	}
	if c.CallbackTimeout <= 0 {
		c.CallbackTimeout = domain.DefaultCallbackTimeout
	}
	if c.CloudAPIBase == "" {
		c.CloudAPIBase = CloudAPIBase
	}
	if !strings.HasSuffix(c.CloudAPIBase, "/") {
		c.CloudAPIBase += "/"
	}
	if c.CloudAuthorizeURL == "" {
		c.CloudAuthorizeURL = CloudAuthorizeURL
	}
	if c.CloudTokenURL == "" {
		c.CloudTokenURL = CloudTokenURL
	}
	return c
}

// Authority authenticates against Bitbucket Cloud and Server.
type Authority struct {
	network  driven.Network
	listener driven.CallbackListener
	browser  driven.Browser
	cfg      Config
	signer   *signer
	log      logrus.FieldLogger
}

// New creates a Bitbucket authority. listener and browser are only needed
// for the browser sign-in.
func New(network driven.Network, listener driven.CallbackListener, browser driven.Browser, cfg Config) *Authority {
	cfg = cfg.withDefaults()
	return &Authority{
		network:  network,
		listener: listener,
		browser:  browser,
		cfg:      cfg,
		signer:   newSigner(cfg.ConsumerKey, cfg.ConsumerSecret, cfg.PrivateKey),
		log:      logger.For("bitbucket"),
	}
}

// IsCloud returns true for bitbucket.org targets.
func IsCloud(target domain.TargetURI) bool {
	host := target.Hostname()
	return host == CloudHost || strings.HasSuffix(host, "."+CloudHost)
}

// Title returns the prompt title.
func (a *Authority) Title() string {
	return "Bitbucket"
}

// Scope returns the scopes requested at sign-in.
func (a *Authority) Scope() domain.TokenScope {
	return DefaultScope
}

// PrefersOAuth returns false: the password prompt comes first and the
// browser is offered when a second factor is required.
func (a *Authority) PrefersOAuth() bool {
	return false
}

// AcquireToken checks the username and password against the identity
// endpoint. A 403 means the password is right but a second factor is
// required.
func (a *Authority) AcquireToken(ctx context.Context, target domain.TargetURI, cred domain.Credential,
	_ string, _ domain.TokenScope) (domain.AuthenticationResult, error) {
	if target.IsZero() {
		return domain.Failure(), domain.ErrInvalidInput
	}
	if cred.Validate() != nil {
		return domain.Failure(), nil
	}

	resp, err := a.network.Send(ctx, driven.Request{
		URL:       a.identityURL(target, cred.Username),
		Header:    http.Header{"Accept": []string{"application/json"}},
		BasicAuth: &cred,
	})
	if err != nil {
		return domain.Failure(), err
	}

	log := a.log.WithField("host", target.Host())
	switch {
	case resp.IsSuccess():
		remote := remoteUsername(resp)
		if strings.EqualFold(remote, cred.Username) {
			remote = ""
		}
		log.Debug("basic credentials accepted")
		return domain.Success(domain.NewToken(cred.Password, domain.TokenPersonal), nil, remote), nil
	case resp.StatusCode == http.StatusForbidden:
		log.Debug("two-factor required")
		return domain.TwoFactor(domain.ResultTwoFactor), nil
	default:
		log.Debugf("basic credentials rejected with status %d", resp.StatusCode)
		return domain.Failure(), nil
	}
}

// AcquireTokenOAuth runs the browser sign-in: OAuth 2.0 on Cloud, OAuth 1.0a
// followed by a personal access token on Server.
func (a *Authority) AcquireTokenOAuth(ctx context.Context, target domain.TargetURI, username string,
	scope domain.TokenScope) (domain.AuthenticationResult, error) {
	if target.IsZero() {
		return domain.Failure(), domain.ErrInvalidInput
	}
	if a.cfg.ConsumerKey == "" {
		return domain.Failure(), domain.ErrNotConfigured
	}

	var (
		result domain.AuthenticationResult
		err    error
	)
	if IsCloud(target) {
		result, err = a.cloudSignIn(ctx, scope)
	} else {
		result, err = a.serverSignIn(ctx, target, scope)
	}
	if isLogonFailure(err) {
		a.log.WithField("host", target.Host()).Debugf("browser sign-in ended: %v", err)
		return domain.Failure(), nil
	}
	return result, err
}

// RefreshToken redeems a Cloud refresh token. Server personal access tokens
// do not refresh.
func (a *Authority) RefreshToken(ctx context.Context, target domain.TargetURI,
	refreshToken string) (domain.AuthenticationResult, error) {
	if target.IsZero() {
		return domain.Failure(), domain.ErrInvalidInput
	}
	if !IsCloud(target) || refreshToken == "" || a.cfg.ConsumerKey == "" {
		return domain.Failure(), nil
	}
	return a.cloudRefresh(ctx, refreshToken)
}

// ValidateCredentials tries the secret as a password, then as a bearer
// token.
func (a *Authority) ValidateCredentials(ctx context.Context, target domain.TargetURI,
	cred domain.Credential) (bool, error) {
	if target.IsZero() {
		return false, domain.ErrInvalidInput
	}
	if cred.Validate() != nil {
		return false, nil
	}

	identity := a.identityURL(target, cred.Username)
	resp, err := a.network.Send(ctx, driven.Request{URL: identity, BasicAuth: &cred})
	if err != nil {
		return false, err
	}
	if resp.IsSuccess() {
		return true, nil
	}

	resp, err = a.network.Send(ctx, driven.Request{URL: identity, BearerToken: cred.Password})
	if err != nil {
		return false, err
	}
	return resp.IsSuccess(), nil
}

func (a *Authority) identityURL(target domain.TargetURI, username string) string {
	if IsCloud(target) {
		return a.cfg.CloudAPIBase + "user"
	}
	return target.BaseURL() + "/rest/api/1.0/users/" + url.PathEscape(username)
}

// remoteUsername reads the authenticated user from X-AUSERNAME or the
// identity JSON.
func remoteUsername(resp *driven.Response) string {
	if name := resp.Header.Get(usernameHeader); name != "" {
		return name
	}
	var body struct {
		Username string `json:"username"`
		Slug     string `json:"slug"`
		Nickname string `json:"nickname"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return ""
	}
	for _, name := range []string{body.Username, body.Slug, body.Nickname} {
		if name != "" {
			return name
		}
	}
	return ""
}

func isLogonFailure(err error) bool {
	return errors.Is(err, domain.ErrLogonCancelled) ||
		errors.Is(err, domain.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
