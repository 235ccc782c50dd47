// Package vsts implements the Azure DevOps authorities: Azure Active
// Directory and Microsoft Account sign-in, exchanged for compact personal
// access tokens.
package vsts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/microsoft/azure-devops-go-api/azuredevops"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/oauth"
	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
	"github.com/custodia-labs/git-credential-broker/internal/logger"
)

// Ensure Authority implements the interface.
var _ driven.OAuthAuthority = (*Authority)(nil)

const (
	devAzureHost     = "dev.azure.com"
	legacyHostSuffix = "visualstudio.com"

	// ResourceScope is the Azure DevOps resource requested from the
	// identity platform.
	ResourceScope = "499b84ac-1321-427f-aa17-267ca6975798/.default"

	// consumersTenant routes Microsoft Account sign-in.
	consumersTenant = "consumers"

	sessionTokensPath = "/_apis/token/sessiontokens?api-version=1.0&tokentype=compact"
	connectionPath    = "/_apis/connectionData"
)

// PAT scopes.
const (
	ScopeCodeWrite = "vso.code_write"
	ScopeCodeRead  = "vso.code"
	ScopePackaging = "vso.packaging"
)

// Config holds the sign-in client configuration.
type Config struct {
	ClientID        string
	AuthorityHost   string
	TokenScope      domain.TokenScope
	CallbackURL     string
	CallbackTimeout time.Duration
	// IdentityBase pins the session token service instead of deriving it
	// from the target.
	IdentityBase string
}

// Authority signs in to Azure DevOps. An empty tenant means Microsoft
// Account.
type Authority struct {
	network  driven.Network
	listener driven.CallbackListener
	browser  driven.Browser
	tenant   string
	cfg      Config
	log      logrus.FieldLogger
}

// New creates an Azure DevOps authority for tenant.
func New(network driven.Network, listener driven.CallbackListener, browser driven.Browser,
	tenant string, cfg Config) *Authority {
	if cfg.AuthorityHost == "" {
		cfg.AuthorityHost = domain.DefaultSettings().VSTS.AuthorityHost
	}
	cfg.AuthorityHost = strings.TrimSuffix(cfg.AuthorityHost, "/")
	if cfg.TokenScope.IsEmpty() {
		cfg.TokenScope = domain.NewTokenScope(ScopeCodeWrite, ScopePackaging)
	}
	if cfg.CallbackURL == "" {
		cfg.CallbackURL = domain.DefaultCallbackURL
	}
	return &Authority{
		network:  network,
		listener: listener,
		browser:  browser,
		tenant:   tenant,
		cfg:      cfg,
		log:      logger.For("vsts"),
	}
}

// Title returns the prompt title.
func (a *Authority) Title() string {
	if a.tenant == "" {
		return "Azure DevOps (Microsoft Account)"
	}
	return "Azure DevOps"
}

// Scope returns the PAT scope.
func (a *Authority) Scope() domain.TokenScope {
	return a.cfg.TokenScope
}

// PrefersOAuth returns true: Azure DevOps never accepts a password prompt.
func (a *Authority) PrefersOAuth() bool {
	return true
}

// AcquireToken always fails; sign-in goes through the browser.
func (a *Authority) AcquireToken(context.Context, domain.TargetURI, domain.Credential, string,
	domain.TokenScope) (domain.AuthenticationResult, error) {
	return domain.Failure(), nil
}

func (a *Authority) oauthConfig() *oauth2.Config {
	tenant := a.tenant
	if tenant == "" {
		tenant = consumersTenant
	}
	root := a.cfg.AuthorityHost + "/" + tenant + "/oauth2/v2.0"
	return &oauth2.Config{
		ClientID:    a.cfg.ClientID,
		RedirectURL: a.cfg.CallbackURL,
		Scopes:      []string{ResourceScope, "offline_access"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   root + "/authorize",
			TokenURL:  root + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AcquireTokenOAuth signs in through the browser and exchanges the access
// token for a personal access token scoped by scope.
func (a *Authority) AcquireTokenOAuth(ctx context.Context, target domain.TargetURI, username string,
	scope domain.TokenScope) (domain.AuthenticationResult, error) {
	if target.IsZero() {
		return domain.Failure(), domain.ErrInvalidInput
	}
	if a.cfg.ClientID == "" {
		return domain.Failure(), domain.ErrNotConfigured
	}

	params := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("prompt", "select_account")}
	if username != "" {
		params = append(params, oauth2.SetAuthURLParam("login_hint", username))
	}
	flow := &oauth.Flow{
		Config:     a.oauthConfig(),
		Listener:   a.listener,
		Browser:    a.browser,
		HTTPClient: a.network.HTTPClient(),
		Timeout:    a.cfg.CallbackTimeout,
		AuthParams: params,
	}

	token, err := flow.Run(ctx)
	if err != nil {
		if isLogonFailure(err) || oauth.IsRejected(err) {
			a.log.WithField("host", target.Host()).Debugf("sign-in ended: %v", err)
			return domain.Failure(), nil
		}
		return domain.Failure(), err
	}
	return a.exchange(ctx, target, token, "", scope)
}

// RefreshToken redeems the identity refresh token and mints a new personal
// access token.
func (a *Authority) RefreshToken(ctx context.Context, target domain.TargetURI,
	refreshToken string) (domain.AuthenticationResult, error) {
	if target.IsZero() {
		return domain.Failure(), domain.ErrInvalidInput
	}
	if refreshToken == "" || a.cfg.ClientID == "" {
		return domain.Failure(), nil
	}

	token, err := oauth.Refresh(ctx, a.oauthConfig(), a.network.HTTPClient(), refreshToken)
	if err != nil {
		if oauth.IsRejected(err) {
			a.log.WithField("host", target.Host()).Debug("refresh token rejected")
			return domain.Failure(), nil
		}
		return domain.Failure(), err
	}
	return a.exchange(ctx, target, token, refreshToken, a.cfg.TokenScope)
}

type sessionTokenRequest struct {
	DisplayName string `json:"displayName"`
	Scope       string `json:"scope"`
}

type sessionTokenResponse struct {
	Token string `json:"token"`
}

// exchange trades an identity access token for a compact PAT.
func (a *Authority) exchange(ctx context.Context, target domain.TargetURI, token *oauth2.Token,
	previousRefresh string, scope domain.TokenScope) (domain.AuthenticationResult, error) {
	if token.AccessToken == "" {
		return domain.Failure(), domain.ErrMalformedResponse
	}
	if scope.IsEmpty() {
		scope = a.cfg.TokenScope
	}

	identity, err := a.IdentityURL(target)
	if err != nil {
		return domain.Failure(), err
	}

	machine, _ := os.Hostname()
	body, err := json.Marshal(sessionTokenRequest{
		DisplayName: fmt.Sprintf("Git: %s on %s", target.BaseURL(), machine),
		Scope:       scope.Join(" "),
	})
	if err != nil {
		return domain.Failure(), err
	}

	resp, err := a.network.Send(ctx, driven.Request{
		Method:      http.MethodPost,
		URL:         identity + sessionTokensPath,
		Header:      http.Header{"Content-Type": []string{"application/json"}},
		Body:        body,
		BearerToken: token.AccessToken,
	})
	if err != nil {
		return domain.Failure(), err
	}
	if !resp.IsSuccess() {
		a.log.WithField("host", target.Host()).Debugf("session token request returned %d", resp.StatusCode)
		return domain.Failure(), nil
	}

	var out sessionTokenResponse
	if err := json.NewDecoder(bytes.NewReader(resp.Body)).Decode(&out); err != nil || out.Token == "" {
		return domain.Failure(), fmt.Errorf("%w: session token response", domain.ErrMalformedResponse)
	}

	refresh := oauth.RefreshTokenOf(token)
	if refresh == "" {
		refresh = previousRefresh
	}
	var refreshToken *domain.Token
	if refresh != "" {
		refreshToken = domain.NewToken(refresh, domain.TokenRefresh)
	}
	return domain.Success(domain.NewToken(out.Token, domain.TokenPersonal), refreshToken, ""), nil
}

// ValidateCredentials reads the connection data of the organization with
// the stored PAT.
func (a *Authority) ValidateCredentials(ctx context.Context, target domain.TargetURI,
	cred domain.Credential) (bool, error) {
	if target.IsZero() {
		return false, domain.ErrInvalidInput
	}
	if !cred.HasSecret() {
		return false, nil
	}

	orgURL, err := OrganizationURL(target)
	if err != nil {
		return false, err
	}
	conn := azuredevops.NewPatConnection(orgURL, cred.Password)

	resp, err := a.network.Send(ctx, driven.Request{
		URL:           strings.TrimSuffix(orgURL, "/") + connectionPath,
		Authorization: conn.AuthorizationString,
		Header:        http.Header{"X-TFS-FedAuthRedirect": []string{"Suppress"}},
		NoRedirect:    true,
	})
	if err != nil {
		return false, err
	}
	return resp.IsSuccess(), nil
}

// organization returns the organization name for dev.azure.com targets from
// the first path segment or the userinfo git sends by default.
func organization(target domain.TargetURI) string {
	if seg, _, _ := strings.Cut(strings.TrimPrefix(target.Path(), "/"), "/"); seg != "" {
		return seg
	}
	return target.Username()
}

// OrganizationURL returns the collection root for target.
func OrganizationURL(target domain.TargetURI) (string, error) {
	if target.Hostname() != devAzureHost {
		return target.BaseURL(), nil
	}
	org := organization(target)
	if org == "" {
		return "", fmt.Errorf("%w: no organization in %s", domain.ErrInvalidInput, target)
	}
	return target.BaseURL() + "/" + org, nil
}

// IdentityURL returns the session token service root for target.
func (a *Authority) IdentityURL(target domain.TargetURI) (string, error) {
	if a.cfg.IdentityBase != "" {
		return strings.TrimSuffix(a.cfg.IdentityBase, "/"), nil
	}
	host := target.Hostname()
	switch {
	case host == devAzureHost:
		org := organization(target)
		if org == "" {
			return "", fmt.Errorf("%w: no organization in %s", domain.ErrInvalidInput, target)
		}
		return "https://vssps." + devAzureHost + "/" + org, nil
	case strings.HasSuffix(host, "."+legacyHostSuffix):
		org := strings.TrimSuffix(host, "."+legacyHostSuffix)
		return "https://" + org + ".vssps." + legacyHostSuffix, nil
	default:
		return target.BaseURL(), nil
	}
}

func isLogonFailure(err error) bool {
	return errors.Is(err, domain.ErrLogonCancelled) ||
		errors.Is(err, domain.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
