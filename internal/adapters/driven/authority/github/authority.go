// Package github implements the GitHub authority on top of go-github.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	gh "github.com/google/go-github/v68/github"
	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
	"github.com/custodia-labs/git-credential-broker/internal/logger"
)

// Ensure Authority implements the interface.
var _ driven.ProviderAuthority = (*Authority)(nil)

// Scopes requested for new personal access tokens.
const (
	ScopeRepo     = "repo"
	ScopeGist     = "gist"
	ScopeWorkflow = "workflow"
)

// DefaultScope is requested when a token is minted at sign-in.
var DefaultScope = domain.NewTokenScope(ScopeRepo, ScopeGist)

const (
	otpHeader      = "X-GitHub-OTP"
	publicHost     = "github.com"
	publicAPIBase  = "https://api.github.com/"
	enterpriseBase = "/api/v3/"
)

// Authority mints personal access tokens through the authorizations API.
type Authority struct {
	network driven.Network
	apiBase string
	log     logrus.FieldLogger
}

// Option configures an Authority.
type Option func(*Authority)

// WithAPIBase pins the REST base URL instead of deriving it from the target.
func WithAPIBase(base string) Option {
	return func(a *Authority) {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		a.apiBase = base
	}
}

// New creates a GitHub authority.
func New(network driven.Network, opts ...Option) *Authority {
	a := &Authority{network: network, log: logger.For("github")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Title returns the prompt title.
func (a *Authority) Title() string {
	return "GitHub"
}

// Scope returns the scopes requested at sign-in.
func (a *Authority) Scope() domain.TokenScope {
	return DefaultScope
}

// APIBase returns the REST root for target: api.github.com for github.com,
// and /api/v3/ on the target host for GitHub Enterprise.
func APIBase(target domain.TargetURI) string {
	host := strings.TrimPrefix(target.Hostname(), "www.")
	if host == publicHost {
		return publicAPIBase
	}
	return target.BaseURL() + enterpriseBase
}

type authorizationRequest struct {
	Scopes []string `json:"scopes"`
	Note   string   `json:"note"`
}

type authorizationResponse struct {
	Token string `json:"token"`
}

// AcquireToken posts the username and password, plus code as the one-time
// password when given, to the authorizations endpoint.
func (a *Authority) AcquireToken(ctx context.Context, target domain.TargetURI, cred domain.Credential,
	code string, scope domain.TokenScope) (domain.AuthenticationResult, error) {
	if target.IsZero() {
		return domain.Failure(), domain.ErrInvalidInput
	}
	if cred.Validate() != nil {
		return domain.Failure(), nil
	}

	client, err := a.client(target, cred, code)
	if err != nil {
		return domain.Failure(), err
	}

	body := authorizationRequest{Scopes: scope.Names(), Note: tokenNote(target)}
	req, err := client.NewRequest(http.MethodPost, "authorizations", body)
	if err != nil {
		return domain.Failure(), fmt.Errorf("build authorization request: %w", err)
	}

	var out authorizationResponse
	_, err = client.Do(ctx, req, &out)
	if err == nil {
		if out.Token == "" {
			return domain.Failure(), fmt.Errorf("%w: authorization without token", domain.ErrMalformedResponse)
		}
		a.log.WithField("host", target.Host()).Debug("token acquired")
		return domain.Success(domain.NewToken(out.Token, domain.TokenPersonal), nil, ""), nil
	}

	return a.classify(target, cred, code, err)
}

func (a *Authority) classify(target domain.TargetURI, cred domain.Credential, code string,
	err error) (domain.AuthenticationResult, error) {
	log := a.log.WithField("host", target.Host())

	var tfa *gh.TwoFactorAuthError
	if errors.As(err, &tfa) {
		if code != "" {
			log.Debug("authentication code rejected")
			return domain.Failure(), nil
		}
		otp := ""
		if tfa.Response != nil {
			otp = tfa.Response.Header.Get(otpHeader)
		}
		if strings.Contains(strings.ToLower(otp), "app") {
			log.Debug("two-factor app required")
			return domain.TwoFactor(domain.ResultTwoFactorApp), nil
		}
		log.Debug("two-factor sms required")
		return domain.TwoFactor(domain.ResultTwoFactorSms), nil
	}

	var resp *gh.ErrorResponse
	if errors.As(err, &resp) {
		status := 0
		if resp.Response != nil {
			status = resp.Response.StatusCode
		}
		if status == http.StatusForbidden && isBasicOnly(resp.Message) {
			// The password is already a token.
			log.Debug("password accepted as token")
			return domain.Success(domain.NewToken(cred.Password, domain.TokenPersonal), nil, ""), nil
		}
		log.Debugf("authorization rejected with status %d", status)
		return domain.Failure(), nil
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return domain.Failure(), fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return domain.Failure(), err
}

// RefreshToken always fails; personal access tokens do not refresh.
func (a *Authority) RefreshToken(context.Context, domain.TargetURI, string) (domain.AuthenticationResult, error) {
	return domain.Failure(), nil
}

// ValidateCredentials reads the authenticated user.
func (a *Authority) ValidateCredentials(ctx context.Context, target domain.TargetURI,
	cred domain.Credential) (bool, error) {
	if target.IsZero() {
		return false, domain.ErrInvalidInput
	}
	client, err := a.client(target, cred, "")
	if err != nil {
		return false, err
	}

	_, _, err = client.Users.Get(ctx, "")
	if err == nil {
		return true, nil
	}
	var resp *gh.ErrorResponse
	var tfa *gh.TwoFactorAuthError
	if errors.As(err, &resp) || errors.As(err, &tfa) {
		return false, nil
	}
	return false, err
}

func (a *Authority) client(target domain.TargetURI, cred domain.Credential, otp string) (*gh.Client, error) {
	base := a.apiBase
	if base == "" {
		base = APIBase(target)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: api base %q", domain.ErrInvalidInput, base)
	}

	httpClient := a.network.HTTPClient()
	transport := &gh.BasicAuthTransport{
		Username:  cred.Username,
		Password:  cred.Password,
		OTP:       otp,
		Transport: httpClient.Transport,
	}
	client := gh.NewClient(&http.Client{Transport: transport, Timeout: httpClient.Timeout})
	client.BaseURL = baseURL
	return client, nil
}

func isBasicOnly(message string) bool {
	return strings.Contains(strings.ToLower(message), "basic auth")
}

func tokenNote(target domain.TargetURI) string {
	machine, _ := os.Hostname()
	return fmt.Sprintf("git: %s on %s at %s", target.BaseURL(), machine, time.Now().Format(time.RFC1123))
}
