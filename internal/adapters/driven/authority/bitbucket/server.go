package bitbucket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
)

// Server OAuth 1.0a endpoints, relative to the instance base URL.
const (
	requestTokenPath = "/plugins/servlet/oauth/request-token"
	authorizePath    = "/plugins/servlet/oauth/authorize"
	accessTokenPath  = "/plugins/servlet/oauth/access-token"
	whoamiPath       = "/rest/api/1.0/application-properties"
	accessTokensPath = "/rest/access-tokens/1.0/users/"
)

// serverPermissions maps sign-in scopes onto personal access token
// permissions.
var serverPermissions = map[string]string{
	ScopeRepository:      "REPO_READ",
	ScopeRepositoryWrite: "REPO_WRITE",
	ScopeProject:         "PROJECT_READ",
	ScopeProjectWrite:    "PROJECT_WRITE",
}

// Permissions returns the personal access token permissions for scope.
// REPO_WRITE is used when nothing maps.
func Permissions(scope domain.TokenScope) []string {
	perms := lo.FilterMap(scope.Names(), func(name string, _ int) (string, bool) {
		p, ok := serverPermissions[name]
		return p, ok
	})
	if len(perms) == 0 {
		return []string{"REPO_WRITE"}
	}
	return perms
}

type tokenPair struct {
	token  string
	secret string
}

// serverSignIn runs request-token, browser authorization, access-token,
// then mints a personal access token for the signed-in user.
func (a *Authority) serverSignIn(ctx context.Context, target domain.TargetURI,
	scope domain.TokenScope) (domain.AuthenticationResult, error) {
	base := target.BaseURL()

	request, err := a.oauth1Exchange(ctx, base+requestTokenPath, tokenPair{},
		map[string]string{"oauth_callback": a.cfg.CallbackURL})
	if err != nil {
		return domain.Failure(), err
	}

	verifier, err := a.authorizeRequestToken(ctx, base, request.token)
	if err != nil {
		return domain.Failure(), err
	}

	access, err := a.oauth1Exchange(ctx, base+accessTokenPath, request,
		map[string]string{"oauth_verifier": verifier})
	if err != nil {
		return domain.Failure(), err
	}

	username, err := a.serverUsername(ctx, base, access)
	if err != nil {
		return domain.Failure(), err
	}

	pat, err := a.createAccessToken(ctx, base, username, access, scope)
	if err != nil {
		return domain.Failure(), err
	}
	a.log.WithField("host", target.Host()).Debug("personal access token created")
	return domain.Success(domain.NewToken(pat, domain.TokenPersonal), nil, username), nil
}

// oauth1Exchange POSTs a signed request and parses the form-encoded
// oauth_token/oauth_token_secret response.
func (a *Authority) oauth1Exchange(ctx context.Context, endpoint string, pair tokenPair,
	extra map[string]string) (tokenPair, error) {
	resp, err := a.signedSend(ctx, http.MethodPost, endpoint, pair, extra, nil)
	if err != nil {
		return tokenPair{}, err
	}
	if !resp.IsSuccess() {
		return tokenPair{}, fmt.Errorf("%w: %s returned %d", domain.ErrLogonCancelled, endpoint, resp.StatusCode)
	}

	values, err := url.ParseQuery(string(resp.Body))
	if err != nil {
		return tokenPair{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	out := tokenPair{token: values.Get("oauth_token"), secret: values.Get("oauth_token_secret")}
	if out.token == "" {
		return tokenPair{}, fmt.Errorf("%w: no oauth_token", domain.ErrMalformedResponse)
	}
	return out, nil
}

// authorizeRequestToken sends the user to the authorization page and waits
// for the verifier on the loopback listener.
func (a *Authority) authorizeRequestToken(ctx context.Context, base, requestToken string) (string, error) {
	if a.listener == nil || a.browser == nil {
		return "", domain.ErrNotConfigured
	}
	authorizeURL := base + authorizePath + "?oauth_token=" + url.QueryEscape(requestToken)

	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.CallbackTimeout)
	defer cancel()

	raw, err := a.listener.Capture(waitCtx, a.cfg.CallbackURL, func() error {
		return a.browser.Open(authorizeURL)
	})
	if err != nil {
		return "", err
	}

	q, err := url.ParseQuery(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCallbackUnconfirmed, err)
	}
	if q.Get("oauth_token") != requestToken || q.Get("oauth_verifier") == "" {
		// Bitbucket redirects without a verifier when the user denies access.
		if q.Get("oauth_token") == requestToken {
			return "", fmt.Errorf("%w: access denied", domain.ErrLogonCancelled)
		}
		return "", fmt.Errorf("%w: unexpected oauth_token", domain.ErrCallbackUnconfirmed)
	}
	return q.Get("oauth_verifier"), nil
}

func (a *Authority) serverUsername(ctx context.Context, base string, access tokenPair) (string, error) {
	resp, err := a.signedSend(ctx, http.MethodGet, base+whoamiPath, access, nil, nil)
	if err != nil {
		return "", err
	}
	name := resp.Header.Get(usernameHeader)
	if !resp.IsSuccess() || name == "" {
		return "", fmt.Errorf("%w: no %s header", domain.ErrMalformedResponse, usernameHeader)
	}
	return name, nil
}

type accessTokenRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func (a *Authority) createAccessToken(ctx context.Context, base, username string, access tokenPair,
	scope domain.TokenScope) (string, error) {
	body, err := json.Marshal(accessTokenRequest{
		Name:        "git-credential-broker-" + uuid.NewString()[:8],
		Permissions: Permissions(scope),
	})
	if err != nil {
		return "", err
	}

	resp, err := a.signedSend(ctx, http.MethodPut, base+accessTokensPath+url.PathEscape(username), access, nil, body)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: access token request returned %d", domain.ErrLogonCancelled, resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil || out.Token == "" {
		return "", fmt.Errorf("%w: access token response", domain.ErrMalformedResponse)
	}
	return out.Token, nil
}

func (a *Authority) signedSend(ctx context.Context, method, endpoint string, pair tokenPair,
	extra map[string]string, body []byte) (*driven.Response, error) {
	auth, err := a.signer.authorization(method, endpoint, pair.token, pair.secret, extra)
	if err != nil {
		return nil, err
	}
	header := http.Header{"Accept": []string{"application/json"}}
	if body != nil {
		header.Set("Content-Type", "application/json")
	}
	return a.network.Send(ctx, driven.Request{
		Method:        method,
		URL:           endpoint,
		Header:        header,
		Body:          body,
		Authorization: auth,
	})
}
