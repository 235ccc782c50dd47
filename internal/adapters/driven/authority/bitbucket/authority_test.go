package bitbucket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/network"
	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

type fakeBrowser struct {
	opened []string
}

func (b *fakeBrowser) Open(u string) error {
	b.opened = append(b.opened, u)
	return nil
}

type fakeListener struct {
	browser *fakeBrowser
	respond func(opened string) string
}

func (l *fakeListener) Capture(_ context.Context, _ string, ready func() error) (string, error) {
	if err := ready(); err != nil {
		return "", err
	}
	return l.respond(l.browser.opened[len(l.browser.opened)-1]), nil
}

func newTestAuthority(t *testing.T, handler http.Handler, respond func(string) string, cfg Config) (*Authority, string) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	if cfg.CloudAPIBase == "" {
		cfg.CloudAPIBase = server.URL + "/2.0/"
		cfg.CloudAuthorizeURL = server.URL + "/authorize"
		cfg.CloudTokenURL = server.URL + "/token"
	}
	browser := &fakeBrowser{}
	listener := &fakeListener{browser: browser, respond: respond}
	return New(network.NewClient(0), listener, browser, cfg), server.URL
}

var cloudTarget = domain.MustParseTargetURI("https://bitbucket.org/team/repo")

func TestIsCloud(t *testing.T) {
	assert.True(t, IsCloud(cloudTarget))
	assert.True(t, IsCloud(domain.MustParseTargetURI("https://api.bitbucket.org")))
	assert.False(t, IsCloud(domain.MustParseTargetURI("https://bitbucket.corp.example")))
	assert.False(t, IsCloud(domain.MustParseTargetURI("https://notbitbucket.org")))
}

func TestAcquireToken_BasicServer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/1.0/users/bob", func(w http.ResponseWriter, r *http.Request) {
		_, pass, _ := r.BasicAuth()
		switch pass {
		case "pw":
			w.Header().Set(usernameHeader, "Bob")
			w.WriteHeader(http.StatusOK)
		case "renamed":
			w.Header().Set(usernameHeader, "robert")
			w.WriteHeader(http.StatusOK)
		case "2fa":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	authority, base := newTestAuthority(t, mux, nil, Config{})
	target := domain.MustParseTargetURI(base + "/scm/proj/repo.git")
	ctx := context.Background()

	result, err := authority.AcquireToken(ctx, target, domain.NewCredential("bob", "pw"), "", DefaultScope)
	require.NoError(t, err)
	require.True(t, result.IsSuccess())
	assert.Equal(t, "pw", result.Token.Value)
	assert.Equal(t, domain.TokenPersonal, result.Token.Type)
	assert.Empty(t, result.RemoteUsername, "case-only difference is not an override")

	result, err = authority.AcquireToken(ctx, target, domain.NewCredential("bob", "renamed"), "", DefaultScope)
	require.NoError(t, err)
	assert.Equal(t, "robert", result.RemoteUsername)

	result, err = authority.AcquireToken(ctx, target, domain.NewCredential("bob", "2fa"), "", DefaultScope)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultTwoFactor, result.Type)

	result, err = authority.AcquireToken(ctx, target, domain.NewCredential("bob", "bad"), "", DefaultScope)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultFailure, result.Type)
}

func TestAcquireToken_BasicCloudReadsJSONUsername(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2.0/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"username":"bobby"}`)
	})
	authority, _ := newTestAuthority(t, mux, nil, Config{})

	result, err := authority.AcquireToken(context.Background(), cloudTarget,
		domain.NewCredential("bob@example.com", "app-password"), "", DefaultScope)

	require.NoError(t, err)
	require.True(t, result.IsSuccess())
	assert.Equal(t, "bobby", result.RemoteUsername)
}

func TestValidateCredentials_BasicThenBearer(t *testing.T) {
	var seen []string
	mux := http.NewServeMux()
	mux.HandleFunc("/2.0/user", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") == "Bearer access" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	authority, _ := newTestAuthority(t, mux, nil, Config{})
	ctx := context.Background()

	ok, err := authority.ValidateCredentials(ctx, cloudTarget, domain.NewCredential("bob", "access"))
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, seen, 2)
	assert.Contains(t, seen[0], "Basic ")

	ok, err = authority.ValidateCredentials(ctx, cloudTarget, domain.NewCredential("bob", "stale"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func cloudHandler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		id, secret, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", id)
		assert.Equal(t, "shh", secret)

		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			assert.Equal(t, "c0de", r.Form.Get("code"))
			_, _ = io.WriteString(w, `{"access_token":"access","refresh_token":"refresh","token_type":"bearer"}`)
		case "refresh_token":
			if r.Form.Get("refresh_token") != "refresh" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
				return
			}
			_, _ = io.WriteString(w, `{"access_token":"access2","token_type":"bearer"}`)
		}
	})
	mux.HandleFunc("/2.0/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"username":"bob"}`)
	})
	return mux
}

func TestAcquireTokenOAuth_Cloud(t *testing.T) {
	respond := func(opened string) string {
		u, err := url.Parse(opened)
		require.NoError(t, err)
		assert.Equal(t, "account repository:write", u.Query().Get("scope"))
		return url.Values{"code": {"c0de"}, "state": {u.Query().Get("state")}}.Encode()
	}
	authority, _ := newTestAuthority(t, cloudHandler(t), respond, Config{ConsumerKey: "client", ConsumerSecret: "shh"})

	result, err := authority.AcquireTokenOAuth(context.Background(), cloudTarget, "", DefaultScope)

	require.NoError(t, err)
	require.True(t, result.IsSuccess())
	assert.Equal(t, "access", result.Token.Value)
	assert.Equal(t, domain.TokenBitbucketAccess, result.Token.Type)
	require.NotNil(t, result.RefreshToken)
	assert.Equal(t, "refresh", result.RefreshToken.Value)
	assert.Equal(t, domain.TokenBitbucketRefresh, result.RefreshToken.Type)
	assert.Equal(t, "bob", result.RemoteUsername)
}

func TestAcquireTokenOAuth_CloudDenied(t *testing.T) {
	respond := func(string) string { return "error=access_denied" }
	authority, _ := newTestAuthority(t, cloudHandler(t), respond, Config{ConsumerKey: "client", ConsumerSecret: "shh"})

	result, err := authority.AcquireTokenOAuth(context.Background(), cloudTarget, "", DefaultScope)

	require.NoError(t, err)
	assert.Equal(t, domain.ResultFailure, result.Type)
}

func TestAcquireTokenOAuth_NotConfigured(t *testing.T) {
	authority, _ := newTestAuthority(t, cloudHandler(t), nil, Config{})

	_, err := authority.AcquireTokenOAuth(context.Background(), cloudTarget, "", DefaultScope)

	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestRefreshToken_Cloud(t *testing.T) {
	authority, _ := newTestAuthority(t, cloudHandler(t), nil, Config{ConsumerKey: "client", ConsumerSecret: "shh"})
	ctx := context.Background()

	result, err := authority.RefreshToken(ctx, cloudTarget, "refresh")
	require.NoError(t, err)
	require.True(t, result.IsSuccess())
	assert.Equal(t, "access2", result.Token.Value)
	require.NotNil(t, result.RefreshToken)
	assert.Equal(t, "refresh", result.RefreshToken.Value, "unrotated refresh token is kept")
	assert.Equal(t, "bob", result.RemoteUsername)

	result, err = authority.RefreshToken(ctx, cloudTarget, "revoked")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultFailure, result.Type)
}

func TestRefreshToken_ServerHasNoRefresh(t *testing.T) {
	authority := New(network.NewClient(0), nil, nil, Config{ConsumerKey: "k", ConsumerSecret: "s"})

	result, err := authority.RefreshToken(context.Background(), domain.MustParseTargetURI("https://bb.corp"), "rt")

	require.NoError(t, err)
	assert.Equal(t, domain.ResultFailure, result.Type)
}

func serverHandler(t *testing.T, hits *[]string) http.Handler {
	t.Helper()
	verify := func(r *http.Request) map[string]string {
		params := parseAuthorization(t, r.Header.Get("Authorization"))
		signature := params["oauth_signature"]
		delete(params, "oauth_signature")
		base, err := SignatureBaseString(r.Method, "http://"+r.Host+r.URL.Path, params)
		require.NoError(t, err)
		assert.Equal(t, SignHMAC(base, "shh", tokenSecrets[params["oauth_token"]]), signature, r.URL.Path)
		return params
	}

	mux := http.NewServeMux()
	mux.HandleFunc(requestTokenPath, func(w http.ResponseWriter, r *http.Request) {
		*hits = append(*hits, "request-token")
		params := verify(r)
		assert.Equal(t, domain.DefaultCallbackURL, params["oauth_callback"])
		_, _ = io.WriteString(w, "oauth_token=rt&oauth_token_secret=rts&oauth_callback_confirmed=true")
	})
	mux.HandleFunc(accessTokenPath, func(w http.ResponseWriter, r *http.Request) {
		*hits = append(*hits, "access-token")
		params := verify(r)
		assert.Equal(t, "rt", params["oauth_token"])
		assert.Equal(t, "v1", params["oauth_verifier"])
		_, _ = io.WriteString(w, "oauth_token=at&oauth_token_secret=ats")
	})
	mux.HandleFunc(whoamiPath, func(w http.ResponseWriter, r *http.Request) {
		*hits = append(*hits, "whoami")
		assert.Equal(t, "at", verify(r)["oauth_token"])
		w.Header().Set(usernameHeader, "bob")
		_, _ = io.WriteString(w, "{}")
	})
	mux.HandleFunc(accessTokensPath+"bob", func(w http.ResponseWriter, r *http.Request) {
		*hits = append(*hits, "pat")
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "at", verify(r)["oauth_token"])
		var body accessTokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"REPO_WRITE"}, body.Permissions)
		assert.NotEmpty(t, body.Name)
		_, _ = io.WriteString(w, `{"token":"pat-value"}`)
	})
	return mux
}

var tokenSecrets = map[string]string{"": "", "rt": "rts", "at": "ats"}

func TestAcquireTokenOAuth_ServerOAuth1(t *testing.T) {
	var hits []string
	respond := func(opened string) string {
		assert.Contains(t, opened, authorizePath+"?oauth_token=rt")
		return "oauth_token=rt&oauth_verifier=v1"
	}
	authority, base := newTestAuthority(t, serverHandler(t, &hits), respond, Config{ConsumerKey: "key", ConsumerSecret: "shh"})

	result, err := authority.AcquireTokenOAuth(context.Background(), domain.MustParseTargetURI(base+"/scm/p/r.git"), "", DefaultScope)

	require.NoError(t, err)
	require.True(t, result.IsSuccess())
	assert.Equal(t, "pat-value", result.Token.Value)
	assert.Equal(t, domain.TokenPersonal, result.Token.Type)
	assert.Equal(t, "bob", result.RemoteUsername)
	assert.Equal(t, []string{"request-token", "access-token", "whoami", "pat"}, hits)
}

func TestAcquireTokenOAuth_ServerUnconfirmedCallback(t *testing.T) {
	var hits []string
	respond := func(string) string { return "oauth_token=forged&oauth_verifier=v1" }
	authority, base := newTestAuthority(t, serverHandler(t, &hits), respond, Config{ConsumerKey: "key", ConsumerSecret: "shh"})

	_, err := authority.AcquireTokenOAuth(context.Background(), domain.MustParseTargetURI(base), "", DefaultScope)

	assert.ErrorIs(t, err, domain.ErrCallbackUnconfirmed)
	assert.Equal(t, []string{"request-token"}, hits)
}

func TestAcquireTokenOAuth_ServerDenied(t *testing.T) {
	var hits []string
	respond := func(string) string { return "oauth_token=rt" }
	authority, base := newTestAuthority(t, serverHandler(t, &hits), respond, Config{ConsumerKey: "key", ConsumerSecret: "shh"})

	result, err := authority.AcquireTokenOAuth(context.Background(), domain.MustParseTargetURI(base), "", DefaultScope)

	require.NoError(t, err)
	assert.Equal(t, domain.ResultFailure, result.Type)
}

func TestPermissions(t *testing.T) {
	assert.Equal(t, []string{"REPO_WRITE"}, Permissions(DefaultScope))
	assert.Equal(t, []string{"PROJECT_READ", "REPO_READ"},
		Permissions(domain.NewTokenScope(ScopeRepository, ScopeProject)))
	assert.Equal(t, []string{"REPO_WRITE"}, Permissions(domain.NewTokenScope("unknown")))
}
