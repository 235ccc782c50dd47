package basic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/network"
	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

func newServer(t *testing.T, handler http.HandlerFunc) (*Authority, domain.TargetURI) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(network.NewClient(0)), domain.MustParseTargetURI(server.URL + "/repo.git")
}

func requireBasic(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if ok && user == "alice" && pass == "pw" {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("WWW-Authenticate", `Basic realm="git"`)
	w.WriteHeader(http.StatusUnauthorized)
}

func TestValidateCredentials(t *testing.T) {
	authority, target := newServer(t, requireBasic)

	ok, err := authority.ValidateCredentials(context.Background(), target, domain.NewCredential("alice", "pw"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = authority.ValidateCredentials(context.Background(), target, domain.NewCredential("alice", "bad"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateCredentials_RedirectIsValid(t *testing.T) {
	authority, target := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})

	ok, err := authority.ValidateCredentials(context.Background(), target, domain.NewCredential("alice", "pw"))

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidateCredentials_FallsBackToGet(t *testing.T) {
	var methods []string
	authority, target := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		requireBasic(w, r)
	})

	ok, err := authority.ValidateCredentials(context.Background(), target, domain.NewCredential("alice", "pw"))

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{http.MethodHead, http.MethodGet}, methods)
}

func TestValidateCredentials_IntegratedOnly(t *testing.T) {
	authority, target := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("WWW-Authenticate", "Negotiate")
		w.Header().Add("WWW-Authenticate", "NTLM")
		w.WriteHeader(http.StatusUnauthorized)
	})

	ok, err := authority.ValidateCredentials(context.Background(), target, domain.NewCredential("alice", "pw"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, authority.SupportsNTLM(context.Background(), target))
}

func TestValidateCredentials_ZeroTarget(t *testing.T) {
	authority := New(network.NewClient(0))

	_, err := authority.ValidateCredentials(context.Background(), domain.TargetURI{}, domain.NewCredential("a", "b"))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSupportsNTLM_BasicServer(t *testing.T) {
	authority, target := newServer(t, requireBasic)

	assert.False(t, authority.SupportsNTLM(context.Background(), target))
	assert.False(t, authority.SupportsNTLM(context.Background(), domain.TargetURI{}))
}

func TestAcquireToken(t *testing.T) {
	authority, target := newServer(t, requireBasic)
	ctx := context.Background()

	result, err := authority.AcquireToken(ctx, target, domain.NewCredential("alice", "pw"), "", authority.Scope())
	require.NoError(t, err)
	require.True(t, result.IsSuccess())
	assert.Equal(t, "pw", result.Token.Value)
	assert.Equal(t, domain.TokenPersonal, result.Token.Type)
	assert.Equal(t, "alice", result.RemoteUsername)

	result, err = authority.AcquireToken(ctx, target, domain.NewCredential("alice", "bad"), "", authority.Scope())
	require.NoError(t, err)
	assert.Equal(t, domain.ResultFailure, result.Type)

	result, err = authority.AcquireToken(ctx, target, domain.Credential{}, "", authority.Scope())
	require.NoError(t, err)
	assert.Equal(t, domain.ResultFailure, result.Type)
}

func TestValidateCredentials_NonAuthStatusesAreInconclusive(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			authority, target := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})

			ok, err := authority.ValidateCredentials(context.Background(), target, domain.NewCredential("alice", "pw"))

			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestAcquireToken_RootNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/team/repo.git" {
			http.NotFound(w, r)
			return
		}
		requireBasic(w, r)
	}))
	t.Cleanup(server.Close)
	authority := New(network.NewClient(0))
	op := domain.NewOperation(domain.MustParseTargetURI(server.URL+"/team/repo.git"), "alice", domain.DefaultSettings())

	result, err := authority.AcquireToken(context.Background(), op.Target, domain.NewCredential("alice", "pw"), "", authority.Scope())

	require.NoError(t, err)
	require.True(t, result.IsSuccess())
	assert.Equal(t, "pw", result.Token.Value)
}

func TestAcquireToken_UnreachableIsAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	target := domain.MustParseTargetURI(server.URL)
	server.Close()
	authority := New(network.NewClient(0))

	result, err := authority.AcquireToken(context.Background(), target, domain.NewCredential("alice", "pw"), "", authority.Scope())

	require.NoError(t, err)
	assert.True(t, result.IsSuccess())
}

func TestRefreshToken_AlwaysFails(t *testing.T) {
	result, err := New(nil).RefreshToken(context.Background(), domain.MustParseTargetURI("https://h"), "rt")

	require.NoError(t, err)
	assert.Equal(t, domain.ResultFailure, result.Type)
}

func TestOffersOnlyIntegrated(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   bool
	}{
		{"none", nil, false},
		{"basic", []string{`Basic realm="x"`}, false},
		{"ntlm", []string{"NTLM"}, true},
		{"negotiate with token", []string{"Negotiate abc=="}, true},
		{"mixed", []string{"NTLM", `Basic realm="x"`}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for _, v := range tt.values {
				h.Add("WWW-Authenticate", v)
			}
			assert.Equal(t, tt.want, OffersOnlyIntegrated(h))
		})
	}
}
