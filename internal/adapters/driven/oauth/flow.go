// Package oauth runs OAuth2 authorization-code and refresh grants for the
// provider authorities.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
)

// Flow runs a browser sign-in through a loopback redirect, with PKCE.
type Flow struct {
	// Config holds the client, endpoint and RedirectURL.
	Config *oauth2.Config
	// Listener captures the redirect on Config.RedirectURL.
	Listener driven.CallbackListener
	// Browser opens the authorization URL.
	Browser driven.Browser
	// HTTPClient is used for the token exchange.
	HTTPClient *http.Client
	// Timeout bounds the wait for the redirect. Zero uses
	// domain.DefaultCallbackTimeout.
	Timeout time.Duration
	// AuthParams are extra parameters for the authorization URL.
	AuthParams []oauth2.AuthCodeOption
}

// Run opens the browser, waits for the redirect and exchanges the code.
//
// A provider "error" parameter surfaces as domain.ErrLogonCancelled. A
// redirect without a matching state or a code surfaces as
// domain.ErrCallbackUnconfirmed.
func (f *Flow) Run(ctx context.Context) (*oauth2.Token, error) {
	if f.Config == nil || f.Listener == nil || f.Browser == nil {
		return nil, domain.ErrNotConfigured
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	opts := append([]oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}, f.AuthParams...)
	authURL := f.Config.AuthCodeURL(state, opts...)

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultCallbackTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := f.Listener.Capture(waitCtx, f.Config.RedirectURL, func() error {
		return f.Browser.Open(authURL)
	})
	if err != nil {
		return nil, err
	}

	code, err := ParseCallback(raw, state)
	if err != nil {
		return nil, err
	}

	token, err := f.Config.Exchange(f.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return token, nil
}

// Refresh redeems refreshToken for a new token.
func Refresh(ctx context.Context, cfg *oauth2.Config, client *http.Client, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, domain.ErrInvalidInput
	}
	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}
	token, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenRefreshFailed, err)
	}
	return token, nil
}

// ParseCallback extracts the authorization code from a redirect query.
func ParseCallback(rawQuery, state string) (string, error) {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCallbackUnconfirmed, err)
	}
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("%w: %s %s", domain.ErrLogonCancelled, e, q.Get("error_description"))
	}
	if state != "" && q.Get("state") != state {
		return "", fmt.Errorf("%w: state mismatch", domain.ErrCallbackUnconfirmed)
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: no code", domain.ErrCallbackUnconfirmed)
	}
	return code, nil
}

// IsRejected returns true when err carries an OAuth error response from the
// token endpoint, as opposed to a transport failure.
func IsRejected(err error) bool {
	var re *oauth2.RetrieveError
	return errors.As(err, &re)
}

// RefreshTokenOf returns the refresh token carried by t, if any.
func RefreshTokenOf(t *oauth2.Token) string {
	if t == nil {
		return ""
	}
	return t.RefreshToken
}

func (f *Flow) clientContext(ctx context.Context) context.Context {
	if f.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, f.HTTPClient)
}
