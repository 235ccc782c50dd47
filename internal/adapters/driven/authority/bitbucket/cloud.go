package bitbucket

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/oauth"
	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
)

func (a *Authority) cloudConfig(scope domain.TokenScope) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.cfg.ConsumerKey,
		ClientSecret: a.cfg.ConsumerSecret,
		RedirectURL:  a.cfg.CallbackURL,
		Scopes:       scope.Names(),
		Endpoint: oauth2.Endpoint{
			AuthURL:   a.cfg.CloudAuthorizeURL,
			TokenURL:  a.cfg.CloudTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

func (a *Authority) cloudSignIn(ctx context.Context, scope domain.TokenScope) (domain.AuthenticationResult, error) {
	flow := &oauth.Flow{
		Config:     a.cloudConfig(scope),
		Listener:   a.listener,
		Browser:    a.browser,
		HTTPClient: a.network.HTTPClient(),
		Timeout:    a.cfg.CallbackTimeout,
	}
	token, err := flow.Run(ctx)
	if err != nil {
		return domain.Failure(), err
	}
	return a.cloudResult(ctx, token, "")
}

func (a *Authority) cloudRefresh(ctx context.Context, refreshToken string) (domain.AuthenticationResult, error) {
	token, err := oauth.Refresh(ctx, a.cloudConfig(DefaultScope), a.network.HTTPClient(), refreshToken)
	if err != nil {
		if oauth.IsRejected(err) {
			a.log.Debug("refresh token rejected")
			return domain.Failure(), nil
		}
		return domain.Failure(), err
	}
	return a.cloudResult(ctx, token, refreshToken)
}

// cloudResult pairs the access token with its refresh token, keeping
// previous when the server did not rotate it.
func (a *Authority) cloudResult(ctx context.Context, token *oauth2.Token, previous string) (domain.AuthenticationResult, error) {
	if token.AccessToken == "" {
		return domain.Failure(), domain.ErrMalformedResponse
	}

	refresh := oauth.RefreshTokenOf(token)
	if refresh == "" {
		refresh = previous
	}
	var refreshToken *domain.Token
	if refresh != "" {
		refreshToken = domain.NewToken(refresh, domain.TokenBitbucketRefresh)
	}

	return domain.Success(
		domain.NewToken(token.AccessToken, domain.TokenBitbucketAccess),
		refreshToken,
		a.cloudUsername(ctx, token.AccessToken),
	), nil
}

// cloudUsername looks up the account behind an access token. Failures leave
// the username to the caller.
func (a *Authority) cloudUsername(ctx context.Context, accessToken string) string {
	resp, err := a.network.Send(ctx, driven.Request{
		URL:         a.cfg.CloudAPIBase + "user",
		BearerToken: accessToken,
	})
	if err != nil || !resp.IsSuccess() {
		return ""
	}
	return remoteUsername(resp)
}
