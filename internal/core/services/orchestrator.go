package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
	"github.com/custodia-labs/git-credential-broker/internal/logger"
)

// Orchestrator decides, for one provider, whether to use a cached
// credential, redeem a refresh token, or sign the user in, and keeps the
// per-user, refresh and host entries of the credential store consistent.
type Orchestrator struct {
	authority driven.ProviderAuthority
	oauth     driven.OAuthAuthority
	store     driven.CredentialStore
	prompter  driven.Prompter
	log       logrus.FieldLogger
}

// NewOrchestrator creates an orchestrator for authority.
// The prompter may be nil, in which case interactive logon always fails.
func NewOrchestrator(authority driven.ProviderAuthority, store driven.CredentialStore,
	prompter driven.Prompter) *Orchestrator {
	o := &Orchestrator{
		authority: authority,
		store:     store,
		prompter:  prompter,
		log:       logger.For("orchestrator").WithField("authority", authority.Title()),
	}
	if oauth, ok := authority.(driven.OAuthAuthority); ok {
		o.oauth = oauth
	}
	return o
}

// NewStoreOrchestrator creates an orchestrator that only stores and deletes.
// GetCredentials is not available on it.
func NewStoreOrchestrator(store driven.CredentialStore) *Orchestrator {
	return &Orchestrator{
		store: store,
		log:   logger.For("orchestrator"),
	}
}

// GetCredentials returns a usable credential for op, or nil when every
// branch failed.
func (o *Orchestrator) GetCredentials(ctx context.Context, op *domain.Operation) (*domain.Credential, error) {
	if op == nil || op.Target.IsZero() {
		return nil, fmt.Errorf("%w: no target", domain.ErrInvalidInput)
	}
	if o.authority == nil {
		return nil, domain.ErrNotImplemented
	}

	// Authority calls carry the git-supplied username.
	perUser := op.Target.WithUser(op.Username)
	log := o.log.WithField("target", perUser.String())

	if op.Interactivity.AllowsCache() {
		cred, err := o.store.ReadCredentials(ctx, perUser)
		if err != nil {
			log.WithError(err).Warn("reading stored credential failed")
		}
		if cred != nil {
			if !op.Validate || o.validate(ctx, log, perUser, *cred) {
				log.Debug("using stored credential")
				return cred, nil
			}
			log.Debug("stored credential rejected")
		}

		refresh, err := o.store.ReadCredentials(ctx, perUser.RefreshTokenURI())
		if err != nil {
			log.WithError(err).Warn("reading refresh token failed")
		}
		if refresh != nil && refresh.HasSecret() {
			result, err := o.authority.RefreshToken(ctx, perUser, refresh.Password)
			if err != nil {
				log.WithError(err).Warn("refresh failed")
			} else if result.IsSuccess() {
				log.Debug("refreshed access token")
				return o.persist(ctx, op, result, refresh.Username)
			}
		}
	}

	if !op.Interactivity.AllowsPrompt() {
		log.Debug("prompting disabled, giving up")
		return nil, nil
	}

	result, username := o.interactiveLogon(ctx, log, op)
	if !result.IsSuccess() {
		log.WithField("result", result.Type.String()).Debug("interactive logon did not succeed")
		return nil, nil
	}
	return o.persist(ctx, op, result, username)
}

// SetCredentials stores a credential git reports as working.
func (o *Orchestrator) SetCredentials(ctx context.Context, op *domain.Operation, cred domain.Credential) error {
	if op == nil || op.Target.IsZero() {
		return fmt.Errorf("%w: no target", domain.ErrInvalidInput)
	}
	if err := cred.Validate(); err != nil {
		return err
	}
	result := domain.Success(domain.NewToken(cred.Password, domain.TokenPersonal), nil, "")
	_, err := o.persist(ctx, op, result, cred.Username)
	return err
}

// DeleteCredentials removes the per-user entry and its refresh sibling, then
// the host entry and its sibling when the host entry belongs to the same
// user. Every deletion is attempted; errors are collected.
func (o *Orchestrator) DeleteCredentials(ctx context.Context, op *domain.Operation) (bool, error) {
	if op == nil || op.Target.IsZero() {
		return false, fmt.Errorf("%w: no target", domain.ErrInvalidInput)
	}

	perUser := op.Target.WithUser(op.Username)
	host := op.Target.HostOnly()
	username := perUser.Username()

	var errs *multierror.Error
	deleted := false
	remove := func(t domain.TargetURI) {
		ok, err := o.store.DeleteCredentials(ctx, t)
		if err != nil {
			errs = multierror.Append(errs, err)
			return
		}
		deleted = deleted || ok
	}

	hostCred, err := o.store.ReadCredentials(ctx, host)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	if username == "" && hostCred != nil && hostCred.Username != "" {
		// The host entry mirrors a per-user entry; erase both.
		username = hostCred.Username
		perUser = host.WithUser(username)
	}

	if !perUser.Equal(host) {
		remove(perUser)
		remove(perUser.RefreshTokenURI())
	}
	if hostCred == nil || username == "" || hostCred.Username == username {
		remove(host)
		remove(host.RefreshTokenURI())
	} else {
		o.log.WithField("target", host.String()).Debug("host entry belongs to another user, keeping it")
	}

	return deleted, errs.ErrorOrNil()
}

func (o *Orchestrator) validate(ctx context.Context, log logrus.FieldLogger, target domain.TargetURI,
	cred domain.Credential) bool {
	ok, err := o.authority.ValidateCredentials(ctx, target, cred)
	if err != nil {
		log.WithError(err).Warn("validation failed")
		return false
	}
	return ok
}

// interactiveLogon signs the user in and returns the result together with
// the username they supplied.
func (o *Orchestrator) interactiveLogon(ctx context.Context, log logrus.FieldLogger,
	op *domain.Operation) (domain.AuthenticationResult, string) {
	if o.prompter == nil {
		return domain.Failure(), ""
	}

	target := op.Target.WithUser(op.Username)
	title := o.authority.Title()
	scope := o.authority.Scope()

	if o.oauth != nil && o.oauth.PrefersOAuth() {
		return o.oauthLogon(ctx, log, target, op.Username, scope), op.Username
	}

	cred, err := o.prompter.PromptCredentials(ctx, title, target, op.Username)
	if err != nil {
		log.WithError(err).Warn("credential prompt failed")
		return domain.Failure(), ""
	}
	if cred == nil {
		log.Debug("credential prompt cancelled")
		return domain.Failure(), ""
	}

	target = target.WithUser(cred.Username)
	result, err := o.authority.AcquireToken(ctx, target, *cred, "", scope)
	if err != nil {
		log.WithError(err).Warn("token acquisition failed")
		return domain.Failure(), cred.Username
	}
	if !result.IsTwoFactor() {
		return result, cred.Username
	}

	log.WithField("result", result.Type.String()).Debug("second factor required")

	if o.oauth != nil {
		proceed, err := o.prompter.PromptOAuth(ctx, title, target, result.Type, cred.Username)
		if err != nil || !proceed {
			return domain.Failure(), cred.Username
		}
		return o.oauthLogon(ctx, log, target, cred.Username, scope), cred.Username
	}

	code, err := o.prompter.PromptAuthenticationCode(ctx, title, target, result.Type, cred.Username)
	if err != nil || strings.TrimSpace(code) == "" {
		return domain.Failure(), cred.Username
	}
	result, err = o.authority.AcquireToken(ctx, target, *cred, strings.TrimSpace(code), scope)
	if err != nil {
		log.WithError(err).Warn("token acquisition with code failed")
		return domain.Failure(), cred.Username
	}
	return result, cred.Username
}

func (o *Orchestrator) oauthLogon(ctx context.Context, log logrus.FieldLogger, target domain.TargetURI,
	username string, scope domain.TokenScope) domain.AuthenticationResult {
	result, err := o.oauth.AcquireTokenOAuth(ctx, target, username, scope)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug("browser sign-in cancelled")
		} else {
			log.WithError(err).Warn("browser sign-in failed")
		}
		return domain.Failure()
	}
	return result
}

// persist writes the per-user entry, the refresh sibling, and the host
// mirror when the host slot is free or already holds the same user. The host
// slot is read even when interactivity is always; that read only guards the
// mirror and never returns a cached credential.
func (o *Orchestrator) persist(ctx context.Context, op *domain.Operation, result domain.AuthenticationResult,
	supplied string) (*domain.Credential, error) {
	username := firstNonBlank(result.RemoteUsername, supplied, op.Target.Username(), op.Username)
	cred := result.Token.ToCredential(username)

	perUser := op.Target.WithUser(cred.Username)
	if op.Target.HasUserInfo() && op.Target.Username() != cred.Username {
		perUser = op.Target.HostOnly().WithUser(cred.Username)
	}
	if err := o.store.WriteCredentials(ctx, perUser, cred); err != nil {
		return nil, err
	}

	refresh := result.RefreshToken
	if refresh.IsValid() {
		if err := o.store.WriteCredentials(ctx, perUser.RefreshTokenURI(), refresh.ToCredential(cred.Username)); err != nil {
			return nil, err
		}
	}

	host := op.Target.HostOnly()
	existing, err := o.store.ReadCredentials(ctx, host)
	if err != nil {
		o.log.WithError(err).Warn("reading host entry failed, skipping mirror")
		return &cred, nil
	}
	if existing != nil && existing.Username != cred.Username {
		return &cred, nil
	}
	if err := o.store.WriteCredentials(ctx, host, cred); err != nil {
		o.log.WithError(err).Warn("writing host mirror failed")
		return &cred, nil
	}
	if refresh.IsValid() {
		if err := o.store.WriteCredentials(ctx, host.RefreshTokenURI(), refresh.ToCredential(cred.Username)); err != nil {
			o.log.WithError(err).Warn("writing host refresh mirror failed")
		}
	}
	return &cred, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
