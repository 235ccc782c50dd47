package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driving"
	"github.com/custodia-labs/git-credential-broker/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config file keys.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyAuthority       = "credential.authority"
	keyInteractive     = "credential.interactive"
	keyValidate        = "credential.validate"
	keyPreserve        = "credential.preserve"
	keyNamespace       = "credential.namespace"
	keyUseHTTPPath     = "credential.use_http_path"
	keyHTTPTimeout     = "http_timeout"
	keyPrompt          = "prompt"
	keyStore           = "store"
	keyDataDir         = "data_dir"
	keyVerbose         = "verbose"
	keyBBConsumerKey   = "bitbucket.consumer_key"
	keyBBConsumerSec   = "bitbucket.consumer_secret"
	keyBBPrivateKey    = "bitbucket.private_key_file"
	keyVSTSClientID    = "vsts.client_id"
	keyVSTSAuthority   = "vsts.authority_host"
	keyVSTSTokenScope  = "vsts.token_scope"
	keyCallbackURL     = "oauth.callback_url"
	keyCallbackTimeout = "oauth.callback_timeout"
)

type valueKind int

const (
	kindString valueKind = iota
	kindBool
	kindDuration
)

// settableKeys lists the keys "config set" accepts and how to store them.
var settableKeys = map[string]valueKind{
	keyAuthority:       kindString,
	keyInteractive:     kindString,
	keyValidate:        kindBool,
	keyPreserve:        kindBool,
	keyNamespace:       kindString,
	keyUseHTTPPath:     kindBool,
	keyHTTPTimeout:     kindDuration,
	keyPrompt:          kindString,
	keyStore:           kindString,
	keyDataDir:         kindString,
	keyVerbose:         kindBool,
	keyBBConsumerKey:   kindString,
	keyBBConsumerSec:   kindString,
	keyBBPrivateKey:    kindString,
	keyVSTSClientID:    kindString,
	keyVSTSAuthority:   kindString,
	keyVSTSTokenScope:  kindString,
	keyCallbackURL:     kindString,
	keyCallbackTimeout: kindDuration,
}

// envOverrides are the GCM_* environment variables. They take precedence
// over every other source.
type envOverrides struct {
	Authority   string        `env:"GCM_AUTHORITY"`
	Interactive string        `env:"GCM_INTERACTIVE"`
	Validate    string        `env:"GCM_VALIDATE"`
	Preserve    string        `env:"GCM_PRESERVE"`
	Namespace   string        `env:"GCM_NAMESPACE"`
	HTTPTimeout time.Duration `env:"GCM_HTTP_TIMEOUT"`
	Prompt      string        `env:"GCM_PROMPT"`
	Store       string        `env:"GCM_STORE"`
	DataDir     string        `env:"GCM_DATA_DIR"`
	Trace       string        `env:"GCM_TRACE"`
}

// SettingsService resolves settings from defaults, the TOML config file,
// git configuration and the environment, in that order of precedence.
type SettingsService struct {
	configStore driven.ConfigStore
	gitConfig   driven.GitConfig
	environ     map[string]string
}

// NewSettingsService creates a new settings service.
// gitConfig may be nil. A nil environ reads the process environment.
func NewSettingsService(configStore driven.ConfigStore, gitConfig driven.GitConfig,
	environ map[string]string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		gitConfig:   gitConfig,
		environ:     environ,
	}
}

// Global returns settings that do not depend on a target.
func (s *SettingsService) Global() (domain.Settings, error) {
	return s.resolve(domain.TargetURI{})
}

// Resolve returns the effective settings for target.
func (s *SettingsService) Resolve(target domain.TargetURI) (domain.Settings, error) {
	return s.resolve(target)
}

func (s *SettingsService) resolve(target domain.TargetURI) (domain.Settings, error) {
	settings := domain.DefaultSettings()

	if s.configStore != nil {
		s.applyFile(&settings)
	}

	if s.gitConfig != nil && !target.IsZero() {
		opts, err := s.gitConfig.CredentialOptions(target)
		if err != nil {
			logger.Warn("Reading git config: %v", err)
		} else {
			applyGitOptions(&settings, opts)
		}
	}

	if err := s.applyEnv(&settings); err != nil {
		return settings, err
	}

	return settings, nil
}

func (s *SettingsService) applyFile(st *domain.Settings) {
	st.Authority = parseAuthority(s.configStore.GetString(keyAuthority), st.Authority)
	st.Interactivity = parseInteractivity(s.configStore.GetString(keyInteractive), st.Interactivity)
	st.Validate = s.getBool(keyValidate, st.Validate)
	st.Preserve = s.getBool(keyPreserve, st.Preserve)
	st.Namespace = domain.SecretKind(s.getString(keyNamespace, string(st.Namespace)))
	st.UseHTTPPath = s.getBool(keyUseHTTPPath, st.UseHTTPPath)
	st.HTTPTimeout = s.getDuration(keyHTTPTimeout, st.HTTPTimeout)
	st.Prompt = parsePrompt(s.configStore.GetString(keyPrompt), st.Prompt)
	st.Store = parseStore(s.configStore.GetString(keyStore), st.Store)
	st.DataDir = s.getString(keyDataDir, st.DataDir)
	st.Verbose = s.getBool(keyVerbose, st.Verbose)

	st.Bitbucket.ConsumerKey = s.getString(keyBBConsumerKey, st.Bitbucket.ConsumerKey)
	st.Bitbucket.ConsumerSecret = s.getString(keyBBConsumerSec, st.Bitbucket.ConsumerSecret)
	st.Bitbucket.PrivateKeyFile = s.getString(keyBBPrivateKey, st.Bitbucket.PrivateKeyFile)

	st.VSTS.ClientID = s.getString(keyVSTSClientID, st.VSTS.ClientID)
	st.VSTS.AuthorityHost = s.getString(keyVSTSAuthority, st.VSTS.AuthorityHost)
	st.VSTS.TokenScope = s.getString(keyVSTSTokenScope, st.VSTS.TokenScope)

	st.OAuth.CallbackURL = s.getString(keyCallbackURL, st.OAuth.CallbackURL)
	st.OAuth.CallbackTimeout = s.getDuration(keyCallbackTimeout, st.OAuth.CallbackTimeout)
}

// applyGitOptions applies credential.* options from git configuration.
// Keys are the lowercase git option names.
func applyGitOptions(st *domain.Settings, opts map[string]string) {
	for key, val := range opts {
		switch key {
		case "authority":
			st.Authority = parseAuthority(val, st.Authority)
		case "interactive":
			st.Interactivity = parseInteractivity(val, st.Interactivity)
		case "validate":
			st.Validate = parseBool(val, st.Validate)
		case "preserve":
			st.Preserve = parseBool(val, st.Preserve)
		case "namespace":
			if val != "" {
				st.Namespace = domain.SecretKind(val)
			}
		case "usehttppath":
			st.UseHTTPPath = parseBool(val, st.UseHTTPPath)
		case "httptimeout":
			if d, err := time.ParseDuration(val); err == nil && d > 0 {
				st.HTTPTimeout = d
			}
		}
	}
}

func (s *SettingsService) applyEnv(st *domain.Settings) error {
	var ov envOverrides
	opts := env.Options{}
	if s.environ != nil {
		opts.Environment = s.environ
	}
	if err := env.ParseWithOptions(&ov, opts); err != nil {
		return fmt.Errorf("%w: environment: %v", domain.ErrInvalidInput, err)
	}

	st.Authority = parseAuthority(ov.Authority, st.Authority)
	st.Interactivity = parseInteractivity(ov.Interactive, st.Interactivity)
	st.Validate = parseBool(ov.Validate, st.Validate)
	st.Preserve = parseBool(ov.Preserve, st.Preserve)
	if ov.Namespace != "" {
		st.Namespace = domain.SecretKind(ov.Namespace)
	}
	if ov.HTTPTimeout > 0 {
		st.HTTPTimeout = ov.HTTPTimeout
	}
	st.Prompt = parsePrompt(ov.Prompt, st.Prompt)
	st.Store = parseStore(ov.Store, st.Store)
	if ov.DataDir != "" {
		st.DataDir = ov.DataDir
	}
	st.Verbose = parseBool(ov.Trace, st.Verbose)
	return nil
}

// Set writes one key to the config file, converting the value to the
// type the key holds.
func (s *SettingsService) Set(key, value string) error {
	if s.configStore == nil {
		return domain.ErrNotImplemented
	}

	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var stored any = value
	switch kind {
	case kindBool:
		b, ok := boolValue(value)
		if !ok {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		stored = b
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: %s must be a duration such as 30s", domain.ErrInvalidInput, key)
		}
	case kindString:
		if err := validateString(key, value); err != nil {
			return err
		}
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Values returns the config file contents.
func (s *SettingsService) Values() map[string]any {
	out := make(map[string]any)
	if s.configStore == nil {
		return out
	}
	for _, k := range s.configStore.Keys() {
		v, _ := s.configStore.Get(k)
		if k == keyBBConsumerSec {
			v = "****"
		}
		out[k] = v
	}
	return out
}

// ConfigPath returns the config file path.
func (s *SettingsService) ConfigPath() string {
	if s.configStore == nil {
		return ""
	}
	return s.configStore.Path()
}

func validateString(key, value string) error {
	var err error
	switch key {
	case keyAuthority:
		_, err = domain.ParseAuthorityType(value)
	case keyInteractive:
		_, err = domain.ParseInteractivity(value)
	case keyPrompt:
		if !domain.PromptStyle(value).IsValid() {
			err = fmt.Errorf("%w: prompt %q", domain.ErrUnsupportedType, value)
		}
	case keyStore:
		if !domain.StoreBackend(value).IsValid() {
			err = fmt.Errorf("%w: store %q", domain.ErrUnsupportedType, value)
		}
	}
	return err
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getDuration accepts "30s" style strings or a whole number of seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if str := s.configStore.GetString(key); str != "" {
		if d, err := time.ParseDuration(str); err == nil && d > 0 {
			return d
		}
		logger.Warn("Ignoring invalid duration %s=%q", key, str)
		return defaultVal
	}
	if secs := s.configStore.GetInt(key); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func parseAuthority(val string, defaultVal domain.AuthorityType) domain.AuthorityType {
	if strings.TrimSpace(val) == "" {
		return defaultVal
	}
	a, err := domain.ParseAuthorityType(val)
	if err != nil {
		logger.Warn("Ignoring %v", err)
		return defaultVal
	}
	return a
}

func parseInteractivity(val string, defaultVal domain.Interactivity) domain.Interactivity {
	if strings.TrimSpace(val) == "" {
		return defaultVal
	}
	i, err := domain.ParseInteractivity(val)
	if err != nil {
		logger.Warn("Ignoring %v", err)
		return defaultVal
	}
	return i
}

func parsePrompt(val string, defaultVal domain.PromptStyle) domain.PromptStyle {
	p := domain.PromptStyle(strings.ToLower(strings.TrimSpace(val)))
	if !p.IsValid() {
		return defaultVal
	}
	return p
}

func parseStore(val string, defaultVal domain.StoreBackend) domain.StoreBackend {
	b := domain.StoreBackend(strings.ToLower(strings.TrimSpace(val)))
	if !b.IsValid() {
		return defaultVal
	}
	return b
}

func parseBool(val string, defaultVal bool) bool {
	if b, ok := boolValue(val); ok {
		return b
	}
	return defaultVal
}

// boolValue understands git's boolean spellings.
func boolValue(val string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "yes", "on", "1":
		return true, true
	case "false", "no", "off", "0":
		return false, true
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b, true
	}
	return false, false
}
