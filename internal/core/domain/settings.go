package domain

import "time"

const unknownDescription = "Unknown"

// DefaultHTTPTimeout bounds every REST call made by an authority.
const DefaultHTTPTimeout = 15 * time.Second

// DefaultCallbackTimeout bounds the wait for a browser redirect.
const DefaultCallbackTimeout = 5 * time.Minute

// DefaultCallbackURL is the fixed loopback address OAuth redirects land on.
const DefaultCallbackURL = "http://localhost:34106/"

// PromptStyle selects the interactive prompter.
type PromptStyle string

// Available prompt styles.
const (
	// PromptTerminal reads plain lines from the controlling terminal.
	PromptTerminal PromptStyle = "terminal"
	// PromptTUI renders a small form on the terminal.
	PromptTUI PromptStyle = "tui"
)

// IsValid returns true if the prompt style is recognised.
func (p PromptStyle) IsValid() bool {
	switch p {
	case PromptTerminal, PromptTUI:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the style.
func (p PromptStyle) Description() string {
	switch p {
	case PromptTerminal:
		return "Terminal (line prompts)"
	case PromptTUI:
		return "TUI (form)"
	default:
		return unknownDescription
	}
}

// StoreBackend selects where secrets are kept.
type StoreBackend string

// Available store backends.
const (
	// StoreSQLite persists secrets in a local SQLite database.
	StoreSQLite StoreBackend = "sqlite"
	// StoreMemory keeps secrets for the life of the process only.
	StoreMemory StoreBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	return b == StoreSQLite || b == StoreMemory
}

// BitbucketSettings holds Bitbucket OAuth consumer configuration.
type BitbucketSettings struct {
	// ConsumerKey is the OAuth consumer key (Server) or client id (Cloud).
	ConsumerKey string
	// ConsumerSecret is the OAuth consumer secret used for HMAC-SHA1 and
	// as the Cloud client secret.
	ConsumerSecret string
	// PrivateKeyFile points at a PEM RSA key; when set, Server requests are
	// signed with RSA-SHA1 instead of HMAC-SHA1.
	PrivateKeyFile string
}

// HasOAuth returns true if an OAuth consumer is configured.
func (b BitbucketSettings) HasOAuth() bool {
	return b.ConsumerKey != "" && (b.ConsumerSecret != "" || b.PrivateKeyFile != "")
}

// VSTSSettings holds Azure DevOps sign-in configuration.
type VSTSSettings struct {
	// ClientID is the public client used for AAD/MSA sign-in.
	ClientID string
	// AuthorityHost is the Microsoft identity platform host.
	AuthorityHost string
	// TokenScope is the PAT scope requested after sign-in.
	TokenScope string
}

// OAuthSettings holds loopback redirect configuration.
type OAuthSettings struct {
	// CallbackURL is where the provider redirects the browser.
	CallbackURL string
	// CallbackTimeout bounds the wait for the redirect.
	CallbackTimeout time.Duration
}

// Settings is the resolved configuration for one target.
type Settings struct {
	Authority     AuthorityType
	Interactivity Interactivity
	Validate      bool
	Preserve      bool
	Namespace     SecretKind
	UseHTTPPath   bool
	HTTPTimeout   time.Duration
	Prompt        PromptStyle
	Store         StoreBackend
	DataDir       string
	Verbose       bool

	Bitbucket BitbucketSettings
	VSTS      VSTSSettings
	OAuth     OAuthSettings
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Authority:     AuthorityAuto,
		Interactivity: InteractivityAuto,
		Namespace:     SecretCredential,
		HTTPTimeout:   DefaultHTTPTimeout,
		Prompt:        PromptTerminal,
		Store:         StoreSQLite,
		VSTS: VSTSSettings{
			ClientID:      "872cd9fa-d31f-45e0-9eab-6e460a02d1f1",
			AuthorityHost: "https://login.microsoftonline.com",
			TokenScope:    "vso.code_write vso.packaging",
		},
		OAuth: OAuthSettings{
			CallbackURL:     DefaultCallbackURL,
			CallbackTimeout: DefaultCallbackTimeout,
		},
	}
}
