package driving

import "github.com/custodia-labs/git-credential-broker/internal/core/domain"

// SettingsService resolves configuration from defaults, the config file,
// git configuration and the environment, in increasing precedence.
type SettingsService interface {
	// Global returns settings that do not depend on a target.
	Global() (domain.Settings, error)

	// Resolve returns the effective settings for target.
	Resolve(target domain.TargetURI) (domain.Settings, error)

	// Set writes one key to the config file.
	Set(key, value string) error

	// Values returns the config file contents as flat key/value pairs.
	Values() map[string]any

	// ConfigPath returns the config file path.
	ConfigPath() string
}
