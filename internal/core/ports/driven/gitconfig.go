package driven

import "github.com/custodia-labs/git-credential-broker/internal/core/domain"

// GitConfig reads credential helper options from git configuration.
type GitConfig interface {
	// CredentialOptions returns the credential.* options that apply to
	// target. Options from credential.<url> sections whose URL matches
	// target override the generic credential section. Keys are lowercase.
	CredentialOptions(target domain.TargetURI) (map[string]string, error)
}
