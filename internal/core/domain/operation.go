package domain

// Operation is the per-invocation context for one git credential request.
// Dispatch caches the resolved authority onto it so later steps in the same
// session do not repeat detection.
type Operation struct {
	// Target is the remote the credential is for.
	Target TargetURI
	// Username is the username git supplied, if any.
	Username string
	// Authority is the configured or resolved authority.
	Authority AuthorityType
	// Tenant is the Azure AD tenant for azure-directory targets.
	Tenant string
	// Interactivity controls prompting.
	Interactivity Interactivity
	// Validate requests validation of cached credentials before use.
	Validate bool
	// Preserve makes erase a no-op.
	Preserve bool
	// Namespace is the secret kind credentials are filed under.
	Namespace SecretKind
	// UseHTTPPath keeps the repository path in the storage key.
	UseHTTPPath bool
}

// NewOperation builds an operation from settings resolved for target.
func NewOperation(target TargetURI, username string, s Settings) *Operation {
	if !s.UseHTTPPath {
		target = target.WithoutPath()
	}
	return &Operation{
		Target:        target,
		Username:      username,
		Authority:     s.Authority,
		Interactivity: s.Interactivity,
		Validate:      s.Validate,
		Preserve:      s.Preserve,
		Namespace:     s.Namespace,
		UseHTTPPath:   s.UseHTTPPath,
	}
}

// IsResolved returns true once a concrete authority is known.
func (o *Operation) IsResolved() bool {
	return o.Authority != "" && o.Authority != AuthorityAuto
}
