// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - SecretStore: Key/value secret persistence (SQLite or memory)
//   - CredentialStore: Target-addressed credentials over a SecretStore
//   - ProviderAuthority: Token acquisition, refresh and validation per provider
//   - AuthorityFactory: Builds the authority for a resolved operation
//   - Network: Outbound HTTP with rate limiting and timeouts
//   - ConfigStore: Configuration file
//   - GitConfig: credential.* options from git configuration
//
// # Interactive Interfaces
//
// These are only called when the operation allows prompting:
//
//   - CredentialPrompter, TwoFactorPrompter: Ask the user
//   - CallbackListener, Browser: Browser-based OAuth sign-in
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
