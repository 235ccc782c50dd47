// Package domain defines the core entities of the credential broker.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - TargetURI: The remote endpoint a credential is scoped to
//   - Credential: A username and secret handed back to git
//   - Token: A provider-issued secret with its type
//   - AuthenticationResult: The outcome of one authority call
//   - Operation: The per-invocation context of one git request
//
// KeyFor and RefreshKey derive the storage keys used by every secret store.
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
