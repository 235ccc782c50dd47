// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The Orchestrator is the per-provider state machine: cache, then refresh,
// then interactive logon. The Dispatcher picks the provider for a target.
// CredentialService ties both to git's get, store and erase requests.
//
// Services are pure Go with no CGO.
package services
