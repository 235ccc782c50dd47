package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	// Returned for caller-contract violations such as a zero TargetURI.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown authority or interactivity value.
	ErrUnsupportedType = errors.New("unsupported type")

	// Authentication Errors.

	// ErrAuthRequired indicates the remote requires authentication but none is available.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the authentication credentials are invalid.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrTokenRefreshFailed indicates token refresh operation failed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// ErrLogonCancelled indicates the user dismissed an interactive prompt.
	ErrLogonCancelled = errors.New("logon cancelled")

	// Provider Errors.

	// ErrCallbackUnconfirmed indicates the OAuth redirect did not confirm the request.
	ErrCallbackUnconfirmed = errors.New("oauth callback unconfirmed")

	// ErrMalformedResponse indicates a provider returned a body that could not be parsed.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrTimeout indicates a network call or callback wait exceeded its deadline.
	ErrTimeout = errors.New("timed out")

	// ErrNotConfigured indicates a provider is missing required OAuth settings.
	ErrNotConfigured = errors.New("provider not configured")
)
