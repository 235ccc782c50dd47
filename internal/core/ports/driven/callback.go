package driven

import "context"

// CallbackListener captures a single OAuth redirect on a loopback address.
type CallbackListener interface {
	// Capture binds redirectURL, calls ready once the listener accepts
	// connections, and returns the raw query of the first request.
	// The listener is always shut down before Capture returns.
	Capture(ctx context.Context, redirectURL string, ready func() error) (string, error)
}

// Browser opens a URL in the user's browser.
type Browser interface {
	Open(url string) error
}
