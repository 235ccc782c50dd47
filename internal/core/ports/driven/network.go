package driven

import (
	"context"
	"net/http"
	"time"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

// Request describes one outbound HTTP call made by an authority.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// BasicAuth sends the credential as HTTP Basic authorization.
	BasicAuth *domain.Credential
	// BearerToken sends "Authorization: Bearer <token>".
	BearerToken string
	// Authorization is sent verbatim and takes precedence over the above.
	Authorization string

	// Timeout overrides the client default for this request.
	Timeout time.Duration
	// NoRedirect returns 3xx responses instead of following them.
	NoRedirect bool
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess returns true for 2xx status codes.
func (r *Response) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Network performs HTTP requests on behalf of provider authorities.
type Network interface {
	// Send executes req and reads the whole body.
	// Transport failures and timeouts are returned as errors; any HTTP
	// status is a successful Send.
	Send(ctx context.Context, req Request) (*Response, error)

	// HTTPClient returns a client sharing the same transport, limiter and
	// timeout, for SDKs that want an *http.Client.
	HTTPClient() *http.Client
}
