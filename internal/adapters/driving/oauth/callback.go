// Package oauth provides the loopback redirect listener and browser launcher
// used by browser sign-in.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
)

// Ensure adapters implement the interfaces.
var (
	_ driven.CallbackListener = (*Listener)(nil)
	_ driven.Browser          = SystemBrowser{}
)

// Listener serves one redirect on a loopback address.
type Listener struct {
	// ShutdownTimeout bounds the graceful stop.
	ShutdownTimeout time.Duration
}

// NewListener creates a loopback listener.
func NewListener() *Listener {
	return &Listener{ShutdownTimeout: 5 * time.Second}
}

// Capture binds redirectURL, calls ready, and waits for the first request on
// the redirect path. It returns that request's raw query. The server is
// stopped before Capture returns.
func (l *Listener) Capture(ctx context.Context, redirectURL string, ready func() error) (string, error) {
	u, err := url.Parse(redirectURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: redirect url %q", domain.ErrInvalidInput, redirectURL)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	listener, err := net.Listen("tcp", listenAddr(u))
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", u.Host, err)
	}

	queries := make(chan string, 1)
	server := &http.Server{
		Handler:           captureHandler(path, queries),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	go func() {
		_ = server.Serve(listener)
	}()
	defer l.stop(server)

	if ready != nil {
		if err := ready(); err != nil {
			return "", err
		}
	}

	select {
	case raw := <-queries:
		return raw, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: waiting for sign-in redirect", domain.ErrTimeout)
		}
		return "", ctx.Err()
	}
}

func (l *Listener) stop(server *http.Server) {
	timeout := l.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		_ = server.Close()
	}
}

// listenAddr maps localhost onto the IPv4 loopback.
func listenAddr(u *url.URL) string {
	host := u.Hostname()
	if host == "localhost" || host == "" {
		host = "127.0.0.1"
	}
	port := u.Port()
	if port == "" {
		port = "80"
	}
	return net.JoinHostPort(host, port)
}

func captureHandler(path string, queries chan<- string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}

		q := r.URL.Query()
		title, message := "Sign-in complete", "You can close this window and return to git."
		if e := q.Get("error"); e != "" {
			title, message = "Sign-in failed", q.Get("error_description")
		}

		select {
		case queries <- r.URL.RawQuery:
		default:
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, resultHTML(html.EscapeString(title), html.EscapeString(message)))
	})
}

func resultHTML(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>git-credential-broker</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: #FAFAFA;
        }
        .container {
            text-align: center;
            background: white;
            padding: 48px 64px;
            border-radius: 16px;
            border: 1px solid #C7C8CC;
        }
        h1 { color: #333F50; margin: 0 0 8px 0; font-size: 24px; }
        p { color: #7B8088; margin: 0; font-size: 16px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`, title, message)
}

// SystemBrowser opens URLs with the platform launcher.
type SystemBrowser struct{}

// Open starts the default browser on url.
func (SystemBrowser) Open(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
