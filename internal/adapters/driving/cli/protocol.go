package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

// request is one credential description read from git.
type request struct {
	Protocol string
	Host     string
	Path     string
	Username string
	Password string
	URL      string
}

// readRequest parses key=value lines until a blank line or EOF.
// Unknown keys are ignored. A url attribute sets the fields it carries.
func readRequest(r io.Reader) (request, error) {
	var req request
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return request{}, fmt.Errorf("%w: malformed line %q", domain.ErrInvalidInput, line)
		}
		switch key {
		case "protocol":
			req.Protocol = value
		case "host":
			req.Host = value
		case "path":
			req.Path = value
		case "username":
			req.Username = value
		case "password":
			req.Password = value
		case "url":
			req.URL = value
		}
	}
	if err := scanner.Err(); err != nil {
		return request{}, fmt.Errorf("read credential request: %w", err)
	}
	return req, nil
}

// Target returns the remote the request is about.
func (r request) Target() (domain.TargetURI, error) {
	if r.Protocol != "" && r.Host != "" {
		return domain.NewTargetURI(r.Protocol, r.Host, r.Path)
	}
	if r.URL != "" {
		return domain.ParseTargetURI(r.URL)
	}
	return domain.TargetURI{}, fmt.Errorf("%w: protocol and host are required", domain.ErrInvalidInput)
}

// User returns the explicit username, falling back to the one embedded in
// the url attribute.
func (r request) User() string {
	if r.Username != "" {
		return r.Username
	}
	if r.URL != "" {
		if t, err := domain.ParseTargetURI(r.URL); err == nil {
			return t.Username()
		}
	}
	return ""
}

// writeCredential writes the answer to a get request.
func writeCredential(w io.Writer, req request, target domain.TargetURI, cred domain.Credential) error {
	bw := bufio.NewWriter(w)
	protocol := req.Protocol
	if protocol == "" {
		protocol = target.Scheme()
	}
	host := req.Host
	if host == "" {
		host = target.Host()
	}
	fmt.Fprintf(bw, "protocol=%s\n", protocol)
	fmt.Fprintf(bw, "host=%s\n", host)
	if req.Path != "" {
		fmt.Fprintf(bw, "path=%s\n", req.Path)
	}
	fmt.Fprintf(bw, "username=%s\n", cred.Username)
	fmt.Fprintf(bw, "password=%s\n", cred.Password)
	return bw.Flush()
}
