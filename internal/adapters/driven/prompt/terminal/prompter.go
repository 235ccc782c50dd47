// Package terminal prompts for credentials on the controlling terminal.
//
// git owns stdin and stdout while a helper runs, so prompts go to /dev/tty.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
)

// Ensure Prompter implements the interface.
var _ driven.Prompter = (*Prompter)(nil)

// Prompter reads answers line by line. Passwords are read without echo when
// the input is a terminal.
type Prompter struct {
	reader *bufio.Reader
	out    io.Writer
	fd     int
	isTTY  bool
}

// New creates a prompter over in and out. When in is a terminal file,
// passwords are not echoed.
func New(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{reader: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.isTTY = true
	}
	return p
}

// OpenTTY opens the controlling terminal. The returned close function
// releases it.
func OpenTTY() (*Prompter, func() error, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open terminal: %w", err)
	}
	return New(tty, tty), tty.Close, nil
}

// PromptCredentials asks for a username (unless given) and a password.
// Blank answers cancel.
func (p *Prompter) PromptCredentials(ctx context.Context, title string, target domain.TargetURI,
	username string) (*domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fmt.Fprintf(p.out, "%s sign-in for %s\n", title, target.HostOnly())
	if strings.TrimSpace(username) == "" {
		fmt.Fprint(p.out, "Username: ")
		line, err := p.readLine()
		if err != nil {
			return nil, err
		}
		username = line
		if username == "" {
			return nil, nil
		}
	}

	fmt.Fprintf(p.out, "Password for '%s': ", target.HostOnly().WithUser(username))
	password, err := p.readSecret()
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, nil
	}

	cred := domain.NewCredential(username, password)
	return &cred, nil
}

// PromptAuthenticationCode asks for a second-factor code.
func (p *Prompter) PromptAuthenticationCode(ctx context.Context, title string, _ domain.TargetURI,
	kind domain.ResultType, username string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(p.out, "%s: %s\n", title, CodeMessage(kind, username))
	fmt.Fprint(p.out, "Code: ")
	return p.readLine()
}

// PromptOAuth asks whether to continue in the browser. The default is yes.
func (p *Prompter) PromptOAuth(ctx context.Context, title string, target domain.TargetURI,
	_ domain.ResultType, username string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	who := target.HostOnly().String()
	if username != "" {
		who = username + " on " + who
	}
	fmt.Fprintf(p.out, "%s requires two-factor authentication for %s.\n", title, who)
	fmt.Fprint(p.out, "Sign in with your browser? [Y/n] ")
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	return IsYes(line, true), nil
}

// CodeMessage describes where the user finds the code.
func CodeMessage(kind domain.ResultType, username string) string {
	suffix := ""
	if username != "" {
		suffix = " for " + username
	}
	switch kind {
	case domain.ResultTwoFactorApp:
		return "enter the code from your authenticator app" + suffix
	case domain.ResultTwoFactorSms:
		return "enter the code sent to your phone" + suffix
	default:
		return "enter your two-factor authentication code" + suffix
	}
}

// IsYes interprets a yes/no answer. Blank returns def.
func IsYes(answer string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "":
		return def
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", nil
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (p *Prompter) readSecret() (string, error) {
	if !p.isTTY {
		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	secret, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(secret), nil
}
