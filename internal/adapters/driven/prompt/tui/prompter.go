// Package tui prompts for credentials with a small terminal form.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/prompt/terminal"
	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
)

// Ensure Prompter implements the interface.
var _ driven.Prompter = (*Prompter)(nil)

// runner runs a form to completion.
type runner func(ctx context.Context, m *form) (*form, error)

// Prompter renders each prompt as a bubbletea program on in/out.
type Prompter struct {
	run runner
}

// New creates a prompter that renders on out and reads keys from in.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{run: func(ctx context.Context, m *form) (*form, error) {
		p := tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out), tea.WithContext(ctx))
		final, err := p.Run()
		if err != nil {
			return nil, fmt.Errorf("run prompt: %w", err)
		}
		f, ok := final.(*form)
		if !ok {
			return nil, fmt.Errorf("unexpected prompt model %T", final)
		}
		return f, nil
	}}
}

// PromptCredentials asks for a username and password. Blank answers or esc
// cancel.
func (p *Prompter) PromptCredentials(ctx context.Context, title string, target domain.TargetURI,
	username string) (*domain.Credential, error) {
	f, err := p.run(ctx, newForm(title+" sign-in", target.HostOnly().String(), []field{
		{label: "Username", placeholder: "username", value: username},
		{label: "Password", placeholder: "password or token", secret: true},
	}, nil))
	if err != nil {
		return nil, err
	}

	values := f.values()
	if values == nil {
		return nil, nil
	}
	user := strings.TrimSpace(values[0])
	if user == "" || values[1] == "" {
		return nil, nil
	}
	cred := domain.NewCredential(user, values[1])
	return &cred, nil
}

// PromptAuthenticationCode asks for a second-factor code.
func (p *Prompter) PromptAuthenticationCode(ctx context.Context, title string, _ domain.TargetURI,
	kind domain.ResultType, username string) (string, error) {
	f, err := p.run(ctx, newForm(title, terminal.CodeMessage(kind, username), []field{
		{label: "Code", placeholder: "123456"},
	}, nil))
	if err != nil {
		return "", err
	}
	values := f.values()
	if values == nil {
		return "", nil
	}
	return strings.TrimSpace(values[0]), nil
}

// PromptOAuth asks whether to continue in the browser.
func (p *Prompter) PromptOAuth(ctx context.Context, title string, target domain.TargetURI,
	_ domain.ResultType, username string) (bool, error) {
	who := target.HostOnly().String()
	if username != "" {
		who = username + " on " + who
	}
	f, err := p.run(ctx, newForm(title, "Two-factor authentication is required for "+who+
		". Sign in with your browser?", []field{
		{label: "Continue", placeholder: "y/n", value: "y"},
	}, nil))
	if err != nil {
		return false, err
	}
	values := f.values()
	if values == nil {
		return false, nil
	}
	return terminal.IsYes(values[0], true), nil
}
