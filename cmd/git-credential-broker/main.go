// Command git-credential-broker is a git credential helper.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/authority"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/authority/basic"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/authority/vsts"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/config/file"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/config/gitconfig"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/network"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/prompt/terminal"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/prompt/tui"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/storage"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driving/cli"
	"github.com/custodia-labs/git-credential-broker/internal/adapters/driving/oauth"
	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driven"
	"github.com/custodia-labs/git-credential-broker/internal/core/services"
	"github.com/custodia-labs/git-credential-broker/internal/logger"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configStore, err := openConfigStore("")
	if err != nil {
		return err
	}

	cwd, _ := os.Getwd()
	gitConfig, err := gitconfig.Load(cwd)
	if err != nil {
		logger.Warn("ignoring git configuration: %v", err)
		gitConfig = gitconfig.New()
	}

	settingsService := services.NewSettingsService(configStore, gitConfig, nil)
	settings, err := settingsService.Global()
	if err != nil {
		return err
	}
	if settings.Verbose {
		logger.SetVerbose(true)
	}

	secrets, closeSecrets, err := openSecretStore(settings)
	if err != nil {
		return err
	}
	defer closeSecrets()

	client := network.NewClient(settings.HTTPTimeout)
	factory := authority.NewFactory(client, oauth.NewListener(), oauth.SystemBrowser{}, settings)
	dispatcher := services.NewDispatcher(vsts.NewDetector(client), basic.New(client))

	prompter, closePrompter := openPrompter(settings.Prompt)
	defer closePrompter()

	credentialService := services.NewCredentialService(
		settingsService,
		dispatcher,
		factory,
		storage.NewProvider(secrets),
		prompter,
	)

	cli.SetVersion(version)
	cli.SetServices(credentialService, settingsService)
	return cli.Execute(ctx)
}

// openConfigStore returns an empty in-memory store when the config directory
// cannot be created. A config file that exists but does not parse is an error.
// An empty dir means the default directory.
func openConfigStore(dir string) (driven.ConfigStore, error) {
	store, err := file.NewConfigStore(dir)
	if err == nil {
		return store, nil
	}
	if dir == "" {
		dir, _ = file.DefaultDir()
	}
	if dir != "" {
		if _, statErr := os.Stat(filepath.Join(dir, file.FileName)); statErr == nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	logger.Warn("config file unavailable, using defaults: %v", err)
	return memory.NewConfigStore(nil), nil
}

func openSecretStore(settings domain.Settings) (driven.SecretStore, func(), error) {
	if settings.Store == domain.StoreMemory {
		return memory.NewSecretStore(), func() {}, nil
	}

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open credential store: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing credential store: %v", err)
		}
	}, nil
}

// openPrompter returns nil when git asked for no terminal prompts or there
// is no controlling terminal.
func openPrompter(style domain.PromptStyle) (driven.Prompter, func()) {
	noop := func() {}
	if os.Getenv("GIT_TERMINAL_PROMPT") == "0" {
		return nil, noop
	}

	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		logger.Debug("no terminal: %v", err)
		return nil, noop
	}
	closeTTY := func() { _ = tty.Close() }

	if style == domain.PromptTUI {
		return tui.New(tty, tty), closeTTY
	}
	return terminal.New(tty, tty), closeTTY
}
