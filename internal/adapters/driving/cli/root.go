// Package cli implements the git credential helper command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/git-credential-broker/internal/core/ports/driving"
	"github.com/custodia-labs/git-credential-broker/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

var verbose bool

// Services injected by main.
var (
	credentialService driving.CredentialService
	settingsService   driving.SettingsService
)

var errNotConfigured = errors.New("credential service not configured")

var rootCmd = &cobra.Command{
	Use:   "git-credential-broker",
	Short: "Git credential helper for GitHub, Bitbucket and Azure DevOps",
	Long: `git-credential-broker answers git's credential helper requests.

Configure git to use it:

  git config --global credential.helper broker

Git then runs "git-credential-broker get|store|erase" and exchanges
key=value lines on stdin and stdout.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "write trace output to stderr")
}

// SetServices injects the services the commands run against.
func SetServices(credentials driving.CredentialService, settings driving.SettingsService) {
	credentialService = credentials
	settingsService = settings
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
