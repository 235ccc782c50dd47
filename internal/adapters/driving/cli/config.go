package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

var errSettingsNotConfigured = errors.New("settings service not configured")

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage helper settings",
	Long: `View and change the settings stored in the config file.

Git configuration (credential.<url>.authority and friends) and GCM_*
environment variables override the file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show [url]",
	Short: "Show effective settings",
	Long:  `Shows the global settings, or the settings resolved for a remote URL.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config file value",
	Long: `Writes one key to the config file.

Keys:
  credential.authority        auto, basic, ntlm, azure-directory, microsoft-account, github, bitbucket
  credential.interactive      auto, always, never
  credential.validate         true/false
  credential.preserve         true/false
  credential.namespace        secret namespace (default git)
  credential.use_http_path    true/false
  http_timeout                duration, e.g. 15s
  prompt                      terminal, tui
  store                       sqlite, memory
  data_dir                    directory for the credential database
  verbose                     true/false
  bitbucket.consumer_key      OAuth consumer key
  bitbucket.consumer_secret   OAuth consumer secret
  bitbucket.private_key_file  PEM RSA key for RSA-SHA1 signing
  vsts.client_id              Azure AD public client id
  vsts.authority_host         Microsoft identity host
  vsts.token_scope            PAT scope
  oauth.callback_url          loopback redirect URL
  oauth.callback_timeout      duration`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if settingsService == nil {
			return errSettingsNotConfigured
		}
		cmd.Println(settingsService.ConfigPath())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}

	var (
		settings domain.Settings
		err      error
	)
	if len(args) == 1 {
		var target domain.TargetURI
		target, err = domain.ParseTargetURI(args[0])
		if err != nil {
			return err
		}
		settings, err = settingsService.Resolve(target)
	} else {
		settings, err = settingsService.Global()
	}
	if err != nil {
		return fmt.Errorf("failed to resolve settings: %w", err)
	}

	printSettings(cmd, settings)

	values := settingsService.Values()
	if len(values) > 0 {
		cmd.Println()
		cmd.Printf("Config file (%s):\n", settingsService.ConfigPath())
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Printf("  %s = %s\n", k, maskValue(k, values[k]))
		}
	}
	return nil
}

func printSettings(cmd *cobra.Command, s domain.Settings) {
	cmd.Println("Effective Settings")
	cmd.Println("==================")
	cmd.Println()
	cmd.Printf("  Authority:       %s\n", s.Authority)
	cmd.Printf("  Interactive:     %s\n", s.Interactivity)
	cmd.Printf("  Validate:        %t\n", s.Validate)
	cmd.Printf("  Preserve:        %t\n", s.Preserve)
	cmd.Printf("  Namespace:       %s\n", s.Namespace)
	cmd.Printf("  Use HTTP path:   %t\n", s.UseHTTPPath)
	cmd.Printf("  HTTP timeout:    %s\n", s.HTTPTimeout)
	cmd.Printf("  Prompt:          %s\n", s.Prompt.Description())
	cmd.Printf("  Store:           %s\n", s.Store)
	if s.DataDir != "" {
		cmd.Printf("  Data dir:        %s\n", s.DataDir)
	}
	cmd.Printf("  Callback URL:    %s\n", s.OAuth.CallbackURL)
	cmd.Printf("  Bitbucket OAuth: %t\n", s.Bitbucket.HasOAuth())
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("%s = %s\n", args[0], maskValue(args[0], args[1]))
	return nil
}

// maskValue hides secret config values.
func maskValue(key string, value any) string {
	s := fmt.Sprint(value)
	if key != "bitbucket.consumer_secret" {
		return s
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
