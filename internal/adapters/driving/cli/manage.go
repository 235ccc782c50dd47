package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
)

var deleteUsername string

var deleteCmd = &cobra.Command{
	Use:   "delete <url>",
	Short: "Delete stored credentials for a remote",
	Long: `Deletes the stored credential and any refresh token for the remote,
even when the preserve setting is on.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var listCmd = &cobra.Command{
	Use:   "list [namespace]",
	Short: "List stored credential keys",
	Long:  `Lists the storage keys held for a namespace (default "git"). Secrets are never printed.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

func init() {
	deleteCmd.Flags().StringVarP(&deleteUsername, "username", "u", "", "only delete the credential for this user")
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	if credentialService == nil {
		return errNotConfigured
	}

	target, err := domain.ParseTargetURI(args[0])
	if err != nil {
		return err
	}

	if err := credentialService.Delete(cmd.Context(), target, deleteUsername); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	cmd.Printf("Deleted credentials for %s\n", target)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	if credentialService == nil {
		return errNotConfigured
	}

	kind := domain.SecretCredential
	if len(args) == 1 {
		kind = domain.SecretKind(args[0])
	}

	keys, err := credentialService.List(cmd.Context(), kind)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	if len(keys) == 0 {
		cmd.Println("No stored credentials.")
		return nil
	}
	for _, k := range keys {
		cmd.Println(k)
	}
	return nil
}
