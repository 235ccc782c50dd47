package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/git-credential-broker/internal/core/domain"
	"github.com/custodia-labs/git-credential-broker/internal/logger"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Return a credential for the remote described on stdin",
	Long: `Reads a credential description from stdin and writes username and
password to stdout. Nothing is written when no credential is available,
which lets git fall back to its own prompt.`,
	Args: cobra.NoArgs,
	RunE: runGet,
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Store a credential git reports as working",
	Args:  cobra.NoArgs,
	RunE:  runStore,
}

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase a credential git reports as rejected",
	Args:  cobra.NoArgs,
	RunE:  runErase,
}

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(eraseCmd)
}

func runGet(cmd *cobra.Command, _ []string) error {
	if credentialService == nil {
		return errNotConfigured
	}

	req, target, err := readTarget(cmd)
	if err != nil {
		return err
	}

	cred, err := credentialService.Get(cmd.Context(), target, req.User())
	if err != nil {
		logger.Error("get %s: %v", target, err)
		return nil
	}
	if cred == nil {
		logger.Debug("no credential for %s", target)
		return nil
	}
	return writeCredential(cmd.OutOrStdout(), req, target, *cred)
}

func runStore(cmd *cobra.Command, _ []string) error {
	if credentialService == nil {
		return errNotConfigured
	}

	req, target, err := readTarget(cmd)
	if err != nil {
		return err
	}

	cred := domain.NewCredential(req.User(), req.Password)
	if err := credentialService.Store(cmd.Context(), target, cred); err != nil {
		logger.Error("store %s: %v", target, err)
	}
	return nil
}

func runErase(cmd *cobra.Command, _ []string) error {
	if credentialService == nil {
		return errNotConfigured
	}

	req, target, err := readTarget(cmd)
	if err != nil {
		return err
	}

	if err := credentialService.Erase(cmd.Context(), target, req.User()); err != nil {
		logger.Error("erase %s: %v", target, err)
	}
	return nil
}

func readTarget(cmd *cobra.Command) (request, domain.TargetURI, error) {
	req, err := readRequest(cmd.InOrStdin())
	if err != nil {
		return request{}, domain.TargetURI{}, err
	}
	target, err := req.Target()
	if err != nil {
		return request{}, domain.TargetURI{}, err
	}
	return req, target, nil
}
