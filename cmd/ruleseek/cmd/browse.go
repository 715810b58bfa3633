package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ruleseek/internal/ui"
)

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Search the rules interactively",
		Long: `Open a full-screen rules browser. Results update as you type;
use the arrow keys to select a rule and enter to show its punishment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !ui.Detect(cmd.OutOrStdout()).Interactive() {
				return errors.New("browse needs an interactive terminal; use 'ruleseek search' instead")
			}
			svc, cleanup, err := openReadOnlyService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			return ui.NewBrowser(svc.rules).Run(cmd.Context())
		},
	}
}
