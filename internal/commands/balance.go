package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitwallet/internal/ledger"
)

func newBalanceCommand(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <owner>",
		Short: "Print an account balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			balance, err := ledger.New(store).Balance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], balance.StringFixed(2))
			return nil
		},
	}
}
