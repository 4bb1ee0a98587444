package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitwallet/internal/config"
	"github.com/mmynk/splitwallet/internal/ledger"
	"github.com/mmynk/splitwallet/internal/models"
)

func newSeedCommand(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Open accounts listed in a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			seed, err := config.LoadSeed(args[0])
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			opened, err := runSeed(cmd.Context(), ledger.New(store), seed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "opened %d of %d accounts\n", opened, len(seed.Accounts))
			return nil
		},
	}
}

// runSeed opens every seed account. Accounts that already exist are skipped.
func runSeed(ctx context.Context, l *ledger.Ledger, seed *config.Seed) (int, error) {
	opened := 0
	for _, a := range seed.Accounts {
		_, err := l.OpenAccount(ctx, a.Owner, a.Balance)
		if errors.Is(err, models.ErrAccountExists) {
			slog.Info("Account already exists, skipping", "owner", a.Owner)
			continue
		}
		if err != nil {
			return opened, fmt.Errorf("opening account %s: %w", a.Owner, err)
		}
		opened++
	}
	return opened, nil
}
