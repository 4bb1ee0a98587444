// Package commands implements the splitwallet CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitwallet/internal/config"
	"github.com/mmynk/splitwallet/internal/storage/sqlite"
	"github.com/mmynk/splitwallet/pkg/logging"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "splitwallet",
		Short: "Shared-expense wallets with pairwise settlement",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before the environment")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		logging.Setup(cfg.LogLevel, cfg.LogFormat)
		return cfg, nil
	}

	rootCmd.AddCommand(newServeCommand(loadConfig))
	rootCmd.AddCommand(newSeedCommand(loadConfig))
	rootCmd.AddCommand(newBalanceCommand(loadConfig))

	return rootCmd
}

type configLoader func() (*config.Config, error)

func openStore(cfg *config.Config) (*sqlite.SQLiteStore, error) {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.DBPath, err)
	}
	return store, nil
}
