// Package config loads runtime settings from the environment and seed files
// from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds the server and ledger settings.
type Config struct {
	DBPath           string
	Port             int
	LogLevel         string
	LogFormat        string
	StrictAllocation bool
}

// Load reads an optional .env file and then the process environment.
// Values already set in the environment win over the .env file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		// Not fatal: production relies on real environment variables.
		slog.Debug("No .env file loaded", "error", err)
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("parsing PORT: %w", err)
	}

	strict, err := strconv.ParseBool(getEnv("STRICT_ALLOCATION", "false"))
	if err != nil {
		return nil, fmt.Errorf("parsing STRICT_ALLOCATION: %w", err)
	}

	return &Config{
		DBPath:           getEnv("DB_PATH", "./data/splitwallet.db"),
		Port:             port,
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "text")),
		StrictAllocation: strict,
	}, nil
}

// Addr returns the listen address for the configured port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Seed lists accounts to open with their opening balances.
type Seed struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

// SeedAccount is one entry of a seed file.
type SeedAccount struct {
	Owner   string          `yaml:"owner"`
	Balance decimal.Decimal `yaml:"balance"`
}

// LoadSeed reads a YAML seed file such as:
//
//	accounts:
//	  - owner: alice
//	    balance: "100.00"
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	for i, a := range seed.Accounts {
		if a.Owner == "" {
			return nil, fmt.Errorf("seed account %d: owner is required", i)
		}
	}
	return &seed, nil
}
