package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwallet/internal/models"
	"github.com/mmynk/splitwallet/internal/storage"
	"github.com/mmynk/splitwallet/internal/storage/storagetest"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestSQLiteStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return newTestStore(t)
	})
}

func TestSQLiteStore(t *testing.T) {
	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "splitwallet-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "nested", "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	ctx := context.Background()

	t.Run("balances keep two decimals", func(t *testing.T) {
		if err := store.CreateAccount(ctx, &models.Account{Owner: "Alice", Balance: decimal.RequireFromString("100")}); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		if err := store.SetBalance(ctx, "Alice", decimal.RequireFromString("33.3")); err != nil {
			t.Fatalf("SetBalance failed: %v", err)
		}

		var raw string
		if err := store.db.QueryRowContext(ctx, "SELECT balance FROM accounts WHERE owner = ?", "Alice").Scan(&raw); err != nil {
			t.Fatalf("raw select failed: %v", err)
		}
		if raw != "33.30" {
			t.Errorf("stored balance = %q, want %q", raw, "33.30")
		}
	})

	t.Run("allocation requires an existing expense", func(t *testing.T) {
		err := store.CreateAllocation(ctx, &models.Allocation{
			ExpenseID:     "nonexistent-id",
			Strategy:      models.StrategyEqual,
			Beneficiaries: []string{"Bob"},
		})
		if err == nil {
			t.Error("Expected foreign key error for nonexistent expense, got nil")
		}
	})

	t.Run("data survives reopen", func(t *testing.T) {
		expense := &models.Expense{Payer: "Alice", Title: "Rent", Amount: decimal.RequireFromString("12.5")}
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		reopened, err := New(dbPath)
		if err != nil {
			t.Fatalf("Failed to reopen store: %v", err)
		}
		defer reopened.Close()

		got, err := reopened.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if !got.Amount.Equal(decimal.RequireFromString("12.50")) {
			t.Errorf("Amount = %s, want 12.50", got.Amount)
		}
		if got.Description != "" {
			t.Errorf("Description = %q, want empty", got.Description)
		}

		alice, err := reopened.GetAccount(ctx, "Alice")
		if err != nil {
			t.Fatalf("GetAccount failed: %v", err)
		}
		if !alice.Balance.Equal(decimal.RequireFromString("33.30")) {
			t.Errorf("Balance = %s, want 33.30", alice.Balance)
		}
	})
}
