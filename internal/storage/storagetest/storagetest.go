// Package storagetest holds behaviour tests every storage.Store implementation must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitwallet/internal/models"
	"github.com/mmynk/splitwallet/internal/storage"
)

// Run exercises newStore against the storage.Store contract.
// newStore must return an empty store; Run closes it.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	t.Run("accounts", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.CreateAccount(ctx, &models.Account{Owner: "Bob", Balance: decimal.RequireFromString("50")}))
		require.NoError(t, store.CreateAccount(ctx, &models.Account{Owner: "Alice", Balance: decimal.RequireFromString("100.25")}))

		err := store.CreateAccount(ctx, &models.Account{Owner: "Alice"})
		assert.ErrorIs(t, err, models.ErrAccountExists)

		alice, err := store.GetAccount(ctx, "Alice")
		require.NoError(t, err)
		assert.True(t, alice.Balance.Equal(decimal.RequireFromString("100.25")), "balance = %s", alice.Balance)
		assert.NotZero(t, alice.CreatedAt)

		require.NoError(t, store.SetBalance(ctx, "Alice", decimal.RequireFromString("60")))
		alice, err = store.GetAccount(ctx, "Alice")
		require.NoError(t, err)
		assert.True(t, alice.Balance.Equal(decimal.RequireFromString("60")))

		_, err = store.GetAccount(ctx, "Nobody")
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.ErrorIs(t, store.SetBalance(ctx, "Nobody", decimal.Zero), models.ErrNotFound)

		accounts, err := store.ListAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "Alice", accounts[0].Owner)
		assert.Equal(t, "Bob", accounts[1].Owner)
	})

	t.Run("expenses and allocations", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.CreateAccount(ctx, &models.Account{Owner: "Alice"}))

		expense := &models.Expense{
			Payer:       "Alice",
			Title:       "Dinner",
			Description: "Friday",
			Amount:      decimal.RequireFromString("90"),
		}
		require.NoError(t, store.CreateExpense(ctx, expense))
		assert.NotEmpty(t, expense.ID)
		assert.NotZero(t, expense.CreatedAt)

		got, err := store.GetExpense(ctx, expense.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.Payer)
		assert.Equal(t, "Dinner", got.Title)
		assert.Equal(t, "Friday", got.Description)
		assert.True(t, got.Amount.Equal(expense.Amount))

		_, err = store.GetExpense(ctx, "missing")
		assert.ErrorIs(t, err, models.ErrNotFound)

		exact := &models.Allocation{
			ExpenseID:     expense.ID,
			Strategy:      models.StrategyExact,
			Beneficiaries: []string{"B2", "B1"},
			Values:        []string{"60", "30"},
		}
		require.NoError(t, store.CreateAllocation(ctx, exact))
		equal := &models.Allocation{
			ExpenseID:     expense.ID,
			Strategy:      models.StrategyEqual,
			Beneficiaries: []string{"Charlie"},
		}
		require.NoError(t, store.CreateAllocation(ctx, equal))

		gotAlloc, err := store.GetAllocation(ctx, exact.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StrategyExact, gotAlloc.Strategy)
		assert.Equal(t, []string{"B2", "B1"}, gotAlloc.Beneficiaries)
		assert.Equal(t, []string{"60", "30"}, gotAlloc.Values)

		gotAlloc, err = store.GetAllocation(ctx, equal.ID)
		require.NoError(t, err)
		assert.Empty(t, gotAlloc.Values)

		_, err = store.GetAllocation(ctx, "missing")
		assert.ErrorIs(t, err, models.ErrNotFound)

		all, err := store.ListAllocations(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, exact.ID, all[0].ID)
		assert.Equal(t, equal.ID, all[1].ID)
	})

	t.Run("transfers", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.CreateAccount(ctx, &models.Account{Owner: "Alice"}))
		expense := &models.Expense{Payer: "Alice", Title: "Taxi", Amount: decimal.RequireFromString("40")}
		require.NoError(t, store.CreateExpense(ctx, expense))

		settled, err := store.IsSettled(ctx, expense.ID, "Bob")
		require.NoError(t, err)
		assert.False(t, settled)

		transfer := &models.Transfer{ExpenseID: expense.ID, From: "Bob", To: "Alice", Amount: decimal.RequireFromString("20")}
		require.NoError(t, store.MarkSettled(ctx, transfer))
		assert.NotEmpty(t, transfer.ID)

		settled, err = store.IsSettled(ctx, expense.ID, "Bob")
		require.NoError(t, err)
		assert.True(t, settled)

		err = store.MarkSettled(ctx, &models.Transfer{ExpenseID: expense.ID, From: "Bob", To: "Alice", Amount: decimal.RequireFromString("20")})
		assert.Error(t, err, "a pair settles once")

		transfers, err := store.ListTransfers(ctx, expense.ID)
		require.NoError(t, err)
		require.Len(t, transfers, 1)
		assert.Equal(t, "Bob", transfers[0].From)
		assert.Equal(t, "Alice", transfers[0].To)
		assert.True(t, transfers[0].Amount.Equal(decimal.RequireFromString("20")))
	})

	t.Run("WithTx commits on success", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.CreateAccount(ctx, &models.Account{Owner: "Alice", Balance: decimal.RequireFromString("10")}))
		require.NoError(t, store.CreateAccount(ctx, &models.Account{Owner: "Bob", Balance: decimal.RequireFromString("10")}))

		err := store.WithTx(ctx, func(tx storage.Store) error {
			if err := tx.SetBalance(ctx, "Alice", decimal.RequireFromString("5")); err != nil {
				return err
			}
			// Reads inside the transaction see its own writes.
			alice, err := tx.GetAccount(ctx, "Alice")
			if err != nil {
				return err
			}
			if !alice.Balance.Equal(decimal.RequireFromString("5")) {
				return errors.New("write not visible inside transaction")
			}
			return tx.SetBalance(ctx, "Bob", decimal.RequireFromString("15"))
		})
		require.NoError(t, err)

		assertBalance(t, store, "Alice", "5")
		assertBalance(t, store, "Bob", "15")
	})

	t.Run("WithTx discards on error", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.CreateAccount(ctx, &models.Account{Owner: "Alice", Balance: decimal.RequireFromString("10")}))

		boom := errors.New("boom")
		err := store.WithTx(ctx, func(tx storage.Store) error {
			if err := tx.SetBalance(ctx, "Alice", decimal.RequireFromString("0")); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assertBalance(t, store, "Alice", "10")
	})
}

func assertBalance(t *testing.T, store storage.Store, owner, want string) {
	t.Helper()
	account, err := store.GetAccount(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString(want)),
		"%s balance = %s, want %s", owner, account.Balance, want)
}
