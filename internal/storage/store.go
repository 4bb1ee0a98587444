// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwallet/internal/models"
)

// AccountStore persists participant balances.
type AccountStore interface {
	// CreateAccount persists a new account.
	// Returns models.ErrAccountExists if the owner already has one.
	CreateAccount(ctx context.Context, account *models.Account) error

	// GetAccount retrieves an account by owner.
	// Returns models.ErrNotFound if the owner has no account.
	GetAccount(ctx context.Context, owner string) (*models.Account, error)

	// SetBalance overwrites the owner's balance.
	// Returns models.ErrNotFound if the owner has no account.
	SetBalance(ctx context.Context, owner string, balance decimal.Decimal) error

	// ListAccounts returns every account ordered by owner.
	ListAccounts(ctx context.Context) ([]*models.Account, error)
}

// ExpenseStore persists expenses and their allocations.
// There is no update for expenses: an expense is immutable once recorded.
type ExpenseStore interface {
	// CreateExpense persists a new expense.
	// The expense.ID and CreatedAt fields will be populated by the store if empty.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense by ID.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// CreateAllocation persists a new allocation for an existing expense.
	CreateAllocation(ctx context.Context, allocation *models.Allocation) error

	// GetAllocation retrieves an allocation by ID.
	GetAllocation(ctx context.Context, allocationID string) (*models.Allocation, error)

	// ListAllocations returns every allocation, oldest first.
	ListAllocations(ctx context.Context) ([]*models.Allocation, error)
}

// SettlementStore records which (expense, beneficiary) pairs have been paid.
type SettlementStore interface {
	// MarkSettled records a completed transfer. A pair can be settled once.
	MarkSettled(ctx context.Context, transfer *models.Transfer) error

	// IsSettled reports whether beneficiary has already paid its share of the expense.
	IsSettled(ctx context.Context, expenseID, beneficiary string) (bool, error)

	// ListTransfers returns the transfers applied for an expense, oldest first.
	ListTransfers(ctx context.Context, expenseID string) ([]*models.Transfer, error)
}

// Store defines the full storage surface the ledger and services depend on.
// This abstraction allows swapping storage backends (SQLite, in-memory, etc.)
// without changing the ledger.
type Store interface {
	AccountStore
	ExpenseStore
	SettlementStore

	// WithTx runs fn against a transactional view of the store.
	// Every write made through that view is applied atomically when fn
	// returns nil, and discarded otherwise.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Close releases any resources held by the store.
	Close() error
}
