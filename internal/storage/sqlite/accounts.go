package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwallet/internal/models"
)

// CreateAccount inserts a new account.
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *models.Account) error {
	var exists int
	err := s.q.QueryRowContext(ctx, "SELECT 1 FROM accounts WHERE owner = ?", account.Owner).Scan(&exists)
	if err == nil {
		return fmt.Errorf("%w: %s", models.ErrAccountExists, account.Owner)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check account existence: %w", err)
	}

	if account.CreatedAt == 0 {
		account.CreatedAt = time.Now().Unix()
	}

	_, err = s.q.ExecContext(ctx,
		"INSERT INTO accounts (owner, balance, created_at) VALUES (?, ?, ?)",
		account.Owner, account.Balance.StringFixed(2), account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccount retrieves an account by owner.
func (s *SQLiteStore) GetAccount(ctx context.Context, owner string) (*models.Account, error) {
	account := &models.Account{}
	err := s.q.QueryRowContext(ctx,
		"SELECT owner, balance, created_at FROM accounts WHERE owner = ?",
		owner,
	).Scan(&account.Owner, &account.Balance, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %w: %s", models.ErrNotFound, owner)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// SetBalance overwrites the owner's balance.
func (s *SQLiteStore) SetBalance(ctx context.Context, owner string, balance decimal.Decimal) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE accounts SET balance = ? WHERE owner = ?",
		balance.StringFixed(2), owner,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %w: %s", models.ErrNotFound, owner)
	}

	return nil
}

// ListAccounts returns every account ordered by owner.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT owner, balance, created_at FROM accounts ORDER BY owner")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account := &models.Account{}
		if err := rows.Scan(&account.Owner, &account.Balance, &account.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}
