package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitwallet/internal/models"
)

// MarkSettled persists a transfer for an (expense, beneficiary) pair.
func (s *SQLiteStore) MarkSettled(ctx context.Context, transfer *models.Transfer) error {
	// Generate ID if not set
	if transfer.ID == "" {
		transfer.ID = uuid.New().String()
	}
	if transfer.CreatedAt == 0 {
		transfer.CreatedAt = time.Now().Unix()
	}

	settled, err := s.IsSettled(ctx, transfer.ExpenseID, transfer.From)
	if err != nil {
		return err
	}
	if settled {
		return fmt.Errorf("pair already settled: %s/%s", transfer.ExpenseID, transfer.From)
	}

	_, err = s.q.ExecContext(ctx,
		`INSERT INTO transfers (id, expense_id, from_owner, to_owner, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		transfer.ID, transfer.ExpenseID, transfer.From, transfer.To,
		transfer.Amount.StringFixed(2), transfer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	return nil
}

// IsSettled reports whether beneficiary has a transfer recorded for the expense.
func (s *SQLiteStore) IsSettled(ctx context.Context, expenseID, beneficiary string) (bool, error) {
	var exists int
	err := s.q.QueryRowContext(ctx,
		"SELECT 1 FROM transfers WHERE expense_id = ? AND from_owner = ?",
		expenseID, beneficiary,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check transfer existence: %w", err)
	}

	return true, nil
}

// ListTransfers retrieves all transfers for an expense.
func (s *SQLiteStore) ListTransfers(ctx context.Context, expenseID string) ([]*models.Transfer, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, expense_id, from_owner, to_owner, amount, created_at
		 FROM transfers WHERE expense_id = ? ORDER BY created_at, rowid`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers by expense: %w", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		transfer := &models.Transfer{}
		if err := rows.Scan(&transfer.ID, &transfer.ExpenseID, &transfer.From, &transfer.To,
			&transfer.Amount, &transfer.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, transfer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}

	return transfers, nil
}
