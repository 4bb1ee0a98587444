package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitwallet/internal/models"
	"github.com/mmynk/splitwallet/internal/storage"
)

// CreateExpense persists a new expense to the database.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	// Generate IDs if not set
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	var description any = nil
	if expense.Description != "" {
		description = expense.Description
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO expenses (id, payer, title, description, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.Payer, expense.Title, description,
		expense.Amount.StringFixed(2), expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	return nil
}

// GetExpense retrieves an expense by ID.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense := &models.Expense{}
	var description sql.NullString

	err := s.q.QueryRowContext(ctx,
		`SELECT id, payer, title, description, amount, created_at
		 FROM expenses WHERE id = ?`,
		expenseID,
	).Scan(&expense.ID, &expense.Payer, &expense.Title, &description, &expense.Amount, &expense.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %w: %s", models.ErrNotFound, expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if description.Valid {
		expense.Description = description.String
	}

	return expense, nil
}

// CreateAllocation persists an allocation and its ordered beneficiaries.
func (s *SQLiteStore) CreateAllocation(ctx context.Context, allocation *models.Allocation) error {
	if allocation.ID == "" {
		allocation.ID = uuid.New().String()
	}
	if allocation.CreatedAt == 0 {
		allocation.CreatedAt = time.Now().Unix()
	}

	return s.WithTx(ctx, func(tx storage.Store) error {
		q := tx.(*SQLiteStore).q

		_, err := q.ExecContext(ctx,
			"INSERT INTO allocations (id, expense_id, strategy, created_at) VALUES (?, ?, ?, ?)",
			allocation.ID, allocation.ExpenseID, allocation.Strategy.String(), allocation.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}

		// Insert beneficiaries with their raw values by position
		for i, beneficiary := range allocation.Beneficiaries {
			var value any
			if i < len(allocation.Values) {
				value = allocation.Values[i]
			}
			_, err = q.ExecContext(ctx,
				"INSERT INTO allocation_beneficiaries (allocation_id, position, beneficiary, value) VALUES (?, ?, ?, ?)",
				allocation.ID, i, beneficiary, value,
			)
			if err != nil {
				return fmt.Errorf("failed to insert beneficiary: %w", err)
			}
		}

		return nil
	})
}

// GetAllocation retrieves an allocation by ID, including its beneficiaries.
func (s *SQLiteStore) GetAllocation(ctx context.Context, allocationID string) (*models.Allocation, error) {
	allocation := &models.Allocation{}
	var strategy string

	err := s.q.QueryRowContext(ctx,
		"SELECT id, expense_id, strategy, created_at FROM allocations WHERE id = ?",
		allocationID,
	).Scan(&allocation.ID, &allocation.ExpenseID, &strategy, &allocation.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("allocation %w: %s", models.ErrNotFound, allocationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get allocation: %w", err)
	}

	if allocation.Strategy, err = models.ParseStrategy(strategy); err != nil {
		return nil, fmt.Errorf("stored allocation %s: %w", allocationID, err)
	}

	if err := s.loadBeneficiaries(ctx, allocation); err != nil {
		return nil, err
	}

	return allocation, nil
}

// ListAllocations returns every allocation, oldest first.
func (s *SQLiteStore) ListAllocations(ctx context.Context) ([]*models.Allocation, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT id FROM allocations ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan allocation id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}

	allocations := make([]*models.Allocation, 0, len(ids))
	for _, id := range ids {
		allocation, err := s.GetAllocation(ctx, id)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, allocation)
	}

	return allocations, nil
}

func (s *SQLiteStore) loadBeneficiaries(ctx context.Context, allocation *models.Allocation) error {
	rows, err := s.q.QueryContext(ctx,
		"SELECT beneficiary, value FROM allocation_beneficiaries WHERE allocation_id = ? ORDER BY position",
		allocation.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get beneficiaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var beneficiary string
		var value sql.NullString
		if err := rows.Scan(&beneficiary, &value); err != nil {
			return fmt.Errorf("failed to scan beneficiary: %w", err)
		}
		allocation.Beneficiaries = append(allocation.Beneficiaries, beneficiary)
		if value.Valid {
			allocation.Values = append(allocation.Values, value.String)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate beneficiaries: %w", err)
	}

	return nil
}
