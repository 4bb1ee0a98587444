// Package ledger moves funds between participant accounts.
//
// It records expenses by debiting the payer and settles computed shares by
// moving each beneficiary's share to the payer. Every balance read-modify-write
// happens under that account's lock and inside one store transaction, so no
// balance is ever observed negative and no debit is observed without its
// matching credit.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwallet/internal/models"
	"github.com/mmynk/splitwallet/internal/storage"
)

// Ledger applies expenses and settlements to account balances.
type Ledger struct {
	store   storage.Store
	locks   *lockset
	metrics *Metrics
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMetrics reports ledger activity to m.
func WithMetrics(m *Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// New creates a Ledger backed by store.
func New(store storage.Store, opts ...Option) *Ledger {
	l := &Ledger{store: store, locks: newLockset()}
	for _, opt := range opts {
		opt(l)
	}
	if l.metrics == nil {
		l.metrics = NewMetrics(nil)
	}
	return l
}

// OpenAccount creates owner's account with an opening balance.
func (l *Ledger) OpenAccount(ctx context.Context, owner string, opening decimal.Decimal) (*models.Account, error) {
	if owner == "" {
		return nil, models.NewValidationError("owner", "must not be empty")
	}
	if err := validateMoney("opening balance", opening, true); err != nil {
		return nil, err
	}

	unlock := l.locks.lock(owner)
	defer unlock()

	account := &models.Account{Owner: owner, Balance: opening.Round(2)}
	if err := l.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	slog.Info("Account opened", "owner", owner, "balance", account.Balance.StringFixed(2))
	return account, nil
}

// Deposit credits amount to owner's account and returns the new balance.
func (l *Ledger) Deposit(ctx context.Context, owner string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := validateMoney("amount", amount, false); err != nil {
		return decimal.Zero, err
	}

	unlock := l.locks.lock(owner)
	defer unlock()

	var balance decimal.Decimal
	err := l.store.WithTx(ctx, func(tx storage.Store) error {
		account, err := tx.GetAccount(ctx, owner)
		if err != nil {
			return err
		}
		balance = account.Balance.Add(amount)
		return tx.SetBalance(ctx, owner, balance)
	})
	if err != nil {
		return decimal.Zero, err
	}

	slog.Info("Deposit applied", "owner", owner, "amount", amount.StringFixed(2), "balance", balance.StringFixed(2))
	return balance, nil
}

// Balance returns owner's current balance.
func (l *Ledger) Balance(ctx context.Context, owner string) (decimal.Decimal, error) {
	unlock := l.locks.lock(owner)
	defer unlock()

	account, err := l.store.GetAccount(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// RecordExpense debits the payer by the expense amount and commits the expense.
//
// The payer must already hold the funds. If the balance is short, a
// *models.InsufficientFundsError is returned and nothing is written.
// Payer, Amount, Title and Description are read from draft; the store assigns
// the ID and creation time.
func (l *Ledger) RecordExpense(ctx context.Context, draft models.Expense) (*models.Expense, error) {
	if draft.Payer == "" {
		l.metrics.ExpensesRejected.WithLabelValues(reasonValidation).Inc()
		return nil, models.NewValidationError("payer", "must not be empty")
	}
	if err := validateMoney("amount", draft.Amount, false); err != nil {
		l.metrics.ExpensesRejected.WithLabelValues(reasonValidation).Inc()
		return nil, err
	}

	expense := &models.Expense{
		Payer:       draft.Payer,
		Title:       draft.Title,
		Description: draft.Description,
		Amount:      draft.Amount.Round(2),
	}
	if expense.Title == "" {
		expense.Title = generateTitle(expense.Payer, expense.Amount, time.Now())
	}

	unlock := l.locks.lock(expense.Payer)
	defer unlock()

	err := l.store.WithTx(ctx, func(tx storage.Store) error {
		account, err := tx.GetAccount(ctx, expense.Payer)
		if err != nil {
			return err
		}
		if account.Balance.LessThan(expense.Amount) {
			return &models.InsufficientFundsError{
				Owner:    expense.Payer,
				Balance:  account.Balance,
				Required: expense.Amount,
			}
		}
		if err := tx.SetBalance(ctx, expense.Payer, account.Balance.Sub(expense.Amount)); err != nil {
			return err
		}
		return tx.CreateExpense(ctx, expense)
	})
	if err != nil {
		if errors.Is(err, models.ErrInsufficientFunds) {
			l.metrics.ExpensesRejected.WithLabelValues(reasonInsufficientFunds).Inc()
			slog.Warn("Expense rejected", "payer", expense.Payer, "amount", expense.Amount.StringFixed(2), "error", err)
		}
		return nil, err
	}

	l.metrics.ExpensesRecorded.Inc()
	slog.Info("Expense recorded",
		"expense_id", expense.ID,
		"payer", expense.Payer,
		"amount", expense.Amount.StringFixed(2),
	)
	return expense, nil
}

// Settle moves each beneficiary's share to the payer of a recorded expense.
//
// Pairs are evaluated independently in the order of splits. A beneficiary
// that cannot cover its share is reported Unpaid and no balance changes for
// that pair. A pair settled by an earlier call is reported Paid again without
// a second debit, so Settle can be re-run after balances change.
//
// Shortfalls are never errors. The error is reserved for invalid splits, an
// expense that was never recorded, a beneficiary without an account, and
// store failures. Accounts are checked before any pair is evaluated, so a
// missing account changes nothing. An error always comes with a nil report.
func (l *Ledger) Settle(ctx context.Context, expense *models.Expense, splits []models.Split) (*models.SettlementReport, error) {
	if expense == nil || expense.ID == "" {
		return nil, models.NewValidationError("expense", "must reference a recorded expense")
	}

	// The payer's debit commits before the expense row is visible, so a
	// readable expense means it is safe to credit the payer.
	recorded, err := l.store.GetExpense(ctx, expense.ID)
	if err != nil {
		return nil, fmt.Errorf("expense must be recorded before settling: %w", err)
	}

	if err := validateSplits(recorded.Payer, splits); err != nil {
		return nil, err
	}

	// Accounts are never removed, so one that exists now still exists when
	// its pair is settled.
	for _, split := range splits {
		if _, err := l.store.GetAccount(ctx, split.Beneficiary); err != nil {
			return nil, fmt.Errorf("cannot settle %s -> %s: %w", split.Beneficiary, recorded.Payer, err)
		}
	}

	report := models.NewSettlementReport(recorded.ID, recorded.Payer)
	for _, split := range splits {
		status, err := l.settlePair(ctx, recorded, split)
		if err != nil {
			return nil, fmt.Errorf("failed to settle %s -> %s: %w", split.Beneficiary, recorded.Payer, err)
		}
		report.Record(split.Beneficiary, split.Amount, status)
	}

	slog.Info("Settlement complete",
		"expense_id", recorded.ID,
		"payer", recorded.Payer,
		"paid", len(report.Paid()),
		"unpaid", len(report.Unpaid()),
	)
	return report, nil
}

// settlePair applies one beneficiary -> payer transfer under both account locks.
func (l *Ledger) settlePair(ctx context.Context, expense *models.Expense, split models.Split) (models.Status, error) {
	unlock := l.locks.lock(split.Beneficiary, expense.Payer)
	defer unlock()

	outcome := outcomeUnpaid
	err := l.store.WithTx(ctx, func(tx storage.Store) error {
		settled, err := tx.IsSettled(ctx, expense.ID, split.Beneficiary)
		if err != nil {
			return err
		}
		if settled {
			outcome = outcomeAlreadyPaid
			return nil
		}

		from, err := tx.GetAccount(ctx, split.Beneficiary)
		if err != nil {
			return err
		}
		if from.Balance.LessThan(split.Amount) {
			outcome = outcomeUnpaid
			return nil
		}
		to, err := tx.GetAccount(ctx, expense.Payer)
		if err != nil {
			return err
		}

		if err := tx.SetBalance(ctx, split.Beneficiary, from.Balance.Sub(split.Amount)); err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, expense.Payer, to.Balance.Add(split.Amount)); err != nil {
			return err
		}
		if err := tx.MarkSettled(ctx, &models.Transfer{
			ExpenseID: expense.ID,
			From:      split.Beneficiary,
			To:        expense.Payer,
			Amount:    split.Amount,
		}); err != nil {
			return err
		}
		outcome = outcomePaid
		return nil
	})
	if err != nil {
		return models.StatusComputed, err
	}

	l.metrics.PairsSettled.WithLabelValues(outcome).Inc()
	switch outcome {
	case outcomePaid:
		l.metrics.AmountTransferred.Add(split.Amount.InexactFloat64())
		slog.Debug("Pair paid", "expense_id", expense.ID, "from", split.Beneficiary, "to", expense.Payer, "amount", split.Amount.StringFixed(2))
		return models.StatusPaid, nil
	case outcomeAlreadyPaid:
		return models.StatusPaid, nil
	default:
		slog.Debug("Pair unpaid", "expense_id", expense.ID, "from", split.Beneficiary, "to", expense.Payer, "amount", split.Amount.StringFixed(2))
		return models.StatusUnpaid, nil
	}
}

// Transfers returns the audit trail of settled pairs for an expense.
func (l *Ledger) Transfers(ctx context.Context, expenseID string) ([]*models.Transfer, error) {
	return l.store.ListTransfers(ctx, expenseID)
}

func validateSplits(payer string, splits []models.Split) error {
	seen := make(map[string]bool, len(splits))
	for _, s := range splits {
		switch {
		case s.Beneficiary == "":
			return models.NewValidationError("splits", "beneficiary must not be empty")
		case s.Beneficiary == payer:
			return models.NewValidationError("splits", fmt.Sprintf("payer %s cannot owe itself", payer))
		case seen[s.Beneficiary]:
			return models.NewValidationError("splits", fmt.Sprintf("duplicate beneficiary %s", s.Beneficiary))
		}
		if err := validateMoney("share for "+s.Beneficiary, s.Amount, false); err != nil {
			return err
		}
		seen[s.Beneficiary] = true
	}
	return nil
}

// validateMoney checks that amount is positive (or zero when allowed) and
// carries at most two fractional digits.
func validateMoney(field string, amount decimal.Decimal, allowZero bool) error {
	if amount.IsNegative() || (!allowZero && amount.IsZero()) {
		return models.NewValidationError(field, fmt.Sprintf("must be positive, got %s", amount.String()))
	}
	if !amount.Equal(amount.Round(2)) {
		return models.NewValidationError(field, fmt.Sprintf("%s has more than two decimal places", amount.String()))
	}
	return nil
}

// generateTitle creates a title for expenses recorded without one.
func generateTitle(payer string, amount decimal.Decimal, at time.Time) string {
	return fmt.Sprintf("%s paid %s on %s", payer, amount.StringFixed(2), at.Format("Jan 2, 2006"))
}
