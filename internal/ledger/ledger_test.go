package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitwallet/internal/calculator"
	"github.com/mmynk/splitwallet/internal/models"
	"github.com/mmynk/splitwallet/internal/storage"
	"github.com/mmynk/splitwallet/internal/storage/memory"
	"github.com/mmynk/splitwallet/internal/storage/sqlite"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestLedger opens one account per owner/balance pair on a fresh in-memory store.
func newTestLedger(t *testing.T, balances map[string]string) (*Ledger, *Metrics) {
	t.Helper()
	return newLedgerOn(t, memory.New(), balances)
}

func newLedgerOn(t *testing.T, store storage.Store, balances map[string]string) (*Ledger, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	l := New(store, WithMetrics(metrics))
	for owner, balance := range balances {
		_, err := l.OpenAccount(context.Background(), owner, dec(balance))
		require.NoError(t, err)
	}
	return l, metrics
}

func requireBalance(t *testing.T, l *Ledger, owner, want string) {
	t.Helper()
	got, err := l.Balance(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, got.Equal(dec(want)), "%s balance = %s, want %s", owner, got.StringFixed(2), want)
}

func TestRecordExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("debits payer", func(t *testing.T) {
		l, metrics := newTestLedger(t, map[string]string{"Alice": "100"})

		expense, err := l.RecordExpense(ctx, models.Expense{Payer: "Alice", Amount: dec("40"), Title: "Groceries"})
		require.NoError(t, err)
		assert.NotEmpty(t, expense.ID)
		assert.Equal(t, "Groceries", expense.Title)
		requireBalance(t, l, "Alice", "60")
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ExpensesRecorded))
	})

	t.Run("generates a title", func(t *testing.T) {
		l, _ := newTestLedger(t, map[string]string{"Alice": "100"})

		expense, err := l.RecordExpense(ctx, models.Expense{Payer: "Alice", Amount: dec("12.5")})
		require.NoError(t, err)
		assert.Contains(t, expense.Title, "Alice paid 12.50")
	})

	t.Run("whole balance can be spent", func(t *testing.T) {
		l, _ := newTestLedger(t, map[string]string{"Alice": "40"})

		_, err := l.RecordExpense(ctx, models.Expense{Payer: "Alice", Amount: dec("40")})
		require.NoError(t, err)
		requireBalance(t, l, "Alice", "0")
	})

	t.Run("insufficient funds changes nothing", func(t *testing.T) {
		l, metrics := newTestLedger(t, map[string]string{"Alice": "30"})

		expense, err := l.RecordExpense(ctx, models.Expense{Payer: "Alice", Amount: dec("40")})
		assert.Nil(t, expense)

		var insufficient *models.InsufficientFundsError
		require.ErrorAs(t, err, &insufficient)
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
		assert.Equal(t, "Alice", insufficient.Owner)
		assert.True(t, insufficient.Required.Equal(dec("40")))
		requireBalance(t, l, "Alice", "30")
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ExpensesRejected.WithLabelValues(reasonInsufficientFunds)))
		assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ExpensesRecorded))
	})

	t.Run("validation", func(t *testing.T) {
		l, _ := newTestLedger(t, map[string]string{"Alice": "30"})

		for _, draft := range []models.Expense{
			{Payer: "Alice", Amount: dec("0")},
			{Payer: "Alice", Amount: dec("-1")},
			{Payer: "Alice", Amount: dec("1.005")},
			{Payer: "", Amount: dec("1")},
		} {
			_, err := l.RecordExpense(ctx, draft)
			assert.ErrorIs(t, err, models.ErrValidation, "draft %+v", draft)
		}
		requireBalance(t, l, "Alice", "30")
	})

	t.Run("unknown payer", func(t *testing.T) {
		l, _ := newTestLedger(t, nil)

		_, err := l.RecordExpense(ctx, models.Expense{Payer: "Ghost", Amount: dec("1")})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestSettle_EqualScenario(t *testing.T) {
	ctx := context.Background()
	l, metrics := newTestLedger(t, map[string]string{"Payer": "100", "Ben": "50"})

	expense, err := l.RecordExpense(ctx, models.Expense{Payer: "Payer", Amount: dec("40")})
	require.NoError(t, err)
	requireBalance(t, l, "Payer", "60")

	splits, err := calculator.ComputeShares(expense.Amount, expense.Payer, []string{"Ben"}, models.StrategyEqual, nil)
	require.NoError(t, err)
	require.True(t, splits[0].Amount.Equal(dec("20")))

	report, err := l.Settle(ctx, expense, splits)
	require.NoError(t, err)

	requireBalance(t, l, "Ben", "30")
	requireBalance(t, l, "Payer", "80")

	owes, ok := report.Entry("Ben", "Payer")
	require.True(t, ok)
	assert.Equal(t, models.StatusPaid, owes.Status)
	assert.Equal(t, "Ben paid Payer: 20.00", owes.Summary)

	mirror, ok := report.Entry("Payer", "Ben")
	require.True(t, ok)
	assert.Equal(t, models.StatusPaid, mirror.Status)
	assert.Equal(t, "Ben paid: 20.00", mirror.Summary)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PairsSettled.WithLabelValues(outcomePaid)))
	assert.Equal(t, 20.0, testutil.ToFloat64(metrics.AmountTransferred))

	transfers, err := l.Transfers(ctx, expense.ID)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "Ben", transfers[0].From)
}

func TestSettle_PartialIndependence(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, map[string]string{"Payer": "100", "B1": "10", "B2": "100"})

	expense, err := l.RecordExpense(ctx, models.Expense{Payer: "Payer", Amount: dec("90")})
	require.NoError(t, err)

	splits, err := calculator.ComputeShares(expense.Amount, expense.Payer, []string{"B1", "B2"}, models.StrategyExact, []string{"30", "60"})
	require.NoError(t, err)

	report, err := l.Settle(ctx, expense, splits)
	require.NoError(t, err)

	pairs := report.Pairs()
	require.Len(t, pairs, 2)
	assert.Equal(t, "B1", pairs[0].From)
	assert.Equal(t, models.StatusUnpaid, pairs[0].Status)
	assert.Equal(t, "B1 owes Payer: 30.00", pairs[0].Summary)
	assert.Equal(t, "B2", pairs[1].From)
	assert.Equal(t, models.StatusPaid, pairs[1].Status)

	mirror, _ := report.Entry("Payer", "B1")
	assert.Equal(t, "B1 owes: 30.00", mirror.Summary)

	requireBalance(t, l, "B1", "10")
	requireBalance(t, l, "B2", "40")
	requireBalance(t, l, "Payer", "70") // 100 - 90 + 60

	assert.Len(t, report.Paid(), 1)
	assert.Len(t, report.Unpaid(), 1)
}

func TestSettle_Idempotent(t *testing.T) {
	ctx := context.Background()
	l, metrics := newTestLedger(t, map[string]string{"Payer": "100", "B1": "10", "B2": "100"})

	expense, err := l.RecordExpense(ctx, models.Expense{Payer: "Payer", Amount: dec("90")})
	require.NoError(t, err)
	splits, err := calculator.ComputeShares(expense.Amount, expense.Payer, []string{"B1", "B2"}, models.StrategyExact, []string{"30", "60"})
	require.NoError(t, err)

	first, err := l.Settle(ctx, expense, splits)
	require.NoError(t, err)
	second, err := l.Settle(ctx, expense, splits)
	require.NoError(t, err)

	assert.Equal(t, first.Pairs(), second.Pairs())
	requireBalance(t, l, "B2", "40")
	requireBalance(t, l, "Payer", "70")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PairsSettled.WithLabelValues(outcomeAlreadyPaid)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.PairsSettled.WithLabelValues(outcomeUnpaid)))

	// B1 tops up: the unpaid pair now settles, the paid pair is untouched.
	_, err = l.Deposit(ctx, "B1", dec("25"))
	require.NoError(t, err)

	third, err := l.Settle(ctx, expense, splits)
	require.NoError(t, err)
	assert.Empty(t, third.Unpaid())
	requireBalance(t, l, "B1", "5")
	requireBalance(t, l, "B2", "40")
	requireBalance(t, l, "Payer", "100")

	transfers, err := l.Transfers(ctx, expense.ID)
	require.NoError(t, err)
	assert.Len(t, transfers, 2)
}

func TestSettle_Errors(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, map[string]string{"Payer": "100", "Ben": "100"})

	t.Run("unrecorded expense", func(t *testing.T) {
		_, err := l.Settle(ctx, &models.Expense{ID: "never-recorded", Payer: "Payer", Amount: dec("10")},
			[]models.Split{{Beneficiary: "Ben", Amount: dec("5")}})
		assert.ErrorIs(t, err, models.ErrNotFound)
		requireBalance(t, l, "Ben", "100")
	})

	t.Run("nil expense", func(t *testing.T) {
		_, err := l.Settle(ctx, nil, nil)
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	expense, err := l.RecordExpense(ctx, models.Expense{Payer: "Payer", Amount: dec("10")})
	require.NoError(t, err)

	for name, splits := range map[string][]models.Split{
		"payer owes itself": {{Beneficiary: "Payer", Amount: dec("5")}},
		"zero share":        {{Beneficiary: "Ben", Amount: dec("0")}},
		"sub-cent share":    {{Beneficiary: "Ben", Amount: dec("0.001")}},
		"duplicate":         {{Beneficiary: "Ben", Amount: dec("1")}, {Beneficiary: "Ben", Amount: dec("1")}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := l.Settle(ctx, expense, splits)
			assert.ErrorIs(t, err, models.ErrValidation)
			requireBalance(t, l, "Ben", "100")
		})
	}

	for name, splits := range map[string][]models.Split{
		"missing account listed first": {{Beneficiary: "Ghost", Amount: dec("5")}, {Beneficiary: "Ben", Amount: dec("5")}},
		"missing account listed last":  {{Beneficiary: "Ben", Amount: dec("5")}, {Beneficiary: "Ghost", Amount: dec("5")}},
	} {
		t.Run(name, func(t *testing.T) {
			report, err := l.Settle(ctx, expense, splits)
			assert.ErrorIs(t, err, models.ErrNotFound)
			assert.Nil(t, report)

			requireBalance(t, l, "Ben", "100")
			requireBalance(t, l, "Payer", "90")
			transfers, err := l.Transfers(ctx, expense.ID)
			require.NoError(t, err)
			assert.Empty(t, transfers)
		})
	}
}

func TestOpenAccountAndDeposit(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, nil)

	_, err := l.OpenAccount(ctx, "Alice", dec("0"))
	require.NoError(t, err)
	_, err = l.OpenAccount(ctx, "Alice", dec("5"))
	assert.ErrorIs(t, err, models.ErrAccountExists)
	_, err = l.OpenAccount(ctx, "Bob", dec("-5"))
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = l.OpenAccount(ctx, "", dec("5"))
	assert.ErrorIs(t, err, models.ErrValidation)

	balance, err := l.Deposit(ctx, "Alice", dec("12.34"))
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("12.34")))

	_, err = l.Deposit(ctx, "Alice", dec("0"))
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = l.Deposit(ctx, "Nobody", dec("1"))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSettle_ConcurrentNeverNegative(t *testing.T) {
	ctx := context.Background()
	owners := []string{"A", "B", "C", "D"}
	balances := make(map[string]string, len(owners))
	for _, o := range owners {
		balances[o] = "100"
	}
	l, _ := newTestLedger(t, balances)

	// Every owner records expenses the others try to settle at the same time,
	// so each pair of accounts is locked in both roles concurrently.
	var recorded atomic.Int64
	var wg sync.WaitGroup
	for round := 0; round < 20; round++ {
		for _, payer := range owners {
			wg.Add(1)
			go func(payer string) {
				defer wg.Done()
				expense, err := l.RecordExpense(ctx, models.Expense{Payer: payer, Amount: dec("3")})
				if err != nil {
					if !errors.Is(err, models.ErrInsufficientFunds) {
						t.Errorf("RecordExpense: %v", err)
					}
					return
				}
				recorded.Add(1)

				var beneficiaries []string
				for _, o := range owners {
					if o != payer {
						beneficiaries = append(beneficiaries, o)
					}
				}
				splits, err := calculator.ComputeShares(expense.Amount, payer, beneficiaries, models.StrategyExact, []string{"7", "11", "13"})
				if err != nil {
					t.Errorf("ComputeShares: %v", err)
					return
				}
				if _, err := l.Settle(ctx, expense, splits); err != nil {
					t.Errorf("Settle: %v", err)
				}
			}(payer)
		}
	}
	wg.Wait()

	accounts, err := l.store.ListAccounts(ctx)
	require.NoError(t, err)
	total := decimal.Zero
	for _, a := range accounts {
		assert.False(t, a.Balance.IsNegative(), "%s went negative: %s", a.Owner, a.Balance)
		total = total.Add(a.Balance)
	}

	// Expenses leave the system; settlements only move money between accounts.
	spent := dec("3").Mul(decimal.NewFromInt(recorded.Load()))
	assert.True(t, total.Add(spent).Equal(dec("400")), "total %s + spent %s != 400", total, spent)
}

func TestSettle_ConcurrentSamePair(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, map[string]string{"Payer": "100", "Ben": "25"})

	expense, err := l.RecordExpense(ctx, models.Expense{Payer: "Payer", Amount: dec("40")})
	require.NoError(t, err)
	splits := []models.Split{{Beneficiary: "Ben", Amount: dec("20")}}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := l.Settle(ctx, expense, splits)
			if err != nil {
				t.Errorf("Settle: %v", err)
				return
			}
			if s, _ := report.Entry("Ben", "Payer"); s.Status != models.StatusPaid {
				t.Errorf("status = %s, want Paid", s.Status)
			}
		}()
	}
	wg.Wait()

	// Debited exactly once.
	requireBalance(t, l, "Ben", "5")
	requireBalance(t, l, "Payer", "80")
}

func TestLedgerOnSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer store.Close()

	l, _ := newLedgerOn(t, store, map[string]string{"Payer": "100", "B1": "10", "B2": "100"})

	expense, err := l.RecordExpense(ctx, models.Expense{Payer: "Payer", Amount: dec("90")})
	require.NoError(t, err)
	splits, err := calculator.ComputeShares(expense.Amount, expense.Payer, []string{"B1", "B2"}, models.StrategyPercent, []string{"50", "50"})
	require.NoError(t, err)

	report, err := l.Settle(ctx, expense, splits)
	require.NoError(t, err)

	for _, s := range report.Pairs() {
		t.Log(s.Summary)
	}
	assert.Len(t, report.Unpaid(), 1)
	requireBalance(t, l, "B1", "10")
	requireBalance(t, l, "B2", "55")
	requireBalance(t, l, "Payer", "55")

	// Settling again does not double-debit from the persisted transfer record.
	_, err = l.Settle(ctx, expense, splits)
	require.NoError(t, err)
	requireBalance(t, l, "B2", "55")
}

func TestLockset_OppositeOrder(t *testing.T) {
	locks := newLockset()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := locks.lock("x", "y")
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := locks.lock("y", "x", "y")
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, locks.size())
}

func TestLockset_ReleasesIdleOwners(t *testing.T) {
	locks := newLockset()

	unlock := locks.lock("bob", "carol")
	assert.Equal(t, 2, locks.size())

	// The waiter takes alice, then blocks on carol.
	acquired := make(chan func())
	go func() { acquired <- locks.lock("carol", "alice") }()
	assert.Eventually(t, func() bool { return locks.size() == 3 }, time.Second, time.Millisecond)

	unlock()
	unlockWaiter := <-acquired
	assert.Equal(t, 2, locks.size())

	unlockWaiter()
	assert.Equal(t, 0, locks.size())

	for i := 0; i < 1000; i++ {
		locks.lock(fmt.Sprintf("owner-%d", i), "payer")()
	}
	assert.Equal(t, 0, locks.size())
}

func TestLedger_LocksReleasedAfterSettle(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, map[string]string{"Payer": "100", "B1": "50", "B2": "5"})

	expense, err := l.RecordExpense(ctx, models.Expense{Payer: "Payer", Amount: dec("30")})
	require.NoError(t, err)
	_, err = l.Settle(ctx, expense, []models.Split{
		{Beneficiary: "B1", Amount: dec("10")},
		{Beneficiary: "B2", Amount: dec("10")},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, l.locks.size())
}
