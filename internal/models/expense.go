package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Expense represents an amount fronted by a payer.
//
// An expense is committed by the ledger only after the payer's balance has
// been debited by Amount. Once committed, Amount never changes.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Payer is the participant who paid the full amount.
	Payer string

	// Title is a short human-readable label (e.g., "Groceries").
	Title string

	// Description is optional free text.
	Description string

	// Amount is the total paid, always positive.
	Amount decimal.Decimal

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// Strategy selects how an expense is divided among beneficiaries.
type Strategy int

const (
	// StrategyUnknown is the zero value and is never valid.
	StrategyUnknown Strategy = iota
	// StrategyEqual gives every beneficiary amount/(N+1); the payer keeps one portion.
	StrategyEqual
	// StrategyExact assigns each beneficiary an explicit amount.
	StrategyExact
	// StrategyPercent assigns each beneficiary a percentage of the amount.
	StrategyPercent
)

var strategyNames = map[Strategy]string{
	StrategyEqual:   "EQUAL",
	StrategyExact:   "EXACT",
	StrategyPercent: "PERCENT",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy converts a tag such as "equal" or "PERCENT" to a Strategy.
func ParseStrategy(tag string) (Strategy, error) {
	want := strings.ToUpper(strings.TrimSpace(tag))
	for s, name := range strategyNames {
		if name == want {
			return s, nil
		}
	}
	return StrategyUnknown, NewValidationError("strategy", fmt.Sprintf("unknown strategy %q", tag))
}

// Allocation describes how one Expense is divided.
// It does not outlive its Expense and never stores computed shares.
type Allocation struct {
	// ID is the unique identifier for the allocation (UUID format).
	ID string

	// ExpenseID references the expense being divided.
	ExpenseID string

	// Strategy is the division method.
	Strategy Strategy

	// Beneficiaries is the ordered list of participants who owe the payer.
	// The payer is never included.
	Beneficiaries []string

	// Values holds one raw decimal string per beneficiary for EXACT and
	// PERCENT. Empty for EQUAL.
	Values []string

	// CreatedAt is the Unix timestamp when the allocation was created.
	CreatedAt int64
}
