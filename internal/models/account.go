package models

import "github.com/shopspring/decimal"

// Account represents one participant's wallet.
// Every participant owns exactly one account, keyed by Owner.
type Account struct {
	// Owner is the participant identity that owns this balance.
	Owner string

	// Balance is the current funds held, at two fractional digits.
	// It is never negative between operations.
	Balance decimal.Decimal

	// CreatedAt is the Unix timestamp when the account was opened.
	CreatedAt int64
}
