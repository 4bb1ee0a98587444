package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrAccountExists     = errors.New("account already exists")
)

// ValidationError describes malformed or inconsistent input.
// It is always returned before any balance is touched.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError returns a *ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InsufficientFundsError reports a payer whose balance cannot cover an expense.
type InsufficientFundsError struct {
	Owner    string
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: %s has %s but needs %s",
		e.Owner, e.Balance.StringFixed(2), e.Required.StringFixed(2))
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
