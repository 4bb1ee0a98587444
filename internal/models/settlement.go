package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Split is one beneficiary's computed share of an expense, owed to the payer.
// A share map is a []Split in beneficiary order.
type Split struct {
	Beneficiary string
	Amount      decimal.Decimal
}

// Status is the outcome of settling one (beneficiary, payer) pair.
type Status string

const (
	StatusComputed Status = "Computed"
	StatusPaid     Status = "Paid"
	StatusUnpaid   Status = "Unpaid"
)

// Share is one ordered-pair entry of a settlement report.
// Every transfer appears twice: From=beneficiary/To=payer, and the mirror
// entry From=payer/To=beneficiary under the payer's view.
type Share struct {
	From    string
	To      string
	Amount  decimal.Decimal
	Status  Status
	Summary string
}

// Transfer is the audit record of a settled pair.
type Transfer struct {
	// ID is the unique identifier for the transfer (UUID format).
	ID string

	// ExpenseID is the expense this transfer settles.
	ExpenseID string

	// From is the beneficiary who was debited.
	From string

	// To is the payer who was credited.
	To string

	// Amount is the share moved.
	Amount decimal.Decimal

	// CreatedAt is the Unix timestamp when the transfer was applied.
	CreatedAt int64
}

// SettlementReport holds every Share produced by one settle call for an expense.
type SettlementReport struct {
	ExpenseID string
	Payer     string

	entries map[string]map[string]Share
	order   []string
}

// NewSettlementReport returns an empty report for an expense paid by payer.
func NewSettlementReport(expenseID, payer string) *SettlementReport {
	return &SettlementReport{
		ExpenseID: expenseID,
		Payer:     payer,
		entries:   make(map[string]map[string]Share),
	}
}

// Record adds the outcome for beneficiary along with its mirror entry.
func (r *SettlementReport) Record(beneficiary string, amount decimal.Decimal, status Status) {
	share := amount.StringFixed(2)

	var owes, mirror string
	switch status {
	case StatusPaid:
		owes = fmt.Sprintf("%s paid %s: %s", beneficiary, r.Payer, share)
		mirror = fmt.Sprintf("%s paid: %s", beneficiary, share)
	default:
		owes = fmt.Sprintf("%s owes %s: %s", beneficiary, r.Payer, share)
		mirror = fmt.Sprintf("%s owes: %s", beneficiary, share)
	}

	if _, seen := r.entries[beneficiary]; !seen {
		r.order = append(r.order, beneficiary)
	}
	r.set(Share{From: beneficiary, To: r.Payer, Amount: amount, Status: status, Summary: owes})
	r.set(Share{From: r.Payer, To: beneficiary, Amount: amount, Status: status, Summary: mirror})
}

func (r *SettlementReport) set(s Share) {
	if r.entries[s.From] == nil {
		r.entries[s.From] = make(map[string]Share)
	}
	r.entries[s.From][s.To] = s
}

// Entry returns the entry for the ordered pair (from, to).
func (r *SettlementReport) Entry(from, to string) (Share, bool) {
	s, ok := r.entries[from][to]
	return s, ok
}

// Pairs returns the beneficiary-to-payer entries in settle order.
func (r *SettlementReport) Pairs() []Share {
	pairs := make([]Share, 0, len(r.order))
	for _, b := range r.order {
		pairs = append(pairs, r.entries[b][r.Payer])
	}
	return pairs
}

// Paid returns the pairs settled by this or an earlier call.
func (r *SettlementReport) Paid() []Share {
	return r.filter(StatusPaid)
}

// Unpaid returns the pairs still owed.
func (r *SettlementReport) Unpaid() []Share {
	return r.filter(StatusUnpaid)
}

func (r *SettlementReport) filter(status Status) []Share {
	var out []Share
	for _, s := range r.Pairs() {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out
}
