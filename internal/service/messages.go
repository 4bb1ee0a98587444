package service

import "github.com/shopspring/decimal"

// Request and response messages for LedgerService. Money travels as decimal
// strings.

type OpenAccountRequest struct {
	Owner          string          `json:"owner"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type DepositRequest struct {
	Owner  string          `json:"owner"`
	Amount decimal.Decimal `json:"amount"`
}

type GetBalanceRequest struct {
	Owner string `json:"owner"`
}

type AccountResponse struct {
	Owner   string          `json:"owner"`
	Balance decimal.Decimal `json:"balance"`
}

type ListAccountsRequest struct{}

type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

type RecordExpenseRequest struct {
	Payer       string          `json:"payer"`
	Amount      decimal.Decimal `json:"amount"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
}

type ExpenseResponse struct {
	ExpenseID   string          `json:"expense_id"`
	Payer       string          `json:"payer"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   int64           `json:"created_at"`
}

// ComputeSharesRequest previews an allocation without storing anything.
// Values may be sent as a list or as one comma-separated RawValues string.
type ComputeSharesRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Payer         string          `json:"payer"`
	Beneficiaries []string        `json:"beneficiaries"`
	Strategy      string          `json:"strategy"`
	Values        []string        `json:"values,omitempty"`
	RawValues     string          `json:"raw_values,omitempty"`
}

type ShareAmount struct {
	Beneficiary string          `json:"beneficiary"`
	Amount      decimal.Decimal `json:"amount"`
}

type ComputeSharesResponse struct {
	Shares []ShareAmount   `json:"shares"`
	Total  decimal.Decimal `json:"total"`
}

type CreateAllocationRequest struct {
	ExpenseID     string   `json:"expense_id"`
	Beneficiaries []string `json:"beneficiaries"`
	Strategy      string   `json:"strategy"`
	Values        []string `json:"values,omitempty"`
	RawValues     string   `json:"raw_values,omitempty"`
}

type CreateAllocationResponse struct {
	AllocationID string        `json:"allocation_id"`
	Shares       []ShareAmount `json:"shares"`
}

type SettleAllocationRequest struct {
	AllocationID string `json:"allocation_id"`
}

type PairResult struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Amount  decimal.Decimal `json:"amount"`
	Status  string          `json:"status"`
	Summary string          `json:"summary"`
}

// SettlementResponse lists each beneficiary -> payer pair in Pairs and the
// payer's mirrored view of the same transfers in Mirror.
type SettlementResponse struct {
	ExpenseID string       `json:"expense_id"`
	Payer     string       `json:"payer"`
	Pairs     []PairResult `json:"pairs"`
	Mirror    []PairResult `json:"mirror"`
}

type ListOutstandingRequest struct{}

type MemberPosition struct {
	Member     string          `json:"member"`
	NetBalance decimal.Decimal `json:"net_balance"`
	TotalOwed  decimal.Decimal `json:"total_owed"`
	TotalOwes  decimal.Decimal `json:"total_owes"`
}

type Debt struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type ListOutstandingResponse struct {
	Members    []MemberPosition `json:"members"`
	Simplified []Debt           `json:"simplified"`
}
