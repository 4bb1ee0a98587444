// Package service exposes the ledger over Connect RPC.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwallet/internal/calculator"
	"github.com/mmynk/splitwallet/internal/ledger"
	"github.com/mmynk/splitwallet/internal/models"
	"github.com/mmynk/splitwallet/internal/storage"
)

// LedgerServiceName is the fully-qualified name of the service.
const LedgerServiceName = "splitwallet.v1.LedgerService"

// Procedure paths, one per RPC.
const (
	OpenAccountProcedure      = "/" + LedgerServiceName + "/OpenAccount"
	DepositProcedure          = "/" + LedgerServiceName + "/Deposit"
	GetBalanceProcedure       = "/" + LedgerServiceName + "/GetBalance"
	ListAccountsProcedure     = "/" + LedgerServiceName + "/ListAccounts"
	RecordExpenseProcedure    = "/" + LedgerServiceName + "/RecordExpense"
	ComputeSharesProcedure    = "/" + LedgerServiceName + "/ComputeShares"
	CreateAllocationProcedure = "/" + LedgerServiceName + "/CreateAllocation"
	SettleAllocationProcedure = "/" + LedgerServiceName + "/SettleAllocation"
	ListOutstandingProcedure  = "/" + LedgerServiceName + "/ListOutstanding"
)

// LedgerService implements the Connect LedgerService.
type LedgerService struct {
	store     storage.Store
	ledger    *ledger.Ledger
	allocOpts []calculator.Option
}

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithStrictAllocation requires EXACT values to sum to the expense amount and
// PERCENT values to sum to 100.
func WithStrictAllocation() Option {
	return func(s *LedgerService) {
		s.allocOpts = append(s.allocOpts, calculator.WithStrictTotals())
	}
}

// NewLedgerService creates a new LedgerService over store and the ledger that guards it.
func NewLedgerService(store storage.Store, l *ledger.Ledger, opts ...Option) *LedgerService {
	s := &LedgerService{store: store, ledger: l}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewLedgerServiceHandler builds an HTTP handler for every LedgerService
// procedure. It returns the path to mount the handler on.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(OpenAccountProcedure, connect.NewUnaryHandler(OpenAccountProcedure, svc.OpenAccount, opts...))
	mux.Handle(DepositProcedure, connect.NewUnaryHandler(DepositProcedure, svc.Deposit, opts...))
	mux.Handle(GetBalanceProcedure, connect.NewUnaryHandler(GetBalanceProcedure, svc.GetBalance, opts...))
	mux.Handle(ListAccountsProcedure, connect.NewUnaryHandler(ListAccountsProcedure, svc.ListAccounts, opts...))
	mux.Handle(RecordExpenseProcedure, connect.NewUnaryHandler(RecordExpenseProcedure, svc.RecordExpense, opts...))
	mux.Handle(ComputeSharesProcedure, connect.NewUnaryHandler(ComputeSharesProcedure, svc.ComputeShares, opts...))
	mux.Handle(CreateAllocationProcedure, connect.NewUnaryHandler(CreateAllocationProcedure, svc.CreateAllocation, opts...))
	mux.Handle(SettleAllocationProcedure, connect.NewUnaryHandler(SettleAllocationProcedure, svc.SettleAllocation, opts...))
	mux.Handle(ListOutstandingProcedure, connect.NewUnaryHandler(ListOutstandingProcedure, svc.ListOutstanding, opts...))

	return "/" + LedgerServiceName + "/", mux
}

// OpenAccount creates a participant's wallet.
func (s *LedgerService) OpenAccount(ctx context.Context, req *connect.Request[OpenAccountRequest]) (*connect.Response[AccountResponse], error) {
	account, err := s.ledger.OpenAccount(ctx, req.Msg.Owner, req.Msg.OpeningBalance)
	if err != nil {
		return nil, toConnectError("OpenAccount", err)
	}
	return connect.NewResponse(&AccountResponse{Owner: account.Owner, Balance: account.Balance}), nil
}

// Deposit adds funds to a wallet.
func (s *LedgerService) Deposit(ctx context.Context, req *connect.Request[DepositRequest]) (*connect.Response[AccountResponse], error) {
	balance, err := s.ledger.Deposit(ctx, req.Msg.Owner, req.Msg.Amount)
	if err != nil {
		return nil, toConnectError("Deposit", err)
	}
	return connect.NewResponse(&AccountResponse{Owner: req.Msg.Owner, Balance: balance}), nil
}

// GetBalance reads a wallet balance.
func (s *LedgerService) GetBalance(ctx context.Context, req *connect.Request[GetBalanceRequest]) (*connect.Response[AccountResponse], error) {
	balance, err := s.ledger.Balance(ctx, req.Msg.Owner)
	if err != nil {
		return nil, toConnectError("GetBalance", err)
	}
	return connect.NewResponse(&AccountResponse{Owner: req.Msg.Owner, Balance: balance}), nil
}

// ListAccounts returns every wallet ordered by owner.
func (s *LedgerService) ListAccounts(ctx context.Context, _ *connect.Request[ListAccountsRequest]) (*connect.Response[ListAccountsResponse], error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, toConnectError("ListAccounts", err)
	}

	resp := &ListAccountsResponse{Accounts: make([]AccountResponse, len(accounts))}
	for i, a := range accounts {
		resp.Accounts[i] = AccountResponse{Owner: a.Owner, Balance: a.Balance}
	}
	return connect.NewResponse(resp), nil
}

// RecordExpense debits the payer and stores the expense.
func (s *LedgerService) RecordExpense(ctx context.Context, req *connect.Request[RecordExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	expense, err := s.ledger.RecordExpense(ctx, models.Expense{
		Payer:       req.Msg.Payer,
		Amount:      req.Msg.Amount,
		Title:       req.Msg.Title,
		Description: req.Msg.Description,
	})
	if err != nil {
		return nil, toConnectError("RecordExpense", err)
	}

	return connect.NewResponse(&ExpenseResponse{
		ExpenseID:   expense.ID,
		Payer:       expense.Payer,
		Title:       expense.Title,
		Description: expense.Description,
		Amount:      expense.Amount,
		CreatedAt:   expense.CreatedAt,
	}), nil
}

// ComputeShares previews the shares of an allocation without touching any balance.
func (s *LedgerService) ComputeShares(ctx context.Context, req *connect.Request[ComputeSharesRequest]) (*connect.Response[ComputeSharesResponse], error) {
	strategy, err := models.ParseStrategy(req.Msg.Strategy)
	if err != nil {
		return nil, toConnectError("ComputeShares", err)
	}

	splits, err := calculator.ComputeShares(req.Msg.Amount, req.Msg.Payer, req.Msg.Beneficiaries, strategy,
		rawValues(req.Msg.Values, req.Msg.RawValues), s.allocOpts...)
	if err != nil {
		return nil, toConnectError("ComputeShares", err)
	}

	return connect.NewResponse(&ComputeSharesResponse{
		Shares: toShareAmounts(splits),
		Total:  calculator.Total(splits),
	}), nil
}

// CreateAllocation validates and stores how an expense is divided.
// The shares are returned for display but never stored.
func (s *LedgerService) CreateAllocation(ctx context.Context, req *connect.Request[CreateAllocationRequest]) (*connect.Response[CreateAllocationResponse], error) {
	expense, err := s.store.GetExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, toConnectError("CreateAllocation", err)
	}

	strategy, err := models.ParseStrategy(req.Msg.Strategy)
	if err != nil {
		return nil, toConnectError("CreateAllocation", err)
	}

	allocation := &models.Allocation{
		ExpenseID:     expense.ID,
		Strategy:      strategy,
		Beneficiaries: req.Msg.Beneficiaries,
	}
	if strategy != models.StrategyEqual {
		allocation.Values = rawValues(req.Msg.Values, req.Msg.RawValues)
	}

	// Validate before anything is stored.
	splits, err := s.shares(expense, allocation)
	if err != nil {
		return nil, toConnectError("CreateAllocation", err)
	}

	if err := s.store.CreateAllocation(ctx, allocation); err != nil {
		return nil, toConnectError("CreateAllocation", err)
	}

	slog.Info("Allocation created",
		"allocation_id", allocation.ID,
		"expense_id", expense.ID,
		"strategy", strategy.String(),
		"beneficiaries", allocation.Beneficiaries,
	)

	return connect.NewResponse(&CreateAllocationResponse{
		AllocationID: allocation.ID,
		Shares:       toShareAmounts(splits),
	}), nil
}

// SettleAllocation recomputes an allocation's shares from its expense and
// settles every pair. Unpaid pairs are part of a successful response.
func (s *LedgerService) SettleAllocation(ctx context.Context, req *connect.Request[SettleAllocationRequest]) (*connect.Response[SettlementResponse], error) {
	allocation, err := s.store.GetAllocation(ctx, req.Msg.AllocationID)
	if err != nil {
		return nil, toConnectError("SettleAllocation", err)
	}
	expense, err := s.store.GetExpense(ctx, allocation.ExpenseID)
	if err != nil {
		return nil, toConnectError("SettleAllocation", err)
	}

	splits, err := s.shares(expense, allocation)
	if err != nil {
		return nil, toConnectError("SettleAllocation", err)
	}

	report, err := s.ledger.Settle(ctx, expense, splits)
	if err != nil {
		return nil, toConnectError("SettleAllocation", err)
	}

	resp := &SettlementResponse{ExpenseID: report.ExpenseID, Payer: report.Payer}
	for _, pair := range report.Pairs() {
		resp.Pairs = append(resp.Pairs, toPairResult(pair))
		if mirror, ok := report.Entry(report.Payer, pair.From); ok {
			resp.Mirror = append(resp.Mirror, toPairResult(mirror))
		}
	}
	return connect.NewResponse(resp), nil
}

// ListOutstanding gathers every unsettled pair across all allocations and
// returns net positions plus the simplified transfers that would clear them.
func (s *LedgerService) ListOutstanding(ctx context.Context, _ *connect.Request[ListOutstandingRequest]) (*connect.Response[ListOutstandingResponse], error) {
	allocations, err := s.store.ListAllocations(ctx)
	if err != nil {
		return nil, toConnectError("ListOutstanding", err)
	}

	var edges []calculator.DebtEdge
	for _, allocation := range allocations {
		expense, err := s.store.GetExpense(ctx, allocation.ExpenseID)
		if err != nil {
			return nil, toConnectError("ListOutstanding", err)
		}
		splits, err := s.shares(expense, allocation)
		if err != nil {
			// Stored allocations were validated on create; a failure here
			// means strict mode was enabled afterwards.
			slog.Warn("ListOutstanding: skipping allocation", "allocation_id", allocation.ID, "error", err)
			continue
		}
		for _, split := range splits {
			settled, err := s.store.IsSettled(ctx, expense.ID, split.Beneficiary)
			if err != nil {
				return nil, toConnectError("ListOutstanding", err)
			}
			if !settled {
				edges = append(edges, calculator.DebtEdge{From: split.Beneficiary, To: expense.Payer, Amount: split.Amount})
			}
		}
	}

	members, simplified := calculator.SimplifyDebts(edges)

	resp := &ListOutstandingResponse{
		Members:    make([]MemberPosition, len(members)),
		Simplified: make([]Debt, len(simplified)),
	}
	for i, m := range members {
		resp.Members[i] = MemberPosition{Member: m.Member, NetBalance: m.NetBalance, TotalOwed: m.TotalOwed, TotalOwes: m.TotalOwes}
	}
	for i, e := range simplified {
		resp.Simplified[i] = Debt{From: e.From, To: e.To, Amount: e.Amount}
	}
	return connect.NewResponse(resp), nil
}

// shares derives an allocation's share map from its expense.
func (s *LedgerService) shares(expense *models.Expense, allocation *models.Allocation) ([]models.Split, error) {
	return calculator.ComputeShares(expense.Amount, expense.Payer, allocation.Beneficiaries,
		allocation.Strategy, allocation.Values, s.allocOpts...)
}

func rawValues(values []string, raw string) []string {
	if len(values) > 0 {
		return values
	}
	return calculator.ParseValues(raw)
}

func toShareAmounts(splits []models.Split) []ShareAmount {
	out := make([]ShareAmount, len(splits))
	for i, s := range splits {
		out[i] = ShareAmount{Beneficiary: s.Beneficiary, Amount: s.Amount}
	}
	return out
}

func toPairResult(s models.Share) PairResult {
	return PairResult{From: s.From, To: s.To, Amount: s.Amount, Status: string(s.Status), Summary: s.Summary}
}

// toConnectError maps domain errors onto Connect codes. The underlying error
// is carried unmodified as the Connect error's cause.
func toConnectError(op string, err error) error {
	code := connect.CodeInternal
	switch {
	case errors.Is(err, models.ErrValidation):
		code = connect.CodeInvalidArgument
	case errors.Is(err, models.ErrInsufficientFunds):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, models.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, models.ErrAccountExists):
		code = connect.CodeAlreadyExists
	}

	if code == connect.CodeInternal {
		slog.Error(fmt.Sprintf("%s failed", op), "error", err)
	} else {
		slog.Debug(fmt.Sprintf("%s rejected", op), "code", code.String(), "error", err)
	}
	return connect.NewError(code, err)
}
