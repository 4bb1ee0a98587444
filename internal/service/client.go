package service

import (
	"context"

	"connectrpc.com/connect"
)

// LedgerServiceClient calls a remote LedgerService.
type LedgerServiceClient struct {
	openAccount      *connect.Client[OpenAccountRequest, AccountResponse]
	deposit          *connect.Client[DepositRequest, AccountResponse]
	getBalance       *connect.Client[GetBalanceRequest, AccountResponse]
	listAccounts     *connect.Client[ListAccountsRequest, ListAccountsResponse]
	recordExpense    *connect.Client[RecordExpenseRequest, ExpenseResponse]
	computeShares    *connect.Client[ComputeSharesRequest, ComputeSharesResponse]
	createAllocation *connect.Client[CreateAllocationRequest, CreateAllocationResponse]
	settleAllocation *connect.Client[SettleAllocationRequest, SettlementResponse]
	listOutstanding  *connect.Client[ListOutstandingRequest, ListOutstandingResponse]
}

// NewLedgerServiceClient creates a client for the LedgerService at baseURL,
// for example "http://localhost:8080".
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &LedgerServiceClient{
		openAccount:      connect.NewClient[OpenAccountRequest, AccountResponse](httpClient, baseURL+OpenAccountProcedure, opts...),
		deposit:          connect.NewClient[DepositRequest, AccountResponse](httpClient, baseURL+DepositProcedure, opts...),
		getBalance:       connect.NewClient[GetBalanceRequest, AccountResponse](httpClient, baseURL+GetBalanceProcedure, opts...),
		listAccounts:     connect.NewClient[ListAccountsRequest, ListAccountsResponse](httpClient, baseURL+ListAccountsProcedure, opts...),
		recordExpense:    connect.NewClient[RecordExpenseRequest, ExpenseResponse](httpClient, baseURL+RecordExpenseProcedure, opts...),
		computeShares:    connect.NewClient[ComputeSharesRequest, ComputeSharesResponse](httpClient, baseURL+ComputeSharesProcedure, opts...),
		createAllocation: connect.NewClient[CreateAllocationRequest, CreateAllocationResponse](httpClient, baseURL+CreateAllocationProcedure, opts...),
		settleAllocation: connect.NewClient[SettleAllocationRequest, SettlementResponse](httpClient, baseURL+SettleAllocationProcedure, opts...),
		listOutstanding:  connect.NewClient[ListOutstandingRequest, ListOutstandingResponse](httpClient, baseURL+ListOutstandingProcedure, opts...),
	}
}

func (c *LedgerServiceClient) OpenAccount(ctx context.Context, req *connect.Request[OpenAccountRequest]) (*connect.Response[AccountResponse], error) {
	return c.openAccount.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) Deposit(ctx context.Context, req *connect.Request[DepositRequest]) (*connect.Response[AccountResponse], error) {
	return c.deposit.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetBalance(ctx context.Context, req *connect.Request[GetBalanceRequest]) (*connect.Response[AccountResponse], error) {
	return c.getBalance.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListAccounts(ctx context.Context, req *connect.Request[ListAccountsRequest]) (*connect.Response[ListAccountsResponse], error) {
	return c.listAccounts.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RecordExpense(ctx context.Context, req *connect.Request[RecordExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	return c.recordExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ComputeShares(ctx context.Context, req *connect.Request[ComputeSharesRequest]) (*connect.Response[ComputeSharesResponse], error) {
	return c.computeShares.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) CreateAllocation(ctx context.Context, req *connect.Request[CreateAllocationRequest]) (*connect.Response[CreateAllocationResponse], error) {
	return c.createAllocation.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) SettleAllocation(ctx context.Context, req *connect.Request[SettleAllocationRequest]) (*connect.Response[SettlementResponse], error) {
	return c.settleAllocation.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListOutstanding(ctx context.Context, req *connect.Request[ListOutstandingRequest]) (*connect.Response[ListOutstandingResponse], error) {
	return c.listOutstanding.CallUnary(ctx, req)
}
