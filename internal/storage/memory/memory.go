// Package memory provides a map-backed implementation of the storage.Store
// interface. It is used by tests and by callers that do not need durability.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwallet/internal/models"
	"github.com/mmynk/splitwallet/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

type settledKey struct {
	expenseID   string
	beneficiary string
}

type state struct {
	accounts    map[string]models.Account
	expenses    map[string]models.Expense
	allocations map[string]models.Allocation
	allocOrder  []string
	transfers   map[string][]models.Transfer
	settled     map[settledKey]bool
}

func newState() *state {
	return &state{
		accounts:    make(map[string]models.Account),
		expenses:    make(map[string]models.Expense),
		allocations: make(map[string]models.Allocation),
		transfers:   make(map[string][]models.Transfer),
		settled:     make(map[settledKey]bool),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.expenses {
		c.expenses[k] = v
	}
	for k, v := range s.allocations {
		c.allocations[k] = v
	}
	c.allocOrder = append([]string(nil), s.allocOrder...)
	for k, v := range s.transfers {
		c.transfers[k] = append([]models.Transfer(nil), v...)
	}
	for k, v := range s.settled {
		c.settled[k] = v
	}
	return c
}

// Store keeps every record in memory.
type Store struct {
	mu    *sync.RWMutex
	state *state
	inTx  bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{mu: &sync.RWMutex{}, state: newState()}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// WithTx runs fn against a private copy of the data and swaps it in when fn
// succeeds. Transactions are serialized with every other write.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: &sync.RWMutex{}, state: s.state.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.state = tx.state
	return nil
}

func (s *Store) read() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) write() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// CreateAccount adds a new account.
func (s *Store) CreateAccount(_ context.Context, account *models.Account) error {
	defer s.write()()

	if _, exists := s.state.accounts[account.Owner]; exists {
		return fmt.Errorf("%w: %s", models.ErrAccountExists, account.Owner)
	}
	if account.CreatedAt == 0 {
		account.CreatedAt = time.Now().Unix()
	}
	s.state.accounts[account.Owner] = *account
	return nil
}

// GetAccount returns a copy of the owner's account.
func (s *Store) GetAccount(_ context.Context, owner string) (*models.Account, error) {
	defer s.read()()

	account, ok := s.state.accounts[owner]
	if !ok {
		return nil, fmt.Errorf("account %w: %s", models.ErrNotFound, owner)
	}
	return &account, nil
}

// SetBalance overwrites the owner's balance.
func (s *Store) SetBalance(_ context.Context, owner string, balance decimal.Decimal) error {
	defer s.write()()

	account, ok := s.state.accounts[owner]
	if !ok {
		return fmt.Errorf("account %w: %s", models.ErrNotFound, owner)
	}
	account.Balance = balance
	s.state.accounts[owner] = account
	return nil
}

// ListAccounts returns every account ordered by owner.
func (s *Store) ListAccounts(_ context.Context) ([]*models.Account, error) {
	defer s.read()()

	accounts := make([]*models.Account, 0, len(s.state.accounts))
	for _, a := range s.state.accounts {
		account := a
		accounts = append(accounts, &account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Owner < accounts[j].Owner })
	return accounts, nil
}

// CreateExpense adds a new expense, generating its ID if unset.
func (s *Store) CreateExpense(_ context.Context, expense *models.Expense) error {
	defer s.write()()

	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	if _, exists := s.state.expenses[expense.ID]; exists {
		return fmt.Errorf("expense already exists: %s", expense.ID)
	}
	s.state.expenses[expense.ID] = *expense
	return nil
}

// GetExpense returns a copy of the expense.
func (s *Store) GetExpense(_ context.Context, expenseID string) (*models.Expense, error) {
	defer s.read()()

	expense, ok := s.state.expenses[expenseID]
	if !ok {
		return nil, fmt.Errorf("expense %w: %s", models.ErrNotFound, expenseID)
	}
	return &expense, nil
}

// CreateAllocation adds a new allocation for an existing expense.
func (s *Store) CreateAllocation(_ context.Context, allocation *models.Allocation) error {
	defer s.write()()

	if _, ok := s.state.expenses[allocation.ExpenseID]; !ok {
		return fmt.Errorf("expense %w: %s", models.ErrNotFound, allocation.ExpenseID)
	}
	if allocation.ID == "" {
		allocation.ID = uuid.New().String()
	}
	if allocation.CreatedAt == 0 {
		allocation.CreatedAt = time.Now().Unix()
	}
	stored := *allocation
	stored.Beneficiaries = append([]string(nil), allocation.Beneficiaries...)
	stored.Values = append([]string(nil), allocation.Values...)
	s.state.allocations[allocation.ID] = stored
	s.state.allocOrder = append(s.state.allocOrder, allocation.ID)
	return nil
}

// GetAllocation returns a copy of the allocation.
func (s *Store) GetAllocation(_ context.Context, allocationID string) (*models.Allocation, error) {
	defer s.read()()

	allocation, ok := s.state.allocations[allocationID]
	if !ok {
		return nil, fmt.Errorf("allocation %w: %s", models.ErrNotFound, allocationID)
	}
	return copyAllocation(allocation), nil
}

// ListAllocations returns every allocation in creation order.
func (s *Store) ListAllocations(_ context.Context) ([]*models.Allocation, error) {
	defer s.read()()

	allocations := make([]*models.Allocation, 0, len(s.state.allocOrder))
	for _, id := range s.state.allocOrder {
		allocations = append(allocations, copyAllocation(s.state.allocations[id]))
	}
	return allocations, nil
}

// MarkSettled records a transfer for an (expense, beneficiary) pair.
func (s *Store) MarkSettled(_ context.Context, transfer *models.Transfer) error {
	defer s.write()()

	key := settledKey{expenseID: transfer.ExpenseID, beneficiary: transfer.From}
	if s.state.settled[key] {
		return fmt.Errorf("pair already settled: %s/%s", transfer.ExpenseID, transfer.From)
	}
	if transfer.ID == "" {
		transfer.ID = uuid.New().String()
	}
	if transfer.CreatedAt == 0 {
		transfer.CreatedAt = time.Now().Unix()
	}
	s.state.settled[key] = true
	s.state.transfers[transfer.ExpenseID] = append(s.state.transfers[transfer.ExpenseID], *transfer)
	return nil
}

// IsSettled reports whether the pair has a recorded transfer.
func (s *Store) IsSettled(_ context.Context, expenseID, beneficiary string) (bool, error) {
	defer s.read()()

	return s.state.settled[settledKey{expenseID: expenseID, beneficiary: beneficiary}], nil
}

// ListTransfers returns the transfers recorded for an expense.
func (s *Store) ListTransfers(_ context.Context, expenseID string) ([]*models.Transfer, error) {
	defer s.read()()

	transfers := make([]*models.Transfer, 0, len(s.state.transfers[expenseID]))
	for _, t := range s.state.transfers[expenseID] {
		transfer := t
		transfers = append(transfers, &transfer)
	}
	return transfers, nil
}

func copyAllocation(a models.Allocation) *models.Allocation {
	a.Beneficiaries = append([]string(nil), a.Beneficiaries...)
	a.Values = append([]string(nil), a.Values...)
	return &a
}
