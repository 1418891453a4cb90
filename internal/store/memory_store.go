package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"keysbank-api/internal/models"

	"github.com/google/uuid"
)

type memoryEntry struct {
	entry models.LedgerEntry
	seq   uint64
}

type memoryState struct {
	seq       uint64
	entries   map[uuid.UUID]memoryEntry
	accounts  map[uuid.UUID]models.Account
	customers map[uuid.UUID]models.Customer
}

func newMemoryState() *memoryState {
	return &memoryState{
		entries:   make(map[uuid.UUID]memoryEntry),
		accounts:  make(map[uuid.UUID]models.Account),
		customers: make(map[uuid.UUID]models.Customer),
	}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		seq:       s.seq,
		entries:   make(map[uuid.UUID]memoryEntry, len(s.entries)),
		accounts:  make(map[uuid.UUID]models.Account, len(s.accounts)),
		customers: make(map[uuid.UUID]models.Customer, len(s.customers)),
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	return c
}

type locker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

// noLock is used inside a unit of work, where the store-wide lock is already held.
type noLock struct{}

func (noLock) Lock()    {}
func (noLock) Unlock()  {}
func (noLock) RLock()   {}
func (noLock) RUnlock() {}

// MemoryStore is a thread-safe in-process Store. A unit of work holds the
// write lock for its whole duration and works on a copy of the state that
// replaces the live state only when fn succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memoryState
	lock  locker
}

func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{state: newMemoryState()}
	m.lock = &m.mu
	return m
}

func (m *MemoryStore) Transactions() TransactionStore { return &memoryTransactions{m} }
func (m *MemoryStore) Accounts() AccountStore         { return &memoryAccounts{m} }
func (m *MemoryStore) Customers() CustomerStore       { return &memoryCustomers{m} }

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if _, nested := m.lock.(noLock); nested {
		return fn(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &MemoryStore{state: m.state.clone(), lock: noLock{}}
	if err := fn(tx); err != nil {
		return err
	}
	*m.state = *tx.state
	return nil
}

type memoryTransactions struct{ m *MemoryStore }

func (r *memoryTransactions) Insert(_ context.Context, entry *models.LedgerEntry) error {
	r.m.lock.Lock()
	defer r.m.lock.Unlock()

	s := r.m.state
	if _, exists := s.entries[entry.ID]; exists {
		return fmt.Errorf("%w: duplicate entry id %s", models.ErrStoreFailure, entry.ID)
	}
	s.seq++
	s.entries[entry.ID] = memoryEntry{entry: *entry, seq: s.seq}
	return nil
}

func (r *memoryTransactions) DeleteByID(_ context.Context, id uuid.UUID) error {
	r.m.lock.Lock()
	defer r.m.lock.Unlock()

	delete(r.m.state.entries, id)
	return nil
}

func (r *memoryTransactions) FindByAccount(_ context.Context, accountID uuid.UUID) ([]*models.LedgerEntry, error) {
	return r.find(func(e *models.LedgerEntry) bool { return e.AccountID == accountID }), nil
}

func (r *memoryTransactions) FindByAccountAndRange(_ context.Context, accountID uuid.UUID, from, to time.Time) ([]*models.LedgerEntry, error) {
	return r.find(func(e *models.LedgerEntry) bool {
		return e.AccountID == accountID && inRange(e.CreatedAt, from, to)
	}), nil
}

func (r *memoryTransactions) FindByAccountAndKind(_ context.Context, accountID uuid.UUID, kind models.EntryKind) ([]*models.LedgerEntry, error) {
	return r.find(func(e *models.LedgerEntry) bool {
		return e.AccountID == accountID && e.Kind == kind
	}), nil
}

func (r *memoryTransactions) FindByAccountKindAndRange(_ context.Context, accountID uuid.UUID, kind models.EntryKind, from, to time.Time) ([]*models.LedgerEntry, error) {
	return r.find(func(e *models.LedgerEntry) bool {
		return e.AccountID == accountID && e.Kind == kind && inRange(e.CreatedAt, from, to)
	}), nil
}

func (r *memoryTransactions) FindBalanceEntriesInRange(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*models.LedgerEntry, error) {
	return r.FindByAccountKindAndRange(ctx, accountID, models.EntryKindBalance, from, to)
}

func (r *memoryTransactions) find(match func(*models.LedgerEntry) bool) []*models.LedgerEntry {
	r.m.lock.RLock()
	defer r.m.lock.RUnlock()

	found := make([]memoryEntry, 0)
	for _, me := range r.m.state.entries {
		if match(&me.entry) {
			found = append(found, me)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if !a.entry.CreatedAt.Equal(b.entry.CreatedAt) {
			return a.entry.CreatedAt.After(b.entry.CreatedAt)
		}
		return a.seq > b.seq
	})

	result := make([]*models.LedgerEntry, len(found))
	for i := range found {
		e := found[i].entry
		result[i] = &e
	}
	return result
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

type memoryAccounts struct{ m *MemoryStore }

func (r *memoryAccounts) Create(_ context.Context, account *models.Account) error {
	r.m.lock.Lock()
	defer r.m.lock.Unlock()

	for _, a := range r.m.state.accounts {
		if a.CustomerID == account.CustomerID {
			return models.ErrAccountAlreadyExists
		}
		if a.Agency == account.Agency && a.AccountNumber == account.AccountNumber {
			return models.ErrAccountNumberTaken
		}
	}
	r.m.state.accounts[account.ID] = *account
	return nil
}

func (r *memoryAccounts) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.m.lock.RLock()
	defer r.m.lock.RUnlock()

	_, ok := r.m.state.accounts[id]
	return ok, nil
}

// Lock needs no extra work in memory: the unit of work already holds the
// store-wide write lock.
func (r *memoryAccounts) Lock(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.Exists(ctx, id)
}

func (r *memoryAccounts) ExistsByCustomer(_ context.Context, customerID uuid.UUID) (bool, error) {
	r.m.lock.RLock()
	defer r.m.lock.RUnlock()

	for _, a := range r.m.state.accounts {
		if a.CustomerID == customerID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryAccounts) FindByAgencyAndNumber(_ context.Context, agency, number string) (*models.Account, error) {
	r.m.lock.RLock()
	defer r.m.lock.RUnlock()

	for _, a := range r.m.state.accounts {
		if a.Agency == agency && a.AccountNumber == number {
			found := a
			return &found, nil
		}
	}
	return nil, models.ErrAccountNotFound
}

type memoryCustomers struct{ m *MemoryStore }

func (r *memoryCustomers) Create(_ context.Context, customer *models.Customer) error {
	r.m.lock.Lock()
	defer r.m.lock.Unlock()

	for _, c := range r.m.state.customers {
		if c.Email == customer.Email {
			return models.ErrEmailAlreadyExists
		}
	}
	r.m.state.customers[customer.ID] = *customer
	return nil
}

func (r *memoryCustomers) FindByID(_ context.Context, id uuid.UUID) (*models.Customer, error) {
	r.m.lock.RLock()
	defer r.m.lock.RUnlock()

	c, ok := r.m.state.customers[id]
	if !ok {
		return nil, models.ErrCustomerNotFound
	}
	return &c, nil
}

func (r *memoryCustomers) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.m.lock.RLock()
	defer r.m.lock.RUnlock()

	_, ok := r.m.state.customers[id]
	return ok, nil
}

var _ Store = (*MemoryStore)(nil)
