package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"keysbank-api/internal/events"
	"keysbank-api/internal/models"
	"keysbank-api/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []events.EntryRecorded
}

func (p *recordingPublisher) Publish(_ context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.events = append(p.events, event.(events.EntryRecorded))
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type testEnv struct {
	store        *store.MemoryStore
	clock        *testClock
	publisher    *recordingPublisher
	balances     *BalanceService
	transactions *TransactionService
	customers    *CustomerService
	accounts     *AccountService
	statements   *StatementService
	loc          *time.Location
}

func newTestEnv(t *testing.T, openingBonus string) *testEnv {
	t.Helper()

	loc := time.FixedZone("BRT", -3*60*60)
	clock := &testClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, loc)}
	st := store.NewMemoryStore()
	pub := &recordingPublisher{}
	logger := zerolog.Nop()

	bonus := decimal.RequireFromString(openingBonus)

	balances := NewBalanceService(st, logger, loc, clock.Now)
	transactions := NewTransactionService(st, logger, balances, pub, clock.Now)
	customers := NewCustomerService(st, logger, clock.Now)
	accounts := NewAccountService(st, logger, transactions, bonus, clock.Now)
	statements := NewStatementService(st, accounts, logger, loc)

	return &testEnv{
		store:        st,
		clock:        clock,
		publisher:    pub,
		balances:     balances,
		transactions: transactions,
		customers:    customers,
		accounts:     accounts,
		statements:   statements,
		loc:          loc,
	}
}

// openAccount registers a customer and opens its account.
func (e *testEnv) openAccount(t *testing.T, email string) *models.Account {
	t.Helper()
	ctx := context.Background()

	customer, err := e.customers.Create(ctx, "Ana Souza", email)
	require.NoError(t, err)

	account, err := e.accounts.Create(ctx, customer.ID)
	require.NoError(t, err)
	return account
}

func (e *testEnv) record(t *testing.T, accountID uuid.UUID, kind models.EntryKind, category, amount string) *models.LedgerEntry {
	t.Helper()
	entry, err := e.transactions.Record(context.Background(), RecordInput{
		AccountID: accountID,
		Kind:      kind,
		Category:  category,
		Amount:    decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return entry
}

func (e *testEnv) all(t *testing.T, accountID uuid.UUID) []*models.LedgerEntry {
	t.Helper()
	entries, err := e.store.Transactions().FindByAccount(context.Background(), accountID)
	require.NoError(t, err)
	return entries
}

func kindsOf(entries []*models.LedgerEntry) []models.EntryKind {
	kinds := make([]models.EntryKind, len(entries))
	for i, e := range entries {
		kinds[i] = e.Kind
	}
	return kinds
}

func balancesOn(entries []*models.LedgerEntry, start, next time.Time) []*models.LedgerEntry {
	var out []*models.LedgerEntry
	for _, e := range entries {
		if e.Kind == models.EntryKindBalance && !e.CreatedAt.Before(start) && e.CreatedAt.Before(next) {
			out = append(out, e)
		}
	}
	return out
}

func sumMovements(entries []*models.LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Signed())
	}
	return total
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
