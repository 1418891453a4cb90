// Package store holds the persistence collaborators of the ledger: an
// append-only transaction store plus the customer and account tables it
// hangs off. Every range argument is half-open, [from, to).
package store

import (
	"context"
	"time"

	"keysbank-api/internal/models"

	"github.com/google/uuid"
)

// TransactionStore returns entries ordered by CreatedAt descending.
type TransactionStore interface {
	Insert(ctx context.Context, entry *models.LedgerEntry) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.LedgerEntry, error)
	FindByAccountAndRange(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*models.LedgerEntry, error)
	FindByAccountAndKind(ctx context.Context, accountID uuid.UUID, kind models.EntryKind) ([]*models.LedgerEntry, error)
	FindByAccountKindAndRange(ctx context.Context, accountID uuid.UUID, kind models.EntryKind, from, to time.Time) ([]*models.LedgerEntry, error)
	FindBalanceEntriesInRange(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*models.LedgerEntry, error)
}

type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// Lock reports whether the account exists and, inside a unit of work,
	// holds it until commit so writers of one account run one at a time.
	Lock(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByCustomer(ctx context.Context, customerID uuid.UUID) (bool, error)
	FindByAgencyAndNumber(ctx context.Context, agency, number string) (*models.Account, error)
}

type CustomerStore interface {
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Store is the root collaborator. WithinTx runs fn as one atomic unit of
// work: either everything fn wrote is committed or none of it is visible.
type Store interface {
	Transactions() TransactionStore
	Accounts() AccountStore
	Customers() CustomerStore
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// Bounds for open-ended ranges, both within the MySQL DATETIME domain.
var (
	FarPast   = time.Date(1000, 1, 1, 0, 0, 0, 0, time.UTC)
	FarFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)
