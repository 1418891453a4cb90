package events

import (
	"context"
	"time"

	"keysbank-api/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const TypeEntryRecorded = "ledger.entry.recorded"

// EntryRecorded is emitted once a movement and its recomputed daily balance
// have been committed together.
type EntryRecorded struct {
	Type       string           `json:"type"`
	EntryID    uuid.UUID        `json:"entryId"`
	AccountID  uuid.UUID        `json:"accountId"`
	Kind       models.EntryKind `json:"kind"`
	Category   string           `json:"category"`
	Amount     decimal.Decimal  `json:"amount"`
	Balance    decimal.Decimal  `json:"balance"`
	OccurredAt time.Time        `json:"occurredAt"`
}

func NewEntryRecorded(entry, balance *models.LedgerEntry) EntryRecorded {
	return EntryRecorded{
		Type:       TypeEntryRecorded,
		EntryID:    entry.ID,
		AccountID:  entry.AccountID,
		Kind:       entry.Kind,
		Category:   entry.Category,
		Amount:     entry.Amount,
		Balance:    balance.Amount,
		OccurredAt: entry.CreatedAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
func (NoopPublisher) Close() error                               { return nil }
