package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"keysbank-api/internal/events"
	"keysbank-api/internal/models"
	"keysbank-api/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const publishTimeout = 5 * time.Second

type RecordInput struct {
	AccountID     uuid.UUID
	Kind          models.EntryKind
	Category      string
	Amount        decimal.Decimal
	Description   string
	CorrelationID *uuid.UUID
}

// validate runs before any write. Amounts are stored as DECIMAL(18,2), so more
// than two fractional digits is rejected along with non-positive amounts.
func (in RecordInput) validate() error {
	if !in.Kind.IsMovement() {
		return models.ErrInvalidKind
	}
	if !in.Amount.IsPositive() || !in.Amount.Equal(in.Amount.Round(models.AmountScale)) {
		return models.ErrInvalidAmount
	}
	if strings.TrimSpace(in.Category) == "" {
		return models.ErrInvalidCategory
	}
	return nil
}

// TransactionService is the only writer of movements. Each movement and the
// recomputed balance of its day are committed in one unit of work.
type TransactionService struct {
	store          store.Store
	logger         zerolog.Logger
	balanceService *BalanceService
	publisher      events.Publisher
	now            Clock
}

func NewTransactionService(st store.Store, logger zerolog.Logger, balanceService *BalanceService, publisher events.Publisher, now Clock) *TransactionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if now == nil {
		now = time.Now
	}
	return &TransactionService{
		store:          st,
		logger:         logger,
		balanceService: balanceService,
		publisher:      publisher,
		now:            now,
	}
}

func (s *TransactionService) Record(ctx context.Context, in RecordInput) (*models.LedgerEntry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var entry, balance *models.LedgerEntry
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		var err error
		entry, balance, err = s.RecordInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", in.AccountID.String()).Str("type", string(in.Kind)).Msg("Error recording transaction")
		return nil, err
	}

	s.logger.Info().
		Str("entry_id", entry.ID.String()).
		Str("account_id", entry.AccountID.String()).
		Str("type", string(entry.Kind)).
		Str("amount", entry.Amount.StringFixed(models.AmountScale)).
		Str("balance", balance.Amount.StringFixed(models.AmountScale)).
		Msg("Transaction recorded")

	s.PublishRecorded(ctx, entry, balance)
	return entry, nil
}

// RecordInTx appends a movement and recomputes its day inside tx. It returns
// the movement and the balance entry that replaced the day's previous one.
func (s *TransactionService) RecordInTx(ctx context.Context, tx store.Store, in RecordInput) (*models.LedgerEntry, *models.LedgerEntry, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	exists, err := tx.Accounts().Lock(ctx, in.AccountID)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, models.ErrAccountNotFound
	}

	entry := &models.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     in.AccountID,
		Kind:          in.Kind,
		Category:      strings.TrimSpace(in.Category),
		Amount:        in.Amount,
		Description:   strings.TrimSpace(in.Description),
		CorrelationID: in.CorrelationID,
		CreatedAt:     s.now().Truncate(time.Microsecond),
	}
	if err := tx.Transactions().Insert(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	balance, err := s.balanceService.RecomputeDayInTx(ctx, tx, entry.AccountID, entry.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update balance: %w", err)
	}

	return entry, balance, nil
}

// PublishRecorded is best effort: the movement is already committed, so a
// broker failure is logged and never surfaced to the caller.
func (s *TransactionService) PublishRecorded(ctx context.Context, entry, balance *models.LedgerEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, entry.AccountID.String(), events.NewEntryRecorded(entry, balance)); err != nil {
		s.logger.Warn().Err(err).Str("entry_id", entry.ID.String()).Msg("Failed to publish ledger event (non-critical)")
	}
}
