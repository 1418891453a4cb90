package services

import (
	"context"
	"fmt"
	"time"

	"keysbank-api/internal/models"
	"keysbank-api/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Clock returns the current instant. Tests replace it to place entries on
// chosen days.
type Clock func() time.Time

const dailyBalanceDescription = "Daily balance"

// BalanceService materializes one BALANCE entry per account and calendar day
// holding the cumulative balance through the end of that day.
type BalanceService struct {
	store  store.Store
	logger zerolog.Logger
	loc    *time.Location
	now    Clock
}

func NewBalanceService(st store.Store, logger zerolog.Logger, loc *time.Location, now Clock) *BalanceService {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &BalanceService{
		store:  st,
		logger: logger,
		loc:    loc,
		now:    now,
	}
}

// DayBounds returns the half-open interval [start, next) of the calendar day
// containing t in the ledger time zone.
func (s *BalanceService) DayBounds(t time.Time) (start, next time.Time) {
	t = t.In(s.loc)
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// Today returns the current instant in the ledger time zone.
func (s *BalanceService) Today() time.Time {
	return s.now().In(s.loc)
}

// RecomputeDay rebuilds the balance entry of one day in its own unit of work.
// Calling it again without intervening writes yields the same amount.
func (s *BalanceService) RecomputeDay(ctx context.Context, accountID uuid.UUID, day time.Time) (*models.LedgerEntry, error) {
	var balance *models.LedgerEntry

	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		exists, err := tx.Accounts().Lock(ctx, accountID)
		if err != nil {
			return err
		}
		if !exists {
			return models.ErrAccountNotFound
		}

		balance, err = s.RecomputeDayInTx(ctx, tx, accountID, day)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID.String()).Time("day", day).Msg("Error recomputing daily balance")
		return nil, err
	}

	s.logger.Info().
		Str("account_id", accountID.String()).
		Str("balance", balance.Amount.StringFixed(models.AmountScale)).
		Msg("Daily balance recomputed")

	return balance, nil
}

// RecomputeDayInTx must run inside a unit of work that already holds the
// account lock.
func (s *BalanceService) RecomputeDayInTx(ctx context.Context, tx store.Store, accountID uuid.UUID, day time.Time) (*models.LedgerEntry, error) {
	start, next := s.DayBounds(day)

	entries, err := tx.Transactions().FindByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	// Entries arrive newest first. Everything after the day is skipped;
	// everything up to its end feeds the cumulative total.
	total := decimal.Zero
	var latest time.Time
	for _, e := range entries {
		if !e.CreatedAt.Before(next) {
			continue
		}
		if !e.Kind.IsMovement() {
			continue
		}
		if latest.IsZero() && !e.CreatedAt.Before(start) {
			latest = e.CreatedAt
		}
		total = total.Add(e.Signed())
	}

	stale, err := tx.Transactions().FindBalanceEntriesInRange(ctx, accountID, start, next)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance entries: %w", err)
	}
	for _, b := range stale {
		if err := tx.Transactions().DeleteByID(ctx, b.ID); err != nil {
			return nil, fmt.Errorf("failed to delete stale balance: %w", err)
		}
	}

	balance := &models.LedgerEntry{
		ID:          uuid.New(),
		AccountID:   accountID,
		Kind:        models.EntryKindBalance,
		Category:    models.CategoryDailyBalance,
		Amount:      total,
		Description: dailyBalanceDescription,
		CreatedAt:   s.stampWithin(start, next, latest),
	}
	if err := tx.Transactions().Insert(ctx, balance); err != nil {
		return nil, fmt.Errorf("failed to insert balance: %w", err)
	}

	s.logger.Debug().
		Str("account_id", accountID.String()).
		Time("day", start).
		Int("replaced", len(stale)).
		Str("balance", total.StringFixed(models.AmountScale)).
		Msg("Balance entry replaced")

	return balance, nil
}

// stampWithin dates a balance entry "now", but strictly after the newest
// movement of the day and never outside the day it describes.
func (s *BalanceService) stampWithin(start, next, latest time.Time) time.Time {
	ts := s.now().Truncate(time.Microsecond)
	if !latest.IsZero() && !ts.After(latest) {
		ts = latest.Add(time.Microsecond)
	}
	if last := next.Add(-time.Microsecond); ts.After(last) {
		ts = last
	}
	if ts.Before(start) {
		ts = start
	}
	return ts
}
