package services

import (
	"context"
	"time"

	"keysbank-api/internal/models"
	"keysbank-api/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DateLayout = "2006-01-02"

// AccountChecker is the account-existence collaborator of the ledger.
type AccountChecker interface {
	Exists(ctx context.Context, accountID uuid.UUID) (bool, error)
}

// StatementFilter axes are independent; a nil field does not filter.
// StartDate and EndDate are taken at day granularity, both inclusive.
type StatementFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Kind      *models.EntryKind
}

type StatementService struct {
	store    store.Store
	accounts AccountChecker
	logger   zerolog.Logger
	loc      *time.Location
}

func NewStatementService(st store.Store, accounts AccountChecker, logger zerolog.Logger, loc *time.Location) *StatementService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatementService{
		store:    st,
		accounts: accounts,
		logger:   logger,
		loc:      loc,
	}
}

// ParseDate reads a YYYY-MM-DD date in the ledger time zone. An empty
// string yields nil.
func (s *StatementService) ParseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(DateLayout, value, s.loc)
	if err != nil {
		return nil, models.ErrInvalidDate
	}
	return &d, nil
}

// ParseKindFilter reads an optional type filter. An empty string yields nil.
func ParseKindFilter(value string) (*models.EntryKind, error) {
	if value == "" {
		return nil, nil
	}
	kind, err := models.ParseEntryKind(value)
	if err != nil {
		return nil, err
	}
	return &kind, nil
}

// Statement returns the account's entries, newest first, balance entries
// included.
func (s *StatementService) Statement(ctx context.Context, accountID uuid.UUID, filter StatementFilter) ([]*models.LedgerEntry, error) {
	if filter.Kind != nil {
		if _, err := models.ParseEntryKind(string(*filter.Kind)); err != nil {
			return nil, err
		}
	}

	from, to, dated, err := s.bounds(filter)
	if err != nil {
		return nil, err
	}

	exists, err := s.accounts.Exists(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.ErrAccountNotFound
	}

	txs := s.store.Transactions()
	var entries []*models.LedgerEntry
	switch {
	case dated && filter.Kind != nil:
		entries, err = txs.FindByAccountKindAndRange(ctx, accountID, *filter.Kind, from, to)
	case dated:
		entries, err = txs.FindByAccountAndRange(ctx, accountID, from, to)
	case filter.Kind != nil:
		entries, err = txs.FindByAccountAndKind(ctx, accountID, *filter.Kind)
	default:
		entries, err = txs.FindByAccount(ctx, accountID)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID.String()).Msg("Error fetching statement")
		return nil, err
	}

	return entries, nil
}

// bounds converts the date axis into a half-open instant range. A missing
// side is open-ended.
func (s *StatementService) bounds(filter StatementFilter) (from, to time.Time, dated bool, err error) {
	if filter.StartDate == nil && filter.EndDate == nil {
		return time.Time{}, time.Time{}, false, nil
	}

	from, to = store.FarPast, store.FarFuture
	if filter.StartDate != nil {
		from = s.startOfDay(*filter.StartDate)
	}
	if filter.EndDate != nil {
		to = s.startOfDay(*filter.EndDate).AddDate(0, 0, 1)
	}
	if filter.StartDate != nil && filter.EndDate != nil && s.startOfDay(*filter.StartDate).After(s.startOfDay(*filter.EndDate)) {
		return time.Time{}, time.Time{}, false, models.ErrInvalidDateRange
	}
	return from, to, true, nil
}

func (s *StatementService) startOfDay(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}
