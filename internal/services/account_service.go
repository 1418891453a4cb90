package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"keysbank-api/internal/models"
	"keysbank-api/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	maxAccountNumberAttempts = 5
	openingBonusDescription  = "Account opening bonus"
)

type AccountService struct {
	store              store.Store
	logger             zerolog.Logger
	transactionService *TransactionService
	openingBonus       decimal.Decimal
	now                Clock
	accountNumber      func() string
}

func NewAccountService(st store.Store, logger zerolog.Logger, transactionService *TransactionService, openingBonus decimal.Decimal, now Clock) *AccountService {
	if now == nil {
		now = time.Now
	}
	return &AccountService{
		store:              st,
		logger:             logger,
		transactionService: transactionService,
		openingBonus:       openingBonus,
		now:                now,
		accountNumber:      randomAccountNumber,
	}
}

func randomAccountNumber() string {
	return fmt.Sprintf("%06d", rand.IntN(900000)+100000)
}

// Create opens the single account of a customer and credits the opening
// bonus, both in one unit of work.
func (s *AccountService) Create(ctx context.Context, customerID uuid.UUID) (*models.Account, error) {
	var (
		account        *models.Account
		bonus, balance *models.LedgerEntry
	)

	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		exists, err := tx.Customers().Exists(ctx, customerID)
		if err != nil {
			return err
		}
		if !exists {
			return models.ErrCustomerNotFound
		}

		taken, err := tx.Accounts().ExistsByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if taken {
			return models.ErrAccountAlreadyExists
		}

		account, err = s.insertAccount(ctx, tx, customerID)
		if err != nil {
			return err
		}

		if !s.openingBonus.IsPositive() {
			return nil
		}
		bonus, balance, err = s.transactionService.RecordInTx(ctx, tx, RecordInput{
			AccountID:   account.ID,
			Kind:        models.EntryKindCredit,
			Category:    models.CategoryOpeningBonus,
			Amount:      s.openingBonus,
			Description: openingBonusDescription,
		})
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID.String()).Msg("Error creating account")
		return nil, err
	}

	s.logger.Info().
		Str("account_id", account.ID.String()).
		Str("customer_id", customerID.String()).
		Str("account_number", account.AccountNumber).
		Msg("Account created")

	if bonus != nil {
		s.transactionService.PublishRecorded(ctx, bonus, balance)
	}
	return account, nil
}

func (s *AccountService) insertAccount(ctx context.Context, tx store.Store, customerID uuid.UUID) (*models.Account, error) {
	for attempt := 1; attempt <= maxAccountNumberAttempts; attempt++ {
		account := &models.Account{
			ID:            uuid.New(),
			CustomerID:    customerID,
			Agency:        models.DefaultAgency,
			AccountNumber: s.accountNumber(),
			Status:        models.AccountStatusActive,
			CreatedAt:     s.now().Truncate(time.Microsecond),
		}

		err := tx.Accounts().Create(ctx, account)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, models.ErrAccountNumberTaken) {
			return nil, err
		}
		s.logger.Warn().Str("account_number", account.AccountNumber).Int("attempt", attempt).Msg("Account number collision")
	}
	return nil, fmt.Errorf("failed to allocate account number after %d attempts: %w", maxAccountNumberAttempts, models.ErrAccountNumberTaken)
}

// Login resolves agency and account number to the account id the other
// endpoints take.
func (s *AccountService) Login(ctx context.Context, agency, accountNumber string) (*models.LoginResponse, error) {
	account, err := s.store.Accounts().FindByAgencyAndNumber(ctx, strings.TrimSpace(agency), strings.TrimSpace(accountNumber))
	if err != nil {
		return nil, err
	}

	customer, err := s.store.Customers().FindByID(ctx, account.CustomerID)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		AccountID:     account.ID,
		Agency:        account.Agency,
		AccountNumber: account.AccountNumber,
		CustomerName:  customer.Name,
	}, nil
}

func (s *AccountService) Exists(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return s.store.Accounts().Exists(ctx, accountID)
}

var _ AccountChecker = (*AccountService)(nil)
