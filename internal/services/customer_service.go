package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"keysbank-api/internal/models"
	"keysbank-api/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type CustomerService struct {
	store  store.Store
	logger zerolog.Logger
	now    Clock
}

func NewCustomerService(st store.Store, logger zerolog.Logger, now Clock) *CustomerService {
	if now == nil {
		now = time.Now
	}
	return &CustomerService{
		store:  st,
		logger: logger,
		now:    now,
	}
}

func (s *CustomerService) Create(ctx context.Context, name, email string) (*models.Customer, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, models.ErrInvalidCustomer
	}

	customer := &models.Customer{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		CreatedAt: s.now().Truncate(time.Microsecond),
	}
	if err := s.store.Customers().Create(ctx, customer); err != nil {
		if !errors.Is(err, models.ErrEmailAlreadyExists) {
			s.logger.Error().Err(err).Msg("Error creating customer")
		}
		return nil, err
	}

	s.logger.Info().Str("customer_id", customer.ID.String()).Str("email", customer.Email).Msg("Customer registered successfully")
	return customer, nil
}

func (s *CustomerService) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return s.store.Customers().FindByID(ctx, id)
}
