package models

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
)

const DefaultAgency = "0001"

type Account struct {
	ID            uuid.UUID     `json:"id"`
	CustomerID    uuid.UUID     `json:"customerId"`
	Agency        string        `json:"agency"`
	AccountNumber string        `json:"accountNumber"`
	Status        AccountStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email,max=120"`
}

type CreateAccountRequest struct {
	CustomerID string `json:"customerId" validate:"required,uuid"`
}

type LoginResponse struct {
	AccountID     uuid.UUID `json:"accountId"`
	Agency        string    `json:"agency"`
	AccountNumber string    `json:"accountNumber"`
	CustomerName  string    `json:"customerName"`
}
