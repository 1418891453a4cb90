package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind is the closed set of ledger entry kinds.
type EntryKind string

const (
	EntryKindCredit  EntryKind = "CREDIT"
	EntryKindDebit   EntryKind = "DEBIT"
	EntryKindBalance EntryKind = "BALANCE"
)

const (
	CategoryDailyBalance = "DAILY_BALANCE"
	CategoryOpeningBonus = "OPENING_BONUS"

	// AmountScale is the number of fractional digits an amount may carry.
	AmountScale = 2
)

// ParseEntryKind accepts any case of CREDIT, DEBIT or BALANCE.
func ParseEntryKind(s string) (EntryKind, error) {
	switch k := EntryKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case EntryKindCredit, EntryKindDebit, EntryKindBalance:
		return k, nil
	default:
		return "", ErrInvalidKind
	}
}

// IsMovement reports whether the kind moves money in or out of an account.
func (k EntryKind) IsMovement() bool {
	return k == EntryKindCredit || k == EntryKindDebit
}

// LedgerEntry is one immutable movement or one materialized daily balance.
// Amount is never negative; the effect on the balance comes from Kind.
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id"`
	AccountID     uuid.UUID       `json:"accountId"`
	Kind          EntryKind       `json:"type"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	CorrelationID *uuid.UUID      `json:"correlationId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Signed returns the amount with the sign the entry contributes to a balance.
// Balance entries contribute nothing.
func (e *LedgerEntry) Signed() decimal.Decimal {
	switch e.Kind {
	case EntryKindCredit:
		return e.Amount
	case EntryKindDebit:
		return e.Amount.Neg()
	default:
		return decimal.Zero
	}
}

type CreateTransactionRequest struct {
	AccountID   string          `json:"accountId" validate:"required,uuid"`
	Type        string          `json:"type" validate:"required"`
	Category    string          `json:"category" validate:"required,max=64"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
}

type TransactionResponse struct {
	ID          uuid.UUID       `json:"id"`
	Type        EntryKind       `json:"type"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type StatementItemResponse struct {
	TransactionID uuid.UUID       `json:"transactionId"`
	Type          EntryKind       `json:"type"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func NewTransactionResponse(e *LedgerEntry) TransactionResponse {
	return TransactionResponse{
		ID:          e.ID,
		Type:        e.Kind,
		Category:    e.Category,
		Amount:      e.Amount,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
}

func NewStatementItemResponse(e *LedgerEntry) StatementItemResponse {
	return StatementItemResponse{
		TransactionID: e.ID,
		Type:          e.Kind,
		Category:      e.Category,
		Amount:        e.Amount,
		Description:   e.Description,
		CreatedAt:     e.CreatedAt,
	}
}
