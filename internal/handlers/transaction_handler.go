package handlers

import (
	"net/http"

	"keysbank-api/internal/models"
	"keysbank-api/internal/services"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type TransactionHandler struct {
	transactionService *services.TransactionService
	logger             zerolog.Logger
}

func NewTransactionHandler(transactionService *services.TransactionService, logger zerolog.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTransactionRequest
	if !decodeAndValidate(w, r, h.logger, &req) {
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		rejectRequest(w, r, h.logger, "invalid_account_id", "Invalid account ID")
		return
	}

	kind, err := models.ParseEntryKind(req.Type)
	if err != nil || !kind.IsMovement() {
		rejectRequest(w, r, h.logger, "invalid_type", "type must be CREDIT or DEBIT")
		return
	}

	entry, err := h.transactionService.Record(r.Context(), services.RecordInput{
		AccountID:   accountID,
		Kind:        kind,
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		respondWithDomainError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, models.NewTransactionResponse(entry))
}
