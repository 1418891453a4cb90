package handlers

import (
	"net/http"

	"keysbank-api/internal/models"
	"keysbank-api/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type StatementHandler struct {
	statementService *services.StatementService
	balanceService   *services.BalanceService
	logger           zerolog.Logger
}

func NewStatementHandler(statementService *services.StatementService, balanceService *services.BalanceService, logger zerolog.Logger) *StatementHandler {
	return &StatementHandler{
		statementService: statementService,
		balanceService:   balanceService,
		logger:           logger,
	}
}

func (h *StatementHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(mux.Vars(r)["accountId"])
	if err != nil {
		rejectRequest(w, r, h.logger, "invalid_account_id", "Invalid account ID")
		return
	}

	q := r.URL.Query()
	var filter services.StatementFilter
	if filter.StartDate, err = h.statementService.ParseDate(q.Get("startDate")); err != nil {
		respondWithDomainError(w, r, h.logger, err)
		return
	}
	if filter.EndDate, err = h.statementService.ParseDate(q.Get("endDate")); err != nil {
		respondWithDomainError(w, r, h.logger, err)
		return
	}
	if filter.Kind, err = services.ParseKindFilter(q.Get("type")); err != nil {
		respondWithDomainError(w, r, h.logger, err)
		return
	}

	entries, err := h.statementService.Statement(r.Context(), accountID, filter)
	if err != nil {
		respondWithDomainError(w, r, h.logger, err)
		return
	}

	items := make([]models.StatementItemResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, models.NewStatementItemResponse(e))
	}
	respondWithJSON(w, http.StatusOK, items)
}

// RecomputeBalance rebuilds one day's balance entry; the day defaults to today.
func (h *StatementHandler) RecomputeBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(mux.Vars(r)["accountId"])
	if err != nil {
		rejectRequest(w, r, h.logger, "invalid_account_id", "Invalid account ID")
		return
	}

	day, err := h.statementService.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		respondWithDomainError(w, r, h.logger, err)
		return
	}
	if day == nil {
		today := h.balanceService.Today()
		day = &today
	}

	balance, err := h.balanceService.RecomputeDay(r.Context(), accountID, *day)
	if err != nil {
		respondWithDomainError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, models.NewStatementItemResponse(balance))
}
