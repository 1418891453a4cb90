package handlers

import (
	"net/http"

	"keysbank-api/internal/models"
	"keysbank-api/internal/services"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type AccountHandler struct {
	accountService  *services.AccountService
	customerService *services.CustomerService
	logger          zerolog.Logger
}

func NewAccountHandler(accountService *services.AccountService, customerService *services.CustomerService, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService:  accountService,
		customerService: customerService,
		logger:          logger,
	}
}

func (h *AccountHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCustomerRequest
	if !decodeAndValidate(w, r, h.logger, &req) {
		return
	}

	customer, err := h.customerService.Create(r.Context(), req.Name, req.Email)
	if err != nil {
		respondWithDomainError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, customer)
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	if !decodeAndValidate(w, r, h.logger, &req) {
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		rejectRequest(w, r, h.logger, "invalid_customer_id", "Invalid customer ID")
		return
	}

	account, err := h.accountService.Create(r.Context(), customerID)
	if err != nil {
		respondWithDomainError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	agency := r.URL.Query().Get("agency")
	accountNumber := r.URL.Query().Get("accountNumber")
	if agency == "" || accountNumber == "" {
		rejectRequest(w, r, h.logger, "missing_parameter", "agency and accountNumber are required")
		return
	}

	login, err := h.accountService.Login(r.Context(), agency, accountNumber)
	if err != nil {
		respondWithDomainError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, login)
}
