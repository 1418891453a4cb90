package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"keysbank-api/internal/middleware"
	"keysbank-api/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	respondWithJSON(w, code, errorBody{Error: errorCode, Message: message})
}

// requestLogger tags log lines with the id RequestLogging assigned.
func requestLogger(logger zerolog.Logger, r *http.Request) zerolog.Logger {
	ctx := logger.With().Str("path", r.URL.Path)
	if id, ok := middleware.GetRequestID(r); ok {
		ctx = ctx.Str("request_id", id)
	}
	return ctx.Logger()
}

// rejectRequest logs a malformed parameter and answers 400.
func rejectRequest(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, errorCode, message string) {
	log := requestLogger(logger, r)
	log.Warn().Str("error_code", errorCode).Msg(message)
	respondWithError(w, http.StatusBadRequest, errorCode, message)
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the 400 response itself and reports whether the handler may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log := requestLogger(logger, r)
		log.Warn().Err(err).Msg("Invalid request body")
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		log := requestLogger(logger, r)
		log.Warn().Err(err).Msg("Request validation failed")
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			respondWithError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return false
		}
		fields := make(map[string]string, len(verrs))
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
		respondWithJSON(w, http.StatusBadRequest, errorBody{
			Error:   "validation_failed",
			Message: strings.Join(parts, ", "),
			Fields:  fields,
		})
		return false
	}
	return true
}

// statusFor maps domain errors to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrAccountNotFound):
		return http.StatusNotFound, "account_not_found"
	case errors.Is(err, models.ErrCustomerNotFound):
		return http.StatusNotFound, "customer_not_found"
	case errors.Is(err, models.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, models.ErrInvalidKind):
		return http.StatusBadRequest, "invalid_type"
	case errors.Is(err, models.ErrInvalidCategory),
		errors.Is(err, models.ErrInvalidCustomer),
		errors.Is(err, models.ErrInvalidDate),
		errors.Is(err, models.ErrInvalidDateRange):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, models.ErrEmailAlreadyExists),
		errors.Is(err, models.ErrAccountAlreadyExists),
		errors.Is(err, models.ErrAccountNumberTaken):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// respondWithDomainError logs err with the request id and writes the mapped
// status. Internal failures are logged in full but answered generically.
func respondWithDomainError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	code, errorCode := statusFor(err)
	message := err.Error()

	log := requestLogger(logger, r)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		message = "An internal error occurred"
	} else {
		log.Warn().Err(err).Int("status", code).Msg("Request rejected")
	}
	respondWithError(w, code, errorCode, message)
}
