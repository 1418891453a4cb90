package router

import (
	"net/http"

	"keysbank-api/internal/handlers"
	"keysbank-api/internal/middleware"
	"keysbank-api/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type Services struct {
	Accounts     *services.AccountService
	Customers    *services.CustomerService
	Transactions *services.TransactionService
	Statements   *services.StatementService
	Balances     *services.BalanceService
}

type Limits struct {
	Rate  float64
	Burst int
}

func SetupRouter(svc Services, limits Limits, logger zerolog.Logger) *mux.Router {
	accountHandler := handlers.NewAccountHandler(svc.Accounts, svc.Customers, logger)
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions, logger)
	statementHandler := handlers.NewStatementHandler(svc.Statements, svc.Balances, logger)

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(rate.Limit(limits.Rate), limits.Burst)

	r.Use(middleware.ErrorHandling(logger))
	r.Use(middleware.PerformanceMonitoring(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(rateLimiter.Middleware())
	r.Use(middleware.RequestValidation())

	r.HandleFunc("/customers", accountHandler.CreateCustomer).Methods("POST")

	r.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	r.HandleFunc("/accounts/login", accountHandler.Login).Methods("GET")
	r.HandleFunc("/accounts/{accountId}/statement", statementHandler.GetStatement).Methods("GET")
	r.HandleFunc("/accounts/{accountId}/balances/recompute", statementHandler.RecomputeBalance).Methods("POST")

	r.HandleFunc("/transaction", transactionHandler.Create).Methods("POST")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}
