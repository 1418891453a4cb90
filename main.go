package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"keysbank-api/internal/config"
	"keysbank-api/internal/db"
	"keysbank-api/internal/events"
	"keysbank-api/internal/logger"
	"keysbank-api/internal/router"
	"keysbank-api/internal/services"
	"keysbank-api/internal/store"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.LoadConfig()
	if err != nil {
		bootLog := logger.InitLogger("info", "console")
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logger.InitLogger(cfg.LogLevel, cfg.LogFormat)
	if !cfg.EnvFileLoaded {
		log.Warn().Msg(".env file not found, using environment variables")
	}
	log.Info().Str("timezone", cfg.Location.String()).Msg("Application starting")

	database, err := db.InitDB(cfg.DBUrl, db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer database.Close()

	if err := db.RunMigrations(database, log); err != nil {
		log.Fatal().Err(err).Msg("Migrations failed")
	}

	publisher := newPublisher(cfg, log)
	defer publisher.Close()

	st := store.NewMySQLStore(database, log)

	balanceService := services.NewBalanceService(st, log, cfg.Location, time.Now)
	transactionService := services.NewTransactionService(st, log, balanceService, publisher, time.Now)
	customerService := services.NewCustomerService(st, log, time.Now)
	accountService := services.NewAccountService(st, log, transactionService, cfg.OpeningBonus, time.Now)
	statementService := services.NewStatementService(st, accountService, log, cfg.Location)

	handler := router.SetupRouter(router.Services{
		Accounts:     accountService,
		Customers:    customerService,
		Transactions: transactionService,
		Statements:   statementService,
		Balances:     balanceService,
	}, router.Limits{Rate: cfg.RateLimit, Burst: cfg.RateBurst}, log)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Msgf("Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Server stopped")
}

func newPublisher(cfg config.Config, log zerolog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info().Msg("KAFKA_BROKERS not set, ledger events disabled")
		return events.NoopPublisher{}
	}
	log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("Publishing ledger events to Kafka")
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
}
