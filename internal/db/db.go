package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NormalizeDSN forces the driver options the stores rely on: DATETIME
// columns scanned into time.Time, always in UTC.
func NormalizeDSN(dbURL string) (string, error) {
	cfg, err := mysql.ParseDSN(dbURL)
	if err != nil {
		return "", fmt.Errorf("invalid DB_URL: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func InitDB(dbURL string, pool PoolConfig, logger zerolog.Logger) (*sql.DB, error) {
	dsn, err := NormalizeDSN(dbURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database is not responding: %w", err)
	}

	logger.Info().Int("max_open_conns", pool.MaxOpenConns).Msg("Connected to database")
	return db, nil
}

func RunMigrations(db *sql.DB, logger zerolog.Logger) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(120) NOT NULL,
			email VARCHAR(120) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			UNIQUE KEY uq_customers_email (email)
		);`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id CHAR(36) PRIMARY KEY,
			customer_id CHAR(36) NOT NULL,
			agency VARCHAR(8) NOT NULL,
			account_number VARCHAR(16) NOT NULL,
			status VARCHAR(16) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			UNIQUE KEY uq_accounts_customer (customer_id),
			UNIQUE KEY uq_accounts_number (agency, account_number),
			FOREIGN KEY (customer_id) REFERENCES customers(id)
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id CHAR(36) PRIMARY KEY,
			seq BIGINT NOT NULL AUTO_INCREMENT,
			account_id CHAR(36) NOT NULL,
			type VARCHAR(16) NOT NULL,
			category VARCHAR(64) NOT NULL,
			amount DECIMAL(18,2) NOT NULL,
			description VARCHAR(255),
			correlation_id CHAR(36),
			created_at DATETIME(6) NOT NULL,
			UNIQUE KEY uq_transactions_seq (seq),
			INDEX idx_transactions_account_created (account_id, created_at),
			INDEX idx_transactions_account_type_created (account_id, type, created_at),
			FOREIGN KEY (account_id) REFERENCES accounts(id)
		);`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	logger.Info().Int("tables", len(queries)).Msg("Migrations completed")
	return nil
}
