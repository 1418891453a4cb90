package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBUrl string
	Port  string

	// Location pins the calendar-day boundaries used both when balances are
	// recomputed and when statements are filtered by date.
	Location *time.Location

	LogLevel  string
	LogFormat string

	OpeningBonus decimal.Decimal

	RateLimit float64
	RateBurst int

	KafkaBrokers []string
	KafkaTopic   string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// EnvFileLoaded is false when no .env file was found.
	EnvFileLoaded bool
}

func LoadConfig() (Config, error) {
	loaded := godotenv.Load() == nil

	cfg := Config{
		DBUrl:         os.Getenv("DB_URL"),
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "ledger.entries"),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		EnvFileLoaded: loaded,
	}

	var err error
	if cfg.Location, err = time.LoadLocation(getEnv("LEDGER_TIMEZONE", "UTC")); err != nil {
		return Config{}, fmt.Errorf("invalid LEDGER_TIMEZONE: %w", err)
	}

	if cfg.OpeningBonus, err = decimal.NewFromString(getEnv("OPENING_BONUS", "100.00")); err != nil {
		return Config{}, fmt.Errorf("invalid OPENING_BONUS: %w", err)
	}
	if cfg.OpeningBonus.IsNegative() {
		return Config{}, fmt.Errorf("invalid OPENING_BONUS: must not be negative")
	}

	if cfg.RateLimit, err = strconv.ParseFloat(getEnv("RATE_LIMIT", "10"), 64); err != nil {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT: %w", err)
	}
	if cfg.RateBurst, err = getInt("RATE_BURST", 20); err != nil {
		return Config{}, err
	}
	if cfg.DBMaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 25); err != nil {
		return Config{}, err
	}
	if cfg.DBMaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 10); err != nil {
		return Config{}, err
	}
	if cfg.DBConnMaxLifetime, err = time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m")); err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
