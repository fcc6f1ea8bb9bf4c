// Package config loads server settings from the environment. A .env file in
// the working directory, if present, is read first; real environment
// variables take precedence over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/mmynk/troopledger/internal/models"
)

// Config is the full server configuration.
type Config struct {
	Port int

	// DBDriver is "sqlite" or "postgres".
	DBDriver    string
	DBPath      string
	DatabaseURL string

	LogLevel  string
	LogFormat string

	JWTSecret   string
	FeedKeyHash string

	// DefaultFeePolicy applies to units created without their own policy.
	DefaultFeePolicy models.FeePolicy

	KafkaBrokers []string
	KafkaTopic   string

	SquareBaseURL     string
	SquareAccessToken string
	SquareLocationID  string

	CaptureTimeout time.Duration
	MaxTxAttempts  int
}

// Load reads the configuration. Missing values fall back to defaults suitable
// for local development.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:            getEnv("DB_PATH", "./data/ledger.db"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		FeedKeyHash:       os.Getenv("FEED_KEY_HASH"),
		KafkaTopic:        os.Getenv("KAFKA_TOPIC"),
		SquareBaseURL:     os.Getenv("SQUARE_BASE_URL"),
		SquareAccessToken: os.Getenv("SQUARE_ACCESS_TOKEN"),
		SquareLocationID:  os.Getenv("SQUARE_LOCATION_ID"),
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.MaxTxAttempts, err = getInt("MAX_TX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.CaptureTimeout, err = getDuration("CAPTURE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	percent, err := decimal.NewFromString(getEnv("CARD_FEE_PERCENT", "2.6"))
	if err != nil {
		return nil, fmt.Errorf("invalid CARD_FEE_PERCENT: %w", err)
	}
	fixed, err := models.ParseMoney(getEnv("CARD_FEE_FIXED", "0.10"))
	if err != nil {
		return nil, fmt.Errorf("invalid CARD_FEE_FIXED: %w", err)
	}
	cfg.DefaultFeePolicy = models.FeePolicy{Percent: percent, Fixed: fixed}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.DefaultFeePolicy.Percent.IsNegative() || c.DefaultFeePolicy.Fixed < 0 {
		return errors.New("card fee settings must not be negative")
	}
	if c.MaxTxAttempts < 1 {
		return errors.New("MAX_TX_ATTEMPTS must be at least 1")
	}
	return nil
}

// SquareEnabled reports whether card capture is configured.
func (c *Config) SquareEnabled() bool {
	return c.SquareAccessToken != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
