package config

import (
	"testing"
	"time"

	"github.com/mmynk/troopledger/internal/models"
)

var configKeys = []string{
	"PORT", "DB_DRIVER", "DB_PATH", "DATABASE_URL", "LOG_LEVEL", "LOG_FORMAT",
	"JWT_SECRET", "FEED_KEY_HASH", "CARD_FEE_PERCENT", "CARD_FEE_FIXED",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "SQUARE_BASE_URL", "SQUARE_ACCESS_TOKEN",
	"SQUARE_LOCATION_ID", "CAPTURE_TIMEOUT", "MAX_TX_ATTEMPTS",
}

func clearEnv(t *testing.T) {
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := fromEnv()
	if err != nil {
		t.Fatalf("fromEnv failed: %v", err)
	}
	if cfg.Port != 8080 || cfg.DBDriver != "sqlite" || cfg.MaxTxAttempts != 3 || cfg.CaptureTimeout != 30*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.DefaultFeePolicy.Percent.String() != "2.6" || cfg.DefaultFeePolicy.Fixed != models.Cents(10) {
		t.Errorf("fee policy = %+v, want 2.6%% + $0.10", cfg.DefaultFeePolicy)
	}
	if cfg.SquareEnabled() || len(cfg.KafkaBrokers) != 0 {
		t.Errorf("optional integrations should be off by default")
	}
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger?sslmode=disable")
	t.Setenv("CARD_FEE_PERCENT", "2.9")
	t.Setenv("CARD_FEE_FIXED", "$0.30")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("SQUARE_ACCESS_TOKEN", "sq-token")
	t.Setenv("CAPTURE_TIMEOUT", "10s")

	cfg, err := fromEnv()
	if err != nil {
		t.Fatalf("fromEnv failed: %v", err)
	}
	if cfg.Port != 9090 || cfg.DBDriver != "postgres" {
		t.Errorf("port/driver = %d/%s", cfg.Port, cfg.DBDriver)
	}
	if cfg.DefaultFeePolicy.Fixed != models.Cents(30) || cfg.DefaultFeePolicy.Percent.String() != "2.9" {
		t.Errorf("fee policy = %+v", cfg.DefaultFeePolicy)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("brokers = %v", cfg.KafkaBrokers)
	}
	if !cfg.SquareEnabled() || cfg.CaptureTimeout != 10*time.Second {
		t.Errorf("square/timeout = %v/%v", cfg.SquareEnabled(), cfg.CaptureTimeout)
	}
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"PORT": "http"}},
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}},
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}},
		{"bad percent", map[string]string{"CARD_FEE_PERCENT": "lots"}},
		{"fixed fee with fractions of a cent", map[string]string{"CARD_FEE_FIXED": "0.105"}},
		{"negative percent", map[string]string{"CARD_FEE_PERCENT": "-1"}},
		{"bad timeout", map[string]string{"CAPTURE_TIMEOUT": "soon"}},
		{"zero attempts", map[string]string{"MAX_TX_ATTEMPTS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := fromEnv(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
