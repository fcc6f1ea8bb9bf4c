package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/troopledger/internal/auth"
	"github.com/mmynk/troopledger/internal/config"
	"github.com/mmynk/troopledger/internal/events"
	"github.com/mmynk/troopledger/internal/events/kafka"
	"github.com/mmynk/troopledger/internal/ledger"
	"github.com/mmynk/troopledger/internal/metrics"
	"github.com/mmynk/troopledger/internal/middleware"
	"github.com/mmynk/troopledger/internal/processor/square"
	"github.com/mmynk/troopledger/internal/service"
	"github.com/mmynk/troopledger/internal/storage/postgres"
	"github.com/mmynk/troopledger/internal/storage/sqlite"
	"github.com/mmynk/troopledger/internal/storage/sqlstore"
	"github.com/mmynk/troopledger/pkg/ledgerapi"
	"github.com/mmynk/troopledger/pkg/logging"
)

const tokenDuration = 24 * time.Hour

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Configure(cfg.LogLevel, cfg.LogFormat)

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "driver", cfg.DBDriver)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithMetrics(m),
		ledger.WithMaxAttempts(cfg.MaxTxAttempts),
		ledger.WithCaptureTimeout(cfg.CaptureTimeout),
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		opts = append(opts, ledger.WithPublisher(publisher))
		logger.Info("Publishing ledger events to Kafka", "brokers", cfg.KafkaBrokers)
	} else {
		opts = append(opts, ledger.WithPublisher(events.NewLogPublisher(logger)))
	}
	if cfg.SquareEnabled() {
		opts = append(opts, ledger.WithCaptureGateway(square.NewClient(square.Config{
			BaseURL:     cfg.SquareBaseURL,
			AccessToken: cfg.SquareAccessToken,
			LocationID:  cfg.SquareLocationID,
		}, nil)))
		logger.Info("Card capture enabled")
	}
	l := ledger.New(store, opts...)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, tokenDuration)
	mux := http.NewServeMux()

	ledgerPath, ledgerHandler := ledgerapi.NewLedgerServiceHandler(
		service.NewLedgerService(l, cfg.DefaultFeePolicy, logger),
		connect.WithInterceptors(
			middleware.MetricsInterceptor(m),
			middleware.RequireAuth(jwtManager),
			middleware.LoggingInterceptor(logger),
		),
	)
	mux.Handle(ledgerPath, ledgerHandler)

	if cfg.FeedKeyHash != "" {
		feedPath, feedHandler := ledgerapi.NewProcessorFeedServiceHandler(
			service.NewFeedService(l, logger),
			connect.WithInterceptors(
				middleware.MetricsInterceptor(m),
				middleware.RequireFeedKey(auth.NewFeedKeyVerifier(cfg.FeedKeyHash)),
				middleware.LoggingInterceptor(logger),
			),
		)
		mux.Handle(feedPath, feedHandler)
	} else {
		logger.Warn("FEED_KEY_HASH not set; processor feed endpoint disabled")
	}

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.DB().PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h2c.NewHandler(corsMiddleware(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config) (*sqlstore.Store, error) {
	if cfg.DBDriver == "postgres" {
		return postgres.New(cfg.DatabaseURL)
	}
	return sqlite.New(cfg.DBPath)
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
