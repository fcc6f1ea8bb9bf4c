// Package ledger is the unit financial ledger engine. It is the only writer of
// journal entries and cached account balances: every operation validates its
// input, then runs as a single storage transaction that posts balanced
// entries and updates the affected balances before committing.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/troopledger/internal/metrics"
	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/internal/storage"
)

const (
	defaultMaxAttempts    = 3
	defaultCaptureTimeout = 30 * time.Second
)

// Publisher receives ledger events after the transaction that produced them
// has committed.
type Publisher interface {
	Publish(ctx context.Context, events []models.LedgerEvent) error
}

// Ledger executes ledger operations against a Store.
type Ledger struct {
	store          storage.Store
	logger         *slog.Logger
	publisher      Publisher
	gateway        CaptureGateway
	metrics        *metrics.Metrics
	maxAttempts    int
	captureTimeout time.Duration
	clock          func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithPublisher sets the event publisher. Without one, events are dropped.
func WithPublisher(p Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithCaptureGateway sets the card processor used to capture card payments.
func WithCaptureGateway(g CaptureGateway) Option {
	return func(l *Ledger) { l.gateway = g }
}

// WithMetrics sets the collectors to record into.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithMaxAttempts bounds how many times a conflicting transaction is run.
func WithMaxAttempts(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithCaptureTimeout bounds a single card capture call.
func WithCaptureTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.captureTimeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) { l.clock = clock }
}

// New creates a Ledger on top of store.
func New(store storage.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:          store,
		logger:         slog.Default(),
		maxAttempts:    defaultMaxAttempts,
		captureTimeout: defaultCaptureTimeout,
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) now() time.Time {
	return l.clock().UTC()
}

// publish hands committed events to the publisher. Failures are logged and
// never undo the committed write.
func (l *Ledger) publish(ctx context.Context, events []models.LedgerEvent) {
	if l.publisher == nil || len(events) == 0 {
		return
	}
	if err := l.publisher.Publish(ctx, events); err != nil {
		l.logger.Error("failed to publish ledger events", "error", err, "count", len(events))
	}
}

func entryEvent(t models.LedgerEventType, e *models.JournalEntry) models.LedgerEvent {
	debit, _ := e.Totals()
	return models.LedgerEvent{
		Type:       t,
		UnitID:     e.UnitID,
		EntryID:    e.ID,
		SourceType: e.SourceType,
		SourceID:   e.SourceID,
		AccountIDs: e.AccountIDs(),
		Amount:     debit,
		OccurredAt: e.CreatedAt,
	}
}
