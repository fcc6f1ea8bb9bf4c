// Package events delivers committed ledger events to downstream consumers.
package events

import (
	"context"
	"log/slog"

	"github.com/mmynk/troopledger/internal/models"
)

// LogPublisher writes each event to a structured logger. It is the publisher
// used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher. A nil logger means slog.Default().
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the events. It never fails.
func (p *LogPublisher) Publish(ctx context.Context, events []models.LedgerEvent) error {
	for _, e := range events {
		p.logger.LogAttrs(ctx, slog.LevelInfo, "ledger event",
			slog.String("type", string(e.Type)),
			slog.String("unit_id", e.UnitID),
			slog.String("entry_id", e.EntryID),
			slog.String("source_id", e.SourceID),
			slog.String("amount", e.Amount.String()),
		)
	}
	return nil
}
