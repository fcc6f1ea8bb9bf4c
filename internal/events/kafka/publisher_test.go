package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mmynk/troopledger/internal/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), []models.LedgerEvent{
		{Type: models.EventBillingCreated, UnitID: "unit_a", EntryID: "je_1", Amount: 10000, OccurredAt: at},
		{Type: models.EventEntryRecorded, UnitID: "unit_a", EntryID: "je_1", Amount: 10000, OccurredAt: at},
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("wrote %d messages, want 2", len(w.msgs))
	}

	msg := w.msgs[0]
	if string(msg.Key) != "unit_a" {
		t.Errorf("key = %q, want unit id", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "billing.created" {
		t.Errorf("headers = %+v, want event-type billing.created", msg.Headers)
	}
	var decoded models.LedgerEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("value is not JSON: %v", err)
	}
	if decoded.EntryID != "je_1" || decoded.Amount != 10000 || !decoded.OccurredAt.Equal(at) {
		t.Errorf("decoded = %+v", decoded)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("Close() = %v, closed = %v", err, w.closed)
	}
}

func TestPublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &Publisher{writer: w}

	err := p.Publish(context.Background(), []models.LedgerEvent{{Type: models.EventEntryVoided, UnitID: "unit_a"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := p.Publish(context.Background(), nil); err != nil {
		t.Errorf("empty publish error = %v", err)
	}
}
