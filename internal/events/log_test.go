package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/mmynk/troopledger/internal/models"
)

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := p.Publish(context.Background(), []models.LedgerEvent{
		{Type: models.EventPaymentRecorded, UnitID: "unit_1", EntryID: "je_1", Amount: models.Dollars(40, 0)},
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["type"] != "payment.recorded" || line["entry_id"] != "je_1" || line["amount"] != "$40.00" {
		t.Errorf("unexpected log line: %v", line)
	}
}
