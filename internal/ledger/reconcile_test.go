package ledger

import (
	"errors"
	"testing"

	"github.com/mmynk/troopledger/internal/models"
)

func TestReconcileUnlinkedTransaction(t *testing.T) {
	f := setupLedger(t, 2)
	alice := f.scouts[0]

	txn, err := f.ledger.IngestProcessorTransaction(f.ctx, feed, models.ProcessorRecord{
		ProcessorPaymentID: "sq-999",
		AmountMinor:        4000,
		FeeMinor:           126,
		Status:             models.ProcessorStatusCompleted,
		BuyerEmail:         "grandma@example.com",
	})
	if err != nil {
		t.Fatalf("IngestProcessorTransaction failed: %v", err)
	}
	if txn.State != models.ReconcileUnlinked {
		t.Fatalf("state = %s, want unlinked", txn.State)
	}

	unlinked, err := f.ledger.ListUnlinkedTransactions(f.ctx)
	if err != nil {
		t.Fatalf("ListUnlinkedTransactions failed: %v", err)
	}
	if len(unlinked) != 1 || unlinked[0].ID != txn.ID {
		t.Fatalf("unlinked = %+v, want the ingested transaction", unlinked)
	}

	if _, err := f.ledger.ReconcileTransaction(f.ctx, feed, txn.ID); !errors.Is(err, ErrNotLinked) {
		t.Fatalf("ReconcileTransaction() on unlinked error = %v, want ErrNotLinked", err)
	}
	if got := f.entryCount(t, alice.ID); got != 0 {
		t.Fatalf("alice has %d entries before linking, want 0", got)
	}

	if _, err := f.ledger.LinkTransaction(f.ctx, treasurer, txn.ID, alice.ID); err != nil {
		t.Fatalf("LinkTransaction failed: %v", err)
	}
	payment, err := f.ledger.ReconcileTransaction(f.ctx, treasurer, txn.ID)
	if err != nil {
		t.Fatalf("ReconcileTransaction failed: %v", err)
	}
	if payment.Amount != 4000 || payment.FeeAmount != 126 || payment.NetAmount != 3874 {
		t.Errorf("payment = %+v, want processor-reported amount and fee", payment)
	}
	if payment.ProcessorRef != "sq-999" || payment.Method != models.PaymentMethodCard {
		t.Errorf("payment not tied to the processor transaction: %+v", payment)
	}
	if got := f.billing(t, alice.ID); got != 4000 {
		t.Errorf("billing = %s, want $40.00", got)
	}

	again, err := f.ledger.ReconcileTransaction(f.ctx, treasurer, txn.ID)
	if err != nil {
		t.Fatalf("ReconcileTransaction() again failed: %v", err)
	}
	if again.ID != payment.ID {
		t.Errorf("re-reconcile returned payment %s, want %s", again.ID, payment.ID)
	}
	if got := f.entryCount(t, alice.ID); got != 1 {
		t.Errorf("alice has %d entries, want exactly 1", got)
	}
	if got := f.pub.count(models.EventTransactionReconciled); got != 1 {
		t.Errorf("published %d reconciled events, want 1", got)
	}

	if _, err := f.ledger.LinkTransaction(f.ctx, treasurer, txn.ID, f.scouts[1].ID); !errors.Is(err, ErrAlreadyReconciled) {
		t.Errorf("LinkTransaction() after reconcile error = %v, want ErrAlreadyReconciled", err)
	}
	f.assertConsistent(t)
}

func TestIngestAutoLinksByPayerEmail(t *testing.T) {
	f := setupLedger(t, 2)

	txn, err := f.ledger.IngestProcessorTransaction(f.ctx, feed, models.ProcessorRecord{
		ProcessorPaymentID: "sq-555",
		AmountMinor:        2000,
		FeeMinor:           62,
		Status:             "PENDING",
		BuyerEmail:         "PARENT2@example.com",
	})
	if err != nil {
		t.Fatalf("IngestProcessorTransaction failed: %v", err)
	}
	if txn.State != models.ReconcileLinked || txn.AccountID != f.scouts[1].ID {
		t.Fatalf("transaction = %+v, want linked to scout 2", txn)
	}

	if _, err := f.ledger.ReconcileTransaction(f.ctx, feed, txn.ID); !errors.Is(err, ErrNotSettled) {
		t.Fatalf("ReconcileTransaction() on pending error = %v, want ErrNotSettled", err)
	}

	// The feed reports the payment completed.
	txn, err = f.ledger.IngestProcessorTransaction(f.ctx, feed, models.ProcessorRecord{
		ProcessorPaymentID: "sq-555",
		AmountMinor:        2000,
		FeeMinor:           62,
		Status:             models.ProcessorStatusCompleted,
	})
	if err != nil {
		t.Fatalf("IngestProcessorTransaction failed: %v", err)
	}
	if txn.State != models.ReconcileLinked {
		t.Errorf("re-ingest changed state to %s", txn.State)
	}

	payment, err := f.ledger.ReconcileTransaction(f.ctx, feed, txn.ID)
	if err != nil {
		t.Fatalf("ReconcileTransaction failed: %v", err)
	}
	if payment.CreatedBy != feed.UserID {
		t.Errorf("created by %q, want %q", payment.CreatedBy, feed.UserID)
	}
	if got := f.billing(t, f.scouts[1].ID); got != 2000 {
		t.Errorf("billing = %s, want $20.00", got)
	}
}

func TestReingestLinksOnceEmailMatches(t *testing.T) {
	f := setupLedger(t, 2)

	txn, err := f.ledger.IngestProcessorTransaction(f.ctx, feed, models.ProcessorRecord{
		ProcessorPaymentID: "sq-777",
		AmountMinor:        1500,
		FeeMinor:           49,
		Status:             models.ProcessorStatusCompleted,
	})
	if err != nil {
		t.Fatalf("IngestProcessorTransaction failed: %v", err)
	}
	if txn.State != models.ReconcileUnlinked {
		t.Fatalf("state = %s, want unlinked", txn.State)
	}

	txn, err = f.ledger.IngestProcessorTransaction(f.ctx, feed, models.ProcessorRecord{
		ProcessorPaymentID: "sq-777",
		AmountMinor:        1500,
		FeeMinor:           49,
		Status:             models.ProcessorStatusCompleted,
		BuyerEmail:         "parent1@example.com",
	})
	if err != nil {
		t.Fatalf("IngestProcessorTransaction failed: %v", err)
	}
	if txn.State != models.ReconcileLinked || txn.AccountID != f.scouts[0].ID || txn.UnitID != f.unit.ID {
		t.Fatalf("transaction = %+v, want linked to scout 1", txn)
	}

	stored, err := f.store.GetProcessorTransaction(f.ctx, txn.ID)
	if err != nil {
		t.Fatalf("GetProcessorTransaction failed: %v", err)
	}
	if stored.State != models.ReconcileLinked || stored.AccountID != f.scouts[0].ID {
		t.Errorf("stored transaction = %+v, want linked to scout 1", stored)
	}

	unlinked, err := f.ledger.ListUnlinkedTransactions(f.ctx)
	if err != nil {
		t.Fatalf("ListUnlinkedTransactions failed: %v", err)
	}
	if len(unlinked) != 0 {
		t.Errorf("unlinked = %+v, want none", unlinked)
	}
}

func TestIngestValidation(t *testing.T) {
	f := setupLedger(t, 0)

	tests := []struct {
		name    string
		caller  Caller
		rec     models.ProcessorRecord
		wantErr error
	}{
		{"missing id", feed, models.ProcessorRecord{AmountMinor: 100}, ErrInvalidInput},
		{"zero amount", feed, models.ProcessorRecord{ProcessorPaymentID: "sq-1"}, ErrInvalidInput},
		{"fee above amount", feed, models.ProcessorRecord{ProcessorPaymentID: "sq-1", AmountMinor: 100, FeeMinor: 101}, ErrInvalidInput},
		{"parent cannot ingest", parent, models.ProcessorRecord{ProcessorPaymentID: "sq-1", AmountMinor: 100}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.IngestProcessorTransaction(f.ctx, tt.caller, tt.rec)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("IngestProcessorTransaction() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
