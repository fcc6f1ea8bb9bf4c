package ledger

import (
	"errors"
	"testing"

	"github.com/mmynk/troopledger/internal/models"
)

// A $40 card payment at 2.6% + $0.10.
func TestCardPaymentFee(t *testing.T) {
	f := setupLedger(t, 1)
	alice := f.scouts[0]

	payment, err := f.ledger.RecordPayment(f.ctx, treasurer, RecordPaymentParams{
		AccountID:    alice.ID,
		Amount:       models.Dollars(40, 0),
		Method:       models.PaymentMethodCard,
		ProcessorRef: "sq-123",
	})
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if payment.FeeAmount != models.Cents(114) {
		t.Errorf("fee = %s, want $1.14", payment.FeeAmount)
	}
	if payment.NetAmount != models.Dollars(38, 86) {
		t.Errorf("net = %s, want $38.86", payment.NetAmount)
	}
	if got := f.billing(t, alice.ID); got != models.Dollars(40, 0) {
		t.Errorf("billing = %s, want +$40.00 (gross)", got)
	}

	txn, err := f.store.GetProcessorTransactionByPaymentID(f.ctx, "sq-123")
	if err != nil {
		t.Fatalf("GetProcessorTransactionByPaymentID failed: %v", err)
	}
	if txn.State != models.ReconcileReconciled || !txn.IsReconciled || txn.PaymentID != payment.ID || txn.AccountID != alice.ID {
		t.Errorf("processor transaction not reconciled to the payment: %+v", txn)
	}

	t.Run("same processor reference is idempotent", func(t *testing.T) {
		again, err := f.ledger.RecordPayment(f.ctx, treasurer, RecordPaymentParams{
			AccountID:    alice.ID,
			Amount:       models.Dollars(40, 0),
			Method:       models.PaymentMethodCard,
			ProcessorRef: "sq-123",
		})
		if err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}
		if again.ID != payment.ID {
			t.Errorf("got payment %s, want existing %s", again.ID, payment.ID)
		}
		if got := f.entryCount(t, alice.ID); got != 1 {
			t.Errorf("alice has %d entries, want 1", got)
		}
	})

	t.Run("processor payment entries cannot be voided locally", func(t *testing.T) {
		_, err := f.ledger.VoidEntry(f.ctx, treasurer, payment.EntryID, "refund")
		if !errors.Is(err, ErrEntryManaged) {
			t.Fatalf("VoidEntry() error = %v, want ErrEntryManaged", err)
		}
	})

	f.assertConsistent(t)
}

func TestCashPaymentHasNoFee(t *testing.T) {
	f := setupLedger(t, 1)

	payment, err := f.ledger.RecordPayment(f.ctx, treasurer, RecordPaymentParams{
		AccountID: f.scouts[0].ID,
		Amount:    models.Dollars(40, 0),
		Method:    models.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if payment.FeeAmount != 0 || payment.NetAmount != payment.Amount {
		t.Errorf("cash payment fee = %s net = %s, want no fee", payment.FeeAmount, payment.NetAmount)
	}
	if payment.CreatedBy != treasurer.UserID {
		t.Errorf("created by %q, want %q", payment.CreatedBy, treasurer.UserID)
	}
}

func TestCardCapture(t *testing.T) {
	f := setupLedger(t, 1)
	alice := f.scouts[0]

	payment, err := f.ledger.RecordPayment(f.ctx, treasurer, RecordPaymentParams{
		AccountID: alice.ID,
		Amount:    models.Dollars(40, 0),
		Method:    models.PaymentMethodCard,
		CardToken: "cnon:card-nonce-ok",
	})
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if payment.ProcessorRef != "sq-captured-1" {
		t.Errorf("processor ref = %q, want the captured payment id", payment.ProcessorRef)
	}
	if f.gw.calls != 1 {
		t.Fatalf("gateway called %d times, want 1", f.gw.calls)
	}
	req := f.gw.requests[0]
	if req.AmountMinor != 4000 || req.SourceToken != "cnon:card-nonce-ok" || req.IdempotencyKey == "" {
		t.Errorf("unexpected capture request: %+v", req)
	}
	if got := f.billing(t, alice.ID); got != models.Dollars(40, 0) {
		t.Errorf("billing = %s, want $40.00", got)
	}
}

func TestCardCaptureFailureWritesNothing(t *testing.T) {
	f := setupLedger(t, 1)
	alice := f.scouts[0]
	f.gw.err = errors.New("card declined")

	_, err := f.ledger.RecordPayment(f.ctx, treasurer, RecordPaymentParams{
		AccountID: alice.ID,
		Amount:    models.Dollars(40, 0),
		Method:    models.PaymentMethodCard,
		CardToken: "cnon:card-nonce-declined",
	})
	if !errors.Is(err, ErrExternalCaptureFailed) {
		t.Fatalf("RecordPayment() error = %v, want ErrExternalCaptureFailed", err)
	}
	if f.gw.calls != 1 {
		t.Errorf("gateway called %d times, want exactly 1", f.gw.calls)
	}
	if got := f.billing(t, alice.ID); got != 0 {
		t.Errorf("billing = %s, want $0.00", got)
	}
	if got := f.entryCount(t, alice.ID); got != 0 {
		t.Errorf("alice has %d entries, want 0", got)
	}
	if got := f.pub.count(models.EventPaymentRecorded); got != 0 {
		t.Errorf("published %d payment events, want 0", got)
	}
}

func TestCardCaptureWithoutGateway(t *testing.T) {
	f := setupLedger(t, 1)
	f.ledger = New(f.store)

	_, err := f.ledger.RecordPayment(f.ctx, treasurer, RecordPaymentParams{
		AccountID: f.scouts[0].ID,
		Amount:    models.Dollars(5, 0),
		Method:    models.PaymentMethodCard,
		CardToken: "cnon:ok",
	})
	if !errors.Is(err, ErrExternalCaptureFailed) || !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("RecordPayment() error = %v, want ErrExternalCaptureFailed", err)
	}
}

func TestRecordPaymentValidation(t *testing.T) {
	f := setupLedger(t, 2)
	alice, bob := f.scouts[0], f.scouts[1]
	record, err := f.ledger.CreateBillingRecord(f.ctx, treasurer, CreateBillingParams{
		UnitID: f.unit.ID, Description: "Dues", TotalAmount: models.Dollars(60, 0), AccountIDs: []string{alice.ID, bob.ID},
	})
	if err != nil {
		t.Fatalf("CreateBillingRecord failed: %v", err)
	}

	tests := []struct {
		name    string
		params  RecordPaymentParams
		wantErr error
	}{
		{"zero amount", RecordPaymentParams{AccountID: alice.ID, Amount: 0, Method: models.PaymentMethodCash}, ErrInvalidInput},
		{"unknown method", RecordPaymentParams{AccountID: alice.ID, Amount: 100, Method: "barter"}, ErrInvalidInput},
		{"cash with processor ref", RecordPaymentParams{AccountID: alice.ID, Amount: 100, Method: models.PaymentMethodCash, ProcessorRef: "sq-1"}, ErrInvalidInput},
		{"unknown account", RecordPaymentParams{AccountID: "acct_01h455vb4pex5vsknk084sn02q", Amount: 100, Method: models.PaymentMethodCash}, ErrNotFound},
		{"unit account", RecordPaymentParams{AccountID: f.unit.OperatingAccountID, Amount: 100, Method: models.PaymentMethodCash}, ErrInvalidInput},
		{"charge of another scout", RecordPaymentParams{AccountID: alice.ID, Amount: models.Dollars(30, 0), Method: models.PaymentMethodCash, ApplyTo: []string{record.Charges[1].ID}}, ErrInvalidInput},
		{"charges exceed payment", RecordPaymentParams{AccountID: alice.ID, Amount: models.Dollars(10, 0), Method: models.PaymentMethodCash, ApplyTo: []string{record.Charges[0].ID}}, ErrOverpayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.RecordPayment(f.ctx, treasurer, tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RecordPayment() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if got := f.billing(t, alice.ID); got != models.Dollars(-30, 0) {
		t.Errorf("alice billing = %s, want -$30.00", got)
	}
}

func TestVoidCashPaymentReleasesCharges(t *testing.T) {
	f := setupLedger(t, 1)
	alice := f.scouts[0]

	record, err := f.ledger.CreateBillingRecord(f.ctx, treasurer, CreateBillingParams{
		UnitID: f.unit.ID, Description: "Dues", TotalAmount: models.Dollars(25, 0), AccountIDs: []string{alice.ID},
	})
	if err != nil {
		t.Fatalf("CreateBillingRecord failed: %v", err)
	}
	payment, err := f.ledger.RecordPayment(f.ctx, treasurer, RecordPaymentParams{
		AccountID: alice.ID,
		Amount:    models.Dollars(25, 0),
		Method:    models.PaymentMethodCheck,
		ApplyTo:   []string{record.Charges[0].ID},
	})
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}

	if _, err := f.ledger.VoidEntry(f.ctx, treasurer, payment.EntryID, "check bounced"); err != nil {
		t.Fatalf("VoidEntry failed: %v", err)
	}
	if got := f.billing(t, alice.ID); got != models.Dollars(-25, 0) {
		t.Errorf("billing = %s, want -$25.00", got)
	}

	voided, err := f.ledger.GetPayment(f.ctx, payment.ID)
	if err != nil {
		t.Fatalf("GetPayment failed: %v", err)
	}
	if voided.Status != models.PaymentStatusVoided {
		t.Errorf("payment status = %s, want voided", voided.Status)
	}
	charge, err := f.store.GetCharge(f.ctx, record.Charges[0].ID)
	if err != nil {
		t.Fatalf("GetCharge failed: %v", err)
	}
	if charge.IsPaid {
		t.Error("charge still paid after its payment was voided")
	}

	// The released charge can now be voided with the record.
	if err := f.ledger.VoidBillingRecord(f.ctx, treasurer, record.ID, "dues waived"); err != nil {
		t.Fatalf("VoidBillingRecord failed: %v", err)
	}
	if got := f.billing(t, alice.ID); got != 0 {
		t.Errorf("billing = %s, want $0.00", got)
	}
	f.assertConsistent(t)
}

func TestCardCaptureChecksChargesFirst(t *testing.T) {
	f := setupLedger(t, 2)
	alice, bob := f.scouts[0], f.scouts[1]
	record, err := f.ledger.CreateBillingRecord(f.ctx, treasurer, CreateBillingParams{
		UnitID: f.unit.ID, Description: "Dues", TotalAmount: models.Dollars(60, 0), AccountIDs: []string{alice.ID, bob.ID},
	})
	if err != nil {
		t.Fatalf("CreateBillingRecord failed: %v", err)
	}

	tests := []struct {
		name    string
		amount  models.Money
		applyTo []string
		wantErr error
	}{
		{"charge of another scout", models.Dollars(40, 0), []string{record.Charges[1].ID}, ErrInvalidInput},
		{"charges exceed payment", models.Dollars(10, 0), []string{record.Charges[0].ID}, ErrOverpayment},
		{"unknown charge", models.Dollars(40, 0), []string{"chg_01h455vb4pex5vsknk084sn02q"}, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.RecordPayment(f.ctx, treasurer, RecordPaymentParams{
				AccountID: alice.ID,
				Amount:    tt.amount,
				Method:    models.PaymentMethodCard,
				CardToken: "cnon:card-nonce-ok",
				ApplyTo:   tt.applyTo,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RecordPayment() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if f.gw.calls != 0 {
		t.Errorf("gateway called %d times, want 0", f.gw.calls)
	}
	unlinked, err := f.ledger.ListUnlinkedTransactions(f.ctx)
	if err != nil {
		t.Fatalf("ListUnlinkedTransactions failed: %v", err)
	}
	if len(unlinked) != 0 {
		t.Errorf("unlinked = %+v, want none", unlinked)
	}
	if got := f.billing(t, alice.ID); got != models.Dollars(-30, 0) {
		t.Errorf("alice billing = %s, want -$30.00", got)
	}
}

func TestPaymentAgainstReportedTransaction(t *testing.T) {
	f := setupLedger(t, 2)
	alice, bob := f.scouts[0], f.scouts[1]

	ingest := func(id string, amount int64, status string) {
		t.Helper()
		if _, err := f.ledger.IngestProcessorTransaction(f.ctx, feed, models.ProcessorRecord{
			ProcessorPaymentID: id,
			AmountMinor:        amount,
			FeeMinor:           30,
			Status:             status,
		}); err != nil {
			t.Fatalf("IngestProcessorTransaction failed: %v", err)
		}
	}
	ingest("sq-failed", 4000, "FAILED")
	ingest("sq-short", 1000, models.ProcessorStatusCompleted)
	ingest("sq-ok", 4000, models.ProcessorStatusCompleted)
	ingest("sq-bob", 4000, models.ProcessorStatusCompleted)
	bobTxn, err := f.store.GetProcessorTransactionByPaymentID(f.ctx, "sq-bob")
	if err != nil {
		t.Fatalf("GetProcessorTransactionByPaymentID failed: %v", err)
	}
	if _, err := f.ledger.LinkTransaction(f.ctx, treasurer, bobTxn.ID, bob.ID); err != nil {
		t.Fatalf("LinkTransaction failed: %v", err)
	}

	tests := []struct {
		name    string
		ref     string
		wantErr error
	}{
		{"failed at the processor", "sq-failed", ErrNotSettled},
		{"different amount", "sq-short", ErrAmountMismatch},
		{"linked to another scout", "sq-bob", ErrAccountMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.RecordPayment(f.ctx, treasurer, RecordPaymentParams{
				AccountID:    alice.ID,
				Amount:       models.Dollars(40, 0),
				Method:       models.PaymentMethodCard,
				ProcessorRef: tt.ref,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RecordPayment() error = %v, want %v", err, tt.wantErr)
			}
			txn, err := f.store.GetProcessorTransactionByPaymentID(f.ctx, tt.ref)
			if err != nil {
				t.Fatalf("GetProcessorTransactionByPaymentID failed: %v", err)
			}
			if txn.IsReconciled {
				t.Errorf("transaction %s marked reconciled", tt.ref)
			}
		})
	}

	if got := f.entryCount(t, alice.ID); got != 0 {
		t.Fatalf("alice has %d entries, want 0", got)
	}

	payment, err := f.ledger.RecordPayment(f.ctx, treasurer, RecordPaymentParams{
		AccountID:    alice.ID,
		Amount:       models.Dollars(40, 0),
		Method:       models.PaymentMethodCard,
		ProcessorRef: "sq-ok",
	})
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	txn, err := f.store.GetProcessorTransactionByPaymentID(f.ctx, "sq-ok")
	if err != nil {
		t.Fatalf("GetProcessorTransactionByPaymentID failed: %v", err)
	}
	if !txn.IsReconciled || txn.PaymentID != payment.ID || txn.AccountID != alice.ID {
		t.Errorf("processor transaction not reconciled to the payment: %+v", txn)
	}
	f.assertConsistent(t)
}
