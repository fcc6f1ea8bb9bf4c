package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/troopledger/internal/calculator"
	"github.com/mmynk/troopledger/internal/ids"
	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/internal/storage"
)

// RecordPaymentParams describes money received toward a scout's bill.
type RecordPaymentParams struct {
	AccountID string
	Amount    models.Money
	Method    models.PaymentMethod

	// ProcessorRef is the processor payment id of a card payment that was
	// already captured elsewhere.
	ProcessorRef string

	// CardToken, for card payments without a ProcessorRef, is captured
	// through the configured gateway before anything is written.
	CardToken string

	// ApplyTo lists billing charges this payment settles.
	ApplyTo []string

	Note string
}

// paymentInput is what the transactional part of a payment needs, whether it
// comes from RecordPayment or from reconciling a processor transaction.
type paymentInput struct {
	accountID    string
	amount       models.Money
	fee          models.Money
	method       models.PaymentMethod
	processorRef string
	applyTo      []string
	note         string
	caller       Caller

	// processor fields of the transaction to create or reconcile
	processorStatus string
	buyerEmail      string
}

// paymentResult is filled in by recordPaymentTx.
type paymentResult struct {
	payment  *models.Payment
	entry    *models.JournalEntry
	existing bool
}

// RecordPayment records a payment that credits the scout's billing balance by
// the gross amount. Card payments carry the unit's processing fee. A card
// payment with a CardToken is captured at the processor first; if the capture
// fails nothing is written and the capture is not retried. Recording the same
// ProcessorRef twice returns the first payment.
func (l *Ledger) RecordPayment(ctx context.Context, caller Caller, p RecordPaymentParams) (*models.Payment, error) {
	if err := authorize(caller, CanMutateLedger, "record payment"); err != nil {
		return nil, err
	}
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if !p.Method.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, p.Method)
	}
	p.ProcessorRef = strings.TrimSpace(p.ProcessorRef)
	if p.Method != models.PaymentMethodCard && (p.ProcessorRef != "" || p.CardToken != "") {
		return nil, fmt.Errorf("%w: only card payments have a processor reference or card token", ErrInvalidInput)
	}
	if p.ProcessorRef != "" && p.CardToken != "" {
		return nil, fmt.Errorf("%w: a captured payment cannot be captured again", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(p.ApplyTo))
	for _, id := range p.ApplyTo {
		if seen[id] {
			return nil, fmt.Errorf("%w: charge %s applied twice", ErrInvalidInput, id)
		}
		seen[id] = true
	}

	account, err := l.store.GetAccount(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	if account.Kind != models.AccountKindScout {
		return nil, fmt.Errorf("%w: account %s is not a scout account", ErrInvalidInput, account.ID)
	}
	unit, err := l.store.GetUnit(ctx, account.UnitID)
	if err != nil {
		return nil, err
	}

	if p.ProcessorRef != "" {
		existing, err := l.store.GetPaymentByProcessorRef(ctx, p.ProcessorRef)
		if err == nil {
			return existingPayment(existing, account.ID)
		}
		if !isNotFound(err) {
			return nil, err
		}
	}

	// Checked before any capture; recordPaymentTx repeats the checks under lock.
	charges := make([]*models.BillingCharge, 0, len(p.ApplyTo))
	for _, chargeID := range p.ApplyTo {
		c, err := l.store.GetCharge(ctx, chargeID)
		if err != nil {
			return nil, err
		}
		charges = append(charges, c)
	}
	if err := checkCharges(charges, account.ID, p.Amount); err != nil {
		return nil, err
	}
	if p.ProcessorRef != "" {
		txn, err := l.store.GetProcessorTransactionByPaymentID(ctx, p.ProcessorRef)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if err == nil {
			if err := checkProcessorTransaction(txn, account.ID, p.Amount); err != nil {
				return nil, err
			}
		}
	}

	in := paymentInput{
		accountID:       account.ID,
		amount:          p.Amount,
		fee:             calculator.PaymentFee(p.Method, p.Amount, unit.FeePolicy),
		method:          p.Method,
		processorRef:    p.ProcessorRef,
		applyTo:         p.ApplyTo,
		note:            p.Note,
		caller:          caller,
		processorStatus: models.ProcessorStatusCompleted,
		buyerEmail:      account.PayerEmail,
	}

	captured := false
	if p.Method == models.PaymentMethodCard && p.CardToken != "" {
		result, err := l.capture(ctx, account, p)
		if err != nil {
			return nil, err
		}
		captured = true
		in.processorRef = result.ProcessorPaymentID
		in.processorStatus = result.Status
	}

	var res paymentResult
	err = l.inTx(ctx, "record_payment", func(tx storage.Tx) error {
		var err error
		res, err = l.recordPaymentTx(ctx, tx, in)
		return err
	})
	if err != nil {
		if captured {
			l.logger.Error("card captured but payment not recorded; reconcile manually",
				"processor_payment_id", in.processorRef,
				"account_id", account.ID,
				"amount", in.amount.String(),
				"error", err,
			)
			l.holdUnrecordedCapture(ctx, in)
		}
		return nil, err
	}
	if res.existing {
		return existingPayment(res.payment, account.ID)
	}

	l.afterPayment(ctx, res)
	return res.payment, nil
}

func existingPayment(p *models.Payment, accountID string) (*models.Payment, error) {
	if p.AccountID != accountID {
		return nil, fmt.Errorf("%w: processor payment %s was recorded for account %s", ErrAccountMismatch, p.ProcessorRef, p.AccountID)
	}
	return p, nil
}

// capture charges the card through the gateway. It is called outside any
// database transaction and never retried.
func (l *Ledger) capture(ctx context.Context, account *models.Account, p RecordPaymentParams) (*CaptureResult, error) {
	if l.gateway == nil {
		l.metrics.Capture("failure")
		return nil, fmt.Errorf("%w: %w", ErrExternalCaptureFailed, ErrGatewayUnavailable)
	}

	captureCtx, cancel := context.WithTimeout(ctx, l.captureTimeout)
	defer cancel()

	req := CaptureRequest{
		SourceToken:    p.CardToken,
		AmountMinor:    int64(p.Amount),
		Currency:       "USD",
		IdempotencyKey: uuid.NewString(),
		Note:           p.Note,
	}
	result, err := l.gateway.Capture(captureCtx, req)
	if err != nil {
		l.metrics.Capture("failure")
		l.logger.Warn("card capture failed", "account_id", account.ID, "amount", p.Amount.String(), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExternalCaptureFailed, err)
	}
	if result.ProcessorPaymentID == "" || result.Status != models.ProcessorStatusCompleted {
		l.metrics.Capture("failure")
		l.logger.Warn("card capture not completed", "account_id", account.ID, "status", result.Status)
		return nil, fmt.Errorf("%w: processor status %q", ErrExternalCaptureFailed, result.Status)
	}

	l.metrics.Capture("success")
	l.logger.Info("card captured", "account_id", account.ID, "processor_payment_id", result.ProcessorPaymentID)
	return result, nil
}

// holdUnrecordedCapture stores a captured payment whose ledger write failed
// as an unlinked processor transaction, so it shows up in the unlinked
// report instead of being lost.
func (l *Ledger) holdUnrecordedCapture(ctx context.Context, in paymentInput) {
	record := models.ProcessorRecord{
		ProcessorPaymentID: in.processorRef,
		AmountMinor:        int64(in.amount),
		FeeMinor:           int64(in.fee),
		Status:             in.processorStatus,
	}
	err := l.inTx(ctx, "hold_capture", func(tx storage.Tx) error {
		_, err := l.ingestTx(ctx, tx, record, false)
		return err
	})
	if err != nil {
		l.logger.Error("failed to hold unrecorded capture", "processor_payment_id", in.processorRef, "error", err)
	}
}

// recordPaymentTx writes the payment, its entry, charge allocations and the
// processor transaction link. It returns the existing payment if one was
// already recorded for the processor reference.
func (l *Ledger) recordPaymentTx(ctx context.Context, tx storage.Tx, in paymentInput) (paymentResult, error) {
	if in.processorRef != "" {
		existing, err := tx.GetPaymentByProcessorRef(ctx, in.processorRef)
		if err == nil {
			return paymentResult{payment: existing, existing: true}, nil
		}
		if !isNotFound(err) {
			return paymentResult{}, err
		}
	}

	account, err := tx.GetAccount(ctx, in.accountID)
	if err != nil {
		return paymentResult{}, err
	}
	unit, err := tx.GetUnit(ctx, account.UnitID)
	if err != nil {
		return paymentResult{}, err
	}
	locked, err := lockAccounts(ctx, tx, account.ID, unit.OperatingAccountID)
	if err != nil {
		return paymentResult{}, err
	}
	if _, err := scoutAccount(locked, account.ID); err != nil {
		return paymentResult{}, err
	}

	var txn *models.SquareTransaction
	if in.processorRef != "" {
		txn, err = tx.LockProcessorTransactionByPaymentID(ctx, in.processorRef)
		switch {
		case isNotFound(err):
			txn = nil
		case err != nil:
			return paymentResult{}, err
		default:
			if err := checkProcessorTransaction(txn, account.ID, in.amount); err != nil {
				return paymentResult{}, err
			}
		}
	}

	charges := make([]*models.BillingCharge, 0, len(in.applyTo))
	for _, chargeID := range in.applyTo {
		c, err := tx.LockCharge(ctx, chargeID)
		if err != nil {
			return paymentResult{}, err
		}
		charges = append(charges, c)
	}
	if err := checkCharges(charges, account.ID, in.amount); err != nil {
		return paymentResult{}, err
	}

	now := l.now()
	payment := &models.Payment{
		ID:           ids.New(ids.PrefixPayment),
		UnitID:       unit.ID,
		AccountID:    account.ID,
		Amount:       in.amount,
		FeeAmount:    in.fee,
		NetAmount:    in.amount - in.fee,
		Method:       in.method,
		ProcessorRef: in.processorRef,
		Status:       models.PaymentStatusCompleted,
		ChargeIDs:    in.applyTo,
		CreatedBy:    in.caller.UserID,
		CreatedAt:    now,
	}
	description := fmt.Sprintf("Payment (%s)", in.method)
	if in.note != "" {
		description += ": " + in.note
	}
	entry := &models.JournalEntry{
		ID:          ids.New(ids.PrefixEntry),
		UnitID:      unit.ID,
		Description: description,
		Type:        models.EntryTypePayment,
		SourceType:  models.SourcePayment,
		SourceID:    payment.ID,
		ExternalRef: in.processorRef,
		CreatedBy:   in.caller.UserID,
		CreatedAt:   now,
		Lines: []models.JournalLine{
			{AccountID: account.ID, Kind: models.BalanceBilling, Credit: in.amount},
			{AccountID: unit.OperatingAccountID, Kind: models.BalanceBilling, Debit: in.amount},
		},
	}
	payment.EntryID = entry.ID

	if err := l.post(ctx, tx, entry, locked); err != nil {
		return paymentResult{}, err
	}
	if err := tx.InsertPayment(ctx, payment); err != nil {
		return paymentResult{}, err
	}
	for _, chargeID := range in.applyTo {
		if err := tx.MarkChargePaid(ctx, chargeID, payment.ID); err != nil {
			return paymentResult{}, err
		}
	}

	if in.processorRef != "" {
		if err := l.markProcessorReconciled(ctx, tx, txn, in, payment); err != nil {
			return paymentResult{}, err
		}
	}
	return paymentResult{payment: payment, entry: entry}, nil
}

// checkCharges reports whether a payment of amount on accountID may settle
// charges: each must belong to the account and be active and unpaid, and
// together they may not exceed the payment.
func checkCharges(charges []*models.BillingCharge, accountID string, amount models.Money) error {
	var applied models.Money
	for _, c := range charges {
		switch {
		case c.AccountID != accountID:
			return fmt.Errorf("%w: charge %s belongs to account %s", ErrInvalidInput, c.ID, c.AccountID)
		case c.IsVoid:
			return fmt.Errorf("%w: charge %s", ErrAlreadyVoid, c.ID)
		case c.IsPaid:
			return fmt.Errorf("%w: charge %s is paid by %s", ErrAlreadyPaid, c.ID, c.PaymentID)
		}
		applied += c.Amount
	}
	if applied > amount {
		return fmt.Errorf("%w: charges total %s but payment is %s", ErrOverpayment, applied, amount)
	}
	return nil
}

// checkProcessorTransaction reports whether a payment of amount on accountID
// may be recorded against a processor transaction the feed already reported.
func checkProcessorTransaction(txn *models.SquareTransaction, accountID string, amount models.Money) error {
	switch {
	case txn.AccountID != "" && txn.AccountID != accountID:
		return fmt.Errorf("%w: processor payment %s is linked to account %s", ErrAccountMismatch, txn.ProcessorPaymentID, txn.AccountID)
	case txn.IsReconciled:
		return fmt.Errorf("%w: processor payment %s", ErrAlreadyReconciled, txn.ProcessorPaymentID)
	case txn.Status != models.ProcessorStatusCompleted:
		return fmt.Errorf("%w: processor payment %s has status %q", ErrNotSettled, txn.ProcessorPaymentID, txn.Status)
	case models.Money(txn.AmountMinor) != amount:
		return fmt.Errorf("%w: processor payment %s is %s, payment is %s", ErrAmountMismatch, txn.ProcessorPaymentID, models.Money(txn.AmountMinor), amount)
	}
	return nil
}

// markProcessorReconciled links the processor transaction for a payment to
// its account and flags it reconciled, creating the row when txn is nil
// because the feed has not reported it yet. txn must already be checked.
func (l *Ledger) markProcessorReconciled(ctx context.Context, tx storage.Tx, txn *models.SquareTransaction, in paymentInput, payment *models.Payment) error {
	now := l.now()
	if txn == nil {
		return tx.InsertProcessorTransaction(ctx, &models.SquareTransaction{
			ID:                 ids.New(ids.PrefixProcessorTxn),
			ProcessorPaymentID: in.processorRef,
			AmountMinor:        int64(payment.Amount),
			FeeMinor:           int64(payment.FeeAmount),
			NetMinor:           int64(payment.NetAmount),
			Status:             in.processorStatus,
			BuyerEmail:         in.buyerEmail,
			State:              models.ReconcileReconciled,
			IsReconciled:       true,
			UnitID:             payment.UnitID,
			AccountID:          payment.AccountID,
			PaymentID:          payment.ID,
			ReceivedAt:         now,
			UpdatedAt:          now,
		})
	}
	txn.State = models.ReconcileReconciled
	txn.IsReconciled = true
	txn.UnitID = payment.UnitID
	txn.AccountID = payment.AccountID
	txn.PaymentID = payment.ID
	txn.UpdatedAt = now
	return tx.UpdateProcessorTransaction(ctx, txn)
}

// afterPayment records metrics, logs and publishes a committed payment.
func (l *Ledger) afterPayment(ctx context.Context, res paymentResult) {
	p := res.payment
	l.metrics.EntryPosted(string(res.entry.Type))
	l.logger.Info("payment recorded",
		"payment_id", p.ID,
		"account_id", p.AccountID,
		"method", p.Method,
		"amount", p.Amount.String(),
		"fee", p.FeeAmount.String(),
	)
	l.publish(ctx, []models.LedgerEvent{
		{
			Type:       models.EventPaymentRecorded,
			UnitID:     p.UnitID,
			EntryID:    p.EntryID,
			SourceType: models.SourcePayment,
			SourceID:   p.ID,
			AccountIDs: []string{p.AccountID},
			Amount:     p.Amount,
			OccurredAt: p.CreatedAt,
		},
		entryEvent(models.EventEntryRecorded, res.entry),
	})
}
