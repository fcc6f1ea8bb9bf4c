package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmynk/troopledger/internal/ids"
	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/internal/storage"
)

// IngestProcessorTransaction records one transaction from the processor feed.
// Unlinked transactions are linked automatically when the buyer email matches
// exactly one scout account and stay unlinked otherwise. Re-ingesting a known
// transaction refreshes its processor status and retries the email match if
// it is still unlinked; reconciled transactions keep their amounts.
func (l *Ledger) IngestProcessorTransaction(ctx context.Context, caller Caller, rec models.ProcessorRecord) (*models.SquareTransaction, error) {
	if err := authorize(caller, CanReconcile, "ingest processor transaction"); err != nil {
		return nil, err
	}
	rec.ProcessorPaymentID = strings.TrimSpace(rec.ProcessorPaymentID)
	rec.BuyerEmail = strings.TrimSpace(rec.BuyerEmail)
	if rec.ProcessorPaymentID == "" {
		return nil, fmt.Errorf("%w: processor payment id is required", ErrInvalidInput)
	}
	if rec.AmountMinor <= 0 || rec.FeeMinor < 0 || rec.FeeMinor > rec.AmountMinor {
		return nil, fmt.Errorf("%w: amount %d with fee %d", ErrInvalidInput, rec.AmountMinor, rec.FeeMinor)
	}

	var txn *models.SquareTransaction
	err := l.inTx(ctx, "ingest_transaction", func(tx storage.Tx) error {
		var err error
		txn, err = l.ingestTx(ctx, tx, rec, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("processor transaction ingested",
		"processor_payment_id", txn.ProcessorPaymentID,
		"state", txn.State,
		"account_id", txn.AccountID,
	)
	return txn, nil
}

func (l *Ledger) ingestTx(ctx context.Context, tx storage.Tx, rec models.ProcessorRecord, autoLink bool) (*models.SquareTransaction, error) {
	now := l.now()
	txn, err := tx.LockProcessorTransactionByPaymentID(ctx, rec.ProcessorPaymentID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	if err == nil {
		txn.Status = rec.Status
		if txn.State != models.ReconcileReconciled {
			txn.AmountMinor = rec.AmountMinor
			txn.FeeMinor = rec.FeeMinor
			txn.NetMinor = rec.AmountMinor - rec.FeeMinor
			if rec.BuyerEmail != "" {
				txn.BuyerEmail = rec.BuyerEmail
			}
		}
		if autoLink && txn.State == models.ReconcileUnlinked {
			if err := linkByEmail(ctx, tx, txn); err != nil {
				return nil, err
			}
		}
		txn.UpdatedAt = now
		if err := tx.UpdateProcessorTransaction(ctx, txn); err != nil {
			return nil, err
		}
		return txn, nil
	}

	txn = &models.SquareTransaction{
		ID:                 ids.New(ids.PrefixProcessorTxn),
		ProcessorPaymentID: rec.ProcessorPaymentID,
		AmountMinor:        rec.AmountMinor,
		FeeMinor:           rec.FeeMinor,
		NetMinor:           rec.AmountMinor - rec.FeeMinor,
		Status:             rec.Status,
		BuyerEmail:         rec.BuyerEmail,
		State:              models.ReconcileUnlinked,
		ReceivedAt:         now,
		UpdatedAt:          now,
	}
	if autoLink {
		if err := linkByEmail(ctx, tx, txn); err != nil {
			return nil, err
		}
	}
	if err := tx.InsertProcessorTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// linkByEmail links txn to the one scout account whose payer email matches
// its buyer email. Zero or several matches leave it unlinked.
func linkByEmail(ctx context.Context, tx storage.Tx, txn *models.SquareTransaction) error {
	if txn.BuyerEmail == "" {
		return nil
	}
	matches, err := tx.FindScoutAccountsByEmail(ctx, txn.BuyerEmail)
	if err != nil {
		return err
	}
	if len(matches) == 1 {
		txn.State = models.ReconcileLinked
		txn.UnitID = matches[0].UnitID
		txn.AccountID = matches[0].ID
	}
	return nil
}

// LinkTransaction matches a processor transaction to a scout account by hand.
// A linked transaction may be re-linked until it is reconciled.
func (l *Ledger) LinkTransaction(ctx context.Context, caller Caller, txnID, accountID string) (*models.SquareTransaction, error) {
	if err := authorize(caller, CanReconcile, "link transaction"); err != nil {
		return nil, err
	}

	var txn *models.SquareTransaction
	err := l.inTx(ctx, "link_transaction", func(tx storage.Tx) error {
		var err error
		txn, err = tx.LockProcessorTransaction(ctx, txnID)
		if err != nil {
			return err
		}
		if txn.State == models.ReconcileReconciled {
			return fmt.Errorf("%w: transaction %s", ErrAlreadyReconciled, txnID)
		}
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if account.Kind != models.AccountKindScout {
			return fmt.Errorf("%w: account %s is not a scout account", ErrInvalidInput, accountID)
		}

		txn.State = models.ReconcileLinked
		txn.UnitID = account.UnitID
		txn.AccountID = account.ID
		txn.UpdatedAt = l.now()
		return tx.UpdateProcessorTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("processor transaction linked", "transaction_id", txn.ID, "account_id", txn.AccountID)
	return txn, nil
}

// ReconcileTransaction turns a linked, completed processor transaction into a
// Payment and its entry, using the fee the processor reported. Reconciling an
// already reconciled transaction returns its payment and writes nothing.
func (l *Ledger) ReconcileTransaction(ctx context.Context, caller Caller, txnID string) (*models.Payment, error) {
	if err := authorize(caller, CanReconcile, "reconcile transaction"); err != nil {
		return nil, err
	}

	var res paymentResult
	var txn *models.SquareTransaction
	err := l.inTx(ctx, "reconcile_transaction", func(tx storage.Tx) error {
		res = paymentResult{}

		var err error
		txn, err = tx.LockProcessorTransaction(ctx, txnID)
		if err != nil {
			return err
		}
		switch {
		case txn.State == models.ReconcileReconciled:
			payment, err := tx.GetPayment(ctx, txn.PaymentID)
			if err != nil {
				return err
			}
			res = paymentResult{payment: payment, existing: true}
			return nil
		case txn.State != models.ReconcileLinked || txn.AccountID == "":
			return fmt.Errorf("%w: transaction %s", ErrNotLinked, txnID)
		case txn.Status != models.ProcessorStatusCompleted:
			return fmt.Errorf("%w: transaction %s has status %q", ErrNotSettled, txnID, txn.Status)
		}

		res, err = l.recordPaymentTx(ctx, tx, paymentInput{
			accountID:       txn.AccountID,
			amount:          models.Money(txn.AmountMinor),
			fee:             models.Money(txn.FeeMinor),
			method:          models.PaymentMethodCard,
			processorRef:    txn.ProcessorPaymentID,
			note:            "processor " + txn.ProcessorPaymentID,
			caller:          caller,
			processorStatus: txn.Status,
			buyerEmail:      txn.BuyerEmail,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.existing {
		l.logger.Debug("transaction already reconciled", "transaction_id", txnID, "payment_id", res.payment.ID)
		return res.payment, nil
	}

	l.afterPayment(ctx, res)
	l.publish(ctx, []models.LedgerEvent{{
		Type:       models.EventTransactionReconciled,
		UnitID:     res.payment.UnitID,
		EntryID:    res.payment.EntryID,
		SourceType: models.SourcePayment,
		SourceID:   res.payment.ID,
		AccountIDs: []string{res.payment.AccountID},
		Amount:     res.payment.Amount,
		OccurredAt: res.payment.CreatedAt,
	}})
	return res.payment, nil
}

// ListUnlinkedTransactions reports processor transactions that could not be
// matched to an account. They are never linked or reconciled automatically.
func (l *Ledger) ListUnlinkedTransactions(ctx context.Context) ([]*models.SquareTransaction, error) {
	return l.store.ListUnlinkedTransactions(ctx)
}
