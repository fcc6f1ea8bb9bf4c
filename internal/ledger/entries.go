package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmynk/troopledger/internal/ids"
	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/internal/storage"
)

// RecordEntryParams describes a manual journal entry.
type RecordEntryParams struct {
	UnitID      string
	Description string
	Type        models.EntryType
	Lines       []models.JournalLine
	ExternalRef string
}

// RecordEntry posts a balanced entry and updates the balances of every
// account it touches in the same transaction. Nothing is written when the
// lines do not balance.
func (l *Ledger) RecordEntry(ctx context.Context, caller Caller, p RecordEntryParams) (string, error) {
	if err := authorize(caller, CanMutateLedger, "record entry"); err != nil {
		return "", err
	}
	if strings.TrimSpace(p.Description) == "" {
		return "", fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if !p.Type.Valid() || p.Type == models.EntryTypeVoidReversal {
		return "", fmt.Errorf("%w: entry type %q cannot be recorded directly", ErrInvalidInput, p.Type)
	}
	if err := validateLines(p.Lines); err != nil {
		return "", err
	}

	var entry *models.JournalEntry
	err := l.inTx(ctx, "record_entry", func(tx storage.Tx) error {
		entry = &models.JournalEntry{
			ID:          ids.New(ids.PrefixEntry),
			UnitID:      p.UnitID,
			Description: p.Description,
			Type:        p.Type,
			SourceType:  models.SourceManual,
			ExternalRef: p.ExternalRef,
			CreatedBy:   caller.UserID,
			CreatedAt:   l.now(),
			Lines:       cloneLines(p.Lines),
		}
		if _, err := tx.GetUnit(ctx, p.UnitID); err != nil {
			return err
		}
		locked, err := lockAccounts(ctx, tx, entry.AccountIDs()...)
		if err != nil {
			return err
		}
		return l.post(ctx, tx, entry, locked)
	})
	if err != nil {
		return "", err
	}

	l.metrics.EntryPosted(string(entry.Type))
	l.logger.Info("journal entry recorded", "entry_id", entry.ID, "type", entry.Type, "unit_id", entry.UnitID)
	l.publish(ctx, []models.LedgerEvent{entryEvent(models.EventEntryRecorded, entry)})
	return entry.ID, nil
}

// VoidEntry cancels a mistaken entry by posting its mirror image and flagging
// the original void. The original's lines are kept. Entries produced by
// billing records and charges must be voided through those objects, and
// processor-captured payments must be refunded at the processor.
func (l *Ledger) VoidEntry(ctx context.Context, caller Caller, entryID, reason string) (string, error) {
	if err := authorize(caller, CanMutateLedger, "void entry"); err != nil {
		return "", err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", ErrReasonRequired
	}

	var original, reversal *models.JournalEntry
	err := l.inTx(ctx, "void_entry", func(tx storage.Tx) error {
		var err error
		original, err = tx.LockEntry(ctx, entryID)
		if err != nil {
			return err
		}
		switch {
		case original.IsVoid:
			return fmt.Errorf("%w: entry %s", ErrAlreadyVoid, entryID)
		case original.ReversesEntryID != "":
			return fmt.Errorf("%w: entry %s is a reversal", ErrEntryManaged, entryID)
		case original.SourceType == models.SourceBillingRecord || original.SourceType == models.SourceBillingCharge:
			return fmt.Errorf("%w: entry %s belongs to %s %s", ErrEntryManaged, entryID, original.SourceType, original.SourceID)
		}

		var payment *models.Payment
		if original.SourceType == models.SourcePayment {
			payment, err = tx.GetPaymentByEntry(ctx, original.ID)
			if err != nil {
				return err
			}
			if payment.ProcessorRef != "" {
				return fmt.Errorf("%w: entry %s is processor payment %s", ErrEntryManaged, entryID, payment.ProcessorRef)
			}
		}

		locked, err := lockAccounts(ctx, tx, original.AccountIDs()...)
		if err != nil {
			return err
		}
		reversal, err = l.voidEntryTx(ctx, tx, original, reason, caller, locked)
		if err != nil {
			return err
		}

		if payment != nil {
			if err := tx.SetPaymentStatus(ctx, payment.ID, models.PaymentStatusVoided); err != nil {
				return err
			}
			return tx.ReleaseCharges(ctx, payment.ID)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	l.metrics.Voided("entry")
	l.metrics.EntryPosted(string(reversal.Type))
	l.logger.Info("journal entry voided", "entry_id", original.ID, "reversal_id", reversal.ID, "reason", reason)
	l.publish(ctx, []models.LedgerEvent{entryEvent(models.EventEntryVoided, reversal)})
	return reversal.ID, nil
}

// voidEntryTx posts the full reversal of original and flags it void. The
// accounts of original must be locked.
func (l *Ledger) voidEntryTx(ctx context.Context, tx storage.Tx, original *models.JournalEntry, reason string, caller Caller, locked lockSet) (*models.JournalEntry, error) {
	if original.IsVoid {
		return nil, fmt.Errorf("%w: entry %s", ErrAlreadyVoid, original.ID)
	}

	now := l.now()
	reversal := &models.JournalEntry{
		ID:              ids.New(ids.PrefixEntry),
		UnitID:          original.UnitID,
		Description:     "Void: " + original.Description,
		Type:            models.EntryTypeVoidReversal,
		SourceType:      original.SourceType,
		SourceID:        original.SourceID,
		ExternalRef:     original.ExternalRef,
		ReversesEntryID: original.ID,
		CreatedBy:       caller.UserID,
		CreatedAt:       now,
		Lines:           make([]models.JournalLine, len(original.Lines)),
	}
	for i, line := range original.Lines {
		reversal.Lines[i] = models.JournalLine{
			AccountID: line.AccountID,
			Kind:      line.Kind,
			Debit:     line.Credit,
			Credit:    line.Debit,
		}
	}

	if err := l.post(ctx, tx, reversal, locked); err != nil {
		return nil, err
	}
	if err := tx.MarkEntryVoid(ctx, original.ID, reason, reversal.ID, now); err != nil {
		return nil, err
	}

	original.IsVoid = true
	original.VoidReason = reason
	original.VoidedAt = &now
	original.ReversedByEntryID = reversal.ID
	return reversal, nil
}

func cloneLines(lines []models.JournalLine) []models.JournalLine {
	out := make([]models.JournalLine, len(lines))
	for i, l := range lines {
		out[i] = models.JournalLine{AccountID: l.AccountID, Kind: l.Kind, Debit: l.Debit, Credit: l.Credit}
	}
	return out
}
