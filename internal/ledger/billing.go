package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/troopledger/internal/calculator"
	"github.com/mmynk/troopledger/internal/ids"
	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/internal/storage"
)

// CreateBillingParams describes a unit expense to split across scouts.
type CreateBillingParams struct {
	UnitID      string
	Description string
	TotalAmount models.Money
	// AccountIDs are the scout accounts to bill. Leftover cents of the split
	// go to the first accounts in this order.
	AccountIDs  []string
	BillingDate time.Time
}

// CreateBillingRecord splits TotalAmount fairly across the scouts and posts
// one charge entry debiting each scout's billing balance by their share.
// The record, its charges and the entry commit together.
func (l *Ledger) CreateBillingRecord(ctx context.Context, caller Caller, p CreateBillingParams) (*models.BillingRecord, error) {
	if err := authorize(caller, CanMutateLedger, "create billing record"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if len(p.AccountIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one scout is required", ErrInvalidInput)
	}
	if !p.TotalAmount.IsPositive() {
		return nil, fmt.Errorf("%w: total amount must be positive", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(p.AccountIDs))
	for _, id := range p.AccountIDs {
		if seen[id] {
			return nil, fmt.Errorf("%w: scout account %s listed twice", ErrInvalidInput, id)
		}
		seen[id] = true
	}
	shares, err := calculator.FairShare(p.TotalAmount, len(p.AccountIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if p.BillingDate.IsZero() {
		p.BillingDate = l.now()
	}

	var record *models.BillingRecord
	var entry *models.JournalEntry
	err = l.inTx(ctx, "create_billing_record", func(tx storage.Tx) error {
		unit, err := tx.GetUnit(ctx, p.UnitID)
		if err != nil {
			return err
		}
		locked, err := lockAccounts(ctx, tx, append([]string{unit.OperatingAccountID}, p.AccountIDs...)...)
		if err != nil {
			return err
		}

		now := l.now()
		record = &models.BillingRecord{
			ID:          ids.New(ids.PrefixBillingRecord),
			UnitID:      unit.ID,
			Description: p.Description,
			TotalAmount: p.TotalAmount,
			BillingDate: p.BillingDate,
			CreatedBy:   caller.UserID,
			CreatedAt:   now,
			Charges:     make([]models.BillingCharge, len(p.AccountIDs)),
		}
		entry = &models.JournalEntry{
			ID:          ids.New(ids.PrefixEntry),
			UnitID:      unit.ID,
			Description: p.Description,
			Type:        models.EntryTypeCharge,
			SourceType:  models.SourceBillingRecord,
			SourceID:    record.ID,
			CreatedBy:   caller.UserID,
			CreatedAt:   now,
		}
		record.EntryID = entry.ID

		for i, accountID := range p.AccountIDs {
			if _, err := scoutAccount(locked, accountID); err != nil {
				return err
			}
			record.Charges[i] = models.BillingCharge{
				ID:        ids.New(ids.PrefixCharge),
				AccountID: accountID,
				Amount:    shares[i],
				CreatedAt: now,
			}
			entry.Lines = append(entry.Lines, models.JournalLine{
				AccountID: accountID,
				Kind:      models.BalanceBilling,
				Debit:     shares[i],
			})
		}
		entry.Lines = append(entry.Lines, models.JournalLine{
			AccountID: unit.OperatingAccountID,
			Kind:      models.BalanceBilling,
			Credit:    p.TotalAmount,
		})

		if err := l.post(ctx, tx, entry, locked); err != nil {
			return err
		}
		return tx.InsertBillingRecord(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	l.metrics.EntryPosted(string(entry.Type))
	l.logger.Info("billing record created",
		"record_id", record.ID,
		"entry_id", entry.ID,
		"total", record.TotalAmount.String(),
		"scouts", len(record.Charges),
	)
	l.publish(ctx, []models.LedgerEvent{
		{
			Type:       models.EventBillingCreated,
			UnitID:     record.UnitID,
			EntryID:    entry.ID,
			SourceType: models.SourceBillingRecord,
			SourceID:   record.ID,
			AccountIDs: p.AccountIDs,
			Amount:     record.TotalAmount,
			OccurredAt: record.CreatedAt,
		},
		entryEvent(models.EventEntryRecorded, entry),
	})
	return record, nil
}

// VoidBillingRecord cancels a whole billing record. It fails with
// ErrHasPaidCharges if any active charge is paid. Otherwise it reverses the
// record's charge entry and every compensating entry of charges voided
// earlier, then flags the remaining charges and the record void.
func (l *Ledger) VoidBillingRecord(ctx context.Context, caller Caller, recordID, reason string) error {
	if err := authorize(caller, CanMutateLedger, "void billing record"); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}

	var record *models.BillingRecord
	var reversals []*models.JournalEntry
	err := l.inTx(ctx, "void_billing_record", func(tx storage.Tx) error {
		reversals = nil

		var err error
		record, err = tx.LockBillingRecord(ctx, recordID)
		if err != nil {
			return err
		}
		if record.IsVoid {
			return fmt.Errorf("%w: billing record %s", ErrAlreadyVoid, recordID)
		}
		active := record.ActiveCharges()
		for _, c := range active {
			if c.IsPaid {
				return fmt.Errorf("%w: charge %s is paid by %s", ErrHasPaidCharges, c.ID, c.PaymentID)
			}
		}

		unit, err := tx.GetUnit(ctx, record.UnitID)
		if err != nil {
			return err
		}
		accountIDs := []string{unit.OperatingAccountID}
		for _, c := range record.Charges {
			accountIDs = append(accountIDs, c.AccountID)
		}
		locked, err := lockAccounts(ctx, tx, accountIDs...)
		if err != nil {
			return err
		}

		// The record's own entry, then the compensations of charges voided
		// one at a time.
		entryIDs := []string{record.EntryID}
		for _, c := range record.Charges {
			if c.IsVoid && c.VoidEntryID != "" {
				entryIDs = append(entryIDs, c.VoidEntryID)
			}
		}
		var recordReversalID string
		for i, id := range entryIDs {
			entry, err := tx.LockEntry(ctx, id)
			if err != nil {
				return err
			}
			if entry.IsVoid {
				if i == 0 {
					recordReversalID = entry.ReversedByEntryID
				}
				continue
			}
			reversal, err := l.voidEntryTx(ctx, tx, entry, reason, caller, locked)
			if err != nil {
				return err
			}
			if i == 0 {
				recordReversalID = reversal.ID
			}
			reversals = append(reversals, reversal)
		}

		now := l.now()
		for _, c := range active {
			if err := tx.MarkChargeVoid(ctx, c.ID, reason, recordReversalID, now); err != nil {
				return err
			}
		}
		return tx.MarkRecordVoid(ctx, record.ID, reason, now)
	})
	if err != nil {
		return err
	}

	l.metrics.Voided("billing_record")
	events := []models.LedgerEvent{{
		Type:       models.EventBillingVoided,
		UnitID:     record.UnitID,
		EntryID:    record.EntryID,
		SourceType: models.SourceBillingRecord,
		SourceID:   record.ID,
		Amount:     record.TotalAmount,
		OccurredAt: l.now(),
	}}
	for _, r := range reversals {
		l.metrics.EntryPosted(string(r.Type))
		events = append(events, entryEvent(models.EventEntryVoided, r))
	}
	l.logger.Info("billing record voided", "record_id", record.ID, "reversals", len(reversals), "reason", reason)
	l.publish(ctx, events)
	return nil
}

// VoidBillingCharge cancels one scout's share of a billing record by posting
// a compensating entry that credits the scout back. Paid charges cannot be
// voided.
func (l *Ledger) VoidBillingCharge(ctx context.Context, caller Caller, chargeID, reason string) (string, error) {
	if err := authorize(caller, CanMutateLedger, "void billing charge"); err != nil {
		return "", err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", ErrReasonRequired
	}

	var charge *models.BillingCharge
	var entry *models.JournalEntry
	err := l.inTx(ctx, "void_billing_charge", func(tx storage.Tx) error {
		var err error
		charge, err = tx.LockCharge(ctx, chargeID)
		if err != nil {
			return err
		}
		if charge.IsVoid {
			return fmt.Errorf("%w: charge %s", ErrAlreadyVoid, chargeID)
		}
		if charge.IsPaid {
			return fmt.Errorf("%w: charge %s is paid by %s", ErrAlreadyPaid, chargeID, charge.PaymentID)
		}
		record, err := tx.LockBillingRecord(ctx, charge.RecordID)
		if err != nil {
			return err
		}
		if record.IsVoid {
			return fmt.Errorf("%w: billing record %s", ErrAlreadyVoid, record.ID)
		}
		unit, err := tx.GetUnit(ctx, record.UnitID)
		if err != nil {
			return err
		}
		locked, err := lockAccounts(ctx, tx, charge.AccountID, unit.OperatingAccountID)
		if err != nil {
			return err
		}

		now := l.now()
		entry = &models.JournalEntry{
			ID:          ids.New(ids.PrefixEntry),
			UnitID:      unit.ID,
			Description: "Void charge: " + record.Description,
			Type:        models.EntryTypeVoidReversal,
			SourceType:  models.SourceBillingCharge,
			SourceID:    charge.ID,
			CreatedBy:   caller.UserID,
			CreatedAt:   now,
			Lines: []models.JournalLine{
				{AccountID: charge.AccountID, Kind: models.BalanceBilling, Credit: charge.Amount},
				{AccountID: unit.OperatingAccountID, Kind: models.BalanceBilling, Debit: charge.Amount},
			},
		}
		if err := l.post(ctx, tx, entry, locked); err != nil {
			return err
		}
		return tx.MarkChargeVoid(ctx, charge.ID, reason, entry.ID, now)
	})
	if err != nil {
		return "", err
	}

	l.metrics.Voided("billing_charge")
	l.metrics.EntryPosted(string(entry.Type))
	l.logger.Info("billing charge voided", "charge_id", charge.ID, "entry_id", entry.ID, "reason", reason)
	l.publish(ctx, []models.LedgerEvent{entryEvent(models.EventChargeVoided, entry)})
	return entry.ID, nil
}
