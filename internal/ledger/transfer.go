package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmynk/troopledger/internal/ids"
	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/internal/storage"
)

// TransferFundsToBilling moves amount from a scout's funds balance to offset
// what they owe, as one entry with two lines on the same account. The amount
// may exceed neither the funds balance nor the amount owed, both read under
// the account lock.
func (l *Ledger) TransferFundsToBilling(ctx context.Context, caller Caller, accountID string, amount models.Money) (string, error) {
	if err := authorize(caller, CanMutateLedger, "transfer funds"); err != nil {
		return "", err
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	var entry *models.JournalEntry
	err := l.inTx(ctx, "transfer_funds", func(tx storage.Tx) error {
		locked, err := lockAccounts(ctx, tx, accountID)
		if err != nil {
			return err
		}
		acct, err := scoutAccount(locked, accountID)
		if err != nil {
			return err
		}
		if amount > acct.FundsBalance {
			return fmt.Errorf("%w: transfer of %s but only %s in funds", ErrInsufficientFunds, amount, acct.FundsBalance)
		}
		if amount > acct.Owed() {
			return fmt.Errorf("%w: transfer of %s but only %s owed", ErrOverpayment, amount, acct.Owed())
		}

		entry = &models.JournalEntry{
			ID:          ids.New(ids.PrefixEntry),
			UnitID:      acct.UnitID,
			Description: "Transfer from funds to billing",
			Type:        models.EntryTypeTransfer,
			SourceType:  models.SourceTransfer,
			SourceID:    acct.ID,
			CreatedBy:   caller.UserID,
			CreatedAt:   l.now(),
			Lines: []models.JournalLine{
				{AccountID: acct.ID, Kind: models.BalanceFunds, Debit: amount},
				{AccountID: acct.ID, Kind: models.BalanceBilling, Credit: amount},
			},
		}
		return l.post(ctx, tx, entry, locked)
	})
	if err != nil {
		return "", err
	}

	l.metrics.EntryPosted(string(entry.Type))
	l.logger.Info("funds transferred to billing", "account_id", accountID, "entry_id", entry.ID, "amount", amount.String())
	l.publish(ctx, []models.LedgerEvent{entryEvent(models.EventEntryRecorded, entry)})
	return entry.ID, nil
}

// RecordFundraisingCredit credits a scout's funds balance with money earned
// through unit fundraising.
func (l *Ledger) RecordFundraisingCredit(ctx context.Context, caller Caller, accountID string, amount models.Money, description string) (string, error) {
	if err := authorize(caller, CanMutateLedger, "record fundraising credit"); err != nil {
		return "", err
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = "Fundraising credit"
	}

	var entry *models.JournalEntry
	err := l.inTx(ctx, "record_fundraising", func(tx storage.Tx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		unit, err := tx.GetUnit(ctx, account.UnitID)
		if err != nil {
			return err
		}
		locked, err := lockAccounts(ctx, tx, account.ID, unit.OperatingAccountID)
		if err != nil {
			return err
		}
		if _, err := scoutAccount(locked, account.ID); err != nil {
			return err
		}

		entry = &models.JournalEntry{
			ID:          ids.New(ids.PrefixEntry),
			UnitID:      unit.ID,
			Description: description,
			Type:        models.EntryTypeFundraising,
			SourceType:  models.SourceFundraising,
			SourceID:    account.ID,
			CreatedBy:   caller.UserID,
			CreatedAt:   l.now(),
			Lines: []models.JournalLine{
				{AccountID: account.ID, Kind: models.BalanceFunds, Credit: amount},
				{AccountID: unit.OperatingAccountID, Kind: models.BalanceFunds, Debit: amount},
			},
		}
		return l.post(ctx, tx, entry, locked)
	})
	if err != nil {
		return "", err
	}

	l.metrics.EntryPosted(string(entry.Type))
	l.logger.Info("fundraising credit recorded", "account_id", accountID, "entry_id", entry.ID, "amount", amount.String())
	l.publish(ctx, []models.LedgerEvent{entryEvent(models.EventEntryRecorded, entry)})
	return entry.ID, nil
}
