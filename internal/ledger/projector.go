package ledger

import (
	"context"
	"fmt"
	"slices"

	"github.com/mmynk/troopledger/internal/calculator"
	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/internal/storage"
)

// lockSet is the set of accounts locked by the current transaction, keyed by
// id. The projector keeps the in-memory balances current as it posts, so
// later decisions in the same transaction see authoritative values.
type lockSet map[string]*models.Account

// lockAccounts locks every account the transaction will touch in one call.
func lockAccounts(ctx context.Context, tx storage.Tx, accountIDs ...string) (lockSet, error) {
	accounts, err := tx.LockAccounts(ctx, accountIDs...)
	if err != nil {
		return nil, err
	}
	set := make(lockSet, len(accounts))
	for _, a := range accounts {
		set[a.ID] = a
	}
	return set, nil
}

// validateLines checks the shape of an entry's lines: at least one line,
// every line positive with exactly one of debit or credit, and Σdebit ==
// Σcredit.
func validateLines(lines []models.JournalLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: entry has no lines", ErrUnbalancedEntry)
	}
	var debit, credit models.Money
	for i, l := range lines {
		if l.AccountID == "" {
			return fmt.Errorf("%w: line %d has no account", ErrInvalidInput, i)
		}
		if !l.Kind.Valid() {
			return fmt.Errorf("%w: line %d has unknown balance kind %q", ErrInvalidInput, i, l.Kind)
		}
		if l.Debit < 0 || l.Credit < 0 {
			return fmt.Errorf("%w: line %d is negative", ErrUnbalancedEntry, i)
		}
		if (l.Debit > 0) == (l.Credit > 0) {
			return fmt.Errorf("%w: line %d must have exactly one of debit or credit", ErrUnbalancedEntry, i)
		}
		debit += l.Debit
		credit += l.Credit
	}
	if debit != credit {
		return fmt.Errorf("%w: debits %s != credits %s", ErrUnbalancedEntry, debit, credit)
	}
	return nil
}

// post writes a balanced entry and applies its balance deltas. Every account
// the entry touches must already be in locked and belong to the entry's
// unit. A scout's funds balance may never go negative.
func (l *Ledger) post(ctx context.Context, tx storage.Tx, entry *models.JournalEntry, locked lockSet) error {
	if err := validateLines(entry.Lines); err != nil {
		return err
	}

	deltas := calculator.LineDeltas(entry.Lines)
	accountIDs := make([]string, 0, len(deltas))
	for id := range deltas {
		accountIDs = append(accountIDs, id)
	}
	slices.Sort(accountIDs)

	for _, id := range accountIDs {
		acct, ok := locked[id]
		if !ok {
			return fmt.Errorf("account %s is not locked by this transaction", id)
		}
		if acct.UnitID != entry.UnitID {
			return fmt.Errorf("%w: account %s does not belong to unit %s", ErrInvalidInput, id, entry.UnitID)
		}
		d := deltas[id]
		if acct.Kind == models.AccountKindScout && acct.FundsBalance+d.Funds < 0 {
			return fmt.Errorf("%w: account %s has %s in funds", ErrInsufficientFunds, id, acct.FundsBalance)
		}
	}

	entry.IsPosted = true
	if err := tx.InsertEntry(ctx, entry); err != nil {
		return err
	}

	for _, id := range accountIDs {
		d := deltas[id]
		if d.IsZero() {
			continue
		}
		if err := tx.ApplyBalanceDelta(ctx, id, d.Billing, d.Funds, entry.CreatedAt); err != nil {
			return err
		}
		acct := locked[id]
		acct.BillingBalance += d.Billing
		acct.FundsBalance += d.Funds
		acct.UpdatedAt = entry.CreatedAt
	}
	return nil
}
