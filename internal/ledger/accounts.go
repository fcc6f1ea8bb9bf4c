package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/troopledger/internal/ids"
	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/internal/storage"
)

var hundredPercent = decimal.NewFromInt(100)

// CreateUnit creates a unit and its operating account, the counter-party of
// every scout line.
func (l *Ledger) CreateUnit(ctx context.Context, caller Caller, name string, policy models.FeePolicy) (*models.Unit, error) {
	if err := authorize(caller, CanMutateLedger, "create unit"); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: unit name is required", ErrInvalidInput)
	}
	if policy.Percent.IsNegative() || policy.Percent.GreaterThanOrEqual(hundredPercent) || policy.Fixed < 0 {
		return nil, fmt.Errorf("%w: fee policy %s%% + %s", ErrInvalidInput, policy.Percent, policy.Fixed)
	}

	now := l.now()
	unit := &models.Unit{
		ID:                 ids.New(ids.PrefixUnit),
		Name:               name,
		FeePolicy:          policy,
		OperatingAccountID: ids.New(ids.PrefixAccount),
		CreatedAt:          now,
	}
	operating := &models.Account{
		ID:        unit.OperatingAccountID,
		UnitID:    unit.ID,
		Kind:      models.AccountKindUnit,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := l.inTx(ctx, "create_unit", func(tx storage.Tx) error {
		if err := tx.CreateUnit(ctx, unit); err != nil {
			return err
		}
		return tx.CreateAccount(ctx, operating)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("unit created", "unit_id", unit.ID, "name", unit.Name)
	return unit, nil
}

// OpenAccountParams describes a new scout account.
type OpenAccountParams struct {
	UnitID     string
	ScoutID    string
	Name       string
	PayerEmail string
}

// OpenScoutAccount creates the ledger account for a scout. Each scout has
// exactly one account per unit.
func (l *Ledger) OpenScoutAccount(ctx context.Context, caller Caller, p OpenAccountParams) (*models.Account, error) {
	if err := authorize(caller, CanMutateLedger, "open account"); err != nil {
		return nil, err
	}
	p.ScoutID = strings.TrimSpace(p.ScoutID)
	p.Name = strings.TrimSpace(p.Name)
	p.PayerEmail = strings.TrimSpace(p.PayerEmail)
	if p.UnitID == "" || p.ScoutID == "" || p.Name == "" {
		return nil, fmt.Errorf("%w: unit, scout id and name are required", ErrInvalidInput)
	}

	now := l.now()
	account := &models.Account{
		ID:         ids.New(ids.PrefixAccount),
		UnitID:     p.UnitID,
		Kind:       models.AccountKindScout,
		ScoutID:    p.ScoutID,
		Name:       p.Name,
		PayerEmail: p.PayerEmail,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := l.inTx(ctx, "open_account", func(tx storage.Tx) error {
		if _, err := tx.GetUnit(ctx, p.UnitID); err != nil {
			return err
		}
		existing, err := tx.ListAccounts(ctx, p.UnitID)
		if err != nil {
			return err
		}
		for _, a := range existing {
			if a.Kind == models.AccountKindScout && a.ScoutID == p.ScoutID {
				return fmt.Errorf("%w: scout %s already has account %s", ErrInvalidInput, p.ScoutID, a.ID)
			}
		}
		return tx.CreateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("scout account opened", "account_id", account.ID, "unit_id", account.UnitID)
	return account, nil
}

// GetUnit returns a unit.
func (l *Ledger) GetUnit(ctx context.Context, unitID string) (*models.Unit, error) {
	return l.store.GetUnit(ctx, unitID)
}

// GetAccount returns an account with its cached balances.
func (l *Ledger) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	return l.store.GetAccount(ctx, accountID)
}

// ListAccounts returns every account of a unit.
func (l *Ledger) ListAccounts(ctx context.Context, unitID string) ([]*models.Account, error) {
	if _, err := l.store.GetUnit(ctx, unitID); err != nil {
		return nil, err
	}
	return l.store.ListAccounts(ctx, unitID)
}

// ListAccountEntries returns the newest entries touching an account.
func (l *Ledger) ListAccountEntries(ctx context.Context, accountID string, limit int) ([]*models.JournalEntry, error) {
	if _, err := l.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return l.store.ListAccountEntries(ctx, accountID, limit)
}

// GetEntry returns a journal entry with its lines.
func (l *Ledger) GetEntry(ctx context.Context, entryID string) (*models.JournalEntry, error) {
	return l.store.GetEntry(ctx, entryID)
}

// GetBillingRecord returns a billing record with its charges.
func (l *Ledger) GetBillingRecord(ctx context.Context, recordID string) (*models.BillingRecord, error) {
	return l.store.GetBillingRecord(ctx, recordID)
}

// GetPayment returns a payment.
func (l *Ledger) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	return l.store.GetPayment(ctx, paymentID)
}

// scoutAccount returns the locked account if it is a scout account.
func scoutAccount(locked lockSet, accountID string) (*models.Account, error) {
	acct, ok := locked[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	if acct.Kind != models.AccountKindScout {
		return nil, fmt.Errorf("%w: account %s is not a scout account", ErrInvalidInput, accountID)
	}
	return acct, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
