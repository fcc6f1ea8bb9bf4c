package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/mmynk/troopledger/internal/models"
)

const unitColumns = "id, name, fee_percent, fee_fixed, operating_account_id, created_at"

func scanUnit(row scanner) (*models.Unit, error) {
	u := &models.Unit{}
	var createdAt int64
	if err := row.Scan(&u.ID, &u.Name, &u.FeePolicy.Percent, &u.FeePolicy.Fixed, &u.OperatingAccountID, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = fromMicros(createdAt)
	return u, nil
}

// CreateUnit persists a new unit.
func (s *queries) CreateUnit(ctx context.Context, unit *models.Unit) error {
	_, err := s.exec(ctx,
		"INSERT INTO units ("+unitColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		unit.ID, unit.Name, unit.FeePolicy.Percent, unit.FeePolicy.Fixed, unit.OperatingAccountID, toMicros(unit.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert unit: %w", err)
	}
	return nil
}

// GetUnit retrieves a unit by ID.
func (s *queries) GetUnit(ctx context.Context, unitID string) (*models.Unit, error) {
	u, err := scanUnit(s.queryRow(ctx, "SELECT "+unitColumns+" FROM units WHERE id = ?", unitID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("unit", unitID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}
	return u, nil
}

const accountColumns = "id, unit_id, kind, scout_id, name, payer_email, billing_balance, funds_balance, created_at, updated_at"

func scanAccount(row scanner) (*models.Account, error) {
	a := &models.Account{}
	var createdAt, updatedAt int64
	err := row.Scan(&a.ID, &a.UnitID, &a.Kind, &a.ScoutID, &a.Name, &a.PayerEmail,
		&a.BillingBalance, &a.FundsBalance, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = fromMicros(createdAt)
	a.UpdatedAt = fromMicros(updatedAt)
	return a, nil
}

func (s *queries) listAccounts(ctx context.Context, query string, args ...any) ([]*models.Account, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// CreateAccount persists a new account with zero balances unless set.
func (s *queries) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}
	_, err := s.exec(ctx,
		"INSERT INTO accounts ("+accountColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		account.ID, account.UnitID, account.Kind, account.ScoutID, account.Name, account.PayerEmail,
		account.BillingBalance, account.FundsBalance, toMicros(account.CreatedAt), toMicros(account.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (s *queries) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	a, err := scanAccount(s.queryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("account", accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// ListAccounts returns a unit's accounts, the unit operating account first.
func (s *queries) ListAccounts(ctx context.Context, unitID string) ([]*models.Account, error) {
	return s.listAccounts(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE unit_id = ? ORDER BY kind DESC, name, id",
		unitID,
	)
}

// FindScoutAccountsByEmail matches payer emails case-insensitively.
func (s *queries) FindScoutAccountsByEmail(ctx context.Context, email string) ([]*models.Account, error) {
	return s.listAccounts(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE kind = ? AND payer_email <> '' AND lower(payer_email) = lower(?) ORDER BY id",
		models.AccountKindScout, email,
	)
}

// LockAccounts locks accounts in id order so that concurrent writers touching
// overlapping sets cannot deadlock.
func (s *queries) LockAccounts(ctx context.Context, accountIDs ...string) ([]*models.Account, error) {
	ids := slices.Clone(accountIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	accounts, err := s.listAccounts(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id IN ("+placeholders(len(ids))+") ORDER BY id"+s.lockSuffix(true),
		stringArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	if len(accounts) != len(ids) {
		for i, id := range ids {
			if i >= len(accounts) || accounts[i].ID != id {
				return nil, notFound("account", id)
			}
		}
	}
	return accounts, nil
}

// ApplyBalanceDelta adds to an account's cached balances.
func (s *queries) ApplyBalanceDelta(ctx context.Context, accountID string, billing, funds models.Money, at time.Time) error {
	return s.execOne(ctx, "account", accountID,
		"UPDATE accounts SET billing_balance = billing_balance + ?, funds_balance = funds_balance + ?, updated_at = ? WHERE id = ?",
		billing, funds, toMicros(at), accountID,
	)
}

// SetBalances overwrites an account's cached balances.
func (s *queries) SetBalances(ctx context.Context, accountID string, billing, funds models.Money, at time.Time) error {
	return s.execOne(ctx, "account", accountID,
		"UPDATE accounts SET billing_balance = ?, funds_balance = ?, updated_at = ? WHERE id = ?",
		billing, funds, toMicros(at), accountID,
	)
}
