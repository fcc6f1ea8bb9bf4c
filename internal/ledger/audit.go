package ledger

import (
	"context"

	"github.com/mmynk/troopledger/internal/calculator"
	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/internal/storage"
)

// AccountAudit compares an account's cached balances with the balances
// derived from its journal lines.
type AccountAudit struct {
	AccountID string
	Cached    calculator.Balances
	Derived   calculator.Balances

	// Gross is the sum of every line, voided or not. It equals Derived when
	// every void has its full reversal.
	Gross calculator.Balances
}

// OK reports whether the cache and the journal agree.
func (a AccountAudit) OK() bool {
	return a.Cached == a.Derived && a.Derived == a.Gross
}

// VerifyAccount re-derives an account's balances from its full line history
// and compares them with the cache. It writes nothing.
func (l *Ledger) VerifyAccount(ctx context.Context, accountID string) (*AccountAudit, error) {
	var audit *AccountAudit
	err := l.store.WithTx(ctx, func(tx storage.Tx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		lines, err := tx.ListAccountLines(ctx, accountID)
		if err != nil {
			return err
		}
		audit = auditAccount(account, lines)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !audit.OK() {
		l.logger.Warn("account balance mismatch",
			"account_id", accountID,
			"cached_billing", audit.Cached.Billing.String(),
			"derived_billing", audit.Derived.Billing.String(),
			"cached_funds", audit.Cached.Funds.String(),
			"derived_funds", audit.Derived.Funds.String(),
		)
	}
	return audit, nil
}

func auditAccount(account *models.Account, lines []models.PostedLine) *AccountAudit {
	return &AccountAudit{
		AccountID: account.ID,
		Cached:    calculator.Balances{Billing: account.BillingBalance, Funds: account.FundsBalance},
		Derived:   calculator.Replay(lines)[account.ID],
		Gross:     calculator.ReplayGross(lines)[account.ID],
	}
}

// RebuildBalances recomputes every cached balance of a unit from a full
// replay of its journal and overwrites the ones that disagree. It returns the
// audits of the accounts it corrected.
func (l *Ledger) RebuildBalances(ctx context.Context, caller Caller, unitID string) ([]AccountAudit, error) {
	if err := authorize(caller, CanRepair, "rebuild balances"); err != nil {
		return nil, err
	}

	var corrected []AccountAudit
	err := l.inTx(ctx, "rebuild_balances", func(tx storage.Tx) error {
		corrected = nil

		if _, err := tx.GetUnit(ctx, unitID); err != nil {
			return err
		}
		accounts, err := tx.ListAccounts(ctx, unitID)
		if err != nil {
			return err
		}
		accountIDs := make([]string, len(accounts))
		for i, a := range accounts {
			accountIDs[i] = a.ID
		}
		locked, err := lockAccounts(ctx, tx, accountIDs...)
		if err != nil {
			return err
		}
		lines, err := tx.ListPostedLines(ctx, unitID)
		if err != nil {
			return err
		}

		derived := calculator.Replay(lines)
		gross := calculator.ReplayGross(lines)
		now := l.now()
		for _, id := range accountIDs {
			acct := locked[id]
			audit := AccountAudit{
				AccountID: id,
				Cached:    calculator.Balances{Billing: acct.BillingBalance, Funds: acct.FundsBalance},
				Derived:   derived[id],
				Gross:     gross[id],
			}
			if audit.Cached == audit.Derived {
				continue
			}
			if err := tx.SetBalances(ctx, id, audit.Derived.Billing, audit.Derived.Funds, now); err != nil {
				return err
			}
			corrected = append(corrected, audit)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, a := range corrected {
		l.logger.Warn("cached balance rebuilt",
			"account_id", a.AccountID,
			"billing", a.Derived.Billing.String(),
			"funds", a.Derived.Funds.String(),
		)
	}
	return corrected, nil
}
