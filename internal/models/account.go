package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceKind tags a journal line with the balance it affects.
type BalanceKind string

const (
	// BalanceBilling is what a scout owes the unit. Negative means money is owed.
	BalanceBilling BalanceKind = "billing"
	// BalanceFunds is a scout's discretionary savings (e.g. fundraising).
	BalanceFunds   BalanceKind = "funds"
)

// Valid reports whether k is a known balance kind.
func (k BalanceKind) Valid() bool {
	return k == BalanceBilling || k == BalanceFunds
}

// AccountKind distinguishes scout accounts from the unit's own operating account.
type AccountKind string

const (
	AccountKindScout AccountKind = "scout"
	// AccountKindUnit is the counter-party of every scout line, so that
	// charges, payments and fundraising credits balance.
	AccountKindUnit  AccountKind = "unit"
)

// FeePolicy is a unit's card processing fee: a percentage of the gross amount
// plus a fixed per-transaction component.
type FeePolicy struct {
	// Percent is expressed in percent, e.g. 2.6 for 2.6%.
	Percent decimal.Decimal

	// Fixed is added to every card payment, e.g. 10 cents.
	Fixed Money
}

// Unit is a scouting unit (troop, pack, crew). All accounts belong to exactly one unit.
type Unit struct {
	// ID is the unit identifier (prefix "unit").
	ID string

	// Name is the display name, e.g. "Troop 42".
	Name string

	// FeePolicy is applied to card payments recorded for this unit's scouts.
	FeePolicy FeePolicy

	// OperatingAccountID is the unit's own account (kind "unit").
	OperatingAccountID string

	CreatedAt time.Time
}

// Account holds the cached balances for one scout, or for the unit itself.
//
// BillingBalance and FundsBalance are derived values: they must always equal the
// sum of credit − debit over the account's lines in non-void entries. They are
// written only by the ledger's balance projector.
type Account struct {
	ID     string
	UnitID string
	Kind   AccountKind

	// ScoutID is the external scout record id. Empty for unit accounts.
	ScoutID string

	// Name is the scout's display name.
	Name string

	// PayerEmail is used to match processor transactions to this account.
	PayerEmail string

	BillingBalance Money
	FundsBalance   Money

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Owed returns what the account currently owes (−billing), or zero when the
// billing balance is not negative.
func (a *Account) Owed() Money {
	if a.BillingBalance < 0 {
		return -a.BillingBalance
	}
	return 0
}
