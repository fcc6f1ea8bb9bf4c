package models

import "time"

// EntryType classifies a journal entry.
type EntryType string

const (
	EntryTypeCharge       EntryType = "charge"
	EntryTypePayment      EntryType = "payment"
	EntryTypeVoidReversal EntryType = "void_reversal"
	EntryTypeTransfer     EntryType = "transfer"
	EntryTypeFundraising  EntryType = "fundraising"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeCharge, EntryTypePayment, EntryTypeVoidReversal, EntryTypeTransfer, EntryTypeFundraising:
		return true
	}
	return false
}

// Source types name the ledger object that produced an entry.
const (
	SourceBillingRecord = "billing_record"
	SourceBillingCharge = "billing_charge"
	SourcePayment       = "payment"
	SourceTransfer      = "transfer"
	SourceFundraising   = "fundraising"
	SourceManual        = "manual"
)

// JournalEntry is an atomic financial event. Entries are never edited after
// they are posted; the only later change is the void flag, set when a
// reversal entry is posted against them.
type JournalEntry struct {
	ID          string
	UnitID      string
	Description string
	Type        EntryType

	// SourceType and SourceID point at the object that produced the entry
	// (billing record, charge, payment...).
	SourceType string
	SourceID   string

	// ExternalRef is an optional external reference, e.g. a processor payment id.
	ExternalRef string

	IsPosted   bool
	IsVoid     bool
	VoidReason string
	VoidedAt   *time.Time

	// ReversesEntryID is set on a full reversal entry and names the voided original.
	ReversesEntryID string

	// ReversedByEntryID is set on a voided original and names its reversal.
	ReversedByEntryID string

	CreatedBy string
	CreatedAt time.Time

	Lines []JournalLine
}

// Totals returns the sum of debits and credits across the entry's lines.
func (e *JournalEntry) Totals() (debit, credit Money) {
	for _, l := range e.Lines {
		debit += l.Debit
		credit += l.Credit
	}
	return debit, credit
}

// AccountIDs returns the distinct accounts touched by the entry, in line order.
func (e *JournalEntry) AccountIDs() []string {
	seen := make(map[string]bool, len(e.Lines))
	var ids []string
	for _, l := range e.Lines {
		if !seen[l.AccountID] {
			seen[l.AccountID] = true
			ids = append(ids, l.AccountID)
		}
	}
	return ids
}

// JournalLine is one posting against one account. Exactly one of Debit or
// Credit is non-zero.
type JournalLine struct {
	ID        string
	EntryID   string
	AccountID string
	Kind      BalanceKind
	Debit     Money
	Credit    Money
}

// Net returns the line's effect on its balance: credit − debit.
func (l JournalLine) Net() Money {
	return l.Credit - l.Debit
}

// PostedLine is a journal line together with the state of its entry, as read
// back for a full balance replay.
type PostedLine struct {
	JournalLine

	// EntryVoid is true when the line's entry has been voided.
	EntryVoid bool

	// IsReversal is true when the line's entry is the full reversal of a voided entry.
	IsReversal bool
}
