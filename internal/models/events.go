package models

import "time"

// LedgerEventType names an event published after a ledger commit.
type LedgerEventType string

const (
	EventEntryRecorded         LedgerEventType = "entry.recorded"
	EventEntryVoided           LedgerEventType = "entry.voided"
	EventBillingCreated        LedgerEventType = "billing.created"
	EventBillingVoided         LedgerEventType = "billing.voided"
	EventChargeVoided          LedgerEventType = "charge.voided"
	EventPaymentRecorded       LedgerEventType = "payment.recorded"
	EventTransactionReconciled LedgerEventType = "transaction.reconciled"
)

// LedgerEvent describes a committed ledger change for downstream consumers.
type LedgerEvent struct {
	Type       LedgerEventType `json:"type"`
	UnitID     string          `json:"unit_id"`
	EntryID    string          `json:"entry_id,omitempty"`
	SourceType string          `json:"source_type,omitempty"`
	SourceID   string          `json:"source_id,omitempty"`
	AccountIDs []string        `json:"account_ids,omitempty"`
	Amount     Money           `json:"amount_cents"`
	OccurredAt time.Time       `json:"occurred_at"`
}
