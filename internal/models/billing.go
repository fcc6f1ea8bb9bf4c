package models

import "time"

// BillingRecord is a unit-level charge event split across scouts.
type BillingRecord struct {
	ID          string
	UnitID      string
	Description string
	TotalAmount Money
	BillingDate time.Time

	IsVoid     bool
	VoidReason string
	VoidedAt   *time.Time

	// EntryID is the charge entry that debited every scout in one posting.
	EntryID string

	CreatedBy string
	CreatedAt time.Time

	Charges []BillingCharge
}

// ActiveCharges returns the charges that have not been voided.
func (r *BillingRecord) ActiveCharges() []BillingCharge {
	var active []BillingCharge
	for _, c := range r.Charges {
		if !c.IsVoid {
			active = append(active, c)
		}
	}
	return active
}

// BillingCharge is one scout's fair share of a billing record.
type BillingCharge struct {
	ID        string
	RecordID  string
	AccountID string
	Amount    Money

	IsPaid    bool
	PaymentID string

	IsVoid      bool
	VoidReason  string
	// VoidEntryID is the compensating entry posted when the charge was voided.
	VoidEntryID string
	VoidedAt    *time.Time

	CreatedAt time.Time
}
