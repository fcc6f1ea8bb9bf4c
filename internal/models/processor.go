package models

import "time"

// ReconcileState is where a processor transaction is in reconciliation.
type ReconcileState string

const (
	ReconcileUnlinked   ReconcileState = "unlinked"
	ReconcileLinked     ReconcileState = "linked"
	ReconcileReconciled ReconcileState = "reconciled"
)

// ProcessorStatusCompleted is the processor status of a captured, settled payment.
const ProcessorStatusCompleted = "COMPLETED"

// SquareTransaction mirrors a transaction reported by the card processor.
// It moves unlinked → linked → reconciled as it is matched to a scout account
// and then turned into a Payment.
type SquareTransaction struct {
	ID                 string
	ProcessorPaymentID string

	AmountMinor int64
	FeeMinor    int64
	NetMinor    int64

	// Status is the processor's own status string, e.g. "COMPLETED".
	Status     string
	BuyerEmail string

	State        ReconcileState
	IsReconciled bool

	// UnitID and AccountID are empty until the transaction is linked.
	UnitID    string
	AccountID string
	PaymentID string

	ReceivedAt time.Time
	UpdatedAt  time.Time
}

// ProcessorRecord is one record from the processor transaction feed.
type ProcessorRecord struct {
	ProcessorPaymentID string
	AmountMinor        int64
	FeeMinor           int64
	Status             string
	BuyerEmail         string
}
