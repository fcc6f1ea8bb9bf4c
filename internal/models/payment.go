package models

import "time"

// PaymentMethod is how a payment was made.
type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodCheck PaymentMethod = "check"
	PaymentMethodCard  PaymentMethod = "card"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodCheck || m == PaymentMethodCard
}

// PaymentStatus is the lifecycle state of a recorded payment.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	// PaymentStatusVoided marks a payment whose entry was voided as a mistake.
	PaymentStatusVoided    PaymentStatus = "voided"
)

// Payment is money received toward a scout's billing balance. The scout is
// credited the gross Amount; FeeAmount is the unit's processing cost.
type Payment struct {
	ID        string
	UnitID    string
	AccountID string

	Amount    Money
	FeeAmount Money
	NetAmount Money

	Method       PaymentMethod
	ProcessorRef string
	Status       PaymentStatus

	EntryID string

	// ChargeIDs are the billing charges this payment was applied to.
	ChargeIDs []string

	CreatedBy string
	CreatedAt time.Time
}
