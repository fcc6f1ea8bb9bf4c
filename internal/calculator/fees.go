package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/troopledger/internal/models"
)

var hundred = decimal.NewFromInt(100)

// CardFee computes the processing fee for a card payment:
// round(amount × percent / 100) + fixed, capped at the amount itself.
//
// Example: $40.00 at 2.6% + $0.10 → $1.04 + $0.10 = $1.14
func CardFee(amount models.Money, policy models.FeePolicy) models.Money {
	if amount <= 0 {
		return 0
	}
	variable := amount.Decimal().Mul(policy.Percent).Div(hundred)
	fee := models.FromDecimal(variable) + policy.Fixed
	if fee < 0 {
		return 0
	}
	return fee.Min(amount)
}

// PaymentFee returns the fee for a payment made with the given method.
// Only card payments carry a fee.
func PaymentFee(method models.PaymentMethod, amount models.Money, policy models.FeePolicy) models.Money {
	if method != models.PaymentMethodCard {
		return 0
	}
	return CardFee(amount, policy)
}
