package calculator

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/troopledger/internal/models"
)

func TestCardFee(t *testing.T) {
	standard := models.FeePolicy{Percent: decimal.RequireFromString("2.6"), Fixed: models.Cents(10)}

	tests := []struct {
		name   string
		amount models.Money
		policy models.FeePolicy
		want   models.Money
	}{
		{"forty dollars at 2.6% plus 10 cents", models.Dollars(40, 0), standard, models.Cents(114)},
		{"65 cents plus fixed", models.Cents(2500), standard, models.Cents(75)},
		{"32.5 cents rounds up", models.Cents(1250), standard, models.Cents(43)},
		{"26.26 cents rounds down", models.Cents(1010), standard, models.Cents(36)},
		{"fee capped at amount", models.Cents(5), standard, models.Cents(5)},
		{"zero policy", models.Dollars(40, 0), models.FeePolicy{Percent: decimal.Zero}, 0},
		{"zero amount", 0, standard, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CardFee(tt.amount, tt.policy); got != tt.want {
				t.Errorf("CardFee(%s) = %s, want %s", tt.amount, got, tt.want)
			}
		})
	}
}

func TestPaymentFeeOnlyForCards(t *testing.T) {
	policy := models.FeePolicy{Percent: decimal.RequireFromString("2.6"), Fixed: models.Cents(10)}
	for _, m := range []models.PaymentMethod{models.PaymentMethodCash, models.PaymentMethodCheck} {
		if got := PaymentFee(m, models.Dollars(40, 0), policy); got != 0 {
			t.Errorf("PaymentFee(%s) = %s, want $0.00", m, got)
		}
	}
	if got := PaymentFee(models.PaymentMethodCard, models.Dollars(40, 0), policy); got != models.Cents(114) {
		t.Errorf("PaymentFee(card) = %s, want $1.14", got)
	}
}
