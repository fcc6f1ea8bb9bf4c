package calculator

import (
	"testing"

	"github.com/mmynk/troopledger/internal/models"
)

func line(account string, kind models.BalanceKind, debit, credit models.Money) models.JournalLine {
	return models.JournalLine{AccountID: account, Kind: kind, Debit: debit, Credit: credit}
}

func TestLineDeltas(t *testing.T) {
	deltas := LineDeltas([]models.JournalLine{
		line("alice", models.BalanceFunds, 4500, 0),
		line("alice", models.BalanceBilling, 0, 4500),
		line("bob", models.BalanceBilling, 4000, 0),
		line("unit", models.BalanceBilling, 0, 4000),
	})

	if got := deltas["alice"]; got.Funds != -4500 || got.Billing != 4500 {
		t.Errorf("alice delta = %+v, want funds -4500 billing +4500", got)
	}
	if got := deltas["bob"]; got.Billing != -4000 || got.Funds != 0 {
		t.Errorf("bob delta = %+v, want billing -4000", got)
	}
	if got := deltas["unit"]; got.Billing != 4000 {
		t.Errorf("unit delta = %+v, want billing +4000", got)
	}
}

func TestReplay(t *testing.T) {
	charge := line("alice", models.BalanceBilling, 4000, 0)
	reversal := line("alice", models.BalanceBilling, 0, 4000)
	payment := line("alice", models.BalanceBilling, 0, 1000)

	tests := []struct {
		name  string
		lines []models.PostedLine
		want  models.Money
	}{
		{
			name:  "active charge and payment",
			lines: []models.PostedLine{{JournalLine: charge}, {JournalLine: payment}},
			want:  -3000,
		},
		{
			name: "voided charge and its reversal cancel",
			lines: []models.PostedLine{
				{JournalLine: charge, EntryVoid: true},
				{JournalLine: reversal, IsReversal: true},
				{JournalLine: payment},
			},
			want: 1000,
		},
		{
			name: "partial compensation counts while active",
			lines: []models.PostedLine{
				{JournalLine: charge},
				{JournalLine: reversal},
			},
			want: 0,
		},
		{
			name:  "no lines",
			lines: nil,
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Replay(tt.lines)["alice"].Billing
			if got != tt.want {
				t.Errorf("Replay() billing = %s, want %s", got, tt.want)
			}
			if gross := ReplayGross(tt.lines)["alice"].Billing; gross != got {
				t.Errorf("ReplayGross() = %s, Replay() = %s; want equal", gross, got)
			}
		})
	}
}
