package calculator

import "github.com/mmynk/troopledger/internal/models"

// Balances is an account's pair of balances.
type Balances struct {
	Billing models.Money
	Funds   models.Money
}

// Add applies a signed amount to the balance of the given kind.
func (b *Balances) Add(kind models.BalanceKind, amount models.Money) {
	if kind == models.BalanceFunds {
		b.Funds += amount
		return
	}
	b.Billing += amount
}

// IsZero reports whether both balances are zero.
func (b Balances) IsZero() bool {
	return b.Billing == 0 && b.Funds == 0
}

// LineDeltas aggregates the balance change each account receives from a set
// of new lines. This is the incremental path of the balance projector.
func LineDeltas(lines []models.JournalLine) map[string]Balances {
	deltas := make(map[string]Balances)
	for _, l := range lines {
		d := deltas[l.AccountID]
		d.Add(l.Kind, l.Net())
		deltas[l.AccountID] = d
	}
	return deltas
}

// Replay derives each account's balances from its full line history.
//
// A line counts when its entry is not void. A voided original and its full
// reversal cancel each other, so neither is counted: the account ends exactly
// where it was before the original was posted. Partial compensating entries
// (e.g. a single voided charge) are ordinary non-void entries and do count.
func Replay(lines []models.PostedLine) map[string]Balances {
	balances := make(map[string]Balances)
	for _, l := range lines {
		if l.EntryVoid || l.IsReversal {
			continue
		}
		b := balances[l.AccountID]
		b.Add(l.Kind, l.Net())
		balances[l.AccountID] = b
	}
	return balances
}

// ReplayGross sums every line ever posted, voided or not. Because reversal
// entries mirror their originals exactly, the result must equal Replay; a
// mismatch means the journal itself is inconsistent.
func ReplayGross(lines []models.PostedLine) map[string]Balances {
	balances := make(map[string]Balances)
	for _, l := range lines {
		b := balances[l.AccountID]
		b.Add(l.Kind, l.Net())
		balances[l.AccountID] = b
	}
	return balances
}
