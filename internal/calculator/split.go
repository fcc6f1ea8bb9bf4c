package calculator

import (
	"fmt"
	"sort"

	"github.com/mmynk/troopledger/internal/models"
)

// FairShare splits total evenly across n scouts to the cent.
// Shares differ by at most one cent and always sum exactly to total; the
// leftover cents go to the first scouts in input order.
//
// Example: $100.00 / 3 → $33.34, $33.33, $33.33
func FairShare(total models.Money, n int) ([]models.Money, error) {
	if n <= 0 {
		return nil, fmt.Errorf("must have at least one scout")
	}
	weights := make([]int64, n)
	for i := range weights {
		weights[i] = 1
	}
	return Allocate(total, weights)
}

// Allocate splits total proportionally to weights using the largest-remainder
// method: every share is first rounded down, then the remaining cents go one
// at a time to the shares with the largest fractional remainder. Ties are
// broken by input order, so the result is deterministic and auditable.
func Allocate(total models.Money, weights []int64) ([]models.Money, error) {
	if total <= 0 {
		return nil, fmt.Errorf("total must be positive, got %s", total)
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("must have at least one share")
	}

	var sumWeights int64
	for i, w := range weights {
		if w <= 0 {
			return nil, fmt.Errorf("weight %d must be positive, got %d", i, w)
		}
		sumWeights += w
	}
	if int64(total) < int64(len(weights)) {
		return nil, fmt.Errorf("total %s is too small to split %d ways", total, len(weights))
	}

	shares := make([]models.Money, len(weights))
	remainders := make([]int64, len(weights))
	var allocated models.Money
	for i, w := range weights {
		product := int64(total) * w
		shares[i] = models.Money(product / sumWeights)
		remainders[i] = product % sumWeights
		allocated += shares[i]
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})

	leftover := int(total - allocated)
	for k := 0; k < leftover; k++ {
		shares[order[k]]++
	}

	for i, s := range shares {
		if s <= 0 {
			return nil, fmt.Errorf("share %d rounds to zero", i)
		}
	}
	return shares, nil
}
