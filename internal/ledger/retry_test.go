package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/internal/storage"
)

// flakyStore fails the first failures transactions with err before handing
// over to the real store.
type flakyStore struct {
	storage.Store
	failures int
	err      error
	calls    int
}

func (s *flakyStore) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.calls++
	if s.calls <= s.failures {
		return s.err
	}
	return s.Store.WithTx(ctx, fn)
}

func TestTransactionRetry(t *testing.T) {
	busy := fmt.Errorf("%w: database is locked", storage.ErrConflict)

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   error
	}{
		{"succeeds after conflicts", 2, busy, 3, nil},
		{"gives up after max attempts", 10, busy, 3, ErrConflict},
		{"other errors are not retried", 10, errors.New("disk full"), 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupLedger(t, 1)
			alice := f.scouts[0]
			store := &flakyStore{Store: f.store, failures: tt.failures, err: tt.err}
			l := New(store, WithMaxAttempts(3))

			_, err := l.RecordFundraisingCredit(f.ctx, treasurer, alice.ID, models.Dollars(5, 0), "Popcorn")
			switch {
			case tt.wantCalls == 1:
				if err == nil || errors.Is(err, ErrConflict) {
					t.Fatalf("RecordFundraisingCredit() error = %v, want the store error", err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) || !IsRetryable(err) {
					t.Fatalf("RecordFundraisingCredit() error = %v, want %v", err, tt.wantErr)
				}
			case err != nil:
				t.Fatalf("RecordFundraisingCredit failed: %v", err)
			}
			if store.calls != tt.wantCalls {
				t.Errorf("transaction ran %d times, want %d", store.calls, tt.wantCalls)
			}

			want := models.Money(0)
			if err == nil {
				want = models.Dollars(5, 0)
			}
			if got := f.funds(t, alice.ID); got != want {
				t.Errorf("funds = %s, want %s", got, want)
			}
		})
	}
}
