package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mmynk/troopledger/internal/storage"
)

// inTx runs fn in a storage transaction, re-running the whole transaction
// when it fails with a lock conflict. fn must not keep state across attempts.
// Any other error is returned as is after the first attempt.
func (l *Ledger) inTx(ctx context.Context, op string, fn func(tx storage.Tx) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if attempt > 1 {
			l.metrics.Retried(op)
			l.logger.Warn("retrying ledger transaction", "operation", op, "attempt", attempt)
		}

		err := l.store.WithTx(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, storage.ErrConflict) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(l.maxAttempts)),
	)
	return err
}
