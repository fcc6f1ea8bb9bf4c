package ledger

import (
	"errors"

	"github.com/mmynk/troopledger/internal/storage"
)

// Sentinel errors returned by ledger operations. Callers match them with
// errors.Is; the returned error usually wraps one of these with context.
var (
	ErrUnbalancedEntry       = errors.New("ledger: entry is not balanced")
	ErrAlreadyVoid           = errors.New("ledger: already void")
	ErrAlreadyPaid           = errors.New("ledger: charge already paid")
	ErrHasPaidCharges        = errors.New("ledger: billing record has paid charges")
	ErrReasonRequired        = errors.New("ledger: void reason is required")
	ErrInsufficientFunds     = errors.New("ledger: insufficient funds")
	ErrOverpayment           = errors.New("ledger: amount exceeds balance owed")
	ErrExternalCaptureFailed = errors.New("ledger: external capture failed")

	ErrInvalidInput       = errors.New("ledger: invalid input")
	ErrForbidden          = errors.New("ledger: operation not permitted for caller")
	ErrEntryManaged       = errors.New("ledger: entry is managed by its source")
	ErrNotLinked          = errors.New("ledger: transaction is not linked to an account")
	ErrNotSettled         = errors.New("ledger: transaction is not completed at the processor")
	ErrAccountMismatch    = errors.New("ledger: transaction belongs to a different account")
	ErrAmountMismatch     = errors.New("ledger: transaction amount does not match payment")
	ErrAlreadyReconciled  = errors.New("ledger: transaction already reconciled")
	ErrGatewayUnavailable = errors.New("ledger: no capture gateway configured")
)

// ErrNotFound is returned when a referenced unit, account, entry, record,
// charge, payment or transaction does not exist.
var ErrNotFound = storage.ErrNotFound

// ErrConflict is returned when a write kept losing lock races after the
// configured number of attempts.
var ErrConflict = storage.ErrConflict

// IsRetryable reports whether err is a transient conflict that may succeed if
// the operation is submitted again.
func IsRetryable(err error) bool {
	return errors.Is(err, storage.ErrConflict)
}
