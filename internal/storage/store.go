// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/troopledger/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a transaction lost a lock or serialization
	// race and may succeed if run again.
	ErrConflict = errors.New("transaction conflict")
)

// Reader holds the read-only queries available both outside and inside a
// transaction.
type Reader interface {
	GetUnit(ctx context.Context, unitID string) (*models.Unit, error)

	GetAccount(ctx context.Context, accountID string) (*models.Account, error)

	// ListAccounts returns every account of a unit, unit operating account first.
	ListAccounts(ctx context.Context, unitID string) ([]*models.Account, error)

	// FindScoutAccountsByEmail returns the scout accounts whose payer email
	// matches, case-insensitively.
	FindScoutAccountsByEmail(ctx context.Context, email string) ([]*models.Account, error)

	// GetEntry returns an entry with its lines.
	GetEntry(ctx context.Context, entryID string) (*models.JournalEntry, error)

	// ListAccountEntries returns the newest entries touching an account, with
	// their lines. A limit of zero or less returns every entry.
	ListAccountEntries(ctx context.Context, accountID string, limit int) ([]*models.JournalEntry, error)

	// ListPostedLines returns every posted line of a unit in posting order.
	ListPostedLines(ctx context.Context, unitID string) ([]models.PostedLine, error)

	// ListAccountLines returns every posted line of one account in posting order.
	ListAccountLines(ctx context.Context, accountID string) ([]models.PostedLine, error)

	// GetBillingRecord returns a record with all of its charges.
	GetBillingRecord(ctx context.Context, recordID string) (*models.BillingRecord, error)

	GetCharge(ctx context.Context, chargeID string) (*models.BillingCharge, error)

	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)

	GetPaymentByEntry(ctx context.Context, entryID string) (*models.Payment, error)

	GetPaymentByProcessorRef(ctx context.Context, processorRef string) (*models.Payment, error)

	GetProcessorTransaction(ctx context.Context, id string) (*models.SquareTransaction, error)

	GetProcessorTransactionByPaymentID(ctx context.Context, processorPaymentID string) (*models.SquareTransaction, error)

	// ListUnlinkedTransactions returns processor transactions not yet matched
	// to an account, oldest first.
	ListUnlinkedTransactions(ctx context.Context) ([]*models.SquareTransaction, error)
}

// Tx is a single database transaction. Lock methods take the row locks the
// backend offers and return the authoritative row as of the lock.
type Tx interface {
	Reader

	// LockAccounts locks the given accounts in id order and returns them in
	// the same order. It fails with ErrNotFound if any id is unknown.
	LockAccounts(ctx context.Context, accountIDs ...string) ([]*models.Account, error)

	CreateUnit(ctx context.Context, unit *models.Unit) error
	CreateAccount(ctx context.Context, account *models.Account) error

	// InsertEntry persists an entry and its lines. Line ids are generated when unset.
	InsertEntry(ctx context.Context, entry *models.JournalEntry) error
	LockEntry(ctx context.Context, entryID string) (*models.JournalEntry, error)
	MarkEntryVoid(ctx context.Context, entryID, reason, reversedBy string, at time.Time) error

	// ApplyBalanceDelta adds billing and funds to an account's cached balances.
	ApplyBalanceDelta(ctx context.Context, accountID string, billing, funds models.Money, at time.Time) error

	// SetBalances overwrites an account's cached balances.
	SetBalances(ctx context.Context, accountID string, billing, funds models.Money, at time.Time) error

	// InsertBillingRecord persists a record and its charges.
	InsertBillingRecord(ctx context.Context, record *models.BillingRecord) error
	LockBillingRecord(ctx context.Context, recordID string) (*models.BillingRecord, error)
	MarkRecordVoid(ctx context.Context, recordID, reason string, at time.Time) error

	LockCharge(ctx context.Context, chargeID string) (*models.BillingCharge, error)
	MarkChargeVoid(ctx context.Context, chargeID, reason, voidEntryID string, at time.Time) error
	MarkChargePaid(ctx context.Context, chargeID, paymentID string) error

	// ReleaseCharges clears the paid flag of every charge paid by a payment.
	ReleaseCharges(ctx context.Context, paymentID string) error

	// InsertPayment persists a payment and its charge allocations.
	InsertPayment(ctx context.Context, payment *models.Payment) error
	SetPaymentStatus(ctx context.Context, paymentID string, status models.PaymentStatus) error

	InsertProcessorTransaction(ctx context.Context, txn *models.SquareTransaction) error
	LockProcessorTransaction(ctx context.Context, id string) (*models.SquareTransaction, error)
	LockProcessorTransactionByPaymentID(ctx context.Context, processorPaymentID string) (*models.SquareTransaction, error)
	UpdateProcessorTransaction(ctx context.Context, txn *models.SquareTransaction) error
}

// Store is the ledger's persistent storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the ledger engine.
type Store interface {
	Reader

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. Errors caused by lock contention or
	// serialization failures wrap ErrConflict.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any resources held by the store.
	Close() error
}
