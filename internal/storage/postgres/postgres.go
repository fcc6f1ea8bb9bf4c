// Package postgres opens the ledger store on PostgreSQL.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/mmynk/troopledger/internal/storage/sqlstore"
)

// Dialect is the PostgreSQL flavor of the shared store. Lock queries take
// row locks with FOR UPDATE.
var Dialect = sqlstore.Dialect{
	Name:        "postgres",
	Numbered:    true,
	ForUpdate:   " FOR UPDATE",
	IsRetryable: isRetryable,
}

// New connects to the database at dsn, creates the schema if needed and
// returns a ledger store.
func New(dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return sqlstore.New(db, Dialect), nil
}

// Retryable SQLSTATEs.
const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
	lockNotAvailable     = "55P03"
)

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case serializationFailure, deadlockDetected, lockNotAvailable:
		return true
	}
	return false
}
