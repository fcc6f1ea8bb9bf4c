package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Money columns are integer cents and times are unix microseconds.
const schema = `
CREATE TABLE IF NOT EXISTS units (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    fee_percent TEXT NOT NULL,
    fee_fixed INTEGER NOT NULL,
    operating_account_id TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    unit_id TEXT NOT NULL,
    kind TEXT NOT NULL CHECK (kind IN ('scout', 'unit')),
    scout_id TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL,
    payer_email TEXT NOT NULL DEFAULT '',
    billing_balance INTEGER NOT NULL DEFAULT 0,
    funds_balance INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (unit_id) REFERENCES units(id)
);

CREATE TABLE IF NOT EXISTS journal_entries (
    id TEXT PRIMARY KEY,
    unit_id TEXT NOT NULL,
    description TEXT NOT NULL,
    entry_type TEXT NOT NULL,
    source_type TEXT NOT NULL DEFAULT '',
    source_id TEXT NOT NULL DEFAULT '',
    external_ref TEXT NOT NULL DEFAULT '',
    is_posted BOOLEAN NOT NULL,
    is_void BOOLEAN NOT NULL DEFAULT 0,
    void_reason TEXT NOT NULL DEFAULT '',
    voided_at INTEGER,
    reverses_entry_id TEXT NOT NULL DEFAULT '',
    reversed_by_entry_id TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    FOREIGN KEY (unit_id) REFERENCES units(id)
);

CREATE TABLE IF NOT EXISTS journal_lines (
    id TEXT PRIMARY KEY,
    entry_id TEXT NOT NULL,
    account_id TEXT NOT NULL,
    kind TEXT NOT NULL CHECK (kind IN ('billing', 'funds')),
    debit INTEGER NOT NULL DEFAULT 0,
    credit INTEGER NOT NULL DEFAULT 0,
    line_no INTEGER NOT NULL,
    CHECK ((debit > 0 AND credit = 0) OR (debit = 0 AND credit > 0)),
    FOREIGN KEY (entry_id) REFERENCES journal_entries(id),
    FOREIGN KEY (account_id) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS billing_records (
    id TEXT PRIMARY KEY,
    unit_id TEXT NOT NULL,
    description TEXT NOT NULL,
    total_amount INTEGER NOT NULL CHECK (total_amount > 0),
    billing_date INTEGER NOT NULL,
    is_void BOOLEAN NOT NULL DEFAULT 0,
    void_reason TEXT NOT NULL DEFAULT '',
    voided_at INTEGER,
    entry_id TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    FOREIGN KEY (unit_id) REFERENCES units(id)
);

CREATE TABLE IF NOT EXISTS billing_charges (
    id TEXT PRIMARY KEY,
    record_id TEXT NOT NULL,
    account_id TEXT NOT NULL,
    amount INTEGER NOT NULL CHECK (amount > 0),
    is_paid BOOLEAN NOT NULL DEFAULT 0,
    payment_id TEXT NOT NULL DEFAULT '',
    is_void BOOLEAN NOT NULL DEFAULT 0,
    void_reason TEXT NOT NULL DEFAULT '',
    void_entry_id TEXT NOT NULL DEFAULT '',
    voided_at INTEGER,
    created_at INTEGER NOT NULL,
    position INTEGER NOT NULL,
    FOREIGN KEY (record_id) REFERENCES billing_records(id),
    FOREIGN KEY (account_id) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS payments (
    id TEXT PRIMARY KEY,
    unit_id TEXT NOT NULL,
    account_id TEXT NOT NULL,
    amount INTEGER NOT NULL CHECK (amount > 0),
    fee_amount INTEGER NOT NULL DEFAULT 0,
    net_amount INTEGER NOT NULL,
    method TEXT NOT NULL CHECK (method IN ('cash', 'check', 'card')),
    processor_ref TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    entry_id TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    FOREIGN KEY (account_id) REFERENCES accounts(id),
    FOREIGN KEY (entry_id) REFERENCES journal_entries(id)
);

CREATE TABLE IF NOT EXISTS payment_allocations (
    payment_id TEXT NOT NULL,
    charge_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (payment_id, charge_id),
    FOREIGN KEY (payment_id) REFERENCES payments(id),
    FOREIGN KEY (charge_id) REFERENCES billing_charges(id)
);

CREATE TABLE IF NOT EXISTS square_transactions (
    id TEXT PRIMARY KEY,
    processor_payment_id TEXT NOT NULL UNIQUE,
    amount_minor INTEGER NOT NULL,
    fee_minor INTEGER NOT NULL DEFAULT 0,
    net_minor INTEGER NOT NULL,
    status TEXT NOT NULL,
    buyer_email TEXT NOT NULL DEFAULT '',
    state TEXT NOT NULL CHECK (state IN ('unlinked', 'linked', 'reconciled')),
    is_reconciled BOOLEAN NOT NULL DEFAULT 0,
    unit_id TEXT NOT NULL DEFAULT '',
    account_id TEXT NOT NULL DEFAULT '',
    payment_id TEXT NOT NULL DEFAULT '',
    received_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_scout ON accounts(unit_id, scout_id) WHERE kind = 'scout';
CREATE INDEX IF NOT EXISTS idx_accounts_payer_email ON accounts(lower(payer_email));
CREATE INDEX IF NOT EXISTS idx_journal_entries_unit ON journal_entries(unit_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_journal_entries_reverses ON journal_entries(reverses_entry_id) WHERE reverses_entry_id <> '';
CREATE INDEX IF NOT EXISTS idx_journal_lines_entry ON journal_lines(entry_id);
CREATE INDEX IF NOT EXISTS idx_journal_lines_account ON journal_lines(account_id);
CREATE INDEX IF NOT EXISTS idx_billing_charges_record ON billing_charges(record_id);
CREATE INDEX IF NOT EXISTS idx_billing_charges_payment ON billing_charges(payment_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_processor_ref ON payments(processor_ref) WHERE processor_ref <> '';
CREATE INDEX IF NOT EXISTS idx_payments_entry ON payments(entry_id);
CREATE INDEX IF NOT EXISTS idx_square_transactions_state ON square_transactions(state, received_at);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
