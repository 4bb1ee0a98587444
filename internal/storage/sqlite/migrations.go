package sqlite

import "database/sql"

// schema sets up the database. It runs on startup to ensure tables exist.
// Money columns are TEXT holding exact decimal strings, never REAL.
// IMPORTANT: expenses must be created BEFORE allocations and transfers due to foreign key constraints.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    owner TEXT PRIMARY KEY,
    balance TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    payer TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    amount TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (payer) REFERENCES accounts(owner)
);

CREATE TABLE IF NOT EXISTS allocations (
    id TEXT PRIMARY KEY,
    expense_id TEXT NOT NULL,
    strategy TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (expense_id) REFERENCES expenses(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS allocation_beneficiaries (
    allocation_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    beneficiary TEXT NOT NULL,
    value TEXT,
    PRIMARY KEY (allocation_id, position),
    FOREIGN KEY (allocation_id) REFERENCES allocations(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transfers (
    id TEXT PRIMARY KEY,
    expense_id TEXT NOT NULL,
    from_owner TEXT NOT NULL,
    to_owner TEXT NOT NULL,
    amount TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    UNIQUE (expense_id, from_owner),
    FOREIGN KEY (expense_id) REFERENCES expenses(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_expenses_payer ON expenses(payer);
CREATE INDEX IF NOT EXISTS idx_allocations_expense_id ON allocations(expense_id);
CREATE INDEX IF NOT EXISTS idx_transfers_expense_id ON transfers(expense_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
