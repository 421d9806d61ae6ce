package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.
// Monetary columns are TEXT so amounts round-trip as exact decimals.

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    full_name TEXT,
    phone_number TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
`

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    amount TEXT NOT NULL,
    transaction_type TEXT NOT NULL,
    merchant_name TEXT,
    merchant_category TEXT,
    location TEXT,
    card_number_masked TEXT,
    ip_address TEXT,
    occurred_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    fraud_status TEXT NOT NULL,
    fraud_score REAL NOT NULL DEFAULT 0,
    fraud_reason TEXT
);

CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_user_occurred ON transactions(user_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(fraud_status);
`

const schemaFraudRules = `
CREATE TABLE IF NOT EXISTS fraud_rules (
    id TEXT PRIMARY KEY,
    rule_name TEXT NOT NULL UNIQUE,
    description TEXT,
    rule_type TEXT NOT NULL,
    threshold_amount TEXT,
    time_window_minutes INTEGER,
    max_occurrences INTEGER,
    merchant_category TEXT,
    location_restriction TEXT,
    expression TEXT,
    risk_score REAL NOT NULL DEFAULT 0,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fraud_rules_active ON fraud_rules(active);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaUsers,
		schemaTransactions,
		schemaFraudRules,
	}
}
