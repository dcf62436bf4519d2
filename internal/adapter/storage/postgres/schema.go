package postgres

import (
	"context"
	"fmt"
)

// schemaStatements bootstrap the store on startup. Idempotent by construction
// so the runner can always execute them.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		guid UUID NOT NULL UNIQUE,
		iban TEXT NOT NULL UNIQUE,
		balance NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		client_guid UUID NOT NULL,
		product_guid UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS mandates (
		id BIGSERIAL PRIMARY KEY,
		guid UUID NOT NULL UNIQUE,
		client_guid UUID NOT NULL,
		creditor_name TEXT NOT NULL,
		payer_iban TEXT NOT NULL,
		payee_iban TEXT NOT NULL,
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		periodicity TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		last_executed_at TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mandates_active ON mandates (active) WHERE active`,
	`CREATE TABLE IF NOT EXISTS movements (
		id UUID PRIMARY KEY,
		client_guid UUID NOT NULL,
		kind TEXT NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		creditor_name TEXT,
		payer_iban TEXT,
		payee_iban TEXT,
		mandate_guid UUID,
		employer_name TEXT,
		employer_tax_id TEXT,
		employer_iban TEXT,
		employee_iban TEXT,
		card_number TEXT,
		merchant_name TEXT,
		source_iban TEXT,
		beneficiary_name TEXT,
		destination_iban TEXT,
		revoked BOOLEAN
	)`,
	`CREATE INDEX IF NOT EXISTS idx_movements_client ON movements (client_guid, created_at DESC)`,
}

// EnsureSchema creates the tables the subsystem needs if they do not exist.
func EnsureSchema(ctx context.Context, pool Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
