package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// billingPeriodConstraint guarantees at most one billing record per gym and month
const billingPeriodConstraint = "monthly_billings_gym_period_key"

// schema creates the tables this service reads and writes.
// Gyms and members are owned by the CRM; the statements are idempotent so shared databases are left intact.
const schema = `
CREATE TABLE IF NOT EXISTS gyms (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    owner_auth0_id TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS members (
    id UUID PRIMARY KEY,
    gym_id UUID NOT NULL REFERENCES gyms(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    membership_type TEXT NOT NULL,
    membership_fees NUMERIC(12,2) NOT NULL DEFAULT 0,
    membership_start_date DATE,
    membership_end_date DATE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_members_gym_id ON members(gym_id);

CREATE TABLE IF NOT EXISTS monthly_billings (
    id UUID PRIMARY KEY,
    billing_id TEXT NOT NULL,
    gym_id UUID NOT NULL REFERENCES gyms(id) ON DELETE RESTRICT,
    gym_name TEXT NOT NULL,
    billing_month SMALLINT NOT NULL CHECK (billing_month BETWEEN 1 AND 12),
    billing_year INTEGER NOT NULL CHECK (billing_year BETWEEN 2000 AND 2100),
    member_bills JSONB NOT NULL DEFAULT '[]',
    breakdown JSONB NOT NULL DEFAULT '[]',
    total_members INTEGER NOT NULL,
    total_bill_amount NUMERIC(12,2) NOT NULL,
    total_paid_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
    total_pending_amount NUMERIC(12,2) NOT NULL,
    total_overdue_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
    currency TEXT NOT NULL DEFAULT 'INR',
    billing_status TEXT NOT NULL,
    due_date DATE NOT NULL,
    payment_deadline DATE NOT NULL,
    payment_history JSONB NOT NULL DEFAULT '[]',
    is_finalized BOOLEAN NOT NULL DEFAULT FALSE,
    finalized_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT monthly_billings_gym_period_key UNIQUE (gym_id, billing_year, billing_month)
);

CREATE INDEX IF NOT EXISTS idx_monthly_billings_period ON monthly_billings(billing_year, billing_month);
`

// Migrate creates missing tables and indexes
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Info().Msg("Database schema is up to date")
	return nil
}
