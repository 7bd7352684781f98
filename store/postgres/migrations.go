package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the paytrail store.
var Migrations = migrate.NewGroup("paytrail")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_paytrail_payments",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS paytrail_payments (
    id             TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL,
    booking_id     BIGINT,
    customer_id    BIGINT NOT NULL,
    amount         BIGINT NOT NULL CHECK (amount > 0),
    currency       TEXT NOT NULL DEFAULT 'usd',
    method         TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'pending'
                   CHECK (status IN ('pending', 'completed', 'failed', 'refunded')),
    paid_at        TIMESTAMPTZ,
    refunded_at    TIMESTAMPTZ,
    notes          TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_paytrail_payments_txn ON paytrail_payments (transaction_id);
CREATE INDEX IF NOT EXISTS idx_paytrail_payments_customer ON paytrail_payments (customer_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_paytrail_payments_booking ON paytrail_payments (booking_id);
CREATE INDEX IF NOT EXISTS idx_paytrail_payments_status ON paytrail_payments (status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS paytrail_payments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_paytrail_audit_entries",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS paytrail_audit_entries (
    id          BIGSERIAL PRIMARY KEY,
    actor_id    BIGINT,
    location_id BIGINT,
    action      TEXT NOT NULL DEFAULT '',
    category    TEXT NOT NULL,
    entity_type TEXT NOT NULL DEFAULT '',
    entity_id   BIGINT,
    description TEXT NOT NULL,
    metadata    JSONB NOT NULL DEFAULT '{}',
    ip_address  TEXT NOT NULL DEFAULT '',
    user_agent  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_paytrail_audit_created ON paytrail_audit_entries (created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_paytrail_audit_actor ON paytrail_audit_entries (actor_id);
CREATE INDEX IF NOT EXISTS idx_paytrail_audit_location ON paytrail_audit_entries (location_id);
CREATE INDEX IF NOT EXISTS idx_paytrail_audit_entity ON paytrail_audit_entries (entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_paytrail_audit_category ON paytrail_audit_entries (category);
CREATE INDEX IF NOT EXISTS idx_paytrail_audit_metadata ON paytrail_audit_entries USING GIN (metadata);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS paytrail_audit_entries`)
				return err
			},
		},
	)
}
