package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the paytrail store (SQLite).
// Payment timestamps are declared TIMESTAMP so the driver scans them back
// into time.Time.
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
    booking_id     INTEGER,
    customer_id    INTEGER NOT NULL,
    amount         INTEGER NOT NULL CHECK (amount > 0),
    currency       TEXT NOT NULL DEFAULT 'usd',
    method         TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'pending'
                   CHECK (status IN ('pending', 'completed', 'failed', 'refunded')),
    paid_at        TIMESTAMP,
    refunded_at    TIMESTAMP,
    notes          TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMP NOT NULL DEFAULT (datetime('now')),
    updated_at     TIMESTAMP NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_paytrail_payments_txn ON paytrail_payments (transaction_id);
CREATE INDEX IF NOT EXISTS idx_paytrail_payments_customer ON paytrail_payments (customer_id, created_at);
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
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    actor_id    INTEGER,
    location_id INTEGER,
    action      TEXT NOT NULL DEFAULT '',
    category    TEXT NOT NULL,
    entity_type TEXT NOT NULL DEFAULT '',
    entity_id   INTEGER,
    description TEXT NOT NULL,
    metadata    TEXT NOT NULL DEFAULT '{}',
    ip_address  TEXT NOT NULL DEFAULT '',
    user_agent  TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_paytrail_audit_created ON paytrail_audit_entries (created_at, id);
CREATE INDEX IF NOT EXISTS idx_paytrail_audit_actor ON paytrail_audit_entries (actor_id);
CREATE INDEX IF NOT EXISTS idx_paytrail_audit_location ON paytrail_audit_entries (location_id);
CREATE INDEX IF NOT EXISTS idx_paytrail_audit_entity ON paytrail_audit_entries (entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_paytrail_audit_category ON paytrail_audit_entries (category);
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
