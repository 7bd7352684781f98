// Package plugin provides an extensible plugin system for paytrail.
// Plugins can hook into payment and audit lifecycle events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/payment"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. l is the *paytrail.Ledger.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentCreated is called after a payment is persisted.
type OnPaymentCreated interface {
	Plugin
	OnPaymentCreated(ctx context.Context, req audit.RequestInfo, p *payment.Payment) error
}

// OnPaymentTransitioned is called after a status change commits. It is not
// called for same-status no-ops.
type OnPaymentTransitioned interface {
	Plugin
	OnPaymentTransitioned(ctx context.Context, req audit.RequestInfo, p *payment.Payment, from payment.Status) error
}

// OnPaymentRefunded is called after a completed payment is refunded, in
// addition to OnPaymentTransitioned.
type OnPaymentRefunded interface {
	Plugin
	OnPaymentRefunded(ctx context.Context, req audit.RequestInfo, p *payment.Payment) error
}

// OnPaymentNotesUpdated is called after a payment's notes change.
type OnPaymentNotesUpdated interface {
	Plugin
	OnPaymentNotesUpdated(ctx context.Context, req audit.RequestInfo, p *payment.Payment) error
}

// ──────────────────────────────────────────────────
// Audit hooks
// ──────────────────────────────────────────────────

// OnAuditRecorded is called after an audit entry is durably written.
type OnAuditRecorded interface {
	Plugin
	OnAuditRecorded(ctx context.Context, e *audit.Entry) error
}
