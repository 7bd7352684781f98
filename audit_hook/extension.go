// Package audithook turns payment lifecycle events into audit entries.
//
// It consumes ledger events through the plugin hooks and writes them through
// a Recorder, normally the *paytrail.Ledger itself:
//
//	l := paytrail.New(store)
//	_ = l.RegisterPlugin(audithook.New(l))
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/payment"
	"github.com/xraph/paytrail/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnPaymentCreated      = (*Extension)(nil)
	_ plugin.OnPaymentTransitioned = (*Extension)(nil)
	_ plugin.OnPaymentNotesUpdated = (*Extension)(nil)
)

// Recorder writes audit entries. *paytrail.Ledger implements it.
type Recorder = audit.Recorder

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, req audit.RequestInfo, in audit.Input) (*audit.Entry, error)

// RecordEvent implements Recorder.
func (f RecorderFunc) RecordEvent(ctx context.Context, req audit.RequestInfo, in audit.Input) (*audit.Entry, error) {
	return f(ctx, req, in)
}

// Extension records an audit entry for every payment lifecycle event.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that writes audit entries through r.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Payment lifecycle hooks
// ──────────────────────────────────────────────────

// OnPaymentCreated implements plugin.OnPaymentCreated.
func (e *Extension) OnPaymentCreated(ctx context.Context, req audit.RequestInfo, p *payment.Payment) error {
	return e.record(ctx, req, ActionPaymentCreated, audit.CategoryCreate, p,
		fmt.Sprintf("Payment %s of %s by %s created as %s", p.TransactionID, p.Amount, p.Method, p.Status),
		"status", string(p.Status),
	)
}

// OnPaymentTransitioned implements plugin.OnPaymentTransitioned. Refunds
// are recorded here, so OnPaymentRefunded is not implemented.
func (e *Extension) OnPaymentTransitioned(ctx context.Context, req audit.RequestInfo, p *payment.Payment, from payment.Status) error {
	action, ok := transitionActions[p.Status]
	if !ok {
		return nil
	}
	return e.record(ctx, req, action, audit.CategoryUpdate, p,
		fmt.Sprintf("Payment %s moved from %s to %s", p.TransactionID, from, p.Status),
		"from", string(from),
		"to", string(p.Status),
	)
}

// OnPaymentNotesUpdated implements plugin.OnPaymentNotesUpdated.
func (e *Extension) OnPaymentNotesUpdated(ctx context.Context, req audit.RequestInfo, p *payment.Payment) error {
	return e.record(ctx, req, ActionPaymentNotesUpdated, audit.CategoryUpdate, p,
		fmt.Sprintf("Notes updated on payment %s", p.TransactionID),
	)
}

var transitionActions = map[payment.Status]string{
	payment.StatusCompleted: ActionPaymentCompleted,
	payment.StatusFailed:    ActionPaymentFailed,
	payment.StatusRefunded:  ActionPaymentRefunded,
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and writes an audit entry if the action is enabled.
// Recorder failures are logged and never fail the payment operation.
func (e *Extension) record(
	ctx context.Context,
	req audit.RequestInfo,
	action string,
	category audit.Category,
	p *payment.Payment,
	description string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := map[string]any{
		"payment_id":     p.ID.String(),
		"transaction_id": p.TransactionID,
		"customer_id":    p.CustomerID,
		"amount":         p.Amount.FormatMajor(),
		"currency":       p.Amount.Currency,
		"method":         string(p.Method),
	}
	if p.BookingID != nil {
		meta["booking_id"] = *p.BookingID
	}
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	in := audit.Input{
		Action:      action,
		Category:    category,
		EntityType:  EntityPayment,
		Description: description,
		Metadata:    meta,
	}

	if _, recErr := e.recorder.RecordEvent(ctx, req, in); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit entry",
			"action", action,
			"payment_id", p.ID.String(),
			"error", recErr,
		)
	}
	return nil
}
