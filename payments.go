package paytrail

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/id"
	"github.com/xraph/paytrail/payment"
	"github.com/xraph/paytrail/types"
)

// ──────────────────────────────────────────────────
// Payment Ledger
// ──────────────────────────────────────────────────

// CreatePayment validates in, mints a transaction identifier and persists
// a new payment. A payment created as completed carries PaidAt equal to its
// creation time. A transaction id collision fails with
// ErrDuplicateTransactionID; it is never retried under a different id.
func (l *Ledger) CreatePayment(ctx context.Context, req audit.RequestInfo, in payment.CreateInput) (*payment.Payment, error) {
	p, err := l.newPayment(in)
	if err != nil {
		return nil, err
	}

	txn, err := l.txn.Next()
	if err != nil {
		return nil, fmt.Errorf("paytrail: mint transaction id: %w", err)
	}
	p.TransactionID = txn

	if err := l.store.CreatePayment(ctx, p); err != nil {
		if IsIntegrity(err) {
			l.logger.Error("payment integrity violation",
				"transaction_id", txn,
				"error", err,
			)
		}
		return nil, err
	}

	l.plugins.EmitPaymentCreated(ctx, req, p)
	return p, nil
}

func (l *Ledger) newPayment(in payment.CreateInput) (*payment.Payment, error) {
	if in.CustomerID <= 0 {
		return nil, invalid("customer_id", ErrInvalidCustomer, "must be a positive reference, got %d", in.CustomerID)
	}

	currency := l.homeCurrency
	if in.Currency != "" {
		currency = types.NormalizeCurrency(in.Currency)
		if !types.ValidCurrency(currency) {
			return nil, invalid("currency", ErrInvalidCurrency, "must be a 3-letter code, got %q", in.Currency)
		}
	}

	amount, err := types.Parse(in.Amount, currency)
	if err != nil {
		return nil, invalid("amount", ErrInvalidAmount, "%v", err)
	}
	if !amount.IsPositive() {
		return nil, invalid("amount", ErrInvalidAmount, "must be at least one minor unit, got %q", in.Amount)
	}

	if !in.Method.Valid() {
		return nil, invalid("method", ErrInvalidMethod, "unknown method %q", in.Method)
	}

	status := in.Status
	switch status {
	case "":
		status = payment.StatusPending
	case payment.StatusPending, payment.StatusCompleted:
	default:
		return nil, invalid("status", ErrInvalidStatus, "a payment must start pending or completed, got %q", in.Status)
	}

	now := l.now()
	p := &payment.Payment{
		Entity:     types.NewEntity(now),
		ID:         id.NewPaymentID(),
		BookingID:  in.BookingID,
		CustomerID: in.CustomerID,
		Amount:     amount,
		Method:     in.Method,
		Status:     status,
		Notes:      in.Notes,
	}
	if status == payment.StatusCompleted {
		paidAt := p.CreatedAt
		p.PaidAt = &paidAt
	}
	return p, nil
}

// GetPayment retrieves a payment by ID.
func (l *Ledger) GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	return l.store.GetPayment(ctx, paymentID)
}

// GetPaymentByTransactionID retrieves a payment by its transaction identifier.
func (l *Ledger) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error) {
	return l.store.GetPaymentByTransactionID(ctx, transactionID)
}

// ListPayments lists payments, newest first.
func (l *Ledger) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, invalid("status", ErrInvalidStatus, "unknown status %q", opts.Status)
	}
	if opts.Method != "" && !opts.Method.Valid() {
		return nil, invalid("method", ErrInvalidMethod, "unknown method %q", opts.Method)
	}
	return l.store.ListPayments(ctx, opts)
}

// TransitionPayment moves a payment to status to. Requesting the current
// status succeeds without writing. Edges outside the transition table fail
// with a *TransitionError and leave the record unchanged.
func (l *Ledger) TransitionPayment(ctx context.Context, req audit.RequestInfo, paymentID id.PaymentID, to payment.Status) (*payment.Payment, error) {
	if !to.Valid() {
		return nil, invalid("status", ErrInvalidStatus, "unknown status %q", to)
	}
	return l.transition(ctx, req, paymentID, to, nil)
}

// RefundPayment refunds a completed payment. Any other current status,
// including refunded, fails with a *RefundError.
func (l *Ledger) RefundPayment(ctx context.Context, req audit.RequestInfo, paymentID id.PaymentID) (*payment.Payment, error) {
	return l.transition(ctx, req, paymentID, payment.StatusRefunded, func(p *payment.Payment) error {
		if p.Status != payment.StatusCompleted {
			return &RefundError{Status: p.Status}
		}
		return nil
	})
}

// transition runs the read, plan, compare-and-swap loop. A lost race is
// re-evaluated against the freshly read state, including guard.
func (l *Ledger) transition(
	ctx context.Context,
	req audit.RequestInfo,
	paymentID id.PaymentID,
	to payment.Status,
	guard func(*payment.Payment) error,
) (*payment.Payment, error) {
	for attempt := 0; ; attempt++ {
		p, err := l.store.GetPayment(ctx, paymentID)
		if err != nil {
			return nil, err
		}

		if guard != nil {
			if err := guard(p); err != nil {
				return nil, err
			}
		}

		u, ok := payment.Plan(p, to, l.now())
		if !ok {
			return nil, &TransitionError{From: p.Status, To: to}
		}
		if u.Noop() {
			return p, nil
		}

		err = l.store.UpdatePaymentStatus(ctx, u)
		if err == nil {
			from := p.Status
			u.Apply(p)

			l.plugins.EmitPaymentTransitioned(ctx, req, p, from)
			if to == payment.StatusRefunded {
				l.plugins.EmitPaymentRefunded(ctx, req, p)
			}
			return p, nil
		}
		if !errors.Is(err, ErrStatusConflict) {
			return nil, err
		}

		if attempt >= l.transitionRetries {
			return nil, fmt.Errorf("%w: payment %s after %d attempts", ErrConcurrentModification, paymentID, attempt+1)
		}
		l.logger.Debug("payment changed concurrently, re-evaluating",
			"payment_id", paymentID.String(),
			"from", p.Status,
			"to", to,
			"attempt", attempt+1,
		)
	}
}

// UpdatePaymentNotes replaces a payment's notes. Notes are mutable in every
// status.
func (l *Ledger) UpdatePaymentNotes(ctx context.Context, req audit.RequestInfo, paymentID id.PaymentID, notes string) (*payment.Payment, error) {
	if err := l.store.UpdatePaymentNotes(ctx, paymentID, notes, l.now()); err != nil {
		return nil, err
	}

	p, err := l.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	l.plugins.EmitPaymentNotesUpdated(ctx, req, p)
	return p, nil
}
