package payment

import (
	"context"
	"time"

	"github.com/xraph/paytrail/id"
)

type Store interface {
	CreatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, paymentID id.PaymentID) (*Payment, error)
	GetPaymentByTransactionID(ctx context.Context, transactionID string) (*Payment, error)
	ListPayments(ctx context.Context, opts ListOpts) ([]*Payment, error)
	UpdatePaymentStatus(ctx context.Context, u StatusUpdate) error
	UpdatePaymentNotes(ctx context.Context, paymentID id.PaymentID, notes string, updatedAt time.Time) error
}

// ListOpts filters ListPayments. Zero values are ignored; results are
// newest first.
type ListOpts struct {
	CustomerID int64
	BookingID  *int64
	Status     Status
	Method     Method
	Limit      int
	Offset     int
}
