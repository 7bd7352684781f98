// Package store defines the unified storage contract every paytrail backend
// implements.
package store

import (
	"context"

	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/payment"
)

// Store is the unified storage interface for payments and audit entries.
//
// UpdatePaymentStatus is a compare-and-swap: it must fail with
// paytrail.ErrStatusConflict when the stored status no longer equals the
// update's From, and with paytrail.ErrPaymentNotFound when the payment does
// not exist. CreatePayment must fail with paytrail.ErrDuplicateTransactionID
// when the transaction id is already taken.
type Store interface {
	payment.Store
	audit.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
