// Package payment defines the payment record, its status machine, and the
// storage contract used by the ledger.
package payment

import (
	"time"

	"github.com/xraph/paytrail/id"
	"github.com/xraph/paytrail/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

type Method string

const (
	MethodCredit       Method = "credit"
	MethodDebit        Method = "debit"
	MethodCash         Method = "cash"
	MethodEWallet      Method = "e-wallet"
	MethodBankTransfer Method = "bank_transfer"
)

// Methods returns every accepted payment method.
func Methods() []Method {
	return []Method{MethodCredit, MethodDebit, MethodCash, MethodEWallet, MethodBankTransfer}
}

// Valid reports whether m is an accepted payment method.
func (m Method) Valid() bool {
	switch m {
	case MethodCredit, MethodDebit, MethodCash, MethodEWallet, MethodBankTransfer:
		return true
	}
	return false
}

// Payment is a single monetary transaction. Payments are never deleted;
// only status-advancing updates and note edits are permitted.
type Payment struct {
	types.Entity
	ID            id.PaymentID `json:"id"`
	TransactionID string       `json:"transaction_id"`
	BookingID     *int64       `json:"booking_id,omitempty"`
	CustomerID    int64        `json:"customer_id"`
	Amount        types.Money  `json:"amount"`
	Method        Method       `json:"method"`
	Status        Status       `json:"status"`
	PaidAt        *time.Time   `json:"paid_at,omitempty"`
	RefundedAt    *time.Time   `json:"refunded_at,omitempty"`
	Notes         string       `json:"notes,omitempty"`
}

// Clone returns a deep copy of p.
func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	c := *p
	c.BookingID = cloneInt64(p.BookingID)
	c.PaidAt = cloneTime(p.PaidAt)
	c.RefundedAt = cloneTime(p.RefundedAt)
	return &c
}

// CreateInput carries caller-supplied fields for a new payment.
// Amount is a decimal string in major units ("49.99"); Currency and Status
// are optional.
type CreateInput struct {
	CustomerID int64  `json:"customer_id"`
	BookingID  *int64 `json:"booking_id,omitempty"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency,omitempty"`
	Method     Method `json:"method"`
	Status     Status `json:"status,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
