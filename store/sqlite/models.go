package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/id"
	"github.com/xraph/paytrail/payment"
	"github.com/xraph/paytrail/types"
)

type paymentModel struct {
	grove.BaseModel `grove:"table:paytrail_payments"`

	ID            string     `grove:"id,pk"`
	TransactionID string     `grove:"transaction_id"`
	BookingID     *int64     `grove:"booking_id"`
	CustomerID    int64      `grove:"customer_id"`
	Amount        int64      `grove:"amount"`
	Currency      string     `grove:"currency"`
	Method        string     `grove:"method"`
	Status        string     `grove:"status"`
	PaidAt        *time.Time `grove:"paid_at"`
	RefundedAt    *time.Time `grove:"refunded_at"`
	Notes         string     `grove:"notes"`
	CreatedAt     time.Time  `grove:"created_at"`
	UpdatedAt     time.Time  `grove:"updated_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	return &paymentModel{
		ID:            p.ID.String(),
		TransactionID: p.TransactionID,
		BookingID:     p.BookingID,
		CustomerID:    p.CustomerID,
		Amount:        p.Amount.Amount,
		Currency:      p.Amount.Currency,
		Method:        string(p.Method),
		Status:        string(p.Status),
		PaidAt:        p.PaidAt,
		RefundedAt:    p.RefundedAt,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	paymentID, err := id.ParsePaymentID(m.ID)
	if err != nil {
		return nil, err
	}

	return &payment.Payment{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:            paymentID,
		TransactionID: m.TransactionID,
		BookingID:     m.BookingID,
		CustomerID:    m.CustomerID,
		Amount:        types.Money{Amount: m.Amount, Currency: m.Currency},
		Method:        payment.Method(m.Method),
		Status:        payment.Status(m.Status),
		PaidAt:        utcPtr(m.PaidAt),
		RefundedAt:    utcPtr(m.RefundedAt),
		Notes:         m.Notes,
	}, nil
}

// auditEntryModel keeps created_at as Unix microseconds so range filters
// and ordering compare integers rather than text.
type auditEntryModel struct {
	grove.BaseModel `grove:"table:paytrail_audit_entries"`

	ID          int64  `grove:"id,pk"`
	ActorID     *int64 `grove:"actor_id"`
	LocationID  *int64 `grove:"location_id"`
	Action      string `grove:"action"`
	Category    string `grove:"category"`
	EntityType  string `grove:"entity_type"`
	EntityID    *int64 `grove:"entity_id"`
	Description string `grove:"description"`
	Metadata    string `grove:"metadata"`
	IPAddress   string `grove:"ip_address"`
	UserAgent   string `grove:"user_agent"`
	CreatedAt   int64  `grove:"created_at"`
}

func fromAuditEntryModel(m *auditEntryModel) (*audit.Entry, error) {
	meta, err := audit.DecodeMetadata([]byte(m.Metadata))
	if err != nil {
		return nil, err
	}

	return &audit.Entry{
		ID:          m.ID,
		ActorID:     m.ActorID,
		LocationID:  m.LocationID,
		Action:      m.Action,
		Category:    audit.Category(m.Category),
		EntityType:  m.EntityType,
		EntityID:    m.EntityID,
		Description: m.Description,
		Metadata:    meta,
		IPAddress:   m.IPAddress,
		UserAgent:   m.UserAgent,
		CreatedAt:   time.UnixMicro(m.CreatedAt).UTC(),
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
