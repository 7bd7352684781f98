package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/id"
	"github.com/xraph/paytrail/payment"
	"github.com/xraph/paytrail/types"
)

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:paytrail_payments"`

	ID            string     `grove:"id,pk"          bson:"_id"`
	TransactionID string     `grove:"transaction_id" bson:"transaction_id"`
	BookingID     *int64     `grove:"booking_id"     bson:"booking_id"`
	CustomerID    int64      `grove:"customer_id"    bson:"customer_id"`
	Amount        int64      `grove:"amount"         bson:"amount"`
	Currency      string     `grove:"currency"       bson:"currency"`
	Method        string     `grove:"method"         bson:"method"`
	Status        string     `grove:"status"         bson:"status"`
	PaidAt        *time.Time `grove:"paid_at"        bson:"paid_at,omitempty"`
	RefundedAt    *time.Time `grove:"refunded_at"    bson:"refunded_at,omitempty"`
	Notes         string     `grove:"notes"          bson:"notes"`
	CreatedAt     time.Time  `grove:"created_at"     bson:"created_at"`
	UpdatedAt     time.Time  `grove:"updated_at"     bson:"updated_at"`
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

// ==================== Audit models ====================

// auditEntryModel stores metadata as its JSON text so documents decode to
// the same shapes the SQL stores return. MetadataKeys backs the key filter.
type auditEntryModel struct {
	grove.BaseModel `grove:"table:paytrail_audit_entries"`

	ID           int64     `grove:"id,pk"         bson:"_id"`
	ActorID      *int64    `grove:"actor_id"      bson:"actor_id"`
	LocationID   *int64    `grove:"location_id"   bson:"location_id"`
	Action       string    `grove:"action"        bson:"action"`
	Category     string    `grove:"category"      bson:"category"`
	EntityType   string    `grove:"entity_type"   bson:"entity_type"`
	EntityID     *int64    `grove:"entity_id"     bson:"entity_id"`
	Description  string    `grove:"description"   bson:"description"`
	MetadataJSON string    `grove:"metadata_json" bson:"metadata_json"`
	MetadataKeys []string  `grove:"metadata_keys" bson:"metadata_keys"`
	IPAddress    string    `grove:"ip_address"    bson:"ip_address"`
	UserAgent    string    `grove:"user_agent"    bson:"user_agent"`
	CreatedAt    time.Time `grove:"created_at"    bson:"created_at"`
}

func toAuditEntryModel(e *audit.Entry) (*auditEntryModel, error) {
	meta, err := audit.EncodeMetadata(e.Metadata)
	if err != nil {
		return nil, err
	}

	keys := audit.MetadataKeys(e.Metadata)
	if keys == nil {
		keys = []string{}
	}

	return &auditEntryModel{
		ID:           e.ID,
		ActorID:      e.ActorID,
		LocationID:   e.LocationID,
		Action:       e.Action,
		Category:     string(e.Category),
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		Description:  e.Description,
		MetadataJSON: string(meta),
		MetadataKeys: keys,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		CreatedAt:    e.CreatedAt,
	}, nil
}

func fromAuditEntryModel(m *auditEntryModel) (*audit.Entry, error) {
	meta, err := audit.DecodeMetadata([]byte(m.MetadataJSON))
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
		CreatedAt:   m.CreatedAt.UTC(),
	}, nil
}

type counterModel struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
