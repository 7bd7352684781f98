package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/paytrail"
	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/id"
	"github.com/xraph/paytrail/payment"
	paytrailstore "github.com/xraph/paytrail/store"
)

// Collection name constants.
const (
	colPayments     = "paytrail_payments"
	colAuditEntries = "paytrail_audit_entries"
	colCounters     = "paytrail_counters"

	auditSequence = "audit_entries"
)

// compile-time interface check
var _ paytrailstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
//
// MongoDB keeps timestamps at millisecond resolution, so instants read back
// are truncated to the millisecond.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all paytrail collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("paytrail/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	_, err := s.mdb.NewInsert(toPaymentModel(p)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "transaction_id") {
				return fmt.Errorf("paytrail/mongo: create payment %s: %w", p.TransactionID, paytrail.ErrDuplicateTransactionID)
			}
			return fmt.Errorf("paytrail/mongo: create payment %s: %w: %v", p.ID, paytrail.ErrIntegrity, err)
		}
		return fmt.Errorf("paytrail/mongo: create payment: %w", err)
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	var m paymentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": paymentID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, paytrail.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("paytrail/mongo: get payment: %w", err)
	}
	return fromPaymentModel(&m)
}

func (s *Store) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error) {
	var m paymentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"transaction_id": transactionID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, paytrail.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("paytrail/mongo: get payment by transaction id: %w", err)
	}
	return fromPaymentModel(&m)
}

func (s *Store) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel

	filter := bson.M{}
	if opts.CustomerID != 0 {
		filter["customer_id"] = opts.CustomerID
	}
	if opts.BookingID != nil {
		filter["booking_id"] = *opts.BookingID
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.Method != "" {
		filter["method"] = string(opts.Method)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("paytrail/mongo: list payments: %w", err)
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// UpdatePaymentStatus applies u only while the document still carries u.From.
func (s *Store) UpdatePaymentStatus(ctx context.Context, u payment.StatusUpdate) error {
	update := s.mdb.NewUpdate((*paymentModel)(nil)).
		Filter(bson.M{"_id": u.ID.String(), "status": string(u.From)}).
		Set("status", string(u.To)).
		Set("updated_at", u.UpdatedAt)
	if u.PaidAt != nil {
		update = update.Set("paid_at", *u.PaidAt)
	}
	if u.RefundedAt != nil {
		update = update.Set("refunded_at", *u.RefundedAt)
	}

	res, err := update.Exec(ctx)
	if err != nil {
		return fmt.Errorf("paytrail/mongo: update payment status: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, err := s.GetPayment(ctx, u.ID); err != nil {
			return err
		}
		return fmt.Errorf("paytrail/mongo: update payment %s: %w", u.ID, paytrail.ErrStatusConflict)
	}
	return nil
}

func (s *Store) UpdatePaymentNotes(ctx context.Context, paymentID id.PaymentID, notes string, updatedAt time.Time) error {
	res, err := s.mdb.NewUpdate((*paymentModel)(nil)).
		Filter(bson.M{"_id": paymentID.String()}).
		Set("notes", notes).
		Set("updated_at", updatedAt).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("paytrail/mongo: update payment notes: %w", err)
	}
	if res.MatchedCount() == 0 {
		return paytrail.ErrPaymentNotFound
	}
	return nil
}

// ==================== Audit Store ====================

func (s *Store) AppendAuditEntry(ctx context.Context, e *audit.Entry) error {
	entryID, err := s.nextSequence(ctx, auditSequence)
	if err != nil {
		return err
	}

	stored := *e
	stored.ID = entryID
	m, err := toAuditEntryModel(&stored)
	if err != nil {
		return fmt.Errorf("paytrail/mongo: encode metadata: %w", err)
	}
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("paytrail/mongo: append audit entry: %w", err)
	}

	e.ID = entryID
	return nil
}

func (s *Store) GetAuditEntry(ctx context.Context, entryID int64) (*audit.Entry, error) {
	var m auditEntryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": entryID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, paytrail.ErrAuditEntryNotFound
		}
		return nil, fmt.Errorf("paytrail/mongo: get audit entry: %w", err)
	}
	return fromAuditEntryModel(&m)
}

func (s *Store) QueryAuditEntries(ctx context.Context, q audit.Query) ([]*audit.Entry, int64, error) {
	filter := auditFilter(q)

	total, err := s.mdb.Collection(colAuditEntries).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("paytrail/mongo: count audit entries: %w", err)
	}
	if total == 0 || q.Offset >= int(total) {
		return []*audit.Entry{}, total, nil
	}

	var models []auditEntryModel
	find := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(sortDoc(q.Sort))
	if q.Limit > 0 {
		find = find.Limit(int64(q.Limit))
	}
	if q.Offset > 0 {
		find = find.Skip(int64(q.Offset))
	}

	if err := find.Scan(ctx); err != nil {
		return nil, 0, fmt.Errorf("paytrail/mongo: query audit entries: %w", err)
	}

	result := make([]*audit.Entry, len(models))
	for i := range models {
		e, err := fromAuditEntryModel(&models[i])
		if err != nil {
			return nil, 0, err
		}
		result[i] = e
	}
	return result, total, nil
}

// nextSequence atomically increments the named counter and returns the new
// value, creating the counter on first use.
func (s *Store) nextSequence(ctx context.Context, name string) (int64, error) {
	var c counterModel
	err := s.mdb.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("paytrail/mongo: next %s sequence: %w", name, err)
	}
	return c.Seq, nil
}

// ==================== Helpers ====================

func auditFilter(q audit.Query) bson.M {
	filter := bson.M{}
	if q.ActorID != nil {
		filter["actor_id"] = *q.ActorID
	}
	if len(q.LocationIDs) > 0 {
		filter["location_id"] = bson.M{"$in": q.LocationIDs}
	}
	if q.EntityType != "" {
		filter["entity_type"] = q.EntityType
	}
	if len(q.EntityIDs) > 0 {
		filter["entity_id"] = bson.M{"$in": q.EntityIDs}
	}
	if q.Category != "" {
		filter["category"] = string(q.Category)
	}
	if q.Action != "" {
		filter["action"] = containsRegex(q.Action)
	}
	if q.Search != "" {
		re := containsRegex(q.Search)
		filter["$or"] = bson.A{
			bson.M{"action": re},
			bson.M{"description": re},
		}
	}
	if q.From != nil || q.Until != nil {
		created := bson.M{}
		if q.From != nil {
			created["$gte"] = *q.From
		}
		if q.Until != nil {
			created["$lt"] = *q.Until
		}
		filter["created_at"] = created
	}
	if q.MetadataKey != "" {
		filter["metadata_keys"] = q.MetadataKey
	}
	return filter
}

func containsRegex(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

// sortFields maps allow-listed sort fields to document keys. MongoDB
// already orders null before any number.
var sortFields = map[audit.SortField]string{
	audit.SortCreatedAt:  "created_at",
	audit.SortAction:     "action",
	audit.SortCategory:   "category",
	audit.SortActorID:    "actor_id",
	audit.SortLocationID: "location_id",
}

func sortDoc(s audit.Sort) bson.D {
	s = s.Normalize()
	dir := 1
	if s.Descending() {
		dir = -1
	}
	return bson.D{{Key: sortFields[s.Field], Value: dir}, {Key: "_id", Value: dir}}
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all paytrail collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colPayments: {
			{
				Keys:    bson.D{{Key: "transaction_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "booking_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		colAuditEntries: {
			{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "actor_id", Value: 1}}},
			{Keys: bson.D{{Key: "location_id", Value: 1}}},
			{Keys: bson.D{{Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "metadata_keys", Value: 1}}},
		},
	}
}
