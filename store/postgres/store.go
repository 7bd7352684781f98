package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the postgres migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/paytrail"
	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/id"
	"github.com/xraph/paytrail/payment"
	paytrailstore "github.com/xraph/paytrail/store"
)

// compile-time interface check
var _ paytrailstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("paytrail/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("paytrail/postgres: migration failed: %w", err)
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
	_, err := s.pg.NewInsert(toPaymentModel(p)).Exec(ctx)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == "idx_paytrail_payments_txn" {
				return fmt.Errorf("paytrail/postgres: create payment %s: %w", p.TransactionID, paytrail.ErrDuplicateTransactionID)
			}
			return fmt.Errorf("paytrail/postgres: create payment %s: %w: %s", p.ID, paytrail.ErrIntegrity, constraint)
		}
		return fmt.Errorf("paytrail/postgres: create payment: %w", err)
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	m := new(paymentModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", paymentID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, paytrail.ErrPaymentNotFound
		}
		return nil, err
	}
	return fromPaymentModel(m)
}

func (s *Store) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error) {
	m := new(paymentModel)
	err := s.pg.NewSelect(m).
		Where("transaction_id = $1", transactionID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, paytrail.ErrPaymentNotFound
		}
		return nil, err
	}
	return fromPaymentModel(m)
}

func (s *Store) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.CustomerID != 0 {
		argIdx++
		q = q.Where(fmt.Sprintf("customer_id = $%d", argIdx), opts.CustomerID)
	}
	if opts.BookingID != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("booking_id = $%d", argIdx), *opts.BookingID)
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Method != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("method = $%d", argIdx), string(opts.Method))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

// UpdatePaymentStatus applies u only while the row still carries u.From.
func (s *Store) UpdatePaymentStatus(ctx context.Context, u payment.StatusUpdate) error {
	q := s.pg.NewUpdate((*paymentModel)(nil)).
		Set("status = $1", string(u.To)).
		Set("updated_at = $2", u.UpdatedAt)

	argIdx := 2
	if u.PaidAt != nil {
		argIdx++
		q = q.Set(fmt.Sprintf("paid_at = $%d", argIdx), *u.PaidAt)
	}
	if u.RefundedAt != nil {
		argIdx++
		q = q.Set(fmt.Sprintf("refunded_at = $%d", argIdx), *u.RefundedAt)
	}

	res, err := q.
		Where(fmt.Sprintf("id = $%d", argIdx+1), u.ID.String()).
		Where(fmt.Sprintf("status = $%d", argIdx+2), string(u.From)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.missOrConflict(ctx, u.ID)
	}
	return nil
}

func (s *Store) UpdatePaymentNotes(ctx context.Context, paymentID id.PaymentID, notes string, updatedAt time.Time) error {
	res, err := s.pg.NewUpdate((*paymentModel)(nil)).
		Set("notes = $1", notes).
		Set("updated_at = $2", updatedAt).
		Where("id = $3", paymentID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return paytrail.ErrPaymentNotFound
	}
	return nil
}

// missOrConflict explains a compare-and-swap that touched no rows.
func (s *Store) missOrConflict(ctx context.Context, paymentID id.PaymentID) error {
	if _, err := s.GetPayment(ctx, paymentID); err != nil {
		return err
	}
	return fmt.Errorf("paytrail/postgres: update payment %s: %w", paymentID, paytrail.ErrStatusConflict)
}

// ==================== Audit Store ====================

func (s *Store) AppendAuditEntry(ctx context.Context, e *audit.Entry) error {
	meta, err := audit.EncodeMetadata(e.Metadata)
	if err != nil {
		return fmt.Errorf("paytrail/postgres: encode metadata: %w", err)
	}

	var entryID int64
	err = s.pg.NewRaw(`
		INSERT INTO paytrail_audit_entries
			(actor_id, location_id, action, category, entity_type, entity_id,
			 description, metadata, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11)
		RETURNING id
	`, e.ActorID, e.LocationID, e.Action, string(e.Category), e.EntityType, e.EntityID,
		e.Description, string(meta), e.IPAddress, e.UserAgent, e.CreatedAt).Scan(ctx, &entryID)
	if err != nil {
		return fmt.Errorf("paytrail/postgres: append audit entry: %w", err)
	}

	e.ID = entryID
	return nil
}

func (s *Store) GetAuditEntry(ctx context.Context, entryID int64) (*audit.Entry, error) {
	m := new(auditEntryModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", entryID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, paytrail.ErrAuditEntryNotFound
		}
		return nil, err
	}
	return fromAuditEntryModel(m)
}

func (s *Store) QueryAuditEntries(ctx context.Context, q audit.Query) ([]*audit.Entry, int64, error) {
	w := auditWhere(q)

	var total int64
	countSQL := "SELECT COUNT(*) FROM paytrail_audit_entries"
	if len(w.conds) > 0 {
		countSQL += " WHERE " + strings.Join(w.conds, " AND ")
	}
	if err := s.pg.NewRaw(countSQL, w.args...).Scan(ctx, &total); err != nil {
		return nil, 0, fmt.Errorf("paytrail/postgres: count audit entries: %w", err)
	}
	if total == 0 || q.Offset >= int(total) {
		return []*audit.Entry{}, total, nil
	}

	var models []auditEntryModel
	sel := s.pg.NewSelect(&models)
	for i, cond := range w.conds {
		sel = sel.Where(cond, w.condArgs[i]...)
	}
	sel = sel.OrderExpr(orderBy(q.Sort))
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}
	if q.Offset > 0 {
		sel = sel.Offset(q.Offset)
	}

	if err := sel.Scan(ctx); err != nil {
		return nil, 0, fmt.Errorf("paytrail/postgres: query audit entries: %w", err)
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

// ==================== Helpers ====================

// where collects numbered conditions. args holds every argument in
// placeholder order; condArgs holds the arguments of each condition.
type where struct {
	conds    []string
	condArgs [][]any
	args     []any
}

func (w *where) add(format string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(format, len(w.args)))
	w.condArgs = append(w.condArgs, []any{arg})
}

func auditWhere(q audit.Query) *where {
	w := &where{}
	if q.ActorID != nil {
		w.add("actor_id = $%d", *q.ActorID)
	}
	if len(q.LocationIDs) > 0 {
		w.add("location_id = ANY($%d)", q.LocationIDs)
	}
	if q.EntityType != "" {
		w.add("entity_type = $%d", q.EntityType)
	}
	if len(q.EntityIDs) > 0 {
		w.add("entity_id = ANY($%d)", q.EntityIDs)
	}
	if q.Category != "" {
		w.add("category = $%d", string(q.Category))
	}
	if q.Action != "" {
		w.add("action ILIKE $%d", likePattern(q.Action))
	}
	if q.Search != "" {
		w.add("(action ILIKE $%[1]d OR description ILIKE $%[1]d)", likePattern(q.Search))
	}
	if q.From != nil {
		w.add("created_at >= $%d", *q.From)
	}
	if q.Until != nil {
		w.add("created_at < $%d", *q.Until)
	}
	if q.MetadataKey != "" {
		w.add("jsonb_exists(metadata, $%d)", q.MetadataKey)
	}
	return w
}

// sortColumns maps allow-listed sort fields to columns. Nothing outside
// this map is ever interpolated into ORDER BY.
var sortColumns = map[audit.SortField]string{
	audit.SortCreatedAt:  "created_at",
	audit.SortAction:     "action",
	audit.SortCategory:   "category",
	audit.SortActorID:    "actor_id",
	audit.SortLocationID: "location_id",
}

// orderBy sorts nulls as the smallest value and breaks ties on id.
func orderBy(s audit.Sort) string {
	s = s.Normalize()
	col := sortColumns[s.Field]
	if s.Descending() {
		return col + " DESC NULLS LAST, id DESC"
	}
	return col + " ASC NULLS FIRST, id ASC"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches s as a literal substring.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// uniqueViolation reports whether err is a unique_violation and returns the
// offending constraint.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
