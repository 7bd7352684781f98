package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the sqlite migration executor
	"github.com/xraph/grove/migrate"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xraph/paytrail"
	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/id"
	"github.com/xraph/paytrail/payment"
	paytrailstore "github.com/xraph/paytrail/store"
)

// compile-time interface check
var _ paytrailstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("paytrail/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("paytrail/sqlite: migration failed: %w", err)
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
	_, err := s.sdb.NewInsert(toPaymentModel(p)).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "transaction_id") {
				return fmt.Errorf("paytrail/sqlite: create payment %s: %w", p.TransactionID, paytrail.ErrDuplicateTransactionID)
			}
			return fmt.Errorf("paytrail/sqlite: create payment %s: %w: %v", p.ID, paytrail.ErrIntegrity, err)
		}
		return fmt.Errorf("paytrail/sqlite: create payment: %w", err)
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	m := new(paymentModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", paymentID.String()).
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
	err := s.sdb.NewSelect(m).
		Where("transaction_id = ?", transactionID).
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
	q := s.sdb.NewSelect(&models)

	if opts.CustomerID != 0 {
		q = q.Where("customer_id = ?", opts.CustomerID)
	}
	if opts.BookingID != nil {
		q = q.Where("booking_id = ?", *opts.BookingID)
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Method != "" {
		q = q.Where("method = ?", string(opts.Method))
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
	q := s.sdb.NewUpdate((*paymentModel)(nil)).
		Set("status = ?", string(u.To)).
		Set("updated_at = ?", u.UpdatedAt)
	if u.PaidAt != nil {
		q = q.Set("paid_at = ?", *u.PaidAt)
	}
	if u.RefundedAt != nil {
		q = q.Set("refunded_at = ?", *u.RefundedAt)
	}

	res, err := q.
		Where("id = ?", u.ID.String()).
		Where("status = ?", string(u.From)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.GetPayment(ctx, u.ID); err != nil {
			return err
		}
		return fmt.Errorf("paytrail/sqlite: update payment %s: %w", u.ID, paytrail.ErrStatusConflict)
	}
	return nil
}

func (s *Store) UpdatePaymentNotes(ctx context.Context, paymentID id.PaymentID, notes string, updatedAt time.Time) error {
	res, err := s.sdb.NewUpdate((*paymentModel)(nil)).
		Set("notes = ?", notes).
		Set("updated_at = ?", updatedAt).
		Where("id = ?", paymentID.String()).
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

// ==================== Audit Store ====================

func (s *Store) AppendAuditEntry(ctx context.Context, e *audit.Entry) error {
	meta, err := audit.EncodeMetadata(e.Metadata)
	if err != nil {
		return fmt.Errorf("paytrail/sqlite: encode metadata: %w", err)
	}

	var entryID int64
	err = s.sdb.NewRaw(`
		INSERT INTO paytrail_audit_entries
			(actor_id, location_id, action, category, entity_type, entity_id,
			 description, metadata, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, e.ActorID, e.LocationID, e.Action, string(e.Category), e.EntityType, e.EntityID,
		e.Description, string(meta), e.IPAddress, e.UserAgent, e.CreatedAt.UnixMicro()).Scan(ctx, &entryID)
	if err != nil {
		return fmt.Errorf("paytrail/sqlite: append audit entry: %w", err)
	}

	e.ID = entryID
	return nil
}

func (s *Store) GetAuditEntry(ctx context.Context, entryID int64) (*audit.Entry, error) {
	m := new(auditEntryModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", entryID).
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
	conds := auditWhere(q)

	var (
		total int64
		args  []any
		parts []string
	)
	for _, c := range conds {
		parts = append(parts, c.sql)
		args = append(args, c.args...)
	}
	countSQL := "SELECT COUNT(*) FROM paytrail_audit_entries"
	if len(parts) > 0 {
		countSQL += " WHERE " + strings.Join(parts, " AND ")
	}
	if err := s.sdb.NewRaw(countSQL, args...).Scan(ctx, &total); err != nil {
		return nil, 0, fmt.Errorf("paytrail/sqlite: count audit entries: %w", err)
	}
	if total == 0 || q.Offset >= int(total) {
		return []*audit.Entry{}, total, nil
	}

	var models []auditEntryModel
	sel := s.sdb.NewSelect(&models)
	for _, c := range conds {
		sel = sel.Where(c.sql, c.args...)
	}
	sel = sel.OrderExpr(orderBy(q.Sort))
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}
	if q.Offset > 0 {
		sel = sel.Offset(q.Offset)
	}

	if err := sel.Scan(ctx); err != nil {
		return nil, 0, fmt.Errorf("paytrail/sqlite: query audit entries: %w", err)
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

type cond struct {
	sql  string
	args []any
}

func auditWhere(q audit.Query) []cond {
	var conds []cond
	add := func(sql string, args ...any) {
		conds = append(conds, cond{sql: sql, args: args})
	}

	if q.ActorID != nil {
		add("actor_id = ?", *q.ActorID)
	}
	if len(q.LocationIDs) > 0 {
		add("location_id IN ("+placeholders(len(q.LocationIDs))+")", int64Args(q.LocationIDs)...)
	}
	if q.EntityType != "" {
		add("entity_type = ?", q.EntityType)
	}
	if len(q.EntityIDs) > 0 {
		add("entity_id IN ("+placeholders(len(q.EntityIDs))+")", int64Args(q.EntityIDs)...)
	}
	if q.Category != "" {
		add("category = ?", string(q.Category))
	}
	if q.Action != "" {
		add(`paytrail_fold(action) LIKE ? ESCAPE '\'`, likePattern(fold(q.Action)))
	}
	if q.Search != "" {
		p := likePattern(fold(q.Search))
		add(`(paytrail_fold(action) LIKE ? ESCAPE '\' OR paytrail_fold(description) LIKE ? ESCAPE '\')`, p, p)
	}
	if q.From != nil {
		add("created_at >= ?", q.From.UnixMicro())
	}
	if q.Until != nil {
		add("created_at < ?", q.Until.UnixMicro())
	}
	if q.MetadataKey != "" {
		add("EXISTS (SELECT 1 FROM json_each(metadata) WHERE json_each.key = ?)", q.MetadataKey)
	}
	return conds
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, v := range ids {
		args[i] = v
	}
	return args
}

// sortColumns maps allow-listed sort fields to columns.
var sortColumns = map[audit.SortField]string{
	audit.SortCreatedAt:  "created_at",
	audit.SortAction:     "action",
	audit.SortCategory:   "category",
	audit.SortActorID:    "actor_id",
	audit.SortLocationID: "location_id",
}

func orderBy(s audit.Sort) string {
	s = s.Normalize()
	col := sortColumns[s.Field]
	if s.Descending() {
		return col + " DESC NULLS LAST, id DESC"
	}
	return col + " ASC NULLS FIRST, id ASC"
}

// SQLite's lower() folds ASCII only; paytrail_fold applies the same
// Unicode folding as the in-process matcher.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("paytrail_fold", 1, foldFunc)
}

func fold(s string) string { return strings.ToLower(s) }

func foldFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return fold(v), nil
	case []byte:
		return fold(string(v)), nil
	default:
		return v, nil
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
