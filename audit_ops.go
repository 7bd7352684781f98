package paytrail

import (
	"context"
	"strings"

	"github.com/xraph/paytrail/audit"
)

// ──────────────────────────────────────────────────
// Audit Trail
// ──────────────────────────────────────────────────

// RecordEvent validates in and appends it to the audit trail before
// returning. Actor, IP address and user agent are taken from req when in
// leaves them empty. Invalid input never reaches the store.
func (l *Ledger) RecordEvent(ctx context.Context, req audit.RequestInfo, in audit.Input) (*audit.Entry, error) {
	if !in.Category.Valid() {
		return nil, invalid("category", ErrInvalidCategory, "unknown category %q", in.Category)
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, invalid("description", ErrInvalidDescription, "must not be blank")
	}
	if _, err := audit.EncodeMetadata(in.Metadata); err != nil {
		return nil, invalid("metadata", ErrInvalidMetadata, "%v", err)
	}

	e := &audit.Entry{
		ActorID:     in.ActorID,
		LocationID:  in.LocationID,
		Action:      strings.TrimSpace(in.Action),
		Category:    in.Category,
		EntityType:  strings.TrimSpace(in.EntityType),
		EntityID:    in.EntityID,
		Description: in.Description,
		Metadata:    in.Metadata,
		IPAddress:   in.IPAddress,
		UserAgent:   in.UserAgent,
		CreatedAt:   l.now(),
	}
	if e.ActorID == nil {
		e.ActorID = req.ActorID
	}
	if e.IPAddress == "" {
		e.IPAddress = req.IPAddress
	}
	if e.UserAgent == "" {
		e.UserAgent = req.UserAgent
	}
	// Detach from pointers and metadata the caller still holds.
	e = e.Clone()

	if err := l.store.AppendAuditEntry(ctx, e); err != nil {
		return nil, err
	}

	l.plugins.EmitAuditRecorded(ctx, e)
	return e, nil
}

// GetEvent retrieves an audit entry by ID.
func (l *Ledger) GetEvent(ctx context.Context, entryID int64) (*audit.Entry, error) {
	return l.store.GetAuditEntry(ctx, entryID)
}

// QueryEvents returns one page of audit entries matching f. Filters combine
// with AND; sort falls back to newest first for keys outside the
// allow-list; page size is clamped to the configured maximum.
func (l *Ledger) QueryEvents(ctx context.Context, f audit.Filter, s audit.Sort, p audit.Page) (*audit.Result, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}

	page := p.Normalize(l.defaultPerPage, l.maxPerPage)
	q := audit.NewQuery(f, s, page, l.now(), l.loc, l.defaultPerPage, l.maxPerPage)

	if q.EmptyWindow() {
		return &audit.Result{
			Entries:  []*audit.Entry{},
			PageInfo: audit.NewPageInfo(page, 0, 0),
		}, nil
	}

	entries, total, err := l.store.QueryAuditEntries(ctx, q)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}

	return &audit.Result{
		Entries:  entries,
		PageInfo: audit.NewPageInfo(page, total, len(entries)),
	}, nil
}

func validateFilter(f audit.Filter) error {
	if f.Category != "" && !f.Category.Valid() {
		return invalid("category", ErrInvalidCategory, "unknown category %q", f.Category)
	}
	if f.RecentDays < 0 {
		return invalid("recent_days", ErrInvalidFilter, "must not be negative, got %d", f.RecentDays)
	}
	if len(f.EntityIDs) > 0 && strings.TrimSpace(f.EntityType) == "" {
		return invalid("entity_ids", ErrInvalidFilter, "entity ids require an entity type")
	}
	return nil
}
