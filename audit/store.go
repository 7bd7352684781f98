package audit

import "context"

// Store persists audit entries. It has no update or delete.
type Store interface {
	// AppendAuditEntry writes e durably and assigns e.ID.
	AppendAuditEntry(ctx context.Context, e *Entry) error
	GetAuditEntry(ctx context.Context, entryID int64) (*Entry, error)
	// QueryAuditEntries returns the page selected by q and the total number
	// of entries matching q's criteria.
	QueryAuditEntries(ctx context.Context, q Query) ([]*Entry, int64, error)
}

// Recorder appends validated entries on behalf of a request.
type Recorder interface {
	RecordEvent(ctx context.Context, req RequestInfo, in Input) (*Entry, error)
}

// QueryEngine serves filtered, sorted, paginated reads.
type QueryEngine interface {
	QueryEvents(ctx context.Context, f Filter, s Sort, p Page) (*Result, error)
}
