package audit

import (
	"fmt"
	"strings"
	"time"
)

// Paging defaults.
const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time of day. It is resolved to an
// instant only when a query runs, in the engine's location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the normalized date for year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate accepts "2006-01-02" or an RFC 3339 timestamp. For timestamps
// the time of day is dropped.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("audit: invalid date %q", s)
	}
	return DateOf(t), nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// In returns midnight at the start of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(data []byte) error {
	parsed, err := ParseDate(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Filter selects audit entries. Every field is optional and set fields
// combine with AND. DateFrom/DateTo and StartDate/EndDate are two names
// for the same range; when both pairs are given they are intersected.
type Filter struct {
	ActorID     *int64   `json:"actor_id,omitempty"`
	LocationIDs []int64  `json:"location_ids,omitempty"`
	EntityType  string   `json:"entity_type,omitempty"`
	EntityIDs   []int64  `json:"entity_ids,omitempty"`
	Category    Category `json:"category,omitempty"`
	Action      string   `json:"action,omitempty"`
	Search      string   `json:"search,omitempty"`
	DateFrom    *Date    `json:"date_from,omitempty"`
	DateTo      *Date    `json:"date_to,omitempty"`
	StartDate   *Date    `json:"start_date,omitempty"`
	EndDate     *Date    `json:"end_date,omitempty"`
	RecentDays  int      `json:"recent_days,omitempty"`
	MetadataKey string   `json:"metadata_key,omitempty"`
}

// Window resolves the date filters to a half-open range [from, until).
// Lower bounds take the latest of DateFrom, StartDate and now minus
// RecentDays; upper bounds take the earliest midnight following DateTo or
// EndDate. A nil bound is open.
func (f Filter) Window(now time.Time, loc *time.Location) (from, until *time.Time) {
	if loc == nil {
		loc = time.UTC
	}

	lower := func(t time.Time) {
		if from == nil || t.After(*from) {
			from = &t
		}
	}
	upper := func(t time.Time) {
		if until == nil || t.Before(*until) {
			until = &t
		}
	}

	if f.DateFrom != nil {
		lower(f.DateFrom.In(loc))
	}
	if f.StartDate != nil {
		lower(f.StartDate.In(loc))
	}
	if f.RecentDays > 0 {
		lower(now.In(loc).AddDate(0, 0, -f.RecentDays))
	}
	if f.DateTo != nil {
		upper(f.DateTo.In(loc).AddDate(0, 0, 1))
	}
	if f.EndDate != nil {
		upper(f.EndDate.In(loc).AddDate(0, 0, 1))
	}
	return from, until
}

// SortField names a sortable column.
type SortField string

const (
	SortCreatedAt  SortField = "created_at"
	SortAction     SortField = "action"
	SortCategory   SortField = "category"
	SortActorID    SortField = "actor_id"
	SortLocationID SortField = "location_id"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// DefaultSort orders newest first.
var DefaultSort = Sort{Field: SortCreatedAt, Direction: Desc}

// Sort orders query results. Entry id in the same direction always breaks
// ties.
type Sort struct {
	Field     SortField `json:"field,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Normalize maps s onto the allow-list. Unknown fields fall back to
// DefaultSort and unknown directions to Desc.
func (s Sort) Normalize() Sort {
	field := SortField(strings.ToLower(strings.TrimSpace(string(s.Field))))
	switch field {
	case SortCreatedAt, SortAction, SortCategory, SortActorID, SortLocationID:
	default:
		return DefaultSort
	}

	dir := Direction(strings.ToLower(strings.TrimSpace(string(s.Direction))))
	if dir != Asc {
		dir = Desc
	}
	return Sort{Field: field, Direction: dir}
}

// Descending reports whether s sorts in descending order.
func (s Sort) Descending() bool { return s.Direction != Asc }

// Page selects a 1-based page of results.
type Page struct {
	Number  int `json:"page,omitempty"`
	PerPage int `json:"per_page,omitempty"`
}

// Normalize clamps PerPage to [1, maxPerPage], substitutes defaultPerPage
// when PerPage is unset and raises Number to at least 1. Non-positive
// arguments select DefaultPerPage and MaxPerPage.
func (p Page) Normalize(defaultPerPage, maxPerPage int) Page {
	if maxPerPage <= 0 {
		maxPerPage = MaxPerPage
	}
	if defaultPerPage <= 0 {
		defaultPerPage = DefaultPerPage
	}
	defaultPerPage = min(defaultPerPage, maxPerPage)

	switch {
	case p.PerPage <= 0:
		p.PerPage = defaultPerPage
	case p.PerPage > maxPerPage:
		p.PerPage = maxPerPage
	}
	if p.Number < 1 {
		p.Number = 1
	}
	return p
}

// Offset returns the number of rows preceding the page. p must be normalized.
func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

// Query is a validated, normalized request handed to a Store.
type Query struct {
	ActorID     *int64
	LocationIDs []int64
	EntityType  string
	EntityIDs   []int64
	Category    Category
	Action      string
	Search      string
	From        *time.Time // inclusive
	Until       *time.Time // exclusive
	MetadataKey string
	Sort        Sort
	Limit       int
	Offset      int
}

// NewQuery builds a Query from an already validated filter. Sort and page
// are normalized here.
func NewQuery(f Filter, s Sort, p Page, now time.Time, loc *time.Location, defaultPerPage, maxPerPage int) Query {
	p = p.Normalize(defaultPerPage, maxPerPage)
	from, until := f.Window(now, loc)

	q := Query{
		ActorID:     f.ActorID,
		EntityType:  strings.TrimSpace(f.EntityType),
		Category:    f.Category,
		Action:      strings.TrimSpace(f.Action),
		Search:      strings.TrimSpace(f.Search),
		From:        from,
		Until:       until,
		MetadataKey: f.MetadataKey,
		Sort:        s.Normalize(),
		Limit:       p.PerPage,
		Offset:      p.Offset(),
	}
	if len(f.LocationIDs) > 0 {
		q.LocationIDs = append([]int64(nil), f.LocationIDs...)
	}
	if len(f.EntityIDs) > 0 {
		q.EntityIDs = append([]int64(nil), f.EntityIDs...)
	}
	return q
}

// EmptyWindow reports whether the date range admits no instant at all.
func (q Query) EmptyWindow() bool {
	return q.From != nil && q.Until != nil && !q.From.Before(*q.Until)
}

// PageInfo describes where a page sits in the filtered result set.
// From and To are 1-based ordinals of the first and last entry on the
// page, both 0 when the page is empty.
type PageInfo struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	From        int   `json:"from"`
	To          int   `json:"to"`
}

// NewPageInfo computes PageInfo for a normalized page holding count
// entries out of total.
func NewPageInfo(p Page, total int64, count int) PageInfo {
	last := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	info := PageInfo{
		CurrentPage: p.Number,
		LastPage:    max(last, 1),
		PerPage:     p.PerPage,
		Total:       total,
	}
	if count > 0 {
		info.From = p.Offset() + 1
		info.To = p.Offset() + count
	}
	return info
}

// Result is one page of audit entries.
type Result struct {
	Entries  []*Entry `json:"entries"`
	PageInfo PageInfo `json:"page_info"`
}
