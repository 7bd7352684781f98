package audit

import (
	"cmp"
	"slices"
	"strings"
)

// Matches reports whether e satisfies every criterion in q. It is the
// in-process equivalent of the WHERE clause the SQL and document stores build.
func (q Query) Matches(e *Entry) bool {
	if q.ActorID != nil && (e.ActorID == nil || *e.ActorID != *q.ActorID) {
		return false
	}
	if len(q.LocationIDs) > 0 && (e.LocationID == nil || !slices.Contains(q.LocationIDs, *e.LocationID)) {
		return false
	}
	if q.EntityType != "" && e.EntityType != q.EntityType {
		return false
	}
	if len(q.EntityIDs) > 0 && (e.EntityID == nil || !slices.Contains(q.EntityIDs, *e.EntityID)) {
		return false
	}
	if q.Category != "" && e.Category != q.Category {
		return false
	}
	if q.Action != "" && !containsFold(e.Action, q.Action) {
		return false
	}
	if q.Search != "" && !containsFold(e.Action, q.Search) && !containsFold(e.Description, q.Search) {
		return false
	}
	if q.From != nil && e.CreatedAt.Before(*q.From) {
		return false
	}
	if q.Until != nil && !e.CreatedAt.Before(*q.Until) {
		return false
	}
	if q.MetadataKey != "" {
		if _, ok := e.Metadata[q.MetadataKey]; !ok {
			return false
		}
	}
	return true
}

// Compare orders a and b by s, treating null references as the smallest
// value and falling back to entry id in the same direction.
func (s Sort) Compare(a, b *Entry) int {
	c := 0
	switch s.Field {
	case SortAction:
		c = strings.Compare(a.Action, b.Action)
	case SortCategory:
		c = strings.Compare(string(a.Category), string(b.Category))
	case SortActorID:
		c = compareNullable(a.ActorID, b.ActorID)
	case SortLocationID:
		c = compareNullable(a.LocationID, b.LocationID)
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c == 0 {
		c = cmp.Compare(a.ID, b.ID)
	}
	if s.Descending() {
		return -c
	}
	return c
}

// SortEntries orders entries in place by s.
func SortEntries(entries []*Entry, s Sort) {
	slices.SortFunc(entries, s.Compare)
}

func compareNullable(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return cmp.Compare(*a, *b)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
