// Package audit defines the append-only audit trail: entries, the filter,
// sort and page types used to query them, and the storage contract.
//
// Entries are created only through a Recorder; no update or delete exists.
package audit

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// Category classifies an audit entry.
type Category string

const (
	CategoryCreate Category = "create"
	CategoryUpdate Category = "update"
	CategoryDelete Category = "delete"
	CategoryView   Category = "view"
	CategoryLogin  Category = "login"
	CategoryLogout Category = "logout"
	CategoryExport Category = "export"
	CategoryImport Category = "import"
	CategoryOther  Category = "other"
)

// Categories returns all nine categories.
func Categories() []Category {
	return []Category{
		CategoryCreate, CategoryUpdate, CategoryDelete,
		CategoryView, CategoryLogin, CategoryLogout,
		CategoryExport, CategoryImport, CategoryOther,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryCreate, CategoryUpdate, CategoryDelete,
		CategoryView, CategoryLogin, CategoryLogout,
		CategoryExport, CategoryImport, CategoryOther:
		return true
	}
	return false
}

// Entry is one immutable audit record. ID is assigned by the store and
// increases in insertion order.
type Entry struct {
	ID          int64          `json:"id"`
	ActorID     *int64         `json:"actor_id,omitempty"`
	LocationID  *int64         `json:"location_id,omitempty"`
	Action      string         `json:"action"`
	Category    Category       `json:"category"`
	EntityType  string         `json:"entity_type,omitempty"`
	EntityID    *int64         `json:"entity_id,omitempty"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IPAddress   string         `json:"ip_address,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Clone returns a deep copy of e. Nested maps and slices in Metadata are
// copied too.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.ActorID = cloneInt64(e.ActorID)
	c.LocationID = cloneInt64(e.LocationID)
	c.EntityID = cloneInt64(e.EntityID)
	if e.Metadata != nil {
		c.Metadata = cloneMap(e.Metadata)
	}
	return &c
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = cloneValue(x)
		}
		return s
	default:
		return v
	}
}

// Input is what a caller supplies to record an entry.
type Input struct {
	ActorID     *int64         `json:"actor_id,omitempty"`
	LocationID  *int64         `json:"location_id,omitempty"`
	Action      string         `json:"action"`
	Category    Category       `json:"category"`
	EntityType  string         `json:"entity_type,omitempty"`
	EntityID    *int64         `json:"entity_id,omitempty"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IPAddress   string         `json:"ip_address,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
}

// RequestInfo describes the request on whose behalf an operation runs.
// It fills actor, IP address and user agent on entries that omit them.
type RequestInfo struct {
	ActorID   *int64
	IPAddress string
	UserAgent string
}

// EncodeMetadata serializes metadata for storage. A nil or empty map
// encodes as "{}".
func EncodeMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// DecodeMetadata parses stored metadata. Numbers decode as json.Number so
// values round-trip without float conversion. Empty input and "{}" yield nil.
func DecodeMetadata(data []byte) (map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

// MetadataKeys returns the top-level keys of m in sorted order.
func MetadataKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
