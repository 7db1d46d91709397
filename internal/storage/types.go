package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates that the requested node was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// TimeFormat is the canonical serialization format for time-valued node
// properties. Times are stored as UTC RFC 3339 strings so that range filters
// and ordering can compare them lexicographically inside the backend.
const TimeFormat = time.RFC3339

// NodeRef identifies a node by label plus a unique property value,
// e.g. {Label: "Reminder", Key: "id", Value: "rem-1a2b3c4d"}.
type NodeRef struct {
	Label string
	Key   string
	Value string
}

// Record is a node returned from the store: its property bag, plus the
// property bag of the joined node when the query requested an edge join.
type Record struct {
	// Fields holds the node's properties.
	Fields map[string]interface{}

	// Joined holds the joined node's properties. Nil when no join was
	// requested or no joined node matched.
	Joined map[string]interface{}
}

// Str returns the string value of a field, or "" when absent or not a string.
func (r Record) Str(key string) string {
	s, _ := r.Fields[key].(string)
	return s
}

// Bool returns the boolean value of a field. JSON-backed stores may
// round-trip booleans as float64 0/1, which is handled here.
func (r Record) Bool(key string) bool {
	switch v := r.Fields[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	}
	return false
}

// Time parses a time-valued field serialized with TimeFormat. Returns the
// zero time when the field is absent or malformed.
func (r Record) Time(key string) time.Time {
	s, ok := r.Fields[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Map returns the map value of a field, or nil when absent or not a map.
func (r Record) Map(key string) map[string]interface{} {
	m, _ := r.Fields[key].(map[string]interface{})
	return m
}

// Equals is an equality filter on a node property.
type Equals struct {
	Field string
	Value interface{}
}

// TimeRange is an inclusive range filter on a time-valued node property.
// A nil bound means that side is unconstrained.
type TimeRange struct {
	Field  string
	After  *time.Time
	Before *time.Time
}

// EdgeJoin requests a join to the node on the source side of an edge
// pointing at each result node (joined -[EdgeType]-> result). The joined
// node's properties are returned in Record.Joined.
type EdgeJoin struct {
	// EdgeType is the relationship type to follow.
	EdgeType string

	// Label is the label of the joined node.
	Label string

	// Equals filters applied to the joined node's properties.
	Equals []Equals
}

// QuerySpec describes a typed query over a single node label. Filters are
// expressed as data, never concatenated into query text by callers.
type QuerySpec struct {
	// Label is the node label to query (required).
	Label string

	// Equals filters applied to node properties (ANDed).
	Equals []Equals

	// Range is an optional inclusive time-range filter.
	Range *TimeRange

	// Join optionally joins the owning node across an edge.
	Join *EdgeJoin

	// OrderBy names the property to sort by. Empty means backend order.
	OrderBy string

	// Descending sorts OrderBy descending when true, ascending otherwise.
	Descending bool

	// Limit truncates the result set when > 0. Zero means no limit.
	Limit int
}
