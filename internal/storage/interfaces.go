// Package storage provides the graph store abstraction for the Casetrail
// system.
//
// All domain data lives in a node/relationship graph: loved-one cases,
// timeline events, reminders, and users are nodes; ownership, assignment,
// and related-entity links are typed edges. The interface is capability
// based: engines express reads as typed QuerySpec values and never build
// query text themselves, so backends can be swapped without touching
// engine code.
package storage

import "context"

// GraphStore executes pattern queries against a node/relationship graph and
// returns typed records.
type GraphStore interface {
	// FindOne returns the node with the given label whose property key
	// equals value. Returns ErrNotFound when no node matches.
	FindOne(ctx context.Context, label, key, value string) (Record, error)

	// Create stores a new node with the given label and properties and
	// returns it as written.
	Create(ctx context.Context, label string, fields map[string]interface{}) (Record, error)

	// CreateEdge creates a typed edge between two existing nodes. Creating
	// an edge that already exists is a no-op. Returns ErrNotFound when
	// either endpoint does not resolve.
	CreateEdge(ctx context.Context, from NodeRef, edgeType string, to NodeRef) error

	// DeleteEdge removes the typed edge between two nodes, if present.
	DeleteEdge(ctx context.Context, from NodeRef, edgeType string, to NodeRef) error

	// DeleteEdges removes all edges of the given type originating at the
	// node. Used to replace assignment links without knowing the target.
	DeleteEdges(ctx context.Context, from NodeRef, edgeType string) error

	// UpdateFields merges the given properties into the matched node and
	// returns the updated record. Returns ErrNotFound when absent.
	UpdateFields(ctx context.Context, label, key, value string, fields map[string]interface{}) (Record, error)

	// DeleteNode detach-deletes the matched node and all its edges.
	// Deleting a node that does not exist is not an error.
	DeleteNode(ctx context.Context, label, key, value string) error

	// Query returns the nodes matching the spec, in the requested order.
	Query(ctx context.Context, spec QuerySpec) ([]Record, error)

	// Close releases any resources held by the store.
	Close() error
}
