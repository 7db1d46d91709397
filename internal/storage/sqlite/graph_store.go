// Package sqlite implements the graph store on SQLite. Nodes are rows with
// a label and a JSON property bag; edges are typed rows between node ids.
// Property filters and ordering use json_extract with bound parameters.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/casetrail/internal/storage"
)

// Schema creates the node and edge tables. Edges cascade on node deletion,
// which gives DeleteNode its detach-delete semantics.
const Schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT NOT NULL,
	props TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes(label);

CREATE TABLE IF NOT EXISTS edges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	from_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	edge_type TEXT NOT NULL,
	to_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	UNIQUE(from_id, edge_type, to_id)
);

CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id, edge_type);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id, edge_type);
`

// GraphStore implements storage.GraphStore using SQLite.
type GraphStore struct {
	db *sql.DB
}

// NewGraphStore opens a SQLite database, configures WAL mode, and creates
// the schema.
func NewGraphStore(dsn string) (*GraphStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent
	// load. WAL mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &GraphStore{db: db}, nil
}

// GetDB exposes the underlying connection for server wiring and diagnostics.
func (s *GraphStore) GetDB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *GraphStore) Close() error {
	return s.db.Close()
}

// FindOne returns the node with the given label whose property key equals value.
func (s *GraphStore) FindOne(ctx context.Context, label, key, value string) (storage.Record, error) {
	if label == "" || key == "" {
		return storage.Record{}, fmt.Errorf("%w: label and key are required", storage.ErrInvalidInput)
	}

	var propsJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT props FROM nodes WHERE label = ? AND json_extract(props, '$.' || ?) = ? LIMIT 1",
		label, key, value,
	).Scan(&propsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, fmt.Errorf("%w: %s with %s=%s", storage.ErrNotFound, label, key, value)
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("sqlite: find %s failed: %w", label, err)
	}

	fields, err := unmarshalProps(propsJSON)
	if err != nil {
		return storage.Record{}, err
	}
	return storage.Record{Fields: fields}, nil
}

// Create stores a new node and returns it as written.
func (s *GraphStore) Create(ctx context.Context, label string, fields map[string]interface{}) (storage.Record, error) {
	if label == "" {
		return storage.Record{}, fmt.Errorf("%w: label is required", storage.ErrInvalidInput)
	}

	propsJSON, err := marshalProps(fields)
	if err != nil {
		return storage.Record{}, err
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO nodes (label, props) VALUES (?, ?)", label, propsJSON,
	); err != nil {
		return storage.Record{}, fmt.Errorf("sqlite: create %s failed: %w", label, err)
	}

	// Round-trip through JSON so the returned record matches a later read
	// (times as RFC 3339 strings, numbers as float64).
	written, err := unmarshalProps(propsJSON)
	if err != nil {
		return storage.Record{}, err
	}
	return storage.Record{Fields: written}, nil
}

// CreateEdge creates a typed edge between two existing nodes. Duplicate
// edges are ignored.
func (s *GraphStore) CreateEdge(ctx context.Context, from storage.NodeRef, edgeType string, to storage.NodeRef) error {
	fromID, err := s.nodeID(ctx, from)
	if err != nil {
		return err
	}
	toID, err := s.nodeID(ctx, to)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO edges (from_id, edge_type, to_id) VALUES (?, ?, ?)",
		fromID, edgeType, toID,
	); err != nil {
		return fmt.Errorf("sqlite: create edge %s failed: %w", edgeType, err)
	}
	return nil
}

// DeleteEdge removes the typed edge between two nodes, if present.
// Missing endpoints are treated as an already-deleted edge.
func (s *GraphStore) DeleteEdge(ctx context.Context, from storage.NodeRef, edgeType string, to storage.NodeRef) error {
	fromID, err := s.nodeID(ctx, from)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	toID, err := s.nodeID(ctx, to)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM edges WHERE from_id = ? AND edge_type = ? AND to_id = ?",
		fromID, edgeType, toID,
	); err != nil {
		return fmt.Errorf("sqlite: delete edge %s failed: %w", edgeType, err)
	}
	return nil
}

// DeleteEdges removes all edges of the given type originating at the node.
func (s *GraphStore) DeleteEdges(ctx context.Context, from storage.NodeRef, edgeType string) error {
	fromID, err := s.nodeID(ctx, from)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM edges WHERE from_id = ? AND edge_type = ?",
		fromID, edgeType,
	); err != nil {
		return fmt.Errorf("sqlite: delete edges %s failed: %w", edgeType, err)
	}
	return nil
}

// UpdateFields merges the given properties into the matched node.
func (s *GraphStore) UpdateFields(ctx context.Context, label, key, value string, fields map[string]interface{}) (storage.Record, error) {
	if len(fields) == 0 {
		return storage.Record{}, fmt.Errorf("%w: no fields to update", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Record{}, fmt.Errorf("sqlite: begin update failed: %w", err)
	}
	defer tx.Rollback()

	var (
		id        int64
		propsJSON string
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id, props FROM nodes WHERE label = ? AND json_extract(props, '$.' || ?) = ? LIMIT 1",
		label, key, value,
	).Scan(&id, &propsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, fmt.Errorf("%w: %s with %s=%s", storage.ErrNotFound, label, key, value)
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("sqlite: find %s for update failed: %w", label, err)
	}

	current, err := unmarshalProps(propsJSON)
	if err != nil {
		return storage.Record{}, err
	}
	for k, v := range normalizeProps(fields) {
		current[k] = v
	}

	merged, err := json.Marshal(current)
	if err != nil {
		return storage.Record{}, fmt.Errorf("sqlite: failed to marshal props: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE nodes SET props = ? WHERE id = ?", string(merged), id); err != nil {
		return storage.Record{}, fmt.Errorf("sqlite: update %s failed: %w", label, err)
	}
	if err := tx.Commit(); err != nil {
		return storage.Record{}, fmt.Errorf("sqlite: commit update failed: %w", err)
	}

	return storage.Record{Fields: current}, nil
}

// DeleteNode detach-deletes the matched node. Edges cascade. Deleting a
// node that does not exist is not an error.
func (s *GraphStore) DeleteNode(ctx context.Context, label, key, value string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM nodes WHERE label = ? AND json_extract(props, '$.' || ?) = ?",
		label, key, value,
	); err != nil {
		return fmt.Errorf("sqlite: delete %s failed: %w", label, err)
	}
	return nil
}

// Query returns the nodes matching the spec. The query text is assembled
// from fixed clause templates; all caller-supplied values are bound as
// parameters.
func (s *GraphStore) Query(ctx context.Context, spec storage.QuerySpec) ([]storage.Record, error) {
	if spec.Label == "" {
		return nil, fmt.Errorf("%w: query label is required", storage.ErrInvalidInput)
	}
	if spec.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must be non-negative", storage.ErrInvalidInput)
	}

	var (
		sb   strings.Builder
		args []interface{}
	)

	sb.WriteString("SELECT n.props")
	if spec.Join != nil {
		sb.WriteString(", m.props")
	}
	sb.WriteString(" FROM nodes n")
	if spec.Join != nil {
		sb.WriteString(" JOIN edges e ON e.to_id = n.id AND e.edge_type = ?")
		args = append(args, spec.Join.EdgeType)
		sb.WriteString(" JOIN nodes m ON m.id = e.from_id AND m.label = ?")
		args = append(args, spec.Join.Label)
	}
	sb.WriteString(" WHERE n.label = ?")
	args = append(args, spec.Label)

	for _, eq := range spec.Equals {
		sb.WriteString(" AND json_extract(n.props, '$.' || ?) = ?")
		args = append(args, eq.Field, bindValue(eq.Value))
	}
	if spec.Join != nil {
		for _, eq := range spec.Join.Equals {
			sb.WriteString(" AND json_extract(m.props, '$.' || ?) = ?")
			args = append(args, eq.Field, bindValue(eq.Value))
		}
	}
	if spec.Range != nil {
		if spec.Range.After != nil {
			sb.WriteString(" AND json_extract(n.props, '$.' || ?) >= ?")
			args = append(args, spec.Range.Field, spec.Range.After.UTC().Format(storage.TimeFormat))
		}
		if spec.Range.Before != nil {
			sb.WriteString(" AND json_extract(n.props, '$.' || ?) <= ?")
			args = append(args, spec.Range.Field, spec.Range.Before.UTC().Format(storage.TimeFormat))
		}
	}

	if spec.OrderBy != "" {
		dir := "ASC"
		if spec.Descending {
			dir = "DESC"
		}
		sb.WriteString(" ORDER BY json_extract(n.props, '$.' || ?) " + dir + ", n.id ASC")
		args = append(args, spec.OrderBy)
	} else {
		sb.WriteString(" ORDER BY n.id ASC")
	}

	if spec.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, spec.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s failed: %w", spec.Label, err)
	}
	defer rows.Close()

	var records []storage.Record
	for rows.Next() {
		var (
			propsJSON  string
			joinedJSON sql.NullString
		)
		if spec.Join != nil {
			err = rows.Scan(&propsJSON, &joinedJSON)
		} else {
			err = rows.Scan(&propsJSON)
		}
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan %s row failed: %w", spec.Label, err)
		}

		rec := storage.Record{}
		if rec.Fields, err = unmarshalProps(propsJSON); err != nil {
			return nil, err
		}
		if joinedJSON.Valid {
			if rec.Joined, err = unmarshalProps(joinedJSON.String); err != nil {
				return nil, err
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: query %s failed: %w", spec.Label, err)
	}

	return records, nil
}

// nodeID resolves a NodeRef to its internal row id.
func (s *GraphStore) nodeID(ctx context.Context, ref storage.NodeRef) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM nodes WHERE label = ? AND json_extract(props, '$.' || ?) = ? LIMIT 1",
		ref.Label, ref.Key, ref.Value,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s with %s=%s", storage.ErrNotFound, ref.Label, ref.Key, ref.Value)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: resolve %s failed: %w", ref.Label, err)
	}
	return id, nil
}

// normalizeProps converts time-valued properties to canonical UTC RFC 3339
// strings so range filters and ordering compare correctly.
func normalizeProps(fields map[string]interface{}) map[string]interface{} {
	normalized := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch t := v.(type) {
		case time.Time:
			normalized[k] = t.UTC().Format(storage.TimeFormat)
		case *time.Time:
			if t != nil {
				normalized[k] = t.UTC().Format(storage.TimeFormat)
			} else {
				normalized[k] = nil
			}
		default:
			normalized[k] = v
		}
	}
	return normalized
}

func marshalProps(fields map[string]interface{}) (string, error) {
	data, err := json.Marshal(normalizeProps(fields))
	if err != nil {
		return "", fmt.Errorf("sqlite: failed to marshal props: %w", err)
	}
	return string(data), nil
}

func unmarshalProps(propsJSON string) (map[string]interface{}, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(propsJSON), &fields); err != nil {
		return nil, fmt.Errorf("sqlite: failed to unmarshal props: %w", err)
	}
	return fields, nil
}

// bindValue converts filter values to forms SQLite compares correctly
// against json_extract output (booleans surface as 0/1 integers).
func bindValue(v interface{}) interface{} {
	switch t := v.(type) {
	case bool:
		if t {
			return 1
		}
		return 0
	case time.Time:
		return t.UTC().Format(storage.TimeFormat)
	default:
		return v
	}
}
