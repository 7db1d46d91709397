// Package postgres implements the graph store on PostgreSQL. Nodes are rows
// with a label and a JSONB property bag; edges are typed rows between node
// ids. Property filters use the ->> operator with bound parameters.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/scrypster/casetrail/internal/storage"
)

// Schema creates the node and edge tables. Edges cascade on node deletion.
const Schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id BIGSERIAL PRIMARY KEY,
	label TEXT NOT NULL,
	props JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes(label);
CREATE INDEX IF NOT EXISTS idx_nodes_props ON nodes USING GIN (props);

CREATE TABLE IF NOT EXISTS edges (
	id BIGSERIAL PRIMARY KEY,
	from_id BIGINT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	edge_type TEXT NOT NULL,
	to_id BIGINT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	UNIQUE(from_id, edge_type, to_id)
);

CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id, edge_type);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id, edge_type);
`

// GraphStore implements storage.GraphStore using PostgreSQL.
type GraphStore struct {
	db *sql.DB
}

// NewGraphStore connects to PostgreSQL and creates the schema.
func NewGraphStore(dsn string) (*GraphStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
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

	var propsJSON []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT props FROM nodes WHERE label = $1 AND props ->> $2 = $3 LIMIT 1",
		label, key, value,
	).Scan(&propsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, fmt.Errorf("%w: %s with %s=%s", storage.ErrNotFound, label, key, value)
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("postgres: find %s failed: %w", label, err)
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
		"INSERT INTO nodes (label, props) VALUES ($1, $2)", label, propsJSON,
	); err != nil {
		return storage.Record{}, fmt.Errorf("postgres: create %s failed: %w", label, err)
	}

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
		"INSERT INTO edges (from_id, edge_type, to_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
		fromID, edgeType, toID,
	); err != nil {
		return fmt.Errorf("postgres: create edge %s failed: %w", edgeType, err)
	}
	return nil
}

// DeleteEdge removes the typed edge between two nodes, if present.
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
		"DELETE FROM edges WHERE from_id = $1 AND edge_type = $2 AND to_id = $3",
		fromID, edgeType, toID,
	); err != nil {
		return fmt.Errorf("postgres: delete edge %s failed: %w", edgeType, err)
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
		"DELETE FROM edges WHERE from_id = $1 AND edge_type = $2",
		fromID, edgeType,
	); err != nil {
		return fmt.Errorf("postgres: delete edges %s failed: %w", edgeType, err)
	}
	return nil
}

// UpdateFields merges the given properties into the matched node using a
// JSONB concatenation update.
func (s *GraphStore) UpdateFields(ctx context.Context, label, key, value string, fields map[string]interface{}) (storage.Record, error) {
	if len(fields) == 0 {
		return storage.Record{}, fmt.Errorf("%w: no fields to update", storage.ErrInvalidInput)
	}

	patchJSON, err := marshalProps(fields)
	if err != nil {
		return storage.Record{}, err
	}

	var propsJSON []byte
	err = s.db.QueryRowContext(ctx,
		`UPDATE nodes SET props = props || $4::jsonb
		 WHERE label = $1 AND props ->> $2 = $3
		 RETURNING props`,
		label, key, value, patchJSON,
	).Scan(&propsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, fmt.Errorf("%w: %s with %s=%s", storage.ErrNotFound, label, key, value)
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("postgres: update %s failed: %w", label, err)
	}

	fields, err = unmarshalProps(propsJSON)
	if err != nil {
		return storage.Record{}, err
	}
	return storage.Record{Fields: fields}, nil
}

// DeleteNode detach-deletes the matched node. Edges cascade. Deleting a
// node that does not exist is not an error.
func (s *GraphStore) DeleteNode(ctx context.Context, label, key, value string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM nodes WHERE label = $1 AND props ->> $2 = $3",
		label, key, value,
	); err != nil {
		return fmt.Errorf("postgres: delete %s failed: %w", label, err)
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
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString("SELECT n.props")
	if spec.Join != nil {
		sb.WriteString(", m.props")
	}
	sb.WriteString(" FROM nodes n")
	if spec.Join != nil {
		sb.WriteString(" JOIN edges e ON e.to_id = n.id AND e.edge_type = " + arg(spec.Join.EdgeType))
		sb.WriteString(" JOIN nodes m ON m.id = e.from_id AND m.label = " + arg(spec.Join.Label))
	}
	sb.WriteString(" WHERE n.label = " + arg(spec.Label))

	for _, eq := range spec.Equals {
		sb.WriteString(" AND n.props ->> " + arg(eq.Field) + " = " + arg(bindValue(eq.Value)))
	}
	if spec.Join != nil {
		for _, eq := range spec.Join.Equals {
			sb.WriteString(" AND m.props ->> " + arg(eq.Field) + " = " + arg(bindValue(eq.Value)))
		}
	}
	if spec.Range != nil {
		if spec.Range.After != nil {
			sb.WriteString(" AND n.props ->> " + arg(spec.Range.Field) + " >= " + arg(spec.Range.After.UTC().Format(storage.TimeFormat)))
		}
		if spec.Range.Before != nil {
			sb.WriteString(" AND n.props ->> " + arg(spec.Range.Field) + " <= " + arg(spec.Range.Before.UTC().Format(storage.TimeFormat)))
		}
	}

	if spec.OrderBy != "" {
		dir := "ASC"
		if spec.Descending {
			dir = "DESC"
		}
		sb.WriteString(" ORDER BY n.props ->> " + arg(spec.OrderBy) + " " + dir + ", n.id ASC")
	} else {
		sb.WriteString(" ORDER BY n.id ASC")
	}

	if spec.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(spec.Limit))
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query %s failed: %w", spec.Label, err)
	}
	defer rows.Close()

	var records []storage.Record
	for rows.Next() {
		var propsJSON, joinedJSON []byte
		if spec.Join != nil {
			err = rows.Scan(&propsJSON, &joinedJSON)
		} else {
			err = rows.Scan(&propsJSON)
		}
		if err != nil {
			return nil, fmt.Errorf("postgres: scan %s row failed: %w", spec.Label, err)
		}

		rec := storage.Record{}
		if rec.Fields, err = unmarshalProps(propsJSON); err != nil {
			return nil, err
		}
		if joinedJSON != nil {
			if rec.Joined, err = unmarshalProps(joinedJSON); err != nil {
				return nil, err
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: query %s failed: %w", spec.Label, err)
	}

	return records, nil
}

// nodeID resolves a NodeRef to its internal row id.
func (s *GraphStore) nodeID(ctx context.Context, ref storage.NodeRef) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM nodes WHERE label = $1 AND props ->> $2 = $3 LIMIT 1",
		ref.Label, ref.Key, ref.Value,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s with %s=%s", storage.ErrNotFound, ref.Label, ref.Key, ref.Value)
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: resolve %s failed: %w", ref.Label, err)
	}
	return id, nil
}

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

func marshalProps(fields map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(normalizeProps(fields))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to marshal props: %w", err)
	}
	return data, nil
}

func unmarshalProps(propsJSON []byte) (map[string]interface{}, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(propsJSON, &fields); err != nil {
		return nil, fmt.Errorf("postgres: failed to unmarshal props: %w", err)
	}
	return fields, nil
}

// bindValue converts filter values to the text form the ->> operator
// yields for JSONB scalars.
func bindValue(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		return t.UTC().Format(storage.TimeFormat)
	default:
		return fmt.Sprintf("%v", v)
	}
}
