// internal/graphstore/graphstore.go
// Package graphstore keeps the entity relationship graph in SQLite: generic
// labeled nodes and typed edges, plus the domain helpers the indexer and
// retriever use. Upserts are idempotent by key; repeated edge writes
// overwrite properties (last write wins).
package graphstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Node labels used by the helix domain helpers.
const (
	LabelProject  = "Project"
	LabelDocument = "Document"
	LabelEntity   = "Entity"
)

// Edge types used by the helix domain helpers.
const (
	EdgeHasDoc    = "HAS_DOC"
	EdgeMentions  = "MENTIONS"
	EdgeDependsOn = "DEPENDS_ON"
)

// Store wraps one SQLite database holding the graph.
type Store struct {
	db *sql.DB
}

// NodeRef addresses a node by label and key.
type NodeRef struct {
	Label string
	Key   string
}

// Open opens (or creates) the graph database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}
	store := &Store{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			label TEXT NOT NULL,
			key   TEXT NOT NULL,
			props TEXT NOT NULL DEFAULT '{}',
			PRIMARY KEY (label, key)
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			src_label TEXT NOT NULL,
			src_key   TEXT NOT NULL,
			rel_type  TEXT NOT NULL,
			dst_label TEXT NOT NULL,
			dst_key   TEXT NOT NULL,
			props     TEXT NOT NULL DEFAULT '{}',
			PRIMARY KEY (src_label, src_key, rel_type, dst_label, dst_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_src ON edges(src_label, src_key)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst_label, dst_key)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("graph schema: %w", err)
		}
	}
	return nil
}

// UpsertNode inserts or updates a node; properties are replaced wholesale.
func (s *Store) UpsertNode(ctx context.Context, label, key string, props map[string]any) error {
	data, err := marshalProps(props)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (label, key, props) VALUES (?, ?, ?)
		ON CONFLICT(label, key) DO UPDATE SET props = excluded.props
	`, label, key, data)
	if err != nil {
		return fmt.Errorf("upsert node %s/%s: %w", label, key, err)
	}
	return nil
}

// UpsertEdge inserts or updates an edge; a repeated write overwrites props.
func (s *Store) UpsertEdge(ctx context.Context, from, to NodeRef, relType string, props map[string]any) error {
	data, err := marshalProps(props)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO edges (src_label, src_key, rel_type, dst_label, dst_key, props)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(src_label, src_key, rel_type, dst_label, dst_key)
		DO UPDATE SET props = excluded.props
	`, from.Label, from.Key, relType, to.Label, to.Key, data)
	if err != nil {
		return fmt.Errorf("upsert edge %s-[%s]->%s: %w", from.Key, relType, to.Key, err)
	}
	return nil
}

// EnsureNode inserts a node only when absent, leaving existing props intact.
func (s *Store) EnsureNode(ctx context.Context, label, key string, props map[string]any) error {
	data, err := marshalProps(props)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (label, key, props) VALUES (?, ?, ?)
		ON CONFLICT(label, key) DO NOTHING
	`, label, key, data)
	if err != nil {
		return fmt.Errorf("ensure node %s/%s: %w", label, key, err)
	}
	return nil
}

// NodeProps returns the properties of a node, or (nil, false) when absent.
func (s *Store) NodeProps(ctx context.Context, label, key string) (map[string]any, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT props FROM nodes WHERE label = ? AND key = ?`, label, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read node %s/%s: %w", label, key, err)
	}
	props, err := unmarshalProps(data)
	if err != nil {
		return nil, false, err
	}
	return props, true, nil
}

func marshalProps(props map[string]any) (string, error) {
	if props == nil {
		props = map[string]any{}
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("marshal node props: %w", err)
	}
	return string(data), nil
}

func unmarshalProps(data string) (map[string]any, error) {
	var props map[string]any
	if err := json.Unmarshal([]byte(data), &props); err != nil {
		return nil, fmt.Errorf("parse node props: %w", err)
	}
	return props, nil
}
