// internal/graphstore/queries.go
package graphstore

import (
	"context"
	"fmt"
)

// DocumentNode is a document reachable from a project.
type DocumentNode struct {
	DocID   string
	DocType string
	Title   string
}

// EntityNode is an entity mentioned by one of a project's documents.
type EntityNode struct {
	Name string
	Type string
}

// Dependency is a typed edge between two entities.
type Dependency struct {
	Source      string
	Target      string
	Type        string
	Description string
}

// ProjectGraph is everything reachable from one project node.
type ProjectGraph struct {
	ProjectID    string
	Documents    []DocumentNode
	Entities     []EntityNode
	Dependencies []Dependency
}

// EntityContext lists the documents and projects that mention an entity.
type EntityContext struct {
	Name      string
	Type      string
	Documents []DocumentNode
	Projects  []string
}

// GetProjectGraph returns all documents, mentioned entities, and dependencies
// reachable from projectID. A project with no graph data yields empty slices.
func (s *Store) GetProjectGraph(ctx context.Context, projectID string) (*ProjectGraph, error) {
	graph := &ProjectGraph{ProjectID: projectID}

	docs, err := s.queryDocuments(ctx, `
		SELECT n.key, n.props
		FROM edges e
		JOIN nodes n ON n.label = e.dst_label AND n.key = e.dst_key
		WHERE e.src_label = ? AND e.src_key = ? AND e.rel_type = ?
		ORDER BY n.key
	`, LabelProject, projectID, EdgeHasDoc)
	if err != nil {
		return nil, err
	}
	graph.Documents = docs

	entityRows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT n.key, n.props
		FROM edges hd
		JOIN edges m ON m.src_label = hd.dst_label AND m.src_key = hd.dst_key AND m.rel_type = ?
		JOIN nodes n ON n.label = m.dst_label AND n.key = m.dst_key
		WHERE hd.src_label = ? AND hd.src_key = ? AND hd.rel_type = ?
		ORDER BY n.key
	`, EdgeMentions, LabelProject, projectID, EdgeHasDoc)
	if err != nil {
		return nil, fmt.Errorf("query project entities: %w", err)
	}
	defer entityRows.Close()
	for entityRows.Next() {
		var name, props string
		if err := entityRows.Scan(&name, &props); err != nil {
			return nil, fmt.Errorf("scan entity row: %w", err)
		}
		parsed, err := unmarshalProps(props)
		if err != nil {
			return nil, err
		}
		graph.Entities = append(graph.Entities, EntityNode{
			Name: name,
			Type: propString(parsed, "type"),
		})
	}
	if err := entityRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity rows: %w", err)
	}

	deps, err := s.queryDependencies(ctx, projectID)
	if err != nil {
		return nil, err
	}
	graph.Dependencies = deps
	return graph, nil
}

// GetEntityContext returns every document and project mentioning the entity.
func (s *Store) GetEntityContext(ctx context.Context, name string) (*EntityContext, error) {
	props, found, err := s.NodeProps(ctx, LabelEntity, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	out := &EntityContext{Name: name, Type: propString(props, "type")}

	docs, err := s.queryDocuments(ctx, `
		SELECT n.key, n.props
		FROM edges m
		JOIN nodes n ON n.label = m.src_label AND n.key = m.src_key
		WHERE m.dst_label = ? AND m.dst_key = ? AND m.rel_type = ?
		ORDER BY n.key
	`, LabelEntity, name, EdgeMentions)
	if err != nil {
		return nil, err
	}
	out.Documents = docs

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT hd.src_key
		FROM edges m
		JOIN edges hd ON hd.dst_label = m.src_label AND hd.dst_key = m.src_key AND hd.rel_type = ?
		WHERE m.dst_label = ? AND m.dst_key = ? AND m.rel_type = ?
		ORDER BY hd.src_key
	`, EdgeHasDoc, LabelEntity, name, EdgeMentions)
	if err != nil {
		return nil, fmt.Errorf("query entity projects: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var projectID string
		if err := rows.Scan(&projectID); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		out.Projects = append(out.Projects, projectID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project rows: %w", err)
	}
	return out, nil
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]DocumentNode, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentNode
	for rows.Next() {
		var key, props string
		if err := rows.Scan(&key, &props); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		parsed, err := unmarshalProps(props)
		if err != nil {
			return nil, err
		}
		docs = append(docs, DocumentNode{
			DocID:   key,
			DocType: propString(parsed, "doc_type"),
			Title:   propString(parsed, "title"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}
	return docs, nil
}

// queryDependencies returns DEPENDS_ON edges between entities mentioned by
// the project's documents.
func (s *Store) queryDependencies(ctx context.Context, projectID string) ([]Dependency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT d.src_key, d.dst_key, d.props
		FROM edges hd
		JOIN edges m ON m.src_label = hd.dst_label AND m.src_key = hd.dst_key AND m.rel_type = ?
		JOIN edges d ON d.src_label = ? AND d.src_key = m.dst_key AND d.rel_type = ?
		WHERE hd.src_label = ? AND hd.src_key = ? AND hd.rel_type = ?
		ORDER BY d.src_key, d.dst_key
	`, EdgeMentions, LabelEntity, EdgeDependsOn, LabelProject, projectID, EdgeHasDoc)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()

	var deps []Dependency
	for rows.Next() {
		var src, dst, props string
		if err := rows.Scan(&src, &dst, &props); err != nil {
			return nil, fmt.Errorf("scan dependency row: %w", err)
		}
		parsed, err := unmarshalProps(props)
		if err != nil {
			return nil, err
		}
		deps = append(deps, Dependency{
			Source:      src,
			Target:      dst,
			Type:        propString(parsed, "type"),
			Description: propString(parsed, "description"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dependency rows: %w", err)
	}
	return deps, nil
}

func propString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
