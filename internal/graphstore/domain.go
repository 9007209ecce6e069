// internal/graphstore/domain.go
package graphstore

import "context"

// UpsertProject merges a project node by id.
func (s *Store) UpsertProject(ctx context.Context, projectID, name string) error {
	return s.UpsertNode(ctx, LabelProject, projectID, map[string]any{"name": name})
}

// UpsertDocument merges a document node and links it to its project.
func (s *Store) UpsertDocument(ctx context.Context, projectID, docID, docType, title string) error {
	if err := s.UpsertNode(ctx, LabelDocument, docID, map[string]any{
		"doc_type":   docType,
		"title":      title,
		"project_id": projectID,
	}); err != nil {
		return err
	}
	return s.UpsertEdge(ctx,
		NodeRef{LabelProject, projectID},
		NodeRef{LabelDocument, docID},
		EdgeHasDoc, nil)
}

// UpsertEntity merges an entity by name; the type is overwritten on repeat.
func (s *Store) UpsertEntity(ctx context.Context, name, entityType string) error {
	return s.UpsertNode(ctx, LabelEntity, name, map[string]any{"type": entityType})
}

// LinkMention records that a document mentions an entity.
func (s *Store) LinkMention(ctx context.Context, docID, entityName string) error {
	return s.UpsertEdge(ctx,
		NodeRef{LabelDocument, docID},
		NodeRef{LabelEntity, entityName},
		EdgeMentions, nil)
}

// AddDependency records a typed dependency between two entities; type and
// description are overwritten on repeat (last write wins). Endpoint entities
// are created when absent but an existing entity's type is left alone.
func (s *Store) AddDependency(ctx context.Context, source, target, depType, description string) error {
	if err := s.EnsureNode(ctx, LabelEntity, source, map[string]any{"type": "service"}); err != nil {
		return err
	}
	if err := s.EnsureNode(ctx, LabelEntity, target, map[string]any{"type": "service"}); err != nil {
		return err
	}
	return s.UpsertEdge(ctx,
		NodeRef{LabelEntity, source},
		NodeRef{LabelEntity, target},
		EdgeDependsOn,
		map[string]any{"type": depType, "description": description})
}
