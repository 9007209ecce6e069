package graphstore

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "graph.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedProject(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.UpsertProject(ctx, "p1", "Checkout Revamp"); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
	if err := s.UpsertDocument(ctx, "p1", "doc1", "technical_design", "Design"); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	if err := s.UpsertDocument(ctx, "p1", "doc2", "prd", "PRD"); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	if err := s.UpsertEntity(ctx, "Payments API", "api"); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	if err := s.LinkMention(ctx, "doc1", "Payments API"); err != nil {
		t.Fatalf("LinkMention: %v", err)
	}
	if err := s.AddDependency(ctx, "Payments API", "Billing Service", "api", "settles charges"); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
}

func TestProjectGraphReachability(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s)

	graph, err := s.GetProjectGraph(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetProjectGraph: %v", err)
	}
	if len(graph.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(graph.Documents))
	}
	if len(graph.Entities) != 1 || graph.Entities[0].Name != "Payments API" {
		t.Fatalf("unexpected entities: %+v", graph.Entities)
	}
	if len(graph.Dependencies) != 1 {
		t.Fatalf("expected 1 dependency, got %d", len(graph.Dependencies))
	}
	dep := graph.Dependencies[0]
	if dep.Source != "Payments API" || dep.Target != "Billing Service" || dep.Type != "api" {
		t.Fatalf("unexpected dependency: %+v", dep)
	}
}

func TestUpsertEntityOverwritesType(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.UpsertEntity(ctx, "Redis", "technology"); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	if err := s.UpsertEntity(ctx, "Redis", "service"); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	props, found, err := s.NodeProps(ctx, LabelEntity, "Redis")
	if err != nil || !found {
		t.Fatalf("NodeProps: found=%v err=%v", found, err)
	}
	if props["type"] != "service" {
		t.Fatalf("expected last write to win, got %v", props["type"])
	}
}

func TestEnsureNodeKeepsExistingProps(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.UpsertEntity(ctx, "Kafka", "technology"); err != nil {
		t.Fatalf("UpsertEntity: %v", err)
	}
	if err := s.EnsureNode(ctx, LabelEntity, "Kafka", map[string]any{"type": "service"}); err != nil {
		t.Fatalf("EnsureNode: %v", err)
	}
	props, _, err := s.NodeProps(ctx, LabelEntity, "Kafka")
	if err != nil {
		t.Fatalf("NodeProps: %v", err)
	}
	if props["type"] != "technology" {
		t.Fatalf("EnsureNode overwrote existing props: %v", props["type"])
	}
}

func TestDependencyOverwriteOnRepeat(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.AddDependency(ctx, "A", "B", "api", "first"); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if err := s.AddDependency(ctx, "A", "B", "data", "second"); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	// Route the read through a project so the dependency is reachable.
	if err := s.UpsertProject(ctx, "p", "P"); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}
	if err := s.UpsertDocument(ctx, "p", "d", "prd", "T"); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	if err := s.LinkMention(ctx, "d", "A"); err != nil {
		t.Fatalf("LinkMention: %v", err)
	}
	graph, err := s.GetProjectGraph(ctx, "p")
	if err != nil {
		t.Fatalf("GetProjectGraph: %v", err)
	}
	if len(graph.Dependencies) != 1 {
		t.Fatalf("expected a single overwritten edge, got %d", len(graph.Dependencies))
	}
	if graph.Dependencies[0].Type != "data" || graph.Dependencies[0].Description != "second" {
		t.Fatalf("expected last write to win, got %+v", graph.Dependencies[0])
	}
}

func TestEntityContext(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s)

	ctxData, err := s.GetEntityContext(context.Background(), "Payments API")
	if err != nil {
		t.Fatalf("GetEntityContext: %v", err)
	}
	if ctxData == nil {
		t.Fatalf("expected entity context")
	}
	if len(ctxData.Documents) != 1 || ctxData.Documents[0].DocID != "doc1" {
		t.Fatalf("unexpected documents: %+v", ctxData.Documents)
	}
	if len(ctxData.Projects) != 1 || ctxData.Projects[0] != "p1" {
		t.Fatalf("unexpected projects: %+v", ctxData.Projects)
	}
}

func TestEntityContextUnknownEntity(t *testing.T) {
	s := openTestStore(t)
	ctxData, err := s.GetEntityContext(context.Background(), "Ghost")
	if err != nil {
		t.Fatalf("GetEntityContext: %v", err)
	}
	if ctxData != nil {
		t.Fatalf("expected nil for unknown entity, got %+v", ctxData)
	}
}
