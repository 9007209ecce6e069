package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/ChenJellay/helix/internal/apperr"
	"github.com/ChenJellay/helix/internal/vectorstore"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	err := s.Add(context.Background(), []vectorstore.Document{
		{ID: "d1_0", Text: "alpha", Vector: []float64{1, 0}, Metadata: map[string]any{"project_id": "p1", "doc_type": "technical_design"}},
		{ID: "d1_1", Text: "beta", Vector: []float64{0, 1}, Metadata: map[string]any{"project_id": "p1", "doc_type": "prd"}},
		{ID: "d2_0", Text: "gamma", Vector: []float64{1, 1}, Metadata: map[string]any{"project_id": "p2", "doc_type": "prd"}},
	})
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	return s
}

func TestQueryRanksByDistance(t *testing.T) {
	s := seedStore(t)
	results, err := s.Query(context.Background(), []float64{1, 0}, 3, nil)
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ID != "d1_0" {
		t.Fatalf("expected nearest d1_0, got %s", results[0].ID)
	}
	if results[0].Distance > results[1].Distance {
		t.Fatalf("results not ordered by distance")
	}
}

func TestQueryAppliesFilter(t *testing.T) {
	s := seedStore(t)
	results, err := s.Query(context.Background(), []float64{1, 0}, 5, vectorstore.Filter{
		"project_id": "p1",
		"doc_type":   "prd",
	})
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "d1_1" {
		t.Fatalf("expected only d1_1, got %+v", results)
	}
}

func TestAddUpsertsById(t *testing.T) {
	s := seedStore(t)
	err := s.Add(context.Background(), []vectorstore.Document{
		{ID: "d1_0", Text: "alpha v2", Vector: []float64{1, 0}},
	})
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	doc, err := s.Get(context.Background(), "d1_0")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if doc == nil || doc.Text != "alpha v2" {
		t.Fatalf("expected overwritten text, got %+v", doc)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := NewStore()
	doc, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if doc != nil {
		t.Fatalf("expected no document for missing id, got %+v", doc)
	}
}
