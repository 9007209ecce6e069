// internal/vectorstore/vectorstore.go
// Package vectorstore defines the contract for embedded-chunk storage and
// similarity search. Implementations upsert by stable id and return distances;
// callers convert to similarity as 1 - distance.
package vectorstore

import "context"

// Document is one embedded chunk (or summary blob) keyed by a stable id.
type Document struct {
	ID       string
	Text     string
	Vector   []float64
	Metadata map[string]any
}

// Result is a ranked similarity match. Distance is cosine distance in [0, 2].
type Result struct {
	ID       string
	Text     string
	Metadata map[string]any
	Distance float64
}

// Filter is an equality/AND metadata filter: every key must match exactly.
type Filter map[string]any

// Store is the adapter contract consumed by the indexer and retriever.
// Get reports ids that were never indexed with apperr.ErrNotFound; callers
// decide whether absence is an error or an empty result.
type Store interface {
	Add(ctx context.Context, docs []Document) error
	Query(ctx context.Context, vector []float64, k int, filter Filter) ([]Result, error)
	Get(ctx context.Context, id string) (*Document, error)
}

// Matches reports whether metadata satisfies every equality condition in f.
func (f Filter) Matches(metadata map[string]any) bool {
	for key, want := range f {
		got, ok := metadata[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}
