// internal/vectorstore/memory/memory.go
// Package memory is an in-process vector store using brute-force cosine
// distance. It backs tests and single-process runs without a Qdrant endpoint.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ChenJellay/helix/internal/apperr"
	"github.com/ChenJellay/helix/internal/vectorstore"
)

// Store implements vectorstore.Store in memory. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[string]vectorstore.Document
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string]vectorstore.Document)}
}

// Add upserts documents by id.
func (s *Store) Add(ctx context.Context, docs []vectorstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		if doc.ID == "" {
			return errors.New("memory: document id is empty")
		}
		s.docs[doc.ID] = doc
	}
	return nil
}

// Query returns up to k nearest documents by cosine distance, filtered by
// metadata equality.
func (s *Store) Query(ctx context.Context, vector []float64, k int, filter vectorstore.Filter) ([]vectorstore.Result, error) {
	if k <= 0 {
		k = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]vectorstore.Result, 0, len(s.docs))
	for _, doc := range s.docs {
		if len(doc.Vector) != len(vector) {
			continue
		}
		if len(filter) > 0 && !filter.Matches(doc.Metadata) {
			continue
		}
		results = append(results, vectorstore.Result{
			ID:       doc.ID,
			Text:     doc.Text,
			Metadata: doc.Metadata,
			Distance: 1 - cosineSimilarity(vector, doc.Vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Get returns the document for id, or apperr.ErrNotFound when never indexed.
func (s *Store) Get(ctx context.Context, id string) (*vectorstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("memory: point %s: %w", id, apperr.ErrNotFound)
	}
	return &doc, nil
}

func cosineSimilarity(a, b []float64) float64 {
	normA := vectorNorm(a)
	normB := vectorNorm(b)
	if normA == 0 || normB == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (normA * normB)
}

func vectorNorm(v []float64) float64 {
	sum := 0.0
	for _, val := range v {
		sum += val * val
	}
	return math.Sqrt(sum)
}
