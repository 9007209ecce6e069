// internal/rag/retriever.go
package rag

import (
	"context"
	"errors"
	"strings"

	"github.com/ChenJellay/helix/internal/appconfig"
	"github.com/ChenJellay/helix/internal/apperr"
	"github.com/ChenJellay/helix/internal/graphstore"
	"github.com/ChenJellay/helix/internal/logging"
	"github.com/ChenJellay/helix/internal/util"
	"github.com/ChenJellay/helix/internal/vectorstore"
)

const (
	// designDocQuery drives the type-restricted design document search.
	designDocQuery = "technical design architecture specification"
	// designDocFallbackQuery drives the unrestricted second pass.
	designDocFallbackQuery = "design specification requirements"
	// designDocSeparator joins chunk texts into one design context block.
	designDocSeparator = "\n\n---\n\n"
	// queryExcerptLimit bounds how much of a long query is embedded.
	queryExcerptLimit = 1000
)

// Retrieved is one similarity hit handed to agents; never persisted.
type Retrieved struct {
	Content    string
	Metadata   map[string]any
	Similarity float64
}

// GraphContext pairs vector hits with the project's graph neighborhood.
type GraphContext struct {
	Chunks []Retrieved
	Graph  *graphstore.ProjectGraph
}

// Retriever composes vector search and graph lookups into the retrieval
// calls agents consume.
type Retriever struct {
	Vectors  vectorstore.Store
	RepoMaps vectorstore.Store
	Graph    *graphstore.Store
	Embedder Embedder
	Profile  appconfig.ModelProfile
}

// RetrieveSimilar embeds the query, applies an equality/AND metadata filter,
// and returns the k nearest chunks with similarity = 1 - distance.
// k <= 0 selects the profile's top-k.
func (r *Retriever) RetrieveSimilar(ctx context.Context, query string, filters map[string]any, k int) ([]Retrieved, error) {
	if k <= 0 {
		k = r.Profile.RetrievalTopK
	}
	vectors, err := r.Embedder.EmbedBatch(ctx, []string{util.PrefixRunes(query, queryExcerptLimit)})
	if err != nil {
		return nil, err
	}
	results, err := r.Vectors.Query(ctx, vectors[0], k, vectorstore.Filter(filters))
	if err != nil {
		return nil, err
	}

	retrieved := make([]Retrieved, 0, len(results))
	for _, res := range results {
		retrieved = append(retrieved, Retrieved{
			Content:    res.Text,
			Metadata:   res.Metadata,
			Similarity: 1 - res.Distance,
		})
	}
	return retrieved, nil
}

// RetrieveWithGraphContext combines a similarity search with the project's
// graph neighborhood. A graph read failure degrades to vector-only results.
func (r *Retriever) RetrieveWithGraphContext(ctx context.Context, query, projectID string, k int) (*GraphContext, error) {
	chunks, err := r.RetrieveSimilar(ctx, query, map[string]any{"project_id": projectID}, k)
	if err != nil {
		return nil, err
	}
	out := &GraphContext{Chunks: chunks}
	if r.Graph == nil {
		return out, nil
	}
	graph, err := r.Graph.GetProjectGraph(ctx, projectID)
	if err != nil {
		logging.LogEvent("[retrieve] graph context for %s failed: %v", projectID, err)
		return out, nil
	}
	out.Graph = graph
	return out, nil
}

// RetrieveDesignDoc searches for a project's design document: first
// restricted to the technical_design type, then unrestricted with a generic
// query. It returns the joined chunk texts, or "" only when both passes are
// empty — callers substitute a placeholder, never fail.
func (r *Retriever) RetrieveDesignDoc(ctx context.Context, projectID string) (string, error) {
	k := r.Profile.RetrievalTopK
	hits, err := r.RetrieveSimilar(ctx, designDocQuery, map[string]any{
		"project_id": projectID,
		"doc_type":   "technical_design",
	}, k)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		hits, err = r.RetrieveSimilar(ctx, designDocFallbackQuery, map[string]any{
			"project_id": projectID,
		}, k)
		if err != nil {
			return "", err
		}
	}
	if len(hits) == 0 {
		return "", nil
	}

	texts := make([]string, 0, len(hits))
	for _, hit := range hits {
		texts = append(texts, hit.Content)
	}
	return strings.Join(texts, designDocSeparator), nil
}

// RetrieveRepoContext is a point lookup (not similarity) of a previously
// stored repository summary; "" when the repo was never indexed.
func (r *Retriever) RetrieveRepoContext(ctx context.Context, repoURL string) (string, error) {
	if r.RepoMaps == nil {
		return "", nil
	}
	doc, err := r.RepoMaps.Get(ctx, repoMapID(repoURL))
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}
