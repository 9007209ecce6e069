// internal/rag/indexer.go
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ChenJellay/helix/internal/appconfig"
	"github.com/ChenJellay/helix/internal/graphstore"
	"github.com/ChenJellay/helix/internal/llm"
	"github.com/ChenJellay/helix/internal/logging"
	"github.com/ChenJellay/helix/internal/vectorstore"
)

// DocumentInput is the already-fetched text handed to the core for indexing.
type DocumentInput struct {
	ProjectID string
	DocID     string
	DocType   string
	Title     string
	Text      string
}

// IndexResult summarizes one ingest run.
type IndexResult struct {
	RunID    string
	Chunks   int
	Entities int
}

// Indexer drives the ingest pipeline: chunk, batch-embed, vector upsert,
// then best-effort graph and entity enrichment. All clients are injected;
// nothing is lazily constructed.
type Indexer struct {
	Vectors  vectorstore.Store
	RepoMaps vectorstore.Store
	Graph    *graphstore.Store
	Embedder Embedder
	Caller   *llm.StructuredCaller
	Model    string
	Profile  appconfig.ModelProfile
}

// IndexDocument ingests one document. Chunking, embedding, and the vector
// upsert are the primary path: any failure there fails the run. Graph and
// entity enrichment are best-effort and never fail the run.
func (ix *Indexer) IndexDocument(ctx context.Context, doc DocumentInput) (IndexResult, error) {
	runID := uuid.NewString()
	result := IndexResult{RunID: runID}

	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return result, fmt.Errorf("index %s: document text is empty", doc.DocID)
	}

	size, overlap := ChunkSizeFor(ix.Profile)
	chunks := ChunkText(text, size, overlap)
	logging.LogEvent("[index] run=%s doc=%s chunks=%d", runID, doc.DocID, len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return result, fmt.Errorf("index %s: embed batch: %w", doc.DocID, err)
	}

	docs := make([]vectorstore.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = vectorstore.Document{
			ID:     fmt.Sprintf("%s_%d", doc.DocID, c.Index),
			Text:   c.Text,
			Vector: vectors[i],
			Metadata: map[string]any{
				"project_id":  doc.ProjectID,
				"doc_id":      doc.DocID,
				"doc_type":    doc.DocType,
				"title":       doc.Title,
				"chunk_index": c.Index,
			},
		}
	}
	if err := ix.Vectors.Add(ctx, docs); err != nil {
		return result, fmt.Errorf("index %s: vector upsert: %w", doc.DocID, err)
	}
	result.Chunks = len(chunks)

	ix.enrichGraph(ctx, runID, doc, text, &result)
	return result, nil
}

// enrichGraph links the document into the entity graph. Failures here are
// logged and swallowed: enrichment never fails the ingest that triggered it.
func (ix *Indexer) enrichGraph(ctx context.Context, runID string, doc DocumentInput, text string, result *IndexResult) {
	if ix.Graph == nil {
		return
	}
	if err := ix.Graph.UpsertProject(ctx, doc.ProjectID, doc.ProjectID); err != nil {
		logging.LogEvent("[index] run=%s graph project upsert failed: %v", runID, err)
		return
	}
	if err := ix.Graph.UpsertDocument(ctx, doc.ProjectID, doc.DocID, doc.DocType, doc.Title); err != nil {
		logging.LogEvent("[index] run=%s graph document upsert failed: %v", runID, err)
		return
	}

	var entities []Entity
	if ix.Caller != nil {
		entities = ExtractEntities(ctx, ix.Caller, ix.Model, ix.Profile, text)
	} else {
		entities = FallbackEntities(text)
	}
	for _, entity := range entities {
		if err := ix.Graph.UpsertEntity(ctx, entity.Name, entity.Type); err != nil {
			logging.LogEvent("[index] run=%s entity upsert %q failed: %v", runID, entity.Name, err)
			continue
		}
		if err := ix.Graph.LinkMention(ctx, doc.DocID, entity.Name); err != nil {
			logging.LogEvent("[index] run=%s mention link %q failed: %v", runID, entity.Name, err)
			continue
		}
		result.Entities++
	}
	logging.LogEvent("[index] run=%s doc=%s entities=%d", runID, doc.DocID, result.Entities)
}

// IndexRepoSummary upserts a repository summary blob keyed by repo URL into
// the repo-map collection. Retrieval is by point lookup, so the vector is a
// placeholder.
func (ix *Indexer) IndexRepoSummary(ctx context.Context, repoURL, summary string) error {
	if ix.RepoMaps == nil {
		return fmt.Errorf("repo map store not configured")
	}
	doc := vectorstore.Document{
		ID:     repoMapID(repoURL),
		Text:   summary,
		Vector: []float64{0},
		Metadata: map[string]any{
			"repo_url": repoURL,
		},
	}
	if err := ix.RepoMaps.Add(ctx, []vectorstore.Document{doc}); err != nil {
		return fmt.Errorf("index repo map %s: %w", repoURL, err)
	}
	return nil
}

func repoMapID(repoURL string) string {
	return "repomap_" + strings.NewReplacer("://", "_", "/", "_", ":", "_").Replace(repoURL)
}
