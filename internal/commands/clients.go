// internal/commands/clients.go
package commands

import (
	"context"
	"fmt"

	"github.com/ChenJellay/helix/internal/appconfig"
	"github.com/ChenJellay/helix/internal/graphstore"
	"github.com/ChenJellay/helix/internal/llm"
	"github.com/ChenJellay/helix/internal/rag"
	"github.com/ChenJellay/helix/internal/vectorstore"
	"github.com/ChenJellay/helix/internal/vectorstore/memory"
	"github.com/ChenJellay/helix/internal/vectorstore/qdrant"
)

// defaultVectorDimension matches the common local embedding models when the
// config does not pin one.
const defaultVectorDimension = 768

// clients bundles every constructed collaborator a subcommand needs. All of
// them are built explicitly per invocation; nothing is a lazy singleton.
type clients struct {
	cfg      *appconfig.Config
	profile  appconfig.ModelProfile
	model    string
	llm      *llm.Client
	caller   *llm.StructuredCaller
	embedder rag.Embedder
	vectors  vectorstore.Store
	repoMaps vectorstore.Store
	graph    *graphstore.Store
	close    func()
}

// buildClients constructs the full collaborator set from the loaded config.
// With an empty vector URL the in-process memory store is used, which only
// makes sense for tests and dry runs; Qdrant is the persistent path.
func buildClients(ctx context.Context, cfg *appconfig.Config) (*clients, error) {
	host, err := cfg.ModelHost()
	if err != nil {
		return nil, err
	}
	embedder, err := rag.NewHTTPEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	vectors, repoMaps, err := openVectorStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	graph, err := graphstore.Open(cfg.GraphStorePath())
	if err != nil {
		return nil, fmt.Errorf("opening graph store: %w", err)
	}

	profile := cfg.ActiveProfile()
	client := llm.NewClient(cfg, host)
	return &clients{
		cfg:      cfg,
		profile:  profile,
		model:    cfg.Model,
		llm:      client,
		caller:   llm.NewStructuredCaller(client, profile),
		embedder: embedder,
		vectors:  vectors,
		repoMaps: repoMaps,
		graph:    graph,
		close:    func() { _ = graph.Close() },
	}, nil
}

func openVectorStores(ctx context.Context, cfg *appconfig.Config) (vectorstore.Store, vectorstore.Store, error) {
	if cfg.Vector.URL == "" {
		return memory.NewStore(), memory.NewStore(), nil
	}

	dimension := cfg.Vector.Dimension
	if dimension <= 0 {
		dimension = defaultVectorDimension
	}
	timeout := cfg.RequestTimeout()

	vectors := qdrant.NewStore(qdrant.Config{
		URL:        cfg.Vector.URL,
		APIKey:     cfg.Vector.APIKey,
		Collection: cfg.DocumentCollection(),
		Timeout:    timeout,
	})
	if err := vectors.Init(ctx, dimension); err != nil {
		return nil, nil, fmt.Errorf("init collection %s: %w", cfg.DocumentCollection(), err)
	}

	repoMaps := qdrant.NewStore(qdrant.Config{
		URL:        cfg.Vector.URL,
		APIKey:     cfg.Vector.APIKey,
		Collection: cfg.RepoMapCollection(),
		Timeout:    timeout,
	})
	// Repo summaries carry a placeholder vector; the collection only needs
	// point payload storage.
	if err := repoMaps.Init(ctx, 1); err != nil {
		return nil, nil, fmt.Errorf("init collection %s: %w", cfg.RepoMapCollection(), err)
	}
	return vectors, repoMaps, nil
}

func (c *clients) indexer() *rag.Indexer {
	return &rag.Indexer{
		Vectors:  c.vectors,
		RepoMaps: c.repoMaps,
		Graph:    c.graph,
		Embedder: c.embedder,
		Caller:   c.caller,
		Model:    c.model,
		Profile:  c.profile,
	}
}

func (c *clients) retriever() *rag.Retriever {
	return &rag.Retriever{
		Vectors:  c.vectors,
		RepoMaps: c.repoMaps,
		Graph:    c.graph,
		Embedder: c.embedder,
		Profile:  c.profile,
	}
}
