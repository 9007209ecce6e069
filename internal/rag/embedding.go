// internal/rag/embedding.go
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ChenJellay/helix/internal/appconfig"
	"github.com/ChenJellay/helix/internal/apperr"
	"github.com/ChenJellay/helix/internal/logging"
)

// Embedder batch-converts text to fixed-dimension vectors. Implementations
// preserve input order. A whole document's chunks go through one call; a
// batch failure fails the ingest step with no per-chunk fallback.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// HTTPEmbedder requests embeddings from an Ollama or OpenAI-compatible host.
type HTTPEmbedder struct {
	host    appconfig.Host
	model   string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPEmbedder builds an embedder for the configured embedding endpoint.
func NewHTTPEmbedder(cfg *appconfig.Config) (*HTTPEmbedder, error) {
	if strings.TrimSpace(cfg.EmbeddingModel) == "" {
		return nil, apperr.Configf("embeddingModel is required")
	}
	host, err := cfg.EmbeddingEndpoint()
	if err != nil {
		return nil, err
	}
	timeout := cfg.RequestTimeout()
	return &HTTPEmbedder{
		host:    host,
		model:   cfg.EmbeddingModel,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}, nil
}

// EmbedBatch embeds all texts in a single round trip, preserving order.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	switch e.host.Type {
	case "openai":
		return e.embedOpenAI(ctx, texts)
	default:
		return e.embedOllama(ctx, texts)
	}
}

func (e *HTTPEmbedder) embedOllama(ctx context.Context, texts []string) ([][]float64, error) {
	payload := map[string]any{
		"model": e.model,
		"input": texts,
	}
	body, err := e.post(ctx, "/api/embed", payload)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding response returned %d vectors for %d inputs",
			len(parsed.Embeddings), len(texts))
	}
	return parsed.Embeddings, nil
}

func (e *HTTPEmbedder) embedOpenAI(ctx context.Context, texts []string) ([][]float64, error) {
	payload := map[string]any{
		"model": e.model,
		"input": texts,
	}
	body, err := e.post(ctx, "/v1/embeddings", payload)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response returned %d vectors for %d inputs",
			len(parsed.Data), len(texts))
	}
	vectors := make([][]float64, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding response index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

func (e *HTTPEmbedder) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host.URL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, apperr.Transient("embed: "+path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Transient("embed: read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Transient("embed: "+path,
			fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(raw))))
	}
	logging.LogEvent("[embed] host=%s model=%s status=%s", e.host.Name, e.model, resp.Status)
	return raw, nil
}
