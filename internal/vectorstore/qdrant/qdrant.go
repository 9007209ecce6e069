// internal/vectorstore/qdrant/qdrant.go
// Package qdrant is a minimal REST adapter to a Qdrant collection. It assumes
// cosine distance and creates the collection if missing. Qdrant point ids must
// be UUIDs, so the logical chunk id is hashed into a deterministic SHA1 UUID
// and kept verbatim in the payload for round trips.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ChenJellay/helix/internal/apperr"
	"github.com/ChenJellay/helix/internal/vectorstore"
)

const (
	idKey   = "__id"
	textKey = "__text"
)

// pointNamespace scopes the deterministic point UUIDs to helix.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("helix/vectorstore"))

// Store implements vectorstore.Store against one Qdrant collection.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// Config carries the connection settings for one collection.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewStore builds the adapter; Init must be called before first use.
func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Init ensures the collection exists with the given vector dimension.
func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return apperr.Configf("qdrant: invalid vector dimension %d", dimension)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant answers 200 when the collection already exists with this schema.
	return s.send(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body, nil)
}

// PointID returns the deterministic UUID Qdrant stores for a logical id.
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

// Add upserts documents; re-adding the same logical id overwrites the point.
func (s *Store) Add(ctx context.Context, docs []vectorstore.Document) error {
	if len(docs) == 0 {
		return nil
	}
	points := make([]map[string]any, len(docs))
	for i, doc := range docs {
		payload := map[string]any{
			idKey:   doc.ID,
			textKey: doc.Text,
		}
		for k, v := range doc.Metadata {
			payload[k] = v
		}
		points[i] = map[string]any{
			"id":      PointID(doc.ID),
			"vector":  doc.Vector,
			"payload": payload,
		}
	}
	body := map[string]any{"points": points}
	return s.send(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body, nil)
}

// Query returns up to k nearest points. Qdrant reports cosine similarity as
// the score; the adapter converts it to the distance the contract promises.
func (s *Store) Query(ctx context.Context, vector []float64, k int, filter vectorstore.Filter) ([]vectorstore.Result, error) {
	if k <= 0 {
		k = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if len(filter) > 0 {
		var must []map[string]any
		for key, value := range filter {
			must = append(must, map[string]any{
				"key":   key,
				"match": map[string]any{"value": value},
			})
		}
		req["filter"] = map[string]any{"must": must}
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := s.send(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp)
	if err != nil {
		return nil, err
	}

	results := make([]vectorstore.Result, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, vectorstore.Result{
			ID:       payloadString(r.Payload, idKey),
			Text:     payloadString(r.Payload, textKey),
			Metadata: stripInternalKeys(r.Payload),
			Distance: 1 - r.Score,
		})
	}
	return results, nil
}

// Get is a point lookup by logical id, apperr.ErrNotFound when never indexed.
func (s *Store) Get(ctx context.Context, id string) (*vectorstore.Document, error) {
	req := map[string]any{
		"ids":          []string{PointID(id)},
		"with_payload": true,
		"with_vector":  true,
	}
	var resp struct {
		Result []struct {
			Vector  []float64      `json:"vector"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := s.send(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points", s.url, s.collection), req, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("qdrant: point %s: %w", id, apperr.ErrNotFound)
	}
	point := resp.Result[0]
	return &vectorstore.Document{
		ID:       payloadString(point.Payload, idKey),
		Text:     payloadString(point.Payload, textKey),
		Vector:   point.Vector,
		Metadata: stripInternalKeys(point.Payload),
	}, nil
}

func (s *Store) send(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("qdrant: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return apperr.Transient("qdrant: "+method+" "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return apperr.Transient("qdrant",
			fmt.Errorf("%s %s: %s: %s", method, url, resp.Status, strings.TrimSpace(string(raw))))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func payloadString(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func stripInternalKeys(payload map[string]any) map[string]any {
	metadata := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == idKey || k == textKey {
			continue
		}
		metadata[k] = v
	}
	return metadata
}
