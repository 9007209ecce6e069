// internal/llm/client.go
// Package llm issues completion requests to Ollama or OpenAI-compatible HTTP
// endpoints and layers structured-output parsing with repair retries on top.
// The wire dialect is selected by the host's provider tag; the variation is
// configuration, not behavior, so there is one client rather than a provider
// hierarchy.
package llm

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

// Message represents a single role/content message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries one completion call's messages and sampling parameters.
// JSONMode asks the backend for syntactically valid JSON; backends without
// support ignore it (best-effort only).
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// Response is the completed model output plus usage counts.
type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Completer is the narrow contract the structured caller and agents consume.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Client implements Completer against a single configured host.
type Client struct {
	host    appconfig.Host
	client  *http.Client
	timeout time.Duration
}

// NewClient constructs a Client for the given host using the application's
// request timeout. The client is built once at process start and passed to
// every component that needs it; there is no lazy global.
func NewClient(cfg *appconfig.Config, host appconfig.Host) *Client {
	timeout := cfg.RequestTimeout()
	return &Client{
		host: host,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		timeout: timeout,
	}
}

type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete issues a non-streaming chat request and returns the final text.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	switch c.host.Type {
	case "openai":
		return c.completeOpenAI(ctx, req)
	default:
		return c.completeOllama(ctx, req)
	}
}

func (c *Client) completeOllama(ctx context.Context, req Request) (Response, error) {
	options := map[string]any{}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	payload := map[string]any{
		"model":    req.Model,
		"messages": req.Messages,
		"options":  options,
		"stream":   false,
	}
	if req.JSONMode {
		payload["format"] = "json"
	}

	body, err := c.postJSON(ctx, "/api/chat", req.Model, payload)
	if err != nil {
		return Response{}, err
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, fmt.Errorf("parse ollama chat response: %w", err)
	}
	return Response{
		Content:          parsed.Message.Content,
		Model:            parsed.Model,
		PromptTokens:     parsed.PromptEvalCount,
		CompletionTokens: parsed.EvalCount,
	}, nil
}

func (c *Client) completeOpenAI(ctx context.Context, req Request) (Response, error) {
	payload := map[string]any{
		"model":    req.Model,
		"messages": req.Messages,
		"stream":   false,
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if req.JSONMode {
		payload["response_format"] = map[string]any{"type": "json_object"}
	}

	body, err := c.postJSON(ctx, "/v1/chat/completions", req.Model, payload)
	if err != nil {
		return Response{}, err
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, fmt.Errorf("parse chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("chat completion returned no choices")
	}
	return Response{
		Content:          parsed.Choices[0].Message.Content,
		Model:            parsed.Model,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path, model string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	logging.LogRequest("HELIX->LLM", c.host.Name, model, body)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host.URL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, apperr.Transient("llm: "+path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Transient("llm: read response", err)
	}
	logging.LogRequest("LLM->HELIX", c.host.Name, model, respBody)

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Transient("llm: "+path,
			fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(respBody))))
	}
	return respBody, nil
}
