// internal/llm/structured.go
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ChenJellay/helix/internal/appconfig"
	"github.com/ChenJellay/helix/internal/logging"
	"github.com/ChenJellay/helix/internal/util"
)

const (
	// rawCopyLimit bounds the audit copy kept in an error-tagged result.
	rawCopyLimit = 500
	// repairPrefixLimit bounds how much of the original request a repair
	// prompt carries back to the model.
	repairPrefixLimit = 1500
)

// ErrorKey tags a parse-failure result map; RawKey holds the truncated
// original text for audit. Callers inspect, they do not catch.
const (
	ErrorKey = "error"
	RawKey   = "raw"
)

// callState models the repair loop explicitly so retry counts and terminal
// states are testable in isolation.
type callState int

const (
	stateParsing callState = iota
	stateSucceeded
	stateRepairing
	stateExhausted
)

// ParseJSON extracts a JSON object from raw model output. Strategy one strips
// markdown code fences and parses directly; strategy two scans for the first
// brace-balanced object. Failure yields an error-tagged map, never a Go error.
func ParseJSON(raw string) map[string]any {
	if obj, ok := parseFenced(raw); ok {
		return obj
	}
	if obj, ok := parseBalanced(raw); ok {
		return obj
	}
	return map[string]any{
		ErrorKey: "failed to parse model response",
		RawKey:   util.PrefixRunes(raw, rawCopyLimit),
	}
}

// IsParseFailure reports whether result is an error-tagged map from ParseJSON.
func IsParseFailure(result map[string]any) bool {
	_, hasErr := result[ErrorKey]
	_, hasRaw := result[RawKey]
	return hasErr && hasRaw && len(result) == 2
}

func parseFenced(raw string) (map[string]any, bool) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func parseBalanced(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return nil, false
	}
	depth := 0
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var obj map[string]any
				if err := json.Unmarshal([]byte(raw[start:i+1]), &obj); err != nil {
					return nil, false
				}
				return obj, true
			}
		}
	}
	return nil, false
}

// StructuredCaller issues model requests that must come back as JSON, and
// remediates content-quality failures with bounded repair calls. Repairs are
// synchronous, without backoff: they fix output shape, not transport faults.
type StructuredCaller struct {
	llm     Completer
	profile appconfig.ModelProfile
	schema  *gojsonschema.Schema
}

// NewStructuredCaller builds a caller bound to one model profile.
func NewStructuredCaller(llm Completer, profile appconfig.ModelProfile) *StructuredCaller {
	return &StructuredCaller{llm: llm, profile: profile}
}

// WithSchema attaches a JSON schema; parsed output failing validation counts
// as a parse failure and triggers the repair loop.
func (s *StructuredCaller) WithSchema(schemaJSON string) (*StructuredCaller, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, err
	}
	s.schema = schema
	return s, nil
}

// Call sends messages, parses the response as JSON, and repairs up to the
// profile's retry budget. Transport errors propagate; malformed output does
// not — exhausted repairs return the final error-tagged map.
func (s *StructuredCaller) Call(ctx context.Context, model string, messages []Message, temperature float64) (map[string]any, error) {
	req := Request{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   s.profile.MaxOutputTokens,
		JSONMode:    s.profile.UseConstrainedJSON,
	}

	resp, err := s.llm.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	state := stateParsing
	attempts := 1
	result := s.parse(resp.Content)
	if !IsParseFailure(result) {
		state = stateSucceeded
	}

	original := lastUserContent(messages)
	for state != stateSucceeded && attempts-1 < s.profile.JSONRetries {
		state = stateRepairing
		attempts++
		repairReq := Request{
			Model:       model,
			Messages:    repairMessages(original, result[RawKey]),
			Temperature: temperature,
			MaxTokens:   s.profile.MaxOutputTokens,
			JSONMode:    s.profile.UseConstrainedJSON,
		}
		repairResp, err := s.llm.Complete(ctx, repairReq)
		if err != nil {
			return nil, err
		}
		result = s.parse(repairResp.Content)
		if !IsParseFailure(result) {
			state = stateSucceeded
		}
	}
	if state != stateSucceeded {
		state = stateExhausted
	}

	logging.LogEvent("[structured] model=%s attempts=%d state=%s", model, attempts, stateName(state))
	return result, nil
}

// parse applies ParseJSON and, when a schema is attached, downgrades schema
// violations to parse failures so the repair loop fires.
func (s *StructuredCaller) parse(content string) map[string]any {
	result := ParseJSON(content)
	if IsParseFailure(result) || s.schema == nil {
		return result
	}
	validation, err := s.schema.Validate(gojsonschema.NewGoLoader(result))
	if err != nil || !validation.Valid() {
		return map[string]any{
			ErrorKey: "model response failed schema validation",
			RawKey:   util.PrefixRunes(content, rawCopyLimit),
		}
	}
	return result
}

func repairMessages(original string, raw any) []Message {
	var b strings.Builder
	b.WriteString("Your previous reply was not valid JSON. ")
	b.WriteString("Respond with a single JSON object and nothing else: no prose, no code fences.\n\n")
	b.WriteString("The original request was:\n")
	b.WriteString(util.PrefixRunes(original, repairPrefixLimit))
	if rawText, ok := raw.(string); ok && rawText != "" {
		b.WriteString("\n\nYour previous reply began:\n")
		b.WriteString(util.PrefixRunes(rawText, rawCopyLimit))
	}
	return []Message{{Role: "user", Content: b.String()}}
}

func lastUserContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}
	return ""
}

func stateName(s callState) string {
	switch s {
	case stateSucceeded:
		return "succeeded"
	case stateRepairing:
		return "repairing"
	case stateExhausted:
		return "exhausted"
	default:
		return "parsing"
	}
}
