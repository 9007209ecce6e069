// internal/rag/entities.go
package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ChenJellay/helix/internal/appconfig"
	"github.com/ChenJellay/helix/internal/llm"
	"github.com/ChenJellay/helix/internal/logging"
	"github.com/ChenJellay/helix/internal/util"
)

// Entity is one extracted {name, type} pair. Type is drawn from a closed
// vocabulary; anything else normalizes to "concept".
type Entity struct {
	Name string
	Type string
}

const (
	// maxEntities caps results from either extraction path.
	maxEntities = 20
	// maxFallbackScan caps how many regex matches are considered.
	maxFallbackScan = 30
	// excerpt bounds for the model path, shorter under constrained profiles.
	excerptSimplified = 2000
	excerptFull       = 4000
)

var entityTypes = map[string]struct{}{
	"team": {}, "api": {}, "technology": {}, "service": {}, "compliance": {}, "concept": {},
}

// titleCasePhrase matches multi-word, title-cased phrases.
var titleCasePhrase = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)\b`)

// leadingStopWords are stripped from the front of a fallback phrase.
var leadingStopWords = map[string]struct{}{
	"the": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"when": {}, "where": {}, "with": {}, "from": {}, "about": {},
	"after": {}, "before": {},
}

// ExtractEntities asks the model for entities over the closed type vocabulary
// and falls back to the deterministic regex heuristic on call or parse
// failure. It never returns an error: extraction is best-effort enrichment.
func ExtractEntities(ctx context.Context, caller *llm.StructuredCaller, model string, profile appconfig.ModelProfile, text string) []Entity {
	limit := excerptFull
	if profile.SimplifyPrompts {
		limit = excerptSimplified
	}
	excerpt := util.PrefixRunes(text, limit)

	prompt := fmt.Sprintf(`Extract the named entities from the document excerpt below.
Return a JSON object of the form {"entities": [{"name": "...", "type": "..."}]}.
Allowed types: team, api, technology, service, compliance, concept.

Excerpt:
%s`, excerpt)

	result, err := caller.Call(ctx, model, []llm.Message{{Role: "user", Content: prompt}}, 0.1)
	if err != nil || llm.IsParseFailure(result) {
		logging.LogEvent("[entities] model extraction failed, using regex fallback")
		return FallbackEntities(text)
	}

	entities := parseEntityList(result)
	if len(entities) == 0 {
		return FallbackEntities(text)
	}
	return entities
}

func parseEntityList(result map[string]any) []Entity {
	items, ok := result["entities"].([]any)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var entities []Entity
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := obj["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		entityType, _ := obj["type"].(string)
		entityType = strings.ToLower(strings.TrimSpace(entityType))
		if _, known := entityTypes[entityType]; !known {
			entityType = "concept"
		}
		entities = append(entities, Entity{Name: name, Type: entityType})
		if len(entities) >= maxEntities {
			break
		}
	}
	return entities
}

// FallbackEntities locates multi-word title-cased phrases, strips a fixed
// leading-stop-word set, de-duplicates by normalized name, and caps results.
func FallbackEntities(text string) []Entity {
	matches := titleCasePhrase.FindAllString(text, maxFallbackScan)
	seen := make(map[string]struct{})
	var entities []Entity
	for _, match := range matches {
		name := stripLeadingStopWords(match)
		if name == "" || !strings.Contains(name, " ") {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		entities = append(entities, Entity{Name: name, Type: "concept"})
		if len(entities) >= maxEntities {
			break
		}
	}
	return entities
}

func stripLeadingStopWords(phrase string) string {
	words := strings.Fields(phrase)
	for len(words) > 0 {
		if _, stop := leadingStopWords[strings.ToLower(words[0])]; !stop {
			break
		}
		words = words[1:]
	}
	return strings.Join(words, " ")
}
