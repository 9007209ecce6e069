// internal/appconfig/profiles.go
package appconfig

import "strings"

// ModelProfile bundles the token-budget and behavior parameters tuned to a
// model class. A profile is selected once per request from the active model
// name and is immutable for the request's lifetime.
type ModelProfile struct {
	Name                   string
	EffectiveContextTokens int
	MaxOutputTokens        int
	PromptReserveTokens    int
	ChunkTokenLimit        int
	RetrievalTopK          int
	JSONRetries            int
	UseConstrainedJSON     bool
	SimplifyPrompts        bool
}

// Compiled-in profiles for the model classes helix is deployed against.
// PromptReserveTokens never exceeds EffectiveContextTokens.
var modelProfiles = map[string]ModelProfile{
	"qwen-7b": {
		Name:                   "qwen-7b",
		EffectiveContextTokens: 6144,
		MaxOutputTokens:        2048,
		PromptReserveTokens:    4096,
		ChunkTokenLimit:        256,
		RetrievalTopK:          3,
		JSONRetries:            2,
		UseConstrainedJSON:     true,
		SimplifyPrompts:        true,
	},
	"llama-3-8b": {
		Name:                   "llama-3-8b",
		EffectiveContextTokens: 6144,
		MaxOutputTokens:        2048,
		PromptReserveTokens:    4096,
		ChunkTokenLimit:        256,
		RetrievalTopK:          3,
		JSONRetries:            2,
		UseConstrainedJSON:     true,
		SimplifyPrompts:        true,
	},
	"default": {
		Name:                   "default",
		EffectiveContextTokens: 128000,
		MaxOutputTokens:        4096,
		PromptReserveTokens:    120000,
		ChunkTokenLimit:        512,
		RetrievalTopK:          5,
		JSONRetries:            0,
		UseConstrainedJSON:     false,
		SimplifyPrompts:        false,
	},
}

// ProfileForModel selects the profile matching the model name, falling back
// to the large-model default.
func ProfileForModel(model string) ModelProfile {
	name := strings.ToLower(model)
	switch {
	case strings.Contains(name, "qwen") && strings.Contains(name, "7b"):
		return modelProfiles["qwen-7b"]
	case strings.Contains(name, "llama") && strings.Contains(name, "8b"):
		return modelProfiles["llama-3-8b"]
	default:
		return modelProfiles["default"]
	}
}

// ActiveProfile returns the profile for the configured completion model.
func (c Config) ActiveProfile() ModelProfile {
	return ProfileForModel(c.Model)
}
