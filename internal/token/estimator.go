// internal/token/estimator.go
// Package token provides character-heuristic token accounting and the
// per-request budget that distributes an input-token pool across named
// prompt sections.
package token

// charsPerToken is the fixed character-to-token ratio used everywhere a
// token count is estimated or converted back into a character budget.
const charsPerToken = 3.5

// TruncationMarker is appended to any text cut by TruncateToTokens.
const TruncationMarker = "\n...(truncated)"

// EstimateTokens returns a deterministic token estimate for text: zero for
// the empty string, otherwise at least one.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := int(float64(len([]rune(text))) / charsPerToken)
	if n < 1 {
		return 1
	}
	return n
}

// TruncateToTokens cuts text so that the result estimates at or below
// maxTokens, marker included. When a newline exists past the midpoint of the
// cut region the cut backs up to it to avoid a mid-sentence break. Text
// already within budget is returned unchanged.
func TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if EstimateTokens(text) <= maxTokens {
		return text
	}

	runes := []rune(text)
	budget := int(float64(maxTokens)*charsPerToken) - len(TruncationMarker)
	if budget <= 0 {
		// Budget too small for the marker itself; hard cut.
		return string(runes[:int(float64(maxTokens)*charsPerToken)])
	}
	if budget > len(runes) {
		budget = len(runes)
	}
	cut := runes[:budget]
	if idx := lastNewline(cut); idx > budget/2 {
		cut = cut[:idx]
	}
	return string(cut) + TruncationMarker
}

// lastNewline returns the rune index of the last '\n' in runes, or -1.
func lastNewline(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}
