// internal/token/budget.go
package token

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ChenJellay/helix/internal/appconfig"
	"github.com/ChenJellay/helix/internal/logging"
	"github.com/ChenJellay/helix/internal/util"
)

// minInputTokens is the floor for the total input pool regardless of how
// much of the context window the output reservation consumes.
const minInputTokens = 512

// Budget distributes a fixed input-token pool across named prompt sections.
// A Budget is owned by exactly one in-flight request: created at request
// start, mutated through Reserve/Fit, discarded after LogSummary.
//
// Reserve and Fit overwrite any prior allocation for the same section name
// (latest estimate wins). Because Remaining is evaluated at call time,
// sections must be reserved/fitted in a fixed priority order: each call
// consumes from what the previous calls left.
type Budget struct {
	TotalInputTokens int
	allocated        map[string]int
}

// NewBudget sizes the input pool for one request against the given profile.
// outputTokens <= 0 selects the profile's max output reservation.
func NewBudget(profile appconfig.ModelProfile, outputTokens int) *Budget {
	if outputTokens <= 0 {
		outputTokens = profile.MaxOutputTokens
	}
	total := profile.EffectiveContextTokens - outputTokens
	if total < minInputTokens {
		total = minInputTokens
	}
	return &Budget{
		TotalInputTokens: total,
		allocated:        make(map[string]int),
	}
}

// Reserve records a section's allocation, overwriting any prior value for
// that name.
func (b *Budget) Reserve(section string, tokens int) {
	if tokens < 0 {
		tokens = 0
	}
	b.allocated[section] = tokens
}

// Remaining returns the unallocated portion of the pool, never negative.
func (b *Budget) Remaining() int {
	used := 0
	for _, tokens := range b.allocated {
		used += tokens
	}
	return util.Max(0, b.TotalInputTokens-used)
}

// Fit truncates text into the pool still available and records the actual
// post-truncation token count under section. maxTokens > 0 caps the pool at
// min(maxTokens, Remaining()); maxTokens <= 0 uses Remaining() alone.
func (b *Budget) Fit(section, text string, maxTokens int) string {
	available := b.Remaining()
	if maxTokens > 0 {
		available = util.Min(maxTokens, available)
	}
	fitted := TruncateToTokens(text, available)
	b.allocated[section] = EstimateTokens(fitted)
	return fitted
}

// Allocation returns the tokens currently recorded for section.
func (b *Budget) Allocation(section string) int {
	return b.allocated[section]
}

// LogSummary writes one line describing how the pool was spent.
func (b *Budget) LogSummary(label string) {
	sections := make([]string, 0, len(b.allocated))
	for section := range b.allocated {
		sections = append(sections, section)
	}
	sort.Strings(sections)

	var parts []string
	for _, section := range sections {
		parts = append(parts, section+"="+strconv.Itoa(b.allocated[section]))
	}
	logging.LogEvent("[budget] %s total=%d remaining=%d %s",
		label, b.TotalInputTokens, b.Remaining(), strings.Join(parts, " "))
}
