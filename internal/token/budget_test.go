package token

import (
	"strings"
	"testing"

	"github.com/ChenJellay/helix/internal/appconfig"
)

func smallProfile() appconfig.ModelProfile {
	return appconfig.ModelProfile{
		Name:                   "test",
		EffectiveContextTokens: 6144,
		MaxOutputTokens:        2048,
		ChunkTokenLimit:        256,
	}
}

func TestNewBudgetSizesPool(t *testing.T) {
	b := NewBudget(smallProfile(), 0)
	if b.TotalInputTokens != 6144-2048 {
		t.Fatalf("unexpected total: %d", b.TotalInputTokens)
	}
}

func TestNewBudgetFloor(t *testing.T) {
	profile := smallProfile()
	profile.EffectiveContextTokens = 1024
	b := NewBudget(profile, 1000)
	if b.TotalInputTokens != 512 {
		t.Fatalf("expected 512 floor, got %d", b.TotalInputTokens)
	}
}

func TestReserveOverwrites(t *testing.T) {
	b := NewBudget(smallProfile(), 0)
	b.Reserve("s", 1000)
	b.Reserve("s", 200)
	if got := b.Remaining(); got != b.TotalInputTokens-200 {
		t.Fatalf("expected overwrite semantics, remaining %d", got)
	}
	if b.Allocation("s") != 200 {
		t.Fatalf("expected latest reservation to win, got %d", b.Allocation("s"))
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	b := NewBudget(smallProfile(), 0)
	b.Reserve("huge", b.TotalInputTokens*2)
	if got := b.Remaining(); got != 0 {
		t.Fatalf("expected 0 remaining, got %d", got)
	}
}

func TestFitRecordsActualUsage(t *testing.T) {
	b := NewBudget(smallProfile(), 0)
	text := "hello world"
	fitted := b.Fit("greeting", text, 0)
	if fitted != text {
		t.Fatalf("short text should pass through, got %q", fitted)
	}
	if b.Allocation("greeting") != EstimateTokens(text) {
		t.Fatalf("allocation should be actual estimate, got %d", b.Allocation("greeting"))
	}
}

func TestFitHonorsCap(t *testing.T) {
	b := NewBudget(smallProfile(), 0)
	text := strings.Repeat("word ", 2000)
	fitted := b.Fit("capped", text, 50)
	if est := EstimateTokens(fitted); est > 50 {
		t.Fatalf("cap ignored: %d tokens", est)
	}
}

func TestSequentialFitsNeverExceedTotal(t *testing.T) {
	b := NewBudget(smallProfile(), 0)
	long := strings.Repeat("lorem ipsum dolor sit amet ", 5000)

	b.Reserve("template_chrome", 500)
	b.Reserve("pr_meta", 200)
	remaining := b.Remaining()
	b.Fit("design", long, remaining*40/100)
	b.Fit("repo_map", long, remaining*10/100)
	b.Fit("diff", long, 0)

	used := 0
	for _, section := range []string{"template_chrome", "pr_meta", "design", "repo_map", "diff"} {
		used += b.Allocation(section)
	}
	if used > b.TotalInputTokens {
		t.Fatalf("allocated %d over total %d", used, b.TotalInputTokens)
	}
	if b.Remaining() < 0 {
		t.Fatalf("remaining went negative")
	}
}
