package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/ChenJellay/helix/internal/appconfig"
	"github.com/ChenJellay/helix/internal/graphstore"
	"github.com/ChenJellay/helix/internal/llm"
	"github.com/ChenJellay/helix/internal/rag"
	"github.com/ChenJellay/helix/internal/token"
	"github.com/ChenJellay/helix/internal/vectorstore"
	"github.com/ChenJellay/helix/internal/vectorstore/memory"
)

// recordingCompleter captures every request and replies with canned content.
type recordingCompleter struct {
	content  string
	requests []llm.Request
}

func (r *recordingCompleter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	r.requests = append(r.requests, req)
	return llm.Response{Content: r.content, Model: req.Model}, nil
}

// flatEmbedder maps every text to the same unit vector; retrieval order is
// irrelevant to these tests.
type flatEmbedder struct{}

func (flatEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{1, 0}
	}
	return vectors, nil
}

func agentProfile() appconfig.ModelProfile {
	return appconfig.ModelProfile{
		Name:                   "test",
		EffectiveContextTokens: 6144,
		MaxOutputTokens:        1024,
		ChunkTokenLimit:        64,
		RetrievalTopK:          3,
	}
}

func newRetriever(t *testing.T) *rag.Retriever {
	t.Helper()
	return &rag.Retriever{
		Vectors:  memory.NewStore(),
		RepoMaps: memory.NewStore(),
		Embedder: flatEmbedder{},
		Profile:  agentProfile(),
	}
}

func openGraph(t *testing.T) *graphstore.Store {
	t.Helper()
	store, err := graphstore.Open(t.TempDir() + "/graph.db")
	if err != nil {
		t.Fatalf("graph open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAnalyzePRDRecordsDependencies(t *testing.T) {
	stub := &recordingCompleter{content: `{"risk_level":"medium","risks":[],"dependencies":[{"source":"Checkout","target":"Payments API","type":"api","description":"charges cards"}]}`}
	graph := openGraph(t)
	analyzer := &RiskAnalyzer{
		Caller:    llm.NewStructuredCaller(stub, agentProfile()),
		Retriever: newRetriever(t),
		Graph:     graph,
		Model:     "m",
		Profile:   agentProfile(),
	}

	analysis, err := analyzer.AnalyzePRD(context.Background(), "p1", "We will build checkout.", "old incidents")
	if err != nil {
		t.Fatalf("AnalyzePRD: %v", err)
	}
	if analysis.Result["risk_level"] != "medium" {
		t.Fatalf("unexpected result: %v", analysis.Result)
	}
	if analysis.Dependencies != 1 {
		t.Fatalf("expected 1 recorded dependency, got %d", analysis.Dependencies)
	}
}

func TestAnalyzePRDFitsOversizedPRD(t *testing.T) {
	stub := &recordingCompleter{content: `{"risk_level":"low","risks":[],"dependencies":[]}`}
	profile := agentProfile()
	analyzer := &RiskAnalyzer{
		Caller:    llm.NewStructuredCaller(stub, profile),
		Retriever: newRetriever(t),
		Model:     "m",
		Profile:   profile,
	}

	prd := strings.Repeat("requirement sentence. ", 5000) // far beyond the pool
	if _, err := analyzer.AnalyzePRD(context.Background(), "p1", prd, ""); err != nil {
		t.Fatalf("AnalyzePRD: %v", err)
	}
	if len(stub.requests) != 1 {
		t.Fatalf("expected one model call, got %d", len(stub.requests))
	}
	prompt := stub.requests[0].Messages[0].Content
	if len(prompt) >= len(prd) {
		t.Fatalf("PRD was not fitted into the budget")
	}
}

func TestCheckPRUsesPlaceholderWithoutDesignDoc(t *testing.T) {
	stub := &recordingCompleter{content: `{"in_scope":true,"confidence":0.9,"concerns":[]}`}
	checker := &ScopeChecker{
		Caller:    llm.NewStructuredCaller(stub, agentProfile()),
		Retriever: newRetriever(t),
		Model:     "m",
		Profile:   agentProfile(),
	}

	check, err := checker.CheckPR(context.Background(), "p1", "Add checkout", "", "diff --git a b", "")
	if err != nil {
		t.Fatalf("CheckPR: %v", err)
	}
	if check.HadDesign {
		t.Fatalf("expected no design document")
	}
	prompt := stub.requests[0].Messages[0].Content
	if !strings.Contains(prompt, DesignDocPlaceholder) {
		t.Fatalf("placeholder missing from prompt")
	}
	if check.Result["in_scope"] != true {
		t.Fatalf("unexpected verdict: %v", check.Result)
	}
}

// promptSection extracts the text between marker and the next section (or the
// end of the prompt when next is empty).
func promptSection(t *testing.T, prompt, marker, next string) string {
	t.Helper()
	start := strings.Index(prompt, marker)
	if start < 0 {
		t.Fatalf("prompt missing section %q", marker)
	}
	section := prompt[start+len(marker):]
	if next == "" {
		return section
	}
	end := strings.Index(section, next)
	if end < 0 {
		t.Fatalf("prompt missing section %q after %q", next, marker)
	}
	return section[:end]
}

func TestCheckPRBudgetSplitHoldsForLongInputs(t *testing.T) {
	stub := &recordingCompleter{content: `{"in_scope":false,"confidence":0.4,"concerns":["large"]}`}
	profile := agentProfile()
	retriever := newRetriever(t)
	design := strings.Repeat("The checkout service validates carts before charging. ", 1000)
	if err := retriever.Vectors.Add(context.Background(), []vectorstore.Document{{
		ID: "design_0", Text: design, Vector: []float64{1, 0},
		Metadata: map[string]any{"project_id": "p1", "doc_type": "technical_design"},
	}}); err != nil {
		t.Fatalf("seed design doc: %v", err)
	}
	checker := &ScopeChecker{
		Caller:    llm.NewStructuredCaller(stub, profile),
		Retriever: retriever,
		Model:     "m",
		Profile:   profile,
	}

	diff := strings.Repeat("+added line of code\n", 20000)
	check, err := checker.CheckPR(context.Background(), "p1", "Huge PR", "touches everything", diff, "")
	if err != nil {
		t.Fatalf("CheckPR: %v", err)
	}
	if check == nil || check.Result == nil {
		t.Fatalf("expected verdict")
	}

	// Pool = max(512, 6144-1024) = 5120; chrome 500 + pr_meta 200 leave a
	// captured remainder of 4420: design may take 40% (1768), diff 50% (2210).
	pool := profile.EffectiveContextTokens - profile.MaxOutputTokens
	remainder := pool - scopeTemplateChrome - scopePRMetaTokens
	designCap := remainder * scopeDesignShare / 100
	diffCap := remainder * scopeDiffShare / 100

	prompt := stub.requests[0].Messages[0].Content
	designSection := promptSection(t, prompt, "Design document:\n", "\n\nDiff:\n")
	diffSection := promptSection(t, prompt, "\n\nDiff:\n", "")

	if got := token.EstimateTokens(designSection); got > designCap {
		t.Fatalf("design consumed %d tokens, exceeding its %d share", got, designCap)
	}
	if got := token.EstimateTokens(diffSection); got > diffCap {
		t.Fatalf("diff consumed %d tokens, exceeding its %d share", got, diffCap)
	} else if got < diffCap/2 {
		t.Fatalf("diff was cut far below its share: %d of %d", got, diffCap)
	}
	if got := token.EstimateTokens(prompt); got > pool {
		t.Fatalf("prompt estimates %d tokens, exceeding the %d pool", got, pool)
	}
	if !strings.Contains(diffSection, "...(truncated)") {
		t.Fatalf("expected diff truncation marker in prompt")
	}
}
