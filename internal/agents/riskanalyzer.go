// internal/agents/riskanalyzer.go
// Package agents contains the budgeted prompt assemblers that sit on top of
// the retrieval and structured-call layers. Each agent owns one request:
// it builds a token budget, reserves and fits sections in a fixed priority
// order, and issues a structured model call.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ChenJellay/helix/internal/appconfig"
	"github.com/ChenJellay/helix/internal/graphstore"
	"github.com/ChenJellay/helix/internal/llm"
	"github.com/ChenJellay/helix/internal/logging"
	"github.com/ChenJellay/helix/internal/rag"
	"github.com/ChenJellay/helix/internal/token"
	"github.com/ChenJellay/helix/internal/util"
)

// Risk analyzer section budgets, reserved before the PRD content is fitted.
const (
	riskTemplateChrome  = 400
	riskHistoricalLimit = 600
)

// RiskAnalysis is the parsed model verdict for one PRD.
type RiskAnalysis struct {
	Result       map[string]any
	Similar      []rag.Retrieved
	Dependencies int
}

// RiskAnalyzer scores a PRD for delivery risk and records any dependencies
// the model surfaces into the entity graph.
type RiskAnalyzer struct {
	Caller    *llm.StructuredCaller
	Retriever *rag.Retriever
	Graph     *graphstore.Store
	Model     string
	Profile   appconfig.ModelProfile
}

// AnalyzePRD runs the risk analysis for one project. Section order is fixed:
// template chrome, then the bounded historical context, then the PRD fitted
// into whatever remains.
func (a *RiskAnalyzer) AnalyzePRD(ctx context.Context, projectID, prd, historical string) (*RiskAnalysis, error) {
	budget := token.NewBudget(a.Profile, 0)
	budget.Reserve("template_chrome", riskTemplateChrome)
	budget.Reserve("historical", util.Min(token.EstimateTokens(historical), riskHistoricalLimit))
	prdFitted := budget.Fit("prd_content", prd, 0)
	budget.LogSummary("risk_analyzer " + projectID)

	similar, err := a.Retriever.RetrieveSimilar(ctx, prd, map[string]any{"project_id": projectID}, 0)
	if err != nil {
		logging.LogEvent("[risk] similar retrieval for %s failed: %v", projectID, err)
		similar = nil
	}

	prompt := a.buildPrompt(projectID, prdFitted, historical, similar)
	result, err := a.Caller.Call(ctx, a.Model, []llm.Message{{Role: "user", Content: prompt}}, 0.2)
	if err != nil {
		return nil, fmt.Errorf("risk analysis for %s: %w", projectID, err)
	}

	analysis := &RiskAnalysis{Result: result, Similar: similar}
	if !llm.IsParseFailure(result) {
		analysis.Dependencies = a.recordDependencies(ctx, result)
	}
	return analysis, nil
}

func (a *RiskAnalyzer) buildPrompt(projectID, prd, historical string, similar []rag.Retrieved) string {
	var b strings.Builder
	b.WriteString("You are assessing delivery risk for a product requirements document.\n")
	b.WriteString(`Return a JSON object: {"risk_level": "low|medium|high", "risks": [{"summary": "...", "severity": "..."}], "dependencies": [{"source": "...", "target": "...", "type": "...", "description": "..."}]}.` + "\n\n")
	fmt.Fprintf(&b, "Project: %s\n\n", projectID)
	if historical != "" {
		b.WriteString("Historical context:\n")
		b.WriteString(token.TruncateToTokens(historical, riskHistoricalLimit))
		b.WriteString("\n\n")
	}
	if len(similar) > 0 {
		b.WriteString("Related documents:\n")
		for _, hit := range similar {
			fmt.Fprintf(&b, "- (%.2f) %s\n", hit.Similarity, util.PrefixRunes(hit.Content, 200))
		}
		b.WriteString("\n")
	}
	b.WriteString("PRD:\n")
	b.WriteString(prd)
	return b.String()
}

// recordDependencies upserts model-surfaced dependencies into the graph.
// Graph writes are enrichment: failures are logged and swallowed.
func (a *RiskAnalyzer) recordDependencies(ctx context.Context, result map[string]any) int {
	if a.Graph == nil {
		return 0
	}
	deps, ok := result["dependencies"].([]any)
	if !ok {
		return 0
	}
	recorded := 0
	for _, item := range deps {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		source, _ := obj["source"].(string)
		target, _ := obj["target"].(string)
		if source == "" || target == "" {
			continue
		}
		depType, _ := obj["type"].(string)
		description, _ := obj["description"].(string)
		if err := a.Graph.AddDependency(ctx, source, target, depType, description); err != nil {
			logging.LogEvent("[risk] dependency %s->%s not recorded: %v", source, target, err)
			continue
		}
		recorded++
	}
	return recorded
}
