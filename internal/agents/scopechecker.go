// internal/agents/scopechecker.go
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ChenJellay/helix/internal/appconfig"
	"github.com/ChenJellay/helix/internal/llm"
	"github.com/ChenJellay/helix/internal/logging"
	"github.com/ChenJellay/helix/internal/rag"
	"github.com/ChenJellay/helix/internal/token"
)

// Scope checker section budgets. The chrome and PR metadata are reserved
// first; the remainder is captured once and split proportionally so the
// shares do not shrink as earlier fits land.
const (
	scopeTemplateChrome = 500
	scopePRMetaTokens   = 200
	scopeDesignShare    = 40 // percent of the captured remainder
	scopeRepoMapShare   = 10
	scopeDiffShare      = 50
)

// DesignDocPlaceholder stands in when no design document was retrievable.
const DesignDocPlaceholder = "(No design document found for this project)"

// ScopeCheck is the parsed verdict for one pull request.
type ScopeCheck struct {
	Result    map[string]any
	HadDesign bool
}

// ScopeChecker judges whether a pull request stays within its project's
// designed scope.
type ScopeChecker struct {
	Caller    *llm.StructuredCaller
	Retriever *rag.Retriever
	Model     string
	Profile   appconfig.ModelProfile
}

// CheckPR fits the design document, repo map, and diff into the budget in
// that fixed order and asks the model for a scope verdict.
func (c *ScopeChecker) CheckPR(ctx context.Context, projectID, prTitle, prBody, diff, repoURL string) (*ScopeCheck, error) {
	design, err := c.Retriever.RetrieveDesignDoc(ctx, projectID)
	if err != nil {
		logging.LogEvent("[scope] design retrieval for %s failed: %v", projectID, err)
		design = ""
	}
	hadDesign := design != ""
	if !hadDesign {
		design = DesignDocPlaceholder
	}

	repoContext := ""
	if repoURL != "" {
		repoContext, err = c.Retriever.RetrieveRepoContext(ctx, repoURL)
		if err != nil {
			logging.LogEvent("[scope] repo context for %s failed: %v", repoURL, err)
			repoContext = ""
		}
	}

	budget := token.NewBudget(c.Profile, 0)
	budget.Reserve("template_chrome", scopeTemplateChrome)
	budget.Reserve("pr_meta", scopePRMetaTokens)
	remaining := budget.Remaining()
	designFitted := budget.Fit("design", design, remaining*scopeDesignShare/100)
	repoFitted := budget.Fit("repo_map", repoContext, remaining*scopeRepoMapShare/100)
	diffFitted := budget.Fit("diff", diff, remaining*scopeDiffShare/100)
	budget.LogSummary("scope_checker " + projectID)

	prompt := buildScopePrompt(projectID, prTitle, prBody, designFitted, repoFitted, diffFitted)
	result, err := c.Caller.Call(ctx, c.Model, []llm.Message{{Role: "user", Content: prompt}}, 0.1)
	if err != nil {
		return nil, fmt.Errorf("scope check for %s: %w", projectID, err)
	}
	return &ScopeCheck{Result: result, HadDesign: hadDesign}, nil
}

func buildScopePrompt(projectID, prTitle, prBody, design, repoContext, diff string) string {
	var b strings.Builder
	b.WriteString("You are checking whether a pull request stays within its project's designed scope.\n")
	b.WriteString(`Return a JSON object: {"in_scope": true|false, "confidence": 0.0-1.0, "concerns": ["..."]}.` + "\n\n")
	fmt.Fprintf(&b, "Project: %s\nPR title: %s\n", projectID, prTitle)
	if prBody != "" {
		fmt.Fprintf(&b, "PR description: %s\n", prBody)
	}
	b.WriteString("\nDesign document:\n")
	b.WriteString(design)
	if repoContext != "" {
		b.WriteString("\n\nRepository map:\n")
		b.WriteString(repoContext)
	}
	b.WriteString("\n\nDiff:\n")
	b.WriteString(diff)
	return b.String()
}
