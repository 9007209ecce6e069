// internal/commands/analyze_risk.go
package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ChenJellay/helix/internal/agents"
	"github.com/ChenJellay/helix/internal/llm"
)

var (
	riskProject    string
	riskHistorical string
)

// analyzeRiskCmd scores a PRD file for delivery risk.
var analyzeRiskCmd = &cobra.Command{
	Use:   "analyze-risk <prd-file>",
	Short: "Analyze a PRD for delivery risk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prd, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading PRD: %w", err)
		}
		historical := ""
		if riskHistorical != "" {
			data, err := os.ReadFile(riskHistorical)
			if err != nil {
				return fmt.Errorf("reading historical context: %w", err)
			}
			historical = string(data)
		}

		ctx := cmd.Context()
		c, err := buildClients(ctx, GetConfig())
		if err != nil {
			return err
		}
		defer c.close()

		analyzer := &agents.RiskAnalyzer{
			Caller:    c.caller,
			Retriever: c.retriever(),
			Graph:     c.graph,
			Model:     c.model,
			Profile:   c.profile,
		}
		analysis, err := analyzer.AnalyzePRD(ctx, riskProject, string(prd), historical)
		if err != nil {
			return err
		}

		if llm.IsParseFailure(analysis.Result) {
			color.New(color.FgRed).Println("Model did not return valid JSON after repair attempts.")
		} else if level, ok := analysis.Result["risk_level"].(string); ok {
			color.New(color.FgCyan).Printf("Risk level: %s\n", level)
		}
		if analysis.Dependencies > 0 {
			fmt.Printf("Recorded %d dependencies in the entity graph.\n", analysis.Dependencies)
		}
		return printJSON(analysis.Result)
	},
}

func printJSON(result map[string]any) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	analyzeRiskCmd.Flags().StringVar(&riskProject, "project", "", "project the PRD belongs to (required)")
	analyzeRiskCmd.Flags().StringVar(&riskHistorical, "historical", "", "file with historical context (incidents, postmortems)")
	_ = analyzeRiskCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(analyzeRiskCmd)
}
