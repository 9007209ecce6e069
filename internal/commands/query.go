// internal/commands/query.go
package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ChenJellay/helix/internal/rag"
	"github.com/ChenJellay/helix/internal/util"
)

var (
	queryProject string
	queryTopK    int
	queryGraph   bool
)

// queryCmd retrieves the chunks most similar to a free-text query.
var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve indexed chunks similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return fmt.Errorf("query is required")
		}

		ctx := cmd.Context()
		c, err := buildClients(ctx, GetConfig())
		if err != nil {
			return err
		}
		defer c.close()
		retriever := c.retriever()

		var filters map[string]any
		if queryProject != "" {
			filters = map[string]any{"project_id": queryProject}
		}

		if queryGraph {
			if queryProject == "" {
				return fmt.Errorf("--graph requires --project")
			}
			result, err := retriever.RetrieveWithGraphContext(ctx, query, queryProject, queryTopK)
			if err != nil {
				return err
			}
			printHits(result.Chunks)
			if result.Graph != nil {
				heading := color.New(color.FgCyan)
				heading.Printf("\nGraph context for %s:\n", queryProject)
				for _, doc := range result.Graph.Documents {
					fmt.Printf("  doc %s (%s): %s\n", doc.DocID, doc.DocType, doc.Title)
				}
				for _, entity := range result.Graph.Entities {
					fmt.Printf("  entity %s (%s)\n", entity.Name, entity.Type)
				}
				for _, dep := range result.Graph.Dependencies {
					fmt.Printf("  dependency %s -> %s (%s)\n", dep.Source, dep.Target, dep.Type)
				}
			}
			return nil
		}

		hits, err := retriever.RetrieveSimilar(ctx, query, filters, queryTopK)
		if err != nil {
			return err
		}
		printHits(hits)
		return nil
	},
}

func printHits(hits []rag.Retrieved) {
	if len(hits) == 0 {
		fmt.Println("No matches.")
		return
	}
	score := color.New(color.FgYellow)
	for i, hit := range hits {
		score.Printf("%d. similarity %.4f", i+1, hit.Similarity)
		if docID, ok := hit.Metadata["doc_id"]; ok {
			fmt.Printf("  [%v]", docID)
		}
		fmt.Println()
		fmt.Printf("   %s\n", util.PrefixRunes(strings.ReplaceAll(hit.Content, "\n", " "), 200))
	}
}

func init() {
	queryCmd.Flags().StringVar(&queryProject, "project", "", "restrict results to one project")
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "number of chunks to return (0 = profile default)")
	queryCmd.Flags().BoolVar(&queryGraph, "graph", false, "include entity graph context for the project")
	rootCmd.AddCommand(queryCmd)
}
