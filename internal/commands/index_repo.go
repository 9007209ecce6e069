// internal/commands/index_repo.go
package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ChenJellay/helix/internal/integrations"
)

const repoLogDepth = 20

var indexRepoURL string

// indexRepoCmd summarizes a local checkout (recent history plus CI
// workflows) and stores the summary keyed by the repository URL.
var indexRepoCmd = &cobra.Command{
	Use:   "index-repo <path>",
	Short: "Index a repository summary for scope checking",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repoPath := args[0]

		git := &integrations.Git{RepoPath: repoPath}
		subjects, err := git.Log(ctx, repoLogDepth)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}
		workflows, err := integrations.LoadWorkflows(repoPath)
		if err != nil {
			return err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Repository: %s\n", indexRepoURL)
		if len(subjects) > 0 {
			b.WriteString("\nRecent commits:\n")
			for _, subject := range subjects {
				fmt.Fprintf(&b, "- %s\n", subject)
			}
		}
		if ci := integrations.SummarizeForPrompt(workflows); ci != "" {
			b.WriteString("\n")
			b.WriteString(ci)
			b.WriteString("\n")
		}

		c, err := buildClients(ctx, GetConfig())
		if err != nil {
			return err
		}
		defer c.close()

		if err := c.indexer().IndexRepoSummary(ctx, indexRepoURL, b.String()); err != nil {
			return err
		}
		color.New(color.FgGreen).Printf("Indexed repo map for %s (%d commits, %d workflows)\n",
			indexRepoURL, len(subjects), len(workflows))
		return nil
	},
}

func init() {
	indexRepoCmd.Flags().StringVar(&indexRepoURL, "url", "", "canonical repository URL used as the map key (required)")
	_ = indexRepoCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(indexRepoCmd)
}
