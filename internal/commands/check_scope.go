// internal/commands/check_scope.go
package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ChenJellay/helix/internal/agents"
	"github.com/ChenJellay/helix/internal/integrations"
	"github.com/ChenJellay/helix/internal/llm"
)

var (
	scopeProject  string
	scopeRepoPath string
	scopeBase     string
	scopeBranch   string
	scopeDiffFile string
	scopeRepoURL  string
	scopeTitle    string
)

// checkScopeCmd judges whether a change stays within its project's designed
// scope. The diff comes either from a file or from a local checkout.
var checkScopeCmd = &cobra.Command{
	Use:   "check-scope",
	Short: "Check whether a change stays within the project's design",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		title := scopeTitle
		body := ""
		diff := ""
		if scopeDiffFile != "" {
			data, err := os.ReadFile(scopeDiffFile)
			if err != nil {
				return fmt.Errorf("reading diff: %w", err)
			}
			diff = string(data)
		} else {
			if scopeRepoPath == "" {
				return fmt.Errorf("either --diff-file or --repo-path is required")
			}
			git := &integrations.Git{RepoPath: scopeRepoPath}
			base := scopeBase
			if base == "" {
				var err error
				if base, err = git.DefaultBranch(ctx); err != nil {
					return err
				}
			}
			branch := scopeBranch
			if branch == "" {
				var err error
				if branch, err = git.CurrentBranch(ctx); err != nil {
					return err
				}
			}
			var err error
			if diff, err = git.Diff(ctx, base, branch); err != nil {
				return err
			}
			summary, err := git.Summarize(ctx, base, branch)
			if err != nil {
				return err
			}
			if title == "" {
				title = summary.Title
			}
			body = summary.Body
		}
		if title == "" {
			title = "(untitled change)"
		}

		c, err := buildClients(ctx, GetConfig())
		if err != nil {
			return err
		}
		defer c.close()

		checker := &agents.ScopeChecker{
			Caller:    c.caller,
			Retriever: c.retriever(),
			Model:     c.model,
			Profile:   c.profile,
		}
		check, err := checker.CheckPR(ctx, scopeProject, title, body, diff, scopeRepoURL)
		if err != nil {
			return err
		}

		if !check.HadDesign {
			color.New(color.FgYellow).Println("No design document indexed for this project; verdict is low-confidence.")
		}
		if llm.IsParseFailure(check.Result) {
			color.New(color.FgRed).Println("Model did not return valid JSON after repair attempts.")
		} else if inScope, ok := check.Result["in_scope"].(bool); ok {
			if inScope {
				color.New(color.FgGreen).Println("In scope.")
			} else {
				color.New(color.FgRed).Println("Out of scope.")
			}
		}
		return printJSON(check.Result)
	},
}

func init() {
	checkScopeCmd.Flags().StringVar(&scopeProject, "project", "", "project whose design bounds the change (required)")
	checkScopeCmd.Flags().StringVar(&scopeRepoPath, "repo-path", "", "local checkout to diff")
	checkScopeCmd.Flags().StringVar(&scopeBase, "base", "", "base revision (defaults to the origin default branch)")
	checkScopeCmd.Flags().StringVar(&scopeBranch, "branch", "", "branch under review (defaults to the checked-out branch)")
	checkScopeCmd.Flags().StringVar(&scopeDiffFile, "diff-file", "", "read the diff from a file instead of git")
	checkScopeCmd.Flags().StringVar(&scopeRepoURL, "repo-url", "", "repository URL whose indexed map adds context")
	checkScopeCmd.Flags().StringVar(&scopeTitle, "title", "", "change title (defaults to the branch summary)")
	_ = checkScopeCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(checkScopeCmd)
}
