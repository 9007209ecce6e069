// internal/integrations/localgit.go
// Package integrations holds the narrow-contract collaborators the core
// consumes: local source-control queries and CI workflow summaries. Both
// return plain text for the caller to hand into the core.
package integrations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// gitTimeout bounds every git subprocess; on expiry the process is killed
// and a timeout error is returned with no partial output.
const gitTimeout = 30 * time.Second

// ErrGitTimeout marks a git call that exceeded its time box.
var ErrGitTimeout = errors.New("git command timed out")

// Git runs read-only queries against a local repository checkout.
type Git struct {
	RepoPath string
	// Timeout overrides the default time box; zero keeps the default.
	Timeout time.Duration
}

// BranchSummary is a compact description of a branch's commits.
type BranchSummary struct {
	Title string
	Body  string
}

func (g *Git) timeout() time.Duration {
	if g.Timeout > 0 {
		return g.Timeout
	}
	return gitTimeout
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.RepoPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("git %s: %w", args[0], ErrGitTimeout)
	}
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Diff returns the unified diff between two revisions.
func (g *Git) Diff(ctx context.Context, base, head string) (string, error) {
	return g.run(ctx, "diff", base+".."+head)
}

// Log returns the latest n commit subjects, most recent first.
func (g *Git) Log(ctx context.Context, n int) ([]string, error) {
	out, err := g.run(ctx, "log", fmt.Sprintf("-%d", n), "--pretty=format:%s")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}
	return strings.Split(strings.TrimRight(out, "\n"), "\n"), nil
}

// Summarize describes a branch relative to base: the title is the most
// recent commit subject, the body lists all subjects.
func (g *Git) Summarize(ctx context.Context, base, branch string) (BranchSummary, error) {
	out, err := g.run(ctx, "log", base+".."+branch, "--pretty=format:%s")
	if err != nil {
		return BranchSummary{}, err
	}
	var subjects []string
	for _, line := range strings.Split(out, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			subjects = append(subjects, s)
		}
	}
	if len(subjects) == 0 {
		return BranchSummary{Title: "(no commits)"}, nil
	}
	return BranchSummary{
		Title: subjects[0],
		Body:  strings.Join(subjects, "\n"),
	}, nil
}

// CurrentBranch returns the checked-out branch name.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// DefaultBranch resolves origin's HEAD, falling back to "main".
func (g *Git) DefaultBranch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "symbolic-ref", "refs/remotes/origin/HEAD", "--short")
	if err != nil {
		return "main", nil
	}
	name := strings.TrimSpace(out)
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" {
		return "main", nil
	}
	return name, nil
}
