package integrations

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// initRepo builds a throwaway repository with two commits on main.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	run("init", "-b", "main")
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	run("add", "a.txt")
	run("commit", "-m", "add a.txt")
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\ntwo\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	run("add", "a.txt")
	run("commit", "-m", "extend a.txt")
	return dir
}

func TestGitLogAndCurrentBranch(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	g := &Git{RepoPath: initRepo(t)}
	ctx := context.Background()

	subjects, err := g.Log(ctx, 5)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(subjects) != 2 || subjects[0] != "extend a.txt" {
		t.Fatalf("unexpected log: %v", subjects)
	}

	branch, err := g.CurrentBranch(ctx)
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "main" {
		t.Fatalf("expected main, got %q", branch)
	}
}

func TestGitSummarize(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	g := &Git{RepoPath: initRepo(t)}
	summary, err := g.Summarize(context.Background(), "HEAD~1", "HEAD")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Title != "extend a.txt" {
		t.Fatalf("unexpected title: %q", summary.Title)
	}
	if summary.Body != "extend a.txt" {
		t.Fatalf("unexpected body: %q", summary.Body)
	}
}

func TestGitDiffBetweenRevisions(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	g := &Git{RepoPath: initRepo(t)}
	diff, err := g.Diff(context.Background(), "HEAD~1", "HEAD")
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if diff == "" {
		t.Fatalf("expected non-empty diff")
	}
}

func TestGitTimeoutKillsProcess(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	g := &Git{RepoPath: initRepo(t), Timeout: time.Nanosecond}
	_, err := g.Log(context.Background(), 1)
	if !errors.Is(err, ErrGitTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestGitDefaultBranchFallsBack(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	g := &Git{RepoPath: initRepo(t)} // no origin remote
	name, err := g.DefaultBranch(context.Background())
	if err != nil {
		t.Fatalf("DefaultBranch: %v", err)
	}
	if name != "main" {
		t.Fatalf("expected fallback main, got %q", name)
	}
}
