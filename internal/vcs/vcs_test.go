package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func chdirToFreshRepo(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })

	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	run(t, "git", "init", "-q")
	run(t, "git", "config", "user.email", "weave-test@example.com")
	run(t, "git", "config", "user.name", "Weave Test")
}

func run(t *testing.T, name string, args ...string) {
	t.Helper()
	if out, err := exec.Command(name, args...).CombinedOutput(); err != nil {
		t.Fatalf("%s %v: %v\n%s", name, args, err, out)
	}
}

func TestIsRepoTrueInsideGit(t *testing.T) {
	chdirToFreshRepo(t)
	if !IsRepo(context.Background()) {
		t.Error("expected IsRepo true inside a fresh git repo")
	}
}

func TestIsRepoFalseOutsideAnyRepo(t *testing.T) {
	dir := t.TempDir()
	orig, _ := os.Getwd()
	defer os.Chdir(orig)
	os.Chdir(dir)
	if IsRepo(context.Background()) {
		t.Error("expected IsRepo false outside any git worktree")
	}
}

func TestHasRemoteFalseWithNoRemoteConfigured(t *testing.T) {
	chdirToFreshRepo(t)
	if HasRemote(context.Background()) {
		t.Error("expected HasRemote false with no remote configured")
	}
}

func TestHasRemoteTrueAfterAddingOne(t *testing.T) {
	chdirToFreshRepo(t)
	run(t, "git", "remote", "add", "origin", "https://example.invalid/repo.git")
	if !HasRemote(context.Background()) {
		t.Error("expected HasRemote true once a remote is configured")
	}
}

func TestHasUpstreamFalseWithoutTracking(t *testing.T) {
	chdirToFreshRepo(t)
	writeAndCommit(t, "f.txt", "content", "initial commit")
	if HasUpstream(context.Background()) {
		t.Error("expected HasUpstream false without a tracking branch configured")
	}
}

func writeAndCommit(t *testing.T, name, content, msg string) {
	t.Helper()
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	run(t, "git", "add", name)
	run(t, "git", "commit", "-q", "-m", msg)
}

func TestCommitsMentioningFindsIDInBody(t *testing.T) {
	chdirToFreshRepo(t)
	writeAndCommit(t, "f.txt", "v1", "fix bug\n\nWeave-ID: wv-aaaa")
	writeAndCommit(t, "g.txt", "v1", "unrelated change")

	shas, err := CommitsMentioning(context.Background(), "wv-aaaa", 24*time.Hour)
	if err != nil {
		t.Fatalf("CommitsMentioning: %v", err)
	}
	if len(shas) != 1 {
		t.Errorf("expected exactly one matching commit, got %d: %v", len(shas), shas)
	}
}

func TestCommitsMentioningEmptyWhenNoneMatch(t *testing.T) {
	chdirToFreshRepo(t)
	writeAndCommit(t, "f.txt", "v1", "unrelated change")
	shas, err := CommitsMentioning(context.Background(), "wv-zzzz", 24*time.Hour)
	if err != nil {
		t.Fatalf("CommitsMentioning: %v", err)
	}
	if len(shas) != 0 {
		t.Errorf("expected no matches, got %v", shas)
	}
}

func TestCommitsMentioningOutsideRepoReturnsNilNoError(t *testing.T) {
	dir := t.TempDir()
	orig, _ := os.Getwd()
	defer os.Chdir(orig)
	os.Chdir(dir)
	shas, err := CommitsMentioning(context.Background(), "wv-aaaa", time.Hour)
	if err != nil {
		t.Fatalf("expected CommitsMentioning to fail gracefully outside a repo, got err %v", err)
	}
	if shas != nil {
		t.Errorf("expected nil shas outside a repo, got %v", shas)
	}
}

func TestStageAndCommitNoopOnEmptyPaths(t *testing.T) {
	chdirToFreshRepo(t)
	if err := StageAndCommit(context.Background(), nil, "msg"); err != nil {
		t.Errorf("expected nil error for empty paths, got %v", err)
	}
}

func TestStageAndCommitCommitsGivenPaths(t *testing.T) {
	chdirToFreshRepo(t)
	path := filepath.Join(".", "state.sql")
	if err := os.WriteFile(path, []byte("dump"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := StageAndCommit(context.Background(), []string{path}, "sync: checkpoint"); err != nil {
		t.Fatalf("StageAndCommit: %v", err)
	}
	out, err := exec.Command("git", "log", "--oneline").CombinedOutput()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) == 0 {
		t.Error("expected a commit to exist after StageAndCommit")
	}
}

func TestStageAndCommitNoopWhenNothingChanged(t *testing.T) {
	chdirToFreshRepo(t)
	path := "state.sql"
	writeAndCommit(t, path, "dump", "initial")
	// Re-commit the same unchanged content: nothing should be staged.
	if err := StageAndCommit(context.Background(), []string{path}, "sync: checkpoint"); err != nil {
		t.Fatalf("StageAndCommit: %v", err)
	}
}

func TestRebaseUpstreamNoopWithoutTracking(t *testing.T) {
	chdirToFreshRepo(t)
	writeAndCommit(t, "f.txt", "v1", "initial")
	if err := RebaseUpstream(context.Background()); err != nil {
		t.Errorf("expected RebaseUpstream to no-op without an upstream, got %v", err)
	}
}

func TestPushNoopWithoutRemote(t *testing.T) {
	chdirToFreshRepo(t)
	writeAndCommit(t, "f.txt", "v1", "initial")
	if err := Push(context.Background()); err != nil {
		t.Errorf("expected Push to no-op without a remote, got %v", err)
	}
}
