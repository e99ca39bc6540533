// Package vcs wraps the handful of git invocations the workflow and
// persistence layers need: commit-SHA harvesting for `done`, and the
// stage/commit/rebase/push sequence `sync`/`ship` drive.
package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// IsRepo reports whether the current directory is inside a git worktree.
func IsRepo(ctx context.Context) bool {
	return exec.CommandContext(ctx, "git", "rev-parse", "--git-dir").Run() == nil
}

// HasRemote reports whether any remote is configured.
func HasRemote(ctx context.Context) bool {
	out, err := exec.CommandContext(ctx, "git", "remote").Output()
	return err == nil && len(strings.TrimSpace(string(out))) > 0
}

// CurrentBranch returns the checked-out branch name.
func CurrentBranch(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "symbolic-ref", "--short", "HEAD").Output()
	if err != nil {
		return "", fmt.Errorf("determining current branch: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// HasUpstream reports whether the current branch tracks a remote.
func HasUpstream(ctx context.Context) bool {
	branch, err := CurrentBranch(ctx)
	if err != nil {
		return false
	}
	remoteErr := exec.CommandContext(ctx, "git", "config", "--get", fmt.Sprintf("branch.%s.remote", branch)).Run() //nolint:gosec // G204: branch from symbolic-ref
	mergeErr := exec.CommandContext(ctx, "git", "config", "--get", fmt.Sprintf("branch.%s.merge", branch)).Run()   //nolint:gosec // G204: branch from symbolic-ref
	return remoteErr == nil && mergeErr == nil
}

// CommitsMentioning returns the commit SHAs from the last `since` whose
// subject/body or `Weave-ID:` trailer mentions id, newest first. Used by
// `done` to harvest commit SHAs onto a node (spec 4.E step 5).
func CommitsMentioning(ctx context.Context, id string, since time.Duration) ([]string, error) {
	sinceArg := fmt.Sprintf("--since=%d.seconds.ago", int64(since.Seconds()))
	cmd := exec.CommandContext(ctx, "git", "log", sinceArg, "--format=%H %B%n---weave-sep---") //nolint:gosec // G204: id/since are not interpolated into the command
	out, err := cmd.Output()
	if err != nil {
		// No commits yet or not a repo: harvesting is best-effort.
		return nil, nil
	}

	var shas []string
	for _, entry := range strings.Split(string(out), "---weave-sep---") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		sp := strings.IndexAny(entry, " \n")
		if sp < 0 {
			continue
		}
		sha, body := entry[:sp], entry[sp:]
		if strings.Contains(body, id) || strings.Contains(body, "Weave-ID: "+id) {
			shas = append(shas, sha)
		}
	}
	return shas, nil
}

// StageAndCommit stages exactly the given paths (relative to the repo
// root) and commits them with message. A no-op (nil error) if nothing
// is staged, matching `sync`'s "attempt, non-failing" commit semantics.
func StageAndCommit(ctx context.Context, paths []string, message string) error {
	if len(paths) == 0 {
		return nil
	}
	addArgs := append([]string{"add"}, paths...)
	if out, err := exec.CommandContext(ctx, "git", addArgs...).CombinedOutput(); err != nil { //nolint:gosec // G204: paths are caller-controlled cold-zone files
		return fmt.Errorf("git add failed: %w\n%s", err, out)
	}

	statusArgs := append([]string{"status", "--porcelain", "--"}, paths...)
	statusOut, err := exec.CommandContext(ctx, "git", statusArgs...).Output() //nolint:gosec // G204: paths are caller-controlled cold-zone files
	if err != nil {
		return fmt.Errorf("git status failed: %w", err)
	}
	if strings.TrimSpace(string(statusOut)) == "" {
		return nil // nothing staged, nothing to commit
	}

	commitArgs := append([]string{"commit", "-m", message, "--"}, paths...)
	if out, err := exec.CommandContext(ctx, "git", commitArgs...).CombinedOutput(); err != nil { //nolint:gosec // G204: paths are caller-controlled cold-zone files
		return fmt.Errorf("git commit failed: %w\n%s", err, out)
	}
	return nil
}

// RebaseUpstream fetches and rebases the current branch onto its
// upstream, a no-op if there is none.
func RebaseUpstream(ctx context.Context) error {
	if !HasUpstream(ctx) {
		return nil
	}
	if out, err := exec.CommandContext(ctx, "git", "fetch").CombinedOutput(); err != nil {
		return fmt.Errorf("git fetch failed: %w\n%s", err, out)
	}
	if out, err := exec.CommandContext(ctx, "git", "rebase", "@{u}").CombinedOutput(); err != nil {
		return fmt.Errorf("git rebase failed: %w\n%s", err, out)
	}
	return nil
}

// Push pushes the current branch, a no-op if no remote is configured.
func Push(ctx context.Context) error {
	if !HasRemote(ctx) {
		return nil
	}
	out, err := exec.CommandContext(ctx, "git", "push").CombinedOutput()
	if err != nil {
		return fmt.Errorf("git push failed: %w\n%s", err, out)
	}
	return nil
}
