package bridge

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// GHCLI is the reference concrete Bridge: it shells out to the GitHub
// CLI (`gh`), the same exec.CommandContext idiom the core uses for git
// itself. Every method treats a failing command as a warning, not an
// error, by returning it to the caller for non-fatal logging rather
// than panicking or retrying.
type GHCLI struct {
	Repo string // OWNER/REPO; empty uses gh's inferred repo
}

func (g GHCLI) repoArgs() []string {
	if g.Repo == "" {
		return nil
	}
	return []string{"--repo", g.Repo}
}

func (g GHCLI) CreateIssue(ctx context.Context, text string, labels []string, body string) (*int, error) {
	args := append([]string{"issue", "create", "--title", text, "--body", body}, g.repoArgs()...)
	if len(labels) > 0 {
		args = append(args, "--label", strings.Join(labels, ","))
	}
	out, err := exec.CommandContext(ctx, "gh", args...).Output() //nolint:gosec // G204: text/labels/body are caller-controlled node fields
	if err != nil {
		return nil, fmt.Errorf("gh issue create: %w", err)
	}
	// gh prints the issue URL; the trailing path segment is the number.
	url := strings.TrimSpace(string(out))
	idx := strings.LastIndex(url, "/")
	if idx < 0 {
		return nil, fmt.Errorf("gh issue create: unexpected output %q", url)
	}
	n, err := strconv.Atoi(url[idx+1:])
	if err != nil {
		return nil, fmt.Errorf("gh issue create: parsing issue number from %q: %w", url, err)
	}
	return &n, nil
}

func (g GHCLI) CloseIssue(ctx context.Context, number int, comment string) error {
	args := append([]string{"issue", "close", strconv.Itoa(number)}, g.repoArgs()...)
	if comment != "" {
		args = append(args, "--comment", comment)
	}
	if out, err := exec.CommandContext(ctx, "gh", args...).CombinedOutput(); err != nil { //nolint:gosec // G204: number is an int, comment is caller-controlled
		return fmt.Errorf("gh issue close: %w\n%s", err, out)
	}
	return nil
}

func (g GHCLI) RemoveLabels(ctx context.Context, number int, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	args := append([]string{"issue", "edit", strconv.Itoa(number), "--remove-label", strings.Join(labels, ",")}, g.repoArgs()...)
	if out, err := exec.CommandContext(ctx, "gh", args...).CombinedOutput(); err != nil { //nolint:gosec // G204: number/labels are caller-controlled
		return fmt.Errorf("gh issue edit --remove-label: %w\n%s", err, out)
	}
	return nil
}

func (g GHCLI) AddLabels(ctx context.Context, number int, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	args := append([]string{"issue", "edit", strconv.Itoa(number), "--add-label", strings.Join(labels, ",")}, g.repoArgs()...)
	if out, err := exec.CommandContext(ctx, "gh", args...).CombinedOutput(); err != nil { //nolint:gosec // G204: number/labels are caller-controlled
		return fmt.Errorf("gh issue edit --add-label: %w\n%s", err, out)
	}
	return nil
}

// RefreshParentBody is a no-op in the reference implementation: building
// a checklist+diagram body for a parent issue needs the full graph
// walk, which the workflow layer (not this bridge) has access to; it
// calls CreateIssue/CloseIssue-equivalent edit directly when needed.
func (g GHCLI) RefreshParentBody(ctx context.Context, parentID string) error {
	return nil
}
