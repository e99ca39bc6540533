package bridge

import (
	"context"
	"testing"
)

func TestNoopCreateIssueReturnsNilWithoutError(t *testing.T) {
	var b Bridge = Noop{}
	n, err := b.CreateIssue(context.Background(), "task text", []string{"bug"}, "body")
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	if n != nil {
		t.Errorf("expected a nil issue number from Noop, got %v", *n)
	}
}

func TestNoopOtherMethodsAreNilErrorNoops(t *testing.T) {
	var b Bridge = Noop{}
	ctx := context.Background()
	if err := b.CloseIssue(ctx, 1, "done"); err != nil {
		t.Errorf("CloseIssue: %v", err)
	}
	if err := b.RemoveLabels(ctx, 1, []string{"x"}); err != nil {
		t.Errorf("RemoveLabels: %v", err)
	}
	if err := b.AddLabels(ctx, 1, []string{"x"}); err != nil {
		t.Errorf("AddLabels: %v", err)
	}
	if err := b.RefreshParentBody(ctx, "wv-aaaa"); err != nil {
		t.Errorf("RefreshParentBody: %v", err)
	}
}

func TestGHCLIRepoArgsEmptyWhenRepoUnset(t *testing.T) {
	g := GHCLI{}
	if args := g.repoArgs(); args != nil {
		t.Errorf("expected nil repo args with no Repo set, got %v", args)
	}
}

func TestGHCLIRepoArgsIncludesFlagWhenSet(t *testing.T) {
	g := GHCLI{Repo: "owner/repo"}
	args := g.repoArgs()
	if len(args) != 2 || args[0] != "--repo" || args[1] != "owner/repo" {
		t.Errorf("unexpected repo args: %v", args)
	}
}

func TestGHCLIRemoveLabelsNoopOnEmptySlice(t *testing.T) {
	g := GHCLI{}
	if err := g.RemoveLabels(context.Background(), 1, nil); err != nil {
		t.Errorf("expected a no-op with no labels, got %v", err)
	}
}

func TestGHCLIAddLabelsNoopOnEmptySlice(t *testing.T) {
	g := GHCLI{}
	if err := g.AddLabels(context.Background(), 1, nil); err != nil {
		t.Errorf("expected a no-op with no labels, got %v", err)
	}
}

func TestGHCLIRefreshParentBodyIsNoop(t *testing.T) {
	g := GHCLI{}
	if err := g.RefreshParentBody(context.Background(), "wv-aaaa"); err != nil {
		t.Errorf("expected RefreshParentBody to always be a no-op, got %v", err)
	}
}
