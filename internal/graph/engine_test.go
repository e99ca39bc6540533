package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/weave-dev/weave/internal/cache"
	"github.com/weave-dev/weave/internal/storage/sqlite"
	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/werr"
)

func setupTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.Open(context.Background(), filepath.Join(dir, "weave.db"))
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, cache.New(dir))
}

func TestAddCreatesNode(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	n, err := e.Add(ctx, "write the spec expansion", AddOptions{})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n.Status != types.StatusTodo {
		t.Errorf("expected default status todo, got %s", n.Status)
	}
}

func TestAddRejectsEmptyText(t *testing.T) {
	e := setupTestEngine(t)
	if _, err := e.Add(context.Background(), "", AddOptions{}); !werr.Has(err, werr.InvalidInput) {
		t.Errorf("expected InvalidInput, got %v", err)
	}
}

func TestAddRejectsDuplicateAlias(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	if _, err := e.Add(ctx, "first", AddOptions{Alias: "shared"}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Add(ctx, "second", AddOptions{Alias: "shared"}); !werr.Has(err, werr.Conflict) {
		t.Errorf("expected Conflict for duplicate alias, got %v", err)
	}
}

func TestAddRejectsNearDuplicateUnlessForced(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	if _, err := e.Add(ctx, "implement the durable journal recovery path", AddOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Add(ctx, "implement durable journal recovery logic", AddOptions{}); !werr.Has(err, werr.Conflict) {
		t.Errorf("expected a near-duplicate Conflict, got %v", err)
	}
	if _, err := e.Add(ctx, "implement durable journal recovery logic", AddOptions{Force: true}); err != nil {
		t.Errorf("expected Force to bypass the near-duplicate check: %v", err)
	}
}

func TestAddWithParentCreatesImplementsEdge(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	parent, err := e.Add(ctx, "parent epic", AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	child, err := e.Add(ctx, "child task under the epic", AddOptions{Parent: parent.ID})
	if err != nil {
		t.Fatal(err)
	}
	edges, err := e.EdgesOf(ctx, child.ID, types.EdgeImplements)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].Target != parent.ID {
		t.Errorf("expected an implements edge child->parent, got %+v", edges)
	}
}

func TestUpdateMergesMetadataShallowly(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	n, err := e.Add(ctx, "a task", AddOptions{Metadata: types.Metadata{Decision: "use X", Pattern: "keep Y"}})
	if err != nil {
		t.Fatal(err)
	}
	updated, err := e.Update(ctx, n.ID, UpdateOptions{HasMeta: true, Metadata: types.Metadata{Decision: "use Z instead"}})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Metadata.Decision != "use Z instead" {
		t.Errorf("expected decision overwritten, got %q", updated.Metadata.Decision)
	}
	if updated.Metadata.Pattern != "keep Y" {
		t.Errorf("expected untouched key to survive the shallow merge, got %q", updated.Metadata.Pattern)
	}
}

func TestUpdateRemoveKeyDeletesField(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	n, err := e.Add(ctx, "a task", AddOptions{Metadata: types.Metadata{Decision: "use X"}})
	if err != nil {
		t.Fatal(err)
	}
	updated, err := e.Update(ctx, n.ID, UpdateOptions{RemoveKey: "decision"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Metadata.Decision != "" {
		t.Errorf("expected decision removed, got %q", updated.Metadata.Decision)
	}
}

func TestUpdateResolvesByAlias(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	n, err := e.Add(ctx, "aliased task", AddOptions{Alias: "my-task"})
	if err != nil {
		t.Fatal(err)
	}
	newText := "renamed via alias"
	updated, err := e.Update(ctx, "my-task", UpdateOptions{Text: &newText})
	if err != nil {
		t.Fatal(err)
	}
	if updated.ID != n.ID || updated.Text != newText {
		t.Errorf("expected alias to resolve to %s, got %+v", n.ID, updated)
	}
}

func TestDeleteRejectsNodeWithChildrenUnlessForced(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	parent, err := e.Add(ctx, "parent", AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Add(ctx, "child", AddOptions{Parent: parent.ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Delete(ctx, parent.ID, false, false); !werr.Has(err, werr.Conflict) {
		t.Errorf("expected Conflict deleting a node with children, got %v", err)
	}
	if _, err := e.Delete(ctx, parent.ID, true, false); err != nil {
		t.Errorf("expected force delete to succeed: %v", err)
	}
}

func TestDeleteDryRunDoesNotMutate(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	n, err := e.Add(ctx, "a task", AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	result, err := e.Delete(ctx, n.ID, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if !result.DryRun {
		t.Error("expected DryRun to be reported true")
	}
	if _, err := e.Store.GetNode(ctx, n.ID); err != nil {
		t.Errorf("expected node to still exist after a dry run delete: %v", err)
	}
}

func TestResolveIDRejectsUnknownAlias(t *testing.T) {
	e := setupTestEngine(t)
	if _, err := e.ResolveID(context.Background(), "no-such-alias"); !werr.Has(err, werr.NotFound) {
		t.Errorf("expected NotFound for an unknown alias, got %v", err)
	}
}

func TestDeleteInvokesArchiver(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	n, err := e.Add(ctx, "a task", AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	var archived *types.Node
	e.Archiver = func(ctx context.Context, n *types.Node) error {
		archived = n
		return nil
	}
	result, err := e.Delete(ctx, n.ID, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Archived {
		t.Error("expected Archived=true when an Archiver is set")
	}
	if archived == nil || archived.ID != n.ID {
		t.Errorf("expected the archiver to be called with the deleted node, got %+v", archived)
	}
}
