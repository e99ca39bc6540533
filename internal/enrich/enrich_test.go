package enrich

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/weave-dev/weave/internal/bridge"
	"github.com/weave-dev/weave/internal/cache"
	"github.com/weave-dev/weave/internal/graph"
	"github.com/weave-dev/weave/internal/storage/sqlite"
	"github.com/weave-dev/weave/internal/types"
)

func setupTestEngine(t *testing.T) *graph.Engine {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.Open(context.Background(), filepath.Join(dir, "weave.db"))
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return graph.New(store, cache.New(dir))
}

func TestParseSpecDecodesJSONArray(t *testing.T) {
	data := []byte(`[{"from":"wv-aaaa","to":"wv-bbbb","type":"blocks"}]`)
	specs, err := ParseSpec(data)
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}
	if len(specs) != 1 || specs[0].From != "wv-aaaa" || specs[0].Type != types.EdgeBlocks {
		t.Errorf("unexpected specs: %+v", specs)
	}
}

func TestParseSpecRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseSpec([]byte(`not json`)); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestApplyWiresBlocksEdge(t *testing.T) {
	g := setupTestEngine(t)
	ctx := context.Background()
	a, _ := g.Add(ctx, "a", graph.AddOptions{})
	b, _ := g.Add(ctx, "b", graph.AddOptions{Force: true})

	result, err := Apply(ctx, g, bridge.Noop{}, []EdgeSpec{{From: a.ID, To: b.ID, Type: types.EdgeBlocks}}, false, false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(result.Applied) != 1 || len(result.Failed) != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	updated, err := g.Store.GetNode(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != types.StatusBlocked {
		t.Errorf("expected %s blocked by the applied edge, got status %s", a.ID, updated.Status)
	}
}

func TestApplyWiresTypedLinkWithDefaultWeight(t *testing.T) {
	g := setupTestEngine(t)
	ctx := context.Background()
	a, _ := g.Add(ctx, "a", graph.AddOptions{})
	b, _ := g.Add(ctx, "b", graph.AddOptions{Force: true})

	result, err := Apply(ctx, g, bridge.Noop{}, []EdgeSpec{{From: a.ID, To: b.ID, Type: types.EdgeRelatesTo}}, false, false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(result.Applied) != 1 {
		t.Errorf("expected the link applied, got %+v", result)
	}
}

func TestApplyRecordsPerEntryFailureWithoutAbortingBatch(t *testing.T) {
	g := setupTestEngine(t)
	ctx := context.Background()
	a, _ := g.Add(ctx, "a", graph.AddOptions{})
	b, _ := g.Add(ctx, "b", graph.AddOptions{Force: true})

	specs := []EdgeSpec{
		{From: a.ID, To: "wv-ghost", Type: types.EdgeRelatesTo},
		{From: a.ID, To: b.ID, Type: types.EdgeRelatesTo},
	}
	result, err := Apply(ctx, g, bridge.Noop{}, specs, false, false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(result.Failed) != 1 {
		t.Errorf("expected exactly one failure for the ghost target, got %+v", result.Failed)
	}
	if len(result.Applied) != 1 {
		t.Errorf("expected the second, valid edge to still apply, got %+v", result.Applied)
	}
}

func TestApplyDryRunRecordsWithoutMutating(t *testing.T) {
	g := setupTestEngine(t)
	ctx := context.Background()
	a, _ := g.Add(ctx, "a", graph.AddOptions{})
	b, _ := g.Add(ctx, "b", graph.AddOptions{Force: true})

	result, err := Apply(ctx, g, bridge.Noop{}, []EdgeSpec{{From: a.ID, To: b.ID, Type: types.EdgeBlocks}}, true, false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !result.DryRun || len(result.Applied) != 1 {
		t.Errorf("unexpected dry run result: %+v", result)
	}
	updated, err := g.Store.GetNode(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status == types.StatusBlocked {
		t.Error("expected the dry run not to mutate node status")
	}
}
