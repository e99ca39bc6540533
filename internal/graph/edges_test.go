package graph

import (
	"context"
	"testing"

	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/werr"
)

func TestBlockSetsStatusBlocked(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	a, _ := e.Add(ctx, "blocked task", AddOptions{})
	b, _ := e.Add(ctx, "blocker task", AddOptions{})

	if err := e.Block(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Block: %v", err)
	}
	got, err := e.Store.GetNode(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.StatusBlocked {
		t.Errorf("expected status blocked, got %s", got.Status)
	}
}

func TestBlockRejectsSelfBlock(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	a, _ := e.Add(ctx, "a task", AddOptions{})
	if err := e.Block(ctx, a.ID, a.ID); !werr.Has(err, werr.Conflict) {
		t.Errorf("expected Conflict for self-block, got %v", err)
	}
}

func TestBlockRejectsImmediateCounterCycle(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	a, _ := e.Add(ctx, "a", AddOptions{})
	b, _ := e.Add(ctx, "b", AddOptions{})
	if err := e.Block(ctx, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.Block(ctx, b.ID, a.ID); !werr.Has(err, werr.Conflict) {
		t.Errorf("expected Conflict for counter-cycle, got %v", err)
	}
}

func TestLinkRejectsSelfEdge(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	a, _ := e.Add(ctx, "a", AddOptions{})
	if err := e.Link(ctx, a.ID, a.ID, types.EdgeRelatesTo, 1.0, nil); !werr.Has(err, werr.InvalidInput) {
		t.Errorf("expected InvalidInput for self-edge, got %v", err)
	}
}

func TestLinkRejectsInvalidWeight(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	a, _ := e.Add(ctx, "a", AddOptions{})
	b, _ := e.Add(ctx, "b", AddOptions{})
	if err := e.Link(ctx, a.ID, b.ID, types.EdgeRelatesTo, 1.5, nil); err == nil {
		t.Error("expected an out-of-range weight to be rejected")
	}
}

func TestLinkUpsertsOnCollision(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	a, _ := e.Add(ctx, "a", AddOptions{})
	b, _ := e.Add(ctx, "b", AddOptions{})
	if err := e.Link(ctx, a.ID, b.ID, types.EdgeRelatesTo, 1.0, nil); err != nil {
		t.Fatal(err)
	}
	if err := e.Link(ctx, a.ID, b.ID, types.EdgeRelatesTo, 0.3, nil); err != nil {
		t.Fatal(err)
	}
	edges, err := e.EdgesOf(ctx, a.ID, types.EdgeRelatesTo)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].Weight != 0.3 {
		t.Errorf("expected a single edge with updated weight 0.3, got %+v", edges)
	}
}

func TestResolveWinnerMarksLoserDone(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	a, _ := e.Add(ctx, "approach A", AddOptions{})
	b, _ := e.Add(ctx, "approach B", AddOptions{})
	if err := e.Link(ctx, a.ID, b.ID, types.EdgeContradicts, 1.0, nil); err != nil {
		t.Fatal(err)
	}
	result, err := e.Resolve(ctx, a.ID, b.ID, types.ResolveWinner, a.ID, "A is simpler")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Winner != a.ID || result.Loser != b.ID {
		t.Errorf("unexpected result: %+v", result)
	}
	loser, err := e.Store.GetNode(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loser.Status != types.StatusDone {
		t.Errorf("expected loser marked done, got %s", loser.Status)
	}
}

func TestResolveWinnerRequiresWinnerRef(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	a, _ := e.Add(ctx, "a", AddOptions{})
	b, _ := e.Add(ctx, "b", AddOptions{})
	if _, err := e.Resolve(ctx, a.ID, b.ID, types.ResolveWinner, "", ""); !werr.Has(err, werr.InvalidInput) {
		t.Errorf("expected InvalidInput when --winner is missing, got %v", err)
	}
}

func TestResolveMergeCreatesMergedNode(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	a, _ := e.Add(ctx, "do it with sqlite", AddOptions{})
	b, _ := e.Add(ctx, "do it with postgres", AddOptions{Force: true})
	result, err := e.Resolve(ctx, a.ID, b.ID, types.ResolveMerge, "", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.MergedNode == "" {
		t.Fatal("expected a merged node id")
	}
	for _, orig := range []string{a.ID, b.ID} {
		n, err := e.Store.GetNode(ctx, orig)
		if err != nil {
			t.Fatal(err)
		}
		if n.Status != types.StatusDone {
			t.Errorf("expected original %s marked done after merge, got %s", orig, n.Status)
		}
	}
}

func TestResolveDeferCreatesBidirectionalRelatesTo(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	a, _ := e.Add(ctx, "a", AddOptions{})
	b, _ := e.Add(ctx, "b", AddOptions{})
	if _, err := e.Resolve(ctx, a.ID, b.ID, types.ResolveDefer, "", ""); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	fwd, err := e.Store.GetEdge(ctx, a.ID, b.ID, types.EdgeRelatesTo)
	if err != nil {
		t.Fatal(err)
	}
	back, err := e.Store.GetEdge(ctx, b.ID, a.ID, types.EdgeRelatesTo)
	if err != nil {
		t.Fatal(err)
	}
	if fwd.Weight != 0.5 || back.Weight != 0.5 {
		t.Errorf("expected both defer edges weighted 0.5, got %v and %v", fwd.Weight, back.Weight)
	}
}

func TestRelatedRespectsDirection(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	a, _ := e.Add(ctx, "a", AddOptions{})
	b, _ := e.Add(ctx, "b", AddOptions{})
	if err := e.Link(ctx, a.ID, b.ID, types.EdgeRelatesTo, 1.0, nil); err != nil {
		t.Fatal(err)
	}
	out, err := e.Related(ctx, a.ID, types.EdgeRelatesTo, types.DirectionOutbound)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Errorf("expected 1 outbound edge from a, got %d", len(out))
	}
	in, err := e.Related(ctx, a.ID, types.EdgeRelatesTo, types.DirectionInbound)
	if err != nil {
		t.Fatal(err)
	}
	if len(in) != 0 {
		t.Errorf("expected 0 inbound edges to a, got %d", len(in))
	}
}
