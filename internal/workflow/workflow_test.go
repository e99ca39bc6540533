package workflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/weave-dev/weave/internal/cache"
	"github.com/weave-dev/weave/internal/graph"
	"github.com/weave-dev/weave/internal/runtime"
	"github.com/weave-dev/weave/internal/storage/sqlite"
	"github.com/weave-dev/weave/internal/types"
)

func setupTestWorkflow(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.Open(context.Background(), filepath.Join(dir, "weave.db"))
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	g := graph.New(store, cache.New(dir))
	rt := &runtime.Runtime{ProjectRoot: dir, ColdZone: filepath.Join(dir, ".weave"), HotZone: dir}
	if err := rt.EnsureColdZone(); err != nil {
		t.Fatalf("EnsureColdZone: %v", err)
	}
	return New(g, store, nil, rt)
}

func TestDoneMarksNodeDone(t *testing.T) {
	e := setupTestWorkflow(t)
	ctx := context.Background()
	n, err := e.Graph.Add(ctx, "a task to close", graph.AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	result, err := e.Done(ctx, n.ID, DoneOptions{})
	if err != nil {
		t.Fatalf("Done: %v", err)
	}
	if result.Node.Status != types.StatusDone {
		t.Errorf("expected status done, got %s", result.Node.Status)
	}
}

func TestDoneStripsANSIEscapesFromLearning(t *testing.T) {
	e := setupTestWorkflow(t)
	ctx := context.Background()
	n, err := e.Graph.Add(ctx, "a task", graph.AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	result, err := e.Done(ctx, n.ID, DoneOptions{Learning: "\x1b[31mred text\x1b[0m plain"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Node.Metadata.Learning != "red text plain" {
		t.Errorf("expected ANSI escapes stripped, got %q", result.Node.Metadata.Learning)
	}
}

func TestDoneScoresLearningQuality(t *testing.T) {
	e := setupTestWorkflow(t)
	ctx := context.Background()
	n, err := e.Graph.Add(ctx, "a task", graph.AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	result, err := e.Done(ctx, n.ID, DoneOptions{Learning: "discovered a pitfall in the retry loop at retryLoop() in worker.go that cost a day"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Node.Metadata.LearningQuality == nil || *result.Node.Metadata.LearningQuality == 0 {
		t.Errorf("expected a nonzero learning quality score, got %+v", result.Node.Metadata.LearningQuality)
	}
}

func TestDoneSkipVerificationLeavesScoreUnset(t *testing.T) {
	e := setupTestWorkflow(t)
	ctx := context.Background()
	n, err := e.Graph.Add(ctx, "a task", graph.AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	result, err := e.Done(ctx, n.ID, DoneOptions{Learning: "some learning text here", SkipVerification: true})
	if err != nil {
		t.Fatal(err)
	}
	if result.Node.Metadata.LearningQuality != nil {
		t.Errorf("expected no score when SkipVerification is set, got %+v", result.Node.Metadata.LearningQuality)
	}
}

func TestDoneAutoUnblocksDependent(t *testing.T) {
	e := setupTestWorkflow(t)
	ctx := context.Background()
	blocked, err := e.Graph.Add(ctx, "blocked task", graph.AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	blocker, err := e.Graph.Add(ctx, "blocker task", graph.AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Graph.Block(ctx, blocked.ID, blocker.ID); err != nil {
		t.Fatal(err)
	}

	result, err := e.Done(ctx, blocker.ID, DoneOptions{})
	if err != nil {
		t.Fatalf("Done: %v", err)
	}
	if len(result.Unblocked) != 1 || result.Unblocked[0] != blocked.ID {
		t.Errorf("expected %s reported unblocked, got %+v", blocked.ID, result.Unblocked)
	}
	got, err := e.Store.GetNode(ctx, blocked.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.StatusTodo {
		t.Errorf("expected the dependent flipped back to todo, got %s", got.Status)
	}
}

func TestDoneDoesNotUnblockWhileOtherBlockerRemains(t *testing.T) {
	e := setupTestWorkflow(t)
	ctx := context.Background()
	blocked, _ := e.Graph.Add(ctx, "blocked task", graph.AddOptions{})
	blockerA, _ := e.Graph.Add(ctx, "blocker A", graph.AddOptions{})
	blockerB, _ := e.Graph.Add(ctx, "blocker B", graph.AddOptions{})
	if err := e.Graph.Block(ctx, blocked.ID, blockerA.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.Graph.Block(ctx, blocked.ID, blockerB.ID); err != nil {
		t.Fatal(err)
	}

	result, err := e.Done(ctx, blockerA.ID, DoneOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Unblocked) != 0 {
		t.Errorf("expected no unblock while blockerB is still open, got %+v", result.Unblocked)
	}
	got, err := e.Store.GetNode(ctx, blocked.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.StatusBlocked {
		t.Errorf("expected the node to remain blocked, got %s", got.Status)
	}
}

func TestWorkSetsStatusActive(t *testing.T) {
	e := setupTestWorkflow(t)
	ctx := context.Background()
	n, err := e.Graph.Add(ctx, "a task", graph.AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.Work(ctx, n.ID)
	if err != nil {
		t.Fatalf("Work: %v", err)
	}
	if got.Status != types.StatusActive {
		t.Errorf("expected status active, got %s", got.Status)
	}
}

func TestQuickCreatesAndClosesAtomically(t *testing.T) {
	e := setupTestWorkflow(t)
	ctx := context.Background()
	result, err := e.Quick(ctx, "a one-off task", "")
	if err != nil {
		t.Fatalf("Quick: %v", err)
	}
	if result.Node.Status != types.StatusDone {
		t.Errorf("expected the quick-created node to already be done, got %s", result.Node.Status)
	}
}

func TestBatchDoneStopsAtFirstError(t *testing.T) {
	e := setupTestWorkflow(t)
	ctx := context.Background()
	n, err := e.Graph.Add(ctx, "a real task", graph.AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	results, err := e.BatchDone(ctx, []string{n.ID, "wv-ffff"}, "")
	if err == nil {
		t.Fatal("expected an error for the unresolvable second id")
	}
	if len(results) != 1 {
		t.Errorf("expected the first result to still be returned, got %d", len(results))
	}
}

func TestBulkUpdateValidatesAllIDsUpFront(t *testing.T) {
	e := setupTestWorkflow(t)
	ctx := context.Background()
	n, err := e.Graph.Add(ctx, "a task", graph.AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.BulkUpdate(ctx, []BulkUpdateEntry{
		{ID: n.ID},
		{ID: "wv-ffff"},
	}, false)
	if err == nil {
		t.Fatal("expected BulkUpdate to reject the whole batch on one bad id")
	}
	// The valid entry must not have been applied either.
	got, err := e.Store.GetNode(ctx, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.StatusTodo {
		t.Errorf("expected no partial application, got status %s", got.Status)
	}
}

func TestBulkUpdateDryRunDoesNotWrite(t *testing.T) {
	e := setupTestWorkflow(t)
	ctx := context.Background()
	n, err := e.Graph.Add(ctx, "a task", graph.AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	active := types.StatusActive
	nodes, err := e.BulkUpdate(ctx, []BulkUpdateEntry{{ID: n.ID, Status: &active}}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected one node returned, got %d", len(nodes))
	}
	got, err := e.Store.GetNode(ctx, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.StatusTodo {
		t.Errorf("expected dry run to leave status untouched, got %s", got.Status)
	}
}

func TestBulkUpdateAppliesStatus(t *testing.T) {
	e := setupTestWorkflow(t)
	ctx := context.Background()
	n, err := e.Graph.Add(ctx, "a task", graph.AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	active := types.StatusActive
	_, err = e.BulkUpdate(ctx, []BulkUpdateEntry{{ID: n.ID, Status: &active}}, false)
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.Store.GetNode(ctx, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.StatusActive {
		t.Errorf("expected status active after BulkUpdate, got %s", got.Status)
	}
}

func TestParseAgeAcceptsHoursAndDays(t *testing.T) {
	cases := map[string]bool{
		"24h": true, "7d": true, "0h": false, "-1d": false, "3x": false, "": false, "h": false,
	}
	for spec, wantOK := range cases {
		_, err := ParseAge(spec)
		if wantOK && err != nil {
			t.Errorf("ParseAge(%q) should succeed: %v", spec, err)
		}
		if !wantOK && err == nil {
			t.Errorf("ParseAge(%q) should fail", spec)
		}
	}
}
