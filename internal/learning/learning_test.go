package learning

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/weave-dev/weave/internal/storage/sqlite"
	"github.com/weave-dev/weave/internal/types"
)

func TestScoreLongTextWithMarkerAndFileRef(t *testing.T) {
	score := Score("pattern: retry loop in worker.go needed a backoff, learned the hard way over a long debugging session")
	if score != 4 {
		t.Errorf("expected a maxed-out score of 4, got %d", score)
	}
}

func TestScoreShortPlainText(t *testing.T) {
	score := Score("fixed it")
	if score != 0 {
		t.Errorf("expected a score of 0 for a short plain note, got %d", score)
	}
}

func TestScoreCapsAtFour(t *testing.T) {
	score := Score("pattern: decision: pitfall: technique: this is a very long note about worker.go and retryLoop() that covers everything")
	if score > 4 {
		t.Errorf("expected score capped at 4, got %d", score)
	}
}

func TestCombinedTextJoinsNonEmptyFields(t *testing.T) {
	m := types.Metadata{Decision: "use X", Pitfall: "watch out for Y"}
	got := CombinedText(m)
	if got != "use X watch out for Y" {
		t.Errorf("unexpected combined text: %q", got)
	}
}

func setupLearningStore(t *testing.T) *sqlite.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.Open(context.Background(), filepath.Join(dir, "weave.db"))
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestListFiltersByCategory(t *testing.T) {
	store := setupLearningStore(t)
	ctx := context.Background()
	now := time.Now()
	store.InsertNode(ctx, &types.Node{ID: "wv-aaaa", Text: "a", Status: types.StatusDone, CreatedAt: now, UpdatedAt: now,
		Metadata: types.Metadata{Decision: "use sqlite"}})
	store.InsertNode(ctx, &types.Node{ID: "wv-bbbb", Text: "b", Status: types.StatusDone, CreatedAt: now, UpdatedAt: now,
		Metadata: types.Metadata{Pitfall: "watch the cache"}})

	decisions, err := List(ctx, store, Filter{Category: "decision"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(decisions) != 1 || decisions[0].ID != "wv-aaaa" {
		t.Errorf("expected only the decision node, got %+v", decisions)
	}
}

func TestListFiltersByMinQuality(t *testing.T) {
	store := setupLearningStore(t)
	ctx := context.Background()
	now := time.Now()
	low, high := 1, 4
	store.InsertNode(ctx, &types.Node{ID: "wv-aaaa", Text: "a", Status: types.StatusDone, CreatedAt: now, UpdatedAt: now,
		Metadata: types.Metadata{Learning: "low", LearningQuality: &low}})
	store.InsertNode(ctx, &types.Node{ID: "wv-bbbb", Text: "b", Status: types.StatusDone, CreatedAt: now, UpdatedAt: now,
		Metadata: types.Metadata{Learning: "high", LearningQuality: &high}})

	got, err := List(ctx, store, Filter{MinQuality: 3})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != "wv-bbbb" {
		t.Errorf("expected only the high-quality node, got %+v", got)
	}
}

func TestListDedupDropsNearDuplicates(t *testing.T) {
	store := setupLearningStore(t)
	ctx := context.Background()
	now := time.Now()
	store.InsertNode(ctx, &types.Node{ID: "wv-aaaa", Text: "a", Status: types.StatusDone, CreatedAt: now, UpdatedAt: now,
		Metadata: types.Metadata{Learning: "the retry loop needed a backoff timer badly"}})
	store.InsertNode(ctx, &types.Node{ID: "wv-bbbb", Text: "b", Status: types.StatusDone, CreatedAt: now.Add(time.Minute), UpdatedAt: now.Add(time.Minute),
		Metadata: types.Metadata{Learning: "the retry loop needed a backoff timer urgently"}})

	got, err := List(ctx, store, Filter{Dedup: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected near-duplicate learnings collapsed to 1, got %d: %+v", len(got), got)
	}
}

func TestListRecentCapsResultCount(t *testing.T) {
	store := setupLearningStore(t)
	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 5; i++ {
		store.InsertNode(ctx, &types.Node{
			ID: "wv-" + string(rune('a'+i)) + "aaa", Text: "t", Status: types.StatusDone,
			CreatedAt: now, UpdatedAt: now.Add(time.Duration(i) * time.Minute),
			Metadata: types.Metadata{Learning: "distinct learning content number " + string(rune('a'+i))},
		})
	}
	got, err := List(ctx, store, Filter{Recent: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected Recent to cap at 2, got %d", len(got))
	}
}
