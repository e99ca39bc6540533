package importer

import (
	"context"
	"path/filepath"
	"testing"

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

const samplePlan = `# Build the importer
type: feature
sprint: 1

- [ ] parse headings
- [x] parse checklist lines
  - [ ] handle nested items

# Ship it
sprint: 2

- [ ] write the release notes
`

func TestParseExtractsHeadingsAndChecklistItems(t *testing.T) {
	items, err := Parse([]byte(samplePlan))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected parsed items")
	}
	if items[0].Text != "Build the importer" || items[0].Depth != 0 {
		t.Errorf("expected the first item to be the top-level heading, got %+v", items[0])
	}
	if items[0].Metadata["type"] != "feature" || items[0].Metadata["sprint"] != "1" {
		t.Errorf("expected annotations folded into the heading item, got %+v", items[0].Metadata)
	}
}

func TestParseMarksDoneChecklistItems(t *testing.T) {
	items, err := Parse([]byte(samplePlan))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var done, notDone bool
	for _, it := range items {
		if it.Text == "parse checklist lines" && it.Done {
			done = true
		}
		if it.Text == "parse headings" && !it.Done {
			notDone = true
		}
	}
	if !done || !notDone {
		t.Errorf("expected done/not-done checklist state parsed correctly, got %+v", items)
	}
}

func TestParseTracksNestedDepth(t *testing.T) {
	items, err := Parse([]byte(samplePlan))
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range items {
		if it.Text == "handle nested items" {
			if it.Depth <= 1 {
				t.Errorf("expected a deeper nesting depth for the indented item, got %d", it.Depth)
			}
			return
		}
	}
	t.Fatal("expected to find the nested item")
}

func TestImportCreatesEveryParsedItem(t *testing.T) {
	g := setupTestEngine(t)
	items, err := Parse([]byte(samplePlan))
	if err != nil {
		t.Fatal(err)
	}
	result, err := Import(context.Background(), g, items, Options{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(result.Created) != len(items) {
		t.Errorf("expected every item created, got %d of %d", len(result.Created), len(items))
	}
}

func TestImportDryRunCreatesNothing(t *testing.T) {
	g := setupTestEngine(t)
	items, err := Parse([]byte(samplePlan))
	if err != nil {
		t.Fatal(err)
	}
	result, err := Import(context.Background(), g, items, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(result.Created) != 0 || result.Planned != len(items) {
		t.Errorf("unexpected dry run result: %+v", result)
	}
	n, err := g.Store.CountNodes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected no nodes created on a dry run, got %d", n)
	}
}

func TestImportSkipsItemsFailingFilter(t *testing.T) {
	g := setupTestEngine(t)
	items, err := Parse([]byte(samplePlan))
	if err != nil {
		t.Fatal(err)
	}
	result, err := Import(context.Background(), g, items, Options{Filter: map[string]string{"sprint": "2"}})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Skipped == 0 {
		t.Error("expected some items skipped by the sprint filter")
	}
}

func TestImportMarksDoneStatusFromChecklist(t *testing.T) {
	g := setupTestEngine(t)
	items, err := Parse([]byte("# Plan\n\n- [x] already finished\n"))
	if err != nil {
		t.Fatal(err)
	}
	result, err := Import(context.Background(), g, items, Options{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	n, err := g.Store.GetNode(context.Background(), result.Created[len(result.Created)-1])
	if err != nil {
		t.Fatal(err)
	}
	if n.Status != types.StatusDone {
		t.Errorf("expected the [x] item imported as done, got status %s", n.Status)
	}
}

func TestPlanFiltersToGivenSprint(t *testing.T) {
	g := setupTestEngine(t)
	result, err := Plan(context.Background(), g, []byte(samplePlan), 1, false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if result.Planned == 0 {
		t.Error("expected at least one item planned for sprint 1")
	}
	if result.Skipped == 0 {
		t.Error("expected the sprint-2 section skipped")
	}
}
