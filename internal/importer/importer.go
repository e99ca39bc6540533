// Package importer implements the markdown plan importer (spec §6
// `import`/`plan`): a single, in-scope heuristic for turning a markdown
// checklist/outline into nodes, not a feature-complete port of any
// specific planning tool's format.
package importer

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/weave-dev/weave/internal/graph"
	"github.com/weave-dev/weave/internal/types"
)

// Item is one parsed line of the plan: a heading or a checklist entry.
type Item struct {
	Text     string
	Done     bool
	Depth    int // 0 = top-level heading, >0 = nested list item
	Metadata map[string]string
}

var headingPrefixes = []string{"### ", "## ", "# "}

// checklistLine matches "- [ ] text" / "- [x] text" / "* [X] text" at
// any indentation; indentation (2 spaces per level) sets Depth.
func parseChecklistLine(line string) (item Item, ok bool) {
	trimmed := strings.TrimLeft(line, " ")
	indent := len(line) - len(trimmed)
	for _, marker := range []string{"- [ ] ", "- [x] ", "- [X] ", "* [ ] ", "* [x] ", "* [X] "} {
		if strings.HasPrefix(trimmed, marker) {
			return Item{
				Text:  strings.TrimSpace(strings.TrimPrefix(trimmed, marker)),
				Done:  strings.Contains(marker, "x") || strings.Contains(marker, "X"),
				Depth: indent/2 + 1,
			}, true
		}
	}
	return Item{}, false
}

// Parse reads a markdown plan file's contents into a flat list of
// items: each `#`-heading becomes a depth-0 item, each checklist line
// underneath becomes a depth>=1 item. A `key: value` line with a known
// key (type, priority, alias, sprint; e.g. "type: feature") is folded
// into the Metadata of the most recent heading or checklist item; other
// lines are ignored.
func Parse(data []byte) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var current *Item
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		isHeading := false
		for _, prefix := range headingPrefixes {
			if strings.HasPrefix(line, prefix) {
				items = append(items, Item{Text: strings.TrimSpace(strings.TrimPrefix(line, prefix)), Metadata: map[string]string{}})
				current = &items[len(items)-1]
				isHeading = true
				break
			}
		}
		if isHeading {
			continue
		}

		if it, ok := parseChecklistLine(line); ok {
			it.Metadata = map[string]string{}
			items = append(items, it)
			current = &items[len(items)-1]
			continue
		}

		if current != nil {
			if k, v, ok := strings.Cut(strings.TrimSpace(line), ":"); ok && isAnnotationKey(k) {
				current.Metadata[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func isAnnotationKey(k string) bool {
	switch strings.ToLower(strings.TrimSpace(k)) {
	case "type", "priority", "alias", "sprint":
		return true
	default:
		return false
	}
}

// Options configures Import.
type Options struct {
	Filter map[string]string // only import items whose annotation Metadata[k]==v for every k
	DryRun bool
}

// Result reports what Import would do/did.
type Result struct {
	Created []string `json:"created,omitempty"` // node ids, empty on dry-run
	Skipped int      `json:"skipped"`
	Planned int      `json:"planned"` // item count that passed the filter
}

// Import creates nodes from parsed items, wiring depth>0 items to the
// preceding depth-0 heading via AddOptions.Parent (implements edge),
// honoring Filter and DryRun.
func Import(ctx context.Context, g *graph.Engine, items []Item, opts Options) (*Result, error) {
	result := &Result{}
	var lastParent string

	for _, it := range items {
		if !matchesFilter(it, opts.Filter) {
			result.Skipped++
			continue
		}
		result.Planned++

		if opts.DryRun {
			if it.Depth == 0 {
				lastParent = it.Text
			}
			continue
		}

		meta := types.Metadata{ImportedFrom: "plan"}
		if p, ok := it.Metadata["priority"]; ok {
			if n, err := strconv.Atoi(p); err == nil {
				meta.Priority = &n
			}
		}
		if t, ok := it.Metadata["type"]; ok {
			meta.Type = t
		}

		status := types.StatusTodo
		if it.Done {
			status = types.StatusDone
		}

		addOpts := graph.AddOptions{Status: status, Metadata: meta, Force: true}
		if it.Depth > 0 && lastParent != "" {
			addOpts.Parent = lastParent
		}
		if alias, ok := it.Metadata["alias"]; ok {
			addOpts.Alias = alias
		}

		n, err := g.Add(ctx, it.Text, addOpts)
		if err != nil {
			return result, fmt.Errorf("importing %q: %w", it.Text, err)
		}
		if it.Depth == 0 {
			lastParent = n.ID
		}
		result.Created = append(result.Created, n.ID)
	}
	return result, nil
}

func matchesFilter(it Item, filter map[string]string) bool {
	for k, v := range filter {
		if it.Metadata[k] != v {
			return false
		}
	}
	return true
}

// Plan imports a plan file scoped to one sprint, a thin wrapper over
// Import that fixes Filter to {"sprint": sprint} (spec §6 `plan FILE
// --sprint=N`).
func Plan(ctx context.Context, g *graph.Engine, data []byte, sprint int, dryRun bool) (*Result, error) {
	items, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Import(ctx, g, items, Options{
		Filter: map[string]string{"sprint": strconv.Itoa(sprint)},
		DryRun: dryRun,
	})
}
