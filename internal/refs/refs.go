// Package refs implements the references extractor (spec §6 `refs`):
// a single, in-scope heuristic for pulling file/function/URL mentions
// out of free text, with an optional --link mode that wires matches to
// existing nodes via `references` edges.
package refs

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/weave-dev/weave/internal/graph"
	"github.com/weave-dev/weave/internal/types"
)

// Kind classifies what pattern matched.
type Kind string

const (
	KindFile Kind = "file"  // path/to/file.go:123
	KindCode Kind = "code"  // `funcName` or `pkg.Type.Method`
	KindURL  Kind = "url"
	KindLink Kind = "md_link" // [text](target)
)

// Reference is one extracted mention.
type Reference struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

var (
	fileRefPattern = regexp.MustCompile(`\b[\w./-]+\.(?:go|py|ts|tsx|js|md|yaml|yml|json|sql)(?::\d+)?\b`)
	codeRefPattern = regexp.MustCompile("`([^`]{2,80})`")
	urlPattern     = regexp.MustCompile(`https?://[^\s)]+`)
	mdLinkPattern  = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// Extract finds up to max references in text (max <= 0 means no limit),
// deduplicated by (kind, value). Results are grouped by kind (markdown
// links, then files, then code spans, then URLs), each group in order
// of appearance.
func Extract(text string, max int) []Reference {
	var out []Reference
	seen := map[string]bool{}
	add := func(r Reference) bool {
		key := string(r.Kind) + "\x00" + r.Value
		if seen[key] {
			return false
		}
		seen[key] = true
		out = append(out, r)
		return max <= 0 || len(out) < max
	}

	for _, m := range mdLinkPattern.FindAllStringSubmatch(text, -1) {
		if !add(Reference{Kind: KindLink, Value: m[2], Label: m[1]}) {
			return out
		}
	}
	for _, m := range fileRefPattern.FindAllString(text, -1) {
		if !add(Reference{Kind: KindFile, Value: m}) {
			return out
		}
	}
	for _, m := range codeRefPattern.FindAllStringSubmatch(text, -1) {
		if !add(Reference{Kind: KindCode, Value: m[1]}) {
			return out
		}
	}
	for _, m := range urlPattern.FindAllString(text, -1) {
		if !add(Reference{Kind: KindURL, Value: m}) {
			return out
		}
	}
	return out
}

// LinkResult reports which references resolved to an existing node.
type LinkResult struct {
	Reference Reference `json:"reference"`
	LinkedID  string    `json:"linked_id,omitempty"`
}

// Link searches the graph for a node whose text mentions each
// reference's value and creates a `references` edge from fromID to the
// best (first) match, skipping references with no match. It never
// fails the whole batch on one bad reference; link failures are
// reported per-entry, matching refs's own best-effort scoping.
func Link(ctx context.Context, g *graph.Engine, fromID string, references []Reference) ([]LinkResult, error) {
	results := make([]LinkResult, 0, len(references))
	for _, r := range references {
		query := r.Value
		if r.Kind == KindLink {
			query = r.Label
		}
		matches, err := g.Store.Search(ctx, query, 1, "")
		if err != nil || len(matches) == 0 {
			results = append(results, LinkResult{Reference: r})
			continue
		}
		target := matches[0]
		if target.ID == fromID {
			results = append(results, LinkResult{Reference: r})
			continue
		}
		ctxJSON, _ := json.Marshal(map[string]string{"value": r.Value, "kind": string(r.Kind)})
		if err := g.Link(ctx, fromID, target.ID, types.EdgeReferences, 1.0, ctxJSON); err != nil {
			results = append(results, LinkResult{Reference: r})
			continue
		}
		results = append(results, LinkResult{Reference: r, LinkedID: target.ID})
	}
	return results, nil
}

// Summary renders a one-line-per-reference plain text listing, used
// when --interactive / a TTY prompt loop isn't in play.
func Summary(references []Reference) string {
	sort.SliceStable(references, func(i, j int) bool { return references[i].Kind < references[j].Kind })
	var b strings.Builder
	for _, r := range references {
		b.WriteString(string(r.Kind))
		b.WriteString(": ")
		b.WriteString(r.Value)
		b.WriteString("\n")
	}
	return b.String()
}
