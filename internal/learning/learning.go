// Package learning implements component H: the learning quality scorer
// and the `learnings` query with its category/grep/recency/dedup
// filters.
package learning

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/weave-dev/weave/internal/storage"
	"github.com/weave-dev/weave/internal/storage/sqlite"
	"github.com/weave-dev/weave/internal/types"
)

// qualityMarkers are the prefixes whose presence in a learning's text
// signals a structured, useful note rather than a throwaway line.
var qualityMarkers = []string{"pattern:", "pitfall:", "decision:", "technique:"}

// fileRefPattern matches a plausible file path, extension, or function
// call, the third scoring signal in spec 4.H.
var fileRefPattern = regexp.MustCompile(`[\w./-]+\.[A-Za-z]{1,5}\b|\b\w+\(\)`)

// Score computes learning_quality ∈ {0..4} for the combined text of a
// node's learning-bearing metadata fields.
func Score(combinedText string) int {
	score := 0
	if len(combinedText) > 20 {
		score++
	}
	lower := strings.ToLower(combinedText)
	for _, marker := range qualityMarkers {
		if strings.Contains(lower, marker) {
			score += 2
			break
		}
	}
	if fileRefPattern.MatchString(combinedText) {
		score++
	}
	if score > 4 {
		score = 4
	}
	return score
}

// CombinedText concatenates the learning-bearing metadata fields used
// both for scoring and for dedup comparison.
func CombinedText(m types.Metadata) string {
	var parts []string
	for _, s := range []string{m.Decision, m.Pattern, m.Pitfall, m.Learning} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Filter narrows the `learnings` query.
type Filter struct {
	Node       string
	Category   string // decision | pattern | pitfall | learning
	Grep       string
	Recent     int // last N
	MinQuality int
	Dedup      bool
}

func hasCategory(m types.Metadata, category string) bool {
	switch category {
	case "decision":
		return m.Decision != ""
	case "pattern":
		return m.Pattern != ""
	case "pitfall":
		return m.Pitfall != ""
	case "learning":
		return m.Learning != ""
	default:
		return m.Decision != "" || m.Pattern != "" || m.Pitfall != "" || m.Learning != ""
	}
}

// List returns nodes with learning metadata matching filter, newest
// first, deduplicated by Jaccard token overlap when filter.Dedup is set.
func List(ctx context.Context, store storage.Store, f Filter) ([]*types.Node, error) {
	all, err := store.ListNodes(ctx, storage.NodeFilter{All: true})
	if err != nil {
		return nil, err
	}

	var out []*types.Node
	for _, n := range all {
		if !hasCategory(n.Metadata, f.Category) {
			continue
		}
		if f.Node != "" && n.ID != f.Node && n.Alias != f.Node {
			continue
		}
		combined := CombinedText(n.Metadata)
		if f.Grep != "" && !strings.Contains(strings.ToLower(combined), strings.ToLower(f.Grep)) {
			continue
		}
		if f.MinQuality > 0 {
			if n.Metadata.LearningQuality == nil || *n.Metadata.LearningQuality < f.MinQuality {
				continue
			}
		}
		out = append(out, n)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if f.Recent > 0 && len(out) > f.Recent {
		out = out[:f.Recent]
	}
	if f.Dedup {
		out = dedup(out)
	}
	return out, nil
}

// dedup drops later entries whose combined text has Jaccard token
// overlap ≥0.6 against an earlier (already-kept) entry — tokens are
// alphanumeric, length>2, case-folded (spec 4.H).
func dedup(nodes []*types.Node) []*types.Node {
	var kept []*types.Node
	var keptTokens []map[string]bool
	for _, n := range nodes {
		tokens := significantTokens(n)
		isDup := false
		for _, other := range keptTokens {
			if jaccard(tokens, other) >= 0.6 {
				isDup = true
				break
			}
		}
		if !isDup {
			kept = append(kept, n)
			keptTokens = append(keptTokens, tokens)
		}
	}
	return kept
}

func significantTokens(n *types.Node) map[string]bool {
	out := map[string]bool{}
	for _, t := range sqlite.Tokenize(CombinedText(n.Metadata)) {
		if len(t) > 2 {
			out[t] = true
		}
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
