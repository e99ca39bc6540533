// Package enrich implements `enrich-topology` (spec §6): applying a
// batch of edges described in a JSON spec file in one pass, instead of
// one `link`/`block` invocation per edge.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/weave-dev/weave/internal/bridge"
	"github.com/weave-dev/weave/internal/graph"
	"github.com/weave-dev/weave/internal/types"
)

// EdgeSpec is one entry of the enrichment spec file: either a typed
// link or a blocks relationship (From is blocked by To when Type is
// "blocks", matching `block`'s own argument order).
type EdgeSpec struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Type    types.EdgeType  `json:"type"`
	Weight  float64         `json:"weight,omitempty"`
	Context json.RawMessage `json:"context,omitempty"`
}

// ParseSpec decodes a JSON array of EdgeSpec.
func ParseSpec(data []byte) ([]EdgeSpec, error) {
	var specs []EdgeSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parsing enrichment spec: %w", err)
	}
	return specs, nil
}

// EdgeOutcome reports what happened to one spec entry.
type EdgeOutcome struct {
	Spec  EdgeSpec `json:"spec"`
	Error string   `json:"error,omitempty"`
}

// Result is the outcome of an enrichment run.
type Result struct {
	Applied []EdgeOutcome `json:"applied,omitempty"`
	Failed  []EdgeOutcome `json:"failed,omitempty"`
	DryRun  bool          `json:"dry_run"`
}

// Apply wires every edge in specs via the graph engine's block/link
// operations, continuing past individual failures (each is recorded,
// not fatal to the batch — mirroring `bulk-update`'s per-entry
// reporting rather than its all-or-nothing validation, since topology
// edges are independent of each other). When syncGH is set and a
// parent's gh_issue exists, its issue body is refreshed through the
// bridge after all edges are applied.
func Apply(ctx context.Context, g *graph.Engine, br bridge.Bridge, specs []EdgeSpec, dryRun, syncGH bool) (*Result, error) {
	result := &Result{DryRun: dryRun}
	touchedParents := map[string]bool{}

	for _, spec := range specs {
		if dryRun {
			result.Applied = append(result.Applied, EdgeOutcome{Spec: spec})
			continue
		}

		var err error
		if spec.Type == types.EdgeBlocks {
			err = g.Block(ctx, spec.From, spec.To)
		} else {
			weight := spec.Weight
			if weight == 0 {
				weight = 1.0
			}
			err = g.Link(ctx, spec.From, spec.To, spec.Type, weight, spec.Context)
		}
		if err != nil {
			result.Failed = append(result.Failed, EdgeOutcome{Spec: spec, Error: err.Error()})
			continue
		}
		result.Applied = append(result.Applied, EdgeOutcome{Spec: spec})
		if spec.Type == types.EdgeImplements {
			touchedParents[spec.To] = true
		}
	}

	if syncGH && !dryRun && br != nil {
		for parentID := range touchedParents {
			n, err := g.Store.GetNode(ctx, parentID)
			if err != nil || n.Metadata.GHIssue == nil {
				continue
			}
			_ = br.RefreshParentBody(ctx, parentID)
		}
	}

	return result, nil
}
