// Package ctxpack implements component J: the context-pack builder,
// cache-backed via the hot-zone cache.Store.
package ctxpack

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/weave-dev/weave/internal/cache"
	"github.com/weave-dev/weave/internal/graph"
	"github.com/weave-dev/weave/internal/storage"
	"github.com/weave-dev/weave/internal/types"
)

// MaxRelated and MaxPitfalls cap the context pack's related/pitfalls
// slices (spec 4.J: "related[≤5], pitfalls[≤3]").
const (
	MaxRelated  = 5
	MaxPitfalls = 3
)

// Learnings is the nested {decision?, pattern?, pitfall?} view spec 4.J
// attaches to each ancestor.
type Learnings struct {
	Decision string `json:"decision,omitempty"`
	Pattern  string `json:"pattern,omitempty"`
	Pitfall  string `json:"pitfall,omitempty"`
}

// Ancestor is one hop of the recursive blocks-ancestry chain.
type Ancestor struct {
	Node      *types.Node `json:"node"`
	Learnings Learnings   `json:"learnings"`
}

// Pack is the assembled context for a node.
type Pack struct {
	Node           *types.Node   `json:"node"`
	Blockers       []*types.Node `json:"blockers"`
	Ancestors      []Ancestor    `json:"ancestors"`
	Related        []*types.Node `json:"related"`
	Pitfalls       []*types.Node `json:"pitfalls"`
	Contradictions []*types.Node `json:"contradictions"`
}

// Builder assembles context packs, consulting the cache first.
type Builder struct {
	Graph *graph.Engine
	Store storage.Store
	Cache *cache.Store
}

func New(g *graph.Engine, store storage.Store, c *cache.Store) *Builder {
	return &Builder{Graph: g, Store: store, Cache: c}
}

// Build returns the context pack for idOrAlias, serving from cache when
// the cached stamp is not older than the newest updated_at among the
// node and its one-hop edge neighborhood (spec 4.C/4.J).
func (b *Builder) Build(ctx context.Context, idOrAlias string) (*Pack, error) {
	nodeID, err := b.Graph.ResolveID(ctx, idOrAlias)
	if err != nil {
		return nil, err
	}

	n, err := b.Store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	neighborhood, err := b.Store.EdgesForNode(ctx, nodeID, "")
	if err != nil {
		return nil, err
	}
	newest := n.UpdatedAt
	for _, e := range neighborhood {
		other := e.Source
		if other == nodeID {
			other = e.Target
		}
		on, err := b.Store.GetNode(ctx, other)
		if err == nil && on.UpdatedAt.After(newest) {
			newest = on.UpdatedAt
		}
	}

	if b.Cache != nil {
		if raw, ok := b.Cache.Get(nodeID, newest); ok {
			var p Pack
			if err := json.Unmarshal(raw, &p); err == nil {
				return &p, nil
			}
		}
	}

	pack, err := b.assemble(ctx, n)
	if err != nil {
		return nil, err
	}

	if b.Cache != nil {
		if raw, err := json.Marshal(pack); err == nil {
			_ = b.Cache.Put(nodeID, raw, newest)
		}
	}
	return pack, nil
}

func (b *Builder) assemble(ctx context.Context, n *types.Node) (*Pack, error) {
	pack := &Pack{Node: n}

	// blockers: incoming blocks sources whose status != done.
	blockerEdges, err := b.Store.EdgesTo(ctx, n.ID, types.EdgeBlocks)
	if err != nil {
		return nil, err
	}
	for _, e := range blockerEdges {
		bn, err := b.Store.GetNode(ctx, e.Source)
		if err == nil && bn.Status != types.StatusDone {
			pack.Blockers = append(pack.Blockers, bn)
		}
	}

	// ancestors: recursive blocks chain (depth<=100, visited-set
	// guarded) via the graph engine's path walk, each carrying its own
	// decision/pattern/pitfall learnings.
	chain, err := b.Graph.Path(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	ancestryIDs := map[string]bool{}
	for _, a := range chain {
		if a.ID == n.ID {
			continue
		}
		ancestryIDs[a.ID] = true
		pack.Ancestors = append(pack.Ancestors, Ancestor{
			Node: a,
			Learnings: Learnings{
				Decision: a.Metadata.Decision,
				Pattern:  a.Metadata.Pattern,
				Pitfall:  a.Metadata.Pitfall,
			},
		})
	}

	// related: non-blocks edges, sorted by weight desc, capped at 5.
	allTouching, err := b.Store.EdgesForNode(ctx, n.ID, "")
	if err != nil {
		return nil, err
	}
	var relatedEdges []*types.Edge
	for _, e := range allTouching {
		if e.Type != types.EdgeBlocks {
			relatedEdges = append(relatedEdges, e)
		}
	}
	sort.SliceStable(relatedEdges, func(i, j int) bool { return relatedEdges[i].Weight > relatedEdges[j].Weight })
	for _, e := range relatedEdges {
		other := e.Source
		if other == n.ID {
			other = e.Target
		}
		if rn, err := b.Store.GetNode(ctx, other); err == nil {
			pack.Related = append(pack.Related, rn)
		}
		if len(pack.Related) >= MaxRelated {
			break
		}
	}

	// pitfalls: nodes with metadata.pitfall that are in the node's
	// ancestry, or one edge away from an ancestor, capped at 3. The
	// ancestry base here also walks the implements-parent chain (a task's
	// epic is its ancestor too), not just the blocks chain the Ancestors
	// field above is scoped to — otherwise a task with no blocks edges at
	// all could never surface its epic's pitfall.
	pitfallAncestryIDs := map[string]bool{n.ID: true}
	for id := range ancestryIDs {
		pitfallAncestryIDs[id] = true
	}
	current := n.ID
	for i := 0; i < graph.MaxPathDepth; i++ {
		parents, err := b.Store.EdgesFrom(ctx, current, types.EdgeImplements)
		if err != nil || len(parents) == 0 {
			break
		}
		pitfallAncestryIDs[parents[0].Target] = true
		current = parents[0].Target
	}

	oneStepIDs := map[string]bool{}
	for id := range pitfallAncestryIDs {
		touching, err := b.Store.EdgesForNode(ctx, id, "")
		if err != nil {
			continue
		}
		for _, e := range touching {
			oneStepIDs[e.Source] = true
			oneStepIDs[e.Target] = true
		}
	}
	candidateIDs := map[string]bool{}
	for id := range pitfallAncestryIDs {
		candidateIDs[id] = true
	}
	for id := range oneStepIDs {
		candidateIDs[id] = true
	}
	var candidateOrder []string
	for _, a := range chain {
		if candidateIDs[a.ID] {
			candidateOrder = append(candidateOrder, a.ID)
		}
	}
	for id := range candidateIDs {
		found := false
		for _, c := range candidateOrder {
			if c == id {
				found = true
				break
			}
		}
		if !found {
			candidateOrder = append(candidateOrder, id)
		}
	}
	for _, id := range candidateOrder {
		if id == n.ID {
			continue
		}
		cn, err := b.Store.GetNode(ctx, id)
		if err != nil || cn.Metadata.Pitfall == "" {
			continue
		}
		pack.Pitfalls = append(pack.Pitfalls, cn)
		if len(pack.Pitfalls) >= MaxPitfalls {
			break
		}
	}

	// contradictions: all nodes joined by contradicts edges to n.
	contradicts, err := b.Store.EdgesForNode(ctx, n.ID, types.EdgeContradicts)
	if err != nil {
		return nil, err
	}
	for _, e := range contradicts {
		other := e.Source
		if other == n.ID {
			other = e.Target
		}
		if cn, err := b.Store.GetNode(ctx, other); err == nil {
			pack.Contradictions = append(pack.Contradictions, cn)
		}
	}

	return pack, nil
}
