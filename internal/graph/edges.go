package graph

import (
	"context"
	"encoding/json"
	"time"

	"github.com/weave-dev/weave/internal/id"
	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/werr"
)

// Block inserts a (blocker, id, blocks) edge and sets id's status to
// blocked (spec 4.D `block`). Rejects self-block and an immediate
// counter-cycle (blocker already blocked by id).
func (e *Engine) Block(ctx context.Context, idOrAlias, blockerOrAlias string) error {
	nodeID, err := e.resolveID(ctx, idOrAlias)
	if err != nil {
		return err
	}
	blockerID, err := e.resolveID(ctx, blockerOrAlias)
	if err != nil {
		return err
	}
	if nodeID == blockerID {
		return werr.New(werr.Conflict, "a node cannot block itself")
	}
	if existing, err := e.Store.GetEdge(ctx, nodeID, blockerID, types.EdgeBlocks); err == nil && existing != nil {
		return werr.New(werr.Conflict, "counter-cycle: %s already blocks %s", nodeID, blockerID)
	}

	now := time.Now().UTC()
	if err := e.Store.UpsertEdge(ctx, &types.Edge{
		Source: blockerID, Target: nodeID, Type: types.EdgeBlocks, Weight: 1.0, CreatedAt: now,
	}); err != nil {
		return err
	}

	n, err := e.Store.GetNode(ctx, nodeID)
	if err != nil {
		return err
	}
	n.Status = types.StatusBlocked
	n.UpdatedAt = now
	if err := e.Store.UpdateNode(ctx, n); err != nil {
		return err
	}
	e.invalidate(nodeID, blockerID)
	return nil
}

// Link upserts a typed edge (spec 4.D `link`). On primary-key collision
// weight/context/created_at are updated in place.
func (e *Engine) Link(ctx context.Context, fromOrAlias, toOrAlias string, t types.EdgeType, weight float64, edgeContext json.RawMessage) error {
	fromID, err := e.resolveID(ctx, fromOrAlias)
	if err != nil {
		return err
	}
	toID, err := e.resolveID(ctx, toOrAlias)
	if err != nil {
		return err
	}
	if fromID == toID {
		return werr.New(werr.InvalidInput, "no self-edges allowed")
	}
	if err := id.ValidateEdgeType(t); err != nil {
		return err
	}
	if err := id.ValidateWeight(weight); err != nil {
		return err
	}
	if t == types.EdgeBlocks {
		if existing, err := e.Store.GetEdge(ctx, toID, fromID, types.EdgeBlocks); err == nil && existing != nil {
			return werr.New(werr.Conflict, "counter-cycle: %s already blocks %s", toID, fromID)
		}
	}

	if err := e.Store.UpsertEdge(ctx, &types.Edge{
		Source: fromID, Target: toID, Type: t, Weight: weight, Context: edgeContext, CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}
	e.invalidate(fromID, toID)
	return nil
}

// ResolveResult reports the outcome of Resolve.
type ResolveResult struct {
	Mode       types.ResolveMode `json:"mode"`
	Winner     string            `json:"winner,omitempty"`
	Loser      string            `json:"loser,omitempty"`
	MergedNode string            `json:"merged_node,omitempty"`
}

// Resolve removes any contradicts edge between n1 and n2 and applies the
// chosen strategy, per spec 4.D `resolve`.
func (e *Engine) Resolve(ctx context.Context, n1Ref, n2Ref string, mode types.ResolveMode, winnerRef, rationale string) (*ResolveResult, error) {
	n1, err := e.resolveID(ctx, n1Ref)
	if err != nil {
		return nil, err
	}
	n2, err := e.resolveID(ctx, n2Ref)
	if err != nil {
		return nil, err
	}

	_ = e.Store.DeleteEdge(ctx, n1, n2, types.EdgeContradicts)
	_ = e.Store.DeleteEdge(ctx, n2, n1, types.EdgeContradicts)

	now := time.Now().UTC()
	switch mode {
	case types.ResolveWinner:
		if winnerRef == "" {
			return nil, werr.New(werr.InvalidInput, "--winner is required for mode=winner")
		}
		winner, err := e.resolveID(ctx, winnerRef)
		if err != nil {
			return nil, err
		}
		loser := n1
		if winner == n1 {
			loser = n2
		} else if winner != n2 {
			return nil, werr.New(werr.InvalidInput, "--winner must be one of %s, %s", n1, n2)
		}
		rationaleCtx, _ := json.Marshal(map[string]string{"rationale": rationale})
		if err := e.Store.UpsertEdge(ctx, &types.Edge{
			Source: winner, Target: loser, Type: types.EdgeSupersedes, Weight: 1.0, Context: rationaleCtx, CreatedAt: now,
		}); err != nil {
			return nil, err
		}
		if err := e.markDone(ctx, loser, now); err != nil {
			return nil, err
		}
		e.invalidate(n1, n2)
		return &ResolveResult{Mode: mode, Winner: winner, Loser: loser}, nil

	case types.ResolveMerge:
		n1Node, err := e.Store.GetNode(ctx, n1)
		if err != nil {
			return nil, err
		}
		n2Node, err := e.Store.GetNode(ctx, n2)
		if err != nil {
			return nil, err
		}
		mergedText := n1Node.Text + " / " + n2Node.Text
		// Force: the merged text always overlaps both still-open originals.
		merged, err := e.Add(ctx, mergedText, AddOptions{Force: true})
		if err != nil {
			return nil, err
		}
		for _, orig := range []string{n1, n2} {
			if err := e.Store.UpsertEdge(ctx, &types.Edge{
				Source: merged.ID, Target: orig, Type: types.EdgeObsoletes, Weight: 1.0, CreatedAt: now,
			}); err != nil {
				return nil, err
			}
			if err := e.markDone(ctx, orig, now); err != nil {
				return nil, err
			}
		}
		e.invalidate(n1, n2, merged.ID)
		return &ResolveResult{Mode: mode, MergedNode: merged.ID}, nil

	case types.ResolveDefer:
		if err := e.Store.UpsertEdge(ctx, &types.Edge{
			Source: n1, Target: n2, Type: types.EdgeRelatesTo, Weight: 0.5, CreatedAt: now,
		}); err != nil {
			return nil, err
		}
		if err := e.Store.UpsertEdge(ctx, &types.Edge{
			Source: n2, Target: n1, Type: types.EdgeRelatesTo, Weight: 0.5, CreatedAt: now,
		}); err != nil {
			return nil, err
		}
		e.invalidate(n1, n2)
		return &ResolveResult{Mode: mode}, nil

	default:
		return nil, werr.New(werr.InvalidInput, "invalid resolve mode %q", mode)
	}
}

func (e *Engine) markDone(ctx context.Context, nodeID string, now time.Time) error {
	n, err := e.Store.GetNode(ctx, nodeID)
	if err != nil {
		return err
	}
	n.Status = types.StatusDone
	n.UpdatedAt = now
	return e.Store.UpdateNode(ctx, n)
}

// Related lists the edges touching a node in the given direction,
// optionally filtered by type (spec 4.D `related`); blocks edges are
// included like any other type.
func (e *Engine) Related(ctx context.Context, idOrAlias string, t types.EdgeType, direction types.Direction) ([]*types.Edge, error) {
	nodeID, err := e.resolveID(ctx, idOrAlias)
	if err != nil {
		return nil, err
	}
	switch direction {
	case types.DirectionOutbound:
		return e.Store.EdgesFrom(ctx, nodeID, t)
	case types.DirectionInbound:
		return e.Store.EdgesTo(ctx, nodeID, t)
	default:
		return e.Store.EdgesForNode(ctx, nodeID, t)
	}
}

// EdgesOf lists every edge touching idOrAlias, optionally filtered by
// type (spec 4.D `edges`).
func (e *Engine) EdgesOf(ctx context.Context, idOrAlias string, t types.EdgeType) ([]*types.Edge, error) {
	nodeID, err := e.resolveID(ctx, idOrAlias)
	if err != nil {
		return nil, err
	}
	return e.Store.EdgesForNode(ctx, nodeID, t)
}
