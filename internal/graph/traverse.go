package graph

import (
	"context"
	"sort"

	"github.com/weave-dev/weave/internal/storage"
	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/werr"
)

// MaxPathDepth bounds the ancestry walk in Path (spec 4.D `path`).
const MaxPathDepth = 100

// MaxTreeDepth bounds the descent in Tree (spec 4.D `tree`).
const MaxTreeDepth = 99

// Path walks the ancestry chain over blocks edges starting at id: id
// itself, then every node that (transitively) blocks it, breadth-first.
// The original design carries a comma-delimited visited set through a
// recursive query to reject revisits; here an explicit visited set and
// an iterative queue do the same job without recursion, bounded at
// MaxPathDepth hops.
func (e *Engine) Path(ctx context.Context, idOrAlias string) ([]*types.Node, error) {
	nodeID, err := e.resolveID(ctx, idOrAlias)
	if err != nil {
		return nil, err
	}

	start, err := e.Store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	type frontierEntry struct {
		id    string
		depth int
	}
	chain := []*types.Node{start}
	visited := map[string]bool{nodeID: true}
	queue := []frontierEntry{{nodeID, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= MaxPathDepth {
			continue
		}
		blockers, err := e.Store.EdgesTo(ctx, cur.id, types.EdgeBlocks)
		if err != nil {
			return nil, err
		}
		for _, b := range blockers {
			if visited[b.Source] {
				continue // already on the chain: cycle or diamond, skip
			}
			visited[b.Source] = true
			n, err := e.Store.GetNode(ctx, b.Source)
			if err != nil {
				if werr.Has(err, werr.NotFound) {
					continue // ghost edge
				}
				return nil, err
			}
			chain = append(chain, n)
			if len(chain) >= MaxPathDepth {
				return chain, nil
			}
			queue = append(queue, frontierEntry{b.Source, cur.depth + 1})
		}
	}
	return chain, nil
}

// TreeNode is one level of the descendant tree Tree returns.
type TreeNode struct {
	Node     *types.Node `json:"node"`
	Children []*TreeNode `json:"children,omitempty"`
}

// Tree builds the descendant tree rooted at id by repeatedly following
// incoming implements edges (children implement their parent), bounded
// to MaxTreeDepth and guarded against cycles with a per-branch visited
// set.
func (e *Engine) Tree(ctx context.Context, idOrAlias string) (*TreeNode, error) {
	rootID, err := e.resolveID(ctx, idOrAlias)
	if err != nil {
		return nil, err
	}
	root, err := e.Store.GetNode(ctx, rootID)
	if err != nil {
		return nil, err
	}
	visited := map[string]bool{rootID: true}
	return e.buildTree(ctx, root, visited, 0)
}

func (e *Engine) buildTree(ctx context.Context, n *types.Node, visited map[string]bool, depth int) (*TreeNode, error) {
	out := &TreeNode{Node: n}
	if depth >= MaxTreeDepth {
		return out, nil
	}
	childEdges, err := e.Store.EdgesTo(ctx, n.ID, types.EdgeImplements)
	if err != nil {
		return nil, err
	}
	sort.Slice(childEdges, func(i, j int) bool { return childEdges[i].Source < childEdges[j].Source })
	for _, ce := range childEdges {
		if visited[ce.Source] {
			continue
		}
		visited[ce.Source] = true
		childNode, err := e.Store.GetNode(ctx, ce.Source)
		if err != nil {
			return nil, err
		}
		childTree, err := e.buildTree(ctx, childNode, visited, depth+1)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, childTree)
	}
	return out, nil
}

// Roots returns every node with no outbound implements edge — the
// forest roots Tree can be called on.
func (e *Engine) Roots(ctx context.Context) ([]*types.Node, error) {
	all, err := e.Store.ListNodes(ctx, storage.NodeFilter{All: true})
	if err != nil {
		return nil, err
	}
	var roots []*types.Node
	for _, n := range all {
		parents, err := e.Store.EdgesFrom(ctx, n.ID, types.EdgeImplements)
		if err != nil {
			return nil, err
		}
		if len(parents) == 0 {
			roots = append(roots, n)
		}
	}
	return roots, nil
}

// Ready lists todo nodes with no incoming non-done blocks edge, ordered
// by created_at ascending (spec 4.D `ready`: "the nodes an agent could
// pick up right now").
func (e *Engine) Ready(ctx context.Context) ([]*types.Node, error) {
	candidates, err := e.Store.ListNodes(ctx, storage.NodeFilter{Status: types.StatusTodo, All: true})
	if err != nil {
		return nil, err
	}

	var ready []*types.Node
	for _, n := range candidates {
		blockers, err := e.Store.EdgesTo(ctx, n.ID, types.EdgeBlocks)
		if err != nil {
			return nil, err
		}
		blocked := false
		for _, b := range blockers {
			blocker, err := e.Store.GetNode(ctx, b.Source)
			if err != nil {
				if werr.Has(err, werr.NotFound) {
					continue // ghost edge; clean-ghosts handles these separately
				}
				return nil, err
			}
			if blocker.Status != types.StatusDone {
				blocked = true
				break
			}
		}
		if !blocked {
			ready = append(ready, n)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].CreatedAt.Before(ready[j].CreatedAt) })
	return ready, nil
}
