package workflow

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/weave-dev/weave/internal/graph"
	"github.com/weave-dev/weave/internal/journal"
	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/vcs"
	"github.com/weave-dev/weave/internal/werr"
)

// ShipOptions configures Ship.
type ShipOptions struct {
	Learning string
	GH       string // "" or "auto" (sync gh when the node or an ancestor has gh_issue), "forced", or "skip"
}

// ShipResult reports the outcome of a completed ship.
type ShipResult struct {
	Done   *DoneResult `json:"done"`
	Synced bool        `json:"synced"`
	Pushed bool        `json:"pushed"`
}

// Ship is the composite done → sync(gh) → commit .weave/ → push
// sequence, wrapped in one durable-journal operation so a crash between
// steps is resumable (spec 4.E `ship`).
func (e *Engine) Ship(ctx context.Context, idOrAlias string, opts ShipOptions) (*ShipResult, error) {
	nodeID, err := e.Graph.ResolveID(ctx, idOrAlias)
	if err != nil {
		return nil, err
	}

	forceGH := opts.GH == "forced" || (opts.GH != "skip" && e.ghIssueInAncestry(ctx, nodeID))

	var op *journal.Op
	var restore func()
	if e.Runtime != nil {
		j := journal.New(e.Runtime.JournalPath())
		op, err = journal.Begin(j, uuid.NewString(), "ship", map[string]string{"id": nodeID})
		if err != nil {
			return nil, werr.Wrap(werr.PersistenceError, err, "beginning ship journal")
		}
		restore = e.Runtime.BeginJournalGuard()
		defer restore()
	}

	markShipPending(ctx, e, nodeID, true)

	if op != nil {
		_ = op.StepPending(1, "done", nil)
	}
	doneResult, err := e.Done(ctx, nodeID, DoneOptions{Learning: opts.Learning})
	if err != nil {
		return nil, err
	}
	if op != nil {
		_ = op.StepDone(1, "done")
	}

	result := &ShipResult{Done: doneResult}

	if e.Syncer != nil {
		if op != nil {
			_ = op.StepPending(2, "sync", nil)
		}
		if err := e.Syncer.Sync(ctx, forceGH); err != nil {
			return result, werr.Wrap(werr.ExternalToolError, err, "ship sync step failed")
		}
		result.Synced = true
		if op != nil {
			_ = op.StepDone(2, "sync")
		}
	}

	if e.Runtime != nil {
		if op != nil {
			_ = op.StepPending(3, "commit", nil)
		}
		if err := vcs.StageAndCommit(ctx, []string{e.Runtime.ColdZone}, fmt.Sprintf("chore(weave): ship %s [skip ci]", nodeID)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: ship commit failed: %v\n", err)
		} else if op != nil {
			_ = op.StepDone(3, "commit")
		}

		if op != nil {
			_ = op.StepPending(4, "push", nil)
		}
		if err := vcs.Push(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: ship push failed: %v\n", err)
		} else {
			result.Pushed = true
			if op != nil {
				_ = op.StepDone(4, "push")
			}
		}
	}

	markShipPending(ctx, e, nodeID, false)
	if op != nil {
		_ = op.End()
	}
	return result, nil
}

// ghIssueInAncestry reports whether id or any ancestor via implements
// carries metadata.gh_issue, which auto-forces `ship`'s gh sync.
func (e *Engine) ghIssueInAncestry(ctx context.Context, nodeID string) bool {
	current := nodeID
	for i := 0; i < graph.MaxPathDepth; i++ {
		n, err := e.Store.GetNode(ctx, current)
		if err != nil {
			return false
		}
		if n.Metadata.GHIssue != nil {
			return true
		}
		parents, err := e.Store.EdgesFrom(ctx, current, types.EdgeImplements)
		if err != nil || len(parents) == 0 {
			return false
		}
		current = parents[0].Target
	}
	return false
}

// markShipPending sets/clears metadata.ship_pending so that after a
// volatile-storage wipe, the node-level marker can trigger recovery
// even if the journal file itself is gone (spec 4.G).
func markShipPending(ctx context.Context, e *Engine, nodeID string, pending bool) {
	n, err := e.Store.GetNode(ctx, nodeID)
	if err != nil {
		return
	}
	n.Metadata.ShipPending = pending
	_ = e.Store.UpdateNode(ctx, n)
}
