package workflow

import (
	"context"

	"github.com/weave-dev/weave/internal/storage"
	"github.com/weave-dev/weave/internal/types"
)

// Hint is a non-fatal, advisory message surfaced on add/update/done.
type Hint struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Hints centralizes the write-time advisory checks spec 4.E step 10
// names (missing learning, missing verification_method, orphan node),
// reused by add/update/done instead of repeating the checks at each
// call site.
func Hints(ctx context.Context, store storage.Store, n *types.Node) []Hint {
	var hints []Hint

	if n.Status == types.StatusDone {
		if n.Metadata.Learning == "" && n.Metadata.Decision == "" && n.Metadata.Pattern == "" && n.Metadata.Pitfall == "" {
			hints = append(hints, Hint{Code: "missing_learning", Message: "no learning recorded on this completed node"})
		}
		if n.Metadata.VerificationMethod == "" {
			hints = append(hints, Hint{Code: "missing_verification_method", Message: "no verification_method recorded"})
		}
	}

	edges, err := store.EdgesForNode(ctx, n.ID, "")
	if err == nil && len(edges) == 0 {
		hints = append(hints, Hint{Code: "orphan_node", Message: "node has no edges"})
	}
	return hints
}
