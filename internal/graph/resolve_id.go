package graph

import (
	"context"

	weaveid "github.com/weave-dev/weave/internal/id"
)

// resolveID accepts either a node id or an alias and returns the
// canonical node id, per spec 3 ("alias ... resolvable wherever an id
// is accepted").
func (e *Engine) resolveID(ctx context.Context, idOrAlias string) (string, error) {
	if weaveid.IsID(idOrAlias) {
		if err := weaveid.Validate(idOrAlias); err != nil {
			return "", err
		}
		return idOrAlias, nil
	}
	n, err := e.Store.GetNodeByAlias(ctx, idOrAlias)
	if err != nil {
		return "", err
	}
	return n.ID, nil
}

// ResolveID is the exported form, used by callers (workflow engine, RPC
// adaptor, CLI) that need to resolve an id/alias before further work.
func (e *Engine) ResolveID(ctx context.Context, idOrAlias string) (string, error) {
	return e.resolveID(ctx, idOrAlias)
}
