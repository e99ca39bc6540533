// Package graph implements component D: CRUD for nodes/edges, recursive
// ancestry/tree queries, readiness computation, and the resolve/block/
// link operations. It is the layer the workflow engine (component E)
// builds on.
package graph

import (
	"context"
	"encoding/json"
	"time"

	"github.com/weave-dev/weave/internal/cache"
	"github.com/weave-dev/weave/internal/id"
	"github.com/weave-dev/weave/internal/storage"
	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/werr"
)

// DefaultNearDuplicateTokens is the minimum shared-token count that
// triggers the near-duplicate conflict on add (spec 4.D, configurable).
const DefaultNearDuplicateTokens = 2

// Engine wires the storage and cache layers into the node/edge
// operations spec 4.D describes.
type Engine struct {
	Store storage.Store
	Cache *cache.Store

	// NearDuplicateTokens overrides DefaultNearDuplicateTokens when > 0.
	NearDuplicateTokens int

	// Archiver, when set, is called before a node is physically removed
	// so the caller (persistence protocol) can write it to
	// .weave/archive/YYYY-MM-DD.jsonl before the row disappears.
	Archiver func(ctx context.Context, n *types.Node) error
}

func New(store storage.Store, c *cache.Store) *Engine {
	return &Engine{Store: store, Cache: c}
}

func (e *Engine) minSharedTokens() int {
	if e.NearDuplicateTokens > 0 {
		return e.NearDuplicateTokens
	}
	return DefaultNearDuplicateTokens
}

// tokenOverlapper narrows storage.Store to the near-duplicate helper, which
// isn't part of every conceivable backend's contract surface but is
// provided by the reference sqlite implementation.
type tokenOverlapper interface {
	TokenOverlap(ctx context.Context, text string, minShared int, onlyOpen bool) ([]*types.Node, error)
}

// AddOptions configures Add; zero values mean "use the default".
type AddOptions struct {
	Status   types.Status
	Metadata types.Metadata
	Alias    string
	Parent   string
	Force    bool
}

// Add creates a node (spec 4.D `add`). It rejects a duplicate alias,
// rejects near-duplicate open nodes by FTS token overlap unless Force,
// and when Parent is set adds an implements edge child→parent.
func (e *Engine) Add(ctx context.Context, text string, opts AddOptions) (*types.Node, error) {
	if text == "" {
		return nil, werr.New(werr.InvalidInput, "text must not be empty")
	}
	status := opts.Status
	if status == "" {
		status = types.StatusTodo
	}
	if err := id.ValidateStatus(status); err != nil {
		return nil, err
	}
	if opts.Alias != "" {
		if err := id.ValidateAlias(opts.Alias); err != nil {
			return nil, err
		}
		if _, err := e.Store.GetNodeByAlias(ctx, opts.Alias); err == nil {
			return nil, werr.New(werr.Conflict, "alias %q already in use", opts.Alias)
		} else if !werr.Has(err, werr.NotFound) {
			return nil, err
		}
	}

	if !opts.Force {
		if overlapper, ok := e.Store.(tokenOverlapper); ok {
			dupes, err := overlapper.TokenOverlap(ctx, text, e.minSharedTokens(), true)
			if err != nil {
				return nil, err
			}
			if len(dupes) > 0 {
				return nil, werr.WithRemedy(
					werr.New(werr.Conflict, "near-duplicate of existing open node %s; use --force to override", dupes[0].ID),
					"Use --force to create anyway",
				)
			}
		}
	}

	if opts.Parent != "" {
		if _, err := e.resolveID(ctx, opts.Parent); err != nil {
			return nil, err
		}
	}

	newID, err := id.New(func(candidate string) (bool, error) {
		_, err := e.Store.GetNode(ctx, candidate)
		if werr.Has(err, werr.NotFound) {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	node := &types.Node{
		ID:        newID,
		Text:      text,
		Status:    status,
		Metadata:  opts.Metadata,
		Alias:     opts.Alias,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Store.InsertNode(ctx, node); err != nil {
		return nil, err
	}

	if opts.Parent != "" {
		parentID, err := e.resolveID(ctx, opts.Parent)
		if err != nil {
			return nil, err
		}
		edge := &types.Edge{Source: node.ID, Target: parentID, Type: types.EdgeImplements, Weight: 1.0, CreatedAt: now}
		if err := e.Store.UpsertEdge(ctx, edge); err != nil {
			return nil, err
		}
		e.invalidate(node.ID, parentID)
	} else {
		e.invalidate(node.ID)
	}
	return node, nil
}

// UpdateOptions describes a shallow metadata-merging update (spec 4.D
// `update`). A nil pointer field means "leave unchanged".
type UpdateOptions struct {
	Status    *types.Status
	Text      *string
	Metadata  types.Metadata // merged shallowly into existing metadata
	HasMeta   bool
	Alias     *string
	RemoveKey string // deletes a single metadata key atomically
}

// Update applies a shallow metadata merge and any other supplied field
// changes to node id.
func (e *Engine) Update(ctx context.Context, idOrAlias string, opts UpdateOptions) (*types.Node, error) {
	nodeID, err := e.resolveID(ctx, idOrAlias)
	if err != nil {
		return nil, err
	}
	n, err := e.Store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	if opts.Status != nil {
		if err := id.ValidateStatus(*opts.Status); err != nil {
			return nil, err
		}
		n.Status = *opts.Status
	}
	if opts.Text != nil {
		if *opts.Text == "" {
			return nil, werr.New(werr.InvalidInput, "text must not be empty")
		}
		n.Text = *opts.Text
	}
	if opts.Alias != nil {
		if *opts.Alias != "" {
			if err := id.ValidateAlias(*opts.Alias); err != nil {
				return nil, err
			}
			existing, err := e.Store.GetNodeByAlias(ctx, *opts.Alias)
			if err == nil && existing.ID != n.ID {
				return nil, werr.New(werr.Conflict, "alias %q already in use", *opts.Alias)
			} else if err != nil && !werr.Has(err, werr.NotFound) {
				return nil, err
			}
		}
		n.Alias = *opts.Alias
	}
	if opts.HasMeta {
		n.Metadata = mergeMetadata(n.Metadata, opts.Metadata)
	}
	if opts.RemoveKey != "" {
		n.Metadata = removeMetadataKey(n.Metadata, opts.RemoveKey)
	}

	n.UpdatedAt = time.Now().UTC()
	if err := e.Store.UpdateNode(ctx, n); err != nil {
		return nil, err
	}
	e.invalidate(n.ID)
	return n, nil
}

// mergeMetadata shallowly merges update into base: top-level keys in
// update replace the same key in base; keys only in base are kept.
func mergeMetadata(base, update types.Metadata) types.Metadata {
	baseJSON, _ := base.MarshalJSON()
	updateJSON, _ := update.MarshalJSON()

	var baseMap, updateMap map[string]json.RawMessage
	_ = json.Unmarshal(baseJSON, &baseMap)
	_ = json.Unmarshal(updateJSON, &updateMap)
	if baseMap == nil {
		baseMap = map[string]json.RawMessage{}
	}
	for k, v := range updateMap {
		baseMap[k] = v
	}
	merged, _ := json.Marshal(baseMap)
	var out types.Metadata
	_ = out.UnmarshalJSON(merged)
	return out
}

func removeMetadataKey(m types.Metadata, key string) types.Metadata {
	raw, _ := m.MarshalJSON()
	var asMap map[string]json.RawMessage
	_ = json.Unmarshal(raw, &asMap)
	delete(asMap, key)
	merged, _ := json.Marshal(asMap)
	var out types.Metadata
	_ = out.UnmarshalJSON(merged)
	return out
}

// DeleteResult reports what Delete would do or did.
type DeleteResult struct {
	ID           string   `json:"id"`
	Archived     bool     `json:"archived"`
	EdgesRemoved int      `json:"edges_removed"`
	Children     []string `json:"children,omitempty"`
	DryRun       bool     `json:"dry_run"`
}

// Delete removes a node (spec 4.D `delete`): rejects if the node has
// children (incoming implements) unless force, archives to JSONL,
// removes incident edges, invalidates neighbor cache.
func (e *Engine) Delete(ctx context.Context, idOrAlias string, force, dryRun bool) (*DeleteResult, error) {
	nodeID, err := e.resolveID(ctx, idOrAlias)
	if err != nil {
		return nil, err
	}
	children, err := e.Store.EdgesTo(ctx, nodeID, types.EdgeImplements)
	if err != nil {
		return nil, err
	}
	var childIDs []string
	for _, c := range children {
		childIDs = append(childIDs, c.Source)
	}
	if len(childIDs) > 0 && !force {
		return nil, werr.WithRemedy(
			werr.New(werr.Conflict, "node %s has %d children; refusing to delete", nodeID, len(childIDs)),
			"Use --force to delete along with its children's implements edges",
		)
	}

	incident, err := e.Store.EdgesForNode(ctx, nodeID, "")
	if err != nil {
		return nil, err
	}
	neighbors := neighborSet(nodeID, incident)

	result := &DeleteResult{ID: nodeID, EdgesRemoved: len(incident), Children: childIDs, DryRun: dryRun}
	if dryRun {
		return result, nil
	}

	if e.Archiver != nil {
		n, err := e.Store.GetNode(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		if err := e.Archiver(ctx, n); err != nil {
			return nil, werr.Wrap(werr.PersistenceError, err, "archiving node %s", nodeID)
		}
		result.Archived = true
	}

	if err := e.Store.DeleteEdgesForNode(ctx, nodeID); err != nil {
		return nil, err
	}
	if err := e.Store.DeleteNode(ctx, nodeID); err != nil {
		return nil, err
	}
	e.invalidate(append(neighbors, nodeID)...)
	return result, nil
}

func neighborSet(nodeID string, edges []*types.Edge) []string {
	seen := map[string]bool{}
	var out []string
	for _, ed := range edges {
		other := ed.Source
		if other == nodeID {
			other = ed.Target
		}
		if other != nodeID && !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	return out
}

func (e *Engine) invalidate(ids ...string) {
	if e.Cache != nil {
		e.Cache.Invalidate(ids...)
	}
}
