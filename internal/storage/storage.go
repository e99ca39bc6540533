// Package storage defines the typed data-access contract the graph and
// workflow engines consume (component B). The embedded implementation
// lives in internal/storage/sqlite; a future backend only needs to
// satisfy this interface.
package storage

import (
	"context"
	"database/sql"

	"github.com/weave-dev/weave/internal/types"
)

// NodeFilter narrows List/ready-style queries.
type NodeFilter struct {
	Status   types.Status
	Type     string
	Priority *int
	All      bool
}

// Store is the typed, parameterized data-access layer over the embedded
// relational store. Every query is parameterized; the only text
// interpolation permitted anywhere in an implementation is for
// identifiers drawn from the closed enums in internal/types.
type Store interface {
	// Node CRUD
	InsertNode(ctx context.Context, n *types.Node) error
	GetNode(ctx context.Context, id string) (*types.Node, error)
	GetNodeByAlias(ctx context.Context, alias string) (*types.Node, error)
	UpdateNode(ctx context.Context, n *types.Node) error
	DeleteNode(ctx context.Context, id string) error
	ListNodes(ctx context.Context, filter NodeFilter) ([]*types.Node, error)
	CountNodes(ctx context.Context) (int, error)

	// Edge CRUD
	UpsertEdge(ctx context.Context, e *types.Edge) error
	DeleteEdge(ctx context.Context, source, target string, t types.EdgeType) error
	DeleteEdgesForNode(ctx context.Context, nodeID string) error
	GetEdge(ctx context.Context, source, target string, t types.EdgeType) (*types.Edge, error)
	EdgesFrom(ctx context.Context, source string, t types.EdgeType) ([]*types.Edge, error)
	EdgesTo(ctx context.Context, target string, t types.EdgeType) ([]*types.Edge, error)
	EdgesForNode(ctx context.Context, nodeID string, t types.EdgeType) ([]*types.Edge, error)
	AllEdges(ctx context.Context) ([]*types.Edge, error)
	CountEdges(ctx context.Context) (int, error)

	// Full-text search, BM25-ranked.
	Search(ctx context.Context, query string, limit int, status types.Status) ([]*types.Node, error)
	Reindex(ctx context.Context) error
	TokenOverlap(ctx context.Context, text string, minShared int, onlyOpen bool) ([]*types.Node, error)

	// Integrity queries, used by health/clean-ghosts.
	GhostEdges(ctx context.Context) ([]*types.Edge, error)
	OrphanNodes(ctx context.Context) ([]*types.Node, error)

	// Lifecycle
	Close() error
	Path() string
	UnderlyingDB() *sql.DB

	// DumpText/LoadText implement the portable text dump/restore used
	// by the persistence protocol (component F).
	DumpText(ctx context.Context) (string, error)
	LoadText(ctx context.Context, text string) error
}
