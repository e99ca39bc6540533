package sqlite

import (
	"context"
	"database/sql"

	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/werr"
)

const edgeColumns = `source, target, type, weight, context, created_at`

func (s *Store) scanEdge(row interface{ Scan(...interface{}) error }) (*types.Edge, error) {
	var e types.Edge
	var t string
	var ctxJSON sql.NullString
	if err := row.Scan(&e.Source, &e.Target, &t, &e.Weight, &ctxJSON, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Type = types.EdgeType(t)
	if ctxJSON.Valid && ctxJSON.String != "" {
		e.Context = []byte(ctxJSON.String)
	}
	return &e, nil
}

// UpsertEdge inserts an edge, or on (source,target,type) collision
// updates weight/context/created_at, per spec 4.D `link`.
func (s *Store) UpsertEdge(ctx context.Context, e *types.Edge) error {
	ctxJSON := "{}"
	if len(e.Context) > 0 {
		ctxJSON = string(e.Context)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO edges (source, target, type, weight, context, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, target, type) DO UPDATE SET
			weight = excluded.weight,
			context = excluded.context,
			created_at = excluded.created_at`,
		e.Source, e.Target, string(e.Type), e.Weight, ctxJSON, e.CreatedAt)
	if err != nil {
		return werr.Wrap(werr.PersistenceError, err, "upserting edge %s-%s-%s", e.Source, e.Type, e.Target)
	}
	return nil
}

func (s *Store) DeleteEdge(ctx context.Context, source, target string, t types.EdgeType) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM edges WHERE source = ? AND target = ? AND type = ?`,
		source, target, string(t))
	if err != nil {
		return werr.Wrap(werr.PersistenceError, err, "deleting edge %s-%s-%s", source, t, target)
	}
	return nil
}

func (s *Store) DeleteEdgesForNode(ctx context.Context, nodeID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM edges WHERE source = ? OR target = ?`, nodeID, nodeID)
	if err != nil {
		return werr.Wrap(werr.PersistenceError, err, "deleting edges incident to %s", nodeID)
	}
	return nil
}

func (s *Store) GetEdge(ctx context.Context, source, target string, t types.EdgeType) (*types.Edge, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+edgeColumns+` FROM edges WHERE source = ? AND target = ? AND type = ?`,
		source, target, string(t))
	e, err := s.scanEdge(row)
	if err == sql.ErrNoRows {
		return nil, werr.New(werr.NotFound, "edge %s-%s-%s not found", source, t, target)
	}
	if err != nil {
		return nil, werr.Wrap(werr.PersistenceError, err, "loading edge")
	}
	return e, nil
}

func queryEdges(ctx context.Context, s *Store, query string, args ...interface{}) ([]*types.Edge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, werr.Wrap(werr.PersistenceError, err, "querying edges")
	}
	defer rows.Close()
	var out []*types.Edge
	for rows.Next() {
		e, err := s.scanEdge(rows)
		if err != nil {
			return nil, werr.Wrap(werr.PersistenceError, err, "scanning edge")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) EdgesFrom(ctx context.Context, source string, t types.EdgeType) ([]*types.Edge, error) {
	if t == "" {
		return queryEdges(ctx, s, `SELECT `+edgeColumns+` FROM edges WHERE source = ? ORDER BY created_at`, source)
	}
	return queryEdges(ctx, s, `SELECT `+edgeColumns+` FROM edges WHERE source = ? AND type = ? ORDER BY created_at`, source, string(t))
}

func (s *Store) EdgesTo(ctx context.Context, target string, t types.EdgeType) ([]*types.Edge, error) {
	if t == "" {
		return queryEdges(ctx, s, `SELECT `+edgeColumns+` FROM edges WHERE target = ? ORDER BY created_at`, target)
	}
	return queryEdges(ctx, s, `SELECT `+edgeColumns+` FROM edges WHERE target = ? AND type = ? ORDER BY created_at`, target, string(t))
}

func (s *Store) EdgesForNode(ctx context.Context, nodeID string, t types.EdgeType) ([]*types.Edge, error) {
	if t == "" {
		return queryEdges(ctx, s, `SELECT `+edgeColumns+` FROM edges WHERE source = ? OR target = ? ORDER BY created_at`, nodeID, nodeID)
	}
	return queryEdges(ctx, s, `SELECT `+edgeColumns+` FROM edges WHERE (source = ? OR target = ?) AND type = ? ORDER BY created_at`, nodeID, nodeID, string(t))
}

func (s *Store) AllEdges(ctx context.Context) ([]*types.Edge, error) {
	return queryEdges(ctx, s, `SELECT `+edgeColumns+` FROM edges ORDER BY created_at`)
}

func (s *Store) CountEdges(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&n)
	if err != nil {
		return 0, werr.Wrap(werr.PersistenceError, err, "counting edges")
	}
	return n, nil
}

// GhostEdges returns edges whose endpoints are not live nodes. The core
// never creates these; their presence is always a detected integrity
// defect (spec invariant 1).
func (s *Store) GhostEdges(ctx context.Context) ([]*types.Edge, error) {
	return queryEdges(ctx, s, `
		SELECT `+edgeColumns+` FROM edges e
		WHERE NOT EXISTS (SELECT 1 FROM nodes WHERE id = e.source)
		   OR NOT EXISTS (SELECT 1 FROM nodes WHERE id = e.target)`)
}

// OrphanNodes returns nodes with no incident edge of any type.
func (s *Store) OrphanNodes(ctx context.Context) ([]*types.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+nodeColumns+` FROM nodes n
		WHERE NOT EXISTS (SELECT 1 FROM edges WHERE source = n.id OR target = n.id)`)
	if err != nil {
		return nil, werr.Wrap(werr.PersistenceError, err, "querying orphan nodes")
	}
	defer rows.Close()
	var out []*types.Node
	for rows.Next() {
		n, err := s.scanNode(rows)
		if err != nil {
			return nil, werr.Wrap(werr.PersistenceError, err, "scanning orphan node")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
