package sqlite

import (
	"context"
	"regexp"
	"strings"

	"github.com/weave-dev/weave/internal/storage"
	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/werr"
)

// ListNodes orders by priority desc then created_at desc, per spec 4.D
// tie-break rules. Done nodes are excluded unless filter.All is set or
// filter.Status names a status explicitly.
func (s *Store) ListNodes(ctx context.Context, filter storage.NodeFilter) ([]*types.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE 1=1`
	var args []interface{}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	} else if !filter.All {
		query += ` AND status != ?`
		args = append(args, string(types.StatusDone))
	}
	if filter.Type != "" {
		query += ` AND json_extract(metadata, '$.type') = ?`
		args = append(args, filter.Type)
	}
	if filter.Priority != nil {
		query += ` AND json_extract(metadata, '$.priority') = ?`
		args = append(args, *filter.Priority)
	}
	query += ` ORDER BY json_extract(metadata, '$.priority') DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, werr.Wrap(werr.PersistenceError, err, "listing nodes")
	}
	defer rows.Close()
	var out []*types.Node
	for rows.Next() {
		n, err := s.scanNode(rows)
		if err != nil {
			return nil, werr.Wrap(werr.PersistenceError, err, "scanning node")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// wrapAsPhrase neutralizes FTS5 operator characters by wrapping the
// query as a quoted phrase, per spec 4.D `search`.
func wrapAsPhrase(query string) string {
	escaped := strings.ReplaceAll(query, `"`, `""`)
	return `"` + escaped + `"`
}

// Search runs a BM25-ranked full-text query, ascending by rank (best
// match first) per spec 4.D tie-break rules.
func (s *Store) Search(ctx context.Context, query string, limit int, status types.Status) ([]*types.Node, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
		SELECT n.id, n.text, n.status, n.metadata, n.alias, n.created_at, n.updated_at
		FROM nodes_fts f
		JOIN nodes n ON n.id = f.id
		WHERE f.text MATCH ?`
	args := []interface{}{wrapAsPhrase(query)}
	if status != "" {
		q += ` AND n.status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY bm25(nodes_fts) ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, werr.Wrap(werr.PersistenceError, err, "searching nodes")
	}
	defer rows.Close()
	var out []*types.Node
	for rows.Next() {
		n, err := s.scanNode(rows)
		if err != nil {
			return nil, werr.Wrap(werr.PersistenceError, err, "scanning search result")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9]+`)

// Tokenize lowercases and splits into alphanumeric tokens, the shared
// primitive behind near-duplicate detection (4.D `add`) and learning
// Jaccard dedup (4.H).
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// TokenOverlap returns nodes whose text shares at least minShared
// distinct tokens with text (only non-done nodes when onlyOpen),
// implementing the near-duplicate check in `add`.
func (s *Store) TokenOverlap(ctx context.Context, text string, minShared int, onlyOpen bool) ([]*types.Node, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}
	tokenSet := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = true
	}

	filter := storage.NodeFilter{All: !onlyOpen}
	candidates, err := s.ListNodes(ctx, filter)
	if err != nil {
		return nil, err
	}
	var out []*types.Node
	for _, n := range candidates {
		if onlyOpen && n.Status == types.StatusDone {
			continue
		}
		shared := 0
		seen := make(map[string]bool)
		for _, t := range Tokenize(n.Text) {
			if tokenSet[t] && !seen[t] {
				seen[t] = true
				shared++
			}
		}
		if shared >= minShared {
			out = append(out, n)
		}
	}
	return out, nil
}
