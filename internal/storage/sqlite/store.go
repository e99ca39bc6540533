// Package sqlite is the embedded relational store backing Weave's hot
// zone (component B): write-ahead logging, a busy timeout, memory-mapped
// reads, and an FTS5 index over node text, all reachable through the
// storage.Store contract.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/werr"
)

// Store is the sqlite-backed implementation of storage.Store.
type Store struct {
	db   *sql.DB
	path string
}

// busyTimeout matches spec 4.B ("a busy-timeout of several seconds").
const busyTimeout = 5000 * time.Millisecond

// pageCountCap is a fixed page-count cap (≈1GB at the default
// 4096-byte page size), sized for a typical tmpfs/shm hot zone. It is
// not derived from the hot zone's actual capacity, and there is no
// setter to change it.
const pageCountCap = 262144

// Open opens (creating if absent) a sqlite database at path with the
// pragmas spec 4.B calls for.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=mmap_size(268435456)",
		path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, werr.Wrap(werr.PersistenceError, err, "opening database at %s", path)
	}
	db.SetMaxOpenConns(1) // single-writer discipline; WAL still allows concurrent readers across processes

	if _, err := db.ExecContext(ctx, fmt.Sprintf(`PRAGMA max_page_count = %d`, pageCountCap)); err != nil {
		db.Close()
		return nil, werr.Wrap(werr.PersistenceError, err, "setting page-count cap")
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, werr.Wrap(werr.PersistenceError, err, "enabling foreign keys")
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, werr.Wrap(werr.PersistenceError, err, "running migrations")
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error           { return s.db.Close() }
func (s *Store) Path() string           { return s.path }
func (s *Store) UnderlyingDB() *sql.DB  { return s.db }

func metadataToJSON(m types.Metadata) (string, error) {
	b, err := m.MarshalJSON()
	if err != nil {
		return "", werr.Wrap(werr.InvalidInput, err, "encoding metadata")
	}
	return string(b), nil
}

func metadataFromJSON(s string) (types.Metadata, error) {
	var m types.Metadata
	if s == "" {
		s = "{}"
	}
	if err := m.UnmarshalJSON([]byte(s)); err != nil {
		return types.Metadata{}, werr.Wrap(werr.InvalidInput, err, "decoding metadata")
	}
	return m, nil
}

func (s *Store) InsertNode(ctx context.Context, n *types.Node) error {
	metaJSON, err := metadataToJSON(n.Metadata)
	if err != nil {
		return err
	}
	var alias sql.NullString
	if n.Alias != "" {
		alias = sql.NullString{String: n.Alias, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, text, status, metadata, alias, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Text, string(n.Status), metaJSON, alias, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		if isUniqueConstraint(err) {
			return werr.Wrap(werr.Conflict, err, "duplicate alias or id")
		}
		return werr.Wrap(werr.PersistenceError, err, "inserting node %s", n.ID)
	}
	return nil
}

func (s *Store) scanNode(row interface{ Scan(...interface{}) error }) (*types.Node, error) {
	var n types.Node
	var status string
	var metaJSON string
	var alias sql.NullString
	if err := row.Scan(&n.ID, &n.Text, &status, &metaJSON, &alias, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Status = types.Status(status)
	if alias.Valid {
		n.Alias = alias.String
	}
	meta, err := metadataFromJSON(metaJSON)
	if err != nil {
		return nil, err
	}
	n.Metadata = meta
	return &n, nil
}

const nodeColumns = `id, text, status, metadata, alias, created_at, updated_at`

func (s *Store) GetNode(ctx context.Context, id string) (*types.Node, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	n, err := s.scanNode(row)
	if err == sql.ErrNoRows {
		return nil, werr.New(werr.NotFound, "node %s not found", id)
	}
	if err != nil {
		return nil, werr.Wrap(werr.PersistenceError, err, "loading node %s", id)
	}
	return n, nil
}

func (s *Store) GetNodeByAlias(ctx context.Context, alias string) (*types.Node, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE alias = ?`, alias)
	n, err := s.scanNode(row)
	if err == sql.ErrNoRows {
		return nil, werr.New(werr.NotFound, "alias %s not found", alias)
	}
	if err != nil {
		return nil, werr.Wrap(werr.PersistenceError, err, "loading alias %s", alias)
	}
	return n, nil
}

func (s *Store) UpdateNode(ctx context.Context, n *types.Node) error {
	metaJSON, err := metadataToJSON(n.Metadata)
	if err != nil {
		return err
	}
	var alias sql.NullString
	if n.Alias != "" {
		alias = sql.NullString{String: n.Alias, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE nodes SET text = ?, status = ?, metadata = ?, alias = ?, updated_at = ?
		WHERE id = ?`,
		n.Text, string(n.Status), metaJSON, alias, n.UpdatedAt, n.ID)
	if err != nil {
		if isUniqueConstraint(err) {
			return werr.Wrap(werr.Conflict, err, "duplicate alias")
		}
		return werr.Wrap(werr.PersistenceError, err, "updating node %s", n.ID)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return werr.New(werr.NotFound, "node %s not found", n.ID)
	}
	return nil
}

func (s *Store) DeleteNode(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return werr.Wrap(werr.PersistenceError, err, "deleting node %s", id)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return werr.New(werr.NotFound, "node %s not found", id)
	}
	return nil
}

func (s *Store) CountNodes(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&n)
	if err != nil {
		return 0, werr.Wrap(werr.PersistenceError, err, "counting nodes")
	}
	return n, nil
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed")
}
