package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is a single idempotent schema step. Run in order on every
// Open; each must leave the DB unchanged if already applied.
type migration struct {
	Name string
	Func func(*sql.DB) error
}

var migrationsList = []migration{
	{"base_schema", migrateBaseSchema},
	{"weave_metadata_table", migrateWeaveMetadataTable},
	{"priority_virtual_column", migratePriorityVirtualColumn},
	{"type_virtual_column", migrateTypeVirtualColumn},
	{"fts_reindex_on_drift", migrateFTSReindexOnDrift},
}

func migrateBaseSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("applying base schema: %w", err)
	}
	return nil
}

func migrateWeaveMetadataTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS weave_metadata (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
	return err
}

// migratePriorityVirtualColumn and migrateTypeVirtualColumn add the
// generated columns spec 4.B calls out ("priority virtual =
// metadata.priority", "type virtual = metadata.type") so queries and
// indices can reference them directly instead of extracting JSON inline
// at every call site.
func migratePriorityVirtualColumn(db *sql.DB) error {
	if hasColumn(db, "nodes", "priority") {
		return nil
	}
	_, err := db.Exec(`ALTER TABLE nodes ADD COLUMN priority INTEGER
		GENERATED ALWAYS AS (CAST(json_extract(metadata, '$.priority') AS INTEGER)) VIRTUAL`)
	if err != nil {
		return fmt.Errorf("adding priority virtual column: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_nodes_priority ON nodes(priority)`)
	return err
}

func migrateTypeVirtualColumn(db *sql.DB) error {
	if hasColumn(db, "nodes", "node_type") {
		return nil
	}
	_, err := db.Exec(`ALTER TABLE nodes ADD COLUMN node_type TEXT
		GENERATED ALWAYS AS (json_extract(metadata, '$.type')) VIRTUAL`)
	if err != nil {
		return fmt.Errorf("adding node_type virtual column: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(node_type)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_nodes_type_priority ON nodes(node_type, priority)`)
	return err
}

// migrateFTSReindexOnDrift detects an nodes/nodes_fts row-count mismatch
// (schema drift per invariant 5) and rebuilds the index rather than
// failing, per spec 4.B.
func migrateFTSReindexOnDrift(db *sql.DB) error {
	var nodeCount, ftsCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&nodeCount); err != nil {
		return err
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM nodes_fts`).Scan(&ftsCount); err != nil {
		return err
	}
	if nodeCount == ftsCount {
		return nil
	}
	_, err := db.Exec(`INSERT INTO nodes_fts(nodes_fts) VALUES('rebuild')`)
	return err
}

func hasColumn(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false
		}
		if name == column {
			return true
		}
	}
	return false
}

// runMigrations applies every migration in order.
func runMigrations(db *sql.DB) error {
	for _, m := range migrationsList {
		if err := m.Func(db); err != nil {
			return fmt.Errorf("migration %q: %w", m.Name, err)
		}
	}
	return nil
}

// Reindex rebuilds the FTS index unconditionally (used by `wv reindex`).
func (s *Store) Reindex(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO nodes_fts(nodes_fts) VALUES('rebuild')`)
	return err
}
