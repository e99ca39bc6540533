package sqlite

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/weave-dev/weave/internal/werr"
)

// DumpText renders the database as a portable sequence of INSERT
// statements (spec 4.F's "full text dump of the hot DB (portable text
// format)"). It is deliberately simpler than a full SQLite .dump: just
// enough DDL to recreate the schema plus one INSERT per row, so the
// output loads on any sqlite implementing the same schema.
func (s *Store) DumpText(ctx context.Context) (string, error) {
	var sb strings.Builder
	sb.WriteString("-- weave state dump\n")
	sb.WriteString("BEGIN TRANSACTION;\n")
	sb.WriteString(schema)
	sb.WriteString("\n")

	nodeRows, err := s.db.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes ORDER BY id`)
	if err != nil {
		return "", werr.Wrap(werr.PersistenceError, err, "dumping nodes")
	}
	for nodeRows.Next() {
		n, err := s.scanNode(nodeRows)
		if err != nil {
			nodeRows.Close()
			return "", werr.Wrap(werr.PersistenceError, err, "scanning node for dump")
		}
		metaJSON, err := metadataToJSON(n.Metadata)
		if err != nil {
			nodeRows.Close()
			return "", err
		}
		alias := "NULL"
		if n.Alias != "" {
			alias = sqlQuote(n.Alias)
		}
		fmt.Fprintf(&sb, "INSERT INTO nodes (id, text, status, metadata, alias, created_at, updated_at) VALUES (%s, %s, %s, %s, %s, %s, %s);\n",
			sqlQuote(n.ID), sqlQuote(n.Text), sqlQuote(string(n.Status)), sqlQuote(metaJSON), alias,
			sqlQuote(n.CreatedAt.Format(timeLayout)), sqlQuote(n.UpdatedAt.Format(timeLayout)))
	}
	if err := nodeRows.Err(); err != nil {
		nodeRows.Close()
		return "", werr.Wrap(werr.PersistenceError, err, "iterating nodes for dump")
	}
	nodeRows.Close()

	edgeRows, err := s.db.QueryContext(ctx, `SELECT `+edgeColumns+` FROM edges ORDER BY source, target, type`)
	if err != nil {
		return "", werr.Wrap(werr.PersistenceError, err, "dumping edges")
	}
	for edgeRows.Next() {
		e, err := s.scanEdge(edgeRows)
		if err != nil {
			edgeRows.Close()
			return "", werr.Wrap(werr.PersistenceError, err, "scanning edge for dump")
		}
		ctxJSON := "{}"
		if len(e.Context) > 0 {
			ctxJSON = string(e.Context)
		}
		fmt.Fprintf(&sb, "INSERT INTO edges (source, target, type, weight, context, created_at) VALUES (%s, %s, %s, %s, %s, %s);\n",
			sqlQuote(e.Source), sqlQuote(e.Target), sqlQuote(string(e.Type)),
			strconv.FormatFloat(e.Weight, 'f', -1, 64), sqlQuote(ctxJSON), sqlQuote(e.CreatedAt.Format(timeLayout)))
	}
	if err := edgeRows.Err(); err != nil {
		edgeRows.Close()
		return "", werr.Wrap(werr.PersistenceError, err, "iterating edges for dump")
	}
	edgeRows.Close()

	sb.WriteString("COMMIT;\n")
	out := sb.String()
	if strings.TrimSpace(out) == "" {
		return "", werr.New(werr.PersistenceError, "dump produced empty output")
	}
	return out, nil
}

const timeLayout = "2006-01-02 15:04:05.999999999"

func sqlQuote(s string) string {
	// Normalize escape-hex literals (\xNN) some older text dumps carry
	// into literal characters, per spec 4.F, before re-quoting.
	s = normalizeHexEscapes(s)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func normalizeHexEscapes(s string) string {
	if !strings.Contains(s, `\x`) {
		return s
	}
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if i+3 < len(s) && s[i] == '\\' && s[i+1] == 'x' {
			if b, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
				out.WriteByte(byte(b))
				i += 3
				continue
			}
		}
		out.WriteByte(s[i])
	}
	return out.String()
}

// LoadText replays a dump produced by DumpText into this database,
// wiping any existing nodes/edges first so the result matches the dump
// exactly (spec 4.F `load`: "imports state.sql into a fresh DB"). The
// delete and the replay run inside the dump's own BEGIN/COMMIT instead
// of as two separate statements, so a malformed dump fails before the
// COMMIT is reached and the live DB is left exactly as it was.
func (s *Store) LoadText(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return werr.New(werr.PersistenceError, "refusing to load empty state dump")
	}
	const marker = "BEGIN TRANSACTION;\n"
	idx := strings.Index(text, marker)
	if idx == -1 {
		return werr.New(werr.PersistenceError, "state dump missing BEGIN TRANSACTION")
	}
	script := text[:idx] + marker + "DELETE FROM edges;\nDELETE FROM nodes;\n" + text[idx+len(marker):]
	if _, err := s.db.ExecContext(ctx, script); err != nil {
		_, _ = s.db.ExecContext(ctx, `ROLLBACK;`)
		return werr.Wrap(werr.PersistenceError, err, "executing state dump")
	}
	if _, err := s.db.ExecContext(ctx, `SELECT 1`); err != nil {
		return werr.Wrap(werr.PersistenceError, err, "post-load sanity check failed")
	}
	var result string
	if err := s.db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return werr.Wrap(werr.PersistenceError, err, "running integrity_check")
	}
	if result != "ok" {
		return werr.New(werr.PersistenceError, "integrity_check failed: %s", result)
	}
	return runMigrations(s.db)
}
