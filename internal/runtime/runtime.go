// Package runtime carries the per-process state that the reference
// implementation keeps in globals (hot-zone paths, env-driven flags, the
// journal reentry guard) as one explicit struct threaded through every
// operation, per the spec's design note in section 9.
package runtime

import (
	"os"
	"path/filepath"

	"github.com/weave-dev/weave/internal/config"
)

// Runtime is the configuration + location context passed to every core
// operation. It is intentionally not a global: callers construct one at
// process startup and thread it explicitly.
type Runtime struct {
	Cfg *config.Config

	// ProjectRoot is the worktree root containing .weave/.
	ProjectRoot string
	// ColdZone is ProjectRoot/.weave.
	ColdZone string
	// HotZone is the resolved writable directory owning the live DB.
	HotZone string

	// inJournal is the reentry guard of spec 4.G / 5: while true,
	// auto_sync is a no-op. It is a field, not a package-level var, so
	// nested Runtimes (e.g. in tests) don't share state, and save/restore
	// around journal_begin/end is explicit rather than implicit.
	inJournal bool
}

// New resolves a Runtime for the project rooted at projectRoot.
func New(projectRoot string) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, err
	}
	project := filepath.Base(abs)

	hotZone := cfg.HotZone
	if hotZone == "" {
		candidates := config.HotZoneCandidates(project)
		if len(candidates) > 0 {
			hotZone = candidates[0]
		}
	}

	return &Runtime{
		Cfg:         cfg,
		ProjectRoot: abs,
		ColdZone:    filepath.Join(abs, ".weave"),
		HotZone:     hotZone,
	}, nil
}

// DBPath is the hot-zone sqlite file path.
func (r *Runtime) DBPath() string {
	if r.Cfg.DB != "" {
		return r.Cfg.DB
	}
	return filepath.Join(r.HotZone, "weave.db")
}

// StateSQLPath, NodesJSONLPath, EdgesJSONLPath, BreadcrumbsPath,
// HealthLogPath, and ArchiveDir are the fixed cold-zone file locations
// from spec section 6.
func (r *Runtime) StateSQLPath() string       { return filepath.Join(r.ColdZone, "state.sql") }
func (r *Runtime) NodesJSONLPath() string     { return filepath.Join(r.ColdZone, "nodes.jsonl") }
func (r *Runtime) EdgesJSONLPath() string     { return filepath.Join(r.ColdZone, "edges.jsonl") }
func (r *Runtime) BreadcrumbsPath() string    { return filepath.Join(r.ColdZone, "breadcrumbs.md") }
func (r *Runtime) HealthLogPath() string      { return filepath.Join(r.ColdZone, "health.log") }
func (r *Runtime) ArchiveDir() string         { return filepath.Join(r.ColdZone, "archive") }
func (r *Runtime) JournalPath() string        { return filepath.Join(r.HotZone, "journal.jsonl") }
func (r *Runtime) SyncLockPath() string       { return filepath.Join(r.HotZone, ".sync.lock") }
func (r *Runtime) LastSyncPath() string       { return filepath.Join(r.HotZone, ".last_sync") }
func (r *Runtime) LastCheckpointPath() string { return filepath.Join(r.HotZone, ".last_checkpoint") }

// InJournal reports whether a durable-journal op is currently active in
// this process.
func (r *Runtime) InJournal() bool { return r.inJournal }

// BeginJournalGuard sets the reentry guard and returns a restore func that
// must be deferred to clear it — the explicit save/restore semantics the
// design note calls for at journal_begin/end. It also propagates the
// guard to child processes via env, mirroring the reference's
// _WV_IN_JOURNAL convention (testable property 13).
func (r *Runtime) BeginJournalGuard() (restore func()) {
	prev := r.inJournal
	prevEnv, hadEnv := os.LookupEnv("_WV_IN_JOURNAL")
	r.inJournal = true
	os.Setenv("_WV_IN_JOURNAL", "1")
	return func() {
		r.inJournal = prev
		if hadEnv {
			os.Setenv("_WV_IN_JOURNAL", prevEnv)
		} else {
			os.Unsetenv("_WV_IN_JOURNAL")
		}
	}
}

// EnsureHotZone creates the hot zone directory if missing.
func (r *Runtime) EnsureHotZone() error {
	return os.MkdirAll(r.HotZone, 0o755)
}

// EnsureColdZone creates .weave/ and .weave/archive/ if missing.
func (r *Runtime) EnsureColdZone() error {
	if err := os.MkdirAll(r.ColdZone, 0o755); err != nil {
		return err
	}
	return os.MkdirAll(r.ArchiveDir(), 0o755)
}

// HotZoneExists reports whether the hot zone directory and DB file are
// present, used by init/recover to detect "hot zone is gone but
// .weave/state.sql exists" (reboot recovery case, spec 4.F).
func (r *Runtime) HotZoneExists() bool {
	_, err := os.Stat(r.DBPath())
	return err == nil
}

// ColdStateExists reports whether .weave/state.sql is present.
func (r *Runtime) ColdStateExists() bool {
	_, err := os.Stat(r.StateSQLPath())
	return err == nil
}
