// Package persistence implements component F: the hot/cold zone
// protocol, atomic dump/restore, JSONL shadow exports, the auto-sync
// and auto-checkpoint throttles, and init/clean-ghosts/prune.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/weave-dev/weave/internal/graph"
	"github.com/weave-dev/weave/internal/journal"
	"github.com/weave-dev/weave/internal/runtime"
	"github.com/weave-dev/weave/internal/storage"
	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/vcs"
	"github.com/weave-dev/weave/internal/werr"
)

// Manager implements the Syncer interface workflow.Engine consumes,
// plus the standalone persistence operations (init, load, prune,
// clean-ghosts, session-summary).
type Manager struct {
	Store   storage.Store
	Graph   *graph.Engine
	Runtime *runtime.Runtime
}

func New(store storage.Store, g *graph.Engine, rt *runtime.Runtime) *Manager {
	return &Manager{Store: store, Graph: g, Runtime: rt}
}

// atomicWriteFile writes data to a unique temp file in dir and renames
// it into place, the same temp-file-then-rename idiom used throughout
// the reference implementation's export paths.
func atomicWriteFile(dir, finalPath string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(finalPath)+".*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, finalPath)
}

func (m *Manager) exportJSONL(ctx context.Context) error {
	nodes, err := m.Store.ListNodes(ctx, storage.NodeFilter{All: true})
	if err != nil {
		return err
	}
	var nodesBuf strings.Builder
	enc := json.NewEncoder(&nodesBuf)
	for _, n := range nodes {
		if err := enc.Encode(n); err != nil {
			return err
		}
	}
	if err := atomicWriteFile(m.Runtime.ColdZone, m.Runtime.NodesJSONLPath(), []byte(nodesBuf.String())); err != nil {
		return werr.Wrap(werr.PersistenceError, err, "writing nodes.jsonl")
	}

	edges, err := m.Store.AllEdges(ctx)
	if err != nil {
		return err
	}
	var edgesBuf strings.Builder
	enc = json.NewEncoder(&edgesBuf)
	for _, e := range edges {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	if err := atomicWriteFile(m.Runtime.ColdZone, m.Runtime.EdgesJSONLPath(), []byte(edgesBuf.String())); err != nil {
		return werr.Wrap(werr.PersistenceError, err, "writing edges.jsonl")
	}
	return nil
}

// Sync writes state.sql, nodes.jsonl, and edges.jsonl atomically, then
// attempts (non-failing) a VCS commit of .weave/ (spec 4.F `sync`).
// forceGH is accepted for interface symmetry with ship's gh-forcing but
// the reference bridge sync itself is invoked by the caller, not here.
func (m *Manager) Sync(ctx context.Context, forceGH bool) error {
	if err := m.Runtime.EnsureColdZone(); err != nil {
		return werr.Wrap(werr.PersistenceError, err, "ensuring cold zone")
	}

	// Multiple wv processes against one project on one host are
	// supported (spec section 5); this file lock serializes the
	// dump-then-export-then-rename sequence across them so two
	// concurrent syncs can't interleave their temp-rename writes.
	lock := flock.New(m.Runtime.SyncLockPath())
	lockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil || !locked {
		return werr.Wrap(werr.PersistenceError, err, "acquiring sync lock")
	}
	defer lock.Unlock()

	dump, err := m.Store.DumpText(ctx)
	if err != nil {
		return err
	}
	if err := atomicWriteFile(m.Runtime.ColdZone, m.Runtime.StateSQLPath(), []byte(dump)); err != nil {
		return werr.Wrap(werr.PersistenceError, err, "writing state.sql")
	}
	if err := m.exportJSONL(ctx); err != nil {
		return err
	}

	active, err := m.Store.ListNodes(ctx, storage.NodeFilter{Status: types.StatusActive})
	if err != nil {
		active = nil
	}
	msg := "chore(weave): sync state [skip ci]"
	for _, n := range active {
		msg += fmt.Sprintf("\n\nWeave-ID: %s", n.ID)
	}
	if err := vcs.StageAndCommit(ctx, []string{m.Runtime.ColdZone}, msg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: sync commit failed: %v\n", err)
	}

	now := time.Now()
	_ = os.WriteFile(m.Runtime.LastSyncPath(), []byte(now.Format(time.RFC3339)), 0o644)
	return nil
}

// AutoSync runs Sync at most once per WV_SYNC_INTERVAL seconds, and is
// suppressed entirely while the journal reentry guard is set.
func (m *Manager) AutoSync(ctx context.Context) error {
	if !m.Runtime.Cfg.AutoSync || m.Runtime.InJournal() {
		return nil
	}
	if data, err := os.ReadFile(m.Runtime.LastSyncPath()); err == nil {
		if last, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data))); err == nil {
			if time.Since(last) < m.Runtime.Cfg.SyncInterval {
				return nil
			}
		}
	}
	if err := m.Sync(ctx, false); err != nil {
		return err
	}
	return m.AutoCheckpoint(ctx)
}

// AutoCheckpoint rebases onto upstream (unless disabled) and commits
// .weave/ (or the whole tree if WV_CHECKPOINT_ALL), at most once per
// WV_CHECKPOINT_INTERVAL seconds.
func (m *Manager) AutoCheckpoint(ctx context.Context) error {
	if !m.Runtime.Cfg.AutoCheckpoint || m.Runtime.InJournal() {
		return nil
	}
	if data, err := os.ReadFile(m.Runtime.LastCheckpointPath()); err == nil {
		if last, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data))); err == nil {
			if time.Since(last) < m.Runtime.Cfg.CheckpointInterval {
				return nil
			}
		}
	}

	if m.Runtime.Cfg.CheckpointPull {
		if err := vcs.RebaseUpstream(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: checkpoint rebase failed: %v\n", err)
			return nil
		}
	}
	paths := []string{m.Runtime.ColdZone}
	if m.Runtime.Cfg.CheckpointAll {
		paths = []string{m.Runtime.ProjectRoot}
	}
	if err := vcs.StageAndCommit(ctx, paths, "chore(weave): checkpoint [skip ci]"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: checkpoint commit failed: %v\n", err)
	}
	_ = os.WriteFile(m.Runtime.LastCheckpointPath(), []byte(time.Now().Format(time.RFC3339)), 0o644)
	return nil
}

// SessionSnapshot is the point-in-time counter set Load saves, used by
// session-summary to compute deltas.
type SessionSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	Done      int       `json:"done"`
	Learnings int       `json:"learnings"`
}

func (m *Manager) snapshotPath() string {
	return filepath.Join(m.Runtime.HotZone, ".session_snapshot.json")
}

// Load imports state.sql into a fresh DB: validates integrity, warns
// (non-fatal) on suspicious count drops, re-runs migrations, and saves
// a session snapshot for session-summary.
func (m *Manager) Load(ctx context.Context) ([]string, error) {
	var warnings []string

	data, err := os.ReadFile(m.Runtime.StateSQLPath())
	if err != nil {
		return nil, werr.Wrap(werr.PersistenceError, err, "reading state.sql")
	}

	beforeNodes, _ := m.Store.CountNodes(ctx)

	if beforeNodes > 0 {
		if err := m.backupCurrentDB(); err != nil {
			warnings = append(warnings, fmt.Sprintf("could not back up current DB: %v", err))
		}
	}

	if err := m.Store.LoadText(ctx, string(data)); err != nil {
		return warnings, err
	}

	afterNodes, err := m.Store.CountNodes(ctx)
	if err != nil {
		return warnings, err
	}
	afterEdges, err := m.Store.CountEdges(ctx)
	if err != nil {
		return warnings, err
	}

	if afterEdges == 0 && afterNodes > 2 {
		warnings = append(warnings, "loaded state has zero edges but more than two nodes")
	}
	if beforeNodes > 0 && afterNodes < beforeNodes/2 {
		warnings = append(warnings, fmt.Sprintf("node count dropped more than 50%% (%d -> %d); previous DB preserved as .bak", beforeNodes, afterNodes))
	}

	snap := SessionSnapshot{Timestamp: time.Now().UTC(), Nodes: afterNodes, Edges: afterEdges}
	if doneNodes, err := m.Store.ListNodes(ctx, storage.NodeFilter{Status: types.StatusDone}); err == nil {
		snap.Done = len(doneNodes)
		for _, n := range doneNodes {
			if n.Metadata.Learning != "" {
				snap.Learnings++
			}
		}
	}
	snapJSON, _ := json.Marshal(snap)
	_ = os.WriteFile(m.snapshotPath(), snapJSON, 0o644)

	return warnings, nil
}

func (m *Manager) backupCurrentDB() error {
	src := m.Runtime.DBPath()
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(src+".bak", data, 0o644)
}

// Init creates a fresh hot DB. It refuses to clobber a non-empty DB
// unless force, and recognizes the reboot-recovery case where the hot
// zone is gone but .weave/state.sql exists.
func (m *Manager) Init(ctx context.Context, force bool) (recovered bool, err error) {
	if err := m.Runtime.EnsureHotZone(); err != nil {
		return false, werr.Wrap(werr.PersistenceError, err, "creating hot zone")
	}
	if err := m.Runtime.EnsureColdZone(); err != nil {
		return false, werr.Wrap(werr.PersistenceError, err, "creating cold zone")
	}

	if m.Runtime.HotZoneExists() {
		count, countErr := m.Store.CountNodes(ctx)
		if countErr == nil && count > 0 && !force {
			return false, werr.WithRemedy(
				werr.New(werr.Conflict, "hot DB already has %d nodes", count),
				"Pass --force to reinitialize, or run `wv load` to recover from .weave/state.sql",
			)
		}
	} else if m.Runtime.ColdStateExists() {
		if _, err := m.Load(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// CleanGhosts removes edges whose endpoints are not present.
func (m *Manager) CleanGhosts(ctx context.Context, dryRun bool) ([]*types.Edge, error) {
	ghosts, err := m.Store.GhostEdges(ctx)
	if err != nil {
		return nil, err
	}
	if dryRun {
		return ghosts, nil
	}
	for _, g := range ghosts {
		if err := m.Store.DeleteEdge(ctx, g.Source, g.Target, g.Type); err != nil {
			return ghosts, err
		}
	}
	return ghosts, nil
}

// PruneResult reports what Prune did or would do.
type PruneResult struct {
	Pruned []*types.Node `json:"pruned"`
	DryRun bool          `json:"dry_run"`
}

// Prune archives-then-deletes done nodes older than age.
func (m *Manager) Prune(ctx context.Context, age time.Duration, dryRun bool) (*PruneResult, error) {
	doneNodes, err := m.Store.ListNodes(ctx, storage.NodeFilter{Status: types.StatusDone})
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-age)
	var stale []*types.Node
	for _, n := range doneNodes {
		if n.UpdatedAt.Before(cutoff) {
			stale = append(stale, n)
		}
	}
	result := &PruneResult{Pruned: stale, DryRun: dryRun}
	if dryRun {
		return result, nil
	}

	m.Graph.Archiver = m.archiveNode
	for _, n := range stale {
		if _, err := m.Graph.Delete(ctx, n.ID, true, false); err != nil {
			return result, err
		}
	}
	return result, nil
}

// ArchiveNode is the exported form of archiveNode, used directly by the
// `delete` command so a one-off delete gets the same archival guarantee
// as prune's batch path.
func (m *Manager) ArchiveNode(ctx context.Context, n *types.Node) error {
	return m.archiveNode(ctx, n)
}

func (m *Manager) archiveNode(ctx context.Context, n *types.Node) error {
	dir := m.Runtime.ArchiveDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, time.Now().UTC().Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(n)
}

// Recover reads the journal and reports the incomplete op, if any.
func (m *Manager) Recover(ctx context.Context) (*journal.IncompleteOp, error) {
	incomplete, err := journal.Recover(m.Runtime.JournalPath())
	if err != nil {
		return nil, err
	}
	if incomplete != nil {
		return incomplete, nil
	}

	// Ship leaves a metadata.ship_pending marker that survives a
	// volatile-storage wipe even when the journal file itself is gone.
	pending, err := pendingShipNodes(ctx, m.Store)
	if err != nil || len(pending) == 0 {
		return nil, nil
	}
	return &journal.IncompleteOp{OpID: "recovered-from-marker", Op: "ship", PendingAction: "sync"}, nil
}

func pendingShipNodes(ctx context.Context, store storage.Store) ([]*types.Node, error) {
	all, err := store.ListNodes(ctx, storage.NodeFilter{All: true})
	if err != nil {
		return nil, err
	}
	var out []*types.Node
	for _, n := range all {
		if n.Metadata.ShipPending {
			out = append(out, n)
		}
	}
	return out, nil
}

// CleanJournal truncates the journal when no incomplete op remains.
func (m *Manager) CleanJournal() error {
	return journal.Clean(m.Runtime.JournalPath())
}

// Reindex rebuilds the FTS index.
func (m *Manager) Reindex(ctx context.Context) error {
	return m.Store.Reindex(ctx)
}
