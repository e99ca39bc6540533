// Package health implements component I: the health score, the TSV
// health.log, digest, and session-summary.
package health

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/weave-dev/weave/internal/persistence"
	"github.com/weave-dev/weave/internal/runtime"
	"github.com/weave-dev/weave/internal/storage"
	"github.com/weave-dev/weave/internal/types"
)

// healthLogMaxMB caps health.log before lumberjack rotates it aside,
// keeping a long-lived project's append-only diagnostic log bounded.
const healthLogMaxMB = 5

// StaleActiveAfter is how long a node may sit in status=active before
// it counts against health (spec 4.I: "stale-active").
const StaleActiveAfter = 7 * 24 * time.Hour

// Report is the computed health score and its inputs.
type Report struct {
	Score      int      `json:"score"`
	Bucket     string   `json:"bucket"` // healthy | warning | unhealthy
	Nodes      int      `json:"nodes"`
	Edges      int      `json:"edges"`
	Orphans    int      `json:"orphans"`
	GhostEdges int      `json:"ghost_edges"`
	Alerts     []string `json:"alerts,omitempty"`
}

// Compute scores the graph starting at 100 and deducting per spec 4.I.
func Compute(ctx context.Context, store storage.Store) (*Report, error) {
	nodes, err := store.ListNodes(ctx, storage.NodeFilter{All: true})
	if err != nil {
		return nil, err
	}
	edgeCount, err := store.CountEdges(ctx)
	if err != nil {
		return nil, err
	}
	ghosts, err := store.GhostEdges(ctx)
	if err != nil {
		return nil, err
	}
	orphans, err := store.OrphanNodes(ctx)
	if err != nil {
		return nil, err
	}
	allEdges, err := store.AllEdges(ctx)
	if err != nil {
		return nil, err
	}

	score := 100
	var alerts []string

	invalidCount := 0
	staleCount := 0
	contradictsUnresolved := 0
	unaddressedPitfalls := 0
	now := time.Now()

	// A pitfall is addressed once the node acquires an incoming edge of
	// type addresses, implements, or supersedes (spec invariant 7).
	addressed := map[string]bool{}
	for _, e := range allEdges {
		switch e.Type {
		case types.EdgeAddresses, types.EdgeImplements, types.EdgeSupersedes:
			addressed[e.Target] = true
		}
	}

	for _, n := range nodes {
		if !types.ValidStatuses[n.Status] {
			invalidCount++
		}
		if n.Status == types.StatusActive && now.Sub(n.UpdatedAt) > StaleActiveAfter {
			staleCount++
		}
		if n.Status == types.StatusDone && n.Metadata.Pitfall != "" && !addressed[n.ID] {
			unaddressedPitfalls++
		}
	}
	// Each contradicts edge is unresolved by construction (resolve()
	// removes the edge), and Link never inserts the symmetric pair, so
	// count edges directly.
	for _, e := range allEdges {
		if e.Type == types.EdgeContradicts {
			contradictsUnresolved++
		}
	}

	score -= 20 * invalidCount
	score -= 10 * unaddressedPitfalls
	score -= 5 * staleCount
	score -= 15 * contradictsUnresolved

	if len(ghosts) > 0 && edgeCount > 0 {
		deduction := ghostDeduction(len(ghosts), edgeCount)
		score -= deduction
		alerts = append(alerts, fmt.Sprintf("%d ghost edge(s) detected", len(ghosts)))
	}
	if len(orphans) > 5 {
		deduction := orphanDeduction(len(orphans), len(nodes))
		score -= deduction
		alerts = append(alerts, fmt.Sprintf("%d orphan node(s) detected", len(orphans)))
	}

	if invalidCount > 0 {
		alerts = append(alerts, fmt.Sprintf("%d node(s) with invalid status", invalidCount))
	}
	if contradictsUnresolved > 0 {
		alerts = append(alerts, fmt.Sprintf("%d unresolved contradiction(s)", contradictsUnresolved))
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	bucket := "unhealthy"
	if score >= 90 {
		bucket = "healthy"
	} else if score >= 70 {
		bucket = "warning"
	}

	return &Report{
		Score:      score,
		Bucket:     bucket,
		Nodes:      len(nodes),
		Edges:      edgeCount,
		Orphans:    len(orphans),
		GhostEdges: len(ghosts),
		Alerts:     alerts,
	}, nil
}

func ghostDeduction(ghosts, totalEdges int) int {
	d := ghosts * 30 / totalEdges
	if d < 5 {
		d = 5
	}
	if d > 30 {
		d = 30
	}
	return d
}

func orphanDeduction(orphans, totalNodes int) int {
	if totalNodes == 0 {
		return 0
	}
	d := orphans * 15 / totalNodes
	if d < 3 {
		d = 3
	}
	if d > 15 {
		d = 15
	}
	return d
}

// LogEntry appends a TSV line to health.log, rotated by lumberjack once
// it exceeds healthLogMaxMB so a long-lived project's diagnostic log
// doesn't grow unbounded.
func LogEntry(rt *runtime.Runtime, r *Report) error {
	line := fmt.Sprintf("%s\t%d\t%d\t%d\t%d\t%d\n",
		time.Now().UTC().Format(time.RFC3339), r.Score, r.Nodes, r.Edges, r.Orphans, r.GhostEdges)
	logger := &lumberjack.Logger{
		Filename: rt.HealthLogPath(),
		MaxSize:  healthLogMaxMB,
		MaxBackups: 3,
	}
	defer logger.Close()
	_, err := logger.Write([]byte(line))
	return err
}

// HistoryEntry is one parsed health.log line.
type HistoryEntry struct {
	Timestamp  string
	Score      int
	Nodes      int
	Edges      int
	Orphans    int
	GhostEdges int
}

// History reads the last n entries from health.log (n<=0 means all).
func History(rt *runtime.Runtime, n int) ([]HistoryEntry, error) {
	data, err := os.ReadFile(rt.HealthLogPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	var entries []HistoryEntry
	for _, line := range lines {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 6 {
			continue
		}
		e := HistoryEntry{Timestamp: fields[0]}
		e.Score, _ = strconv.Atoi(fields[1])
		e.Nodes, _ = strconv.Atoi(fields[2])
		e.Edges, _ = strconv.Atoi(fields[3])
		e.Orphans, _ = strconv.Atoi(fields[4])
		e.GhostEdges, _ = strconv.Atoi(fields[5])
		entries = append(entries, e)
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// Digest is a one-line health summary with alerts.
func Digest(r *Report) string {
	line := fmt.Sprintf("health: %d/100 (%s), %d nodes, %d edges", r.Score, r.Bucket, r.Nodes, r.Edges)
	if len(r.Alerts) > 0 {
		line += " — " + strings.Join(r.Alerts, "; ")
	}
	return line
}

// SessionSummary diffs live counts against the snapshot taken at load
// time to report duration, created/completed nodes, and new learnings.
type SessionSummary struct {
	Duration       time.Duration `json:"duration"`
	NodesCreated   int           `json:"nodes_created"`
	NodesCompleted int           `json:"nodes_completed"`
	NewLearnings   int           `json:"new_learnings"`
}

func Summarize(ctx context.Context, store storage.Store, snap persistence.SessionSnapshot) (*SessionSummary, error) {
	nodes, err := store.ListNodes(ctx, storage.NodeFilter{All: true})
	if err != nil {
		return nil, err
	}
	doneNodes, err := store.ListNodes(ctx, storage.NodeFilter{Status: types.StatusDone})
	if err != nil {
		return nil, err
	}
	learnings := 0
	for _, n := range doneNodes {
		if n.Metadata.Learning != "" {
			learnings++
		}
	}
	return &SessionSummary{
		Duration:       time.Since(snap.Timestamp),
		NodesCreated:   len(nodes) - snap.Nodes,
		NodesCompleted: len(doneNodes) - snap.Done,
		NewLearnings:   learnings - snap.Learnings,
	}, nil
}
