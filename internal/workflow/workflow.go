// Package workflow implements component E: the status lifecycle,
// done/work/ship/quick/batch-done/bulk-update operations, commit-SHA
// harvesting, and write-time hints layered on top of the graph engine.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/weave-dev/weave/internal/bridge"
	"github.com/weave-dev/weave/internal/graph"
	"github.com/weave-dev/weave/internal/id"
	"github.com/weave-dev/weave/internal/learning"
	"github.com/weave-dev/weave/internal/runtime"
	"github.com/weave-dev/weave/internal/storage"
	"github.com/weave-dev/weave/internal/storage/sqlite"
	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/vcs"
	"github.com/weave-dev/weave/internal/werr"
)

// CommitHarvestWindow is how far back `done` looks for SHAs mentioning
// a node id (spec 4.E step 5: "last 90 days").
const CommitHarvestWindow = 90 * 24 * time.Hour

// MaxHarvestedCommits caps how many SHAs are stored on a node.
const MaxHarvestedCommits = 10

// Syncer is the persistence-protocol surface workflow needs for
// auto_sync and ship's forced sync; implemented by internal/persistence.
type Syncer interface {
	AutoSync(ctx context.Context) error
	Sync(ctx context.Context, forceGH bool) error
}

// Engine composes the graph engine with the workflow-level operations.
type Engine struct {
	Graph   *graph.Engine
	Store   storage.Store
	Bridge  bridge.Bridge
	Runtime *runtime.Runtime
	Syncer  Syncer // nil is tolerated: auto-sync/ship sync become no-ops
}

func New(g *graph.Engine, store storage.Store, b bridge.Bridge, rt *runtime.Runtime) *Engine {
	if b == nil {
		b = bridge.Noop{}
	}
	return &Engine{Graph: g, Store: store, Bridge: b, Runtime: rt}
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]|[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// stripTerminalEscapes removes ANSI control sequences and other control
// bytes from learning text before it is stored (spec 4.E step 1).
func stripTerminalEscapes(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// DoneOptions configures Done.
type DoneOptions struct {
	Learning         string
	SkipVerification bool
	NoWarn           bool
}

// DoneResult reports what Done did.
type DoneResult struct {
	Node      *types.Node `json:"node"`
	Unblocked []string    `json:"unblocked,omitempty"`
	NextReady string      `json:"next_ready,omitempty"`
	Hints     []Hint      `json:"hints,omitempty"`
}

// Done closes a node: merges the learning, scores it, marks done,
// harvests commits, auto-unblocks dependents, writes a breadcrumb,
// notifies the bridge, invalidates caches, and emits write-time hints.
func (e *Engine) Done(ctx context.Context, idOrAlias string, opts DoneOptions) (*DoneResult, error) {
	nodeID, err := e.Graph.ResolveID(ctx, idOrAlias)
	if err != nil {
		return nil, err
	}
	n, err := e.Store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	learningText := stripTerminalEscapes(opts.Learning)
	if learningText != "" {
		if dupID, ok := e.checkLearningDuplicate(ctx, learningText); ok {
			fmt.Fprintf(os.Stderr, "hint: similar learning already recorded on %s\n", dupID)
		}
		n.Metadata.Learning = learningText
	}

	if !opts.SkipVerification {
		combined := learning.CombinedText(n.Metadata)
		score := learning.Score(combined)
		n.Metadata.LearningQuality = &score
	}

	n.Status = types.StatusDone
	n.UpdatedAt = time.Now().UTC()

	if shas, err := vcs.CommitsMentioning(ctx, nodeID, CommitHarvestWindow); err == nil && len(shas) > 0 {
		if len(shas) > MaxHarvestedCommits {
			shas = shas[:MaxHarvestedCommits]
		}
		n.Metadata.Commits = mergeUnique(n.Metadata.Commits, shas)
	}

	if err := e.Store.UpdateNode(ctx, n); err != nil {
		return nil, err
	}
	if err := e.aggregateCommitsToParent(ctx, nodeID); err != nil {
		return nil, err
	}

	unblocked, err := e.autoUnblock(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	ready, err := e.Graph.Ready(ctx)
	nextReady := ""
	if err == nil && len(ready) > 0 {
		nextReady = ready[0].ID
	}

	if err := e.writeBreadcrumb(n, unblocked, nextReady); err != nil {
		return nil, werr.Wrap(werr.PersistenceError, err, "writing breadcrumb")
	}

	if num := n.Metadata.GHIssue; num != nil {
		comment := buildGHDoneComment(n)
		if err := e.Bridge.CloseIssue(ctx, *num, comment); err != nil {
			fmt.Fprintf(os.Stderr, "warning: bridge close_issue failed: %v\n", err)
		}
	}

	e.Graph.Cache.Invalidate(append(unblocked, nodeID)...)

	var hints []Hint
	if !opts.NoWarn {
		hints = Hints(ctx, e.Store, n)
	}

	if e.Syncer != nil {
		if err := e.Syncer.AutoSync(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: auto-sync failed: %v\n", err)
		}
	}

	return &DoneResult{Node: n, Unblocked: unblocked, NextReady: nextReady, Hints: hints}, nil
}

// checkLearningDuplicate finds an existing learning sharing ≥3
// significant tokens with text, per spec 4.E step 2. On a terminal it
// prompts {dedup, acknowledge, skip}; off-terminal it returns the match
// for the caller to surface as a hint.
func (e *Engine) checkLearningDuplicate(ctx context.Context, text string) (string, bool) {
	existing, err := learning.List(ctx, e.Store, learning.Filter{})
	if err != nil {
		return "", false
	}
	tokens := significantTokenSet(text)
	for _, n := range existing {
		if len(tokens) == 0 {
			break
		}
		shared := 0
		for t := range significantTokenSet(learning.CombinedText(n.Metadata)) {
			if tokens[t] {
				shared++
			}
		}
		if shared < 3 {
			continue
		}
		if term.IsTerminal(int(os.Stdin.Fd())) {
			choice, err := promptDedup(n.ID)
			if err == nil && choice == "skip" {
				return n.ID, false
			}
		}
		return n.ID, true
	}
	return "", false
}

func promptDedup(existingID string) (string, error) {
	var choice string
	err := huh.NewSelect[string]().
		Title(fmt.Sprintf("Similar learning already exists on %s", existingID)).
		Options(
			huh.NewOption("Record anyway (acknowledge)", "acknowledge"),
			huh.NewOption("Skip recording this one", "skip"),
			huh.NewOption("Treat as duplicate (dedup)", "dedup"),
		).
		Value(&choice).
		Run()
	return choice, err
}

func significantTokenSet(text string) map[string]bool {
	out := map[string]bool{}
	for _, t := range sqlite.Tokenize(text) {
		if len(t) > 2 {
			out[t] = true
		}
	}
	return out
}

func mergeUnique(existing, add []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range existing {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range add {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// aggregateCommitsToParent re-aggregates the union of child commit SHAs
// onto the parent via an outgoing implements edge (spec 4.E step 5).
func (e *Engine) aggregateCommitsToParent(ctx context.Context, childID string) error {
	parents, err := e.Store.EdgesFrom(ctx, childID, types.EdgeImplements)
	if err != nil || len(parents) == 0 {
		return err
	}
	parentID := parents[0].Target
	parent, err := e.Store.GetNode(ctx, parentID)
	if err != nil {
		return err
	}

	children, err := e.Store.EdgesTo(ctx, parentID, types.EdgeImplements)
	if err != nil {
		return err
	}
	var union []string
	for _, c := range children {
		childNode, err := e.Store.GetNode(ctx, c.Source)
		if err != nil {
			continue
		}
		union = mergeUnique(union, childNode.Metadata.Commits)
	}
	parent.Metadata.Commits = union
	parent.UpdatedAt = time.Now().UTC()
	return e.Store.UpdateNode(ctx, parent)
}

// autoUnblock clears status='blocked' to 'todo' for every target of an
// (id, t, blocks) edge that has no remaining non-done blocker.
func (e *Engine) autoUnblock(ctx context.Context, doneID string) ([]string, error) {
	blocked, err := e.Store.EdgesFrom(ctx, doneID, types.EdgeBlocks)
	if err != nil {
		return nil, err
	}
	var unblocked []string
	for _, edge := range blocked {
		target, err := e.Store.GetNode(ctx, edge.Target)
		if err != nil {
			continue
		}
		blockers, err := e.Store.EdgesTo(ctx, target.ID, types.EdgeBlocks)
		if err != nil {
			return nil, err
		}
		stillBlocked := false
		for _, b := range blockers {
			blocker, err := e.Store.GetNode(ctx, b.Source)
			if err != nil {
				continue
			}
			if blocker.Status != types.StatusDone {
				stillBlocked = true
				break
			}
		}
		if !stillBlocked && target.Status == types.StatusBlocked {
			target.Status = types.StatusTodo
			target.UpdatedAt = time.Now().UTC()
			if err := e.Store.UpdateNode(ctx, target); err != nil {
				return nil, err
			}
			unblocked = append(unblocked, target.ID)
		}
	}
	return unblocked, nil
}

func buildGHDoneComment(n *types.Node) string {
	var sb strings.Builder
	sb.WriteString("Closed via weave.\n\n")
	if n.Metadata.Learning != "" {
		sb.WriteString("Learning: " + n.Metadata.Learning + "\n\n")
	}
	if len(n.Metadata.Commits) > 0 {
		shas := n.Metadata.Commits
		if len(shas) > MaxHarvestedCommits {
			shas = shas[:MaxHarvestedCommits]
		}
		sb.WriteString("Commits:\n")
		for _, sha := range shas {
			short := sha
			if len(short) > 8 {
				short = short[:8]
			}
			sb.WriteString("- " + short + "\n")
		}
	}
	return sb.String()
}

// Work claims a node (status=active) and notifies the bridge.
func (e *Engine) Work(ctx context.Context, idOrAlias string) (*types.Node, error) {
	nodeID, err := e.Graph.ResolveID(ctx, idOrAlias)
	if err != nil {
		return nil, err
	}
	n, err := e.Store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	n.Status = types.StatusActive
	n.UpdatedAt = time.Now().UTC()
	if err := e.Store.UpdateNode(ctx, n); err != nil {
		return nil, err
	}
	e.Graph.Cache.Invalidate(nodeID)
	return n, nil
}

// Quick atomically creates and closes a trivial node, forcing an
// immediate sync that bypasses the auto-sync throttle.
func (e *Engine) Quick(ctx context.Context, text, learningText string) (*DoneResult, error) {
	n, err := e.Graph.Add(ctx, text, graph.AddOptions{})
	if err != nil {
		return nil, err
	}
	result, err := e.Done(ctx, n.ID, DoneOptions{Learning: learningText})
	if err != nil {
		return nil, err
	}
	if e.Syncer != nil {
		if err := e.Syncer.Sync(ctx, false); err != nil {
			fmt.Fprintf(os.Stderr, "warning: forced sync failed: %v\n", err)
		}
	}
	return result, nil
}

// BatchDone applies Done to every id, stopping at the first error.
func (e *Engine) BatchDone(ctx context.Context, idsOrAliases []string, learningText string) ([]*DoneResult, error) {
	var results []*DoneResult
	for _, ref := range idsOrAliases {
		r, err := e.Done(ctx, ref, DoneOptions{Learning: learningText})
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// BulkUpdateEntry is one element of the JSON array `bulk-update` reads
// from stdin.
type BulkUpdateEntry struct {
	ID       string          `json:"id"`
	Status   *types.Status   `json:"status,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// BulkUpdate validates every id up front (spec 4.E: "applies only if all
// resolve") and then applies each update; dryRun validates without
// writing.
func (e *Engine) BulkUpdate(ctx context.Context, entries []BulkUpdateEntry, dryRun bool) ([]*types.Node, error) {
	resolved := make([]string, len(entries))
	for i, entry := range entries {
		id, err := e.Graph.ResolveID(ctx, entry.ID)
		if err != nil {
			return nil, werr.Wrap(werr.InvalidInput, err, "entry %d (%s) does not resolve", i, entry.ID)
		}
		resolved[i] = id
	}
	if dryRun {
		var nodes []*types.Node
		for _, id := range resolved {
			n, err := e.Store.GetNode(ctx, id)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
		return nodes, nil
	}

	var out []*types.Node
	for i, entry := range entries {
		opts := graph.UpdateOptions{Status: entry.Status}
		if len(entry.Metadata) > 0 {
			var m types.Metadata
			if err := json.Unmarshal(entry.Metadata, &m); err != nil {
				return out, id.ParseJSONShape("metadata", err)
			}
			opts.Metadata = m
			opts.HasMeta = true
		}
		n, err := e.Graph.Update(ctx, resolved[i], opts)
		if err != nil {
			return out, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (e *Engine) writeBreadcrumb(n *types.Node, unblocked []string, nextReady string) error {
	if e.Runtime == nil {
		return nil
	}
	label := n.ID
	if n.Alias != "" {
		label = n.Alias + " (" + n.ID + ")"
	}
	line := fmt.Sprintf("- %s: done %s", time.Now().UTC().Format(time.RFC3339), label)
	if len(unblocked) > 0 {
		line += "; unblocked " + strings.Join(unblocked, ", ")
	}
	if nextReady != "" {
		line += "; next ready " + nextReady
	}
	line += "\n"

	f, err := os.OpenFile(e.Runtime.BreadcrumbsPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}

// ParseAge parses `prune`'s age flag ("Nh" or "Nd", N>0), shared here
// since workflow and persistence both need the same form.
func ParseAge(spec string) (time.Duration, error) {
	if len(spec) < 2 {
		return 0, werr.New(werr.InvalidInput, "invalid age %q: expected form Nh or Nd", spec)
	}
	unit := spec[len(spec)-1]
	n, err := strconv.Atoi(spec[:len(spec)-1])
	if err != nil || n <= 0 {
		return 0, werr.New(werr.InvalidInput, "invalid age %q: N must be a positive integer", spec)
	}
	switch unit {
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return 0, werr.New(werr.InvalidInput, "invalid age %q: unit must be h or d", spec)
	}
}
