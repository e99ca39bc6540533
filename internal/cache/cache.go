// Package cache implements the per-node context-pack cache (component
// C): a JSON blob per node, valid iff its stored timestamp is not older
// than the newest updated_at among the node and its one-hop edge
// neighborhood.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store is a small on-disk JSON cache living in the hot zone. One file
// per node: <dir>/<id>.json, containing {stamp, payload}.
type Store struct {
	dir string
	mu  sync.Mutex
}

type entry struct {
	Stamp   time.Time       `json:"stamp"`
	Payload json.RawMessage `json:"payload"`
}

func New(hotZoneDir string) *Store {
	return &Store{dir: filepath.Join(hotZoneDir, "cache")}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Get returns the cached payload for id if present and stamp is not
// older than newestMtime (the invalidation rule in spec 4.C). A cache
// miss or stale entry returns (nil, false) — invalidation is best-effort
// and lazy, recomputed on next read, never actively swept.
func (s *Store) Get(id string, newestMtime time.Time) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if e.Stamp.Before(newestMtime) {
		return nil, false
	}
	return e.Payload, true
}

// Put stores payload for id, stamped with stamp (or time.Now() if zero).
func (s *Store) Put(id string, payload json.RawMessage, stamp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stamp.IsZero() {
		stamp = time.Now()
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(entry{Stamp: stamp, Payload: payload})
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path(id))
}

// Invalidate removes the cached entries for the given ids. Invalidation
// hooks call this with the union of affected ids after any node/edge
// mutation (spec 4.C: "writes to nodes/edges invalidate the union of
// affected ids").
func (s *Store) Invalidate(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		os.Remove(s.path(id))
	}
}
