package cache

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPutThenGetRoundTrips(t *testing.T) {
	s := New(t.TempDir())
	payload := json.RawMessage(`{"text":"hello"}`)
	stamp := time.Now()

	if err := s.Put("wv-aaaa", payload, stamp); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := s.Get("wv-aaaa", stamp.Add(-time.Second))
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if string(got) != string(payload) {
		t.Errorf("payload mismatch: got %s", got)
	}
}

func TestGetMissingIDIsMiss(t *testing.T) {
	s := New(t.TempDir())
	if _, ok := s.Get("wv-dead", time.Now()); ok {
		t.Error("expected a miss for an id never put")
	}
}

func TestGetStaleEntryIsMiss(t *testing.T) {
	s := New(t.TempDir())
	stamp := time.Now()
	if err := s.Put("wv-aaaa", json.RawMessage(`{}`), stamp); err != nil {
		t.Fatal(err)
	}
	// newestMtime after the cached stamp means the node or a neighbor
	// changed since the pack was cached — must be treated as a miss.
	newer := stamp.Add(time.Hour)
	if _, ok := s.Get("wv-aaaa", newer); ok {
		t.Error("expected a stale entry (stamp before newestMtime) to miss")
	}
}

func TestInvalidateRemovesEntry(t *testing.T) {
	s := New(t.TempDir())
	stamp := time.Now()
	s.Put("wv-aaaa", json.RawMessage(`{}`), stamp)
	s.Invalidate("wv-aaaa")
	if _, ok := s.Get("wv-aaaa", stamp.Add(-time.Second)); ok {
		t.Error("expected entry to be gone after Invalidate")
	}
}

func TestInvalidateMissingIDIsNoop(t *testing.T) {
	s := New(t.TempDir())
	// Must not panic or error on an id that was never cached.
	s.Invalidate("wv-never-existed")
}

func TestPutZeroStampDefaultsToNow(t *testing.T) {
	s := New(t.TempDir())
	before := time.Now()
	if err := s.Put("wv-aaaa", json.RawMessage(`{}`), time.Time{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("wv-aaaa", before); !ok {
		t.Error("expected a zero stamp to default to time.Now and satisfy a newestMtime of just-before-Put")
	}
}
