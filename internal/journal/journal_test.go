package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestRecoverNilWhenNoJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	op, err := Recover(path)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if op != nil {
		t.Errorf("expected nil for a nonexistent journal, got %+v", op)
	}
}

func TestRecoverNilWhenOpCompleted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j := New(path)
	op, err := Begin(j, "op-1", "sync", map[string]string{"id": "wv-aaaa"})
	if err != nil {
		t.Fatal(err)
	}
	op.StepPending(1, "dump", nil)
	op.StepDone(1, "dump")
	op.End()

	incomplete, err := Recover(path)
	if err != nil {
		t.Fatal(err)
	}
	if incomplete != nil {
		t.Errorf("expected no incomplete op after End, got %+v", incomplete)
	}
}

func TestRecoverReportsIncompleteOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j := New(path)
	op, err := Begin(j, "op-1", "ship", map[string]string{"id": "wv-aaaa"})
	if err != nil {
		t.Fatal(err)
	}
	op.StepPending(1, "done", nil)
	op.StepDone(1, "done")
	op.StepPending(2, "sync", nil)
	// crash here: no StepDone(2), no End.

	incomplete, err := Recover(path)
	if err != nil {
		t.Fatal(err)
	}
	if incomplete == nil {
		t.Fatal("expected an incomplete op")
	}
	if incomplete.OpID != "op-1" || incomplete.Op != "ship" {
		t.Errorf("unexpected incomplete op: %+v", incomplete)
	}
	if incomplete.CompletedStep != 1 {
		t.Errorf("expected CompletedStep=1, got %d", incomplete.CompletedStep)
	}
	if incomplete.PendingAction != "sync" {
		t.Errorf("expected PendingAction=sync, got %q", incomplete.PendingAction)
	}
	if len(incomplete.CompletedSteps) != 1 || incomplete.CompletedSteps[0] != 1 {
		t.Errorf("expected CompletedSteps=[1], got %v", incomplete.CompletedSteps)
	}
}

func TestIncompleteOpMarshalsPerJSONContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j := New(path)
	op, _ := Begin(j, "op-1", "ship", nil)
	op.StepPending(1, "done", nil)
	op.StepDone(1, "done")
	op.StepPending(2, "sync", nil)

	incomplete, err := Recover(path)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(incomplete)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["op"] != "ship" {
		t.Errorf("expected op=ship, got %v", raw["op"])
	}
	if raw["action"] != "sync" {
		t.Errorf("expected action=sync, got %v", raw["action"])
	}
	steps, ok := raw["completed_steps"].([]interface{})
	if !ok || len(steps) != 1 || steps[0] != float64(1) {
		t.Errorf("expected completed_steps=[1], got %v", raw["completed_steps"])
	}
	if _, present := raw["CompletedStep"]; present {
		t.Errorf("expected the unexported-from-JSON scalar field absent, got %v", raw)
	}
}

func TestCleanTruncatesWhenNoIncompleteOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j := New(path)
	op, _ := Begin(j, "op-1", "sync", nil)
	op.End()

	if err := Clean(path); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("expected journal truncated to empty, got %d bytes", len(data))
	}
}

func TestCleanKeepsIncompleteOpEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j := New(path)
	finished, _ := Begin(j, "op-done", "sync", nil)
	finished.End()
	stuck, _ := Begin(j, "op-stuck", "ship", nil)
	stuck.StepPending(1, "done", nil)

	if err := Clean(path); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	incomplete, err := Recover(path)
	if err != nil {
		t.Fatal(err)
	}
	if incomplete == nil || incomplete.OpID != "op-stuck" {
		t.Errorf("expected op-stuck to survive Clean, got %+v", incomplete)
	}
}

func TestRecoverToleratesPartialTrailingLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j := New(path)
	op, _ := Begin(j, "op-1", "sync", nil)
	op.StepPending(1, "dump", nil)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"ts":"2024-01-01T00:00:00Z","event":"step","op_id":"op-1"` /* truncated */)
	f.Close()

	incomplete, err := Recover(path)
	if err != nil {
		t.Fatalf("Recover should tolerate a truncated trailing line: %v", err)
	}
	if incomplete == nil || incomplete.OpID != "op-1" {
		t.Errorf("expected the well-formed events to still be recovered, got %+v", incomplete)
	}
}
