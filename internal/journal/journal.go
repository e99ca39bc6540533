// Package journal implements the durable append-only operation log
// (component G): journal_begin/step/complete/end around sync/delete/ship,
// and the recover/clean operations that read it back after a crash.
package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"time"

	"github.com/weave-dev/weave/internal/werr"
)

// Event is one line of the journal file.
type Event struct {
	TS    time.Time       `json:"ts"`
	Event string          `json:"event"` // begin | step | end
	OpID  string          `json:"op_id"`
	Op    string          `json:"op,omitempty"`
	Args  json.RawMessage `json:"args,omitempty"`

	Step   int    `json:"step,omitempty"`
	Action string `json:"action,omitempty"`
	Status string `json:"status,omitempty"` // pending | done
}

// Journal appends events to a JSON-lines file in the hot zone.
type Journal struct {
	path string
}

func New(path string) *Journal {
	return &Journal{path: path}
}

func (j *Journal) append(e Event) error {
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return werr.Wrap(werr.PersistenceError, err, "opening journal")
	}
	defer f.Close()
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return werr.Wrap(werr.PersistenceError, err, "writing journal event")
	}
	return nil
}

// Op is a single wrapped operation: begin, a sequence of steps, end.
type Op struct {
	j    *Journal
	opID string
}

// Begin records a "begin" event and returns an Op handle for Step/End.
func Begin(j *Journal, opID, op string, args any) (*Op, error) {
	argsJSON, _ := json.Marshal(args)
	if err := j.append(Event{TS: time.Now().UTC(), Event: "begin", OpID: opID, Op: op, Args: argsJSON}); err != nil {
		return nil, err
	}
	return &Op{j: j, opID: opID}, nil
}

// StepPending records that step n's action is about to run.
func (o *Op) StepPending(n int, action string, args any) error {
	argsJSON, _ := json.Marshal(args)
	return o.j.append(Event{TS: time.Now().UTC(), Event: "step", OpID: o.opID, Step: n, Action: action, Status: "pending", Args: argsJSON})
}

// StepDone records that step n's action completed.
func (o *Op) StepDone(n int, action string) error {
	return o.j.append(Event{TS: time.Now().UTC(), Event: "step", OpID: o.opID, Step: n, Action: action, Status: "done"})
}

// End records the matching "end" event, closing the op.
func (o *Op) End() error {
	return o.j.append(Event{TS: time.Now().UTC(), Event: "end", OpID: o.opID})
}

// IncompleteOp describes an op whose begin has no matching end.
type IncompleteOp struct {
	OpID           string          `json:"op_id"`
	Op             string          `json:"op"`
	Args           json.RawMessage `json:"args,omitempty"`
	CompletedStep  int             `json:"-"`                         // highest step whose status is "done"; 0 if none
	CompletedSteps []int           `json:"completed_steps,omitempty"` // 1..CompletedStep
	PendingAction  string          `json:"action,omitempty"`          // action of the most recent pending-but-not-done step, if any
}

func readEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, werr.Wrap(werr.PersistenceError, err, "reading journal")
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue // tolerate a partially-written trailing line from a crash mid-write
		}
		events = append(events, e)
	}
	return events, sc.Err()
}

// Recover reads the journal and returns the incomplete op, if any (spec
// 4.G: "an op is incomplete iff some begin has no matching end").
func Recover(path string) (*IncompleteOp, error) {
	events, err := readEvents(path)
	if err != nil {
		return nil, err
	}

	begins := map[string]Event{}
	ended := map[string]bool{}
	stepsByOp := map[string][]Event{}
	for _, e := range events {
		switch e.Event {
		case "begin":
			begins[e.OpID] = e
		case "end":
			ended[e.OpID] = true
		case "step":
			stepsByOp[e.OpID] = append(stepsByOp[e.OpID], e)
		}
	}

	for opID, begin := range begins {
		if ended[opID] {
			continue
		}
		out := &IncompleteOp{OpID: opID, Op: begin.Op, Args: begin.Args}
		doneByStep := map[int]bool{}
		for _, s := range stepsByOp[opID] {
			if s.Status == "done" {
				doneByStep[s.Step] = true
				if s.Step > out.CompletedStep {
					out.CompletedStep = s.Step
				}
			}
		}
		for _, s := range stepsByOp[opID] {
			if s.Status == "pending" && !doneByStep[s.Step] {
				out.PendingAction = s.Action
			}
		}
		for step := 1; step <= out.CompletedStep; step++ {
			out.CompletedSteps = append(out.CompletedSteps, step)
		}
		return out, nil
	}
	return nil, nil
}

// Clean truncates the journal when no incomplete op remains; otherwise
// it keeps only the incomplete op's events (spec 4.G `clean`).
func Clean(path string) error {
	events, err := readEvents(path)
	if err != nil {
		return err
	}
	incomplete, err := Recover(path)
	if err != nil {
		return err
	}
	if incomplete == nil {
		return os.WriteFile(path, nil, 0o644)
	}

	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return werr.Wrap(werr.PersistenceError, err, "truncating journal")
	}
	defer f.Close()
	for _, e := range events {
		if e.OpID != incomplete.OpID {
			continue
		}
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			return werr.Wrap(werr.PersistenceError, err, "rewriting journal")
		}
	}
	return nil
}
