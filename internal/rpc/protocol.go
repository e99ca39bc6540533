// Package rpc implements component K: a thin stdio protocol exposing a
// fixed tool set over the graph, workflow, and persistence engines for
// IDE/editor agents that would rather speak newline-delimited JSON than
// shell out to the wv binary.
package rpc

import "encoding/json"

// Operation names, grouped into the two scopes spec 4.K names.
const (
	// session scope
	OpWork     = "work"
	OpShip     = "ship"
	OpQuick    = "quick"
	OpOverview = "overview"

	// graph scope
	OpAdd       = "add"
	OpLink      = "link"
	OpDone      = "done"
	OpBatchDone = "batch_done"
	OpUpdate    = "update"
	OpList      = "list"
	OpResolve   = "resolve"
	OpDelete    = "delete"
)

// Request is one line of stdin: a tool invocation.
type Request struct {
	Operation string          `json:"operation"`
	Args      json.RawMessage `json:"args"`
	RequestID string          `json:"request_id,omitempty"`
}

// Response is one line of stdout: the result of a Request.
type Response struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// WorkArgs, ShipArgs, QuickArgs, OverviewArgs are the session-scope
// tool argument shapes.
type WorkArgs struct {
	ID string `json:"id"`
}

type ShipArgs struct {
	ID       string `json:"id"`
	Learning string `json:"learning,omitempty"`
	GH       bool   `json:"gh,omitempty"`
}

type QuickArgs struct {
	Text     string `json:"text"`
	Learning string `json:"learning,omitempty"`
}

type OverviewArgs struct{}

// AddArgs, LinkArgs, DoneArgs, BatchDoneArgs, UpdateArgs, ListArgs,
// ResolveArgs, DeleteArgs are the graph-scope tool argument shapes —
// one-to-one with the CLI's flags for the same operation.
type AddArgs struct {
	Text     string          `json:"text"`
	Status   string          `json:"status,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Alias    string          `json:"alias,omitempty"`
	Parent   string          `json:"parent,omitempty"`
	Force    bool            `json:"force,omitempty"`
}

type LinkArgs struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Type    string          `json:"type"`
	Weight  float64         `json:"weight,omitempty"`
	Context json.RawMessage `json:"context,omitempty"`
}

type DoneArgs struct {
	ID                 string `json:"id"`
	Learning           string `json:"learning,omitempty"`
	SkipVerification   bool   `json:"skip_verification,omitempty"`
	NoWarn             bool   `json:"no_warn,omitempty"`
}

type BatchDoneArgs struct {
	IDs      []string `json:"ids"`
	Learning string   `json:"learning,omitempty"`
}

type UpdateArgs struct {
	ID        string          `json:"id"`
	Status    string          `json:"status,omitempty"`
	Text      string          `json:"text,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Alias     string          `json:"alias,omitempty"`
	RemoveKey string          `json:"remove_key,omitempty"`
}

type ListArgs struct {
	Status   string `json:"status,omitempty"`
	Type     string `json:"type,omitempty"`
	Priority *int   `json:"priority,omitempty"`
	All      bool   `json:"all,omitempty"`
}

type ResolveArgs struct {
	N1        string `json:"n1"`
	N2        string `json:"n2"`
	Mode      string `json:"mode"` // winner | merge | defer
	Winner    string `json:"winner,omitempty"`
	Rationale string `json:"rationale,omitempty"`
}

type DeleteArgs struct {
	ID     string `json:"id"`
	Force  bool   `json:"force,omitempty"`
	DryRun bool   `json:"dry_run,omitempty"`
}
