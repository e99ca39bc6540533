// Package types holds the core data model shared by every component:
// nodes, edges, the closed enums, and the JSON metadata shape.
package types

import (
	"encoding/json"
	"time"
)

// Status is the closed node-status enum (spec section 3).
type Status string

const (
	StatusTodo            Status = "todo"
	StatusActive          Status = "active"
	StatusBlocked         Status = "blocked"
	StatusBlockedExternal Status = "blocked-external"
	StatusDone            Status = "done"
	StatusPending         Status = "pending"
)

// ValidStatuses is the closed set; anything else is a graph-integrity
// defect per spec section 3.
var ValidStatuses = map[Status]bool{
	StatusTodo:            true,
	StatusActive:          true,
	StatusBlocked:         true,
	StatusBlockedExternal: true,
	StatusDone:            true,
	StatusPending:         true,
}

// EdgeType is the closed edge-type enum (spec section 3).
type EdgeType string

const (
	EdgeBlocks      EdgeType = "blocks"
	EdgeRelatesTo   EdgeType = "relates_to"
	EdgeImplements  EdgeType = "implements"
	EdgeContradicts EdgeType = "contradicts"
	EdgeSupersedes  EdgeType = "supersedes"
	EdgeReferences  EdgeType = "references"
	EdgeObsoletes   EdgeType = "obsoletes"
	EdgeAddresses   EdgeType = "addresses"
)

var ValidEdgeTypes = map[EdgeType]bool{
	EdgeBlocks:      true,
	EdgeRelatesTo:   true,
	EdgeImplements:  true,
	EdgeContradicts: true,
	EdgeSupersedes:  true,
	EdgeReferences:  true,
	EdgeObsoletes:   true,
	EdgeAddresses:   true,
}

// Direction selects which side of an edge to traverse.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
	DirectionBoth     Direction = "both"
)

// Metadata is the free-form JSON object carried by a node. Recognized
// keys are pulled out as named fields for typed access; unrecognized
// keys round-trip through Extra.
type Metadata struct {
	Type               string   `json:"type,omitempty"`
	Priority           *int     `json:"priority,omitempty"`
	Alias              string   `json:"alias,omitempty"`
	Decision           string   `json:"decision,omitempty"`
	Pattern            string   `json:"pattern,omitempty"`
	Pitfall            string   `json:"pitfall,omitempty"`
	Learning           string   `json:"learning,omitempty"`
	LearningQuality    *int     `json:"learning_quality,omitempty"`
	VerificationMethod string   `json:"verification_method,omitempty"`
	DoneCriteria       string   `json:"done_criteria,omitempty"`
	GHIssue            *int     `json:"gh_issue,omitempty"`
	Commits            []string `json:"commits,omitempty"`
	ImportedFrom       string   `json:"imported_from,omitempty"`
	ContextLearnings   []string `json:"context_learnings,omitempty"`
	ShipPending        bool     `json:"ship_pending,omitempty"`

	// Extra carries any key not enumerated above, so round trips never
	// drop user-supplied metadata.
	Extra map[string]json.RawMessage `json:"-"`
}

// Node is a task-graph vertex.
type Node struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Status    Status    `json:"status"`
	Metadata  Metadata  `json:"metadata"`
	Alias     string    `json:"alias,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Edge is a typed, weighted arc between two nodes.
type Edge struct {
	Source    string          `json:"source"`
	Target    string          `json:"target"`
	Type      EdgeType        `json:"type"`
	Weight    float64         `json:"weight"`
	Context   json.RawMessage `json:"context,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ResolveMode selects the strategy for resolving a contradicts edge.
type ResolveMode string

const (
	ResolveWinner ResolveMode = "winner"
	ResolveMerge  ResolveMode = "merge"
	ResolveDefer  ResolveMode = "defer"
)
