// Package bridge defines the abstract external-issue-tracker interface
// (component L) the core consumes, plus one concrete, simple
// implementation that shells out to a VCS-hosted issue CLI. Bridge
// failures are always non-fatal: every call site logs and continues.
package bridge

import "context"

// Bridge is the external-issue-tracker contract. A nil *int number
// return means "no issue created/linked".
type Bridge interface {
	CreateIssue(ctx context.Context, text string, labels []string, body string) (*int, error)
	CloseIssue(ctx context.Context, number int, comment string) error
	RemoveLabels(ctx context.Context, number int, labels []string) error
	AddLabels(ctx context.Context, number int, labels []string) error
	RefreshParentBody(ctx context.Context, parentID string) error
}

// Noop is a Bridge that performs no external calls; it is the default
// when no issue-tracker CLI is configured. add --gh against it leaves
// metadata.gh_issue unset.
type Noop struct{}

func (Noop) CreateIssue(context.Context, string, []string, string) (*int, error) { return nil, nil }
func (Noop) CloseIssue(context.Context, int, string) error                       { return nil }
func (Noop) RemoveLabels(context.Context, int, []string) error                   { return nil }
func (Noop) AddLabels(context.Context, int, []string) error                      { return nil }
func (Noop) RefreshParentBody(context.Context, string) error                     { return nil }
