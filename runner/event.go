// Package runner builds and checks batches of chain requests and streams
// the outcome of each to formatters.
package runner

import (
	"strings"
	"time"

	"github.com/rlch/pdchain"
	"github.com/rlch/pdchain/analysis"
)

// Action represents the type of request event.
type Action string

// Action constants for request events.
const (
	ActionRun   Action = "run"
	ActionPass  Action = "passed"
	ActionFail  Action = "failed"
	ActionSkip  Action = "skipped"
	ActionError Action = "error"
)

// IsTerminal returns true if this action ends a request.
func (a Action) IsTerminal() bool {
	return a == ActionPass || a == ActionFail || a == ActionSkip || a == ActionError
}

// Event represents a single request event emitted during a run.
type Event struct {
	Time    time.Time     // When the event occurred
	Action  Action        // What happened
	File    string        // Source file path, empty for inline requests
	Name    string        // Request name, or its 1-based index in the file
	Elapsed time.Duration // Time taken (for terminal events)
	Error   error         // Load or build error (for ActionError)

	Request *pdchain.Request
	Result  *pdchain.Result
	Code    string

	Diagnostics []analysis.Diagnostic
}

// PathString returns "file/name", or just the name for inline requests.
func (e Event) PathString() string {
	if e.File == "" {
		return e.Name
	}

	return e.File + "/" + e.Name
}

// ID returns a unique identifier: "file::name".
func (e Event) ID() string {
	return strings.Join([]string{e.File, e.Name}, "::")
}
