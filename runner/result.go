package runner

import (
	"sync"
	"time"

	"github.com/rlch/pdchain/analysis"
)

// Result accumulates request outcomes during a run.
type Result struct {
	mu sync.RWMutex

	StartTime time.Time
	EndTime   time.Time

	Total   int
	Passed  int
	Failed  int
	Skipped int
	Errors  int

	// Requests indexed by path string: "requests/people.chain.yaml/adults"
	Requests map[string]*RequestResult

	// Order preserves insertion order for display
	Order []string
}

// NewResult creates an initialized Result.
func NewResult() *Result {
	return &Result{
		StartTime: time.Now(),
		Requests:  make(map[string]*RequestResult),
	}
}

// Add records a terminal event in the result.
func (r *Result) Add(event Event) {
	if !event.Action.IsTerminal() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	path := event.PathString()

	r.Requests[path] = &RequestResult{
		File:        event.File,
		Name:        event.Name,
		Status:      event.Action,
		Elapsed:     event.Elapsed,
		Error:       event.Error,
		Code:        event.Code,
		Diagnostics: event.Diagnostics,
	}
	r.Order = append(r.Order, path)
	r.Total++

	switch event.Action {
	case ActionPass:
		r.Passed++
	case ActionFail:
		r.Failed++
	case ActionSkip:
		r.Skipped++
	case ActionError:
		r.Errors++
	case ActionRun:
		// Not a terminal action
	}
}

// Finish marks the result as complete.
func (r *Result) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.EndTime = time.Now()
}

// Elapsed returns the total run time.
func (r *Result) Elapsed() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}

	return r.EndTime.Sub(r.StartTime)
}

// Ok returns true if no request failed or errored.
func (r *Result) Ok() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.Failed == 0 && r.Errors == 0
}

// Failures returns the number of failed and errored requests.
func (r *Result) Failures() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.Failed + r.Errors
}

// FailedRequests returns all failed or errored requests in order.
func (r *Result) FailedRequests() []*RequestResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var failed []*RequestResult

	for _, path := range r.Order {
		rr := r.Requests[path]
		if rr.Status == ActionFail || rr.Status == ActionError {
			failed = append(failed, rr)
		}
	}

	return failed
}

// RequestResult holds the outcome of a single request.
type RequestResult struct {
	File        string
	Name        string
	Status      Action
	Elapsed     time.Duration
	Error       error
	Code        string
	Diagnostics []analysis.Diagnostic
}

// PathString returns the path as a slash-separated string.
func (rr *RequestResult) PathString() string {
	if rr.File == "" {
		return rr.Name
	}

	return rr.File + "/" + rr.Name
}
