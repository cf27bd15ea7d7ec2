package export

import (
	"time"

	"git.home.luguber.info/inful/confexport/internal/state"
)

// PageFailure records one page that could not be exported.
type PageFailure struct {
	PageID string
	Title  string
	Err    error
}

// Result aggregates the outcome of one export run.
type Result struct {
	JobID    string
	RootID   string
	Started  time.Time
	Duration time.Duration

	Exported int
	Skipped  int
	Failed   int
	Images   int

	Failures []PageFailure

	// Stale lists previously exported pages absent from this run, meaning
	// their page was deleted or moved out of the tree.
	Stale []state.PageRecord

	seen map[string]struct{}
}

func newResult(jobID, rootID string) *Result {
	return &Result{
		JobID:   jobID,
		RootID:  rootID,
		Started: time.Now(),
		seen:    make(map[string]struct{}),
	}
}

// Pages returns the number of pages visited, successful or not.
func (r *Result) Pages() int {
	return r.Exported + r.Skipped + r.Failed
}
