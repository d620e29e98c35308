package sift

import (
	"context"
	"time"
)

// Target is one logical scrape target: a site or page set whose records go
// to a single RecordStore.
type Target struct {
	Name string   `json:"name" yaml:"name"`
	URLs []string `json:"urls" yaml:"urls"`
}

// Validate returns an error if the target contains invalid fields.
// Individual URLs are not checked here; a malformed URL fails its own fetch.
func (t *Target) Validate() error {
	if t.Name == "" {
		return Errorf(EINVALID, "target name required")
	}
	if len(t.URLs) == 0 {
		return Errorf(EINVALID, "target %q has no URLs", t.Name)
	}
	return nil
}

// TargetStatus summarizes how a target's pipeline ended.
type TargetStatus string

// Target statuses.
const (
	TargetSuccess TargetStatus = "success"
	TargetPartial TargetStatus = "partial"
	TargetFailure TargetStatus = "failure"
)

// TargetResult records the outcome of one target's pipeline.
type TargetResult struct {
	RunID  string       `json:"runId"`
	Target string       `json:"target"`
	Status TargetStatus `json:"status"`

	Pages        int `json:"pages"`
	PagesFailed  int `json:"pagesFailed"`
	Resumed      int `json:"resumed"`
	Chunks       int `json:"chunks"`
	ChunksFailed int `json:"chunksFailed"`
	Records      int `json:"records"`
	Rejected     int `json:"rejected"`
	Attempts     int `json:"attempts"`
	Tokens       int `json:"tokens"`

	// Errors holds every cause of a skipped page, chunk, candidate, or
	// unreadable stored record.
	Errors []error `json:"-"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// ResolveStatus derives Status from the counters.
func (r *TargetResult) ResolveStatus() {
	switch {
	case r.Pages == 0 && r.Resumed == 0:
		r.Status = TargetFailure
	case r.PagesFailed > 0 || r.ChunksFailed > 0:
		r.Status = TargetPartial
	default:
		r.Status = TargetSuccess
	}
}

// Run is one invocation of the pipeline over a set of targets.
type Run struct {
	ID         string          `json:"id"`
	Schema     string          `json:"schema"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Targets    []*TargetResult `json:"targets,omitempty"`
}

// RunService records runs and their per-target results.
type RunService interface {
	// CreateRun creates a new run and assigns its ID and start time.
	CreateRun(ctx context.Context, run *Run) error

	// RecordTarget stores the result of one target's pipeline.
	RecordTarget(ctx context.Context, result *TargetResult) error

	// FinishRun marks a run as finished.
	// Returns ENOTFOUND if the run does not exist.
	FinishRun(ctx context.Context, id string) error

	// FindRunByID retrieves a run with its target results.
	// Returns ENOTFOUND if the run does not exist.
	FindRunByID(ctx context.Context, id string) (*Run, error)

	// FindRuns retrieves runs matching the filter, newest first.
	FindRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
}

// RunFilter represents a filter for FindRuns.
type RunFilter struct {
	ID     *string `json:"id"`
	Schema *string `json:"schema"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
