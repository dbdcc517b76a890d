package model

import "time"

// RunStatus is the lifecycle state of a transformation run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one execution of the transformation step for a dataset.
type Run struct {
	ID          string     `json:"id"`
	Dataset     string     `json:"dataset"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RowsLoaded  int64      `json:"rows_loaded"`
	RowsDropped int64      `json:"rows_dropped"`
	RowsWritten int64      `json:"rows_written"`
	Output      string     `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Terminal reports whether the run has finished, successfully or not.
func (r *Run) Terminal() bool {
	return r.Status == RunStatusSucceeded || r.Status == RunStatusFailed
}

// Duration returns how long the run took, or how long it has been running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt != nil {
		return r.CompletedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}
