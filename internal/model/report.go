package model

import (
	"time"
)

// Failure records one failed resource for the end-of-run summary.
type Failure struct {
	ResourceID string
	Detail     string
}

// RunReport aggregates the outcome of a full reconciliation pass. It is
// created empty at run start and mutated only by the reconciler.
type RunReport struct {
	Total      int
	Applied    int
	Satisfied  int
	Failed     int
	Warnings   int
	WouldApply int

	Failures []Failure

	// CriticalFailure is set when a preflight check or a resource flagged
	// critical fails; it drives the process exit status.
	CriticalFailure bool

	Start    time.Time
	Duration time.Duration
}

// NewRunReport returns an empty report stamped with the current time.
func NewRunReport() *RunReport {
	return &RunReport{Start: time.Now()}
}

// Record folds a single resource outcome into the report counters.
func (r *RunReport) Record(res ResourceResult, critical bool) {
	r.Total++

	switch res.Status {
	case StatusApplied:
		r.Applied++
	case StatusAlreadySatisfied:
		r.Satisfied++
	case StatusWarning:
		r.Warnings++
	case StatusWouldApply:
		r.WouldApply++
	case StatusFailed:
		r.Failed++
		detail := res.Message
		if detail == "" && res.Error != nil {
			detail = res.Error.Error()
		}
		r.Failures = append(r.Failures, Failure{ResourceID: res.ResourceID, Detail: detail})
		if critical {
			r.CriticalFailure = true
		}
	}
}

// ExitCode maps the report onto the process exit status. Non-critical
// failures are advisory; only critical ones make the run fail.
func (r *RunReport) ExitCode() int {
	if r.CriticalFailure {
		return 1
	}
	return 0
}
