package model

import (
	"time"
)

const (
	// StatusPending indicates a resource has not been reconciled yet.
	StatusPending = "pending"
	// StatusRunning indicates a resource is being converged.
	StatusRunning = "running"
	// StatusApplied marks a corrective action that completed successfully.
	StatusApplied = "applied"
	// StatusAlreadySatisfied indicates the probe found the desired state
	// already held and no action was taken.
	StatusAlreadySatisfied = "already_satisfied"
	// StatusFailed marks a failure while probing or applying.
	StatusFailed = "failed"
	// StatusWarning marks a best-effort action that could not be completed
	// (e.g. the pin verb is unavailable). Counted separately, never fatal.
	StatusWarning = "warning"
	// StatusWouldApply indicates dry-run would perform a corrective action.
	StatusWouldApply = "would_apply"
)

// ResourceResult captures the outcome of reconciling a single resource.
type ResourceResult struct {
	ResourceID string
	Status     string
	Message    string
	Error      error
	Duration   time.Duration
	Timestamp  time.Time
}
