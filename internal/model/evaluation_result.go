package model

// VerificationStatus classifies the current state of a resource relative to
// its desired state.
type VerificationStatus string

const (
	// StatusSatisfied means the desired state already holds.
	StatusSatisfied VerificationStatus = "satisfied"
	// StatusMissing means the resource is absent and must be created.
	StatusMissing VerificationStatus = "missing"
	// StatusDrifted means the resource exists but differs from the desired state.
	StatusDrifted VerificationStatus = "drifted"
	// StatusBlocked means a precondition for the resource is unmet.
	StatusBlocked VerificationStatus = "blocked"
	// StatusUnknown means the probe could not determine the current state.
	StatusUnknown VerificationStatus = "unknown"
)

// IsValid reports whether the status is one of the defined values.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case StatusSatisfied, StatusMissing, StatusDrifted, StatusBlocked, StatusUnknown:
		return true
	}
	return false
}

// EvaluationResult contains the result of probing a resource's current state
// against its desired state. Returned by Driver.Evaluate() and passed to
// Driver.Apply() when action is required.
type EvaluationResult struct {
	// ResourceID is the unique identifier of the probed resource.
	ResourceID string

	// CurrentState represents the current state of the resource
	// relative to the desired state.
	CurrentState VerificationStatus

	// RequiresAction indicates whether Apply() should be called.
	RequiresAction bool

	// Message is a human-readable description of the state assessment.
	Message string

	// Diff is an optional preview of what would change, shown in dry-run.
	Diff string

	// InternalData is opaque data passed from Evaluate() to Apply()
	// so drivers do not recompute the probe.
	InternalData any
}
