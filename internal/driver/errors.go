package driver

import (
	"errors"
)

// Error is the base interface for all driver errors. It gives the
// reconciler structured information for deciding how a failure is recorded.
type Error interface {
	error
	ResourceID() string
	Unwrap() error
}

// ValidationError represents a malformed kind block in a resource
// descriptor: missing required fields or values the driver cannot use.
type ValidationError struct {
	ID  string
	Err error
}

// NewValidationError creates a new ValidationError.
func NewValidationError(resourceID string, err error) *ValidationError {
	return &ValidationError{ID: resourceID, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return "validation error in resource " + e.ID
	}
	return "validation error in resource " + e.ID + ": " + e.Err.Error()
}

// ResourceID returns the identifier of the resource where the error occurred.
func (e *ValidationError) ResourceID() string {
	return e.ID
}

// Unwrap returns the underlying validation error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is checks if this error matches another ValidationError.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// ExecutionError represents an external command failure while probing or
// applying: the underlying OS or package-manager call returned nonzero,
// timed out, or could not be started.
type ExecutionError struct {
	ID  string
	Err error
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(resourceID string, err error) *ExecutionError {
	return &ExecutionError{ID: resourceID, Err: err}
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return "execution error in resource " + e.ID
	}
	return "execution error in resource " + e.ID + ": " + e.Err.Error()
}

// ResourceID returns the identifier of the resource where the error occurred.
func (e *ExecutionError) ResourceID() string {
	return e.ID
}

// Unwrap returns the underlying execution error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is checks if this error matches another ExecutionError.
func (e *ExecutionError) Is(target error) bool {
	_, ok := target.(*ExecutionError)
	return ok
}

// PreconditionError represents a precondition the driver needs but found
// unmet: the pin target executable is absent, or a directory path is
// occupied by a regular file. Non-fatal unless the resource is critical.
type PreconditionError struct {
	ID  string
	Err error
}

// NewPreconditionError creates a new PreconditionError.
func NewPreconditionError(resourceID string, err error) *PreconditionError {
	return &PreconditionError{ID: resourceID, Err: err}
}

func (e *PreconditionError) Error() string {
	if e.Err == nil {
		return "precondition unmet for resource " + e.ID
	}
	return "precondition unmet for resource " + e.ID + ": " + e.Err.Error()
}

// ResourceID returns the identifier of the resource where the error occurred.
func (e *PreconditionError) ResourceID() string {
	return e.ID
}

// Unwrap returns the underlying error.
func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// Is checks if this error matches another PreconditionError.
func (e *PreconditionError) Is(target error) bool {
	_, ok := target.(*PreconditionError)
	return ok
}

// StateError represents inability to determine the current system state:
// the probe command produced output the driver cannot interpret, or the
// external system is inconsistent.
type StateError struct {
	ID  string
	Err error
}

// NewStateError creates a new StateError.
func NewStateError(resourceID string, err error) *StateError {
	return &StateError{ID: resourceID, Err: err}
}

func (e *StateError) Error() string {
	if e.Err == nil {
		return "state error in resource " + e.ID
	}
	return "state error in resource " + e.ID + ": " + e.Err.Error()
}

// ResourceID returns the identifier of the resource where the error occurred.
func (e *StateError) ResourceID() string {
	return e.ID
}

// Unwrap returns the underlying state detection error.
func (e *StateError) Unwrap() error {
	return e.Err
}

// Is checks if this error matches another StateError.
func (e *StateError) Is(target error) bool {
	_, ok := target.(*StateError)
	return ok
}

// AsDriverError attempts to convert any error to a driver Error so the
// reconciler can categorize failures.
func AsDriverError(err error) (Error, bool) {
	var driverErr Error
	if errors.As(err, &driverErr) {
		return driverErr, true
	}
	return nil, false
}
