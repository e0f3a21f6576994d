package errors

import (
	"fmt"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures manifest validation issues, including duplicate
// resource identities discovered at load time.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError represents a runtime failure while reconciling a resource.
type ExecutionError struct {
	ResourceID string
	Err        error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(resourceID string, err error) error {
	return &ExecutionError{ResourceID: resourceID, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.ResourceID != "" {
		return fmt.Sprintf("execution error on resource %s: %v", e.ResourceID, e.Err)
	}
	return fmt.Sprintf("execution error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PrivilegeError indicates the process lacks the elevation the run requires.
// It is always fatal and is raised before any resource is probed.
type PrivilegeError struct {
	Message string
	Err     error
}

// NewPrivilegeError constructs a PrivilegeError.
func NewPrivilegeError(message string, err error) error {
	return &PrivilegeError{Message: message, Err: err}
}

func (e *PrivilegeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return fmt.Sprintf("privilege error: %s", e.Message)
	}
	return fmt.Sprintf("privilege error: %v", e.Err)
}

// Unwrap exposes the underlying error.
func (e *PrivilegeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BootstrapError indicates the package manager is not callable. Like
// PrivilegeError it is fatal and precedes all resource reconciliation.
type BootstrapError struct {
	Tool string
	Err  error
}

// NewBootstrapError constructs a BootstrapError for the named tool.
func NewBootstrapError(tool string, err error) error {
	return &BootstrapError{Tool: tool, Err: err}
}

func (e *BootstrapError) Error() string {
	if e == nil {
		return ""
	}
	if e.Tool != "" {
		return fmt.Sprintf("bootstrap error: %s unavailable: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("bootstrap error: %v", e.Err)
}

// Unwrap exposes the underlying error.
func (e *BootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// DriverError indicates issues within driver registration or dispatch.
type DriverError struct {
	Driver  string
	Message string
	Err     error
}

// NewDriverError constructs a DriverError for the given resource kind.
func NewDriverError(driver string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &DriverError{Driver: driver, Message: message, Err: err}
}

func (e *DriverError) Error() string {
	if e == nil {
		return ""
	}
	if e.Driver != "" {
		return fmt.Sprintf("driver error [%s]: %s", e.Driver, e.Message)
	}
	return fmt.Sprintf("driver error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *DriverError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
