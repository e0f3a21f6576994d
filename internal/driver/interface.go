package driver

import (
	"context"

	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/model"
)

// Metadata describes a driver's identity for the registry and CLI listing.
type Metadata struct {
	Name        string
	Kind        string
	Description string
}

// Driver defines the contract every resource kind implements. A driver is
// stateless: all state it observes lives in the external system it fronts
// (package manager, user directory, filesystem, registry, git).
//
// Implementations:
//   - Evaluate performs a STRICTLY READ-ONLY probe of the current state
//     against the desired state in the resource descriptor. It must not
//     mutate anything.
//   - Apply performs the minimal corrective action and must be safe to call
//     on a partially-applied resource (re-running directory creation on an
//     existing directory is a no-op, not an error).
type Driver interface {
	// Metadata returns the driver's identity.
	Metadata() Metadata

	// Evaluate probes the external system and reports whether corrective
	// action is required, without side effects.
	//
	// Returns a StateError when the current state cannot be determined, a
	// ValidationError when the descriptor's kind block is malformed, or an
	// ExecutionError when the probe command itself fails.
	Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error)

	// Apply converges the resource. Only called when Evaluate reported
	// RequiresAction. The evaluation result carries InternalData so probes
	// are not recomputed.
	Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error)
}
