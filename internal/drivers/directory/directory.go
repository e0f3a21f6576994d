package directorydriver

import (
	"context"
	"fmt"
	"os"

	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/driver"
	"github.com/esinfra/converge/internal/model"
)

type directoryDriver struct{}

// New creates a new directory driver.
func New() driver.Driver {
	return &directoryDriver{}
}

func init() {
	driver.MustRegister("directory", New())
}

var _ driver.Driver = (*directoryDriver)(nil)

func (d *directoryDriver) Metadata() driver.Metadata {
	return driver.Metadata{
		Name:        "directory",
		Kind:        "directory",
		Description: "Creates directory trees, intermediate segments included.",
	}
}

func (d *directoryDriver) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.Directory
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("directory configuration missing"))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(cfg.Path)
	switch {
	case err == nil && info.IsDir():
		return &model.EvaluationResult{
			ResourceID:     res.ID,
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        fmt.Sprintf("directory %s exists", cfg.Path),
		}, nil
	case err == nil:
		// A regular file occupies the path. The driver never deletes
		// operator data, so this is a blocked precondition.
		return nil, driver.NewPreconditionError(res.ID, fmt.Errorf("path %s exists and is not a directory", cfg.Path))
	case os.IsNotExist(err):
		return &model.EvaluationResult{
			ResourceID:     res.ID,
			CurrentState:   model.StatusMissing,
			RequiresAction: true,
			Message:        fmt.Sprintf("directory %s does not exist", cfg.Path),
			Diff:           fmt.Sprintf("Would create: %s", cfg.Path),
		}, nil
	default:
		return nil, driver.NewStateError(res.ID, fmt.Errorf("cannot stat %s: %w", cfg.Path, err))
	}
}

func (d *directoryDriver) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.Directory
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("directory configuration missing"))
	}

	if evalResult != nil && !evalResult.RequiresAction {
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusAlreadySatisfied,
			Message:    "no changes needed",
		}, nil
	}

	// MkdirAll tolerates pre-existing segments, so a partially created
	// tree converges without error.
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusFailed,
			Message:    fmt.Sprintf("failed to create directory: %v", err),
			Error:      err,
		}, driver.NewExecutionError(res.ID, fmt.Errorf("failed to create directory %s: %w", cfg.Path, err))
	}

	return &model.ResourceResult{
		ResourceID: res.ID,
		Status:     model.StatusApplied,
		Message:    fmt.Sprintf("created %s", cfg.Path),
	}, nil
}
