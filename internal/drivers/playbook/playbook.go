package playbookdriver

import (
	"context"
	"fmt"
	"os"

	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/driver"
	"github.com/esinfra/converge/internal/execx"
	"github.com/esinfra/converge/internal/model"
)

type playbookDriver struct {
	run execx.Runner
}

// New creates a playbook driver that shells out to the configuration
// management tool.
func New() driver.Driver {
	return NewWithRunner(execx.System())
}

// NewWithRunner creates a playbook driver over a caller-supplied runner.
func NewWithRunner(run execx.Runner) driver.Driver {
	return &playbookDriver{run: run}
}

func init() {
	driver.MustRegister("playbook", New())
}

var _ driver.Driver = (*playbookDriver)(nil)

func (d *playbookDriver) Metadata() driver.Metadata {
	return driver.Metadata{
		Name:        "playbook",
		Kind:        "playbook",
		Description: "Runs configuration-management playbooks as opaque steps.",
	}
}

func (d *playbookDriver) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.Playbook
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("playbook configuration missing"))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(cfg.Playbook); err != nil {
		return nil, driver.NewPreconditionError(res.ID, fmt.Errorf("playbook %s does not exist: %w", cfg.Playbook, err))
	}

	// Playbooks are opaque: without a creates marker there is nothing to
	// probe, so the run is delegated and the tool's own idempotence relied
	// on.
	if cfg.Creates == "" {
		return &model.EvaluationResult{
			ResourceID:     res.ID,
			CurrentState:   model.StatusUnknown,
			RequiresAction: true,
			Message:        fmt.Sprintf("playbook %s has no completion marker", cfg.Playbook),
			Diff:           fmt.Sprintf("Would run playbook: %s", cfg.Playbook),
		}, nil
	}

	if _, err := os.Stat(cfg.Creates); err == nil {
		return &model.EvaluationResult{
			ResourceID:     res.ID,
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        fmt.Sprintf("marker %s exists", cfg.Creates),
		}, nil
	} else if !os.IsNotExist(err) {
		return nil, driver.NewStateError(res.ID, fmt.Errorf("cannot access marker %s: %w", cfg.Creates, err))
	}

	return &model.EvaluationResult{
		ResourceID:     res.ID,
		CurrentState:   model.StatusMissing,
		RequiresAction: true,
		Message:        fmt.Sprintf("marker %s does not exist", cfg.Creates),
		Diff:           fmt.Sprintf("Would run playbook: %s", cfg.Playbook),
	}, nil
}

func (d *playbookDriver) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.Playbook
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("playbook configuration missing"))
	}

	if evalResult != nil && !evalResult.RequiresAction {
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusAlreadySatisfied,
			Message:    "no changes needed",
		}, nil
	}

	args := []string{}
	if cfg.Inventory != "" {
		args = append(args, "-i", cfg.Inventory)
	}
	args = append(args, cfg.Playbook)

	if out, err := d.run.Run(ctx, "ansible-playbook", args...); err != nil {
		detail := execx.PrimaryOutput(out)
		if detail == "" {
			detail = err.Error()
		}
		wrapped := fmt.Errorf("playbook %s failed: %s", cfg.Playbook, detail)
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusFailed,
			Message:    wrapped.Error(),
			Error:      wrapped,
		}, driver.NewExecutionError(res.ID, wrapped)
	}

	return &model.ResourceResult{
		ResourceID: res.ID,
		Status:     model.StatusApplied,
		Message:    fmt.Sprintf("ran playbook %s", cfg.Playbook),
	}, nil
}
