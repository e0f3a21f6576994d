package pkgdriver

import (
	"context"
	"fmt"
	"strings"

	"github.com/esinfra/converge/internal/chocolatey"
	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/driver"
	"github.com/esinfra/converge/internal/execx"
	"github.com/esinfra/converge/internal/model"
)

type pkgDriver struct {
	choco *chocolatey.Client
}

// New creates a package driver backed by the system package manager.
func New() driver.Driver {
	return NewWithRunner(execx.System())
}

// NewWithRunner creates a package driver over a caller-supplied runner.
func NewWithRunner(run execx.Runner) driver.Driver {
	return &pkgDriver{choco: chocolatey.New(run)}
}

func init() {
	driver.MustRegister("package", New())
}

var _ driver.Driver = (*pkgDriver)(nil)

func (d *pkgDriver) Metadata() driver.Metadata {
	return driver.Metadata{
		Name:        "package",
		Kind:        "package",
		Description: "Installs packages through Chocolatey, upgrading on demand.",
	}
}

// Evaluation data for package operations.
type pkgEvaluationData struct {
	Installed bool
	Version   string
}

func (d *pkgDriver) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.Package
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("package configuration missing"))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	installed, err := d.choco.Installed(ctx)
	if err != nil {
		return nil, driver.NewExecutionError(res.ID, fmt.Errorf("failed to list installed packages: %w", err))
	}

	version, present := installed[normalized(cfg.Name)]
	data := &pkgEvaluationData{Installed: present, Version: version}

	if !present {
		return &model.EvaluationResult{
			ResourceID:     res.ID,
			CurrentState:   model.StatusMissing,
			RequiresAction: true,
			Message:        fmt.Sprintf("package %s is not installed", cfg.Name),
			Diff:           fmt.Sprintf("Would install: %s", cfg.Name),
			InternalData:   data,
		}, nil
	}

	if cfg.Force {
		return &model.EvaluationResult{
			ResourceID:     res.ID,
			CurrentState:   model.StatusDrifted,
			RequiresAction: true,
			Message:        fmt.Sprintf("package %s %s installed, upgrade forced", cfg.Name, version),
			Diff:           fmt.Sprintf("Would upgrade: %s", cfg.Name),
			InternalData:   data,
		}, nil
	}

	return &model.EvaluationResult{
		ResourceID:     res.ID,
		CurrentState:   model.StatusSatisfied,
		RequiresAction: false,
		Message:        fmt.Sprintf("package %s %s is installed", cfg.Name, version),
		InternalData:   data,
	}, nil
}

func (d *pkgDriver) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.Package
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("package configuration missing"))
	}

	var data *pkgEvaluationData
	if evalResult != nil {
		if typed, ok := evalResult.InternalData.(*pkgEvaluationData); ok {
			data = typed
		}
	}
	if data == nil {
		var err error
		evalResult, err = d.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		data = evalResult.InternalData.(*pkgEvaluationData)
	}

	if !evalResult.RequiresAction {
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusAlreadySatisfied,
			Message:    "no changes needed",
		}, nil
	}

	if data.Installed {
		// Present but force-flagged: upgrade in place.
		if err := d.choco.Upgrade(ctx, cfg.Name); err != nil {
			return failedResult(res.ID, fmt.Errorf("failed to upgrade package: %w", err))
		}
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusApplied,
			Message:    fmt.Sprintf("upgraded %s", cfg.Name),
		}, nil
	}

	if err := d.choco.Install(ctx, cfg.Name); err != nil {
		return failedResult(res.ID, fmt.Errorf("failed to install package: %w", err))
	}

	return &model.ResourceResult{
		ResourceID: res.ID,
		Status:     model.StatusApplied,
		Message:    fmt.Sprintf("installed %s", cfg.Name),
	}, nil
}

func failedResult(resourceID string, err error) (*model.ResourceResult, error) {
	return &model.ResourceResult{
		ResourceID: resourceID,
		Status:     model.StatusFailed,
		Message:    err.Error(),
		Error:      err,
	}, driver.NewExecutionError(resourceID, err)
}

func normalized(name string) string {
	return strings.ToLower(name)
}
