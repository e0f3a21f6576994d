package taskbarpindriver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/esinfra/converge/internal/chocolatey"
	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/driver"
	"github.com/esinfra/converge/internal/execx"
	"github.com/esinfra/converge/internal/model"
)

// pinnedMarker is printed by the pin script so success can be told apart
// from the verb silently not existing on this Windows build.
const pinnedMarker = "PINNED"

type taskbarPinDriver struct {
	run execx.Runner
}

// New creates a taskbar pin driver.
func New() driver.Driver {
	return NewWithRunner(execx.System())
}

// NewWithRunner creates a taskbar pin driver over a caller-supplied runner.
func NewWithRunner(run execx.Runner) driver.Driver {
	return &taskbarPinDriver{run: run}
}

func init() {
	driver.MustRegister("taskbar_pin", New())
}

var _ driver.Driver = (*taskbarPinDriver)(nil)

func (d *taskbarPinDriver) Metadata() driver.Metadata {
	return driver.Metadata{
		Name:        "taskbar_pin",
		Kind:        "taskbar_pin",
		Description: "Pins applications to the taskbar, best effort.",
	}
}

// Evaluation data for taskbar pin operations.
type pinEvaluationData struct {
	TargetPath string
}

func (d *taskbarPinDriver) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.TaskbarPin
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("taskbar_pin configuration missing"))
	}

	target, err := d.resolveTarget(ctx, cfg)
	if err != nil {
		return nil, driver.NewPreconditionError(res.ID, err)
	}

	linkPath := filepath.Join(cfg.Folder, linkName(target))
	if _, err := os.Stat(linkPath); err == nil {
		return &model.EvaluationResult{
			ResourceID:     res.ID,
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        fmt.Sprintf("%s is already pinned", filepath.Base(target)),
		}, nil
	} else if !os.IsNotExist(err) {
		return nil, driver.NewStateError(res.ID, fmt.Errorf("cannot access %s: %w", linkPath, err))
	}

	return &model.EvaluationResult{
		ResourceID:     res.ID,
		CurrentState:   model.StatusMissing,
		RequiresAction: true,
		Message:        fmt.Sprintf("%s is not pinned", filepath.Base(target)),
		Diff:           fmt.Sprintf("Would pin to taskbar: %s", target),
		InternalData:   &pinEvaluationData{TargetPath: target},
	}, nil
}

func (d *taskbarPinDriver) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.TaskbarPin
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("taskbar_pin configuration missing"))
	}

	var data *pinEvaluationData
	if evalResult != nil {
		if typed, ok := evalResult.InternalData.(*pinEvaluationData); ok {
			data = typed
		}
	}
	if data == nil {
		var err error
		evalResult, err = d.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		if typed, ok := evalResult.InternalData.(*pinEvaluationData); ok {
			data = typed
		}
	}

	if !evalResult.RequiresAction {
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusAlreadySatisfied,
			Message:    "no changes needed",
		}, nil
	}

	script := pinScript(data.TargetPath)
	out, err := d.run.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	if err != nil {
		detail := execx.PrimaryOutput(out)
		if detail == "" {
			detail = err.Error()
		}
		wrapped := fmt.Errorf("failed to pin %s: %s", data.TargetPath, detail)
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusFailed,
			Message:    wrapped.Error(),
			Error:      wrapped,
		}, driver.NewExecutionError(res.ID, wrapped)
	}

	// The pin verb was removed from some Windows 10/11 builds. The script
	// exits zero either way; only the marker proves the verb ran.
	if !strings.Contains(out.Stdout, pinnedMarker) {
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusWarning,
			Message:    fmt.Sprintf("pin verb unavailable on this host; %s was not pinned", filepath.Base(data.TargetPath)),
		}, nil
	}

	return &model.ResourceResult{
		ResourceID: res.ID,
		Status:     model.StatusApplied,
		Message:    fmt.Sprintf("pinned %s to taskbar", filepath.Base(data.TargetPath)),
	}, nil
}

// resolveTarget determines the executable to pin: an explicit path that must
// exist, or a package name resolved through the package manager.
func (d *taskbarPinDriver) resolveTarget(ctx context.Context, cfg *config.TaskbarPinResource) (string, error) {
	if cfg.Target != "" {
		if _, err := os.Stat(cfg.Target); err != nil {
			return "", fmt.Errorf("pin target %s does not exist: %w", cfg.Target, err)
		}
		return cfg.Target, nil
	}

	path, err := chocolatey.New(d.run).InstallPath(ctx, cfg.Package)
	if err != nil {
		return "", fmt.Errorf("cannot resolve executable for package %s: %w", cfg.Package, err)
	}
	return path, nil
}

// linkName derives the pinned shortcut file name Windows uses for a target.
func linkName(target string) string {
	base := filepath.Base(target)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".lnk"
}

// pinScript builds the Shell.Application call that invokes the taskbar pin
// verb on the target. Prints the marker only when a matching verb fired.
func pinScript(target string) string {
	dir := escape(filepath.Dir(target))
	file := escape(filepath.Base(target))
	return fmt.Sprintf(
		"$sh = New-Object -ComObject Shell.Application; "+
			"$item = $sh.Namespace('%s').ParseName('%s'); "+
			"$verb = $item.Verbs() | Where-Object { $_.Name -replace '&','' -match 'Pin to taskbar' }; "+
			"if ($verb) { $verb.DoIt(); Write-Output '%s' }",
		dir, file, pinnedMarker)
}

// escape doubles single quotes for embedding in a PowerShell literal.
func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
