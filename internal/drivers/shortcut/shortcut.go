package shortcutdriver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/driver"
	"github.com/esinfra/converge/internal/execx"
	"github.com/esinfra/converge/internal/model"
)

type shortcutDriver struct {
	run execx.Runner
}

// New creates a startup shortcut driver backed by the shell automation
// facility.
func New() driver.Driver {
	return NewWithRunner(execx.System())
}

// NewWithRunner creates a startup shortcut driver over a caller-supplied
// runner.
func NewWithRunner(run execx.Runner) driver.Driver {
	return &shortcutDriver{run: run}
}

func init() {
	driver.MustRegister("startup_shortcut", New())
}

var _ driver.Driver = (*shortcutDriver)(nil)

func (d *shortcutDriver) Metadata() driver.Metadata {
	return driver.Metadata{
		Name:        "startup_shortcut",
		Kind:        "startup_shortcut",
		Description: "Drops auto-launch shortcuts into the startup folder.",
	}
}

func (d *shortcutDriver) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.StartupShortcut
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("startup_shortcut configuration missing"))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	linkPath := cfg.LinkPath()
	if _, err := os.Stat(linkPath); err == nil {
		// Shortcuts are never updated in place. If the target moved the
		// stale shortcut stays; operators delete it to force recreation.
		return &model.EvaluationResult{
			ResourceID:     res.ID,
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        fmt.Sprintf("shortcut %s exists", linkPath),
		}, nil
	} else if !os.IsNotExist(err) {
		return nil, driver.NewStateError(res.ID, fmt.Errorf("cannot access %s: %w", linkPath, err))
	}

	return &model.EvaluationResult{
		ResourceID:     res.ID,
		CurrentState:   model.StatusMissing,
		RequiresAction: true,
		Message:        fmt.Sprintf("shortcut %s does not exist", linkPath),
		Diff:           fmt.Sprintf("Would create shortcut to: %s", cfg.Target),
	}, nil
}

func (d *shortcutDriver) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.StartupShortcut
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("startup_shortcut configuration missing"))
	}

	if evalResult != nil && !evalResult.RequiresAction {
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusAlreadySatisfied,
			Message:    "no changes needed",
		}, nil
	}

	script := createShortcutScript(cfg)
	if out, err := d.run.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script); err != nil {
		detail := execx.PrimaryOutput(out)
		if detail == "" {
			detail = err.Error()
		}
		wrapped := fmt.Errorf("failed to create shortcut: %s", detail)
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
		Message:    fmt.Sprintf("created shortcut %s", cfg.LinkPath()),
	}, nil
}

// createShortcutScript builds the WScript.Shell automation call that writes
// the .lnk file.
func createShortcutScript(cfg *config.StartupShortcutResource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "$ws = New-Object -ComObject WScript.Shell; ")
	fmt.Fprintf(&b, "$s = $ws.CreateShortcut('%s'); ", escape(cfg.LinkPath()))
	fmt.Fprintf(&b, "$s.TargetPath = '%s'; ", escape(cfg.Target))
	if cfg.Args != "" {
		fmt.Fprintf(&b, "$s.Arguments = '%s'; ", escape(cfg.Args))
	}
	if cfg.WorkingDir != "" {
		fmt.Fprintf(&b, "$s.WorkingDirectory = '%s'; ", escape(cfg.WorkingDir))
	}
	b.WriteString("$s.Save()")
	return b.String()
}

// escape doubles single quotes for embedding in a PowerShell literal.
func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
