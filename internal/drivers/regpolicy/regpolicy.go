package regpolicydriver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/driver"
	"github.com/esinfra/converge/internal/execx"
	"github.com/esinfra/converge/internal/model"
)

type regPolicyDriver struct {
	store Store
}

// New creates a registry policy-list driver over the live registry.
func New() driver.Driver {
	return NewWithStore(NewRegStore(execx.System()))
}

// NewWithStore creates a registry policy-list driver over a caller-supplied
// value store.
func NewWithStore(store Store) driver.Driver {
	return &regPolicyDriver{store: store}
}

func init() {
	driver.MustRegister("registry_value", New())
}

var _ driver.Driver = (*regPolicyDriver)(nil)

func (d *regPolicyDriver) Metadata() driver.Metadata {
	return driver.Metadata{
		Name:        "registry_value",
		Kind:        "registry_value",
		Description: "Appends entries to ordinal-indexed registry policy lists.",
	}
}

func (d *regPolicyDriver) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.RegistryValue
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("registry_value configuration missing"))
	}

	values, err := d.store.List(ctx, cfg.Key)
	if err != nil {
		return nil, driver.NewStateError(res.ID, fmt.Errorf("cannot list %s: %w", cfg.Key, err))
	}

	// Membership is what matters: the entry may sit at any ordinal, placed
	// there by an earlier run or by hand.
	for name, data := range values {
		if data == cfg.Data {
			return &model.EvaluationResult{
				ResourceID:     res.ID,
				CurrentState:   model.StatusSatisfied,
				RequiresAction: false,
				Message:        fmt.Sprintf("value already present at %s\\%s", cfg.Key, name),
			}, nil
		}
	}

	return &model.EvaluationResult{
		ResourceID:     res.ID,
		CurrentState:   model.StatusMissing,
		RequiresAction: true,
		Message:        fmt.Sprintf("value not present under %s", cfg.Key),
		Diff:           fmt.Sprintf("Would append to %s: %s", cfg.Key, cfg.Data),
	}, nil
}

func (d *regPolicyDriver) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.RegistryValue
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("registry_value configuration missing"))
	}

	if evalResult != nil && !evalResult.RequiresAction {
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusAlreadySatisfied,
			Message:    "no changes needed",
		}, nil
	}

	// Re-list immediately before writing: siblings converged earlier in the
	// same run have taken ordinals since this resource was probed.
	values, err := d.store.List(ctx, cfg.Key)
	if err != nil {
		return failedResult(res.ID, fmt.Errorf("cannot list %s: %w", cfg.Key, err))
	}
	for name, data := range values {
		if data == cfg.Data {
			return &model.ResourceResult{
				ResourceID: res.ID,
				Status:     model.StatusAlreadySatisfied,
				Message:    fmt.Sprintf("value already present at %s\\%s", cfg.Key, name),
			}, nil
		}
	}

	slot := nextFreeSlot(values)
	if err := d.store.Set(ctx, cfg.Key, slot, cfg.Data); err != nil {
		return failedResult(res.ID, fmt.Errorf("cannot write %s\\%s: %w", cfg.Key, slot, err))
	}

	return &model.ResourceResult{
		ResourceID: res.ID,
		Status:     model.StatusApplied,
		Message:    fmt.Sprintf("wrote %s\\%s", cfg.Key, slot),
	}, nil
}

// nextFreeSlot returns the smallest positive ordinal not already used as a
// value name. Non-numeric value names are ignored.
func nextFreeSlot(values map[string]string) string {
	used := make(map[int]bool, len(values))
	for name := range values {
		if n, err := strconv.Atoi(strings.TrimSpace(name)); err == nil && n > 0 {
			used[n] = true
		}
	}
	for n := 1; ; n++ {
		if !used[n] {
			return strconv.Itoa(n)
		}
	}
}

func failedResult(resourceID string, err error) (*model.ResourceResult, error) {
	return &model.ResourceResult{
		ResourceID: resourceID,
		Status:     model.StatusFailed,
		Message:    err.Error(),
		Error:      err,
	}, driver.NewExecutionError(resourceID, err)
}
