package repodriver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/driver"
	"github.com/esinfra/converge/internal/model"
)

type repoDriver struct{}

// New creates a repository clone driver.
func New() driver.Driver {
	return &repoDriver{}
}

func init() {
	driver.MustRegister("repo", New())
}

var _ driver.Driver = (*repoDriver)(nil)

func (d *repoDriver) Metadata() driver.Metadata {
	return driver.Metadata{
		Name:        "repo",
		Kind:        "repo",
		Description: "Clones git repositories; existing checkouts are never touched.",
	}
}

// Evaluation data for repository operations.
type repoEvaluationData struct {
	CloneOptions *git.CloneOptions
}

func (d *repoDriver) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := res.Repo
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("repo configuration missing"))
	}

	// The destination existing is enough: cloning over operator-modified
	// checkouts would clobber local edits, so presence means satisfied
	// even when the checkout has drifted from the remote.
	if _, err := os.Stat(cfg.Destination); err == nil {
		return &model.EvaluationResult{
			ResourceID:     res.ID,
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
			Message:        fmt.Sprintf("destination %s already exists", cfg.Destination),
		}, nil
	} else if !os.IsNotExist(err) {
		return nil, driver.NewStateError(res.ID, fmt.Errorf("cannot access destination: %w", err))
	}

	cloneOpts := &git.CloneOptions{
		URL: cfg.URL,
	}
	if cfg.Depth > 0 {
		cloneOpts.Depth = cfg.Depth
	}
	if cfg.Branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(cfg.Branch)
		cloneOpts.SingleBranch = true
	}

	return &model.EvaluationResult{
		ResourceID:     res.ID,
		CurrentState:   model.StatusMissing,
		RequiresAction: true,
		Message:        fmt.Sprintf("destination %s does not exist", cfg.Destination),
		Diff:           fmt.Sprintf("Would clone: %s", cfg.URL),
		InternalData:   &repoEvaluationData{CloneOptions: cloneOpts},
	}, nil
}

func (d *repoDriver) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.Repo
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("repo configuration missing"))
	}

	var data *repoEvaluationData
	if evalResult != nil {
		if typed, ok := evalResult.InternalData.(*repoEvaluationData); ok {
			data = typed
		}
	}
	if data == nil {
		var err error
		evalResult, err = d.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		if !evalResult.RequiresAction {
			return &model.ResourceResult{
				ResourceID: res.ID,
				Status:     model.StatusAlreadySatisfied,
				Message:    "no changes needed",
			}, nil
		}
		data = evalResult.InternalData.(*repoEvaluationData)
	}

	if !evalResult.RequiresAction {
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusAlreadySatisfied,
			Message:    "no changes needed",
		}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Destination), 0o755); err != nil {
		return failedResult(res.ID, fmt.Errorf("failed to create destination parent: %w", err))
	}

	if _, err := git.PlainCloneContext(ctx, cfg.Destination, false, data.CloneOptions); err != nil {
		return failedResult(res.ID, fmt.Errorf("failed to clone repository: %w", err))
	}

	return &model.ResourceResult{
		ResourceID: res.ID,
		Status:     model.StatusApplied,
		Message:    fmt.Sprintf("cloned %s", cfg.URL),
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
