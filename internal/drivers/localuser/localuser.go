package localuserdriver

import (
	"context"
	"fmt"
	"strings"

	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/driver"
	"github.com/esinfra/converge/internal/execx"
	"github.com/esinfra/converge/internal/model"
)

type localUserDriver struct {
	run execx.Runner
}

// New creates a local user driver backed by the OS user directory.
func New() driver.Driver {
	return NewWithRunner(execx.System())
}

// NewWithRunner creates a local user driver over a caller-supplied runner.
func NewWithRunner(run execx.Runner) driver.Driver {
	return &localUserDriver{run: run}
}

func init() {
	driver.MustRegister("local_user", New())
}

var _ driver.Driver = (*localUserDriver)(nil)

func (d *localUserDriver) Metadata() driver.Metadata {
	return driver.Metadata{
		Name:        "local_user",
		Kind:        "local_user",
		Description: "Creates local accounts and ensures group membership.",
	}
}

// Evaluation data for local user operations.
type userEvaluationData struct {
	UserExists bool
	InGroup    bool
}

func (d *localUserDriver) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.LocalUser
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("local_user configuration missing"))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exists, err := d.userExists(ctx, cfg.Username)
	if err != nil {
		return nil, driver.NewStateError(res.ID, err)
	}

	data := &userEvaluationData{UserExists: exists}

	if !exists {
		return &model.EvaluationResult{
			ResourceID:     res.ID,
			CurrentState:   model.StatusMissing,
			RequiresAction: true,
			Message:        fmt.Sprintf("user %s does not exist", cfg.Username),
			Diff:           fmt.Sprintf("Would create user: %s", cfg.Username),
			InternalData:   data,
		}, nil
	}

	if cfg.Group != "" {
		inGroup, err := d.isGroupMember(ctx, cfg.Group, cfg.Username)
		if err != nil {
			return nil, driver.NewStateError(res.ID, err)
		}
		data.InGroup = inGroup

		if !inGroup {
			// Pre-existing account missing the target group: the only
			// corrective action is the membership add.
			return &model.EvaluationResult{
				ResourceID:     res.ID,
				CurrentState:   model.StatusDrifted,
				RequiresAction: true,
				Message:        fmt.Sprintf("user %s exists but is not in group %s", cfg.Username, cfg.Group),
				Diff:           fmt.Sprintf("Would add %s to group %s", cfg.Username, cfg.Group),
				InternalData:   data,
			}, nil
		}
	}

	return &model.EvaluationResult{
		ResourceID:     res.ID,
		CurrentState:   model.StatusSatisfied,
		RequiresAction: false,
		Message:        fmt.Sprintf("user %s exists", cfg.Username),
		InternalData:   data,
	}, nil
}

func (d *localUserDriver) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.LocalUser
	if cfg == nil {
		return nil, driver.NewValidationError(res.ID, fmt.Errorf("local_user configuration missing"))
	}

	var data *userEvaluationData
	if evalResult != nil {
		if typed, ok := evalResult.InternalData.(*userEvaluationData); ok {
			data = typed
		}
	}
	if data == nil {
		var err error
		evalResult, err = d.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		data = evalResult.InternalData.(*userEvaluationData)
	}

	if !evalResult.RequiresAction {
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusAlreadySatisfied,
			Message:    "no changes needed",
		}, nil
	}

	var actions []string

	if !data.UserExists {
		if err := d.createUser(ctx, cfg); err != nil {
			return failedResult(res.ID, fmt.Errorf("failed to create user: %w", err))
		}
		actions = append(actions, fmt.Sprintf("created user %s", cfg.Username))
	}

	if cfg.Group != "" && !data.InGroup {
		// Membership is converged separately so a pre-existing user that
		// lacks the group gets only the add, and a freshly created user
		// is never added twice.
		if err := d.addToGroup(ctx, cfg.Group, cfg.Username); err != nil {
			return failedResult(res.ID, fmt.Errorf("failed to add user to group: %w", err))
		}
		actions = append(actions, fmt.Sprintf("added %s to group %s", cfg.Username, cfg.Group))
	}

	return &model.ResourceResult{
		ResourceID: res.ID,
		Status:     model.StatusApplied,
		Message:    strings.Join(actions, "; "),
	}, nil
}

func (d *localUserDriver) userExists(ctx context.Context, username string) (bool, error) {
	res, err := d.run.Run(ctx, "net", "user", username)
	if err == nil {
		return true, nil
	}
	if res.ExitCode > 0 {
		// net user exits nonzero when the account is unknown.
		return false, nil
	}
	return false, fmt.Errorf("cannot query user %s: %w", username, err)
}

func (d *localUserDriver) isGroupMember(ctx context.Context, group, username string) (bool, error) {
	res, err := d.run.Run(ctx, "net", "localgroup", group)
	if err != nil {
		return false, fmt.Errorf("cannot list group %s: %w", group, err)
	}

	for _, member := range parseGroupMembers(res.Stdout) {
		if strings.EqualFold(member, username) {
			return true, nil
		}
	}
	return false, nil
}

func (d *localUserDriver) createUser(ctx context.Context, cfg *config.LocalUserResource) error {
	args := []string{"user", cfg.Username}
	if cfg.Password != "" {
		args = append(args, cfg.Password)
	}
	args = append(args, "/add", "/active:yes")
	if cfg.FullName != "" {
		args = append(args, fmt.Sprintf("/fullname:%s", cfg.FullName))
	}
	if cfg.Comment != "" {
		args = append(args, fmt.Sprintf("/comment:%s", cfg.Comment))
	}

	if res, err := d.run.Run(ctx, "net", args...); err != nil {
		return commandError(res, err)
	}

	if cfg.PasswordNeverExpires {
		res, err := d.run.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command",
			fmt.Sprintf("Set-LocalUser -Name '%s' -PasswordNeverExpires $true", cfg.Username))
		if err != nil {
			return commandError(res, err)
		}
	}

	return nil
}

func (d *localUserDriver) addToGroup(ctx context.Context, group, username string) error {
	if res, err := d.run.Run(ctx, "net", "localgroup", group, username, "/add"); err != nil {
		return commandError(res, err)
	}
	return nil
}

// parseGroupMembers extracts member names from net localgroup output: the
// lines between the dashed separator and the trailing status line.
func parseGroupMembers(out string) []string {
	var members []string
	inMembers := false

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "----"):
			inMembers = true
		case inMembers && line == "":
			continue
		case inMembers && strings.HasPrefix(line, "The command completed"):
			return members
		case inMembers:
			members = append(members, line)
		}
	}
	return members
}

func failedResult(resourceID string, err error) (*model.ResourceResult, error) {
	return &model.ResourceResult{
		ResourceID: resourceID,
		Status:     model.StatusFailed,
		Message:    err.Error(),
		Error:      err,
	}, driver.NewExecutionError(resourceID, err)
}

func commandError(res execx.Result, err error) error {
	if out := execx.PrimaryOutput(res); out != "" {
		return fmt.Errorf("%w: %s", err, out)
	}
	return err
}
