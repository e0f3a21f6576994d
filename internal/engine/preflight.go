package engine

import (
	"context"
	"fmt"

	"github.com/esinfra/converge/internal/chocolatey"
	"github.com/esinfra/converge/internal/config"
	convergeerrors "github.com/esinfra/converge/pkg/errors"
)

// checkPrivilege verifies the process is elevated. net session is only
// permitted for administrators; a nonzero exit means the run would fail
// partway through privileged resources, so it aborts up front.
func (r *Reconciler) checkPrivilege(ctx context.Context) error {
	if _, err := r.run.Run(ctx, "net", "session"); err != nil {
		return convergeerrors.NewPrivilegeError("administrator privileges are required", err)
	}
	return nil
}

// bootstrapPackageManager verifies the package manager is callable. The
// check is fatal only when a manifest resource actually needs it.
func (r *Reconciler) bootstrapPackageManager(ctx context.Context) error {
	err := chocolatey.New(r.run).Available(ctx)
	if err == nil {
		return nil
	}

	if manifestNeedsPackageManager(r.manifest) {
		return convergeerrors.NewBootstrapError("chocolatey", err)
	}

	r.log.Debug(fmt.Sprintf("package manager unavailable, no resource needs it: %v", err))
	return nil
}

// manifestNeedsPackageManager reports whether any resource kind shells out
// to the package manager.
func manifestNeedsPackageManager(m *config.Manifest) bool {
	for _, res := range m.Resources {
		switch res.Kind {
		case "package":
			return true
		case "taskbar_pin":
			if res.TaskbarPin != nil && res.TaskbarPin.Package != "" {
				return true
			}
		}
	}
	return false
}
