package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/driver"
	"github.com/esinfra/converge/internal/execx"
	"github.com/esinfra/converge/internal/logger"
	"github.com/esinfra/converge/internal/model"
	convergeerrors "github.com/esinfra/converge/pkg/errors"
)

// defaultTimeout bounds each external command when the manifest does not set
// settings.timeout.
const defaultTimeout = 300 * time.Second

// Options configures a Reconciler.
type Options struct {
	// DryRun probes only; corrective actions are reported, never taken.
	// Preflight checks are skipped so planning works unelevated.
	DryRun bool

	// Runner executes the preflight commands. Defaults to the system runner.
	Runner execx.Runner

	// Lookup resolves a driver for a resource kind. Defaults to the global
	// driver registry.
	Lookup func(kind string) (driver.Driver, error)

	// OnStart, when set, observes each resource as it begins converging.
	OnStart func(resourceID string)

	// OnResult, when set, observes each resource outcome as it is recorded.
	// Drives the progress view.
	OnResult func(model.ResourceResult)

	Logger *logger.Logger
}

// Reconciler converges a host against one manifest in a single sequential
// pass. Re-running it is the retry mechanism; nothing is ever rolled back.
type Reconciler struct {
	manifest *config.Manifest
	run      execx.Runner
	lookup   func(kind string) (driver.Driver, error)
	onStart  func(resourceID string)
	onResult func(model.ResourceResult)
	log      *logger.Logger
	dryRun   bool

	phase Phase
}

// New creates a Reconciler for the given manifest.
func New(manifest *config.Manifest, opts Options) *Reconciler {
	run := opts.Runner
	if run == nil {
		run = execx.System()
	}
	lookup := opts.Lookup
	if lookup == nil {
		lookup = driver.Get
	}
	return &Reconciler{
		manifest: manifest,
		run:      run,
		lookup:   lookup,
		onStart:  opts.OnStart,
		onResult: opts.OnResult,
		log:      opts.Logger,
		dryRun:   opts.DryRun || manifest.Settings.DryRun,
		phase:    PhaseNotStarted,
	}
}

// Phase returns the reconciler's current phase.
func (r *Reconciler) Phase() Phase {
	return r.phase
}

// Run executes preflight checks and then converges every resource in
// declared order. The returned report is complete even when the run aborts;
// the error is non-nil only for preflight failures and critical-resource
// aborts.
func (r *Reconciler) Run(ctx context.Context) (*model.RunReport, error) {
	report := model.NewRunReport()
	defer func() { report.Duration = time.Since(report.Start) }()

	if !r.dryRun {
		r.phase = PhaseCheckingPrivilege
		if err := r.checkPrivilege(ctx); err != nil {
			r.phase = PhaseAborted
			report.CriticalFailure = true
			r.log.Error(err, "privilege preflight failed")
			return report, err
		}

		r.phase = PhaseBootstrapping
		if err := r.bootstrapPackageManager(ctx); err != nil {
			r.phase = PhaseAborted
			report.CriticalFailure = true
			r.log.Error(err, "package manager preflight failed")
			return report, err
		}
	}

	r.phase = PhaseReconciling
	timeout := r.commandTimeout()

	for i := range r.manifest.Resources {
		res := &r.manifest.Resources[i]

		// Operator cancellation takes effect here, before the next
		// resource is probed; the in-flight command was already killed by
		// its context.
		if err := ctx.Err(); err != nil {
			r.phase = PhaseAborted
			report.CriticalFailure = true
			r.log.Warn(fmt.Sprintf("run cancelled before resource %s", res.ID))
			return report, convergeerrors.NewExecutionError(res.ID, err)
		}

		if r.onStart != nil {
			r.onStart(res.ID)
		}

		result := r.reconcileResource(ctx, res, timeout)
		report.Record(result, res.Critical)
		if r.onResult != nil {
			r.onResult(result)
		}

		if result.Status == model.StatusFailed && res.Critical {
			// Critical resources gate everything declared after them; the
			// remaining resources are never probed.
			r.phase = PhaseReported
			err := result.Error
			if err == nil {
				err = fmt.Errorf("critical resource %s failed", res.ID)
			}
			r.log.Error(err, "critical resource failed, aborting run")
			r.finish(report)
			return report, convergeerrors.NewExecutionError(res.ID, err)
		}
	}

	r.phase = PhaseReported
	r.finish(report)
	r.phase = PhaseDone
	return report, nil
}

// PlanEntry is one probe outcome from a probe-only pass.
type PlanEntry struct {
	Resource   *config.Resource
	Evaluation *model.EvaluationResult
}

// Plan probes every resource without applying anything. Probe errors are
// folded into blocked entries so the full manifest is always surveyed.
func (r *Reconciler) Plan(ctx context.Context) ([]PlanEntry, error) {
	entries := make([]PlanEntry, 0, len(r.manifest.Resources))
	timeout := r.commandTimeout()

	r.phase = PhaseReconciling
	for i := range r.manifest.Resources {
		res := &r.manifest.Resources[i]

		if err := ctx.Err(); err != nil {
			return entries, convergeerrors.NewExecutionError(res.ID, err)
		}

		eval, err := r.evaluate(ctx, res, timeout)
		if err != nil {
			eval = &model.EvaluationResult{
				ResourceID:   res.ID,
				CurrentState: model.StatusBlocked,
				Message:      err.Error(),
			}
		}
		entries = append(entries, PlanEntry{Resource: res, Evaluation: eval})
	}

	r.phase = PhaseDone
	return entries, nil
}

// reconcileResource converges one resource: probe, then the minimal
// corrective action. Every outcome is expressed as a ResourceResult;
// failures carry the error both in the result and the run report.
func (r *Reconciler) reconcileResource(ctx context.Context, res *config.Resource, timeout time.Duration) model.ResourceResult {
	log := r.log.WithResource(res.ID, res.Kind)
	start := time.Now()

	eval, err := r.evaluate(ctx, res, timeout)
	if err != nil {
		log.Error(err, "probe failed")
		return failedResourceResult(res.ID, start, err)
	}

	if !eval.RequiresAction {
		log.Debug("already satisfied")
		return model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusAlreadySatisfied,
			Message:    eval.Message,
			Duration:   time.Since(start),
			Timestamp:  time.Now(),
		}
	}

	if r.dryRun {
		msg := eval.Diff
		if msg == "" {
			msg = eval.Message
		}
		return model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusWouldApply,
			Message:    msg,
			Duration:   time.Since(start),
			Timestamp:  time.Now(),
		}
	}

	d, err := r.lookup(res.Kind)
	if err != nil {
		return failedResourceResult(res.ID, start, err)
	}

	applyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := d.Apply(applyCtx, eval, res)
	if result == nil {
		result = &model.ResourceResult{ResourceID: res.ID}
	}
	result.Duration = time.Since(start)
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}

	if err != nil {
		if result.Status == "" {
			result.Status = model.StatusFailed
		}
		if result.Error == nil {
			result.Error = err
		}
		if result.Message == "" {
			result.Message = err.Error()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(applyCtx.Err(), context.DeadlineExceeded) {
			result.Message = "timeout exceeded"
		}
		log.Error(err, "apply failed")
		return *result
	}

	if result.Status == "" {
		result.Status = model.StatusApplied
	}
	log.Info(result.Message)
	return *result
}

func (r *Reconciler) evaluate(ctx context.Context, res *config.Resource, timeout time.Duration) (*model.EvaluationResult, error) {
	d, err := r.lookup(res.Kind)
	if err != nil {
		return nil, err
	}

	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return d.Evaluate(evalCtx, res)
}

func (r *Reconciler) commandTimeout() time.Duration {
	if r.manifest.Settings.Timeout > 0 {
		return time.Duration(r.manifest.Settings.Timeout) * time.Second
	}
	return defaultTimeout
}

func (r *Reconciler) finish(report *model.RunReport) {
	report.Duration = time.Since(report.Start)
	r.log.Info(fmt.Sprintf("run complete: %d applied, %d satisfied, %d failed, %d warnings",
		report.Applied, report.Satisfied, report.Failed, report.Warnings))
}

func failedResourceResult(resourceID string, start time.Time, err error) model.ResourceResult {
	return model.ResourceResult{
		ResourceID: resourceID,
		Status:     model.StatusFailed,
		Message:    err.Error(),
		Error:      err,
		Duration:   time.Since(start),
		Timestamp:  time.Now(),
	}
}
