package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esinfra/converge/internal/config"
	"github.com/esinfra/converge/internal/driver"
	directorydriver "github.com/esinfra/converge/internal/drivers/directory"
	"github.com/esinfra/converge/internal/execx"
	"github.com/esinfra/converge/internal/model"
)

// stubDriver converges against an in-memory present-set so engine tests
// need no external commands.
type stubDriver struct {
	mu       sync.Mutex
	present  map[string]bool
	applyErr error
	onApply  func()

	evaluated []string
	applied   []string
}

func newStubDriver() *stubDriver {
	return &stubDriver{present: make(map[string]bool)}
}

func (s *stubDriver) Metadata() driver.Metadata {
	return driver.Metadata{Name: "stub", Kind: "stub"}
}

func (s *stubDriver) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluated = append(s.evaluated, res.ID)

	if s.present[res.ID] {
		return &model.EvaluationResult{
			ResourceID:     res.ID,
			CurrentState:   model.StatusSatisfied,
			RequiresAction: false,
		}, nil
	}
	return &model.EvaluationResult{
		ResourceID:     res.ID,
		CurrentState:   model.StatusMissing,
		RequiresAction: true,
		Diff:           "Would create " + res.ID,
	}, nil
}

func (s *stubDriver) Apply(ctx context.Context, eval *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, res.ID)

	if s.onApply != nil {
		s.onApply()
	}

	if s.applyErr != nil {
		return &model.ResourceResult{
			ResourceID: res.ID,
			Status:     model.StatusFailed,
			Message:    s.applyErr.Error(),
			Error:      s.applyErr,
		}, s.applyErr
	}

	s.present[res.ID] = true
	return &model.ResourceResult{
		ResourceID: res.ID,
		Status:     model.StatusApplied,
		Message:    "created " + res.ID,
	}, nil
}

func stubLookup(d driver.Driver) func(string) (driver.Driver, error) {
	return func(string) (driver.Driver, error) { return d, nil }
}

// elevatedHost scripts a runner where preflight commands succeed.
func elevatedHost() *execx.Fake {
	return &execx.Fake{}
}

// unelevatedHost scripts a runner where net session is denied.
func unelevatedHost() *execx.Fake {
	return &execx.Fake{Handler: func(ctx context.Context, name string, args ...string) (execx.Result, error) {
		if name == "net" && len(args) > 0 && args[0] == "session" {
			return execx.Result{Stderr: "Access is denied.", ExitCode: 2}, errors.New("exit status 2")
		}
		return execx.Result{}, nil
	}}
}

func manifest(resources ...config.Resource) *config.Manifest {
	return &config.Manifest{
		Version:   "1.0.0",
		Name:      "test",
		Resources: resources,
	}
}

func stubResource(id string, critical bool) config.Resource {
	return config.Resource{ID: id, Kind: "stub", Critical: critical}
}

func TestRunAppliesMissingResources(t *testing.T) {
	t.Parallel()

	stub := newStubDriver()
	r := New(manifest(stubResource("a", false), stubResource("b", false)), Options{
		Runner: elevatedHost(),
		Lookup: stubLookup(stub),
	})

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Applied)
	require.Equal(t, 0, report.Failed)
	require.Equal(t, 0, report.ExitCode())
	require.Equal(t, PhaseDone, r.Phase())
}

func TestSecondRunIsAllSatisfied(t *testing.T) {
	t.Parallel()

	stub := newStubDriver()
	m := manifest(stubResource("a", false), stubResource("b", false), stubResource("c", false))

	first := New(m, Options{Runner: elevatedHost(), Lookup: stubLookup(stub)})
	report, err := first.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, report.Applied)

	// External state unchanged between runs: everything must probe as
	// satisfied and nothing may be applied again.
	second := New(m, Options{Runner: elevatedHost(), Lookup: stubLookup(stub)})
	report, err = second.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.Applied)
	require.Equal(t, 3, report.Satisfied)
	require.Len(t, stub.applied, 3)
}

func TestCriticalFailureAbortsRun(t *testing.T) {
	t.Parallel()

	stub := newStubDriver()
	stub.applyErr = errors.New("install failed")

	r := New(manifest(stubResource("gate", true), stubResource("after", false)), Options{
		Runner: elevatedHost(),
		Lookup: stubLookup(stub),
	})

	report, err := r.Run(context.Background())
	require.Error(t, err)
	require.True(t, report.CriticalFailure)
	require.Equal(t, 1, report.ExitCode())

	// Resources declared after the critical failure are never probed.
	require.Equal(t, []string{"gate"}, stub.evaluated)
}

func TestNonCriticalFailureContinues(t *testing.T) {
	t.Parallel()

	stub := newStubDriver()
	stub.applyErr = errors.New("transient failure")

	r := New(manifest(stubResource("a", false), stubResource("b", false)), Options{
		Runner: elevatedHost(),
		Lookup: stubLookup(stub),
	})

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Failed)
	require.False(t, report.CriticalFailure)
	require.Equal(t, 0, report.ExitCode())
	require.Len(t, report.Failures, 2)
	require.Equal(t, []string{"a", "b"}, stub.evaluated)
}

func TestPrivilegeFailureBlocksEverything(t *testing.T) {
	t.Parallel()

	stub := newStubDriver()
	r := New(manifest(stubResource("a", false)), Options{
		Runner: unelevatedHost(),
		Lookup: stubLookup(stub),
	})

	report, err := r.Run(context.Background())
	require.Error(t, err)
	require.True(t, report.CriticalFailure)
	require.NotZero(t, report.ExitCode())
	require.Equal(t, PhaseAborted, r.Phase())

	// No driver is ever consulted when the privilege preflight fails.
	require.Empty(t, stub.evaluated)
	require.Empty(t, stub.applied)
}

func TestDryRunNeverApplies(t *testing.T) {
	t.Parallel()

	stub := newStubDriver()
	stub.present["b"] = true

	r := New(manifest(stubResource("a", false), stubResource("b", false)), Options{
		DryRun: true,
		Runner: unelevatedHost(), // dry-run must work unelevated
		Lookup: stubLookup(stub),
	})

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.WouldApply)
	require.Equal(t, 1, report.Satisfied)
	require.Empty(t, stub.applied)
}

func TestRunConvergesRealDirectories(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	m := manifest(
		config.Resource{ID: "dir_a", Kind: "directory", Directory: &config.DirectoryResource{Path: filepath.Join(base, "ES", "Games")}},
		config.Resource{ID: "dir_b", Kind: "directory", Directory: &config.DirectoryResource{Path: filepath.Join(base, "ES", "Saves")}},
	)

	lookup := func(kind string) (driver.Driver, error) {
		if kind != "directory" {
			return nil, fmt.Errorf("no driver for %s", kind)
		}
		return directorydriver.New(), nil
	}

	r := New(m, Options{Runner: elevatedHost(), Lookup: lookup})
	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Applied)
	require.Equal(t, 0, report.Failed)

	second := New(m, Options{Runner: elevatedHost(), Lookup: lookup})
	report, err = second.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.Applied)
	require.Equal(t, 2, report.Satisfied)
}

func TestBootstrapFailureFatalOnlyWithPackages(t *testing.T) {
	t.Parallel()

	noChoco := &execx.Fake{Handler: func(ctx context.Context, name string, args ...string) (execx.Result, error) {
		if name == "choco" {
			return execx.Result{ExitCode: 1}, errors.New("choco not found")
		}
		return execx.Result{}, nil
	}}

	stub := newStubDriver()

	withPkg := manifest(config.Resource{ID: "p", Kind: "package", Package: &config.PackageResource{Name: "git"}})
	r := New(withPkg, Options{Runner: noChoco, Lookup: stubLookup(stub)})
	report, err := r.Run(context.Background())
	require.Error(t, err)
	require.True(t, report.CriticalFailure)

	withoutPkg := manifest(stubResource("a", false))
	r = New(withoutPkg, Options{Runner: noChoco, Lookup: stubLookup(stub)})
	report, err = r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Applied)
}

func TestPlanProbesWithoutApplying(t *testing.T) {
	t.Parallel()

	stub := newStubDriver()
	stub.present["b"] = true

	r := New(manifest(stubResource("a", false), stubResource("b", false)), Options{
		Runner: unelevatedHost(),
		Lookup: stubLookup(stub),
	})

	entries, err := r.Plan(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, model.StatusMissing, entries[0].Evaluation.CurrentState)
	require.Equal(t, model.StatusSatisfied, entries[1].Evaluation.CurrentState)
	require.Empty(t, stub.applied)
}

func TestCancellationStopsBeforeNextResource(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The operator interrupts while the first resource is converging: the
	// second resource must never be probed and the run must not exit zero.
	stub := newStubDriver()
	stub.onApply = cancel

	r := New(manifest(stubResource("a", false), stubResource("b", false)), Options{
		Runner: elevatedHost(),
		Lookup: stubLookup(stub),
	})

	report, err := r.Run(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, report.CriticalFailure)
	require.NotZero(t, report.ExitCode())
	require.Equal(t, PhaseAborted, r.Phase())

	require.Equal(t, []string{"a"}, stub.evaluated)
	require.Equal(t, []string{"a"}, stub.applied)
	require.Equal(t, 1, report.Applied)
}

func TestCancelledContextRunsNothing(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stub := newStubDriver()
	r := New(manifest(stubResource("a", false)), Options{
		DryRun: true, // skip preflight so the loop's own check is exercised
		Runner: elevatedHost(),
		Lookup: stubLookup(stub),
	})

	report, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, report.CriticalFailure)
	require.Empty(t, stub.evaluated)
}

func TestOnResultObservesEveryOutcome(t *testing.T) {
	t.Parallel()

	stub := newStubDriver()
	var seen []string
	r := New(manifest(stubResource("a", false), stubResource("b", false)), Options{
		Runner:   elevatedHost(),
		Lookup:   stubLookup(stub),
		OnResult: func(res model.ResourceResult) { seen = append(seen, res.ResourceID) },
	})

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, seen)
}

func TestOnStartFiresBeforeEachResult(t *testing.T) {
	t.Parallel()

	stub := newStubDriver()
	var events []string
	r := New(manifest(stubResource("a", false), stubResource("b", false)), Options{
		Runner:   elevatedHost(),
		Lookup:   stubLookup(stub),
		OnStart:  func(id string) { events = append(events, "start:"+id) },
		OnResult: func(res model.ResourceResult) { events = append(events, "done:"+res.ResourceID) },
	})

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"start:a", "done:a", "start:b", "done:b"}, events)
}
