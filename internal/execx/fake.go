package execx

import (
	"context"
	"strings"
	"sync"
)

// Call records one invocation made against a Fake runner.
type Call struct {
	Name string
	Args []string
}

// Line renders the call the way it would appear on a shell command line.
func (c Call) Line() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Fake is a scriptable Runner for tests. Handler decides the outcome of
// each invocation; every call is recorded in order.
type Fake struct {
	mu      sync.Mutex
	calls   []Call
	Handler func(ctx context.Context, name string, args ...string) (Result, error)
}

var _ Runner = (*Fake)(nil)

// Run records the call and delegates to Handler. A Fake without a Handler
// reports success with empty output.
func (f *Fake) Run(ctx context.Context, name string, args ...string) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	if f.Handler == nil {
		return Result{}, nil
	}
	return f.Handler(ctx, name, args...)
}

// Calls returns a copy of the recorded invocations in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallLines returns the recorded invocations rendered as command lines.
func (f *Fake) CallLines() []string {
	calls := f.Calls()
	lines := make([]string, 0, len(calls))
	for _, c := range calls {
		lines = append(lines, c.Line())
	}
	return lines
}
