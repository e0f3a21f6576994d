package execx

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// Result captures stdout/stderr emitted by a command run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts external process invocation so drivers can be exercised
// against a fake in tests. Every host mutation in this tool goes through a
// Runner: choco, net, reg.exe, powershell, ansible-playbook.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

type systemRunner struct{}

// System returns the Runner backed by os/exec.
func System() Runner {
	return systemRunner{}
}

// Run executes the command, bounded by the supplied context. Callers wrap
// the context with a timeout; an expired context kills the process and the
// call is reported as failed.
func (systemRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()

	res := Result{
		Stdout: strings.TrimSpace(stdoutBuf.String()),
		Stderr: strings.TrimSpace(stderrBuf.String()),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		return res, err
	}

	return res, nil
}

// PrimaryOutput returns stderr if present, otherwise stdout. External tools
// put the interesting failure text in either stream depending on the tool.
func PrimaryOutput(res Result) string {
	if res.Stderr != "" {
		return res.Stderr
	}
	return res.Stdout
}

// IsExitError reports whether err came from a process that started but
// exited nonzero, as opposed to one that could not be started at all.
func IsExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
