package runner

import (
	"context"
	"errors"
	"os/exec"
	"time"
)

// ExecResult is what the command boundary reports back.
type ExecResult struct {
	ExitCode int
	Output   string
	// Err is set when the command could not run at all or was cut off by
	// its deadline. A plain nonzero exit leaves Err nil.
	Err error
}

// Failed reports whether the command should be treated as a failure.
func (r ExecResult) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

// TimedOut reports whether the command hit its deadline.
func (r ExecResult) TimedOut() bool {
	return errors.Is(r.Err, context.DeadlineExceeded)
}

// Exec runs name with args in dir. It abstracts the subprocess so tests can
// substitute canned results.
type Exec func(ctx context.Context, dir, name string, args ...string) ExecResult

// waitDelay bounds how long a killed command may hold its output pipes open.
const waitDelay = 2 * time.Second

// SystemExec runs the command as a real subprocess with combined output.
func SystemExec(ctx context.Context, dir, name string, args ...string) ExecResult {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	out, err := cmd.CombinedOutput()

	res := ExecResult{Output: string(out)}
	if ctx.Err() != nil {
		res.ExitCode = -1
		res.Err = ctx.Err()
		return res
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		res.Err = err
	}
	return res
}

// Shell runs a configured command string through sh.
func Shell(ctx context.Context, ex Exec, dir, command string) ExecResult {
	return ex(ctx, dir, "sh", "-c", command)
}
