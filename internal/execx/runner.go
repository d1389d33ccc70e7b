package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// killGrace is how long a timed-out process gets to exit after SIGTERM
// before it is force-killed.
const killGrace = 3 * time.Second

// Result holds the captured outcome of one external command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// TimeoutError indicates a command exceeded its time budget. The underlying
// process has been terminated and reaped by the time Run returns.
type TimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v", e.Name, e.Timeout)
}

// IsTimeout reports whether err (or any error in its chain) is a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Runner executes external commands with a bounded timeout under the shared
// permit pool. Commands are always argument vectors; nothing is ever passed
// through a shell.
type Runner struct {
	pool    *Pool
	timeout time.Duration
}

// NewRunner creates a Runner. timeout bounds each Run call unless the caller
// context expires first.
func NewRunner(pool *Pool, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{pool: pool, timeout: timeout}
}

// Run executes name with args and returns the captured output. Stdout and
// stderr are drained into in-memory buffers concurrently with execution, so
// large output cannot deadlock the pipe. A non-zero exit is not an error;
// callers classify it from the Result. Errors are limited to: permit/context
// cancellation, the binary being absent (exec.ErrNotFound in the chain),
// spawn failures, and *TimeoutError. On timeout the process receives SIGTERM
// and is force-killed after a short grace period; cmd.Run waits on the
// process on every path, so nothing is left unreaped.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	if err := r.pool.Acquire(ctx); err != nil {
		return nil, err
	}
	defer r.pool.Release()

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killGrace

	runErr := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return nil, &TimeoutError{Name: name, Timeout: r.timeout}
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("running %s: %w", name, ctx.Err())
	}

	res := &Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			// The process ran and exited non-zero; that's data, not failure.
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return nil, fmt.Errorf("running %s: %w", name, runErr)
	}

	res.ExitCode = cmd.ProcessState.ExitCode()
	return res, nil
}

// Timeout returns the per-call budget.
func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

// Pool returns the shared permit pool, for callers that bound non-subprocess
// work (HTTP requests) by the same budget.
func (r *Runner) Pool() *Pool {
	return r.pool
}
