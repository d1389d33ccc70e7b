package execx

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, timeout time.Duration) *Runner {
	t.Helper()
	return NewRunner(NewPool(3), timeout)
}

func TestRunCapturesStdout(t *testing.T) {
	r := newTestRunner(t, 10*time.Second)

	res, err := r.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", string(res.Stdout))
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	r := newTestRunner(t, 10*time.Second)

	res, err := r.Run(context.Background(), "sh", "-c", "echo oops >&2; exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "oops\n", string(res.Stderr))
}

func TestRunMissingBinary(t *testing.T) {
	r := newTestRunner(t, 10*time.Second)

	_, err := r.Run(context.Background(), "monodash-no-such-binary")
	require.Error(t, err)
	assert.True(t, errors.Is(err, exec.ErrNotFound))
}

func TestRunTimeoutKillsAndReaps(t *testing.T) {
	r := newTestRunner(t, 150*time.Millisecond)

	start := time.Now()
	_, err := r.Run(context.Background(), "sleep", "30")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, IsTimeout(err), "expected timeout error, got %v", err)
	// Run must return once the process is reaped, well before the sleep
	// would have finished on its own.
	assert.Less(t, elapsed, 5*time.Second)
}

func TestRunContextCancellation(t *testing.T) {
	r := newTestRunner(t, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := r.Run(ctx, "sleep", "30")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTimeout(err))
}

func TestRunLargeOutputDoesNotDeadlock(t *testing.T) {
	r := newTestRunner(t, 30*time.Second)

	// 2 MiB of output, far past any pipe buffer.
	res, err := r.Run(context.Background(),
		"dd", "if=/dev/zero", "bs=1024", "count=2048")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Len(t, res.Stdout, 2048*1024)
	// dd reports its transfer stats on stderr.
	assert.NotEmpty(t, res.Stderr)
}
