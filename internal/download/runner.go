package download

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

const (
	// DefaultOutputLimit bounds how much downloader output is kept for logs
	DefaultOutputLimit = 8 * 1024

	// DefaultWaitDelay is how long Run waits for output pipes after the
	// downloader was cancelled or exited
	DefaultWaitDelay = 5 * time.Second
)

// ExitError reports a downloader process that ran and exited non-zero.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("downloader exited with code %d: %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs the downloader with os/exec. Stdout and stderr are captured
// together and only the last OutputLimit bytes are kept. The downloader runs
// in its own process group: cancelling ctx kills the helpers it spawned
// (ffmpeg and the like), and any still alive when it exits are killed too.
type ExecRunner struct {
	OutputLimit int
	WaitDelay   time.Duration
}

// Run implements Runner
func (r ExecRunner) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	limit := r.OutputLimit
	if limit <= 0 {
		limit = DefaultOutputLimit
	}
	out := &tailBuffer{limit: limit}

	waitDelay := r.WaitDelay
	if waitDelay <= 0 {
		waitDelay = DefaultWaitDelay
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	err := cmd.Run()
	if cmd.Process != nil {
		_ = killProcessGroup(cmd)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out.Bytes(), &ExitError{Code: exitErr.ExitCode(), Err: err}
	}
	// Exited cleanly but a child kept the output pipes open past WaitDelay
	if errors.Is(err, exec.ErrWaitDelay) {
		return out.Bytes(), &ExitError{Code: cmd.ProcessState.ExitCode(), Err: err}
	}
	return out.Bytes(), err
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf...)
}
