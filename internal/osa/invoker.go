// Package osa is the boundary to the external automation tools: the
// osascript interpreter and the sqlite3 query engine. Everything here goes
// through the argument-vector invoker; nothing is ever concatenated into a
// shell command line.
package osa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
)

// Sentinel errors for typed error checking.
var (
	ErrTimeout = errors.New("process timed out")
)

// InvokeError wraps a failed external invocation with its captured stderr.
type InvokeError struct {
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *InvokeError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Err, truncateOutput(e.Stderr, 512))
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *InvokeError) Unwrap() error {
	return e.Err
}

// Output is the captured result of a completed invocation.
type Output struct {
	Stdout string
	Stderr string
}

// Invoker launches external processes with argument-vector isolation. The
// argument vector reaches the OS as discrete arguments, which is the
// load-bearing invariant against shell metacharacter injection regardless of
// what upstream validation caught. No retry happens at this layer; retry
// policy belongs to the caller.
type Invoker struct {
	maxStdout int
	maxStderr int
}

func NewInvoker() *Invoker {
	return &Invoker{
		maxStdout: 1 << 20,    // 1MB
		maxStderr: 256 * 1024, // 256KB
	}
}

// Run executes path with args, feeding stdin if non-empty, and captures
// stdout/stderr. Every invocation carries an explicit timeout. A non-zero
// exit, a spawn-level failure, and a timeout are all surfaced as errors; the
// timeout case wraps ErrTimeout.
func (iv *Invoker) Run(ctx context.Context, path string, args []string, stdin string, timeout time.Duration) (Output, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, args...) // #nosec G204 -- discrete argument vector, no shell interpretation
	if stdin != "" {
		cmd.Stdin = bytes.NewBufferString(stdin)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	out := Output{
		Stdout: truncateOutput(stdoutBuf.String(), iv.maxStdout),
		Stderr: truncateOutput(stderrBuf.String(), iv.maxStderr),
	}

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			log.Warn().Str("path", path).Dur("timeout", timeout).Msg("external process timed out")
			return out, &InvokeError{Path: path, ExitCode: -1, Stderr: out.Stderr, Err: ErrTimeout}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, &InvokeError{Path: path, ExitCode: exitErr.ExitCode(), Stderr: out.Stderr, Err: err}
		}
		// Spawn-level failure (binary not found, permission denied) is
		// classified the same way as a non-zero exit.
		return out, &InvokeError{Path: path, ExitCode: -1, Err: err}
	}

	log.Debug().
		Str("path", path).
		Dur("duration", duration).
		Int("stdout_bytes", len(out.Stdout)).
		Msg("external process completed")

	return out, nil
}

// IsTimeout returns true if the error is an invocation timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func truncateOutput(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes] + "\n... [output truncated]"
}
