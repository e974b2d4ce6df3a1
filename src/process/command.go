// Package process runs the external compositor tools (grim, slurp, wl-copy,
// hyprctl) with a bounded timeout and turns their failures into typed errors.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds every external call unless the caller sets one.
const DefaultTimeout = 10 * time.Second

const waitDelay = 250 * time.Millisecond

var (
	ErrNotFound = errors.New("command not found")
	ErrTimeout  = errors.New("command timed out")
)

// ExitError reports a non-zero exit status.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Name, e.Code, msg)
}

// Runner executes one command to completion and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error)
	Available(name string) bool
}

// ExecRunner runs real binaries through os/exec.
type ExecRunner struct {
	Timeout time.Duration
}

func (r ExecRunner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

func (r ExecRunner) Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func (r ExecRunner) Run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	start := time.Now()
	err := cmd.Run()
	log.Printf("process: %s %s finished in %v (err=%v)", name, strings.Join(args, " "), time.Since(start).Round(time.Millisecond), err)
	if err == nil || errors.Is(err, exec.ErrWaitDelay) {
		// ErrWaitDelay: the tool exited cleanly but a forked child (wl-copy
		// serving the selection) still holds our pipes.
		return stdout.Bytes(), nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s after %v: %w", name, r.timeout(), ErrTimeout)
		}
		return nil, fmt.Errorf("%s: %w", name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), &ExitError{Name: name, Code: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return nil, fmt.Errorf("failed to run %s: %w", name, err)
}
