// Package exec runs external commands synchronously and reports their exit
// status. It is the only place the boot sequence touches os/exec.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	osexec "os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ExitStatus represents command exit information
type ExitStatus struct {
	Code     int
	Duration time.Duration
	// Output holds combined stdout+stderr when the caller did not supply writers.
	Output []byte
}

// ExecOptions configures command execution
type ExecOptions struct {
	Command []string
	Stdout  io.Writer
	Stderr  io.Writer
	Env     []string // Full environment; nil inherits the current process environment
	Cwd     string   // Working directory (optional)
}

// Runner executes a command and blocks until it exits.
type Runner interface {
	Run(ctx context.Context, opts ExecOptions) (*ExitStatus, error)
}

type runner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return &runner{}
}

// Run starts the command and waits for it. A non-zero exit returns the status
// together with an error wrapping ErrNonZeroExit; a command that could not be
// started returns Code -1 and an error wrapping ErrStart.
func (r *runner) Run(ctx context.Context, opts ExecOptions) (*ExitStatus, error) {
	if len(opts.Command) == 0 {
		return nil, ErrEmptyCommand
	}

	cmd := osexec.CommandContext(ctx, opts.Command[0], opts.Command[1:]...)
	cmd.Dir = opts.Cwd
	cmd.Env = opts.Env

	var combined bytes.Buffer
	capture := opts.Stdout == nil && opts.Stderr == nil
	if capture {
		cmd.Stdout = &combined
		cmd.Stderr = &combined
	} else {
		cmd.Stdout = opts.Stdout
		cmd.Stderr = opts.Stderr
	}

	start := time.Now()
	err := cmd.Run()
	status := &ExitStatus{Duration: time.Since(start)}
	if capture {
		status.Output = combined.Bytes()
	}

	name := filepath.Base(opts.Command[0])
	if err != nil {
		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) {
			status.Code = exitErr.ExitCode()
			ExecMetrics.RecordCommand(ctx, name, start, status.Code)
			return status, fmt.Errorf("%w: %s exited with code %d%s", ErrNonZeroExit, name, status.Code, formatOutput(status.Output))
		}
		status.Code = -1
		ExecMetrics.RecordCommand(ctx, name, start, status.Code)
		return status, fmt.Errorf("%w: %s: %v", ErrStart, name, err)
	}

	ExecMetrics.RecordCommand(ctx, name, start, 0)
	return status, nil
}

func formatOutput(out []byte) string {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return ""
	}
	return ": " + trimmed
}
