// Package launcher starts the applications listed in the boot configuration.
// Commands are shell strings with placeholder tokens; each runs to completion
// in the application's directory on the storage medium before Launch returns.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/onkernel/autorun/lib/bootconfig"
	"github.com/onkernel/autorun/lib/exec"
	"github.com/onkernel/autorun/lib/logger"
	"github.com/onkernel/autorun/lib/paths"
)

// Launcher runs one application entry.
type Launcher interface {
	// Launch runs the entry's command and blocks until it exits. Disabled
	// entries are skipped without error.
	Launch(ctx context.Context, entry bootconfig.AppEntry) (*Result, error)
}

// Result describes one launch.
type Result struct {
	Skipped  bool
	Command  string // command line after placeholder expansion
	Dir      string // working directory the command ran in
	ExitCode int
	Duration time.Duration
}

// Config holds the launcher settings that are fixed for a boot.
type Config struct {
	BlockDevice string
	Shell       string    // defaults to /bin/sh
	Stdout      io.Writer // defaults to os.Stdout
	Stderr      io.Writer // defaults to os.Stderr
}

type launcher struct {
	cfg    Config
	paths  *paths.Paths
	runner exec.Runner
}

// New creates a Launcher.
func New(cfg Config, p *paths.Paths, runner exec.Runner) Launcher {
	if cfg.Shell == "" {
		cfg.Shell = "/bin/sh"
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	return &launcher{cfg: cfg, paths: p, runner: runner}
}

func (l *launcher) Launch(ctx context.Context, entry bootconfig.AppEntry) (*Result, error) {
	ctx, log := logger.With(ctx, logger.AppKey, entry.Name)

	if !entry.Enabled {
		return &Result{Skipped: true}, nil
	}
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	dir, err := l.paths.AppDir(entry.Path)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Command: Expand(entry.Command, l.cfg.BlockDevice, l.paths.MountPath()),
		Dir:     dir,
	}

	log.InfoContext(ctx, "launching application", "command", res.Command, "dir", res.Dir)

	// The child gets its own working directory; ours is never changed.
	status, err := l.runner.Run(ctx, exec.ExecOptions{
		Command: []string{l.cfg.Shell, "-c", res.Command},
		Cwd:     dir,
		Env:     buildEnv(os.Environ(), entry.Env),
		Stdout:  l.cfg.Stdout,
		Stderr:  l.cfg.Stderr,
	})
	if status != nil {
		res.ExitCode = status.Code
		res.Duration = status.Duration
	}
	if err != nil {
		log.ErrorContext(ctx, "application failed",
			"exit_code", res.ExitCode,
			"duration", res.Duration,
			"error", err)
		return res, fmt.Errorf("launch %s: %w", entry.Name, err)
	}

	log.InfoContext(ctx, "application exited", "exit_code", res.ExitCode, "duration", res.Duration)
	return res, nil
}

// buildEnv appends the entry's variables to the inherited environment in a
// stable order. Later entries win for duplicate keys.
func buildEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(base)+len(extra))
	env = append(env, base...)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, extra[k]))
	}
	return env
}
