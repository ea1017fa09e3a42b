package launcher

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/onkernel/autorun/lib/bootconfig"
	"github.com/onkernel/autorun/lib/exec"
	"github.com/onkernel/autorun/lib/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	calls []exec.ExecOptions
	code  int
}

func (r *recordingRunner) Run(ctx context.Context, opts exec.ExecOptions) (*exec.ExitStatus, error) {
	r.calls = append(r.calls, opts)
	if r.code != 0 {
		return &exec.ExitStatus{Code: r.code}, fmt.Errorf("%w: sh exited with code %d", exec.ErrNonZeroExit, r.code)
	}
	return &exec.ExitStatus{}, nil
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{name: "mount path", template: "run.sh {:mount-path:}", want: "run.sh /mnt/sd"},
		{name: "both tokens", template: "fsck {:blkdev-path:} && ls {:mount-path:}/data", want: "fsck /dev/mmcblk0p1 && ls /mnt/sd/data"},
		{name: "repeated tokens", template: "{:mount-path:}:{:mount-path:}", want: "/mnt/sd:/mnt/sd"},
		{name: "no tokens", template: "./start", want: "./start"},
		{name: "unknown token kept", template: "run {:hostname:} {:mount-path:}", want: "run {:hostname:} /mnt/sd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.template, "/dev/mmcblk0p1", "/mnt/sd"))
		})
	}
}

func TestExpandLeavesNoRecognizedTokens(t *testing.T) {
	got := Expand("{:blkdev-path:} {:mount-path:} {:blkdev-path:}{:mount-path:}", "/dev/sda1", "/media/usb")
	assert.NotContains(t, got, BlockDevicePlaceholder)
	assert.NotContains(t, got, MountPathPlaceholder)

	// Expanding again changes nothing
	assert.Equal(t, got, Expand(got, "/dev/sda1", "/media/usb"))
}

func TestLaunch(t *testing.T) {
	r := &recordingRunner{}
	l := New(Config{BlockDevice: "/dev/mmcblk0p1"}, paths.New("/mnt/sd", ""), r)

	res, err := l.Launch(context.Background(), bootconfig.AppEntry{
		Name:     "a",
		Enabled:  true,
		ReadOnly: true,
		Path:     "app1",
		Command:  "run.sh {:mount-path:}",
	})
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, "run.sh /mnt/sd", res.Command)
	assert.Equal(t, "/mnt/sd/app1", res.Dir)

	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"/bin/sh", "-c", "run.sh /mnt/sd"}, r.calls[0].Command)
	assert.Equal(t, "/mnt/sd/app1", r.calls[0].Cwd)
	assert.Nil(t, r.calls[0].Env, "environment is inherited when no env is configured")
	assert.Equal(t, os.Stdout, r.calls[0].Stdout)
}

func TestLaunchDisabled(t *testing.T) {
	r := &recordingRunner{}
	l := New(Config{}, paths.New("/mnt/sd", ""), r)

	res, err := l.Launch(context.Background(), bootconfig.AppEntry{Name: "off", Path: "x", Command: "y"})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, r.calls)
}

func TestLaunchInvalid(t *testing.T) {
	r := &recordingRunner{}
	l := New(Config{}, paths.New("/mnt/sd", ""), r)

	_, err := l.Launch(context.Background(), bootconfig.AppEntry{Name: "broken", Enabled: true, Command: "y"})
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.ErrorIs(t, err, bootconfig.ErrMissingPath)
	assert.Empty(t, r.calls)
}

func TestLaunchFailureReportsExitCode(t *testing.T) {
	r := &recordingRunner{code: 7}
	l := New(Config{Shell: "/bin/ash"}, paths.New("/mnt/sd", ""), r)

	res, err := l.Launch(context.Background(), bootconfig.AppEntry{Name: "bad", Enabled: true, Path: "bad", Command: "false"})
	require.Error(t, err)
	assert.ErrorIs(t, err, exec.ErrNonZeroExit)
	assert.Equal(t, 7, res.ExitCode)
	assert.Equal(t, "/bin/ash", r.calls[0].Command[0])
}

func TestLaunchEnv(t *testing.T) {
	r := &recordingRunner{}
	l := New(Config{}, paths.New("/mnt/sd", ""), r)

	_, err := l.Launch(context.Background(), bootconfig.AppEntry{
		Name:    "env",
		Enabled: true,
		Path:    "env",
		Command: "env",
		Env:     map[string]string{"B": "2", "A": "1"},
	})
	require.NoError(t, err)

	env := r.calls[0].Env
	require.GreaterOrEqual(t, len(env), 2)
	assert.Equal(t, []string{"A=1", "B=2"}, env[len(env)-2:])
}

func TestLaunchRealCommandKeepsWorkingDirectory(t *testing.T) {
	mount := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(mount, "app1"), 0755))

	var stdout bytes.Buffer
	l := New(Config{BlockDevice: "/dev/mmcblk0p1", Stdout: &stdout, Stderr: &stdout}, paths.New(mount, ""), exec.NewRunner())

	before, err := os.Getwd()
	require.NoError(t, err)

	res, err := l.Launch(context.Background(), bootconfig.AppEntry{
		Name:    "pwd",
		Enabled: true,
		Path:    "app1",
		Command: "pwd; echo {:blkdev-path:}",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	resolved, err := filepath.EvalSymlinks(filepath.Join(mount, "app1"))
	require.NoError(t, err)
	assert.Equal(t, resolved, lines[0])
	assert.Equal(t, "/dev/mmcblk0p1", lines[1])

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// A failing command leaves the working directory untouched too
	res, err = l.Launch(context.Background(), bootconfig.AppEntry{
		Name:    "fail",
		Enabled: true,
		Path:    "app1",
		Command: "exit 4",
	})
	require.Error(t, err)
	assert.Equal(t, 4, res.ExitCode)

	after, err = os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLaunchMissingDirectory(t *testing.T) {
	mount := t.TempDir()
	l := New(Config{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}, paths.New(mount, ""), exec.NewRunner())

	res, err := l.Launch(context.Background(), bootconfig.AppEntry{Name: "ghost", Enabled: true, Path: "missing", Command: "true"})
	require.Error(t, err)
	assert.ErrorIs(t, err, exec.ErrStart)
	assert.Equal(t, -1, res.ExitCode)
}
