package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/onkernel/autorun/cmd/autorun/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMedium creates a fake block device, a mount directory with one app
// directory and a configuration file, and returns their paths.
func setupMedium(t *testing.T, doc string) (device, mountPath, configPath string) {
	t.Helper()
	root := t.TempDir()

	device = filepath.Join(root, "mmcblk0p1")
	require.NoError(t, os.WriteFile(device, nil, 0644))

	mountPath = filepath.Join(root, "sd")
	require.NoError(t, os.MkdirAll(filepath.Join(mountPath, "app1"), 0755))

	configPath = filepath.Join(mountPath, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(doc), 0644))
	return device, mountPath, configPath
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("APP_LOG_DIR", "")
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&nopWriter{})
	cmd.SetErr(&nopWriter{})
	return cmd.Execute()
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRunLaunchesApplications(t *testing.T) {
	device, mountPath, configPath := setupMedium(t, `
applications:
  - name: marker
    enabled: true
    ro: true
    path: app1
    command: echo {:blkdev-path:} > marker
  - name: disabled
    path: app1
    command: touch disabled
`)

	err := execute(t, "--blkdev-path", device, "--mount-path", mountPath, "--config-path", configPath)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(mountPath, "app1", "marker"))
	require.NoError(t, err)
	assert.Equal(t, device+"\n", string(data))
	assert.NoFileExists(t, filepath.Join(mountPath, "app1", "disabled"))
}

func TestRunFailuresExitZeroUnlessStrict(t *testing.T) {
	device, mountPath, configPath := setupMedium(t, `
applications:
  - {name: bad, enabled: true, path: app1, command: "exit 2"}
`)

	args := []string{"--blkdev-path", device, "--mount-path", mountPath, "--config-path", configPath}
	assert.NoError(t, execute(t, args...))
	assert.ErrorIs(t, execute(t, append(args, "--strict")...), errBootFailed)
}

func TestRunWritesAppLogs(t *testing.T) {
	device, mountPath, configPath := setupMedium(t, `
applications:
  - {name: web, enabled: true, path: app1, command: "true"}
`)
	logDir := t.TempDir()

	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("APP_LOG_DIR", logDir)
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--blkdev-path", device, "--mount-path", mountPath, "--config-path", configPath})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(filepath.Join(logDir, "web.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "launching application")
	assert.Contains(t, string(data), "application exited")
}

func TestRunUsageErrors(t *testing.T) {
	device, mountPath, configPath := setupMedium(t, "applications: []")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "missing required flags",
			args: nil,
			want: `required flag(s) "blkdev-path", "mount-path" not set`,
		},
		{
			name: "missing device",
			args: []string{"--blkdev-path", "/nonexistent/dev", "--mount-path", mountPath, "--config-path", configPath},
			want: "--blkdev-path /nonexistent/dev",
		},
		{
			name: "missing mount path",
			args: []string{"--blkdev-path", device, "--mount-path", "/nonexistent/mnt", "--config-path", configPath},
			want: "--mount-path /nonexistent/mnt",
		},
		{
			name: "missing config",
			args: []string{"--blkdev-path", device, "--mount-path", mountPath, "--config-path", filepath.Join(mountPath, "nope.yaml")},
			want: "--config-path",
		},
		{
			name: "unexpected argument",
			args: []string{"--blkdev-path", device, "--mount-path", mountPath, "extra"},
			want: "unknown command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunMalformedConfig(t *testing.T) {
	device, mountPath, configPath := setupMedium(t, "applications: [unterminated")

	err := execute(t, "--blkdev-path", device, "--mount-path", mountPath, "--config-path", configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialize application")
	assert.Contains(t, err.Error(), "parse config")
}

func TestValidatePaths(t *testing.T) {
	device, mountPath, configPath := setupMedium(t, "")

	assert.NoError(t, validatePaths(&config.Config{BlockDevice: device, MountPath: mountPath, ConfigPath: configPath}))
	assert.ErrorContains(t, validatePaths(&config.Config{MountPath: mountPath, ConfigPath: configPath}), "--blkdev-path is required")
	assert.ErrorContains(t, validatePaths(&config.Config{BlockDevice: device, MountPath: mountPath}), "--config-path is required")
}
