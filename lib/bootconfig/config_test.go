package bootconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
network:
  interface: eth0
  address: 192.168.1.10
  netmask: 255.255.255.0
  gateway: 192.168.1.1
applications:
  - name: logger
    enabled: true
    ro: false
    path: apps/logger
    command: ./run.sh {:blkdev-path:} {:mount-path:}
    env:
      LOG_LEVEL: debug
  - path: apps/idle
    command: ./idle.sh
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	require.NotNil(t, cfg.Network)
	assert.Equal(t, "eth0", cfg.Network.Interface)
	assert.Equal(t, "192.168.1.10", cfg.Network.Address)
	assert.True(t, cfg.Network.HasAddress())
	assert.True(t, cfg.Network.HasGateway())
	assert.True(t, cfg.HasNetwork())

	require.Len(t, cfg.Applications, 2)

	logger := cfg.Applications[0]
	assert.Equal(t, "logger", logger.Name)
	assert.True(t, logger.Enabled)
	assert.False(t, logger.ReadOnly)
	assert.Equal(t, "apps/logger", logger.Path)
	assert.Equal(t, "./run.sh {:blkdev-path:} {:mount-path:}", logger.Command)
	assert.Equal(t, map[string]string{"LOG_LEVEL": "debug"}, logger.Env)

	require.NoError(t, cfg.Validate())
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(fullConfig))
	require.NoError(t, err)

	idle := cfg.Applications[1]
	assert.Equal(t, UnnamedApp, idle.Name)
	assert.False(t, idle.Enabled, "entries are opt-in")
	assert.True(t, idle.ReadOnly, "entries are read-only unless marked")
	assert.Empty(t, idle.Env)
}

func TestLoadEmptyName(t *testing.T) {
	cfg, err := Parse([]byte("applications:\n  - name: \"\"\n    path: a\n    command: b\n"))
	require.NoError(t, err)
	assert.Equal(t, UnnamedApp, cfg.Applications[0].Name)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "applications: [\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})
}

func TestHasNetwork(t *testing.T) {
	tests := []struct {
		name string
		cfg  BootConfig
		want bool
	}{
		{name: "no network section", cfg: BootConfig{}, want: false},
		{name: "empty interface", cfg: BootConfig{Network: &NetworkConfig{Address: "10.0.0.2"}}, want: false},
		{name: "blank interface", cfg: BootConfig{Network: &NetworkConfig{Interface: "  "}}, want: false},
		{name: "interface only", cfg: BootConfig{Network: &NetworkConfig{Interface: "eth0"}}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.HasNetwork())
		})
	}
}

func TestNetworkConfigPartial(t *testing.T) {
	addrOnly := NetworkConfig{Interface: "eth0", Address: "10.0.0.2"}
	assert.False(t, addrOnly.HasAddress(), "address without netmask is not enough")
	assert.False(t, addrOnly.HasGateway())

	gwOnly := NetworkConfig{Interface: "eth0", Gateway: "10.0.0.1"}
	assert.False(t, gwOnly.HasAddress())
	assert.True(t, gwOnly.HasGateway())
}

func TestValidate(t *testing.T) {
	cfg, err := Parse([]byte(`
applications:
  - name: ok
    path: a
    command: b
  - name: nopath
    command: b
  - name: nothing
`))
	require.NoError(t, err)

	require.NoError(t, cfg.Applications[0].Validate())
	assert.ErrorIs(t, cfg.Applications[1].Validate(), ErrMissingPath)

	err = cfg.Applications[2].Validate()
	assert.ErrorIs(t, err, ErrMissingPath)
	assert.ErrorIs(t, err, ErrMissingCommand)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "applications[1] (nopath)")
	assert.Contains(t, err.Error(), "applications[2] (nothing)")
	assert.NotContains(t, err.Error(), "(ok)")
}
