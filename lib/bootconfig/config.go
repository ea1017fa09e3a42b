// Package bootconfig defines the boot configuration read from the storage
// medium: an optional static network setup and the ordered list of
// applications to launch.
package bootconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ghodss/yaml"
)

// DefaultFileName is the configuration file looked up when no path is given.
const DefaultFileName = "config.yaml"

// UnnamedApp is the display name of an application entry without a name.
const UnnamedApp = "<unnamed>"

// BootConfig is the root of the configuration document.
// It is built once per boot by Load and not modified afterwards.
type BootConfig struct {
	Network      *NetworkConfig `json:"network,omitempty"`
	Applications []AppEntry     `json:"applications,omitempty"`
}

// NetworkConfig is a static interface configuration.
// Interface gates the whole network step. Address and Netmask must both be set
// to configure addressing; Gateway on its own installs the default route.
type NetworkConfig struct {
	Interface string `json:"interface,omitempty"`
	Address   string `json:"address,omitempty"`
	Netmask   string `json:"netmask,omitempty"`
	Gateway   string `json:"gateway,omitempty"`
}

// AppEntry describes one application launched during boot.
type AppEntry struct {
	Name     string            `json:"name"`
	Enabled  bool              `json:"enabled"`
	ReadOnly bool              `json:"ro"`
	Path     string            `json:"path"`
	Command  string            `json:"command"`
	Env      map[string]string `json:"env,omitempty"`
}

// rawAppEntry mirrors AppEntry with pointer flags so absent keys can be told
// apart from explicit false.
type rawAppEntry struct {
	Name     *string           `json:"name"`
	Enabled  *bool             `json:"enabled"`
	ReadOnly *bool             `json:"ro"`
	Path     string            `json:"path"`
	Command  string            `json:"command"`
	Env      map[string]string `json:"env,omitempty"`
}

type rawBootConfig struct {
	Network      *NetworkConfig `json:"network"`
	Applications []rawAppEntry  `json:"applications"`
}

// Load reads and parses the configuration file at path.
// Defaults are applied to every application entry: name "<unnamed>",
// enabled false, ro true. Entries are not validated here; see Validate.
func Load(path string) (*BootConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML (or JSON) configuration document.
func Parse(data []byte) (*BootConfig, error) {
	var raw rawBootConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	cfg := &BootConfig{Network: raw.Network}
	for _, r := range raw.Applications {
		cfg.Applications = append(cfg.Applications, r.withDefaults())
	}
	return cfg, nil
}

func (r rawAppEntry) withDefaults() AppEntry {
	entry := AppEntry{
		Name:     UnnamedApp,
		Enabled:  false,
		ReadOnly: true,
		Path:     r.Path,
		Command:  r.Command,
		Env:      r.Env,
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) != "" {
		entry.Name = *r.Name
	}
	if r.Enabled != nil {
		entry.Enabled = *r.Enabled
	}
	if r.ReadOnly != nil {
		entry.ReadOnly = *r.ReadOnly
	}
	return entry
}

// HasNetwork reports whether the network step should run.
func (c *BootConfig) HasNetwork() bool {
	return c.Network != nil && strings.TrimSpace(c.Network.Interface) != ""
}

// Validate checks every application entry and returns all problems found.
func (c *BootConfig) Validate() error {
	var errs []error
	for i, app := range c.Applications {
		if err := app.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("applications[%d] (%s): %w", i, app.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks that path and command are present.
func (a AppEntry) Validate() error {
	var errs []error
	if strings.TrimSpace(a.Path) == "" {
		errs = append(errs, ErrMissingPath)
	}
	if strings.TrimSpace(a.Command) == "" {
		errs = append(errs, ErrMissingCommand)
	}
	return errors.Join(errs...)
}

// HasAddress reports whether both address and netmask are set.
func (n NetworkConfig) HasAddress() bool {
	return n.Address != "" && n.Netmask != ""
}

// HasGateway reports whether a default gateway is set.
func (n NetworkConfig) HasGateway() bool {
	return n.Gateway != ""
}
