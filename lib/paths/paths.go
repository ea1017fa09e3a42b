// Package paths provides centralized path construction for the mounted
// storage medium and the per-application log directory.
package paths

import (
	"fmt"
	"path/filepath"
	"regexp"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// Paths provides typed path construction rooted at the mountpoint.
type Paths struct {
	mountPath string
	appLogDir string
}

// New creates a new Paths instance. appLogDir may be empty, in which case
// per-application log files are disabled.
func New(mountPath, appLogDir string) *Paths {
	return &Paths{mountPath: mountPath, appLogDir: appLogDir}
}

// MountPath returns the mountpoint of the storage medium.
func (p *Paths) MountPath() string {
	return p.mountPath
}

// AppDir returns the working directory of an application: rel resolved
// against the mountpoint. Symlinks and ".." components cannot escape the
// mountpoint.
func (p *Paths) AppDir(rel string) (string, error) {
	dir, err := securejoin.SecureJoin(p.mountPath, rel)
	if err != nil {
		return "", fmt.Errorf("resolve app dir %q: %w", rel, err)
	}
	return dir, nil
}

// AppLogDir returns the per-application log directory, or "" if disabled.
func (p *Paths) AppLogDir() string {
	return p.appLogDir
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// AppLog returns the log file path for an application name,
// or "" when per-application logs are disabled.
func (p *Paths) AppLog(name string) string {
	if p.appLogDir == "" || name == "" {
		return ""
	}
	safe := unsafeNameChars.ReplaceAllString(name, "_")
	return filepath.Join(p.appLogDir, safe+".log")
}
