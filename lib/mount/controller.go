// Package mount controls the mount mode of the storage medium holding the
// boot configuration and applications. It shells out to the mount utilities
// the same way the rest of the boot sequence does.
package mount

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/moby/sys/mountinfo"
	"github.com/onkernel/autorun/lib/exec"
	"github.com/onkernel/autorun/lib/logger"
	"golang.org/x/sys/unix"
)

// Config identifies the device/mountpoint pair and the utilities used on it.
type Config struct {
	Device     string
	Mountpoint string
	FSType     string // "-t" argument, "auto" when empty
	MountBin   string // defaults to /bin/mount
	UmountBin  string // defaults to /bin/umount
}

// Controller mounts, unmounts and remounts one device at one mountpoint.
type Controller interface {
	// Mount mounts the device in the given mode. No state is tracked.
	Mount(ctx context.Context, mode Mode) error

	// Unmount lazily unmounts the mountpoint. A mountpoint that is not
	// mounted counts as success.
	Unmount(ctx context.Context) error

	// Remount unmounts and then mounts in the given mode. The mount is
	// attempted whatever the unmount outcome; both outcomes are returned.
	Remount(ctx context.Context, mode Mode) RemountResult

	// Mode reports the live mode of the mountpoint. It returns Unknown and
	// ErrNotMounted when the device is not mounted there, so a failed mount
	// is never mistaken for the mode of the directory underneath.
	Mode(ctx context.Context) (Mode, error)
}

// RemountResult carries both halves of a remount.
type RemountResult struct {
	UnmountErr error
	MountErr   error
}

// Err returns the combined error of both halves, nil if both succeeded.
func (r RemountResult) Err() error {
	return errors.Join(r.UnmountErr, r.MountErr)
}

type controller struct {
	cfg     Config
	runner  exec.Runner
	mounted func(path string) (bool, error)
	statfs  func(path string, st *unix.Statfs_t) error
}

// NewController creates a Controller for cfg, running utilities via runner.
func NewController(cfg Config, runner exec.Runner) Controller {
	if cfg.FSType == "" {
		cfg.FSType = "auto"
	}
	if cfg.MountBin == "" {
		cfg.MountBin = "/bin/mount"
	}
	if cfg.UmountBin == "" {
		cfg.UmountBin = "/bin/umount"
	}
	return &controller{
		cfg:     cfg,
		runner:  runner,
		mounted: mountinfo.Mounted,
		statfs:  unix.Statfs,
	}
}

func (c *controller) Mount(ctx context.Context, mode Mode) error {
	log := logger.FromContext(ctx)

	args := []string{c.cfg.MountBin, "-t", c.cfg.FSType, "-o", mode.Option(), c.cfg.Device, c.cfg.Mountpoint}
	if _, err := c.runner.Run(ctx, exec.ExecOptions{Command: args}); err != nil {
		return fmt.Errorf("mount %s at %s (%s): %w", c.cfg.Device, c.cfg.Mountpoint, mode, err)
	}

	log.DebugContext(ctx, "mounted block device",
		"device", c.cfg.Device,
		"mountpoint", c.cfg.Mountpoint,
		"mode", mode.String())
	return nil
}

func (c *controller) Unmount(ctx context.Context) error {
	log := logger.FromContext(ctx)

	mounted, err := c.mounted(c.cfg.Mountpoint)
	if err != nil {
		// Can't tell; let umount decide
		log.DebugContext(ctx, "mount table lookup failed", "mountpoint", c.cfg.Mountpoint, "error", err)
	} else if !mounted {
		log.DebugContext(ctx, "mountpoint already unmounted", "mountpoint", c.cfg.Mountpoint)
		return nil
	}

	status, err := c.runner.Run(ctx, exec.ExecOptions{Command: []string{c.cfg.UmountBin, "-l", c.cfg.Mountpoint}})
	if err != nil {
		if status != nil && isNotMounted(status.Output) {
			return nil
		}
		return fmt.Errorf("unmount %s: %w", c.cfg.Mountpoint, err)
	}

	log.DebugContext(ctx, "unmounted", "mountpoint", c.cfg.Mountpoint)
	return nil
}

func (c *controller) Remount(ctx context.Context, mode Mode) RemountResult {
	var res RemountResult
	res.UnmountErr = c.Unmount(ctx)
	// Mount regardless of the unmount outcome
	res.MountErr = c.Mount(ctx, mode)
	return res
}

func (c *controller) Mode(ctx context.Context) (Mode, error) {
	mounted, err := c.mounted(c.cfg.Mountpoint)
	if err != nil {
		return Unknown, fmt.Errorf("mount table lookup %s: %w", c.cfg.Mountpoint, err)
	}
	if !mounted {
		return Unknown, fmt.Errorf("%s: %w", c.cfg.Mountpoint, ErrNotMounted)
	}

	var st unix.Statfs_t
	if err := c.statfs(c.cfg.Mountpoint, &st); err != nil {
		return Unknown, fmt.Errorf("statfs %s: %w", c.cfg.Mountpoint, err)
	}
	if st.Flags&unix.ST_RDONLY != 0 {
		return ReadOnly, nil
	}
	return ReadWrite, nil
}

// isNotMounted matches util-linux and busybox umount messages.
func isNotMounted(output []byte) bool {
	msg := strings.ToLower(string(output))
	return strings.Contains(msg, "not mounted") || strings.Contains(msg, "not a mount point")
}
