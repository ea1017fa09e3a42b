package boot

import (
	"errors"
	"time"

	"github.com/onkernel/autorun/lib/mount"
	"github.com/samber/lo"
)

// AppStatus is the outcome of one application entry.
type AppStatus string

const (
	AppSkipped   AppStatus = "skipped"   // disabled in the configuration
	AppInvalid   AppStatus = "invalid"   // enabled but missing path or command
	AppSucceeded AppStatus = "succeeded" // command exited with status 0
	AppFailed    AppStatus = "failed"    // command could not start or exited non-zero
)

// NetworkStatus is the outcome of the network step.
type NetworkStatus string

const (
	NetworkSkipped    NetworkStatus = "skipped"
	NetworkConfigured NetworkStatus = "configured"
	NetworkFailed     NetworkStatus = "failed"
)

// AppResult records what happened to one application entry.
type AppResult struct {
	Index    int
	Name     string
	Status   AppStatus
	ReadOnly bool
	Command  string // expanded command line, empty when nothing ran
	Dir      string
	ExitCode int
	Duration time.Duration
	Err      error
}

// RemountResult records the single remount of a boot run.
type RemountResult struct {
	TriggeredBy string // name of the entry that caused it
	UnmountErr  error
	MountErr    error
	Mode        mount.Mode // live mode observed afterwards, mount.Unknown when ModeErr is set
	ModeErr     error
}

// Err returns the combined unmount and mount error, nil if the remount
// succeeded.
func (r *RemountResult) Err() error {
	return errors.Join(r.UnmountErr, r.MountErr)
}

// Report summarizes a boot run.
type Report struct {
	SessionID  string
	StartedAt  time.Time
	Duration   time.Duration
	Network    NetworkStatus
	NetworkErr error
	Remount    *RemountResult // nil when no remount happened
	Apps       []AppResult
}

// Remounted reports whether the storage medium was remounted read-write.
func (r *Report) Remounted() bool {
	return r.Remount != nil
}

// Failed reports whether any step of the run failed.
func (r *Report) Failed() bool {
	if r.Network == NetworkFailed {
		return true
	}
	if r.Remount != nil && r.Remount.Err() != nil {
		return true
	}
	return lo.SomeBy(r.Apps, func(a AppResult) bool {
		return a.Status == AppFailed || a.Status == AppInvalid
	})
}

// Counts returns the number of entries per status.
func (r *Report) Counts() map[AppStatus]int {
	return lo.CountValuesBy(r.Apps, func(a AppResult) AppStatus {
		return a.Status
	})
}

// LogAttrs returns the report as slog key/value pairs.
func (r *Report) LogAttrs() []any {
	counts := r.Counts()
	attrs := []any{
		"network", string(r.Network),
		"remounted", r.Remounted(),
		"apps", len(r.Apps),
		"succeeded", counts[AppSucceeded],
		"failed", counts[AppFailed],
		"invalid", counts[AppInvalid],
		"skipped", counts[AppSkipped],
		"duration", r.Duration,
	}
	if r.Remount != nil {
		attrs = append(attrs, "remount_trigger", r.Remount.TriggeredBy)
		if err := r.Remount.Err(); err != nil {
			attrs = append(attrs, "remount_error", err.Error())
		}
		if r.Remount.ModeErr == nil {
			attrs = append(attrs, "mount_mode", r.Remount.Mode.String())
		}
	}
	return attrs
}
