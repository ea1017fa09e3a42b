// Package boot runs the boot sequence of the device: configure the network
// once, then launch the configured applications one after another, remounting
// the storage medium read-write the first time an application needs it.
//
// Every step is best effort. A failed step is logged and recorded in the
// Report; the sequence always runs to the end of the application list.
package boot

import (
	"context"
	"fmt"
	"time"

	"github.com/nrednav/cuid2"
	"github.com/onkernel/autorun/lib/bootconfig"
	"github.com/onkernel/autorun/lib/launcher"
	"github.com/onkernel/autorun/lib/logger"
	"github.com/onkernel/autorun/lib/mount"
	"github.com/onkernel/autorun/lib/network"
	"go.opentelemetry.io/otel/attribute"
)

// Orchestrator drives one boot run over its collaborators.
type Orchestrator struct {
	network   network.Configurator
	mount     mount.Controller
	launcher  launcher.Launcher
	metrics   *Metrics
	sessionID func() string
}

// New creates an Orchestrator. metrics may be nil.
func New(net network.Configurator, mnt mount.Controller, l launcher.Launcher, metrics *Metrics) *Orchestrator {
	return &Orchestrator{
		network:   net,
		mount:     mnt,
		launcher:  l,
		metrics:   metrics,
		sessionID: cuid2.Generate,
	}
}

// session is the state of a single Run. remounted only ever goes from false
// to true.
type session struct {
	report    *Report
	remounted bool
}

// Run executes the boot sequence for cfg and returns what happened.
// Applications are processed strictly in configuration order, each running to
// completion before the next one starts.
func (o *Orchestrator) Run(ctx context.Context, cfg *bootconfig.BootConfig) *Report {
	s := &session{
		report: &Report{
			SessionID: o.sessionID(),
			StartedAt: time.Now(),
			Network:   NetworkSkipped,
		},
	}

	ctx, log := logger.With(ctx, "session_id", s.report.SessionID)

	ctx, end := o.metrics.startSpan(ctx, "Boot", attribute.String("session_id", s.report.SessionID))
	defer end(nil)

	log.InfoContext(ctx, "boot started",
		"applications", len(cfg.Applications),
		"network", cfg.HasNetwork())

	if cfg.HasNetwork() {
		o.configureNetwork(ctx, s, *cfg.Network)
	} else {
		log.InfoContext(ctx, "no network interface configured, skipping network setup")
	}

	for i, entry := range cfg.Applications {
		if err := ctx.Err(); err != nil {
			log.WarnContext(ctx, "boot interrupted, not launching remaining applications",
				"remaining", len(cfg.Applications)-i, "error", err)
			break
		}
		s.report.Apps = append(s.report.Apps, o.runApp(ctx, s, i, entry))
	}

	s.report.Duration = time.Since(s.report.StartedAt)
	log.InfoContext(ctx, "boot finished", s.report.LogAttrs()...)
	return s.report
}

func (o *Orchestrator) configureNetwork(ctx context.Context, s *session, cfg bootconfig.NetworkConfig) {
	log := logger.FromContext(ctx)

	ctx, end := o.metrics.startSpan(ctx, "ConfigureNetwork", attribute.String("interface", cfg.Interface))
	log.InfoContext(ctx, "configuring network",
		"interface", cfg.Interface,
		"address", cfg.Address,
		"netmask", cfg.Netmask,
		"gateway", cfg.Gateway)

	err := o.network.Configure(ctx, cfg)
	end(err)
	o.metrics.recordNetwork(ctx, err)

	if err != nil {
		// Continue anyway; applications may not need the network
		log.ErrorContext(ctx, "network configuration failed", "interface", cfg.Interface, "error", err)
		s.report.Network = NetworkFailed
		s.report.NetworkErr = err
		return
	}
	log.InfoContext(ctx, "network configured", "interface", cfg.Interface)
	s.report.Network = NetworkConfigured
}

func (o *Orchestrator) runApp(ctx context.Context, s *session, index int, entry bootconfig.AppEntry) AppResult {
	log := logger.FromContext(ctx).With(logger.AppKey, entry.Name)
	res := AppResult{Index: index, Name: entry.Name, ReadOnly: entry.ReadOnly}

	if !entry.Enabled {
		log.InfoContext(ctx, "application disabled, skipping")
		res.Status = AppSkipped
		o.metrics.recordApp(ctx, res)
		return res
	}

	// Checked before any remount so a broken entry cannot change the mount
	if err := entry.Validate(); err != nil {
		res.Status = AppInvalid
		res.Err = fmt.Errorf("%w: %w", launcher.ErrInvalidEntry, err)
		log.ErrorContext(ctx, "invalid application entry, skipping", "index", index, "error", err)
		o.metrics.recordApp(ctx, res)
		return res
	}

	ctx, end := o.metrics.startSpan(ctx, "LaunchApplication",
		attribute.String("app", entry.Name),
		attribute.Bool("ro", entry.ReadOnly))

	if mount.ModeFor(entry.ReadOnly) == mount.ReadWrite && !s.remounted {
		o.remount(ctx, s, entry.Name)
	}

	lr, err := o.launcher.Launch(ctx, entry)
	end(err)
	if lr != nil {
		res.Command = lr.Command
		res.Dir = lr.Dir
		res.ExitCode = lr.ExitCode
		res.Duration = lr.Duration
	}
	if err != nil {
		res.Status = AppFailed
		res.Err = err
	} else {
		res.Status = AppSucceeded
	}

	o.metrics.recordApp(ctx, res)
	return res
}

// remount switches the storage medium to read-write. It is attempted once per
// session: the flag is set before the attempt so a failure is not retried by
// later entries.
func (o *Orchestrator) remount(ctx context.Context, s *session, trigger string) {
	log := logger.FromContext(ctx)
	s.remounted = true

	ctx, end := o.metrics.startSpan(ctx, "Remount", attribute.String("triggered_by", trigger))
	log.InfoContext(ctx, "remounting storage read-write", "triggered_by", trigger)

	r := o.mount.Remount(ctx, mount.ReadWrite)
	res := &RemountResult{
		TriggeredBy: trigger,
		UnmountErr:  r.UnmountErr,
		MountErr:    r.MountErr,
	}
	s.report.Remount = res

	if r.UnmountErr != nil {
		log.ErrorContext(ctx, "unmount before remount failed", "error", r.UnmountErr)
	}
	if r.MountErr != nil {
		// The application is launched anyway
		log.ErrorContext(ctx, "read-write mount failed", "error", r.MountErr)
	}

	res.Mode, res.ModeErr = o.mount.Mode(ctx)
	switch {
	case res.ModeErr != nil:
		log.WarnContext(ctx, "could not determine mount mode", "error", res.ModeErr)
	case r.MountErr == nil && res.Mode == mount.ReadWrite:
		log.InfoContext(ctx, "storage remounted", "mode", res.Mode.String())
	default:
		log.WarnContext(ctx, "storage is not read-write after remount", "mode", res.Mode.String())
	}

	end(res.Err())
	o.metrics.recordRemount(ctx, res.Err())
}
