package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onkernel/autorun/cmd/autorun/config"
	"github.com/onkernel/autorun/lib/exec"
	"github.com/onkernel/autorun/lib/otel"
	"github.com/spf13/cobra"
)

// errBootFailed is returned in strict mode when any boot step failed.
var errBootFailed = errors.New("boot finished with failures")

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error("autorun terminated", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:   "autorun",
		Short: "Configure the network and launch the applications listed on a storage medium",
		Long: `autorun reads a YAML configuration from a mounted storage medium, applies
its static network settings and launches the enabled applications in order.
The medium is remounted read-write once, before the first application that
needs it.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.BlockDevice, "blkdev-path", "", "block device holding the configuration (ex: /dev/mmcblk0p1)")
	cmd.Flags().StringVar(&cfg.MountPath, "mount-path", "", "mountpoint of the block device (ex: /mnt/sd)")
	cmd.Flags().StringVar(&cfg.ConfigPath, "config-path", cfg.ConfigPath, "path of the YAML configuration file")
	cmd.Flags().BoolVar(&cfg.Strict, "strict", false, "exit with status 1 if any boot step failed")
	_ = cmd.MarkFlagRequired("blkdev-path")
	_ = cmd.MarkFlagRequired("mount-path")

	return cmd
}

func run(cfg *config.Config) error {
	if err := validatePaths(cfg); err != nil {
		return err
	}

	otelProvider, otelShutdown, err := otel.Init(context.Background(), otel.Config{
		Enabled:           cfg.OtelEnabled,
		Endpoint:          cfg.OtelEndpoint,
		ServiceName:       cfg.OtelServiceName,
		ServiceInstanceID: cfg.OtelServiceInstanceID,
		Insecure:          cfg.OtelInsecure,
		Version:           cfg.Version,
		Env:               cfg.Env,
	})
	if err != nil {
		// Boot must go on without telemetry
		slog.Warn("failed to initialize OpenTelemetry, continuing without telemetry", "error", err)
	}
	if otelShutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				slog.Warn("error shutting down OpenTelemetry", "error", err)
			}
		}()
	}

	if otelProvider != nil && otelProvider.Meter != nil {
		execMetrics, err := exec.NewMetrics(otelProvider.Meter)
		if err == nil {
			exec.SetMetrics(execMetrics)
		}
	}
	if otelProvider != nil && otelProvider.LogHandler != nil {
		otel.SetGlobalLogHandler(otelProvider.LogHandler)
	}

	app, cleanup, err := initializeApp(cfg)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := app.Logger
	if cfg.OtelEnabled {
		log.Info("OpenTelemetry enabled", "endpoint", cfg.OtelEndpoint, "service", cfg.OtelServiceName)
	}
	log.Info("starting boot",
		"blkdev_path", cfg.BlockDevice,
		"mount_path", cfg.MountPath,
		"config_path", cfg.ConfigPath)

	report := app.Orchestrator.Run(ctx, app.BootConfig)

	if report.Failed() {
		if cfg.Strict {
			return errBootFailed
		}
		log.Warn("boot finished with failures")
	}
	return nil
}

// validatePaths checks that the block device, mountpoint and configuration
// file exist before anything is touched.
func validatePaths(cfg *config.Config) error {
	checks := []struct {
		flag string
		path string
	}{
		{"--blkdev-path", cfg.BlockDevice},
		{"--mount-path", cfg.MountPath},
		{"--config-path", cfg.ConfigPath},
	}
	for _, c := range checks {
		if c.path == "" {
			return fmt.Errorf("%s is required", c.flag)
		}
		if _, err := os.Stat(c.path); err != nil {
			return fmt.Errorf("%s %s: %w", c.flag, c.path, err)
		}
	}
	return nil
}
