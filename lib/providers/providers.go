package providers

import (
	"context"
	"log/slog"
	"os"

	"github.com/onkernel/autorun/cmd/autorun/config"
	"github.com/onkernel/autorun/lib/boot"
	"github.com/onkernel/autorun/lib/bootconfig"
	"github.com/onkernel/autorun/lib/exec"
	"github.com/onkernel/autorun/lib/launcher"
	"github.com/onkernel/autorun/lib/logger"
	"github.com/onkernel/autorun/lib/mount"
	"github.com/onkernel/autorun/lib/network"
	"github.com/onkernel/autorun/lib/otel"
	"github.com/onkernel/autorun/lib/paths"
	otelapi "go.opentelemetry.io/otel"
)

// ProvideLogger provides a structured logger. Records go to stdout, to the
// OTel bridge when telemetry is enabled, and to per-application log files
// when APP_LOG_DIR is set.
func ProvideLogger(cfg *config.Config, p *paths.Paths) (*slog.Logger, error) {
	handler := logger.NewFanoutHandler(
		logger.NewHandler(os.Stdout, logger.ParseLevel(cfg.LogLevel), cfg.LogFormat),
		otel.GetGlobalLogHandler(),
	)

	if p.AppLogDir() != "" {
		maxSize, err := cfg.AppLogMaxBytes()
		if err != nil {
			return nil, err
		}
		handler = logger.NewAppLogHandler(handler, p.AppLog, maxSize)
	}

	return slog.New(handler), nil
}

// ProvideContext provides a context with logger attached
func ProvideContext(log *slog.Logger) context.Context {
	return logger.AddToContext(context.Background(), log)
}

// ProvidePaths provides the path helper for the mounted medium
func ProvidePaths(cfg *config.Config) *paths.Paths {
	return paths.New(cfg.MountPath, cfg.AppLogDir)
}

// ProvideBootConfig loads the boot configuration file. Invalid application
// entries are reported here and skipped later by the orchestrator.
func ProvideBootConfig(cfg *config.Config, log *slog.Logger) (*bootconfig.BootConfig, error) {
	bootCfg, err := bootconfig.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := bootCfg.Validate(); err != nil {
		log.Warn("configuration has invalid application entries", "config_path", cfg.ConfigPath, "error", err)
	}
	return bootCfg, nil
}

// ProvideRunner provides the command runner shared by mount and launcher
func ProvideRunner() exec.Runner {
	return exec.NewRunner()
}

// ProvideNetworkConfigurator provides the netlink-backed network configurator
func ProvideNetworkConfigurator(cfg *config.Config) (network.Configurator, error) {
	metrics, err := network.NewMetrics(otelapi.Meter(cfg.OtelServiceName))
	if err != nil {
		return nil, err
	}
	return network.NewConfigurator(metrics), nil
}

// ProvideMountController provides the mount controller for the boot medium
func ProvideMountController(cfg *config.Config, runner exec.Runner) mount.Controller {
	return mount.NewController(mount.Config{
		Device:     cfg.BlockDevice,
		Mountpoint: cfg.MountPath,
		FSType:     cfg.MountFSType,
		MountBin:   cfg.MountBin,
		UmountBin:  cfg.UmountBin,
	}, runner)
}

// ProvideLauncher provides the application launcher
func ProvideLauncher(cfg *config.Config, p *paths.Paths, runner exec.Runner) launcher.Launcher {
	return launcher.New(launcher.Config{
		BlockDevice: cfg.BlockDevice,
		Shell:       cfg.ShellPath,
	}, p, runner)
}

// ProvideBootMetrics provides boot metrics from the global meter and tracer.
// They are no-ops unless telemetry was initialized.
func ProvideBootMetrics(cfg *config.Config) (*boot.Metrics, error) {
	return boot.NewMetrics(otelapi.Meter(cfg.OtelServiceName), otelapi.Tracer(cfg.OtelServiceName))
}
