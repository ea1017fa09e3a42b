//go:build wireinject

package main

import (
	"context"
	"log/slog"

	"github.com/google/wire"
	"github.com/onkernel/autorun/cmd/autorun/config"
	"github.com/onkernel/autorun/lib/boot"
	"github.com/onkernel/autorun/lib/bootconfig"
	"github.com/onkernel/autorun/lib/providers"
)

// application struct to hold initialized components
type application struct {
	Ctx          context.Context
	Logger       *slog.Logger
	Config       *config.Config
	BootConfig   *bootconfig.BootConfig
	Orchestrator *boot.Orchestrator
}

// initializeApp is the injector function
func initializeApp(cfg *config.Config) (*application, func(), error) {
	panic(wire.Build(
		providers.ProvideLogger,
		providers.ProvideContext,
		providers.ProvidePaths,
		providers.ProvideBootConfig,
		providers.ProvideRunner,
		providers.ProvideNetworkConfigurator,
		providers.ProvideMountController,
		providers.ProvideLauncher,
		providers.ProvideBootMetrics,
		boot.New,
		wire.Struct(new(application), "*"),
	))
}
