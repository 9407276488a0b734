//go:build wireinject
// +build wireinject

package di

import (
	"MarketLog/pkg/config"
	"MarketLog/pkg/server"

	"github.com/google/wire"
)

var baseSet = wire.NewSet(
	ProvideLogger,
	ProvideCatalog,
	ProvideRecorder,
	ProvideMetrics,
)

// InitializeCollector wires up the one-shot collector.
// Wire will generate the implementation of this function.
func InitializeCollector(cfg *config.Config) (*server.CollectorApp, error) {
	wire.Build(
		baseSet,

		// Infrastructure clients
		ProvideHTTPClient,
		ProvideQuoteProvider,
		ProvideRunSinks,

		// Repositories
		ProvideSchemaGuard,
		ProvideRunLogger,
		ProvidePriorStore,

		// Use cases
		ProvideBackoff,
		ProvideEvidenceRecorder,
		ProvideFetcher,
		ProvideRunCollector,

		ProvideCollectorApp,
	)
	return &server.CollectorApp{}, nil
}

// InitializeMonitor wires up the log monitor.
func InitializeMonitor(cfg *config.Config) (*server.MonitorApp, error) {
	wire.Build(
		baseSet,
		ProvideMonitor,
		ProvideMonitorApp,
	)
	return &server.MonitorApp{}, nil
}
