//go:build wireinject
// +build wireinject

package di

import (
	"SignalTrader/internal/service/broker"
	"SignalTrader/internal/usecase"
	"SignalTrader/pkg/config"
	"SignalTrader/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideCache,

		// Repositories
		ProvideTradeLedger,
		ProvideDedupStore,
		ProvideClientRegistry,
		ProvideSignalNotifier,

		// Brokers and market data
		ProvideRateLimiter,
		ProvideBinanceAdapter,
		ProvideBybitAdapter,
		ProvideBrokerRegistry,
		wire.Bind(new(usecase.AdapterLookup), new(*broker.Registry)),
		ProvideCandleSource,
		ProvideSignalEngine,

		// Use cases
		ProvideTradeReporter,
		ProvideCoordinator,
		ProvideRunner,
		ProvideHeartbeat,

		// HTTP
		ProvideStatusHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
