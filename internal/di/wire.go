//go:build wireinject
// +build wireinject

package di

import (
	"StockLens/internal/domain/repository"
	"StockLens/pkg/config"
	"StockLens/pkg/metrics"
	"StockLens/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application. The
// cleanup releases the connections opened while wiring.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),

		// Market data
		ProvideHTTPClient,
		ProvideMarketDataProvider,
		ProvideGateway,

		// Sinks
		ProvideSeriesPublisher,
		ProvideSeriesStorage,
		ProvideSeriesRecorder,

		// Use cases and presentation
		ProvideStockUseCase,
		ProvideCache,
		ProvideRateLimiter,
		ProvideStockHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil, nil
}
