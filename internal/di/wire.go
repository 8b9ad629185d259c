//go:build wireinject
// +build wireinject

package di

import (
	"StockCast/pkg/config"
	"StockCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Repositories
		ProvideReportSource,
		ProvideIngredientStore,
		ProvideEventPublisher,
		ProvideForecastSink,
		ProvidePredictionCache,

		// Forecasting services
		ProvideHistoryStore,
		ProvideForecaster,
		ProvideNarrativeGenerator,
		ProvideInsightService,

		// Use cases
		ProvideInventoryUseCase,
		ProvideAlertHub,
		ProvideLowStockMonitor,
		ProvideJobQueue,
		ProvideRetrainDispatcher,
		ProvideReportHandler,

		// Background runners
		ProvideKafkaConsumer,
		ProvideScheduler,

		// HTTP
		ProvideRateLimiter,
		ProvideInventoryHandler,
		ProvideAlertsHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
