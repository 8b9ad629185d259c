package repository

import (
	"context"
	"time"

	"StockCast/internal/domain/models"
)

// ReportSource enumerates and fetches dated raw report blobs.
type ReportSource interface {
	List(ctx context.Context) ([]models.ReportBlob, error)
	Fetch(ctx context.Context, blob models.ReportBlob) ([]byte, error)
	Name() string
}

// IngredientStore exposes the ingredient table to the alert monitor.
type IngredientStore interface {
	List(ctx context.Context) ([]models.Ingredient, error)
	LowStock(ctx context.Context) ([]models.Ingredient, error)
	Upsert(ctx context.Context, ing *models.Ingredient) error
	Close() error
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishLowStock(ctx context.Context, alert *models.LowStockAlert) error
	PublishForecastReady(ctx context.Context, ev *models.ForecastReadyEvent) error
	Close() error
}

// ForecastSink persists forecast runs for later review.
type ForecastSink interface {
	StoreForecasts(ctx context.Context, runAt time.Time, forecasts []models.ItemForecast, kinds map[string]models.ModelKind) error
	Health(ctx context.Context) error
}

type Metrics interface {
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordDatasetSize(records, items int)
	RecordTrainingOutcome(outcome string)
	RecordModelScore(item, kind string, score float64)
	RecordCacheResult(cache, result string)
}
