package service

import (
	"context"
	"time"

	"StockCast/internal/domain/models"
)

// DatasetLoader provides the cached historical dataset.
type DatasetLoader interface {
	Load(ctx context.Context, forceReload bool) (*models.HistoricalDataset, error)
	ClearCache()
	CachedAt() time.Time
}

// DemandForecaster trains per-item models and produces multi-day forecasts.
type DemandForecaster interface {
	Train(ctx context.Context, ds *models.HistoricalDataset) (*models.TrainingReport, error)
	Predict(ctx context.Context, ds *models.HistoricalDataset, daysAhead int) (map[string][]models.PredictionRecord, error)
	ModelKinds() map[string]models.ModelKind
	Models() []models.TrainedItem
	TrainedAt() time.Time
}

// NarrativeGenerator turns a prompt into free text.
type NarrativeGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// InsightProvider summarises forecasts into a narrative; it never fails.
type InsightProvider interface {
	Insights(ctx context.Context, predictions map[string][]models.PredictionRecord, ds *models.HistoricalDataset) string
}

// AlertBroadcaster pushes alerts to live subscribers.
type AlertBroadcaster interface {
	Broadcast(alert *models.LowStockAlert)
}

// RetrainTrigger requests a dataset reload and retrain.
type RetrainTrigger interface {
	TriggerRetrain(ctx context.Context, reason string) error
}
