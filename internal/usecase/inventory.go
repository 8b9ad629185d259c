package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/domain/service"
	"StockCast/internal/service/cache"
	"StockCast/pkg/logger"
)

const predictionCachePrefix = "predictions:"

// InventoryUseCase is the programmatic surface the HTTP layer, scheduler and
// event consumers call. It owns the prediction cache; the forecaster only
// holds model artifacts.
type InventoryUseCase struct {
	loader     service.DatasetLoader
	forecaster service.DemandForecaster
	insights   service.InsightProvider

	cache     cache.BytesCache
	cacheTTL  time.Duration
	publisher domrepo.EventPublisher
	sink      domrepo.ForecastSink

	maxHorizon     int
	insightHorizon int
	sideEffectTTL  time.Duration

	trainMu sync.Mutex
	log     *logger.Logger
	metrics domrepo.Metrics
	now     func() time.Time
}

// InventoryOption configures optional collaborators.
type InventoryOption func(*InventoryUseCase)

// WithPredictionCache enables caching of prediction runs.
func WithPredictionCache(c cache.BytesCache, ttl time.Duration) InventoryOption {
	return func(uc *InventoryUseCase) {
		uc.cache = c
		uc.cacheTTL = ttl
	}
}

// WithEventPublisher publishes FORECAST_READY after fresh prediction runs.
func WithEventPublisher(p domrepo.EventPublisher) InventoryOption {
	return func(uc *InventoryUseCase) { uc.publisher = p }
}

// WithForecastSink records fresh prediction runs.
func WithForecastSink(s domrepo.ForecastSink) InventoryOption {
	return func(uc *InventoryUseCase) { uc.sink = s }
}

// WithHorizons sets the largest accepted horizon and the insight horizon.
func WithHorizons(maxHorizon, insightHorizon int) InventoryOption {
	return func(uc *InventoryUseCase) {
		if maxHorizon > 0 {
			uc.maxHorizon = maxHorizon
		}
		if insightHorizon > 0 {
			uc.insightHorizon = insightHorizon
		}
	}
}

func NewInventoryUseCase(
	loader service.DatasetLoader,
	forecaster service.DemandForecaster,
	insights service.InsightProvider,
	log *logger.Logger,
	metrics domrepo.Metrics,
	opts ...InventoryOption,
) *InventoryUseCase {
	uc := &InventoryUseCase{
		loader:         loader,
		forecaster:     forecaster,
		insights:       insights,
		maxHorizon:     30,
		insightHorizon: 7,
		sideEffectTTL:  10 * time.Second,
		log:            log,
		metrics:        metrics,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

var _ service.RetrainTrigger = (*InventoryUseCase)(nil)

// LoadHistoricalData returns the cached dataset, rebuilding it when forced or
// stale.
func (uc *InventoryUseCase) LoadHistoricalData(ctx context.Context, forceReload bool) (*models.HistoricalDataset, error) {
	return uc.loader.Load(ctx, forceReload)
}

// ClearDataCache drops the cached dataset.
func (uc *InventoryUseCase) ClearDataCache() {
	uc.loader.ClearCache()
}

// ClearPredictionCache forces the next prediction call to recompute.
func (uc *InventoryUseCase) ClearPredictionCache(ctx context.Context) error {
	if uc.cache == nil {
		return nil
	}
	if err := uc.cache.DeletePrefix(ctx, predictionCachePrefix); err != nil {
		uc.metrics.RecordError("prediction_cache_clear")
		return fmt.Errorf("clear prediction cache: %w", err)
	}
	return nil
}

// Train loads the dataset and retrains every item. Concurrent calls are
// serialised so two retrains never interleave their load and train steps.
func (uc *InventoryUseCase) Train(ctx context.Context, forceReload bool) (*models.TrainingReport, error) {
	uc.trainMu.Lock()
	defer uc.trainMu.Unlock()

	ds, err := uc.loader.Load(ctx, forceReload)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	report, err := uc.forecaster.Train(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	if err := uc.ClearPredictionCache(ctx); err != nil {
		uc.log.Warn("prediction cache purge after training failed", logger.Error(err))
	}
	return report, nil
}

// TriggerRetrain reloads the data from scratch and retrains.
func (uc *InventoryUseCase) TriggerRetrain(ctx context.Context, reason string) error {
	uc.log.Info("retrain triggered", logger.String("reason", reason))
	uc.ClearDataCache()
	report, err := uc.Train(ctx, true)
	if err != nil {
		return err
	}
	uc.log.Info("retrain finished",
		logger.String("reason", reason),
		logger.Int("trained", len(report.Trained)),
		logger.Int("skipped", len(report.Skipped)),
	)
	return nil
}

// Predictions returns per-item forecasts for the next days, sorted by item.
func (uc *InventoryUseCase) Predictions(ctx context.Context, days int) ([]models.ItemForecast, error) {
	if days < 1 || days > uc.maxHorizon {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", models.ErrInvalidHorizon, uc.maxHorizon)
	}
	ds, err := uc.loader.Load(ctx, false)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s%d:%d", predictionCachePrefix, days, ds.BuiltAt().UnixNano())
	if cached, ok := uc.cachedForecasts(ctx, key); ok {
		return cached, nil
	}

	preds, err := uc.forecaster.Predict(ctx, ds, days)
	if err != nil {
		return nil, err
	}
	out := ToItemForecasts(preds, ds)

	uc.storeForecasts(ctx, key, out)
	uc.announce(ctx, days, out)
	return out, nil
}

func (uc *InventoryUseCase) cachedForecasts(ctx context.Context, key string) ([]models.ItemForecast, bool) {
	if uc.cache == nil {
		return nil, false
	}
	b, ok, err := uc.cache.GetBytes(ctx, key)
	if err != nil {
		uc.log.Warn("prediction cache read failed", logger.String("cache", uc.cache.Name()), logger.Error(err))
		uc.metrics.RecordCacheResult(uc.cache.Name(), "error")
		return nil, false
	}
	if !ok {
		uc.metrics.RecordCacheResult(uc.cache.Name(), "miss")
		return nil, false
	}
	var out []models.ItemForecast
	if err := json.Unmarshal(b, &out); err != nil {
		uc.log.Warn("prediction cache entry corrupt", logger.String("key", key), logger.Error(err))
		uc.metrics.RecordCacheResult(uc.cache.Name(), "error")
		return nil, false
	}
	uc.metrics.RecordCacheResult(uc.cache.Name(), "hit")
	return out, true
}

func (uc *InventoryUseCase) storeForecasts(ctx context.Context, key string, out []models.ItemForecast) {
	if uc.cache == nil {
		return
	}
	b, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := uc.cache.SetBytes(ctx, key, b, uc.cacheTTL); err != nil {
		uc.log.Warn("prediction cache write failed", logger.String("cache", uc.cache.Name()), logger.Error(err))
	}
}

// announce publishes the run and writes it to the history sink. Both are
// best-effort.
func (uc *InventoryUseCase) announce(ctx context.Context, days int, out []models.ItemForecast) {
	if uc.publisher == nil && uc.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.sideEffectTTL)
	defer cancel()

	runAt := uc.now().UTC()
	if uc.publisher != nil {
		items := make([]string, 0, len(out))
		for _, f := range out {
			items = append(items, f.ItemName)
		}
		ev := &models.ForecastReadyEvent{ID: uuid.NewString(), Days: days, Items: items, GeneratedAt: runAt}
		if err := uc.publisher.PublishForecastReady(ctx, ev); err != nil {
			uc.log.Warn("forecast event publish failed", logger.Error(err))
			uc.metrics.RecordError("forecast_publish")
		}
	}
	if uc.sink != nil {
		if err := uc.sink.StoreForecasts(ctx, runAt, out, uc.forecaster.ModelKinds()); err != nil {
			uc.log.Warn("forecast history write failed", logger.Error(err))
			uc.metrics.RecordError("forecast_sink")
		}
	}
}

// Insights forecasts the item over the insight horizon and asks the narrative
// generator to summarise it. The narrative itself never fails.
func (uc *InventoryUseCase) Insights(ctx context.Context, item string) (string, error) {
	ds, err := uc.loader.Load(ctx, false)
	if err != nil {
		return "", err
	}
	preds, err := uc.forecaster.Predict(ctx, ds, uc.insightHorizon)
	if err != nil {
		return "", err
	}
	recs, ok := preds[item]
	if !ok {
		return "", fmt.Errorf("%w: no forecast for %q", models.ErrItemNotFound, item)
	}
	return uc.insights.Insights(ctx, map[string][]models.PredictionRecord{item: recs}, ds), nil
}

// ListItems returns the distinct canonical item names.
func (uc *InventoryUseCase) ListItems(ctx context.Context) ([]string, error) {
	ds, err := uc.loader.Load(ctx, false)
	if err != nil {
		return nil, err
	}
	return ds.Items(), nil
}

// Historical returns the item's last days records in ascending date order.
// An unknown item yields empty arrays.
func (uc *InventoryUseCase) Historical(ctx context.Context, item string, days int) (models.HistoricalSeries, error) {
	ds, err := uc.loader.Load(ctx, false)
	if err != nil {
		return models.HistoricalSeries{}, err
	}
	return ds.Tail(item, days), nil
}

// ModelStatus reports the live models and when the dataset was last built.
func (uc *InventoryUseCase) ModelStatus() models.ModelStatus {
	st := models.ModelStatus{Models: uc.forecaster.Models()}
	if t := uc.forecaster.TrainedAt(); !t.IsZero() {
		st.TrainedAt = &t
	}
	if t := uc.loader.CachedAt(); !t.IsZero() {
		st.DatasetCachedAt = &t
	}
	return st
}

// ToItemForecasts shapes raw predictions for serving, sorted by item, with the
// historical mean rounded to two decimals.
func ToItemForecasts(preds map[string][]models.PredictionRecord, ds *models.HistoricalDataset) []models.ItemForecast {
	items := make([]string, 0, len(preds))
	for item := range preds {
		items = append(items, item)
	}
	sort.Strings(items)

	out := make([]models.ItemForecast, 0, len(items))
	for _, item := range items {
		recs := preds[item]
		views := make([]models.PredictionView, 0, len(recs))
		for _, r := range recs {
			views = append(views, models.PredictionView{Date: r.DateString(), PredictedQuantity: r.PredictedQuantity})
		}
		out = append(out, models.ItemForecast{
			ItemName:      item,
			Predictions:   views,
			HistoricalAvg: math.Round(ds.MeanQuantity(item)*100) / 100,
		})
	}
	return out
}
