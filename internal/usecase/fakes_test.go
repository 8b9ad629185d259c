package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"StockCast/internal/domain/models"
)

type fakeLoader struct {
	mu      sync.Mutex
	ds      *models.HistoricalDataset
	err     error
	loads   int
	forced  int
	cleared int
	builtAt time.Time
}

func (f *fakeLoader) Load(_ context.Context, force bool) (*models.HistoricalDataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if force {
		f.forced++
	}
	return f.ds, f.err
}

func (f *fakeLoader) ClearCache() {
	f.mu.Lock()
	f.cleared++
	f.mu.Unlock()
}

func (f *fakeLoader) CachedAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.builtAt
}

type fakeForecaster struct {
	mu       sync.Mutex
	preds    map[string][]models.PredictionRecord
	err      error
	trains   int
	predicts  int
	lastDays  int
	trainedAt time.Time
}

func (f *fakeForecaster) Train(context.Context, *models.HistoricalDataset) (*models.TrainingReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trains++
	return &models.TrainingReport{Trained: []models.TrainedItem{{ItemName: "Classic", Model: models.ModelLinear, Score: 0.9}}}, f.err
}

func (f *fakeForecaster) Predict(_ context.Context, _ *models.HistoricalDataset, days int) (map[string][]models.PredictionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.predicts++
	f.lastDays = days
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string][]models.PredictionRecord, len(f.preds))
	for item, recs := range f.preds {
		if len(recs) > days {
			recs = recs[:days]
		}
		out[item] = recs
	}
	return out, nil
}

func (f *fakeForecaster) ModelKinds() map[string]models.ModelKind {
	return map[string]models.ModelKind{"Classic": models.ModelLinear}
}

func (f *fakeForecaster) Models() []models.TrainedItem {
	return []models.TrainedItem{{ItemName: "Classic", Model: models.ModelLinear, Score: 0.9}}
}

func (f *fakeForecaster) TrainedAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trainedAt
}

type fakeInsights struct {
	got map[string][]models.PredictionRecord
}

func (f *fakeInsights) Insights(_ context.Context, preds map[string][]models.PredictionRecord, _ *models.HistoricalDataset) string {
	f.got = preds
	return "narrative"
}

type fakePublisher struct {
	mu        sync.Mutex
	alerts    []*models.LowStockAlert
	forecasts []*models.ForecastReadyEvent
	err       error
}

func (f *fakePublisher) PublishLowStock(_ context.Context, a *models.LowStockAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return f.err
}

func (f *fakePublisher) PublishForecastReady(_ context.Context, ev *models.ForecastReadyEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forecasts = append(f.forecasts, ev)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

type fakeSink struct {
	runs  int
	kinds map[string]models.ModelKind
	rows  int
}

func (f *fakeSink) StoreForecasts(_ context.Context, _ time.Time, fc []models.ItemForecast, kinds map[string]models.ModelKind) error {
	f.runs++
	f.kinds = kinds
	for _, it := range fc {
		f.rows += len(it.Predictions)
	}
	return nil
}

func (f *fakeSink) Health(context.Context) error { return nil }

type fakeIngredients struct {
	items []models.Ingredient
	err   error
}

func (f *fakeIngredients) List(context.Context) ([]models.Ingredient, error) { return f.items, f.err }

func (f *fakeIngredients) LowStock(context.Context) ([]models.Ingredient, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Ingredient
	for _, it := range f.items {
		if it.IsLow() {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeIngredients) Upsert(context.Context, *models.Ingredient) error { return nil }
func (f *fakeIngredients) Close() error                                    { return nil }

type fakeBroadcaster struct {
	alerts []*models.LowStockAlert
}

func (f *fakeBroadcaster) Broadcast(a *models.LowStockAlert) { f.alerts = append(f.alerts, a) }

type fakeQueue struct {
	types    []string
	payloads []json.RawMessage
	err      error
}

func (f *fakeQueue) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	if f.err != nil {
		return f.err
	}
	b, _ := json.Marshal(payload)
	f.types = append(f.types, msgType)
	f.payloads = append(f.payloads, b)
	return nil
}

type fakeTrigger struct {
	reasons []string
	err     error
}

func (f *fakeTrigger) TriggerRetrain(_ context.Context, reason string) error {
	f.reasons = append(f.reasons, reason)
	return f.err
}

func day(s string) time.Time {
	t, _ := time.Parse(models.DateLayout, s)
	return t
}

func sampleDataset(builtAt time.Time) *models.HistoricalDataset {
	return models.NewHistoricalDataset([]models.SalesRecord{
		{Date: day("2024-03-16"), ItemName: "Classic", Quantity: 10, Sales: decimal.RequireFromString("100.00")},
		{Date: day("2024-03-17"), ItemName: "Classic", Quantity: 12, Sales: decimal.RequireFromString("120.00")},
		{Date: day("2024-03-18"), ItemName: "Classic", Quantity: 11, Sales: decimal.RequireFromString("110.50")},
		{Date: day("2024-03-18"), ItemName: "Jazz", Quantity: 3, Sales: decimal.RequireFromString("30.00")},
	}, builtAt)
}

func samplePredictions() map[string][]models.PredictionRecord {
	return map[string][]models.PredictionRecord{
		"Classic": {
			{Date: day("2024-03-19"), PredictedQuantity: 11},
			{Date: day("2024-03-20"), PredictedQuantity: 10},
			{Date: day("2024-03-21"), PredictedQuantity: 12},
		},
	}
}
