package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockCast/internal/domain/models"
	"StockCast/internal/service/cache"
	"StockCast/pkg/logger"
	"StockCast/pkg/metrics"
)

type inventoryFixture struct {
	loader     *fakeLoader
	forecaster *fakeForecaster
	insights   *fakeInsights
	publisher  *fakePublisher
	sink       *fakeSink
	uc         *InventoryUseCase
}

func newInventoryFixture(t *testing.T) *inventoryFixture {
	t.Helper()
	f := &inventoryFixture{
		loader:     &fakeLoader{ds: sampleDataset(time.Date(2024, 3, 18, 6, 0, 0, 0, time.UTC))},
		forecaster: &fakeForecaster{preds: samplePredictions()},
		insights:   &fakeInsights{},
		publisher:  &fakePublisher{},
		sink:       &fakeSink{},
	}
	f.uc = NewInventoryUseCase(f.loader, f.forecaster, f.insights, logger.NewNop(), metrics.Noop{},
		WithPredictionCache(cache.NewTTLCache(), time.Hour),
		WithEventPublisher(f.publisher),
		WithForecastSink(f.sink),
		WithHorizons(30, 7),
	)
	return f
}

func TestPredictionsShapesAndCaches(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	out, err := f.uc.Predictions(ctx, 3)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Classic", out[0].ItemName)
	assert.Equal(t, 11.0, out[0].HistoricalAvg)
	require.Len(t, out[0].Predictions, 3)
	assert.Equal(t, "2024-03-19", out[0].Predictions[0].Date)

	again, err := f.uc.Predictions(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, out, again)
	assert.Equal(t, 1, f.forecaster.predicts)

	require.Len(t, f.publisher.forecasts, 1)
	assert.Equal(t, []string{"Classic"}, f.publisher.forecasts[0].Items)
	assert.Equal(t, 1, f.sink.runs)
	assert.Equal(t, 3, f.sink.rows)
	assert.Equal(t, models.ModelLinear, f.sink.kinds["Classic"])

	require.NoError(t, f.uc.ClearPredictionCache(ctx))
	_, err = f.uc.Predictions(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, f.forecaster.predicts)
}

func TestPredictionsCacheKeyFollowsDataset(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	_, err := f.uc.Predictions(ctx, 2)
	require.NoError(t, err)
	f.loader.ds = sampleDataset(time.Date(2024, 3, 18, 12, 0, 0, 0, time.UTC))
	_, err = f.uc.Predictions(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, f.forecaster.predicts)
}

func TestPredictionsRejectsBadHorizon(t *testing.T) {
	f := newInventoryFixture(t)
	for _, days := range []int{0, -1, 31} {
		_, err := f.uc.Predictions(context.Background(), days)
		assert.ErrorIs(t, err, models.ErrInvalidHorizon)
	}
	assert.Equal(t, 0, f.loader.loads)
}

func TestPredictionsSideEffectFailuresAreIgnored(t *testing.T) {
	f := newInventoryFixture(t)
	f.publisher.err = errors.New("broker down")

	out, err := f.uc.Predictions(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestPredictionsPropagatesDataUnavailable(t *testing.T) {
	f := newInventoryFixture(t)
	f.loader.err = models.ErrDataUnavailable

	_, err := f.uc.Predictions(context.Background(), 7)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestTrainPurgesPredictionCache(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	_, err := f.uc.Predictions(ctx, 3)
	require.NoError(t, err)

	report, err := f.uc.Train(ctx, true)
	require.NoError(t, err)
	require.Len(t, report.Trained, 1)
	assert.Equal(t, 1, f.loader.forced)

	_, err = f.uc.Predictions(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, f.forecaster.predicts)
}

func TestTriggerRetrainClearsDataCache(t *testing.T) {
	f := newInventoryFixture(t)
	require.NoError(t, f.uc.TriggerRetrain(context.Background(), "test"))
	assert.Equal(t, 1, f.loader.cleared)
	assert.Equal(t, 1, f.forecaster.trains)
}

func TestInsights(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	text, err := f.uc.Insights(ctx, "Classic")
	require.NoError(t, err)
	assert.Equal(t, "narrative", text)
	assert.Equal(t, 7, f.forecaster.lastDays)
	assert.Contains(t, f.insights.got, "Classic")

	_, err = f.uc.Insights(ctx, "Jazz")
	assert.ErrorIs(t, err, models.ErrItemNotFound)
}

func TestModelStatus(t *testing.T) {
	f := newInventoryFixture(t)

	st := f.uc.ModelStatus()
	assert.Nil(t, st.TrainedAt)
	assert.Nil(t, st.DatasetCachedAt)
	require.Len(t, st.Models, 1)

	trained := time.Date(2024, 3, 19, 6, 0, 0, 0, time.UTC)
	f.forecaster.trainedAt = trained
	f.loader.builtAt = trained.Add(-time.Minute)
	st = f.uc.ModelStatus()
	require.NotNil(t, st.TrainedAt)
	assert.Equal(t, trained, *st.TrainedAt)
	require.NotNil(t, st.DatasetCachedAt)
	assert.Equal(t, trained.Add(-time.Minute), *st.DatasetCachedAt)
	assert.Equal(t, "Classic", st.Models[0].ItemName)
}

func TestListItemsAndHistorical(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	items, err := f.uc.ListItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Classic", "Jazz"}, items)

	series, err := f.uc.Historical(ctx, "Classic", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-17", "2024-03-18"}, series.Dates)
	assert.Equal(t, []int{12, 11}, series.Quantities)
	assert.Equal(t, []float64{120, 110.5}, series.Sales)

	series, err = f.uc.Historical(ctx, "Rock", 5)
	require.NoError(t, err)
	assert.Equal(t, "Rock", series.ItemName)
	assert.Empty(t, series.Dates)
	assert.NotNil(t, series.Quantities)
}
