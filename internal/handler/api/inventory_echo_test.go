package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockCast/internal/domain/models"
	"StockCast/internal/service/cache"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/usecase"
	xlogger "StockCast/pkg/logger"
	"StockCast/pkg/metrics"
)

type stubLoader struct {
	ds  *models.HistoricalDataset
	err error
}

func (s *stubLoader) Load(context.Context, bool) (*models.HistoricalDataset, error) { return s.ds, s.err }
func (s *stubLoader) ClearCache()                                                   {}

func (s *stubLoader) CachedAt() time.Time {
	if s.ds == nil {
		return time.Time{}
	}
	return s.ds.BuiltAt()
}

type stubForecaster struct{}

func (stubForecaster) Train(context.Context, *models.HistoricalDataset) (*models.TrainingReport, error) {
	return &models.TrainingReport{Trained: []models.TrainedItem{{ItemName: "Classic", Model: models.ModelRandomForest, Score: 0.8}}}, nil
}

func (stubForecaster) Predict(_ context.Context, ds *models.HistoricalDataset, days int) (map[string][]models.PredictionRecord, error) {
	recs := make([]models.PredictionRecord, 0, days)
	for i := 1; i <= days; i++ {
		recs = append(recs, models.PredictionRecord{Date: ds.MaxDate().AddDate(0, 0, i), PredictedQuantity: 10 + i})
	}
	return map[string][]models.PredictionRecord{"Classic": recs}, nil
}

func (stubForecaster) ModelKinds() map[string]models.ModelKind {
	return map[string]models.ModelKind{"Classic": models.ModelRandomForest}
}

func (stubForecaster) Models() []models.TrainedItem {
	return []models.TrainedItem{{ItemName: "Classic", Model: models.ModelRandomForest, Score: 0.8}}
}

func (stubForecaster) TrainedAt() time.Time { return time.Date(2024, 3, 19, 6, 0, 0, 0, time.UTC) }

type stubInsights struct{}

func (stubInsights) Insights(context.Context, map[string][]models.PredictionRecord, *models.HistoricalDataset) string {
	return "Stock up on buns."
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, loader *stubLoader, limiter *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	uc := usecase.NewInventoryUseCase(loader, stubForecaster{}, stubInsights{}, xlogger.NewNop(), metrics.Noop{},
		usecase.WithPredictionCache(cache.NewTTLCache(), time.Minute),
		usecase.WithHorizons(30, 7),
	)
	e := echo.New()
	NewInventoryEchoHandler(xlogger.NewNop(), uc, limiter).RegisterRoutes(e)
	return e
}

func testDataset() *models.HistoricalDataset {
	d := func(s string) time.Time { t, _ := time.Parse(models.DateLayout, s); return t }
	return models.NewHistoricalDataset([]models.SalesRecord{
		{Date: d("2024-03-17"), ItemName: "Classic", Quantity: 10, Sales: decimal.NewFromInt(100)},
		{Date: d("2024-03-18"), ItemName: "Classic", Quantity: 13, Sales: decimal.NewFromInt(130)},
		{Date: d("2024-03-18"), ItemName: "Jazz", Quantity: 4, Sales: decimal.NewFromInt(44)},
	}, time.Now())
}

func doRequest(t *testing.T, e *echo.Echo, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestPredictionsEndpoint(t *testing.T) {
	e := newTestServer(t, &stubLoader{ds: testDataset()}, nil)

	rec, env := doRequest(t, e, http.MethodGet, "/api/inventory/predictions/3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, env.Status)

	var got []models.ItemForecast
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Classic", got[0].ItemName)
	assert.Equal(t, 11.5, got[0].HistoricalAvg)
	require.Len(t, got[0].Predictions, 3)
	assert.Equal(t, "2024-03-19", got[0].Predictions[0].Date)
	assert.Equal(t, 11, got[0].Predictions[0].PredictedQuantity)
}

func TestPredictionsEndpointValidation(t *testing.T) {
	e := newTestServer(t, &stubLoader{ds: testDataset()}, nil)

	rec, _ := doRequest(t, e, http.MethodGet, "/api/inventory/predictions/0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, e, http.MethodGet, "/api/inventory/predictions/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, e, http.MethodGet, "/api/inventory/predictions/31")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDataUnavailableMapsTo500(t *testing.T) {
	e := newTestServer(t, &stubLoader{err: models.ErrDataUnavailable}, nil)

	rec, env := doRequest(t, e, http.MethodGet, "/api/inventory/items")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusInternalServerError, env.Status)
}

func TestHistoricalEndpoint(t *testing.T) {
	e := newTestServer(t, &stubLoader{ds: testDataset()}, nil)

	rec, env := doRequest(t, e, http.MethodGet, "/api/inventory/historical/Classic?days=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var series models.HistoricalSeries
	require.NoError(t, json.Unmarshal(env.Data, &series))
	assert.Equal(t, []string{"2024-03-18"}, series.Dates)
	assert.Equal(t, []int{13}, series.Quantities)

	rec, env = doRequest(t, e, http.MethodGet, "/api/inventory/historical/Classic")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &series))
	assert.Len(t, series.Dates, 2)

	rec, env = doRequest(t, e, http.MethodGet, "/api/inventory/historical/Rock")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"item_name":"Rock","dates":[],"quantities":[],"sales":[]}`, string(env.Data))
}

func TestStatusEndpoint(t *testing.T) {
	ds := testDataset()
	e := newTestServer(t, &stubLoader{ds: ds}, nil)

	rec, env := doRequest(t, e, http.MethodGet, "/api/inventory/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var st models.ModelStatus
	require.NoError(t, json.Unmarshal(env.Data, &st))
	require.NotNil(t, st.TrainedAt)
	assert.True(t, st.TrainedAt.Equal(time.Date(2024, 3, 19, 6, 0, 0, 0, time.UTC)))
	require.NotNil(t, st.DatasetCachedAt)
	assert.True(t, st.DatasetCachedAt.Equal(ds.BuiltAt()))
	require.Len(t, st.Models, 1)
	assert.Equal(t, models.ModelRandomForest, st.Models[0].Model)
}

func TestItemsTrainAndCacheClear(t *testing.T) {
	e := newTestServer(t, &stubLoader{ds: testDataset()}, nil)

	rec, env := doRequest(t, e, http.MethodGet, "/api/inventory/items")
	require.Equal(t, http.StatusOK, rec.Code)
	var items models.ItemsResponse
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Equal(t, []string{"Classic", "Jazz"}, items.Items)

	rec, env = doRequest(t, e, http.MethodPost, "/api/inventory/train")
	require.Equal(t, http.StatusOK, rec.Code)
	var report models.TrainingReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	require.Len(t, report.Trained, 1)
	assert.Equal(t, models.ModelRandomForest, report.Trained[0].Model)

	rec, _ = doRequest(t, e, http.MethodPost, "/api/inventory/cache/clear")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInsightsEndpoint(t *testing.T) {
	e := newTestServer(t, &stubLoader{ds: testDataset()}, ratelimit.New(1, 0))

	rec, env := doRequest(t, e, http.MethodGet, "/api/inventory/insights/Classic")
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.InsightsResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "Stock up on buns.", res.Insights)

	rec, _ = doRequest(t, e, http.MethodGet, "/api/inventory/insights/Classic")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestInsightsUnknownItem(t *testing.T) {
	e := newTestServer(t, &stubLoader{ds: testDataset()}, nil)

	rec, _ := doRequest(t, e, http.MethodGet, "/api/inventory/insights/Jazz")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
