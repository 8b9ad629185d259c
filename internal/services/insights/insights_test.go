package insights

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockCast/internal/domain/models"
	pkghttp "StockCast/pkg/http"
	"StockCast/pkg/logger"
	"StockCast/pkg/metrics"
)

func sampleInputs() (map[string][]models.PredictionRecord, *models.HistoricalDataset) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ds := models.NewHistoricalDataset([]models.SalesRecord{
		{Date: day, ItemName: "Jazz", Quantity: 10},
		{Date: day.AddDate(0, 0, 1), ItemName: "Jazz", Quantity: 13},
		{Date: day, ItemName: "Classic", Quantity: 4},
	}, day)
	preds := map[string][]models.PredictionRecord{
		"Jazz":    {{Date: day.AddDate(0, 0, 2), PredictedQuantity: 12}, {Date: day.AddDate(0, 0, 3), PredictedQuantity: 11}},
		"Classic": {{Date: day.AddDate(0, 0, 2), PredictedQuantity: 5}},
	}
	return preds, ds
}

func TestSummaryFormat(t *testing.T) {
	preds, ds := sampleInputs()
	want := "Inventory Prediction Analysis:\n\n" +
		"Item: Classic\nPredicted quantities: [5]\nHistorical average: 4.0\n\n" +
		"Item: Jazz\nPredicted quantities: [12, 11]\nHistorical average: 11.5\n\n"
	assert.Equal(t, want, Summary(preds, ds))
}

func TestPromptListsFourSections(t *testing.T) {
	p := Prompt("SUMMARY")
	assert.Contains(t, p, "SUMMARY")
	for _, s := range []string{"1. Key insights", "2. Potential risks", "3. Specific inventory", "4. Factors"} {
		assert.Contains(t, p, s)
	}
}

type stubGenerator struct {
	text   string
	err    error
	prompt string
	block  bool
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

func TestServiceReturnsNarrative(t *testing.T) {
	preds, ds := sampleInputs()
	gen := &stubGenerator{text: "stock up on Jazz"}
	svc := NewService(gen, time.Second, logger.NewNop(), metrics.Noop{})

	assert.Equal(t, "stock up on Jazz", svc.Insights(context.Background(), preds, ds))
	assert.Contains(t, gen.prompt, "Item: Jazz")
}

func TestServiceConvertsFailuresToPlaceholder(t *testing.T) {
	preds, ds := sampleInputs()

	failing := NewService(&stubGenerator{err: errors.New("quota exceeded")}, time.Second, logger.NewNop(), metrics.Noop{})
	out := failing.Insights(context.Background(), preds, ds)
	assert.True(t, strings.HasPrefix(out, "Error getting AI insights: "))
	assert.Contains(t, out, "quota exceeded")

	slow := NewService(&stubGenerator{block: true}, 20*time.Millisecond, logger.NewNop(), metrics.Noop{})
	out = slow.Insights(context.Background(), preds, ds)
	assert.Contains(t, out, context.DeadlineExceeded.Error())

	none := NewService(nil, time.Second, logger.NewNop(), metrics.Noop{})
	assert.Contains(t, none.Insights(context.Background(), preds, ds), "Error getting AI insights")
}

func TestOpenAIGenerator(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"order more buns"}}]}`))
	}))
	defer srv.Close()

	gen, err := NewOpenAIGenerator(pkghttp.NewClient(), srv.URL+"/v1/", "sk-test", "")
	require.NoError(t, err)
	text, err := gen.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "order more buns", text)
	assert.Equal(t, defaultOpenAIModel, got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestOpenAIGeneratorErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	gen, err := NewOpenAIGenerator(pkghttp.NewClient(), srv.URL, "sk-test", "m")
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), "hello")
	assert.ErrorContains(t, err, "401")

	_, err = NewOpenAIGenerator(pkghttp.NewClient(), srv.URL, "", "m")
	assert.Error(t, err)
}
