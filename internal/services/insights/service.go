package insights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	"StockCast/internal/domain/service"
	"StockCast/pkg/logger"
)

// DefaultTimeout bounds one narrative generation call.
const DefaultTimeout = 60 * time.Second

var errNoGenerator = errors.New("no narrative generator configured")

// Service turns forecasts into a narrative. It never returns an error: any
// generator failure becomes a readable placeholder.
type Service struct {
	gen     service.NarrativeGenerator
	timeout time.Duration
	log     *logger.Logger
	metrics repository.Metrics
}

var _ service.InsightProvider = (*Service)(nil)

// NewService accepts a nil generator; Insights then answers with a placeholder.
func NewService(gen service.NarrativeGenerator, timeout time.Duration, log *logger.Logger, metrics repository.Metrics) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{gen: gen, timeout: timeout, log: log.With(logger.String("component", "insights")), metrics: metrics}
}

func (s *Service) Insights(ctx context.Context, predictions map[string][]models.PredictionRecord, ds *models.HistoricalDataset) string {
	if s.gen == nil {
		return Placeholder(errNoGenerator)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.gen.Generate(ctx, Prompt(Summary(predictions, ds)))
	s.metrics.RecordLatency("insights", time.Since(start).Seconds())
	if err != nil {
		err = fmt.Errorf("%w: %w", models.ErrNarrativeGenerationFailed, err)
		s.metrics.RecordError("narrative")
		s.log.Warn("insight generation failed", logger.String("generator", s.gen.Name()), logger.Error(err))
		return Placeholder(err)
	}
	return text
}

// Placeholder is the text surfaced in place of a failed narrative.
func Placeholder(err error) string {
	return fmt.Sprintf("Error getting AI insights: %v", err)
}
