package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	"StockCast/internal/domain/service"
	"StockCast/internal/services/features"
	"StockCast/internal/services/ml"
	"StockCast/pkg/logger"
)

// Config holds training policy.
type Config struct {
	MinPoints    int
	TestFraction float64
	SplitSeed    int64
	MinScore     float64
	Parallelism  int
	Forest       ml.ForestConfig
}

func DefaultConfig() Config {
	return Config{
		MinPoints:    30,
		TestFraction: 0.3,
		SplitSeed:    42,
		MinScore:     0.3,
		Forest:       ml.DefaultForestConfig(),
	}
}

// Forecaster owns the per-item artifact table. Train holds the write lock for
// its whole run; Predict holds the read lock.
type Forecaster struct {
	engine  *features.Engine
	cfg     Config
	log     *logger.Logger
	metrics repository.Metrics

	mu        sync.RWMutex
	artifacts map[string]*Artifact
	trainedAt time.Time
}

var _ service.DemandForecaster = (*Forecaster)(nil)

func NewForecaster(engine *features.Engine, cfg Config, log *logger.Logger, metrics repository.Metrics) *Forecaster {
	def := DefaultConfig()
	if cfg.MinPoints <= 0 {
		cfg.MinPoints = def.MinPoints
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = def.TestFraction
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = runtime.GOMAXPROCS(0)
	}
	if cfg.Forest.Trees <= 0 {
		cfg.Forest = def.Forest
	}
	return &Forecaster{
		engine:    engine,
		cfg:       cfg,
		log:       log.With(logger.String("component", "forecaster")),
		metrics:   metrics,
		artifacts: make(map[string]*Artifact),
	}
}

type itemOutcome struct {
	item     string
	artifact *Artifact
	err      error
}

// Train fits one model per item and replaces the artifact table wholesale.
// Items that cannot be trained are skipped and listed in the report.
func (f *Forecaster) Train(ctx context.Context, ds *models.HistoricalDataset) (*models.TrainingReport, error) {
	if ds == nil {
		return nil, models.ErrDataUnavailable
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	started := time.Now()
	set := f.engine.Derive(ds)
	items := set.Items()
	outcomes := make([]itemOutcome, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Parallelism)
	for i, item := range items {
		g.Go(func() error {
			art, err := f.trainItem(gctx, set, item)
			outcomes[i] = itemOutcome{item: item, artifact: art, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	report := &models.TrainingReport{Started: started}
	next := make(map[string]*Artifact, len(outcomes))
	for _, o := range outcomes {
		if o.err != nil {
			report.Skipped = append(report.Skipped, models.SkippedItem{ItemName: o.item, Reason: o.err.Error()})
			f.recordSkip(o.item, o.err)
			continue
		}
		next[o.item] = o.artifact
		report.Trained = append(report.Trained, models.TrainedItem{ItemName: o.item, Model: o.artifact.Kind, Score: o.artifact.Score})
		f.metrics.RecordTrainingOutcome("trained")
		f.metrics.RecordModelScore(o.item, string(o.artifact.Kind), o.artifact.Score)
	}
	f.artifacts = next
	f.trainedAt = time.Now()

	report.Duration = time.Since(started)
	report.Seconds = report.Duration.Seconds()
	f.metrics.RecordLatency("train", report.Seconds)
	f.log.Info("training finished",
		logger.Int("items", len(items)),
		logger.Int("trained", len(report.Trained)),
		logger.Int("skipped", len(report.Skipped)),
		logger.Duration("took_ms", report.Duration),
	)
	return report, nil
}

func (f *Forecaster) recordSkip(item string, err error) {
	fields := []logger.Field{logger.String("item", item), logger.Error(err)}
	switch {
	case errors.Is(err, models.ErrInsufficientHistory):
		f.metrics.RecordTrainingOutcome("insufficient_history")
		f.log.Info("skipping item: insufficient data", fields...)
	case errors.Is(err, models.ErrModelQualityBelowThreshold):
		f.metrics.RecordTrainingOutcome("low_score")
		f.log.Info("skipping item: poor model performance", fields...)
	case errors.Is(err, models.ErrFeatureIntegrityViolation):
		f.metrics.RecordTrainingOutcome("integrity_violation")
		f.log.Warn("skipping item: feature integrity violation", fields...)
	default:
		f.metrics.RecordTrainingOutcome("error")
		f.log.Warn("skipping item: training failed", fields...)
	}
}

func (f *Forecaster) trainItem(ctx context.Context, set *features.Set, item string) (art *Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			art, err = nil, fmt.Errorf("panic while training %s: %v", item, r)
		}
	}()

	feats, ok := set.Item(item)
	if !ok {
		return nil, fmt.Errorf("%w: no features for %s", models.ErrFeatureIntegrityViolation, item)
	}
	if len(feats.Y) < f.cfg.MinPoints {
		return nil, fmt.Errorf("%w: %d of %d points", models.ErrInsufficientHistory, len(feats.Y), f.cfg.MinPoints)
	}
	if err := feats.Validate(); err != nil {
		return nil, err
	}

	trainIdx, testIdx := ml.TrainTestSplit(len(feats.Y), f.cfg.TestFraction, f.cfg.SplitSeed)
	scaler, err := ml.FitScaler(ml.Rows(feats.X, trainIdx))
	if err != nil {
		return nil, err
	}
	xTrain := scaler.Transform(ml.Rows(feats.X, trainIdx))
	xTest := scaler.Transform(ml.Rows(feats.X, testIdx))
	yTrain, yTest := ml.Values(feats.Y, trainIdx), ml.Values(feats.Y, testIdx)

	forest, err := ml.FitForest(ctx, xTrain, yTrain, f.cfg.Forest)
	if err != nil {
		return nil, fmt.Errorf("random forest: %w", err)
	}
	rfScore := ml.Score(forest, xTest, yTest)

	lrScore := math.Inf(-1)
	linear, err := ml.FitLinear(xTrain, yTrain)
	if err != nil {
		f.log.Debug("linear fit failed", logger.String("item", item), logger.Error(err))
	} else {
		lrScore = ml.Score(linear, xTest, yTest)
	}

	art = &Artifact{Item: item, Scaler: scaler, Columns: append([]string(nil), feats.Columns...)}
	if rfScore > lrScore {
		art.Kind, art.Forest, art.Score = models.ModelRandomForest, forest, rfScore
	} else {
		art.Kind, art.Linear, art.Score = models.ModelLinear, linear, lrScore
	}
	if !(art.Score > f.cfg.MinScore) {
		return nil, fmt.Errorf("%w: R2 %.3f", models.ErrModelQualityBelowThreshold, art.Score)
	}

	fields := []logger.Field{
		logger.String("item", item),
		logger.String("model", string(art.Kind)),
		logger.Float64("score", art.Score),
		logger.Float64("rf_score", rfScore),
		logger.Float64("lr_score", lrScore),
	}
	if art.Kind == models.ModelRandomForest {
		for _, fi := range forest.TopFeatures(art.Columns, 5) {
			fields = append(fields, logger.Float64("importance_"+fi.Feature, fi.Importance))
		}
	}
	f.log.Info("model selected", fields...)
	return art, nil
}

// Predict forecasts daysAhead days past the dataset's last date for every item
// holding an artifact. Each step feeds its rounded prediction back into the
// item's running history.
func (f *Forecaster) Predict(ctx context.Context, ds *models.HistoricalDataset, daysAhead int) (map[string][]models.PredictionRecord, error) {
	if daysAhead < 1 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidHorizon, daysAhead)
	}
	if ds == nil {
		return nil, models.ErrDataUnavailable
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	start := time.Now()
	out := make(map[string][]models.PredictionRecord, len(f.artifacts))
	if len(f.artifacts) == 0 {
		return out, nil
	}
	set := f.engine.Derive(ds)
	maxDate := ds.MaxDate()

	items := make([]string, 0, len(f.artifacts))
	for item := range f.artifacts {
		items = append(items, item)
	}
	sort.Strings(items)
	for _, item := range items {
		recs, err := f.predictItem(set, ds, f.artifacts[item], maxDate, daysAhead)
		if err != nil {
			f.metrics.RecordError("predict_item")
			f.log.Warn("prediction failed for item", logger.String("item", item), logger.Error(err))
			continue
		}
		if recs != nil {
			out[item] = recs
		}
	}
	f.metrics.RecordLatency("predict", time.Since(start).Seconds())
	return out, nil
}

func (f *Forecaster) predictItem(set *features.Set, ds *models.HistoricalDataset, art *Artifact, maxDate time.Time, days int) (recs []models.PredictionRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			recs, err = nil, fmt.Errorf("panic while predicting %s: %v", art.Item, r)
		}
	}()

	series := ds.ItemSeries(art.Item)
	if len(series) == 0 {
		return nil, nil
	}
	history := make([]float64, len(series), len(series)+days)
	for i, r := range series {
		history[i] = float64(r.Quantity)
	}

	recs = make([]models.PredictionRecord, 0, days)
	for step := 1; step <= days; step++ {
		date := maxDate.AddDate(0, 0, step)
		row, err := set.NextRow(art.Item, history, date, art.Columns)
		if err != nil {
			return nil, err
		}
		raw, err := art.Predict(row)
		if err != nil {
			return nil, err
		}
		qty := ClampQuantity(raw)
		recs = append(recs, models.PredictionRecord{Date: date, PredictedQuantity: qty})
		history = append(history, float64(qty))
	}
	return recs, nil
}

// ClampQuantity rounds half to even and floors at zero.
func ClampQuantity(raw float64) int {
	if math.IsNaN(raw) || raw <= 0 {
		return 0
	}
	if math.IsInf(raw, 1) {
		return math.MaxInt32
	}
	return int(math.RoundToEven(raw))
}

// ModelKinds returns the champion family per trained item.
func (f *Forecaster) ModelKinds() map[string]models.ModelKind {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]models.ModelKind, len(f.artifacts))
	for item, a := range f.artifacts {
		out[item] = a.Kind
	}
	return out
}

// Models lists the live artifacts by item name.
func (f *Forecaster) Models() []models.TrainedItem {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.TrainedItem, 0, len(f.artifacts))
	for item, a := range f.artifacts {
		out = append(out, models.TrainedItem{ItemName: item, Model: a.Kind, Score: a.Score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemName < out[j].ItemName })
	return out
}

// TrainedAt is the completion time of the last training pass.
func (f *Forecaster) TrainedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.trainedAt
}
