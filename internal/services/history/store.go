package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	"StockCast/internal/domain/service"
	"StockCast/internal/services/report"
	"StockCast/pkg/logger"
)

// DefaultTTL is how long a built dataset is served before a rebuild.
const DefaultTTL = 6 * time.Hour

type cacheEntry struct {
	dataset *models.HistoricalDataset
	builtAt time.Time
}

// Store aggregates every report blob of a source into one cached dataset.
type Store struct {
	source    repository.ReportSource
	extractor *report.Extractor
	canon     *Canonicalizer
	log       *logger.Logger
	metrics   repository.Metrics

	ttl         time.Duration
	concurrency int
	now         func() time.Time

	mu         sync.RWMutex
	entry      *cacheEntry
	generation uint64

	group     singleflight.Group
	rebuildMu sync.Mutex
}

var _ service.DatasetLoader = (*Store)(nil)

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithFetchConcurrency bounds parallel blob downloads during a rebuild.
func WithFetchConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(source repository.ReportSource, extractor *report.Extractor, canon *Canonicalizer, log *logger.Logger, metrics repository.Metrics, opts ...Option) *Store {
	s := &Store{
		source:      source,
		extractor:   extractor,
		canon:       canon,
		log:         log.With(logger.String("component", "history_store")),
		metrics:     metrics,
		ttl:         DefaultTTL,
		concurrency: 8,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the cached dataset while it is younger than the TTL, and
// rebuilds it otherwise or when forceReload is set. Concurrent callers share a
// single rebuild.
func (s *Store) Load(ctx context.Context, forceReload bool) (*models.HistoricalDataset, error) {
	s.mu.RLock()
	entry, gen := s.entry, s.generation
	s.mu.RUnlock()

	if !forceReload && s.fresh(entry) {
		s.metrics.RecordCacheResult("dataset", "hit")
		return entry.dataset, nil
	}
	s.metrics.RecordCacheResult("dataset", "miss")

	key := fmt.Sprintf("%d:%t", gen, forceReload)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		s.rebuildMu.Lock()
		defer s.rebuildMu.Unlock()

		if !forceReload {
			s.mu.RLock()
			cur := s.entry
			s.mu.RUnlock()
			if s.fresh(cur) {
				return cur.dataset, nil
			}
		}
		return s.rebuild(context.WithoutCancel(ctx), gen)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.HistoricalDataset), nil
}

// ClearCache drops the cached dataset; the next Load rebuilds.
func (s *Store) ClearCache() {
	s.mu.Lock()
	s.entry = nil
	s.generation++
	s.mu.Unlock()
	s.log.Info("historical data cache cleared")
}

// CachedAt returns when the current dataset was built, zero when none is cached.
func (s *Store) CachedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil {
		return time.Time{}
	}
	return s.entry.builtAt
}

func (s *Store) fresh(e *cacheEntry) bool {
	return e != nil && s.now().Sub(e.builtAt) < s.ttl
}

func (s *Store) rebuild(ctx context.Context, gen uint64) (*models.HistoricalDataset, error) {
	start := time.Now()
	defer func() { s.metrics.RecordLatency("dataset_rebuild", time.Since(start).Seconds()) }()

	blobs, err := s.source.List(ctx)
	if err != nil {
		s.metrics.RecordError("report_list")
		return nil, fmt.Errorf("%w: list %s: %w", models.ErrDataUnavailable, s.source.Name(), err)
	}

	perBlob := make([][]models.SalesRecord, len(blobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, blob := range blobs {
		g.Go(func() error {
			perBlob[i] = s.extractBlob(gctx, blob)
			return nil
		})
	}
	_ = g.Wait()

	var raw []models.SalesRecord
	usable := 0
	for _, recs := range perBlob {
		if len(recs) == 0 {
			continue
		}
		usable++
		raw = append(raw, recs...)
	}
	if usable == 0 {
		return nil, fmt.Errorf("%w: no usable report among %d from %s", models.ErrDataUnavailable, len(blobs), s.source.Name())
	}

	builtAt := s.now()
	ds := models.NewHistoricalDataset(s.canon.Apply(raw), builtAt)

	s.mu.Lock()
	if s.generation == gen {
		s.entry = &cacheEntry{dataset: ds, builtAt: builtAt}
	}
	s.mu.Unlock()

	s.metrics.RecordDatasetSize(ds.Len(), len(ds.Items()))
	s.log.Info("historical dataset rebuilt",
		logger.Int("reports", len(blobs)),
		logger.Int("usable_reports", usable),
		logger.Int("records", ds.Len()),
		logger.Int("items", len(ds.Items())),
		logger.Duration("took_ms", time.Since(start)),
	)
	return ds, nil
}

func (s *Store) extractBlob(ctx context.Context, blob models.ReportBlob) []models.SalesRecord {
	payload, err := s.source.Fetch(ctx, blob)
	if err != nil {
		s.metrics.RecordError("report_fetch")
		s.log.Warn("report fetch failed", logger.String("report", blob.Name), logger.Error(err))
		return nil
	}
	res, err := s.extractor.Extract(payload, blob.Date, blob.Format)
	if err != nil {
		s.metrics.RecordError("report_decode")
		s.log.Warn("report decode failed", logger.String("report", blob.Name), logger.Error(err))
		return nil
	}
	if res.Empty() {
		s.log.Warn("no usable data for date",
			logger.String("report", blob.Name),
			logger.String("date", blob.Date.Format(models.DateLayout)),
			logger.Bool("section_found", res.SectionFound),
			logger.Int("skipped_rows", res.Skipped),
		)
		return nil
	}
	if res.Skipped > 0 {
		s.log.Debug("report rows skipped", logger.String("report", blob.Name), logger.Int("skipped_rows", res.Skipped))
	}
	return res.Records
}
