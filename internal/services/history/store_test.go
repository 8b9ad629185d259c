package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/report"
	"StockCast/pkg/logger"
	"StockCast/pkg/metrics"
)

type memorySource struct {
	blobs   map[string]string
	lists   atomic.Int32
	fetches atomic.Int32
	delay   time.Duration
	listErr error
}

func (m *memorySource) Name() string { return "memory" }

func (m *memorySource) List(ctx context.Context) ([]models.ReportBlob, error) {
	m.lists.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.ReportBlob
	for name := range m.blobs {
		if b, ok := models.ParseReportBlob(name); ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memorySource) Fetch(ctx context.Context, blob models.ReportBlob) ([]byte, error) {
	m.fetches.Add(1)
	body, ok := m.blobs[blob.Name]
	if !ok {
		return nil, errors.New("missing blob")
	}
	return []byte(body), nil
}

func menuReport(rows ...string) string {
	out := "SALES BY MENU ITEM\n"
	for _, r := range rows {
		out += r + "\n"
	}
	return out
}

func newTestStore(src *memorySource, opts ...Option) *Store {
	return NewStore(src, report.NewExtractor(), NewCanonicalizer(nil), logger.NewNop(), metrics.Noop{}, opts...)
}

func TestLoadCanonicalizesAndSums(t *testing.T) {
	src := &memorySource{blobs: map[string]string{
		"reports/2024-03-01.csv": menuReport("Jazz Burger,$123.45,7", "Jazz Combo,$20.00,3", "Fries,$5.00,2"),
		"reports/2024-03-02.csv": menuReport("Classic Burger Combo 1,$10.00,4"),
	}}
	ds, err := newTestStore(src).Load(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Classic", "Fries", "Jazz"}, ds.Items())
	jazz := ds.ItemSeries("Jazz")
	require.Len(t, jazz, 1)
	assert.Equal(t, 10, jazz[0].Quantity)
	assert.Equal(t, "143.45", jazz[0].Sales.String())
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), ds.MaxDate())
}

func TestLoadSkipsUnusableReports(t *testing.T) {
	src := &memorySource{blobs: map[string]string{
		"reports/2024-03-01.csv": menuReport("Rock Burger,$9.00,1"),
		"reports/2024-03-02.csv": "PAYMENTS\nCash,$1.00,1\n",
		"reports/2024-03-03.csv": menuReport("Rock Burger,n/a,1"),
		"reports/notes.txt":      "ignored",
	}}
	ds, err := newTestStore(src).Load(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
}

func TestLoadFailsWhenNothingParses(t *testing.T) {
	src := &memorySource{blobs: map[string]string{
		"reports/2024-03-02.csv": "PAYMENTS\nCash,$1.00,1\n",
	}}
	_, err := newTestStore(src).Load(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)

	empty := &memorySource{blobs: map[string]string{}}
	_, err = newTestStore(empty).Load(context.Background(), false)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)

	broken := &memorySource{listErr: errors.New("bucket gone")}
	_, err = newTestStore(broken).Load(context.Background(), false)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestLoadServesCacheWithinTTL(t *testing.T) {
	src := &memorySource{blobs: map[string]string{"reports/2024-03-01.csv": menuReport("Classic Combo,$1.00,1")}}
	now := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	store := newTestStore(src, WithClock(func() time.Time { return now }))

	first, err := store.Load(context.Background(), false)
	require.NoError(t, err)
	second, err := store.Load(context.Background(), false)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, src.lists.Load())
	assert.Equal(t, now, store.CachedAt())

	now = now.Add(DefaultTTL)
	third, err := store.Load(context.Background(), false)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.EqualValues(t, 2, src.lists.Load())
}

func TestForceReloadAndClearCacheRebuild(t *testing.T) {
	src := &memorySource{blobs: map[string]string{"reports/2024-03-01.csv": menuReport("Classic Combo,$1.00,1")}}
	store := newTestStore(src)

	first, err := store.Load(context.Background(), false)
	require.NoError(t, err)

	forced, err := store.Load(context.Background(), true)
	require.NoError(t, err)
	assert.NotSame(t, first, forced)

	store.ClearCache()
	assert.True(t, store.CachedAt().IsZero())
	after, err := store.Load(context.Background(), false)
	require.NoError(t, err)
	assert.NotSame(t, forced, after)
	assert.EqualValues(t, 3, src.lists.Load())
}

func TestConcurrentLoadsShareOneRebuild(t *testing.T) {
	blobs := make(map[string]string)
	for d := 1; d <= 20; d++ {
		blobs[fmt.Sprintf("reports/2024-03-%02d.csv", d)] = menuReport("Country Burger,$3.00,2")
	}
	src := &memorySource{blobs: blobs, delay: 20 * time.Millisecond}
	store := newTestStore(src, WithFetchConcurrency(4))

	var wg sync.WaitGroup
	results := make([]*models.HistoricalDataset, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ds, err := store.Load(context.Background(), false)
			assert.NoError(t, err)
			results[i] = ds
		}()
	}
	wg.Wait()

	for _, ds := range results[1:] {
		assert.Same(t, results[0], ds)
	}
	assert.EqualValues(t, 1, src.lists.Load())
	assert.EqualValues(t, 20, src.fetches.Load())
	assert.Equal(t, 20, results[0].Len())
}
