package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgch "StockCast/pkg/clickhouse"
	applogger "StockCast/pkg/logger"
)

// ForecastSchema creates the forecast history table.
var ForecastSchema = []string{
	`CREATE TABLE IF NOT EXISTS forecasts (
		run_at             DateTime,
		item               LowCardinality(String),
		date               Date,
		predicted_quantity UInt32,
		model              LowCardinality(String)
	) ENGINE = MergeTree
	ORDER BY (item, date, run_at)`,
}

// CHForecastSink writes forecast runs to ClickHouse.
type CHForecastSink struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.ForecastSink = (*CHForecastSink)(nil)

func NewCHForecastSink(ch *pkgch.Client, l *applogger.Logger) *CHForecastSink {
	return &CHForecastSink{db: ch.DB(), table: "forecasts", l: l}
}

// StoreForecasts inserts one row per (item, date), chunked to keep statements
// bounded.
func (s *CHForecastSink) StoreForecasts(ctx context.Context, runAt time.Time, forecasts []models.ItemForecast, kinds map[string]models.ModelKind) error {
	start := time.Now()
	const chunkSize = 2000

	var (
		values []string
		args   []interface{}
		rows   int
	)
	flush := func() error {
		if len(values) == 0 {
			return nil
		}
		q := fmt.Sprintf("INSERT INTO %s (run_at, item, date, predicted_quantity, model) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse store_forecasts error",
				applogger.Int("rows", len(values)),
				applogger.Error(err),
			)
			return fmt.Errorf("store forecasts: %w", err)
		}
		values, args = values[:0], args[:0]
		return nil
	}

	for _, f := range forecasts {
		kind := string(kinds[f.ItemName])
		for _, p := range f.Predictions {
			date, err := time.Parse(models.DateLayout, p.Date)
			if err != nil {
				return fmt.Errorf("store forecasts: bad date %q: %w", p.Date, err)
			}
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args, runAt.UTC(), f.ItemName, date, uint32(p.PredictedQuantity), kind)
			rows++
			if len(values) >= chunkSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	s.l.Info("clickhouse store_forecasts ok",
		applogger.Int("rows", rows),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHForecastSink) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
