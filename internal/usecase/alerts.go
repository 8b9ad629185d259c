package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/domain/service"
	"StockCast/pkg/logger"
)

// LowStockMonitor raises LOW_STOCK_ALERT events for ingredients at or below
// their threshold.
type LowStockMonitor struct {
	store       domrepo.IngredientStore
	publisher   domrepo.EventPublisher
	broadcaster service.AlertBroadcaster
	log         *logger.Logger
	metrics     domrepo.Metrics
	now         func() time.Time
}

// NewLowStockMonitor builds a monitor. publisher and broadcaster may be nil.
func NewLowStockMonitor(store domrepo.IngredientStore, publisher domrepo.EventPublisher, broadcaster service.AlertBroadcaster, log *logger.Logger, metrics domrepo.Metrics) *LowStockMonitor {
	return &LowStockMonitor{
		store:       store,
		publisher:   publisher,
		broadcaster: broadcaster,
		log:         log,
		metrics:     metrics,
		now:         time.Now,
	}
}

// LowStock lists the ingredients currently at or below threshold.
func (m *LowStockMonitor) LowStock(ctx context.Context) ([]models.Ingredient, error) {
	items, err := m.store.LowStock(ctx)
	if err != nil {
		m.metrics.RecordError("ingredients_low_stock")
		return nil, fmt.Errorf("low stock: %w", err)
	}
	return items, nil
}

// Check raises one alert covering every low ingredient. It returns nil and
// publishes nothing when stock is healthy.
func (m *LowStockMonitor) Check(ctx context.Context) (*models.LowStockAlert, error) {
	items, err := m.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		m.log.Debug("stock levels healthy")
		return nil, nil
	}

	alert := &models.LowStockAlert{
		ID:       uuid.NewString(),
		Type:     models.LowStockAlertType,
		Items:    items,
		RaisedAt: m.now().UTC(),
	}
	m.log.Warn("low stock detected",
		logger.String("alert_id", alert.ID),
		logger.Int("ingredients", len(items)),
	)

	if m.publisher != nil {
		if err := m.publisher.PublishLowStock(ctx, alert); err != nil {
			m.log.Error("low stock alert publish failed", logger.String("alert_id", alert.ID), logger.Error(err))
			m.metrics.RecordError("alert_publish")
		}
	}
	if m.broadcaster != nil {
		m.broadcaster.Broadcast(alert)
	}
	return alert, nil
}
