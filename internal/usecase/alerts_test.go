package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockCast/internal/domain/models"
	"StockCast/pkg/logger"
	"StockCast/pkg/metrics"
)

func TestLowStockMonitorCheck(t *testing.T) {
	store := &fakeIngredients{items: []models.Ingredient{
		{ID: 1, Name: "Buns", Quantity: 10, Threshold: 20},
		{ID: 2, Name: "Patties", Quantity: 80, Threshold: 20},
		{ID: 3, Name: "Cheese", Quantity: 5, Threshold: 5},
	}}
	pub := &fakePublisher{}
	hub := &fakeBroadcaster{}
	m := NewLowStockMonitor(store, pub, hub, logger.NewNop(), metrics.Noop{})

	alert, err := m.Check(context.Background())
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.LowStockAlertType, alert.Type)
	assert.NotEmpty(t, alert.ID)
	require.Len(t, alert.Items, 2)
	assert.Equal(t, "Buns", alert.Items[0].Name)
	assert.Equal(t, "Cheese", alert.Items[1].Name)

	require.Len(t, pub.alerts, 1)
	assert.Same(t, alert, pub.alerts[0])
	require.Len(t, hub.alerts, 1)
}

func TestLowStockMonitorHealthyPublishesNothing(t *testing.T) {
	store := &fakeIngredients{items: []models.Ingredient{{Name: "Buns", Quantity: 100, Threshold: 20}}}
	pub := &fakePublisher{}
	hub := &fakeBroadcaster{}
	m := NewLowStockMonitor(store, pub, hub, logger.NewNop(), metrics.Noop{})

	alert, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Empty(t, pub.alerts)
	assert.Empty(t, hub.alerts)
}

func TestLowStockMonitorPublishFailureStillBroadcasts(t *testing.T) {
	store := &fakeIngredients{items: []models.Ingredient{{Name: "Buns", Quantity: 1, Threshold: 20}}}
	pub := &fakePublisher{err: errors.New("broker down")}
	hub := &fakeBroadcaster{}
	m := NewLowStockMonitor(store, pub, hub, logger.NewNop(), metrics.Noop{})

	alert, err := m.Check(context.Background())
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Len(t, hub.alerts, 1)
}

func TestLowStockMonitorStoreError(t *testing.T) {
	m := NewLowStockMonitor(&fakeIngredients{err: errors.New("disk")}, nil, nil, logger.NewNop(), metrics.Noop{})
	_, err := m.Check(context.Background())
	assert.Error(t, err)
}
