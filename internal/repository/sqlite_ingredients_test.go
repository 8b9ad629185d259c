package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockCast/internal/domain/models"
	applogger "StockCast/pkg/logger"
)

func TestSQLiteIngredientStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteIngredientStore(filepath.Join(t.TempDir(), "ingredients.db"), applogger.NewNop())
	require.NoError(t, err)
	defer store.Close()

	buns := &models.Ingredient{Name: "Buns", Unit: "pcs", Quantity: 40, Threshold: 50}
	patties := &models.Ingredient{Name: "Patties", Unit: "pcs", Quantity: 120, Threshold: 60}
	cheese := &models.Ingredient{Name: "Cheese", Unit: "kg", Quantity: 5, Threshold: 5}
	for _, ing := range []*models.Ingredient{buns, patties, cheese} {
		require.NoError(t, store.Upsert(ctx, ing))
		assert.NotZero(t, ing.ID)
	}

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Buns", all[0].Name)

	low, err := store.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "Buns", low[0].Name)
	assert.Equal(t, "Cheese", low[1].Name)

	id := buns.ID
	buns.Quantity = 200
	require.NoError(t, store.Upsert(ctx, buns))
	assert.Equal(t, id, buns.ID)

	low, err = store.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Cheese", low[0].Name)

	assert.Error(t, store.Upsert(ctx, &models.Ingredient{Name: "  "}))
}
