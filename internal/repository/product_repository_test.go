package repository

import (
	"context"
	"testing"

	"evo-store/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepository_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()

	seedProduct(t, pool, "a-visible", "10.00", 5, true)
	seedProduct(t, pool, "b-visible", "20.00", 5, true)
	seedProduct(t, pool, "c-hidden", "30.00", 5, false)
	supplies := seedProduct(t, pool, "d-supply", "5.00", 5, true)
	supplies.Category = "supplies"
	require.NoError(t, repo.Upsert(ctx, supplies))

	tests := []struct {
		name     string
		filter   model.ProductFilter
		expected []string
	}{
		{name: "All published", filter: model.ProductFilter{Limit: 10}, expected: []string{"a-visible", "b-visible", "d-supply"}},
		{name: "Category", filter: model.ProductFilter{Limit: 10, Category: "supplies"}, expected: []string{"d-supply"}},
		{name: "Pagination", filter: model.ProductFilter{Limit: 1, Offset: 1}, expected: []string{"b-visible"}},
		{name: "Empty page", filter: model.ProductFilter{Limit: 10, Offset: 10}, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)

			ids := []string{}
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestProductRepository_GetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()
	seedProduct(t, pool, "bpc-157", "120.00", 7, false)

	product, err := repo.GetByID(ctx, "bpc-157")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.False(t, product.IsPublished)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("120")))
	assert.Equal(t, 7, product.StockQuantity)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProductRepository_GetByIDs(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()
	seedProduct(t, pool, "p1", "1.00", 1, true)
	seedProduct(t, pool, "p2", "2.00", 1, false)

	products, err := repo.GetByIDs(ctx, []string{"p1", "p2", "p3"})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	empty, err := repo.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProductRepository_ReserveAndRestoreStock(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()
	seedProduct(t, pool, "stocked", "10.00", 3, true)
	seedProduct(t, pool, "hidden", "10.00", 3, false)

	t.Run("reserve within stock", func(t *testing.T) {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.ReserveStock(ctx, tx, "stocked", 2))
		require.NoError(t, tx.Commit(ctx))

		p, err := repo.GetByID(ctx, "stocked")
		require.NoError(t, err)
		assert.Equal(t, 1, p.StockQuantity)
	})

	t.Run("reserve beyond stock", func(t *testing.T) {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		err = repo.ReserveStock(ctx, tx, "stocked", 2)
		assert.Same(t, model.ErrOutOfStock, err)
	})

	t.Run("unpublished cannot be reserved", func(t *testing.T) {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		err = repo.ReserveStock(ctx, tx, "hidden", 1)
		assert.Same(t, model.ErrOutOfStock, err)
	})

	t.Run("restore skips deleted products", func(t *testing.T) {
		id := "stocked"
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.RestoreStock(ctx, tx, []model.OrderItem{
			{ProductID: &id, Quantity: 2},
			{ProductID: nil, Quantity: 9},
		}))
		require.NoError(t, tx.Commit(ctx))

		p, err := repo.GetByID(ctx, "stocked")
		require.NoError(t, err)
		assert.Equal(t, 3, p.StockQuantity)
	})
}

func TestProductRepository_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()

	p := seedProduct(t, pool, "tb-500", "150.00", 10, true)
	p.Price = decimal.RequireFromString("140.00")
	p.StockQuantity = 4
	p.IsPublished = false
	require.NoError(t, repo.Upsert(ctx, p))

	got, err := repo.GetByID(ctx, "tb-500")
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("140")))
	assert.Equal(t, 4, got.StockQuantity)
	assert.False(t, got.IsPublished)
}
