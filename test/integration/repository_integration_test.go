package integration

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"evo-store/internal/model"
	"evo-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestProductRepository_ConcurrentReserve_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	repo := repository.NewProductRepository(testDB.Pool, zerolog.Nop())
	ctx := context.Background()

	CleanupDB(t, testDB.Pool)
	SeedProducts(t, testDB.Pool)

	// P002 starts with 5 units; 12 buyers race for one each.
	var reserved, rejected atomic.Int32
	var g errgroup.Group
	for i := 0; i < 12; i++ {
		g.Go(func() error {
			tx, err := testDB.Pool.Begin(ctx)
			if err != nil {
				return err
			}
			defer tx.Rollback(ctx)

			err = repo.ReserveStock(ctx, tx, "P002", 1)
			switch {
			case errors.Is(err, model.ErrOutOfStock):
				rejected.Add(1)
				return nil
			case err != nil:
				return err
			}
			reserved.Add(1)
			return tx.Commit(ctx)
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(5), reserved.Load())
	assert.Equal(t, int32(7), rejected.Load())

	product, err := repo.GetByID(ctx, "P002")
	require.NoError(t, err)
	assert.Equal(t, 0, product.StockQuantity)
}

func TestOrderRepository_ConcurrentTransition_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	repo := repository.NewOrderRepository(testDB.Pool, zerolog.Nop())
	ctx := context.Background()

	CleanupDB(t, testDB.Pool)
	SeedProducts(t, testDB.Pool)

	now := time.Now().UTC()
	order := &model.Order{
		ID:               uuid.New(),
		OrderNumber:      "EVO-RACE0001",
		Status:           model.OrderStatusPending,
		Total:            decimal.RequireFromString("10.00"),
		ShippingName:     "Aina",
		ShippingPhone:    "0123456789",
		ShippingAddress:  "1 Jalan Test",
		ShippingCity:     "Kuala Lumpur",
		ShippingPostcode: "50000",
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrder(ctx, tx, order))
	require.NoError(t, tx.Commit(ctx))

	// Duplicate success callbacks delivered at once must apply exactly once.
	var applied atomic.Int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			tx, err := repo.BeginTx(ctx)
			if err != nil {
				return err
			}
			defer tx.Rollback(ctx)

			ok, err := repo.TransitionStatus(ctx, tx, order.ID, model.AllowedFrom(model.OrderStatusPaid), model.OrderStatusPaid)
			if err != nil {
				return err
			}
			if ok {
				applied.Add(1)
			}
			return tx.Commit(ctx)
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), applied.Load())

	got, _, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, got.Status)
}
