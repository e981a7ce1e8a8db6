package repository

import (
	"context"
	"testing"
	"time"

	"evo-store/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(orderID uuid.UUID, ref string) *model.Payment {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Payment{
		ID:         uuid.New(),
		OrderID:    orderID,
		Gateway:    "toyyibpay",
		GatewayRef: ref,
		Status:     model.PaymentStatusPending,
		Amount:     decimal.RequireFromString("24.00"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestPaymentRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPaymentRepository(pool, zerolog.Nop())
	ctx := context.Background()
	seedProduct(t, pool, "p1", "12.00", 10, true)
	order := newTestOrder("EVO-PAY00001", "0123456789")
	seedOrder(t, pool, order, "p1", 2)

	require.NoError(t, repo.Create(ctx, newTestPayment(order.ID, "bill-1")))
	require.NoError(t, repo.Create(ctx, newTestPayment(order.ID, "bill-2")))

	err := repo.Create(ctx, newTestPayment(order.ID, "bill-1"))
	assert.Same(t, model.ErrDuplicateReference, err)

	got, err := repo.GetByGatewayRef(ctx, "bill-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, order.ID, got.OrderID)
	assert.Equal(t, model.PaymentStatusPending, got.Status)

	missing, err := repo.GetByGatewayRef(ctx, "bill-404")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := repo.ListByOrder(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPaymentRepository_UpdateStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPaymentRepository(pool, zerolog.Nop())
	ctx := context.Background()
	seedProduct(t, pool, "p1", "12.00", 10, true)
	order := newTestOrder("EVO-PAY00002", "0123456789")
	seedOrder(t, pool, order, "p1", 2)
	require.NoError(t, repo.Create(ctx, newTestPayment(order.ID, "bill-9")))

	update := func(from, to model.PaymentStatus) bool {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		ok, err := repo.UpdateStatus(ctx, tx, "bill-9", from, to)
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))
		return ok
	}

	assert.True(t, update(model.PaymentStatusPending, model.PaymentStatusPaid))
	assert.False(t, update(model.PaymentStatusPending, model.PaymentStatusFailed))

	got, err := repo.GetByGatewayRef(ctx, "bill-9")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, got.Status)
}
