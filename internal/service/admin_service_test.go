package service

import (
	"context"
	"errors"
	"testing"

	"evo-store/internal/events"
	"evo-store/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type adminMocks struct {
	orders    *MockOrderRepository
	payments  *MockPaymentRepository
	users     *MockUserRepository
	analytics *MockAnalyticsRepository
	notifier  *MockNotifier
	publisher *MockPublisher
	renderer  *MockInvoiceRenderer
}

func newAdminServiceWithMocks() (AdminService, *adminMocks) {
	m := &adminMocks{
		orders:    new(MockOrderRepository),
		payments:  new(MockPaymentRepository),
		users:     new(MockUserRepository),
		analytics: new(MockAnalyticsRepository),
		notifier:  new(MockNotifier),
		publisher: new(MockPublisher),
		renderer:  new(MockInvoiceRenderer),
	}
	svc := NewAdminService(m.orders, m.payments, m.users, m.analytics, m.notifier, m.publisher, m.renderer, zerolog.Nop())
	return svc, m
}

func orderInStatus(status model.OrderStatus) *model.Order {
	return &model.Order{
		ID:          uuid.New(),
		OrderNumber: "EVO-ADMN2345",
		Status:      status,
		Total:       decimal.RequireFromString("50.00"),
	}
}

// expectOrderLoads makes GetByID return each given state in turn.
func (m *adminMocks) expectOrderLoads(order *model.Order, states ...model.OrderStatus) {
	for _, st := range states {
		o := *order
		o.Status = st
		m.orders.On("GetByID", mock.Anything, order.ID).Return(&o, []model.OrderItem{}, nil).Once()
	}
	m.payments.On("ListByOrder", mock.Anything, order.ID).Return([]model.Payment{}, nil)
}

func TestAdminService_Analytics(t *testing.T) {
	ctx := context.Background()
	svc, m := newAdminServiceWithMocks()

	m.analytics.On("CountOrdersByStatus", mock.Anything).Return(map[model.OrderStatus]int{
		model.OrderStatusPending: 2,
		model.OrderStatusPaid:    3,
		model.OrderStatusFailed:  1,
	}, nil)
	m.analytics.On("SumRevenue", mock.Anything, revenueStatuses).Return(decimal.RequireFromString("360.00"), nil)
	m.analytics.On("CountUsers", mock.Anything).Return(4, nil)
	m.analytics.On("CountProducts", mock.Anything).Return(12, nil)
	m.analytics.On("CountLowStock", mock.Anything).Return(2, nil)

	result, err := svc.Analytics(ctx)

	require.NoError(t, err)
	assert.Equal(t, 6, result.TotalOrders)
	assert.Equal(t, 3, result.OrdersByStatus[model.OrderStatusPaid])
	assert.True(t, result.Revenue.Equal(decimal.RequireFromString("360")))
	assert.Equal(t, 4, result.TotalUsers)
	assert.Equal(t, 12, result.TotalProducts)
	assert.Equal(t, 2, result.LowStockProducts)
}

func TestAdminService_Analytics_Error(t *testing.T) {
	svc, m := newAdminServiceWithMocks()

	m.analytics.On("CountOrdersByStatus", mock.Anything).Return(nil, errors.New("db down"))
	m.analytics.On("SumRevenue", mock.Anything, mock.Anything).Return(decimal.Zero, nil).Maybe()
	m.analytics.On("CountUsers", mock.Anything).Return(0, nil).Maybe()
	m.analytics.On("CountProducts", mock.Anything).Return(0, nil).Maybe()
	m.analytics.On("CountLowStock", mock.Anything).Return(0, nil).Maybe()

	_, err := svc.Analytics(context.Background())

	assert.ErrorContains(t, err, "db down")
}

func TestAdminService_GetOrder_NotFound(t *testing.T) {
	svc, m := newAdminServiceWithMocks()
	id := uuid.New()
	m.orders.On("GetByID", mock.Anything, id).Return(nil, nil, nil)

	_, err := svc.GetOrder(context.Background(), id)

	assert.Same(t, model.ErrOrderNotFound, err)
}

func TestAdminService_UpdateShipment_Ships(t *testing.T) {
	ctx := context.Background()
	svc, m := newAdminServiceWithMocks()
	order := orderInStatus(model.OrderStatusPaid)

	m.expectOrderLoads(order, model.OrderStatusPaid, model.OrderStatusShipped)
	m.orders.On("MarkShipped", ctx, order.ID, []model.OrderStatus{model.OrderStatusPaid, model.OrderStatusProcessing}, "JT123", "J&T").Return(true, nil)
	m.notifier.On("ShippingNotice", order.OrderNumber).Return().Once()
	m.publisher.On("Publish", events.TypeOrderStatusChanged, model.OrderStatusShipped).Return(nil)

	result, err := svc.UpdateShipment(ctx, order.ID, &model.ShipmentRequest{TrackingNumber: " JT123 ", Courier: "J&T"})

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, result.Status)
	m.notifier.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
	m.orders.AssertNotCalled(t, "UpdateTracking", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminService_UpdateShipment_CorrectsTrackingWithoutEmail(t *testing.T) {
	ctx := context.Background()
	svc, m := newAdminServiceWithMocks()
	order := orderInStatus(model.OrderStatusShipped)

	m.expectOrderLoads(order, model.OrderStatusShipped, model.OrderStatusShipped)
	m.orders.On("MarkShipped", ctx, order.ID, mock.Anything, "NEW1", "").Return(false, nil)
	m.orders.On("UpdateTracking", ctx, order.ID, "NEW1", "").Return(true, nil)

	_, err := svc.UpdateShipment(ctx, order.ID, &model.ShipmentRequest{TrackingNumber: "NEW1"})

	require.NoError(t, err)
	m.notifier.AssertNotCalled(t, "ShippingNotice", mock.Anything)
	m.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestAdminService_UpdateShipment_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("pending order", func(t *testing.T) {
		svc, m := newAdminServiceWithMocks()
		order := orderInStatus(model.OrderStatusPending)
		m.expectOrderLoads(order, model.OrderStatusPending)
		m.orders.On("MarkShipped", ctx, order.ID, mock.Anything, "T1", "").Return(false, nil)
		m.orders.On("UpdateTracking", ctx, order.ID, "T1", "").Return(false, nil)

		_, err := svc.UpdateShipment(ctx, order.ID, &model.ShipmentRequest{TrackingNumber: "T1"})

		assert.Same(t, model.ErrInvalidTransition, err)
	})

	t.Run("missing tracking number", func(t *testing.T) {
		svc, m := newAdminServiceWithMocks()

		_, err := svc.UpdateShipment(ctx, uuid.New(), &model.ShipmentRequest{TrackingNumber: "  "})

		var domainErr *model.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, model.ErrCodeMissingField, domainErr.Code)
		m.orders.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestAdminService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("paid to processing", func(t *testing.T) {
		svc, m := newAdminServiceWithMocks()
		order := orderInStatus(model.OrderStatusPaid)
		mockTx := new(MockTx)
		m.expectOrderLoads(order, model.OrderStatusPaid, model.OrderStatusProcessing)
		m.orders.On("BeginTx", ctx).Return(mockTx, nil)
		m.orders.On("TransitionStatus", ctx, mockTx, order.ID, []model.OrderStatus{model.OrderStatusPaid}, model.OrderStatusProcessing).Return(true, nil)
		mockTx.On("Commit", ctx).Return(nil)
		m.publisher.On("Publish", events.TypeOrderStatusChanged, model.OrderStatusProcessing).Return(nil)

		result, err := svc.UpdateStatus(ctx, order.ID, &model.StatusUpdateRequest{Status: "processing"})

		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusProcessing, result.Status)
		m.publisher.AssertExpectations(t)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		svc, m := newAdminServiceWithMocks()
		order := orderInStatus(model.OrderStatusDelivered)
		m.expectOrderLoads(order, model.OrderStatusDelivered)

		result, err := svc.UpdateStatus(ctx, order.ID, &model.StatusUpdateRequest{Status: "delivered"})

		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusDelivered, result.Status)
		m.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
	})

	rejected := []struct {
		name     string
		current  model.OrderStatus
		target   string
		expected error
	}{
		{name: "unknown status", current: model.OrderStatusPaid, target: "lost", expected: model.ErrInvalidStatus},
		{name: "manual paid", current: model.OrderStatusPending, target: "paid", expected: model.ErrInvalidTransition},
		{name: "backwards", current: model.OrderStatusShipped, target: "processing", expected: model.ErrInvalidTransition},
		{name: "skip shipping", current: model.OrderStatusPaid, target: "delivered", expected: model.ErrInvalidTransition},
		{name: "out of terminal failed", current: model.OrderStatusFailed, target: "processing", expected: model.ErrInvalidTransition},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newAdminServiceWithMocks()
			order := orderInStatus(tt.current)
			m.orders.On("GetByID", mock.Anything, order.ID).Return(order, []model.OrderItem{}, nil).Maybe()
			m.payments.On("ListByOrder", mock.Anything, order.ID).Return([]model.Payment{}, nil).Maybe()

			_, err := svc.UpdateStatus(ctx, order.ID, &model.StatusUpdateRequest{Status: tt.target})

			assert.Same(t, tt.expected, err)
			m.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
		})
	}
}

func TestAdminService_Invoice(t *testing.T) {
	ctx := context.Background()
	svc, m := newAdminServiceWithMocks()
	order := orderInStatus(model.OrderStatusPaid)
	m.expectOrderLoads(order, model.OrderStatusPaid)
	m.renderer.On("Render", order.OrderNumber).Return([]byte("%PDF-1.3"), nil)

	got, pdf, err := svc.Invoice(ctx, order.ID)

	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)
	assert.Equal(t, []byte("%PDF-1.3"), pdf)
}

func TestAdminService_Debug(t *testing.T) {
	svc, m := newAdminServiceWithMocks()
	m.analytics.On("PoolStats").Return(model.DebugInfo{Database: "evo", TotalConns: 3})
	m.analytics.On("CountRows", mock.Anything).Return(map[string]int{"orders": 7}, nil)

	info, err := svc.Debug(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "evo", info.Database)
	assert.Equal(t, 7, info.TableCounts["orders"])
}

func TestAdminService_PromoteUser(t *testing.T) {
	ctx := context.Background()
	svc, m := newAdminServiceWithMocks()
	m.users.On("SetRole", ctx, "boss@example.com", model.RoleAdmin).Return(true, nil)
	m.users.On("SetRole", ctx, "ghost@example.com", model.RoleAdmin).Return(false, nil)

	assert.NoError(t, svc.PromoteUser(ctx, "Boss@Example.com"))
	assert.Same(t, model.ErrUserNotFound, svc.PromoteUser(ctx, "ghost@example.com"))
	assert.Same(t, model.ErrInvalidEmail, svc.PromoteUser(ctx, "not an email"))
}
