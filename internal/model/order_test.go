package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusFailed, true},
		{OrderStatusPaid, OrderStatusProcessing, true},
		{OrderStatusPaid, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusPaid, OrderStatusPaid, false},
		{OrderStatusPaid, OrderStatusFailed, false},
		{OrderStatusFailed, OrderStatusPaid, false},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusShipped, OrderStatusProcessing, false},
		{OrderStatusDelivered, OrderStatusShipped, false},
		{OrderStatusPaid, OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestAllowedFrom(t *testing.T) {
	assert.Equal(t, []OrderStatus{OrderStatusPending}, AllowedFrom(OrderStatusPaid))
	assert.ElementsMatch(t, []OrderStatus{OrderStatusPaid, OrderStatusProcessing}, AllowedFrom(OrderStatusShipped))
	assert.Empty(t, AllowedFrom(OrderStatusPending))
}

func TestOrderStatus_Predicates(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusFailed.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())

	assert.False(t, OrderStatusPending.CountsAsRevenue())
	assert.False(t, OrderStatusFailed.CountsAsRevenue())
	assert.True(t, OrderStatusPaid.CountsAsRevenue())
	assert.True(t, OrderStatusDelivered.CountsAsRevenue())
}

func TestParseOrderStatus(t *testing.T) {
	st, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, st)

	_, err = ParseOrderStatus("SHIPPED")
	assert.Same(t, ErrInvalidStatus, err)

	_, err = ParseOrderStatus("")
	assert.Same(t, ErrInvalidStatus, err)
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, "36.9", LineTotal(decimal.RequireFromString("12.30"), 3).String())
	assert.Equal(t, "0.3", LineTotal(decimal.RequireFromString("0.10"), 3).String())
	assert.True(t, LineTotal(decimal.RequireFromString("99.99"), 0).IsZero())

	total := SumLineTotals([]OrderItem{
		{LineTotal: decimal.RequireFromString("10.10")},
		{LineTotal: decimal.RequireFromString("0.20")},
	})
	assert.Equal(t, "10.3", total.String())
	assert.True(t, SumLineTotals(nil).IsZero())
}

func TestNewOrderDetail(t *testing.T) {
	email := "aina@example.com"
	order := &Order{
		ID:            uuid.New(),
		OrderNumber:   "EVO-ABCDEFGH",
		Status:        OrderStatusPaid,
		ShippingName:  "Aina",
		ShippingPhone: "0123456789",
		ShippingCity:  "Kuala Lumpur",
		Email:         &email,
	}

	detail := NewOrderDetail(order, nil)
	assert.Equal(t, order.OrderNumber, detail.OrderNumber)
	assert.Equal(t, "Kuala Lumpur", detail.ShippingCity)
	require.NotNil(t, detail.Items)
	assert.Empty(t, detail.Items)

	admin := NewAdminOrder(order, nil, nil)
	assert.Equal(t, "0123456789", admin.ShippingPhone)
	assert.Equal(t, &email, admin.Email)
	assert.NotNil(t, admin.Items)
	assert.NotNil(t, admin.Payments)
}

func TestParseGatewayStatus(t *testing.T) {
	tests := []struct {
		raw       string
		want      GatewayStatus
		order     OrderStatus
		moves     bool
		payment   PaymentStatus
		expectErr bool
	}{
		{raw: "1", want: GatewayStatusSuccess, order: OrderStatusPaid, moves: true, payment: PaymentStatusPaid},
		{raw: "2", want: GatewayStatusPending, payment: PaymentStatusPending},
		{raw: "3", want: GatewayStatusFailed, order: OrderStatusFailed, moves: true, payment: PaymentStatusFailed},
		{raw: "4", expectErr: true},
		{raw: "paid", expectErr: true},
		{raw: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run("status "+tt.raw, func(t *testing.T) {
			got, err := ParseGatewayStatus(tt.raw)
			if tt.expectErr {
				assert.Same(t, ErrInvalidCallback, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			order, moves := got.OrderStatus()
			assert.Equal(t, tt.moves, moves)
			assert.Equal(t, tt.order, order)
			assert.Equal(t, tt.payment, got.PaymentStatus())
		})
	}
}

func TestCheckoutError_Unwrap(t *testing.T) {
	err := fmt.Errorf("checkout: %w", &CheckoutError{OrderNumber: "EVO-X", Err: ErrGatewayUnavailable})

	assert.True(t, errors.Is(err, ErrGatewayUnavailable))

	var checkoutErr *CheckoutError
	require.True(t, errors.As(err, &checkoutErr))
	assert.Equal(t, "EVO-X", checkoutErr.OrderNumber)
	assert.Equal(t, ErrGatewayUnavailable.Message, err.Error()[len("checkout: "):])
}
