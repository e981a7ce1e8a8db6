package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusFailed     OrderStatus = "failed"
)

// transitions lists, for each target status, the statuses it may be entered from.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPaid:       {OrderStatusPending},
	OrderStatusFailed:     {OrderStatusPending},
	OrderStatusProcessing: {OrderStatusPaid},
	OrderStatusShipped:    {OrderStatusPaid, OrderStatusProcessing},
	OrderStatusDelivered:  {OrderStatusShipped},
}

// ParseOrderStatus validates a status string.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusFailed:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// AllowedFrom returns the statuses from which an order may move to target.
func AllowedFrom(target OrderStatus) []OrderStatus {
	return transitions[target]
}

// CanTransition reports whether from -> to is a legal forward move.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusFailed
}

// CountsAsRevenue reports whether an order in this status has been paid for.
func (s OrderStatus) CountsAsRevenue() bool {
	switch s {
	case OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// Order represents a customer order.
type Order struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	OrderNumber      string          `json:"orderNumber" db:"order_number"`
	UserID           *uuid.UUID      `json:"-" db:"user_id"`
	Status           OrderStatus     `json:"status" db:"status"`
	Total            decimal.Decimal `json:"total" db:"total"`
	ShippingName     string          `json:"shippingName" db:"shipping_name"`
	ShippingPhone    string          `json:"-" db:"shipping_phone"`
	ShippingAddress  string          `json:"-" db:"shipping_address"`
	ShippingCity     string          `json:"shippingCity" db:"shipping_city"`
	ShippingPostcode string          `json:"-" db:"shipping_postcode"`
	Email            *string         `json:"-" db:"email"`
	TrackingNumber   *string         `json:"trackingNumber" db:"tracking_number"`
	Courier          *string         `json:"courier" db:"courier"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem is a line of an order. Name and price are snapshotted at checkout.
type OrderItem struct {
	ID          uuid.UUID       `json:"-" db:"id"`
	OrderID     uuid.UUID       `json:"-" db:"order_id"`
	ProductID   *string         `json:"productId,omitempty" db:"product_id"`
	ProductName string          `json:"productName" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice" db:"unit_price"`
	LineTotal   decimal.Decimal `json:"lineTotal" db:"line_total"`
}

// LineTotal computes quantity x unit price rounded to cents.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// SumLineTotals returns the order total for a set of items.
func SumLineTotals(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// ShippingDetails is the delivery block of a checkout request.
type ShippingDetails struct {
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	Address  string  `json:"address"`
	City     string  `json:"city"`
	Postcode string  `json:"postcode"`
	Email    *string `json:"email,omitempty"`
}

// CheckoutRequest represents the request payload for POST /api/checkout.
type CheckoutRequest struct {
	Items    []CartItem      `json:"items"`
	Shipping ShippingDetails `json:"shipping"`
	UserID   *uuid.UUID      `json:"-"`
}

// CartItem is a single line of a checkout request. Any client-side price is ignored.
type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CheckoutResponse is returned after a successful checkout.
type CheckoutResponse struct {
	OrderNumber string `json:"orderNumber"`
	PaymentURL  string `json:"paymentUrl"`
}

// RetryPaymentRequest asks for a fresh bill on a pending order.
type RetryPaymentRequest struct {
	OrderNumber string `json:"orderNumber"`
	Phone       string `json:"phone"`
}

// TrackRequest represents the request payload for POST /api/orders/track.
type TrackRequest struct {
	OrderNumber string `json:"orderNumber"`
	Phone       string `json:"phone"`
}

// OrderDetail is the public view of an order returned by tracking lookups.
type OrderDetail struct {
	ID             uuid.UUID       `json:"id"`
	OrderNumber    string          `json:"orderNumber"`
	Status         OrderStatus     `json:"status"`
	Total          decimal.Decimal `json:"total"`
	CreatedAt      time.Time       `json:"createdAt"`
	TrackingNumber *string         `json:"trackingNumber"`
	Courier        *string         `json:"courier"`
	ShippingName   string          `json:"shippingName"`
	ShippingCity   string          `json:"shippingCity"`
	Items          []OrderItem     `json:"items"`
}

// NewOrderDetail builds the public view of an order.
func NewOrderDetail(order *Order, items []OrderItem) *OrderDetail {
	if items == nil {
		items = []OrderItem{}
	}
	return &OrderDetail{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		Status:         order.Status,
		Total:          order.Total,
		CreatedAt:      order.CreatedAt,
		TrackingNumber: order.TrackingNumber,
		Courier:        order.Courier,
		ShippingName:   order.ShippingName,
		ShippingCity:   order.ShippingCity,
		Items:          items,
	}
}

// BotOrdersResponse is the payload of the bot order-status endpoint.
type BotOrdersResponse struct {
	Orders []OrderDetail `json:"orders"`
}

// AdminOrder is the full view of an order for administrators.
type AdminOrder struct {
	Order
	ShippingPhone    string      `json:"shippingPhone"`
	ShippingAddress  string      `json:"shippingAddress"`
	ShippingPostcode string      `json:"shippingPostcode"`
	Email            *string     `json:"email"`
	Items            []OrderItem `json:"items"`
	Payments         []Payment   `json:"payments"`
}

// NewAdminOrder builds the admin view of an order.
func NewAdminOrder(order *Order, items []OrderItem, payments []Payment) *AdminOrder {
	if items == nil {
		items = []OrderItem{}
	}
	if payments == nil {
		payments = []Payment{}
	}
	return &AdminOrder{
		Order:            *order,
		ShippingPhone:    order.ShippingPhone,
		ShippingAddress:  order.ShippingAddress,
		ShippingPostcode: order.ShippingPostcode,
		Email:            order.Email,
		Items:            items,
		Payments:         payments,
	}
}

// OrderListFilter narrows an admin order listing.
type OrderListFilter struct {
	Status *OrderStatus
	Limit  int
	Offset int
}

// ShipmentRequest is the payload for PUT /api/admin/orders/:id/shipment.
type ShipmentRequest struct {
	TrackingNumber string `json:"trackingNumber"`
	Courier        string `json:"courier"`
}

// StatusUpdateRequest is the payload for PATCH /api/admin/orders/:id/status.
type StatusUpdateRequest struct {
	Status string `json:"status"`
}
