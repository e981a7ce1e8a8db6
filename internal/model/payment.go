package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the state of a single gateway bill.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Payment records one bill requested from the payment gateway.
type Payment struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	OrderID    uuid.UUID       `json:"-" db:"order_id"`
	Gateway    string          `json:"gateway" db:"gateway"`
	GatewayRef string          `json:"gatewayRef" db:"gateway_ref"`
	Status     PaymentStatus   `json:"status" db:"status"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time       `json:"updatedAt" db:"updated_at"`
}

// GatewayStatus is the gateway's numeric status vocabulary.
type GatewayStatus int

const (
	GatewayStatusSuccess GatewayStatus = 1
	GatewayStatusPending GatewayStatus = 2
	GatewayStatusFailed  GatewayStatus = 3
)

// ParseGatewayStatus parses a status_id value.
func ParseGatewayStatus(s string) (GatewayStatus, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrInvalidCallback
	}
	switch st := GatewayStatus(n); st {
	case GatewayStatusSuccess, GatewayStatusPending, GatewayStatusFailed:
		return st, nil
	}
	return 0, ErrInvalidCallback
}

// OrderStatus maps a gateway status to the order status it implies.
// Pending maps to ok=false: the order is left unchanged.
func (g GatewayStatus) OrderStatus() (OrderStatus, bool) {
	switch g {
	case GatewayStatusSuccess:
		return OrderStatusPaid, true
	case GatewayStatusFailed:
		return OrderStatusFailed, true
	}
	return "", false
}

// PaymentStatus maps a gateway status to the payment record status.
func (g GatewayStatus) PaymentStatus() PaymentStatus {
	switch g {
	case GatewayStatusSuccess:
		return PaymentStatusPaid
	case GatewayStatusFailed:
		return PaymentStatusFailed
	}
	return PaymentStatusPending
}

// PaymentCallback is a gateway notification, posted or passed on a redirect.
type PaymentCallback struct {
	Status      GatewayStatus
	OrderNumber string
	BillCode    string
	RefNo       string
}

// CallbackResult reports what a callback did to the order.
type CallbackResult struct {
	OrderNumber string      `json:"orderNumber"`
	Status      OrderStatus `json:"status"`
	Applied     bool        `json:"applied"`
}
