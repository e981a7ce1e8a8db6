package service

import (
	"context"

	"evo-store/internal/model"

	"github.com/google/uuid"
)

// ProductService defines catalogue browsing operations.
type ProductService interface {
	// List retrieves published products with pagination.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// GetByID retrieves a published product. Unpublished products are reported
	// as not found.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// OrderService defines the checkout pipeline and order lookups.
type OrderService interface {
	// Checkout validates the cart against server-side prices and stock,
	// persists the order atomically and requests a payment bill.
	Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error)

	// RetryPayment requests a fresh bill for a pending order.
	RetryPayment(ctx context.Context, req *model.RetryPaymentRequest) (*model.CheckoutResponse, error)

	// Track returns the order only when both order number and phone match.
	Track(ctx context.Context, req *model.TrackRequest) (*model.OrderDetail, error)

	// BotLookup finds orders by order number or phone, newest first.
	BotLookup(ctx context.Context, q string) ([]model.OrderDetail, error)

	// ListMine lists the orders placed by a signed-in user.
	ListMine(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
}

// PaymentService applies payment gateway notifications.
type PaymentService interface {
	// HandleCallback maps the gateway status onto the order and its payment
	// record. Replays are no-ops reported with Applied=false.
	HandleCallback(ctx context.Context, cb model.PaymentCallback) (*model.CallbackResult, error)

	// HandleReturn applies a customer redirect from the gateway. The status
	// is always confirmed with the gateway before anything changes.
	HandleReturn(ctx context.Context, cb model.PaymentCallback) (*model.CallbackResult, error)
}

// AuthService defines account operations.
type AuthService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

// AdminService defines back-office operations.
type AdminService interface {
	Analytics(ctx context.Context) (*model.Analytics, error)
	ListOrders(ctx context.Context, filter model.OrderListFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.AdminOrder, error)

	// UpdateShipment marks a paid or processing order as shipped with tracking
	// data, or corrects the tracking data of an already shipped order.
	UpdateShipment(ctx context.Context, id uuid.UUID, req *model.ShipmentRequest) (*model.AdminOrder, error)

	// UpdateStatus moves an order to processing or delivered.
	UpdateStatus(ctx context.Context, id uuid.UUID, req *model.StatusUpdateRequest) (*model.AdminOrder, error)

	// Invoice renders the order as a PDF.
	Invoice(ctx context.Context, id uuid.UUID) (*model.AdminOrder, []byte, error)

	// Debug reports pool statistics and table sizes.
	Debug(ctx context.Context) (*model.DebugInfo, error)

	// PromoteUser grants the admin role to the user with the given email.
	PromoteUser(ctx context.Context, email string) error
}

// Notifier sends customer emails without blocking the caller.
type Notifier interface {
	OrderConfirmation(order *model.Order, items []model.OrderItem)
	PaymentReceived(order *model.Order)
	ShippingNotice(order *model.Order)
}

// InvoiceRenderer renders an order as a PDF document.
type InvoiceRenderer interface {
	Render(order *model.AdminOrder) ([]byte, error)
}
