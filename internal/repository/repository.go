package repository

import (
	"context"

	"evo-store/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List retrieves published products with pagination and optional category filter.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// GetByID retrieves a single product by its ID, published or not.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs, published or not.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// ReserveStock decrements stock for one product within the provided
	// transaction. Returns model.ErrOutOfStock when the product is unpublished
	// or has fewer than qty units left.
	ReserveStock(ctx context.Context, tx pgx.Tx, productID string, qty int) error

	// RestoreStock returns the quantities of the given items to stock.
	RestoreStock(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// Upsert inserts or replaces a catalogue entry.
	Upsert(ctx context.Context, product *model.Product) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	// Returns ErrOrderNumberTaken on an order number collision.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// GetByOrderNumber retrieves an order by its human-facing number.
	GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error)

	// GetItems retrieves the items of an order.
	GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)

	// FindByNumberOrPhone returns orders whose number or shipping phone equals q, newest first.
	FindByNumberOrPhone(ctx context.Context, q string, limit int) ([]model.Order, error)

	// ListByUser returns a user's orders, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Order, error)

	// List returns orders for the admin listing, newest first.
	List(ctx context.Context, filter model.OrderListFilter) ([]model.Order, error)

	// TransitionStatus moves the order to status `to` only if its current status
	// is one of `from`. Reports whether a row was updated.
	TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from []model.OrderStatus, to model.OrderStatus) (bool, error)

	// FailPending moves a pending order to failed unless a bill other than
	// billCode is still pending for it. Reports whether a row was updated.
	FailPending(ctx context.Context, tx pgx.Tx, id uuid.UUID, billCode string) (bool, error)

	// MarkShipped moves the order to shipped and records tracking data, only if
	// its current status is one of `from`.
	MarkShipped(ctx context.Context, id uuid.UUID, from []model.OrderStatus, trackingNumber, courier string) (bool, error)

	// UpdateTracking replaces tracking data of an order that is already shipped.
	UpdateTracking(ctx context.Context, id uuid.UUID, trackingNumber, courier string) (bool, error)
}

// PaymentRepository defines the interface for payment data access operations.
type PaymentRepository interface {
	// Create records a newly requested bill.
	// Returns model.ErrDuplicateReference when the gateway reference exists.
	Create(ctx context.Context, payment *model.Payment) error

	// GetByGatewayRef retrieves a payment by the gateway bill code.
	GetByGatewayRef(ctx context.Context, ref string) (*model.Payment, error)

	// ListByOrder retrieves every bill requested for an order.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error)

	// UpdateStatus moves a payment from `from` to `to` within the transaction.
	UpdateStatus(ctx context.Context, tx pgx.Tx, ref string, from, to model.PaymentStatus) (bool, error)
}

// UserRepository defines the interface for user data access operations.
type UserRepository interface {
	// Create inserts a user. Returns model.ErrEmailTaken on a duplicate email.
	Create(ctx context.Context, user *model.User) error

	// GetByEmail retrieves a user by normalised email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// SetRole changes the role of the user with the given email.
	SetRole(ctx context.Context, email string, role model.Role) (bool, error)
}

// AnalyticsRepository runs aggregate queries for the admin dashboard.
type AnalyticsRepository interface {
	CountOrdersByStatus(ctx context.Context) (map[model.OrderStatus]int, error)
	SumRevenue(ctx context.Context, statuses []model.OrderStatus) (decimal.Decimal, error)
	CountUsers(ctx context.Context) (int, error)
	CountProducts(ctx context.Context) (int, error)
	CountLowStock(ctx context.Context) (int, error)
	CountRows(ctx context.Context) (map[string]int, error)
	PoolStats() model.DebugInfo
}
