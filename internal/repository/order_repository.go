package repository

import (
	"context"
	"errors"
	"fmt"

	"evo-store/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `id, order_number, user_id, status, total, shipping_name, shipping_phone,
	shipping_address, shipping_city, shipping_postcode, email, tracking_number, courier,
	created_at, updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Status,
		&o.Total,
		&o.ShippingName,
		&o.ShippingPhone,
		&o.ShippingAddress,
		&o.ShippingCity,
		&o.ShippingPostcode,
		&o.Email,
		&o.TrackingNumber,
		&o.Courier,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}

func (r *orderRepository) collect(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (id, order_number, user_id, status, total, shipping_name,
			shipping_phone, shipping_address, shipping_city, shipping_postcode, email,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.OrderNumber,
		order.UserID,
		string(order.Status),
		order.Total,
		order.ShippingName,
		order.ShippingPhone,
		order.ShippingAddress,
		order.ShippingCity,
		order.ShippingPostcode,
		order.Email,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "orders_order_number_key") {
			r.logger.Warn().Str("order_number", order.OrderNumber).Msg("order number collision")
			return ErrOrderNumberTaken
		}
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID, item.OrderID, item.ProductID, item.ProductName,
			item.Quantity, item.UnitPrice, item.LineTotal,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_name", items[i].ProductName).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var order model.Order
	err := scanOrder(r.pool.QueryRow(ctx, query, id), &order)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.GetItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return &order, items, nil
}

// GetByOrderNumber retrieves an order by its human-facing number.
func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	var order model.Order
	err := scanOrder(r.pool.QueryRow(ctx, query, orderNumber), &order)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_number", orderNumber).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_number", orderNumber).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return &order, nil
}

// GetItems retrieves the items of an order.
func (r *orderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_name, id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice, &item.LineTotal,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// FindByNumberOrPhone returns orders whose number or shipping phone equals q.
func (r *orderRepository) FindByNumberOrPhone(ctx context.Context, q string, limit int) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE order_number = $1 OR shipping_phone = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, q, clampLimit(limit, 20, 100))
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to search orders")
		return nil, fmt.Errorf("failed to search orders: %w", err)
	}

	return r.collect(rows)
}

// ListByUser returns a user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, clampLimit(limit, 50, 100))
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list user orders")
		return nil, fmt.Errorf("failed to list user orders: %w", err)
	}

	return r.collect(rows)
}

// List returns orders for the admin listing, newest first.
func (r *orderRepository) List(ctx context.Context, filter model.OrderListFilter) ([]model.Order, error) {
	status := ""
	if filter.Status != nil {
		status = string(*filter.Status)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, status, clampLimit(filter.Limit, 20, 100), max(filter.Offset, 0))
	if err != nil {
		r.logger.Error().Err(err).Str("status", status).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return r.collect(rows)
}

// TransitionStatus moves the order to `to` only if its current status is in `from`.
// The WHERE clause is the compare-and-swap: concurrent callers racing on the
// same order see exactly one affected row between them.
func (r *orderRepository) TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from []model.OrderStatus, to model.OrderStatus) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`

	tag, err := tx.Exec(ctx, query, id, string(to), statusStrings(from))
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("to", string(to)).
			Msg("failed to transition order status")
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	applied := tag.RowsAffected() == 1
	r.logger.Debug().
		Str("order_id", id.String()).
		Str("to", string(to)).
		Bool("applied", applied).
		Msg("order status transition")

	return applied, nil
}

// FailPending fails a pending order whose other bills are all settled.
func (r *orderRepository) FailPending(ctx context.Context, tx pgx.Tx, id uuid.UUID, billCode string) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		AND NOT EXISTS (
			SELECT 1 FROM payments
			WHERE order_id = $1 AND status = $4 AND gateway_ref <> $5
		)
	`

	tag, err := tx.Exec(ctx, query, id, string(model.OrderStatusFailed), string(model.OrderStatusPending),
		string(model.PaymentStatusPending), billCode)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("bill_code", billCode).
			Msg("failed to fail order")
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	applied := tag.RowsAffected() == 1
	r.logger.Debug().
		Str("order_id", id.String()).
		Str("bill_code", billCode).
		Bool("applied", applied).
		Msg("order failure transition")

	return applied, nil
}

// MarkShipped moves the order to shipped and records tracking data.
func (r *orderRepository) MarkShipped(ctx context.Context, id uuid.UUID, from []model.OrderStatus, trackingNumber, courier string) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'shipped', tracking_number = $2, courier = $3, updated_at = NOW()
		WHERE id = $1 AND status = ANY($4)
	`

	tag, err := r.pool.Exec(ctx, query, id, trackingNumber, courier, statusStrings(from))
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to mark order shipped")
		return false, fmt.Errorf("failed to mark order shipped: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// UpdateTracking replaces tracking data of an order that is already shipped.
func (r *orderRepository) UpdateTracking(ctx context.Context, id uuid.UUID, trackingNumber, courier string) (bool, error) {
	query := `
		UPDATE orders
		SET tracking_number = $2, courier = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'shipped'
	`

	tag, err := r.pool.Exec(ctx, query, id, trackingNumber, courier)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update tracking")
		return false, fmt.Errorf("failed to update tracking: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
