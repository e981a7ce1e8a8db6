package repository

import (
	"context"
	"fmt"

	"evo-store/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type analyticsRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAnalyticsRepository creates a new PostgreSQL-backed analytics repository.
func NewAnalyticsRepository(pool *pgxpool.Pool, logger zerolog.Logger) AnalyticsRepository {
	return &analyticsRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "analytics").Logger(),
	}
}

func (r *analyticsRepository) CountOrdersByStatus(ctx context.Context) (map[model.OrderStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to count orders")
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.OrderStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan order count: %w", err)
		}
		counts[model.OrderStatus(status)] = n
	}

	return counts, rows.Err()
}

func (r *analyticsRepository) SumRevenue(ctx context.Context, statuses []model.OrderStatus) (decimal.Decimal, error) {
	var revenue decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total), 0) FROM orders WHERE status = ANY($1)`,
		statusStrings(statuses),
	).Scan(&revenue)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to sum revenue")
		return decimal.Zero, fmt.Errorf("failed to sum revenue: %w", err)
	}

	return revenue, nil
}

func (r *analyticsRepository) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		r.logger.Error().Err(err).Str("query", query).Msg("count query failed")
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return n, nil
}

func (r *analyticsRepository) CountUsers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (r *analyticsRepository) CountProducts(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM products`)
}

func (r *analyticsRepository) CountLowStock(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM products WHERE is_published AND stock_quantity <= low_stock_threshold`)
}

// PoolStats reports connection pool counters.
func (r *analyticsRepository) PoolStats() model.DebugInfo {
	stat := r.pool.Stat()
	return model.DebugInfo{
		Database:     r.pool.Config().ConnConfig.Database,
		TotalConns:   stat.TotalConns(),
		IdleConns:    stat.IdleConns(),
		AcquireCount: stat.AcquireCount(),
	}
}

// CountRows returns the row count of every application table.
func (r *analyticsRepository) CountRows(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT 'users', COUNT(*) FROM users
		UNION ALL SELECT 'products', COUNT(*) FROM products
		UNION ALL SELECT 'orders', COUNT(*) FROM orders
		UNION ALL SELECT 'order_items', COUNT(*) FROM order_items
		UNION ALL SELECT 'payments', COUNT(*) FROM payments
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to count table rows")
		return nil, fmt.Errorf("failed to count table rows: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int, 5)
	for rows.Next() {
		var table string
		var n int
		if err := rows.Scan(&table, &n); err != nil {
			return nil, fmt.Errorf("failed to scan table count: %w", err)
		}
		counts[table] = n
	}

	return counts, rows.Err()
}
