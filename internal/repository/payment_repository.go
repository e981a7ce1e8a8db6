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

// paymentRepository implements the PaymentRepository interface using PostgreSQL.
type paymentRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentRepository {
	return &paymentRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment").Logger(),
	}
}

func scanPayment(row pgx.Row, p *model.Payment) error {
	return row.Scan(&p.ID, &p.OrderID, &p.Gateway, &p.GatewayRef, &p.Status, &p.Amount, &p.CreatedAt, &p.UpdatedAt)
}

// Create records a newly requested bill.
func (r *paymentRepository) Create(ctx context.Context, p *model.Payment) error {
	query := `
		INSERT INTO payments (id, order_id, gateway, gateway_ref, status, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.OrderID, p.Gateway, p.GatewayRef, string(p.Status), p.Amount, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "payments_gateway_ref_key") {
			r.logger.Warn().Str("gateway_ref", p.GatewayRef).Msg("duplicate gateway reference")
			return model.ErrDuplicateReference
		}
		r.logger.Error().Err(err).Str("order_id", p.OrderID.String()).Msg("failed to create payment")
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByGatewayRef retrieves a payment by the gateway bill code.
func (r *paymentRepository) GetByGatewayRef(ctx context.Context, ref string) (*model.Payment, error) {
	query := `
		SELECT id, order_id, gateway, gateway_ref, status, amount, created_at, updated_at
		FROM payments
		WHERE gateway_ref = $1
	`

	var p model.Payment
	if err := scanPayment(r.pool.QueryRow(ctx, query, ref), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("gateway_ref", ref).Msg("failed to query payment")
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}

	return &p, nil
}

// ListByOrder retrieves every bill requested for an order.
func (r *paymentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error) {
	query := `
		SELECT id, order_id, gateway, gateway_ref, status, amount, created_at, updated_at
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to list payments")
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []model.Payment{}
	for rows.Next() {
		var p model.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}

	return payments, nil
}

// UpdateStatus moves a payment from `from` to `to` within the transaction.
func (r *paymentRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, ref string, from, to model.PaymentStatus) (bool, error) {
	query := `
		UPDATE payments
		SET status = $3, updated_at = NOW()
		WHERE gateway_ref = $1 AND status = $2
	`

	tag, err := tx.Exec(ctx, query, ref, string(from), string(to))
	if err != nil {
		r.logger.Error().Err(err).Str("gateway_ref", ref).Msg("failed to update payment status")
		return false, fmt.Errorf("failed to update payment status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
