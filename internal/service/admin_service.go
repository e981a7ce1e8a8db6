package service

import (
	"context"
	"fmt"
	"strings"

	"evo-store/internal/events"
	"evo-store/internal/model"
	"evo-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// revenueStatuses are the statuses of orders that have been paid for.
var revenueStatuses = []model.OrderStatus{
	model.OrderStatusPaid,
	model.OrderStatusProcessing,
	model.OrderStatusShipped,
	model.OrderStatusDelivered,
}

// adminService implements AdminService.
type adminService struct {
	orderRepo     repository.OrderRepository
	paymentRepo   repository.PaymentRepository
	userRepo      repository.UserRepository
	analyticsRepo repository.AnalyticsRepository
	notifier      Notifier
	publisher     events.Publisher
	renderer      InvoiceRenderer
	logger        zerolog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	userRepo repository.UserRepository,
	analyticsRepo repository.AnalyticsRepository,
	notifier Notifier,
	publisher events.Publisher,
	renderer InvoiceRenderer,
	logger zerolog.Logger,
) AdminService {
	return &adminService{
		orderRepo:     orderRepo,
		paymentRepo:   paymentRepo,
		userRepo:      userRepo,
		analyticsRepo: analyticsRepo,
		notifier:      notifier,
		publisher:     publisher,
		renderer:      renderer,
		logger:        logger.With().Str("service", "admin").Logger(),
	}
}

// Analytics runs the dashboard queries concurrently.
func (s *adminService) Analytics(ctx context.Context) (*model.Analytics, error) {
	var result model.Analytics
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.analyticsRepo.CountOrdersByStatus(gctx)
		if err != nil {
			return err
		}
		result.OrdersByStatus = counts
		for _, n := range counts {
			result.TotalOrders += n
		}
		return nil
	})
	g.Go(func() error {
		revenue, err := s.analyticsRepo.SumRevenue(gctx, revenueStatuses)
		result.Revenue = revenue
		return err
	})
	g.Go(func() error {
		n, err := s.analyticsRepo.CountUsers(gctx)
		result.TotalUsers = n
		return err
	})
	g.Go(func() error {
		n, err := s.analyticsRepo.CountProducts(gctx)
		result.TotalProducts = n
		return err
	})
	g.Go(func() error {
		n, err := s.analyticsRepo.CountLowStock(gctx)
		result.LowStockProducts = n
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("failed to compute analytics")
		return nil, fmt.Errorf("failed to compute analytics: %w", err)
	}

	if result.OrdersByStatus == nil {
		result.OrdersByStatus = map[model.OrderStatus]int{}
	}

	return &result, nil
}

// ListOrders lists orders for the back office, newest first.
func (s *adminService) ListOrders(ctx context.Context, filter model.OrderListFilter) ([]model.Order, error) {
	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns the order with its items and payment attempts.
func (s *adminService) GetOrder(ctx context.Context, id uuid.UUID) (*model.AdminOrder, error) {
	order, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	payments, err := s.paymentRepo.ListByOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}

	return model.NewAdminOrder(order, items, payments), nil
}

// UpdateShipment ships a paid or processing order. An order that is already
// shipped only has its tracking data corrected, without a second email.
func (s *adminService) UpdateShipment(ctx context.Context, id uuid.UUID, req *model.ShipmentRequest) (*model.AdminOrder, error) {
	trackingNumber := strings.TrimSpace(req.TrackingNumber)
	courier := strings.TrimSpace(req.Courier)
	if trackingNumber == "" {
		return nil, model.ValidationError("Tracking number is required")
	}

	current, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := current.Status

	shipped, err := s.orderRepo.MarkShipped(ctx, id, model.AllowedFrom(model.OrderStatusShipped), trackingNumber, courier)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order shipped: %w", err)
	}

	if !shipped {
		updated, err := s.orderRepo.UpdateTracking(ctx, id, trackingNumber, courier)
		if err != nil {
			return nil, fmt.Errorf("failed to update tracking: %w", err)
		}
		if !updated {
			s.logger.Warn().
				Str("order_number", current.OrderNumber).
				Str("status", string(current.Status)).
				Msg("order cannot be shipped from its current status")
			return nil, model.ErrInvalidTransition
		}
		s.logger.Info().Str("order_number", current.OrderNumber).Msg("tracking details corrected")
		return s.GetOrder(ctx, id)
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_number", order.OrderNumber).
		Str("tracking_number", trackingNumber).
		Msg("order shipped")

	s.notifier.ShippingNotice(&order.Order)
	s.publish(ctx, &order.Order, previous)

	return order, nil
}

// UpdateStatus moves an order to processing or delivered.
func (s *adminService) UpdateStatus(ctx context.Context, id uuid.UUID, req *model.StatusUpdateRequest) (*model.AdminOrder, error) {
	target, err := model.ParseOrderStatus(strings.TrimSpace(req.Status))
	if err != nil {
		return nil, err
	}
	// Payment outcomes come from the gateway and shipping needs tracking data.
	if target != model.OrderStatusProcessing && target != model.OrderStatusDelivered {
		return nil, model.ErrInvalidTransition
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == target {
		return order, nil
	}
	if !model.CanTransition(order.Status, target) {
		return nil, model.ErrInvalidTransition
	}

	applied, err := s.transition(ctx, id, target)
	if err != nil {
		return nil, err
	}

	updated, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if !applied {
		// Lost a race with another update; report success only if the order
		// ended up where the caller wanted it.
		if updated.Status == target {
			return updated, nil
		}
		return nil, model.ErrInvalidTransition
	}

	s.logger.Info().
		Str("order_number", updated.OrderNumber).
		Str("previous_status", string(order.Status)).
		Str("status", string(target)).
		Msg("order status updated")

	s.publish(ctx, &updated.Order, order.Status)

	return updated, nil
}

func (s *adminService) transition(ctx context.Context, id uuid.UUID, target model.OrderStatus) (applied bool, err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	applied, err = s.orderRepo.TransitionStatus(ctx, tx, id, model.AllowedFrom(target), target)
	if err != nil {
		return false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return applied, nil
}

// Invoice renders the order as a PDF.
func (s *adminService) Invoice(ctx context.Context, id uuid.UUID) (*model.AdminOrder, []byte, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	pdf, err := s.renderer.Render(order)
	if err != nil {
		s.logger.Error().Err(err).Str("order_number", order.OrderNumber).Msg("failed to render invoice")
		return nil, nil, fmt.Errorf("failed to render invoice: %w", err)
	}

	return order, pdf, nil
}

// Debug reports pool statistics and table sizes.
func (s *adminService) Debug(ctx context.Context) (*model.DebugInfo, error) {
	info := s.analyticsRepo.PoolStats()

	counts, err := s.analyticsRepo.CountRows(ctx)
	if err != nil {
		return nil, err
	}
	info.TableCounts = counts

	return &info, nil
}

// PromoteUser grants the admin role.
func (s *adminService) PromoteUser(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	ok, err := s.userRepo.SetRole(ctx, email, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to promote user: %w", err)
	}
	if !ok {
		return model.ErrUserNotFound
	}

	s.logger.Info().Str("email", email).Msg("user promoted to admin")
	return nil
}

func (s *adminService) publish(ctx context.Context, order *model.Order, previous model.OrderStatus) {
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(events.TypeOrderStatusChanged, order, previous)); err != nil {
		s.logger.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("order event not published")
	}
}
