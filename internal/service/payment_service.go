package service

import (
	"context"
	"errors"
	"fmt"

	"evo-store/internal/events"
	"evo-store/internal/gateway"
	"evo-store/internal/lock"
	"evo-store/internal/model"
	"evo-store/internal/repository"

	"github.com/rs/zerolog"
)

// paymentService implements PaymentService.
type paymentService struct {
	orderRepo      repository.OrderRepository
	productRepo    repository.ProductRepository
	paymentRepo    repository.PaymentRepository
	gateway        gateway.Client
	locker         lock.Locker
	notifier       Notifier
	publisher      events.Publisher
	verifyCallback bool
	logger         zerolog.Logger
}

// NewPaymentService creates a new payment service. When verify is set the
// gateway is asked for the bill status instead of trusting the callback body.
func NewPaymentService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	paymentRepo repository.PaymentRepository,
	gw gateway.Client,
	locker lock.Locker,
	notifier Notifier,
	publisher events.Publisher,
	verify bool,
	logger zerolog.Logger,
) PaymentService {
	return &paymentService{
		orderRepo:      orderRepo,
		productRepo:    productRepo,
		paymentRepo:    paymentRepo,
		gateway:        gw,
		locker:         locker,
		notifier:       notifier,
		publisher:      publisher,
		verifyCallback: verify,
		logger:         logger.With().Str("service", "payment").Logger(),
	}
}

// HandleCallback applies a gateway notification to its order.
func (s *paymentService) HandleCallback(ctx context.Context, cb model.PaymentCallback) (*model.CallbackResult, error) {
	return s.apply(ctx, cb, s.verifyCallback)
}

// HandleReturn applies the outcome of a customer redirect. The redirect is
// built by the browser, so its status is always confirmed with the gateway.
func (s *paymentService) HandleReturn(ctx context.Context, cb model.PaymentCallback) (*model.CallbackResult, error) {
	return s.apply(ctx, cb, true)
}

func (s *paymentService) apply(ctx context.Context, cb model.PaymentCallback, verify bool) (*model.CallbackResult, error) {
	orderNumber := normalizeOrderNumber(cb.OrderNumber)
	if orderNumber == "" || cb.BillCode == "" {
		return nil, model.ErrInvalidCallback
	}

	log := s.logger.With().
		Str("order_number", orderNumber).
		Str("bill_code", cb.BillCode).
		Str("ref_no", cb.RefNo).
		Int("gateway_status", int(cb.Status)).
		Logger()

	order, err := s.orderRepo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		log.Error().Err(err).Msg("failed to look up order for callback")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		log.Warn().Msg("callback for unknown order")
		return nil, model.ErrOrderNotFound
	}

	payment, err := s.paymentRepo.GetByGatewayRef(ctx, cb.BillCode)
	if err != nil {
		log.Error().Err(err).Msg("failed to look up payment for callback")
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil || payment.OrderID != order.ID {
		log.Warn().Msg("callback bill code does not belong to order")
		return nil, model.ErrOrderNotFound
	}

	status := cb.Status
	if verify {
		status, err = s.gateway.BillStatus(ctx, cb.BillCode)
		if err != nil {
			log.Error().Err(err).Msg("failed to verify bill status")
			return nil, model.ErrGatewayUnavailable
		}
		if status != cb.Status {
			log.Warn().Int("verified_status", int(status)).Msg("callback status differs from gateway")
		}
	}

	target, ok := status.OrderStatus()
	if !ok {
		log.Info().Msg("payment still pending, order unchanged")
		return &model.CallbackResult{OrderNumber: order.OrderNumber, Status: order.Status}, nil
	}

	release, err := s.locker.Acquire(ctx, "order:"+order.OrderNumber)
	switch {
	case errors.Is(err, lock.ErrNotAcquired):
		// The holder may be applying a different outcome; the conditional
		// update below decides which one wins.
		log.Info().Msg("callback lock held elsewhere, continuing without it")
	case err != nil:
		log.Warn().Err(err).Msg("callback lock unavailable, continuing without it")
	default:
		defer release()
	}

	var items []model.OrderItem
	if target == model.OrderStatusFailed {
		items, err = s.orderRepo.GetItems(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get order items: %w", err)
		}
	}

	applied, err := s.applyTransition(ctx, order, cb.BillCode, target, status.PaymentStatus(), items)
	if err != nil {
		log.Error().Err(err).Str("target_status", string(target)).Msg("failed to apply callback")
		return nil, err
	}

	if !applied {
		current, err := s.orderRepo.GetByOrderNumber(ctx, order.OrderNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to get order: %w", err)
		}
		if current != nil {
			order = current
		}
		log.Info().Str("status", string(order.Status)).Msg("callback replay ignored")
		return &model.CallbackResult{OrderNumber: order.OrderNumber, Status: order.Status}, nil
	}

	previous := order.Status
	order.Status = target

	log.Info().
		Str("previous_status", string(previous)).
		Str("status", string(target)).
		Msg("order status updated from payment callback")

	if target == model.OrderStatusPaid {
		s.notifier.PaymentReceived(order)
	}
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(events.TypeOrderStatusChanged, order, previous)); err != nil {
		log.Warn().Err(err).Msg("order event not published")
	}

	return &model.CallbackResult{OrderNumber: order.OrderNumber, Status: target, Applied: true}, nil
}

// applyTransition moves the order and its payment in one transaction and, for
// a failed payment, returns the reserved stock. Reports false when the order
// was no longer in a state the target can be entered from.
func (s *paymentService) applyTransition(
	ctx context.Context,
	order *model.Order,
	billCode string,
	target model.OrderStatus,
	paymentStatus model.PaymentStatus,
	items []model.OrderItem,
) (applied bool, err error) {
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

	if target == model.OrderStatusFailed {
		applied, err = s.orderRepo.FailPending(ctx, tx, order.ID, billCode)
	} else {
		applied, err = s.orderRepo.TransitionStatus(ctx, tx, order.ID, model.AllowedFrom(target), target)
	}
	if err != nil {
		return false, err
	}
	if !applied && target == model.OrderStatusFailed {
		// Another bill of the order may still be paid, so only this bill fails.
		if _, err = s.paymentRepo.UpdateStatus(ctx, tx, billCode, model.PaymentStatusPending, paymentStatus); err != nil {
			return false, err
		}
		if err = tx.Commit(ctx); err != nil {
			return false, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return false, nil
	}
	if !applied {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		return false, nil
	}

	if _, err = s.paymentRepo.UpdateStatus(ctx, tx, billCode, model.PaymentStatusPending, paymentStatus); err != nil {
		return false, err
	}

	if target == model.OrderStatusFailed && len(items) > 0 {
		if err = s.productRepo.RestoreStock(ctx, tx, items); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}
