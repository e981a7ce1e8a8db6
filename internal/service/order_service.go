package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"evo-store/internal/events"
	"evo-store/internal/gateway"
	"evo-store/internal/model"
	"evo-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	maxOrderNumberAttempts = 3
	botLookupLimit         = 20
	myOrdersLimit          = 50
)

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	paymentRepo repository.PaymentRepository
	gateway     gateway.Client
	notifier    Notifier
	publisher   events.Publisher
	prefix      string
	logger      zerolog.Logger
}

// NewOrderService creates a new order service. prefix is prepended to
// generated order numbers.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	paymentRepo repository.PaymentRepository,
	gw gateway.Client,
	notifier Notifier,
	publisher events.Publisher,
	prefix string,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		paymentRepo: paymentRepo,
		gateway:     gw,
		notifier:    notifier,
		publisher:   publisher,
		prefix:      prefix,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// Checkout validates the cart, persists the order and requests a bill.
func (s *orderService) Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	lines, err := validateCheckout(req)
	if err != nil {
		return nil, err
	}

	items, err := s.priceCart(ctx, lines)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &model.Order{
		ID:               uuid.New(),
		UserID:           req.UserID,
		Status:           model.OrderStatusPending,
		Total:            model.SumLineTotals(items),
		ShippingName:     req.Shipping.Name,
		ShippingPhone:    req.Shipping.Phone,
		ShippingAddress:  req.Shipping.Address,
		ShippingCity:     req.Shipping.City,
		ShippingPostcode: req.Shipping.Postcode,
		Email:            req.Shipping.Email,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for i := range items {
		items[i].OrderID = order.ID
	}

	if err := s.persistOrder(ctx, order, items); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("total", order.Total.StringFixed(2)).
		Int("item_count", len(items)).
		Msg("order created successfully")

	s.notifier.OrderConfirmation(order, items)
	s.publish(ctx, events.TypeOrderCreated, order, "")

	paymentURL, err := s.requestBill(ctx, order)
	if err != nil {
		return nil, &model.CheckoutError{OrderNumber: order.OrderNumber, Err: err}
	}

	return &model.CheckoutResponse{
		OrderNumber: order.OrderNumber,
		PaymentURL:  paymentURL,
	}, nil
}

// priceCart loads the products in the cart and snapshots names and prices.
// The stock check here fails fast; the conditional decrement inside the
// transaction is what actually guarantees stock.
func (s *orderService) priceCart(ctx context.Context, lines []cartLine) ([]model.OrderItem, error) {
	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.productID
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to retrieve product details")
		return nil, fmt.Errorf("failed to retrieve product details: %w", err)
	}

	byID := make(map[string]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	items := make([]model.OrderItem, len(lines))
	for i, line := range lines {
		p, ok := byID[line.productID]
		switch {
		case !ok:
			s.logger.Warn().Str("product_id", line.productID).Msg("product not found")
			return nil, model.ErrProductNotFound
		case !p.IsPublished:
			s.logger.Warn().Str("product_id", line.productID).Msg("product not published")
			return nil, model.ErrProductUnavailable
		case !p.InStock(line.quantity):
			s.logger.Warn().
				Str("product_id", line.productID).
				Int("requested", line.quantity).
				Int("available", p.StockQuantity).
				Msg("insufficient stock")
			return nil, model.ErrOutOfStock
		}

		productID := p.ID
		items[i] = model.OrderItem{
			ID:          uuid.New(),
			ProductID:   &productID,
			ProductName: p.Name,
			Quantity:    line.quantity,
			UnitPrice:   p.Price,
			LineTotal:   model.LineTotal(p.Price, line.quantity),
		}
	}

	return items, nil
}

// persistOrder writes the order, retrying with a fresh order number on a
// collision.
func (s *orderService) persistOrder(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	var err error
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		order.OrderNumber, err = newOrderNumber(s.prefix)
		if err != nil {
			return err
		}

		err = s.createOrderTx(ctx, order, items)
		if !errors.Is(err, repository.ErrOrderNumberTaken) {
			return err
		}

		s.logger.Warn().Int("attempt", attempt).Msg("order number collision, regenerating")
	}

	return fmt.Errorf("failed to allocate order number: %w", err)
}

// createOrderTx reserves stock and inserts the order with its items in one
// transaction.
func (s *orderService) createOrderTx(ctx context.Context, order *model.Order, items []model.OrderItem) (err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to create order: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	for _, item := range items {
		if err = s.productRepo.ReserveStock(ctx, tx, *item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return err
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// requestBill asks the gateway for a bill and records it. No transaction is
// held during the gateway call.
func (s *orderService) requestBill(ctx context.Context, order *model.Order) (string, error) {
	email := ""
	if order.Email != nil {
		email = *order.Email
	}

	bill, err := s.gateway.CreateBill(ctx, gateway.BillRequest{
		OrderNumber: order.OrderNumber,
		Amount:      order.Total,
		Name:        order.ShippingName,
		Email:       email,
		Phone:       order.ShippingPhone,
		Description: "Payment for order " + order.OrderNumber,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("order_number", order.OrderNumber).Msg("payment gateway request failed")
		return "", model.ErrGatewayUnavailable
	}

	now := time.Now()
	payment := &model.Payment{
		ID:         uuid.New(),
		OrderID:    order.ID,
		Gateway:    gateway.Name,
		GatewayRef: bill.Code,
		Status:     model.PaymentStatusPending,
		Amount:     order.Total,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_number", order.OrderNumber).
			Str("bill_code", bill.Code).
			Msg("failed to record payment")
		return "", model.ErrGatewayUnavailable
	}

	return bill.PaymentURL, nil
}

// RetryPayment requests a fresh bill for a pending order. The phone acts as
// the shared secret, as for tracking.
func (s *orderService) RetryPayment(ctx context.Context, req *model.RetryPaymentRequest) (*model.CheckoutResponse, error) {
	order, err := s.matchOrder(ctx, req.OrderNumber, req.Phone)
	if err != nil {
		return nil, err
	}

	if order.Status != model.OrderStatusPending {
		s.logger.Warn().
			Str("order_number", order.OrderNumber).
			Str("status", string(order.Status)).
			Msg("payment retry on non-pending order")
		return nil, model.ErrInvalidTransition
	}

	paymentURL, err := s.requestBill(ctx, order)
	if err != nil {
		return nil, &model.CheckoutError{OrderNumber: order.OrderNumber, Err: err}
	}

	return &model.CheckoutResponse{
		OrderNumber: order.OrderNumber,
		PaymentURL:  paymentURL,
	}, nil
}

// Track returns the order detail when order number and phone both match.
func (s *orderService) Track(ctx context.Context, req *model.TrackRequest) (*model.OrderDetail, error) {
	order, err := s.matchOrder(ctx, req.OrderNumber, req.Phone)
	if err != nil {
		return nil, err
	}

	items, err := s.orderRepo.GetItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}

	return model.NewOrderDetail(order, items), nil
}

// matchOrder loads an order by number and checks the phone. Every mismatch
// shape returns the same error.
func (s *orderService) matchOrder(ctx context.Context, orderNumber, phone string) (*model.Order, error) {
	orderNumber = normalizeOrderNumber(orderNumber)
	if orderNumber == "" || phone == "" {
		return nil, model.ValidationError("Order number and phone are required")
	}

	normalized, err := normalizePhone(phone)
	if err != nil {
		return nil, model.ErrOrderMismatch
	}

	order, err := s.orderRepo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to look up order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil || !phonesMatch(order.ShippingPhone, normalized) {
		s.logger.Info().Msg("order lookup did not match")
		return nil, model.ErrOrderMismatch
	}

	return order, nil
}

// BotLookup matches q against order numbers, or phones when q has no letters.
func (s *orderService) BotLookup(ctx context.Context, q string) ([]model.OrderDetail, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, model.ValidationError("Query parameter q is required")
	}

	key := normalizeOrderNumber(q)
	if !looksLikeOrderNumber(q) {
		phone, err := normalizePhone(q)
		if err != nil {
			return nil, model.ErrOrderNotFound
		}
		key = phone
	}

	orders, err := s.orderRepo.FindByNumberOrPhone(ctx, key, botLookupLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search orders: %w", err)
	}

	if len(orders) == 0 {
		return nil, model.ErrOrderNotFound
	}

	details := make([]model.OrderDetail, 0, len(orders))
	for i := range orders {
		items, err := s.orderRepo.GetItems(ctx, orders[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get order items: %w", err)
		}
		details = append(details, *model.NewOrderDetail(&orders[i], items))
	}

	return details, nil
}

// ListMine lists the caller's orders, newest first.
func (s *orderService) ListMine(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID, myOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) publish(ctx context.Context, eventType string, order *model.Order, previous model.OrderStatus) {
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(eventType, order, previous)); err != nil {
		s.logger.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("order event not published")
	}
}
