package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"evo-store/internal/config"
	"evo-store/internal/model"

	"github.com/rs/zerolog"
)

// Notifier sends order emails in the background. Sends never block the
// caller and failures are only logged.
type Notifier struct {
	mailer  Mailer
	store   config.StoreConfig
	timeout time.Duration
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

// NewNotifier creates a notifier. A nil mailer disables sending.
func NewNotifier(mailer Mailer, store config.StoreConfig, timeout time.Duration, logger zerolog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		mailer:  mailer,
		store:   store,
		timeout: timeout,
		logger:  logger.With().Str("component", "notifier").Logger(),
	}
}

// OrderConfirmation tells the customer their order was placed.
func (n *Notifier) OrderConfirmation(order *model.Order, items []model.OrderItem) {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order with %s.\n\n", n.store.Name)
	fmt.Fprintf(&b, "Order number: %s\n\n", order.OrderNumber)
	for _, item := range items {
		fmt.Fprintf(&b, "  %d x %s  %s %s\n", item.Quantity, item.ProductName, n.store.Currency, item.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s %s\n\n", n.store.Currency, order.Total.StringFixed(2))
	b.WriteString("Your order will be processed once payment is received.\n")
	fmt.Fprintf(&b, "Track your order at %s\n", n.store.TrackingURL)

	n.send("order_confirmation", order, fmt.Sprintf("%s order %s received", n.store.Name, order.OrderNumber), b.String())
}

// PaymentReceived confirms a successful payment.
func (n *Notifier) PaymentReceived(order *model.Order) {
	body := fmt.Sprintf(
		"We have received your payment of %s %s for order %s.\n\nWe will let you know when it ships.\n",
		n.store.Currency, order.Total.StringFixed(2), order.OrderNumber,
	)

	n.send("payment_received", order, fmt.Sprintf("Payment received for order %s", order.OrderNumber), body)
}

// ShippingNotice tells the customer their parcel is on its way.
func (n *Notifier) ShippingNotice(order *model.Order) {
	var b strings.Builder
	fmt.Fprintf(&b, "Good news, order %s has shipped.\n\n", order.OrderNumber)
	if order.Courier != nil {
		fmt.Fprintf(&b, "Courier: %s\n", *order.Courier)
	}
	if order.TrackingNumber != nil {
		fmt.Fprintf(&b, "Tracking number: %s\n", *order.TrackingNumber)
	}
	fmt.Fprintf(&b, "\nTrack your order at %s\n", n.store.TrackingURL)

	n.send("shipping_notice", order, fmt.Sprintf("Order %s has shipped", order.OrderNumber), b.String())
}

// Close waits for in-flight sends to finish or ctx to expire.
func (n *Notifier) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) send(kind string, order *model.Order, subject, body string) {
	if n.mailer == nil {
		n.logger.Debug().Str("kind", kind).Str("order_number", order.OrderNumber).Msg("mail not configured, skipping")
		return
	}
	if order.Email == nil || *order.Email == "" {
		n.logger.Debug().Str("kind", kind).Str("order_number", order.OrderNumber).Msg("order has no email, skipping")
		return
	}

	msg := Message{To: *order.Email, Subject: subject, Body: body}
	orderNumber := order.OrderNumber

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		start := time.Now()
		if err := n.mailer.Send(ctx, msg); err != nil {
			n.logger.Error().
				Err(err).
				Str("kind", kind).
				Str("order_number", orderNumber).
				Msg("failed to send email")
			return
		}

		n.logger.Info().
			Str("kind", kind).
			Str("order_number", orderNumber).
			Dur("duration", time.Since(start)).
			Msg("email sent")
	}()
}
