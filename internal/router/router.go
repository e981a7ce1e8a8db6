package router

import (
	"net/http"

	"evo-store/internal/handler"
	"evo-store/internal/middleware"
	"evo-store/internal/model"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Products *handler.ProductHandler
	Orders   *handler.OrderHandler
	Payments *handler.PaymentHandler
	Auth     *handler.AuthHandler
	Admin    *handler.AdminHandler
}

// Options holds the cross-cutting settings of the router.
type Options struct {
	Guard       *middleware.Auth
	Limiter     *middleware.RateLimiter
	BotKey      string
	CORSOrigins []string
	Debug       bool
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, model.ErrRouteNotFound, logger)
	})

	guard := opts.Guard
	limit := opts.Limiter.Limit
	admin := func(next httprouter.Handle) httprouter.Handle {
		return guard.RequireAuth(guard.RequireAdmin(next))
	}

	// Health check endpoint (no authentication required)
	router.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Catalogue
	router.GET("/api/products", h.Products.List)
	router.GET("/api/products/:id", h.Products.GetByID)

	// Checkout and tracking
	router.POST("/api/checkout", guard.OptionalAuth(h.Orders.Checkout))
	router.POST("/api/checkout/retry", limit(h.Orders.RetryPayment))
	router.POST("/api/orders/track", limit(h.Orders.Track))
	router.GET("/api/orders/mine", guard.RequireAuth(h.Orders.Mine))
	router.GET("/api/bot/order-status", limit(middleware.BotKey(opts.BotKey, logger)(h.Orders.BotStatus)))

	// Payment gateway
	router.POST("/api/payments/callback", h.Payments.Callback)
	router.GET("/api/payments/return", h.Payments.Return)

	// Accounts
	router.POST("/api/auth/register", limit(h.Auth.Register))
	router.POST("/api/auth/login", limit(h.Auth.Login))
	router.GET("/api/auth/me", guard.RequireAuth(h.Auth.Me))

	// Back office
	router.GET("/api/admin/analytics", admin(h.Admin.Analytics))
	router.GET("/api/admin/orders", admin(h.Admin.ListOrders))
	router.GET("/api/admin/orders/:id", admin(h.Admin.GetOrder))
	router.PUT("/api/admin/orders/:id/shipment", admin(h.Admin.UpdateShipment))
	router.PATCH("/api/admin/orders/:id/status", admin(h.Admin.UpdateStatus))
	router.GET("/api/admin/orders/:id/invoice", admin(h.Admin.Invoice))

	if opts.Debug {
		logger.Warn().Msg("debug endpoint enabled, do not run this in production")
		router.GET("/api/debug", h.Admin.Debug)
	}

	// Apply middleware in order: Recovery -> Logging -> SecurityHeaders -> CORS
	var root http.Handler = router
	root = middleware.CORS(opts.CORSOrigins)(root)
	root = middleware.SecurityHeaders(root)
	root = middleware.Logging(logger)(root)
	root = middleware.Recovery(logger)(root)

	return root
}
