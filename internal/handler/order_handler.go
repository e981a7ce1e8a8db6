package handler

import (
	"net/http"

	"evo-store/internal/auth"
	"evo-store/internal/model"
	"evo-store/internal/service"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// OrderHandler handles checkout and order lookup requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Checkout handles POST /api/checkout requests. A valid bearer token links
// the order to the signed-in user.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		userID := claims.UserID
		req.UserID = &userID
	}

	resp, err := h.service.Checkout(r.Context(), &req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// RetryPayment handles POST /api/checkout/retry requests.
func (h *OrderHandler) RetryPayment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RetryPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	resp, err := h.service.RetryPayment(r.Context(), &req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Track handles POST /api/orders/track requests.
func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.TrackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	detail, err := h.service.Track(r.Context(), &req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// Mine handles GET /api/orders/mine requests.
func (h *OrderHandler) Mine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrUnauthorized, h.logger)
		return
	}

	orders, err := h.service.ListMine(r.Context(), claims.UserID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	details := make([]model.OrderDetail, 0, len(orders))
	for i := range orders {
		details = append(details, *model.NewOrderDetail(&orders[i], nil))
	}

	writeJSON(w, http.StatusOK, details)
}

// BotStatus handles GET /api/bot/order-status requests.
func (h *OrderHandler) BotStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	details, err := h.service.BotLookup(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.BotOrdersResponse{Orders: details})
}
