package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"evo-store/internal/model"
	"evo-store/internal/service"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// AdminHandler handles back-office requests. Routes are expected to sit
// behind RequireAuth and RequireAdmin.
type AdminHandler struct {
	service service.AdminService
	logger  zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(service service.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With().Str("handler", "admin").Logger(),
	}
}

func orderID(ps httprouter.Params) (uuid.UUID, error) {
	id, err := uuid.Parse(ps.ByName("id"))
	if err != nil {
		return uuid.Nil, model.ErrOrderNotFound
	}
	return id, nil
}

// Analytics handles GET /api/admin/analytics requests.
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	result, err := h.service.Analytics(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListOrders handles GET /api/admin/orders requests.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var filter model.OrderListFilter

	if s := r.URL.Query().Get("status"); s != "" {
		status, err := model.ParseOrderStatus(s)
		if err != nil {
			WriteError(w, err, h.logger)
			return
		}
		filter.Status = &status
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit", 20); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	orders, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetOrder handles GET /api/admin/orders/:id requests.
func (h *AdminHandler) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := orderID(ps)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateShipment handles PUT /api/admin/orders/:id/shipment requests.
func (h *AdminHandler) UpdateShipment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := orderID(ps)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	var req model.ShipmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	order, err := h.service.UpdateShipment(r.Context(), id, &req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PATCH /api/admin/orders/:id/status requests.
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := orderID(ps)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	var req model.StatusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Invoice handles GET /api/admin/orders/:id/invoice requests.
func (h *AdminHandler) Invoice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := orderID(ps)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	order, pdf, err := h.service.Invoice(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="invoice-%s.pdf"`, order.OrderNumber))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.logger.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("failed to write invoice")
	}
}

// Debug handles GET /api/debug requests. Only registered when diagnostics
// are enabled.
func (h *AdminHandler) Debug(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	info, err := h.service.Debug(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, info)
}
