package handler

import (
	"net/http"
	"net/url"
	"strings"

	"evo-store/internal/model"
	"evo-store/internal/service"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// PaymentHandler receives payment gateway notifications.
type PaymentHandler struct {
	service     service.PaymentService
	redirectURL string
	logger      zerolog.Logger
}

// NewPaymentHandler creates a new payment handler. Customers coming back
// from the gateway are redirected to redirectURL.
func NewPaymentHandler(service service.PaymentService, redirectURL string, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:     service,
		redirectURL: redirectURL,
		logger:      logger.With().Str("handler", "payment").Logger(),
	}
}

// parseCallback reads the gateway fields. The server-to-server post names
// the status "status"; the browser redirect names it "status_id".
func parseCallback(values url.Values) (model.PaymentCallback, error) {
	raw := values.Get("status_id")
	if raw == "" {
		raw = values.Get("status")
	}

	status, err := model.ParseGatewayStatus(strings.TrimSpace(raw))
	if err != nil {
		return model.PaymentCallback{}, err
	}

	return model.PaymentCallback{
		Status:      status,
		OrderNumber: strings.TrimSpace(values.Get("order_id")),
		BillCode:    strings.TrimSpace(values.Get("billcode")),
		RefNo:       strings.TrimSpace(values.Get("refno")),
	}, nil
}

// Callback handles POST /api/payments/callback requests.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		WriteError(w, model.ErrInvalidCallback, h.logger)
		return
	}

	cb, err := parseCallback(r.Form)
	if err != nil {
		h.logger.Warn().Str("order_id", r.Form.Get("order_id")).Msg("malformed payment callback")
		WriteError(w, err, h.logger)
		return
	}

	result, err := h.service.HandleCallback(r.Context(), cb)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Return handles GET /api/payments/return, where the gateway sends the
// customer after paying. The outcome is confirmed with the gateway before it
// is applied, and the customer is redirected to the tracking page.
func (h *PaymentHandler) Return(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	orderNumber := strings.TrimSpace(query.Get("order_id"))

	status := "unknown"
	cb, err := parseCallback(query)
	if err == nil {
		var result *model.CallbackResult
		result, err = h.service.HandleReturn(r.Context(), cb)
		if err == nil {
			status = string(result.Status)
		}
	}
	if err != nil {
		httpStatus, _ := StatusFor(err)
		h.logger.Warn().Err(err).Int("status", httpStatus).Str("order_id", orderNumber).Msg("payment return not applied")
	}

	if h.redirectURL == "" {
		writeJSON(w, http.StatusOK, model.CallbackResult{OrderNumber: orderNumber, Status: model.OrderStatus(status)})
		return
	}

	target := h.redirectURL + "?" + url.Values{
		"order":  {orderNumber},
		"status": {status},
	}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}
