package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"evo-store/internal/model"

	"github.com/rs/zerolog"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

var errInvalidJSON = model.NewDomainError(model.ErrCodeInvalidJSON, "Invalid request body")

var internalError = model.ErrorResponse{
	Error:   model.ErrCodeInternalError,
	Message: "An unexpected error occurred",
}

// codeStatus maps domain error codes to HTTP status codes.
var codeStatus = map[string]int{
	model.ErrCodeInvalidJSON:         http.StatusBadRequest,
	model.ErrCodeMissingField:        http.StatusBadRequest,
	model.ErrCodeInvalidQuantity:     http.StatusBadRequest,
	model.ErrCodeInvalidPhone:        http.StatusBadRequest,
	model.ErrCodeInvalidEmail:        http.StatusBadRequest,
	model.ErrCodeWeakPassword:        http.StatusBadRequest,
	model.ErrCodeOutOfStock:          http.StatusBadRequest,
	model.ErrCodeProductUnavailable:  http.StatusBadRequest,
	model.ErrCodeInvalidStatus:       http.StatusBadRequest,
	model.ErrCodeInvalidCallbackData: http.StatusBadRequest,
	model.ErrCodeInvalidTransition:   http.StatusConflict,
	model.ErrCodeProductNotFound:     http.StatusNotFound,
	model.ErrCodeOrderNotFound:       http.StatusNotFound,
	model.ErrCodeOrderMismatch:       http.StatusNotFound,
	model.ErrCodeUserNotFound:        http.StatusNotFound,
	model.ErrCodeNotFound:            http.StatusNotFound,
	model.ErrCodeEmailTaken:          http.StatusConflict,
	model.ErrCodeDuplicateReference:  http.StatusConflict,
	model.ErrCodeInvalidCredentials:  http.StatusUnauthorized,
	model.ErrCodeUnauthorised:        http.StatusUnauthorized,
	model.ErrCodeForbidden:           http.StatusForbidden,
	model.ErrCodeTooManyRequests:     http.StatusTooManyRequests,
	model.ErrCodeGatewayUnavailable:  http.StatusBadGateway,
}

// StatusFor maps an error to its HTTP status and client-safe body. Errors
// that are not domain errors become a generic 500.
func StatusFor(err error) (int, model.ErrorResponse) {
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError, internalError
	}

	status, ok := codeStatus[domainErr.Code]
	if !ok {
		status = http.StatusBadRequest
	}

	body := model.ErrorResponse{Error: domainErr.Code, Message: domainErr.Message}
	if domainErr.Code == model.ErrCodeGatewayUnavailable {
		body.Retryable = true
	}

	var checkoutErr *model.CheckoutError
	if errors.As(err, &checkoutErr) {
		body.OrderNumber = checkoutErr.OrderNumber
	}

	return status, body
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// WriteError writes the response for err. Server-side failures are logged
// with their detail; the client only sees the generic body.
func WriteError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	status, body := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Str("code", body.Error).Msg("handler error")
	} else {
		logger.Debug().Int("status", status).Str("code", body.Error).Msg("request rejected")
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidJSON
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, model.ValidationError("Invalid " + name + " parameter")
	}
	return n, nil
}
