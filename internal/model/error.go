package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error       string `json:"error"`
	Message     string `json:"message"`
	Retryable   bool   `json:"retryable,omitempty"`
	OrderNumber string `json:"orderNumber,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeMissingField        = "MISSING_FIELD"
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeInvalidPhone        = "INVALID_PHONE"
	ErrCodeInvalidEmail        = "INVALID_EMAIL"
	ErrCodeWeakPassword        = "WEAK_PASSWORD"
	ErrCodeOutOfStock          = "OUT_OF_STOCK"
	ErrCodeProductUnavailable  = "PRODUCT_UNAVAILABLE"
	ErrCodeInvalidStatus       = "INVALID_STATUS"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeProductNotFound     = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeOrderMismatch       = "ORDER_MISMATCH"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeGatewayUnavailable  = "GATEWAY_UNAVAILABLE"
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeDuplicateReference  = "DUPLICATE_REFERENCE"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeInvalidCallbackData = "INVALID_CALLBACK"
	ErrCodeNotFound            = "NOT_FOUND"
)

// DomainError is a business-logic failure with a stable, client-safe code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidQuantity    = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidPhone       = NewDomainError(ErrCodeInvalidPhone, "Phone number must contain 9 to 15 digits")
	ErrInvalidEmail       = NewDomainError(ErrCodeInvalidEmail, "Email address is not valid")
	ErrWeakPassword       = NewDomainError(ErrCodeWeakPassword, "Password must be at least 8 characters")
	ErrOutOfStock         = NewDomainError(ErrCodeOutOfStock, "One or more products are out of stock")
	ErrProductUnavailable = NewDomainError(ErrCodeProductUnavailable, "One or more products are not available")
	ErrInvalidStatus      = NewDomainError(ErrCodeInvalidStatus, "Unknown order status")
	ErrInvalidTransition  = NewDomainError(ErrCodeInvalidTransition, "Order cannot move to the requested status")
	ErrProductNotFound    = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrOrderNotFound      = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrOrderMismatch      = NewDomainError(ErrCodeOrderMismatch, "Order not found or details do not match")
	ErrUserNotFound       = NewDomainError(ErrCodeUserNotFound, "User not found")
	ErrGatewayUnavailable = NewDomainError(ErrCodeGatewayUnavailable, "Payment service is temporarily unavailable, please try again")
	ErrEmailTaken         = NewDomainError(ErrCodeEmailTaken, "An account with this email already exists")
	ErrDuplicateReference = NewDomainError(ErrCodeDuplicateReference, "Payment reference already recorded")
	ErrInvalidCredentials = NewDomainError(ErrCodeInvalidCredentials, "Invalid email or password")
	ErrUnauthorized       = NewDomainError(ErrCodeUnauthorised, "Authentication required")
	ErrForbidden          = NewDomainError(ErrCodeForbidden, "Admin access required")
	ErrInvalidCallback    = NewDomainError(ErrCodeInvalidCallbackData, "Invalid payment callback")
	ErrRouteNotFound      = NewDomainError(ErrCodeNotFound, "Route not found")
)

// ValidationError reports a missing or malformed request field.
func ValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeMissingField, message)
}

// CheckoutError carries the order number of an order that was persisted
// before a later step (the gateway request) failed.
type CheckoutError struct {
	OrderNumber string
	Err         error
}

func (e *CheckoutError) Error() string {
	return e.Err.Error()
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}
