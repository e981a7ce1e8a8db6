package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"evo-store/internal/config"
	"evo-store/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Name is stored in payments.gateway for bills created by this client.
const Name = "toyyibpay"

var (
	// ErrNotConfigured is returned when secret key or category code are missing.
	ErrNotConfigured = errors.New("payment gateway is not configured")
	// ErrBadResponse is returned when the gateway answers with an unexpected payload.
	ErrBadResponse = errors.New("unexpected payment gateway response")
)

// BillRequest describes a bill to create for an order.
type BillRequest struct {
	OrderNumber string
	Amount      decimal.Decimal
	Name        string
	Email       string
	Phone       string
	Description string
}

// Bill is a created gateway bill.
type Bill struct {
	Code       string
	PaymentURL string
}

// Client is the payment gateway used by checkout and callback verification.
type Client interface {
	CreateBill(ctx context.Context, req BillRequest) (*Bill, error)
	BillStatus(ctx context.Context, billCode string) (model.GatewayStatus, error)
}

type client struct {
	cfg        config.PaymentConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a gateway client with a bounded per-request timeout.
func New(cfg config.PaymentConfig, logger zerolog.Logger) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "gateway").Logger(),
	}
}

// CreateBill registers a bill for the order and returns its payment page URL.
func (c *client) CreateBill(ctx context.Context, req BillRequest) (*Bill, error) {
	if c.cfg.SecretKey == "" || c.cfg.CategoryCode == "" {
		return nil, ErrNotConfigured
	}

	form := url.Values{}
	form.Set("userSecretKey", c.cfg.SecretKey)
	form.Set("categoryCode", c.cfg.CategoryCode)
	form.Set("billName", truncate("Order "+req.OrderNumber, 30))
	form.Set("billDescription", truncate(req.Description, 100))
	form.Set("billPriceSetting", "1")
	form.Set("billPayorInfo", "1")
	form.Set("billAmount", toCents(req.Amount))
	form.Set("billReturnUrl", c.cfg.ReturnURL)
	form.Set("billCallbackUrl", c.cfg.CallbackURL)
	form.Set("billExternalReferenceNo", req.OrderNumber)
	form.Set("billTo", req.Name)
	form.Set("billEmail", req.Email)
	form.Set("billPhone", req.Phone)

	var created []struct {
		BillCode string `json:"BillCode"`
	}
	if err := c.post(ctx, "/index.php/api/createBill", form, &created); err != nil {
		c.logger.Error().Err(err).Str("order_number", req.OrderNumber).Msg("failed to create bill")
		return nil, err
	}

	if len(created) == 0 || created[0].BillCode == "" {
		c.logger.Error().Str("order_number", req.OrderNumber).Msg("gateway returned no bill code")
		return nil, ErrBadResponse
	}

	code := created[0].BillCode
	c.logger.Info().
		Str("order_number", req.OrderNumber).
		Str("bill_code", code).
		Msg("bill created")

	return &Bill{
		Code:       code,
		PaymentURL: strings.TrimRight(c.cfg.BaseURL, "/") + "/" + code,
	}, nil
}

// BillStatus asks the gateway for the latest status of a bill. A bill with no
// transactions yet is reported as pending.
func (c *client) BillStatus(ctx context.Context, billCode string) (model.GatewayStatus, error) {
	form := url.Values{}
	form.Set("billCode", billCode)

	var txns []struct {
		Status string `json:"billpaymentStatus"`
	}
	if err := c.post(ctx, "/index.php/api/getBillTransactions", form, &txns); err != nil {
		c.logger.Error().Err(err).Str("bill_code", billCode).Msg("failed to query bill status")
		return 0, err
	}

	status := model.GatewayStatusPending
	for _, txn := range txns {
		s, err := model.ParseGatewayStatus(txn.Status)
		if err != nil {
			continue
		}
		if s == model.GatewayStatusSuccess {
			return s, nil
		}
		status = s
	}

	return status, nil
}

func (c *client) post(ctx context.Context, path string, form url.Values, out any) error {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	return nil
}

// toCents renders an amount in the gateway's smallest currency unit.
func toCents(amount decimal.Decimal) string {
	return amount.Shift(2).Round(0).String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
