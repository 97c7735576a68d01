package paypal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"

	"github.com/Omkark04/agency-platform-backend/pkg/config"
	"github.com/Omkark04/agency-platform-backend/pkg/logger"
)

var (
	errClientIDRequired = errors.New("paypal client id is required")
	errSecretRequired   = errors.New("paypal secret is required")
)

// CheckoutOrder is the subset of a created PayPal order the rest of the
// system cares about.
type CheckoutOrder struct {
	ID          string
	Status      string
	ApprovalURL string
}

// CaptureResult reports the outcome of capturing an approved PayPal order.
type CaptureResult struct {
	OrderID   string
	CaptureID string
	Status    string
}

// Client wraps the PayPal REST SDK.
type Client struct {
	api *paypal.Client
}

// NewClient initializes the PayPal SDK against the configured environment.
func NewClient(ctx context.Context, cfg config.PayPalConfig, logg *logger.Logger) (*Client, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, errClientIDRequired
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errSecretRequired
	}

	base := paypal.APIBaseSandBox
	if cfg.IsLive() {
		base = paypal.APIBaseLive
	}

	api, err := paypal.NewClient(clientID, secret, base)
	if err != nil {
		return nil, fmt.Errorf("paypal client init: %w", err)
	}
	if cfg.Timeout > 0 {
		api.Client = &http.Client{Timeout: cfg.Timeout}
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "mode", cfg.Mode), "paypal client initialized")
	}

	return &Client{api: api}, nil
}

// CreateOrder mints a CAPTURE-intent order for the exact amount and returns
// its id plus the buyer approval link.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, description string) (CheckoutOrder, error) {
	if c == nil || c.api == nil {
		return CheckoutOrder{}, errors.New("paypal client not initialized")
	}

	units := []paypal.PurchaseUnitRequest{
		{
			Amount: &paypal.PurchaseUnitAmount{
				Currency: currency,
				Value:    amount.StringFixed(2),
			},
			Description: description,
		},
	}
	appCtx := &paypal.ApplicationContext{
		UserAction: paypal.UserActionPayNow,
	}

	order, err := c.api.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, appCtx)
	if err != nil {
		return CheckoutOrder{}, fmt.Errorf("paypal order create: %w", err)
	}
	if order == nil || order.ID == "" {
		return CheckoutOrder{}, fmt.Errorf("paypal order create: missing order id in response")
	}

	out := CheckoutOrder{
		ID:     order.ID,
		Status: order.Status,
	}
	for _, link := range order.Links {
		if link.Rel == "approve" {
			out.ApprovalURL = link.Href
			break
		}
	}
	return out, nil
}

// CaptureOrder captures an approved order. The capture id is the gateway
// transaction reference recorded against the settlement.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (CaptureResult, error) {
	if c == nil || c.api == nil {
		return CaptureResult{}, errors.New("paypal client not initialized")
	}

	resp, err := c.api.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return CaptureResult{}, fmt.Errorf("paypal order capture: %w", err)
	}
	if resp == nil || resp.ID == "" {
		return CaptureResult{}, fmt.Errorf("paypal order capture: empty response")
	}

	result := CaptureResult{
		OrderID: resp.ID,
		Status:  resp.Status,
	}
	for _, unit := range resp.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, capture := range unit.Payments.Captures {
			if capture.ID != "" {
				result.CaptureID = capture.ID
				break
			}
		}
	}
	if result.CaptureID == "" {
		result.CaptureID = resp.ID
	}
	return result, nil
}
