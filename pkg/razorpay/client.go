package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	"github.com/Omkark04/agency-platform-backend/pkg/config"
	"github.com/Omkark04/agency-platform-backend/pkg/logger"
)

var (
	errKeyIDRequired  = errors.New("razorpay key id is required")
	errSecretRequired = errors.New("razorpay key secret is required")
)

// Client wraps the Razorpay SDK plus the secret needed for signature checks.
type Client struct {
	api    *razorpay.Client
	keyID  string
	secret string
}

// NewClient initializes the Razorpay SDK once with the configured credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	secret := strings.TrimSpace(cfg.KeySecret)
	if secret == "" {
		return nil, errSecretRequired
	}

	api := razorpay.NewClient(keyID, secret)

	if logg != nil {
		logg.Info(ctx, "razorpay client initialized")
	}

	return &Client{
		api:    api,
		keyID:  keyID,
		secret: secret,
	}, nil
}

// KeyID returns the public key the checkout widget needs.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// CreateOrder mints a gateway order for the exact amount (in the smallest
// currency unit) and returns the gateway-assigned order id.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]interface{}) (string, error) {
	if c == nil || c.api == nil {
		return "", errors.New("razorpay client not initialized")
	}

	data := map[string]interface{}{
		"amount":   amount.Shift(2).IntPart(),
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := c.api.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay order create: %w", err)
	}

	orderID, ok := body["id"].(string)
	if !ok || orderID == "" {
		return "", fmt.Errorf("razorpay order create: missing order id in response")
	}
	return orderID, nil
}

// VerifySignature recomputes the checkout HMAC over "order_id|payment_id" and
// compares it to the supplied signature in constant time.
func (c *Client) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	if c == nil || c.secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
