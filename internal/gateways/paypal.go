package gateways

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-retry"

	"github.com/Omkark04/agency-platform-backend/pkg/enums"
	pkgerrors "github.com/Omkark04/agency-platform-backend/pkg/errors"
	pp "github.com/Omkark04/agency-platform-backend/pkg/paypal"
)

// PayPalCheckout adapts the PayPal client to the Checkout boundary.
type PayPalCheckout struct {
	client     *pp.Client
	maxRetries uint64
	backoff    retryBackoff
}

// NewPayPalCheckout wires the PayPal adapter.
func NewPayPalCheckout(client *pp.Client, opts RetryOptions) (*PayPalCheckout, error) {
	if client == nil {
		return nil, fmt.Errorf("paypal client required")
	}
	opts = opts.withDefaults()
	return &PayPalCheckout{
		client:     client,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
	}, nil
}

// Name implements Checkout.
func (p *PayPalCheckout) Name() enums.Gateway {
	return enums.GatewayPayPal
}

// CreateSession opens an approval flow for the exact session amount.
func (p *PayPalCheckout) CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error) {
	var order pp.CheckoutOrder
	err := retry.Do(ctx, retry.WithMaxRetries(p.maxRetries, retry.NewConstant(p.backoff.interval())), func(ctx context.Context) error {
		created, err := p.client.CreateOrder(ctx, req.Amount, req.Currency, req.Description)
		if err != nil {
			return retry.RetryableError(err)
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayError, err, "paypal checkout unavailable")
	}

	return &SessionResult{
		GatewayOrderID: order.ID,
		ApprovalURL:    order.ApprovalURL,
	}, nil
}

// VerifyProof captures the approved order server-side. Client-supplied ids
// alone are never trusted; only a completed capture counts as verified.
func (p *PayPalCheckout) VerifyProof(ctx context.Context, proof Proof) (*VerifiedPayment, error) {
	orderID := proof.GatewayOrderID
	if orderID == "" {
		orderID = proof.PaymentID
	}
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paypal proof requires the gateway order id")
	}

	var capture pp.CaptureResult
	err := retry.Do(ctx, retry.WithMaxRetries(p.maxRetries, retry.NewConstant(p.backoff.interval())), func(ctx context.Context) error {
		result, err := p.client.CaptureOrder(ctx, orderID)
		if err != nil {
			return retry.RetryableError(err)
		}
		capture = result
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeVerificationFailed, err, "paypal capture failed")
	}
	if !strings.EqualFold(capture.Status, "COMPLETED") {
		return nil, pkgerrors.New(pkgerrors.CodeVerificationFailed,
			fmt.Sprintf("paypal capture ended in status %s", capture.Status))
	}

	return &VerifiedPayment{
		GatewayTransactionID: capture.CaptureID,
		GatewayOrderID:       capture.OrderID,
	}, nil
}
