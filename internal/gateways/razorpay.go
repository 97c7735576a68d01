package gateways

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-retry"

	"github.com/Omkark04/agency-platform-backend/pkg/enums"
	pkgerrors "github.com/Omkark04/agency-platform-backend/pkg/errors"
	rzp "github.com/Omkark04/agency-platform-backend/pkg/razorpay"
)

// RazorpayCheckout adapts the Razorpay client to the Checkout boundary.
type RazorpayCheckout struct {
	client     *rzp.Client
	maxRetries uint64
	backoff    retryBackoff
}

// NewRazorpayCheckout wires the Razorpay adapter. Gateway calls are retried
// a bounded number of times before surfacing GatewayError.
func NewRazorpayCheckout(client *rzp.Client, opts RetryOptions) (*RazorpayCheckout, error) {
	if client == nil {
		return nil, fmt.Errorf("razorpay client required")
	}
	opts = opts.withDefaults()
	return &RazorpayCheckout{
		client:     client,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
	}, nil
}

// Name implements Checkout.
func (r *RazorpayCheckout) Name() enums.Gateway {
	return enums.GatewayRazorpay
}

// CreateSession mints a gateway order for the exact session amount.
func (r *RazorpayCheckout) CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error) {
	notes := map[string]interface{}{}
	if req.Description != "" {
		notes["description"] = req.Description
	}
	if req.CustomerEmail != "" {
		notes["customer_email"] = req.CustomerEmail
	}

	var gatewayOrderID string
	err := retry.Do(ctx, retry.WithMaxRetries(r.maxRetries, retry.NewConstant(r.backoff.interval())), func(ctx context.Context) error {
		id, err := r.client.CreateOrder(ctx, req.Amount, req.Currency, req.Receipt, notes)
		if err != nil {
			return retry.RetryableError(err)
		}
		gatewayOrderID = id
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayError, err, "razorpay checkout unavailable")
	}

	return &SessionResult{
		GatewayOrderID: gatewayOrderID,
		RazorpayKey:    r.client.KeyID(),
	}, nil
}

// VerifyProof checks the client-supplied checkout signature. The check is
// local, so a mismatch is terminal rather than retryable.
func (r *RazorpayCheckout) VerifyProof(_ context.Context, proof Proof) (*VerifiedPayment, error) {
	if proof.GatewayOrderID == "" || proof.PaymentID == "" || proof.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "razorpay proof requires order id, payment id and signature")
	}
	if !r.client.VerifySignature(proof.GatewayOrderID, proof.PaymentID, proof.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "razorpay signature mismatch")
	}
	return &VerifiedPayment{
		GatewayTransactionID: proof.PaymentID,
		GatewayOrderID:       proof.GatewayOrderID,
	}, nil
}
