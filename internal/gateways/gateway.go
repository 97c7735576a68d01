package gateways

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Omkark04/agency-platform-backend/pkg/enums"
)

// SessionRequest carries what an adapter needs to open a checkout session.
type SessionRequest struct {
	Amount        decimal.Decimal
	Currency      string
	Receipt       string
	Description   string
	CustomerName  string
	CustomerEmail string
}

// SessionResult is the gateway-side handle for a freshly opened session.
type SessionResult struct {
	GatewayOrderID string
	// RazorpayKey is set by the Razorpay adapter for the checkout widget.
	RazorpayKey string
	// ApprovalURL is set by the PayPal adapter for the buyer redirect.
	ApprovalURL string
}

// Proof is the client-supplied evidence that a checkout completed. Which
// fields are set depends on the gateway.
type Proof struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
	PayerID        string
}

// VerifiedPayment identifies the settled money movement at the gateway.
type VerifiedPayment struct {
	GatewayTransactionID string
	GatewayOrderID       string
}

// Checkout is the per-gateway adapter boundary. Adapters own transport,
// bounded retries and proof validation for their provider.
type Checkout interface {
	Name() enums.Gateway
	CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error)
	VerifyProof(ctx context.Context, proof Proof) (*VerifiedPayment, error)
}
