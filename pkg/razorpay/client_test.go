package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/Omkark04/agency-platform-backend/pkg/config"
)

func TestNewClientValidation(t *testing.T) {
	ctx := context.Background()

	if _, err := NewClient(ctx, config.RazorpayConfig{KeySecret: "secret"}, nil); err == nil {
		t.Fatal("expected error for missing key id")
	}
	if _, err := NewClient(ctx, config.RazorpayConfig{KeyID: "rzp_test_key"}, nil); err == nil {
		t.Fatal("expected error for missing key secret")
	}

	client, err := NewClient(ctx, config.RazorpayConfig{KeyID: "rzp_test_key", KeySecret: "secret"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.KeyID() != "rzp_test_key" {
		t.Fatalf("unexpected key id %q", client.KeyID())
	}
}

func TestVerifySignature(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(ctx, config.RazorpayConfig{KeyID: "rzp_test_key", KeySecret: "topsecret"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	orderID := "order_abc123"
	paymentID := "pay_def456"

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write([]byte(orderID + "|" + paymentID))
	valid := hex.EncodeToString(mac.Sum(nil))

	if !client.VerifySignature(orderID, paymentID, valid) {
		t.Fatal("expected valid signature to verify")
	}
	if client.VerifySignature(orderID, paymentID, valid+"00") {
		t.Fatal("expected tampered signature to fail")
	}
	if client.VerifySignature(orderID, "pay_other", valid) {
		t.Fatal("expected signature for different payment to fail")
	}
	if client.VerifySignature(orderID, paymentID, "") {
		t.Fatal("expected empty signature to fail")
	}
}
