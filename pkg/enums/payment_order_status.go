package enums

import "fmt"

// PaymentOrderStatus mirrors the lifecycle of a gateway checkout session.
type PaymentOrderStatus string

const (
	PaymentOrderStatusCreated   PaymentOrderStatus = "created"
	PaymentOrderStatusAttempted PaymentOrderStatus = "attempted"
	PaymentOrderStatusPaid      PaymentOrderStatus = "paid"
	PaymentOrderStatusFailed    PaymentOrderStatus = "failed"
	PaymentOrderStatusExpired   PaymentOrderStatus = "expired"
)

var validPaymentOrderStatuses = []PaymentOrderStatus{
	PaymentOrderStatusCreated,
	PaymentOrderStatusAttempted,
	PaymentOrderStatusPaid,
	PaymentOrderStatusFailed,
	PaymentOrderStatusExpired,
}

// String implements fmt.Stringer.
func (p PaymentOrderStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentOrderStatus.
func (p PaymentOrderStatus) IsValid() bool {
	for _, candidate := range validPaymentOrderStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentOrderStatus converts raw input into a PaymentOrderStatus.
func ParsePaymentOrderStatus(value string) (PaymentOrderStatus, error) {
	for _, candidate := range validPaymentOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment order status %q", value)
}
