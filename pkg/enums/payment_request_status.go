package enums

import "fmt"

// PaymentRequestStatus tracks the lifecycle of an admin-issued payment ask.
// paid, expired and cancelled are terminal.
type PaymentRequestStatus string

const (
	PaymentRequestStatusPending   PaymentRequestStatus = "pending"
	PaymentRequestStatusPaid      PaymentRequestStatus = "paid"
	PaymentRequestStatusExpired   PaymentRequestStatus = "expired"
	PaymentRequestStatusCancelled PaymentRequestStatus = "cancelled"
)

var validPaymentRequestStatuses = []PaymentRequestStatus{
	PaymentRequestStatusPending,
	PaymentRequestStatusPaid,
	PaymentRequestStatusExpired,
	PaymentRequestStatusCancelled,
}

// String implements fmt.Stringer.
func (p PaymentRequestStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentRequestStatus.
func (p PaymentRequestStatus) IsValid() bool {
	for _, candidate := range validPaymentRequestStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the request can no longer change state.
func (p PaymentRequestStatus) IsTerminal() bool {
	return p != PaymentRequestStatusPending
}

// ParsePaymentRequestStatus converts raw input into a PaymentRequestStatus.
func ParsePaymentRequestStatus(value string) (PaymentRequestStatus, error) {
	for _, candidate := range validPaymentRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment request status %q", value)
}
