package enums

import "fmt"

// OrderStatus walks an order through the delivery pipeline. The declaration
// order is canonical: Step reports the 1-based position in the pipeline.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusApproved         OrderStatus = "approved"
	OrderStatusEstimationSent   OrderStatus = "estimation_sent"
	OrderStatusInProgress       OrderStatus = "in_progress"
	OrderStatusQuarterDone      OrderStatus = "25_done"
	OrderStatusHalfDone         OrderStatus = "50_done"
	OrderStatusThreeQuarterDone OrderStatus = "75_done"
	OrderStatusReadyForDelivery OrderStatus = "ready_for_delivery"
	OrderStatusDelivered        OrderStatus = "delivered"
	OrderStatusPaymentPending   OrderStatus = "payment_pending"
	OrderStatusPaymentDone      OrderStatus = "payment_done"
	OrderStatusClosed           OrderStatus = "closed"
)

var orderStatusPipeline = []OrderStatus{
	OrderStatusPending,
	OrderStatusApproved,
	OrderStatusEstimationSent,
	OrderStatusInProgress,
	OrderStatusQuarterDone,
	OrderStatusHalfDone,
	OrderStatusThreeQuarterDone,
	OrderStatusReadyForDelivery,
	OrderStatusDelivered,
	OrderStatusPaymentPending,
	OrderStatusPaymentDone,
	OrderStatusClosed,
}

var orderStatusDisplay = map[OrderStatus]string{
	OrderStatusPending:          "Pending",
	OrderStatusApproved:         "Approved",
	OrderStatusEstimationSent:   "Estimation Sent",
	OrderStatusInProgress:       "In Progress",
	OrderStatusQuarterDone:      "25% Done",
	OrderStatusHalfDone:         "50% Done",
	OrderStatusThreeQuarterDone: "75% Done",
	OrderStatusReadyForDelivery: "Ready for Delivery",
	OrderStatusDelivered:        "Delivered",
	OrderStatusPaymentPending:   "Payment Pending",
	OrderStatusPaymentDone:      "Payment Done",
	OrderStatusClosed:           "Closed",
}

// Display progress is derived, never stored.
var orderStatusProgress = map[OrderStatus]int{
	OrderStatusPending:          0,
	OrderStatusApproved:         10,
	OrderStatusEstimationSent:   15,
	OrderStatusInProgress:       20,
	OrderStatusQuarterDone:      25,
	OrderStatusHalfDone:         50,
	OrderStatusThreeQuarterDone: 75,
	OrderStatusReadyForDelivery: 85,
	OrderStatusDelivered:        90,
	OrderStatusPaymentPending:   95,
	OrderStatusPaymentDone:      100,
	OrderStatusClosed:           100,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range orderStatusPipeline {
		if candidate == o {
			return true
		}
	}
	return false
}

// Step returns the 1-based pipeline position, or 0 for unknown values.
func (o OrderStatus) Step() int {
	for i, candidate := range orderStatusPipeline {
		if candidate == o {
			return i + 1
		}
	}
	return 0
}

// Progress returns the display progress percentage for the status.
func (o OrderStatus) Progress() int {
	return orderStatusProgress[o]
}

// Display returns the human-readable label for the status.
func (o OrderStatus) Display() string {
	if label, ok := orderStatusDisplay[o]; ok {
		return label
	}
	return string(o)
}

// IsTerminal reports whether no further transition is permitted.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusClosed
}

// OrderStatusPipeline returns the canonical pipeline ordering.
func OrderStatusPipeline() []OrderStatus {
	pipeline := make([]OrderStatus, len(orderStatusPipeline))
	copy(pipeline, orderStatusPipeline)
	return pipeline
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range orderStatusPipeline {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
