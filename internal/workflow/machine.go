package workflow

import (
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
)

// allowedTransitions is the static forward-only adjacency table for order
// statuses. Every non-terminal status may move to its immediate successor or
// exit early to closed. The three progress milestones may additionally skip
// forward when intermediate updates were never logged. Backward edges do not
// exist.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusApproved,
		enums.OrderStatusClosed,
	},
	enums.OrderStatusApproved: {
		enums.OrderStatusEstimationSent,
		enums.OrderStatusClosed,
	},
	enums.OrderStatusEstimationSent: {
		enums.OrderStatusInProgress,
		enums.OrderStatusClosed,
	},
	enums.OrderStatusInProgress: {
		enums.OrderStatusQuarterDone,
		enums.OrderStatusClosed,
	},
	enums.OrderStatusQuarterDone: {
		enums.OrderStatusHalfDone,
		enums.OrderStatusThreeQuarterDone,
		enums.OrderStatusReadyForDelivery,
		enums.OrderStatusClosed,
	},
	enums.OrderStatusHalfDone: {
		enums.OrderStatusThreeQuarterDone,
		enums.OrderStatusReadyForDelivery,
		enums.OrderStatusClosed,
	},
	enums.OrderStatusThreeQuarterDone: {
		enums.OrderStatusReadyForDelivery,
		enums.OrderStatusClosed,
	},
	enums.OrderStatusReadyForDelivery: {
		enums.OrderStatusDelivered,
		enums.OrderStatusClosed,
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusPaymentPending,
		enums.OrderStatusClosed,
	},
	enums.OrderStatusPaymentPending: {
		enums.OrderStatusPaymentDone,
		enums.OrderStatusClosed,
	},
	enums.OrderStatusPaymentDone: {
		enums.OrderStatusClosed,
	},
	enums.OrderStatusClosed: {},
}

// AllowedNextStatuses returns the statuses reachable from current in one
// accepted transition. The returned slice is a copy.
func AllowedNextStatuses(current enums.OrderStatus) []enums.OrderStatus {
	targets, ok := allowedTransitions[current]
	if !ok {
		return nil
	}
	next := make([]enums.OrderStatus, len(targets))
	copy(next, targets)
	return next
}

// CanTransition reports whether moving from one status to another is an
// accepted edge in the adjacency table.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, target := range allowedTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}
