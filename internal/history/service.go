package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/Omkark04/agency-platform-backend/pkg/db/models"
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
)

// Service defines operations over the append-only status history.
type Service interface {
	RecordTransition(ctx context.Context, input RecordTransitionInput) (*models.OrderStatusHistory, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
}

type service struct {
	repo Repository
}

// RecordTransitionInput captures the immutable data a history entry requires.
// FromStatus is nil only for the creation entry of a new order.
type RecordTransitionInput struct {
	OrderID    uuid.UUID          `json:"order_id"`
	FromStatus *enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus  `json:"to_status"`
	ChangedBy  string             `json:"changed_by"`
	Notes      string             `json:"notes"`
	Metadata   json.RawMessage    `json:"metadata"`
}

// NewService wires a history service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordTransition(ctx context.Context, input RecordTransitionInput) (*models.OrderStatusHistory, error) {
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if input.FromStatus != nil && !input.FromStatus.IsValid() {
		return nil, fmt.Errorf("invalid from status %q", *input.FromStatus)
	}
	if !input.ToStatus.IsValid() {
		return nil, fmt.Errorf("invalid to status %q", input.ToStatus)
	}
	if input.ChangedBy == "" {
		return nil, fmt.Errorf("changed by is required")
	}

	entry := &models.OrderStatusHistory{
		OrderID:    input.OrderID,
		FromStatus: input.FromStatus,
		ToStatus:   input.ToStatus,
		ChangedBy:  input.ChangedBy,
		Notes:      input.Notes,
		Metadata:   input.Metadata,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}
