package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Omkark04/agency-platform-backend/internal/history"
	"github.com/Omkark04/agency-platform-backend/pkg/db/models"
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
	pkgerrors "github.com/Omkark04/agency-platform-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives order intake and the status state machine.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]models.Order, error)
	RequestTransition(ctx context.Context, input TransitionInput) (*models.Order, error)
	WorkflowInfo(ctx context.Context, orderID uuid.UUID) (*Info, error)
}

type service struct {
	repo    Repository
	history history.Repository
	tx      txRunner
}

// CreateOrderInput captures a client's service request at intake.
type CreateOrderInput struct {
	ClientName  string
	ClientEmail string
	ServiceType string
	Description *string
	Price       decimal.Decimal
	Currency    string
	CreatedBy   string
}

// TransitionInput carries one requested status change.
type TransitionInput struct {
	OrderID      uuid.UUID
	TargetStatus enums.OrderStatus
	ChangedBy    string
	Notes        string
}

// Info is a read-only projection of where an order sits in the pipeline.
type Info struct {
	OrderID             uuid.UUID           `json:"order_id"`
	CurrentStatus       enums.OrderStatus   `json:"current_status"`
	StatusDisplay       string              `json:"status_display"`
	AllowedNextStatuses []enums.OrderStatus `json:"allowed_next_statuses"`
	ProgressPercentage  int                 `json:"progress_percentage"`
	IsTerminal          bool                `json:"is_terminal"`
}

// NewService builds a workflow service with the required dependencies.
func NewService(repo Repository, historyRepo history.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("workflow repository required")
	}
	if historyRepo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    repo,
		history: historyRepo,
		tx:      tx,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if strings.TrimSpace(input.ClientName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client name is required")
	}
	if strings.TrimSpace(input.ClientEmail) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client email is required")
	}
	if strings.TrimSpace(input.ServiceType) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service type is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	changedBy := strings.TrimSpace(input.CreatedBy)
	if changedBy == "" {
		changedBy = input.ClientEmail
	}

	order := &models.Order{
		ClientName:  input.ClientName,
		ClientEmail: input.ClientEmail,
		ServiceType: input.ServiceType,
		Description: input.Description,
		Price:       input.Price,
		TotalPaid:   decimal.Zero,
		Currency:    input.Currency,
		Status:      enums.OrderStatusPending,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		entry := &models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  enums.OrderStatusPending,
			ChangedBy: changedBy,
			Notes:     "order created",
		}
		if err := s.history.WithTx(tx).Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record creation entry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

// RequestTransition applies one status change. The acceptance check runs
// against the freshly-read status inside the same transaction as the write,
// and a conditional update guards against a concurrent writer. A lost race is
// retried once against the refreshed status before surfacing Conflict.
func (s *service) RequestTransition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.TargetStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", input.TargetStatus))
	}
	if strings.TrimSpace(input.ChangedBy) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	var (
		order    *models.Order
		conflict bool
	)

	attempt := func() error {
		conflict = false
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			current, err := repo.FindByID(ctx, input.OrderID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
			}

			if !CanTransition(current.Status, input.TargetStatus) {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition,
					fmt.Sprintf("cannot move from %s to %s", current.Status, input.TargetStatus)).
					WithDetails(map[string]any{
						"current_status":        current.Status,
						"requested_status":      input.TargetStatus,
						"allowed_next_statuses": AllowedNextStatuses(current.Status),
					})
			}

			now := time.Now().UTC()
			affected, err := repo.UpdateStatus(ctx, current.ID, current.Status, input.TargetStatus, input.ChangedBy, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
			if affected == 0 {
				conflict = true
				return pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently")
			}

			from := current.Status
			entry := &models.OrderStatusHistory{
				OrderID:    current.ID,
				FromStatus: &from,
				ToStatus:   input.TargetStatus,
				ChangedBy:  input.ChangedBy,
				Notes:      input.Notes,
			}
			if input.TargetStatus == enums.OrderStatusClosed && !from.IsTerminal() && from != enums.OrderStatusPaymentDone {
				entry.Metadata = json.RawMessage(`{"early_termination":true}`)
			}
			if err := s.history.WithTx(tx).Create(ctx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transition")
			}

			current.Status = input.TargetStatus
			current.StatusUpdatedAt = &now
			current.StatusUpdatedBy = &input.ChangedBy
			order = current
			return nil
		})
	}

	err := attempt()
	if err != nil && conflict {
		err = attempt()
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) WorkflowInfo(ctx context.Context, orderID uuid.UUID) (*Info, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &Info{
		OrderID:             order.ID,
		CurrentStatus:       order.Status,
		StatusDisplay:       order.Status.Display(),
		AllowedNextStatuses: AllowedNextStatuses(order.Status),
		ProgressPercentage:  order.Status.Progress(),
		IsTerminal:          order.Status.IsTerminal(),
	}, nil
}
