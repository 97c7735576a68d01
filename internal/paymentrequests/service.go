package paymentrequests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Omkark04/agency-platform-backend/pkg/db/models"
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
	pkgerrors "github.com/Omkark04/agency-platform-backend/pkg/errors"
)

type orderReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// Service manages the lifecycle of payment requests outside settlement.
// Settlement owns the pending -> paid edge; everything else lives here.
type Service interface {
	CreateRequest(ctx context.Context, input CreateRequestInput) (*models.PaymentRequest, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error)
	ListRequests(ctx context.Context, filter ListFilter) ([]models.PaymentRequest, error)
	CancelRequest(ctx context.Context, id uuid.UUID, cancelledBy string) error
	ExpireStaleRequests(ctx context.Context) (int64, error)
}

type service struct {
	repo          Repository
	orders        orderReader
	expiryHorizon time.Duration
	defaultCurr   string
}

// CreateRequestInput captures an admin's ask for payment against an order.
type CreateRequestInput struct {
	OrderID     uuid.UUID
	Amount      decimal.Decimal
	Gateway     enums.Gateway
	Currency    string
	Notes       *string
	RequestedBy string
}

// NewService builds a payment request service.
func NewService(repo Repository, orders orderReader, expiryHorizon time.Duration, defaultCurrency string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment request repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if expiryHorizon <= 0 {
		return nil, fmt.Errorf("expiry horizon must be positive")
	}
	if defaultCurrency == "" {
		return nil, fmt.Errorf("default currency required")
	}
	return &service{
		repo:          repo,
		orders:        orders,
		expiryHorizon: expiryHorizon,
		defaultCurr:   defaultCurrency,
	}, nil
}

func (s *service) CreateRequest(ctx context.Context, input CreateRequestInput) (*models.PaymentRequest, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Gateway.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown gateway %q", input.Gateway))
	}
	if strings.TrimSpace(input.RequestedBy) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be positive")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is closed")
	}

	remaining := order.RemainingBalance()
	if input.Amount.GreaterThan(remaining) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount exceeds remaining balance").
			WithDetails(map[string]any{
				"requested_amount":  input.Amount,
				"remaining_balance": remaining,
			})
	}

	currency := input.Currency
	if currency == "" {
		currency = order.Currency
	}
	if currency == "" {
		currency = s.defaultCurr
	}

	request := &models.PaymentRequest{
		OrderID:     order.ID,
		Amount:      input.Amount,
		Gateway:     input.Gateway,
		Currency:    currency,
		Status:      enums.PaymentRequestStatusPending,
		Notes:       input.Notes,
		RequestedBy: input.RequestedBy,
		ExpiresAt:   time.Now().UTC().Add(s.expiryHorizon),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment request")
	}
	return request, nil
}

func (s *service) GetRequest(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment request id required")
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment request")
	}
	return request, nil
}

func (s *service) ListRequests(ctx context.Context, filter ListFilter) ([]models.PaymentRequest, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment requests")
	}
	return requests, nil
}

func (s *service) CancelRequest(ctx context.Context, id uuid.UUID, cancelledBy string) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment request id required")
	}
	if strings.TrimSpace(cancelledBy) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	request, err := s.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if request.Status != enums.PaymentRequestStatusPending {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot cancel a %s payment request", request.Status))
	}

	affected, err := s.repo.UpdateStatus(ctx, id, enums.PaymentRequestStatusPending, enums.PaymentRequestStatusCancelled)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel payment request")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "payment request changed concurrently")
	}
	return nil
}

func (s *service) ExpireStaleRequests(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpireStale(ctx, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire stale payment requests")
	}
	return expired, nil
}
