package gateways

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

	"github.com/Omkark04/agency-platform-backend/pkg/db/models"
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
	pkgerrors "github.com/Omkark04/agency-platform-backend/pkg/errors"
	"github.com/Omkark04/agency-platform-backend/pkg/logger"
)

type orderReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type requestReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error)
}

// RetryLineage links a fresh session to the failed transaction it replaces.
type RetryLineage struct {
	RetryOf    uuid.UUID
	RetryCount int
}

// CreateSessionInput describes one checkout session to open.
type CreateSessionInput struct {
	OrderID          uuid.UUID
	Gateway          enums.Gateway
	Amount           *decimal.Decimal
	Currency         string
	PaymentRequestID *uuid.UUID
	Lineage          *RetryLineage
}

// SessionMetadata is the blob persisted on a PaymentOrder row.
type SessionMetadata struct {
	ApprovalURL string `json:"approval_url,omitempty"`
	RetryOf     string `json:"retry_of,omitempty"`
	RetryCount  int    `json:"retry_count,omitempty"`
}

// DecodeSessionMetadata parses a PaymentOrder metadata blob. A missing blob
// decodes to the zero value.
func DecodeSessionMetadata(raw json.RawMessage) SessionMetadata {
	var meta SessionMetadata
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &meta)
	}
	return meta
}

// OrderSummary is the slice of the order echoed back to checkout widgets.
type OrderSummary struct {
	OrderID     uuid.UUID `json:"order_id"`
	ClientName  string    `json:"client_name"`
	ServiceType string    `json:"service_type"`
}

// CustomerDetails prefill the hosted checkout form.
type CustomerDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SessionDescriptor is what a client needs to run the checkout it asked for.
type SessionDescriptor struct {
	PaymentOrder *models.PaymentOrder
	Gateway      enums.Gateway
	RazorpayKey  string
	ApprovalURL  string
	Amount       decimal.Decimal
	Currency     string
	OrderDetails OrderSummary
	Customer     *CustomerDetails
}

// Service opens checkout sessions and resolves gateway adapters.
type Service interface {
	CheckoutFor(gateway enums.Gateway) (Checkout, error)
	CreateCheckoutSession(ctx context.Context, input CreateSessionInput) (*SessionDescriptor, error)
	ExpireStaleSessions(ctx context.Context, maxAge time.Duration) (int64, error)
}

type service struct {
	repo     Repository
	orders   orderReader
	requests requestReader
	adapters map[enums.Gateway]Checkout
	logg     *logger.Logger
}

// NewService builds the checkout service over the registered adapters.
func NewService(repo Repository, orders orderReader, requests requestReader, adapters []Checkout, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment order repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if requests == nil {
		return nil, fmt.Errorf("payment request reader required")
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("at least one gateway adapter required")
	}
	byName := make(map[enums.Gateway]Checkout, len(adapters))
	for _, adapter := range adapters {
		if adapter == nil {
			return nil, fmt.Errorf("nil gateway adapter")
		}
		if _, dup := byName[adapter.Name()]; dup {
			return nil, fmt.Errorf("duplicate gateway adapter %s", adapter.Name())
		}
		byName[adapter.Name()] = adapter
	}
	return &service{
		repo:     repo,
		orders:   orders,
		requests: requests,
		adapters: byName,
		logg:     logg,
	}, nil
}

func (s *service) CheckoutFor(gateway enums.Gateway) (Checkout, error) {
	adapter, ok := s.adapters[gateway]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("gateway %s is not configured", gateway))
	}
	return adapter, nil
}

func (s *service) CreateCheckoutSession(ctx context.Context, input CreateSessionInput) (*SessionDescriptor, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	adapter, err := s.CheckoutFor(input.Gateway)
	if err != nil {
		return nil, err
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
	amount := remaining
	if input.Amount != nil {
		amount = *input.Amount
	}

	var linkedRequest *models.PaymentRequest
	if input.PaymentRequestID != nil {
		request, err := s.requests.FindByID(ctx, *input.PaymentRequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment request not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment request")
		}
		if request.OrderID != order.ID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment request does not belong to order")
		}
		if request.Status != enums.PaymentRequestStatusPending {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("payment request is %s", request.Status))
		}
		linkedRequest = request
		if input.Amount == nil {
			amount = request.Amount
		}
	}

	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be positive")
	}
	if amount.GreaterThan(remaining) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount exceeds remaining balance").
			WithDetails(map[string]any{
				"requested_amount":  amount,
				"remaining_balance": remaining,
			})
	}

	currency := strings.TrimSpace(input.Currency)
	if currency == "" {
		currency = order.Currency
	}

	req := SessionRequest{
		Amount:        amount,
		Currency:      currency,
		Receipt:       fmt.Sprintf("order_%s", order.ID),
		Description:   fmt.Sprintf("%s for %s", order.ServiceType, order.ClientName),
		CustomerName:  order.ClientName,
		CustomerEmail: order.ClientEmail,
	}

	result, err := adapter.CreateSession(ctx, req)
	if err != nil {
		if s.logg != nil {
			logCtx := s.logg.WithGateway(ctx, string(input.Gateway))
			logCtx = s.logg.WithOrderID(logCtx, order.ID.String())
			s.logg.Warn(logCtx, "checkout session creation failed")
		}
		return nil, err
	}

	paymentOrder := &models.PaymentOrder{
		OrderID:        order.ID,
		Gateway:        input.Gateway,
		GatewayOrderID: result.GatewayOrderID,
		Amount:         amount,
		Currency:       currency,
		Status:         enums.PaymentOrderStatusCreated,
	}
	if linkedRequest != nil {
		paymentOrder.PaymentRequestID = &linkedRequest.ID
	}
	meta := SessionMetadata{ApprovalURL: result.ApprovalURL}
	if input.Lineage != nil {
		meta.RetryOf = input.Lineage.RetryOf.String()
		meta.RetryCount = input.Lineage.RetryCount
	}
	if meta != (SessionMetadata{}) {
		raw, _ := json.Marshal(meta)
		paymentOrder.Metadata = raw
	}

	if err := s.repo.Create(ctx, paymentOrder); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment order")
	}

	descriptor := &SessionDescriptor{
		PaymentOrder: paymentOrder,
		Gateway:      input.Gateway,
		RazorpayKey:  result.RazorpayKey,
		ApprovalURL:  result.ApprovalURL,
		Amount:       amount,
		Currency:     currency,
		OrderDetails: OrderSummary{
			OrderID:     order.ID,
			ClientName:  order.ClientName,
			ServiceType: order.ServiceType,
		},
	}
	if input.Gateway == enums.GatewayRazorpay {
		descriptor.Customer = &CustomerDetails{
			Name:  order.ClientName,
			Email: order.ClientEmail,
		}
	}
	return descriptor, nil
}

func (s *service) ExpireStaleSessions(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "max age must be positive")
	}
	expired, err := s.repo.ExpireStaleCreated(ctx, time.Now().UTC().Add(-maxAge))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire stale checkout sessions")
	}
	return expired, nil
}
