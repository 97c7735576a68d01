package paymentrequests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Omkark04/agency-platform-backend/pkg/db/models"
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
	pkgerrors "github.com/Omkark04/agency-platform-backend/pkg/errors"
)

type fakeRepo struct {
	createFn       func(ctx context.Context, request *models.PaymentRequest) error
	findFn         func(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error)
	updateStatusFn func(ctx context.Context, id uuid.UUID, from, to enums.PaymentRequestStatus) (int64, error)
	expireFn       func(ctx context.Context, now time.Time) (int64, error)
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, request *models.PaymentRequest) error {
	if f.createFn != nil {
		return f.createFn(ctx, request)
	}
	request.ID = uuid.New()
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error) {
	if f.findFn != nil {
		return f.findFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter) ([]models.PaymentRequest, error) {
	return nil, nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentRequestStatus) (int64, error) {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, from, to)
	}
	return 1, nil
}

func (f *fakeRepo) MarkPaid(ctx context.Context, id, transactionID uuid.UUID, paidAt time.Time) (int64, error) {
	return 1, nil
}

func (f *fakeRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	if f.expireFn != nil {
		return f.expireFn(ctx, now)
	}
	return 0, nil
}

type fakeOrderReader struct {
	order *models.Order
	err   error
}

func (f *fakeOrderReader) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

func newOrder(price, paid int64, status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:        uuid.New(),
		Status:    status,
		Price:     decimal.NewFromInt(price),
		TotalPaid: decimal.NewFromInt(paid),
		Currency:  "INR",
	}
}

func mustService(t *testing.T, repo Repository, orders orderReader) Service {
	t.Helper()
	svc, err := NewService(repo, orders, 7*24*time.Hour, "INR")
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_CreateRequest(t *testing.T) {
	order := newOrder(50000, 10000, enums.OrderStatusInProgress)
	repo := &fakeRepo{}
	svc := mustService(t, repo, &fakeOrderReader{order: order})

	request, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		OrderID:     order.ID,
		Amount:      decimal.NewFromInt(25000),
		Gateway:     enums.GatewayRazorpay,
		RequestedBy: "admin@agency.test",
	})
	if err != nil {
		t.Fatalf("CreateRequest error: %v", err)
	}
	if request.Status != enums.PaymentRequestStatusPending {
		t.Fatalf("new requests must start pending, got %s", request.Status)
	}
	if request.Currency != "INR" {
		t.Fatalf("currency should default from order, got %q", request.Currency)
	}
	if !request.ExpiresAt.After(time.Now().UTC().Add(6 * 24 * time.Hour)) {
		t.Fatalf("expiry horizon not applied: %s", request.ExpiresAt)
	}
}

func TestService_CreateRequestBoundaryAmount(t *testing.T) {
	// Exactly the remaining balance is accepted; one paisa over is not.
	order := newOrder(50000, 10000, enums.OrderStatusDelivered)
	repo := &fakeRepo{}
	svc := mustService(t, repo, &fakeOrderReader{order: order})

	if _, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		OrderID:     order.ID,
		Amount:      decimal.NewFromInt(40000),
		Gateway:     enums.GatewayPayPal,
		RequestedBy: "admin@agency.test",
	}); err != nil {
		t.Fatalf("amount equal to remaining balance should be accepted: %v", err)
	}

	_, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		OrderID:     order.ID,
		Amount:      decimal.RequireFromString("40000.01"),
		Gateway:     enums.GatewayPayPal,
		RequestedBy: "admin@agency.test",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidAmount {
		t.Fatalf("expected invalid amount error, got %v", err)
	}
}

func TestService_CreateRequestValidation(t *testing.T) {
	order := newOrder(100, 0, enums.OrderStatusInProgress)
	svc := mustService(t, &fakeRepo{}, &fakeOrderReader{order: order})

	tests := []struct {
		name  string
		input CreateRequestInput
		code  pkgerrors.Code
	}{
		{
			name:  "missing order id",
			input: CreateRequestInput{Amount: decimal.NewFromInt(1), Gateway: enums.GatewayRazorpay, RequestedBy: "a"},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "unknown gateway",
			input: CreateRequestInput{OrderID: order.ID, Amount: decimal.NewFromInt(1), Gateway: enums.Gateway("stripe"), RequestedBy: "a"},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "zero amount",
			input: CreateRequestInput{OrderID: order.ID, Amount: decimal.Zero, Gateway: enums.GatewayRazorpay, RequestedBy: "a"},
			code:  pkgerrors.CodeInvalidAmount,
		},
		{
			name:  "negative amount",
			input: CreateRequestInput{OrderID: order.ID, Amount: decimal.NewFromInt(-5), Gateway: enums.GatewayRazorpay, RequestedBy: "a"},
			code:  pkgerrors.CodeInvalidAmount,
		},
		{
			name:  "missing actor",
			input: CreateRequestInput{OrderID: order.ID, Amount: decimal.NewFromInt(1), Gateway: enums.GatewayRazorpay},
			code:  pkgerrors.CodeUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateRequest(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestService_CreateRequestClosedOrder(t *testing.T) {
	order := newOrder(100, 0, enums.OrderStatusClosed)
	svc := mustService(t, &fakeRepo{}, &fakeOrderReader{order: order})

	_, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		OrderID:     order.ID,
		Amount:      decimal.NewFromInt(50),
		Gateway:     enums.GatewayRazorpay,
		RequestedBy: "admin@agency.test",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
}

func TestService_CancelRequest(t *testing.T) {
	requestID := uuid.New()
	repo := &fakeRepo{
		findFn: func(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error) {
			return &models.PaymentRequest{ID: requestID, Status: enums.PaymentRequestStatusPending}, nil
		},
	}
	svc := mustService(t, repo, &fakeOrderReader{})

	if err := svc.CancelRequest(context.Background(), requestID, "admin@agency.test"); err != nil {
		t.Fatalf("CancelRequest error: %v", err)
	}
}

func TestService_CancelRequestTerminal(t *testing.T) {
	for _, status := range []enums.PaymentRequestStatus{
		enums.PaymentRequestStatusPaid,
		enums.PaymentRequestStatusExpired,
		enums.PaymentRequestStatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			requestID := uuid.New()
			repo := &fakeRepo{
				findFn: func(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error) {
					return &models.PaymentRequest{ID: requestID, Status: status}, nil
				},
			}
			svc := mustService(t, repo, &fakeOrderReader{})

			err := svc.CancelRequest(context.Background(), requestID, "admin@agency.test")
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
				t.Fatalf("expected invalid transition error, got %v", err)
			}
		})
	}
}

func TestService_CancelRequestLostRace(t *testing.T) {
	requestID := uuid.New()
	repo := &fakeRepo{
		findFn: func(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error) {
			return &models.PaymentRequest{ID: requestID, Status: enums.PaymentRequestStatusPending}, nil
		},
		updateStatusFn: func(ctx context.Context, id uuid.UUID, from, to enums.PaymentRequestStatus) (int64, error) {
			return 0, nil
		},
	}
	svc := mustService(t, repo, &fakeOrderReader{})

	err := svc.CancelRequest(context.Background(), requestID, "admin@agency.test")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestService_ExpireStaleRequests(t *testing.T) {
	calls := 0
	repo := &fakeRepo{
		expireFn: func(ctx context.Context, now time.Time) (int64, error) {
			calls++
			if calls == 1 {
				return 3, nil
			}
			return 0, nil
		},
	}
	svc := mustService(t, repo, &fakeOrderReader{})

	expired, err := svc.ExpireStaleRequests(context.Background())
	if err != nil {
		t.Fatalf("ExpireStaleRequests error: %v", err)
	}
	if expired != 3 {
		t.Fatalf("expected 3 expired, got %d", expired)
	}

	// A second sweep finds nothing left to do.
	expired, err = svc.ExpireStaleRequests(context.Background())
	if err != nil {
		t.Fatalf("ExpireStaleRequests error: %v", err)
	}
	if expired != 0 {
		t.Fatalf("repeat sweep should be a no-op, got %d", expired)
	}
}
