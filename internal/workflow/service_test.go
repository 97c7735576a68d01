package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Omkark04/agency-platform-backend/internal/history"
	"github.com/Omkark04/agency-platform-backend/pkg/db/models"
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
	pkgerrors "github.com/Omkark04/agency-platform-backend/pkg/errors"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOrderRepo struct {
	createFn       func(ctx context.Context, order *models.Order) error
	findFn         func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	updateStatusFn func(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, changedBy string, at time.Time) (int64, error)
	listFn         func(ctx context.Context, filter ListFilter) ([]models.Order, error)
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error {
	if f.createFn != nil {
		return f.createFn(ctx, order)
	}
	order.ID = uuid.New()
	return nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if f.findFn != nil {
		return f.findFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, changedBy string, at time.Time) (int64, error) {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, from, to, changedBy, at)
	}
	return 1, nil
}

func (f *fakeOrderRepo) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return nil, nil
}

type fakeHistoryRepo struct {
	entries []*models.OrderStatusHistory
	failFn  func(entry *models.OrderStatusHistory) error
}

func (f *fakeHistoryRepo) WithTx(tx *gorm.DB) history.Repository { return f }

func (f *fakeHistoryRepo) Create(ctx context.Context, entry *models.OrderStatusHistory) error {
	if f.failFn != nil {
		if err := f.failFn(entry); err != nil {
			return err
		}
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeHistoryRepo) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	return nil, nil
}

func newTestService(t *testing.T, repo *fakeOrderRepo, hist *fakeHistoryRepo) Service {
	t.Helper()
	svc, err := NewService(repo, hist, fakeTxRunner{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_CreateOrder(t *testing.T) {
	repo := &fakeOrderRepo{}
	hist := &fakeHistoryRepo{}
	svc := newTestService(t, repo, hist)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		ClientName:  "Acme Industries",
		ClientEmail: "ops@acme.test",
		ServiceType: "web_design",
		Price:       decimal.NewFromInt(50000),
		Currency:    "INR",
		CreatedBy:   "admin@agency.test",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("new orders must start pending, got %s", order.Status)
	}
	if !order.TotalPaid.IsZero() {
		t.Fatalf("new orders must start unpaid, got %s", order.TotalPaid)
	}
	if len(hist.entries) != 1 {
		t.Fatalf("expected one creation history entry, got %d", len(hist.entries))
	}
	entry := hist.entries[0]
	if entry.FromStatus != nil || entry.ToStatus != enums.OrderStatusPending {
		t.Fatalf("creation entry should record nil -> pending, got %+v", entry)
	}
	if entry.ChangedBy != "admin@agency.test" {
		t.Fatalf("creation entry actor mismatch: %q", entry.ChangedBy)
	}
}

func TestService_CreateOrderValidation(t *testing.T) {
	svc := newTestService(t, &fakeOrderRepo{}, &fakeHistoryRepo{})

	tests := []struct {
		name  string
		input CreateOrderInput
	}{
		{name: "missing client name", input: CreateOrderInput{ClientEmail: "a@b.test", ServiceType: "seo", Price: decimal.NewFromInt(1)}},
		{name: "missing client email", input: CreateOrderInput{ClientName: "A", ServiceType: "seo", Price: decimal.NewFromInt(1)}},
		{name: "missing service type", input: CreateOrderInput{ClientName: "A", ClientEmail: "a@b.test", Price: decimal.NewFromInt(1)}},
		{name: "negative price", input: CreateOrderInput{ClientName: "A", ClientEmail: "a@b.test", ServiceType: "seo", Price: decimal.NewFromInt(-1)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateOrder(context.Background(), tc.input)
			if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_RequestTransition(t *testing.T) {
	orderID := uuid.New()
	stored := &models.Order{ID: orderID, Status: enums.OrderStatusPending, Price: decimal.NewFromInt(1000)}

	repo := &fakeOrderRepo{
		findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			copied := *stored
			return &copied, nil
		},
		updateStatusFn: func(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, changedBy string, at time.Time) (int64, error) {
			if stored.Status != from {
				return 0, nil
			}
			stored.Status = to
			return 1, nil
		},
	}
	hist := &fakeHistoryRepo{}
	svc := newTestService(t, repo, hist)

	order, err := svc.RequestTransition(context.Background(), TransitionInput{
		OrderID:      orderID,
		TargetStatus: enums.OrderStatusApproved,
		ChangedBy:    "admin@agency.test",
		Notes:        "client confirmed scope",
	})
	if err != nil {
		t.Fatalf("RequestTransition error: %v", err)
	}
	if order.Status != enums.OrderStatusApproved {
		t.Fatalf("expected approved, got %s", order.Status)
	}
	if order.StatusUpdatedAt == nil || order.StatusUpdatedBy == nil || *order.StatusUpdatedBy != "admin@agency.test" {
		t.Fatalf("status stamp missing: %+v", order)
	}
	if len(hist.entries) != 1 {
		t.Fatalf("expected one history entry, got %d", len(hist.entries))
	}
	entry := hist.entries[0]
	if entry.FromStatus == nil || *entry.FromStatus != enums.OrderStatusPending || entry.ToStatus != enums.OrderStatusApproved {
		t.Fatalf("history entry mismatch: %+v", entry)
	}
	if entry.Notes != "client confirmed scope" {
		t.Fatalf("history notes mismatch: %q", entry.Notes)
	}
}

func TestService_RequestTransitionInvalid(t *testing.T) {
	orderID := uuid.New()
	repo := &fakeOrderRepo{
		findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: orderID, Status: enums.OrderStatusPending}, nil
		},
	}
	hist := &fakeHistoryRepo{}
	svc := newTestService(t, repo, hist)

	_, err := svc.RequestTransition(context.Background(), TransitionInput{
		OrderID:      orderID,
		TargetStatus: enums.OrderStatusDelivered,
		ChangedBy:    "admin@agency.test",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
	if len(hist.entries) != 0 {
		t.Fatal("rejected transition must not append history")
	}
}

func TestService_RequestTransitionConflictRetry(t *testing.T) {
	orderID := uuid.New()
	// The first attempt reads quarter_done but a concurrent writer advances
	// the order to half_done before the conditional update lands. The retry
	// re-reads the refreshed status and still reaches the skip-ahead target.
	stored := &models.Order{ID: orderID, Status: enums.OrderStatusQuarterDone}
	reads := 0

	repo := &fakeOrderRepo{
		findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			reads++
			copied := *stored
			return &copied, nil
		},
		updateStatusFn: func(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, changedBy string, at time.Time) (int64, error) {
			if reads == 1 {
				stored.Status = enums.OrderStatusHalfDone
				return 0, nil
			}
			if stored.Status != from {
				return 0, nil
			}
			stored.Status = to
			return 1, nil
		},
	}
	hist := &fakeHistoryRepo{}
	svc := newTestService(t, repo, hist)

	order, err := svc.RequestTransition(context.Background(), TransitionInput{
		OrderID:      orderID,
		TargetStatus: enums.OrderStatusReadyForDelivery,
		ChangedBy:    "head@agency.test",
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if order.Status != enums.OrderStatusReadyForDelivery {
		t.Fatalf("expected ready_for_delivery after retry, got %s", order.Status)
	}
	if reads != 2 {
		t.Fatalf("expected exactly one retry read, got %d", reads)
	}
	if len(hist.entries) != 1 {
		t.Fatalf("expected one history entry, got %d", len(hist.entries))
	}
	if entry := hist.entries[0]; entry.FromStatus == nil || *entry.FromStatus != enums.OrderStatusHalfDone {
		t.Fatalf("history must record the refreshed from status: %+v", hist.entries[0])
	}
}

func TestService_RequestTransitionConflictExhausted(t *testing.T) {
	orderID := uuid.New()
	repo := &fakeOrderRepo{
		findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: orderID, Status: enums.OrderStatusPending}, nil
		},
		updateStatusFn: func(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, changedBy string, at time.Time) (int64, error) {
			return 0, nil
		},
	}
	svc := newTestService(t, repo, &fakeHistoryRepo{})

	_, err := svc.RequestTransition(context.Background(), TransitionInput{
		OrderID:      orderID,
		TargetStatus: enums.OrderStatusApproved,
		ChangedBy:    "admin@agency.test",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict after exhausted retry, got %v", err)
	}
}

func TestService_RequestTransitionNotFound(t *testing.T) {
	svc := newTestService(t, &fakeOrderRepo{}, &fakeHistoryRepo{})

	_, err := svc.RequestTransition(context.Background(), TransitionInput{
		OrderID:      uuid.New(),
		TargetStatus: enums.OrderStatusApproved,
		ChangedBy:    "admin@agency.test",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestService_RequestTransitionEarlyTerminationMetadata(t *testing.T) {
	orderID := uuid.New()
	repo := &fakeOrderRepo{
		findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: orderID, Status: enums.OrderStatusInProgress}, nil
		},
	}
	hist := &fakeHistoryRepo{}
	svc := newTestService(t, repo, hist)

	if _, err := svc.RequestTransition(context.Background(), TransitionInput{
		OrderID:      orderID,
		TargetStatus: enums.OrderStatusClosed,
		ChangedBy:    "admin@agency.test",
		Notes:        "client cancelled mid-build",
	}); err != nil {
		t.Fatalf("RequestTransition error: %v", err)
	}
	if len(hist.entries) != 1 || len(hist.entries[0].Metadata) == 0 {
		t.Fatalf("early termination should be flagged in history metadata: %+v", hist.entries)
	}
}

func TestService_WorkflowInfo(t *testing.T) {
	orderID := uuid.New()
	repo := &fakeOrderRepo{
		findFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: orderID, Status: enums.OrderStatusHalfDone}, nil
		},
	}
	svc := newTestService(t, repo, &fakeHistoryRepo{})

	info, err := svc.WorkflowInfo(context.Background(), orderID)
	if err != nil {
		t.Fatalf("WorkflowInfo error: %v", err)
	}
	if info.CurrentStatus != enums.OrderStatusHalfDone || info.ProgressPercentage != 50 {
		t.Fatalf("unexpected projection: %+v", info)
	}
	if info.IsTerminal {
		t.Fatal("50_done is not terminal")
	}
	want := map[enums.OrderStatus]bool{
		enums.OrderStatusThreeQuarterDone: true,
		enums.OrderStatusReadyForDelivery: true,
		enums.OrderStatusClosed:           true,
	}
	if len(info.AllowedNextStatuses) != len(want) {
		t.Fatalf("unexpected allowed statuses: %v", info.AllowedNextStatuses)
	}
	for _, status := range info.AllowedNextStatuses {
		if !want[status] {
			t.Fatalf("unexpected allowed status %s", status)
		}
	}
}
