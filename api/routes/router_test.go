package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Omkark04/agency-platform-backend/internal/gateways"
	"github.com/Omkark04/agency-platform-backend/internal/history"
	"github.com/Omkark04/agency-platform-backend/internal/paymentrequests"
	"github.com/Omkark04/agency-platform-backend/internal/settlement"
	"github.com/Omkark04/agency-platform-backend/internal/workflow"
	"github.com/Omkark04/agency-platform-backend/pkg/config"
	"github.com/Omkark04/agency-platform-backend/pkg/db/models"
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
	"github.com/Omkark04/agency-platform-backend/pkg/logger"
)

type stubWorkflow struct {
	created int
}

func (s *stubWorkflow) CreateOrder(ctx context.Context, input workflow.CreateOrderInput) (*models.Order, error) {
	s.created++
	return &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending, Price: input.Price}, nil
}

func (s *stubWorkflow) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: id, Status: enums.OrderStatusPending}, nil
}

func (s *stubWorkflow) ListOrders(ctx context.Context, filter workflow.ListFilter) ([]models.Order, error) {
	return nil, nil
}

func (s *stubWorkflow) RequestTransition(ctx context.Context, input workflow.TransitionInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID, Status: input.TargetStatus}, nil
}

func (s *stubWorkflow) WorkflowInfo(ctx context.Context, orderID uuid.UUID) (*workflow.Info, error) {
	return &workflow.Info{OrderID: orderID, CurrentStatus: enums.OrderStatusPending}, nil
}

type stubHistory struct{}

func (stubHistory) RecordTransition(ctx context.Context, input history.RecordTransitionInput) (*models.OrderStatusHistory, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubHistory) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	return nil, nil
}

type stubRequests struct{}

func (stubRequests) CreateRequest(ctx context.Context, input paymentrequests.CreateRequestInput) (*models.PaymentRequest, error) {
	return &models.PaymentRequest{ID: uuid.New(), OrderID: input.OrderID, Amount: input.Amount}, nil
}

func (stubRequests) GetRequest(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error) {
	return &models.PaymentRequest{ID: id}, nil
}

func (stubRequests) ListRequests(ctx context.Context, filter paymentrequests.ListFilter) ([]models.PaymentRequest, error) {
	return nil, nil
}

func (stubRequests) CancelRequest(ctx context.Context, id uuid.UUID, cancelledBy string) error {
	return nil
}

func (stubRequests) ExpireStaleRequests(ctx context.Context) (int64, error) {
	return 0, nil
}

type stubCheckouts struct{}

func (stubCheckouts) CheckoutFor(gateway enums.Gateway) (gateways.Checkout, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubCheckouts) CreateCheckoutSession(ctx context.Context, input gateways.CreateSessionInput) (*gateways.SessionDescriptor, error) {
	return &gateways.SessionDescriptor{Gateway: input.Gateway}, nil
}

func (stubCheckouts) ExpireStaleSessions(ctx context.Context, maxAge time.Duration) (int64, error) {
	return 0, nil
}

type stubSettlements struct {
	verified int
}

func (s *stubSettlements) VerifyAndSettle(ctx context.Context, input settlement.VerifyInput) (*models.Transaction, error) {
	s.verified++
	return &models.Transaction{ID: uuid.New(), Status: enums.TransactionStatusSuccess, Amount: decimal.New(1, 0)}, nil
}

func (s *stubSettlements) RetryPayment(ctx context.Context, transactionID uuid.UUID, actor string) (*gateways.SessionDescriptor, error) {
	return &gateways.SessionDescriptor{}, nil
}

func (s *stubSettlements) DownloadReceipt(ctx context.Context, transactionID uuid.UUID) (string, error) {
	return "https://receipts.agency.test/receipts/x", nil
}

func (s *stubSettlements) ListTransactions(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error) {
	return nil, nil
}

func (s *stubSettlements) BackfillReceipts(ctx context.Context, limit int) (int, error) {
	return 0, nil
}

func newTestRouter(t *testing.T) (http.Handler, *stubWorkflow, *stubSettlements) {
	t.Helper()
	wf := &stubWorkflow{}
	st := &stubSettlements{}
	router := NewRouter(RouterParams{
		Config:      &config.Config{App: config.AppConfig{Env: "test"}},
		Logger:      logger.New(logger.Options{ServiceName: "router-test"}),
		Workflow:    wf,
		History:     stubHistory{},
		Requests:    stubRequests{},
		Checkouts:   stubCheckouts{},
		Settlements: st,
	})
	return router, wf, st
}

func TestRouterHealthLive(t *testing.T) {
	router, _, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterWorkflowInfoIsPublicWithinAPI(t *testing.T) {
	router, _, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	url := "/api/v1/orders/" + uuid.NewString() + "/workflow-info"
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, url, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRouterCreateOrderRequiresRole(t *testing.T) {
	router, wf, _ := newTestRouter(t)
	body := `{"client_name":"Acme","client_email":"ops@acme.test","service_type":"web-design","price":"1000.00"}`

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("missing identity should 401, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("X-User-Id", "client-1")
	req.Header.Set("X-User-Role", "client")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("client role should 403, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("X-User-Id", "admin-1")
	req.Header.Set("X-User-Role", "admin")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("admin should create, got %d: %s", resp.Code, resp.Body.String())
	}
	if wf.created != 1 {
		t.Fatalf("expected one create call, got %d", wf.created)
	}
}

func TestRouterVerifyReachesSettlement(t *testing.T) {
	router, _, st := newTestRouter(t)
	body := `{"gateway":"razorpay","gateway_order_id":"gw_1","payment_id":"pay_1","signature":"sig"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(body)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if st.verified != 1 {
		t.Fatalf("expected settlement call, got %d", st.verified)
	}
}
