package paymentrequests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Omkark04/agency-platform-backend/pkg/db/models"
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
)

func setupRequestsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	requests := `
CREATE TABLE IF NOT EXISTS payment_requests (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  gateway TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'INR',
  status TEXT NOT NULL DEFAULT 'pending',
  notes TEXT,
  requested_by TEXT NOT NULL,
  expires_at DATETIME NOT NULL,
  paid_at DATETIME,
  transaction_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(requests).Error)
	return db
}

func seedRequest(t *testing.T, db *gorm.DB, status enums.PaymentRequestStatus, expiresAt time.Time) *models.PaymentRequest {
	t.Helper()

	request := &models.PaymentRequest{
		ID:          uuid.New(),
		OrderID:     uuid.New(),
		Amount:      decimal.NewFromInt(15000),
		Gateway:     enums.GatewayRazorpay,
		Currency:    "INR",
		Status:      status,
		RequestedBy: "admin@agency.test",
		ExpiresAt:   expiresAt,
	}
	require.NoError(t, db.Create(request).Error)
	return request
}

func TestRepositoryExpireStale(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	overdue := seedRequest(t, db, enums.PaymentRequestStatusPending, now.Add(-time.Hour))
	live := seedRequest(t, db, enums.PaymentRequestStatusPending, now.Add(time.Hour))
	alreadyPaid := seedRequest(t, db, enums.PaymentRequestStatusPaid, now.Add(-time.Hour))

	affected, err := repo.ExpireStale(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Second sweep finds nothing: the transition applies exactly once.
	affected, err = repo.ExpireStale(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, affected)

	reloaded, err := repo.FindByID(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentRequestStatusExpired, reloaded.Status)

	reloaded, err = repo.FindByID(context.Background(), live.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentRequestStatusPending, reloaded.Status)

	reloaded, err = repo.FindByID(context.Background(), alreadyPaid.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentRequestStatusPaid, reloaded.Status)
}

func TestRepositoryUpdateStatus_guardsTerminal(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)

	request := seedRequest(t, db, enums.PaymentRequestStatusPaid, time.Now().UTC().Add(time.Hour))

	affected, err := repo.UpdateStatus(context.Background(), request.ID, enums.PaymentRequestStatusPending, enums.PaymentRequestStatusCancelled)
	require.NoError(t, err)
	assert.Zero(t, affected)

	reloaded, err := repo.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentRequestStatusPaid, reloaded.Status)
}

func TestRepositoryList_filters(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	first := seedRequest(t, db, enums.PaymentRequestStatusPending, now.Add(time.Hour))
	seedRequest(t, db, enums.PaymentRequestStatusCancelled, now.Add(time.Hour))

	pending := enums.PaymentRequestStatusPending
	list, err := repo.List(context.Background(), ListFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	byOrder, err := repo.List(context.Background(), ListFilter{OrderID: &first.OrderID})
	require.NoError(t, err)
	require.Len(t, byOrder, 1)
	assert.Equal(t, first.ID, byOrder[0].ID)
}
