package paymentrequests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Omkark04/agency-platform-backend/pkg/db/models"
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
)

// ListFilter narrows payment request listings.
type ListFilter struct {
	OrderID *uuid.UUID
	Status  *enums.PaymentRequestStatus
	Limit   int
}

// Repository manages persistence for payment requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.PaymentRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error)
	List(ctx context.Context, filter ListFilter) ([]models.PaymentRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentRequestStatus) (int64, error)
	MarkPaid(ctx context.Context, id, transactionID uuid.UUID, paidAt time.Time) (int64, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment request repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.PaymentRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error) {
	var request models.PaymentRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.PaymentRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentRequest{}).Order("created_at DESC")
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var requests []models.PaymentRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// UpdateStatus moves a request only when it still holds the expected status,
// so terminal states are never overwritten.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentRequestStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentRequest{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// MarkPaid closes a pending request against its settling transaction. The
// pending guard keeps terminal requests immutable.
func (r *repository) MarkPaid(ctx context.Context, id, transactionID uuid.UUID, paidAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentRequest{}).
		Where("id = ? AND status = ?", id, enums.PaymentRequestStatusPending).
		Updates(map[string]any{
			"status":         enums.PaymentRequestStatusPaid,
			"paid_at":        paidAt,
			"transaction_id": transactionID,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ExpireStale flips every overdue pending request to expired in one
// conditional statement, so concurrent sweeps cannot double-apply.
func (r *repository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentRequest{}).
		Where("status = ? AND expires_at < ?", enums.PaymentRequestStatusPending, now).
		Update("status", enums.PaymentRequestStatusExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
