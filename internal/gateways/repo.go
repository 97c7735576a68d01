package gateways

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Omkark04/agency-platform-backend/pkg/db/models"
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
)

// Repository manages persistence for gateway checkout sessions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PaymentOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentOrder, error)
	FindByGatewayRef(ctx context.Context, gateway enums.Gateway, gatewayOrderID string) (*models.PaymentOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentOrderStatus) (int64, error)
	ExpireStaleCreated(ctx context.Context, olderThan time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment order repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.PaymentOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByGatewayRef(ctx context.Context, gateway enums.Gateway, gatewayOrderID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if err := r.db.WithContext(ctx).
		First(&order, "gateway = ? AND gateway_order_id = ?", gateway, gatewayOrderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentOrderStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentOrder{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ExpireStaleCreated abandons sessions the client never completed. Guarded on
// current status so a concurrent settlement is never clobbered.
func (r *repository) ExpireStaleCreated(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentOrder{}).
		Where("status IN ? AND created_at < ?", []enums.PaymentOrderStatus{
			enums.PaymentOrderStatusCreated,
			enums.PaymentOrderStatusAttempted,
		}, olderThan).
		Update("status", enums.PaymentOrderStatusExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
