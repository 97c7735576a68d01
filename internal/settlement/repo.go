package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Omkark04/agency-platform-backend/pkg/db/models"
	"github.com/Omkark04/agency-platform-backend/pkg/enums"
)

// TransactionRepository manages the append-only settlement ledger.
type TransactionRepository interface {
	WithTx(tx *gorm.DB) TransactionRepository
	Create(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByGatewayTxn(ctx context.Context, gateway enums.Gateway, gatewayTransactionID string) (*models.Transaction, error)
	FindSuccessByPaymentOrder(ctx context.Context, paymentOrderID uuid.UUID) (*models.Transaction, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error)
	SetReceiptURL(ctx context.Context, id uuid.UUID, url string) error
	ListSettledWithoutReceipt(ctx context.Context, limit int) ([]models.Transaction, error)
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository returns a transaction repository bound to the
// database.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) WithTx(tx *gorm.DB) TransactionRepository {
	if tx == nil {
		return r
	}
	return &transactionRepository{db: tx}
}

func (r *transactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *transactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) FindByGatewayTxn(ctx context.Context, gateway enums.Gateway, gatewayTransactionID string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).
		First(&txn, "gateway = ? AND gateway_transaction_id = ?", gateway, gatewayTransactionID).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) FindSuccessByPaymentOrder(ctx context.Context, paymentOrderID uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).
		First(&txn, "payment_order_id = ? AND status = ?", paymentOrderID, enums.TransactionStatusSuccess).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error) {
	var txns []models.Transaction
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *transactionRepository) SetReceiptURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("receipt_url", url).Error
}

func (r *transactionRepository) ListSettledWithoutReceipt(ctx context.Context, limit int) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND receipt_url IS NULL", enums.TransactionStatusSuccess).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var txns []models.Transaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// OrderLedger is settlement's window onto orders. Nothing else in the system
// may write total_paid.
type OrderLedger interface {
	WithTx(tx *gorm.DB) OrderLedger
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateTotalPaid(ctx context.Context, id uuid.UUID, from, to decimal.Decimal) (int64, error)
}

type orderLedger struct {
	db *gorm.DB
}

// NewOrderLedger returns the settlement-side order accessor.
func NewOrderLedger(db *gorm.DB) OrderLedger {
	return &orderLedger{db: db}
}

func (r *orderLedger) WithTx(tx *gorm.DB) OrderLedger {
	if tx == nil {
		return r
	}
	return &orderLedger{db: tx}
}

func (r *orderLedger) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateTotalPaid moves total_paid only when the row still holds the value
// the caller computed against, serializing concurrent settlements.
func (r *orderLedger) UpdateTotalPaid(ctx context.Context, id uuid.UUID, from, to decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND total_paid = ?", id, from).
		Update("total_paid", to)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
