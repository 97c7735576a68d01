package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Omkark04/agency-platform-backend/pkg/enums"
)

// Transaction is the immutable record of one settlement attempt. A failed row
// is never mutated into a success; retries append new rows linked by OrderID.
type Transaction struct {
	ID                   uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID              uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	PaymentOrderID       *uuid.UUID              `gorm:"column:payment_order_id;type:uuid" json:"payment_order_id,omitempty"`
	Gateway              enums.Gateway           `gorm:"column:gateway;type:payment_gateway;not null;uniqueIndex:idx_transactions_gateway_txn" json:"gateway"`
	GatewayTransactionID string                  `gorm:"column:gateway_transaction_id;not null;uniqueIndex:idx_transactions_gateway_txn" json:"gateway_transaction_id"`
	GatewayOrderID       *string                 `gorm:"column:gateway_order_id" json:"gateway_order_id,omitempty"`
	Signature            *string                 `gorm:"column:signature" json:"signature,omitempty"`
	IsVerified           bool                    `gorm:"column:is_verified;not null;default:false" json:"is_verified"`
	Amount               decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency             string                  `gorm:"column:currency;not null" json:"currency"`
	Status               enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'pending'" json:"status"`
	ErrorCode            *string                 `gorm:"column:error_code" json:"error_code,omitempty"`
	ErrorMessage         *string                 `gorm:"column:error_message" json:"error_message,omitempty"`
	RetryCount           int                     `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	MaxRetries           int                     `gorm:"column:max_retries;not null;default:3" json:"max_retries"`
	RefundAmount         *decimal.Decimal        `gorm:"column:refund_amount;type:numeric(12,2)" json:"refund_amount,omitempty"`
	RefundReason         *string                 `gorm:"column:refund_reason" json:"refund_reason,omitempty"`
	RefundedAt           *time.Time              `gorm:"column:refunded_at" json:"refunded_at,omitempty"`
	ReceiptURL           *string                 `gorm:"column:receipt_url" json:"receipt_pdf_url,omitempty"`
	CreatedAt            time.Time               `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	CompletedAt          *time.Time              `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

// CanRetry is derived, never stored: drift between the flag and its inputs is
// impossible by construction.
func (t *Transaction) CanRetry() bool {
	return t.Status == enums.TransactionStatusFailed && t.RetryCount < t.MaxRetries
}
