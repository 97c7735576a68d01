package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Omkark04/agency-platform-backend/pkg/enums"
)

// PaymentRequest is an admin-issued ask for a (possibly partial) amount
// against an order. Moves to paid only through settlement.
type PaymentRequest struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID       uuid.UUID                  `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	Amount        decimal.Decimal            `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Gateway       enums.Gateway              `gorm:"column:gateway;type:payment_gateway;not null" json:"gateway"`
	Currency      string                     `gorm:"column:currency;not null;default:'INR'" json:"currency"`
	Status        enums.PaymentRequestStatus `gorm:"column:status;type:payment_request_status;not null;default:'pending'" json:"status"`
	Notes         *string                    `gorm:"column:notes" json:"notes,omitempty"`
	RequestedBy   string                     `gorm:"column:requested_by;not null" json:"requested_by"`
	ExpiresAt     time.Time                  `gorm:"column:expires_at;not null" json:"expires_at"`
	PaidAt        *time.Time                 `gorm:"column:paid_at" json:"paid_at,omitempty"`
	TransactionID *uuid.UUID                 `gorm:"column:transaction_id;type:uuid" json:"transaction_id,omitempty"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time                  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
