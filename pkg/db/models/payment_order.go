package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Omkark04/agency-platform-backend/pkg/enums"
)

// PaymentOrder is one gateway checkout session. A payment request may spawn
// several of these: retries open new sessions, never reuse old ones.
type PaymentOrder struct {
	ID               uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID          uuid.UUID                `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	PaymentRequestID *uuid.UUID               `gorm:"column:payment_request_id;type:uuid" json:"payment_request_id,omitempty"`
	Gateway          enums.Gateway            `gorm:"column:gateway;type:payment_gateway;not null;uniqueIndex:idx_payment_orders_gateway_ref" json:"gateway"`
	GatewayOrderID   string                   `gorm:"column:gateway_order_id;not null;uniqueIndex:idx_payment_orders_gateway_ref" json:"gateway_order_id"`
	Amount           decimal.Decimal          `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency         string                   `gorm:"column:currency;not null" json:"currency"`
	Status           enums.PaymentOrderStatus `gorm:"column:status;type:payment_order_status;not null;default:'created'" json:"status"`
	Metadata         json.RawMessage          `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt        time.Time                `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time                `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
