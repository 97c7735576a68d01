package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Omkark04/agency-platform-backend/pkg/enums"
)

// Order is a client's service request. Status moves only through the workflow
// state machine; TotalPaid moves only through settlement.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientName      string            `gorm:"column:client_name;not null" json:"client_name"`
	ClientEmail     string            `gorm:"column:client_email;not null" json:"client_email"`
	ServiceType     string            `gorm:"column:service_type;not null" json:"service_type"`
	Description     *string           `gorm:"column:description" json:"description,omitempty"`
	Price           decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	TotalPaid       decimal.Decimal   `gorm:"column:total_paid;type:numeric(12,2);not null;default:0" json:"total_paid"`
	Currency        string            `gorm:"column:currency;not null;default:'INR'" json:"currency"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'" json:"status"`
	StatusUpdatedAt *time.Time        `gorm:"column:status_updated_at" json:"status_updated_at,omitempty"`
	StatusUpdatedBy *string           `gorm:"column:status_updated_by" json:"status_updated_by,omitempty"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// RemainingBalance is the amount still collectable against the order.
func (o *Order) RemainingBalance() decimal.Decimal {
	return o.Price.Sub(o.TotalPaid)
}
