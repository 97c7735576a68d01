package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Omkark04/agency-platform-backend/pkg/enums"
)

// OrderStatusHistory is the append-only audit trail of workflow transitions.
// Rows are created exactly once per accepted transition and never change. Seq
// breaks timestamp ties so replay order is stable.
type OrderStatusHistory struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Seq        int64              `gorm:"column:seq;autoIncrement;uniqueIndex" json:"seq"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	FromStatus *enums.OrderStatus `gorm:"column:from_status;type:order_status" json:"from_status,omitempty"`
	ToStatus   enums.OrderStatus  `gorm:"column:to_status;type:order_status;not null" json:"to_status"`
	ChangedBy  string             `gorm:"column:changed_by;not null" json:"changed_by"`
	Notes      string             `gorm:"column:notes" json:"notes,omitempty"`
	Metadata   json.RawMessage    `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName pins the plural-free table name used by the migrations.
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
