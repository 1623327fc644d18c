package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatusHistory rows are append-only. They are never updated or deleted;
// reading newest-first is the canonical audit trail.
type OrderStatusHistory struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	OrderID     uuid.UUID   `json:"order_id" gorm:"type:uuid;not null;index"`
	OldStatus   OrderStatus `json:"old_status" gorm:"type:varchar(32);not null"`
	NewStatus   OrderStatus `json:"new_status" gorm:"type:varchar(32);not null"`
	ChangedByID *uuid.UUID  `json:"changed_by_id,omitempty" gorm:"type:uuid"`
	Note        string      `json:"note" gorm:"type:text"`
	CreatedAt   time.Time   `json:"created_at"`
}

// OrderAssignmentHistory tracks who handles an order over time. At most one
// row per order is active; activating a new row deactivates the prior one in
// the same transaction.
type OrderAssignmentHistory struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	OrderID      uuid.UUID  `json:"order_id" gorm:"type:uuid;not null;index"`
	AssignedToID uuid.UUID  `json:"assigned_to_id" gorm:"type:uuid;not null"`
	AssignedByID uuid.UUID  `json:"assigned_by_id" gorm:"type:uuid;not null"`
	Active       bool       `json:"active" gorm:"not null;default:true"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
