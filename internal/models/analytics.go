package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorOrderAnalytics is a derived aggregate over a vendor's terminal
// orders. Created lazily on first access and always fully recomputed, never
// incrementally updated, so it converges regardless of missed writes.
type VendorOrderAnalytics struct {
	VendorID          uuid.UUID       `json:"vendor_id" gorm:"type:uuid;primaryKey"`
	TotalOrders       int64           `json:"total_orders" gorm:"not null;default:0"`
	TotalRevenue      decimal.Decimal `json:"total_revenue" gorm:"type:decimal(14,2);not null;default:0"`
	AverageOrderValue decimal.Decimal `json:"average_order_value" gorm:"type:decimal(12,2);not null;default:0"`
	TotalItemsSold    int64           `json:"total_items_sold" gorm:"not null;default:0"`
	LastUpdated       time.Time       `json:"last_updated"`
}

// VendorOrderDashboard holds per-vendor display and notification
// preferences. Independent of order data.
type VendorOrderDashboard struct {
	VendorID             uuid.UUID `json:"vendor_id" gorm:"type:uuid;primaryKey"`
	DefaultStatusFilter  string    `json:"default_status_filter" gorm:"type:varchar(32);default:'processing'"`
	ShowUnassignedOrders bool      `json:"show_unassigned_orders" gorm:"default:true"`
	ShowAssignedToOthers bool      `json:"show_assigned_to_others" gorm:"default:false"`
	NotifyNewOrders      bool      `json:"notify_new_orders" gorm:"default:true"`
	NotifyAssignedOrders bool      `json:"notify_assigned_orders" gorm:"default:true"`
	NotifyStatusChanges  bool      `json:"notify_status_changes" gorm:"default:true"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DefaultDashboard returns the preference row a vendor starts with.
func DefaultDashboard(vendorID uuid.UUID) *VendorOrderDashboard {
	return &VendorOrderDashboard{
		VendorID:             vendorID,
		DefaultStatusFilter:  string(StatusProcessing),
		ShowUnassignedOrders: true,
		ShowAssignedToOthers: false,
		NotifyNewOrders:      true,
		NotifyAssignedOrders: true,
		NotifyStatusChanges:  true,
	}
}
