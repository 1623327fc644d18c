package models

import (
	"time"
)

// OrderPermission is the static capability row for a vendor-employee role.
// Configuration data seeded at install time, not mutated by normal flows.
type OrderPermission struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	Role                string    `json:"role" gorm:"unique;not null"` // manager, staff, customer_service, delivery
	CanViewOrders       bool      `json:"can_view_orders" gorm:"default:false"`
	CanEditOrderItems   bool      `json:"can_edit_order_items" gorm:"default:false"`
	CanUpdateStatus     bool      `json:"can_update_status" gorm:"default:false"`
	CanAssignOrders     bool      `json:"can_assign_orders" gorm:"default:false"`
	CanViewCustomerInfo bool      `json:"can_view_customer_info" gorm:"default:false"`
	CanViewFinancials   bool      `json:"can_view_financials" gorm:"default:false"`
	CanProcessRefunds   bool      `json:"can_process_refunds" gorm:"default:false"`
	CanManageReturns    bool      `json:"can_manage_returns" gorm:"default:false"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// DefaultOrderPermissions returns the seeded capability matrix, one row per
// employee role.
func DefaultOrderPermissions() []OrderPermission {
	return []OrderPermission{
		{
			Role:                string(EmployeeManager),
			CanViewOrders:       true,
			CanEditOrderItems:   true,
			CanUpdateStatus:     true,
			CanAssignOrders:     true,
			CanViewCustomerInfo: true,
			CanViewFinancials:   true,
			CanProcessRefunds:   true,
			CanManageReturns:    true,
		},
		{
			Role:                string(EmployeeCustomerService),
			CanViewOrders:       true,
			CanUpdateStatus:     true,
			CanViewCustomerInfo: true,
			CanManageReturns:    true,
		},
		{
			Role:                string(EmployeeStaff),
			CanViewOrders:       true,
			CanViewCustomerInfo: true,
		},
		{
			Role:          string(EmployeeDelivery),
			CanViewOrders: true,
		},
	}
}
