package roles

import (
	"github.com/google/uuid"

	"marketplace/internal/models"
)

// Kind is the effective role category of a caller.
type Kind string

const (
	KindCustomer       Kind = "customer"
	KindAdmin          Kind = "admin"
	KindVendorOwner    Kind = "vendor_owner"
	KindVendorEmployee Kind = "vendor_employee"
)

// Role is the single resolved role of an authenticated identity. Exactly one
// kind applies per user; vendor kinds also carry the vendor identity.
type Role struct {
	Kind         Kind
	UserID       uuid.UUID
	VendorID     uuid.UUID           // set for vendor_owner and vendor_employee
	EmployeeID   uuid.UUID           // set for vendor_employee
	EmployeeRole models.EmployeeRole // set for vendor_employee
}

func (r Role) IsAdmin() bool          { return r.Kind == KindAdmin }
func (r Role) IsVendorOwner() bool    { return r.Kind == KindVendorOwner }
func (r Role) IsVendorEmployee() bool { return r.Kind == KindVendorEmployee }
func (r Role) IsCustomer() bool       { return r.Kind == KindCustomer }

// Resolve derives the caller's single effective role from their profile
// links. Precedence when a user holds several links: admin > vendor owner >
// vendor employee > customer. Inactive employments are ignored; if a user
// somehow holds several active employments the first is used.
func Resolve(user *models.User, admin *models.AdminProfile, vendor *models.Vendor, employments []models.VendorEmployee) Role {
	if admin != nil || user.Role == string(models.UserAdmin) {
		return Role{Kind: KindAdmin, UserID: user.ID}
	}
	if vendor != nil {
		return Role{Kind: KindVendorOwner, UserID: user.ID, VendorID: vendor.UserID}
	}
	for i := range employments {
		if !employments[i].IsActive {
			continue
		}
		return Role{
			Kind:         KindVendorEmployee,
			UserID:       user.ID,
			VendorID:     employments[i].VendorID,
			EmployeeID:   employments[i].ID,
			EmployeeRole: models.EmployeeRole(employments[i].Role),
		}
	}
	return Role{Kind: KindCustomer, UserID: user.ID}
}

// Capability is a named permission granted through the order permission
// matrix.
type Capability string

const (
	CapViewOrders       Capability = "can_view_orders"
	CapEditOrderItems   Capability = "can_edit_order_items"
	CapUpdateStatus     Capability = "can_update_status"
	CapAssignOrders     Capability = "can_assign_orders"
	CapViewCustomerInfo Capability = "can_view_customer_info"
	CapViewFinancials   Capability = "can_view_financials"
	CapProcessRefunds   Capability = "can_process_refunds"
	CapManageReturns    Capability = "can_manage_returns"
)

// AllCapabilities lists every capability in the matrix.
var AllCapabilities = []Capability{
	CapViewOrders,
	CapEditOrderItems,
	CapUpdateStatus,
	CapAssignOrders,
	CapViewCustomerInfo,
	CapViewFinancials,
	CapProcessRefunds,
	CapManageReturns,
}

// CapabilitySet is the set of capabilities a resolved role holds.
type CapabilitySet map[Capability]bool

func (s CapabilitySet) Has(c Capability) bool { return s[c] }

func fullSet() CapabilitySet {
	s := make(CapabilitySet, len(AllCapabilities))
	for _, c := range AllCapabilities {
		s[c] = true
	}
	return s
}

// Capabilities returns the capability set for a role. Admin and vendor owner
// implicitly hold everything for their scope. Employees get the matrix row
// for their sub-role (nil perm means no row seeded, so nothing beyond view
// defaults to false). Customers hold read access plus financial visibility
// on their own orders; ownership itself is enforced by the services.
func Capabilities(role Role, perm *models.OrderPermission) CapabilitySet {
	switch role.Kind {
	case KindAdmin, KindVendorOwner:
		return fullSet()
	case KindVendorEmployee:
		s := make(CapabilitySet, len(AllCapabilities))
		if perm == nil {
			return s
		}
		s[CapViewOrders] = perm.CanViewOrders
		s[CapEditOrderItems] = perm.CanEditOrderItems
		s[CapUpdateStatus] = perm.CanUpdateStatus
		s[CapAssignOrders] = perm.CanAssignOrders
		s[CapViewCustomerInfo] = perm.CanViewCustomerInfo
		s[CapViewFinancials] = perm.CanViewFinancials
		s[CapProcessRefunds] = perm.CanProcessRefunds
		s[CapManageReturns] = perm.CanManageReturns
		return s
	default:
		return CapabilitySet{
			CapViewOrders:     true,
			CapViewFinancials: true,
		}
	}
}
