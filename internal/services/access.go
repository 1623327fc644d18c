package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"marketplace/internal/models"
	"marketplace/internal/repository"
	"marketplace/internal/roles"
)

// loadOrder reads from the durable store. Write paths always go through
// this, never the cache.
func loadOrder(ctx context.Context, orders repository.OrderRepository, orderID uuid.UUID) (*models.Order, error) {
	order, err := orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// canViewOrder reports whether the actor may read this order at all. Vendor
// roles are scoped to their own vendor; customers to their own orders.
func canViewOrder(role roles.Role, caps roles.CapabilitySet, order *models.Order) bool {
	switch {
	case role.IsAdmin():
		return true
	case role.IsVendorOwner():
		return order.VendorID == role.VendorID
	case role.IsVendorEmployee():
		return order.VendorID == role.VendorID && caps.Has(roles.CapViewOrders)
	default:
		return order.CustomerID == role.UserID
	}
}

// checkItemEdit decides whether the actor may change this order's items in
// its current status. Draft and PendingPayment are open to the order's
// customer, the vendor side, and admin; Processing only to holders of the
// item-edit capability; anything later is closed to everyone.
func checkItemEdit(role roles.Role, caps roles.CapabilitySet, order *models.Order) error {
	if !canViewOrder(role, caps, order) {
		return &PermissionError{Message: "you do not have access to this order"}
	}

	switch order.Status {
	case models.StatusDraft, models.StatusPendingPayment:
		if role.IsAdmin() || role.IsVendorOwner() {
			return nil
		}
		if role.IsCustomer() && order.CustomerID == role.UserID {
			return nil
		}
		if role.IsVendorEmployee() && caps.Has(roles.CapEditOrderItems) {
			return nil
		}
		return &PermissionError{Message: "you cannot edit this order's items"}
	case models.StatusProcessing:
		if role.IsCustomer() {
			return &PermissionError{Message: "items can no longer be changed on a processing order"}
		}
		if caps.Has(roles.CapEditOrderItems) {
			return nil
		}
		return &PermissionError{Message: "you cannot edit this order's items"}
	default:
		return &ValidationError{Field: "status", Message: "order items can no longer be edited"}
	}
}
