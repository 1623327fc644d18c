package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"marketplace/internal/logging"
	"marketplace/internal/models"
	"marketplace/internal/repository"
	"marketplace/internal/roles"
)

type AssignmentService interface {
	Assign(ctx context.Context, actorID, orderID, employeeID uuid.UUID) (*OrderView, error)
}

type assignmentService struct {
	orders    repository.OrderRepository
	users     repository.UserRepository
	analytics repository.AnalyticsRepository
	resolver  RoleResolver
	cache     CacheStore
	notifier  Notifier
}

func NewAssignmentService(
	orders repository.OrderRepository,
	users repository.UserRepository,
	analytics repository.AnalyticsRepository,
	resolver RoleResolver,
	cache CacheStore,
	notifier Notifier,
) AssignmentService {
	return &assignmentService{
		orders:    orders,
		users:     users,
		analytics: analytics,
		resolver:  resolver,
		cache:     cache,
		notifier:  notifier,
	}
}

// Assign hands the order to an employee. Reassignment is the same call with
// a new target; the repository deactivates the previous assignment row in
// the same transaction.
func (s *assignmentService) Assign(ctx context.Context, actorID, orderID, employeeID uuid.UUID) (*OrderView, error) {
	role, caps, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	order, err := loadOrder(ctx, s.orders, orderID)
	if err != nil {
		return nil, err
	}

	switch {
	case role.IsAdmin():
	case role.IsVendorOwner():
		if order.VendorID != role.VendorID {
			return nil, &PermissionError{Message: "you do not have access to this order"}
		}
	case role.IsVendorEmployee():
		if order.VendorID != role.VendorID {
			return nil, &PermissionError{Message: "you do not have access to this order"}
		}
		if !caps.Has(roles.CapAssignOrders) {
			return nil, &PermissionError{Message: "your role cannot assign orders"}
		}
	default:
		return nil, &PermissionError{Message: "customers cannot assign orders"}
	}

	employee, err := s.users.GetEmployeeByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, ErrEmployeeNotFound
	}
	if !employee.IsActive {
		return nil, &ValidationError{Field: "employee_id", Message: "employee is not active"}
	}
	// Admin may move an order across vendor boundaries; nobody else may.
	if employee.VendorID != order.VendorID && !role.IsAdmin() {
		return nil, &CrossVendorError{OrderVendorID: order.VendorID, EmployeeVendorID: employee.VendorID}
	}
	if order.Status.IsTerminal() {
		return nil, &ValidationError{Field: "status", Message: "cannot assign a completed order"}
	}

	previous := order.AssignedToID

	updated, err := s.orders.Assign(ctx, orderID, employeeID, actorID)
	if err != nil {
		return nil, err
	}

	invalidateOrderCaches(ctx, s.cache, updated)
	if previous != nil && *previous != employeeID {
		if err := s.cache.Delete(ctx, employeeOrdersKey(*previous)); err != nil {
			logCacheError("assignee cache invalidation failed", err)
		}
	}
	s.notifyAssignment(ctx, updated, employee)

	full, err := loadOrder(ctx, s.orders, orderID)
	if err != nil {
		return nil, err
	}
	view := ProjectOrder(full, role, caps, availableActions(role, caps, full.Status))
	return &view, nil
}

func (s *assignmentService) notifyAssignment(ctx context.Context, order *models.Order, employee *models.VendorEmployee) {
	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}
	prefs, err := s.analytics.GetDashboard(ctx, order.VendorID)
	if err != nil {
		logging.LogKV("warn", "dashboard preference lookup failed", map[string]interface{}{
			"vendor_id": order.VendorID.String(),
			"error":     err.Error(),
		})
		prefs = nil
	}
	if prefs != nil && !prefs.NotifyAssignedOrders {
		return
	}

	recipient := ""
	if employee.User != nil {
		recipient = employee.User.Email
	}
	if recipient == "" {
		user, err := s.users.GetByID(ctx, employee.UserID)
		if err != nil {
			logging.LogKV("warn", "notification recipient lookup failed", map[string]interface{}{
				"user_id": employee.UserID.String(),
				"error":   err.Error(),
			})
			return
		}
		recipient = user.Email
	}

	subject := fmt.Sprintf("Order %s assigned to you", order.OrderNumber)
	body := fmt.Sprintf("Order %s is now your responsibility (status: %s).", order.OrderNumber, order.Status)
	if err := s.notifier.Send(ctx, recipient, subject, body); err != nil {
		logging.LogKV("warn", "notification dispatch failed", map[string]interface{}{
			"recipient": recipient,
			"error":     err.Error(),
		})
	}
}
