package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"marketplace/internal/logging"
	"marketplace/internal/models"
	"marketplace/internal/repository"
	"marketplace/internal/roles"
)

// Statuses the customer is told about directly, on top of whatever the
// vendor's preferences say.
var customerNotifyStatuses = map[models.OrderStatus]bool{
	models.StatusShipped:        true,
	models.StatusOutForDelivery: true,
	models.StatusDelivered:      true,
	models.StatusCancelled:      true,
	models.StatusRefunded:       true,
}

type StatusService interface {
	AllowedTransitions(ctx context.Context, actorID, orderID uuid.UUID) ([]models.OrderStatus, error)
	UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, next models.OrderStatus, note string) (*OrderView, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type statusService struct {
	orders    repository.OrderRepository
	users     repository.UserRepository
	analytics repository.AnalyticsRepository
	resolver  RoleResolver
	cache     CacheStore
	notifier  Notifier
}

func NewStatusService(
	orders repository.OrderRepository,
	users repository.UserRepository,
	analytics repository.AnalyticsRepository,
	resolver RoleResolver,
	cache CacheStore,
	notifier Notifier,
) StatusService {
	return &statusService{
		orders:    orders,
		users:     users,
		analytics: analytics,
		resolver:  resolver,
		cache:     cache,
		notifier:  notifier,
	}
}

func (s *statusService) AllowedTransitions(ctx context.Context, actorID, orderID uuid.UUID) ([]models.OrderStatus, error) {
	role, caps, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	order, err := loadOrder(ctx, s.orders, orderID)
	if err != nil {
		return nil, err
	}
	if !canViewOrder(role, caps, order) {
		return nil, &PermissionError{Message: "you do not have access to this order"}
	}

	allowed := availableActions(role, caps, order.Status)
	if allowed == nil {
		allowed = []models.OrderStatus{}
	}
	return allowed, nil
}

// UpdateStatus applies one transition. The capability gate runs before the
// edge check, so an employee without can_update_status is rejected for
// lacking permission, not for picking an illegal edge.
func (s *statusService) UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, next models.OrderStatus, note string) (*OrderView, error) {
	role, caps, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	order, err := loadOrder(ctx, s.orders, orderID)
	if err != nil {
		return nil, err
	}

	if role.IsCustomer() {
		return nil, &PermissionError{Message: "customers cannot change order status"}
	}
	if (role.IsVendorOwner() || role.IsVendorEmployee()) && order.VendorID != role.VendorID {
		return nil, &PermissionError{Message: "you do not have access to this order"}
	}
	if role.IsVendorEmployee() && !caps.Has(roles.CapUpdateStatus) {
		return nil, &PermissionError{Message: "your role cannot change order status"}
	}

	if !next.IsValid() {
		return nil, &ValidationError{Field: "new_status", Message: "unknown status"}
	}
	if !roles.CanTransition(role, order.Status, next) {
		return nil, &InvalidTransitionError{From: order.Status, To: next, Role: role.Kind}
	}

	updated, err := s.orders.ChangeStatus(ctx, orderID, order.Status, next, &actorID, note)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, &ConcurrencyConflictError{OrderID: orderID}
		}
		return nil, err
	}

	invalidateOrderCaches(ctx, s.cache, updated)
	if next.IsTerminal() {
		// Force a recompute on the next analytics read.
		if err := s.cache.Delete(ctx, analyticsKey(updated.VendorID)); err != nil {
			logCacheError("analytics cache invalidation failed", err)
		}
	}
	s.notifyStatusChange(ctx, updated, order.Status, next)

	full, err := loadOrder(ctx, s.orders, orderID)
	if err != nil {
		return nil, err
	}
	view := ProjectOrder(full, role, caps, availableActions(role, caps, full.Status))
	return &view, nil
}

// MarkPaid is the payment-gateway entry point. It is the one transition a
// system actor may perform: PendingPayment to PaymentReceived. Gateway
// retries of an already-confirmed payment are acknowledged, not failed.
func (s *statusService) MarkPaid(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := loadOrder(ctx, s.orders, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.StatusPaymentReceived {
		return order, nil
	}
	if order.Status != models.StatusPendingPayment {
		return nil, &ValidationError{Field: "status", Message: "order is not awaiting payment"}
	}

	updated, err := s.orders.ChangeStatus(ctx, orderID, models.StatusPendingPayment, models.StatusPaymentReceived, nil, "payment confirmed")
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, &ConcurrencyConflictError{OrderID: orderID}
		}
		return nil, err
	}

	invalidateOrderCaches(ctx, s.cache, updated)
	s.notifyPaid(ctx, updated)
	return updated, nil
}

func (s *statusService) notifyStatusChange(ctx context.Context, order *models.Order, from, to models.OrderStatus) {
	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}
	subject := fmt.Sprintf("Order %s is now %s", order.OrderNumber, to)
	body := fmt.Sprintf("Order %s moved from %s to %s.", order.OrderNumber, from, to)

	prefs := s.dashboardPrefs(ctx, order.VendorID)
	if prefs == nil || prefs.NotifyStatusChanges {
		s.send(ctx, order.VendorID, subject, body)
	}
	if customerNotifyStatuses[to] {
		s.send(ctx, order.CustomerID, subject, body)
	}
}

func (s *statusService) notifyPaid(ctx context.Context, order *models.Order) {
	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}
	prefs := s.dashboardPrefs(ctx, order.VendorID)
	if prefs != nil && !prefs.NotifyNewOrders {
		return
	}
	subject := fmt.Sprintf("New paid order %s", order.OrderNumber)
	body := fmt.Sprintf("Order %s has been paid and is ready for processing.", order.OrderNumber)
	s.send(ctx, order.VendorID, subject, body)
}

// dashboardPrefs returns nil when the vendor has no saved preferences yet,
// which callers treat as the notify-everything default.
func (s *statusService) dashboardPrefs(ctx context.Context, vendorID uuid.UUID) *models.VendorOrderDashboard {
	prefs, err := s.analytics.GetDashboard(ctx, vendorID)
	if err != nil {
		logging.LogKV("warn", "dashboard preference lookup failed", map[string]interface{}{
			"vendor_id": vendorID.String(),
			"error":     err.Error(),
		})
		return nil
	}
	return prefs
}

func (s *statusService) send(ctx context.Context, userID uuid.UUID, subject, body string) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		logging.LogKV("warn", "notification recipient lookup failed", map[string]interface{}{
			"user_id": userID.String(),
			"error":   err.Error(),
		})
		return
	}
	if err := s.notifier.Send(ctx, user.Email, subject, body); err != nil {
		logging.LogKV("warn", "notification dispatch failed", map[string]interface{}{
			"recipient": user.Email,
			"error":     err.Error(),
		})
	}
}
