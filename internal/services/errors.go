package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"marketplace/internal/models"
	"marketplace/internal/roles"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrItemNotFound     = errors.New("order item not found")
	ErrUserNotFound     = errors.New("user not found")
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidTransitionError reports a status change the actor's role has no
// edge for.
type InvalidTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
	Role roles.Kind
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s is not allowed for role %s", e.From, e.To, e.Role)
}

// PermissionError reports an actor acting outside their capabilities.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string {
	return e.Message
}

// CrossVendorError reports an assignment of an employee belonging to a
// different vendor.
type CrossVendorError struct {
	OrderVendorID    uuid.UUID
	EmployeeVendorID uuid.UUID
}

func (e *CrossVendorError) Error() string {
	return fmt.Sprintf("employee belongs to vendor %s, order belongs to vendor %s", e.EmployeeVendorID, e.OrderVendorID)
}

// ConcurrencyConflictError reports a lost race: the order changed between
// the caller's read and their write.
type ConcurrencyConflictError struct {
	OrderID uuid.UUID
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("order %s was modified concurrently, retry with fresh state", e.OrderID)
}

// AnalyticsUnavailableError reports an analytics request for a vendor that
// does not exist.
type AnalyticsUnavailableError struct {
	VendorID uuid.UUID
}

func (e *AnalyticsUnavailableError) Error() string {
	return fmt.Sprintf("no analytics available for vendor %s", e.VendorID)
}
