package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/logging"
	"marketplace/internal/models"
)

// CacheStore is the slice of the redis client the services use. Lookups
// report a hit flag so a miss is not an error.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

func orderKey(orderID uuid.UUID) string {
	return fmt.Sprintf("order:%s", orderID)
}

func historyKey(orderID uuid.UUID) string {
	return fmt.Sprintf("order:%s:history", orderID)
}

func vendorOrdersKey(vendorID uuid.UUID) string {
	return fmt.Sprintf("orders:vendor:%s", vendorID)
}

func customerOrdersKey(customerID uuid.UUID) string {
	return fmt.Sprintf("orders:customer:%s", customerID)
}

func employeeOrdersKey(employeeID uuid.UUID) string {
	return fmt.Sprintf("orders:employee:%s", employeeID)
}

func summaryKey(userID uuid.UUID) string {
	return fmt.Sprintf("orders:summary:%s", userID)
}

func dashboardKey(vendorID uuid.UUID) string {
	return fmt.Sprintf("vendor:dashboard:%s", vendorID)
}

func analyticsKey(vendorID uuid.UUID) string {
	return fmt.Sprintf("vendor:analytics:%s", vendorID)
}

// invalidateOrderCaches drops every cached read derived from this order:
// the order itself (and its history entries, via the prefix), the vendor,
// customer and assignee lists, the summaries, and the vendor dashboard.
// Called strictly after commit; failures are logged and swallowed because
// the durable store stays authoritative.
func invalidateOrderCaches(ctx context.Context, cache CacheStore, order *models.Order) {
	if err := cache.DeleteByPrefix(ctx, fmt.Sprintf("order:%s", order.ID)); err != nil {
		logging.LogKV("warn", "order cache invalidation failed", map[string]interface{}{
			"order_id": order.ID.String(),
			"error":    err.Error(),
		})
	}

	keys := []string{
		vendorOrdersKey(order.VendorID),
		customerOrdersKey(order.CustomerID),
		summaryKey(order.VendorID),
		summaryKey(order.CustomerID),
		dashboardKey(order.VendorID),
	}
	if order.AssignedToID != nil {
		keys = append(keys, employeeOrdersKey(*order.AssignedToID))
	}
	if err := cache.Delete(ctx, keys...); err != nil {
		logging.LogKV("warn", "list cache invalidation failed", map[string]interface{}{
			"order_id": order.ID.String(),
			"error":    err.Error(),
		})
	}
}
