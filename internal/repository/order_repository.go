package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/models"
)

// ErrStatusConflict is returned when a transaction's locked re-read finds
// the order status changed since the caller's view.
var ErrStatusConflict = errors.New("order status changed concurrently")

// OrderFilter narrows list queries.
type OrderFilter struct {
	Status     *models.OrderStatus
	Unassigned bool
	Limit      int
}

// SummaryScope narrows the status-count aggregation. Both fields nil means
// platform-wide.
type SummaryScope struct {
	VendorID   *uuid.UUID
	CustomerID *uuid.UUID
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByNumber(ctx context.Context, number string) (*models.Order, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, filter OrderFilter) ([]models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, filter OrderFilter) ([]models.Order, error)
	ListByAssignee(ctx context.Context, employeeID uuid.UUID, filter OrderFilter) ([]models.Order, error)
	CountByStatus(ctx context.Context, scope SummaryScope) (map[models.OrderStatus]int64, error)
	ChangeStatus(ctx context.Context, orderID uuid.UUID, expected, next models.OrderStatus, changedBy *uuid.UUID, note string) (*models.Order, error)
	Assign(ctx context.Context, orderID uuid.UUID, employeeID, assignedBy uuid.UUID) (*models.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "order_number = ?", number).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func applyFilter(q *gorm.DB, filter OrderFilter) *gorm.DB {
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.Unassigned {
		q = q.Where("assigned_to_id IS NULL")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	return q.Order("created_at DESC")
}

func (r *orderRepository) ListByVendor(ctx context.Context, vendorID uuid.UUID, filter OrderFilter) ([]models.Order, error) {
	var orders []models.Order
	q := r.db.WithContext(ctx).Preload("Items").Where("vendor_id = ?", vendorID)
	err := applyFilter(q, filter).Find(&orders).Error
	return orders, err
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, filter OrderFilter) ([]models.Order, error) {
	var orders []models.Order
	q := r.db.WithContext(ctx).Preload("Items").Where("customer_id = ?", customerID)
	err := applyFilter(q, filter).Find(&orders).Error
	return orders, err
}

func (r *orderRepository) ListByAssignee(ctx context.Context, employeeID uuid.UUID, filter OrderFilter) ([]models.Order, error) {
	var orders []models.Order
	q := r.db.WithContext(ctx).Preload("Items").Where("assigned_to_id = ?", employeeID)
	err := applyFilter(q, filter).Find(&orders).Error
	return orders, err
}

func (r *orderRepository) CountByStatus(ctx context.Context, scope SummaryScope) (map[models.OrderStatus]int64, error) {
	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	q := r.db.WithContext(ctx).Model(&models.Order{}).Select("status, COUNT(*) AS count").Group("status")
	if scope.VendorID != nil {
		q = q.Where("vendor_id = ?", *scope.VendorID)
	}
	if scope.CustomerID != nil {
		q = q.Where("customer_id = ?", *scope.CustomerID)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[models.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ChangeStatus moves the order to the next status inside one transaction:
// locked re-read, conflict check against the caller's expected status, the
// status write, and the history append. A terminal next status also ends the
// active assignment row.
func (r *orderRepository) ChangeStatus(ctx context.Context, orderID uuid.UUID, expected, next models.OrderStatus, changedBy *uuid.UUID, note string) (*models.Order, error) {
	var updated models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", orderID).Error; err != nil {
			return err
		}
		if order.Status != expected {
			return ErrStatusConflict
		}

		now := time.Now()
		values := map[string]interface{}{
			"status":             next,
			"status_changed_at":  now,
			"last_updated_by_id": changedBy,
		}
		if err := tx.Model(&order).Updates(values).Error; err != nil {
			return err
		}

		history := models.OrderStatusHistory{
			OrderID:     order.ID,
			OldStatus:   expected,
			NewStatus:   next,
			ChangedByID: changedBy,
			Note:        note,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		if next.IsTerminal() {
			if err := endActiveAssignment(tx, order.ID, now); err != nil {
				return err
			}
		}

		order.Status = next
		order.StatusChangedAt = now
		order.LastUpdatedByID = changedBy
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Assign swaps the active assignment inside one transaction: the prior
// active history row is deactivated, a new active row is inserted, and the
// order's assignee reference is updated.
func (r *orderRepository) Assign(ctx context.Context, orderID uuid.UUID, employeeID, assignedBy uuid.UUID) (*models.Order, error) {
	var updated models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", orderID).Error; err != nil {
			return err
		}

		now := time.Now()
		if err := endActiveAssignment(tx, order.ID, now); err != nil {
			return err
		}

		row := models.OrderAssignmentHistory{
			OrderID:      order.ID,
			AssignedToID: employeeID,
			AssignedByID: assignedBy,
			Active:       true,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		values := map[string]interface{}{
			"assigned_to_id":     employeeID,
			"last_updated_by_id": assignedBy,
		}
		if err := tx.Model(&order).Updates(values).Error; err != nil {
			return err
		}

		order.AssignedToID = &employeeID
		order.LastUpdatedByID = &assignedBy
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func endActiveAssignment(tx *gorm.DB, orderID uuid.UUID, endedAt time.Time) error {
	return tx.Model(&models.OrderAssignmentHistory{}).
		Where("order_id = ? AND active = ?", orderID, true).
		Updates(map[string]interface{}{"active": false, "ended_at": endedAt}).Error
}
