package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/models"
)

// ItemPatch carries the mutable item fields. Nil fields are left untouched.
type ItemPatch struct {
	Quantity       *int
	Price          *decimal.Decimal
	TaxAmount      *decimal.Decimal
	DiscountAmount *decimal.Decimal
}

type OrderItemRepository interface {
	GetByID(ctx context.Context, itemID uint) (*models.OrderItem, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	Add(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, item *models.OrderItem) (*models.Order, error)
	Update(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, itemID uint, patch ItemPatch) (*models.Order, error)
	Remove(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, itemID uint) (*models.Order, error)
}

type orderItemRepository struct {
	db *gorm.DB
}

func NewOrderItemRepository(db *gorm.DB) OrderItemRepository {
	return &orderItemRepository{db: db}
}

func (r *orderItemRepository) GetByID(ctx context.Context, itemID uint) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *orderItemRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id").Find(&items).Error
	return items, err
}

func (r *orderItemRepository) Add(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, item *models.OrderItem) (*models.Order, error) {
	return r.mutate(ctx, orderID, expected, func(tx *gorm.DB) error {
		item.OrderID = orderID
		item.RecomputeLineTotal()
		return tx.Create(item).Error
	})
}

func (r *orderItemRepository) Update(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, itemID uint, patch ItemPatch) (*models.Order, error) {
	return r.mutate(ctx, orderID, expected, func(tx *gorm.DB) error {
		var item models.OrderItem
		if err := tx.First(&item, "id = ? AND order_id = ?", itemID, orderID).Error; err != nil {
			return err
		}
		if patch.Quantity != nil {
			item.Quantity = *patch.Quantity
		}
		if patch.Price != nil {
			item.Price = *patch.Price
		}
		if patch.TaxAmount != nil {
			item.TaxAmount = *patch.TaxAmount
		}
		if patch.DiscountAmount != nil {
			item.DiscountAmount = *patch.DiscountAmount
		}
		item.RecomputeLineTotal()
		return tx.Save(&item).Error
	})
}

func (r *orderItemRepository) Remove(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, itemID uint) (*models.Order, error) {
	return r.mutate(ctx, orderID, expected, func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND order_id = ?", itemID, orderID).Delete(&models.OrderItem{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// mutate runs one item change inside a transaction: locked order read,
// conflict check, the change itself, then the totals recompute. Totals are
// only persisted while the order is editable; later edits adjust line
// records without touching the frozen order totals.
func (r *orderItemRepository) mutate(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, change func(tx *gorm.DB) error) (*models.Order, error) {
	var updated models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", orderID).Error; err != nil {
			return err
		}
		if order.Status != expected {
			return ErrStatusConflict
		}

		if err := change(tx); err != nil {
			return err
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", orderID).Order("id").Find(&items).Error; err != nil {
			return err
		}

		if order.Status.IsEditable() {
			order.RecomputeTotals(items)
			values := map[string]interface{}{
				"subtotal": order.Subtotal,
				"total":    order.Total,
			}
			if err := tx.Model(&order).Updates(values).Error; err != nil {
				return err
			}
		}

		order.Items = items
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
