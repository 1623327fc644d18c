package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/models"
)

// TerminalStats aggregates the completed-order figures a refresh is built
// from.
type TerminalStats struct {
	TotalOrders    int64
	TotalRevenue   decimal.Decimal
	TotalItemsSold int64
}

type AnalyticsRepository interface {
	GetAnalytics(ctx context.Context, vendorID uuid.UUID) (*models.VendorOrderAnalytics, error)
	SaveAnalytics(ctx context.Context, row *models.VendorOrderAnalytics) error
	TerminalStats(ctx context.Context, vendorID uuid.UUID, statuses []models.OrderStatus) (*TerminalStats, error)
	GetDashboard(ctx context.Context, vendorID uuid.UUID) (*models.VendorOrderDashboard, error)
	SaveDashboard(ctx context.Context, row *models.VendorOrderDashboard) error
}

type analyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) GetAnalytics(ctx context.Context, vendorID uuid.UUID) (*models.VendorOrderAnalytics, error) {
	var row models.VendorOrderAnalytics
	err := r.db.WithContext(ctx).First(&row, "vendor_id = ?", vendorID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *analyticsRepository) SaveAnalytics(ctx context.Context, row *models.VendorOrderAnalytics) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "vendor_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_orders",
			"total_revenue",
			"average_order_value",
			"total_items_sold",
			"last_updated",
		}),
	}).Create(row).Error
}

func (r *analyticsRepository) TerminalStats(ctx context.Context, vendorID uuid.UUID, statuses []models.OrderStatus) (*TerminalStats, error) {
	var totals struct {
		TotalOrders  int64
		TotalRevenue decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("COUNT(*) AS total_orders, COALESCE(SUM(total), 0) AS total_revenue").
		Where("vendor_id = ? AND status IN ?", vendorID, statuses).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	// Soft-deleted orders are filtered automatically on the orders model but
	// not through the join, so the join repeats the check.
	var itemsSold struct {
		TotalItemsSold int64
	}
	err = r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Select("COALESCE(SUM(order_items.quantity), 0) AS total_items_sold").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.vendor_id = ? AND orders.status IN ? AND orders.deleted_at IS NULL", vendorID, statuses).
		Scan(&itemsSold).Error
	if err != nil {
		return nil, err
	}

	return &TerminalStats{
		TotalOrders:    totals.TotalOrders,
		TotalRevenue:   totals.TotalRevenue,
		TotalItemsSold: itemsSold.TotalItemsSold,
	}, nil
}

func (r *analyticsRepository) GetDashboard(ctx context.Context, vendorID uuid.UUID) (*models.VendorOrderDashboard, error) {
	var row models.VendorOrderDashboard
	err := r.db.WithContext(ctx).First(&row, "vendor_id = ?", vendorID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *analyticsRepository) SaveDashboard(ctx context.Context, row *models.VendorOrderDashboard) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "vendor_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"default_status_filter",
			"show_unassigned_orders",
			"show_assigned_to_others",
			"notify_new_orders",
			"notify_assigned_orders",
			"notify_status_changes",
		}),
	}).Create(row).Error
}
