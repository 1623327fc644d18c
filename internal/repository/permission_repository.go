package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/models"
)

type PermissionRepository interface {
	GetByRole(ctx context.Context, role models.EmployeeRole) (*models.OrderPermission, error)
	All(ctx context.Context) ([]models.OrderPermission, error)
	Upsert(ctx context.Context, perm *models.OrderPermission) error
}

type permissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) GetByRole(ctx context.Context, role models.EmployeeRole) (*models.OrderPermission, error) {
	var perm models.OrderPermission
	err := r.db.WithContext(ctx).First(&perm, "role = ?", role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &perm, nil
}

func (r *permissionRepository) All(ctx context.Context) ([]models.OrderPermission, error) {
	var perms []models.OrderPermission
	err := r.db.WithContext(ctx).Order("role").Find(&perms).Error
	return perms, err
}

func (r *permissionRepository) Upsert(ctx context.Context, perm *models.OrderPermission) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "role"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"can_view_orders",
			"can_edit_order_items",
			"can_update_status",
			"can_assign_orders",
			"can_view_customer_info",
			"can_view_financials",
			"can_process_refunds",
			"can_manage_returns",
		}),
	}).Create(perm).Error
}
