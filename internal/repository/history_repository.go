package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"marketplace/internal/models"
)

type HistoryRepository interface {
	StatusHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	AssignmentHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderAssignmentHistory, error)
	ActiveAssignment(ctx context.Context, orderID uuid.UUID) (*models.OrderAssignmentHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) StatusHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *historyRepository) AssignmentHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderAssignmentHistory, error) {
	var rows []models.OrderAssignmentHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *historyRepository) ActiveAssignment(ctx context.Context, orderID uuid.UUID) (*models.OrderAssignmentHistory, error) {
	var row models.OrderAssignmentHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND active = ?", orderID, true).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
