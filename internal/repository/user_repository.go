package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"marketplace/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetAdminProfile(ctx context.Context, userID uuid.UUID) (*models.AdminProfile, error)
	GetVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	GetActiveEmployments(ctx context.Context, userID uuid.UUID) ([]models.VendorEmployee, error)
	GetEmployeeByID(ctx context.Context, id uuid.UUID) (*models.VendorEmployee, error)
	GetAddressByID(ctx context.Context, id uuid.UUID) (*models.Address, error)
	CreateVendor(ctx context.Context, vendor *models.Vendor) error
	CreateEmployee(ctx context.Context, employee *models.VendorEmployee) error
	CreateAdminProfile(ctx context.Context, profile *models.AdminProfile) error
	CreateAddress(ctx context.Context, address *models.Address) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAdminProfile returns nil without error when the user has no admin
// profile.
func (r *userRepository) GetAdminProfile(ctx context.Context, userID uuid.UUID) (*models.AdminProfile, error) {
	var profile models.AdminProfile
	err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetVendor returns nil without error when no vendor exists for the id. The
// vendor id is the owning user's id.
func (r *userRepository) GetVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).First(&vendor, "user_id = ?", vendorID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vendor, nil
}

func (r *userRepository) GetActiveEmployments(ctx context.Context, userID uuid.UUID) ([]models.VendorEmployee, error) {
	var employments []models.VendorEmployee
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at").
		Find(&employments).Error
	return employments, err
}

// GetEmployeeByID returns nil without error when the employee is unknown.
func (r *userRepository) GetEmployeeByID(ctx context.Context, id uuid.UUID) (*models.VendorEmployee, error) {
	var employee models.VendorEmployee
	err := r.db.WithContext(ctx).Preload("User").First(&employee, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}

func (r *userRepository) GetAddressByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var address models.Address
	err := r.db.WithContext(ctx).First(&address, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &address, nil
}

func (r *userRepository) CreateVendor(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor).Error
}

func (r *userRepository) CreateEmployee(ctx context.Context, employee *models.VendorEmployee) error {
	return r.db.WithContext(ctx).Create(employee).Error
}

func (r *userRepository) CreateAdminProfile(ctx context.Context, profile *models.AdminProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *userRepository) CreateAddress(ctx context.Context, address *models.Address) error {
	return r.db.WithContext(ctx).Create(address).Error
}
