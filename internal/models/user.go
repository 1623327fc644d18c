package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Username     string         `json:"username" gorm:"unique;not null"`
	Email        string         `json:"email" gorm:"unique;not null"`
	PasswordHash string         `json:"-"`
	PhoneNumber  string         `json:"phone_number"`
	Role         string         `json:"role" gorm:"default:'customer'"` // admin, vendor, customer
	IsVerified   bool           `json:"is_verified" gorm:"default:false"`
	IsActive     bool           `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type UserRole string

const (
	UserAdmin    UserRole = "admin"
	UserVendor   UserRole = "vendor"
	UserCustomer UserRole = "customer"
)

type Vendor struct {
	UserID           uuid.UUID       `json:"user_id" gorm:"type:uuid;primaryKey"`
	User             *User           `json:"user,omitempty" gorm:"foreignKey:UserID"`
	StoreName        string          `json:"store_name" gorm:"unique;not null"`
	StoreDescription string          `json:"store_description" gorm:"type:text"`
	StoreRating      decimal.Decimal `json:"store_rating" gorm:"type:decimal(3,2);default:0"`
	IsApproved       bool            `json:"is_approved" gorm:"default:false"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type EmployeeRole string

const (
	EmployeeManager         EmployeeRole = "manager"
	EmployeeStaff           EmployeeRole = "staff"
	EmployeeCustomerService EmployeeRole = "customer_service"
	EmployeeDelivery        EmployeeRole = "delivery"
)

type VendorEmployee struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_vendor_employee"`
	User      *User          `json:"user,omitempty" gorm:"foreignKey:UserID"`
	VendorID  uuid.UUID      `json:"vendor_id" gorm:"type:uuid;not null;uniqueIndex:idx_vendor_employee"`
	Role      string         `json:"role" gorm:"not null;default:'staff'"` // manager, staff, customer_service, delivery
	IsActive  bool           `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

func (e *VendorEmployee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

type AdminAccessLevel string

const (
	AccessSuper     AdminAccessLevel = "super"
	AccessModerator AdminAccessLevel = "moderator"
	AccessSupport   AdminAccessLevel = "support"
)

type AdminProfile struct {
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	User        *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	AccessLevel string    `json:"access_level" gorm:"default:'support'"` // super, moderator, support
	Notes       string    `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Address struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	Label       string         `json:"label" gorm:"default:'home'"` // home, work, other
	Street      string         `json:"street" gorm:"not null"`
	City        string         `json:"city" gorm:"not null"`
	Region      string         `json:"region"`
	Country     string         `json:"country" gorm:"not null"`
	PostalCode  string         `json:"postal_code"`
	PhoneNumber string         `json:"phone_number"`
	IsDefault   bool           `json:"is_default" gorm:"default:false"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type Product struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	VendorID  uuid.UUID       `json:"vendor_id" gorm:"type:uuid;not null;index"`
	Name      string          `json:"name" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	IsActive  bool            `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `json:"deleted_at" gorm:"index"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type ProductVariant struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID  uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	Name       string          `json:"name" gorm:"not null"`
	PriceDelta decimal.Decimal `json:"price_delta" gorm:"type:decimal(12,2);default:0"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
