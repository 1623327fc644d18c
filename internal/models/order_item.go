package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderItem struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	OrderID        uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID      uuid.UUID       `json:"product_id" gorm:"type:uuid;not null"`
	VariantID      *uuid.UUID      `json:"variant_id,omitempty" gorm:"type:uuid"`
	ProductName    string          `json:"product_name" gorm:"not null"`
	Quantity       int             `json:"quantity" gorm:"not null"`
	Price          decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	TaxAmount      decimal.Decimal `json:"tax_amount" gorm:"type:decimal(12,2);not null;default:0"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:decimal(12,2);not null;default:0"`
	LineTotal      decimal.Decimal `json:"line_total" gorm:"type:decimal(12,2);not null"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `json:"deleted_at" gorm:"index"`
}

// RecomputeLineTotal applies price*quantity + tax - discount. Called on every
// item write so the stored line total never drifts from its inputs.
func (i *OrderItem) RecomputeLineTotal() {
	qty := decimal.NewFromInt(int64(i.Quantity))
	i.LineTotal = i.Price.Mul(qty).Add(i.TaxAmount).Sub(i.DiscountAmount)
}
