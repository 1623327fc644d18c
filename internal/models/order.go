package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	StatusDraft            OrderStatus = "draft"
	StatusPendingPayment   OrderStatus = "pending_payment"
	StatusPaymentReceived  OrderStatus = "payment_received"
	StatusProcessing       OrderStatus = "processing"
	StatusReadyForShipment OrderStatus = "ready_for_shipment"
	StatusShipped          OrderStatus = "shipped"
	StatusOutForDelivery   OrderStatus = "out_for_delivery"
	StatusDelivered        OrderStatus = "delivered"
	StatusCancelled        OrderStatus = "cancelled"
	StatusReturnRequested  OrderStatus = "return_requested"
	StatusReturnApproved   OrderStatus = "return_approved"
	StatusReturnReceived   OrderStatus = "return_received"
	StatusRefunded         OrderStatus = "refunded"
	StatusOnHold           OrderStatus = "on_hold"
	StatusFailed           OrderStatus = "failed"
)

// AllStatuses lists every order status in lifecycle order.
var AllStatuses = []OrderStatus{
	StatusDraft,
	StatusPendingPayment,
	StatusPaymentReceived,
	StatusProcessing,
	StatusReadyForShipment,
	StatusShipped,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
	StatusReturnRequested,
	StatusReturnApproved,
	StatusReturnReceived,
	StatusRefunded,
	StatusOnHold,
	StatusFailed,
}

// TerminalStatuses have no outbound transitions, except the documented
// delivered -> return_requested edge.
var TerminalStatuses = []OrderStatus{
	StatusDelivered,
	StatusCancelled,
	StatusRefunded,
	StatusFailed,
}

func (s OrderStatus) IsValid() bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	for _, st := range TerminalStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// IsEditable reports whether order totals may still be recomputed. Once
// payment has been received the totals are frozen.
func (s OrderStatus) IsEditable() bool {
	return s == StatusDraft || s == StatusPendingPayment
}

type PaymentMethod string

const (
	PaymentChapa          PaymentMethod = "chapa"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
	PaymentWallet         PaymentMethod = "wallet"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentChapa, PaymentCashOnDelivery, PaymentBankTransfer, PaymentWallet:
		return true
	}
	return false
}

type Order struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	OrderNumber       string          `json:"order_number" gorm:"unique;not null"`
	CustomerID        uuid.UUID       `json:"customer_id" gorm:"type:uuid;not null;index"`
	Customer          *User           `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	VendorID          uuid.UUID       `json:"vendor_id" gorm:"type:uuid;not null;index"`
	Vendor            *Vendor         `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
	Status            OrderStatus     `json:"status" gorm:"type:varchar(32);not null;default:'draft';index"`
	PaymentMethod     *PaymentMethod  `json:"payment_method,omitempty" gorm:"type:varchar(32)"`
	Subtotal          decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null;default:0"`
	TaxAmount         decimal.Decimal `json:"tax_amount" gorm:"type:decimal(12,2);not null;default:0"`
	ShippingCost      decimal.Decimal `json:"shipping_cost" gorm:"type:decimal(12,2);not null;default:0"`
	DiscountAmount    decimal.Decimal `json:"discount_amount" gorm:"type:decimal(12,2);not null;default:0"`
	Total             decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null;default:0"`
	CustomerNote      string          `json:"customer_note" gorm:"type:text"`
	VendorNote        string          `json:"vendor_note" gorm:"type:text"`
	AdminNote         string          `json:"admin_note" gorm:"type:text"`
	ShippingAddressID *uuid.UUID      `json:"shipping_address_id,omitempty" gorm:"type:uuid"`
	BillingAddressID  *uuid.UUID      `json:"billing_address_id,omitempty" gorm:"type:uuid"`
	AssignedToID      *uuid.UUID      `json:"assigned_to_id,omitempty" gorm:"type:uuid;index"`
	AssignedTo        *VendorEmployee `json:"assigned_to,omitempty" gorm:"foreignKey:AssignedToID"`
	LastUpdatedByID   *uuid.UUID      `json:"last_updated_by_id,omitempty" gorm:"type:uuid"`
	Items             []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusChangedAt   time.Time       `json:"status_changed_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `json:"deleted_at" gorm:"index"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.StatusChangedAt.IsZero() {
		o.StatusChangedAt = time.Now()
	}
	return nil
}

// RecomputeTotals derives subtotal and total from the given items. It is a
// no-op once the order has moved past the pre-payment phase: totals are
// frozen after money has moved.
func (o *Order) RecomputeTotals(items []OrderItem) {
	if !o.Status.IsEditable() {
		return
	}
	subtotal := decimal.Zero
	for i := range items {
		subtotal = subtotal.Add(items[i].LineTotal)
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Add(o.TaxAmount).Add(o.ShippingCost).Sub(o.DiscountAmount)
}
