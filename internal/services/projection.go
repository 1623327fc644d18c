package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace/internal/models"
	"marketplace/internal/roles"
)

// OrderItemView is the projected line item. Money fields are nil when the
// viewer cannot see financials.
type OrderItemView struct {
	ID             uint             `json:"id"`
	ProductID      uuid.UUID        `json:"product_id"`
	VariantID      *uuid.UUID       `json:"variant_id,omitempty"`
	ProductName    string           `json:"product_name"`
	Quantity       int              `json:"quantity"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	TaxAmount      *decimal.Decimal `json:"tax_amount,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
	LineTotal      *decimal.Decimal `json:"line_total,omitempty"`
}

// OrderView is the projected order. Which fields survive depends on the
// viewer's role and capabilities, so the same order renders differently
// for a customer, a delivery employee, and the vendor owner.
type OrderView struct {
	ID               uuid.UUID             `json:"id"`
	OrderNumber      string                `json:"order_number"`
	Status           models.OrderStatus    `json:"status"`
	StatusChangedAt  time.Time             `json:"status_changed_at"`
	VendorID         uuid.UUID             `json:"vendor_id"`
	CustomerID       *uuid.UUID            `json:"customer_id,omitempty"`
	PaymentMethod    *models.PaymentMethod `json:"payment_method,omitempty"`
	Subtotal         *decimal.Decimal      `json:"subtotal,omitempty"`
	TaxAmount        *decimal.Decimal      `json:"tax_amount,omitempty"`
	ShippingCost     *decimal.Decimal      `json:"shipping_cost,omitempty"`
	DiscountAmount   *decimal.Decimal      `json:"discount_amount,omitempty"`
	Total            *decimal.Decimal      `json:"total,omitempty"`
	CustomerNote     string                `json:"customer_note,omitempty"`
	VendorNote       string                `json:"vendor_note,omitempty"`
	AdminNote        string                `json:"admin_note,omitempty"`
	AssignedToID     *uuid.UUID            `json:"assigned_to_id,omitempty"`
	Items            []OrderItemView       `json:"items"`
	AvailableActions []models.OrderStatus  `json:"available_actions"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// ProjectOrder builds the view of an order a given actor is allowed to see.
// The allowed slice is the set of status transitions already filtered by
// role and capability.
func ProjectOrder(order *models.Order, role roles.Role, caps roles.CapabilitySet, allowed []models.OrderStatus) OrderView {
	showFinancials := caps.Has(roles.CapViewFinancials)
	showCustomer := caps.Has(roles.CapViewCustomerInfo) || (role.IsCustomer() && order.CustomerID == role.UserID)

	view := OrderView{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		Status:           order.Status,
		StatusChangedAt:  order.StatusChangedAt,
		VendorID:         order.VendorID,
		PaymentMethod:    order.PaymentMethod,
		CustomerNote:     order.CustomerNote,
		AssignedToID:     order.AssignedToID,
		AvailableActions: allowed,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
	if view.AvailableActions == nil {
		view.AvailableActions = []models.OrderStatus{}
	}

	if showCustomer {
		id := order.CustomerID
		view.CustomerID = &id
	}
	if showFinancials {
		subtotal := order.Subtotal
		tax := order.TaxAmount
		shipping := order.ShippingCost
		discount := order.DiscountAmount
		total := order.Total
		view.Subtotal = &subtotal
		view.TaxAmount = &tax
		view.ShippingCost = &shipping
		view.DiscountAmount = &discount
		view.Total = &total
	}
	if !role.IsCustomer() {
		view.VendorNote = order.VendorNote
	}
	if role.IsAdmin() {
		view.AdminNote = order.AdminNote
	}

	view.Items = make([]OrderItemView, 0, len(order.Items))
	for i := range order.Items {
		view.Items = append(view.Items, projectItem(&order.Items[i], showFinancials))
	}
	return view
}

func projectItem(item *models.OrderItem, showFinancials bool) OrderItemView {
	view := OrderItemView{
		ID:          item.ID,
		ProductID:   item.ProductID,
		VariantID:   item.VariantID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
	}
	if showFinancials {
		price := item.Price
		tax := item.TaxAmount
		discount := item.DiscountAmount
		lineTotal := item.LineTotal
		view.Price = &price
		view.TaxAmount = &tax
		view.DiscountAmount = &discount
		view.LineTotal = &lineTotal
	}
	return view
}

// ProjectOrders maps a list. Every element gets the same actor, so the
// transition set is recomputed per order status.
func ProjectOrders(orders []models.Order, role roles.Role, caps roles.CapabilitySet) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		allowed := availableActions(role, caps, orders[i].Status)
		views = append(views, ProjectOrder(&orders[i], role, caps, allowed))
	}
	return views
}

// availableActions is the transition table filtered by capability: an
// employee whose role lacks the status capability gets no actions at all,
// whatever the table says.
func availableActions(role roles.Role, caps roles.CapabilitySet, from models.OrderStatus) []models.OrderStatus {
	if role.IsVendorEmployee() && !caps.Has(roles.CapUpdateStatus) {
		return nil
	}
	return roles.AllowedTransitions(role, from)
}
