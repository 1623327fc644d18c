package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"marketplace/internal/config"
	"marketplace/internal/logging"
	"marketplace/internal/models"
	"marketplace/internal/repository"
	"marketplace/internal/roles"
)

const maxNumberRetries = 5

// ItemInput is a line item request. Price is resolved from the catalog, not
// taken from the caller.
type ItemInput struct {
	ProductID      uuid.UUID        `json:"product_id"`
	VariantID      *uuid.UUID       `json:"variant_id"`
	Quantity       int              `json:"quantity"`
	TaxAmount      *decimal.Decimal `json:"tax_amount"`
	DiscountAmount *decimal.Decimal `json:"discount_amount"`
}

// ItemPatchInput carries the item fields an update may change. Nil leaves a
// field untouched.
type ItemPatchInput struct {
	Quantity       *int             `json:"quantity"`
	Price          *decimal.Decimal `json:"price"`
	TaxAmount      *decimal.Decimal `json:"tax_amount"`
	DiscountAmount *decimal.Decimal `json:"discount_amount"`
}

// CreateOrderInput is the draft-creation request.
type CreateOrderInput struct {
	VendorID          uuid.UUID             `json:"vendor_id"`
	CustomerID        *uuid.UUID            `json:"customer_id"`
	PaymentMethod     *models.PaymentMethod `json:"payment_method"`
	TaxAmount         decimal.Decimal       `json:"tax_amount"`
	ShippingCost      decimal.Decimal       `json:"shipping_cost"`
	DiscountAmount    decimal.Decimal       `json:"discount_amount"`
	CustomerNote      string                `json:"customer_note"`
	ShippingAddressID *uuid.UUID            `json:"shipping_address_id"`
	BillingAddressID  *uuid.UUID            `json:"billing_address_id"`
	Items             []ItemInput           `json:"items"`
}

// ListOptions narrows list reads. VendorID/CustomerID only apply to admin
// callers, who have no implicit scope of their own.
type ListOptions struct {
	Status     *models.OrderStatus
	Unassigned bool
	Limit      int
	VendorID   *uuid.UUID
	CustomerID *uuid.UUID
}

// OrderSummary is the by-status count aggregate.
type OrderSummary struct {
	Counts map[models.OrderStatus]int64 `json:"counts"`
	Total  int64                        `json:"total"`
}

type OrderService interface {
	CreateDraft(ctx context.Context, actorID uuid.UUID, input CreateOrderInput) (*OrderView, error)
	SubmitCheckout(ctx context.Context, actorID, orderID uuid.UUID) (*OrderView, error)
	GetOrder(ctx context.Context, actorID, orderID uuid.UUID) (*OrderView, error)
	ListOrders(ctx context.Context, actorID uuid.UUID, opts ListOptions) ([]OrderView, error)
	Summary(ctx context.Context, actorID uuid.UUID) (*OrderSummary, error)
	Recent(ctx context.Context, actorID uuid.UUID, limit int) ([]OrderView, error)
	AddItem(ctx context.Context, actorID, orderID uuid.UUID, input ItemInput) (*OrderView, error)
	UpdateItem(ctx context.Context, actorID, orderID uuid.UUID, itemID uint, patch ItemPatchInput) (*OrderView, error)
	RemoveItem(ctx context.Context, actorID, orderID uuid.UUID, itemID uint) (*OrderView, error)
	StatusHistory(ctx context.Context, actorID, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	AssignmentHistory(ctx context.Context, actorID, orderID uuid.UUID) ([]models.OrderAssignmentHistory, error)
}

type orderService struct {
	orders     repository.OrderRepository
	items      repository.OrderItemRepository
	history    repository.HistoryRepository
	catalog    repository.CatalogRepository
	users      repository.UserRepository
	resolver   RoleResolver
	cache      CacheStore
	orderTTL   time.Duration
	listTTL    time.Duration
	historyTTL time.Duration
}

func NewOrderService(
	orders repository.OrderRepository,
	items repository.OrderItemRepository,
	history repository.HistoryRepository,
	catalog repository.CatalogRepository,
	users repository.UserRepository,
	resolver RoleResolver,
	cache CacheStore,
	cfg *config.Config,
) OrderService {
	return &orderService{
		orders:     orders,
		items:      items,
		history:    history,
		catalog:    catalog,
		users:      users,
		resolver:   resolver,
		cache:      cache,
		orderTTL:   time.Duration(cfg.OrderCacheTTL) * time.Second,
		listTTL:    time.Duration(cfg.ListCacheTTL) * time.Second,
		historyTTL: time.Duration(cfg.HistoryCacheTTL) * time.Second,
	}
}

func (s *orderService) CreateDraft(ctx context.Context, actorID uuid.UUID, input CreateOrderInput) (*OrderView, error) {
	role, caps, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var customerID uuid.UUID
	switch {
	case role.IsCustomer():
		if input.CustomerID != nil && *input.CustomerID != role.UserID {
			return nil, &PermissionError{Message: "you can only create orders for yourself"}
		}
		customerID = role.UserID
	case role.IsAdmin():
		if input.CustomerID == nil {
			return nil, &ValidationError{Field: "customer_id", Message: "customer_id is required"}
		}
		if _, err := s.users.GetByID(ctx, *input.CustomerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &ValidationError{Field: "customer_id", Message: "unknown customer"}
			}
			return nil, err
		}
		customerID = *input.CustomerID
	default:
		return nil, &PermissionError{Message: "vendors cannot create customer orders"}
	}

	vendor, err := s.users.GetVendor(ctx, input.VendorID)
	if err != nil {
		return nil, err
	}
	if vendor == nil {
		return nil, &ValidationError{Field: "vendor_id", Message: "unknown vendor"}
	}

	if input.PaymentMethod != nil && !input.PaymentMethod.IsValid() {
		return nil, &ValidationError{Field: "payment_method", Message: "unknown payment method"}
	}
	if input.TaxAmount.IsNegative() || input.ShippingCost.IsNegative() || input.DiscountAmount.IsNegative() {
		return nil, &ValidationError{Field: "amounts", Message: "tax, shipping and discount cannot be negative"}
	}

	if err := s.checkAddress(ctx, "shipping_address_id", input.ShippingAddressID, customerID); err != nil {
		return nil, err
	}
	if err := s.checkAddress(ctx, "billing_address_id", input.BillingAddressID, customerID); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	for i := range input.Items {
		item, err := s.buildItem(ctx, input.VendorID, input.Items[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	order := &models.Order{
		CustomerID:        customerID,
		VendorID:          input.VendorID,
		Status:            models.StatusDraft,
		PaymentMethod:     input.PaymentMethod,
		TaxAmount:         input.TaxAmount,
		ShippingCost:      input.ShippingCost,
		DiscountAmount:    input.DiscountAmount,
		CustomerNote:      input.CustomerNote,
		ShippingAddressID: input.ShippingAddressID,
		BillingAddressID:  input.BillingAddressID,
		LastUpdatedByID:   &actorID,
		Items:             items,
	}
	order.RecomputeTotals(items)

	prefix := numberPrefix(vendor.StoreName)
	for attempt := 0; ; attempt++ {
		order.OrderNumber = generateOrderNumber(prefix)
		err = s.orders.Create(ctx, order)
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < maxNumberRetries {
			continue
		}
		return nil, err
	}

	invalidateOrderCaches(ctx, s.cache, order)

	view := ProjectOrder(order, role, caps, availableActions(role, caps, order.Status))
	return &view, nil
}

// SubmitCheckout moves a draft to PendingPayment, the checkout entry state.
func (s *orderService) SubmitCheckout(ctx context.Context, actorID, orderID uuid.UUID) (*OrderView, error) {
	role, caps, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}

	order, err := loadOrder(ctx, s.orders, orderID)
	if err != nil {
		return nil, err
	}
	if role.IsVendorOwner() || role.IsVendorEmployee() {
		return nil, &PermissionError{Message: "only the customer can submit a checkout"}
	}
	if role.IsCustomer() && order.CustomerID != role.UserID {
		return nil, &PermissionError{Message: "you do not have access to this order"}
	}
	if order.Status != models.StatusDraft {
		return nil, &ValidationError{Field: "status", Message: "only draft orders can be checked out"}
	}
	if len(order.Items) == 0 {
		return nil, &ValidationError{Field: "items", Message: "cannot check out an empty order"}
	}
	if order.PaymentMethod == nil {
		return nil, &ValidationError{Field: "payment_method", Message: "choose a payment method before checkout"}
	}

	updated, err := s.orders.ChangeStatus(ctx, orderID, models.StatusDraft, models.StatusPendingPayment, &actorID, "checkout submitted")
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, &ConcurrencyConflictError{OrderID: orderID}
		}
		return nil, err
	}

	invalidateOrderCaches(ctx, s.cache, updated)
	return s.freshView(ctx, orderID, role, caps)
}

func (s *orderService) GetOrder(ctx context.Context, actorID, orderID uuid.UUID) (*OrderView, error) {
	role, caps, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}

	order, err := s.cachedOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canViewOrder(role, caps, order) {
		return nil, &PermissionError{Message: "you do not have access to this order"}
	}

	view := ProjectOrder(order, role, caps, availableActions(role, caps, order.Status))
	return &view, nil
}

func (s *orderService) ListOrders(ctx context.Context, actorID uuid.UUID, opts ListOptions) ([]OrderView, error) {
	role, caps, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}

	filter := repository.OrderFilter{Status: opts.Status, Unassigned: opts.Unassigned, Limit: opts.Limit}
	plain := opts.Status == nil && !opts.Unassigned && opts.Limit == 0

	var (
		orders   []models.Order
		cacheKey string
	)
	switch {
	case role.IsAdmin():
		switch {
		case opts.VendorID != nil:
			orders, err = s.orders.ListByVendor(ctx, *opts.VendorID, filter)
		case opts.CustomerID != nil:
			orders, err = s.orders.ListByCustomer(ctx, *opts.CustomerID, filter)
		default:
			return nil, &ValidationError{Field: "vendor_id", Message: "admin listing requires a vendor_id or customer_id filter"}
		}
	case role.IsVendorOwner(), role.IsVendorEmployee():
		if role.IsVendorEmployee() && !caps.Has(roles.CapViewOrders) {
			return nil, &PermissionError{Message: "you cannot view this vendor's orders"}
		}
		if plain {
			cacheKey = vendorOrdersKey(role.VendorID)
		}
		orders, err = s.cachedList(ctx, cacheKey, func() ([]models.Order, error) {
			return s.orders.ListByVendor(ctx, role.VendorID, filter)
		})
	default:
		if plain {
			cacheKey = customerOrdersKey(role.UserID)
		}
		orders, err = s.cachedList(ctx, cacheKey, func() ([]models.Order, error) {
			return s.orders.ListByCustomer(ctx, role.UserID, filter)
		})
	}
	if err != nil {
		return nil, err
	}

	return ProjectOrders(orders, role, caps), nil
}

func (s *orderService) Summary(ctx context.Context, actorID uuid.UUID) (*OrderSummary, error) {
	role, caps, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var (
		scope    repository.SummaryScope
		cacheKey string
	)
	switch {
	case role.IsAdmin():
		// Platform-wide, uncached: every order write would have to
		// invalidate it.
	case role.IsVendorOwner(), role.IsVendorEmployee():
		if role.IsVendorEmployee() && !caps.Has(roles.CapViewOrders) {
			return nil, &PermissionError{Message: "you cannot view this vendor's orders"}
		}
		vendorID := role.VendorID
		scope.VendorID = &vendorID
		cacheKey = summaryKey(vendorID)
	default:
		customerID := role.UserID
		scope.CustomerID = &customerID
		cacheKey = summaryKey(customerID)
	}

	if cacheKey != "" {
		if data, ok, err := s.cache.Get(ctx, cacheKey); err != nil {
			logCacheError("summary cache read failed", err)
		} else if ok {
			var summary OrderSummary
			if err := json.Unmarshal(data, &summary); err == nil {
				return &summary, nil
			}
		}
	}

	counts, err := s.orders.CountByStatus(ctx, scope)
	if err != nil {
		return nil, err
	}
	summary := &OrderSummary{Counts: counts}
	for _, n := range counts {
		summary.Total += n
	}

	if cacheKey != "" {
		if data, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, s.listTTL); err != nil {
				logCacheError("summary cache write failed", err)
			}
		}
	}
	return summary, nil
}

func (s *orderService) Recent(ctx context.Context, actorID uuid.UUID, limit int) ([]OrderView, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	return s.ListOrders(ctx, actorID, ListOptions{Limit: limit})
}

func (s *orderService) AddItem(ctx context.Context, actorID, orderID uuid.UUID, input ItemInput) (*OrderView, error) {
	role, caps, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	order, err := loadOrder(ctx, s.orders, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkItemEdit(role, caps, order); err != nil {
		return nil, err
	}

	item, err := s.buildItem(ctx, order.VendorID, input)
	if err != nil {
		return nil, err
	}

	updated, err := s.items.Add(ctx, orderID, order.Status, item)
	if err != nil {
		return nil, s.mapItemError(err, orderID)
	}

	invalidateOrderCaches(ctx, s.cache, updated)
	view := ProjectOrder(updated, role, caps, availableActions(role, caps, updated.Status))
	return &view, nil
}

func (s *orderService) UpdateItem(ctx context.Context, actorID, orderID uuid.UUID, itemID uint, patch ItemPatchInput) (*OrderView, error) {
	role, caps, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	order, err := loadOrder(ctx, s.orders, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkItemEdit(role, caps, order); err != nil {
		return nil, err
	}

	if role.IsCustomer() && (patch.Price != nil || patch.TaxAmount != nil || patch.DiscountAmount != nil) {
		return nil, &PermissionError{Message: "only quantity can be changed on your order"}
	}
	if patch.Quantity != nil && *patch.Quantity < 1 {
		return nil, &ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
	}
	if patch.Price != nil && !patch.Price.IsPositive() {
		return nil, &ValidationError{Field: "price", Message: "price must be positive"}
	}
	if (patch.TaxAmount != nil && patch.TaxAmount.IsNegative()) ||
		(patch.DiscountAmount != nil && patch.DiscountAmount.IsNegative()) {
		return nil, &ValidationError{Field: "amounts", Message: "tax and discount cannot be negative"}
	}

	updated, err := s.items.Update(ctx, orderID, order.Status, itemID, repository.ItemPatch{
		Quantity:       patch.Quantity,
		Price:          patch.Price,
		TaxAmount:      patch.TaxAmount,
		DiscountAmount: patch.DiscountAmount,
	})
	if err != nil {
		return nil, s.mapItemError(err, orderID)
	}

	invalidateOrderCaches(ctx, s.cache, updated)
	view := ProjectOrder(updated, role, caps, availableActions(role, caps, updated.Status))
	return &view, nil
}

func (s *orderService) RemoveItem(ctx context.Context, actorID, orderID uuid.UUID, itemID uint) (*OrderView, error) {
	role, caps, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	order, err := loadOrder(ctx, s.orders, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkItemEdit(role, caps, order); err != nil {
		return nil, err
	}

	updated, err := s.items.Remove(ctx, orderID, order.Status, itemID)
	if err != nil {
		return nil, s.mapItemError(err, orderID)
	}

	invalidateOrderCaches(ctx, s.cache, updated)
	view := ProjectOrder(updated, role, caps, availableActions(role, caps, updated.Status))
	return &view, nil
}

func (s *orderService) StatusHistory(ctx context.Context, actorID, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	role, caps, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	order, err := s.cachedOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canViewOrder(role, caps, order) {
		return nil, &PermissionError{Message: "you do not have access to this order"}
	}

	// History keys share the order prefix, so any order write invalidates
	// them along with the order itself.
	key := historyKey(orderID)
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		logCacheError("history cache read failed", err)
	} else if ok {
		var rows []models.OrderStatusHistory
		if err := json.Unmarshal(data, &rows); err == nil {
			return rows, nil
		}
	}

	rows, err := s.history.StatusHistory(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(rows); err == nil {
		if err := s.cache.Set(ctx, key, data, s.historyTTL); err != nil {
			logCacheError("history cache write failed", err)
		}
	}
	return rows, nil
}

func (s *orderService) AssignmentHistory(ctx context.Context, actorID, orderID uuid.UUID) ([]models.OrderAssignmentHistory, error) {
	role, caps, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	order, err := s.cachedOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if role.IsCustomer() {
		return nil, &PermissionError{Message: "assignment history is not visible to customers"}
	}
	if !canViewOrder(role, caps, order) {
		return nil, &PermissionError{Message: "you do not have access to this order"}
	}
	return s.history.AssignmentHistory(ctx, orderID)
}

// cachedOrder is the cache-aside read: cache hit wins, misses fall through
// to the database and repopulate.
func (s *orderService) cachedOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	key := orderKey(orderID)
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		logCacheError("order cache read failed", err)
	} else if ok {
		var order models.Order
		if err := json.Unmarshal(data, &order); err == nil {
			return &order, nil
		}
	}

	order, err := loadOrder(ctx, s.orders, orderID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(order); err == nil {
		if err := s.cache.Set(ctx, key, data, s.orderTTL); err != nil {
			logCacheError("order cache write failed", err)
		}
	}
	return order, nil
}

// cachedList caches only unfiltered lists; filtered variants always hit the
// database. An empty key disables caching.
func (s *orderService) cachedList(ctx context.Context, key string, fetch func() ([]models.Order, error)) ([]models.Order, error) {
	if key != "" {
		if data, ok, err := s.cache.Get(ctx, key); err != nil {
			logCacheError("list cache read failed", err)
		} else if ok {
			var orders []models.Order
			if err := json.Unmarshal(data, &orders); err == nil {
				return orders, nil
			}
		}
	}

	orders, err := fetch()
	if err != nil {
		return nil, err
	}
	if key != "" {
		if data, err := json.Marshal(orders); err == nil {
			if err := s.cache.Set(ctx, key, data, s.listTTL); err != nil {
				logCacheError("list cache write failed", err)
			}
		}
	}
	return orders, nil
}

func (s *orderService) freshView(ctx context.Context, orderID uuid.UUID, role roles.Role, caps roles.CapabilitySet) (*OrderView, error) {
	order, err := loadOrder(ctx, s.orders, orderID)
	if err != nil {
		return nil, err
	}
	view := ProjectOrder(order, role, caps, availableActions(role, caps, order.Status))
	return &view, nil
}

// checkAddress verifies an optional address reference exists and belongs to
// the order's customer.
func (s *orderService) checkAddress(ctx context.Context, field string, addressID *uuid.UUID, customerID uuid.UUID) error {
	if addressID == nil {
		return nil
	}
	address, err := s.users.GetAddressByID(ctx, *addressID)
	if err != nil {
		return err
	}
	if address == nil || address.UserID != customerID {
		return &ValidationError{Field: field, Message: "unknown address"}
	}
	return nil
}

// buildItem resolves the product and optional variant, snapshots name and
// price onto the line, and validates vendor ownership and ranges.
func (s *orderService) buildItem(ctx context.Context, vendorID uuid.UUID, input ItemInput) (*models.OrderItem, error) {
	if input.Quantity < 1 {
		return nil, &ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
	}

	product, err := s.catalog.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, &ValidationError{Field: "product_id", Message: "unknown product"}
	}
	if product.VendorID != vendorID {
		return nil, &ValidationError{Field: "product_id", Message: "product belongs to a different vendor"}
	}
	if !product.IsActive {
		return nil, &ValidationError{Field: "product_id", Message: "product is not available"}
	}

	price := product.Price
	if input.VariantID != nil {
		variant, err := s.catalog.GetVariant(ctx, *input.VariantID)
		if err != nil {
			return nil, err
		}
		if variant == nil || variant.ProductID != product.ID {
			return nil, &ValidationError{Field: "variant_id", Message: "unknown variant for this product"}
		}
		price = price.Add(variant.PriceDelta)
	}
	if !price.IsPositive() {
		return nil, &ValidationError{Field: "price", Message: "price must be positive"}
	}

	tax := decimal.Zero
	if input.TaxAmount != nil {
		tax = *input.TaxAmount
	}
	discount := decimal.Zero
	if input.DiscountAmount != nil {
		discount = *input.DiscountAmount
	}
	if tax.IsNegative() || discount.IsNegative() {
		return nil, &ValidationError{Field: "amounts", Message: "tax and discount cannot be negative"}
	}

	item := &models.OrderItem{
		ProductID:      product.ID,
		VariantID:      input.VariantID,
		ProductName:    product.Name,
		Quantity:       input.Quantity,
		Price:          price,
		TaxAmount:      tax,
		DiscountAmount: discount,
	}
	item.RecomputeLineTotal()
	return item, nil
}

func (s *orderService) mapItemError(err error, orderID uuid.UUID) error {
	switch {
	case errors.Is(err, repository.ErrStatusConflict):
		return &ConcurrencyConflictError{OrderID: orderID}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrItemNotFound
	default:
		return err
	}
}

func logCacheError(msg string, err error) {
	logging.LogKV("warn", msg, map[string]interface{}{"error": err.Error()})
}

// numberPrefix takes the first three letters of the store name, upper-cased.
func numberPrefix(storeName string) string {
	letters := make([]rune, 0, 3)
	for _, r := range strings.ToUpper(storeName) {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, r)
			if len(letters) == 3 {
				break
			}
		}
	}
	if len(letters) == 0 {
		return "ORD"
	}
	return string(letters)
}

func generateOrderNumber(prefix string) string {
	return fmt.Sprintf("%s-%s-%06d", prefix, time.Now().Format("060102"), rand.Intn(1000000))
}
