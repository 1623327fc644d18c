package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/config"
	"marketplace/internal/models"
	"marketplace/internal/repository"
	"marketplace/internal/roles"
)

var errStubNotWired = errors.New("stub not wired")

func testConfig() *config.Config {
	return &config.Config{OrderCacheTTL: 60, ListCacheTTL: 30, HistoryCacheTTL: 60}
}

type stubOrderRepo struct {
	createFn         func(context.Context, *models.Order) error
	getByIDFn        func(context.Context, uuid.UUID) (*models.Order, error)
	getByNumberFn    func(context.Context, string) (*models.Order, error)
	listByVendorFn   func(context.Context, uuid.UUID, repository.OrderFilter) ([]models.Order, error)
	listByCustomerFn func(context.Context, uuid.UUID, repository.OrderFilter) ([]models.Order, error)
	listByAssigneeFn func(context.Context, uuid.UUID, repository.OrderFilter) ([]models.Order, error)
	countByStatusFn  func(context.Context, repository.SummaryScope) (map[models.OrderStatus]int64, error)
	changeStatusFn   func(ctx context.Context, orderID uuid.UUID, expected, next models.OrderStatus, changedBy *uuid.UUID, note string) (*models.Order, error)
	assignFn         func(ctx context.Context, orderID, employeeID, assignedBy uuid.UUID) (*models.Order, error)
}

func (s *stubOrderRepo) Create(ctx context.Context, order *models.Order) error {
	if s.createFn != nil {
		return s.createFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, errStubNotWired
}

func (s *stubOrderRepo) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	if s.getByNumberFn != nil {
		return s.getByNumberFn(ctx, number)
	}
	return nil, errStubNotWired
}

func (s *stubOrderRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID, filter repository.OrderFilter) ([]models.Order, error) {
	if s.listByVendorFn != nil {
		return s.listByVendorFn(ctx, vendorID, filter)
	}
	return nil, nil
}

func (s *stubOrderRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, filter repository.OrderFilter) ([]models.Order, error) {
	if s.listByCustomerFn != nil {
		return s.listByCustomerFn(ctx, customerID, filter)
	}
	return nil, nil
}

func (s *stubOrderRepo) ListByAssignee(ctx context.Context, employeeID uuid.UUID, filter repository.OrderFilter) ([]models.Order, error) {
	if s.listByAssigneeFn != nil {
		return s.listByAssigneeFn(ctx, employeeID, filter)
	}
	return nil, nil
}

func (s *stubOrderRepo) CountByStatus(ctx context.Context, scope repository.SummaryScope) (map[models.OrderStatus]int64, error) {
	if s.countByStatusFn != nil {
		return s.countByStatusFn(ctx, scope)
	}
	return map[models.OrderStatus]int64{}, nil
}

func (s *stubOrderRepo) ChangeStatus(ctx context.Context, orderID uuid.UUID, expected, next models.OrderStatus, changedBy *uuid.UUID, note string) (*models.Order, error) {
	if s.changeStatusFn != nil {
		return s.changeStatusFn(ctx, orderID, expected, next, changedBy, note)
	}
	return nil, errStubNotWired
}

func (s *stubOrderRepo) Assign(ctx context.Context, orderID, employeeID, assignedBy uuid.UUID) (*models.Order, error) {
	if s.assignFn != nil {
		return s.assignFn(ctx, orderID, employeeID, assignedBy)
	}
	return nil, errStubNotWired
}

type stubItemRepo struct {
	getByIDFn func(context.Context, uint) (*models.OrderItem, error)
	listFn    func(context.Context, uuid.UUID) ([]models.OrderItem, error)
	addFn     func(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, item *models.OrderItem) (*models.Order, error)
	updateFn  func(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, itemID uint, patch repository.ItemPatch) (*models.Order, error)
	removeFn  func(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, itemID uint) (*models.Order, error)
}

func (s *stubItemRepo) GetByID(ctx context.Context, itemID uint) (*models.OrderItem, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, itemID)
	}
	return nil, errStubNotWired
}

func (s *stubItemRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	if s.listFn != nil {
		return s.listFn(ctx, orderID)
	}
	return nil, nil
}

func (s *stubItemRepo) Add(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, item *models.OrderItem) (*models.Order, error) {
	if s.addFn != nil {
		return s.addFn(ctx, orderID, expected, item)
	}
	return nil, errStubNotWired
}

func (s *stubItemRepo) Update(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, itemID uint, patch repository.ItemPatch) (*models.Order, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, orderID, expected, itemID, patch)
	}
	return nil, errStubNotWired
}

func (s *stubItemRepo) Remove(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus, itemID uint) (*models.Order, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, orderID, expected, itemID)
	}
	return nil, errStubNotWired
}

type stubHistoryRepo struct {
	statusFn     func(context.Context, uuid.UUID) ([]models.OrderStatusHistory, error)
	assignmentFn func(context.Context, uuid.UUID) ([]models.OrderAssignmentHistory, error)
	activeFn     func(context.Context, uuid.UUID) (*models.OrderAssignmentHistory, error)
}

func (s *stubHistoryRepo) StatusHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, orderID)
	}
	return nil, nil
}

func (s *stubHistoryRepo) AssignmentHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderAssignmentHistory, error) {
	if s.assignmentFn != nil {
		return s.assignmentFn(ctx, orderID)
	}
	return nil, nil
}

func (s *stubHistoryRepo) ActiveAssignment(ctx context.Context, orderID uuid.UUID) (*models.OrderAssignmentHistory, error) {
	if s.activeFn != nil {
		return s.activeFn(ctx, orderID)
	}
	return nil, nil
}

type stubCatalogRepo struct {
	getProductFn func(context.Context, uuid.UUID) (*models.Product, error)
	getVariantFn func(context.Context, uuid.UUID) (*models.ProductVariant, error)
}

func (s *stubCatalogRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if s.getProductFn != nil {
		return s.getProductFn(ctx, id)
	}
	return nil, nil
}

func (s *stubCatalogRepo) GetVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	if s.getVariantFn != nil {
		return s.getVariantFn(ctx, id)
	}
	return nil, nil
}

func (s *stubCatalogRepo) CreateProduct(context.Context, *models.Product) error { return nil }

func (s *stubCatalogRepo) CreateVariant(context.Context, *models.ProductVariant) error { return nil }

type stubUserRepo struct {
	getByIDFn        func(context.Context, uuid.UUID) (*models.User, error)
	getByUsernameFn  func(context.Context, string) (*models.User, error)
	getAdminFn       func(context.Context, uuid.UUID) (*models.AdminProfile, error)
	getVendorFn      func(context.Context, uuid.UUID) (*models.Vendor, error)
	getEmploymentsFn func(context.Context, uuid.UUID) ([]models.VendorEmployee, error)
	getEmployeeFn    func(context.Context, uuid.UUID) (*models.VendorEmployee, error)
	getAddressFn     func(context.Context, uuid.UUID) (*models.Address, error)
}

func (s *stubUserRepo) Create(context.Context, *models.User) error { return nil }

func (s *stubUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return &models.User{ID: id, Email: "user@example.test"}, nil
}

func (s *stubUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if s.getByUsernameFn != nil {
		return s.getByUsernameFn(ctx, username)
	}
	return nil, errStubNotWired
}

func (s *stubUserRepo) GetAdminProfile(ctx context.Context, userID uuid.UUID) (*models.AdminProfile, error) {
	if s.getAdminFn != nil {
		return s.getAdminFn(ctx, userID)
	}
	return nil, nil
}

func (s *stubUserRepo) GetVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	if s.getVendorFn != nil {
		return s.getVendorFn(ctx, vendorID)
	}
	return nil, nil
}

func (s *stubUserRepo) GetActiveEmployments(ctx context.Context, userID uuid.UUID) ([]models.VendorEmployee, error) {
	if s.getEmploymentsFn != nil {
		return s.getEmploymentsFn(ctx, userID)
	}
	return nil, nil
}

func (s *stubUserRepo) GetEmployeeByID(ctx context.Context, id uuid.UUID) (*models.VendorEmployee, error) {
	if s.getEmployeeFn != nil {
		return s.getEmployeeFn(ctx, id)
	}
	return nil, nil
}

func (s *stubUserRepo) GetAddressByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	if s.getAddressFn != nil {
		return s.getAddressFn(ctx, id)
	}
	return nil, nil
}

func (s *stubUserRepo) CreateVendor(context.Context, *models.Vendor) error { return nil }

func (s *stubUserRepo) CreateEmployee(context.Context, *models.VendorEmployee) error { return nil }

func (s *stubUserRepo) CreateAdminProfile(context.Context, *models.AdminProfile) error { return nil }

func (s *stubUserRepo) CreateAddress(context.Context, *models.Address) error { return nil }

type stubPermRepo struct {
	getByRoleFn func(context.Context, models.EmployeeRole) (*models.OrderPermission, error)
}

func (s *stubPermRepo) GetByRole(ctx context.Context, role models.EmployeeRole) (*models.OrderPermission, error) {
	if s.getByRoleFn != nil {
		return s.getByRoleFn(ctx, role)
	}
	return nil, nil
}

func (s *stubPermRepo) All(context.Context) ([]models.OrderPermission, error) { return nil, nil }

func (s *stubPermRepo) Upsert(context.Context, *models.OrderPermission) error { return nil }

type stubAnalyticsRepo struct {
	getAnalyticsFn  func(context.Context, uuid.UUID) (*models.VendorOrderAnalytics, error)
	saveAnalyticsFn func(context.Context, *models.VendorOrderAnalytics) error
	terminalStatsFn func(context.Context, uuid.UUID, []models.OrderStatus) (*repository.TerminalStats, error)
	getDashboardFn  func(context.Context, uuid.UUID) (*models.VendorOrderDashboard, error)
	saveDashboardFn func(context.Context, *models.VendorOrderDashboard) error
}

func (s *stubAnalyticsRepo) GetAnalytics(ctx context.Context, vendorID uuid.UUID) (*models.VendorOrderAnalytics, error) {
	if s.getAnalyticsFn != nil {
		return s.getAnalyticsFn(ctx, vendorID)
	}
	return nil, nil
}

func (s *stubAnalyticsRepo) SaveAnalytics(ctx context.Context, row *models.VendorOrderAnalytics) error {
	if s.saveAnalyticsFn != nil {
		return s.saveAnalyticsFn(ctx, row)
	}
	return nil
}

func (s *stubAnalyticsRepo) TerminalStats(ctx context.Context, vendorID uuid.UUID, statuses []models.OrderStatus) (*repository.TerminalStats, error) {
	if s.terminalStatsFn != nil {
		return s.terminalStatsFn(ctx, vendorID, statuses)
	}
	return &repository.TerminalStats{}, nil
}

func (s *stubAnalyticsRepo) GetDashboard(ctx context.Context, vendorID uuid.UUID) (*models.VendorOrderDashboard, error) {
	if s.getDashboardFn != nil {
		return s.getDashboardFn(ctx, vendorID)
	}
	return nil, nil
}

func (s *stubAnalyticsRepo) SaveDashboard(ctx context.Context, row *models.VendorOrderDashboard) error {
	if s.saveDashboardFn != nil {
		return s.saveDashboardFn(ctx, row)
	}
	return nil
}

// memCache is an in-process CacheStore for tests. Not safe for concurrent
// use; every test builds its own.
type memCache struct {
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := c.entries[key]
	return data, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.entries[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *memCache) DeleteByPrefix(_ context.Context, prefix string) error {
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *memCache) has(key string) bool {
	_, ok := c.entries[key]
	return ok
}

type stubResolver struct {
	role roles.Role
	caps roles.CapabilitySet
	err  error
}

func (s *stubResolver) Resolve(context.Context, uuid.UUID) (roles.Role, roles.CapabilitySet, error) {
	return s.role, s.caps, s.err
}

func resolveAs(role roles.Role, perm *models.OrderPermission) *stubResolver {
	return &stubResolver{role: role, caps: roles.Capabilities(role, perm)}
}

type sentMessage struct {
	recipient string
	subject   string
	body      string
}

type captureNotifier struct {
	enabled bool
	sends   []sentMessage
	err     error
}

func (n *captureNotifier) Enabled() bool { return n.enabled }

func (n *captureNotifier) Send(_ context.Context, recipient, subject, body string) error {
	n.sends = append(n.sends, sentMessage{recipient: recipient, subject: subject, body: body})
	return n.err
}

func adminActor() roles.Role {
	return roles.Role{Kind: roles.KindAdmin, UserID: uuid.New()}
}

func ownerActor(vendorID uuid.UUID) roles.Role {
	return roles.Role{Kind: roles.KindVendorOwner, UserID: vendorID, VendorID: vendorID}
}

func employeeActor(vendorID uuid.UUID, sub models.EmployeeRole) roles.Role {
	return roles.Role{
		Kind:         roles.KindVendorEmployee,
		UserID:       uuid.New(),
		VendorID:     vendorID,
		EmployeeID:   uuid.New(),
		EmployeeRole: sub,
	}
}

func customerActor(userID uuid.UUID) roles.Role {
	return roles.Role{Kind: roles.KindCustomer, UserID: userID}
}

func managerPerm() *models.OrderPermission {
	return &models.OrderPermission{
		Role:                string(models.EmployeeManager),
		CanViewOrders:       true,
		CanEditOrderItems:   true,
		CanUpdateStatus:     true,
		CanAssignOrders:     true,
		CanViewCustomerInfo: true,
		CanViewFinancials:   true,
		CanProcessRefunds:   true,
		CanManageReturns:    true,
	}
}

func staffPerm() *models.OrderPermission {
	return &models.OrderPermission{
		Role:                string(models.EmployeeStaff),
		CanViewOrders:       true,
		CanViewCustomerInfo: true,
	}
}

func testOrder(vendorID, customerID uuid.UUID, status models.OrderStatus) *models.Order {
	return &models.Order{
		ID:          uuid.New(),
		OrderNumber: "ACM-260101-000001",
		VendorID:    vendorID,
		CustomerID:  customerID,
		Status:      status,
	}
}
