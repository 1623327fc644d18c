package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace/internal/config"
	"marketplace/internal/models"
	"marketplace/internal/repository"
	"marketplace/internal/roles"
)

// Orders that count toward vendor analytics. Failed orders represent no
// concluded business and are excluded.
var analyticsStatuses = []models.OrderStatus{
	models.StatusDelivered,
	models.StatusRefunded,
	models.StatusCancelled,
}

// DashboardView is the vendor dashboard payload: preferences, live status
// counts, the working order list, and (for financial viewers) the analytics
// row.
type DashboardView struct {
	Preferences  models.VendorOrderDashboard  `json:"preferences"`
	StatusCounts map[models.OrderStatus]int64 `json:"status_counts"`
	Orders       []OrderView                  `json:"orders"`
	Analytics    *models.VendorOrderAnalytics `json:"analytics,omitempty"`
}

// DashboardInput patches preference fields; nil leaves a field untouched.
type DashboardInput struct {
	DefaultStatusFilter  *string `json:"default_status_filter"`
	ShowUnassignedOrders *bool   `json:"show_unassigned_orders"`
	ShowAssignedToOthers *bool   `json:"show_assigned_to_others"`
	NotifyNewOrders      *bool   `json:"notify_new_orders"`
	NotifyAssignedOrders *bool   `json:"notify_assigned_orders"`
	NotifyStatusChanges  *bool   `json:"notify_status_changes"`
}

type AnalyticsService interface {
	Refresh(ctx context.Context, vendorID uuid.UUID) (*models.VendorOrderAnalytics, error)
	Get(ctx context.Context, vendorID uuid.UUID) (*models.VendorOrderAnalytics, error)
	Dashboard(ctx context.Context, actorID uuid.UUID, vendorID *uuid.UUID) (*DashboardView, error)
	UpdateDashboard(ctx context.Context, actorID uuid.UUID, vendorID *uuid.UUID, input DashboardInput) (*models.VendorOrderDashboard, error)
}

type analyticsService struct {
	orders    repository.OrderRepository
	users     repository.UserRepository
	analytics repository.AnalyticsRepository
	resolver  RoleResolver
	cache     CacheStore
	cacheTTL  time.Duration
}

func NewAnalyticsService(
	orders repository.OrderRepository,
	users repository.UserRepository,
	analytics repository.AnalyticsRepository,
	resolver RoleResolver,
	cache CacheStore,
	cfg *config.Config,
) AnalyticsService {
	return &analyticsService{
		orders:    orders,
		users:     users,
		analytics: analytics,
		resolver:  resolver,
		cache:     cache,
		cacheTTL:  time.Duration(cfg.ListCacheTTL) * time.Second,
	}
}

// Refresh recomputes the vendor's analytics from scratch. Zero qualifying
// orders produce a stored zero row, never an error; only an unknown vendor
// fails.
func (s *analyticsService) Refresh(ctx context.Context, vendorID uuid.UUID) (*models.VendorOrderAnalytics, error) {
	vendor, err := s.users.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor == nil {
		return nil, &AnalyticsUnavailableError{VendorID: vendorID}
	}

	stats, err := s.analytics.TerminalStats(ctx, vendorID, analyticsStatuses)
	if err != nil {
		return nil, err
	}

	avg := decimal.Zero
	if stats.TotalOrders > 0 {
		avg = stats.TotalRevenue.Div(decimal.NewFromInt(stats.TotalOrders)).Round(2)
	}
	row := &models.VendorOrderAnalytics{
		VendorID:          vendorID,
		TotalOrders:       stats.TotalOrders,
		TotalRevenue:      stats.TotalRevenue,
		AverageOrderValue: avg,
		TotalItemsSold:    stats.TotalItemsSold,
		LastUpdated:       time.Now(),
	}
	if err := s.analytics.SaveAnalytics(ctx, row); err != nil {
		return nil, err
	}

	if data, err := json.Marshal(row); err == nil {
		if err := s.cache.Set(ctx, analyticsKey(vendorID), data, s.cacheTTL); err != nil {
			logCacheError("analytics cache write failed", err)
		}
	}
	return row, nil
}

// Get is cache-aside over Refresh, so any miss (including the invalidation
// a terminal transition performs) recomputes before answering.
func (s *analyticsService) Get(ctx context.Context, vendorID uuid.UUID) (*models.VendorOrderAnalytics, error) {
	if data, ok, err := s.cache.Get(ctx, analyticsKey(vendorID)); err != nil {
		logCacheError("analytics cache read failed", err)
	} else if ok {
		var row models.VendorOrderAnalytics
		if err := json.Unmarshal(data, &row); err == nil {
			return &row, nil
		}
	}
	return s.Refresh(ctx, vendorID)
}

func (s *analyticsService) Dashboard(ctx context.Context, actorID uuid.UUID, vendorID *uuid.UUID) (*DashboardView, error) {
	role, caps, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	scope, err := dashboardScope(role, caps, vendorID)
	if err != nil {
		return nil, err
	}

	data, err := s.cachedDashboardData(ctx, scope)
	if err != nil {
		return nil, err
	}

	orders := data.Orders
	if role.IsVendorEmployee() {
		orders = filterForEmployee(orders, role.EmployeeID, &data.Prefs)
	}

	view := &DashboardView{
		Preferences:  data.Prefs,
		StatusCounts: data.Counts,
		Orders:       ProjectOrders(orders, role, caps),
	}
	if caps.Has(roles.CapViewFinancials) {
		view.Analytics = data.Analytics
	}
	return view, nil
}

func (s *analyticsService) UpdateDashboard(ctx context.Context, actorID uuid.UUID, vendorID *uuid.UUID, input DashboardInput) (*models.VendorOrderDashboard, error) {
	role, _, err := s.resolver.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	var scope uuid.UUID
	switch {
	case role.IsAdmin():
		if vendorID == nil {
			return nil, &ValidationError{Field: "vendor_id", Message: "vendor_id is required"}
		}
		scope = *vendorID
	case role.IsVendorOwner():
		scope = role.VendorID
	default:
		return nil, &PermissionError{Message: "only the vendor owner can change dashboard settings"}
	}

	prefs, err := s.analytics.GetDashboard(ctx, scope)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = models.DefaultDashboard(scope)
	}

	if input.DefaultStatusFilter != nil {
		if *input.DefaultStatusFilter != "" && !models.OrderStatus(*input.DefaultStatusFilter).IsValid() {
			return nil, &ValidationError{Field: "default_status_filter", Message: "unknown status"}
		}
		prefs.DefaultStatusFilter = *input.DefaultStatusFilter
	}
	if input.ShowUnassignedOrders != nil {
		prefs.ShowUnassignedOrders = *input.ShowUnassignedOrders
	}
	if input.ShowAssignedToOthers != nil {
		prefs.ShowAssignedToOthers = *input.ShowAssignedToOthers
	}
	if input.NotifyNewOrders != nil {
		prefs.NotifyNewOrders = *input.NotifyNewOrders
	}
	if input.NotifyAssignedOrders != nil {
		prefs.NotifyAssignedOrders = *input.NotifyAssignedOrders
	}
	if input.NotifyStatusChanges != nil {
		prefs.NotifyStatusChanges = *input.NotifyStatusChanges
	}

	if err := s.analytics.SaveDashboard(ctx, prefs); err != nil {
		return nil, err
	}
	if err := s.cache.Delete(ctx, dashboardKey(scope)); err != nil {
		logCacheError("dashboard cache invalidation failed", err)
	}
	return prefs, nil
}

// dashboardData is the role-neutral cached payload; projection and
// employee filtering happen per request on top of it.
type dashboardData struct {
	Prefs     models.VendorOrderDashboard  `json:"prefs"`
	Counts    map[models.OrderStatus]int64 `json:"counts"`
	Orders    []models.Order               `json:"orders"`
	Analytics *models.VendorOrderAnalytics `json:"analytics"`
}

func (s *analyticsService) cachedDashboardData(ctx context.Context, vendorID uuid.UUID) (*dashboardData, error) {
	key := dashboardKey(vendorID)
	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		logCacheError("dashboard cache read failed", err)
	} else if ok {
		var data dashboardData
		if err := json.Unmarshal(raw, &data); err == nil {
			return &data, nil
		}
	}

	prefs, err := s.analytics.GetDashboard(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = models.DefaultDashboard(vendorID)
		if err := s.analytics.SaveDashboard(ctx, prefs); err != nil {
			return nil, err
		}
	}

	counts, err := s.orders.CountByStatus(ctx, repository.SummaryScope{VendorID: &vendorID})
	if err != nil {
		return nil, err
	}

	filter := repository.OrderFilter{Limit: 20}
	if status := models.OrderStatus(prefs.DefaultStatusFilter); status.IsValid() {
		filter.Status = &status
	}
	orders, err := s.orders.ListByVendor(ctx, vendorID, filter)
	if err != nil {
		return nil, err
	}

	analytics, err := s.Get(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	data := &dashboardData{
		Prefs:     *prefs,
		Counts:    counts,
		Orders:    orders,
		Analytics: analytics,
	}
	if raw, err := json.Marshal(data); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
			logCacheError("dashboard cache write failed", err)
		}
	}
	return data, nil
}

func dashboardScope(role roles.Role, caps roles.CapabilitySet, vendorID *uuid.UUID) (uuid.UUID, error) {
	switch {
	case role.IsAdmin():
		if vendorID == nil {
			return uuid.Nil, &ValidationError{Field: "vendor_id", Message: "vendor_id is required"}
		}
		return *vendorID, nil
	case role.IsVendorOwner():
		return role.VendorID, nil
	case role.IsVendorEmployee():
		if !caps.Has(roles.CapViewOrders) {
			return uuid.Nil, &PermissionError{Message: "you cannot view this vendor's orders"}
		}
		return role.VendorID, nil
	default:
		return uuid.Nil, &PermissionError{Message: "the vendor dashboard is not available to customers"}
	}
}

// filterForEmployee applies the visibility preferences to an employee's
// view: own assignments always, unassigned and other-assigned orders per
// the vendor's settings.
func filterForEmployee(orders []models.Order, employeeID uuid.UUID, prefs *models.VendorOrderDashboard) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		switch {
		case o.AssignedToID == nil:
			if prefs.ShowUnassignedOrders {
				out = append(out, o)
			}
		case *o.AssignedToID == employeeID:
			out = append(out, o)
		default:
			if prefs.ShowAssignedToOthers {
				out = append(out, o)
			}
		}
	}
	return out
}
