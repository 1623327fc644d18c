package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"marketplace/internal/models"
	"marketplace/internal/repository"
	"marketplace/internal/roles"
)

type analyticsFixture struct {
	vendorID  uuid.UUID
	orders    *stubOrderRepo
	users     *stubUserRepo
	analytics *stubAnalyticsRepo
	cache     *memCache
	saved     []*models.VendorOrderAnalytics
	statCalls int
}

func newAnalyticsFixture() *analyticsFixture {
	f := &analyticsFixture{
		vendorID:  uuid.New(),
		orders:    &stubOrderRepo{},
		users:     &stubUserRepo{},
		analytics: &stubAnalyticsRepo{},
		cache:     newMemCache(),
	}
	f.users.getVendorFn = func(_ context.Context, id uuid.UUID) (*models.Vendor, error) {
		if id == f.vendorID {
			return &models.Vendor{UserID: id, StoreName: "Acme Outfitters"}, nil
		}
		return nil, nil
	}
	f.analytics.terminalStatsFn = func(context.Context, uuid.UUID, []models.OrderStatus) (*repository.TerminalStats, error) {
		f.statCalls++
		return &repository.TerminalStats{
			TotalOrders:    4,
			TotalRevenue:   money("100.00"),
			TotalItemsSold: 9,
		}, nil
	}
	f.analytics.saveAnalyticsFn = func(_ context.Context, row *models.VendorOrderAnalytics) error {
		f.saved = append(f.saved, row)
		return nil
	}
	return f
}

func (f *analyticsFixture) service(resolver RoleResolver) AnalyticsService {
	return NewAnalyticsService(f.orders, f.users, f.analytics, resolver, f.cache, testConfig())
}

func TestRefreshComputesAverages(t *testing.T) {
	t.Parallel()

	f := newAnalyticsFixture()
	var askedFor []models.OrderStatus
	inner := f.analytics.terminalStatsFn
	f.analytics.terminalStatsFn = func(ctx context.Context, vendorID uuid.UUID, statuses []models.OrderStatus) (*repository.TerminalStats, error) {
		askedFor = statuses
		return inner(ctx, vendorID, statuses)
	}
	svc := f.service(nil)

	row, err := svc.Refresh(context.Background(), f.vendorID)
	require.NoError(t, err)
	require.Equal(t, []models.OrderStatus{
		models.StatusDelivered,
		models.StatusRefunded,
		models.StatusCancelled,
	}, askedFor)
	require.Equal(t, int64(4), row.TotalOrders)
	require.Equal(t, "100.00", row.TotalRevenue.StringFixed(2))
	require.Equal(t, "25.00", row.AverageOrderValue.StringFixed(2))
	require.Equal(t, int64(9), row.TotalItemsSold)
	require.False(t, row.LastUpdated.IsZero())

	require.Len(t, f.saved, 1)
	require.True(t, f.cache.has(analyticsKey(f.vendorID)))
}

func TestRefreshWithNoQualifyingOrders(t *testing.T) {
	t.Parallel()

	f := newAnalyticsFixture()
	f.analytics.terminalStatsFn = func(context.Context, uuid.UUID, []models.OrderStatus) (*repository.TerminalStats, error) {
		return &repository.TerminalStats{}, nil
	}
	svc := f.service(nil)

	row, err := svc.Refresh(context.Background(), f.vendorID)
	require.NoError(t, err)
	require.Zero(t, row.TotalOrders)
	require.Equal(t, "0.00", row.AverageOrderValue.StringFixed(2))
	require.Len(t, f.saved, 1, "a zero row is still persisted")
}

func TestRefreshUnknownVendor(t *testing.T) {
	t.Parallel()

	f := newAnalyticsFixture()
	svc := f.service(nil)
	unknown := uuid.New()

	_, err := svc.Refresh(context.Background(), unknown)
	var uerr *AnalyticsUnavailableError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, unknown, uerr.VendorID)
}

func TestGetServesCachedRow(t *testing.T) {
	t.Parallel()

	f := newAnalyticsFixture()
	svc := f.service(nil)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, f.vendorID)
	require.NoError(t, err)
	require.Equal(t, 1, f.statCalls)

	row, err := svc.Get(ctx, f.vendorID)
	require.NoError(t, err)
	require.Equal(t, int64(4), row.TotalOrders)
	require.Equal(t, 1, f.statCalls, "cached reads must not recompute")
}

func TestGetRecomputesOnMiss(t *testing.T) {
	t.Parallel()

	f := newAnalyticsFixture()
	svc := f.service(nil)

	row, err := svc.Get(context.Background(), f.vendorID)
	require.NoError(t, err)
	require.Equal(t, int64(4), row.TotalOrders)
	require.Equal(t, 1, f.statCalls)
	require.Len(t, f.saved, 1)
}

func dashboardOrders(f *analyticsFixture, mine, other uuid.UUID, customerID uuid.UUID) []models.Order {
	assignedToMe := *testOrder(f.vendorID, customerID, models.StatusProcessing)
	assignedToMe.AssignedToID = &mine
	unassigned := *testOrder(f.vendorID, customerID, models.StatusProcessing)
	assignedElsewhere := *testOrder(f.vendorID, customerID, models.StatusProcessing)
	assignedElsewhere.AssignedToID = &other
	return []models.Order{assignedToMe, unassigned, assignedElsewhere}
}

func TestDashboardForOwner(t *testing.T) {
	t.Parallel()

	f := newAnalyticsFixture()
	customerID := uuid.New()
	var savedPrefs *models.VendorOrderDashboard
	f.analytics.saveDashboardFn = func(_ context.Context, row *models.VendorOrderDashboard) error {
		savedPrefs = row
		return nil
	}
	f.orders.countByStatusFn = func(_ context.Context, scope repository.SummaryScope) (map[models.OrderStatus]int64, error) {
		require.NotNil(t, scope.VendorID)
		return map[models.OrderStatus]int64{models.StatusProcessing: 3}, nil
	}
	f.orders.listByVendorFn = func(_ context.Context, _ uuid.UUID, filter repository.OrderFilter) ([]models.Order, error) {
		require.Equal(t, 20, filter.Limit)
		require.NotNil(t, filter.Status)
		require.Equal(t, models.StatusProcessing, *filter.Status)
		return dashboardOrders(f, uuid.New(), uuid.New(), customerID), nil
	}

	svc := f.service(resolveAs(ownerActor(f.vendorID), nil))
	view, err := svc.Dashboard(context.Background(), f.vendorID, nil)
	require.NoError(t, err)

	// First visit creates and persists the default preferences.
	require.NotNil(t, savedPrefs)
	require.Equal(t, string(models.StatusProcessing), view.Preferences.DefaultStatusFilter)
	require.Equal(t, int64(3), view.StatusCounts[models.StatusProcessing])
	require.Len(t, view.Orders, 3, "owners see the whole working list")
	require.NotNil(t, view.Analytics)
	require.True(t, f.cache.has(dashboardKey(f.vendorID)))
}

func TestDashboardEmployeeVisibility(t *testing.T) {
	t.Parallel()

	myEmployeeID := uuid.New()
	role := roles.Role{
		Kind:         roles.KindVendorEmployee,
		UserID:       uuid.New(),
		VendorID:     uuid.New(),
		EmployeeID:   myEmployeeID,
		EmployeeRole: models.EmployeeStaff,
	}

	tests := []struct {
		name     string
		prefs    models.VendorOrderDashboard
		expected int
	}{
		{
			name:     "unassigned shown by default",
			prefs:    models.VendorOrderDashboard{ShowUnassignedOrders: true},
			expected: 2, // mine + unassigned
		},
		{
			name:     "everything visible",
			prefs:    models.VendorOrderDashboard{ShowUnassignedOrders: true, ShowAssignedToOthers: true},
			expected: 3,
		},
		{
			name:     "own assignments only",
			prefs:    models.VendorOrderDashboard{},
			expected: 1,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newAnalyticsFixture()
			f.vendorID = role.VendorID
			f.users.getVendorFn = func(_ context.Context, id uuid.UUID) (*models.Vendor, error) {
				return &models.Vendor{UserID: id, StoreName: "Acme Outfitters"}, nil
			}
			prefs := tt.prefs
			prefs.VendorID = f.vendorID
			f.analytics.getDashboardFn = func(context.Context, uuid.UUID) (*models.VendorOrderDashboard, error) {
				return &prefs, nil
			}
			f.orders.listByVendorFn = func(context.Context, uuid.UUID, repository.OrderFilter) ([]models.Order, error) {
				return dashboardOrders(f, myEmployeeID, uuid.New(), uuid.New()), nil
			}

			svc := f.service(resolveAs(role, staffPerm()))
			view, err := svc.Dashboard(context.Background(), role.UserID, nil)
			require.NoError(t, err)
			require.Len(t, view.Orders, tt.expected)
			// Staff lack the financial capability, so no analytics row.
			require.Nil(t, view.Analytics)
		})
	}
}

func TestDashboardEmployeeNeedsViewCapability(t *testing.T) {
	t.Parallel()

	f := newAnalyticsFixture()
	svc := f.service(resolveAs(employeeActor(f.vendorID, models.EmployeeDelivery), nil))
	_, err := svc.Dashboard(context.Background(), uuid.New(), nil)

	var perr *PermissionError
	require.ErrorAs(t, err, &perr)
}

func TestDashboardCustomerForbidden(t *testing.T) {
	t.Parallel()

	f := newAnalyticsFixture()
	svc := f.service(resolveAs(customerActor(uuid.New()), nil))
	_, err := svc.Dashboard(context.Background(), uuid.New(), nil)

	var perr *PermissionError
	require.ErrorAs(t, err, &perr)
}

func TestDashboardAdminNeedsVendorID(t *testing.T) {
	t.Parallel()

	f := newAnalyticsFixture()
	svc := f.service(resolveAs(adminActor(), nil))

	_, err := svc.Dashboard(context.Background(), uuid.New(), nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "vendor_id", verr.Field)

	view, err := svc.Dashboard(context.Background(), uuid.New(), &f.vendorID)
	require.NoError(t, err)
	require.NotNil(t, view.Analytics)
}

func TestUpdateDashboardByOwner(t *testing.T) {
	t.Parallel()

	f := newAnalyticsFixture()
	var saved *models.VendorOrderDashboard
	f.analytics.saveDashboardFn = func(_ context.Context, row *models.VendorOrderDashboard) error {
		saved = row
		return nil
	}
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, dashboardKey(f.vendorID), []byte("stale"), 0))

	showOthers := true
	mute := false
	filter := string(models.StatusShipped)
	svc := f.service(resolveAs(ownerActor(f.vendorID), nil))
	prefs, err := svc.UpdateDashboard(ctx, f.vendorID, nil, DashboardInput{
		DefaultStatusFilter:  &filter,
		ShowAssignedToOthers: &showOthers,
		NotifyStatusChanges:  &mute,
	})
	require.NoError(t, err)
	require.Equal(t, saved, prefs)
	require.Equal(t, string(models.StatusShipped), prefs.DefaultStatusFilter)
	require.True(t, prefs.ShowAssignedToOthers)
	require.False(t, prefs.NotifyStatusChanges)
	// Untouched fields keep their defaults.
	require.True(t, prefs.ShowUnassignedOrders)
	require.False(t, f.cache.has(dashboardKey(f.vendorID)))
}

func TestUpdateDashboardClearsFilter(t *testing.T) {
	t.Parallel()

	f := newAnalyticsFixture()
	empty := ""
	svc := f.service(resolveAs(ownerActor(f.vendorID), nil))

	prefs, err := svc.UpdateDashboard(context.Background(), f.vendorID, nil, DashboardInput{DefaultStatusFilter: &empty})
	require.NoError(t, err)
	require.Empty(t, prefs.DefaultStatusFilter)
}

func TestUpdateDashboardRejectsUnknownFilter(t *testing.T) {
	t.Parallel()

	f := newAnalyticsFixture()
	bogus := "warp_speed"
	svc := f.service(resolveAs(ownerActor(f.vendorID), nil))

	_, err := svc.UpdateDashboard(context.Background(), f.vendorID, nil, DashboardInput{DefaultStatusFilter: &bogus})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "default_status_filter", verr.Field)
}

func TestUpdateDashboardEmployeeForbidden(t *testing.T) {
	t.Parallel()

	f := newAnalyticsFixture()
	svc := f.service(resolveAs(employeeActor(f.vendorID, models.EmployeeManager), managerPerm()))

	_, err := svc.UpdateDashboard(context.Background(), uuid.New(), nil, DashboardInput{})
	var perr *PermissionError
	require.ErrorAs(t, err, &perr)
}

func TestUpdateDashboardAdminNeedsVendorID(t *testing.T) {
	t.Parallel()

	f := newAnalyticsFixture()
	svc := f.service(resolveAs(adminActor(), nil))

	_, err := svc.UpdateDashboard(context.Background(), uuid.New(), nil, DashboardInput{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "vendor_id", verr.Field)
}
