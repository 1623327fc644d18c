package roles

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"marketplace/internal/models"
)

func TestResolvePrecedence(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	vendorID := uuid.New()
	employeeID := uuid.New()

	user := &models.User{ID: userID, Role: "customer"}
	admin := &models.AdminProfile{UserID: userID}
	vendor := &models.Vendor{UserID: vendorID}
	employment := models.VendorEmployee{
		ID:       employeeID,
		UserID:   userID,
		VendorID: vendorID,
		Role:     string(models.EmployeeManager),
		IsActive: true,
	}

	tests := []struct {
		name        string
		admin       *models.AdminProfile
		vendor      *models.Vendor
		employments []models.VendorEmployee
		want        Kind
	}{
		{"admin wins over everything", admin, vendor, []models.VendorEmployee{employment}, KindAdmin},
		{"owner wins over employment", nil, vendor, []models.VendorEmployee{employment}, KindVendorOwner},
		{"active employment wins over customer", nil, nil, []models.VendorEmployee{employment}, KindVendorEmployee},
		{"no links means customer", nil, nil, nil, KindCustomer},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			role := Resolve(user, tt.admin, tt.vendor, tt.employments)
			require.Equal(t, tt.want, role.Kind)
			require.Equal(t, userID, role.UserID)
		})
	}
}

func TestResolveAdminByUserRole(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Role: string(models.UserAdmin)}
	role := Resolve(user, nil, nil, nil)
	require.Equal(t, KindAdmin, role.Kind)
}

func TestResolveIgnoresInactiveEmployment(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	user := &models.User{ID: userID, Role: "customer"}
	inactive := models.VendorEmployee{
		ID:       uuid.New(),
		UserID:   userID,
		VendorID: uuid.New(),
		Role:     string(models.EmployeeStaff),
		IsActive: false,
	}

	role := Resolve(user, nil, nil, []models.VendorEmployee{inactive})
	require.Equal(t, KindCustomer, role.Kind)
}

func TestResolveEmployeeCarriesVendorScope(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	vendorID := uuid.New()
	employeeID := uuid.New()
	user := &models.User{ID: userID, Role: "customer"}
	employment := models.VendorEmployee{
		ID:       employeeID,
		UserID:   userID,
		VendorID: vendorID,
		Role:     string(models.EmployeeCustomerService),
		IsActive: true,
	}

	role := Resolve(user, nil, nil, []models.VendorEmployee{employment})
	require.Equal(t, KindVendorEmployee, role.Kind)
	require.Equal(t, vendorID, role.VendorID)
	require.Equal(t, employeeID, role.EmployeeID)
	require.Equal(t, models.EmployeeCustomerService, role.EmployeeRole)
}

func TestCapabilitiesFullForAdminAndOwner(t *testing.T) {
	t.Parallel()

	for _, role := range []Role{
		{Kind: KindAdmin, UserID: uuid.New()},
		{Kind: KindVendorOwner, UserID: uuid.New(), VendorID: uuid.New()},
	} {
		caps := Capabilities(role, nil)
		for _, c := range AllCapabilities {
			require.True(t, caps.Has(c), "role %s should hold %s", role.Kind, c)
		}
	}
}

func TestCapabilitiesEmployeeFromMatrix(t *testing.T) {
	t.Parallel()

	role := Role{Kind: KindVendorEmployee, EmployeeRole: models.EmployeeCustomerService}
	perm := &models.OrderPermission{
		Role:                string(models.EmployeeCustomerService),
		CanViewOrders:       true,
		CanUpdateStatus:     true,
		CanViewCustomerInfo: true,
		CanManageReturns:    true,
	}

	caps := Capabilities(role, perm)
	require.True(t, caps.Has(CapViewOrders))
	require.True(t, caps.Has(CapUpdateStatus))
	require.True(t, caps.Has(CapViewCustomerInfo))
	require.True(t, caps.Has(CapManageReturns))
	require.False(t, caps.Has(CapEditOrderItems))
	require.False(t, caps.Has(CapAssignOrders))
	require.False(t, caps.Has(CapViewFinancials))
	require.False(t, caps.Has(CapProcessRefunds))
}

func TestCapabilitiesEmployeeWithoutMatrixRow(t *testing.T) {
	t.Parallel()

	role := Role{Kind: KindVendorEmployee, EmployeeRole: models.EmployeeDelivery}
	caps := Capabilities(role, nil)
	for _, c := range AllCapabilities {
		require.False(t, caps.Has(c), "missing matrix row should grant nothing, got %s", c)
	}
}

func TestCapabilitiesCustomer(t *testing.T) {
	t.Parallel()

	caps := Capabilities(Role{Kind: KindCustomer, UserID: uuid.New()}, nil)
	require.True(t, caps.Has(CapViewOrders))
	require.True(t, caps.Has(CapViewFinancials))
	require.False(t, caps.Has(CapUpdateStatus))
	require.False(t, caps.Has(CapEditOrderItems))
	require.False(t, caps.Has(CapAssignOrders))
	require.False(t, caps.Has(CapViewCustomerInfo))
}

func TestDefaultPermissionsCoverEveryEmployeeRole(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, p := range models.DefaultOrderPermissions() {
		seen[p.Role] = true
	}
	for _, r := range []models.EmployeeRole{
		models.EmployeeManager,
		models.EmployeeStaff,
		models.EmployeeCustomerService,
		models.EmployeeDelivery,
	} {
		require.True(t, seen[string(r)], "no default permission row for %s", r)
	}
}
