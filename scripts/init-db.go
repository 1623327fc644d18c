package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/migrations"
	"marketplace/internal/models"
	"marketplace/internal/repository"
)

// Shared by every demo account. Printed at the end of the run.
const demoPassword = "demo1234"

type demoAccount struct {
	username string
	role     string
	userID   uuid.UUID
}

func main() {
	fmt.Println("Initializing marketplace database...")

	cfg := config.Load()

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	catalog := repository.NewCatalogRepository(db)
	analytics := repository.NewAnalyticsRepository(db)

	fmt.Println("Seeding demo accounts...")

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash demo password:", err)
	}

	accounts := []demoAccount{}

	admin := createUser(ctx, users, "admin", "admin@marketplace.local", string(models.UserAdmin), string(hash))
	if err := users.CreateAdminProfile(ctx, &models.AdminProfile{
		UserID:      admin.ID,
		AccessLevel: string(models.AccessSuper),
	}); err != nil {
		log.Fatal("Failed to create admin profile:", err)
	}
	accounts = append(accounts, demoAccount{"admin", "admin", admin.ID})

	owner := createUser(ctx, users, "acme", "owner@acme-outfitters.test", string(models.UserVendor), string(hash))
	if err := users.CreateVendor(ctx, &models.Vendor{
		UserID:           owner.ID,
		StoreName:        "Acme Outfitters",
		StoreDescription: "Outdoor gear and apparel",
		IsApproved:       true,
	}); err != nil {
		log.Fatal("Failed to create vendor:", err)
	}
	if err := analytics.SaveDashboard(ctx, models.DefaultDashboard(owner.ID)); err != nil {
		log.Fatal("Failed to create vendor dashboard:", err)
	}
	accounts = append(accounts, demoAccount{"acme", "vendor owner", owner.ID})

	employeeRoles := map[string]models.EmployeeRole{
		"manager": models.EmployeeManager,
		"staff":   models.EmployeeStaff,
		"support": models.EmployeeCustomerService,
		"courier": models.EmployeeDelivery,
	}
	for _, username := range []string{"manager", "staff", "support", "courier"} {
		role := employeeRoles[username]
		u := createUser(ctx, users, username, username+"@acme-outfitters.test", string(models.UserCustomer), string(hash))
		if err := users.CreateEmployee(ctx, &models.VendorEmployee{
			UserID:   u.ID,
			VendorID: owner.ID,
			Role:     string(role),
			IsActive: true,
		}); err != nil {
			log.Fatal("Failed to create employee:", err)
		}
		accounts = append(accounts, demoAccount{username, "employee (" + string(role) + ")", u.ID})
	}

	customer := createUser(ctx, users, "customer", "customer@example.test", string(models.UserCustomer), string(hash))
	if err := users.CreateAddress(ctx, &models.Address{
		UserID:      customer.ID,
		Label:       "home",
		Street:      "14 Riverside Drive",
		City:        "Nairobi",
		Country:     "Kenya",
		PhoneNumber: "+254700000001",
		IsDefault:   true,
	}); err != nil {
		log.Fatal("Failed to create customer address:", err)
	}
	accounts = append(accounts, demoAccount{"customer", "customer", customer.ID})

	fmt.Println("Seeding demo catalog...")

	shoes := &models.Product{
		VendorID: owner.ID,
		Name:     "Trail Running Shoes",
		Price:    decimal.NewFromFloat(89.99),
		IsActive: true,
	}
	socks := &models.Product{
		VendorID: owner.ID,
		Name:     "Merino Wool Socks",
		Price:    decimal.NewFromFloat(14.50),
		IsActive: true,
	}
	pack := &models.Product{
		VendorID: owner.ID,
		Name:     "Hydration Pack",
		Price:    decimal.NewFromFloat(39.00),
		IsActive: true,
	}
	for _, p := range []*models.Product{shoes, socks, pack} {
		if err := catalog.CreateProduct(ctx, p); err != nil {
			log.Fatal("Failed to create product:", err)
		}
	}

	size42 := &models.ProductVariant{ProductID: shoes.ID, Name: "Size 42"}
	size44 := &models.ProductVariant{
		ProductID:  shoes.ID,
		Name:       "Size 44",
		PriceDelta: decimal.NewFromFloat(5.00),
	}
	for _, v := range []*models.ProductVariant{size42, size44} {
		if err := catalog.CreateVariant(ctx, v); err != nil {
			log.Fatal("Failed to create product variant:", err)
		}
	}

	fmt.Println()
	fmt.Println("Order permission matrix:")
	printPermissionMatrix()

	fmt.Println()
	fmt.Println("Demo accounts (password for all:", demoPassword+"):")
	printAccounts(accounts)

	fmt.Println()
	fmt.Println("Demo catalog:")
	printCatalog([]*models.Product{shoes, socks, pack}, map[uuid.UUID][]*models.ProductVariant{
		shoes.ID: {size42, size44},
	})

	fmt.Println()
	fmt.Println("Database initialization completed successfully!")
}

func createUser(ctx context.Context, users repository.UserRepository, username, email, role, hash string) *models.User {
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsVerified:   true,
		IsActive:     true,
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatal("Failed to create user "+username+":", err)
	}
	return user
}

func printPermissionMatrix() {
	table := tablewriter.NewTable(os.Stdout)
	table.Header("Role", "View", "Edit Items", "Update Status", "Assign", "Customer Info", "Financials", "Refunds", "Returns")
	for _, perm := range models.DefaultOrderPermissions() {
		table.Append([]string{
			perm.Role,
			mark(perm.CanViewOrders),
			mark(perm.CanEditOrderItems),
			mark(perm.CanUpdateStatus),
			mark(perm.CanAssignOrders),
			mark(perm.CanViewCustomerInfo),
			mark(perm.CanViewFinancials),
			mark(perm.CanProcessRefunds),
			mark(perm.CanManageReturns),
		})
	}
	table.Render()
}

func printAccounts(accounts []demoAccount) {
	table := tablewriter.NewTable(os.Stdout)
	table.Header("Username", "Role", "User ID")
	for _, a := range accounts {
		table.Append([]string{a.username, a.role, a.userID.String()})
	}
	table.Render()
}

func printCatalog(products []*models.Product, variants map[uuid.UUID][]*models.ProductVariant) {
	table := tablewriter.NewTable(os.Stdout)
	table.Header("Product", "Variant", "Price", "ID")
	for _, p := range products {
		table.Append([]string{p.Name, "-", p.Price.StringFixed(2), p.ID.String()})
		for _, v := range variants[p.ID] {
			table.Append([]string{p.Name, v.Name, p.Price.Add(v.PriceDelta).StringFixed(2), v.ID.String()})
		}
	}
	table.Render()
}

func mark(allowed bool) string {
	if allowed {
		return "yes"
	}
	return "-"
}
