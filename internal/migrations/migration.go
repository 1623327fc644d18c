package migrations

import (
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/models"
)

// RunMigrations recreates the schema from scratch and seeds configuration
// data. Destructive; meant for the init-db script and fresh environments.
func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	log.Println("Dropping existing tables...")
	err := db.Migrator().DropTable(
		&models.User{},
		&models.Vendor{},
		&models.VendorEmployee{},
		&models.AdminProfile{},
		&models.Address{},
		&models.Product{},
		&models.ProductVariant{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
		&models.OrderAssignmentHistory{},
		&models.OrderPermission{},
		&models.VendorOrderAnalytics{},
		&models.VendorOrderDashboard{},
	)
	if err != nil {
		log.Printf("Warning: Error dropping tables: %v", err)
	}

	log.Println("Creating tables...")
	err = db.AutoMigrate(
		&models.User{},
		&models.Vendor{},
		&models.VendorEmployee{},
		&models.AdminProfile{},
		&models.Address{},
		&models.Product{},
		&models.ProductVariant{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
		&models.OrderAssignmentHistory{},
		&models.OrderPermission{},
		&models.VendorOrderAnalytics{},
		&models.VendorOrderDashboard{},
	)
	if err != nil {
		return err
	}

	if err := SeedPermissions(db); err != nil {
		log.Printf("Warning: Failed to seed order permissions: %v", err)
	}

	log.Println("Database migrations completed successfully!")
	return nil
}

// SeedPermissions upserts the static capability matrix. Safe to run on an
// existing database.
func SeedPermissions(db *gorm.DB) error {
	log.Println("Seeding order permission matrix...")
	for _, perm := range models.DefaultOrderPermissions() {
		perm := perm
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "role"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"can_view_orders",
				"can_edit_order_items",
				"can_update_status",
				"can_assign_orders",
				"can_view_customer_info",
				"can_view_financials",
				"can_process_refunds",
				"can_manage_returns",
			}),
		}).Create(&perm).Error
		if err != nil {
			return err
		}
	}
	return nil
}
