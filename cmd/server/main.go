package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/handlers"
	"marketplace/internal/logging"
	"marketplace/internal/migrations"
	"marketplace/internal/redis"
	"marketplace/internal/repository"
	"marketplace/internal/services"
	"marketplace/pkg/notify"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Make sure the permission matrix exists before the first request
	if err := migrations.SeedPermissions(db); err != nil {
		log.Fatal("Failed to seed order permissions:", err)
	}

	// Initialize Redis
	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	// Initialize notification client
	notifyClient := notify.NewClient(cfg.NotifyAPIURL, cfg.NotifyUsername, cfg.NotifyPassword)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	orderItemRepo := repository.NewOrderItemRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	// Initialize services
	resolver := services.NewRoleResolver(userRepo, permissionRepo)
	orderService := services.NewOrderService(orderRepo, orderItemRepo, historyRepo, catalogRepo, userRepo, resolver, redisClient, cfg)
	analyticsService := services.NewAnalyticsService(orderRepo, userRepo, analyticsRepo, resolver, redisClient, cfg)
	statusService := services.NewStatusService(orderRepo, userRepo, analyticsRepo, resolver, redisClient, notifyClient)
	assignmentService := services.NewAssignmentService(orderRepo, userRepo, analyticsRepo, resolver, redisClient, notifyClient)

	// Initialize handlers
	orderHandler := handlers.NewOrderHandler(orderService, statusService, assignmentService, analyticsService)
	webhookHandler := handlers.NewPaymentWebhookHandler(statusService, cfg.PaymentWebhookSecret)
	adminHandler := handlers.NewAdminHandler(redisClient)

	// Setup routes
	router := gin.New()
	router.Use(logging.JSONLogger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Payment gateway callback, authenticated by shared secret
	router.POST("/api/payments/webhook", webhookHandler.HandlePaymentEvent)

	api := router.Group("/api")
	api.Use(handlers.AuthMiddleware(cfg.JWTSecret))
	{
		orders := api.Group("/orders")
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/summary", orderHandler.Summary)
			orders.GET("/recent", orderHandler.Recent)
			orders.GET("/vendor-dashboard", orderHandler.VendorDashboard)
			orders.PUT("/vendor-dashboard", orderHandler.UpdateVendorDashboard)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.POST("/:id/checkout", orderHandler.SubmitCheckout)
			orders.GET("/:id/transitions", orderHandler.GetTransitions)
			orders.POST("/:id/update-status", orderHandler.UpdateStatus)
			orders.POST("/:id/assign", orderHandler.AssignOrder)
			orders.GET("/:id/history", orderHandler.GetHistory)
			orders.GET("/:id/assignments", orderHandler.GetAssignments)
			orders.POST("/:id/items", orderHandler.AddItem)
			orders.PUT("/:id/items/:item_id", orderHandler.UpdateItem)
			orders.DELETE("/:id/items/:item_id", orderHandler.RemoveItem)
		}

		admin := api.Group("/admin")
		admin.Use(handlers.AdminMiddleware())
		{
			admin.POST("/cache/clear", adminHandler.ClearCache)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("Forced shutdown:", err)
	}
}
