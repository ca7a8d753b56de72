package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eligibility_backend/database"
	"eligibility_backend/internal/auth"
	"eligibility_backend/internal/config"
	"eligibility_backend/internal/gateway"
	"eligibility_backend/internal/handlers"
	"eligibility_backend/internal/logger"
	"eligibility_backend/internal/middleware"
	"eligibility_backend/internal/models"
	"eligibility_backend/internal/ratelimit"
	"eligibility_backend/internal/repositories"
	"eligibility_backend/internal/routes"
	"eligibility_backend/internal/services"
	"eligibility_backend/internal/validator"
	"eligibility_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	// Fail fast: an unauthenticated gateway call must never happen.
	if err := cfg.ValidateRequired(); err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}

	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	ginRouter, serviceContainer := SetupRouter(cfg, gormDB)

	// Background reconciliation: webhook loss must not strand PENDING
	// transactions forever.
	worker := workers.NewReconcileWorker(gormDB, serviceContainer.PaymentService)
	worker.Start(context.Background())

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", "address", address)
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// SetupRouter assembles the full gin engine. Returned separately from
// Run so the integration test server can reuse the exact production
// wiring.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB) (*gin.Engine, *services.ServiceContainer) {
	serviceContainer := initializeServices(cfg)
	appHandlers := initializeHandlers(cfg, serviceContainer)

	ginRouter := initializeGinRouter(gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers)

	return ginRouter, serviceContainer
}

func initializeServices(cfg *config.Config) *services.ServiceContainer {
	txRepo := repositories.NewTransactionRepository()
	resultRepo := repositories.NewResultRepository()
	legacyRepo := repositories.NewLegacyPaymentRepository()
	userRepo := repositories.NewUserRepository()

	gatewayClient := gateway.NewClient(gateway.ClientConfig{
		BaseURL:   cfg.Gateway.BaseURL,
		SecretKey: cfg.Gateway.SecretKey,
		Timeout:   time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second,
	})

	notifyService := services.NewNotifyService(
		cfg.Notify.WebhookURL,
		time.Duration(cfg.Notify.TimeoutSeconds)*time.Second,
	)
	receiptService := services.NewReceiptService(cfg)

	return &services.ServiceContainer{
		PaymentService: services.NewPaymentService(txRepo, gatewayClient, notifyService, receiptService, cfg),
		AccessService:  services.NewAccessService(resultRepo, txRepo, legacyRepo),
		AuthService:    services.NewAuthService(userRepo),
		NotifyService:  notifyService,
		ReceiptService: receiptService,
	}
}

func initializeHandlers(cfg *config.Config, svc *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	limiter := ratelimit.New(
		cfg.RateLimit.MaxRequests,
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
	)
	limiter.StartJanitor(time.Minute, make(chan struct{}))

	txRepo := repositories.NewTransactionRepository()

	return &handlers.AppHandlers{
		AuthHandler:    handlers.NewAuthHandler(baseHandler, svc.AuthService),
		PaymentHandler: handlers.NewPaymentHandler(baseHandler, svc.PaymentService, cfg, limiter),
		ResultHandler:  handlers.NewResultHandler(baseHandler, svc.AccessService, limiter),
		AdminHandler:   handlers.NewAdminHandler(baseHandler, txRepo),
	}
}

func initializeGinRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}

func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	adminEmail := cfg.FirstAdminEmail
	adminPassword := cfg.FirstAdminPassword

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD not set. Skipping admin seeding.")
		return nil
	}

	var adminUser models.User
	result := db.Where("email = ?", adminEmail).First(&adminUser)

	if result.Error == nil {
		logger.Info("Admin user already exists. Skipping creation.", "email", adminEmail)
		return nil
	}

	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", result.Error)
	}

	logger.Warn("No admin user found. Creating first admin...", "email", adminEmail)

	hashedPassword, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	newAdmin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Role:         models.UserRoleAdmin,
	}

	if err := db.Create(newAdmin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	return nil
}
