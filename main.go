// Package main provides the main entry point for the Control de Cuentas admin API
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/controlcuentas/admin-api/app/handlers"
	"github.com/controlcuentas/admin-api/app/middleware"
	"github.com/controlcuentas/admin-api/app/router"
	"github.com/controlcuentas/admin-api/app/services"
	businessflow "github.com/controlcuentas/admin-api/business_flow"
	"github.com/controlcuentas/admin-api/config"
	"github.com/controlcuentas/admin-api/models"
	"github.com/controlcuentas/admin-api/repository"
	"github.com/controlcuentas/admin-api/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Control de Cuentas admin API...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogging routes the standard logger to a rotating file, stdout,
// or both, according to configuration.
func setupLogging(cfg config.LoggingConfig) {
	if cfg.Output == "stdout" || cfg.FilePath == "" {
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	switch cfg.Output {
	case "file":
		log.SetOutput(rotator)
	case "both":
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// migrateSchema applies the schema for all persistent models.
func migrateSchema(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Account{},
		&models.AutomationConfig{},
		&models.AutomationLog{},
		&models.NotificationTracking{},
		&models.User{},
		&models.UserRole{},
	)
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if client == nil {
		return cancel
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// ensureAutomationConfig seeds the automation settings singleton.
func ensureAutomationConfig(configRepo repository.AutomationConfigRepository, cfg config.AutomationConfig) error {
	defaults := models.SettingsMap{
		"maxPerHour":  cfg.MaxPerHour,
		"bulkDelayMs": int(cfg.BulkDelay / time.Millisecond),
	}
	_, err := configRepo.EnsureExists(context.Background(), defaults)
	return err
}

// ensureBootstrapAdmin creates the configured admin user when it does
// not exist yet. An existing user keeps its password; only the role
// grant is reasserted.
func ensureBootstrapAdmin(userRepo repository.UserRepository, cfg config.AdminConfig, bcryptCost int) error {
	if cfg.Email == "" {
		return nil
	}

	ctx := context.Background()
	user, err := userRepo.ByEmail(ctx, cfg.Email)
	if err != nil {
		return err
	}
	if user == nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcryptCost)
		if err != nil {
			return err
		}
		user = &models.User{
			Email:        cfg.Email,
			PasswordHash: string(hash),
			IsDisabled:   utils.ToPtr(false),
			CreatedAt:    utils.UTCNow(),
			UpdatedAt:    utils.UTCNow(),
		}
		if err := userRepo.Save(ctx, user); err != nil {
			return err
		}
		log.Printf("Bootstrap admin user created: %s", cfg.Email)
	}
	return userRepo.GrantRole(ctx, user.ID, models.RoleAdmin)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := migrateSchema(db); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, 30*time.Second))

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	configRepo := repository.NewAutomationConfigRepository(db)
	logRepo := repository.NewAutomationLogRepository(db)
	trackingRepo := repository.NewNotificationTrackingRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Seed the automation settings row and the bootstrap admin
	if err := ensureAutomationConfig(configRepo, cfg.Automation); err != nil {
		return nil, fmt.Errorf("failed to seed automation config: %w", err)
	}
	if err := ensureBootstrapAdmin(userRepo, cfg.Admin, cfg.Security.BcryptCost); err != nil {
		return nil, fmt.Errorf("failed to seed bootstrap admin: %w", err)
	}

	// Initialize services
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	adminChecker := services.NewAdminAccessChecker(db, userRepo)
	gateway := services.NewWAHAClient(&cfg.WAHA)

	// Initialize flows
	loginFlow := businessflow.NewLoginFlow(userRepo, tokenService, adminChecker)
	automationFlow := businessflow.NewAutomationFlow(configRepo, logRepo, trackingRepo, accountRepo, rc, &cfg.Cache)
	whatsappFlow := businessflow.NewWhatsAppFlow(accountRepo, trackingRepo, gateway, cfg.Automation.BulkDelay)
	userManagementFlow := businessflow.NewUserManagementFlow(userRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(loginFlow)
	automationHandler := handlers.NewAutomationHandler(automationFlow)
	whatsappHandler := handlers.NewWhatsAppHandler(whatsappFlow)
	userAdminHandler := handlers.NewUserAdminHandler(userManagementFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService, userRepo, adminChecker)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		authHandler,
		automationHandler,
		whatsappHandler,
		userAdminHandler,
		authMiddleware,
	)

	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
