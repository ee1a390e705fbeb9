package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyoon/shopcart-backend/config"
	"github.com/dyoon/shopcart-backend/internal/app/cache"
	"github.com/dyoon/shopcart-backend/internal/app/controller"
	"github.com/dyoon/shopcart-backend/internal/app/repository"
	"github.com/dyoon/shopcart-backend/internal/app/service"
	"github.com/dyoon/shopcart-backend/internal/db"
	"github.com/dyoon/shopcart-backend/internal/middleware"
	"github.com/dyoon/shopcart-backend/internal/router"
	"github.com/dyoon/shopcart-backend/internal/scheduler"
	"github.com/dyoon/shopcart-backend/pkg/catalog"
	"github.com/dyoon/shopcart-backend/pkg/logger"
	"github.com/dyoon/shopcart-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting Shopcart Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Initialize cache. Redis being down means slower reads, never wrong
	// ones, so a failed init only degrades to store-only operation.
	cartCache := cache.NewNoop()
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, running store-only", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			cartCache = cache.NewRedisCartCache(redis.GetClient(), cfg.Cache)
			defer redis.Close()
		}
	}

	// Initialize catalog client
	catalogClient, err := catalog.NewClient(catalog.Config{
		BaseURL: cfg.Catalog.BaseURL,
		APIKey:  cfg.Catalog.APIKey,
		Timeout: cfg.Catalog.Timeout,
	})
	if err != nil {
		logger.Fatal("Failed to create catalog client", err)
	}

	// Initialize repositories and services
	cartRepo := repository.NewCartRepository(db.GetDB())
	inventoryService := service.NewInventoryService(db.GetDB(), cfg.Inventory.HoldWindow)
	cartService := service.NewCartService(cartRepo, cartCache, inventoryService, catalogClient)

	// Initialize controllers and middleware
	cartController := controller.NewCartController(cartService)
	identityMiddleware := middleware.NewIdentityMiddleware(cfg.JWT.Secret)

	// Start the reservation expiry janitor
	reservationScheduler := scheduler.NewReservationScheduler(inventoryService, cfg.Inventory.CleanupEvery)
	if err := reservationScheduler.Start(); err != nil {
		logger.Fatal("Failed to start reservation scheduler", err)
	}
	defer reservationScheduler.Stop()

	// Setup router
	r := router.NewRouter(cartController, identityMiddleware, cfg)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
