package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/mastery-service/internal/cache"
	"github.com/SAP-F-2025/mastery-service/internal/config"
	"github.com/SAP-F-2025/mastery-service/internal/generator"
	"github.com/SAP-F-2025/mastery-service/internal/handlers"
	"github.com/SAP-F-2025/mastery-service/internal/repositories"
	"github.com/SAP-F-2025/mastery-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/mastery-service/internal/services"
	"github.com/SAP-F-2025/mastery-service/internal/utils"
	"github.com/SAP-F-2025/mastery-service/internal/validator"
	"github.com/SAP-F-2025/mastery-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}

	// ===== Persistence =====
	var profileRepo repositories.ProfileRepository
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		// The loop itself is fully functional without Postgres; profiles
		// just do not survive a restart.
		logger.Warn("Database unavailable, using in-memory profile store", "error", err)
		profileRepo = repositories.NewMemoryProfileRepository()
	} else {
		profileRepo = postgres.NewProfilePostgreSQL(db)
		logger.Info("Connected to database")
	}

	var cacheService cache.CacheService
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, profile snapshots are uncached", "error", err)
	} else {
		cacheService = cache.NewRedisCache(redisClient, logger)
		defer redisClient.Close()
		logger.Info("Connected to Redis")
	}

	// ===== Events =====
	publisher, err := cfg.Events.CreateEventPublisher(utils.ToSlogLogger(logger))
	if err != nil {
		logger.LogError(err, "Failed to create event publisher")
		os.Exit(1)
	}
	defer publisher.Close()

	// ===== Services =====
	serviceManager := services.NewServiceManager(services.ManagerDeps{
		ProfileRepo: profileRepo,
		Cache:       cacheService,
		Generator:   generator.NewHTTPClient(cfg.Generator, logger),
		Publisher:   publisher,
		Validator:   validator.New(),
		Logger:      logger,
		Config:      cfg,
	})

	// ===== HTTP =====
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.LoggerMiddleware(logger))
	router.Use(gin.Recovery())

	handlerManager := handlers.NewHandlerManager(serviceManager, validator.New(), logger)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info("Shutting down server")
		if err := server.Shutdown(ctx); err != nil {
			logger.LogError(err, "Server forced to shutdown")
		}
	}()

	logger.Info("Starting mastery service", "port", cfg.Port, "environment", cfg.Environment)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.LogError(err, "Server failed to start")
		os.Exit(1)
	}
}
