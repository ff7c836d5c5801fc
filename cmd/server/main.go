package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctoring-service/internal/cache"
	"github.com/SAP-F-2025/proctoring-service/internal/config"
	"github.com/SAP-F-2025/proctoring-service/internal/directory"
	"github.com/SAP-F-2025/proctoring-service/internal/handlers"
	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
	"github.com/SAP-F-2025/proctoring-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var slogLogger *slog.Logger
	if cfg.Environment == "production" {
		slogLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	} else {
		slogLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	appLogger := utils.NewSlogLogger(slogLogger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		slogLogger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}

	if cfg.Environment != "production" {
		if err := db.AutoMigrate(
			&models.ProctorSession{},
			&models.ProctorEvent{},
			&models.ProctorRiskRule{},
			&models.ProctorRiskSnapshot{},
			&models.ProctorDecision{},
			&models.ProctorDecisionLog{},
			&models.ProctorEvidence{},
			&models.AttemptAuditEvent{},
		); err != nil {
			slogLogger.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	repo := postgres.NewRepository(db)
	defer repo.Close()

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		slogLogger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	cacheService := cache.NewRedisCache(redisClient, slogLogger)

	publisher, err := cfg.Events.CreateEventPublisher(slogLogger)
	if err != nil {
		slogLogger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	var userDirectory directory.UserDirectory = directory.NoopDirectory{}
	if cfg.CasdoorEndpoint != "" {
		userDirectory = directory.NewCasdoorDirectory(directory.Config{
			Endpoint:     cfg.CasdoorEndpoint,
			ClientID:     cfg.CasdoorClientID,
			ClientSecret: cfg.CasdoorClientSecret,
			Certificate:  cfg.CasdoorCertificate,
			Organization: cfg.CasdoorOrganization,
			Application:  cfg.CasdoorApplication,
		}, slogLogger)
	}

	validator := utils.NewValidator()
	serviceManager := services.NewServiceManager(repo, slogLogger, validator, publisher, cacheService, userDirectory)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startSweepers(ctx, cfg, serviceManager, slogLogger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(appLogger))

	handlerManager := handlers.NewHandlerManager(serviceManager, repo, validator, appLogger)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slogLogger.Info("Proctoring service listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogLogger.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slogLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slogLogger.Error("Graceful shutdown failed", "error", err)
	}
}

// startSweepers runs the heartbeat and evidence retention sweeps until
// ctx is cancelled.
func startSweepers(ctx context.Context, cfg *config.Config, sm services.ServiceManager, logger *slog.Logger) {
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.HeartbeatSweepSeconds) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := sm.Event().SweepMissedHeartbeats(ctx, cfg.HeartbeatThresholdSeconds); err != nil {
					logger.Error("Heartbeat sweep failed", "error", err)
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(time.Duration(cfg.EvidenceSweepMinutes) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := sm.Evidence().SweepExpired(ctx); err != nil {
					logger.Error("Evidence retention sweep failed", "error", err)
				}
			}
		}
	}()
}
