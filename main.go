package main

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/legalassist/status-gateway/config"
	"github.com/legalassist/status-gateway/database"
	"github.com/legalassist/status-gateway/handlers"
	"github.com/legalassist/status-gateway/jobs"
	"github.com/legalassist/status-gateway/models"
	"github.com/legalassist/status-gateway/services"
	"github.com/legalassist/status-gateway/shared"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Resolve the unified configuration: optional config file, then
	// environment overrides, then validated defaults
	unified := shared.NewDefaultUnifiedConfiguration()
	if cfg.ConfigFile != "" {
		data, err := os.ReadFile(cfg.ConfigFile)
		if err != nil {
			log.Fatalf("Failed to read config file %s: %v", cfg.ConfigFile, err)
		}
		if err := unified.LoadFromJSON(data); err != nil {
			log.Fatalf("Failed to load config file %s: %v", cfg.ConfigFile, err)
		}
	}
	cfg.ApplySyncOverrides(&unified.Sync)
	if cfg.PlatformBaseURL != "" {
		unified.Platform.BaseURL = cfg.PlatformBaseURL
	}
	unified.Platform.HTTPRequestTimeout = unified.Sync.FetchTimeout
	unified.ValidateAndApplyDefaults()
	syncConfig := unified.Sync

	// Connect to database
	if err := database.ConnectWithConfig(cfg.DatabaseURL, &unified.Database); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate("database/schema.sql"); err != nil {
		log.Printf("Migration warning: %v", err)
	}
	if err := database.ValidateSchema(); err != nil {
		log.Fatalf("Schema validation failed: %v", err)
	}

	// Initialize services
	metrics := shared.NewSyncMetrics(unified.Logging.ServiceName)
	platformClient := services.NewPlatformClient(&unified.Platform)
	defer platformClient.ClientFactory.CleanupAllClients()
	persister := services.NewPostgresStatusPersister(database.DB)
	statusStore := services.NewStatusStore(platformClient, persister, persister, metrics, syncConfig)
	navigator := services.NewNavigator(metrics)
	statusPoller := services.NewStatusPoller(statusStore, navigator, metrics, syncConfig)

	logrus.Info("Status gateway services initialized:")
	logrus.Infof("  - Platform client (base URL: %s, timeout: %v)", unified.Platform.BaseURL, unified.Platform.HTTPRequestTimeout)
	logrus.Infof("  - Status store (TTL: %v, fetch timeout: %v)", syncConfig.StatusTTL, syncConfig.FetchTimeout)
	logrus.Infof("  - Status poller (interval: %v)", syncConfig.PollInterval)
	logrus.Infof("  - Guard (wait ceiling: %v)", syncConfig.GuardWaitCeiling)

	// Initialize jobs
	cleanupJob := jobs.NewCacheCleanupJob(persister, syncConfig.StatusTTL)
	reaperJob := jobs.NewSessionReaperJob(navigator, syncConfig.SessionIdleWindow)

	// Initialize handlers
	authMiddleware := handlers.NewAuthMiddleware(platformClient)
	guard := handlers.NewStatusGuard(statusStore, metrics, syncConfig)
	screenHandler := handlers.NewScreenHandler(statusStore)
	applicationHandler := handlers.NewApplicationHandler(platformClient, statusStore)
	sessionHandler := handlers.NewSessionHandler(navigator)
	performanceHandler := handlers.NewPerformanceHandler(metrics, statusStore, navigator, statusPoller, platformClient, unified)

	// Start background work
	statusPoller.Start()
	defer statusPoller.Stop()

	go func() {
		cleanupTicker := time.NewTicker(1 * time.Hour)
		reaperTicker := time.NewTicker(10 * time.Minute)
		defer cleanupTicker.Stop()
		defer reaperTicker.Stop()

		for {
			select {
			case <-cleanupTicker.C:
				cleanupJob.Run()
			case <-reaperTicker.C:
				reaperJob.Run()
			}
		}
	}()

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(authMiddleware.Handle)

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		dbHealthy := database.HealthCheck() == nil
		status := "ok"
		if !dbHealthy {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":    status,
			"database":  dbHealthy,
			"poller":    statusPoller.Running(),
			"timestamp": time.Now().Unix(),
		})
	})

	// Routes
	api := app.Group("/api/v1")

	// Application status routes
	api.Get("/lawyer-applications/me", screenHandler.GetMyStatus)
	api.Post("/lawyer-applications/submit", applicationHandler.SubmitApplication)
	api.Post("/lawyer-applications/acknowledge-rejection", applicationHandler.AcknowledgeRejection)
	api.Post("/lawyer-applications/clear-pending", applicationHandler.ClearPendingFlag)
	api.Post("/lawyer-applications/upload/:kind", applicationHandler.UploadDocument)

	// Guarded status screens
	screens := app.Group("/screens")
	screens.Get(models.PathPending, guard.RequireStatus(models.StatusPending), screenHandler.GetStatusScreen)
	screens.Get(models.PathResubmission, guard.RequireStatus(models.StatusResubmission), screenHandler.GetStatusScreen)
	screens.Get(models.PathRejected, guard.RequireStatus(models.StatusRejected), screenHandler.GetStatusScreen)
	screens.Get(models.PathAccepted, guard.RequireStatus(models.StatusAccepted), screenHandler.GetStatusScreen)
	screens.Get(models.PathAcknowledged, screenHandler.GetAcknowledgedScreen)

	// Session routes
	api.Post("/sessions", sessionHandler.RegisterSession)
	api.Post("/sessions/:id/screen", sessionHandler.UpdateScreen)
	api.Get("/sessions/:id/redirect", sessionHandler.CollectRedirect)
	api.Delete("/sessions/:id", sessionHandler.EndSession)

	// Performance routes
	perf := api.Group("/performance")
	perf.Get("/metrics", performanceHandler.GetMetrics)
	perf.Get("/config", performanceHandler.GetConfig)
	perf.Post("/metrics/summary", performanceHandler.LogSummary)
	perf.Delete("/metrics", performanceHandler.ResetMetrics)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
