package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/legalassist/status-gateway/database"
	"github.com/legalassist/status-gateway/services"
	"github.com/legalassist/status-gateway/shared"
)

// PerformanceHandler exposes the sync pipeline's operational counters: cache
// behavior, upstream fetch rates, redirects, session population, and database
// pool health.
type PerformanceHandler struct {
	Metrics   *shared.SyncMetrics
	Store     *services.StatusStore
	Navigator *services.Navigator
	Poller    *services.StatusPoller
	Client    *services.PlatformClient
	Config    *shared.UnifiedConfiguration
}

func NewPerformanceHandler(metrics *shared.SyncMetrics, store *services.StatusStore, navigator *services.Navigator, poller *services.StatusPoller, client *services.PlatformClient, config *shared.UnifiedConfiguration) *PerformanceHandler {
	return &PerformanceHandler{
		Metrics:   metrics,
		Store:     store,
		Navigator: navigator,
		Poller:    poller,
		Client:    client,
		Config:    config,
	}
}

// GetMetrics returns the current sync metrics snapshot.
func (h *PerformanceHandler) GetMetrics(c *fiber.Ctx) error {
	snapshot := h.Metrics.GetSnapshot()
	dbStats := database.GetConnectionStats()

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"sync":               snapshot,
			"fetch_success_rate": h.Metrics.FetchSuccessRate(),
			"cached_users":       h.Store.CachedSize(),
			"active_sessions":    h.Navigator.SessionCount(),
			"poller_running":     h.Poller.Running(),
			"upstream_requests":  h.Client.RateLimiter.RequestCount(),
			"database_stats": fiber.Map{
				"open_connections": dbStats.OpenConnections,
				"in_use":           dbStats.InUse,
				"idle":             dbStats.Idle,
				"wait_count":       dbStats.WaitCount,
				"wait_duration_ms": dbStats.WaitDuration.Milliseconds(),
			},
		},
	})
}

// GetConfig returns the active unified configuration. It carries no secrets,
// only endpoints and timing knobs.
func (h *PerformanceHandler) GetConfig(c *fiber.Ctx) error {
	payload, err := h.Config.ToJSON()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to serialize configuration",
		})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}

// ResetMetrics zeroes all counters. Admin only.
func (h *PerformanceHandler) ResetMetrics(c *fiber.Ctx) error {
	h.Metrics.Reset()
	return c.JSON(fiber.Map{"success": true})
}

// LogSummary writes the metrics summary to the log and returns it.
func (h *PerformanceHandler) LogSummary(c *fiber.Ctx) error {
	h.Metrics.LogSummary()
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.Metrics.GetSnapshot(),
	})
}
