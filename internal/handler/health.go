package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/database"
	"github.com/cleberrangel/clientflow-api/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Pinger é uma dependência opcional verificada no readiness (Redis, broker)
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapta uma função a Pinger
type PingFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles health check and metrics endpoints
type HealthHandler struct {
	db        *sql.DB
	deps      map[string]Pinger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler. Optional dependencies are
// reported as degraded, never unhealthy, since the core keeps working without them.
func NewHealthHandler(db *sql.DB, version string, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		deps:      deps,
		version:   version,
		startTime: time.Now(),
	}
}

// LivenessCheck returns basic liveness status
// @Router /health/live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ReadinessCheck returns readiness status including dependencies
// @Success 200 {object} metrics.HealthCheck
// @Failure 503 {object} metrics.HealthCheck
// @Router /health/ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx := c.Request.Context()
	components := make(map[string]metrics.HealthStatus)

	components["database"] = metrics.CheckDatabaseHealth(ctx, h.db)
	// 512MB como no limite do container
	components["memory"] = metrics.CheckMemoryHealth(512)

	for name, dep := range h.deps {
		components[name] = checkOptional(ctx, dep)
	}

	overallStatus := metrics.DetermineOverallStatus(components)

	healthCheck := metrics.HealthCheck{
		Status:     overallStatus,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthCheck)
}

func checkOptional(ctx context.Context, dep Pinger) metrics.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := dep.Ping(ctx); err != nil {
		return metrics.HealthStatus{Status: "degraded", Message: err.Error()}
	}
	return metrics.HealthStatus{Status: "healthy", Latency: time.Since(start).Milliseconds()}
}

// GetMetricsSummary returns the JSON snapshot of the counters
// @Success 200 {object} metrics.MetricsSnapshot
// @Router /metrics/summary [get]
func (h *HealthHandler) GetMetricsSummary(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.Get().Snapshot())
}

// GetEndpointMetrics returns metrics broken down by endpoint
// @Router /metrics/endpoints [get]
func (h *HealthHandler) GetEndpointMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"endpoints": metrics.Get().GetEndpointMetrics(),
	})
}

// GetDatabaseStats returns the connection pool statistics
// @Router /metrics/database [get]
func (h *HealthHandler) GetDatabaseStats(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "banco de dados não configurado"})
		return
	}
	c.JSON(http.StatusOK, database.GetPoolStats(h.db))
}
