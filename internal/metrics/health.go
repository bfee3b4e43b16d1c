package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status  string `json:"status"` // "healthy", "degraded", "unhealthy"
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// HealthCheck represents the overall health check response
type HealthCheck struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Timestamp  string                  `json:"timestamp"`
	Components map[string]HealthStatus `json:"components"`
}

// CheckDatabaseHealth checks database connectivity
func CheckDatabaseHealth(ctx context.Context, db *sql.DB) HealthStatus {
	if db == nil {
		return HealthStatus{Status: "unhealthy", Message: "database connection not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return HealthStatus{Status: "unhealthy", Message: err.Error(), Latency: latency}
	}
	if latency > 100 {
		return HealthStatus{Status: "degraded", Message: "high latency", Latency: latency}
	}
	return HealthStatus{Status: "healthy", Latency: latency}
}

// CheckMemoryHealth checks memory usage
func CheckMemoryHealth(maxHeapMB uint64) HealthStatus {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	heapMB := memStats.HeapAlloc / 1024 / 1024
	switch {
	case heapMB > maxHeapMB:
		return HealthStatus{Status: "unhealthy", Message: "heap memory exceeds limit"}
	case heapMB > maxHeapMB*80/100:
		return HealthStatus{Status: "degraded", Message: "heap memory usage high"}
	}
	return HealthStatus{Status: "healthy"}
}

// DetermineOverallStatus determines overall health from component statuses
func DetermineOverallStatus(components map[string]HealthStatus) string {
	hasDegraded := false
	for _, status := range components {
		switch status.Status {
		case "unhealthy":
			return "unhealthy"
		case "degraded":
			hasDegraded = true
		}
	}
	if hasDegraded {
		return "degraded"
	}
	return "healthy"
}
