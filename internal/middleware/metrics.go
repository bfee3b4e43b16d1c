package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware tracks request metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start).Milliseconds()
		statusCode := c.Writer.Status()
		metrics.Get().IncrementRequests(statusCode < 400, latency)

		// rota registrada, para não explodir a cardinalidade com IDs
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.Get().TrackEndpoint(path, c.Request.Method, statusCode, latency)
	}
}

// auditPrefixes são as rotas cujas escritas entram na trilha de auditoria
var auditPrefixes = []string{
	"/api/projects",
	"/api/deliverables",
	"/api/milestones",
	"/api/sprints",
	"/api/change-requests",
}

func shouldAudit(method, path string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return false
	}
	for _, prefix := range auditPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// AuditMiddleware logs audit events for state-changing requests
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if !shouldAudit(c.Request.Method, path) {
			return
		}
		userID := ""
		if actor, ok := ActorFrom(c); ok {
			userID = actor.UserID
		}
		logger.AuditRequest(
			c.Request.Context(),
			c.Request.Method,
			path,
			c.Writer.Status(),
			time.Since(start).Milliseconds(),
			userID,
			c.ClientIP(),
		)
	}
}
