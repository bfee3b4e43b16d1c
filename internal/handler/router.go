package handler

import (
	"time"

	"github.com/cleberrangel/clientflow-api/internal/metrics"
	"github.com/cleberrangel/clientflow-api/internal/middleware"
	"github.com/cleberrangel/clientflow-api/internal/service"
	"github.com/gin-gonic/gin"
)

// RouterConfig reúne o que o router precisa para montar as rotas
type RouterConfig struct {
	Engine            *service.Engine
	Health            *HealthHandler
	Auth              middleware.AuthConfig
	SprintCheckWindow time.Duration
}

// NewRouter monta o gin.Engine com middlewares e rotas
func NewRouter(cfg RouterConfig) *gin.Engine {
	projects := NewProjectHandler(cfg.Engine)
	deliverables := NewDeliverableHandler(cfg.Engine)
	milestones := NewMilestoneHandler(cfg.Engine)
	sprints := NewSprintHandler(cfg.Engine, cfg.SprintCheckWindow)
	changeRequests := NewChangeRequestHandler(cfg.Engine)

	r := gin.New()
	r.Use(middleware.RequestID()) // Request ID + logging estruturado
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())

	// Health e métricas (públicos)
	if cfg.Health != nil {
		r.GET("/health/live", cfg.Health.LivenessCheck)
		r.GET("/health/ready", cfg.Health.ReadinessCheck)
		r.GET("/metrics/summary", cfg.Health.GetMetricsSummary)
		r.GET("/metrics/endpoints", cfg.Health.GetEndpointMetrics)
		r.GET("/metrics/database", cfg.Health.GetDatabaseStats)
	}
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.Use(middleware.BearerAuth(cfg.Auth))
	api.Use(middleware.RequireUUIDParams())
	api.Use(middleware.AuditMiddleware())
	{
		api.GET("/projects", projects.List)
		api.GET("/projects/:id", projects.Get)
		api.PATCH("/projects/:id/phase", projects.ChangePhase)
		api.GET("/projects/:id/updates", projects.ListUpdates)
		api.POST("/projects/:id/updates", projects.PostUpdate)
		api.GET("/projects/:id/report", projects.ExportReport)

		api.GET("/projects/:id/deliverables", deliverables.List)
		api.POST("/projects/:id/deliverables", deliverables.Create)
		api.GET("/deliverables/:id", deliverables.Get)
		api.PATCH("/deliverables/:id/status", deliverables.Transition)
		api.GET("/deliverables/:id/comments", deliverables.ListComments)
		api.POST("/deliverables/:id/comments", deliverables.AddComment)

		api.GET("/projects/:id/milestones", milestones.List)
		api.POST("/projects/:id/milestones", milestones.Create)
		api.GET("/milestones/:id", milestones.Get)
		api.PATCH("/milestones/:id", milestones.Update)
		api.POST("/milestones/:id/approve", milestones.Approve)
		api.POST("/milestones/:id/request-changes", milestones.RequestChanges)

		api.GET("/projects/:id/sprints", sprints.List)
		api.POST("/projects/:id/sprints", sprints.Create)
		api.GET("/sprints/:id", sprints.Get)
		api.PATCH("/sprints/:id/dates", sprints.Retime)

		api.GET("/projects/:id/change-requests", changeRequests.List)
		api.POST("/projects/:id/change-requests", changeRequests.Create)
		api.GET("/change-requests/:id", changeRequests.Get)
		api.PATCH("/change-requests/:id", changeRequests.Update)

		api.GET("/notifications", projects.ListNotifications)
		api.POST("/notifications/:id/read", projects.MarkNotificationRead)
	}

	// Gatilhos externos (cron) autenticados por token de serviço
	internal := r.Group("/internal")
	internal.Use(middleware.ServiceAuth(cfg.Auth))
	{
		internal.POST("/sprints/check-recent", sprints.CheckRecent)
		internal.POST("/sprints/:id/check", middleware.RequireUUIDParams(), sprints.Check)
	}

	return r
}
