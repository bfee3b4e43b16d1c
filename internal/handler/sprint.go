package handler

import (
	"net/http"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/service"
	"github.com/gin-gonic/gin"
)

// SprintHandler expõe sprints e os gatilhos de verificação de conclusão
type SprintHandler struct {
	engine        *service.Engine
	defaultWindow time.Duration
}

// NewSprintHandler cria o handler de sprints. window é a janela padrão do check-recent.
func NewSprintHandler(engine *service.Engine, window time.Duration) *SprintHandler {
	if window <= 0 {
		window = service.DefaultCompletionWindow
	}
	return &SprintHandler{engine: engine, defaultWindow: window}
}

// RetimeRequest move a sprint; o fim é recalculado
type RetimeRequest struct {
	StartDate time.Time `json:"start_date" binding:"required"`
}

// Create schedules a 14-day sprint.
// @Router /api/projects/{id}/sprints [post]
func (h *SprintHandler) Create(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	var req service.CreateSprintInput
	if !bind(c, &req) {
		return
	}
	req.ProjectID = c.Param("id")
	view, err := h.engine.CreateSprint(c.Request.Context(), req, a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, view)
}

// List returns the project's sprints.
// @Router /api/projects/{id}/sprints [get]
func (h *SprintHandler) List(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	views, err := h.engine.ListSprints(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, views)
}

// Get returns a sprint with progress and time progress.
// @Router /api/sprints/{id} [get]
func (h *SprintHandler) Get(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	view, err := h.engine.GetSprint(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// Retime moves the sprint window.
// @Router /api/sprints/{id}/dates [patch]
func (h *SprintHandler) Retime(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	var req RetimeRequest
	if !bind(c, &req) {
		return
	}
	view, err := h.engine.RetimeSprint(c.Request.Context(), c.Param("id"), req.StartDate, a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// Check runs the completion check for one sprint (service token).
// @Router /internal/sprints/{id}/check [post]
func (h *SprintHandler) Check(c *gin.Context) {
	result, err := h.engine.CheckSprintCompletion(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// CheckRecent re-checks every sprint that ended within ?window= (Go duration).
// @Router /internal/sprints/check-recent [post]
func (h *SprintHandler) CheckRecent(c *gin.Context) {
	window := h.defaultWindow
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "window inválida", Details: raw})
			return
		}
		window = parsed
	}

	results, err := h.engine.CheckRecentSprintCompletions(c.Request.Context(), window)
	if err != nil {
		handleError(c, err)
		return
	}

	generated := 0
	for _, r := range results {
		if r.Generated {
			generated++
		}
	}
	logger.FromGin(c).Info().
		Dur("window", window).
		Int("checked", len(results)).
		Int("generated", generated).
		Msg("Verificação de sprints concluída")

	ok(c, http.StatusOK, results)
}
