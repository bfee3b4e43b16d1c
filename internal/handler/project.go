package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/cleberrangel/clientflow-api/internal/service"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ProjectHandler expõe projetos, feed, notificações e o relatório
type ProjectHandler struct {
	engine *service.Engine
}

// NewProjectHandler cria o handler de projetos
func NewProjectHandler(engine *service.Engine) *ProjectHandler {
	return &ProjectHandler{engine: engine}
}

// PhaseRequest é o corpo de PATCH /api/projects/:id/phase
type PhaseRequest struct {
	Phase model.Phase `json:"phase" binding:"required"`
}

// List returns the projects the actor is a member of (all projects for internal users).
// @Router /api/projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	projects, err := h.engine.ListProjects(c.Request.Context(), a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, projects)
}

// Get returns a project with its overall progress.
// @Router /api/projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	project, err := h.engine.GetProject(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, project)
}

// ChangePhase moves the project to another phase.
// @Router /api/projects/{id}/phase [patch]
func (h *ProjectHandler) ChangePhase(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	var req PhaseRequest
	if !bind(c, &req) {
		return
	}
	project, err := h.engine.ChangeProjectPhase(c.Request.Context(), c.Param("id"), req.Phase, a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, project)
}

// ListUpdates returns the feed, newest first. Clients only see client-visible entries.
// @Router /api/projects/{id}/updates [get]
func (h *ProjectHandler) ListUpdates(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	updates, err := h.engine.ListUpdates(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, updates)
}

// PostUpdate publishes a manual feed entry.
// @Router /api/projects/{id}/updates [post]
func (h *ProjectHandler) PostUpdate(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	var req service.PostUpdateInput
	if !bind(c, &req) {
		return
	}
	update, err := h.engine.PostUpdate(c.Request.Context(), c.Param("id"), req, a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, update)
}

// ExportReport baixa o relatório de status em Excel
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /api/projects/{id}/report [get]
func (h *ProjectHandler) ExportReport(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	buf, filename, err := h.engine.ExportProjectReport(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		handleError(c, err)
		return
	}

	logger.FromGin(c).Info().Str("file", filename).Int("bytes", buf.Len()).Msg("Relatório exportado")

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Length", strconv.Itoa(buf.Len()))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ListNotifications returns the actor's notifications; ?unread=true filters read ones out.
// @Router /api/notifications [get]
func (h *ProjectHandler) ListNotifications(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
	notifications, err := h.engine.ListNotifications(c.Request.Context(), a, unreadOnly)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, notifications)
}

// MarkNotificationRead marks one of the actor's notifications as read.
// @Router /api/notifications/{id}/read [post]
func (h *ProjectHandler) MarkNotificationRead(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	if err := h.engine.MarkNotificationRead(c.Request.Context(), c.Param("id"), a); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
