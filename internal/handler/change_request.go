package handler

import (
	"net/http"

	"github.com/cleberrangel/clientflow-api/internal/service"
	"github.com/gin-gonic/gin"
)

// ChangeRequestHandler expõe change requests e o limite semanal
type ChangeRequestHandler struct {
	engine *service.Engine
}

// NewChangeRequestHandler cria o handler de change requests
func NewChangeRequestHandler(engine *service.Engine) *ChangeRequestHandler {
	return &ChangeRequestHandler{engine: engine}
}

// Create files a change request. Clients get 429 with Retry-After once the weekly quota is used.
// @Router /api/projects/{id}/change-requests [post]
func (h *ChangeRequestHandler) Create(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	var req service.CreateChangeRequestInput
	if !bind(c, &req) {
		return
	}
	req.ProjectID = c.Param("id")
	cr, err := h.engine.CreateChangeRequest(c.Request.Context(), req, a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, cr)
}

// List returns the project's change requests.
// @Router /api/projects/{id}/change-requests [get]
func (h *ChangeRequestHandler) List(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	items, err := h.engine.ListChangeRequests(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// Get returns one change request.
// @Router /api/change-requests/{id} [get]
func (h *ChangeRequestHandler) Get(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	cr, err := h.engine.GetChangeRequest(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, cr)
}

// Update edits or transitions a change request.
// @Router /api/change-requests/{id} [patch]
func (h *ChangeRequestHandler) Update(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	var req service.ChangeRequestPatch
	if !bind(c, &req) {
		return
	}
	cr, err := h.engine.UpdateChangeRequest(c.Request.Context(), c.Param("id"), req, a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, cr)
}
