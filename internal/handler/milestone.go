package handler

import (
	"context"
	"net/http"

	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/cleberrangel/clientflow-api/internal/service"
	"github.com/gin-gonic/gin"
)

// MilestoneHandler expõe milestones e o fluxo de aprovação do cliente
type MilestoneHandler struct {
	engine *service.Engine
}

// NewMilestoneHandler cria o handler de milestones
func NewMilestoneHandler(engine *service.Engine) *MilestoneHandler {
	return &MilestoneHandler{engine: engine}
}

// DecisionRequest carrega as notas de aprovação ou pedido de ajustes
type DecisionRequest struct {
	Notes string `json:"notes"`
}

// Create appends a milestone to the project.
// @Router /api/projects/{id}/milestones [post]
func (h *MilestoneHandler) Create(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	var req service.CreateMilestoneInput
	if !bind(c, &req) {
		return
	}
	req.ProjectID = c.Param("id")
	view, err := h.engine.CreateMilestone(c.Request.Context(), req, a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, view)
}

// List returns the milestones the actor may see, in order.
// @Router /api/projects/{id}/milestones [get]
func (h *MilestoneHandler) List(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	views, err := h.engine.ListMilestones(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, views)
}

// Get returns a milestone with its progress.
// @Router /api/milestones/{id} [get]
func (h *MilestoneHandler) Get(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	view, err := h.engine.GetMilestone(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// Update applies an internal edit.
// @Router /api/milestones/{id} [patch]
func (h *MilestoneHandler) Update(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	var req service.MilestonePatch
	if !bind(c, &req) {
		return
	}
	view, err := h.engine.UpdateMilestone(c.Request.Context(), c.Param("id"), req, a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// Approve records the client's approval.
// @Router /api/milestones/{id}/approve [post]
func (h *MilestoneHandler) Approve(c *gin.Context) {
	h.decide(c, h.engine.ApproveMilestone)
}

// RequestChanges records the client's change request; notes are required.
// @Router /api/milestones/{id}/request-changes [post]
func (h *MilestoneHandler) RequestChanges(c *gin.Context) {
	h.decide(c, h.engine.RequestMilestoneChanges)
}

type decideFunc func(ctx context.Context, id string, actor model.Actor, notes string) (*service.MilestoneView, error)

func (h *MilestoneHandler) decide(c *gin.Context, fn decideFunc) {
	a, found := actor(c)
	if !found {
		return
	}
	var req DecisionRequest
	// corpo vazio é aceito; as notas são validadas no serviço
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	view, err := fn(c.Request.Context(), c.Param("id"), a, req.Notes)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}
