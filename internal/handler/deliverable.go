package handler

import (
	"net/http"

	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/cleberrangel/clientflow-api/internal/service"
	"github.com/gin-gonic/gin"
)

// DeliverableHandler expõe o board de entregáveis e os comentários
type DeliverableHandler struct {
	engine *service.Engine
}

// NewDeliverableHandler cria o handler de entregáveis
func NewDeliverableHandler(engine *service.Engine) *DeliverableHandler {
	return &DeliverableHandler{engine: engine}
}

// TransitionRequest move um card de coluna e/ou posição
type TransitionRequest struct {
	Status     model.DeliverableStatus `json:"status" binding:"required"`
	OrderIndex *int                    `json:"order_index"`
}

// Create adds a card to the board.
// @Router /api/projects/{id}/deliverables [post]
func (h *DeliverableHandler) Create(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	var req service.CreateDeliverableInput
	if !bind(c, &req) {
		return
	}
	req.ProjectID = c.Param("id")
	view, err := h.engine.CreateDeliverable(c.Request.Context(), req, a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, view)
}

// List returns the project's board.
// @Router /api/projects/{id}/deliverables [get]
func (h *DeliverableHandler) List(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	items, err := h.engine.ListDeliverables(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// Get returns a deliverable with its group progress.
// @Router /api/deliverables/{id} [get]
func (h *DeliverableHandler) Get(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	view, err := h.engine.GetDeliverable(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// Transition moves a card on the board.
// @Router /api/deliverables/{id}/status [patch]
func (h *DeliverableHandler) Transition(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	var req TransitionRequest
	if !bind(c, &req) {
		return
	}
	view, err := h.engine.TransitionDeliverable(c.Request.Context(), c.Param("id"), req.Status, req.OrderIndex, a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// ListComments returns the comment thread as a tree.
// @Router /api/deliverables/{id}/comments [get]
func (h *DeliverableHandler) ListComments(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	tree, err := h.engine.ListComments(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusOK, tree)
}

// AddComment posts a comment or a reply.
// @Router /api/deliverables/{id}/comments [post]
func (h *DeliverableHandler) AddComment(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	var req service.AddCommentInput
	if !bind(c, &req) {
		return
	}
	req.DeliverableID = c.Param("id")
	comment, err := h.engine.AddComment(c.Request.Context(), req, a)
	if err != nil {
		handleError(c, err)
		return
	}
	ok(c, http.StatusCreated, comment)
}
