package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/middleware"
	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/gin-gonic/gin"
)

// Response é o envelope de sucesso
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse é o envelope de erro
type ErrorResponse struct {
	Success bool       `json:"success"`
	Error   string     `json:"error"`
	Details string     `json:"details,omitempty"`
	RetryAt *time.Time `json:"retry_at,omitempty"`
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// handleError traduz erros do domínio para status HTTP
func handleError(c *gin.Context, err error) {
	log := logger.FromGin(c)

	var rl *model.RateLimitError
	switch {
	case errors.As(err, &rl):
		retryAfter := int(math.Ceil(time.Until(rl.RetryAt).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		retryAt := rl.RetryAt
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error:   "limite semanal de change requests atingido",
			Details: err.Error(),
			RetryAt: &retryAt,
		})
	case errors.Is(err, model.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "limite de solicitações excedido"})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "recurso não encontrado", Details: err.Error()})
	case errors.Is(err, model.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validação falhou", Details: err.Error()})
	case errors.Is(err, model.ErrUnauthorized):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "operação não permitida", Details: err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Erro interno")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "erro interno"})
	}
}

// bind decodifica o corpo JSON; em erro já respondeu 400
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "payload inválido",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// actor retorna o usuário autenticado; em erro já respondeu 401
func actor(c *gin.Context) (model.Actor, bool) {
	a, found := middleware.ActorFrom(c)
	if !found {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "usuário não autenticado"})
	}
	return a, found
}
