package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ValidID valida que um ID de rota é um UUID
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// RequireUUIDParams responde 404 quando um parâmetro de rota não é UUID,
// antes que o valor chegue ao banco
func RequireUUIDParams() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, p := range c.Params {
			if !ValidID(p.Value) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
					"error": "recurso não encontrado",
				})
				return
			}
		}
		c.Next()
	}
}
