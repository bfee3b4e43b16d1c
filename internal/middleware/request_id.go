package middleware

import (
	"regexp"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID é o header HTTP para request ID
	HeaderRequestID = "X-Request-ID"
	// HeaderTraceID é o header HTTP para trace ID (distributed tracing)
	HeaderTraceID = "X-Trace-ID"
)

// IDs recebidos de fora entram nos logs; só aceitamos um formato seguro
var safeID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

func incomingID(c *gin.Context, header string) string {
	if v := c.GetHeader(header); safeID.MatchString(v) {
		return v
	}
	return ""
}

// RequestID adiciona request_id e trace_id a cada requisição e registra início e fim
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := incomingID(c, HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()[:8]
		}
		traceID := incomingID(c, HeaderTraceID)
		if traceID == "" {
			traceID = uuid.New().String()
		}

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		ctx = logger.WithTraceID(ctx, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		log := logger.Get(ctx)
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Msg("Requisição iniciada")

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		switch {
		case statusCode >= 500:
			event = log.Error()
		case statusCode >= 400:
			event = log.Warn()
		}

		// o actor só existe depois do BearerAuth, que roda depois deste middleware
		if actor, ok := ActorFrom(c); ok {
			event = event.Str("user_id", actor.UserID).Str("user_type", string(actor.Type))
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Int("status", statusCode).
			Int("size", c.Writer.Size()).
			Float64("latency_ms", float64(duration.Microseconds())/1000).
			Msg("Requisição concluída")
	}
}
