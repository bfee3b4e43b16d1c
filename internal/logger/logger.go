package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey string

const (
	RequestIDKey ctxKey = "request_id"
	LoggerKey    ctxKey = "logger"
	UserIDKey    ctxKey = "user_id"
	UserTypeKey  ctxKey = "user_type"
	ProjectIDKey ctxKey = "project_id"
	TraceIDKey   ctxKey = "trace_id"
)

// Options controla a saída do logger global
type Options struct {
	Level      string
	JSON       bool
	File       string // opcional: grava também em arquivo rotacionado
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init inicializa o logger global
func Init(opts Options) {
	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var output io.Writer = os.Stdout
	if !opts.JSON {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		output = zerolog.MultiLevelWriter(output, rotating)
	}

	globalLogger = zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "clientflow-core").
		Logger()

	InitAudit()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Global retorna o logger global
func Global() *zerolog.Logger {
	return &globalLogger
}

// Get retorna logger do contexto ou global
func Get(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &globalLogger
	}
	if l, ok := ctx.Value(LoggerKey).(*zerolog.Logger); ok {
		return l
	}
	return &globalLogger
}

// FromGin extrai o logger do contexto Gin
func FromGin(c *gin.Context) *zerolog.Logger {
	return Get(c.Request.Context())
}

// WithRequestID adiciona request_id ao logger e contexto
func WithRequestID(ctx context.Context, requestID string) context.Context {
	l := Get(ctx).With().Str("request_id", requestID).Logger()
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	ctx = context.WithValue(ctx, LoggerKey, &l)
	return ctx
}

// WithTraceID adiciona um trace ID para rastreamento distribuído
func WithTraceID(ctx context.Context, traceID string) context.Context {
	l := Get(ctx).With().Str("trace_id", traceID).Logger()
	ctx = context.WithValue(ctx, TraceIDKey, traceID)
	ctx = context.WithValue(ctx, LoggerKey, &l)
	return ctx
}

// WithActor adiciona o usuário autenticado ao contexto e logger
func WithActor(ctx context.Context, userID, userType string) context.Context {
	l := Get(ctx).With().
		Str("user_id", userID).
		Str("user_type", userType).
		Logger()
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, UserTypeKey, userType)
	ctx = context.WithValue(ctx, LoggerKey, &l)
	return ctx
}

// WithProject adiciona project_id ao logger, usado pelas cascatas
func WithProject(ctx context.Context, projectID string) context.Context {
	if projectID == "" {
		return ctx
	}
	l := Get(ctx).With().Str("project_id", projectID).Logger()
	ctx = context.WithValue(ctx, ProjectIDKey, projectID)
	ctx = context.WithValue(ctx, LoggerKey, &l)
	return ctx
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetRequestID extrai request_id do contexto
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetUserID extrai user_id do contexto
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

// GetProjectID extrai project_id do contexto
func GetProjectID(ctx context.Context) string {
	return stringValue(ctx, ProjectIDKey)
}

// TraceContext retorna todas as informações de rastreamento do contexto
func TraceContext(ctx context.Context) map[string]string {
	return map[string]string{
		"request_id": GetRequestID(ctx),
		"trace_id":   stringValue(ctx, TraceIDKey),
		"user_id":    GetUserID(ctx),
		"project_id": GetProjectID(ctx),
	}
}
