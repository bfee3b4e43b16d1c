package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/app"
	"github.com/cleberrangel/clientflow-api/internal/config"
	"github.com/cleberrangel/clientflow-api/internal/handler"
	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/middleware"
	"github.com/gin-gonic/gin"
)

const Version = "2.0.0"

func main() {
	// Carrega configurações
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Erro ao carregar configurações: %v", err)
	}

	// Inicializa logger estruturado
	logger.Init(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, File: cfg.LogFile})
	log := logger.Global()
	log.Info().
		Str("version", Version).
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("log_json", cfg.LogJSON).
		Str("rate_limit_tz", cfg.RateLimitLocation.String()).
		Msg("ClientFlow API iniciando")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Inicializa dependências
	rt, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Erro ao inicializar dependências")
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Error().Err(err).Msg("Erro ao liberar recursos")
		}
	}()

	gin.SetMode(cfg.GinMode)

	router := handler.NewRouter(handler.RouterConfig{
		Engine: rt.Engine,
		Health: handler.NewHealthHandler(rt.DB, Version, rt.Deps),
		Auth: middleware.AuthConfig{
			JWTSecret:        cfg.JWTSecret,
			ServiceTokenHash: cfg.ServiceTokenHash,
		},
		SprintCheckWindow: cfg.SprintCheckWindow,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Servidor iniciando")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Erro ao iniciar servidor")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Encerrando servidor")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Erro no shutdown do servidor")
	}
}
